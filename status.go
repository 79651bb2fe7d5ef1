package sioclient

// ConnectionStatus is the state of the manager's engine connection.
type ConnectionStatus int32

const (
	StatusNotConnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusDisconnected
)

func (s ConnectionStatus) String() string {
	switch s {
	case StatusNotConnected:
		return "notConnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// active reports whether a connect attempt is in flight or established.
func (s ConnectionStatus) active() bool {
	return s == StatusConnecting || s == StatusConnected
}

// SocketStatus is the state of one namespace socket.
type SocketStatus int32

const (
	SocketNotConnected SocketStatus = iota
	SocketConnecting
	SocketConnected
	SocketDisconnected
)

func (s SocketStatus) String() string {
	switch s {
	case SocketNotConnected:
		return "notConnected"
	case SocketConnecting:
		return "connecting"
	case SocketConnected:
		return "connected"
	case SocketDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// ClientEvent names the lifecycle events the manager delivers to sockets.
type ClientEvent string

const (
	EventConnect          ClientEvent = "connect"
	EventDisconnect       ClientEvent = "disconnect"
	EventError            ClientEvent = "error"
	EventPing             ClientEvent = "ping"
	EventPong             ClientEvent = "pong"
	EventReconnect        ClientEvent = "reconnect"
	EventReconnectAttempt ClientEvent = "reconnectAttempt"
)
