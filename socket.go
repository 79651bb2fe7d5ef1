package sioclient

import (
	"reflect"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Socket is the client side of one namespace. It is created by
// Manager.Socket and stays valid until its namespace is left.
type Socket struct {
	nsp     string
	manager *Manager

	status atomic.Int32

	mu   sync.Mutex
	sid  string
	auth any

	eh *EventManager

	ackMu sync.Mutex
	ackID int
	acks  map[int]*handler

	logger *zap.SugaredLogger
}

func newSocket(m *Manager, nsp string) *Socket {
	return &Socket{
		nsp:     nsp,
		manager: m,
		eh:      newEventManager(),
		acks:    make(map[int]*handler),
		logger:  m.logger.With("Namespace", nsp),
	}
}

func (s *Socket) Namespace() string {
	return s.nsp
}

func (s *Socket) Manager() *Manager {
	return s.manager
}

func (s *Socket) Status() SocketStatus {
	return SocketStatus(s.status.Load())
}

func (s *Socket) setStatus(st SocketStatus) {
	s.status.Store(int32(st))
}

// ID returns the session id the server assigned on namespace connect, if any.
func (s *Socket) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sid
}

// SetAuth sets the payload sent with the namespace connect packet.
func (s *Socket) SetAuth(v any) {
	s.mu.Lock()
	s.auth = v
	s.mu.Unlock()
}

func (s *Socket) Auth() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auth
}

// On registers h for an application event or a ClientEvent name. Handler
// arguments are decoded into h's parameter types; a trailing AckFunc
// parameter receives the acknowledgement callback.
func (s *Socket) On(eName string, h any) {
	s.eh.Register(eName, h)
}

func (s *Socket) OnClient(event ClientEvent, h any) {
	s.eh.Register(string(event), h)
}

func (s *Socket) Off(eName string) {
	s.eh.Remove(eName)
}

func (s *Socket) Connect() {
	s.manager.ConnectSocket(s)
}

func (s *Socket) Disconnect() {
	s.manager.DisconnectSocket(s)
}

// Emit sends an event to the server. When the last argument is an AckFunc
// (or any func) it is called with the server's acknowledgement.
func (s *Socket) Emit(eName string, args ...any) error {
	if s.Status() != SocketConnected {
		return ErrNotConnected
	}

	var ack *handler
	if n := len(args); n > 0 && args[n-1] != nil {
		if h, ok := asHandler(args[n-1]); ok {
			ack = h
			args = args[:n-1]
		}
	}

	data := append([]any{eName}, args...)
	packet := &Packet{
		Type:      PacketEvent,
		Namespace: s.nsp,
		Data:      data,
	}
	if ack != nil {
		id := s.registerAck(ack)
		packet.ID = &id
	}

	s.logger.Debugf("Emit %s: %v", eName, args)
	if !s.manager.handle.do(func() { s.manager.sendPacket(packet) }) {
		return ErrManagerClosed
	}
	return nil
}

func asHandler(v any) (*handler, bool) {
	if reflect.TypeOf(v).Kind() != reflect.Func {
		return nil, false
	}
	return newHandler(v), true
}

func (s *Socket) registerAck(h *handler) int {
	s.ackMu.Lock()
	defer s.ackMu.Unlock()
	id := s.ackID
	s.ackID++
	s.acks[id] = h
	return id
}

func (s *Socket) takeAck(id int) *handler {
	s.ackMu.Lock()
	defer s.ackMu.Unlock()
	h := s.acks[id]
	delete(s.acks, id)
	return h
}

// The methods below run on the manager's handle context.

func (s *Socket) handlePacket(packet *Packet) {
	switch packet.Type {
	case PacketConnect:
		if len(packet.Data) > 0 {
			if m, ok := packet.Data[0].(map[string]any); ok {
				if sid, ok := m["sid"].(string); ok {
					s.mu.Lock()
					s.sid = sid
					s.mu.Unlock()
				}
			}
		}
		s.handleConnect()
	case PacketDisconnect:
		s.handleDisconnect(string(DRServerNamespaceDisconnect))
	case PacketEvent, PacketBinaryEvent:
		s.dispatch(packet)
	case PacketAck, PacketBinaryAck:
		s.dispatchAck(packet)
	case PacketConnectError:
		s.setStatus(SocketDisconnected)
		s.handleClientEvent(EventError, packet.Data...)
	}
}

// handleConnect fires EventConnect once per connection; a repeated connect
// packet only refreshes the sid.
func (s *Socket) handleConnect() {
	if SocketStatus(s.status.Swap(int32(SocketConnected))) == SocketConnected {
		return
	}
	s.handleClientEvent(EventConnect, s.nsp)
}

func (s *Socket) handleDisconnect(reason string) {
	s.setStatus(SocketDisconnected)
	s.handleClientEvent(EventDisconnect, reason)
}

func (s *Socket) handleClientEvent(event ClientEvent, data ...any) {
	h := s.eh.GetHandler(string(event))
	if h == nil {
		return
	}
	if err := h.call(s.manager.parser, data, nil); err != nil {
		s.logger.Errorf("%s handler: %v", event, err)
	}
}

func (s *Socket) dispatch(packet *Packet) {
	eName, err := s.manager.parser.ParseEventName(packet)
	if err != nil {
		s.logger.Error("s.manager.parser.ParseEventName: ", err)
		return
	}

	h := s.eh.GetHandler(eName)
	if h == nil {
		s.logger.Debugf("no handler for %s", eName)
		return
	}

	var ack AckFunc
	if packet.ID != nil {
		ack = s.ackFunc(*packet.ID)
	}
	if err := h.call(s.manager.parser, packet.Data[1:], ack); err != nil {
		s.logger.Errorf("%s handler: %v", eName, err)
	}
}

func (s *Socket) ackFunc(id int) AckFunc {
	var once sync.Once
	return func(args ...any) {
		once.Do(func() {
			packet := &Packet{
				Type:      PacketAck,
				Namespace: s.nsp,
				ID:        &id,
				Data:      args,
			}
			s.manager.handle.do(func() { s.manager.sendPacket(packet) })
		})
	}
}

func (s *Socket) dispatchAck(packet *Packet) {
	if packet.ID == nil {
		return
	}
	h := s.takeAck(*packet.ID)
	if h == nil {
		s.logger.Debugf("no ack callback for id %d", *packet.ID)
		return
	}
	if err := h.call(s.manager.parser, packet.Data, nil); err != nil {
		s.logger.Errorf("ack %d handler: %v", *packet.ID, err)
	}
}
