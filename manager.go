package sioclient

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager owns the engine transport shared by every namespace socket. All
// state changes run on one handle goroutine, in the order the transport
// reported them; the exported methods only enqueue work and never block on
// the network.
type Manager struct {
	id  string
	cfg Config

	parser       Parser
	newTransport TransportFactory
	sched        scheduler

	handle *handleQueue
	status atomic.Int32
	closed atomic.Bool

	transport Transport
	client    *transportClient

	registry  *namespaceRegistry
	router    *packetRouter
	reconnect *reconnector

	logger *zap.SugaredLogger
}

// NewManager creates a manager for the server at rawURL with DefaultConfig.
func NewManager(rawURL string, opts ...ManagerOption) (*Manager, error) {
	cfg := DefaultConfig()
	cfg.URL = rawURL
	return NewManagerWithConfig(cfg, opts...)
}

func NewManagerWithConfig(cfg Config, opts ...ManagerOption) (*Manager, error) {
	m := &Manager{
		id:           uuid.NewString(),
		cfg:          cfg,
		parser:       DefaultParser,
		newTransport: NewWebsocketTransport,
		sched:        timerScheduler{},
		registry:     newNamespaceRegistry(),
	}

	for _, o := range opts {
		o(m)
	}

	m.cfg.normalize()
	if err := m.cfg.Validate(); err != nil {
		return nil, err
	}

	if m.logger == nil {
		logger, err := zap.NewProduction()
		if err != nil {
			panic(err)
		}
		m.logger = logger.Sugar()
	}
	m.logger = m.logger.With("Manager", m.id)

	m.handle = newHandleQueue(m.logger)
	m.router = newPacketRouter(m.parser, m.registry, m.logger)
	m.reconnect = newReconnector(m)

	return m, nil
}

func (m *Manager) ID() string {
	return m.id
}

func (m *Manager) Status() ConnectionStatus {
	return ConnectionStatus(m.status.Load())
}

func (m *Manager) setStatus(st ConnectionStatus) {
	if old := ConnectionStatus(m.status.Swap(int32(st))); old != st {
		m.logger.Debugf("status %s -> %s", old, st)
	}
}

// Connect starts connecting unless a connection is in flight or established.
func (m *Manager) Connect() {
	m.handle.do(m.connect)
}

// Disconnect closes the transport and disables reconnection until the next
// Connect.
func (m *Manager) Disconnect() {
	m.handle.do(m.disconnect)
}

// Reconnect drops the current transport connection so that the regular
// reconnect cycle takes over. It does nothing while a cycle is running.
func (m *Manager) Reconnect() {
	m.handle.do(func() {
		if m.reconnect.reconnecting {
			return
		}
		if m.transport != nil {
			m.transport.Disconnect(string(DRManualReconnect))
		}
	})
}

// Socket returns the socket for nsp, creating it if needed. nsp must start
// with "/". It is safe to call from handlers.
func (m *Manager) Socket(nsp string) *Socket {
	if !strings.HasPrefix(nsp, "/") {
		panic(fmt.Sprintf("namespace %q must start with \"/\"", nsp))
	}

	socket, created := m.registry.getOrCreate(nsp, func() *Socket {
		return newSocket(m, nsp)
	})
	if created {
		m.logger.Debugf("created socket for %s", nsp)
	}
	return socket
}

// ConnectSocket connects socket's namespace, connecting the manager first
// when needed.
func (m *Manager) ConnectSocket(socket *Socket) {
	m.handle.do(func() { m.connectSocket(socket) })
}

// DisconnectSocket leaves socket's namespace.
func (m *Manager) DisconnectSocket(socket *Socket) {
	m.handle.do(func() {
		if !m.registry.owns(socket) {
			m.logger.Warnf("disconnect of unregistered socket %s", socket.nsp)
			return
		}
		m.disconnectNamespace(socket.nsp)
	})
}

// DisconnectNamespace leaves nsp. Unknown namespaces are ignored.
func (m *Manager) DisconnectNamespace(nsp string) {
	m.handle.do(func() { m.disconnectNamespace(nsp) })
}

// EmitAll delivers a lifecycle event to every registered socket.
func (m *Manager) EmitAll(event ClientEvent, data ...any) {
	m.handle.do(func() { m.emitAll(event, data...) })
}

// EmitAllPacket delivers packet to every registered socket as if it had
// arrived on that socket's namespace.
func (m *Manager) EmitAllPacket(packet *Packet) {
	m.handle.do(func() { m.emitAllPacket(packet) })
}

// Broadcast emits to every connected namespace except the given ones.
func (m *Manager) Broadcast(excludes ...string) *Broadcast {
	b := &Broadcast{m: m, excludes: make(map[string]struct{}, len(excludes))}
	for _, nsp := range excludes {
		b.excludes[nsp] = struct{}{}
	}
	return b
}

func (m *Manager) SetReconnects(reconnects bool) {
	m.handle.do(func() { m.cfg.Reconnects = reconnects })
}

// SetReconnectWait sets the seconds between reconnect attempts. Negative
// values are taken as their absolute value.
func (m *Manager) SetReconnectWait(seconds int) {
	m.handle.do(func() {
		m.cfg.ReconnectWait = seconds
		m.cfg.normalize()
	})
}

func (m *Manager) SetReconnectAttempts(attempts int) {
	m.handle.do(func() { m.cfg.ReconnectAttempts = attempts })
}

func (m *Manager) SetForceNew(forceNew bool) {
	m.handle.do(func() { m.cfg.ForceNew = forceNew })
}

// Close tears the manager down: reconnection stops, the transport is
// detached and disconnected, and every socket gets a final disconnect. It
// waits for the handle goroutine, so it must not be called from a handler.
func (m *Manager) Close() {
	if !m.closed.CompareAndSwap(false, true) {
		return
	}

	m.handle.do(func() {
		m.reconnect.end()
		if m.client != nil {
			m.client.detach()
		}
		if m.transport != nil {
			m.transport.Disconnect(string(DRManagerClosed))
		}
		m.router.reset()
		m.setStatus(StatusDisconnected)
		for _, socket := range m.registry.snapshot() {
			if socket.Status() != SocketDisconnected {
				socket.handleDisconnect(string(DRManagerClosed))
			}
		}
	})
	m.handle.close()
	m.handle.wait()
	_ = m.logger.Sync()
}

// The methods below run on the handle context.

func (m *Manager) connect() {
	if st := m.Status(); st.active() {
		m.logger.Debugf("connect ignored, status %s", st)
		return
	}

	if m.transport == nil || m.cfg.ForceNew {
		m.addTransport()
	}

	m.setStatus(StatusConnecting)
	m.transport.Connect()
}

func (m *Manager) addTransport() {
	if m.client != nil {
		m.client.detach()
		if m.transport != nil {
			m.transport.Disconnect("Adding new engine")
		}
	}

	m.client = &transportClient{manager: m}
	m.transport = m.newTransport(m.cfg, m.client, m.logger)
	m.logger.Debugf("created transport for %s", m.cfg.URL)
}

func (m *Manager) disconnect() {
	m.setStatus(StatusDisconnected)
	m.reconnect.end()
	if m.transport != nil {
		m.transport.Disconnect(string(DRManualDisconnect))
	}
}

func (m *Manager) connectSocket(socket *Socket) {
	if !m.registry.owns(socket) {
		m.logger.Warnf("connect of unregistered socket %s", socket.nsp)
		return
	}
	if socket.Status() != SocketConnected {
		socket.setStatus(SocketConnecting)
	}

	if m.Status() != StatusConnected {
		m.connect()
		return
	}

	packet := &Packet{Type: PacketConnect, Namespace: socket.nsp}
	if auth := socket.Auth(); auth != nil {
		packet.Data = []any{auth}
	}
	m.sendPacket(packet)
}

func (m *Manager) disconnectNamespace(nsp string) {
	socket := m.registry.remove(nsp)
	if socket == nil {
		m.logger.Warnf("disconnect of unknown namespace %s", nsp)
		return
	}

	if m.Status() == StatusConnected {
		m.sendPacket(&Packet{Type: PacketDisconnect, Namespace: nsp})
	}
	socket.handleDisconnect(string(DRNamespaceLeave))
}

func (m *Manager) sendPacket(packet *Packet) {
	if m.transport == nil {
		m.logger.Debugf("dropping %v, no transport", packet)
		return
	}

	msgs, err := m.parser.Encode(packet)
	if err != nil {
		m.logger.Error("m.parser.Encode: ", err)
		return
	}

	var attachments [][]byte
	for _, msg := range msgs[1:] {
		attachments = append(attachments, msg.Data)
	}
	m.transport.Send(string(msgs[0].Data), attachments)
}

// dispatch applies one transport event.
func (m *Manager) dispatch(ev transportEvent) {
	switch ev.kind {
	case transportOpen:
		m.onOpen(ev.reason)
	case transportClose:
		m.onClose(ev.reason)
	case transportError:
		m.onError(ev.reason)
	case transportPingSent:
		m.emitAll(EventPing)
	case transportPongReceived:
		m.emitAll(EventPong)
	case transportText:
		m.router.onText(ev.text)
	case transportBinary:
		m.router.onBinary(ev.data)
	}
}

func (m *Manager) onOpen(reason string) {
	m.logger.Infof("transport open: %s", reason)
	m.setStatus(StatusConnected)
	m.reconnect.end()

	implicit := m.cfg.Version == V2
	if implicit {
		if socket := m.registry.get(MainNamespace); socket != nil {
			socket.handleConnect()
		}
	}

	for _, socket := range m.registry.snapshot() {
		if implicit && socket.nsp == MainNamespace {
			continue
		}
		if socket.Status() == SocketConnecting {
			m.connectSocket(socket)
		}
	}
}

func (m *Manager) onClose(reason string) {
	m.logger.Infof("transport closed: %s", reason)

	if n := m.router.reset(); n > 0 {
		m.logger.Warnf("discarded %d incomplete binary packets", n)
	}

	if m.Status() != StatusDisconnected {
		m.setStatus(StatusNotConnected)
	}

	if m.Status() == StatusDisconnected || !m.cfg.Reconnects {
		m.didDisconnect(reason)
		return
	}

	if !m.reconnect.reconnecting {
		m.reconnect.start(reason)
	}
}

func (m *Manager) onError(reason string) {
	m.logger.Warnf("transport error: %s", reason)
	m.emitAll(EventError, reason)
}

// didDisconnect ends the connection for good and tells every socket.
func (m *Manager) didDisconnect(reason string) {
	m.reconnect.end()
	m.setStatus(StatusDisconnected)
	for _, socket := range m.registry.snapshot() {
		socket.handleDisconnect(reason)
	}
}
