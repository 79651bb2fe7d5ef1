package sioclient

// Broadcast emits an application event on every connected namespace.
type Broadcast struct {
	m        *Manager
	excludes map[string]struct{}
}

func (b *Broadcast) Emit(eName string, args ...any) {
	b.m.handle.do(func() {
		for _, socket := range b.m.registry.snapshot() {
			if _, ok := b.excludes[socket.nsp]; ok {
				continue
			}
			if socket.Status() != SocketConnected {
				continue
			}
			data := append([]any{eName}, args...)
			b.m.sendPacket(&Packet{
				Type:      PacketEvent,
				Namespace: socket.nsp,
				Data:      data,
			})
		}
	})
}

// emitAll delivers a lifecycle event to every registered socket.
func (m *Manager) emitAll(event ClientEvent, data ...any) {
	for _, socket := range m.registry.snapshot() {
		socket.handleClientEvent(event, data...)
	}
}

// emitAllPacket hands a copy of packet to every registered socket.
func (m *Manager) emitAllPacket(packet *Packet) {
	for _, socket := range m.registry.snapshot() {
		p := *packet
		p.Namespace = socket.nsp
		p.Data = append([]any(nil), packet.Data...)
		socket.handlePacket(&p)
	}
}
