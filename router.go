package sioclient

import (
	"go.uber.org/zap"
)

// packetRouter turns transport frames into packets and hands complete
// packets to their namespace socket.
type packetRouter struct {
	parser   Parser
	pending  *pendingBinaryQueue
	registry *namespaceRegistry

	logger *zap.SugaredLogger
}

func newPacketRouter(parser Parser, registry *namespaceRegistry, logger *zap.SugaredLogger) *packetRouter {
	return &packetRouter{
		parser:   parser,
		pending:  newPendingBinaryQueue(),
		registry: registry,
		logger:   logger,
	}
}

func (r *packetRouter) onText(raw string) {
	packet, err := r.parser.Decode(raw)
	if err != nil {
		r.logger.Debugf("dropping malformed frame %q: %v", raw, err)
		return
	}

	if packet.Type.IsBinary() && packet.Attachments > 0 {
		// Binary payload concatenating
		if dropped := r.pending.push(packet); dropped != nil {
			r.logger.Warnf("pending binary queue full, dropping %v", dropped)
		}
		return
	}

	r.route(packet)
}

func (r *packetRouter) onBinary(data []byte) {
	packet, err := r.pending.attach(data)
	if err != nil {
		r.logger.Warnf("dropping binary frame of %d bytes: %v", len(data), err)
		return
	}
	if packet == nil {
		return
	}

	if err := r.parser.Reconstruct(packet); err != nil {
		r.logger.Warnf("dropping %v: %v", packet, err)
		return
	}
	r.route(packet)
}

func (r *packetRouter) route(packet *Packet) {
	var socket *Socket
	if packet.Type == PacketDisconnect {
		socket = r.registry.remove(packet.Namespace)
	} else {
		socket = r.registry.get(packet.Namespace)
	}
	if socket == nil {
		r.logger.Debugf("dropping %v for unknown namespace", packet)
		return
	}

	socket.handlePacket(packet)
}

// reset discards partially received binary packets.
func (r *packetRouter) reset() int {
	return r.pending.reset()
}
