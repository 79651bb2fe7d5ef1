package sioclient

import (
	"fmt"
)

const MainNamespace = "/"

type Packet struct {
	Type      PacketType
	Namespace string
	ID        *int
	Data      []any

	// Attachments is the number of binary frames announced by a binary packet,
	// Buffers the frames received so far.
	Attachments int
	Buffers     [][]byte
}

type PacketType int

const (
	PacketConnect PacketType = iota
	PacketDisconnect
	PacketEvent
	PacketAck
	PacketConnectError
	PacketBinaryEvent
	PacketBinaryAck
)

func (pt PacketType) Byte() byte {
	return byte(pt) + '0'
}

func (pt PacketType) IsBinary() bool {
	return pt == PacketBinaryEvent || pt == PacketBinaryAck
}

func (pt PacketType) String() string {
	switch pt {
	case PacketConnect:
		return "connect"
	case PacketDisconnect:
		return "disconnect"
	case PacketEvent:
		return "event"
	case PacketAck:
		return "ack"
	case PacketConnectError:
		return "error"
	case PacketBinaryEvent:
		return "binaryEvent"
	case PacketBinaryAck:
		return "binaryAck"
	default:
		return fmt.Sprintf("PacketType(%d)", int(pt))
	}
}

func ParsePacketType(b byte) (PacketType, error) {
	pt := PacketType(b - '0')
	if b < '0' || pt > PacketBinaryAck {
		return 0, fmt.Errorf("socket packet type invalid: %c", b)
	}
	return pt, nil
}

// complete reports whether every announced attachment has arrived.
func (p *Packet) complete() bool {
	return len(p.Buffers) >= p.Attachments
}

func (p *Packet) String() string {
	id := "-"
	if p.ID != nil {
		id = fmt.Sprint(*p.ID)
	}
	return fmt.Sprintf("Packet{type=%s,nsp=%s,id=%s,attachments=%d/%d}",
		p.Type, p.Namespace, id, len(p.Buffers), p.Attachments)
}

type DisconnectReason string

const (
	DRNamespaceLeave            DisconnectReason = "Namespace leave"
	DRReconnectFailed           DisconnectReason = "Reconnect Failed"
	DRManualDisconnect          DisconnectReason = "Disconnect"
	DRServerNamespaceDisconnect DisconnectReason = "Got Disconnect"
	DRManagerClosed             DisconnectReason = "Manager closed"
	DRManualReconnect           DisconnectReason = "manual reconnect"

	DRTransportClose DisconnectReason = "transport close"
	DRTransportError DisconnectReason = "transport error"
	DRPingTimeout    DisconnectReason = "ping timeout"
)
