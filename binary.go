package sioclient

import (
	"github.com/eapache/queue"
)

// pendingBinaryQueue holds binary packets whose attachments are still on
// the wire. Attachments always belong to the oldest packet.
type pendingBinaryQueue struct {
	packets *queue.Queue
}

func newPendingBinaryQueue() *pendingBinaryQueue {
	return &pendingBinaryQueue{packets: queue.New()}
}

// maxPendingBinary caps the packets waiting for attachments.
const maxPendingBinary = 32

// push queues packet. When the queue is full the oldest packet is dropped
// and returned.
func (q *pendingBinaryQueue) push(packet *Packet) *Packet {
	var dropped *Packet
	if q.packets.Length() >= maxPendingBinary {
		dropped = q.packets.Remove().(*Packet)
	}
	q.packets.Add(packet)
	return dropped
}

// attach appends data to the head packet. It returns the packet once its
// last attachment arrived.
func (q *pendingBinaryQueue) attach(data []byte) (*Packet, error) {
	if q.packets.Length() == 0 {
		return nil, ErrUnexpectedAttachment
	}

	head := q.packets.Peek().(*Packet)
	head.Buffers = append(head.Buffers, data)
	if !head.complete() {
		return nil, nil
	}

	q.packets.Remove()
	return head, nil
}

func (q *pendingBinaryQueue) len() int {
	return q.packets.Length()
}

func (q *pendingBinaryQueue) reset() int {
	n := q.packets.Length()
	for q.packets.Length() > 0 {
		q.packets.Remove()
	}
	return n
}
