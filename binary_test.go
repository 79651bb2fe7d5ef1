package sioclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingBinaryQueue_AttachInOrder(t *testing.T) {
	q := newPendingBinaryQueue()

	first := &Packet{Type: PacketBinaryEvent, Attachments: 2}
	second := &Packet{Type: PacketBinaryAck, Attachments: 1}
	q.push(first)
	q.push(second)

	p, err := q.attach([]byte{1})
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = q.attach([]byte{2})
	require.NoError(t, err)
	assert.Same(t, first, p)
	assert.Equal(t, [][]byte{{1}, {2}}, p.Buffers)

	p, err = q.attach([]byte{3})
	require.NoError(t, err)
	assert.Same(t, second, p)
	assert.Equal(t, 0, q.len())
}

func TestPendingBinaryQueue_UnexpectedAttachment(t *testing.T) {
	q := newPendingBinaryQueue()

	_, err := q.attach([]byte{1})
	assert.ErrorIs(t, err, ErrUnexpectedAttachment)

	q.push(&Packet{Type: PacketBinaryEvent, Attachments: 1})
	_, err = q.attach([]byte{1})
	require.NoError(t, err)
	_, err = q.attach([]byte{2})
	assert.ErrorIs(t, err, ErrUnexpectedAttachment)
	assert.Equal(t, 0, q.len())
}

func TestPendingBinaryQueue_DropsOldestWhenFull(t *testing.T) {
	q := newPendingBinaryQueue()

	packets := make([]*Packet, maxPendingBinary+1)
	for i := range packets {
		packets[i] = &Packet{Type: PacketBinaryEvent, Attachments: 1}
		dropped := q.push(packets[i])
		if i < maxPendingBinary {
			assert.Nil(t, dropped)
		} else {
			assert.Same(t, packets[0], dropped)
		}
	}
	assert.Equal(t, maxPendingBinary, q.len())

	p, err := q.attach([]byte{1})
	require.NoError(t, err)
	assert.Same(t, packets[1], p)
}

func TestPendingBinaryQueue_Reset(t *testing.T) {
	q := newPendingBinaryQueue()
	q.push(&Packet{Type: PacketBinaryEvent, Attachments: 1})
	q.push(&Packet{Type: PacketBinaryEvent, Attachments: 1})

	assert.Equal(t, 2, q.reset())
	assert.Equal(t, 0, q.len())
	assert.Equal(t, 0, q.reset())
}
