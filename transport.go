package sioclient

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Transport is the engine connection the manager drives. All methods must
// return without waiting for the network.
type Transport interface {
	Connect()
	Disconnect(reason string)
	Send(msg string, attachments [][]byte)
}

// TransportClient receives the transport's lifecycle and message signals.
// Implementations may be called from any goroutine.
type TransportClient interface {
	OnOpen(reason string)
	OnClose(reason string)
	OnError(reason string)
	OnPingSent()
	OnPongReceived()
	OnTextMessage(raw string)
	OnBinaryMessage(raw []byte)
}

type TransportFactory func(cfg Config, client TransportClient, logger *zap.SugaredLogger) Transport

type transportEventKind int

const (
	transportOpen transportEventKind = iota
	transportClose
	transportError
	transportPingSent
	transportPongReceived
	transportText
	transportBinary
)

func (k transportEventKind) String() string {
	switch k {
	case transportOpen:
		return "open"
	case transportClose:
		return "close"
	case transportError:
		return "error"
	case transportPingSent:
		return "pingSent"
	case transportPongReceived:
		return "pongReceived"
	case transportText:
		return "text"
	case transportBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// transportEvent is one transport signal, queued for the handle context.
type transportEvent struct {
	kind   transportEventKind
	reason string
	text   string
	data   []byte
}

// transportClient forwards the signals of one transport instance to the
// manager. Once detached, everything it receives is dropped.
type transportClient struct {
	manager  *Manager
	detached atomic.Bool
}

func (c *transportClient) detach() {
	c.detached.Store(true)
}

func (c *transportClient) forward(ev transportEvent) {
	if c.detached.Load() {
		c.manager.logger.Debugf("dropping %s from detached transport", ev.kind)
		return
	}
	c.manager.handle.do(func() {
		// The transport may have been replaced while this was queued.
		if c.detached.Load() {
			return
		}
		c.manager.dispatch(ev)
	})
}

func (c *transportClient) OnOpen(reason string) {
	c.forward(transportEvent{kind: transportOpen, reason: reason})
}

func (c *transportClient) OnClose(reason string) {
	c.forward(transportEvent{kind: transportClose, reason: reason})
}

func (c *transportClient) OnError(reason string) {
	c.forward(transportEvent{kind: transportError, reason: reason})
}

func (c *transportClient) OnPingSent() {
	c.forward(transportEvent{kind: transportPingSent})
}

func (c *transportClient) OnPongReceived() {
	c.forward(transportEvent{kind: transportPongReceived})
}

func (c *transportClient) OnTextMessage(raw string) {
	c.forward(transportEvent{kind: transportText, text: raw})
}

func (c *transportClient) OnBinaryMessage(raw []byte) {
	c.forward(transportEvent{kind: transportBinary, data: raw})
}
