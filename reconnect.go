package sioclient

import (
	"time"

	"go.uber.org/zap"
)

// reconnector polls Manager.connect on a fixed interval after the transport
// closed, until the transport opens again, attempts run out, or the
// manager is disconnected. It runs on the handle context only.
type reconnector struct {
	m *Manager

	reconnecting bool
	attempt      int

	// episode invalidates timers that fire after the cycle they belong to.
	episode uint64
	cancel  func() bool

	logger *zap.SugaredLogger
}

func newReconnector(m *Manager) *reconnector {
	return &reconnector{
		m:      m,
		logger: m.logger.With("component", "reconnect"),
	}
}

func (r *reconnector) start(reason string) {
	if r.reconnecting {
		return
	}
	r.reconnecting = true
	r.episode++

	r.logger.Infof("starting reconnect cycle: %s", reason)
	// The server dropped every namespace with the transport; onOpen rejoins
	// the ones awaiting connect.
	for _, socket := range r.m.registry.snapshot() {
		if socket.Status() == SocketConnected {
			socket.setStatus(SocketConnecting)
		}
	}
	r.m.emitAll(EventReconnect, reason)
	r.step(r.episode)
}

func (r *reconnector) step(episode uint64) {
	if episode != r.episode {
		return
	}
	r.cancel = nil

	cfg := r.m.cfg
	if !cfg.Reconnects || !r.reconnecting || r.m.Status() == StatusDisconnected {
		return
	}

	if cfg.ReconnectAttempts != -1 && r.attempt+1 > cfg.ReconnectAttempts {
		r.logger.Warnf("giving up after %d attempts", r.attempt)
		r.m.didDisconnect(string(DRReconnectFailed))
		return
	}

	remaining := -1
	if cfg.ReconnectAttempts != -1 {
		remaining = cfg.ReconnectAttempts - r.attempt
	}
	r.m.emitAll(EventReconnectAttempt, remaining)
	r.attempt++
	r.logger.Debugf("reconnect attempt %d", r.attempt)
	r.m.connect()

	wait := time.Duration(cfg.ReconnectWait) * time.Second
	r.cancel = r.m.sched.AfterFunc(wait, func() {
		r.m.handle.do(func() { r.step(episode) })
	})
}

// end stops the cycle and cancels a scheduled attempt.
func (r *reconnector) end() {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.episode++
	r.reconnecting = false
	r.attempt = 0
}

func (r *reconnector) pending() bool {
	return r.cancel != nil
}
