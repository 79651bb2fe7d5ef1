package sioclient

import (
	"go.uber.org/zap"
)

type ManagerOption func(m *Manager)

func WithLogger(logger *zap.SugaredLogger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithReconnects(reconnects bool) ManagerOption {
	return func(m *Manager) {
		m.cfg.Reconnects = reconnects
	}
}

// WithReconnectWait sets the seconds between reconnect attempts.
func WithReconnectWait(seconds int) ManagerOption {
	return func(m *Manager) {
		m.cfg.ReconnectWait = seconds
	}
}

// WithReconnectAttempts limits reconnect attempts; -1 means unlimited.
func WithReconnectAttempts(attempts int) ManagerOption {
	return func(m *Manager) {
		m.cfg.ReconnectAttempts = attempts
	}
}

func WithForceNew(forceNew bool) ManagerOption {
	return func(m *Manager) {
		m.cfg.ForceNew = forceNew
	}
}

func WithPath(path string) ManagerOption {
	return func(m *Manager) {
		m.cfg.Path = path
	}
}

func WithSecure(secure bool) ManagerOption {
	return func(m *Manager) {
		m.cfg.Secure = secure
	}
}

func WithVersion(v Version) ManagerOption {
	return func(m *Manager) {
		m.cfg.Version = v
	}
}

func WithConnectParams(params map[string]string) ManagerOption {
	return func(m *Manager) {
		m.cfg.ConnectParams = params
	}
}

func WithExtraHeaders(headers map[string]string) ManagerOption {
	return func(m *Manager) {
		m.cfg.ExtraHeaders = headers
	}
}

func WithTransportFactory(factory TransportFactory) ManagerOption {
	return func(m *Manager) {
		m.newTransport = factory
	}
}

func WithParser(parser Parser) ManagerOption {
	return func(m *Manager) {
		m.parser = parser
	}
}

func withScheduler(sched scheduler) ManagerOption {
	return func(m *Manager) {
		m.sched = sched
	}
}
