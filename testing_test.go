package sioclient

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type mockTransport struct {
	mock.Mock
}

func newMockTransport() *mockTransport {
	m := &mockTransport{}
	m.On("Connect").Maybe()
	m.On("Disconnect", mock.Anything).Maybe()
	m.On("Send", mock.Anything, mock.Anything).Maybe()
	return m
}

func (m *mockTransport) Connect() {
	m.Called()
}

func (m *mockTransport) Disconnect(reason string) {
	m.Called(reason)
}

func (m *mockTransport) Send(msg string, attachments [][]byte) {
	m.Called(msg, attachments)
}

func (m *mockTransport) sent() []string {
	var out []string
	for _, call := range m.Calls {
		if call.Method == "Send" {
			out = append(out, call.Arguments.String(0))
		}
	}
	return out
}

func (m *mockTransport) attachments() [][][]byte {
	var out [][][]byte
	for _, call := range m.Calls {
		if call.Method == "Send" {
			out = append(out, call.Arguments.Get(1).([][]byte))
		}
	}
	return out
}

func (m *mockTransport) disconnects() []string {
	var out []string
	for _, call := range m.Calls {
		if call.Method == "Disconnect" {
			out = append(out, call.Arguments.String(0))
		}
	}
	return out
}

type fakeTimer struct {
	d         time.Duration
	f         func()
	fired     bool
	cancelled bool
}

// fakeScheduler keeps timers until the test fires them.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	s.timers = append(s.timers, t)
	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		if t.fired || t.cancelled {
			return false
		}
		t.cancelled = true
		return true
	}
}

func (s *fakeScheduler) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.fired && !t.cancelled {
			n++
		}
	}
	return n
}

// fire runs the oldest pending timer.
func (s *fakeScheduler) fire() bool {
	s.mu.Lock()
	var next *fakeTimer
	for _, t := range s.timers {
		if !t.fired && !t.cancelled {
			next = t
			break
		}
	}
	if next != nil {
		next.fired = true
	}
	s.mu.Unlock()

	if next == nil {
		return false
	}
	next.f()
	return true
}

// last returns the most recently registered timer, fired or not.
func (s *fakeScheduler) last() *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.timers) == 0 {
		return nil
	}
	return s.timers[len(s.timers)-1]
}

type harness struct {
	t     *testing.T
	m     *Manager
	sched *fakeScheduler

	mu         sync.Mutex
	transports []*mockTransport
	clients    []TransportClient
}

func newHarness(t *testing.T, opts ...ManagerOption) *harness {
	h := &harness{t: t, sched: &fakeScheduler{}}

	factory := func(cfg Config, client TransportClient, logger *zap.SugaredLogger) Transport {
		tr := newMockTransport()
		h.mu.Lock()
		h.transports = append(h.transports, tr)
		h.clients = append(h.clients, client)
		h.mu.Unlock()
		return tr
	}

	all := []ManagerOption{
		WithLogger(zaptest.NewLogger(t).Sugar()),
		WithTransportFactory(factory),
		withScheduler(h.sched),
		WithReconnectWait(1),
	}
	all = append(all, opts...)

	m, err := NewManager("http://localhost:3000", all...)
	require.NoError(t, err)
	h.m = m
	t.Cleanup(m.Close)
	return h
}

// sync waits until everything queued on the handle context so far has run.
func (h *harness) sync() {
	h.t.Helper()
	done := make(chan struct{})
	require.True(h.t, h.m.handle.do(func() { close(done) }))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		h.t.Fatal("handle context did not drain")
	}
}

func (h *harness) transport() *mockTransport {
	h.mu.Lock()
	defer h.mu.Unlock()
	require.NotEmpty(h.t, h.transports, "no transport created")
	return h.transports[len(h.transports)-1]
}

func (h *harness) client() TransportClient {
	h.mu.Lock()
	defer h.mu.Unlock()
	require.NotEmpty(h.t, h.clients, "no transport created")
	return h.clients[len(h.clients)-1]
}

func (h *harness) transportCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.transports)
}

// open connects the manager and reports the transport open.
func (h *harness) open() {
	h.m.Connect()
	h.sync()
	h.client().OnOpen("test")
	h.sync()
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
	r.mu.Unlock()
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// watch records the lifecycle events of s.
func (r *recorder) watch(s *Socket) {
	nsp := s.Namespace()
	s.OnClient(EventConnect, func() { r.add("%s connect", nsp) })
	s.OnClient(EventDisconnect, func(reason string) { r.add("%s disconnect:%s", nsp, reason) })
	s.OnClient(EventError, func(reason any) { r.add("%s error:%v", nsp, reason) })
	s.OnClient(EventPing, func() { r.add("%s ping", nsp) })
	s.OnClient(EventPong, func() { r.add("%s pong", nsp) })
	s.OnClient(EventReconnect, func(reason string) { r.add("%s reconnect:%s", nsp, reason) })
	s.OnClient(EventReconnectAttempt, func(remaining int) { r.add("%s attempt:%d", nsp, remaining) })
}
