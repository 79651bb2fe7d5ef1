package sioclient

import (
	"sync"

	"github.com/eapache/queue"
	"go.uber.org/zap"
)

// handleQueue runs submitted functions one at a time, in submission order,
// on a single goroutine. Submitting never blocks.
type handleQueue struct {
	mu     sync.Mutex
	tasks  *queue.Queue
	closed bool

	notify chan struct{}
	done   chan struct{}

	logger *zap.SugaredLogger
}

func newHandleQueue(logger *zap.SugaredLogger) *handleQueue {
	h := &handleQueue{
		tasks:  queue.New(),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: logger,
	}
	go h.run()
	return h
}

// do schedules f. It returns false once the queue is closed.
func (h *handleQueue) do(f func()) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.tasks.Add(f)
	h.mu.Unlock()

	select {
	case h.notify <- struct{}{}:
	default:
	}
	return true
}

// close stops the queue after the tasks already submitted have run.
func (h *handleQueue) close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.mu.Unlock()

	select {
	case h.notify <- struct{}{}:
	default:
	}
}

// wait blocks until the run loop has exited.
func (h *handleQueue) wait() {
	<-h.done
}

func (h *handleQueue) next() (func(), bool, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.tasks.Length() == 0 {
		return nil, false, h.closed
	}
	return h.tasks.Remove().(func()), true, false
}

func (h *handleQueue) run() {
	defer close(h.done)

	for range h.notify {
		for {
			f, ok, closed := h.next()
			if closed {
				return
			}
			if !ok {
				break
			}
			h.exec(f)
		}
	}
}

func (h *handleQueue) exec(f func()) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Errorf("handle task panicked: %v", r)
		}
	}()
	f()
}
