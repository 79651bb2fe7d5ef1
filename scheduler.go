package sioclient

import "time"

// scheduler registers one-shot timers. The returned function cancels the
// timer and reports whether it was still pending.
type scheduler interface {
	AfterFunc(d time.Duration, f func()) (cancel func() bool)
}

type timerScheduler struct{}

func (timerScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	t := time.AfterFunc(d, f)
	return t.Stop
}
