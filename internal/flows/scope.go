package flows

import (
	"context"
	"sync"
	"time"
)

// scope is the lifetime of a flow. Requests started through bind are
// cancelled on close, and timers started through after never fire after it.
type scope struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	timers []*time.Timer
}

func newScope() *scope {
	ctx, cancel := context.WithCancel(context.Background())
	return &scope{ctx: ctx, cancel: cancel}
}

// bind derives a context that ends with either the caller's ctx or the scope
func (s *scope) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (s *scope) closed() bool {
	return s.ctx.Err() != nil
}

// after runs fn once d has elapsed unless the scope closes first.
// A non-positive d runs fn immediately.
func (s *scope) after(d time.Duration, fn func()) {
	if s.closed() {
		return
	}
	if d <= 0 {
		fn()
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers = append(s.timers, time.AfterFunc(d, func() {
		if !s.closed() {
			fn()
		}
	}))
}

// stopTimers cancels scheduled callbacks without closing the scope
func (s *scope) stopTimers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
}

func (s *scope) close() {
	s.cancel()
	s.stopTimers()
}
