package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"survivor/internal/game"
)

// ErrLoopClosed is returned when work is submitted after the loop stopped.
var ErrLoopClosed = errors.New("event loop closed")

// Loop serializes every game-state mutation onto one goroutine. Chat
// commands, RPCs and timer callbacks all enter through Post or Do.
type Loop struct {
	events chan func()
	done   chan struct{}
	once   sync.Once
}

// NewLoop creates a loop with the given queue depth.
func NewLoop(buffer int) *Loop {
	if buffer <= 0 {
		buffer = 256
	}
	return &Loop{
		events: make(chan func(), buffer),
		done:   make(chan struct{}),
	}
}

// Run processes events until ctx is cancelled or Close is called.
func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			l.Close()
			return
		case <-l.done:
			return
		case fn := <-l.events:
			fn()
		}
	}
}

// Close stops the loop. Pending events are dropped.
func (l *Loop) Close() {
	l.once.Do(func() { close(l.done) })
}

// Post queues fn without waiting for it to run.
func (l *Loop) Post(fn func()) error {
	select {
	case <-l.done:
		return ErrLoopClosed
	default:
	}
	select {
	case <-l.done:
		return ErrLoopClosed
	case l.events <- fn:
		return nil
	}
}

// Do queues fn and waits until it has run.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := l.Post(func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

type loopTimer struct {
	t       *time.Timer
	stopped atomic.Bool
}

func (lt *loopTimer) Stop() bool {
	lt.stopped.Store(true)
	return lt.t.Stop()
}

// AfterFunc schedules f on the loop after d. A timer stopped after it fired
// but before f ran still suppresses f.
func (l *Loop) AfterFunc(d time.Duration, f func()) game.Timer {
	lt := &loopTimer{}
	lt.t = time.AfterFunc(d, func() {
		_ = l.Post(func() {
			if lt.stopped.Load() {
				return
			}
			f()
		})
	})
	return lt
}
