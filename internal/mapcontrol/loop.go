package mapcontrol

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrLoopStopped is returned when work is submitted to a stopped loop.
var ErrLoopStopped = errors.New("mapcontrol: loop stopped")

// Loop runs submitted functions one at a time on a single goroutine. It is
// the UI thread of a control hosted behind concurrent callers.
//
// Thread safety: Post, Do and AfterFunc are safe for concurrent use.
type Loop struct {
	tasks   chan func()
	done    chan struct{}
	stopped chan struct{}
	running atomic.Bool
	once    sync.Once
}

// NewLoop creates a loop with a task buffer of the given size and starts
// its goroutine.
func NewLoop(buffer int) *Loop {
	if buffer < 1 {
		buffer = 64
	}
	l := &Loop{
		tasks:   make(chan func(), buffer),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	l.running.Store(true)
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.stopped)
	for {
		select {
		case <-l.done:
			l.drain()
			return
		case fn := <-l.tasks:
			if fn != nil {
				fn()
			}
		}
	}
}

func (l *Loop) drain() {
	for {
		select {
		case fn := <-l.tasks:
			if fn != nil {
				fn()
			}
		default:
			return
		}
	}
}

// Post queues fn without waiting. It reports false when the loop is
// stopped.
func (l *Loop) Post(fn func()) bool {
	if !l.running.Load() {
		return false
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.running.Load() {
		return ErrLoopStopped
	}
	select {
	case l.tasks <- func() { defer close(finished); fn() }:
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-l.stopped:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AfterFunc runs f on the loop after d. Cancelling after the timer fired
// but before f ran still prevents f from running.
func (l *Loop) AfterFunc(d time.Duration, f func()) func() {
	var cancelled atomic.Bool
	t := time.AfterFunc(d, func() {
		l.Post(func() {
			if !cancelled.Load() {
				f()
			}
		})
	})
	return func() {
		cancelled.Store(true)
		t.Stop()
	}
}

// Stop runs the queued work and stops the loop. It is idempotent.
func (l *Loop) Stop() {
	l.once.Do(func() {
		l.running.Store(false)
		close(l.done)
	})
	<-l.stopped
}
