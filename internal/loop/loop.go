// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package loop provides a single-goroutine cooperative event loop and timer
// services for driving UI state machines.
//
// All callbacks scheduled through a Loop run on the goroutine that called
// Run, so state touched only from callbacks needs no locking.
package loop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/kortschak/goroutine"
)

// Handle is an opaque timer handle. The zero Handle refers to no timer.
type Handle struct {
	id uint64
}

// IsZero returns whether h refers to no timer.
func (h Handle) IsZero() bool { return h.id == 0 }

// Timers is a timer scheduling service.
type Timers interface {
	// AfterFunc schedules fn to be called once after d.
	AfterFunc(d time.Duration, fn func()) Handle
	// Every schedules fn to be called every d until cancelled.
	// The first call is made after d.
	Every(d time.Duration, fn func()) Handle
	// Cancel cancels the timer referred to by h. Cancelling a
	// zero, fired or already cancelled Handle is a no-op.
	Cancel(h Handle)
}

// Poster queues functions for deferred execution.
type Poster interface {
	// Post queues fn and reports whether it was queued.
	Post(fn func()) bool
}

// Scheduler is a timer service that can also queue deferred work.
type Scheduler interface {
	Timers
	Poster
}

// ErrClosed is returned by Run when the loop has been closed.
var ErrClosed = errors.New("loop closed")

// Loop is a cooperative event loop. Functions posted to the loop and timer
// callbacks are executed sequentially on the goroutine running Run.
type Loop struct {
	queue chan func()
	done  chan struct{}
	log   *slog.Logger

	mu     sync.Mutex
	next   uint64
	timers map[uint64]*time.Timer
	closed bool

	// goid is the goroutine id of the Run caller,
	// or zero if the loop is not running.
	goid int64

	// deferred holds functions posted from the loop
	// goroutine. It is only accessed on the loop.
	deferred []func()
}

// New returns a new Loop with a queue of the given depth.
func New(depth int, log *slog.Logger) *Loop {
	if depth < 1 {
		depth = 1
	}
	return &Loop{
		queue:  make(chan func(), depth),
		done:   make(chan struct{}),
		log:    log.With(slog.String("component", "loop")),
		timers: make(map[uint64]*time.Timer),
	}
}

// Run executes posted functions until ctx is cancelled or the loop is
// closed.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.goid = goroutine.ID()
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.goid = 0
		l.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return ErrClosed
		case fn := <-l.queue:
			fn()
		}
		for len(l.deferred) != 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-l.done:
				return ErrClosed
			default:
			}
			fn := l.deferred[0]
			l.deferred[0] = nil
			l.deferred = l.deferred[1:]
			fn()
		}
	}
}

// OnLoop returns whether the caller is running on the loop goroutine.
func (l *Loop) OnLoop() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.goid != 0 && l.goid == goroutine.ID()
}

// Post queues fn for execution on the loop. It is safe to call Post from
// any goroutine. Post reports whether fn was queued; functions posted after
// the loop is closed are discarded. When called from the loop goroutine,
// Post does not block and fn runs after the current callback returns.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	if l.OnLoop() {
		l.deferred = append(l.deferred, fn)
		return true
	}
	select {
	case <-l.done:
		return false
	case l.queue <- fn:
		return true
	}
}

// AfterFunc implements the Timers interface.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Handle {
	return l.schedule(d, fn, false)
}

// Every implements the Timers interface.
func (l *Loop) Every(d time.Duration, fn func()) Handle {
	return l.schedule(d, fn, true)
}

func (l *Loop) schedule(d time.Duration, fn func(), repeat bool) Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return Handle{}
	}
	if l.goid != 0 && l.goid != goroutine.ID() {
		l.log.LogAttrs(context.Background(), slog.LevelWarn, "timer scheduled off loop", slog.Int64("loop_goid", l.goid))
	}
	l.next++
	id := l.next
	fire := func() {
		l.Post(func() {
			if !l.live(id) {
				// Cancelled after the timer fired but
				// before the callback was run.
				return
			}
			if !repeat {
				l.forget(id)
			}
			fn()
			if repeat && l.live(id) {
				l.mu.Lock()
				if t, ok := l.timers[id]; ok {
					t.Reset(d)
				}
				l.mu.Unlock()
			}
		})
	}
	l.timers[id] = time.AfterFunc(d, fire)
	return Handle{id: id}
}

func (l *Loop) live(id uint64) bool {
	l.mu.Lock()
	_, ok := l.timers[id]
	l.mu.Unlock()
	return ok
}

func (l *Loop) forget(id uint64) {
	l.mu.Lock()
	delete(l.timers, id)
	l.mu.Unlock()
}

// Cancel implements the Timers interface.
func (l *Loop) Cancel(h Handle) {
	if h.IsZero() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.timers[h.id]; ok {
		t.Stop()
		delete(l.timers, h.id)
	}
}

// Pending returns the number of live timers.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.timers)
}

// Close stops all timers and terminates Run. Close is idempotent.
func (l *Loop) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	for id, t := range l.timers {
		t.Stop()
		delete(l.timers, id)
	}
	close(l.done)
	return nil
}
