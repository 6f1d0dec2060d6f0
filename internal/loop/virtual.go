// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package loop

import "time"

// Virtual is a Timers implementation driven by a virtual clock. Timers fire
// only during calls to Advance, in order of their due time and then of
// scheduling. Virtual must only be used from a single goroutine.
type Virtual struct {
	now    time.Duration
	next   uint64
	seq    uint64
	timers map[uint64]*vtimer
}

type vtimer struct {
	when   time.Duration
	period time.Duration
	seq    uint64
	fn     func()
}

// NewVirtual returns a new Virtual clock at time zero.
func NewVirtual() *Virtual {
	return &Virtual{timers: make(map[uint64]*vtimer)}
}

// Now returns the current virtual time.
func (v *Virtual) Now() time.Duration { return v.now }

// AfterFunc implements the Timers interface.
func (v *Virtual) AfterFunc(d time.Duration, fn func()) Handle {
	return v.schedule(d, 0, fn)
}

// Every implements the Timers interface. Periods less than one nanosecond
// are treated as one nanosecond.
func (v *Virtual) Every(d time.Duration, fn func()) Handle {
	if d < 1 {
		d = 1
	}
	return v.schedule(d, d, fn)
}

func (v *Virtual) schedule(d, period time.Duration, fn func()) Handle {
	if d < 0 {
		d = 0
	}
	v.next++
	v.seq++
	v.timers[v.next] = &vtimer{when: v.now + d, period: period, seq: v.seq, fn: fn}
	return Handle{id: v.next}
}

// Post implements the Poster interface. Posted functions are run by the
// next call to Advance, after any timers already due at the current time.
func (v *Virtual) Post(fn func()) bool {
	v.schedule(0, 0, fn)
	return true
}

// Cancel implements the Timers interface.
func (v *Virtual) Cancel(h Handle) {
	delete(v.timers, h.id)
}

// Pending returns the number of live timers.
func (v *Virtual) Pending() int { return len(v.timers) }

// Active returns whether h refers to a live timer.
func (v *Virtual) Active(h Handle) bool {
	_, ok := v.timers[h.id]
	return ok
}

// NextDue returns the due time of the earliest live timer.
func (v *Virtual) NextDue() (time.Duration, bool) {
	id, ok := v.earliest(-1)
	if !ok {
		return 0, false
	}
	return v.timers[id].when, true
}

// Advance moves the virtual clock forward by d, firing every timer that
// becomes due, and returns the number of callbacks made. Callbacks may
// schedule and cancel timers; timers scheduled to fall due within the
// advanced interval are also fired.
func (v *Virtual) Advance(d time.Duration) int {
	target := v.now + d
	var n int
	for {
		id, ok := v.earliest(target)
		if !ok {
			break
		}
		t := v.timers[id]
		v.now = t.when
		if t.period > 0 {
			v.seq++
			t.when += t.period
			t.seq = v.seq
		} else {
			delete(v.timers, id)
		}
		t.fn()
		n++
	}
	v.now = target
	return n
}

// earliest returns the id of the earliest timer due at or before limit.
// A negative limit is unbounded.
func (v *Virtual) earliest(limit time.Duration) (uint64, bool) {
	var (
		best  uint64
		found bool
	)
	for id, t := range v.timers {
		if limit >= 0 && t.when > limit {
			continue
		}
		if !found || t.when < v.timers[best].when || (t.when == v.timers[best].when && t.seq < v.timers[best].seq) {
			best, found = id, true
		}
	}
	return best, found
}
