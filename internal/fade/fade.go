// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fade implements the album art cross-fade and activity indicator
// state machine.
//
// An Animator holds the art currently being displayed, the art being faded
// out, a placeholder for missing art and an optional looping activity
// indicator. It drives itself with timers from a [loop.Timers] and asks its
// [View] to repaint as the composite changes. All methods must be called from
// the goroutine that runs the timer callbacks.
package fade

import (
	"context"
	"image"
	"image/color"
	"log/slog"

	"github.com/kortschak/artdisplay/internal/loop"
	"github.com/kortschak/artdisplay/internal/raster"
	"github.com/kortschak/artdisplay/internal/slogext"
)

// View is the display surface an Animator renders for.
type View interface {
	// Visible returns whether the view is currently shown.
	Visible() bool
	// Width returns the allocated width of the view.
	Width() int
	// RequestRepaint requests that the region r of the view be
	// redrawn. An empty rectangle requests a full repaint.
	RequestRepaint(r image.Rectangle)
	// RequestRelayout requests that the view's size be
	// renegotiated and the view redrawn.
	RequestRelayout()
}

// Background provides the current theme background colour.
type Background interface {
	Color() color.Color
}

// Resolver provides theme-dependent rasters.
type Resolver interface {
	// Placeholder returns the missing art raster at the given
	// size rendered against bg.
	Placeholder(size int, bg color.Color) (*raster.Raster, error)
	// Activity returns the ordered frames of the activity
	// indicator.
	Activity() ([]*raster.Raster, error)
}

// State is the animation state of an Animator.
type State int

const (
	Idle State = iota
	Fading
	FadingWithActivity
	ActivityOnly
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fading:
		return "fading"
	case FadingWithActivity:
		return "fading_with_activity"
	case ActivityOnly:
		return "activity_only"
	default:
		return "unknown"
	}
}

// DefaultSize is the render size of an Animator before its first
// allocation.
const DefaultSize = 100

// Animator is the art compositing and animation state machine.
type Animator struct {
	cfg    Config
	timers loop.Timers
	view   View
	bg     Background
	res    Resolver
	log    *slog.Logger

	prev        *raster.Raster // art being faded out
	next        *raster.Raster // padded incoming art, nil when pending
	placeholder *raster.Raster // missing art against the background
	step        float64        // fade progress in [0, 1]
	pending     bool

	frames     []*raster.Raster
	frame      *raster.Raster // current activity frame
	frameIndex int            // index of the next frame

	cache     *raster.Raster
	cacheSize int
	size      int

	fade, anim, resize loop.Handle

	// fadeEpoch and animEpoch are advanced whenever the
	// corresponding sequence is superseded so that callbacks
	// from earlier sequences can be dropped.
	fadeEpoch uint64
	animEpoch uint64

	closed bool
}

// New returns a new Animator. The theme-dependent rasters are resolved
// before New returns.
func New(cfg Config, timers loop.Timers, view View, bg Background, res Resolver, log *slog.Logger) *Animator {
	a := &Animator{
		cfg:    cfg,
		timers: timers,
		view:   view,
		bg:     bg,
		res:    res,
		log:    log.With(slog.String("component", "fade")),
		size:   DefaultSize,
	}
	a.ThemeChanged()
	return a
}

// SetCurrentArt sets the art to display. If pending is true, art is
// expected to be nil and the activity indicator is shown until a subsequent
// call with pending false. Any fade already in progress is superseded.
//
// If the view is visible, the currently rendered composite is faded out to
// the new art, otherwise the new art is shown immediately.
func (a *Animator) SetCurrentArt(art *raster.Raster, pending bool) {
	if a.closed {
		return
	}
	ctx := context.Background()
	a.log.LogAttrs(ctx, slog.LevelDebug, "set current art", slog.Any("art", slogext.Raster{Raster: art}), slog.Bool("pending", pending), slog.Any("state", slogext.Stringer{Stringer: a.State()}))

	if a.view.Visible() && a.view.Width() > 1 {
		a.prev = a.Composite(a.size)
	} else {
		a.prev = nil
	}
	a.next = raster.Pad(art, a.bg.Color(), true, a.cfg.Aspect)
	a.step = 0
	a.frame = nil

	a.timers.Cancel(a.fade)
	a.fade = loop.Handle{}
	a.fadeEpoch++
	if a.prev != nil {
		epoch := a.fadeEpoch
		if pending {
			a.fade = a.timers.AfterFunc(a.cfg.WorkingDelay, func() { a.fadeStep(epoch, true) })
		} else {
			a.fade = a.timers.Every(a.cfg.stepPeriod(), func() { a.fadeStep(epoch, false) })
		}
	}

	switch {
	case pending && a.anim.IsZero() && len(a.frames) != 0:
		a.startActivity()
	case !pending && !a.anim.IsZero():
		a.stopActivity()
	}
	a.pending = pending

	a.invalidate()
	a.view.RequestRelayout()
}

// fadeStep advances the fade sequence identified by epoch by one step. If
// first is true, the step was the delayed first step of a fade and the
// remaining steps are scheduled at the normal period.
func (a *Animator) fadeStep(epoch uint64, first bool) {
	if a.closed || epoch != a.fadeEpoch {
		a.log.LogAttrs(context.Background(), slog.LevelDebug, "drop stale fade step", slog.Uint64("epoch", epoch), slog.Uint64("current", a.fadeEpoch))
		return
	}
	a.step += 1 / float64(a.cfg.FadeSteps)
	a.invalidate()
	if a.step > a.cfg.Threshold {
		a.prev = nil
		a.step = 0
		a.timers.Cancel(a.fade)
		a.fade = loop.Handle{}
		a.fadeEpoch++
		a.view.RequestRepaint(image.Rectangle{})
		return
	}
	if first {
		a.fade = a.timers.Every(a.cfg.stepPeriod(), func() { a.fadeStep(epoch, false) })
	}
	a.view.RequestRepaint(image.Rectangle{})
}

// startActivity starts the activity indicator animation.
func (a *Animator) startActivity() {
	a.animEpoch++
	epoch := a.animEpoch
	a.frameIndex = 0
	period := a.cfg.framePeriod()
	if a.cfg.ThrobberDelay <= 0 {
		a.anim = a.timers.Every(period, func() { a.activityStep(epoch) })
		return
	}
	a.anim = a.timers.AfterFunc(a.cfg.ThrobberDelay, func() {
		if a.activityStep(epoch) {
			a.anim = a.timers.Every(period, func() { a.activityStep(epoch) })
		}
	})
}

// activityStep shows the next activity frame of the sequence identified by
// epoch and reports whether the sequence is still current.
func (a *Animator) activityStep(epoch uint64) bool {
	if a.closed || epoch != a.animEpoch {
		a.log.LogAttrs(context.Background(), slog.LevelDebug, "drop stale activity step", slog.Uint64("epoch", epoch), slog.Uint64("current", a.animEpoch))
		return false
	}
	if len(a.frames) == 0 {
		a.stopActivity()
		return false
	}
	a.frameIndex %= len(a.frames)
	a.frame = a.frames[a.frameIndex]
	a.frameIndex = (a.frameIndex + 1) % len(a.frames)
	a.invalidate()
	a.view.RequestRepaint(raster.OverlayRect(a.size, a.size, a.frame.Width(), a.frame.Height()))
	return true
}

// stopActivity stops the activity indicator and clears the overlay.
func (a *Animator) stopActivity() {
	a.timers.Cancel(a.anim)
	a.anim = loop.Handle{}
	a.animEpoch++
	if a.frame != nil {
		a.frame = nil
		a.invalidate()
	}
	a.frameIndex = 0
}

// Composite returns the current composite rendered at size×size, including
// any activity indicator overlay. It returns nil if there is nothing to
// render. The returned raster must not be altered.
func (a *Animator) Composite(size int) *raster.Raster {
	if a.cache != nil && a.cacheSize == size {
		return a.cache
	}
	m := raster.Merge(a.prev, a.next, a.placeholder, a.step, size, size, a.cfg.Filter)
	if a.frame != nil {
		m = raster.Overlay(m, a.frame)
	}
	a.cache, a.cacheSize = m, size
	return m
}

// SizeChanged notes a new allocated width and maximum art size. The render
// size becomes the smaller of the two. Placeholder resolution at the new
// size is deferred so that a burst of changes results in a single
// recomputation.
func (a *Animator) SizeChanged(width, maxSize int) {
	if a.closed {
		return
	}
	a.size = min(width, maxSize)
	if a.resize.IsZero() {
		a.resize = a.timers.AfterFunc(0, a.afterResize)
	}
}

func (a *Animator) afterResize() {
	a.resize = loop.Handle{}
	if a.closed {
		return
	}
	a.reloadPlaceholder()
	a.invalidate()
	a.view.RequestRepaint(image.Rectangle{})
}

// ThemeChanged re-resolves the placeholder and activity indicator frames.
// The art being displayed and any fade in progress are not affected.
func (a *Animator) ThemeChanged() {
	if a.closed {
		return
	}
	a.reloadActivity()
	a.reloadPlaceholder()
	a.invalidate()
	a.view.RequestRepaint(image.Rectangle{})
}

func (a *Animator) reloadActivity() {
	frames, err := a.res.Activity()
	if err != nil {
		a.log.LogAttrs(context.Background(), slog.LevelWarn, "activity indicator not loaded", slog.Any("error", err))
		a.frames = nil
		if !a.anim.IsZero() {
			a.stopActivity()
		}
		return
	}
	a.frames = frames
	if len(frames) == 0 && !a.anim.IsZero() {
		a.stopActivity()
	}
	if a.pending && a.anim.IsZero() && len(frames) != 0 {
		a.startActivity()
	}
}

func (a *Animator) reloadPlaceholder() {
	if a.size <= 1 {
		return
	}
	ph, err := a.res.Placeholder(a.size, a.bg.Color())
	if err != nil {
		a.log.LogAttrs(context.Background(), slog.LevelWarn, "missing art placeholder not loaded", slog.Any("error", err))
		a.placeholder = nil
		return
	}
	a.placeholder = ph
}

func (a *Animator) invalidate() {
	a.cache = nil
}

// Close cancels all outstanding timers. After Close, the Animator ignores
// all state changes. Close is idempotent.
func (a *Animator) Close() {
	if a.closed {
		return
	}
	a.closed = true
	for _, h := range []loop.Handle{a.fade, a.anim, a.resize} {
		a.timers.Cancel(h)
	}
	a.fade, a.anim, a.resize = loop.Handle{}, loop.Handle{}, loop.Handle{}
	a.fadeEpoch++
	a.animEpoch++
}

// State returns the current animation state.
func (a *Animator) State() State {
	fading, active := a.Fading(), a.Animating()
	switch {
	case fading && active:
		return FadingWithActivity
	case fading:
		return Fading
	case active:
		return ActivityOnly
	default:
		return Idle
	}
}

// Fading returns whether a cross-fade is in progress.
func (a *Animator) Fading() bool { return a.prev != nil }

// Animating returns whether the activity indicator is running.
func (a *Animator) Animating() bool { return !a.anim.IsZero() }

// Pending returns whether the current art is pending.
func (a *Animator) Pending() bool { return a.pending }

// Progress returns the fade progress. It is zero when no fade is in
// progress.
func (a *Animator) Progress() float64 { return a.step }

// ActivityFrameIndex returns the index of the next activity indicator frame
// to be shown.
func (a *Animator) ActivityFrameIndex() int { return a.frameIndex }

// RenderSize returns the current render size.
func (a *Animator) RenderSize() int { return a.size }
