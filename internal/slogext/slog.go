// Copyright ©2023 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package slogext provides slog helpers.
package slogext

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/kortschak/goroutine"

	"github.com/kortschak/artdisplay/internal/raster"
)

// GoID is a slog.Handler that adds the calling goroutine's goid.
type GoID struct {
	slog.Handler
}

func (h GoID) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(slog.Int64("goid", goroutine.ID()))
	return h.Handler.Handle(ctx, r)
}

func (h GoID) WithAttrs(attrs []slog.Attr) slog.Handler {
	return GoID{h.Handler.WithAttrs(attrs)}
}

func (h GoID) WithGroup(name string) slog.Handler {
	return GoID{h.Handler.WithGroup(name)}
}

// Stringer implements slog.LogValuer for [fmt.Stringer].
type Stringer struct {
	fmt.Stringer
}

func (v Stringer) LogValue() slog.Value {
	if v.Stringer == nil {
		return slog.StringValue("<nil>")
	}
	return slog.StringValue(v.String())
}

// Raster implements slog.LogValuer for [raster.Raster].
type Raster struct {
	*raster.Raster
}

func (v Raster) LogValue() slog.Value {
	if v.Raster == nil {
		return slog.StringValue("<nil>")
	}
	return slog.GroupValue(
		slog.Int("width", v.Width()),
		slog.Int("height", v.Height()),
		slog.Bool("alpha", v.HasAlpha()),
	)
}

// Color implements slog.LogValuer for [color.Color], rendering the colour
// as a #rrggbbaa string.
type Color struct {
	color.Color
}

func (v Color) LogValue() slog.Value {
	if v.Color == nil {
		return slog.StringValue("<nil>")
	}
	c := color.NRGBAModel.Convert(v.Color).(color.NRGBA)
	return slog.StringValue(fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A))
}

// JSONHandler is a line-delimited JSON slog.Handler whose source position
// reporting can be switched on and off while it is in use.
type JSONHandler struct {
	addSource     *atomic.Bool
	withSource    *slog.JSONHandler
	withoutSource *slog.JSONHandler
}

// NewJSONHandler returns a JSONHandler writing to w. A nil opts is the zero
// HandlerOptions.
func NewJSONHandler(w io.Writer, opts *HandlerOptions) *JSONHandler {
	if opts == nil {
		opts = &HandlerOptions{}
	}
	if opts.AddSource == nil {
		opts.AddSource = &atomic.Bool{}
	}
	handler := func(source bool) *slog.JSONHandler {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			AddSource:   source,
			Level:       opts.Level,
			ReplaceAttr: opts.ReplaceAttr,
		})
	}
	return &JSONHandler{
		addSource:     opts.AddSource,
		withSource:    handler(true),
		withoutSource: handler(false),
	}
}

// Enabled reports whether the handler handles records at the given level.
// The handler ignores records whose level is lower.
func (h *JSONHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.withSource.Enabled(ctx, level)
}

// WithAttrs returns a new JSONHandler whose attributes consist of h's
// attributes followed by attrs. The new handler shares h's AddSource state.
func (h *JSONHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &JSONHandler{
		addSource:     h.addSource,
		withSource:    h.withSource.WithAttrs(attrs).(*slog.JSONHandler),
		withoutSource: h.withoutSource.WithAttrs(attrs).(*slog.JSONHandler),
	}
}

// WithGroup returns a new JSONHandler with the given group appended to
// h's existing groups. The new handler shares h's AddSource state.
func (h *JSONHandler) WithGroup(name string) slog.Handler {
	return &JSONHandler{
		addSource:     h.addSource,
		withSource:    h.withSource.WithGroup(name).(*slog.JSONHandler),
		withoutSource: h.withoutSource.WithGroup(name).(*slog.JSONHandler),
	}
}

// Handle formats its argument Record as a JSON object on a single line,
// including the source position if AddSource is currently true.
//
// See [slog.JSONHandler.Handle] for details.
func (h *JSONHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.addSource.Load() {
		return h.withSource.Handle(ctx, r)
	}
	return h.withoutSource.Handle(ctx, r)
}

// HandlerOptions are the options for a JSONHandler. They mirror
// [slog.HandlerOptions] except that AddSource is shared with the caller.
type HandlerOptions struct {
	// AddSource is read for each record to decide whether the
	// source position is logged. A nil AddSource is false.
	AddSource *atomic.Bool

	Level       slog.Leveler
	ReplaceAttr func(groups []string, a slog.Attr) slog.Attr
}

// NewAtomicBool returns an atomic.Bool holding t.
func NewAtomicBool(t bool) *atomic.Bool {
	var x atomic.Bool
	x.Store(t)
	return &x
}
