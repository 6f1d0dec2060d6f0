// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package artdisplay provides the album art display widget and the plugin
// glue connecting it to a music player host.
package artdisplay

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bbrks/wrap/v2"

	"github.com/kortschak/artdisplay/internal/fade"
	"github.com/kortschak/artdisplay/internal/raster"
	"github.com/kortschak/artdisplay/internal/slogext"
)

// Entry identifies a playable item. The empty Entry is no item.
type Entry string

// Tooltip texts.
const (
	TipWorking = "Searching... drop artwork here"
	TipDrop    = "Drop artwork here"
)

// Drops holds the handlers called when art is dropped on a Widget. The
// handlers are called with the entry current at the time of the drop.
type Drops struct {
	OnPixbufDropped func(Entry, *raster.Raster)
	OnURIDropped    func(Entry, string)
}

// DropData is the data carried by a drag and drop operation.
type DropData struct {
	Image *raster.Raster
	URIs  []string
	Text  string
}

// Widget is an album art display widget. It holds the entry whose art is
// being shown and renders the art through a fade.Animator.
type Widget struct {
	anim    *fade.Animator
	drops   Drops
	maxSize func() int
	log     *slog.Logger

	entry Entry
	art   *raster.Raster
	uri   string

	tipImage *raster.Raster
	tipText  string
}

// NewWidget returns a new Widget rendering through anim. The maxSize
// function is consulted on each allocation for the largest size the art may
// be rendered at. If maxSize is nil the art is limited only by the
// allocated width.
func NewWidget(anim *fade.Animator, drops Drops, maxSize func() int, log *slog.Logger) *Widget {
	return &Widget{
		anim:    anim,
		drops:   drops,
		maxSize: maxSize,
		log:     log.With(slog.String("component", "widget")),
	}
}

// Set sets the entry and its art. If working is true, the art is being
// searched for and the activity indicator is shown. tipImage and tipText
// are shown as the tooltip when the art is not being searched for.
func (w *Widget) Set(entry Entry, art *raster.Raster, uri string, tipImage *raster.Raster, tipText string, working bool) {
	w.log.LogAttrs(context.Background(), slog.LevelDebug, "set art",
		slog.String("entry", string(entry)),
		slog.Any("art", slogext.Raster{Raster: art}),
		slog.String("uri", uri),
		slog.Bool("working", working),
	)
	w.entry = entry
	w.art = art
	w.uri = uri
	w.anim.SetCurrentArt(art, working)

	w.tipImage = nil
	switch {
	case entry == "":
		w.tipText = ""
	case working:
		w.tipText = TipWorking
	case tipImage != nil || tipText != "":
		w.tipImage = tipImage
		w.tipText = tipText
	default:
		w.tipText = TipDrop
	}
}

// Entry returns the current entry.
func (w *Widget) Entry() Entry { return w.entry }

// Art returns the current art. It is nil when no art is available.
func (w *Widget) Art() *raster.Raster { return w.art }

// URI returns the URI of the current art.
func (w *Widget) URI() string { return w.uri }

// Tooltip returns the current tooltip image and text, and whether there is
// a tooltip to show. If cols is positive the text is wrapped at word
// boundaries to lines of at most cols characters.
func (w *Widget) Tooltip(cols int) (img *raster.Raster, text string, ok bool) {
	if w.tipImage == nil && w.tipText == "" {
		return nil, "", false
	}
	text = w.tipText
	if cols > 0 {
		wrapper := wrap.NewWrapper()
		wrapper.StripTrailingNewline = true
		wrapper.CutLongWords = true
		lines := strings.Split(wrapper.Wrap(text, cols), "\n")
		for i, l := range lines {
			lines[i] = strings.TrimSpace(l)
		}
		text = strings.Join(lines, "\n")
	}
	return w.tipImage, text, true
}

// Drop handles data dropped on the widget. An image is preferred over URIs,
// and URIs are preferred over text. Drop reports whether the data was
// accepted. Drops are not accepted when there is no current entry.
func (w *Widget) Drop(d DropData) bool {
	if w.entry == "" {
		return false
	}
	switch {
	case d.Image != nil:
		if w.drops.OnPixbufDropped == nil {
			return false
		}
		w.drops.OnPixbufDropped(w.entry, d.Image)
	case len(d.URIs) != 0:
		if w.drops.OnURIDropped == nil {
			return false
		}
		w.drops.OnURIDropped(w.entry, d.URIs[0])
	case d.Text != "":
		if w.drops.OnURIDropped == nil {
			return false
		}
		w.drops.OnURIDropped(w.entry, d.Text)
	default:
		return false
	}
	return true
}

// DragData returns the data offered when the art is dragged from the
// widget.
func (w *Widget) DragData() DropData {
	d := DropData{Image: w.art}
	if w.uri != "" {
		d.URIs = []string{w.uri}
	}
	return d
}

// Allocate notes the width allocated to the widget.
func (w *Widget) Allocate(width int) {
	maxSize := width
	if w.maxSize != nil {
		maxSize = w.maxSize()
	}
	w.anim.SizeChanged(width, maxSize)
}

// Composite returns the art composite at the widget's render size.
func (w *Widget) Composite() *raster.Raster {
	return w.anim.Composite(w.anim.RenderSize())
}

// Animator returns the widget's animator.
func (w *Widget) Animator() *fade.Animator { return w.anim }

// Close releases the widget's animation resources.
func (w *Widget) Close() {
	w.anim.Close()
}
