// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package raster

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// Scale returns r resampled to w×h using the provided filter. Scale returns
// nil if r is nil or either dimension is not positive.
func Scale(r *Raster, w, h int, f Filter) *Raster {
	if r == nil || w <= 0 || h <= 0 {
		return nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if r.pix.Rect.Size() == dst.Rect.Size() {
		copy(dst.Pix, r.pix.Pix)
		return wrap(dst, r.alpha)
	}
	f.scaler().Scale(dst, dst.Bounds(), r.pix, r.pix.Bounds(), draw.Src, nil)
	return wrap(dst, r.alpha)
}

// Aspect is the range of height to width ratios considered near-square.
type Aspect struct {
	Min, Max float64
}

// DefaultAspect is the default near-square aspect ratio range.
var DefaultAspect = Aspect{Min: 0.9, Max: 1.1}

// nearSquare returns whether a w×h raster is within the aspect range.
func (a Aspect) nearSquare(w, h int) bool {
	return float64(h) >= float64(w)*a.Min && float64(h) <= float64(w)*a.Max
}

// Pad renders r against an opaque background colour.
//
// If force is false and r has no alpha channel, r is returned unaltered. If
// force is true and r is not near-square according to aspect, the result is
// a square canvas with side max(width, height) filled with bg and with r
// centred on it. Otherwise, when r has an alpha channel, it is flattened
// onto a same-sized canvas filled with bg. The returned raster never has an
// alpha channel.
func Pad(r *Raster, bg color.Color, force bool, aspect Aspect) *Raster {
	if r == nil {
		return nil
	}
	w, h := r.Width(), r.Height()
	var canvas, at image.Rectangle
	if force && !aspect.nearSquare(w, h) {
		side := max(w, h)
		left, top := (side-w)/2, (side-h)/2
		canvas = image.Rect(0, 0, side, side)
		at = image.Rect(left, top, left+w, top+h)
	} else {
		if !r.alpha {
			return r
		}
		canvas = image.Rect(0, 0, w, h)
		at = canvas
	}
	dst := image.NewRGBA(canvas)
	draw.Draw(dst, canvas, image.NewUniform(opaque(bg)), image.Point{}, draw.Src)
	op := draw.Src
	if r.alpha {
		op = draw.Over
	}
	draw.Draw(dst, at, r.pix, image.Point{}, op)
	return wrap(dst, false)
}

// opaque returns c with its alpha channel removed.
func opaque(c color.Color) color.Color {
	if c == nil {
		return color.Black
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = 0xff
	return n
}

// Merge returns the cross-fade composite of prev and incoming at step, in
// the range [0, 1], rendered at w×h.
//
// If either dimension is not greater than one, nothing is rendered and Merge
// returns nil. Without a previous raster there is no fade start frame, so the
// scaled incoming raster is returned, or placeholder itself if incoming is
// nil. At step zero the scaled previous raster is returned. If incoming is
// nil, placeholder is faded in instead, and if that is also nil Merge
// returns nil.
func Merge(prev, incoming, placeholder *Raster, step float64, w, h int, f Filter) *Raster {
	if w <= 1 || h <= 1 {
		return nil
	}
	if prev == nil {
		if incoming == nil {
			return placeholder
		}
		return Scale(incoming, w, h, f)
	}
	if step == 0 {
		return Scale(prev, w, h, f)
	}
	if incoming == nil {
		if placeholder == nil {
			return nil
		}
		incoming = placeholder
	}

	ret := Scale(prev, w, h, f)
	over := image.NewRGBA(ret.pix.Rect)
	f.scaler().Scale(over, over.Bounds(), incoming.pix, incoming.pix.Bounds(), draw.Src, nil)
	a := uint8(math.Round(clamp(step, 0, 1) * 0xff))
	draw.DrawMask(ret.pix, ret.pix.Rect, over, image.Point{}, image.NewUniform(color.Alpha{A: a}), image.Point{}, draw.Over)
	return ret
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// OverlayRect returns the rectangle within a w×h base that an ow×oh
// overlay centred on the base would be drawn to, with the origin clamped
// to be non-negative and the extent clipped to the base dimensions.
func OverlayRect(w, h, ow, oh int) image.Rectangle {
	x, y := max((w-ow)/2, 0), max((h-oh)/2, 0)
	return image.Rect(x, y, x+min(ow, w), y+min(oh, h))
}

// Overlay returns a copy of base with over drawn centred on it. Overlay
// returns base if over is nil, and nil if base is nil.
func Overlay(base, over *Raster) *Raster {
	if base == nil {
		return nil
	}
	if over == nil {
		return base
	}
	w, h := base.Width(), base.Height()
	ow, oh := over.Width(), over.Height()
	dst := image.NewRGBA(base.pix.Rect)
	copy(dst.Pix, base.pix.Pix)
	r := OverlayRect(w, h, ow, oh).Intersect(dst.Rect)
	if !r.Empty() {
		sp := r.Min.Sub(image.Pt((w-ow)/2, (h-oh)/2))
		draw.Draw(dst, r, over.pix, sp, draw.Over)
	}
	return wrap(dst, base.alpha)
}
