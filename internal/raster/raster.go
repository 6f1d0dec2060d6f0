// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package raster provides immutable bitmaps and the pixel operations used to
// composite album art: scaling, background padding, cross-fade merging and
// overlay placement.
//
// A nil *Raster is an absent raster. All operations accept nil inputs and
// return new rasters rather than altering their arguments.
package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/draw"
)

// Raster is an immutable bitmap with explicit alpha channel presence. The
// bounds of a Raster always have their origin at (0, 0).
type Raster struct {
	pix   *image.RGBA
	alpha bool
}

// New returns a Raster holding a copy of img. The alpha channel is considered
// present unless img reports itself as opaque.
func New(img image.Image) *Raster {
	if img == nil {
		return nil
	}
	alpha := true
	if o, ok := img.(interface{ Opaque() bool }); ok {
		alpha = !o.Opaque()
	}
	return NewAlpha(img, alpha)
}

// NewAlpha returns a Raster holding a copy of img with alpha channel presence
// set explicitly. If alpha is false, the copy is made over opaque black.
func NewAlpha(img image.Image, alpha bool) *Raster {
	if img == nil {
		return nil
	}
	if r, ok := img.(*Raster); ok {
		if r == nil {
			return nil
		}
		if r.alpha == alpha {
			return r
		}
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rectangle{Max: b.Size()})
	op := draw.Src
	if !alpha {
		draw.Draw(dst, dst.Bounds(), image.Black, image.Point{}, draw.Src)
		op = draw.Over
	}
	draw.Draw(dst, dst.Bounds(), img, b.Min, op)
	return &Raster{pix: dst, alpha: alpha}
}

// wrap returns a Raster using dst directly. dst must not be retained by
// the caller.
func wrap(dst *image.RGBA, alpha bool) *Raster {
	return &Raster{pix: dst, alpha: alpha}
}

// Width returns the width of the raster. A nil Raster has zero width.
func (r *Raster) Width() int {
	if r == nil {
		return 0
	}
	return r.pix.Rect.Dx()
}

// Height returns the height of the raster. A nil Raster has zero height.
func (r *Raster) Height() int {
	if r == nil {
		return 0
	}
	return r.pix.Rect.Dy()
}

// HasAlpha returns whether the raster has an alpha channel.
func (r *Raster) HasAlpha() bool {
	return r != nil && r.alpha
}

// ColorModel implements the image.Image interface.
func (r *Raster) ColorModel() color.Model { return color.RGBAModel }

// Bounds implements the image.Image interface.
func (r *Raster) Bounds() image.Rectangle {
	if r == nil {
		return image.Rectangle{}
	}
	return r.pix.Rect
}

// At implements the image.Image interface.
func (r *Raster) At(x, y int) color.Color {
	if r == nil {
		return color.RGBA{}
	}
	return r.pix.RGBAAt(x, y)
}

// RGBAAt returns the colour of the pixel at (x, y).
func (r *Raster) RGBAAt(x, y int) color.RGBA {
	if r == nil {
		return color.RGBA{}
	}
	return r.pix.RGBAAt(x, y)
}

// Opaque returns whether the raster has no alpha channel.
func (r *Raster) Opaque() bool {
	return r == nil || !r.alpha
}

// Sub returns a copy of the portion of r within rect. The returned raster
// has its origin at (0, 0). Sub returns nil if the intersection of rect with
// the bounds of r is empty.
func (r *Raster) Sub(rect image.Rectangle) *Raster {
	if r == nil {
		return nil
	}
	rect = rect.Intersect(r.pix.Rect)
	if rect.Empty() {
		return nil
	}
	dst := image.NewRGBA(image.Rectangle{Max: rect.Size()})
	draw.Draw(dst, dst.Bounds(), r.pix, rect.Min, draw.Src)
	return wrap(dst, r.alpha)
}

// Equal returns whether r and o have the same size, alpha channel presence
// and pixel values. Two nil rasters are equal.
func (r *Raster) Equal(o *Raster) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.alpha == o.alpha &&
		r.pix.Rect == o.pix.Rect &&
		bytes.Equal(r.pix.Pix, o.pix.Pix)
}

// String returns a short description of the raster.
func (r *Raster) String() string {
	if r == nil {
		return "<nil>"
	}
	if r.alpha {
		return fmt.Sprintf("%dx%d+alpha", r.Width(), r.Height())
	}
	return fmt.Sprintf("%dx%d", r.Width(), r.Height())
}

// Filter is a resampling filter.
type Filter int

const (
	BiLinear Filter = iota
	Nearest
	ApproxBiLinear
	CatmullRom
)

// ParseFilter returns the Filter corresponding to name. Valid names are
// "nearest", "approx-bilinear", "bilinear" and "catmull-rom".
func ParseFilter(name string) (Filter, error) {
	switch strings.ToLower(name) {
	case "nearest":
		return Nearest, nil
	case "approx-bilinear":
		return ApproxBiLinear, nil
	case "bilinear", "":
		return BiLinear, nil
	case "catmull-rom":
		return CatmullRom, nil
	default:
		return BiLinear, fmt.Errorf("unknown filter: %s", name)
	}
}

func (f Filter) String() string {
	switch f {
	case Nearest:
		return "nearest"
	case ApproxBiLinear:
		return "approx-bilinear"
	case BiLinear:
		return "bilinear"
	case CatmullRom:
		return "catmull-rom"
	default:
		return fmt.Sprintf("Filter(%d)", int(f))
	}
}

func (f Filter) scaler() draw.Scaler {
	switch f {
	case Nearest:
		return draw.NearestNeighbor
	case ApproxBiLinear:
		return draw.ApproxBiLinear
	case CatmullRom:
		return draw.CatmullRom
	default:
		return draw.BiLinear
	}
}
