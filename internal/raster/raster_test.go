// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package raster

import (
	"image"
	"image/color"
	"testing"

	"golang.org/x/image/draw"
)

var (
	red   = color.RGBA{R: 0xff, A: 0xff}
	green = color.RGBA{G: 0xff, A: 0xff}
	blue  = color.RGBA{B: 0xff, A: 0xff}
	white = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// solid returns an opaque w×h raster filled with c.
func solid(w, h int, c color.Color) *Raster {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return New(img)
}

func TestNew(t *testing.T) {
	opaque := solid(4, 2, red)
	if opaque.HasAlpha() {
		t.Error("unexpected alpha for opaque image")
	}
	if opaque.Width() != 4 || opaque.Height() != 2 {
		t.Errorf("unexpected size: got:%v want:4x2", opaque.Bounds().Size())
	}

	img := image.NewNRGBA(image.Rect(10, 10, 14, 12))
	img.Set(10, 10, color.NRGBA{R: 0xff, A: 0x80})
	r := New(img)
	if !r.HasAlpha() {
		t.Error("expected alpha for translucent image")
	}
	if r.Bounds().Min != (image.Point{}) {
		t.Errorf("unexpected origin: got:%v want:%v", r.Bounds().Min, image.Point{})
	}

	var absent *Raster
	if New(absent) != nil {
		t.Error("expected nil raster from nil raster")
	}
	if New(nil) != nil {
		t.Error("expected nil raster from nil image")
	}
}

func TestEqual(t *testing.T) {
	a := solid(3, 3, red)
	b := solid(3, 3, red)
	c := solid(3, 3, blue)
	var absent *Raster
	if !a.Equal(b) {
		t.Error("expected equal rasters to be equal")
	}
	if a.Equal(c) {
		t.Error("expected different rasters to be unequal")
	}
	if a.Equal(absent) || absent.Equal(a) {
		t.Error("expected nil and non-nil rasters to be unequal")
	}
	if !absent.Equal(nil) {
		t.Error("expected nil rasters to be equal")
	}
}

func TestSub(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 1))
	for x := 0; x < 4; x++ {
		img.Set(x, 0, color.RGBA{R: uint8(x), A: 0xff})
	}
	r := New(img)
	s := r.Sub(image.Rect(2, 0, 4, 1))
	if s.Width() != 2 || s.Height() != 1 {
		t.Fatalf("unexpected sub size: got:%v", s.Bounds().Size())
	}
	if got := s.RGBAAt(0, 0).R; got != 2 {
		t.Errorf("unexpected sub pixel: got:%d want:2", got)
	}
	if r.Sub(image.Rect(10, 10, 12, 12)) != nil {
		t.Error("expected nil for disjoint sub rectangle")
	}
}

func TestParseFilter(t *testing.T) {
	for _, f := range []Filter{Nearest, ApproxBiLinear, BiLinear, CatmullRom} {
		got, err := ParseFilter(f.String())
		if err != nil {
			t.Errorf("unexpected error parsing %s: %v", f, err)
		}
		if got != f {
			t.Errorf("unexpected filter: got:%s want:%s", got, f)
		}
	}
	_, err := ParseFilter("lanczos")
	if err == nil {
		t.Error("expected error for unknown filter")
	}
}
