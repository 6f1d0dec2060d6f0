// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"image"
	"image/color/palette"
	"image/gif"
	"io"
	"time"

	"golang.org/x/image/draw"

	"github.com/kortschak/artdisplay/internal/raster"
)

// recorder records timestamped art composites.
type recorder struct {
	frames []*raster.Raster
	times  []time.Duration
}

// capture records img at time t. A capture at the same time as the
// previous capture replaces it.
func (r *recorder) capture(t time.Duration, img *raster.Raster) {
	if img == nil {
		return
	}
	if n := len(r.times); n != 0 && r.times[n-1] == t {
		r.frames[n-1] = img
		return
	}
	if n := len(r.frames); n != 0 && r.frames[n-1] == img {
		return
	}
	r.frames = append(r.frames, img)
	r.times = append(r.times, t)
}

// encode writes the recorded frames to w as an animated GIF that ends at
// time end.
func (r *recorder) encode(w io.Writer, end time.Duration) error {
	if len(r.frames) == 0 {
		return errors.New("no frames rendered")
	}
	g := &gif.GIF{}
	for i, f := range r.frames {
		next := end
		if i+1 < len(r.times) {
			next = r.times[i+1]
		}
		b := f.Bounds()
		p := image.NewPaletted(b, palette.Plan9)
		draw.FloydSteinberg.Draw(p, b, f, b.Min)
		g.Image = append(g.Image, p)
		g.Delay = append(g.Delay, max(1, int((next-r.times[i])/(10*time.Millisecond))))
		g.Config.Width = max(g.Config.Width, b.Dx())
		g.Config.Height = max(g.Config.Height, b.Dy())
	}
	return gif.EncodeAll(w, g)
}
