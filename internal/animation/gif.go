// Copyright ©2023 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package animation

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"io"

	"golang.org/x/image/draw"

	"github.com/kortschak/artdisplay/internal/raster"
)

// IsGIF returns whether the data held by r is a GIF image.
func IsGIF(r ReadPeeker) bool {
	return hasMagic("GIF8?a", r)
}

// ReadPeeker is an io.Reader that can also peek n bytes ahead.
type ReadPeeker interface {
	io.Reader
	Peek(n int) ([]byte, error)
}

// AsReadPeeker converts an io.Reader to a ReadPeeker.
func AsReadPeeker(r io.Reader) ReadPeeker {
	if r, ok := r.(ReadPeeker); ok {
		return r
	}
	return bufio.NewReader(r)
}

// hasMagic returns whether r starts with the provided magic bytes.
func hasMagic(magic string, r ReadPeeker) bool {
	b, err := r.Peek(len(magic))
	if err != nil || len(b) != len(magic) {
		return false
	}
	for i, c := range b {
		if magic[i] != c && magic[i] != '?' {
			return false
		}
	}
	return true
}

// DecodeGIF returns the complete rendered frames of the GIF animation read
// from r. Each frame is composed over the previous rendering and GIF
// disposal methods are applied between frames, so every returned raster is
// a full canvas-sized image. GIF disposal and global background index values
// are checked for validity.
func DecodeGIF(r io.Reader) ([]*raster.Raster, error) {
	g, err := gif.DecodeAll(r)
	if err != nil {
		return nil, err
	}
	if len(g.Image) == 0 {
		return nil, errors.New("no frames")
	}
	if len(g.Image) != len(g.Disposal) && g.Disposal != nil {
		return nil, fmt.Errorf("mismatched image count and disposal count: %d != %d", len(g.Image), len(g.Disposal))
	}
	pal, ok := g.Config.ColorModel.(color.Palette)
	if idx := int(g.BackgroundIndex); ok && idx >= len(pal) {
		return nil, fmt.Errorf("global background colour index not in palette: %d", idx)
	}
	return flatten(g), nil
}

// flatten renders each frame of g onto a canvas, returning a copy of the
// canvas after each frame has been drawn.
func flatten(g *gif.GIF) []*raster.Raster {
	const (
		restoreBackground = 2
		restorePrevious   = 3
	)
	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		bounds = g.Image[0].Bounds()
		for _, frame := range g.Image[1:] {
			bounds = bounds.Union(frame.Bounds())
		}
	}
	dst := image.NewRGBA(bounds)

	// Restoring to background clears to transparent rather than
	// to the palette background so frames can be drawn over art.
	background := image.Transparent

	frames := make([]*raster.Raster, 0, len(g.Image))
	for f, frame := range g.Image {
		var restore *image.RGBA
		if g.Disposal != nil && g.Disposal[f] == restorePrevious {
			restore = image.NewRGBA(frame.Bounds())
			draw.Copy(restore, restore.Bounds().Min, dst, frame.Bounds(), draw.Src, nil)
		}
		draw.Copy(dst, frame.Bounds().Min, frame, frame.Bounds(), draw.Over, nil)
		frames = append(frames, raster.New(dst))
		if g.Disposal != nil {
			switch g.Disposal[f] {
			case restoreBackground:
				draw.Copy(dst, frame.Bounds().Min, background, frame.Bounds(), draw.Src, nil)
			case restorePrevious:
				draw.Copy(dst, frame.Bounds().Min, restore, restore.Bounds(), draw.Src, nil)
			}
		}
	}
	return frames
}
