// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package animation

import (
	"errors"
	"fmt"
	"image"

	"github.com/kortschak/artdisplay/internal/raster"
)

// Strip slices a sprite sheet into square frames of the given size, reading
// along each row and then down. Partial cells at the right and bottom edges
// of the sheet are ignored.
func Strip(sheet image.Image, size int) ([]*raster.Raster, error) {
	if sheet == nil {
		return nil, errors.New("no sprite sheet")
	}
	if size <= 0 {
		return nil, fmt.Errorf("invalid frame size: %d", size)
	}
	src := raster.New(sheet)
	cols, rows := src.Width()/size, src.Height()/size
	if cols == 0 || rows == 0 {
		return nil, fmt.Errorf("sprite sheet smaller than frame: %v < %d", src.Bounds().Size(), size)
	}
	frames := make([]*raster.Raster, 0, rows*cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			r := image.Rect(x*size, y*size, (x+1)*size, (y+1)*size)
			frames = append(frames, src.Sub(r))
		}
	}
	return frames, nil
}
