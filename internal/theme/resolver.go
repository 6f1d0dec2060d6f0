// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package theme

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"

	"github.com/kortschak/artdisplay/internal/raster"
	"github.com/kortschak/artdisplay/internal/slogext"
)

// Resolver resolves the missing art placeholder and activity indicator
// frames from an icon theme.
type Resolver struct {
	// Icons is the icon theme used for lookups.
	Icons *Theme

	// MissingIcon is the name of the themed missing art icon.
	MissingIcon string
	// MissingFile is the path or data URI of an image used
	// when MissingIcon cannot be loaded.
	MissingFile string
	// Throbber is the name of the themed activity indicator
	// sprite sheet or animation.
	Throbber string

	// Aspect is the near-square range used when rendering the
	// placeholder against the background.
	Aspect raster.Aspect

	Log *slog.Logger
}

// Placeholder returns the missing art icon at size rendered against bg. The
// themed icon is preferred over the fallback file. If neither can be loaded,
// the returned error wraps ErrUnavailable.
func (r *Resolver) Placeholder(size int, bg color.Color) (*raster.Raster, error) {
	var errs []error
	if r.MissingIcon != "" && r.Icons != nil {
		icon, err := r.Icons.LoadIcon(r.MissingIcon, size)
		if err == nil {
			return raster.Pad(icon, bg, false, r.Aspect), nil
		}
		r.log().LogAttrs(context.Background(), slog.LevelDebug, "missing art icon not found", slog.String("name", r.MissingIcon), slog.Any("background", slogext.Color{Color: bg}), slog.Any("error", err))
		errs = append(errs, err)
	}
	if r.MissingFile != "" {
		icon, err := LoadURI(r.MissingFile, size)
		if err == nil {
			return raster.Pad(icon, bg, false, r.Aspect), nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: no missing art source", ErrUnavailable)
	}
	return nil, fmt.Errorf("%w: missing art placeholder: %w", ErrUnavailable, errors.Join(errs...))
}

// Activity returns the activity indicator frames. If the frames cannot be
// loaded, the returned error wraps ErrUnavailable.
func (r *Resolver) Activity() ([]*raster.Raster, error) {
	if r.Throbber == "" || r.Icons == nil {
		return nil, fmt.Errorf("%w: no activity indicator", ErrUnavailable)
	}
	frames, err := r.Icons.LoadFrames(r.Throbber)
	if err != nil {
		return nil, err
	}
	r.log().LogAttrs(context.Background(), slog.LevelDebug, "loaded activity indicator", slog.String("name", r.Throbber), slog.Int("frames", len(frames)))
	return frames, nil
}

// SetTheme sets the name of the icon theme used for lookups.
func (r *Resolver) SetTheme(name string) {
	if r.Icons == nil {
		r.Icons = &Theme{}
	}
	r.Icons.Name = name
}

func (r *Resolver) log() *slog.Logger {
	if r.Log == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Log
}
