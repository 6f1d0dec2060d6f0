// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package theme resolves theme-dependent art display resources: the missing
// art placeholder, the activity indicator frames and the background colour.
package theme

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"gopkg.in/ini.v1"

	"github.com/kortschak/artdisplay/internal/animation"
	"github.com/kortschak/artdisplay/internal/datauri"
	"github.com/kortschak/artdisplay/internal/raster"
)

// ErrUnavailable is returned when a theme resource cannot be found or
// decoded.
var ErrUnavailable = errors.New("resource unavailable")

// DefaultFallback is the theme searched after a theme and its parents.
const DefaultFallback = "hicolor"

// extensions are the icon file extensions searched, in order of preference.
var extensions = []string{".png", ".webp", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff"}

// Theme is a freedesktop icon theme.
type Theme struct {
	// Name is the name of the theme.
	Name string
	// Dirs are the base directories searched for themes and
	// unthemed icons, in order.
	Dirs []string
	// Fallback is the theme searched after Name and the themes
	// it inherits from. If empty, DefaultFallback is used.
	Fallback string
}

// Icon is a themed icon file.
type Icon struct {
	// Path is the path to the icon's image file.
	Path string
	// BaseSize is the nominal size of the icon in pixels, or
	// zero if the icon is not in a sized theme directory.
	BaseSize int
}

// Lookup returns the icon with the given name closest to size. An icon of
// exactly the requested size is preferred, then the smallest larger icon,
// then the largest. A non-positive size selects the largest icon. Themes
// are searched in inheritance order before unthemed icons.
func (t *Theme) Lookup(name string, size int) (Icon, error) {
	for _, th := range t.themes() {
		var found []Icon
		for _, dir := range t.Dirs {
			found = append(found, icons(filepath.Join(dir, th), name)...)
		}
		if len(found) != 0 {
			return closest(found, size), nil
		}
	}
	for _, dir := range t.Dirs {
		for _, ext := range extensions {
			path := filepath.Join(dir, name+ext)
			if isFile(path) {
				return Icon{Path: path}, nil
			}
		}
	}
	return Icon{}, fmt.Errorf("%w: icon %q not found in theme %q", ErrUnavailable, name, t.Name)
}

// themes returns the themes to search in order.
func (t *Theme) themes() []string {
	var order []string
	seen := make(map[string]bool)
	var walk func(name string)
	walk = func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		order = append(order, name)
		for _, parent := range t.inherits(name) {
			walk(parent)
		}
	}
	walk(t.Name)
	fallback := t.Fallback
	if fallback == "" {
		fallback = DefaultFallback
	}
	walk(fallback)
	return order
}

// inherits returns the parents named in the first index.theme found for the
// named theme.
func (t *Theme) inherits(name string) []string {
	for _, dir := range t.Dirs {
		path := filepath.Join(dir, name, "index.theme")
		if !isFile(path) {
			continue
		}
		idx, err := ini.LoadSources(ini.LoadOptions{
			IgnoreInlineComment:     true,
			SkipUnrecognizableLines: true,
		}, path)
		if err != nil {
			return nil
		}
		var parents []string
		for _, p := range idx.Section("Icon Theme").Key("Inherits").Strings(",") {
			if p != "" {
				parents = append(parents, p)
			}
		}
		return parents
	}
	return nil
}

// icons returns all the icons with the given name in the sized directories
// of the theme rooted at root.
func icons(root, name string) []Icon {
	sizes, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	var found []Icon
	for _, s := range sizes {
		if !s.IsDir() {
			continue
		}
		base, ok := parseSize(s.Name())
		if !ok {
			continue
		}
		contexts, err := os.ReadDir(filepath.Join(root, s.Name()))
		if err != nil {
			continue
		}
		for _, c := range contexts {
			if !c.IsDir() {
				continue
			}
			for _, ext := range extensions {
				path := filepath.Join(root, s.Name(), c.Name(), name+ext)
				if isFile(path) {
					found = append(found, Icon{Path: path, BaseSize: base})
					break
				}
			}
		}
	}
	return found
}

// parseSize parses a theme size directory name, NxN or NxN@S, returning
// the pixel size.
func parseSize(dir string) (int, bool) {
	dim, scale, scaled := strings.Cut(dir, "@")
	w, h, ok := strings.Cut(dim, "x")
	if !ok || w != h {
		return 0, false
	}
	n, err := strconv.Atoi(w)
	if err != nil || n <= 0 {
		return 0, false
	}
	if scaled {
		s, err := strconv.Atoi(scale)
		if err != nil || s <= 0 {
			return 0, false
		}
		n *= s
	}
	return n, true
}

// closest returns the icon closest in size to the requested size.
func closest(found []Icon, size int) Icon {
	slices.SortStableFunc(found, func(a, b Icon) int { return a.BaseSize - b.BaseSize })
	if size <= 0 {
		return found[len(found)-1]
	}
	i, _ := slices.BinarySearchFunc(found, size, func(e Icon, t int) int { return e.BaseSize - t })
	if i == len(found) {
		return found[len(found)-1]
	}
	return found[i]
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// LoadIcon returns the named icon scaled to fit within size×size.
func (t *Theme) LoadIcon(name string, size int) (*raster.Raster, error) {
	icon, err := t.Lookup(name, size)
	if err != nil {
		return nil, err
	}
	return LoadFile(icon.Path, size)
}

// LoadFrames returns the activity indicator frames of the named icon. If
// the icon is an animated GIF its frames are returned, otherwise the icon is
// treated as a sprite sheet of square frames with the icon's base size, or
// the smaller of the sheet's dimensions when the icon is not sized.
func (t *Theme) LoadFrames(name string) ([]*raster.Raster, error) {
	icon, err := t.Lookup(name, 0)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(icon.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer f.Close()
	r := animation.AsReadPeeker(f)
	if animation.IsGIF(r) {
		frames, err := animation.DecodeGIF(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, icon.Path, err)
		}
		if len(frames) > 1 {
			return frames, nil
		}
		return strip(frames[0], icon)
	}
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, icon.Path, err)
	}
	return strip(img, icon)
}

func strip(sheet image.Image, icon Icon) ([]*raster.Raster, error) {
	size := icon.BaseSize
	if size == 0 {
		b := sheet.Bounds()
		size = min(b.Dx(), b.Dy())
	}
	frames, err := animation.Strip(sheet, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, icon.Path, err)
	}
	return frames, nil
}

// LoadFile returns the image in the named file scaled to fit within
// size×size, preserving its aspect ratio. Images that already fit exactly
// in one dimension are not scaled.
func LoadFile(path string, size int) (*raster.Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, path, err)
	}
	return Fit(raster.New(img), size), nil
}

// LoadURI returns the image at uri scaled to fit within size×size,
// preserving its aspect ratio. The uri may be a path or any form accepted
// by datauri.Decode.
func LoadURI(uri string, size int) (*raster.Raster, error) {
	img, err := datauri.Decode(uri, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return Fit(raster.New(img), size), nil
}

// Fit returns r scaled to fit within size×size preserving its aspect ratio.
func Fit(r *raster.Raster, size int) *raster.Raster {
	if r == nil || size <= 0 {
		return nil
	}
	w, h := r.Width(), r.Height()
	if max(w, h) == size {
		return r
	}
	if w >= h {
		return raster.Scale(r, size, max(1, h*size/w), raster.BiLinear)
	}
	return raster.Scale(r, max(1, w*size/h), size, raster.BiLinear)
}
