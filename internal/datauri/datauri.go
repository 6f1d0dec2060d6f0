// Copyright ©2023 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package datauri decodes art images from data and file URIs.
package datauri

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/kortschak/artdisplay/internal/animation"
)

// DefaultSwatch is the size of colour swatch images when no size is given.
var DefaultSwatch = image.Pt(64, 64)

// Decode decodes image data from a URI. The following forms are accepted:
//
//	data:text/filename,<path>
//	data:image/*;base64,<data>
//	data:image/color[;size=<w>x<h>];name,<ansi colour name>
//	data:image/color[;size=<w>x<h>];web,#rrggbb
//	file://<path>
//	<path>
//
// Image files are opened relative to the datadir path unless the filename is
// an absolute path or starts with "~/". Only the first frame of an animated
// GIF is returned.
func Decode(uri, datadir string) (image.Image, error) {
	switch {
	case strings.HasPrefix(uri, "data:"):
	case strings.HasPrefix(uri, "file://"):
		u, err := url.Parse(uri)
		if err != nil {
			return nil, err
		}
		return decodeFile(u.Path, datadir)
	case strings.Contains(uri, "://"):
		return nil, fmt.Errorf("unsupported uri scheme: %s", uri)
	default:
		return decodeFile(uri, datadir)
	}

	typ, mtyp, par, val, enc, err := parseDataURI(uri)
	if err != nil {
		return nil, err
	}
	param, err := getParams(par)
	if err != nil {
		return nil, err
	}
	switch typ {
	case "text":
		if mtyp != "text/filename" {
			return nil, fmt.Errorf("unknown text mime type: %s", uri)
		}
		return decodeFile(val, datadir)
	case "image":
		switch enc {
		case "name", "web":
			if mtyp != "image/color" {
				return nil, fmt.Errorf("invalid colour mime type: %s", uri)
			}
			col, err := colorValue(enc, val)
			if err != nil {
				return nil, err
			}
			size, err := swatchSize(param)
			if err != nil {
				return nil, err
			}
			return swatch{Uniform: image.NewUniform(col), bounds: image.Rectangle{Max: size}}, nil
		case "base64":
			b, err := base64.StdEncoding.DecodeString(val)
			if err != nil {
				return nil, fmt.Errorf("base64: %w", err)
			}
			return DecodeBytes(b)
		}
	}
	panic("unreachable")
}

// DecodeBytes decodes encoded image data. Only the first frame of an
// animated GIF is returned.
func DecodeBytes(b []byte) (image.Image, error) {
	return decode(animation.AsReadPeeker(bytes.NewReader(b)))
}

func decodeFile(path, datadir string) (image.Image, error) {
	path, ok := strings.CutPrefix(path, "~/")
	if ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("file: %w", err)
		}
		path = filepath.Join(home, path)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(datadir, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("file: %w", err)
	}
	defer f.Close()
	return decode(animation.AsReadPeeker(f))
}

func decode(r animation.ReadPeeker) (image.Image, error) {
	if animation.IsGIF(r) {
		frames, err := animation.DecodeGIF(r)
		if err != nil {
			return nil, err
		}
		return frames[0], nil
	}
	img, _, err := image.Decode(r)
	return img, err
}

// swatch is a uniform image with bounds.
type swatch struct {
	*image.Uniform
	bounds image.Rectangle
}

func (s swatch) Bounds() image.Rectangle { return s.bounds }

func swatchSize(param map[string]string) (image.Point, error) {
	v, ok := param["size"]
	if !ok {
		return DefaultSwatch, nil
	}
	w, h, ok := strings.Cut(v, "x")
	if !ok {
		return image.Point{}, fmt.Errorf("invalid swatch size: %s", v)
	}
	dx, err := strconv.Atoi(w)
	if err != nil {
		return image.Point{}, fmt.Errorf("invalid swatch width: %w", err)
	}
	dy, err := strconv.Atoi(h)
	if err != nil {
		return image.Point{}, fmt.Errorf("invalid swatch height: %w", err)
	}
	if dx <= 0 || dy <= 0 {
		return image.Point{}, fmt.Errorf("invalid swatch size: %s", v)
	}
	return image.Pt(dx, dy), nil
}

func getParams(par string) (map[string]string, error) {
	if par == "" {
		return nil, nil
	}
	param := make(map[string]string)
	var err error
	for _, kv := range strings.Split(par, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(kv), "=")
		if !ok {
			return nil, fmt.Errorf("invalid params: %s", par)
		}
		param[strings.TrimSpace(k)], err = url.PathUnescape(strings.TrimSpace(v))
		if err != nil {
			return nil, err
		}
	}
	return param, nil
}

// handle data URIs in the form "^data:(?:text/filename|image/\*;base64|image/color;(?:name|web)),.*$"
func parseDataURI(uri string) (typ, mtyp, par, val, enc string, err error) {
	u, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", "", "", "", "", fmt.Errorf("invalid scheme: %s", uri)
	}
	mtyp, val, ok = strings.Cut(u, ",")
	if !ok {
		return "", "", "", "", "", fmt.Errorf("invalid data uri: %s", uri)
	}
	typ, _, ok = strings.Cut(mtyp, "/")
	if !ok {
		return "", "", "", "", "", fmt.Errorf("invalid data uri: %s", uri)
	}
	switch typ {
	case "text":
		mtyp, par, _ := strings.Cut(mtyp, ";")
		return typ, mtyp, par, val, "", nil
	case "image":
		mtyp, enc, ok = cutLast(mtyp, ";")
		if !ok {
			return "", "", "", "", "", fmt.Errorf("invalid image data uri: %s", uri)
		}
		switch enc {
		case "base64", "name", "web":
			mtyp, par, _ := strings.Cut(mtyp, ";")
			return typ, mtyp, par, val, enc, nil
		default:
			return "", "", "", "", "", fmt.Errorf("invalid encoding in image uri: %s", uri)
		}
	default:
		return "", "", "", "", "", fmt.Errorf("unknown mime type: %s", uri)
	}
}

func cutLast(s, sep string) (before, after string, found bool) {
	if i := strings.LastIndex(s, sep); i >= 0 {
		return s[:i], s[i+len(sep):], true
	}
	return s, "", false
}

// ParseColor returns the colour described by val, either a web colour,
// #rrggbb, or an ANSI colour name.
func ParseColor(val string) (color.Color, error) {
	if strings.HasPrefix(val, "#") {
		return colorValue("web", val)
	}
	return colorValue("name", val)
}

func colorValue(enc, val string) (color.Color, error) {
	switch enc {
	case "web":
		return webColor(val)
	case "name":
		col, ok := ansiColor[val]
		if !ok {
			return nil, fmt.Errorf("invalid color name: %s", val)
		}
		return col, nil
	default:
		return nil, errors.New("invalid color encoding")
	}
}

var ansiColor = map[string]color.RGBA{
	"black":     {R: 0x00, G: 0x00, B: 0x00, A: 0xff},
	"red":       {R: 0x80, G: 0x00, B: 0x00, A: 0xff},
	"green":     {R: 0x00, G: 0x80, B: 0x00, A: 0xff},
	"yellow":    {R: 0x80, G: 0x80, B: 0x00, A: 0xff},
	"blue":      {R: 0x00, G: 0x00, B: 0x80, A: 0xff},
	"magenta":   {R: 0x80, G: 0x00, B: 0x80, A: 0xff},
	"cyan":      {R: 0x00, G: 0x80, B: 0x80, A: 0xff},
	"white":     {R: 0xc0, G: 0xc0, B: 0xc0, A: 0xff},
	"hiblack":   {R: 0x80, G: 0x80, B: 0x80, A: 0xff},
	"hired":     {R: 0xff, G: 0x00, B: 0x00, A: 0xff},
	"higreen":   {R: 0x00, G: 0xff, B: 0x00, A: 0xff},
	"hiyellow":  {R: 0xff, G: 0xff, B: 0x00, A: 0xff},
	"hiblue":    {R: 0x00, G: 0x00, B: 0xff, A: 0xff},
	"himagenta": {R: 0xff, G: 0x00, B: 0xff, A: 0xff},
	"hicyan":    {R: 0x00, G: 0xff, B: 0xff, A: 0xff},
	"hiwhite":   {R: 0xff, G: 0xff, B: 0xff, A: 0xff},
}

func webColor(val string) (color.Color, error) {
	val, ok := strings.CutPrefix(val, "#")
	if !ok || len(val) != 6 {
		return nil, fmt.Errorf("invalid web color: %s", val)
	}
	c, err := strconv.ParseUint(val, 16, 24)
	if err != nil {
		return nil, err
	}
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(c))
	return color.RGBA{R: b[1], G: b[2], B: b[3], A: 0xff}, nil
}
