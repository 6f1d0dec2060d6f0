// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package theme

import "image/color"

// Static is a fixed background colour.
type Static struct {
	C color.Color
}

// Color returns the background colour, or white if none is set.
func (s Static) Color() color.Color {
	if s.C == nil {
		return color.White
	}
	return s.C
}

// Scheme is a desktop colour scheme preference.
type Scheme uint32

const (
	NoPreference Scheme = iota
	PreferDark
	PreferLight
)

func (s Scheme) String() string {
	switch s {
	case NoPreference:
		return "no-preference"
	case PreferDark:
		return "prefer-dark"
	case PreferLight:
		return "prefer-light"
	default:
		return "unknown"
	}
}

// Choose returns dark if the scheme prefers dark backgrounds and light
// otherwise.
func (s Scheme) Choose(light, dark color.Color) color.Color {
	if s == PreferDark && dark != nil {
		return dark
	}
	if light == nil {
		return color.White
	}
	return light
}
