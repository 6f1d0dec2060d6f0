// Copyright ©2023 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config provides artdisplay configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/kortschak/artdisplay/internal/datauri"
	"github.com/kortschak/artdisplay/internal/fade"
	"github.com/kortschak/artdisplay/internal/raster"
	"github.com/kortschak/artdisplay/internal/xdg"
)

// Config is a complete artdisplay configuration.
type Config struct {
	Fade     Fade     `json:"fade" toml:"fade"`
	Throbber Throbber `json:"throbber" toml:"throbber"`
	Art      Art      `json:"art" toml:"art"`
	Theme    Theme    `json:"theme" toml:"theme"`
	Log      Log      `json:"log" toml:"log"`
}

// Fade is the cross-fade configuration. Durations are in time.Duration
// string syntax.
type Fade struct {
	Steps        int     `json:"steps" toml:"steps"`
	Total        string  `json:"total" toml:"total"`
	WorkingDelay string  `json:"working_delay" toml:"working_delay"`
	Threshold    float64 `json:"threshold" toml:"threshold"`
}

// Throbber is the activity indicator configuration.
type Throbber struct {
	// Icon is the themed icon name of the indicator's
	// sprite sheet or animated GIF.
	Icon  string `json:"icon" toml:"icon"`
	Rate  int    `json:"rate" toml:"rate"`
	Delay string `json:"delay" toml:"delay"`
}

// Art is the art rendering configuration.
type Art struct {
	MissingIcon string  `json:"missing_icon" toml:"missing_icon"`
	MissingFile string  `json:"missing_file,omitempty" toml:"missing_file"`
	AspectMin   float64 `json:"aspect_min" toml:"aspect_min"`
	AspectMax   float64 `json:"aspect_max" toml:"aspect_max"`
	Filter      string  `json:"filter" toml:"filter"`
	// MaxSize is a CEL expression over the window width and
	// height giving the maximum art size.
	MaxSize string `json:"max_size" toml:"max_size"`
}

// Theme is the icon theme and background configuration.
type Theme struct {
	Name string   `json:"name" toml:"name"`
	Dirs []string `json:"dirs,omitempty" toml:"dirs"`
	// Portal specifies that the theme name and colour scheme
	// are obtained from the desktop portal.
	Portal bool `json:"portal" toml:"portal"`
	// Watch specifies that the icon directories are watched
	// for changes.
	Watch          bool   `json:"watch" toml:"watch"`
	Background     string `json:"background" toml:"background"`
	DarkBackground string `json:"dark_background" toml:"dark_background"`
}

// Log is the logging configuration.
type Log struct {
	Level     *slog.Level `json:"level,omitempty" toml:"level"`
	AddSource bool        `json:"add_source" toml:"add_source"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Fade: Fade{
			Steps:        10,
			Total:        "1s",
			WorkingDelay: "500ms",
			Threshold:    0.999,
		},
		Throbber: Throbber{
			Icon:  "process-working",
			Rate:  10,
			Delay: "0s",
		},
		Art: Art{
			MissingIcon: "audio-x-generic",
			AspectMin:   raster.DefaultAspect.Min,
			AspectMax:   raster.DefaultAspect.Max,
			Filter:      raster.BiLinear.String(),
			MaxSize:     "height / 3",
		},
		Theme: Theme{
			Name:           "hicolor",
			Background:     "#ffffff",
			DarkBackground: "#2e3436",
		},
	}
}

// Schema is the CUE schema for a valid configuration.
const Schema = `
{
	fade:     _#fade
	throbber: _#throbber
	art:      _#art
	theme:    _#theme
	log:      _#log
}

_#fade: {
	steps:         int & >=1
	total:         _#duration
	working_delay: _#duration
	threshold:     number & >0 & <=1
}

_#throbber: {
	icon:  string
	rate:  int & >=1 & <=100
	delay: _#duration
}

_#art: {
	missing_icon:  string
	missing_file?: string
	aspect_min:    number & >0
	aspect_max:    number & >=aspect_min
	filter:        "nearest" | "approx-bilinear" | "bilinear" | "catmull-rom"
	max_size:      string & !=""
}

_#theme: {
	name:            string & !=""
	dirs?:           null | [... string]
	portal:          bool
	watch:           bool
	background:      _#color
	dark_background: _#color
}

_#log: {
	level?:     null | _#log_level
	add_source: bool
}

_#duration:  =~"^(?:[0-9]+(?:\\.[0-9]+)?(?:ns|us|µs|ms|s|m|h))+$"
_#color:     _#web_color | _#ansi_color
_#web_color: =~"^#[0-9a-fA-F]{6}$"
_#ansi_color: =~"^(?:hi)?(?:black|red|green|yellow|blue|magenta|cyan|white)$"
_#log_level: =~"(?i)^(?:debug|info|warn|error)$"
`

// Locate returns the path to the configuration file. If path is not empty it
// is returned. Otherwise the user configuration directories are searched for
// artdisplay/artdisplay.toml. Locate returns an empty path and a nil error if
// no configuration file exists.
func Locate(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	path, err := xdg.Config(filepath.Join("artdisplay", "artdisplay.toml"), false)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	return path, err
}

// Load returns the configuration in the TOML file at path decoded over the
// defaults and validated against Schema. If path is empty, the defaults are
// returned. Unknown keys are an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, err
		}
		if undecoded := md.Undecoded(); len(undecoded) != 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("unknown configuration keys: %s", strings.Join(keys, ", "))
		}
	}
	err := Validate(Schema, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Animation returns the fade animation configuration described by c.
func (c *Config) Animation() (fade.Config, error) {
	var (
		cfg  fade.Config
		errs []error
	)
	cfg.FadeSteps = c.Fade.Steps
	cfg.FadeTotal = duration("fade.total", c.Fade.Total, &errs)
	cfg.WorkingDelay = duration("fade.working_delay", c.Fade.WorkingDelay, &errs)
	cfg.Threshold = c.Fade.Threshold
	cfg.ThrobberRate = c.Throbber.Rate
	cfg.ThrobberDelay = duration("throbber.delay", c.Throbber.Delay, &errs)
	cfg.Aspect = raster.Aspect{Min: c.Art.AspectMin, Max: c.Art.AspectMax}
	f, err := raster.ParseFilter(c.Art.Filter)
	if err != nil {
		errs = append(errs, fmt.Errorf("art.filter: %w", err))
	}
	cfg.Filter = f
	if len(errs) != 0 {
		return cfg, errors.Join(errs...)
	}
	return cfg, cfg.Validate()
}

func duration(field, val string, errs *[]error) time.Duration {
	d, err := time.ParseDuration(val)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", field, err))
	}
	return d
}

// Backgrounds returns the light and dark background colours.
func (c *Config) Backgrounds() (light, dark color.Color, err error) {
	light, errLight := datauri.ParseColor(c.Theme.Background)
	if errLight != nil {
		errLight = fmt.Errorf("theme.background: %w", errLight)
	}
	dark, errDark := datauri.ParseColor(c.Theme.DarkBackground)
	if errDark != nil {
		errDark = fmt.Errorf("theme.dark_background: %w", errDark)
	}
	return light, dark, errors.Join(errLight, errDark)
}

// IconDirs returns the icon theme base directories. If none are configured
// the XDG icon directories are returned.
func (c *Config) IconDirs() []string {
	if len(c.Theme.Dirs) != 0 {
		return c.Theme.Dirs
	}
	return xdg.IconDirs()
}
