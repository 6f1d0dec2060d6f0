// Copyright ©2023 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var validateTests = []struct {
	name      string
	mutate    func(*Config)
	wantPaths [][]string
	wantErr   bool
}{
	{
		name:   "default",
		mutate: func(*Config) {},
	},
	{
		name: "with_level",
		mutate: func(c *Config) {
			l := slog.LevelDebug
			c.Log.Level = &l
			c.Theme.Dirs = []string{"/usr/share/icons"}
		},
	},
	{
		name:      "zero_steps",
		mutate:    func(c *Config) { c.Fade.Steps = 0 },
		wantPaths: [][]string{{"fade", "steps"}},
		wantErr:   true,
	},
	{
		name:      "bad_duration",
		mutate:    func(c *Config) { c.Fade.Total = "one second" },
		wantPaths: [][]string{{"fade", "total"}},
		wantErr:   true,
	},
	{
		name: "bad_threshold_and_rate",
		mutate: func(c *Config) {
			c.Fade.Threshold = 1.5
			c.Throbber.Rate = 0
		},
		wantPaths: [][]string{{"fade", "threshold"}, {"throbber", "rate"}},
		wantErr:   true,
	},
	{
		name:      "inverted_aspect",
		mutate:    func(c *Config) { c.Art.AspectMin, c.Art.AspectMax = 1.2, 1.1 },
		wantPaths: [][]string{{"art", "aspect_max"}},
		wantErr:   true,
	},
	{
		name:      "unknown_filter",
		mutate:    func(c *Config) { c.Art.Filter = "lanczos" },
		wantPaths: [][]string{{"art", "filter"}},
		wantErr:   true,
	},
	{
		name:      "bad_colour",
		mutate:    func(c *Config) { c.Theme.Background = "mauve" },
		wantPaths: [][]string{{"theme", "background"}},
		wantErr:   true,
	},
	{
		name:      "empty_theme",
		mutate:    func(c *Config) { c.Theme.Name = "" },
		wantPaths: [][]string{{"theme", "name"}},
		wantErr:   true,
	},
}

func TestValidate(t *testing.T) {
	for _, test := range validateTests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.mutate(cfg)
			err := Validate(Schema, cfg)
			if (err != nil) != test.wantErr {
				t.Errorf("unexpected error: got:%v want error:%t", err, test.wantErr)
			}
			var paths [][]string
			var verr *ValidationError
			if errors.As(err, &verr) {
				paths = verr.Paths
			}
			if !cmp.Equal(test.wantPaths, paths) {
				t.Errorf("unexpected paths:\n--- want:\n+++ got:\n%s", cmp.Diff(test.wantPaths, paths))
			}
		})
	}
}

func TestUnique(t *testing.T) {
	got := unique([][]string{
		{"theme", "name"},
		nil,
		{"fade", "steps"},
		{"theme", "name"},
		{"fade"},
		{"fade", "steps"},
	})
	want := [][]string{
		{"fade"},
		{"fade", "steps"},
		{"theme", "name"},
	}
	if !cmp.Equal(want, got) {
		t.Errorf("unexpected result:\n--- want:\n+++ got:\n%s", cmp.Diff(want, got))
	}
}
