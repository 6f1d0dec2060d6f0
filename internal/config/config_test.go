// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kortschak/artdisplay/internal/fade"
	"github.com/kortschak/artdisplay/internal/raster"
)

func TestDefaultAnimation(t *testing.T) {
	got, err := Default().Animation()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := fade.DefaultConfig()
	if !cmp.Equal(want, got) {
		t.Errorf("default configuration does not match animation defaults:\n--- want:\n+++ got:\n%s", cmp.Diff(want, got))
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artdisplay.toml")
	err := os.WriteFile(path, []byte(`
[fade]
steps = 20
total = "2s"

[throbber]
delay = "100ms"

[art]
filter = "catmull-rom"
max_size = "min(width, height) / 2"

[theme]
name = "Adwaita"
dirs = ["/opt/icons"]
background = "hiblack"

[log]
level = "debug"
add_source = true
`), 0o644)
	if err != nil {
		t.Fatalf("unexpected error writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}
	want := Default()
	want.Fade.Steps = 20
	want.Fade.Total = "2s"
	want.Throbber.Delay = "100ms"
	want.Art.Filter = "catmull-rom"
	want.Art.MaxSize = "min(width, height) / 2"
	want.Theme.Name = "Adwaita"
	want.Theme.Dirs = []string{"/opt/icons"}
	want.Theme.Background = "hiblack"
	level := slog.LevelDebug
	want.Log.Level = &level
	want.Log.AddSource = true
	if !cmp.Equal(want, cfg) {
		t.Errorf("unexpected config:\n--- want:\n+++ got:\n%s", cmp.Diff(want, cfg))
	}

	anim, err := cfg.Animation()
	if err != nil {
		t.Fatalf("unexpected error converting animation config: %v", err)
	}
	if anim.FadeSteps != 20 || anim.FadeTotal != 2*time.Second || anim.ThrobberDelay != 100*time.Millisecond || anim.Filter != raster.CatmullRom {
		t.Errorf("unexpected animation config: %+v", anim)
	}

	light, dark, err := cfg.Backgrounds()
	if err != nil {
		t.Fatalf("unexpected error getting backgrounds: %v", err)
	}
	if light != (color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}) {
		t.Errorf("unexpected light background: %v", light)
	}
	if dark != (color.RGBA{R: 0x2e, G: 0x34, B: 0x36, A: 0xff}) {
		t.Errorf("unexpected dark background: %v", dark)
	}
	if got := cfg.IconDirs(); !cmp.Equal(got, []string{"/opt/icons"}) {
		t.Errorf("unexpected icon dirs: %v", got)
	}
}

func TestLoadErrors(t *testing.T) {
	for _, test := range []struct {
		name string
		data string
	}{
		{name: "syntax", data: "[fade\nsteps = 1"},
		{name: "unknown_key", data: "[fade]\nspeed = 1"},
		{name: "invalid", data: "[throbber]\nrate = 0"},
	} {
		t.Run(test.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "artdisplay.toml")
			err := os.WriteFile(path, []byte(test.data), 0o644)
			if err != nil {
				t.Fatalf("unexpected error writing config: %v", err)
			}
			_, err = Load(path)
			if err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadDefault(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cmp.Equal(Default(), cfg) {
		t.Errorf("unexpected default config:\n%s", cmp.Diff(Default(), cfg))
	}
}

func TestLocate(t *testing.T) {
	got, err := Locate("explicit.toml")
	if err != nil || got != "explicit.toml" {
		t.Errorf("unexpected explicit location: got:%q,%v", got, err)
	}
}
