// Copyright ©2023 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The artdisplay command renders album art transitions to an animated GIF.
//
// The art shown before the transition is given by -from and the art
// transitioned to by -to. Both are image file paths or data URIs. The
// search for the -to art may be held pending with -pending to show the
// activity indicator. By default the animation is rendered against a
// virtual clock; with -live it is rendered in real time using the desktop
// portal's colour scheme and icon theme, reloading the theme when it
// changes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/kortschak/artdisplay/internal/artdisplay"
	"github.com/kortschak/artdisplay/internal/config"
	"github.com/kortschak/artdisplay/internal/fade"
	"github.com/kortschak/artdisplay/internal/loop"
	"github.com/kortschak/artdisplay/internal/slogext"
	"github.com/kortschak/artdisplay/internal/theme"
	"github.com/kortschak/artdisplay/internal/version"
)

func main() {
	os.Exit(Main())
}

// Main is the artdisplay command. It returns the process exit code.
func Main() int {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), `Usage of %s:

  %[1]s [options] -to <src> -out <file.gif>

`, os.Args[0])
		flag.PrintDefaults()
	}
	cfgPath := flag.String("config", "", "configuration file path (default $XDG_CONFIG_HOME/artdisplay/artdisplay.toml)")
	logging := flag.String("log", "info", "logging level (debug, info, warn or error)")
	lines := flag.Bool("lines", false, "display source line details in logs")
	v := flag.Bool("version", false, "print version and exit")
	from := flag.String("from", "", "art shown before the transition (path or data URI)")
	to := flag.String("to", "", "art transitioned to (path or data URI)")
	pending := flag.Duration("pending", 0, "time the search for the -to art remains pending (negative never completes)")
	size := flag.Int("size", 200, "allocated width of the art display")
	window := flag.String("window", "640x480", "host window size")
	live := flag.Bool("live", false, "render in real time with desktop theme integration")
	duration := flag.Duration("duration", 3*time.Second, "length of the rendered animation")
	out := flag.String("out", "", "animated GIF output path")
	flag.Parse()
	if *v {
		err := version.Print(os.Stdout)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}
	switch {
	case flag.NArg() != 0:
		flag.Usage()
		return 2
	case *to == "":
		fmt.Fprintln(os.Stderr, "missing -to source")
		flag.Usage()
		return 2
	case *out == "":
		fmt.Fprintln(os.Stderr, "missing -out path")
		flag.Usage()
		return 2
	case *size < 1, *duration <= 0:
		fmt.Fprintln(os.Stderr, "size and duration must be positive")
		flag.Usage()
		return 2
	}
	win, err := parseWindow(*window)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		return 2
	}
	var level slog.LevelVar
	err = level.UnmarshalText([]byte(*logging))
	if err != nil {
		flag.Usage()
		return 2
	}

	path, err := config.Locate(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		return 1
	}
	if cfg.Log.Level != nil && !isSet("log") {
		level.Set(*cfg.Log.Level)
	}
	addSource := slogext.NewAtomicBool(*lines || cfg.Log.AddSource)

	// log is the root logger.
	log := slog.New(slogext.GoID{Handler: slogext.NewJSONHandler(os.Stderr, &slogext.HandlerOptions{
		Level:     &level,
		AddSource: addSource,
	})})
	// mlog is the logger for main.
	mlog := log.With(slog.String("component", "artdisplay.main"))
	ctx := context.Background()
	mlog.LogAttrs(ctx, slog.LevelInfo, "config", slog.String("path", path))

	anim, err := cfg.Animation()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid animation configuration: %v\n", err)
		return 1
	}
	light, dark, err := cfg.Backgrounds()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid background configuration: %v\n", err)
		return 1
	}
	maxSize, err := artdisplay.NewMaxSize(cfg.Art.MaxSize, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid max size expression: %v\n", err)
		return 1
	}

	r := &render{
		anim:     anim,
		maxSize:  maxSize,
		resolver: newResolver(cfg, anim, log),
		light:    light,
		dark:     dark,
		from:     artdisplay.Entry(*from),
		to:       artdisplay.Entry(*to),
		pending:  *pending,
		size:     *size,
		window:   win,
		duration: *duration,
		log:      log,
	}
	if *live {
		err = r.live(ctx, cfg.Theme.Portal, cfg.Theme.Watch)
	} else {
		err = r.virtual()
	}
	if err != nil {
		mlog.LogAttrs(ctx, slog.LevelError, "render failed", slog.Any("error", err))
		return 1
	}

	f, err := os.Create(*out)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	err = r.rec.encode(f, *duration)
	if err != nil {
		f.Close()
		fmt.Fprintf(os.Stderr, "failed to write animation: %v\n", err)
		return 1
	}
	err = f.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	mlog.LogAttrs(ctx, slog.LevelInfo, "wrote animation", slog.String("path", *out), slog.Int("frames", len(r.rec.frames)))
	return 0
}

func isSet(name string) bool {
	var set bool
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func parseWindow(s string) (image.Point, error) {
	w, h, ok := strings.Cut(s, "x")
	if !ok {
		return image.Point{}, fmt.Errorf("invalid window size: %q", s)
	}
	dx, errW := strconv.Atoi(w)
	dy, errH := strconv.Atoi(h)
	if errW != nil || errH != nil || dx < 1 || dy < 1 {
		return image.Point{}, fmt.Errorf("invalid window size: %q", s)
	}
	return image.Pt(dx, dy), nil
}

func newResolver(cfg *config.Config, anim fade.Config, log *slog.Logger) *theme.Resolver {
	return &theme.Resolver{
		Icons: &theme.Theme{
			Name:     cfg.Theme.Name,
			Dirs:     cfg.IconDirs(),
			Fallback: theme.DefaultFallback,
		},
		MissingIcon: cfg.Art.MissingIcon,
		MissingFile: cfg.Art.MissingFile,
		Throbber:    cfg.Throbber.Icon,
		Aspect:      anim.Aspect,
		Log:         log.With(slog.String("component", "theme")),
	}
}

// render is a rendering of an art transition.
type render struct {
	anim     fade.Config
	maxSize  *artdisplay.MaxSize
	resolver *theme.Resolver
	light    color.Color
	dark     color.Color

	from, to artdisplay.Entry
	pending  time.Duration
	size     int
	window   image.Point
	duration time.Duration

	log *slog.Logger
	rec recorder
}

// start activates the plugin on a new session showing the -from art and
// then plays the -to art.
func (r *render) start(sched loop.Scheduler, clock func() time.Duration, bg fade.Background, settle func()) (*artdisplay.Plugin, error) {
	db := newSourceDB(sched, r.log)
	if r.pending != 0 {
		db.delay[r.to] = r.pending
	}
	p, err := artdisplay.New(artdisplay.Options{
		Animation:  r.anim,
		Loop:       sched,
		Background: bg,
		Resolver:   r.resolver,
		ArtDB:      db,
		MaxSize:    r.maxSize,
	}, r.log)
	if err != nil {
		return nil, err
	}
	view := &captureView{width: r.size, poster: sched}
	view.capture = func() {
		if w := p.Widget(); w != nil {
			r.rec.capture(clock(), w.Composite())
		}
	}
	s := newSession(view, r.window, r.log)
	s.playing = r.from
	p.Activate(s)
	p.Widget().Allocate(r.size)
	settle()
	view.visible = true
	s.play(r.to)
	return p, nil
}

// virtual renders against a virtual clock.
func (r *render) virtual() error {
	v := loop.NewVirtual()
	p, err := r.start(v, v.Now, theme.Static{C: r.light}, func() { v.Advance(0) })
	if err != nil {
		return err
	}
	defer p.Deactivate()
	for {
		due, ok := v.NextDue()
		if !ok || due > r.duration {
			break
		}
		v.Advance(due - v.Now())
	}
	v.Advance(r.duration - v.Now())
	return nil
}

// live renders in real time on an event loop. If portal is true the
// background colour and icon theme follow the desktop settings. If watch is
// true the icon theme is reloaded when the icon directories change.
func (r *render) live(ctx context.Context, portal, watch bool) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()
	ctx, cancel = context.WithTimeout(ctx, r.duration)
	defer cancel()

	l := loop.New(64, r.log)
	defer l.Close()

	var (
		p  *artdisplay.Plugin
		bg fade.Background = theme.Static{C: r.light}
	)
	if portal {
		pt, err := theme.NewPortal(r.light, r.dark, func(s theme.Settings) {
			l.Post(func() {
				if s.IconTheme != "" {
					r.resolver.SetTheme(s.IconTheme)
				}
				if p != nil {
					p.ThemeChanged()
				}
			})
		}, r.log)
		if err != nil {
			r.log.LogAttrs(ctx, slog.LevelWarn, "desktop portal unavailable", slog.Any("error", err))
		} else {
			defer pt.Close()
			bg = pt
			if s := pt.Settings(); s.IconTheme != "" {
				r.resolver.SetTheme(s.IconTheme)
			}
		}
	}
	if watch {
		w, err := theme.NewWatcher(ctx, r.resolver.Icons.Dirs, theme.Debounce, func() {
			l.Post(func() {
				if p != nil {
					p.ThemeChanged()
				}
			})
		}, r.log)
		if err != nil {
			r.log.LogAttrs(ctx, slog.LevelWarn, "icon theme watcher unavailable", slog.Any("error", err))
		} else {
			defer w.Close()
		}
	}

	begin := time.Now()
	errc := make(chan error, 1)
	l.Post(func() {
		var err error
		p, err = r.start(l, func() time.Duration { return time.Since(begin) }, bg, func() {})
		if err != nil {
			errc <- err
			cancel()
		}
	})
	err := l.Run(ctx)
	l.Close()
	if p != nil {
		// The loop is no longer running, so the plugin
		// may be deactivated from here.
		p.Deactivate()
	}
	select {
	case err := <-errc:
		return err
	default:
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
