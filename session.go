// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/png"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/kortschak/artdisplay/internal/artdisplay"
	"github.com/kortschak/artdisplay/internal/datauri"
	"github.com/kortschak/artdisplay/internal/fade"
	"github.com/kortschak/artdisplay/internal/loop"
	"github.com/kortschak/artdisplay/internal/raster"
	"github.com/kortschak/artdisplay/internal/slogext"
)

// session is a headless artdisplay.Host. Entries are image sources that
// are resolved by decoding them.
type session struct {
	log *slog.Logger

	playing artdisplay.Entry
	window  image.Point
	view    *captureView

	entryChanged   subscriptions[func(artdisplay.Entry)]
	playingChanged subscriptions[func(bool)]
	artRequest     subscriptions[func(artdisplay.Entry) *raster.Raster]
	artNotify      subscriptions[func(artdisplay.Entry, *raster.Raster)]
	uriRequest     subscriptions[func(artdisplay.Entry) string]
	uriNotify      subscriptions[func(artdisplay.Entry, string)]
	gather         subscriptions[func(artdisplay.Entry, map[string]string)]
}

func newSession(view *captureView, window image.Point, log *slog.Logger) *session {
	return &session{
		log:    log.With(slog.String("component", "artdisplay.session")),
		window: window,
		view:   view,
	}
}

// play makes e the playing entry.
func (s *session) play(e artdisplay.Entry) {
	s.log.LogAttrs(context.Background(), slog.LevelInfo, "play", slog.String("entry", shorten(string(e))))
	s.playing = e
	for _, fn := range s.entryChanged.all() {
		fn(e)
	}
}

func (s *session) PlayingEntry() artdisplay.Entry { return s.playing }

func (s *session) OnPlayingEntryChanged(fn func(artdisplay.Entry)) func() {
	return s.entryChanged.add(fn)
}

func (s *session) OnPlayingChanged(fn func(bool)) func() {
	return s.playingChanged.add(fn)
}

func (s *session) OnCoverArtRequest(fn func(artdisplay.Entry) *raster.Raster) func() {
	return s.artRequest.add(fn)
}

func (s *session) OnCoverArtNotify(fn func(artdisplay.Entry, *raster.Raster)) func() {
	return s.artNotify.add(fn)
}

func (s *session) OnCoverArtURIRequest(fn func(artdisplay.Entry) string) func() {
	return s.uriRequest.add(fn)
}

func (s *session) OnCoverArtURINotify(fn func(artdisplay.Entry, string)) func() {
	return s.uriNotify.add(fn)
}

func (s *session) OnGather(fn func(artdisplay.Entry, map[string]string)) func() {
	return s.gather.add(fn)
}

func (s *session) NotifyCoverArt(e artdisplay.Entry, r *raster.Raster) {
	s.log.LogAttrs(context.Background(), slog.LevelDebug, "cover art notification", slog.String("entry", string(e)), slog.Any("art", slogext.Raster{Raster: r}))
	for _, fn := range s.artNotify.all() {
		fn(e, r)
	}
}

func (s *session) NotifyCoverArtURI(e artdisplay.Entry, uri string) {
	s.log.LogAttrs(context.Background(), slog.LevelDebug, "cover art uri notification", slog.String("entry", string(e)), slog.String("uri", shorten(uri)))
	for _, fn := range s.uriNotify.all() {
		fn(e, uri)
	}
}

func (s *session) AddView() fade.View { return s.view }

func (s *session) RemoveView(fade.View) {}

func (s *session) WindowSize() (width, height int) { return s.window.X, s.window.Y }

func (s *session) ShowURI(uri string) error {
	return errors.New("no image viewer")
}

// subscriptions is a set of event handlers.
type subscriptions[T any] struct {
	next int
	fns  map[int]T
}

func (s *subscriptions[T]) add(fn T) (unsubscribe func()) {
	if s.fns == nil {
		s.fns = make(map[int]T)
	}
	s.next++
	id := s.next
	s.fns[id] = fn
	return func() { delete(s.fns, id) }
}

// all returns the handlers in subscription order.
func (s *subscriptions[T]) all() []T {
	fns := make([]T, 0, len(s.fns))
	for id := 1; id <= s.next; id++ {
		if fn, ok := s.fns[id]; ok {
			fns = append(fns, fn)
		}
	}
	return fns
}

// sourceDB is an artdisplay.ArtDB that decodes entries as image sources.
type sourceDB struct {
	timers loop.Timers
	log    *slog.Logger

	// delay holds the simulated lookup time of entries.
	// Lookups with a negative delay never complete.
	delay   map[artdisplay.Entry]time.Duration
	lookups map[artdisplay.Entry]loop.Handle
}

func newSourceDB(timers loop.Timers, log *slog.Logger) *sourceDB {
	return &sourceDB{
		timers:  timers,
		log:     log.With(slog.String("component", "artdisplay.db")),
		delay:   make(map[artdisplay.Entry]time.Duration),
		lookups: make(map[artdisplay.Entry]loop.Handle),
	}
}

func (db *sourceDB) Get(e artdisplay.Entry, playing bool, done artdisplay.Completion) {
	d := db.delay[e]
	db.log.LogAttrs(context.Background(), slog.LevelDebug, "lookup", slog.String("entry", shorten(string(e))), slog.Bool("playing", playing), slog.Duration("delay", d))
	switch {
	case d < 0:
		return
	case d == 0:
		done(e, db.load(e))
	default:
		db.timers.Cancel(db.lookups[e])
		db.lookups[e] = db.timers.AfterFunc(d, func() {
			delete(db.lookups, e)
			done(e, db.load(e))
		})
	}
}

func (db *sourceDB) load(e artdisplay.Entry) artdisplay.Art {
	src := string(e)
	img, err := datauri.Decode(src, "")
	if err != nil {
		db.log.LogAttrs(context.Background(), slog.LevelWarn, "failed to load art", slog.String("entry", shorten(src)), slog.Any("error", err))
		return artdisplay.Art{}
	}
	art := artdisplay.Art{Image: raster.New(img)}
	if !strings.HasPrefix(src, "data:") {
		art.URI = src
		if !strings.Contains(src, "://") {
			abs, err := filepath.Abs(src)
			if err == nil {
				art.URI = "file://" + filepath.ToSlash(abs)
			}
		}
	}
	return art
}

func (db *sourceDB) Cancel(e artdisplay.Entry) {
	db.timers.Cancel(db.lookups[e])
	delete(db.lookups, e)
}

// Cache returns a data URI holding img.
func (db *sourceDB) Cache(e artdisplay.Entry, img *raster.Raster) (string, error) {
	var buf bytes.Buffer
	err := png.Encode(&buf, img)
	if err != nil {
		return "", err
	}
	return "data:image/*;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (db *sourceDB) Set(e artdisplay.Entry, img *raster.Raster, done artdisplay.Completion) {
	done(e, artdisplay.Art{Image: img})
}

func (db *sourceDB) SetFromURI(e artdisplay.Entry, uri string, done artdisplay.Completion) {
	art := db.load(artdisplay.Entry(uri))
	done(e, art)
}

// captureView is a fade.View that captures the rendered art after each
// batch of repaint requests.
type captureView struct {
	width   int
	visible bool
	poster  loop.Poster
	capture func()
	queued  bool
}

func (v *captureView) Visible() bool { return v.visible }

func (v *captureView) Width() int { return v.width }

func (v *captureView) RequestRepaint(image.Rectangle) { v.queue() }

func (v *captureView) RequestRelayout() { v.queue() }

func (v *captureView) queue() {
	if v.queued || v.capture == nil {
		return
	}
	v.queued = v.poster.Post(func() {
		v.queued = false
		v.capture()
	})
}

// shorten returns s truncated for logging.
func shorten(s string) string {
	const limit = 64
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
