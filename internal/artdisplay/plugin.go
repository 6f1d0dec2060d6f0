// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package artdisplay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kortschak/artdisplay/internal/datauri"
	"github.com/kortschak/artdisplay/internal/fade"
	"github.com/kortschak/artdisplay/internal/loop"
	"github.com/kortschak/artdisplay/internal/raster"
	"github.com/kortschak/artdisplay/internal/slogext"
)

// CoverArtURIKey is the metadata key used to gather the current art URI.
const CoverArtURIKey = "cover-art-uri"

// MinFetchedArt is the smallest fetched art payload that is decoded.
// Shorter payloads are treated as missing art.
const MinFetchedArt = 1000

// Art is the result of an art lookup.
type Art struct {
	Image *raster.Raster
	URI   string

	// TooltipImage is the path or data URI of an image to
	// show in the tooltip.
	TooltipImage string
	TooltipText  string
}

// Completion is called with the result of an art lookup.
type Completion func(Entry, Art)

// ArtDB is an album art database. Completions must be called on the loop
// goroutine. They may be called before the initiating method returns.
type ArtDB interface {
	// Get looks up the art for entry. playing indicates that
	// entry is the playing entry.
	Get(entry Entry, playing bool, done Completion)
	// Cancel cancels any outstanding lookup for entry.
	Cancel(entry Entry)
	// Cache stores img as the art for entry and returns a URI
	// for it.
	Cache(entry Entry, img *raster.Raster) (uri string, err error)
	// Set sets the art for entry to img.
	Set(entry Entry, img *raster.Raster, done Completion)
	// SetFromURI sets the art for entry to the art at uri.
	SetFromURI(entry Entry, uri string, done Completion)
}

// Fetcher retrieves the data at a URI. The done function may be called from
// any goroutine.
type Fetcher interface {
	Fetch(uri string, done func(data []byte, err error))
}

// Player is the music player part of a Host. Subscription methods return a
// function that removes the subscription.
type Player interface {
	PlayingEntry() Entry
	OnPlayingEntryChanged(func(Entry)) (unsubscribe func())
	OnPlayingChanged(func(playing bool)) (unsubscribe func())
}

// Metadata is the entry metadata part of a Host. Subscription methods
// return a function that removes the subscription. Notify methods call all
// subscribed notification handlers before returning.
type Metadata interface {
	OnCoverArtRequest(func(Entry) *raster.Raster) (unsubscribe func())
	OnCoverArtNotify(func(Entry, *raster.Raster)) (unsubscribe func())
	OnCoverArtURIRequest(func(Entry) string) (unsubscribe func())
	OnCoverArtURINotify(func(Entry, string)) (unsubscribe func())
	OnGather(func(Entry, map[string]string)) (unsubscribe func())

	NotifyCoverArt(Entry, *raster.Raster)
	NotifyCoverArtURI(Entry, string)
}

// Host is the application hosting the plugin. All events are delivered on
// the loop goroutine.
type Host interface {
	Player
	Metadata

	// AddView adds an art display surface to the host's
	// interface and returns it.
	AddView() fade.View
	// RemoveView removes a surface added by AddView.
	RemoveView(fade.View)
	// WindowSize returns the size of the host's main window.
	WindowSize() (width, height int)
	// ShowURI opens uri in the user's preferred viewer.
	ShowURI(uri string) error
}

// Options are the services used by a Plugin.
type Options struct {
	Animation  fade.Config
	Loop       loop.Scheduler
	Background fade.Background
	Resolver   fade.Resolver
	ArtDB      ArtDB
	Fetcher    Fetcher

	// MaxSize is the maximum art size calculation. If nil,
	// DefaultMaxSize is used.
	MaxSize *MaxSize

	// DataDir is the directory relative tooltip image paths
	// are resolved against.
	DataDir string
}

// Plugin connects an art display Widget to a Host.
type Plugin struct {
	opts Options
	log  *slog.Logger

	host        Host
	unsubscribe []func()
	view        fade.View
	widget      *Widget

	entry Entry
	art   *raster.Raster

	// emittingURI is set while the plugin is emitting its own
	// art URI notification.
	emittingURI bool
}

// New returns a new inactive Plugin.
func New(opts Options, log *slog.Logger) (*Plugin, error) {
	switch {
	case opts.Loop == nil:
		return nil, errors.New("missing loop")
	case opts.Background == nil:
		return nil, errors.New("missing background")
	case opts.Resolver == nil:
		return nil, errors.New("missing resolver")
	case opts.ArtDB == nil:
		return nil, errors.New("missing art database")
	}
	err := opts.Animation.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid animation: %w", err)
	}
	log = log.With(slog.String("component", "artdisplay"))
	if opts.MaxSize == nil {
		opts.MaxSize, err = NewMaxSize(DefaultMaxSize, log)
		if err != nil {
			return nil, err
		}
	}
	return &Plugin{opts: opts, log: log}, nil
}

// Activate connects the plugin to h and shows the art for the playing
// entry. Activating an active plugin is a no-op.
func (p *Plugin) Activate(h Host) {
	if p.host != nil {
		return
	}
	p.log.LogAttrs(context.Background(), slog.LevelInfo, "activate")
	p.host = h
	p.view = h.AddView()
	anim := fade.New(p.opts.Animation, p.opts.Loop, p.view, p.opts.Background, p.opts.Resolver, p.log)
	p.widget = NewWidget(anim, Drops{
		OnPixbufDropped: p.onSetPixbuf,
		OnURIDropped:    p.onSetURI,
	}, p.maxArtSize, p.log)
	p.unsubscribe = []func(){
		h.OnPlayingEntryChanged(p.setEntry),
		h.OnPlayingChanged(p.playingChanged),
		h.OnCoverArtRequest(p.coverArtRequest),
		h.OnCoverArtNotify(p.coverArtNotify),
		h.OnCoverArtURIRequest(p.coverArtURIRequest),
		h.OnCoverArtURINotify(p.coverArtURINotify),
		h.OnGather(p.gather),
	}
	p.entry, p.art = "", nil
	p.setEntry(h.PlayingEntry())
}

// Deactivate removes every subscription and the view made by Activate.
// Deactivating an inactive plugin is a no-op.
func (p *Plugin) Deactivate() {
	if p.host == nil {
		return
	}
	p.log.LogAttrs(context.Background(), slog.LevelInfo, "deactivate")
	for _, unsubscribe := range p.unsubscribe {
		unsubscribe()
	}
	p.unsubscribe = nil
	p.host.RemoveView(p.view)
	p.widget.Close()
	p.host, p.view, p.widget = nil, nil, nil
	p.entry, p.art = "", nil
}

// Widget returns the plugin's widget. It is nil when the plugin is not
// active.
func (p *Plugin) Widget() *Widget { return p.widget }

// ThemeChanged notifies the plugin's widget of a theme change.
func (p *Plugin) ThemeChanged() {
	if p.widget == nil {
		return
	}
	p.widget.Animator().ThemeChanged()
}

// OpenArt opens the current art in the host's image viewer.
func (p *Plugin) OpenArt() error {
	if p.host == nil {
		return nil
	}
	uri := p.widget.URI()
	if uri == "" {
		return nil
	}
	return p.host.ShowURI(uri)
}

func (p *Plugin) playingChanged(bool) {
	p.setEntry(p.host.PlayingEntry())
}

func (p *Plugin) setEntry(entry Entry) {
	if p.host == nil || entry == p.entry {
		return
	}
	p.log.LogAttrs(context.Background(), slog.LevelDebug, "set entry", slog.String("entry", string(entry)))
	p.entry, p.art = entry, nil
	if entry == "" {
		p.widget.Set("", nil, "", nil, "", false)
		return
	}
	p.widget.Set(entry, nil, "", nil, "", true)
	p.opts.ArtDB.Get(entry, true, p.completed)
}

// completed handles the result of an art lookup. Results for entries other
// than the current entry do not change the widget, but their art is still
// announced to other metadata consumers.
func (p *Plugin) completed(entry Entry, art Art) {
	if p.host == nil {
		return
	}
	if entry == p.entry {
		p.art = art.Image
		p.widget.Set(entry, art.Image, art.URI, p.tooltipImage(art.TooltipImage), art.TooltipText, false)
	}
	if art.Image == nil {
		return
	}
	// The completion may be the result of a playing entry
	// change, in which case other consumers may not be ready,
	// so defer the notifications.
	host := p.host
	p.opts.Loop.Post(func() {
		if p.host != host {
			return
		}
		host.NotifyCoverArt(entry, art.Image)
		if art.URI != "" {
			p.notifyURI(entry, art.URI)
		}
	})
}

func (p *Plugin) tooltipImage(uri string) *raster.Raster {
	if uri == "" {
		return nil
	}
	img, err := datauri.Decode(uri, p.opts.DataDir)
	if err != nil {
		p.log.LogAttrs(context.Background(), slog.LevelWarn, "failed to load tooltip image", slog.String("uri", uri), slog.Any("error", err))
		return nil
	}
	return raster.New(img)
}

// notifyURI emits an art URI notification. Notifications arriving while it
// is emitting are dropped by coverArtURINotify.
func (p *Plugin) notifyURI(entry Entry, uri string) {
	p.emittingURI = true
	defer func() { p.emittingURI = false }()
	p.host.NotifyCoverArtURI(entry, uri)
}

func (p *Plugin) coverArtRequest(entry Entry) *raster.Raster {
	if p.host == nil {
		return nil
	}
	var img *raster.Raster
	p.opts.ArtDB.Get(entry, entry == p.entry, func(entry Entry, art Art) {
		img = art.Image
		p.completed(entry, art)
	})
	// img is only set here if the lookup completed
	// synchronously.
	return img
}

func (p *Plugin) coverArtNotify(entry Entry, img *raster.Raster) {
	if p.host == nil || entry != p.entry || img == nil {
		return
	}
	p.opts.ArtDB.Cancel(entry)
	if img == p.art {
		return
	}
	uri, err := p.opts.ArtDB.Cache(entry, img)
	if err != nil {
		p.log.LogAttrs(context.Background(), slog.LevelWarn, "failed to cache art", slog.String("entry", string(entry)), slog.Any("error", err))
	}
	p.art = img
	p.widget.Set(entry, img, uri, nil, "", false)
	if uri != "" {
		p.notifyURI(entry, uri)
	}
}

func (p *Plugin) coverArtURINotify(entry Entry, uri string) {
	if p.host == nil || entry != p.entry || p.emittingURI {
		return
	}
	if uri == "" {
		p.log.LogAttrs(context.Background(), slog.LevelDebug, "no art notification", slog.String("entry", string(entry)))
		p.art = nil
		p.widget.Set(entry, nil, "", nil, "", false)
		p.host.NotifyCoverArt(entry, nil)
		return
	}
	if p.opts.Fetcher == nil {
		p.log.LogAttrs(context.Background(), slog.LevelWarn, "no fetcher for art uri", slog.String("uri", uri))
		return
	}
	p.log.LogAttrs(context.Background(), slog.LevelDebug, "art uri notification", slog.String("entry", string(entry)), slog.String("uri", uri))
	host := p.host
	p.opts.Fetcher.Fetch(uri, func(data []byte, err error) {
		p.opts.Loop.Post(func() {
			if p.host != host {
				return
			}
			p.opts.ArtDB.Cancel(entry)
			p.completed(entry, Art{Image: p.decodeFetched(uri, data, err), URI: uri})
		})
	})
}

func (p *Plugin) decodeFetched(uri string, data []byte, err error) *raster.Raster {
	if err != nil {
		p.log.LogAttrs(context.Background(), slog.LevelWarn, "failed to fetch art", slog.String("uri", uri), slog.Any("error", err))
		return nil
	}
	if len(data) < MinFetchedArt {
		return nil
	}
	img, err := datauri.DecodeBytes(data)
	if err != nil {
		p.log.LogAttrs(context.Background(), slog.LevelWarn, "failed to decode fetched art", slog.String("uri", uri), slog.Any("error", err))
		return nil
	}
	r := raster.New(img)
	p.log.LogAttrs(context.Background(), slog.LevelDebug, "fetched art", slog.String("uri", uri), slog.Any("art", slogext.Raster{Raster: r}))
	return r
}

func (p *Plugin) coverArtURIRequest(entry Entry) string {
	if p.host == nil || entry != p.entry {
		return ""
	}
	return p.widget.URI()
}

func (p *Plugin) gather(entry Entry, md map[string]string) {
	if p.host == nil || entry != p.entry {
		return
	}
	if uri := p.widget.URI(); uri != "" {
		md[CoverArtURIKey] = uri
	}
}

func (p *Plugin) onSetPixbuf(entry Entry, img *raster.Raster) {
	p.opts.ArtDB.Set(entry, img, p.completed)
}

func (p *Plugin) onSetURI(entry Entry, uri string) {
	p.opts.ArtDB.SetFromURI(entry, uri, p.completed)
}

func (p *Plugin) maxArtSize() int {
	return p.opts.MaxSize.Eval(p.host.WindowSize())
}
