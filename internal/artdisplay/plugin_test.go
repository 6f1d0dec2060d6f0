// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package artdisplay

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kortschak/artdisplay/internal/fade"
	"github.com/kortschak/artdisplay/internal/loop"
	"github.com/kortschak/artdisplay/internal/raster"
	"github.com/kortschak/artdisplay/internal/theme"
)

func solid(w, h int, c color.Color) *raster.Raster {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return raster.New(img)
}

// noisePNG returns a PNG encoding that does not compress below
// MinFetchedArt.
func noisePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	rnd := rand.New(rand.NewSource(1))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	rnd.Read(img.Pix)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	err := png.Encode(&buf, img)
	if err != nil {
		t.Fatalf("unexpected error encoding png: %v", err)
	}
	if buf.Len() < MinFetchedArt {
		t.Fatalf("test image too small: %d bytes", buf.Len())
	}
	return buf.Bytes()
}

type view struct {
	visible   bool
	width     int
	repaints  int
	relayouts int
}

func (v *view) Visible() bool                  { return v.visible }
func (v *view) Width() int                     { return v.width }
func (v *view) RequestRepaint(image.Rectangle) { v.repaints++ }
func (v *view) RequestRelayout()               { v.relayouts++ }

type resolver struct{}

func (resolver) Placeholder(size int, bg color.Color) (*raster.Raster, error) {
	return solid(size, size, color.Gray{Y: 0x80}), nil
}

func (resolver) Activity() ([]*raster.Raster, error) {
	return []*raster.Raster{
		solid(8, 8, color.Black),
		solid(8, 8, color.White),
	}, nil
}

type subs[T any] struct {
	next int
	fns  map[int]T
}

func (s *subs[T]) add(fn T) func() {
	if s.fns == nil {
		s.fns = make(map[int]T)
	}
	s.next++
	id := s.next
	s.fns[id] = fn
	return func() { delete(s.fns, id) }
}

type artNote struct {
	Entry Entry
	Art   *raster.Raster
}

type uriNote struct {
	Entry Entry
	URI   string
}

type host struct {
	playing       Entry
	width, height int

	entryChanged   subs[func(Entry)]
	playingChanged subs[func(bool)]
	artRequest     subs[func(Entry) *raster.Raster]
	artNotify      subs[func(Entry, *raster.Raster)]
	uriRequest     subs[func(Entry) string]
	uriNotify      subs[func(Entry, string)]
	gather         subs[func(Entry, map[string]string)]

	views    []*view
	removed  []fade.View
	artNotes []artNote
	uriNotes []uriNote
	shown    []string
}

func (h *host) PlayingEntry() Entry { return h.playing }
func (h *host) OnPlayingEntryChanged(fn func(Entry)) func() {
	return h.entryChanged.add(fn)
}
func (h *host) OnPlayingChanged(fn func(bool)) func() {
	return h.playingChanged.add(fn)
}
func (h *host) OnCoverArtRequest(fn func(Entry) *raster.Raster) func() {
	return h.artRequest.add(fn)
}
func (h *host) OnCoverArtNotify(fn func(Entry, *raster.Raster)) func() {
	return h.artNotify.add(fn)
}
func (h *host) OnCoverArtURIRequest(fn func(Entry) string) func() {
	return h.uriRequest.add(fn)
}
func (h *host) OnCoverArtURINotify(fn func(Entry, string)) func() {
	return h.uriNotify.add(fn)
}
func (h *host) OnGather(fn func(Entry, map[string]string)) func() {
	return h.gather.add(fn)
}

func (h *host) NotifyCoverArt(e Entry, r *raster.Raster) {
	h.artNotes = append(h.artNotes, artNote{e, r})
	for _, fn := range h.artNotify.fns {
		fn(e, r)
	}
}

func (h *host) NotifyCoverArtURI(e Entry, uri string) {
	h.uriNotes = append(h.uriNotes, uriNote{e, uri})
	for _, fn := range h.uriNotify.fns {
		fn(e, uri)
	}
}

func (h *host) AddView() fade.View {
	v := &view{}
	h.views = append(h.views, v)
	return v
}

func (h *host) RemoveView(v fade.View) { h.removed = append(h.removed, v) }

func (h *host) WindowSize() (width, height int) { return h.width, h.height }

func (h *host) ShowURI(uri string) error {
	h.shown = append(h.shown, uri)
	return nil
}

func (h *host) subscriptions() []int {
	return []int{
		len(h.entryChanged.fns),
		len(h.playingChanged.fns),
		len(h.artRequest.fns),
		len(h.artNotify.fns),
		len(h.uriRequest.fns),
		len(h.uriNotify.fns),
		len(h.gather.fns),
	}
}

// play changes the playing entry as the host would.
func (h *host) play(e Entry) {
	h.playing = e
	for _, fn := range h.entryChanged.fns {
		fn(e)
	}
}

type getCall struct {
	Entry   Entry
	Playing bool
}

type artDB struct {
	sync    bool
	art     map[Entry]Art
	pending map[Entry]Completion

	gets    []getCall
	cancels []Entry
	cached  []Entry
	sets    []Entry
	setURIs []string
}

func newArtDB() *artDB {
	return &artDB{art: make(map[Entry]Art), pending: make(map[Entry]Completion)}
}

func (db *artDB) Get(e Entry, playing bool, done Completion) {
	db.gets = append(db.gets, getCall{e, playing})
	if db.sync {
		done(e, db.art[e])
		return
	}
	db.pending[e] = done
}

// complete completes an outstanding lookup.
func (db *artDB) complete(t *testing.T, e Entry) {
	t.Helper()
	done, ok := db.pending[e]
	if !ok {
		t.Fatalf("no pending lookup for %q", e)
	}
	delete(db.pending, e)
	done(e, db.art[e])
}

func (db *artDB) Cancel(e Entry) { db.cancels = append(db.cancels, e) }

func (db *artDB) Cache(e Entry, img *raster.Raster) (string, error) {
	db.cached = append(db.cached, e)
	return "file:///cache/" + string(e) + ".png", nil
}

func (db *artDB) Set(e Entry, img *raster.Raster, done Completion) {
	db.sets = append(db.sets, e)
	done(e, Art{Image: img})
}

func (db *artDB) SetFromURI(e Entry, uri string, done Completion) {
	db.setURIs = append(db.setURIs, uri)
}

type fetcher struct {
	uris []string
	done []func([]byte, error)
}

func (f *fetcher) Fetch(uri string, done func([]byte, error)) {
	f.uris = append(f.uris, uri)
	f.done = append(f.done, done)
}

type testPlugin struct {
	*Plugin
	host  *host
	db    *artDB
	fetch *fetcher
	timer *loop.Virtual
}

func newPlugin(t *testing.T, playing Entry) testPlugin {
	t.Helper()
	tp := testPlugin{
		host:  &host{playing: playing, width: 640, height: 480},
		db:    newArtDB(),
		fetch: &fetcher{},
		timer: loop.NewVirtual(),
	}
	log := slog.New(slog.DiscardHandler)
	p, err := New(Options{
		Animation:  fade.DefaultConfig(),
		Loop:       tp.timer,
		Background: theme.Static{C: color.White},
		Resolver:   resolver{},
		ArtDB:      tp.db,
		Fetcher:    tp.fetch,
	}, log)
	if err != nil {
		t.Fatalf("unexpected error creating plugin: %v", err)
	}
	tp.Plugin = p
	t.Cleanup(p.Deactivate)
	return tp
}

func TestNewMissingServices(t *testing.T) {
	_, err := New(Options{Animation: fade.DefaultConfig()}, slog.New(slog.DiscardHandler))
	if err == nil {
		t.Error("expected error for missing services")
	}
	_, err = New(Options{
		Loop:       loop.NewVirtual(),
		Background: theme.Static{},
		Resolver:   resolver{},
		ArtDB:      newArtDB(),
	}, slog.New(slog.DiscardHandler))
	if err == nil {
		t.Error("expected error for invalid animation")
	}
}

func TestActivateDeactivate(t *testing.T) {
	p := newPlugin(t, "a")

	p.Activate(p.host)
	p.Activate(p.host)
	if len(p.host.views) != 1 {
		t.Errorf("unexpected number of views: %d", len(p.host.views))
	}
	if got, want := p.host.subscriptions(), []int{1, 1, 1, 1, 1, 1, 1}; !cmp.Equal(want, got) {
		t.Errorf("unexpected subscriptions after activate: got:%v want:%v", got, want)
	}
	if want := []getCall{{"a", true}}; !cmp.Equal(want, p.db.gets) {
		t.Errorf("unexpected lookups:\n--- want:\n+++ got:\n%s", cmp.Diff(want, p.db.gets))
	}
	w := p.Widget()
	if w.Entry() != "a" || !w.Animator().Pending() {
		t.Errorf("expected working widget for entry a: entry=%q pending=%t", w.Entry(), w.Animator().Pending())
	}
	if _, text, ok := w.Tooltip(0); !ok || text != TipWorking {
		t.Errorf("unexpected tooltip: %q %t", text, ok)
	}

	p.Deactivate()
	p.Deactivate()
	if got, want := p.host.subscriptions(), []int{0, 0, 0, 0, 0, 0, 0}; !cmp.Equal(want, got) {
		t.Errorf("unexpected subscriptions after deactivate: got:%v want:%v", got, want)
	}
	if len(p.host.removed) != 1 || p.host.removed[0] != p.host.views[0] {
		t.Errorf("view not removed: %v", p.host.removed)
	}
	if p.Widget() != nil {
		t.Error("widget retained after deactivate")
	}
	if n := p.timer.Pending(); n != 0 {
		t.Errorf("timers left after deactivate: %d", n)
	}

	// Completions after deactivation are ignored.
	p.db.art["a"] = Art{Image: solid(10, 10, color.White)}
	p.db.complete(t, "a")
	p.timer.Advance(0)
	if len(p.host.artNotes) != 0 {
		t.Errorf("unexpected notifications after deactivate: %v", p.host.artNotes)
	}

	p.Activate(p.host)
	if got, want := p.host.subscriptions(), []int{1, 1, 1, 1, 1, 1, 1}; !cmp.Equal(want, got) {
		t.Errorf("unexpected subscriptions after reactivate: got:%v want:%v", got, want)
	}
}

func TestNoEntry(t *testing.T) {
	p := newPlugin(t, "")
	p.Activate(p.host)
	if len(p.db.gets) != 0 {
		t.Errorf("unexpected lookups: %v", p.db.gets)
	}
	w := p.Widget()
	if w.Animator().Pending() {
		t.Error("unexpected working widget")
	}
	if _, _, ok := w.Tooltip(0); ok {
		t.Error("unexpected tooltip")
	}
	if w.Drop(DropData{Text: "file:///art.png"}) {
		t.Error("unexpected drop acceptance without entry")
	}
}

func TestCompletion(t *testing.T) {
	p := newPlugin(t, "a")
	art := solid(50, 50, color.RGBA{R: 0xff, A: 0xff})
	p.db.art["a"] = Art{Image: art, URI: "file:///a.png", TooltipText: "Album"}
	p.Activate(p.host)
	p.db.complete(t, "a")

	w := p.Widget()
	if w.Art() != art || w.URI() != "file:///a.png" {
		t.Errorf("unexpected widget art: %v %q", w.Art(), w.URI())
	}
	if w.Animator().Pending() {
		t.Error("widget still working after completion")
	}
	if _, text, ok := w.Tooltip(0); !ok || text != "Album" {
		t.Errorf("unexpected tooltip: %q %t", text, ok)
	}
	if len(p.host.artNotes) != 0 {
		t.Error("notifications not deferred")
	}

	p.timer.Advance(0)
	if want := []artNote{{"a", art}}; !cmp.Equal(want, p.host.artNotes, cmp.Comparer(sameRaster)) {
		t.Errorf("unexpected art notifications: %v", p.host.artNotes)
	}
	if want := []uriNote{{"a", "file:///a.png"}}; !cmp.Equal(want, p.host.uriNotes) {
		t.Errorf("unexpected uri notifications: %v", p.host.uriNotes)
	}
	if len(p.fetch.uris) != 0 {
		t.Errorf("own uri notification was not dropped: fetched %v", p.fetch.uris)
	}
}

func sameRaster(a, b *raster.Raster) bool { return a == b }

func TestStaleCompletion(t *testing.T) {
	p := newPlugin(t, "a")
	art := solid(50, 50, color.RGBA{B: 0xff, A: 0xff})
	p.db.art["a"] = Art{Image: art}
	p.Activate(p.host)
	p.host.play("b")
	p.db.complete(t, "a")

	w := p.Widget()
	if w.Entry() != "b" || w.Art() != nil || !w.Animator().Pending() {
		t.Errorf("stale completion altered widget: entry=%q art=%v pending=%t", w.Entry(), w.Art(), w.Animator().Pending())
	}
	p.timer.Advance(0)
	if len(p.host.artNotes) != 1 || p.host.artNotes[0].Entry != "a" {
		t.Errorf("expected notification for stale entry: %v", p.host.artNotes)
	}
	if want := []getCall{{"a", true}, {"b", true}}; !cmp.Equal(want, p.db.gets) {
		t.Errorf("unexpected lookups:\n--- want:\n+++ got:\n%s", cmp.Diff(want, p.db.gets))
	}
}

func TestPlayingChanged(t *testing.T) {
	p := newPlugin(t, "a")
	p.Activate(p.host)
	p.host.playing = "c"
	for _, fn := range p.host.playingChanged.fns {
		fn(true)
	}
	if p.Widget().Entry() != "c" {
		t.Errorf("unexpected entry: %q", p.Widget().Entry())
	}
	// The same entry does not restart a lookup.
	p.host.play("c")
	if len(p.db.gets) != 2 {
		t.Errorf("unexpected lookups: %v", p.db.gets)
	}
}

func TestCoverArtRequest(t *testing.T) {
	p := newPlugin(t, "a")
	p.db.sync = true
	art := solid(20, 20, color.White)
	p.db.art["a"] = Art{Image: art}
	p.db.art["z"] = Art{Image: solid(4, 4, color.Black)}
	p.Activate(p.host)

	for _, fn := range p.host.artRequest.fns {
		if got := fn("a"); got != art {
			t.Errorf("unexpected requested art: %v", got)
		}
		fn("z")
	}
	want := []getCall{{"a", true}, {"a", true}, {"z", false}}
	if !cmp.Equal(want, p.db.gets) {
		t.Errorf("unexpected lookups:\n--- want:\n+++ got:\n%s", cmp.Diff(want, p.db.gets))
	}
}

func TestCoverArtNotify(t *testing.T) {
	p := newPlugin(t, "a")
	p.Activate(p.host)
	p.db.complete(t, "a")

	art := solid(30, 30, color.White)
	p.host.NotifyCoverArt("a", art)
	w := p.Widget()
	if w.Art() != art || w.URI() != "file:///cache/a.png" {
		t.Errorf("unexpected widget art: %v %q", w.Art(), w.URI())
	}
	if want := []uriNote{{"a", "file:///cache/a.png"}}; !cmp.Equal(want, p.host.uriNotes) {
		t.Errorf("unexpected uri notifications: %v", p.host.uriNotes)
	}
	if len(p.fetch.uris) != 0 {
		t.Errorf("own uri notification was not dropped: fetched %v", p.fetch.uris)
	}

	// Repeated and foreign notifications are not cached.
	p.host.NotifyCoverArt("a", art)
	p.host.NotifyCoverArt("b", solid(4, 4, color.Black))
	p.host.NotifyCoverArt("a", nil)
	if want := []Entry{"a"}; !cmp.Equal(want, p.db.cached) {
		t.Errorf("unexpected cache calls: %v", p.db.cached)
	}
	if want := []Entry{"a", "a"}; !cmp.Equal(want, p.db.cancels) {
		t.Errorf("unexpected cancellations: %v", p.db.cancels)
	}
}

func TestCoverArtURINotify(t *testing.T) {
	p := newPlugin(t, "a")
	p.Activate(p.host)

	p.host.NotifyCoverArtURI("b", "https://example.com/b.png")
	p.host.NotifyCoverArtURI("a", "https://example.com/a.png")
	if want := []string{"https://example.com/a.png"}; !cmp.Equal(want, p.fetch.uris) {
		t.Fatalf("unexpected fetches: %v", p.fetch.uris)
	}

	p.fetch.done[0](noisePNG(t, 32, 32), nil)
	if p.Widget().Art() != nil {
		t.Error("fetch completion not deferred to loop")
	}
	p.timer.Advance(0)
	w := p.Widget()
	if w.Art() == nil || w.Art().Width() != 32 || w.URI() != "https://example.com/a.png" {
		t.Errorf("unexpected widget art: %v %q", w.Art(), w.URI())
	}
	if w.Animator().Pending() {
		t.Error("widget still working after fetch")
	}
	// The fetch completion and the deferred notification of the
	// fetched art both cancel outstanding lookups.
	if want := []Entry{"a", "a"}; !cmp.Equal(want, p.db.cancels) {
		t.Errorf("unexpected cancellations: %v", p.db.cancels)
	}
	want := []uriNote{
		{"b", "https://example.com/b.png"},
		{"a", "https://example.com/a.png"},
		{"a", "https://example.com/a.png"}, // Re-emitted after fetch.
	}
	if !cmp.Equal(want, p.host.uriNotes) {
		t.Errorf("unexpected uri notifications: %v", p.host.uriNotes)
	}
	if len(p.fetch.uris) != 1 {
		t.Errorf("own uri notification was not dropped: fetched %v", p.fetch.uris)
	}
}

func TestCoverArtURINotifyShort(t *testing.T) {
	for _, test := range []struct {
		name string
		data []byte
		err  error
	}{
		{name: "short", data: []byte("GIF89a")},
		{name: "error", err: errors.New("connection refused")},
		{name: "garbage", data: bytes.Repeat([]byte{'x'}, MinFetchedArt)},
	} {
		t.Run(test.name, func(t *testing.T) {
			p := newPlugin(t, "a")
			p.Activate(p.host)
			p.host.NotifyCoverArtURI("a", "https://example.com/a.png")
			p.fetch.done[0](test.data, test.err)
			p.timer.Advance(0)
			w := p.Widget()
			if w.Art() != nil || w.Animator().Pending() {
				t.Errorf("expected missing art: art=%v pending=%t", w.Art(), w.Animator().Pending())
			}
			if len(p.host.artNotes) != 0 {
				t.Errorf("unexpected art notifications: %v", p.host.artNotes)
			}
		})
	}
}

func TestNoArtNotification(t *testing.T) {
	p := newPlugin(t, "a")
	p.Activate(p.host)
	p.host.NotifyCoverArtURI("a", "")
	w := p.Widget()
	if w.Art() != nil || w.Animator().Pending() {
		t.Errorf("expected missing art: art=%v pending=%t", w.Art(), w.Animator().Pending())
	}
	if want := []artNote{{"a", nil}}; !cmp.Equal(want, p.host.artNotes, cmp.Comparer(sameRaster)) {
		t.Errorf("unexpected art notifications: %v", p.host.artNotes)
	}
	if len(p.fetch.uris) != 0 {
		t.Errorf("unexpected fetches: %v", p.fetch.uris)
	}
}

func TestURIRequestGather(t *testing.T) {
	p := newPlugin(t, "a")
	p.db.art["a"] = Art{Image: solid(10, 10, color.White), URI: "file:///a.png"}
	p.Activate(p.host)

	md := map[string]string{}
	for _, fn := range p.host.gather.fns {
		fn("a", md)
	}
	if len(md) != 0 {
		t.Errorf("unexpected metadata before art: %v", md)
	}

	p.db.complete(t, "a")
	for _, fn := range p.host.uriRequest.fns {
		if got := fn("a"); got != "file:///a.png" {
			t.Errorf("unexpected uri for current entry: %q", got)
		}
		if got := fn("b"); got != "" {
			t.Errorf("unexpected uri for other entry: %q", got)
		}
	}
	for _, fn := range p.host.gather.fns {
		fn("a", md)
		fn("b", md)
	}
	if want := map[string]string{CoverArtURIKey: "file:///a.png"}; !cmp.Equal(want, md) {
		t.Errorf("unexpected gathered metadata: %v", md)
	}
}

func TestDrop(t *testing.T) {
	p := newPlugin(t, "a")
	p.Activate(p.host)
	w := p.Widget()

	img := solid(12, 12, color.White)
	if !w.Drop(DropData{Image: img, URIs: []string{"file:///ignored.png"}}) {
		t.Error("image drop not accepted")
	}
	if w.Art() != img {
		t.Error("dropped image not shown")
	}
	if !w.Drop(DropData{URIs: []string{"file:///first.png", "file:///second.png"}, Text: "ignored"}) {
		t.Error("uri drop not accepted")
	}
	if !w.Drop(DropData{Text: "file:///text.png"}) {
		t.Error("text drop not accepted")
	}
	if w.Drop(DropData{}) {
		t.Error("empty drop accepted")
	}
	if want := []Entry{"a"}; !cmp.Equal(want, p.db.sets) {
		t.Errorf("unexpected image sets: %v", p.db.sets)
	}
	if want := []string{"file:///first.png", "file:///text.png"}; !cmp.Equal(want, p.db.setURIs) {
		t.Errorf("unexpected uri sets: %v", p.db.setURIs)
	}

	d := w.DragData()
	if d.Image != img || len(d.URIs) != 0 {
		t.Errorf("unexpected drag data: %+v", d)
	}
}

func TestAllocate(t *testing.T) {
	p := newPlugin(t, "a")
	p.host.height = 300
	p.Activate(p.host)
	w := p.Widget()
	w.Allocate(400)
	if got := w.Animator().RenderSize(); got != 100 {
		t.Errorf("unexpected render size: got:%d want:100", got)
	}
	p.host.height = 1500
	w.Allocate(400)
	if got := w.Animator().RenderSize(); got != 400 {
		t.Errorf("unexpected render size: got:%d want:400", got)
	}
}

func TestOpenArt(t *testing.T) {
	p := newPlugin(t, "a")
	p.db.art["a"] = Art{Image: solid(10, 10, color.White), URI: "file:///a.png"}
	p.Activate(p.host)
	err := p.OpenArt()
	if err != nil || len(p.host.shown) != 0 {
		t.Errorf("unexpected open without uri: %v %v", p.host.shown, err)
	}
	p.db.complete(t, "a")
	err = p.OpenArt()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if want := []string{"file:///a.png"}; !cmp.Equal(want, p.host.shown) {
		t.Errorf("unexpected opened uris: %v", p.host.shown)
	}
}
