// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package theme

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Debounce is the default duration a Watcher waits for a burst of icon
// directory changes to settle before reporting.
const Debounce = 250 * time.Millisecond

// Watcher watches icon theme directories for changes.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	changed  func()
	log      *slog.Logger

	mu    sync.Mutex
	gen   uint64
	timer *time.Timer

	done chan struct{}
}

// NewWatcher starts watching the existing directories in dirs and the theme
// directories within them. A burst of changes within the debounce window
// results in a single call to changed, made on a goroutine owned by the
// Watcher. If debounce is less than zero, Debounce is used.
func NewWatcher(ctx context.Context, dirs []string, debounce time.Duration, changed func(), log *slog.Logger) (*Watcher, error) {
	if debounce < 0 {
		debounce = Debounce
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		watcher:  watcher,
		debounce: debounce,
		changed:  changed,
		log:      log.With(slog.String("component", "theme_watcher")),
		done:     make(chan struct{}),
	}
	var watched int
	for _, dir := range dirs {
		n, err := w.add(dir)
		if err != nil {
			watcher.Close()
			return nil, err
		}
		watched += n
	}
	if watched == 0 {
		watcher.Close()
		return nil, errors.New("no icon directories to watch")
	}
	go w.process(ctx)
	return w, nil
}

// add adds dir and its theme subdirectories to the watch list, returning the
// number of directories added. Missing directories are ignored.
func (w *Watcher) add(dir string) (int, error) {
	fi, err := os.Stat(dir)
	if err != nil || !fi.IsDir() {
		return 0, nil
	}
	err = w.watcher.Add(dir)
	if err != nil {
		return 0, err
	}
	n := 1
	de, err := os.ReadDir(dir)
	if err != nil {
		return n, nil
	}
	for _, e := range de {
		if !e.IsDir() {
			continue
		}
		err = w.watcher.Add(filepath.Join(dir, e.Name()))
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (w *Watcher) process(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			w.stop()
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				w.stop()
				return
			}
			w.log.LogAttrs(ctx, slog.LevelDebug, "icon directory event", slog.String("name", ev.Name), slog.String("op", ev.Op.String()))
			if ev.Has(fsnotify.Create) {
				// New themes appear as directories in
				// a watched base directory.
				fi, err := os.Stat(ev.Name)
				if err == nil && fi.IsDir() {
					err = w.watcher.Add(ev.Name)
					if err != nil {
						w.log.LogAttrs(ctx, slog.LevelWarn, "add watch", slog.String("name", ev.Name), slog.Any("error", err))
					}
				}
			}
			w.notify()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				w.stop()
				return
			}
			w.log.LogAttrs(ctx, slog.LevelWarn, "icon directory watch", slog.Any("error", err))
		}
	}
}

// notify schedules a call to changed after the debounce window, extending
// any pending window.
func (w *Watcher) notify() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gen++
	gen := w.gen
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		current := gen == w.gen
		w.mu.Unlock()
		if current {
			w.changed()
		}
	})
}

func (w *Watcher) stop() {
	w.mu.Lock()
	w.gen++
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
