// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package theme

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/kortschak/artdisplay/internal/slogext"
)

const (
	portalDest     = "org.freedesktop.portal.Desktop"
	portalPath     = "/org/freedesktop/portal/desktop"
	portalSettings = "org.freedesktop.portal.Settings"

	appearanceNamespace = "org.freedesktop.appearance"
	colorSchemeKey      = "color-scheme"
	interfaceNamespace  = "org.gnome.desktop.interface"
	iconThemeKey        = "icon-theme"
)

// Settings are the desktop settings relevant to art display.
type Settings struct {
	ColorScheme Scheme
	IconTheme   string
}

// Portal is a background colour and icon theme source backed by the
// xdg-desktop-portal Settings interface on the session DBus. It is safe for
// concurrent use.
type Portal struct {
	// Light and Dark are the background colours used for
	// light and dark colour schemes.
	Light, Dark color.Color

	log *slog.Logger

	mu       sync.Mutex
	conn     *dbus.Conn
	settings Settings

	signals chan *dbus.Signal
	done    chan struct{}
}

// NewPortal returns a Portal connected to the session bus with its initial
// settings read. If changed is not nil it is called with the new settings
// each time a relevant setting changes, on a goroutine owned by the Portal.
func NewPortal(light, dark color.Color, changed func(Settings), log *slog.Logger) (*Portal, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, err
	}
	p := &Portal{
		Light: light,
		Dark:  dark,
		log:   log.With(slog.String("component", "portal")),
		conn:  conn,
		done:  make(chan struct{}),
	}

	ctx := context.Background()
	scheme, errScheme := dbusSetting[uint32](conn, appearanceNamespace, colorSchemeKey)
	if errScheme == nil {
		p.settings.ColorScheme = Scheme(scheme)
	}
	icons, errIcons := dbusSetting[string](conn, interfaceNamespace, iconThemeKey)
	if errIcons == nil {
		p.settings.IconTheme = icons
	}
	if errScheme != nil && errIcons != nil {
		conn.Close()
		return nil, fmt.Errorf("could not read portal settings: %w", errors.Join(errScheme, errIcons))
	}
	p.log.LogAttrs(ctx, slog.LevelDebug, "portal settings", slog.Any("color_scheme", slogext.Stringer{Stringer: p.settings.ColorScheme}), slog.String("icon_theme", p.settings.IconTheme), slog.Any("scheme_error", errScheme), slog.Any("icons_error", errIcons))

	err = conn.AddMatchSignal(
		dbus.WithMatchObjectPath(portalPath),
		dbus.WithMatchInterface(portalSettings),
		dbus.WithMatchMember("SettingChanged"),
	)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.signals = make(chan *dbus.Signal, 10)
	conn.Signal(p.signals)
	go p.listen(changed)
	return p, nil
}

func (p *Portal) listen(changed func(Settings)) {
	defer close(p.done)
	for sig := range p.signals {
		if sig == nil || sig.Name != portalSettings+".SettingChanged" || len(sig.Body) != 3 {
			continue
		}
		namespace, _ := sig.Body[0].(string)
		key, _ := sig.Body[1].(string)
		val, _ := sig.Body[2].(dbus.Variant)
		settings, ok := p.update(namespace, key, val)
		if !ok {
			continue
		}
		p.log.LogAttrs(context.Background(), slog.LevelDebug, "setting changed", slog.String("namespace", namespace), slog.String("key", key), slog.String("value", val.String()))
		if changed != nil {
			changed(settings)
		}
	}
}

// update applies a changed setting and reports whether it was relevant.
func (p *Portal) update(namespace, key string, val dbus.Variant) (Settings, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case namespace == appearanceNamespace && key == colorSchemeKey:
		v, ok := val.Value().(uint32)
		if !ok {
			return p.settings, false
		}
		p.settings.ColorScheme = Scheme(v)
	case namespace == interfaceNamespace && key == iconThemeKey:
		v, ok := val.Value().(string)
		if !ok {
			return p.settings, false
		}
		p.settings.IconTheme = v
	default:
		return p.settings, false
	}
	return p.settings, true
}

// Settings returns the current settings.
func (p *Portal) Settings() Settings {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settings
}

// Color returns the background colour for the current colour scheme.
func (p *Portal) Color() color.Color {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settings.ColorScheme.Choose(p.Light, p.Dark)
}

// Close releases the connection to the session DBus.
func (p *Portal) Close() error {
	p.mu.Lock()
	conn := p.conn
	p.conn = nil
	p.mu.Unlock()
	if conn == nil {
		return nil
	}
	conn.RemoveSignal(p.signals)
	close(p.signals)
	<-p.done
	return conn.Close()
}

// dbusSetting returns the value of a portal setting. ReadOne is tried first
// and Read, which returns the value in a nested variant, is used if that
// fails.
func dbusSetting[T any](conn *dbus.Conn, namespace, key string) (T, error) {
	var v T
	obj := conn.Object(portalDest, dbus.ObjectPath(portalPath))
	var val dbus.Variant
	err := obj.Call(portalSettings+".ReadOne", 0, namespace, key).Store(&val)
	if err != nil {
		err = obj.Call(portalSettings+".Read", 0, namespace, key).Store(&val)
		if err != nil {
			return v, err
		}
		if inner, ok := val.Value().(dbus.Variant); ok {
			val = inner
		}
	}
	v, ok := val.Value().(T)
	if !ok {
		return v, fmt.Errorf("invalid type for %s %s: %T", namespace, key, val.Value())
	}
	return v, nil
}
