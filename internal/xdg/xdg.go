// Copyright ©2023 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package xdg locates configuration files and icon theme directories
// following the XDG base directory conventions.
package xdg

import (
	"os"
	"path/filepath"
	"syscall"
)

// base is a class of base directories: a user directory and a list of
// system directories, each overridable by an environment variable.
type base struct {
	keyHome, defHome string
	keyDirs, defDirs string
}

var (
	configBase = base{
		keyHome: key_XDG_CONFIG_HOME, defHome: def_XDG_CONFIG_HOME,
		keyDirs: key_XDG_CONFIG_DIRS, defDirs: def_XDG_CONFIG_DIRS,
	}
	dataBase = base{
		keyHome: key_XDG_DATA_HOME, defHome: def_XDG_DATA_HOME,
		keyDirs: key_XDG_DATA_DIRS, defDirs: def_XDG_DATA_DIRS,
	}
)

// home returns the user directory of the base.
func (b base) home() (string, bool) {
	return envOrDefault(b.keyHome, b.defHome, _HOME)
}

// dirs returns the system directories of the base, omitting empty
// elements.
func (b base) dirs() []string {
	list, ok := envOrDefault(b.keyDirs, b.defDirs, "")
	if !ok {
		return nil
	}
	var dirs []string
	for _, d := range filepath.SplitList(list) {
		if d != "" {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// Config returns the path to the named file found first in the user
// configuration directory, and the system configuration directories if
// local is false. If no file is found Config returns ENOENT.
func Config(name string, local bool) (string, error) {
	var search []string
	if home, ok := configBase.home(); ok {
		search = append(search, home)
	}
	if !local {
		search = append(search, configBase.dirs()...)
	}
	for _, dir := range search {
		path := filepath.Join(dir, name)
		_, err := os.Stat(path)
		if err == nil {
			return path, nil
		}
	}
	return "", syscall.ENOENT
}

// IconDirs returns the icon theme base directories in search order:
// $HOME/.icons, the icons directory of the user data directory, the icons
// directories of the system data directories and the legacy pixmaps
// directory. Directories that do not exist are included.
func IconDirs() []string {
	var dirs []string
	if home, ok := envOrDefault("", def_ICON_HOME, _HOME); ok {
		dirs = append(dirs, home)
	}
	if home, ok := dataBase.home(); ok {
		dirs = append(dirs, filepath.Join(home, "icons"))
	}
	for _, d := range dataBase.dirs() {
		dirs = append(dirs, filepath.Join(d, "icons"))
	}
	if def_PIXMAPS != "" {
		dirs = append(dirs, def_PIXMAPS)
	}
	return dirs
}

// envOrDefault return the path or path list corresponding to the provided
// key and default. If home is empty or the default is absolute, the default
// is returned unaltered, otherwise the default is returned relative to the
// directory held by the home variable.
func envOrDefault(key, def, home string) (string, bool) {
	if key != "" {
		val, ok := os.LookupEnv(key)
		if ok {
			return val, true
		}
	}
	if def == "" {
		return "", false
	}
	if home == "" || filepath.IsAbs(def) {
		return def, true
	}
	dir, ok := os.LookupEnv(home)
	if !ok {
		return "", false
	}
	return filepath.Join(dir, def), true
}
