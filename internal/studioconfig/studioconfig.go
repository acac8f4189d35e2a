// Package studioconfig persists editor preferences across runs.
package studioconfig

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Path is the preferences file, relative to the process working directory.
const Path = "config/studio.json"

// Smallest window the editor will restore. Saved sizes below this mean the
// file was edited by hand or written by a broken run.
const (
	minWindowWidth  = 640
	minWindowHeight = 360
)

// Prefs holds editor-only preferences (debug overlays, grid, window size).
// Scene content is separate: it lives in workspace manifests.
type Prefs struct {
	ShowFPS      bool `json:"show_fps"`
	ShowMemAlloc bool `json:"show_memalloc"`
	GridVisible  bool `json:"grid_visible"`
	WindowWidth  int  `json:"window_width,omitempty"`
	WindowHeight int  `json:"window_height,omitempty"`
}

// Default returns the out-of-the-box preferences (overlays off, grid on,
// 1600x900 window).
func Default() Prefs {
	return Prefs{
		GridVisible:  true,
		WindowWidth:  1600,
		WindowHeight: 900,
	}
}

// Load reads preferences from config/studio.json. If the file is missing or
// invalid, returns Default() and does not create a file.
func Load() (Prefs, error) {
	data, err := os.ReadFile(Path)
	if err != nil {
		return Default(), nil
	}
	var p Prefs
	if err := json.Unmarshal(data, &p); err != nil {
		return Default(), nil
	}
	if p.WindowWidth < minWindowWidth || p.WindowHeight < minWindowHeight {
		def := Default()
		p.WindowWidth = def.WindowWidth
		p.WindowHeight = def.WindowHeight
	}
	return p, nil
}

// Save writes preferences to config/studio.json, creating the config
// directory if needed.
func Save(p Prefs) error {
	if err := os.MkdirAll(filepath.Dir(Path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(p, "", "\t")
	if err != nil {
		return err
	}
	return os.WriteFile(Path, data, 0644)
}
