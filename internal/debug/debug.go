// Package debug draws the performance readout in the top-right corner of the
// studio window.
package debug

import (
	"fmt"
	"runtime"

	rl "github.com/gen2brain/raylib-go/raylib"
)

const (
	fontSize = 20
	margin   = 12
	// Refresh runs on a timer so ReadMemStats and Sprintf stay off the
	// per-frame path.
	refreshEvery = 0.5 // seconds
)

// Debug draws optional stat lines stacked in the top-right corner. All lines
// are off until enabled, usually from saved preferences or a console command.
type Debug struct {
	ShowFPS      bool
	ShowMemAlloc bool

	lastRefresh float64
	fpsLine     string
	memLine     string
	memStats    runtime.MemStats
}

// New returns a Debug with every readout hidden.
func New() *Debug {
	return &Debug{}
}

// SetShowFPS toggles the frame rate line.
func (d *Debug) SetShowFPS(show bool) {
	d.ShowFPS = show
}

// SetShowMemAlloc toggles the heap allocation line.
func (d *Debug) SetShowMemAlloc(show bool) {
	d.ShowMemAlloc = show
}

// Draw renders the enabled readouts. Call last in the draw loop so the text
// sits above the scene and console.
func (d *Debug) Draw() {
	if !d.ShowFPS && !d.ShowMemAlloc {
		return
	}
	if now := rl.GetTime(); now-d.lastRefresh >= refreshEvery || d.fpsLine == "" {
		d.refresh()
		d.lastRefresh = now
	}

	y := int32(margin)
	if d.ShowFPS {
		d.drawLine(d.fpsLine, y)
		y += fontSize + 4
	}
	if d.ShowMemAlloc {
		d.drawLine(d.memLine, y)
	}
}

func (d *Debug) refresh() {
	d.fpsLine = fmt.Sprintf("FPS: %d", rl.GetFPS())
	runtime.ReadMemStats(&d.memStats)
	d.memLine = fmt.Sprintf("Mem: %.2f MiB", float64(d.memStats.Alloc)/(1024*1024))
}

func (d *Debug) drawLine(text string, y int32) {
	x := int32(rl.GetScreenWidth()) - rl.MeasureText(text, fontSize) - margin
	rl.DrawText(text, x, y, fontSize, rl.Green)
}
