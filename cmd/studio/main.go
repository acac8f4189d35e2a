package main

import (
	_ "embed"
	"fmt"
	"log/slog"

	vec3d "github.com/flywave/go3d/float64/vec3"
	rl "github.com/gen2brain/raylib-go/raylib"

	"mesh-studio/internal/commands"
	"mesh-studio/internal/consolelog"
	"mesh-studio/internal/debug"
	"mesh-studio/internal/graphics"
	"mesh-studio/internal/scene"
	"mesh-studio/internal/studioconfig"
	"mesh-studio/internal/terminal"
	"mesh-studio/internal/ui"
	"mesh-studio/internal/viewer"
	"mesh-studio/internal/workspace"
)

//go:embed studio.css
var studioCSS string

// studio bundles everything the frame loop touches. All of it runs on the
// render goroutine.
type studio struct {
	log       *consolelog.Logger
	ws        *workspace.Workspace
	view      *viewer.Viewer
	term      *terminal.Terminal
	dbg       *debug.Debug
	engine    *ui.Engine
	inspector *ui.Inspector
	nodeCount int
	prefs     studioconfig.Prefs
}

func main() {
	prefs, _ := studioconfig.Load()

	s := &studio{
		log:       consolelog.New(),
		ws:        workspace.New(slog.Default(), "imports"),
		dbg:       debug.New(),
		engine:    ui.New(),
		inspector: ui.NewInspector(),
		prefs:     prefs,
	}
	s.view = viewer.New(s.ws)
	s.view.SetGridVisible(prefs.GridVisible)
	s.dbg.SetShowFPS(prefs.ShowFPS)
	s.dbg.SetShowMemAlloc(prefs.ShowMemAlloc)

	if sheet, err := ui.ParseCSS(studioCSS); err == nil {
		s.engine.SetStylesheet(sheet)
	}

	reg := commands.NewRegistry()
	s.registerCommands(reg)
	s.term = terminal.New(s.log, reg)

	s.log.Log("Mesh Studio ready. Press ESC for the console, \"cmd help\" lists commands.")
	graphics.Run("Mesh Studio", int32(prefs.WindowWidth), int32(prefs.WindowHeight), s.update, s.draw)
}

func (s *studio) update() {
	s.term.Update()
	s.handleHistoryKeys()
	s.view.Update(s.term.IsOpen())
	if rl.IsWindowResized() {
		s.prefs.WindowWidth = rl.GetScreenWidth()
		s.prefs.WindowHeight = rl.GetScreenHeight()
		s.savePrefs()
	}
}

// handleHistoryKeys binds Ctrl+Z / Ctrl+Shift+Z / Ctrl+Y (Cmd on macOS) to the
// history manager. The manager itself registers no input hooks.
func (s *studio) handleHistoryKeys() {
	ctrl := rl.IsKeyDown(rl.KeyLeftControl) || rl.IsKeyDown(rl.KeyRightControl) ||
		rl.IsKeyDown(rl.KeyLeftSuper) || rl.IsKeyDown(rl.KeyRightSuper)
	if !ctrl {
		return
	}
	shift := rl.IsKeyDown(rl.KeyLeftShift) || rl.IsKeyDown(rl.KeyRightShift)
	if rl.IsKeyPressed(rl.KeyZ) {
		if shift {
			s.redo()
		} else {
			s.undo()
		}
	}
	if rl.IsKeyPressed(rl.KeyY) {
		s.redo()
	}
}

func (s *studio) undo() {
	st := s.ws.History().State()
	if !st.CanUndo {
		s.log.Log("Nothing to undo")
		return
	}
	if s.ws.History().Undo() {
		s.log.Logf("Undid: %s", st.LastLabel)
	}
}

func (s *studio) redo() {
	mgr := s.ws.History()
	_, redoLabels := mgr.Labels()
	if len(redoLabels) == 0 {
		s.log.Log("Nothing to redo")
		return
	}
	if mgr.Redo() {
		s.log.Logf("Redid: %s", redoLabels[len(redoLabels)-1])
	}
}

func (s *studio) draw() {
	s.view.Draw()
	s.drawInspector()
	s.term.Draw()
	s.dbg.Draw()
}

// drawInspector rebuilds the inspector node list only when visibility flips;
// AppendNodes updates label text in place, so the engine's style cache stays
// warm while a selection is held.
func (s *studio) drawInspector() {
	sel, visible := s.inspectorSelection()
	nodes := s.inspector.AppendNodes(nil, visible, sel)
	if len(nodes) != s.nodeCount {
		s.engine.SetNodes(nodes)
		s.nodeCount = len(nodes)
	}
	s.engine.Draw()
}

// inspectorSelection summarizes the first selected entity for the panel.
func (s *studio) inspectorSelection() (ui.Selection, bool) {
	ents := s.ws.Selection().Entities()
	if len(ents) == 0 {
		return ui.Selection{}, false
	}
	e := ents[0]
	box := scene.WorldBounds(e)
	size := vec3d.Sub(&box.Max, &box.Min)
	st := s.ws.History().State()
	return ui.Selection{
		Name:      e.Name,
		Format:    e.Format,
		Triangles: e.TriangleCount(),
		Position:  [3]float64(e.Transform.Position),
		Rotation:  [3]float64(e.Transform.Rotation),
		Scale:     [3]float64(e.Transform.Scale),
		Size:      [3]float64(size),
		Count:     len(ents),
		History:   fmt.Sprintf("undo %d / redo %d", st.UndoCount, st.RedoCount),
	}, true
}
