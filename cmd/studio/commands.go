package main

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	vec3d "github.com/flywave/go3d/float64/vec3"

	"mesh-studio/internal/commands"
	"mesh-studio/internal/scene"
	"mesh-studio/internal/studioconfig"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// registerCommands wires every console subcommand. The closures run on the
// render goroutine (terminal input handling), so they may touch the workspace
// directly.
func (s *studio) registerCommands(reg *commands.Registry) {
	s.registerModelCommands(reg)
	s.registerSelectionCommands(reg)
	s.registerTransformCommands(reg)
	s.registerHistoryCommands(reg)
	s.registerWorkspaceCommands(reg)
	s.registerViewCommands(reg)

	helpFS := newFlagSet("help")
	reg.Register("help", "list every command", helpFS, func() error {
		for _, line := range reg.Help() {
			s.log.Log(line)
		}
		return nil
	})
}

func (s *studio) registerModelCommands(reg *commands.Registry) {
	loadFS := newFlagSet("load")
	reg.Register("load", "load a model file into the scene", loadFS, func() error {
		if loadFS.NArg() != 1 {
			return fmt.Errorf("usage: cmd load <path>")
		}
		e, err := s.ws.LoadModel(loadFS.Arg(0))
		if err != nil {
			return err
		}
		s.log.Logf("Loaded %s (%s, %d triangles)", e.Name, e.Format, e.TriangleCount())
		if s.ws.Scene().Len() == 1 {
			s.view.FrameScene()
		}
		return nil
	})

	importFS := newFlagSet("import")
	reg.Register("import", "download a model by URL and load it", importFS, func() error {
		if importFS.NArg() != 1 {
			return fmt.Errorf("usage: cmd import <url>")
		}
		first := s.ws.Scene().Len() == 0
		ents, err := s.ws.ImportURL(importFS.Arg(0))
		if err != nil {
			return err
		}
		for _, e := range ents {
			s.log.Logf("Imported %s (%s, %d triangles)", e.Name, e.Format, e.TriangleCount())
		}
		if first {
			s.view.FrameScene()
		}
		return nil
	})

	removeFS := newFlagSet("remove")
	reg.Register("remove", "remove the selection, or entities by index or name", removeFS, func() error {
		args := removeFS.Args()
		switch {
		case len(args) == 0:
			n := s.ws.RemoveSelected()
			if n == 0 {
				return fmt.Errorf("nothing selected; usage: cmd remove [index|name|all]")
			}
			s.log.Logf("Removed %d entities", n)
		case len(args) == 1 && args[0] == "all":
			n := 0
			for _, e := range s.ws.Scene().Entities() {
				if s.ws.Remove(e.Handle) {
					n++
				}
			}
			s.log.Logf("Removed %d entities", n)
		default:
			for _, tok := range args {
				e, err := s.findEntity(tok)
				if err != nil {
					return err
				}
				if s.ws.Remove(e.Handle) {
					s.log.Logf("Removed %s", e.Name)
				}
			}
		}
		return nil
	})

	listFS := newFlagSet("list")
	reg.Register("list", "list the scene's entities", listFS, func() error {
		sc := s.ws.Scene()
		if sc.Len() == 0 {
			s.log.Log("Scene is empty")
			return nil
		}
		sel := s.ws.Selection()
		for i, e := range sc.Entities() {
			mark := ""
			if sel.Contains(e.Handle) {
				mark = "  [selected]"
			}
			s.log.Logf("%d: %s (%s, %d triangles)%s", i, e.Name, e.Format, e.TriangleCount(), mark)
		}
		return nil
	})
}

func (s *studio) registerSelectionCommands(reg *commands.Registry) {
	selectFS := newFlagSet("select")
	selectAdd := selectFS.Bool("add", false, "add to the selection instead of replacing it")
	reg.Register("select", "select entities by index or name", selectFS, func() error {
		sel := s.ws.Selection()
		args := selectFS.Args()
		if len(args) == 1 && args[0] == "none" {
			sel.Clear()
			s.log.Log("Selection cleared")
			return nil
		}
		if len(args) == 1 && args[0] == "all" {
			sel.Clear()
			for _, e := range s.ws.Scene().Entities() {
				sel.Add(e.Handle)
			}
			s.log.Logf("Selected %d entities", sel.Len())
			return nil
		}
		if len(args) == 0 {
			return fmt.Errorf("usage: cmd select [-add] <index|name|all|none>")
		}
		if !*selectAdd {
			sel.Clear()
		}
		for _, tok := range args {
			e, err := s.findEntity(tok)
			if err != nil {
				return err
			}
			sel.Add(e.Handle)
		}
		s.log.Logf("Selected %d entities", sel.Len())
		return nil
	})
}

func (s *studio) registerTransformCommands(reg *commands.Registry) {
	moveFS := newFlagSet("move")
	moveBy := moveFS.Bool("by", false, "move relative to the current position")
	reg.Register("move", "set or offset the selection's position", moveFS, func() error {
		v, err := parseVec3(moveFS.Args(), "cmd move [-by] x y z")
		if err != nil {
			return err
		}
		if err := s.requireSelection(); err != nil {
			return err
		}
		if *moveBy {
			if err := s.ws.TranslateBy(v, false); err != nil {
				return err
			}
			s.log.Logf("Moved selection by %.2f, %.2f, %.2f", v[0], v[1], v[2])
			return nil
		}
		if err := s.setChannel(s.ws.Translate, v); err != nil {
			return err
		}
		s.log.Logf("Position set to %.2f, %.2f, %.2f", v[0], v[1], v[2])
		return nil
	})

	rotateFS := newFlagSet("rotate")
	rotateBy := rotateFS.Bool("by", false, "rotate relative to the current angles")
	reg.Register("rotate", "set or offset the selection's rotation", rotateFS, func() error {
		v, err := parseVec3(rotateFS.Args(), "cmd rotate [-by] x y z")
		if err != nil {
			return err
		}
		if err := s.requireSelection(); err != nil {
			return err
		}
		if *rotateBy {
			if err := s.ws.RotateBy(v, false); err != nil {
				return err
			}
			s.log.Logf("Rotated selection by %.1f, %.1f, %.1f degrees", v[0], v[1], v[2])
			return nil
		}
		if err := s.setChannel(s.ws.Rotate, v); err != nil {
			return err
		}
		s.log.Logf("Rotation set to %.1f, %.1f, %.1f degrees", v[0], v[1], v[2])
		return nil
	})

	scaleFS := newFlagSet("scale")
	scaleBy := scaleFS.Bool("by", false, "multiply the current scale per axis")
	reg.Register("scale", "set or multiply the selection's scale", scaleFS, func() error {
		v, err := parseVec3(scaleFS.Args(), "cmd scale [-by] x y z")
		if err != nil {
			return err
		}
		if err := s.requireSelection(); err != nil {
			return err
		}
		if *scaleBy {
			if err := s.ws.ScaleBy(v, false); err != nil {
				return err
			}
			s.log.Logf("Scaled selection by %.2f, %.2f, %.2f", v[0], v[1], v[2])
			return nil
		}
		if err := s.setChannel(s.ws.Scale, v); err != nil {
			return err
		}
		s.log.Logf("Scale set to %.2f, %.2f, %.2f", v[0], v[1], v[2])
		return nil
	})
}

func (s *studio) registerHistoryCommands(reg *commands.Registry) {
	reg.Register("undo", "undo the last edit", newFlagSet("undo"), func() error {
		s.undo()
		return nil
	})

	reg.Register("redo", "redo the last undone edit", newFlagSet("redo"), func() error {
		s.redo()
		return nil
	})

	reg.Register("history", "print the undo and redo stacks", newFlagSet("history"), func() error {
		undoLabels, redoLabels := s.ws.History().Labels()
		if len(undoLabels) == 0 && len(redoLabels) == 0 {
			s.log.Log("History is empty")
			return nil
		}
		if len(undoLabels) > 0 {
			s.log.Logf("Undo stack (%d, next on top):", len(undoLabels))
			for i := len(undoLabels) - 1; i >= 0; i-- {
				s.log.Logf("  %s", undoLabels[i])
			}
		}
		if len(redoLabels) > 0 {
			s.log.Logf("Redo stack (%d, next on top):", len(redoLabels))
			for i := len(redoLabels) - 1; i >= 0; i-- {
				s.log.Logf("  %s", redoLabels[i])
			}
		}
		return nil
	})
}

func (s *studio) registerWorkspaceCommands(reg *commands.Registry) {
	exportFS := newFlagSet("export")
	reg.Register("export", "write the scene to a model file", exportFS, func() error {
		if exportFS.NArg() != 1 {
			return fmt.Errorf("usage: cmd export <path>")
		}
		if err := s.ws.Export(exportFS.Arg(0)); err != nil {
			return err
		}
		s.log.Logf("Exported to %s", exportFS.Arg(0))
		return nil
	})

	saveFS := newFlagSet("save")
	reg.Register("save", "save the workspace manifest", saveFS, func() error {
		if saveFS.NArg() != 1 {
			return fmt.Errorf("usage: cmd save <path>")
		}
		if err := s.ws.Save(saveFS.Arg(0)); err != nil {
			return err
		}
		s.log.Logf("Workspace saved to %s", saveFS.Arg(0))
		return nil
	})

	openFS := newFlagSet("open")
	reg.Register("open", "open a saved workspace", openFS, func() error {
		if openFS.NArg() != 1 {
			return fmt.Errorf("usage: cmd open <path>")
		}
		if err := s.ws.Open(openFS.Arg(0)); err != nil {
			return err
		}
		s.log.Logf("Workspace opened: %d entities", s.ws.Scene().Len())
		s.view.FrameScene()
		return nil
	})

	packFS := newFlagSet("pack")
	reg.Register("pack", "zip the workspace into a bundle", packFS, func() error {
		if packFS.NArg() != 1 {
			return fmt.Errorf("usage: cmd pack <path.zip>")
		}
		if err := s.ws.Pack(packFS.Arg(0)); err != nil {
			return err
		}
		s.log.Logf("Workspace packed to %s", packFS.Arg(0))
		return nil
	})

	reg.Register("clear", "empty the scene and history", newFlagSet("clear"), func() error {
		s.ws.Scene().Clear()
		s.ws.Selection().Clear()
		s.ws.History().Clear()
		s.log.Log("Scene cleared")
		return nil
	})
}

func (s *studio) registerViewCommands(reg *commands.Registry) {
	gridFS := newFlagSet("grid")
	reg.Register("grid", "show or hide the ground grid", gridFS, func() error {
		on, err := parseOnOff(gridFS.Args(), "cmd grid on|off")
		if err != nil {
			return err
		}
		s.view.SetGridVisible(on)
		s.prefs.GridVisible = on
		s.savePrefs()
		s.log.Logf("Grid %s", onOff(on))
		return nil
	})

	fpsFS := newFlagSet("fps")
	reg.Register("fps", "show or hide the FPS readout", fpsFS, func() error {
		on, err := parseOnOff(fpsFS.Args(), "cmd fps on|off")
		if err != nil {
			return err
		}
		s.dbg.SetShowFPS(on)
		s.prefs.ShowFPS = on
		s.savePrefs()
		s.log.Logf("FPS overlay %s", onOff(on))
		return nil
	})

	memFS := newFlagSet("mem")
	reg.Register("mem", "show or hide the heap readout", memFS, func() error {
		on, err := parseOnOff(memFS.Args(), "cmd mem on|off")
		if err != nil {
			return err
		}
		s.dbg.SetShowMemAlloc(on)
		s.prefs.ShowMemAlloc = on
		s.savePrefs()
		s.log.Logf("Memory overlay %s", onOff(on))
		return nil
	})

	reg.Register("frame", "frame the scene in view", newFlagSet("frame"), func() error {
		s.view.FrameScene()
		s.log.Log("View framed")
		return nil
	})
}

func (s *studio) savePrefs() {
	if err := studioconfig.Save(s.prefs); err != nil {
		s.log.Logf("Preferences not saved: %v", err)
	}
}

// setChannel applies one absolute value to every selected entity through fn
// (Translate, Rotate, or Scale).
func (s *studio) setChannel(fn func([]vec3d.T, bool) error, v vec3d.T) error {
	n := len(s.ws.Selection().Entities())
	values := make([]vec3d.T, n)
	for i := range values {
		values[i] = v
	}
	return fn(values, false)
}

func (s *studio) requireSelection() error {
	if len(s.ws.Selection().Entities()) == 0 {
		return fmt.Errorf("nothing selected; use cmd select first")
	}
	return nil
}

// findEntity resolves a console token to an entity: a number is a scene
// index, anything else matches names case-insensitively.
func (s *studio) findEntity(token string) (*scene.Entity, error) {
	sc := s.ws.Scene()
	if idx, err := strconv.Atoi(token); err == nil {
		if e := sc.At(idx); e != nil {
			return e, nil
		}
		return nil, fmt.Errorf("no entity at index %d", idx)
	}
	for _, e := range sc.Entities() {
		if strings.EqualFold(e.Name, token) {
			return e, nil
		}
	}
	return nil, fmt.Errorf("no entity named %q", token)
}

func parseVec3(args []string, usage string) (vec3d.T, error) {
	if len(args) != 3 {
		return vec3d.T{}, fmt.Errorf("usage: %s", usage)
	}
	var v vec3d.T
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return vec3d.T{}, fmt.Errorf("bad coordinate %q", a)
		}
		v[i] = f
	}
	return v, nil
}

func parseOnOff(args []string, usage string) (bool, error) {
	if len(args) != 1 {
		return false, fmt.Errorf("usage: %s", usage)
	}
	switch args[0] {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, fmt.Errorf("usage: %s", usage)
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
