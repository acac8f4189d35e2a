// Package workspace wires scene, selection, history, and the asset stack
// into the application operations the shells call.
package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	mst "github.com/flywave/go-mst"
	vec3d "github.com/flywave/go3d/float64/vec3"
	"github.com/google/uuid"

	"mesh-studio/internal/archive"
	"mesh-studio/internal/asset"
	"mesh-studio/internal/download"
	"mesh-studio/internal/history"
	"mesh-studio/internal/scene"
	"mesh-studio/internal/selection"
)

// Workspace owns one scene and everything operating on it. Like its parts it
// is single-goroutine: shells drive it from the frame loop or one apply loop.
type Workspace struct {
	sc        *scene.Scene
	mgr       *history.Manager
	sel       *selection.Selection
	sess      *selection.Session
	log       *slog.Logger
	importDir string
}

// New returns an empty workspace. A nil logger falls back to slog.Default();
// an empty importDir falls back to "imports".
func New(log *slog.Logger, importDir string) *Workspace {
	if log == nil {
		log = slog.Default()
	}
	if importDir == "" {
		importDir = "imports"
	}
	sc := scene.New()
	mgr := history.New(log)
	sel := selection.New(sc)
	return &Workspace{
		sc:        sc,
		mgr:       mgr,
		sel:       sel,
		sess:      selection.NewSession(sel, mgr),
		log:       log,
		importDir: importDir,
	}
}

// Scene returns the live scene.
func (w *Workspace) Scene() *scene.Scene { return w.sc }

// History returns the undo/redo manager.
func (w *Workspace) History() *history.Manager { return w.mgr }

// Selection returns the selection set.
func (w *Workspace) Selection() *selection.Selection { return w.sel }

// Session returns the gesture session shells drive during drags.
func (w *Workspace) Session() *selection.Session { return w.sess }

// decodeModel reads path into a fresh entity without touching the scene.
func decodeModel(path string) (*scene.Entity, error) {
	format, err := asset.Detect(path)
	if err != nil {
		return nil, err
	}
	dec := asset.DecoderFor(format)
	if dec == nil {
		return nil, fmt.Errorf("format %s is export-only", format)
	}
	mesh, bounds, err := dec.Decode(path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return scene.NewEntity(name, string(format), path, mesh, *bounds), nil
}

// LoadModel decodes path, adds the entity to the scene, and records the load
// so undo can take it back out.
func (w *Workspace) LoadModel(path string) (*scene.Entity, error) {
	e, err := decodeModel(path)
	if err != nil {
		return nil, err
	}
	w.insert(e)
	return e, nil
}

func (w *Workspace) insert(e *scene.Entity) {
	w.sc.AddEntity(e)
	w.mgr.Record(history.NewLoadCommand(w.sc, e))
	w.log.Info("model loaded", "name", e.Name, "format", e.Format, "handle", e.Handle)
}

// ImportURL downloads url into the import directory and loads the result.
// A zip download is extracted and every model file inside is loaded.
func (w *Workspace) ImportURL(url string) ([]*scene.Entity, error) {
	saved, err := download.Download(url, w.importDir)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(saved), ".zip") {
		return w.importArchive(saved)
	}
	e, err := w.LoadModel(saved)
	if err != nil {
		return nil, err
	}
	return []*scene.Entity{e}, nil
}

func (w *Workspace) importArchive(zipPath string) ([]*scene.Entity, error) {
	destDir := strings.TrimSuffix(zipPath, filepath.Ext(zipPath))
	extracted, err := archive.Extract(zipPath, destDir)
	if err != nil {
		return nil, err
	}
	models := archive.FilterModels(extracted)
	if len(models) == 0 {
		return nil, fmt.Errorf("archive %s contains no model files", filepath.Base(zipPath))
	}
	var out []*scene.Entity
	for _, p := range models {
		e, err := w.LoadModel(p)
		if err != nil {
			w.log.Warn("archived model skipped", "path", p, "error", err)
			continue
		}
		out = append(out, e)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no model in %s could be loaded", filepath.Base(zipPath))
	}
	return out, nil
}

// Remove deletes the entity with the given handle through an undoable
// command. False when the handle does not resolve.
func (w *Workspace) Remove(handle uuid.UUID) bool {
	e := w.sc.Get(handle)
	if e == nil {
		return false
	}
	return w.mgr.Execute(history.NewRemoveCommand(w.sc, e), false)
}

// RemoveSelected removes every selected entity, one undo entry each, and
// returns how many went.
func (w *Workspace) RemoveSelected() int {
	n := 0
	for _, e := range w.sel.Entities() {
		if w.mgr.Execute(history.NewRemoveCommand(w.sc, e), false) {
			n++
		}
	}
	return n
}

// Translate sets the selection's positions to values, one per selected
// entity in selection order.
func (w *Workspace) Translate(values []vec3d.T, mergeable bool) error {
	return w.transform(history.Position, values, mergeable)
}

// Rotate sets the selection's Euler rotations (degrees) to values.
func (w *Workspace) Rotate(values []vec3d.T, mergeable bool) error {
	return w.transform(history.Rotation, values, mergeable)
}

// Scale sets the selection's scales to values.
func (w *Workspace) Scale(values []vec3d.T, mergeable bool) error {
	return w.transform(history.Scale, values, mergeable)
}

// TranslateBy moves every selected entity by delta.
func (w *Workspace) TranslateBy(delta vec3d.T, mergeable bool) error {
	return w.transformBy(history.Position, delta, mergeable)
}

// RotateBy adds delta degrees to every selected entity's rotation.
func (w *Workspace) RotateBy(delta vec3d.T, mergeable bool) error {
	return w.transformBy(history.Rotation, delta, mergeable)
}

// ScaleBy multiplies every selected entity's scale by factor, per axis.
func (w *Workspace) ScaleBy(factor vec3d.T, mergeable bool) error {
	_, before := w.sel.Snapshot(history.Scale)
	values := make([]vec3d.T, len(before))
	for i, b := range before {
		values[i] = vec3d.T{b[0] * factor[0], b[1] * factor[1], b[2] * factor[2]}
	}
	return w.transform(history.Scale, values, mergeable)
}

func (w *Workspace) transformBy(ch history.Channel, delta vec3d.T, mergeable bool) error {
	_, before := w.sel.Snapshot(ch)
	values := make([]vec3d.T, len(before))
	for i, b := range before {
		values[i] = vec3d.T{b[0] + delta[0], b[1] + delta[1], b[2] + delta[2]}
	}
	return w.transform(ch, values, mergeable)
}

func (w *Workspace) transform(ch history.Channel, values []vec3d.T, mergeable bool) error {
	targets, before := w.sel.Snapshot(ch)
	cmd, err := history.NewTransformCommand(w.sc, targets, ch, before, values)
	if err != nil {
		return err
	}
	if mergeable {
		// The merge path never calls Execute; apply here so the scene moves
		// no matter which path the manager takes.
		if err := cmd.Execute(); err != nil {
			return err
		}
	}
	w.mgr.Execute(cmd, mergeable)
	return nil
}

// Export writes the selection (or the whole scene when nothing is selected)
// to path in the format its extension implies, baking entity transforms into
// the mesh data.
func (w *Workspace) Export(path string) error {
	format, err := asset.Detect(path)
	if err != nil {
		return err
	}
	enc := asset.EncoderFor(format)
	if enc == nil {
		return fmt.Errorf("format %s is import-only", format)
	}

	entities := w.sel.Entities()
	if len(entities) == 0 {
		entities = w.sc.Entities()
	}
	merged := mst.NewMesh()
	for _, e := range entities {
		if e.Mesh == nil {
			continue
		}
		clone := asset.CloneMesh(e.Mesh)
		m := e.Transform.Matrix()
		asset.BakeTransform(clone, &m)
		asset.Append(merged, clone)
	}
	if len(merged.Nodes) == 0 && len(merged.InstanceNode) == 0 {
		return errors.New("nothing to export")
	}
	if err := enc.Encode(path, merged); err != nil {
		return err
	}
	w.log.Info("exported", "path", path, "format", format, "entities", len(entities))
	return nil
}
