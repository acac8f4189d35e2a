package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	vec3d "github.com/flywave/go3d/float64/vec3"
	"github.com/jinzhu/copier"
	"gopkg.in/yaml.v3"

	"mesh-studio/internal/archive"
)

// manifestName is the file Save writes and Pack embeds at the archive root.
const manifestName = "workspace.yaml"

// Manifest is the saved form of a workspace: where each model came from and
// where it sits now. Mesh data stays in the source files; Open re-decodes
// them.
type Manifest struct {
	Version  int             `yaml:"version"`
	Entities []ManifestEntry `yaml:"entities"`
}

// ManifestEntry mirrors the entity fields worth persisting. Name, Format and
// SourcePath map straight off scene.Entity; the transform channels are
// flattened alongside.
type ManifestEntry struct {
	Name       string  `yaml:"name"`
	Format     string  `yaml:"format"`
	SourcePath string  `yaml:"source"`
	Position   vec3d.T `yaml:"position,flow"`
	Rotation   vec3d.T `yaml:"rotation,flow"`
	Scale      vec3d.T `yaml:"scale,flow"`
}

func (w *Workspace) manifest() *Manifest {
	m := &Manifest{Version: 1}
	for _, e := range w.sc.Entities() {
		var entry ManifestEntry
		if err := copier.Copy(&entry, e); err != nil {
			w.log.Warn("manifest entry fallback", "name", e.Name, "error", err)
			entry.Name, entry.Format, entry.SourcePath = e.Name, e.Format, e.SourcePath
		}
		entry.Position = e.Transform.Position
		entry.Rotation = e.Transform.Rotation
		entry.Scale = e.Transform.Scale
		m.Entities = append(m.Entities, entry)
	}
	return m
}

// Save writes the workspace manifest as YAML.
func (w *Workspace) Save(path string) error {
	m := w.manifest()
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("save workspace: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("save workspace: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("save workspace: %w", err)
	}
	w.log.Info("workspace saved", "path", path, "entities", len(m.Entities))
	return nil
}

// Open replaces the current workspace with the manifest at path. A .zip path
// is treated as a packed workspace and extracted next to itself first.
// Scene, selection, and history reset; every manifest entry is re-decoded
// from its source file and recorded as a fresh load with its saved transform.
// Entries whose source cannot be decoded are skipped; the first such error
// is returned after the rest have loaded.
func (w *Workspace) Open(path string) error {
	baseDir := filepath.Dir(path)
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		destDir := strings.TrimSuffix(path, filepath.Ext(path))
		if _, err := archive.Extract(path, destDir); err != nil {
			return err
		}
		baseDir = destDir
		path = filepath.Join(destDir, manifestName)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("open workspace: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("open workspace: %w", err)
	}

	w.sc.Clear()
	w.sel.Clear()
	w.mgr.Clear()

	var firstErr error
	for _, entry := range m.Entities {
		src := entry.SourcePath
		// Packed manifests reference models relative to the archive root;
		// plain ones keep whatever path the model was loaded from.
		if !filepath.IsAbs(src) {
			if joined := filepath.Join(baseDir, src); fileExists(joined) {
				src = joined
			}
		}
		e, err := decodeModel(src)
		if err != nil {
			w.log.Warn("workspace entry skipped", "name", entry.Name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if entry.Name != "" {
			e.Name = entry.Name
		}
		e.Transform.Position = entry.Position
		e.Transform.Rotation = entry.Rotation
		e.Transform.Scale = entry.Scale
		if e.Transform.Scale == (vec3d.T{}) {
			e.Transform.Scale = vec3d.T{1, 1, 1}
		}
		w.insert(e)
	}
	return firstErr
}

// Pack writes a portable zip: the manifest plus a copy of every source model
// file under models/. Source paths inside the packed manifest are rewritten
// to those archive-relative copies.
func (w *Workspace) Pack(path string) error {
	m := w.manifest()
	if len(m.Entities) == 0 {
		return errors.New("nothing to pack")
	}
	files := make(map[string]string, len(m.Entities))
	for i := range m.Entities {
		src := m.Entities[i].SourcePath
		arc := filepath.ToSlash(filepath.Join("models", filepath.Base(src)))
		if prev, ok := files[arc]; ok && prev != src {
			arc = filepath.ToSlash(filepath.Join("models", fmt.Sprintf("%d-%s", i, filepath.Base(src))))
		}
		files[arc] = src
		m.Entities[i].SourcePath = arc
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("pack workspace: %w", err)
	}
	if err := archive.Create(path, map[string][]byte{manifestName: data}, files); err != nil {
		return err
	}
	w.log.Info("workspace packed", "path", path, "models", len(files))
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
