// Package archive packs and unpacks the zip bundles the workspace moves
// around: imported model archives and packed workspaces.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Extract unpacks zipPath into destDir, preserving directory structure.
// Entries that would escape destDir are skipped. destDir is created if
// needed. Returns the list of extracted file paths.
func Extract(zipPath, destDir string) (extracted []string, err error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("unpack: %w", err)
	}
	defer r.Close()
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("unpack: %w", err)
	}
	absDir, err := filepath.Abs(destDir)
	if err != nil {
		return nil, fmt.Errorf("unpack: %w", err)
	}
	for _, f := range r.File {
		dest := filepath.Clean(filepath.Join(destDir, f.Name))
		absDest, err := filepath.Abs(dest)
		if err != nil {
			return nil, fmt.Errorf("unpack: %w", err)
		}
		if !strings.HasPrefix(absDest, absDir+string(os.PathSeparator)) && absDest != absDir {
			continue // path escape
		}
		if f.FileInfo().IsDir() {
			_ = os.MkdirAll(dest, 0755)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return nil, fmt.Errorf("unpack: %w", err)
		}
		if err := extractOne(f, dest); err != nil {
			return nil, fmt.Errorf("unpack %s: %w", f.Name, err)
		}
		extracted = append(extracted, dest)
	}
	return extracted, nil
}

func extractOne(f *zip.File, dest string) error {
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		out.Close()
		return err
	}
	_, err = io.Copy(out, rc)
	rc.Close()
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return err
}

// modelExtensions are the file types Extract results are filtered by when an
// archive is imported as a model bundle.
var modelExtensions = map[string]bool{
	".stl": true, ".gltf": true, ".glb": true, ".3ds": true,
	".fbx": true, ".dae": true, ".mst": true,
}

// FilterModels returns the subset of paths that look like model files, in
// their original order.
func FilterModels(paths []string) []string {
	var out []string
	for _, p := range paths {
		if modelExtensions[strings.ToLower(filepath.Ext(p))] {
			out = append(out, p)
		}
	}
	return out
}

// Create writes a zip at zipPath containing the given in-memory payloads and
// copies of existing files, both keyed by archive name. Entries are written
// in sorted name order so identical inputs produce identical archives.
func Create(zipPath string, payloads map[string][]byte, files map[string]string) error {
	out, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("pack: %w", err)
	}
	w := zip.NewWriter(out)

	names := make([]string, 0, len(payloads)+len(files))
	for name := range payloads {
		names = append(names, name)
	}
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry, err := w.Create(name)
		if err != nil {
			w.Close()
			out.Close()
			return fmt.Errorf("pack %s: %w", name, err)
		}
		if data, ok := payloads[name]; ok {
			if _, err := entry.Write(data); err != nil {
				w.Close()
				out.Close()
				return fmt.Errorf("pack %s: %w", name, err)
			}
			continue
		}
		src, err := os.Open(files[name])
		if err != nil {
			w.Close()
			out.Close()
			return fmt.Errorf("pack %s: %w", name, err)
		}
		_, err = io.Copy(entry, src)
		src.Close()
		if err != nil {
			w.Close()
			out.Close()
			return fmt.Errorf("pack %s: %w", name, err)
		}
	}
	if err := w.Close(); err != nil {
		out.Close()
		return fmt.Errorf("pack: %w", err)
	}
	return out.Close()
}
