package archive

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateExtractRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "tri.stl")
	require.NoError(t, os.WriteFile(src, []byte("solid tri"), 0644))

	zipPath := filepath.Join(dir, "bundle.zip")
	err := Create(zipPath,
		map[string][]byte{"workspace.yaml": []byte("entities: []\n")},
		map[string]string{"models/tri.stl": src})
	require.NoError(t, err)

	dest := filepath.Join(dir, "out")
	extracted, err := Extract(zipPath, dest)
	require.NoError(t, err)
	require.Len(t, extracted, 2)

	data, err := os.ReadFile(filepath.Join(dest, "models", "tri.stl"))
	require.NoError(t, err)
	assert.Equal(t, "solid tri", string(data))
	data, err = os.ReadFile(filepath.Join(dest, "workspace.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "entities: []\n", string(data))
}

func TestExtractSkipsEscapingEntries(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "evil.zip")
	out, err := os.Create(zipPath)
	require.NoError(t, err)
	w := zip.NewWriter(out)
	entry, err := w.Create("../escape.txt")
	require.NoError(t, err)
	_, err = entry.Write([]byte("nope"))
	require.NoError(t, err)
	entry, err = w.Create("ok.txt")
	require.NoError(t, err)
	_, err = entry.Write([]byte("fine"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, out.Close())

	dest := filepath.Join(dir, "unpacked")
	extracted, err := Extract(zipPath, dest)
	require.NoError(t, err)
	require.Len(t, extracted, 1)
	assert.Equal(t, filepath.Join(dest, "ok.txt"), extracted[0])
	_, err = os.Stat(filepath.Join(dir, "escape.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestFilterModels(t *testing.T) {
	got := FilterModels([]string{
		"a/cube.STL",
		"readme.txt",
		"b/scene.glb",
		"tex.png",
		"ship.fbx",
	})
	assert.Equal(t, []string{"a/cube.STL", "b/scene.glb", "ship.fbx"}, got)
}
