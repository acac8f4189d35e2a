package studioconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReturnsDefaultsWhenMissing(t *testing.T) {
	t.Chdir(t.TempDir())

	p, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), p)
	assert.NoFileExists(t, Path, "Load must not create the file")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Chdir(t.TempDir())

	want := Prefs{ShowFPS: true, GridVisible: true, WindowWidth: 1920, WindowHeight: 1080}
	require.NoError(t, Save(want))

	got, err := Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadRestoresDefaultWindowForBadSizes(t *testing.T) {
	t.Chdir(t.TempDir())

	require.NoError(t, os.MkdirAll(filepath.Dir(Path), 0755))
	require.NoError(t, os.WriteFile(Path, []byte(`{"grid_visible":true,"window_width":10,"window_height":10}`), 0644))

	p, err := Load()
	require.NoError(t, err)
	assert.True(t, p.GridVisible)
	assert.Equal(t, Default().WindowWidth, p.WindowWidth)
	assert.Equal(t, Default().WindowHeight, p.WindowHeight)
}

func TestLoadIgnoresCorruptFile(t *testing.T) {
	t.Chdir(t.TempDir())

	require.NoError(t, os.MkdirAll(filepath.Dir(Path), 0755))
	require.NoError(t, os.WriteFile(Path, []byte("{not json"), 0644))

	p, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), p)
}
