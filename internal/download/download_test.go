package download

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadUsesContentDisposition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/sla")
		w.Header().Set("Content-Disposition", `attachment; filename="bunny.stl"`)
		_, _ = w.Write([]byte("solid bunny"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	saved, err := Download(srv.URL+"/fetch", dir)
	require.NoError(t, err)
	assert.Equal(t, "bunny.stl", filepath.Base(saved))
	data, err := os.ReadFile(saved)
	require.NoError(t, err)
	assert.Equal(t, "solid bunny", string(data))
}

func TestDownloadExtensionFromContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "model/gltf-binary")
		_, _ = w.Write([]byte("glTF"))
	}))
	defer srv.Close()

	saved, err := Download(srv.URL+"/assets/rocket?token=abc", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "rocket.glb", filepath.Base(saved))
}

func TestDownloadKeepsKnownURLExtension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte{0x80})
	}))
	defer srv.Close()

	saved, err := Download(srv.URL+"/parts/bracket.3ds", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "bracket.3ds", filepath.Base(saved))
}

func TestDownloadHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := Download(srv.URL+"/missing.stl", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "my_model_v2.stl", sanitizeFilename("my model/v2.stl"))
	assert.Equal(t, "model", sanitizeFilename(""))
}
