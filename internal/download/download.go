// Package download fetches model files over HTTP for the import workflow.
package download

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Some model hosts refuse requests without a browser user agent.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; rv:109.0) Gecko/20100101 Firefox/115.0"

var client = &http.Client{Timeout: 60 * time.Second}

// Download fetches rawURL and saves it under destDir, which is created when
// missing. The filename comes from Content-Disposition or the URL path; the
// extension stays when the importer recognizes it and is otherwise derived
// from the response media type. Returns the path of the saved file.
func Download(rawURL, destDir string) (string, error) {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download: HTTP %d", resp.StatusCode)
	}

	name := sanitizeFilename(deriveFilename(resp, rawURL))
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	dest := filepath.Join(destDir, name)
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = os.Remove(dest)
		return "", fmt.Errorf("download: %w", err)
	}
	return dest, nil
}

// knownExtensions covers the formats the asset package reads plus zip bundles
// and the texture images they may ship alongside.
var knownExtensions = map[string]bool{
	".stl": true, ".gltf": true, ".glb": true, ".3ds": true,
	".fbx": true, ".dae": true, ".mst": true, ".zip": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true,
}

// typeExtensions maps response media types to extensions for names that carry
// no usable one.
var typeExtensions = map[string]string{
	"model/gltf-binary":            ".glb",
	"model/gltf+json":              ".gltf",
	"model/stl":                    ".stl",
	"application/sla":              ".stl",
	"application/vnd.ms-pki.stl":   ".stl",
	"application/zip":              ".zip",
	"application/x-zip-compressed": ".zip",
	"image/png":                    ".png",
	"image/jpeg":                   ".jpg",
	"image/gif":                    ".gif",
	"image/tiff":                   ".tif",
}

// deriveFilename picks a base name and makes sure it ends in an extension the
// importer can dispatch on.
func deriveFilename(resp *http.Response, rawURL string) string {
	urlPath := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		urlPath = u.Path
	}

	name := dispositionFilename(resp.Header.Get("Content-Disposition"))
	if name == "" {
		name = path.Base(urlPath)
		if name == "." || name == "/" {
			name = "model"
		}
	}
	if knownExtensions[strings.ToLower(path.Ext(name))] {
		return name
	}

	ext := typeExtensions[mediaType(resp.Header.Get("Content-Type"))]
	if ext == "" {
		if e := strings.ToLower(path.Ext(urlPath)); knownExtensions[e] {
			ext = e
		} else {
			ext = ".bin"
		}
	}
	return strings.TrimSuffix(name, path.Ext(name)) + ext
}

// dispositionFilename extracts the filename parameter of a Content-Disposition
// header. mime.ParseMediaType decodes RFC 5987 filename* values too.
func dispositionFilename(cd string) string {
	if cd == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(cd)
	if err != nil {
		return ""
	}
	return params["filename"]
}

func mediaType(ct string) string {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return ""
	}
	return mt
}

var unsafeNameRe = regexp.MustCompile(`[^a-zA-Z0-9_.-]+`)

// sanitizeFilename collapses runs of unsafe characters to "_" and bounds the
// name length so arbitrary remote names cannot escape or clutter destDir.
func sanitizeFilename(name string) string {
	if name == "" {
		return "model"
	}
	name = unsafeNameRe.ReplaceAllString(name, "_")
	if len(name) > 96 {
		name = name[:96]
	}
	return name
}
