package workspace

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	mst "github.com/flywave/go-mst"
	vec3d "github.com/flywave/go3d/float64/vec3"
	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mesh-studio/internal/asset"
	"mesh-studio/internal/history"
)

func quietWorkspace(t *testing.T) *Workspace {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(log, filepath.Join(t.TempDir(), "imports"))
}

// writeTriangleSTL writes a one-triangle STL file and returns its path.
func writeTriangleSTL(t *testing.T, dir, name string) string {
	t.Helper()
	m := mst.NewMesh()
	mtl := &mst.BaseMaterial{Color: [3]byte{200, 200, 200}}
	m.Materials = append(m.Materials, mtl)
	m.Nodes = append(m.Nodes, &mst.MeshNode{
		Vertices:  []vec3.T{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Normals:   []vec3.T{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		TexCoords: []vec2.T{{0, 0}, {1, 0}, {0, 1}},
		FaceGroup: []*mst.MeshTriangle{{
			Faces: []*mst.Face{{Vertex: [3]uint32{0, 1, 2}}},
		}},
	})
	path := filepath.Join(dir, name)
	require.NoError(t, asset.EncoderFor(asset.FormatSTL).Encode(path, m))
	return path
}

func TestLoadModelIsUndoable(t *testing.T) {
	w := quietWorkspace(t)
	path := writeTriangleSTL(t, t.TempDir(), "tri.stl")

	e, err := w.LoadModel(path)
	require.NoError(t, err)
	assert.Equal(t, "tri", e.Name)
	assert.Equal(t, "stl", e.Format)
	assert.Equal(t, 1, w.Scene().Len())
	assert.Equal(t, 1, w.History().UndoCount())

	require.True(t, w.History().Undo())
	assert.Equal(t, 0, w.Scene().Len())

	require.True(t, w.History().Redo())
	require.Equal(t, 1, w.Scene().Len())
	assert.Equal(t, e.Handle, w.Scene().At(0).Handle)
}

func TestLoadModelRejectsUnknownExtension(t *testing.T) {
	w := quietWorkspace(t)
	_, err := w.LoadModel("notes.txt")
	require.Error(t, err)
	assert.Equal(t, 0, w.Scene().Len())
}

func TestRemoveSelectedOneEntryEach(t *testing.T) {
	w := quietWorkspace(t)
	dir := t.TempDir()
	a, err := w.LoadModel(writeTriangleSTL(t, dir, "a.stl"))
	require.NoError(t, err)
	b, err := w.LoadModel(writeTriangleSTL(t, dir, "b.stl"))
	require.NoError(t, err)
	require.True(t, w.Selection().Add(a.Handle))
	require.True(t, w.Selection().Add(b.Handle))

	assert.Equal(t, 2, w.RemoveSelected())
	assert.Equal(t, 0, w.Scene().Len())
	assert.Equal(t, 4, w.History().UndoCount(), "2 loads + 2 removals")

	require.True(t, w.History().Undo())
	require.True(t, w.History().Undo())
	assert.Equal(t, 2, w.Scene().Len())
}

func TestTransformByAppliesAndUndoes(t *testing.T) {
	w := quietWorkspace(t)
	e, err := w.LoadModel(writeTriangleSTL(t, t.TempDir(), "tri.stl"))
	require.NoError(t, err)
	require.True(t, w.Selection().Add(e.Handle))

	require.NoError(t, w.TranslateBy(vec3d.T{5, 0, 0}, false))
	require.NoError(t, w.ScaleBy(vec3d.T{2, 2, 2}, false))
	assert.Equal(t, vec3d.T{5, 0, 0}, e.Transform.Position)
	assert.Equal(t, vec3d.T{2, 2, 2}, e.Transform.Scale)

	require.True(t, w.History().Undo())
	assert.Equal(t, vec3d.T{1, 1, 1}, e.Transform.Scale)
	require.True(t, w.History().Undo())
	assert.Equal(t, vec3d.T{0, 0, 0}, e.Transform.Position)
}

func TestTransformRequiresSelection(t *testing.T) {
	w := quietWorkspace(t)
	_, err := w.LoadModel(writeTriangleSTL(t, t.TempDir(), "tri.stl"))
	require.NoError(t, err)

	err = w.TranslateBy(vec3d.T{1, 0, 0}, false)
	var verr *history.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestMergeableTranslatesFold(t *testing.T) {
	w := quietWorkspace(t)
	e, err := w.LoadModel(writeTriangleSTL(t, t.TempDir(), "tri.stl"))
	require.NoError(t, err)
	require.True(t, w.Selection().Add(e.Handle))

	require.NoError(t, w.Translate([]vec3d.T{{1, 0, 0}}, true))
	require.NoError(t, w.Translate([]vec3d.T{{2, 0, 0}}, true))
	require.NoError(t, w.Translate([]vec3d.T{{3, 0, 0}}, true))

	assert.Equal(t, vec3d.T{3, 0, 0}, e.Transform.Position)
	assert.Equal(t, 2, w.History().UndoCount(), "load + one folded move")

	require.True(t, w.History().Undo())
	assert.Equal(t, vec3d.T{0, 0, 0}, e.Transform.Position)
}

func TestExportBakesTransformAndHonorsSelection(t *testing.T) {
	w := quietWorkspace(t)
	dir := t.TempDir()
	a, err := w.LoadModel(writeTriangleSTL(t, dir, "a.stl"))
	require.NoError(t, err)
	_, err = w.LoadModel(writeTriangleSTL(t, dir, "b.stl"))
	require.NoError(t, err)

	require.True(t, w.Selection().Add(a.Handle))
	require.NoError(t, w.TranslateBy(vec3d.T{5, 0, 0}, false))

	out := filepath.Join(dir, "out.glb")
	require.NoError(t, w.Export(out))

	got, bounds, err := asset.DecoderFor(asset.FormatGLB).Decode(out)
	require.NoError(t, err)
	require.Len(t, got.Nodes, 1, "only the selected entity exports")
	assert.InDelta(t, 5, bounds[0], 1e-5, "translation baked into vertices")
	assert.InDelta(t, 6, bounds[3], 1e-5)

	// The live mesh must keep its local coordinates.
	assert.Equal(t, float32(0), a.Mesh.Nodes[0].Vertices[0][0])
}

func TestExportEmptySceneFails(t *testing.T) {
	w := quietWorkspace(t)
	err := w.Export(filepath.Join(t.TempDir(), "out.stl"))
	require.Error(t, err)
}

func TestExportImportOnlyFormatFails(t *testing.T) {
	w := quietWorkspace(t)
	_, err := w.LoadModel(writeTriangleSTL(t, t.TempDir(), "tri.stl"))
	require.NoError(t, err)
	err = w.Export(filepath.Join(t.TempDir(), "out.fbx"))
	require.Error(t, err)
}

func TestSaveOpenRoundTrip(t *testing.T) {
	w := quietWorkspace(t)
	dir := t.TempDir()
	e, err := w.LoadModel(writeTriangleSTL(t, dir, "tri.stl"))
	require.NoError(t, err)
	require.True(t, w.Selection().Add(e.Handle))
	require.NoError(t, w.TranslateBy(vec3d.T{1, 2, 3}, false))
	require.NoError(t, w.RotateBy(vec3d.T{0, 90, 0}, false))

	manifest := filepath.Join(dir, "ws.yaml")
	require.NoError(t, w.Save(manifest))

	w2 := quietWorkspace(t)
	require.NoError(t, w2.Open(manifest))
	require.Equal(t, 1, w2.Scene().Len())
	got := w2.Scene().At(0)
	assert.Equal(t, "tri", got.Name)
	assert.Equal(t, vec3d.T{1, 2, 3}, got.Transform.Position)
	assert.Equal(t, vec3d.T{0, 90, 0}, got.Transform.Rotation)
	assert.Equal(t, vec3d.T{1, 1, 1}, got.Transform.Scale)
	assert.Equal(t, 1, w2.History().UndoCount(), "reloads are recorded")
}

func TestOpenResetsPreviousState(t *testing.T) {
	w := quietWorkspace(t)
	dir := t.TempDir()
	_, err := w.LoadModel(writeTriangleSTL(t, dir, "first.stl"))
	require.NoError(t, err)
	manifest := filepath.Join(dir, "ws.yaml")
	require.NoError(t, w.Save(manifest))

	other, err := w.LoadModel(writeTriangleSTL(t, dir, "second.stl"))
	require.NoError(t, err)
	require.True(t, w.Selection().Add(other.Handle))

	require.NoError(t, w.Open(manifest))
	require.Equal(t, 1, w.Scene().Len())
	assert.Equal(t, "first", w.Scene().At(0).Name)
	assert.Equal(t, 0, w.Selection().Len())
	assert.Equal(t, 1, w.History().UndoCount())
}

func TestPackOpenRoundTrip(t *testing.T) {
	w := quietWorkspace(t)
	srcDir := t.TempDir()
	e, err := w.LoadModel(writeTriangleSTL(t, srcDir, "tri.stl"))
	require.NoError(t, err)
	require.True(t, w.Selection().Add(e.Handle))
	require.NoError(t, w.TranslateBy(vec3d.T{7, 0, 0}, false))

	pack := filepath.Join(t.TempDir(), "bundle.zip")
	require.NoError(t, w.Pack(pack))

	w2 := quietWorkspace(t)
	require.NoError(t, w2.Open(pack))
	require.Equal(t, 1, w2.Scene().Len())
	got := w2.Scene().At(0)
	assert.Equal(t, "tri", got.Name)
	assert.Equal(t, vec3d.T{7, 0, 0}, got.Transform.Position)
	assert.NotEqual(t, e.SourcePath, got.SourcePath, "packed copy, not the original file")
}

func TestPackEmptyFails(t *testing.T) {
	w := quietWorkspace(t)
	require.Error(t, w.Pack(filepath.Join(t.TempDir(), "bundle.zip")))
}
