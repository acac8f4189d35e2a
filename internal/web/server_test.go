package web

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	mst "github.com/flywave/go-mst"
	vec3d "github.com/flywave/go3d/float64/vec3"
	"github.com/flywave/go3d/vec3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mesh-studio/internal/scene"
	"mesh-studio/internal/workspace"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func triangleMesh() *mst.Mesh {
	m := mst.NewMesh()
	nd := &mst.MeshNode{
		Vertices: []vec3.T{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
	}
	nd.FaceGroup = append(nd.FaceGroup, &mst.MeshTriangle{
		Batchid: 0,
		Faces:   []*mst.Face{{Vertex: [3]uint32{0, 1, 2}}},
	})
	m.Nodes = append(m.Nodes, nd)
	m.Materials = append(m.Materials, &mst.BaseMaterial{Color: [3]byte{200, 200, 200}})
	return m
}

func newTestServer(t *testing.T) (*Server, *scene.Entity) {
	t.Helper()
	ws := workspace.New(quietLogger(), t.TempDir())
	e := scene.NewEntity("tri", "stl", "tri.stl", triangleMesh(), [6]float64{0, 0, 0, 1, 1, 0})
	ws.Scene().AddEntity(e)
	srv := New(ws, t.TempDir(), quietLogger())
	t.Cleanup(srv.Close)
	return srv, e
}

func TestApplyTransformOps(t *testing.T) {
	srv, e := newTestServer(t)

	require.NoError(t, srv.Apply(Op{Kind: "select", Handles: []string{e.Handle.String()}}))
	require.NoError(t, srv.Apply(Op{Kind: "move", Value: &[3]float64{1, 2, 3}}))
	assert.Equal(t, vec3d.T{1, 2, 3}, e.Transform.Position)

	require.NoError(t, srv.Apply(Op{Kind: "undo"}))
	assert.Equal(t, vec3d.T{0, 0, 0}, e.Transform.Position)

	require.NoError(t, srv.Apply(Op{Kind: "redo"}))
	assert.Equal(t, vec3d.T{1, 2, 3}, e.Transform.Position)

	require.NoError(t, srv.Apply(Op{Kind: "move", Value: &[3]float64{0, 1, 0}, By: true}))
	assert.Equal(t, vec3d.T{1, 3, 3}, e.Transform.Position)
}

func TestApplyErrors(t *testing.T) {
	srv, e := newTestServer(t)

	assert.Error(t, srv.Apply(Op{Kind: "warp"}), "unknown op")
	assert.Error(t, srv.Apply(Op{Kind: "undo"}), "empty history")
	assert.Error(t, srv.Apply(Op{Kind: "move", Value: &[3]float64{1, 0, 0}}), "nothing selected")
	assert.Error(t, srv.Apply(Op{Kind: "move"}), "missing value")
	assert.Error(t, srv.Apply(Op{Kind: "remove", Handle: "not-a-uuid"}))
	assert.Error(t, srv.Apply(Op{Kind: "remove", Handle: uuid.NewString()}), "unknown entity")

	require.NoError(t, srv.Apply(Op{Kind: "remove", Handle: e.Handle.String()}))
	assert.Error(t, srv.Apply(Op{Kind: "remove"}), "nothing selected after removal")
}

func TestApplyClear(t *testing.T) {
	srv, e := newTestServer(t)
	require.NoError(t, srv.Apply(Op{Kind: "select", Handles: []string{e.Handle.String()}}))
	require.NoError(t, srv.Apply(Op{Kind: "move", Value: &[3]float64{1, 0, 0}}))

	require.NoError(t, srv.Apply(Op{Kind: "clear"}))
	st := srv.snapshot()
	assert.Empty(t, st.Entities)
	assert.Zero(t, st.History.UndoCount)
	assert.False(t, st.History.CanUndo)
}

func TestSnapshotState(t *testing.T) {
	srv, e := newTestServer(t)
	require.NoError(t, srv.Apply(Op{Kind: "select", Handles: []string{e.Handle.String()}}))
	require.NoError(t, srv.Apply(Op{Kind: "move", Value: &[3]float64{2, 0, 0}}))

	st := srv.snapshot()
	assert.Equal(t, "state", st.Type)
	require.Len(t, st.Entities, 1)
	got := st.Entities[0]
	assert.Equal(t, e.Handle.String(), got.Handle)
	assert.Equal(t, "tri", got.Name)
	assert.Equal(t, 1, got.Triangles)
	assert.Equal(t, [3]float64{2, 0, 0}, got.Position)
	assert.True(t, got.Selected)
	assert.Equal(t, 1, st.History.UndoCount)
	assert.Equal(t, "Move", st.History.LastLabel)
}

func TestHandleModel(t *testing.T) {
	srv, e := newTestServer(t)
	httpSrv := httptest.NewServer(srv.Handler())
	defer httpSrv.Close()

	resp, err := http.Get(httpSrv.URL + "/model/" + e.Handle.String() + ".glb")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "model/gltf-binary", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Greater(t, len(body), 4)
	assert.Equal(t, "glTF", string(body[:4]), "GLB magic")

	resp, err = http.Get(httpSrv.URL + "/model/" + uuid.NewString() + ".glb")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(httpSrv.URL + "/model/junk.glb")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleIndex(t *testing.T) {
	srv, _ := newTestServer(t)
	httpSrv := httptest.NewServer(srv.Handler())
	defer httpSrv.Close()

	resp, err := http.Get(httpSrv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Mesh Studio")
}

func TestResolveLoadPath(t *testing.T) {
	srv, _ := newTestServer(t)

	_, err := srv.resolveLoadPath("")
	assert.Error(t, err)
	_, err = srv.resolveLoadPath("/etc/passwd")
	assert.Error(t, err)
	_, err = srv.resolveLoadPath("../outside.stl")
	assert.Error(t, err)

	got, err := srv.resolveLoadPath("sub/cube.stl")
	require.NoError(t, err)
	assert.Contains(t, got, "sub")
	assert.NotContains(t, got, "..")
}
