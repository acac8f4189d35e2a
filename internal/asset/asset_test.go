package asset

import (
	"bytes"
	"compress/zlib"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	mst "github.com/flywave/go-mst"
	dmat "github.com/flywave/go3d/float64/mat4"
	dvec3 "github.com/flywave/go3d/float64/vec3"
	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// triangleMesh builds a one-triangle mesh with a full attribute set.
func triangleMesh() *mst.Mesh {
	m := mst.NewMesh()
	mtl := &mst.PbrMaterial{Metallic: 0, Roughness: 1}
	mtl.Color = [3]byte{200, 120, 40}
	m.Materials = append(m.Materials, mtl)

	nd := &mst.MeshNode{
		Vertices:  []vec3.T{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Normals:   []vec3.T{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		TexCoords: []vec2.T{{0, 0}, {1, 0}, {0, 1}},
		FaceGroup: []*mst.MeshTriangle{{
			Batchid: 0,
			Faces:   []*mst.Face{{Vertex: [3]uint32{0, 1, 2}}},
		}},
	}
	m.Nodes = append(m.Nodes, nd)
	return m
}

func TestDetect(t *testing.T) {
	cases := []struct {
		path string
		want Format
	}{
		{"model.stl", FormatSTL},
		{"Scene.GLB", FormatGLB},
		{"a/b/c.gltf", FormatGLTF},
		{"castle.3DS", Format3DS},
		{"rig.fbx", FormatFBX},
		{"room.dae", FormatDAE},
		{"scene.mst", FormatMST},
	}
	for _, tc := range cases {
		got, err := Detect(tc.path)
		require.NoError(t, err, tc.path)
		assert.Equal(t, tc.want, got, tc.path)
	}

	_, err := Detect("notes.txt")
	require.Error(t, err)
	_, err = Detect("noext")
	require.Error(t, err)
}

func TestFormatAvailability(t *testing.T) {
	for _, f := range []Format{FormatSTL, FormatGLTF, FormatGLB, Format3DS, FormatFBX, FormatDAE} {
		assert.NotNil(t, DecoderFor(f), string(f))
	}
	assert.Nil(t, DecoderFor(FormatMST), "mst is export-only")

	for _, f := range []Format{FormatSTL, FormatGLTF, FormatGLB, FormatMST} {
		assert.NotNil(t, EncoderFor(f), string(f))
	}
	for _, f := range []Format{Format3DS, FormatFBX, FormatDAE} {
		assert.Nil(t, EncoderFor(f), string(f))
	}
}

func TestSTLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tri.stl")
	require.NoError(t, EncoderFor(FormatSTL).Encode(path, triangleMesh()))

	got, bounds, err := DecoderFor(FormatSTL).Decode(path)
	require.NoError(t, err)
	require.Len(t, got.Nodes, 1)
	assert.Len(t, got.Nodes[0].Vertices, 3)
	require.Len(t, got.Nodes[0].FaceGroup, 1)
	assert.Len(t, got.Nodes[0].FaceGroup[0].Faces, 1)
	require.Len(t, got.Materials, 1)

	assert.InDelta(t, 0, bounds[0], 1e-5)
	assert.InDelta(t, 0, bounds[1], 1e-5)
	assert.InDelta(t, 1, bounds[3], 1e-5)
	assert.InDelta(t, 1, bounds[4], 1e-5)
}

func TestSTLDecodeRejectsEmptySolid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.stl")
	require.NoError(t, EncoderFor(FormatSTL).Encode(path, mst.NewMesh()))

	_, _, err := DecoderFor(FormatSTL).Decode(path)
	require.Error(t, err)
}

func TestGLBRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tri.glb")
	src := triangleMesh()
	require.NoError(t, EncoderFor(FormatGLB).Encode(path, src))

	got, bounds, err := DecoderFor(FormatGLB).Decode(path)
	require.NoError(t, err)
	require.Len(t, got.Nodes, 1)

	nd := got.Nodes[0]
	assert.Equal(t, src.Nodes[0].Vertices, nd.Vertices)
	assert.Equal(t, src.Nodes[0].Normals, nd.Normals)
	assert.Equal(t, src.Nodes[0].TexCoords, nd.TexCoords)
	require.Len(t, nd.FaceGroup, 1)
	require.Len(t, nd.FaceGroup[0].Faces, 1)
	assert.Equal(t, [3]uint32{0, 1, 2}, nd.FaceGroup[0].Faces[0].Vertex)

	require.Len(t, got.Materials, 1)
	pbr, ok := got.Materials[0].(*mst.PbrMaterial)
	require.True(t, ok, "expected pbr material, got %T", got.Materials[0])
	assert.InDelta(t, 200, int(pbr.Color[0]), 1)
	assert.InDelta(t, 120, int(pbr.Color[1]), 1)
	assert.InDelta(t, 40, int(pbr.Color[2]), 1)
	assert.InDelta(t, 1, float64(pbr.Roughness), 1e-5)

	assert.InDelta(t, 0, bounds[0], 1e-6)
	assert.InDelta(t, 1, bounds[3], 1e-6)
	assert.InDelta(t, 1, bounds[4], 1e-6)
	assert.InDelta(t, 0, bounds[5], 1e-6)
}

func TestBakeTransformMovesVerticesNotNormals(t *testing.T) {
	m := triangleMesh()
	tf := dmat.Ident
	off := dvec3.T{1, 2, 3}
	tf.Translate(&off)

	BakeTransform(m, &tf)

	v := m.Nodes[0].Vertices[0]
	assert.InDelta(t, 1, float64(v[0]), 1e-6)
	assert.InDelta(t, 2, float64(v[1]), 1e-6)
	assert.InDelta(t, 3, float64(v[2]), 1e-6)

	n := m.Nodes[0].Normals[0]
	assert.InDelta(t, 0, float64(n[0]), 1e-6)
	assert.InDelta(t, 0, float64(n[1]), 1e-6)
	assert.InDelta(t, 1, float64(n[2]), 1e-6)
}

func TestAppendRenumbersMaterials(t *testing.T) {
	a := triangleMesh()
	b := triangleMesh()

	Append(a, b)

	assert.Len(t, a.Materials, 2)
	require.Len(t, a.Nodes, 2)
	assert.Equal(t, int32(0), a.Nodes[0].FaceGroup[0].Batchid)
	assert.Equal(t, int32(1), a.Nodes[1].FaceGroup[0].Batchid)
}

func TestSolidFromMeshExpandsInstances(t *testing.T) {
	src := triangleMesh()
	m1 := dmat.Ident
	m2 := dmat.Ident
	off := dvec3.T{5, 0, 0}
	m2.Translate(&off)

	outer := mst.NewMesh()
	outer.InstanceNode = append(outer.InstanceNode, &mst.InstanceMesh{
		BBox:      &[6]float64{0, 0, 0, 1, 1, 0},
		Mesh:      &src.BaseMesh,
		Transfors: []*dmat.T{&m1, &m2},
	})

	solid := SolidFromMesh(outer)
	require.Len(t, solid.Triangles, 2)
	assert.InDelta(t, 0, float64(solid.Triangles[0].Vertices[0][0]), 1e-5)
	assert.InDelta(t, 5, float64(solid.Triangles[1].Vertices[0][0]), 1e-5)
}

func TestTriangulateCorners(t *testing.T) {
	assert.Nil(t, triangulateCorners(2))
	assert.Equal(t, [][3]int{{0, 1, 2}}, triangulateCorners(3))
	assert.Equal(t, [][3]int{{0, 1, 2}, {2, 3, 0}}, triangulateCorners(4))
	assert.Len(t, triangulateCorners(6), 4)
}

func TestLoadTexturePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "px.png")
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(1, 0, color.NRGBA{G: 255, A: 255})
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	tex, err := LoadTexture(path, 7)
	require.NoError(t, err)
	assert.Equal(t, int32(7), tex.Id)
	assert.Equal(t, [2]uint64{2, 1}, tex.Size)
	assert.Equal(t, mst.TEXTURE_COMPRESSED_ZLIB, tex.Compressed)

	zr, err := zlib.NewReader(bytes.NewReader(tex.Data))
	require.NoError(t, err)
	raw, err := io.ReadAll(zr)
	require.NoError(t, err)
	require.Len(t, raw, 8)
	assert.Equal(t, byte(255), raw[0], "first pixel red")
	assert.Equal(t, byte(255), raw[5], "second pixel green")
}
