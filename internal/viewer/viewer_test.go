package viewer

import (
	"testing"

	mst "github.com/flywave/go-mst"
	dmat "github.com/flywave/go3d/float64/mat4"
	dvec3 "github.com/flywave/go3d/float64/vec3"
	vec2 "github.com/flywave/go3d/vec2"
	vec3 "github.com/flywave/go3d/vec3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quadNode(withNormals bool) *mst.MeshNode {
	nd := &mst.MeshNode{
		Vertices: []vec3.T{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
		TexCoords: []vec2.T{
			{0, 0}, {1, 0}, {1, 1}, {0, 1},
		},
	}
	if withNormals {
		nd.Normals = []vec3.T{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}}
	}
	nd.FaceGroup = append(nd.FaceGroup, &mst.MeshTriangle{
		Batchid: 0,
		Faces: []*mst.Face{
			{Vertex: [3]uint32{0, 1, 2}},
			{Vertex: [3]uint32{2, 3, 0}},
		},
	})
	return nd
}

func TestSoupMeshDeindexesFaces(t *testing.T) {
	nd := quadNode(true)
	gm := soupMesh(nd, nd.FaceGroup[0])
	require.NotNil(t, gm)

	assert.Equal(t, int32(6), gm.mesh.VertexCount)
	assert.Equal(t, int32(2), gm.mesh.TriangleCount)
	assert.Len(t, gm.verts, 18)
	assert.Len(t, gm.norms, 18)
	assert.Len(t, gm.uvs, 12)

	// Second corner of the first triangle is vertex 1.
	assert.Equal(t, float32(1), gm.verts[3])
	assert.Equal(t, float32(0), gm.verts[4])
	// Normals come straight from the node when present.
	assert.Equal(t, float32(1), gm.norms[2])
}

func TestSoupMeshComputesFaceNormals(t *testing.T) {
	nd := quadNode(false)
	gm := soupMesh(nd, nd.FaceGroup[0])
	require.NotNil(t, gm)

	// CCW quad in the XY plane faces +Z.
	for i := 0; i < 6; i++ {
		assert.InDelta(t, 0, gm.norms[i*3+0], 1e-6)
		assert.InDelta(t, 0, gm.norms[i*3+1], 1e-6)
		assert.InDelta(t, 1, gm.norms[i*3+2], 1e-6)
	}
}

func TestSoupMeshSkipsOutOfRangeFaces(t *testing.T) {
	nd := quadNode(true)
	nd.FaceGroup[0].Faces = append(nd.FaceGroup[0].Faces, &mst.Face{Vertex: [3]uint32{0, 1, 99}})
	gm := soupMesh(nd, nd.FaceGroup[0])
	require.NotNil(t, gm)
	assert.Equal(t, int32(2), gm.mesh.TriangleCount)
}

func TestTriangleNormalDegenerate(t *testing.T) {
	n := triangleNormal(vec3.T{0, 0, 0}, vec3.T{0, 0, 0}, vec3.T{0, 0, 0})
	assert.Equal(t, [3]float32{0, 1, 0}, n)
}

func TestRLMatrixKeepsColumnMajorLayout(t *testing.T) {
	m := dmat.Ident
	m.Translate(&dvec3.T{3, 5, 7})
	rm := rlMatrix(&m)

	assert.Equal(t, float32(3), rm.M12)
	assert.Equal(t, float32(5), rm.M13)
	assert.Equal(t, float32(7), rm.M14)
	assert.Equal(t, float32(1), rm.M0)
	assert.Equal(t, float32(1), rm.M15)
}

func TestMaterialColorAppliesTransparency(t *testing.T) {
	m := &mst.BaseMaterial{Color: [3]byte{200, 100, 50}, Transparency: 0.5}
	c := materialColor(m)
	assert.Equal(t, uint8(200), c.R)
	assert.Equal(t, uint8(100), c.G)
	assert.Equal(t, uint8(50), c.B)
	assert.InDelta(t, 127, int(c.A), 1)
}

func TestMaterialTextureWalksHierarchy(t *testing.T) {
	tex := &mst.Texture{Id: 1}
	pbr := &mst.PbrMaterial{}
	pbr.Texture = tex
	assert.Same(t, tex, materialTexture(pbr))
	assert.Nil(t, materialTexture(&mst.BaseMaterial{}))
}
