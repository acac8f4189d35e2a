package asset

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tds "github.com/flywave/go-3ds"
	mst "github.com/flywave/go-mst"
	dmat "github.com/flywave/go3d/float64/mat4"
	quat "github.com/flywave/go3d/float64/quaternion"
	dvec3 "github.com/flywave/go3d/float64/vec3"
	dvec4 "github.com/flywave/go3d/float64/vec4"
	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"
)

// ThreeDSDecoder reads Autodesk 3DS files. Meshes referenced by instance
// nodes become MST instance nodes; everything else is baked through the mesh
// matrix in place.
type ThreeDSDecoder struct{}

func (d *ThreeDSDecoder) Decode(path string) (*mst.Mesh, *[6]float64, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil, err
	}
	f := tds.OpenFile(path)
	if f == nil {
		return nil, nil, fmt.Errorf("parse 3ds %s", path)
	}

	c := &threeDSConversion{
		baseDir:   filepath.Dir(path),
		materials: f.GetMaterials(),
	}

	instanced := make(map[string][]*tds.MeshInstanceNode)
	for _, nd := range f.GetMeshInstanceNode() {
		instanced[nd.InstanceName] = append(instanced[nd.InstanceName], nd)
	}

	mesh := mst.NewMesh()
	bounds := dvec3.MinBox
	for _, m := range f.GetMeshs() {
		nds, ok := instanced[m.Name]
		if !ok {
			bx := c.appendMesh(mesh, &m)
			bounds.Join(bx)
			continue
		}
		sub := mst.NewMesh()
		bx := c.appendMesh(sub, &m)
		inst := &mst.InstanceMesh{BBox: bx.Array(), Mesh: &sub.BaseMesh}
		for _, nd := range nds {
			tr := nodeMatrix3DS(nd)
			inst.Transfors = append(inst.Transfors, tr)
			extendByBox(&bounds, bx.Array(), tr)
		}
		mesh.InstanceNode = append(mesh.InstanceNode, inst)
	}

	return mesh, bounds.Array(), nil
}

type threeDSConversion struct {
	baseDir   string
	materials []tds.Material
	nextTexID int
}

func (c *threeDSConversion) appendMesh(dst *mst.Mesh, m *tds.Mesh) *dvec3.Box {
	bounds := dvec3.MinBox
	node := &mst.MeshNode{}

	mat := dmat.Ident
	for i, row := range m.Matrix {
		mat[i] = dvec4.T{float64(row[0]), float64(row[1]), float64(row[2]), float64(row[3])}
	}

	for _, v := range m.Vertices {
		vt := dvec3.T{float64(v[0]), float64(v[1]), float64(v[2])}
		vt = mat.MulVec3(&vt)
		bounds.Extend(&vt)
		node.Vertices = append(node.Vertices, vec3.T{float32(vt[0]), float32(vt[1]), float32(vt[2])})
	}
	for _, v := range m.Texcos {
		node.TexCoords = append(node.TexCoords, vec2.T{v[0], v[1]})
	}

	groups := make(map[int32]*mst.MeshTriangle)
	for _, f := range m.Faces {
		tg, ok := groups[f.Material]
		if !ok {
			tg = &mst.MeshTriangle{Batchid: int32(len(dst.Materials))}
			groups[f.Material] = tg
			node.FaceGroup = append(node.FaceGroup, tg)
			if int(f.Material) < len(c.materials) {
				c.appendMaterial(dst, &c.materials[f.Material])
			} else {
				dst.Materials = append(dst.Materials, &mst.BaseMaterial{Color: untexturedGrey})
			}
		}
		tg.Faces = append(tg.Faces, &mst.Face{
			Vertex: [3]uint32{uint32(f.Index[0]), uint32(f.Index[1]), uint32(f.Index[2])},
		})
	}
	node.ReComputeNormal()
	dst.Nodes = append(dst.Nodes, node)
	return &bounds
}

func (c *threeDSConversion) appendMaterial(dst *mst.Mesh, m *tds.Material) {
	mtl := &mst.PhongMaterial{}
	dst.Materials = append(dst.Materials, mtl)

	mtl.Color[0] = byte(m.Diffuse[0] * 255)
	mtl.Color[1] = byte(m.Diffuse[1] * 255)
	mtl.Color[2] = byte(m.Diffuse[2] * 255)
	mtl.Transparency = m.Transparency
	mtl.Ambient[0] = byte(m.Ambient[0] * 255)
	mtl.Ambient[1] = byte(m.Ambient[1] * 255)
	mtl.Ambient[2] = byte(m.Ambient[2] * 255)
	mtl.Specular[0] = byte(m.Specular[0] * 255)
	mtl.Specular[1] = byte(m.Specular[1] * 255)
	mtl.Specular[2] = byte(m.Specular[2] * 255)
	mtl.Shininess = m.Shininess

	// Texture1Map.Name is NUL-terminated.
	texPath := ""
	for i := range m.Texture1Map.Name {
		if m.Texture1Map.Name[i] == 0 {
			texPath = string(m.Texture1Map.Name[:i])
			break
		}
	}
	if texPath == "" {
		return
	}
	tex, err := LoadTexture(filepath.Join(c.baseDir, texPath), c.nextTexID)
	if err != nil {
		slog.Warn("3ds texture unavailable", "texture", texPath, "error", err)
		return
	}
	c.nextTexID++
	mtl.Texture = tex
}

func nodeMatrix3DS(nd *tds.MeshInstanceNode) *dmat.T {
	m := &dmat.T{}
	q := quat.FromVec4(&dvec4.T{float64(nd.Rot[0]), float64(nd.Rot[1]), float64(nd.Rot[2]), float64(nd.Rot[3])})
	t := &dvec3.T{float64(nd.Pos[0]), float64(nd.Pos[1]), float64(nd.Pos[2])}
	s := &dvec3.T{float64(nd.Scl[0]), float64(nd.Scl[1]), float64(nd.Scl[2])}
	m.AssignQuaternion(&q)
	m.ScaleVec3(s)
	m.Translate(t)
	return m
}
