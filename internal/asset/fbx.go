package asset

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	mst "github.com/flywave/go-mst"
	dmat "github.com/flywave/go3d/float64/mat4"
	dvec3 "github.com/flywave/go3d/float64/vec3"
	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"
	fbx "github.com/flywave/ofbx"
)

// FBXDecoder reads binary FBX scenes. Mesh nodes that share one geometry
// become a single MST instance node carrying the global matrix of every use.
type FBXDecoder struct{}

func (d *FBXDecoder) Decode(path string) (*mst.Mesh, *[6]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	scene, err := fbx.Load(f)
	if err != nil {
		return nil, nil, fmt.Errorf("parse fbx: %w", err)
	}

	c := &fbxConversion{
		baseDir:  filepath.Dir(path),
		textures: make(map[string]*mst.Texture),
	}

	uses := make(map[*fbx.Geometry][]*fbx.Mesh)
	var order []*fbx.Geometry
	for _, mh := range scene.Meshes {
		if mh.Geometry == nil {
			continue
		}
		if _, ok := uses[mh.Geometry]; !ok {
			order = append(order, mh.Geometry)
		}
		uses[mh.Geometry] = append(uses[mh.Geometry], mh)
	}

	out := mst.NewMesh()
	bounds := dvec3.MinBox
	for _, g := range order {
		group := uses[g]
		if len(group) == 1 {
			bx := c.appendMesh(out, group[0], globalMatrixFBX(group[0]))
			bounds.Join(bx)
			continue
		}
		sub := mst.NewMesh()
		bx := c.appendMesh(sub, group[0], nil)
		inst := &mst.InstanceMesh{BBox: bx.Array(), Mesh: &sub.BaseMesh}
		for _, mh := range group {
			tr := globalMatrixFBX(mh)
			inst.Transfors = append(inst.Transfors, tr)
			extendByBox(&bounds, bx.Array(), tr)
		}
		out.InstanceNode = append(out.InstanceNode, inst)
	}

	return out, bounds.Array(), nil
}

func globalMatrixFBX(mh *fbx.Mesh) *dmat.T {
	return matrixFromArray(fbx.GetGlobalMatrix(mh).ToArray())
}

type fbxConversion struct {
	baseDir   string
	textures  map[string]*mst.Texture
	nextTexID int
}

// appendMesh de-indexes the geometry into per-corner vertex data, one face
// group per material batch. Faces with more than three corners fan out from
// their first corner; quads split along the shorter diagonal.
func (c *fbxConversion) appendMesh(dst *mst.Mesh, mh *fbx.Mesh, world *dmat.T) *dvec3.Box {
	node := &mst.MeshNode{}
	bounds := dvec3.MinBox
	g := mh.Geometry

	repeated := false
	var uvs []vec2.T
	if len(g.UVs) > 0 && g.UVs[0] != nil {
		for _, v := range g.UVs[0] {
			uvs = append(uvs, vec2.T{float32(v[0]), float32(v[1])})
			repeated = repeated || v[0] > 1.1 || v[1] > 1.1 || v[0] < 0 || v[1] < 0
		}
	}

	batches := g.Materials
	if len(batches) == 0 {
		batches = make([]int, len(g.Faces))
	}

	groups := make(map[int32]*mst.MeshTriangle)
	materials := make(map[int]int32)
	for i := 0; i < len(batches) && i < len(g.Faces); i++ {
		batchID := batches[i]
		bid, ok := materials[batchID]
		if !ok {
			var mtl *fbx.Material
			if batchID >= 0 && batchID < len(mh.Materials) {
				mtl = mh.Materials[batchID]
			}
			bid = c.appendMaterial(dst, mtl, repeated)
			materials[batchID] = bid
		}
		gp, ok := groups[bid]
		if !ok {
			gp = &mst.MeshTriangle{Batchid: bid}
			groups[bid] = gp
			node.FaceGroup = append(node.FaceGroup, gp)
		}

		corners := g.Faces[i]
		if len(corners) < 3 {
			continue
		}
		base := uint32(len(node.Vertices))
		for _, f := range corners {
			if f < 0 || f >= len(g.Vertices) {
				continue
			}
			v := g.Vertices[f]
			vt := dvec3.T{float64(v[0]), float64(v[1]), float64(v[2])}
			if world != nil {
				vt = world.MulVec3(&vt)
			}
			node.Vertices = append(node.Vertices, vec3.T{float32(vt[0]), float32(vt[1]), float32(vt[2])})
			bounds.Extend(&vt)
			if f < len(uvs) {
				node.TexCoords = append(node.TexCoords, uvs[f])
			}
		}
		appended := uint32(len(node.Vertices)) - base
		if appended < 3 {
			continue
		}
		if appended == 4 {
			a := node.Vertices[base]
			b := node.Vertices[base+1]
			e := node.Vertices[base+2]
			f := node.Vertices[base+3]
			if squaredDistance(a, e) <= squaredDistance(b, f) {
				gp.Faces = append(gp.Faces,
					&mst.Face{Vertex: [3]uint32{base, base + 1, base + 2}},
					&mst.Face{Vertex: [3]uint32{base, base + 2, base + 3}})
			} else {
				gp.Faces = append(gp.Faces,
					&mst.Face{Vertex: [3]uint32{base, base + 1, base + 3}},
					&mst.Face{Vertex: [3]uint32{base + 1, base + 2, base + 3}})
			}
			continue
		}
		for k := uint32(1); k+1 < appended; k++ {
			gp.Faces = append(gp.Faces, &mst.Face{Vertex: [3]uint32{base, base + k, base + k + 1}})
		}
	}

	node.ReComputeNormal()
	dst.Nodes = append(dst.Nodes, node)
	return &bounds
}

func squaredDistance(a, b vec3.T) float32 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	dz := a[2] - b[2]
	return dx*dx + dy*dy + dz*dz
}

func (c *fbxConversion) appendMaterial(dst *mst.Mesh, mt *fbx.Material, repeated bool) int32 {
	idx := int32(len(dst.Materials))
	mtl := &mst.PbrMaterial{Metallic: 0, Roughness: 1}
	if mt == nil {
		mtl.Color = [3]byte{255, 255, 255}
		dst.Materials = append(dst.Materials, mtl)
		return idx
	}

	if mt.Textures[0] != nil {
		if tex := c.texture(mt.Textures[0], repeated); tex != nil {
			mtl.Texture = tex
		}
	}
	if mt.Textures[1] != nil {
		if tex := c.texture(mt.Textures[1], repeated); tex != nil {
			mtl.Normal = tex
		}
	}

	cl := mt.EmissiveColor
	mtl.Emissive[0] = byte(cl.R * 255)
	mtl.Emissive[1] = byte(cl.G * 255)
	mtl.Emissive[2] = byte(cl.B * 255)
	cl = mt.DiffuseColor
	mtl.Color[0] = byte(cl.R * 255)
	mtl.Color[1] = byte(cl.G * 255)
	mtl.Color[2] = byte(cl.B * 255)
	dst.Materials = append(dst.Materials, mtl)
	return idx
}

// texture resolves an FBX texture reference against the model's directory.
// FBX stores absolute paths from the authoring machine, so only the file
// name is honored. Decoded textures are cached per conversion.
func (c *fbxConversion) texture(t *fbx.Texture, repeated bool) *mst.Texture {
	rel := strings.ReplaceAll(t.GetRelativeFileName().String(), "\\", "/")
	if rel == "" {
		rel = strings.ReplaceAll(t.GetFileName().String(), "\\", "/")
	}
	_, fileName := filepath.Split(rel)
	if fileName == "" {
		return nil
	}
	full := filepath.Join(c.baseDir, fileName)
	if tex, ok := c.textures[full]; ok {
		return tex
	}
	tex, err := LoadTexture(full, c.nextTexID)
	if err != nil {
		slog.Warn("fbx texture unavailable", "texture", fileName, "error", err)
		return nil
	}
	c.nextTexID++
	tex.Repeated = repeated
	c.textures[full] = tex
	return tex
}
