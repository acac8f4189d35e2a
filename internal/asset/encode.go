package asset

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"

	"github.com/chewxy/math32"
	mst "github.com/flywave/go-mst"
	stl "github.com/flywave/go-stl"
	dmat "github.com/flywave/go3d/float64/mat4"
	dvec3 "github.com/flywave/go3d/float64/vec3"
	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// BakeTransform applies mat to every vertex and normal of m in place.
// Instance placements compose mat on the left so their local meshes stay
// untouched.
func BakeTransform(m *mst.Mesh, mat *dmat.T) {
	if mat == nil {
		return
	}
	rot := *mat
	rot[3][0], rot[3][1], rot[3][2] = 0, 0, 0
	for _, nd := range m.Nodes {
		for i, v := range nd.Vertices {
			p := dvec3.T{float64(v[0]), float64(v[1]), float64(v[2])}
			p = mat.MulVec3(&p)
			nd.Vertices[i] = vec3.T{float32(p[0]), float32(p[1]), float32(p[2])}
		}
		for i, n := range nd.Normals {
			p := dvec3.T{float64(n[0]), float64(n[1]), float64(n[2])}
			p = rot.MulVec3(&p)
			p.Normalize()
			nd.Normals[i] = vec3.T{float32(p[0]), float32(p[1]), float32(p[2])}
		}
	}
	for _, inst := range m.InstanceNode {
		for i, tf := range inst.Transfors {
			composed := dmat.Ident
			composed.AssignMul(mat, tf)
			inst.Transfors[i] = &composed
		}
	}
}

// CloneMesh copies m deeply enough that BakeTransform and Append can run on
// the clone without touching the original: fresh vertex, normal, texcoord,
// face and transform storage. Materials and textures are shared, the export
// pipeline only reads them.
func CloneMesh(m *mst.Mesh) *mst.Mesh {
	out := mst.NewMesh()
	out.Materials = append(out.Materials, m.Materials...)
	for _, nd := range m.Nodes {
		out.Nodes = append(out.Nodes, cloneNode(nd))
	}
	for _, inst := range m.InstanceNode {
		out.InstanceNode = append(out.InstanceNode, &mst.InstanceMesh{
			BBox:      inst.BBox,
			Mesh:      inst.Mesh,
			Transfors: append([]*dmat.T(nil), inst.Transfors...),
		})
	}
	return out
}

func cloneNode(nd *mst.MeshNode) *mst.MeshNode {
	c := &mst.MeshNode{
		Vertices:  append([]vec3.T(nil), nd.Vertices...),
		Normals:   append([]vec3.T(nil), nd.Normals...),
		TexCoords: append([]vec2.T(nil), nd.TexCoords...),
	}
	for _, fg := range nd.FaceGroup {
		ng := &mst.MeshTriangle{Batchid: fg.Batchid, Faces: make([]*mst.Face, 0, len(fg.Faces))}
		for _, f := range fg.Faces {
			nf := *f
			ng.Faces = append(ng.Faces, &nf)
		}
		c.FaceGroup = append(c.FaceGroup, ng)
	}
	return c
}

// Append merges src into dst. Face groups renumber their material references
// by dst's batch offset; instance nodes carry their own material tables and
// move over unchanged.
func Append(dst, src *mst.Mesh) {
	offset := int32(len(dst.Materials))
	dst.Materials = append(dst.Materials, src.Materials...)
	for _, nd := range src.Nodes {
		for _, fg := range nd.FaceGroup {
			fg.Batchid += offset
		}
		dst.Nodes = append(dst.Nodes, nd)
	}
	dst.InstanceNode = append(dst.InstanceNode, src.InstanceNode...)
}

// STLEncoder writes binary STL. The format carries bare triangles, so nodes
// flatten into one soup, instances expand per placement, and materials drop.
type STLEncoder struct{}

func (e *STLEncoder) Encode(path string, m *mst.Mesh) error {
	return SolidFromMesh(m).WriteFile(path)
}

// SolidFromMesh flattens an MST mesh into an STL solid.
func SolidFromMesh(m *mst.Mesh) *stl.Solid {
	solid := &stl.Solid{Name: "mesh"}
	for _, nd := range m.Nodes {
		appendSolidNode(solid, nd, nil)
	}
	for _, inst := range m.InstanceNode {
		for _, tf := range inst.Transfors {
			for _, nd := range inst.Mesh.Nodes {
				appendSolidNode(solid, nd, tf)
			}
		}
	}
	return solid
}

func appendSolidNode(solid *stl.Solid, nd *mst.MeshNode, world *dmat.T) {
	for _, fg := range nd.FaceGroup {
		for _, f := range fg.Faces {
			var tri stl.Triangle
			ok := true
			for i, vi := range f.Vertex {
				if int(vi) >= len(nd.Vertices) {
					ok = false
					break
				}
				v := nd.Vertices[vi]
				if world != nil {
					p := dvec3.T{float64(v[0]), float64(v[1]), float64(v[2])}
					p = world.MulVec3(&p)
					v = vec3.T{float32(p[0]), float32(p[1]), float32(p[2])}
				}
				tri.Vertices[i] = v
			}
			if !ok {
				continue
			}
			tri.Normal = faceNormal(tri.Vertices[0], tri.Vertices[1], tri.Vertices[2])
			solid.Triangles = append(solid.Triangles, tri)
		}
	}
}

func faceNormal(a, b, c vec3.T) vec3.T {
	u := vec3.T{b[0] - a[0], b[1] - a[1], b[2] - a[2]}
	v := vec3.T{c[0] - a[0], c[1] - a[1], c[2] - a[2]}
	n := vec3.T{
		u[1]*v[2] - u[2]*v[1],
		u[2]*v[0] - u[0]*v[2],
		u[0]*v[1] - u[1]*v[0],
	}
	l := math32.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
	if l > 0 {
		n[0] /= l
		n[1] /= l
		n[2] /= l
	}
	return n
}

// GLTFEncoder writes glTF 2.0, embedding textures as PNG images. Binary
// selects the single-file GLB container.
type GLTFEncoder struct {
	Binary bool
}

func (e *GLTFEncoder) Encode(path string, m *mst.Mesh) error {
	doc, err := buildGLTFDocument(m)
	if err != nil {
		return err
	}
	if e.Binary {
		return gltf.SaveBinary(doc, path)
	}
	return gltf.Save(doc, path)
}

// EncodeGLB writes m as binary glTF to w. The web shell streams models
// through this; file export goes through GLTFEncoder.
func EncodeGLB(w io.Writer, m *mst.Mesh) error {
	doc, err := buildGLTFDocument(m)
	if err != nil {
		return err
	}
	enc := gltf.NewEncoder(w)
	enc.AsBinary = true
	return enc.Encode(doc)
}

func buildGLTFDocument(m *mst.Mesh) (*gltf.Document, error) {
	doc := gltf.NewDocument()
	doc.Asset.Generator = "mesh-studio"

	mats := make([]int, len(m.Materials))
	for i, mtl := range m.Materials {
		idx, err := appendGLTFMaterial(doc, mtl)
		if err != nil {
			return nil, err
		}
		mats[i] = idx
	}
	for _, nd := range m.Nodes {
		meshIdx := appendGLTFMesh(doc, nd, mats)
		if meshIdx < 0 {
			continue
		}
		addGLTFSceneNode(doc, meshIdx, nil)
	}

	for _, inst := range m.InstanceNode {
		instMats := make([]int, len(inst.Mesh.Materials))
		for i, mtl := range inst.Mesh.Materials {
			idx, err := appendGLTFMaterial(doc, mtl)
			if err != nil {
				return nil, err
			}
			instMats[i] = idx
		}
		for _, nd := range inst.Mesh.Nodes {
			meshIdx := appendGLTFMesh(doc, nd, instMats)
			if meshIdx < 0 {
				continue
			}
			for _, tf := range inst.Transfors {
				addGLTFSceneNode(doc, meshIdx, tf)
			}
		}
	}
	return doc, nil
}

// appendGLTFMesh writes one MST node as a glTF mesh whose primitives share
// the node's vertex accessors. Returns -1 when the node has no faces.
func appendGLTFMesh(doc *gltf.Document, nd *mst.MeshNode, mats []int) int {
	if len(nd.Vertices) == 0 {
		return -1
	}
	positions := make([][3]float32, len(nd.Vertices))
	for i, v := range nd.Vertices {
		positions[i] = [3]float32(v)
	}
	attrs := map[string]int{gltf.POSITION: modeler.WritePosition(doc, positions)}
	if len(nd.Normals) == len(nd.Vertices) {
		normals := make([][3]float32, len(nd.Normals))
		for i, n := range nd.Normals {
			normals[i] = [3]float32(n)
		}
		attrs[gltf.NORMAL] = modeler.WriteNormal(doc, normals)
	}
	if len(nd.TexCoords) == len(nd.Vertices) {
		uvs := make([][2]float32, len(nd.TexCoords))
		for i, uv := range nd.TexCoords {
			uvs[i] = [2]float32(uv)
		}
		attrs[gltf.TEXCOORD_0] = modeler.WriteTextureCoord(doc, uvs)
	}

	mesh := &gltf.Mesh{}
	for _, fg := range nd.FaceGroup {
		idx := make([]uint32, 0, len(fg.Faces)*3)
		for _, f := range fg.Faces {
			idx = append(idx, f.Vertex[0], f.Vertex[1], f.Vertex[2])
		}
		if len(idx) == 0 {
			continue
		}
		prim := &gltf.Primitive{
			Indices:    gltf.Index(modeler.WriteIndices(doc, idx)),
			Attributes: attrs,
		}
		if int(fg.Batchid) >= 0 && int(fg.Batchid) < len(mats) {
			prim.Material = gltf.Index(mats[fg.Batchid])
		}
		mesh.Primitives = append(mesh.Primitives, prim)
	}
	if len(mesh.Primitives) == 0 {
		return -1
	}
	doc.Meshes = append(doc.Meshes, mesh)
	return len(doc.Meshes) - 1
}

func addGLTFSceneNode(doc *gltf.Document, meshIdx int, tf *dmat.T) {
	node := &gltf.Node{
		Mesh:     gltf.Index(meshIdx),
		Rotation: [4]float64{0, 0, 0, 1},
		Scale:    [3]float64{1, 1, 1},
	}
	if tf != nil {
		node.Matrix = gltfMatrix(tf)
	}
	doc.Nodes = append(doc.Nodes, node)
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, len(doc.Nodes)-1)
}

func gltfMatrix(m *dmat.T) [16]float64 {
	var a [16]float64
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			a[c*4+r] = m[c][r]
		}
	}
	return a
}

func appendGLTFMaterial(doc *gltf.Document, mtl mst.MeshMaterial) (int, error) {
	gm := &gltf.Material{
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			MetallicFactor:  gltf.Float(0),
			RoughnessFactor: gltf.Float(1),
		},
	}
	color := [3]byte{255, 255, 255}
	var transparency float32
	var tex, normalTex *mst.Texture

	switch t := mtl.(type) {
	case *mst.PbrMaterial:
		color = t.Color
		transparency = t.Transparency
		tex, normalTex = t.Texture, t.Normal
		gm.PBRMetallicRoughness.MetallicFactor = gltf.Float(float64(t.Metallic))
		gm.PBRMetallicRoughness.RoughnessFactor = gltf.Float(float64(t.Roughness))
		setEmissive(gm, t.Emissive[0], t.Emissive[1], t.Emissive[2])
	case *mst.PhongMaterial:
		color = t.Color
		transparency = t.Transparency
		tex, normalTex = t.Texture, t.Normal
		setEmissive(gm, t.Emissive[0], t.Emissive[1], t.Emissive[2])
	case *mst.LambertMaterial:
		color = t.Color
		transparency = t.Transparency
		tex, normalTex = t.Texture, t.Normal
		setEmissive(gm, t.Emissive[0], t.Emissive[1], t.Emissive[2])
	case *mst.TextureMaterial:
		color = t.Color
		transparency = t.Transparency
		tex, normalTex = t.Texture, t.Normal
	case *mst.BaseMaterial:
		color = t.Color
		transparency = t.Transparency
	}

	gm.PBRMetallicRoughness.BaseColorFactor = &[4]float64{
		float64(color[0]) / 255,
		float64(color[1]) / 255,
		float64(color[2]) / 255,
		float64(1 - transparency),
	}
	if transparency > 0 {
		gm.AlphaMode = gltf.AlphaBlend
	}
	if tex != nil {
		ti, err := appendGLTFTexture(doc, tex)
		if err != nil {
			return 0, err
		}
		gm.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{Index: ti}
	}
	if normalTex != nil {
		ti, err := appendGLTFTexture(doc, normalTex)
		if err != nil {
			return 0, err
		}
		gm.NormalTexture = &gltf.NormalTexture{Index: gltf.Index(ti)}
	}
	doc.Materials = append(doc.Materials, gm)
	return len(doc.Materials) - 1, nil
}

func setEmissive(gm *gltf.Material, r, g, b byte) {
	if r == 0 && g == 0 && b == 0 {
		return
	}
	gm.EmissiveFactor = [3]float64{float64(r) / 255, float64(g) / 255, float64(b) / 255}
}

// appendGLTFTexture re-encodes stored RGBA pixels as an embedded PNG.
func appendGLTFTexture(doc *gltf.Document, tex *mst.Texture) (int, error) {
	data := tex.Data
	if tex.Compressed == mst.TEXTURE_COMPRESSED_ZLIB {
		zr, err := zlib.NewReader(bytes.NewReader(tex.Data))
		if err != nil {
			return 0, fmt.Errorf("texture %d: %w", tex.Id, err)
		}
		data, err = io.ReadAll(zr)
		zr.Close()
		if err != nil {
			return 0, fmt.Errorf("texture %d: %w", tex.Id, err)
		}
	}
	w, h := int(tex.Size[0]), int(tex.Size[1])
	if w <= 0 || h <= 0 || len(data) < w*h*4 {
		return 0, fmt.Errorf("texture %d: truncated pixel data", tex.Id)
	}
	img := &image.NRGBA{Pix: data, Stride: w * 4, Rect: image.Rect(0, 0, w, h)}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return 0, fmt.Errorf("texture %d: %w", tex.Id, err)
	}
	src, err := modeler.WriteImage(doc, fmt.Sprintf("texture-%d", tex.Id), "image/png", &buf)
	if err != nil {
		return 0, fmt.Errorf("texture %d: %w", tex.Id, err)
	}
	doc.Textures = append(doc.Textures, &gltf.Texture{Source: gltf.Index(src)})
	return len(doc.Textures) - 1, nil
}

// MSTEncoder writes the native scene format.
type MSTEncoder struct{}

func (e *MSTEncoder) Encode(path string, m *mst.Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	mst.MeshMarshal(f, m)
	return f.Close()
}
