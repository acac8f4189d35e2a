package asset

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	mst "github.com/flywave/go-mst"
	dmat "github.com/flywave/go3d/float64/mat4"
	"github.com/flywave/go3d/float64/quaternion"
	dvec3 "github.com/flywave/go3d/float64/vec3"
	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"
	"github.com/qmuntal/gltf"
)

// GLTFDecoder reads .gltf and .glb files, flattening the node hierarchy into
// world-space MST nodes. A mesh referenced by several nodes (or by a node
// carrying EXT_mesh_gpu_instancing) becomes an MST instance node with one
// transform per use instead of being baked repeatedly.
type GLTFDecoder struct{}

func (d *GLTFDecoder) Decode(path string) (*mst.Mesh, *[6]float64, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open gltf: %w", err)
	}
	c := &gltfConversion{
		doc:     doc,
		baseDir: filepath.Dir(path),
		parents: make(map[int]int),
	}
	for _, sc := range doc.Scenes {
		c.mapParents(sc.Nodes)
	}
	return c.run()
}

type gltfConversion struct {
	doc     *gltf.Document
	baseDir string
	parents map[int]int
}

func (c *gltfConversion) mapParents(nodes []int) {
	for _, n := range nodes {
		for _, child := range c.doc.Nodes[n].Children {
			c.parents[child] = n
		}
		c.mapParents(c.doc.Nodes[n].Children)
	}
}

func (c *gltfConversion) run() (*mst.Mesh, *[6]float64, error) {
	out := mst.NewMesh()
	bounds := dvec3.MinBox

	uses := make(map[int][]int) // mesh index -> referencing node indices
	for i, nd := range c.doc.Nodes {
		if nd.Mesh != nil && *nd.Mesh >= 0 && *nd.Mesh < len(c.doc.Meshes) {
			uses[*nd.Mesh] = append(uses[*nd.Mesh], i)
		}
	}

	// Document order keeps the output deterministic.
	for meshIdx := range c.doc.Meshes {
		nodes := uses[meshIdx]
		if len(nodes) == 0 {
			continue
		}

		var transforms []*dmat.T
		for _, n := range nodes {
			inst, err := c.instanceTransforms(n)
			if err != nil {
				return nil, nil, err
			}
			if inst == nil {
				inst = []*dmat.T{c.worldMatrix(n)}
			}
			transforms = append(transforms, inst...)
		}

		if len(transforms) == 1 {
			bx, err := c.appendMesh(out, meshIdx, transforms[0])
			if err != nil {
				return nil, nil, err
			}
			bounds.Join(&bx)
			continue
		}

		sub := mst.NewMesh()
		bx, err := c.appendMesh(sub, meshIdx, nil)
		if err != nil {
			return nil, nil, err
		}
		inst := &mst.InstanceMesh{BBox: bx.Array(), Mesh: &sub.BaseMesh}
		for _, m := range transforms {
			inst.Transfors = append(inst.Transfors, m)
			extendByBox(&bounds, bx.Array(), m)
		}
		out.InstanceNode = append(out.InstanceNode, inst)
	}

	return out, bounds.Array(), nil
}

// appendMesh converts one glTF mesh into dst, one MST node per primitive.
// A nil world matrix (or the identity) keeps vertices in local space.
func (c *gltfConversion) appendMesh(dst *mst.Mesh, meshIdx int, world *dmat.T) (dvec3.Box, error) {
	if world != nil && *world == dmat.Ident {
		world = nil
	}
	bounds := dvec3.MinBox
	mtlIdx := make(map[int]int32) // document material index -> dst material index

	for _, prim := range c.doc.Meshes[meshIdx].Primitives {
		node, bx, err := c.primitiveNode(prim, world, dst, mtlIdx)
		if err != nil {
			return bounds, err
		}
		if node == nil {
			continue
		}
		dst.Nodes = append(dst.Nodes, node)
		bounds.Join(&bx)
	}
	return bounds, nil
}

func (c *gltfConversion) primitiveNode(prim *gltf.Primitive, world *dmat.T, dst *mst.Mesh, mtlIdx map[int]int32) (*mst.MeshNode, dvec3.Box, error) {
	bounds := dvec3.MinBox
	if prim.Indices == nil {
		return nil, bounds, nil
	}
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, bounds, nil
	}

	node := &mst.MeshNode{}
	group := &mst.MeshTriangle{}

	var indices []uint32
	err := readAccessor(c.doc, c.doc.Accessors[*prim.Indices], func(e interface{}) {
		switch v := e.(type) {
		case *uint8:
			indices = append(indices, uint32(*v))
		case *uint16:
			indices = append(indices, uint32(*v))
		case *uint32:
			indices = append(indices, *v)
		}
	})
	if err != nil {
		return nil, bounds, fmt.Errorf("read indices: %w", err)
	}
	for i := 0; i+2 < len(indices); i += 3 {
		group.Faces = append(group.Faces, &mst.Face{
			Vertex: [3]uint32{indices[i], indices[i+1], indices[i+2]},
		})
	}

	err = readAccessor(c.doc, c.doc.Accessors[posIdx], func(e interface{}) {
		p := e.(*[3]float32)
		v := vec3.T(*p)
		if world != nil {
			w := dvec3.T{float64(p[0]), float64(p[1]), float64(p[2])}
			w = world.MulVec3(&w)
			v = vec3.T{float32(w[0]), float32(w[1]), float32(w[2])}
		}
		node.Vertices = append(node.Vertices, v)
		d := dvec3.T{float64(v[0]), float64(v[1]), float64(v[2])}
		bounds.Extend(&d)
	})
	if err != nil {
		return nil, bounds, fmt.Errorf("read positions: %w", err)
	}

	repeated := false
	if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		err = readAccessor(c.doc, c.doc.Accessors[idx], func(e interface{}) {
			v := vec2.T(*e.(*[2]float32))
			node.TexCoords = append(node.TexCoords, v)
			repeated = repeated || v[0] > 1.1 || v[1] > 1.1
		})
		if err != nil {
			return nil, bounds, fmt.Errorf("read texcoords: %w", err)
		}
	}

	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		// Rotation-only transform: translation lives in the fourth column.
		var rot *dmat.T
		if world != nil {
			r := *world
			r[3][0], r[3][1], r[3][2] = 0, 0, 0
			rot = &r
		}
		err = readAccessor(c.doc, c.doc.Accessors[idx], func(e interface{}) {
			p := e.(*[3]float32)
			v := vec3.T(*p)
			if rot != nil {
				w := dvec3.T{float64(p[0]), float64(p[1]), float64(p[2])}
				w = rot.MulVec3(&w)
				w.Normalize()
				v = vec3.T{float32(w[0]), float32(w[1]), float32(w[2])}
			}
			node.Normals = append(node.Normals, v)
		})
		if err != nil {
			return nil, bounds, fmt.Errorf("read normals: %w", err)
		}
	}

	group.Batchid = c.convertMaterial(dst, prim.Material, repeated, mtlIdx)
	node.FaceGroup = append(node.FaceGroup, group)
	return node, bounds, nil
}

// convertMaterial maps a document material to a dst material index, adding it
// on first use. Primitives without a material share one grey entry under the
// key -1.
func (c *gltfConversion) convertMaterial(dst *mst.Mesh, ref *int, repeated bool, mtlIdx map[int]int32) int32 {
	key := -1
	if ref != nil && *ref >= 0 && *ref < len(c.doc.Materials) {
		key = *ref
	}
	if idx, ok := mtlIdx[key]; ok {
		return idx
	}

	idx := int32(len(dst.Materials))
	mtlIdx[key] = idx
	if key < 0 {
		dst.Materials = append(dst.Materials, &mst.BaseMaterial{Color: untexturedGrey})
		return idx
	}

	src := c.doc.Materials[key]
	mtl := &mst.PbrMaterial{}
	mtl.Color = [3]byte{255, 255, 255}
	if pbr := src.PBRMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			mtl.Color[0] = byte(pbr.BaseColorFactor[0] * 255)
			mtl.Color[1] = byte(pbr.BaseColorFactor[1] * 255)
			mtl.Color[2] = byte(pbr.BaseColorFactor[2] * 255)
			mtl.Transparency = 1 - float32(pbr.BaseColorFactor[3])
		}
		if pbr.MetallicFactor != nil {
			mtl.Metallic = float32(*pbr.MetallicFactor)
		}
		if pbr.RoughnessFactor != nil {
			mtl.Roughness = float32(*pbr.RoughnessFactor)
		}
		if pbr.BaseColorTexture != nil {
			mtl.Texture = c.texture(pbr.BaseColorTexture.Index, repeated)
		}
	}
	if src.NormalTexture != nil && src.NormalTexture.Index != nil {
		mtl.Normal = c.texture(*src.NormalTexture.Index, repeated)
	}
	dst.Materials = append(dst.Materials, mtl)
	return idx
}

// texture decodes one referenced texture image, embedded or on disk.
// Texture trouble is never fatal to the import: failures log and return nil.
func (c *gltfConversion) texture(texIdx int, repeated bool) *mst.Texture {
	if texIdx < 0 || texIdx >= len(c.doc.Textures) {
		return nil
	}
	src := c.doc.Textures[texIdx].Source
	if src == nil || *src < 0 || *src >= len(c.doc.Images) {
		return nil
	}
	img := c.doc.Images[*src]

	var r io.Reader
	switch {
	case img.BufferView != nil:
		bv := c.doc.BufferViews[*img.BufferView]
		data := c.doc.Buffers[bv.Buffer].Data
		r = bytes.NewReader(data[bv.ByteOffset : bv.ByteOffset+bv.ByteLength])
	case img.URI != "":
		f, err := os.Open(filepath.Join(c.baseDir, img.URI))
		if err != nil {
			slog.Warn("gltf texture file unavailable", "uri", img.URI, "error", err)
			return nil
		}
		defer f.Close()
		r = f
	default:
		return nil
	}

	tex, err := textureFromReader(r)
	if err != nil {
		slog.Warn("gltf texture decode failed", "image", img.Name, "error", err)
		return nil
	}
	tex.Id = int32(texIdx)
	tex.Repeated = repeated
	return tex
}

// worldMatrix composes a node's TRS with its ancestors'. Nodes that bake
// their transform into the matrix field are taken as-is.
func (c *gltfConversion) worldMatrix(idx int) *dmat.T {
	nd := c.doc.Nodes[idx]

	identity := [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
	var local *dmat.T
	if nd.Matrix != identity && nd.Matrix != [16]float64{} {
		local = matrixFromArray(nd.Matrix)
	} else {
		pos := dvec3.T{nd.Translation[0], nd.Translation[1], nd.Translation[2]}
		rot := quaternion.T{nd.Rotation[0], nd.Rotation[1], nd.Rotation[2], nd.Rotation[3]}
		scl := dvec3.T{nd.Scale[0], nd.Scale[1], nd.Scale[2]}
		local = dmat.Compose(&pos, &rot, &scl)
	}

	pid, ok := c.parents[idx]
	if !ok {
		return local
	}
	world := dmat.Ident
	world.AssignMul(c.worldMatrix(pid), local)
	return &world
}

// instanceTransforms reads EXT_mesh_gpu_instancing attributes into one world
// matrix per instance. Returns nil when the node carries no instancing.
func (c *gltfConversion) instanceTransforms(idx int) ([]*dmat.T, error) {
	raw, ok := c.doc.Nodes[idx].Extensions["EXT_mesh_gpu_instancing"]
	if !ok {
		return nil, nil
	}
	var ext struct {
		Attributes map[string]int `json:"attributes"`
	}
	switch v := raw.(type) {
	case json.RawMessage:
		if err := json.Unmarshal(v, &ext); err != nil {
			return nil, fmt.Errorf("gpu instancing extension: %w", err)
		}
	default:
		dt, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("gpu instancing extension: %w", err)
		}
		if err := json.Unmarshal(dt, &ext); err != nil {
			return nil, fmt.Errorf("gpu instancing extension: %w", err)
		}
	}
	if len(ext.Attributes) == 0 {
		return nil, nil
	}

	var trans [][3]float32
	var rots [][4]float32
	var scls [][3]float32
	if a, ok := ext.Attributes["TRANSLATION"]; ok {
		err := readAccessor(c.doc, c.doc.Accessors[a], func(e interface{}) {
			trans = append(trans, *e.(*[3]float32))
		})
		if err != nil {
			return nil, err
		}
	}
	if a, ok := ext.Attributes["ROTATION"]; ok {
		err := readAccessor(c.doc, c.doc.Accessors[a], func(e interface{}) {
			rots = append(rots, *e.(*[4]float32))
		})
		if err != nil {
			return nil, err
		}
	}
	if a, ok := ext.Attributes["SCALE"]; ok {
		err := readAccessor(c.doc, c.doc.Accessors[a], func(e interface{}) {
			scls = append(scls, *e.(*[3]float32))
		})
		if err != nil {
			return nil, err
		}
	}

	n := len(trans)
	if len(rots) > n {
		n = len(rots)
	}
	if len(scls) > n {
		n = len(scls)
	}
	if n == 0 {
		return nil, nil
	}

	world := c.worldMatrix(idx)
	out := make([]*dmat.T, 0, n)
	for i := 0; i < n; i++ {
		pos := dvec3.T{}
		rot := quaternion.T{0, 0, 0, 1}
		scl := dvec3.T{1, 1, 1}
		if i < len(trans) {
			pos = dvec3.T{float64(trans[i][0]), float64(trans[i][1]), float64(trans[i][2])}
		}
		if i < len(rots) {
			rot = quaternion.T{float64(rots[i][0]), float64(rots[i][1]), float64(rots[i][2]), float64(rots[i][3])}
		}
		if i < len(scls) {
			scl = dvec3.T{float64(scls[i][0]), float64(scls[i][1]), float64(scls[i][2])}
		}
		local := dmat.Compose(&pos, &rot, &scl)
		m := dmat.Ident
		m.AssignMul(world, local)
		out = append(out, &m)
	}
	return out, nil
}

// readAccessor streams each element of an accessor through visit. Only the
// layouts the converters consume are handled; interleaved buffer views are
// honored via the view's byte stride.
func readAccessor(doc *gltf.Document, acc *gltf.Accessor, visit func(interface{})) error {
	if acc.BufferView == nil {
		return fmt.Errorf("accessor %q has no buffer view", acc.Name)
	}
	bv := doc.BufferViews[*acc.BufferView]
	data := doc.Buffers[bv.Buffer].Data

	var elem interface{}
	switch acc.Type {
	case gltf.AccessorVec2:
		switch acc.ComponentType {
		case gltf.ComponentUshort:
			elem = &[2]uint16{}
		case gltf.ComponentUint:
			elem = &[2]uint32{}
		case gltf.ComponentFloat:
			elem = &[2]float32{}
		}
	case gltf.AccessorVec3:
		switch acc.ComponentType {
		case gltf.ComponentUshort:
			elem = &[3]uint16{}
		case gltf.ComponentUint:
			elem = &[3]uint32{}
		case gltf.ComponentFloat:
			elem = &[3]float32{}
		}
	case gltf.AccessorVec4:
		switch acc.ComponentType {
		case gltf.ComponentUshort:
			elem = &[4]uint16{}
		case gltf.ComponentUint:
			elem = &[4]uint32{}
		case gltf.ComponentFloat:
			elem = &[4]float32{}
		}
	case gltf.AccessorScalar:
		switch acc.ComponentType {
		case gltf.ComponentUbyte:
			elem = new(uint8)
		case gltf.ComponentUshort:
			elem = new(uint16)
		case gltf.ComponentUint:
			elem = new(uint32)
		case gltf.ComponentFloat:
			elem = new(float32)
		}
	}
	if elem == nil {
		return fmt.Errorf("unsupported accessor layout %v/%v", acc.Type, acc.ComponentType)
	}

	size := binary.Size(elem)
	stride := bv.ByteStride
	if stride == 0 {
		stride = size
	}
	for i := 0; i < acc.Count; i++ {
		off := bv.ByteOffset + acc.ByteOffset + i*stride
		if off+size > len(data) {
			return fmt.Errorf("accessor %q overruns its buffer", acc.Name)
		}
		if err := binary.Read(bytes.NewReader(data[off:off+size]), binary.LittleEndian, elem); err != nil {
			return err
		}
		visit(elem)
	}
	return nil
}
