package asset

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	dae "github.com/flywave/go-collada"
	mst "github.com/flywave/go-mst"
	dmat "github.com/flywave/go3d/float64/mat4"
	dvec3 "github.com/flywave/go3d/float64/vec3"
	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"
)

// ColladaDecoder reads COLLADA (.dae) documents. Geometry placed once is
// baked through its node transform; geometry placed several times (directly
// or via instance_node) becomes an MST instance node.
type ColladaDecoder struct{}

func (d *ColladaDecoder) Decode(path string) (*mst.Mesh, *[6]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()
	doc, err := dae.LoadDocumentFromReader(file)
	if err != nil {
		return nil, nil, fmt.Errorf("parse collada: %w", err)
	}

	c := &daeConversion{
		baseDir:   filepath.Dir(path),
		textures:  make(map[string]*mst.Texture),
		materials: make(map[string]*dae.Material),
		effects:   make(map[string]*dae.Effect),
	}

	for _, lib := range doc.LibraryImages {
		for _, img := range lib.Image {
			_, fn := filepath.Split(img.InitFrom.Ref.Ref)
			tex, err := LoadTexture(filepath.Join(c.baseDir, fn), c.nextTexID)
			if err != nil {
				slog.Warn("collada texture unavailable", "image", fn, "error", err)
				continue
			}
			c.textures[string(img.HasId.Id)] = tex
			c.nextTexID++
		}
	}
	for _, lib := range doc.LibraryMaterials {
		for _, m := range lib.Material {
			c.materials[string(m.Id)] = m
		}
	}
	for _, lib := range doc.LibraryEffects {
		for _, e := range lib.Effect {
			c.effects[string(e.Id)] = e
		}
	}

	geos := make(map[string]*dae.Geometry)
	var geoOrder []string
	for _, lib := range doc.LibraryGeometries {
		for _, g := range lib.Geometry {
			geos[string(g.Id)] = g
			geoOrder = append(geoOrder, string(g.Id))
		}
	}

	nodesByID := make(map[string]*dae.Node)
	var sceneNodes []*dae.Node
	for _, lib := range doc.LibraryVisualScenes {
		for _, vs := range lib.VisualScene {
			for _, nd := range vs.Node {
				nodesByID[string(nd.Id)] = nd
				sceneNodes = append(sceneNodes, nd)
			}
		}
	}

	// One world matrix per placement; several placements of the same
	// geometry turn into instancing below.
	usage := make(map[string][]*dmat.T)
	for _, nd := range sceneNodes {
		world := nodeMatrixDAE(nd)
		for _, ig := range nd.InstanceGeometry {
			id := ig.Url.GetId()
			usage[id] = append(usage[id], world)
		}
		for _, in := range nd.InstanceNode {
			ref := nodesByID[in.Url.GetId()]
			if ref == nil {
				continue
			}
			composed := dmat.Ident
			composed.AssignMul(world, nodeMatrixDAE(ref))
			for _, ig := range ref.InstanceGeometry {
				id := ig.Url.GetId()
				usage[id] = append(usage[id], &composed)
			}
		}
	}

	out := mst.NewMesh()
	bounds := dvec3.MinBox
	mtlIdx := make(map[string]int32)
	for _, id := range geoOrder {
		geo := geos[id]
		if geo == nil {
			continue
		}
		// Documents without a visual scene just list geometry.
		if len(sceneNodes) == 0 {
			bx := c.appendGeometry(out, geo, nil, mtlIdx)
			bounds.Join(bx)
			continue
		}
		mats := usage[id]
		switch len(mats) {
		case 0:
			// Library leftovers nothing places.
		case 1:
			bx := c.appendGeometry(out, geo, mats[0], mtlIdx)
			bounds.Join(bx)
		default:
			sub := mst.NewMesh()
			bx := c.appendGeometry(sub, geo, nil, make(map[string]int32))
			inst := &mst.InstanceMesh{BBox: bx.Array(), Mesh: &sub.BaseMesh}
			for _, m := range mats {
				inst.Transfors = append(inst.Transfors, m)
				extendByBox(&bounds, bx.Array(), m)
			}
			out.InstanceNode = append(out.InstanceNode, inst)
		}
	}

	return out, bounds.Array(), nil
}

type daeConversion struct {
	baseDir   string
	nextTexID int
	textures  map[string]*mst.Texture
	materials map[string]*dae.Material
	effects   map[string]*dae.Effect
}

// appendGeometry converts one geometry into a node of dst. Primitive streams
// index shared source pools, so conversion runs in two passes: collect face
// groups plus per-corner normals and texcoords, then de-index positions and
// renumber the faces sequentially.
func (c *daeConversion) appendGeometry(dst *mst.Mesh, geo *dae.Geometry, world *dmat.T, mtlIdx map[string]int32) *dvec3.Box {
	node := &mst.MeshNode{}
	mh := geo.Mesh

	srcs := make(map[string]*dae.Source)
	for _, s := range mh.Source {
		srcs[string(s.Id)] = s
	}

	for _, p := range mh.Polylist {
		g := c.polylistGroup(p, srcs, node)
		g.Batchid = c.materialIndex(dst, p.Material, mtlIdx)
		node.FaceGroup = append(node.FaceGroup, g)
	}
	var tgs []dae.Trig
	for _, t := range mh.Triangles {
		tgs = append(tgs, t)
	}
	for _, t := range mh.Trifans {
		tgs = append(tgs, t)
	}
	for _, t := range mh.Tristrips {
		tgs = append(tgs, t)
	}
	for _, t := range tgs {
		g := c.trianglesGroup(t, srcs, node)
		if g == nil {
			continue
		}
		g.Batchid = c.materialIndex(dst, t.GetMaterial(), mtlIdx)
		node.FaceGroup = append(node.FaceGroup, g)
	}

	bounds := dvec3.MinBox
	for _, in := range mh.Vertices.Input {
		bx := c.readVertexInput(in, srcs, node, world)
		bounds.Join(bx)
	}
	renumberFaces(node)
	dst.Nodes = append(dst.Nodes, node)
	return &bounds
}

// triangulateCorners returns per-triangle corner slots for an n-corner
// polygon: quads split into two triangles, larger polygons fan out.
func triangulateCorners(n int) [][3]int {
	switch {
	case n < 3:
		return nil
	case n == 3:
		return [][3]int{{0, 1, 2}}
	case n == 4:
		return [][3]int{{0, 1, 2}, {2, 3, 0}}
	}
	out := make([][3]int, 0, n-2)
	for k := 1; k+1 < n; k++ {
		out = append(out, [3]int{0, k, k + 1})
	}
	return out
}

func (c *daeConversion) polylistGroup(p *dae.Polylist, srcs map[string]*dae.Source, node *mst.MeshNode) *mst.MeshTriangle {
	group := &mst.MeshTriangle{}
	var vertexIn *dae.InputShared
	for _, in := range p.Input {
		if in.Semantic == "VERTEX" {
			vertexIn = in
			break
		}
	}
	if vertexIn == nil {
		return group
	}

	inputCount := len(p.Input)
	offset := int(vertexIn.Offset)
	counts := p.VCount.ToSlice()
	idxs := p.P.ToSlice()

	j := 0
	for i := 0; i < len(counts); i++ {
		n64, _ := strconv.ParseInt(strings.TrimSpace(counts[i]), 10, 32)
		n := int(n64)
		if j+(n-1)*inputCount+offset >= len(idxs) {
			break
		}
		fs := make([]uint32, n)
		for k := 0; k < n; k++ {
			v, _ := strconv.ParseInt(idxs[j+offset], 10, 32)
			fs[k] = uint32(v)
			j += inputCount
		}
		for _, tri := range triangulateCorners(n) {
			group.Faces = append(group.Faces, &mst.Face{
				Vertex: [3]uint32{fs[tri[0]], fs[tri[1]], fs[tri[2]]},
			})
		}
	}

	for _, in := range p.Input {
		switch in.Semantic {
		case "NORMAL":
			c.readPolylistVectors(in, p, srcs, 3, func(v []float64) {
				node.Normals = append(node.Normals, vec3.T{float32(v[0]), float32(v[1]), float32(v[2])})
			})
		case "TEXCOORD":
			c.readPolylistVectors(in, p, srcs, 2, func(v []float64) {
				node.TexCoords = append(node.TexCoords, vec2.T{float32(v[0]), float32(v[1])})
			})
		}
	}
	return group
}

// readPolylistVectors walks the polylist index stream at one input's offset
// and emits want floats per corner, in the same triangulated corner order
// polylistGroup produced.
func (c *daeConversion) readPolylistVectors(in *dae.InputShared, p *dae.Polylist, srcs map[string]*dae.Source, want int, emit func([]float64)) {
	src := srcs[in.Source.GetId()]
	if src == nil {
		return
	}
	ay := src.FloatArray.ToSlice()
	stride := src.TechniqueCommon.Accessor.Stride
	counts := p.VCount.ToSlice()
	idxs := p.P.ToSlice()
	inputCount := len(p.Input)
	offset := int(in.Offset)
	vals := make([]float64, want)

	j := 0
	for i := 0; i < len(counts); i++ {
		n64, _ := strconv.ParseInt(strings.TrimSpace(counts[i]), 10, 32)
		n := int(n64)
		if j+(n-1)*inputCount+offset >= len(idxs) {
			return
		}
		fs := make([]int, n)
		for k := 0; k < n; k++ {
			v, _ := strconv.ParseInt(idxs[j+offset], 10, 32)
			fs[k] = int(v)
			j += inputCount
		}
		for _, tri := range triangulateCorners(n) {
			for _, slot := range tri {
				pos := fs[slot] * stride
				if pos < 0 || pos+want > len(ay) {
					continue
				}
				for w := 0; w < want; w++ {
					vals[w], _ = strconv.ParseFloat(strings.TrimSpace(ay[pos+w]), 64)
				}
				emit(vals)
			}
		}
	}
}

func (c *daeConversion) trianglesGroup(t dae.Trig, srcs map[string]*dae.Source, node *mst.MeshNode) *mst.MeshTriangle {
	inputs := t.GetSharedInput()
	var vertexIn *dae.InputShared
	for _, in := range inputs {
		if in.Semantic == "VERTEX" {
			vertexIn = in
			break
		}
	}
	if vertexIn == nil {
		return nil
	}

	group := &mst.MeshTriangle{}
	inputCount := len(inputs)
	offset := int(vertexIn.Offset)
	idxs := t.GetP().ToSlice()
	count := int(t.GetCount())
	for k := 0; k < count; k++ {
		base := k * inputCount * 3
		if base+2*inputCount+offset >= len(idxs) {
			break
		}
		f := [3]uint32{}
		for s := 0; s < 3; s++ {
			v, _ := strconv.ParseInt(idxs[base+s*inputCount+offset], 10, 32)
			f[s] = uint32(v)
		}
		group.Faces = append(group.Faces, &mst.Face{Vertex: f})
	}

	for _, in := range inputs {
		switch in.Semantic {
		case "NORMAL":
			c.readTrigVectors(in, t, srcs, 3, func(v []float64) {
				node.Normals = append(node.Normals, vec3.T{float32(v[0]), float32(v[1]), float32(v[2])})
			})
		case "TEXCOORD":
			c.readTrigVectors(in, t, srcs, 2, func(v []float64) {
				node.TexCoords = append(node.TexCoords, vec2.T{float32(v[0]), float32(v[1])})
			})
		}
	}
	return group
}

func (c *daeConversion) readTrigVectors(in *dae.InputShared, t dae.Trig, srcs map[string]*dae.Source, want int, emit func([]float64)) {
	src := srcs[in.Source.GetId()]
	if src == nil {
		return
	}
	ay := src.FloatArray.ToSlice()
	stride := src.TechniqueCommon.Accessor.Stride
	idxs := t.GetP().ToSlice()
	inputCount := len(t.GetSharedInput())
	offset := int(in.Offset)
	vals := make([]float64, want)

	for i := 0; i+offset < len(idxs); i += inputCount {
		tm, _ := strconv.ParseInt(idxs[i+offset], 10, 32)
		pos := int(tm) * stride
		if pos < 0 || pos+want > len(ay) {
			continue
		}
		for w := 0; w < want; w++ {
			vals[w], _ = strconv.ParseFloat(strings.TrimSpace(ay[pos+w]), 64)
		}
		emit(vals)
	}
}

// readVertexInput de-indexes one vertex-pool input, walking faces in group
// order so the result lines up with the per-corner normals and texcoords.
func (c *daeConversion) readVertexInput(in *dae.InputUnshared, srcs map[string]*dae.Source, node *mst.MeshNode, world *dmat.T) *dvec3.Box {
	bounds := dvec3.MinBox
	src := srcs[in.Source.GetId()]
	if src == nil {
		return &bounds
	}
	ay := src.FloatArray.ToSlice()
	stride := src.TechniqueCommon.Accessor.Stride

	vt := dvec3.T{}
	for _, fg := range node.FaceGroup {
		for _, f := range fg.Faces {
			for _, i := range f.Vertex {
				pos := int(i) * stride
				if pos < 0 || pos+3 > len(ay) {
					continue
				}
				vt[0], _ = strconv.ParseFloat(strings.TrimSpace(ay[pos]), 64)
				vt[1], _ = strconv.ParseFloat(strings.TrimSpace(ay[pos+1]), 64)
				vt[2], _ = strconv.ParseFloat(strings.TrimSpace(ay[pos+2]), 64)
				switch in.Semantic {
				case "POSITION":
					if world != nil {
						vt = world.MulVec3(&vt)
					}
					node.Vertices = append(node.Vertices, vec3.T{float32(vt[0]), float32(vt[1]), float32(vt[2])})
					bounds.Extend(&vt)
				case "NORMAL":
					node.Normals = append(node.Normals, vec3.T{float32(vt[0]), float32(vt[1]), float32(vt[2])})
				}
			}
		}
	}
	return &bounds
}

// renumberFaces rewrites face indices to the sequential per-corner layout
// the de-indexed vertex array uses.
func renumberFaces(node *mst.MeshNode) {
	rebuilt := make([]*mst.MeshTriangle, 0, len(node.FaceGroup))
	next := uint32(0)
	for _, fg := range node.FaceGroup {
		ng := &mst.MeshTriangle{Batchid: fg.Batchid}
		for range fg.Faces {
			ng.Faces = append(ng.Faces, &mst.Face{Vertex: [3]uint32{next, next + 1, next + 2}})
			next += 3
		}
		rebuilt = append(rebuilt, ng)
	}
	node.FaceGroup = rebuilt
}

func (c *daeConversion) materialIndex(dst *mst.Mesh, symbol string, mtlIdx map[string]int32) int32 {
	if idx, ok := mtlIdx[symbol]; ok {
		return idx
	}
	idx := int32(len(dst.Materials))
	dst.Materials = append(dst.Materials, c.convertMaterial(c.materials[symbol]))
	mtlIdx[symbol] = idx
	return idx
}

func (c *daeConversion) convertMaterial(mtl *dae.Material) mst.MeshMaterial {
	base := &mst.BaseMaterial{Color: [3]byte{255, 255, 255}}
	if mtl == nil {
		return base
	}
	effect, ok := c.effects[string(mtl.InstanceEffect.Url.GetId())]
	if !ok {
		return base
	}
	common := effect.ProfileCommon

	if len(common.Newparam) > 0 {
		tm := &mst.TextureMaterial{}
		tm.Color = [3]byte{255, 255, 255}
		for _, param := range common.Newparam {
			if param.Semantic.Value == "DIFFUSECOLOR" {
				if param.Float3 != nil {
					colorBytes(param.Float3.ToSlice(), &base.Color)
					return base
				}
				if param.Float4 != nil {
					sc := param.Float4.ToSlice()
					colorBytes(sc, &base.Color)
					if len(sc) > 3 {
						a, _ := strconv.ParseFloat(strings.TrimSpace(sc[3]), 32)
						base.Transparency = 1 - float32(a)
					}
					return base
				}
			} else if param.Sampler2D != nil {
				if tex, ok := c.textures[param.Sampler2D.Source.Texture]; ok {
					tm.Texture = tex
				}
			}
		}
		if tm.Texture != nil {
			return tm
		}
		return base
	}

	if common.TechniqueFx != nil && common.TechniqueFx.Phone != nil {
		phg := common.TechniqueFx.Phone
		pmt := &mst.PhongMaterial{}
		if phg.Diffuse != nil && phg.Diffuse.Texture != nil {
			tex, ok := c.textures[phg.Diffuse.Texture.Texture]
			if !ok {
				return base
			}
			pmt.Texture = tex
		} else if phg.Diffuse != nil && phg.Diffuse.Color != nil {
			colorBytes(phg.Diffuse.Color.Float3.ToSlice(), &pmt.Diffuse)
			pmt.Color = pmt.Diffuse
		}
		if phg.Emission != nil && phg.Emission.Color != nil {
			colorBytes(phg.Emission.Color.Float3.ToSlice(), &pmt.Emissive)
		}
		if phg.AmbientFx != nil && phg.AmbientFx.Color != nil {
			colorBytes(phg.AmbientFx.Color.Float3.ToSlice(), &pmt.Ambient)
		}
		if phg.Specular != nil && phg.Specular.Color != nil {
			colorBytes(phg.Specular.Color.Float3.ToSlice(), &pmt.Specular)
		}
		if phg.Shininess != nil && phg.Shininess.Float != nil {
			pmt.Shininess = float32(phg.Shininess.Float.Value)
		}
		if phg.Transparency != nil && phg.Transparency.Float != nil {
			pmt.Transparency = 1 - float32(phg.Transparency.Float.Value)
		}
		return pmt
	}

	return base
}

func colorBytes(vals []string, dst *[3]byte) {
	for i := 0; i < 3 && i < len(vals); i++ {
		v, _ := strconv.ParseFloat(strings.TrimSpace(vals[i]), 32)
		dst[i] = byte(v * 255)
	}
}

// nodeMatrixDAE composes a visual-scene node's transform elements into one
// matrix. A matrix element wins outright; otherwise rotate/scale/translate
// compose as T * R * S. COLLADA writes matrices row-major and angles in
// degrees.
func nodeMatrixDAE(nd *dae.Node) *dmat.T {
	if len(nd.Matrix) > 0 {
		var a [16]float64
		for i, s := range nd.Matrix[0].ToSlice() {
			if i > 15 {
				break
			}
			a[i], _ = strconv.ParseFloat(strings.TrimSpace(s), 64)
		}
		return matrixFromArray(a).Transpose()
	}

	m := dmat.Ident
	for _, r := range nd.Rotate {
		var v [4]float64
		for i, s := range r.ToSlice() {
			if i > 3 {
				break
			}
			v[i], _ = strconv.ParseFloat(strings.TrimSpace(s), 64)
		}
		rad := v[3] * math.Pi / 180
		step := dmat.Ident
		switch {
		case math.Abs(v[0]) >= math.Abs(v[1]) && math.Abs(v[0]) >= math.Abs(v[2]):
			step.AssignXRotation(rad)
		case math.Abs(v[1]) >= math.Abs(v[2]):
			step.AssignYRotation(rad)
		default:
			step.AssignZRotation(rad)
		}
		next := dmat.Ident
		next.AssignMul(&m, &step)
		m = next
	}

	scale := dvec3.T{1, 1, 1}
	if len(nd.Scale) > 0 {
		for i, s := range nd.Scale[0].ToSlice() {
			if i > 2 {
				break
			}
			scale[i], _ = strconv.ParseFloat(strings.TrimSpace(s), 64)
		}
	}
	m.ScaleVec3(&scale)

	if len(nd.Translate) > 0 {
		var t dvec3.T
		for i, s := range nd.Translate[0].ToSlice() {
			if i > 2 {
				break
			}
			t[i], _ = strconv.ParseFloat(strings.TrimSpace(s), 64)
		}
		m.Translate(&t)
	}
	return &m
}
