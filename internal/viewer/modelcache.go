package viewer

import (
	"bytes"
	"compress/zlib"
	"image"
	"io"

	"github.com/chewxy/math32"
	mst "github.com/flywave/go-mst"
	dmat "github.com/flywave/go3d/float64/mat4"
	vec3 "github.com/flywave/go3d/vec3"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/google/uuid"

	"mesh-studio/internal/scene"
)

// gpuMesh pairs an uploaded mesh with the vertex slices it points into.
// The slices are held so the GC keeps them alive as long as the GPU buffers.
type gpuMesh struct {
	mesh  rl.Mesh
	verts []float32
	norms []float32
	uvs   []float32
}

// drawItem is one DrawMesh call: a mesh, its material, and the placement the
// mesh carries before the entity transform (identity for direct nodes, the
// instance matrix for instanced geometry).
type drawItem struct {
	mesh  int
	mat   int
	local rl.Matrix
}

// modelGPU is everything uploaded for one entity.
type modelGPU struct {
	meshes []gpuMesh
	mats   []rl.Material
	texs   []rl.Texture2D
	draws  []drawItem
}

// ModelCache uploads entity meshes to the GPU on first draw and keeps them
// keyed by handle. Uploads are lazy so they happen after the window/OpenGL
// context exists; evictions follow scene revisions.
type ModelCache struct {
	models map[uuid.UUID]*modelGPU

	lit       rl.Shader
	litTex    rl.Shader
	litLocs   shaderLocs
	texLocs   shaderLocs
	shadersOK bool

	viewPos  [3]float32
	lightDir [3]float32

	lastRevision uint64
	synced       bool
}

type shaderLocs struct {
	viewPos  int32
	lightDir int32
}

// NewModelCache returns an empty cache. GPU resources are created on first Draw.
func NewModelCache() *ModelCache {
	return &ModelCache{
		models:   make(map[uuid.UUID]*modelGPU),
		lightDir: [3]float32{0.5, 1, 0.5},
	}
}

// SetView sets camera position and direction-to-light for this frame. Call once
// per frame before Draw so the lit shaders shade from the right viewpoint.
func (mc *ModelCache) SetView(viewPos, lightDir [3]float32) {
	mc.viewPos = viewPos
	mc.lightDir = lightDir
}

// Draw renders every scene entity. Must be called between BeginMode3D and
// EndMode3D. Entities not yet uploaded are uploaded now; entities gone from
// the scene are released.
func (mc *ModelCache) Draw(sc *scene.Scene) {
	mc.ensureShaders()
	mc.sweep(sc)
	mc.applyUniforms()

	for i := 0; i < sc.Len(); i++ {
		e := sc.At(i)
		g, ok := mc.models[e.Handle]
		if !ok {
			g = uploadEntity(e, mc.lit, mc.litTex)
			mc.models[e.Handle] = g
		}
		m := e.Transform.Matrix()
		world := rlMatrix(&m)
		for _, d := range g.draws {
			rl.DrawMesh(g.meshes[d.mesh].mesh, g.mats[d.mat], rl.MatrixMultiply(d.local, world))
		}
	}
}

// sweep releases GPU data for entities that left the scene. Skipped while the
// revision is unchanged, so the per-frame cost is one counter compare.
func (mc *ModelCache) sweep(sc *scene.Scene) {
	if mc.synced && sc.Revision() == mc.lastRevision {
		return
	}
	mc.lastRevision = sc.Revision()
	mc.synced = true
	for id, g := range mc.models {
		if sc.Get(id) == nil {
			g.unload()
			delete(mc.models, id)
		}
	}
}

func (mc *ModelCache) ensureShaders() {
	if mc.shadersOK {
		return
	}
	mc.shadersOK = true
	mc.lit = rl.LoadShaderFromMemory(litVS, litFS)
	mc.litTex = rl.LoadShaderFromMemory(litVS, litTexturedFS)
	mc.litLocs = lookupLocs(mc.lit)
	mc.texLocs = lookupLocs(mc.litTex)
}

func lookupLocs(sh rl.Shader) shaderLocs {
	if !rl.IsShaderValid(sh) {
		return shaderLocs{viewPos: -1, lightDir: -1}
	}
	return shaderLocs{
		viewPos:  rl.GetShaderLocation(sh, "viewPos"),
		lightDir: rl.GetShaderLocation(sh, "lightDir"),
	}
}

func (mc *ModelCache) applyUniforms() {
	mc.applyTo(mc.lit, mc.litLocs)
	mc.applyTo(mc.litTex, mc.texLocs)
}

func (mc *ModelCache) applyTo(sh rl.Shader, locs shaderLocs) {
	if !rl.IsShaderValid(sh) {
		return
	}
	if locs.viewPos >= 0 {
		viewPos := []float32{mc.viewPos[0], mc.viewPos[1], mc.viewPos[2]}
		rl.SetShaderValueV(sh, locs.viewPos, viewPos, rl.ShaderUniformVec3, 1)
	}
	if locs.lightDir >= 0 {
		lightDir := []float32{mc.lightDir[0], mc.lightDir[1], mc.lightDir[2]}
		rl.SetShaderValueV(sh, locs.lightDir, lightDir, rl.ShaderUniformVec3, 1)
	}
}

// uploadEntity converts every face group to a triangle-soup mesh and uploads
// it. Instanced geometry is uploaded once and drawn per placement matrix.
func uploadEntity(e *scene.Entity, lit, litTex rl.Shader) *modelGPU {
	g := &modelGPU{}
	if e.Mesh == nil {
		return g
	}
	for _, m := range e.Mesh.Materials {
		g.addMaterial(m, lit, litTex)
	}
	if len(g.mats) == 0 {
		g.mats = append(g.mats, plainMaterial(rl.NewColor(190, 190, 190, 255), lit))
	}

	for _, nd := range e.Mesh.Nodes {
		g.draws = append(g.draws, g.addNode(nd)...)
	}
	for _, inst := range e.Mesh.InstanceNode {
		var items []drawItem
		for _, nd := range inst.Mesh.Nodes {
			items = append(items, g.addNode(nd)...)
		}
		for _, tf := range inst.Transfors {
			local := rlMatrix(tf)
			for _, it := range items {
				it.local = local
				g.draws = append(g.draws, it)
			}
		}
	}
	return g
}

// addNode uploads one mesh per face group and returns draw items with identity
// placement. Face groups with a Batchid outside the material list fall back to
// material 0.
func (g *modelGPU) addNode(nd *mst.MeshNode) []drawItem {
	var items []drawItem
	for _, fg := range nd.FaceGroup {
		gm := soupMesh(nd, fg)
		if gm == nil {
			continue
		}
		rl.UploadMesh(&gm.mesh, false)
		g.meshes = append(g.meshes, *gm)
		mat := int(fg.Batchid)
		if mat < 0 || mat >= len(g.mats) {
			mat = 0
		}
		items = append(items, drawItem{mesh: len(g.meshes) - 1, mat: mat, local: rl.MatrixIdentity()})
	}
	return items
}

// soupMesh de-indexes one face group into flat triangle arrays. Indexed draws
// would cap meshes at 65k vertices (raylib indices are uint16); a soup has no
// such limit and lets every corner carry its own normal.
func soupMesh(nd *mst.MeshNode, fg *mst.MeshTriangle) *gpuMesh {
	if len(fg.Faces) == 0 {
		return nil
	}
	vcount := len(fg.Faces) * 3
	hasNormals := len(nd.Normals) == len(nd.Vertices)
	hasUV := len(nd.TexCoords) == len(nd.Vertices)

	verts := make([]float32, 0, vcount*3)
	norms := make([]float32, 0, vcount*3)
	var uvs []float32
	if hasUV {
		uvs = make([]float32, 0, vcount*2)
	}

	for _, f := range fg.Faces {
		a, b, c := int(f.Vertex[0]), int(f.Vertex[1]), int(f.Vertex[2])
		if a >= len(nd.Vertices) || b >= len(nd.Vertices) || c >= len(nd.Vertices) {
			continue
		}
		var fn [3]float32
		if !hasNormals {
			fn = triangleNormal(nd.Vertices[a], nd.Vertices[b], nd.Vertices[c])
		}
		for _, vi := range f.Vertex {
			v := nd.Vertices[vi]
			verts = append(verts, v[0], v[1], v[2])
			if hasNormals {
				n := nd.Normals[vi]
				norms = append(norms, n[0], n[1], n[2])
			} else {
				norms = append(norms, fn[0], fn[1], fn[2])
			}
			if hasUV {
				t := nd.TexCoords[vi]
				uvs = append(uvs, t[0], t[1])
			}
		}
	}
	if len(verts) == 0 {
		return nil
	}

	gm := &gpuMesh{verts: verts, norms: norms, uvs: uvs}
	gm.mesh.VertexCount = int32(len(verts) / 3)
	gm.mesh.TriangleCount = int32(len(verts) / 9)
	gm.mesh.Vertices = &verts[0]
	gm.mesh.Normals = &norms[0]
	if len(uvs) > 0 {
		gm.mesh.Texcoords = &uvs[0]
	}
	return gm
}

func triangleNormal(a, b, c vec3.T) [3]float32 {
	ux, uy, uz := b[0]-a[0], b[1]-a[1], b[2]-a[2]
	vx, vy, vz := c[0]-a[0], c[1]-a[1], c[2]-a[2]
	nx := uy*vz - uz*vy
	ny := uz*vx - ux*vz
	nz := ux*vy - uy*vx
	l := math32.Sqrt(nx*nx + ny*ny + nz*nz)
	if l == 0 {
		return [3]float32{0, 1, 0}
	}
	return [3]float32{nx / l, ny / l, nz / l}
}

// addMaterial builds a raylib material from an MST one: albedo color from the
// base layer, albedo texture when the material carries one.
func (g *modelGPU) addMaterial(m mst.MeshMaterial, lit, litTex rl.Shader) {
	color := materialColor(m)
	if t := materialTexture(m); t != nil {
		if tex, ok := uploadTexture(t); ok {
			mtl := plainMaterial(color, litTex)
			rl.SetMaterialTexture(&mtl, rl.MapAlbedo, tex)
			g.texs = append(g.texs, tex)
			g.mats = append(g.mats, mtl)
			return
		}
	}
	g.mats = append(g.mats, plainMaterial(color, lit))
}

func plainMaterial(color rl.Color, shader rl.Shader) rl.Material {
	mtl := rl.LoadMaterialDefault()
	if albedo := mtl.GetMap(rl.MapAlbedo); albedo != nil {
		albedo.Color = color
	}
	if rl.IsShaderValid(shader) {
		mtl.Shader = shader
	}
	return mtl
}

func materialColor(m mst.MeshMaterial) rl.Color {
	var c [3]byte
	var tr float32
	switch t := m.(type) {
	case *mst.PbrMaterial:
		c, tr = t.Color, t.Transparency
	case *mst.PhongMaterial:
		c, tr = t.Color, t.Transparency
	case *mst.LambertMaterial:
		c, tr = t.Color, t.Transparency
	case *mst.TextureMaterial:
		c, tr = t.Color, t.Transparency
	case *mst.BaseMaterial:
		c, tr = t.Color, t.Transparency
	default:
		return rl.NewColor(190, 190, 190, 255)
	}
	if tr < 0 {
		tr = 0
	}
	if tr > 1 {
		tr = 1
	}
	return rl.NewColor(c[0], c[1], c[2], uint8((1-tr)*255))
}

func materialTexture(m mst.MeshMaterial) *mst.Texture {
	switch t := m.(type) {
	case *mst.PbrMaterial:
		return t.Texture
	case *mst.PhongMaterial:
		return t.Texture
	case *mst.LambertMaterial:
		return t.Texture
	case *mst.TextureMaterial:
		return t.Texture
	}
	return nil
}

// uploadTexture turns an RGBA (optionally zlib-compressed) MST texture into a
// GPU texture. Unknown formats report false and the material keeps its color.
func uploadTexture(t *mst.Texture) (rl.Texture2D, bool) {
	var zero rl.Texture2D
	if t.Format != mst.TEXTURE_FORMAT_RGBA {
		return zero, false
	}
	raw := t.Data
	if t.Compressed == mst.TEXTURE_COMPRESSED_ZLIB {
		zr, err := zlib.NewReader(bytes.NewReader(t.Data))
		if err != nil {
			return zero, false
		}
		raw, err = io.ReadAll(zr)
		zr.Close()
		if err != nil {
			return zero, false
		}
	}
	w, h := int(t.Size[0]), int(t.Size[1])
	if w <= 0 || h <= 0 || len(raw) < w*h*4 {
		return zero, false
	}

	img := &image.NRGBA{Pix: raw[:w*h*4], Stride: w * 4, Rect: image.Rect(0, 0, w, h)}
	rimg := rl.NewImageFromImage(img)
	tex := rl.LoadTextureFromImage(rimg)
	rl.UnloadImage(rimg)
	if !rl.IsTextureValid(tex) {
		return zero, false
	}
	rl.GenTextureMipmaps(&tex)
	rl.SetTextureFilter(tex, rl.FilterBilinear)
	if t.Repeated {
		rl.SetTextureWrap(tex, rl.WrapRepeat)
	}
	return tex, true
}

// unload releases GPU buffers and textures. The materials share the cache's
// lit shaders, so UnloadMaterial (which would release the shader too) is not
// used; the material structs are simply dropped.
func (g *modelGPU) unload() {
	for i := range g.meshes {
		rl.UnloadMesh(&g.meshes[i].mesh)
	}
	for _, t := range g.texs {
		rl.UnloadTexture(t)
	}
	g.meshes, g.mats, g.texs, g.draws = nil, nil, nil, nil
}

// rlMatrix converts a column-major float64 matrix to raylib's layout.
// Both index elements as column*4+row, so this is a straight cast per cell.
func rlMatrix(m *dmat.T) rl.Matrix {
	return rl.Matrix{
		M0: float32(m[0][0]), M1: float32(m[0][1]), M2: float32(m[0][2]), M3: float32(m[0][3]),
		M4: float32(m[1][0]), M5: float32(m[1][1]), M6: float32(m[1][2]), M7: float32(m[1][3]),
		M8: float32(m[2][0]), M9: float32(m[2][1]), M10: float32(m[2][2]), M11: float32(m[2][3]),
		M12: float32(m[3][0]), M13: float32(m[3][1]), M14: float32(m[3][2]), M15: float32(m[3][3]),
	}
}

// Shaders: directional light + ambient, with a small Blinn-Phong highlight.
// Vertex attribute and matrix uniform names follow raylib's conventions so
// DrawMesh binds them automatically; the textured variant samples texture0,
// which raylib wires to the material's albedo map.
const (
	litVS = `#version 330
in vec3 vertexPosition;
in vec2 vertexTexCoord;
in vec3 vertexNormal;
uniform mat4 matProjection;
uniform mat4 matView;
uniform mat4 matModel;
out vec3 fragPosition;
out vec2 fragTexCoord;
out vec3 fragNormal;
void main() {
  vec4 worldPos = matModel * vec4(vertexPosition, 1.0);
  fragPosition = worldPos.xyz;
  fragTexCoord = vertexTexCoord;
  fragNormal = mat3(matModel) * vertexNormal;
  gl_Position = matProjection * matView * worldPos;
}
`
	litFS = `#version 330
in vec3 fragPosition;
in vec2 fragTexCoord;
in vec3 fragNormal;
uniform vec4 colDiffuse;
uniform vec3 viewPos;
uniform vec3 lightDir;
out vec4 finalColor;
const vec3 ambient = vec3(0.22, 0.24, 0.28);
void main() {
  vec3 N = normalize(fragNormal);
  vec3 L = normalize(lightDir);
  vec3 V = normalize(viewPos - fragPosition);
  float NdotL = max(dot(N, L), 0.0);
  vec3 diffuse = colDiffuse.rgb * NdotL * 0.8;
  vec3 H = normalize(L + V);
  float spec = pow(max(dot(N, H), 0.0), 48.0) * 0.3 * step(0.0001, NdotL);
  finalColor = vec4(ambient * colDiffuse.rgb + diffuse + vec3(spec), colDiffuse.a);
}
`
	litTexturedFS = `#version 330
in vec3 fragPosition;
in vec2 fragTexCoord;
in vec3 fragNormal;
uniform vec4 colDiffuse;
uniform vec3 viewPos;
uniform vec3 lightDir;
uniform sampler2D texture0;
out vec4 finalColor;
const vec3 ambient = vec3(0.22, 0.24, 0.28);
void main() {
  vec4 tint = texture(texture0, fragTexCoord) * colDiffuse;
  vec3 N = normalize(fragNormal);
  vec3 L = normalize(lightDir);
  vec3 V = normalize(viewPos - fragPosition);
  float NdotL = max(dot(N, L), 0.0);
  vec3 diffuse = tint.rgb * NdotL * 0.8;
  vec3 H = normalize(L + V);
  float spec = pow(max(dot(N, H), 0.0), 48.0) * 0.3 * step(0.0001, NdotL);
  finalColor = vec4(ambient * tint.rgb + diffuse + vec3(spec), tint.a);
}
`
)
