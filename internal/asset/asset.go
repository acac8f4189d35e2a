package asset

import (
	"fmt"
	"path/filepath"
	"strings"

	mst "github.com/flywave/go-mst"
	dmat "github.com/flywave/go3d/float64/mat4"
	dvec3 "github.com/flywave/go3d/float64/vec3"
	dvec4 "github.com/flywave/go3d/float64/vec4"
)

// Format identifies a model file format handled by this package.
type Format string

const (
	FormatSTL  Format = "stl"
	FormatGLTF Format = "gltf"
	FormatGLB  Format = "glb"
	Format3DS  Format = "3ds"
	FormatFBX  Format = "fbx"
	FormatDAE  Format = "dae"
	FormatMST  Format = "mst"
)

// Detect maps path to a format by file extension.
func Detect(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".stl":
		return FormatSTL, nil
	case ".gltf":
		return FormatGLTF, nil
	case ".glb":
		return FormatGLB, nil
	case ".3ds":
		return Format3DS, nil
	case ".fbx":
		return FormatFBX, nil
	case ".dae":
		return FormatDAE, nil
	case ".mst":
		return FormatMST, nil
	}
	return "", fmt.Errorf("unsupported model extension %q", filepath.Ext(path))
}

// Decoder reads one model file into the MST container. Every decoder returns
// the mesh together with its local-space bounds as min x,y,z then max x,y,z.
type Decoder interface {
	Decode(path string) (*mst.Mesh, *[6]float64, error)
}

// DecoderFor returns the decoder for a format, or nil when the format cannot
// be imported (MST is export-only).
func DecoderFor(f Format) Decoder {
	switch f {
	case FormatSTL:
		return &STLDecoder{}
	case FormatGLTF, FormatGLB:
		return &GLTFDecoder{}
	case Format3DS:
		return &ThreeDSDecoder{}
	case FormatFBX:
		return &FBXDecoder{}
	case FormatDAE:
		return &ColladaDecoder{}
	}
	return nil
}

// Encoder writes an MST mesh out as one model file.
type Encoder interface {
	Encode(path string, mesh *mst.Mesh) error
}

// EncoderFor returns the encoder for a format, or nil when the format cannot
// be exported (3DS, FBX and COLLADA are import-only).
func EncoderFor(f Format) Encoder {
	switch f {
	case FormatSTL:
		return &STLEncoder{}
	case FormatGLTF:
		return &GLTFEncoder{}
	case FormatGLB:
		return &GLTFEncoder{Binary: true}
	case FormatMST:
		return &MSTEncoder{}
	}
	return nil
}

// untexturedGrey is the material given to meshes whose format carries no
// material data at all (STL, and primitives without a material reference).
var untexturedGrey = [3]byte{200, 200, 200}

// matrixFromArray builds a matrix from 16 column-major floats, the layout
// both glTF and FBX hand over.
func matrixFromArray(a [16]float64) *dmat.T {
	m := &dmat.T{}
	m[0] = dvec4.T{a[0], a[1], a[2], a[3]}
	m[1] = dvec4.T{a[4], a[5], a[6], a[7]}
	m[2] = dvec4.T{a[8], a[9], a[10], a[11]}
	m[3] = dvec4.T{a[12], a[13], a[14], a[15]}
	return m
}

// extendByBox grows dst by a local-space box seen through a transform. All
// eight corners go through the matrix; axis-aligned boxes do not survive
// rotation, their corners do.
func extendByBox(dst *dvec3.Box, local *[6]float64, m *dmat.T) {
	for i := 0; i < 8; i++ {
		c := dvec3.T{local[(i&1)*3], local[1+((i>>1)&1)*3], local[2+((i>>2)&1)*3]}
		c = m.MulVec3(&c)
		dst.Extend(&c)
	}
}
