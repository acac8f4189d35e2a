package asset

import (
	"fmt"

	mst "github.com/flywave/go-mst"
	stl "github.com/flywave/go-stl"
	dvec3 "github.com/flywave/go3d/float64/vec3"
)

// STLDecoder reads binary or ASCII STL. STL carries bare triangles, so the
// result is a single node with one face group and the untextured default
// material.
type STLDecoder struct{}

func (d *STLDecoder) Decode(path string) (*mst.Mesh, *[6]float64, error) {
	solid, err := stl.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read stl: %w", err)
	}
	mesh, bounds, err := meshFromSolid(solid)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return mesh, bounds, nil
}

// meshFromSolid converts an in-memory STL solid to a one-node mesh.
func meshFromSolid(solid *stl.Solid) (*mst.Mesh, *[6]float64, error) {
	if len(solid.Triangles) == 0 {
		return nil, nil, fmt.Errorf("stl solid %q has no triangles", solid.Name)
	}

	mesh := mst.NewMesh()
	mesh.Materials = append(mesh.Materials, &mst.BaseMaterial{Color: untexturedGrey})

	node := &mst.MeshNode{}
	group := &mst.MeshTriangle{Batchid: 0}
	bounds := dvec3.MinBox
	for _, tri := range solid.Triangles {
		for _, v := range tri.Vertices {
			node.Vertices = append(node.Vertices, v)
			p := dvec3.T{float64(v[0]), float64(v[1]), float64(v[2])}
			bounds.Extend(&p)
		}
		base := uint32(len(node.Vertices) - 3)
		group.Faces = append(group.Faces, &mst.Face{
			Vertex: [3]uint32{base, base + 1, base + 2},
		})
	}
	node.FaceGroup = append(node.FaceGroup, group)
	node.ReComputeNormal()
	mesh.Nodes = append(mesh.Nodes, node)

	return mesh, bounds.Array(), nil
}
