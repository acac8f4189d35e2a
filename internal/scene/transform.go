package scene

import (
	"math"

	mat4d "github.com/flywave/go3d/float64/mat4"
	"github.com/flywave/go3d/float64/quaternion"
	vec3d "github.com/flywave/go3d/float64/vec3"
)

// Transform is the placement of an entity in the world: position, Euler XYZ
// rotation in degrees, and per-axis scale. Value type: assignment copies, so a
// snapshot taken for undo stays stable while the live value keeps changing.
type Transform struct {
	Position vec3d.T `yaml:"position" json:"position"`
	Rotation vec3d.T `yaml:"rotation" json:"rotation"`
	Scale    vec3d.T `yaml:"scale" json:"scale"`
}

// Identity returns a transform with zero position/rotation and unit scale.
func Identity() Transform {
	return Transform{Scale: vec3d.T{1, 1, 1}}
}

// Quaternion returns the rotation as a unit quaternion in (x, y, z, w) order.
func (t Transform) Quaternion() quaternion.T {
	return eulerQuaternion(t.Rotation)
}

// Matrix composes position, rotation, and scale into a single TRS matrix.
func (t Transform) Matrix() mat4d.T {
	pos := t.Position
	rot := eulerQuaternion(t.Rotation)
	scl := t.Scale
	return *mat4d.Compose(&pos, &rot, &scl)
}

// eulerQuaternion converts Euler XYZ degrees to a quaternion, X applied first.
func eulerQuaternion(deg vec3d.T) quaternion.T {
	sx, cx := math.Sincos(deg[0] * math.Pi / 360)
	sy, cy := math.Sincos(deg[1] * math.Pi / 360)
	sz, cz := math.Sincos(deg[2] * math.Pi / 360)
	return quaternion.T{
		sx*cy*cz + cx*sy*sz,
		cx*sy*cz - sx*cy*sz,
		cx*cy*sz + sx*sy*cz,
		cx*cy*cz - sx*sy*sz,
	}
}
