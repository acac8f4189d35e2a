package scene

import (
	vec3d "github.com/flywave/go3d/float64/vec3"
)

// WorldBounds returns the entity's axis-aligned bounds after its transform.
// The eight corners of the local box are transformed and re-boxed, so the
// result is conservative for rotated entities.
func WorldBounds(e *Entity) vec3d.Box {
	mat := e.Transform.Matrix()
	lo := vec3d.T{e.Bounds[0], e.Bounds[1], e.Bounds[2]}
	hi := vec3d.T{e.Bounds[3], e.Bounds[4], e.Bounds[5]}
	box := vec3d.MinBox
	for i := 0; i < 8; i++ {
		c := lo
		if i&1 != 0 {
			c[0] = hi[0]
		}
		if i&2 != 0 {
			c[1] = hi[1]
		}
		if i&4 != 0 {
			c[2] = hi[2]
		}
		p := mat.MulVec3(&c)
		box.Extend(&p)
	}
	return box
}

// CombinedBounds returns the union of all entities' world bounds.
// ok is false when the scene is empty.
func (s *Scene) CombinedBounds() (box vec3d.Box, ok bool) {
	if len(s.entities) == 0 {
		return vec3d.Box{}, false
	}
	box = vec3d.MinBox
	for _, e := range s.entities {
		eb := WorldBounds(e)
		box.Join(&eb)
	}
	return box, true
}
