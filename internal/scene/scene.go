package scene

import (
	mst "github.com/flywave/go-mst"
	vec3d "github.com/flywave/go3d/float64/vec3"
	"github.com/google/uuid"
)

// Entity is one loaded model in the scene. Handle is its stable identity;
// the entity's position in the scene list shifts as others are removed, so
// anything that outlives a single frame must hold the handle, never an index.
type Entity struct {
	Handle     uuid.UUID
	Name       string
	Format     string
	SourcePath string
	Mesh       *mst.Mesh
	Bounds     [6]float64 // local-space min x,y,z then max x,y,z from the decoder
	Transform  Transform
}

// NewEntity returns an entity with a fresh handle and identity transform.
func NewEntity(name, format, sourcePath string, mesh *mst.Mesh, bounds [6]float64) *Entity {
	return &Entity{
		Handle:     uuid.New(),
		Name:       name,
		Format:     format,
		SourcePath: sourcePath,
		Mesh:       mesh,
		Bounds:     bounds,
		Transform:  Identity(),
	}
}

// TriangleCount sums the triangles across all mesh nodes, counting instanced
// geometry once per placement.
func (e *Entity) TriangleCount() int {
	if e.Mesh == nil {
		return 0
	}
	total := 0
	for _, nd := range e.Mesh.Nodes {
		for _, fg := range nd.FaceGroup {
			total += len(fg.Faces)
		}
	}
	for _, inst := range e.Mesh.InstanceNode {
		per := 0
		for _, nd := range inst.Mesh.Nodes {
			for _, fg := range nd.FaceGroup {
				per += len(fg.Faces)
			}
		}
		total += per * len(inst.Transfors)
	}
	return total
}

// Scene is the ordered, live set of entities. Once a history manager is
// attached, all mutation goes through commands; mutating the scene behind the
// manager's back desynchronizes undo/redo from reality.
//
// Not safe for concurrent use: callers drive it from a single goroutine
// (the frame loop, or the web server's apply loop).
type Scene struct {
	entities []*Entity
	revision uint64
}

// New returns an empty scene.
func New() *Scene {
	return &Scene{}
}

// AddEntity appends e to the scene. Insertion order is preserved and is the
// order Entities reports.
func (s *Scene) AddEntity(e *Entity) {
	s.entities = append(s.entities, e)
	s.revision++
}

// RemoveEntity removes the entity with the given handle. Returns false when
// no entity has that handle.
func (s *Scene) RemoveEntity(id uuid.UUID) bool {
	i := s.IndexOf(id)
	if i < 0 {
		return false
	}
	s.entities = append(s.entities[:i], s.entities[i+1:]...)
	s.revision++
	return true
}

// Entities returns a copy of the ordered entity list. The copy is safe to
// iterate while commands mutate the scene.
func (s *Scene) Entities() []*Entity {
	out := make([]*Entity, len(s.entities))
	copy(out, s.entities)
	return out
}

// IndexOf resolves a handle to its current list index, or -1 when absent.
// Pure query: the result is only valid until the next mutation.
func (s *Scene) IndexOf(id uuid.UUID) int {
	for i, e := range s.entities {
		if e.Handle == id {
			return i
		}
	}
	return -1
}

// Get returns the entity with the given handle, or nil.
func (s *Scene) Get(id uuid.UUID) *Entity {
	if i := s.IndexOf(id); i >= 0 {
		return s.entities[i]
	}
	return nil
}

// At returns the entity at index, or nil when out of range.
func (s *Scene) At(index int) *Entity {
	if index < 0 || index >= len(s.entities) {
		return nil
	}
	return s.entities[index]
}

// Len returns the number of entities in the scene.
func (s *Scene) Len() int {
	return len(s.entities)
}

// Clear removes every entity.
func (s *Scene) Clear() {
	s.entities = nil
	s.revision++
}

// Revision increments on every mutation. Display layers compare it against
// the value they last synced at instead of diffing entity lists.
func (s *Scene) Revision() uint64 {
	return s.revision
}

// SetEntityPosition sets the position of the entity at index.
// Returns false (and changes nothing) when the index is invalid.
func (s *Scene) SetEntityPosition(index int, v vec3d.T) bool {
	e := s.At(index)
	if e == nil {
		return false
	}
	e.Transform.Position = v
	s.revision++
	return true
}

// SetEntityRotation sets the Euler XYZ rotation (degrees) of the entity at
// index. Returns false when the index is invalid.
func (s *Scene) SetEntityRotation(index int, v vec3d.T) bool {
	e := s.At(index)
	if e == nil {
		return false
	}
	e.Transform.Rotation = v
	s.revision++
	return true
}

// SetEntityScale sets the per-axis scale of the entity at index.
// Returns false when the index is invalid.
func (s *Scene) SetEntityScale(index int, v vec3d.T) bool {
	e := s.At(index)
	if e == nil {
		return false
	}
	e.Transform.Scale = v
	s.revision++
	return true
}
