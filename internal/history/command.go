// Package history implements the undo/redo engine: reversible commands over a
// scene collaborator and a bounded two-stack manager that merges continuous
// gestures into single undo entries.
package history

import (
	"time"

	vec3d "github.com/flywave/go3d/float64/vec3"
	"github.com/google/uuid"

	"mesh-studio/internal/scene"
)

// Kind tags the concrete command variant. Dispatch happens by type switch on
// the concrete struct; the tag exists so observers (UI, logs) can label
// entries without reflection.
type Kind int

const (
	KindLoad Kind = iota
	KindRemove
	KindTransform
)

// String returns the lowercase tag name.
func (k Kind) String() string {
	switch k {
	case KindLoad:
		return "load"
	case KindRemove:
		return "remove"
	case KindTransform:
		return "transform"
	}
	return "unknown"
}

// Command is one reversible scene mutation. Identity (ID, Kind, CreatedAt) is
// immutable after construction; payload changes only through MergeWith, and
// only after CanMergeWith returned true for the same pair in the same order.
//
// Execute must be idempotent when repeated without an intervening Undo;
// Undo must restore the scene state observed before the original Execute.
type Command interface {
	ID() uuid.UUID
	Kind() Kind
	Label() string
	CreatedAt() time.Time
	Execute() error
	Undo() error
	CanMergeWith(other Command) bool
	MergeWith(other Command)
}

// Scene is the collaborator contract the commands mutate. scene.Scene
// implements it; tests may substitute anything that does. Index resolution is
// always a fresh query over Entities; indices shift as entities are removed,
// so none are ever stored.
type Scene interface {
	AddEntity(e *scene.Entity)
	RemoveEntity(id uuid.UUID) bool
	Entities() []*scene.Entity
	SetEntityPosition(index int, v vec3d.T) bool
	SetEntityRotation(index int, v vec3d.T) bool
	SetEntityScale(index int, v vec3d.T) bool
}

// meta carries the identity fields shared by every command kind.
type meta struct {
	id      uuid.UUID
	kind    Kind
	label   string
	created time.Time
}

func newMeta(kind Kind, label string) meta {
	return meta{id: uuid.New(), kind: kind, label: label, created: time.Now()}
}

func (m *meta) ID() uuid.UUID        { return m.id }
func (m *meta) Kind() Kind           { return m.kind }
func (m *meta) Label() string        { return m.label }
func (m *meta) CreatedAt() time.Time { return m.created }

// indexOf resolves a handle to its current position in the collaborator's
// entity list, -1 when absent.
func indexOf(sc Scene, id uuid.UUID) int {
	for i, e := range sc.Entities() {
		if e.Handle == id {
			return i
		}
	}
	return -1
}
