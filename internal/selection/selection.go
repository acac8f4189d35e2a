// Package selection tracks which scene entities are selected and runs the
// transform gestures that turn user input into history commands.
package selection

import (
	vec3d "github.com/flywave/go3d/float64/vec3"
	"github.com/google/uuid"

	"mesh-studio/internal/history"
	"mesh-studio/internal/scene"
)

// Selection is the ordered set of selected entities. Order matters: it is the
// target order of every TransformCommand built from the selection, and merge
// eligibility is order-sensitive.
type Selection struct {
	sc  *scene.Scene
	ids []uuid.UUID
}

// New returns an empty selection over sc.
func New(sc *scene.Scene) *Selection {
	return &Selection{sc: sc}
}

// Scene returns the scene this selection is bound to.
func (s *Selection) Scene() *scene.Scene {
	return s.sc
}

// Add appends id to the selection. Reports false when the id is already
// selected or does not resolve to a scene entity.
func (s *Selection) Add(id uuid.UUID) bool {
	if s.Contains(id) || s.sc.IndexOf(id) < 0 {
		return false
	}
	s.ids = append(s.ids, id)
	return true
}

// Remove drops id from the selection; false when it was not selected.
func (s *Selection) Remove(id uuid.UUID) bool {
	for i, got := range s.ids {
		if got == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			return true
		}
	}
	return false
}

// Toggle selects id if unselected and deselects it otherwise.
// Reports whether the id is selected afterwards.
func (s *Selection) Toggle(id uuid.UUID) bool {
	if s.Remove(id) {
		return false
	}
	return s.Add(id)
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.ids = nil
}

// Contains reports whether id is selected.
func (s *Selection) Contains(id uuid.UUID) bool {
	for _, got := range s.ids {
		if got == id {
			return true
		}
	}
	return false
}

// Len returns the number of selected handles, stale ones included.
func (s *Selection) Len() int {
	return len(s.ids)
}

// Handles returns a copy of the selected handles in selection order.
func (s *Selection) Handles() []uuid.UUID {
	return append([]uuid.UUID(nil), s.ids...)
}

// Entities resolves the selection to live entities, dropping stale handles
// from the result (not from the selection).
func (s *Selection) Entities() []*scene.Entity {
	out := make([]*scene.Entity, 0, len(s.ids))
	for _, id := range s.ids {
		if e := s.sc.Get(id); e != nil {
			out = append(out, e)
		}
	}
	return out
}

// Prune drops handles that no longer resolve to a scene entity and returns
// how many were dropped.
func (s *Selection) Prune() int {
	kept := s.ids[:0]
	for _, id := range s.ids {
		if s.sc.IndexOf(id) >= 0 {
			kept = append(kept, id)
		}
	}
	dropped := len(s.ids) - len(kept)
	s.ids = kept
	return dropped
}

// Snapshot prunes the selection and returns its handles and their current
// values for the given channel, aligned and in selection order: the shape
// TransformCommand construction wants for targets and before.
func (s *Selection) Snapshot(ch history.Channel) ([]uuid.UUID, []vec3d.T) {
	s.Prune()
	handles := s.Handles()
	values := make([]vec3d.T, len(handles))
	for i, id := range handles {
		e := s.sc.Get(id)
		switch ch {
		case history.Position:
			values[i] = e.Transform.Position
		case history.Rotation:
			values[i] = e.Transform.Rotation
		case history.Scale:
			values[i] = e.Transform.Scale
		}
	}
	return handles, values
}
