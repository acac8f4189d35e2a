package history

import (
	"testing"

	vec3d "github.com/flywave/go3d/float64/vec3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mesh-studio/internal/scene"
)

func TestLoadUndoRedoScenario(t *testing.T) {
	s := scene.New()
	m := New(nil)

	m1, m2 := newTestEntity("m1"), newTestEntity("m2")
	s.AddEntity(m1)
	m.Record(NewLoadCommand(s, m1))
	s.AddEntity(m2)
	m.Record(NewLoadCommand(s, m2))
	require.Equal(t, 2, s.Len())

	require.True(t, m.Undo())
	require.True(t, m.Undo())
	assert.Equal(t, 0, s.Len(), "both loads undone")

	require.True(t, m.Redo())
	require.True(t, m.Redo())
	got := s.Entities()
	require.Len(t, got, 2)
	assert.Equal(t, m1.Handle, got[0].Handle, "original order preserved")
	assert.Equal(t, m2.Handle, got[1].Handle)
}

func TestLoadExecuteIsIdempotent(t *testing.T) {
	s := scene.New()
	e := newTestEntity("m")
	s.AddEntity(e)
	cmd := NewLoadCommand(s, e)

	require.NoError(t, cmd.Execute())
	require.NoError(t, cmd.Execute())
	assert.Equal(t, 1, s.Len(), "re-executing while present inserts nothing")
}

func TestLoadRedoRestoresSnapshotTransform(t *testing.T) {
	s := scene.New()
	e := newTestEntity("m")
	e.Transform.Position = vec3d.T{2, 0, 0}
	s.AddEntity(e)
	cmd := NewLoadCommand(s, e)

	// The entity drifts after the snapshot was taken.
	require.True(t, s.SetEntityPosition(0, vec3d.T{9, 9, 9}))

	require.NoError(t, cmd.Undo())
	require.Equal(t, 0, s.Len())
	require.NoError(t, cmd.Execute())
	require.Equal(t, 1, s.Len())
	assert.Equal(t, vec3d.T{2, 0, 0}, s.At(0).Transform.Position,
		"redo restores the captured snapshot, not the drifted value")
}

func TestRemoveRoundTrip(t *testing.T) {
	s := scene.New()
	e := newTestEntity("m")
	e.Transform = scene.Transform{
		Position: vec3d.T{1.5, -2.25, 3.125},
		Rotation: vec3d.T{0, 45, 90},
		Scale:    vec3d.T{2, 2, 2},
	}
	snapshot := e.Transform
	s.AddEntity(e)
	m := New(nil)

	cmd := NewRemoveCommand(s, e)
	require.True(t, m.Execute(cmd, false))
	assert.Equal(t, 0, s.Len())

	require.True(t, m.Undo())
	require.Equal(t, 1, s.Len())
	assert.Equal(t, snapshot, s.At(0).Transform, "pre-removal transform restored exactly")
	assert.Equal(t, e.Handle, s.At(0).Handle, "identity survives the round trip")
}

func TestRemoveExecuteIsIdempotent(t *testing.T) {
	s := scene.New()
	e := newTestEntity("m")
	s.AddEntity(e)
	cmd := NewRemoveCommand(s, e)

	require.NoError(t, cmd.Execute())
	require.NoError(t, cmd.Execute(), "second removal is a logged no-op")
	assert.Equal(t, 0, s.Len())

	require.NoError(t, cmd.Undo())
	require.NoError(t, cmd.Undo())
	assert.Equal(t, 1, s.Len())
}

func TestStructuralCommandsNeverMerge(t *testing.T) {
	s := scene.New()
	a, b := newTestEntity("a"), newTestEntity("b")
	s.AddEntity(a)
	s.AddEntity(b)

	la, lb := NewLoadCommand(s, a), NewLoadCommand(s, b)
	ra, rb := NewRemoveCommand(s, a), NewRemoveCommand(s, b)
	assert.False(t, la.CanMergeWith(lb))
	assert.False(t, ra.CanMergeWith(rb))
	assert.False(t, la.CanMergeWith(ra))

	assert.Equal(t, KindLoad, la.Kind())
	assert.Equal(t, KindRemove, ra.Kind())
	assert.Equal(t, "Load a", la.Label())
	assert.Equal(t, "Remove a", ra.Label())
}
