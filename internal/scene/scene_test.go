package scene

import (
	"testing"

	vec3d "github.com/flywave/go3d/float64/vec3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntity(name string) *Entity {
	return NewEntity(name, "stl", name+".stl", nil, [6]float64{-1, -1, -1, 1, 1, 1})
}

func TestAddRemovePreservesOrder(t *testing.T) {
	s := New()
	a, b, c := testEntity("a"), testEntity("b"), testEntity("c")
	s.AddEntity(a)
	s.AddEntity(b)
	s.AddEntity(c)
	require.Equal(t, 3, s.Len())

	require.True(t, s.RemoveEntity(b.Handle))
	got := s.Entities()
	require.Len(t, got, 2)
	assert.Equal(t, a.Handle, got[0].Handle)
	assert.Equal(t, c.Handle, got[1].Handle)

	assert.False(t, s.RemoveEntity(b.Handle), "second removal of the same handle")
	assert.False(t, s.RemoveEntity(uuid.New()), "unknown handle")
}

func TestIndexOfShiftsAfterRemoval(t *testing.T) {
	s := New()
	a, b := testEntity("a"), testEntity("b")
	s.AddEntity(a)
	s.AddEntity(b)
	assert.Equal(t, 1, s.IndexOf(b.Handle))

	s.RemoveEntity(a.Handle)
	assert.Equal(t, 0, s.IndexOf(b.Handle))
	assert.Equal(t, -1, s.IndexOf(a.Handle))
	assert.Nil(t, s.Get(a.Handle))
	assert.Same(t, b, s.Get(b.Handle))
}

func TestSettersReportMissingIndex(t *testing.T) {
	s := New()
	e := testEntity("a")
	s.AddEntity(e)

	require.True(t, s.SetEntityPosition(0, vec3d.T{1, 2, 3}))
	assert.Equal(t, vec3d.T{1, 2, 3}, e.Transform.Position)

	assert.False(t, s.SetEntityPosition(1, vec3d.T{9, 9, 9}))
	assert.False(t, s.SetEntityRotation(-1, vec3d.T{9, 9, 9}))
	assert.False(t, s.SetEntityScale(7, vec3d.T{9, 9, 9}))
}

func TestRevisionBumpsOnMutation(t *testing.T) {
	s := New()
	r0 := s.Revision()
	e := testEntity("a")
	s.AddEntity(e)
	r1 := s.Revision()
	assert.Greater(t, r1, r0)

	s.SetEntityScale(0, vec3d.T{2, 2, 2})
	assert.Greater(t, s.Revision(), r1)
}

func TestWorldBoundsAppliesTransform(t *testing.T) {
	e := testEntity("a")
	e.Transform.Position = vec3d.T{10, 0, 0}
	e.Transform.Scale = vec3d.T{2, 2, 2}

	box := WorldBounds(e)
	assert.InDelta(t, 8, box.Min[0], 1e-9)
	assert.InDelta(t, 12, box.Max[0], 1e-9)
	assert.InDelta(t, -2, box.Min[1], 1e-9)
	assert.InDelta(t, 2, box.Max[1], 1e-9)
}

func TestCombinedBounds(t *testing.T) {
	s := New()
	_, ok := s.CombinedBounds()
	assert.False(t, ok, "empty scene has no bounds")

	a := testEntity("a")
	b := testEntity("b")
	b.Transform.Position = vec3d.T{5, 0, 0}
	s.AddEntity(a)
	s.AddEntity(b)

	box, ok := s.CombinedBounds()
	require.True(t, ok)
	assert.InDelta(t, -1, box.Min[0], 1e-9)
	assert.InDelta(t, 6, box.Max[0], 1e-9)
}

func TestIdentityTransformMatrix(t *testing.T) {
	m := Identity().Matrix()
	v := vec3d.T{1, 2, 3}
	got := m.MulVec3(&v)
	assert.InDelta(t, 1, got[0], 1e-9)
	assert.InDelta(t, 2, got[1], 1e-9)
	assert.InDelta(t, 3, got[2], 1e-9)
}

func TestRotationMatrixQuarterTurnY(t *testing.T) {
	tr := Identity()
	tr.Rotation = vec3d.T{0, 90, 0}
	m := tr.Matrix()
	v := vec3d.T{1, 0, 0}
	got := m.MulVec3(&v)
	// +X rotated 90° about +Y lands on -Z.
	assert.InDelta(t, 0, got[0], 1e-9)
	assert.InDelta(t, 0, got[1], 1e-9)
	assert.InDelta(t, -1, got[2], 1e-9)
}
