package history

import (
	"math"
	"testing"

	vec3d "github.com/flywave/go3d/float64/vec3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mesh-studio/internal/scene"
)

func TestNewTransformCommandValidation(t *testing.T) {
	s := scene.New()
	e := newTestEntity("m")
	s.AddEntity(e)
	id := e.Handle
	one := []vec3d.T{{0, 0, 0}}

	cases := []struct {
		name    string
		targets []uuid.UUID
		before  []vec3d.T
		after   []vec3d.T
	}{
		{"no targets", nil, nil, nil},
		{"before too short", []uuid.UUID{id}, nil, one},
		{"after too long", []uuid.UUID{id}, one, []vec3d.T{{1, 0, 0}, {2, 0, 0}}},
		{"NaN before", []uuid.UUID{id}, []vec3d.T{{math.NaN(), 0, 0}}, one},
		{"Inf after", []uuid.UUID{id}, one, []vec3d.T{{0, math.Inf(1), 0}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd, err := NewTransformCommand(s, tc.targets, Position, tc.before, tc.after)
			assert.Nil(t, cmd)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}
}

func TestTransformExecuteIdempotentAfterUndo(t *testing.T) {
	s := scene.New()
	e := newTestEntity("m")
	s.AddEntity(e)

	cmd := moveCommand(t, s, e.Handle, vec3d.T{0, 0, 0}, vec3d.T{4, 5, 6})
	require.NoError(t, cmd.Execute())
	after := e.Transform.Position

	require.NoError(t, cmd.Undo())
	assert.Equal(t, vec3d.T{0, 0, 0}, e.Transform.Position)

	require.NoError(t, cmd.Execute())
	assert.Equal(t, after, e.Transform.Position)

	// Repeating Execute with no intervening undo changes nothing further.
	require.NoError(t, cmd.Execute())
	assert.Equal(t, after, e.Transform.Position)
}

func TestMultiTargetScaleUndo(t *testing.T) {
	s := scene.New()
	e0, e1 := newTestEntity("a"), newTestEntity("b")
	s.AddEntity(e0)
	s.AddEntity(e1)
	m := New(nil)

	cmd, err := NewTransformCommand(s,
		[]uuid.UUID{e0.Handle, e1.Handle}, Scale,
		[]vec3d.T{{1, 1, 1}, {1, 1, 1}},
		[]vec3d.T{{2, 2, 2}, {0.5, 0.5, 0.5}})
	require.NoError(t, err)
	require.True(t, m.Execute(cmd, false))
	assert.Equal(t, vec3d.T{2, 2, 2}, e0.Transform.Scale)
	assert.Equal(t, vec3d.T{0.5, 0.5, 0.5}, e1.Transform.Scale)

	require.True(t, m.Undo())
	assert.Equal(t, vec3d.T{1, 1, 1}, e0.Transform.Scale)
	assert.Equal(t, vec3d.T{1, 1, 1}, e1.Transform.Scale)
}

func TestTransformSkipsStaleEntity(t *testing.T) {
	s := scene.New()
	gone, kept := newTestEntity("gone"), newTestEntity("kept")
	s.AddEntity(gone)
	s.AddEntity(kept)

	cmd, err := NewTransformCommand(s,
		[]uuid.UUID{gone.Handle, kept.Handle}, Position,
		[]vec3d.T{{0, 0, 0}, {0, 0, 0}},
		[]vec3d.T{{1, 1, 1}, {2, 2, 2}})
	require.NoError(t, err)

	// The first target disappears before the command runs.
	require.True(t, s.RemoveEntity(gone.Handle))
	require.NoError(t, cmd.Execute())
	assert.Equal(t, vec3d.T{2, 2, 2}, kept.Transform.Position, "batch continues past the stale entry")
}

func TestTransformRotationChannel(t *testing.T) {
	s := scene.New()
	e := newTestEntity("m")
	s.AddEntity(e)

	cmd, err := NewTransformCommand(s, []uuid.UUID{e.Handle}, Rotation,
		[]vec3d.T{{0, 0, 0}}, []vec3d.T{{0, 90, 0}})
	require.NoError(t, err)
	require.NoError(t, cmd.Execute())
	assert.Equal(t, vec3d.T{0, 90, 0}, e.Transform.Rotation)
	require.NoError(t, cmd.Undo())
	assert.Equal(t, vec3d.T{0, 0, 0}, e.Transform.Rotation)
}

func TestCanMergeWithRules(t *testing.T) {
	s := scene.New()
	e0, e1 := newTestEntity("a"), newTestEntity("b")
	s.AddEntity(e0)
	s.AddEntity(e1)
	pair := []uuid.UUID{e0.Handle, e1.Handle}
	flipped := []uuid.UUID{e1.Handle, e0.Handle}
	vals := []vec3d.T{{0, 0, 0}, {0, 0, 0}}

	base, err := NewTransformCommand(s, pair, Position, vals, vals)
	require.NoError(t, err)

	same, err := NewTransformCommand(s, pair, Position, vals, vals)
	require.NoError(t, err)
	assert.True(t, base.CanMergeWith(same))

	otherChannel, err := NewTransformCommand(s, pair, Scale, vals, vals)
	require.NoError(t, err)
	assert.False(t, base.CanMergeWith(otherChannel), "channel must match")

	reordered, err := NewTransformCommand(s, flipped, Position, vals, vals)
	require.NoError(t, err)
	assert.False(t, base.CanMergeWith(reordered), "same set, different order must not merge")

	fewer, err := NewTransformCommand(s, pair[:1], Position, vals[:1], vals[:1])
	require.NoError(t, err)
	assert.False(t, base.CanMergeWith(fewer))

	load := NewLoadCommand(s, e0)
	assert.False(t, base.CanMergeWith(load))
	assert.False(t, load.CanMergeWith(base))
}

func TestMergeWithKeepsOwnBefore(t *testing.T) {
	s := scene.New()
	e := newTestEntity("m")
	s.AddEntity(e)

	a := moveCommand(t, s, e.Handle, vec3d.T{0, 0, 0}, vec3d.T{1, 0, 0})
	b := moveCommand(t, s, e.Handle, vec3d.T{1, 0, 0}, vec3d.T{3, 0, 0})
	require.True(t, a.CanMergeWith(b))
	a.MergeWith(b)

	require.NoError(t, a.Undo())
	assert.Equal(t, vec3d.T{0, 0, 0}, e.Transform.Position)
	require.NoError(t, a.Execute())
	assert.Equal(t, vec3d.T{3, 0, 0}, e.Transform.Position)
}

func TestCommandIdentity(t *testing.T) {
	s := scene.New()
	e := newTestEntity("m")
	s.AddEntity(e)

	cmd := moveCommand(t, s, e.Handle, vec3d.T{0, 0, 0}, vec3d.T{1, 0, 0})
	assert.Equal(t, KindTransform, cmd.Kind())
	assert.Equal(t, "Move", cmd.Label())
	assert.NotEqual(t, uuid.Nil, cmd.ID())
	assert.False(t, cmd.CreatedAt().IsZero())

	multi, err := NewTransformCommand(s, []uuid.UUID{e.Handle, e.Handle}, Scale,
		[]vec3d.T{{1, 1, 1}, {1, 1, 1}}, []vec3d.T{{2, 2, 2}, {2, 2, 2}})
	require.NoError(t, err)
	assert.Equal(t, "Scale (2)", multi.Label())
}
