package history

import (
	"fmt"
	"log/slog"
	"math"

	vec3d "github.com/flywave/go3d/float64/vec3"
	"github.com/google/uuid"
)

// Channel selects which transform component a TransformCommand drives.
type Channel int

const (
	Position Channel = iota
	Rotation
	Scale
)

// String returns the lowercase channel name.
func (c Channel) String() string {
	switch c {
	case Position:
		return "position"
	case Rotation:
		return "rotation"
	case Scale:
		return "scale"
	}
	return "unknown"
}

// verb returns the label stem used for history entries.
func (c Channel) verb() string {
	switch c {
	case Position:
		return "Move"
	case Rotation:
		return "Rotate"
	case Scale:
		return "Scale"
	}
	return "Transform"
}

// TransformCommand sets one transform channel of an ordered batch of entities
// to the after values; Undo restores the before values. Targets are handles,
// re-resolved to indices on every run. A stale target is logged and skipped
// without aborting the rest of the batch.
type TransformCommand struct {
	meta
	sc      Scene
	targets []uuid.UUID
	channel Channel
	before  []vec3d.T
	after   []vec3d.T
}

// NewTransformCommand validates and builds a transform command. targets must
// be non-empty, before/after must match its length, and every component must
// be finite; violations return a *ValidationError and no command.
// The slices are copied, so callers may keep mutating theirs.
func NewTransformCommand(sc Scene, targets []uuid.UUID, channel Channel, before, after []vec3d.T) (*TransformCommand, error) {
	if len(targets) == 0 {
		return nil, &ValidationError{Reason: "no target entities"}
	}
	if len(before) != len(targets) || len(after) != len(targets) {
		return nil, &ValidationError{Reason: fmt.Sprintf(
			"targets/before/after length mismatch: %d/%d/%d", len(targets), len(before), len(after))}
	}
	for i := range targets {
		if !finite(before[i]) || !finite(after[i]) {
			return nil, &ValidationError{Reason: fmt.Sprintf("non-finite %s value for target %d", channel, i)}
		}
	}
	label := channel.verb()
	if len(targets) > 1 {
		label = fmt.Sprintf("%s (%d)", label, len(targets))
	}
	c := &TransformCommand{
		meta:    newMeta(KindTransform, label),
		sc:      sc,
		channel: channel,
		targets: append([]uuid.UUID(nil), targets...),
		before:  append([]vec3d.T(nil), before...),
		after:   append([]vec3d.T(nil), after...),
	}
	return c, nil
}

// Execute applies the after values.
func (c *TransformCommand) Execute() error {
	c.apply(c.after)
	return nil
}

// Undo applies the before values.
func (c *TransformCommand) Undo() error {
	c.apply(c.before)
	return nil
}

// apply writes values to the channel setter for each target, skipping
// entities that no longer resolve.
func (c *TransformCommand) apply(values []vec3d.T) {
	for i, id := range c.targets {
		ok := false
		if idx := indexOf(c.sc, id); idx >= 0 {
			switch c.channel {
			case Position:
				ok = c.sc.SetEntityPosition(idx, values[i])
			case Rotation:
				ok = c.sc.SetEntityRotation(idx, values[i])
			case Scale:
				ok = c.sc.SetEntityScale(idx, values[i])
			}
		}
		if !ok {
			slog.Warn("transform target skipped",
				"label", c.label, "err", &StaleReferenceError{Handle: id})
		}
	}
}

// CanMergeWith reports whether other can fold into this command: another
// TransformCommand on the same channel with the identical target sequence.
// Equal target sets in a different order do not merge; that would make the
// before/after pairing ambiguous.
func (c *TransformCommand) CanMergeWith(other Command) bool {
	o, ok := other.(*TransformCommand)
	if !ok || o.channel != c.channel || len(o.targets) != len(c.targets) {
		return false
	}
	for i := range c.targets {
		if c.targets[i] != o.targets[i] {
			return false
		}
	}
	return true
}

// MergeWith absorbs other's after values, label, and timestamp while keeping
// this command's before values, so a chain of merged gesture steps undoes in
// one jump back to the gesture start.
func (c *TransformCommand) MergeWith(other Command) {
	o, ok := other.(*TransformCommand)
	if !ok {
		return
	}
	copy(c.after, o.after)
	c.label = o.label
	c.created = o.created
}

// finite reports whether all three components are real numbers.
func finite(v vec3d.T) bool {
	for _, f := range v {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
