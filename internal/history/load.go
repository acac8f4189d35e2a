package history

import (
	"log/slog"

	"mesh-studio/internal/scene"
)

// LoadCommand makes a model load undoable. It is constructed after the entity
// is already in the scene and recorded on the undo stack without an Execute
// call (Manager.Record); Execute only runs on the redo path, re-inserting the
// entity with the transform captured at load time.
type LoadCommand struct {
	meta
	sc       Scene
	entity   *scene.Entity
	snapshot scene.Transform
}

// NewLoadCommand captures the entity's current transform as the re-insert
// snapshot.
func NewLoadCommand(sc Scene, e *scene.Entity) *LoadCommand {
	return &LoadCommand{
		meta:     newMeta(KindLoad, "Load "+e.Name),
		sc:       sc,
		entity:   e,
		snapshot: e.Transform,
	}
}

// Execute re-inserts the entity with its captured transform. No-op when the
// entity is already present, so repeated calls are idempotent.
func (c *LoadCommand) Execute() error {
	if indexOf(c.sc, c.entity.Handle) >= 0 {
		return nil
	}
	c.entity.Transform = c.snapshot
	c.sc.AddEntity(c.entity)
	return nil
}

// Undo removes the entity by identity.
func (c *LoadCommand) Undo() error {
	if !c.sc.RemoveEntity(c.entity.Handle) {
		slog.Warn("load undo skipped",
			"label", c.label, "err", &StaleReferenceError{Handle: c.entity.Handle})
	}
	return nil
}

// CanMergeWith is always false: structural changes never collapse.
func (c *LoadCommand) CanMergeWith(Command) bool { return false }

// MergeWith is never reached; CanMergeWith gates it off.
func (c *LoadCommand) MergeWith(Command) {}

// RemoveCommand deletes an entity from the scene; Undo re-inserts it with the
// transform captured before removal.
type RemoveCommand struct {
	meta
	sc       Scene
	entity   *scene.Entity
	snapshot scene.Transform
}

// NewRemoveCommand captures the entity's pre-removal transform. The entity
// must still be in the scene when this is called.
func NewRemoveCommand(sc Scene, e *scene.Entity) *RemoveCommand {
	return &RemoveCommand{
		meta:     newMeta(KindRemove, "Remove "+e.Name),
		sc:       sc,
		entity:   e,
		snapshot: e.Transform,
	}
}

// Execute removes the entity by identity. Removing an already-absent entity
// is a logged no-op, keeping repeated calls idempotent.
func (c *RemoveCommand) Execute() error {
	if !c.sc.RemoveEntity(c.entity.Handle) {
		slog.Warn("remove skipped",
			"label", c.label, "err", &StaleReferenceError{Handle: c.entity.Handle})
	}
	return nil
}

// Undo re-inserts the entity with the captured transform. No-op when it is
// somehow already present.
func (c *RemoveCommand) Undo() error {
	if indexOf(c.sc, c.entity.Handle) >= 0 {
		return nil
	}
	c.entity.Transform = c.snapshot
	c.sc.AddEntity(c.entity)
	return nil
}

// CanMergeWith is always false: structural changes never collapse.
func (c *RemoveCommand) CanMergeWith(Command) bool { return false }

// MergeWith is never reached; CanMergeWith gates it off.
func (c *RemoveCommand) MergeWith(Command) {}
