package selection

import (
	vec3d "github.com/flywave/go3d/float64/vec3"
	"github.com/google/uuid"

	"mesh-studio/internal/history"
)

// Session runs transform gestures over the current selection. A gesture is
// the span between Begin and End: every Update writes the new values to the
// scene and submits a mergeable command whose before values are the previous
// step, so the manager's merge window folds the whole drag into one undo
// entry reaching back to the gesture start.
type Session struct {
	sel     *Selection
	mgr     *history.Manager
	channel history.Channel
	targets []uuid.UUID
	prev    []vec3d.T
	active  bool
}

// NewSession binds a gesture session to a selection and a history manager.
func NewSession(sel *Selection, mgr *history.Manager) *Session {
	return &Session{sel: sel, mgr: mgr}
}

// Begin opens a gesture on channel, capturing the selection's current values
// as the gesture start. Beginning while a gesture is active restarts it.
// Fails with a *history.ValidationError when nothing is selected.
func (s *Session) Begin(channel history.Channel) error {
	targets, values := s.sel.Snapshot(channel)
	if len(targets) == 0 {
		return &history.ValidationError{Reason: "empty selection"}
	}
	s.channel = channel
	s.targets = targets
	s.prev = values
	s.active = true
	return nil
}

// Update moves the gesture to values, one per target in selection order. The
// values are applied to the scene directly; the submitted command is only
// re-executed by the manager when it starts a fresh undo entry, and setting
// a channel twice to the same values is harmless.
func (s *Session) Update(values []vec3d.T) error {
	if !s.active {
		return &history.ValidationError{Reason: "no active gesture"}
	}
	cmd, err := history.NewTransformCommand(s.sel.Scene(), s.targets, s.channel, s.prev, values)
	if err != nil {
		return err
	}
	if err := cmd.Execute(); err != nil {
		return err
	}
	s.mgr.Execute(cmd, true)
	s.prev = append(s.prev[:0], values...)
	return nil
}

// End closes the gesture. Calling End with no gesture active is a no-op.
func (s *Session) End() {
	s.active = false
	s.targets = nil
	s.prev = nil
}

// Active reports whether a gesture is in progress.
func (s *Session) Active() bool {
	return s.active
}

// Channel returns the channel of the current gesture; meaningful only while
// Active reports true.
func (s *Session) Channel() history.Channel {
	return s.channel
}

// Apply performs a single-step edit outside any gesture: the selection's
// current values become before, values become after, and the command is
// submitted non-mergeable so it stays its own undo entry.
func (s *Session) Apply(channel history.Channel, values []vec3d.T) error {
	targets, before := s.sel.Snapshot(channel)
	cmd, err := history.NewTransformCommand(s.sel.Scene(), targets, channel, before, values)
	if err != nil {
		return err
	}
	s.mgr.Execute(cmd, false)
	return nil
}
