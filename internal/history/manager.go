package history

import (
	"log/slog"
	"time"
)

const (
	// Limit bounds both stacks. Pushing beyond it evicts the oldest entry,
	// so the stacks always hold the most recent commands.
	Limit = 25
	// MergeWindow is the maximum age of the top undo entry for it to absorb
	// a mergeable command. Anything older starts a fresh entry, bounding how
	// much a single undo step can swallow.
	MergeWindow = time.Second
)

// State is the snapshot delivered to change listeners after every transition.
type State struct {
	CanUndo   bool
	CanRedo   bool
	UndoCount int
	RedoCount int
	LastLabel string // label of the top undo entry, "" when empty
}

// Manager owns the undo and redo stacks. It is single-goroutine by contract:
// shells call it from the frame loop or from one apply loop, never
// concurrently. It registers no input hooks of its own; key bindings belong
// to the shells.
type Manager struct {
	undo      []Command
	redo      []Command
	listeners map[int]func(State)
	nextToken int
	log       *slog.Logger
	now       func() time.Time // injectable for merge-window tests
}

// New returns an empty manager. A nil logger falls back to slog.Default().
func New(log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		listeners: make(map[int]func(State)),
		log:       log,
		now:       time.Now,
	}
}

// Execute runs cmd and pushes it onto the undo stack, clearing the redo
// stack. When mergeable is true and the top undo entry is younger than
// MergeWindow and accepts the merge, cmd is folded into it without calling
// cmd.Execute, since gesture callers apply each increment to the scene
// themselves. Returns false (stacks untouched) when cmd.Execute fails.
func (m *Manager) Execute(cmd Command, mergeable bool) bool {
	if mergeable && len(m.undo) > 0 {
		top := m.undo[len(m.undo)-1]
		if m.now().Sub(top.CreatedAt()) <= MergeWindow && top.CanMergeWith(cmd) {
			top.MergeWith(cmd)
			m.notify()
			return true
		}
	}
	if err := cmd.Execute(); err != nil {
		m.log.Error("command failed",
			"kind", cmd.Kind().String(), "label", cmd.Label(),
			"err", &ExecutionError{Op: "execute", Err: err})
		return false
	}
	m.pushUndo(cmd)
	m.redo = m.redo[:0]
	m.notify()
	return true
}

// Record pushes an already-applied command without calling Execute. This is
// the loader path: the model is inserted first, then its LoadCommand is
// recorded so only redo ever re-runs it. Clears the redo stack like any new
// command.
func (m *Manager) Record(cmd Command) {
	m.pushUndo(cmd)
	m.redo = m.redo[:0]
	m.notify()
}

// Undo pops the top undo entry, runs its Undo, and moves it to the redo
// stack. Returns false when there is nothing to undo or the command fails.
// A failed command is discarded, not re-pushed: after a half-run Undo the
// scene state is unknown, and replaying the entry could double-apply it.
func (m *Manager) Undo() bool {
	n := len(m.undo)
	if n == 0 {
		return false
	}
	cmd := m.undo[n-1]
	m.undo[n-1] = nil
	m.undo = m.undo[:n-1]
	if err := cmd.Undo(); err != nil {
		m.log.Error("undo failed",
			"kind", cmd.Kind().String(), "label", cmd.Label(),
			"err", &ExecutionError{Op: "undo", Err: err})
		m.notify()
		return false
	}
	m.pushRedo(cmd)
	m.notify()
	return true
}

// Redo pops the top redo entry, re-runs its Execute, and moves it back to the
// undo stack. Returns false when there is nothing to redo or the command
// fails; a failed command is discarded, mirroring Undo.
func (m *Manager) Redo() bool {
	n := len(m.redo)
	if n == 0 {
		return false
	}
	cmd := m.redo[n-1]
	m.redo[n-1] = nil
	m.redo = m.redo[:n-1]
	if err := cmd.Execute(); err != nil {
		m.log.Error("redo failed",
			"kind", cmd.Kind().String(), "label", cmd.Label(),
			"err", &ExecutionError{Op: "redo", Err: err})
		m.notify()
		return false
	}
	m.pushUndo(cmd)
	m.notify()
	return true
}

// CanUndo reports whether the undo stack is non-empty.
func (m *Manager) CanUndo() bool { return len(m.undo) > 0 }

// CanRedo reports whether the redo stack is non-empty.
func (m *Manager) CanRedo() bool { return len(m.redo) > 0 }

// UndoCount returns the undo stack depth.
func (m *Manager) UndoCount() int { return len(m.undo) }

// RedoCount returns the redo stack depth.
func (m *Manager) RedoCount() int { return len(m.redo) }

// Clear empties both stacks and notifies listeners.
func (m *Manager) Clear() {
	m.undo = nil
	m.redo = nil
	m.notify()
}

// State returns the current listener snapshot on demand.
func (m *Manager) State() State {
	st := State{
		CanUndo:   len(m.undo) > 0,
		CanRedo:   len(m.redo) > 0,
		UndoCount: len(m.undo),
		RedoCount: len(m.redo),
	}
	if n := len(m.undo); n > 0 {
		st.LastLabel = m.undo[n-1].Label()
	}
	return st
}

// Labels returns the labels of both stacks, oldest first. The last undo label
// is the next Undo target; the last redo label is the next Redo target.
func (m *Manager) Labels() (undo, redo []string) {
	undo = make([]string, len(m.undo))
	for i, c := range m.undo {
		undo[i] = c.Label()
	}
	redo = make([]string, len(m.redo))
	for i, c := range m.redo {
		redo[i] = c.Label()
	}
	return undo, redo
}

// AddListener registers fn to receive the state snapshot synchronously after
// every change. Returns a token for RemoveListener: Go functions are not
// comparable, so removal is by token rather than by callback value.
func (m *Manager) AddListener(fn func(State)) int {
	m.nextToken++
	m.listeners[m.nextToken] = fn
	return m.nextToken
}

// RemoveListener unregisters the listener registered under token.
func (m *Manager) RemoveListener(token int) {
	delete(m.listeners, token)
}

func (m *Manager) notify() {
	st := m.State()
	for _, fn := range m.listeners {
		fn(st)
	}
}

// pushUndo appends cmd, evicting the oldest entry beyond Limit.
func (m *Manager) pushUndo(cmd Command) {
	m.undo = append(m.undo, cmd)
	if len(m.undo) > Limit {
		copy(m.undo, m.undo[1:])
		m.undo[len(m.undo)-1] = nil
		m.undo = m.undo[:len(m.undo)-1]
	}
}

// pushRedo appends cmd, evicting the oldest entry beyond Limit.
func (m *Manager) pushRedo(cmd Command) {
	m.redo = append(m.redo, cmd)
	if len(m.redo) > Limit {
		copy(m.redo, m.redo[1:])
		m.redo[len(m.redo)-1] = nil
		m.redo = m.redo[:len(m.redo)-1]
	}
}
