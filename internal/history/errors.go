package history

import "github.com/google/uuid"

// ValidationError reports a malformed command at construction time
// (mismatched array lengths, non-finite numbers, empty target list).
// Fatal: the command is never built and never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid command: " + e.Reason
}

// ExecutionError wraps a command failure caught at the manager boundary.
// The operation is reported as failed through the bool return; the stacks
// stay in their last consistent state.
type ExecutionError struct {
	Op  string // "execute", "undo" or "redo"
	Err error
}

func (e *ExecutionError) Error() string {
	return "command " + e.Op + ": " + e.Err.Error()
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// StaleReferenceError marks one entity of a batch whose setter failed because
// the entity no longer exists. The entity is skipped; the batch continues.
type StaleReferenceError struct {
	Handle uuid.UUID
}

func (e *StaleReferenceError) Error() string {
	return "stale entity reference: " + e.Handle.String()
}
