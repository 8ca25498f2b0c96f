package graph

import "fmt"

// ValidationError rejects a whole AddNodes/AddEdges batch: no element of
// the batch is applied. Index is the position of the offending input, or
// -1 when the error concerns an operation argument rather than a batch
// element.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s at index %d: %s", e.Field, e.Index, e.Reason)
}

// CorruptionError means the persisted document exists but cannot be
// parsed as a graph. No partial recovery is attempted.
type CorruptionError struct {
	Path string
	Err  error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("graph document %s is corrupt: %v", e.Path, e.Err)
}

func (e *CorruptionError) Unwrap() error { return e.Err }

// PersistenceError means a save failed after the in-memory mutation was
// already applied. Memory and disk have diverged until the next
// successful save; the mutation is not rolled back.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist graph to %s (in-memory state has advanced): %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
