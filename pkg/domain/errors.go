package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by repositories when an entity is missing.
	ErrNotFound = errors.New("entity not found")

	// ErrOperationNotFound is returned when a dispatcher has no handler
	// registered for an operation name.
	ErrOperationNotFound = errors.New("operation handler not found")

	// ErrPendingNotFound is returned when approving or rejecting an
	// operation that is not in the pending queue.
	ErrPendingNotFound = errors.New("pending operation not found")
)

// PersistError wraps a storage fault with the entity it concerned.
// Infrastructure faults are errors, never events.
type PersistError struct {
	Entity string
	ID     string
	Err    error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s %q: %v", e.Entity, e.ID, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// NewPersistError wraps err as a PersistError.
func NewPersistError(entity, id string, err error) error {
	return &PersistError{Entity: entity, ID: id, Err: err}
}
