package workout

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrWorkoutNotFound   = errors.New("workout not found")
	ErrComponentNotFound = errors.New("workout component not found")
)

// UnknownExerciseError aborts workout creation when a component names an
// exercise missing from the catalog. Carries the offending name so the
// client knows which one.
type UnknownExerciseError struct {
	Name string
}

func (e *UnknownExerciseError) Error() string {
	return fmt.Sprintf("unknown exercise: %s", e.Name)
}

// MissingHistoryError means a component exists but has no history rows.
// Every component gets its first state row in the same transaction that
// creates it, so this is data corruption, not a user error.
type MissingHistoryError struct {
	ComponentID uuid.UUID
}

func (e *MissingHistoryError) Error() string {
	return fmt.Sprintf("workout component %s has no history rows", e.ComponentID)
}
