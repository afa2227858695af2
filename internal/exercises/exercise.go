package exercises

import (
	"errors"

	"github.com/google/uuid"
)

var ErrExerciseNotFound = errors.New("exercise not found")

// Exercise is a catalog entry. The catalog is seeded on schema setup and
// referenced by workout components.
type Exercise struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}
