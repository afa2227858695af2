package workout

import (
	"time"

	"github.com/google/uuid"
)

type Workout struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"userId"`
	Name        string    `json:"name"`
	AIGenerated bool      `json:"aiGenerated"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ComponentState is one appended history row. Components are never updated
// in place: every change appends a new state row, and the row with the
// newest datetime_added is the component's current value.
type ComponentState struct {
	ID          uuid.UUID `json:"id"`
	ComponentID uuid.UUID `json:"componentId"`
	Reps        string    `json:"reps"` // can be a range, e.g. "6-8"
	Weight      float64   `json:"weight"`
	Units       string    `json:"units"`
	AddedAt     time.Time `json:"addedAt"`
}

// NewComponent is a component of a workout being created, with the exercise
// given by catalog name and the initial state values.
type NewComponent struct {
	Exercise string  `json:"exercise"`
	Position int     `json:"position"`
	Reps     string  `json:"reps"`
	Weight   float64 `json:"weight"`
	Units    string  `json:"units"`
}

// ComponentUpdate appends a new state row to an existing component.
type ComponentUpdate struct {
	ComponentID uuid.UUID `json:"componentId"`
	Reps        string    `json:"reps"`
	Weight      float64   `json:"weight"`
	Units       string    `json:"units"`
}

// ComponentView is a component with its current state and exercise name,
// as presented to clients.
type ComponentView struct {
	ComponentID uuid.UUID `json:"componentId"`
	Exercise    string    `json:"exercise"`
	Position    int       `json:"position"`
	Reps        string    `json:"reps"`
	Weight      float64   `json:"weight"`
	Units       string    `json:"units"`
}

type WorkoutView struct {
	WorkoutID   uuid.UUID       `json:"workoutId"`
	Name        string          `json:"name"`
	AIGenerated bool            `json:"aiGenerated"`
	CreatedAt   time.Time       `json:"createdAt"`
	Components  []ComponentView `json:"components"`
}

// FinishedWorkoutView is one completed workout instance. Two completions of
// the same workout are two distinct views.
type FinishedWorkoutView struct {
	FinishedWorkoutID uuid.UUID       `json:"finishedWorkoutId"`
	WorkoutID         uuid.UUID       `json:"workoutId"`
	Name              string          `json:"name"`
	CompletedAt       time.Time       `json:"completedAt"`
	Components        []ComponentView `json:"components"`
}

// componentState is the nullable part of a flat row: nil when the LEFT JOIN
// found no history for the component.
type componentState struct {
	reps   string
	weight float64
	units  string
}

// componentRow is the component part of a flat row.
type componentRow struct {
	componentID uuid.UUID
	position    int
	exercise    string
	state       *componentState
}

// workoutRow is one flat row of the workout ⋈ component ⋈ latest-history ⋈
// exercise join. component is nil for a workout with no components.
type workoutRow struct {
	workout   Workout
	component *componentRow
}

// finishedRow is one flat row of the finished-workout join.
type finishedRow struct {
	finishedWorkoutID uuid.UUID
	completedAt       time.Time
	workoutID         uuid.UUID
	workoutName       string
	component         componentRow
}
