package mcp

import (
	"context"

	"github.com/thorin/workoutapp/internal/workout"

	"github.com/google/uuid"
)

// exerciseCatalog provides the exercise names known to the backend
// (for dependency injection and testing).
type exerciseCatalog interface {
	ListNames(ctx context.Context) ([]string, error)
}

// workoutService provides workout reads and recommendation writes
// (for dependency injection and testing).
type workoutService interface {
	CreateWorkout(ctx context.Context, userID uuid.UUID, name string, aiGenerated bool, components []workout.NewComponent) (*workout.Workout, error)
	GetRecentFinishedWorkouts(ctx context.Context, userID uuid.UUID, limit int) ([]workout.FinishedWorkoutView, error)
}

// RecommendationService holds the data an LLM needs to build a workout
// recommendation, and the write path for saving one.
type RecommendationService struct {
	exercises exerciseCatalog
	workouts  workoutService
}

// NewRecommendationService builds a RecommendationService with the given dependencies.
func NewRecommendationService(exercises exerciseCatalog, workouts workoutService) *RecommendationService {
	return &RecommendationService{
		exercises: exercises,
		workouts:  workouts,
	}
}

// ExerciseNames returns the catalog of valid exercise names. Recommended
// workouts may only reference these names.
func (s *RecommendationService) ExerciseNames(ctx context.Context) ([]string, error) {
	return s.exercises.ListNames(ctx)
}

// RecentFinishedWorkouts returns the user's most recent completed workout
// instances, newest first.
func (s *RecommendationService) RecentFinishedWorkouts(ctx context.Context, userID uuid.UUID, limit int) ([]workout.FinishedWorkoutView, error) {
	return s.workouts.GetRecentFinishedWorkouts(ctx, userID, limit)
}

// SaveRecommendation persists an LLM-proposed workout for the user. The
// workout is always marked as AI generated.
func (s *RecommendationService) SaveRecommendation(
	ctx context.Context,
	userID uuid.UUID,
	name string,
	components []workout.NewComponent,
) (*workout.Workout, error) {
	return s.workouts.CreateWorkout(ctx, userID, name, true, components)
}
