package workout

import (
	"context"
	"errors"
	"fmt"

	"github.com/thorin/workoutapp/internal/exercises"
	"github.com/thorin/workoutapp/internal/telemetry/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultRecentFinishedLimit is the number of most recent finished workout
// instances returned when the client does not ask for a specific count.
const DefaultRecentFinishedLimit = 5

type workoutRepo interface {
	CreateWorkout(ctx context.Context, params CreateWorkoutParams) (*Workout, error)
	AppendComponentHistory(ctx context.Context, updates []ComponentUpdate) error
	ComponentCurrentStates(ctx context.Context, componentIDs []uuid.UUID) ([]ComponentState, error)
	FinishWorkout(ctx context.Context, componentIDs []uuid.UUID) (uuid.UUID, error)
	WorkoutRows(ctx context.Context, userID uuid.UUID) ([]workoutRow, error)
	FinishedWorkoutRows(ctx context.Context, userID uuid.UUID) ([]finishedRow, error)
}

type exerciseResolver interface {
	ResolveIDByName(ctx context.Context, name string) (uuid.UUID, error)
}

// Service implements the workout lifecycle on top of the repo: it resolves
// exercise names, and folds the repo's flat join rows into per-workout views.
type Service struct {
	repo      workoutRepo
	exercises exerciseResolver
}

func NewService(repo workoutRepo, exercises exerciseResolver) *Service {
	return &Service{
		repo:      repo,
		exercises: exercises,
	}
}

// CreateWorkout resolves all component exercise names up front, so an
// unknown name aborts the creation before anything is written.
func (s *Service) CreateWorkout(
	ctx context.Context,
	userID uuid.UUID,
	name string,
	aiGenerated bool,
	components []NewComponent,
) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workout.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("workout.name", name),
		attribute.Bool("workout.aiGenerated", aiGenerated),
	)

	if name == "" {
		return nil, errors.New("workout name empty")
	}

	resolved := make([]ResolvedComponent, 0, len(components))
	for _, component := range components {
		exerciseID, err := s.exercises.ResolveIDByName(ctx, component.Exercise)
		if err != nil {
			if errors.Is(err, exercises.ErrExerciseNotFound) {
				return nil, &UnknownExerciseError{Name: component.Exercise}
			}
			return nil, fmt.Errorf("resolve exercise [%s]: %w", component.Exercise, err)
		}
		resolved = append(resolved, ResolvedComponent{
			ExerciseID: exerciseID,
			Position:   component.Position,
			Reps:       component.Reps,
			Weight:     component.Weight,
			Units:      component.Units,
		})
	}

	return s.repo.CreateWorkout(ctx, CreateWorkoutParams{
		UserID:      userID,
		Name:        name,
		AIGenerated: aiGenerated,
		Components:  resolved,
	})
}

// UpdateComponents appends one state row per update, all-or-nothing, and
// returns the resulting current state of the touched components.
func (s *Service) UpdateComponents(ctx context.Context, updates []ComponentUpdate) (_ []ComponentState, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workout.updateComponents")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("updates", len(updates)))

	if len(updates) == 0 {
		return nil, errors.New("no component updates given")
	}

	if err := s.repo.AppendComponentHistory(ctx, updates); err != nil {
		return nil, err
	}

	componentIDs := make([]uuid.UUID, 0, len(updates))
	for _, update := range updates {
		componentIDs = append(componentIDs, update.ComponentID)
	}
	return s.repo.ComponentCurrentStates(ctx, componentIDs)
}

// FinishWorkout records a completed workout instance over the given components.
func (s *Service) FinishWorkout(ctx context.Context, componentIDs []uuid.UUID) (_ uuid.UUID, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workout.finish")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if len(componentIDs) == 0 {
		return uuid.Nil, errors.New("no components given")
	}

	return s.repo.FinishWorkout(ctx, componentIDs)
}

// GetWorkoutsForUser returns the user's workouts with current component
// values, grouped per workout in creation order. A user with no workouts
// gets an empty list; a workout with no components still appears.
func (s *Service) GetWorkoutsForUser(ctx context.Context, userID uuid.UUID) (_ []WorkoutView, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workout.getForUser")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID.String()))

	rows, err := s.repo.WorkoutRows(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]WorkoutView, 0)
	indexByWorkout := make(map[uuid.UUID]int)
	for _, row := range rows {
		idx, seen := indexByWorkout[row.workout.ID]
		if !seen {
			idx = len(views)
			indexByWorkout[row.workout.ID] = idx
			views = append(views, WorkoutView{
				WorkoutID:   row.workout.ID,
				Name:        row.workout.Name,
				AIGenerated: row.workout.AIGenerated,
				CreatedAt:   row.workout.CreatedAt,
				Components:  []ComponentView{},
			})
		}

		if row.component == nil {
			continue
		}
		componentView, err := row.component.view()
		if err != nil {
			return nil, err
		}
		views[idx].Components = append(views[idx].Components, componentView)
	}

	return views, nil
}

// GetRecentFinishedWorkouts returns the user's most recently completed
// workout instances, newest first, limited to `limit` distinct completions.
// Repeat completions of the same workout are distinct entries.
func (s *Service) GetRecentFinishedWorkouts(ctx context.Context, userID uuid.UUID, limit int) (_ []FinishedWorkoutView, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workout.getRecentFinished")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID.String()))

	if limit <= 0 {
		limit = DefaultRecentFinishedLimit
	}

	rows, err := s.repo.FinishedWorkoutRows(ctx, userID)
	if err != nil {
		return nil, err
	}

	// rows are contiguous per finished instance, so the limit counts
	// groups, not rows
	views := make([]FinishedWorkoutView, 0, limit)
	for _, row := range rows {
		if len(views) == 0 || views[len(views)-1].FinishedWorkoutID != row.finishedWorkoutID {
			if len(views) == limit {
				break
			}
			views = append(views, FinishedWorkoutView{
				FinishedWorkoutID: row.finishedWorkoutID,
				WorkoutID:         row.workoutID,
				Name:              row.workoutName,
				CompletedAt:       row.completedAt,
				Components:        []ComponentView{},
			})
		}

		componentView, err := row.component.view()
		if err != nil {
			return nil, err
		}
		last := len(views) - 1
		views[last].Components = append(views[last].Components, componentView)
	}

	return views, nil
}

func (c *componentRow) view() (ComponentView, error) {
	if c.state == nil {
		return ComponentView{}, &MissingHistoryError{ComponentID: c.componentID}
	}
	return ComponentView{
		ComponentID: c.componentID,
		Exercise:    c.exercise,
		Position:    c.position,
		Reps:        c.state.reps,
		Weight:      c.state.weight,
		Units:       c.state.units,
	}, nil
}
