package workout

import (
	"context"
	"fmt"

	"github.com/thorin/workoutapp/internal/telemetry/tracing"
	"github.com/thorin/workoutapp/pkg"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

// currentStateJoin selects, per component, the history row with the newest
// datetime_added: group by component, take the max timestamp, re-join to get
// the full row back.
const currentStateJoin = `
	SELECT wch.history_id, wch.workout_component_id, wch.reps, wch.weight, wch.units, wch.datetime_added
	FROM workout_component_history wch
		JOIN (
			SELECT workout_component_id, MAX(datetime_added) AS max_datetime_added
			FROM workout_component_history
			GROUP BY workout_component_id
		) latest ON latest.workout_component_id = wch.workout_component_id
		        AND latest.max_datetime_added = wch.datetime_added`

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// ResolvedComponent is a NewComponent with the exercise name already
// resolved to a catalog id.
type ResolvedComponent struct {
	ExerciseID uuid.UUID
	Position   int
	Reps       string
	Weight     float64
	Units      string
}

type CreateWorkoutParams struct {
	UserID      uuid.UUID
	Name        string
	AIGenerated bool
	Components  []ResolvedComponent
}

// CreateWorkout inserts the workout, its components and their first history
// rows in one transaction: a failure on any row leaves nothing behind.
func (r *Repo) CreateWorkout(ctx context.Context, params CreateWorkoutParams) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("user.id", params.UserID.String()),
		attribute.Int("components", len(params.Components)),
	)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("failed to rollback transaction: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	created := &Workout{
		ID:          uuid.New(),
		UserID:      params.UserID,
		Name:        params.Name,
		AIGenerated: params.AIGenerated,
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO user_workouts (workout_id, user_id, workout_name, ai_generated)
		VALUES ($1, $2, $3, $4)
		RETURNING datetime_created`,
		created.ID, created.UserID, created.Name, created.AIGenerated,
	).Scan(&created.CreatedAt)
	if err != nil {
		if integrityErr := pkg.AsIntegrityError(err); integrityErr != nil {
			return nil, integrityErr
		}
		return nil, err
	}

	for _, component := range params.Components {
		componentID := uuid.New()
		if _, err = tx.Exec(ctx, `
			INSERT INTO workout_components (workout_component_id, workout_id, exercise_id, position)
			VALUES ($1, $2, $3, $4)`,
			componentID, created.ID, component.ExerciseID, component.Position,
		); err != nil {
			if integrityErr := pkg.AsIntegrityError(err); integrityErr != nil {
				return nil, integrityErr
			}
			return nil, err
		}

		if _, err = tx.Exec(ctx, `
			INSERT INTO workout_component_history (history_id, workout_component_id, reps, weight, units)
			VALUES ($1, $2, $3, $4, $5)`,
			uuid.New(), componentID, component.Reps, component.Weight, component.Units,
		); err != nil {
			return nil, err
		}
	}

	return created, nil
}

// AppendComponentHistory appends one new state row per update, all in one
// transaction. An unknown component id aborts the whole batch.
func (r *Repo) AppendComponentHistory(ctx context.Context, updates []ComponentUpdate) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.appendComponentHistory")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("updates", len(updates)))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("failed to rollback transaction: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	for _, update := range updates {
		if _, err = tx.Exec(ctx, `
			INSERT INTO workout_component_history (history_id, workout_component_id, reps, weight, units)
			VALUES ($1, $2, $3, $4, $5)`,
			uuid.New(), update.ComponentID, update.Reps, update.Weight, update.Units,
		); err != nil {
			if pkg.IsForeignKeyViolationError(err) {
				return fmt.Errorf("%w: %s", ErrComponentNotFound, update.ComponentID)
			}
			return err
		}
	}

	return nil
}

// ComponentCurrentStates returns the current (latest) state of each given
// component, resolved with a single batched latest-per-group query.
// Components with no history rows are simply absent from the result.
func (r *Repo) ComponentCurrentStates(ctx context.Context, componentIDs []uuid.UUID) (_ []ComponentState, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.componentCurrentStates")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("components", len(componentIDs)))

	if len(componentIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx,
		currentStateJoin+`
		WHERE wch.workout_component_id = ANY($1)
		ORDER BY wch.workout_component_id`,
		componentIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []ComponentState
	for rows.Next() {
		var s ComponentState
		if err := rows.Scan(&s.ID, &s.ComponentID, &s.Reps, &s.Weight, &s.Units, &s.AddedAt); err != nil {
			return nil, err
		}
		states = append(states, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return states, nil
}

// FinishWorkout records one finished instance linking the given components,
// all in one transaction.
func (r *Repo) FinishWorkout(ctx context.Context, componentIDs []uuid.UUID) (_ uuid.UUID, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.finish")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("components", len(componentIDs)))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("failed to rollback transaction: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	finishedID := uuid.New()
	if _, err = tx.Exec(ctx, `
		INSERT INTO finished_workouts (finished_workout_id)
		VALUES ($1)`,
		finishedID,
	); err != nil {
		return uuid.Nil, err
	}

	for _, componentID := range componentIDs {
		if _, err = tx.Exec(ctx, `
			INSERT INTO finished_workout_components (finished_workout_component_id, finished_workout_id, workout_component_id)
			VALUES ($1, $2, $3)`,
			uuid.New(), finishedID, componentID,
		); err != nil {
			if pkg.IsForeignKeyViolationError(err) {
				return uuid.Nil, fmt.Errorf("%w: %s", ErrComponentNotFound, componentID)
			}
			return uuid.Nil, err
		}
	}

	span.SetAttributes(attribute.String("finished.id", finishedID.String()))
	return finishedID, nil
}

// WorkoutRows returns the flat workout ⋈ component ⋈ latest-history ⋈
// exercise rows for the user. LEFT JOINs keep workouts with no components
// in the result, with NULL component columns.
func (r *Repo) WorkoutRows(ctx context.Context, userID uuid.UUID) (_ []workoutRow, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.workoutRows")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID.String()))

	rows, err := r.db.Query(ctx, `
		SELECT uw.workout_id, uw.user_id, uw.workout_name, uw.ai_generated, uw.datetime_created,
		       wc.workout_component_id, wc.position, e.exercise_name,
		       cur.reps, cur.weight, cur.units
		FROM user_workouts uw
			LEFT JOIN workout_components wc ON wc.workout_id = uw.workout_id
			LEFT JOIN exercises e ON e.exercise_id = wc.exercise_id
			LEFT JOIN (`+currentStateJoin+`
			) cur ON cur.workout_component_id = wc.workout_component_id
		WHERE uw.user_id = $1
		ORDER BY uw.datetime_created, uw.workout_id, wc.position`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []workoutRow
	for rows.Next() {
		var (
			row         workoutRow
			componentID *uuid.UUID
			position    *int
			exercise    *string
			reps        *string
			weight      *float64
			units       *string
		)
		if err := rows.Scan(
			&row.workout.ID, &row.workout.UserID, &row.workout.Name, &row.workout.AIGenerated, &row.workout.CreatedAt,
			&componentID, &position, &exercise,
			&reps, &weight, &units,
		); err != nil {
			return nil, err
		}

		if componentID != nil {
			row.component = &componentRow{
				componentID: *componentID,
				position:    *position,
				exercise:    *exercise,
			}
			if reps != nil {
				row.component.state = &componentState{
					reps:   *reps,
					weight: *weight,
					units:  *units,
				}
			}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("rows", len(result)))
	return result, nil
}

// FinishedWorkoutRows returns the flat finished-workout rows for the user,
// newest completions first. Component values come from the *current* latest
// history row, not the one at completion time.
func (r *Repo) FinishedWorkoutRows(ctx context.Context, userID uuid.UUID) (_ []finishedRow, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.finishedWorkoutRows")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID.String()))

	rows, err := r.db.Query(ctx, `
		SELECT fw.finished_workout_id, fw.completed_datetime,
		       uw.workout_id, uw.workout_name,
		       wc.workout_component_id, wc.position, e.exercise_name,
		       cur.reps, cur.weight, cur.units
		FROM finished_workouts fw
			JOIN finished_workout_components fwc ON fwc.finished_workout_id = fw.finished_workout_id
			JOIN workout_components wc ON wc.workout_component_id = fwc.workout_component_id
			JOIN user_workouts uw ON uw.workout_id = wc.workout_id
			JOIN exercises e ON e.exercise_id = wc.exercise_id
			LEFT JOIN (`+currentStateJoin+`
			) cur ON cur.workout_component_id = wc.workout_component_id
		WHERE uw.user_id = $1
		ORDER BY fw.completed_datetime DESC, fw.finished_workout_id, uw.workout_id, wc.position`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []finishedRow
	for rows.Next() {
		var (
			row    finishedRow
			reps   *string
			weight *float64
			units  *string
		)
		if err := rows.Scan(
			&row.finishedWorkoutID, &row.completedAt,
			&row.workoutID, &row.workoutName,
			&row.component.componentID, &row.component.position, &row.component.exercise,
			&reps, &weight, &units,
		); err != nil {
			return nil, err
		}
		if reps != nil {
			row.component.state = &componentState{
				reps:   *reps,
				weight: *weight,
				units:  *units,
			}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("rows", len(result)))
	return result, nil
}
