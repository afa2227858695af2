package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/thorin/workoutapp/internal/telemetry/tracing"
	"github.com/thorin/workoutapp/pkg"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// SeededExerciseNames is the base exercise catalog, inserted on setup.
var SeededExerciseNames = []string{
	"flat_dumbell_press",
	"incline_dumbell_press",
	"forward_dumbell_raises",
	"shrugs",
	"dumbell_row",
	"lateral_raises",
	"lat_pull_downs",
	"tricep_pulldowns",
	"chest_fly",
	"reverse_chest_fly",
	"seated_rows",
	"bicep_curls",
	"squats",
	"pistol_squats",
	"romanian_deadlifts",
	"leg_press",
	"lunges",
	"leg_curls",
	"leg_extensions",
	"dips",
	"push_ups",
}

// SeededActionNames is the set of auditable action names, inserted on setup.
var SeededActionNames = []string{
	"SUCCESSFUL_LOG_IN",
	"UNSUCCESSFUL_LOG_IN",
	"LOGGED_OUT",
	"UNKNOWN_ACTION",
	"FAILED_LOG",
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS users
(
    user_id          UUID PRIMARY KEY,
    username         VARCHAR NOT NULL UNIQUE,
    datetime_created TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS user_password_hashes
(
    user_id       UUID PRIMARY KEY REFERENCES users (user_id),
    password_hash VARCHAR NOT NULL,
    password_salt VARCHAR NOT NULL
);

CREATE TABLE IF NOT EXISTS actions
(
    action_id   UUID PRIMARY KEY,
    action_name VARCHAR NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS action_log
(
    log_id          UUID PRIMARY KEY,
    action_id       UUID NOT NULL REFERENCES actions (action_id),
    user_id         UUID REFERENCES users (user_id),
    description     VARCHAR,
    datetime_logged TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS exercises
(
    exercise_id   UUID PRIMARY KEY,
    exercise_name VARCHAR NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS user_workouts
(
    workout_id       UUID PRIMARY KEY,
    user_id          UUID NOT NULL REFERENCES users (user_id),
    workout_name     VARCHAR NOT NULL,
    ai_generated     BOOLEAN NOT NULL DEFAULT FALSE,
    datetime_created TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS workout_components
(
    workout_component_id UUID PRIMARY KEY,
    workout_id           UUID NOT NULL REFERENCES user_workouts (workout_id),
    exercise_id          UUID NOT NULL REFERENCES exercises (exercise_id),
    position             INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS workout_component_history
(
    history_id           UUID PRIMARY KEY,
    workout_component_id UUID NOT NULL REFERENCES workout_components (workout_component_id),
    reps                 VARCHAR NOT NULL,
    weight               DOUBLE PRECISION NOT NULL,
    units                VARCHAR NOT NULL,
    datetime_added       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS ix_component_history_component_added
    ON workout_component_history (workout_component_id, datetime_added);

CREATE TABLE IF NOT EXISTS finished_workouts
(
    finished_workout_id UUID PRIMARY KEY,
    completed_datetime  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS finished_workout_components
(
    finished_workout_component_id UUID PRIMARY KEY,
    finished_workout_id           UUID NOT NULL REFERENCES finished_workouts (finished_workout_id),
    workout_component_id          UUID NOT NULL REFERENCES workout_components (workout_component_id)
);
`

// dropDDL drops everything, FK-dependency order. Guarded in Drop.
const dropDDL = `
DROP TABLE IF EXISTS finished_workout_components;
DROP TABLE IF EXISTS finished_workouts;
DROP TABLE IF EXISTS workout_component_history;
DROP TABLE IF EXISTS workout_components;
DROP TABLE IF EXISTS user_workouts;
DROP TABLE IF EXISTS exercises;
DROP TABLE IF EXISTS action_log;
DROP TABLE IF EXISTS actions;
DROP TABLE IF EXISTS user_password_hashes;
DROP TABLE IF EXISTS users;
`

var ErrDropNotAllowed = errors.New("dropping tables not allowed")

// SchemaManager creates the DB schema and seeds the base tables
// (exercise catalog and auditable action names).
type SchemaManager struct {
	db          *pgxpool.Pool
	environment string
	// ops password (bcrypt hash) required for destructive schema operations
	opsPasswordHash string
}

func NewSchemaManager(db *pgxpool.Pool, environment, opsPasswordHash string) *SchemaManager {
	return &SchemaManager{
		db:              db,
		environment:     environment,
		opsPasswordHash: opsPasswordHash,
	}
}

// Setup applies the DDL and seeds base tables. Idempotent.
func (m *SchemaManager) Setup(ctx context.Context) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "db.schema.setup")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if _, err = m.db.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("apply schema ddl: %w", err)
	}

	for _, name := range SeededExerciseNames {
		if _, err = m.db.Exec(ctx, `
			INSERT INTO exercises (exercise_id, exercise_name)
			VALUES ($1, $2)
			ON CONFLICT (exercise_name) DO NOTHING`,
			uuid.New(), name,
		); err != nil {
			return fmt.Errorf("seed exercise %s: %w", name, err)
		}
	}

	for _, name := range SeededActionNames {
		if _, err = m.db.Exec(ctx, `
			INSERT INTO actions (action_id, action_name)
			VALUES ($1, $2)
			ON CONFLICT (action_name) DO NOTHING`,
			uuid.New(), name,
		); err != nil {
			return fmt.Errorf("seed action %s: %w", name, err)
		}
	}

	log.Debugln("db schema setup done")
	return nil
}

// Drop removes all tables. Refused in production, and requires the
// ops password matching the configured hash.
func (m *SchemaManager) Drop(ctx context.Context, opsPassword string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "db.schema.drop")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if m.environment == "production" {
		return fmt.Errorf("%w: env is production", ErrDropNotAllowed)
	}
	if !pkg.CheckPasswordHash(opsPassword, m.opsPasswordHash) {
		return fmt.Errorf("%w: wrong ops password", ErrDropNotAllowed)
	}

	if _, err = m.db.Exec(ctx, dropDDL); err != nil {
		return fmt.Errorf("apply drop ddl: %w", err)
	}

	log.Warnln("db schema dropped")
	return nil
}
