package exercises

import (
	"context"
	"errors"

	"github.com/thorin/workoutapp/internal/telemetry/tracing"

	"github.com/coocood/freecache"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	nameIDCacheSize       = 1024 * 1024 // 1MB, plenty for a name -> id catalog
	nameIDCacheTTLSeconds = 10 * 60
)

type Repo struct {
	db *pgxpool.Pool
	// name -> exercise id, the catalog is small and nearly immutable
	nameIDCache *freecache.Cache
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db:          db,
		nameIDCache: freecache.NewCache(nameIDCacheSize),
	}
}

func (r *Repo) ListAll(ctx context.Context) (_ []Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.listAll")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx, `
		SELECT exercise_id, exercise_name
		FROM exercises
		ORDER BY exercise_name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exercises []Exercise
	for rows.Next() {
		var e Exercise
		if err := rows.Scan(&e.ID, &e.Name); err != nil {
			return nil, err
		}
		exercises = append(exercises, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(exercises)))
	return exercises, nil
}

func (r *Repo) ListNames(ctx context.Context) ([]string, error) {
	exercises, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(exercises))
	for _, e := range exercises {
		names = append(names, e.Name)
	}
	return names, nil
}

// ResolveIDByName returns the exercise id for the given catalog name,
// ErrExerciseNotFound when the name is not in the catalog.
func (r *Repo) ResolveIDByName(ctx context.Context, name string) (_ uuid.UUID, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.resolveIDByName")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise.name", name))

	if cached, err := r.nameIDCache.Get([]byte(name)); err == nil {
		id, err := uuid.FromBytes(cached)
		if err == nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return id, nil
		}
		log.Warnf("exercises cache: invalid cached id for [%s]: %s", name, err)
	}

	var id uuid.UUID
	err = r.db.QueryRow(ctx, `
		SELECT exercise_id
		FROM exercises
		WHERE exercise_name = $1`,
		name,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrExerciseNotFound
	}
	if err != nil {
		return uuid.Nil, err
	}

	idBytes, err := id.MarshalBinary()
	if err == nil {
		if cacheErr := r.nameIDCache.Set([]byte(name), idBytes, nameIDCacheTTLSeconds); cacheErr != nil {
			log.Warnf("exercises cache: set [%s]: %s", name, cacheErr)
		}
	}

	return id, nil
}
