//go:build integration_test || all_tests

package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/thorin/workoutapp/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSchemaManager_DropAndRecreate runs against a scratch database so that
// dropping the tables cannot interfere with other db-backed tests.
func TestSchemaManager_DropAndRecreate(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}
	t.Logf("using postgres host: %s", host)

	adminPool, err := NewDBPool(ctx, NewDBPoolParams{
		DBHost: host,
		DBPort: "5432",
		DBName: "workout_app",
		DBUser: "postgres",
	})
	require.NoError(t, err)
	defer adminPool.Close()

	const scratchDBName = "workout_app_schema_test"
	_, err = adminPool.Exec(ctx, "DROP DATABASE IF EXISTS "+scratchDBName)
	require.NoError(t, err)
	_, err = adminPool.Exec(ctx, "CREATE DATABASE "+scratchDBName)
	require.NoError(t, err)

	dbPool, err := NewDBPool(ctx, NewDBPoolParams{
		DBHost: host,
		DBPort: "5432",
		DBName: scratchDBName,
		DBUser: "postgres",
	})
	require.NoError(t, err)
	defer dbPool.Close()

	opsHash, err := pkg.HashPassword("ops-pass")
	require.NoError(t, err)
	manager := NewSchemaManager(dbPool, "development", opsHash)

	require.NoError(t, manager.Setup(ctx))

	var exercisesCount int
	require.NoError(t, dbPool.QueryRow(ctx, `SELECT COUNT(*) FROM exercises`).Scan(&exercisesCount))
	assert.Equal(t, len(SeededExerciseNames), exercisesCount)

	require.NoError(t, manager.Drop(ctx, "ops-pass"))
	err = dbPool.QueryRow(ctx, `SELECT COUNT(*) FROM exercises`).Scan(&exercisesCount)
	assert.Error(t, err, "exercises table should be gone")

	// setup brings everything back, seeded
	require.NoError(t, manager.Setup(ctx))
	require.NoError(t, dbPool.QueryRow(ctx, `SELECT COUNT(*) FROM exercises`).Scan(&exercisesCount))
	assert.Equal(t, len(SeededExerciseNames), exercisesCount)
}
