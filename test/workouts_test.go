package test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/thorin/workoutapp/internal/workout"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) createWorkout(
	ctx context.Context, t *testing.T, user *testUser, createReq workout.CreateWorkoutRequest,
) *workout.Workout {
	createJson, err := json.Marshal(createReq)
	require.NoError(t, err)

	req := authedRequest(ctx, t, user, "POST", fmt.Sprintf("%s/workouts", serverEndpoint), createJson)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var created workout.Workout
	require.NoError(t, json.Unmarshal(respBytes, &created))
	return &created
}

func (s *IntegrationTestSuite) listWorkouts(ctx context.Context, t *testing.T, user *testUser) []workout.WorkoutView {
	req := authedRequest(ctx, t, user, "GET", fmt.Sprintf("%s/workouts", serverEndpoint), nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var list workout.ListResponse
	require.NoError(t, json.Unmarshal(respBytes, &list))
	return list.Workouts
}

func (s *IntegrationTestSuite) finishWorkout(
	ctx context.Context, t *testing.T, user *testUser, componentIDs []uuid.UUID,
) uuid.UUID {
	finishJson, err := json.Marshal(workout.FinishWorkoutRequest{ComponentIDs: componentIDs})
	require.NoError(t, err)

	req := authedRequest(ctx, t, user, "POST", fmt.Sprintf("%s/workouts/finish", serverEndpoint), finishJson)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var finished workout.FinishWorkoutResponse
	require.NoError(t, json.Unmarshal(respBytes, &finished))
	require.NotEqual(t, uuid.Nil, finished.FinishedWorkoutID)
	return finished.FinishedWorkoutID
}

func (s *IntegrationTestSuite) listFinished(
	ctx context.Context, t *testing.T, user *testUser, limit int,
) []workout.FinishedWorkoutView {
	url := fmt.Sprintf("%s/workouts/finished", serverEndpoint)
	if limit > 0 {
		url = fmt.Sprintf("%s?limit=%d", url, limit)
	}
	req := authedRequest(ctx, t, user, "GET", url, nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var list workout.FinishedListResponse
	require.NoError(t, json.Unmarshal(respBytes, &list))
	return list.FinishedWorkouts
}

func (s *IntegrationTestSuite) TestWorkouts_CreateAndList() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	user := s.signupAndLogin(ctx, t, "fili")

	created := s.createWorkout(ctx, t, user, workout.CreateWorkoutRequest{
		Name: "push day",
		Components: []workout.NewComponent{
			{Exercise: "flat_dumbell_press", Position: 1, Reps: "6-8", Weight: 30, Units: "kg"},
			{Exercise: "incline_dumbell_press", Position: 2, Reps: "8", Weight: 40, Units: "kg"},
		},
	})
	assert.Equal(t, "push day", created.Name)
	assert.Equal(t, user.ID, created.UserID)
	assert.False(t, created.AIGenerated)

	workouts := s.listWorkouts(ctx, t, user)
	require.Len(t, workouts, 1)
	assert.Equal(t, created.ID, workouts[0].WorkoutID)
	require.Len(t, workouts[0].Components, 2)
	assert.Equal(t, "flat_dumbell_press", workouts[0].Components[0].Exercise)
	assert.Equal(t, "6-8", workouts[0].Components[0].Reps)
	assert.Equal(t, "incline_dumbell_press", workouts[0].Components[1].Exercise)
}

func (s *IntegrationTestSuite) TestWorkouts_UnknownExerciseAbortsCreation() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	user := s.signupAndLogin(ctx, t, "kili")

	createJson, err := json.Marshal(workout.CreateWorkoutRequest{
		Name: "imaginary day",
		Components: []workout.NewComponent{
			{Exercise: "squats", Position: 1, Reps: "5", Weight: 100, Units: "kg"},
			{Exercise: "underwater_basket_weaving", Position: 2, Reps: "12", Weight: 0, Units: "kg"},
		},
	})
	require.NoError(t, err)

	req := authedRequest(ctx, t, user, "POST", fmt.Sprintf("%s/workouts", serverEndpoint), createJson)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// nothing was created, not even the valid component
	assert.Empty(t, s.listWorkouts(ctx, t, user))
}

func (s *IntegrationTestSuite) TestWorkouts_ComponentUpdatesKeepLatestValue() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	user := s.signupAndLogin(ctx, t, "oin")

	s.createWorkout(ctx, t, user, workout.CreateWorkoutRequest{
		Name: "leg day",
		Components: []workout.NewComponent{
			{Exercise: "squats", Position: 1, Reps: "5", Weight: 100, Units: "kg"},
		},
	})

	workouts := s.listWorkouts(ctx, t, user)
	require.Len(t, workouts, 1)
	require.Len(t, workouts[0].Components, 1)
	componentID := workouts[0].Components[0].ComponentID

	// two updates in a row, only the newest state should be visible
	for _, weight := range []float64{102.5, 105} {
		updateJson, err := json.Marshal(workout.UpdateComponentsRequest{
			Components: []workout.ComponentUpdate{
				{ComponentID: componentID, Reps: "5", Weight: weight, Units: "kg"},
			},
		})
		require.NoError(t, err)

		req := authedRequest(ctx, t, user, "PUT", fmt.Sprintf("%s/workouts/components", serverEndpoint), updateJson)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	workouts = s.listWorkouts(ctx, t, user)
	require.Len(t, workouts, 1)
	require.Len(t, workouts[0].Components, 1)
	assert.Equal(t, 105.0, workouts[0].Components[0].Weight)
	assert.Equal(t, "5", workouts[0].Components[0].Reps)

	// the earlier values are still in storage: initial row plus one per update
	var historyCount int
	require.NoError(t, s.dbPool.QueryRow(ctx, `
		SELECT COUNT(*) FROM workout_component_history
		WHERE workout_component_id = $1`, componentID,
	).Scan(&historyCount))
	assert.Equal(t, 3, historyCount)
}

func (s *IntegrationTestSuite) TestWorkouts_UpdateUnknownComponent() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	user := s.signupAndLogin(ctx, t, "gloin")

	updateJson, err := json.Marshal(workout.UpdateComponentsRequest{
		Components: []workout.ComponentUpdate{
			{ComponentID: uuid.New(), Reps: "10", Weight: 20, Units: "kg"},
		},
	})
	require.NoError(t, err)

	req := authedRequest(ctx, t, user, "PUT", fmt.Sprintf("%s/workouts/components", serverEndpoint), updateJson)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func (s *IntegrationTestSuite) TestWorkouts_FinishedInstancesAreDistinct() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	user := s.signupAndLogin(ctx, t, "dori")

	s.createWorkout(ctx, t, user, workout.CreateWorkoutRequest{
		Name: "pull day",
		Components: []workout.NewComponent{
			{Exercise: "push_ups", Position: 1, Reps: "8", Weight: 0, Units: "kg"},
			{Exercise: "seated_rows", Position: 2, Reps: "8", Weight: 60, Units: "kg"},
		},
	})

	workouts := s.listWorkouts(ctx, t, user)
	require.Len(t, workouts, 1)
	componentIDs := make([]uuid.UUID, 0, len(workouts[0].Components))
	for _, c := range workouts[0].Components {
		componentIDs = append(componentIDs, c.ComponentID)
	}

	// finish the same workout twice: two distinct instances
	first := s.finishWorkout(ctx, t, user, componentIDs)
	second := s.finishWorkout(ctx, t, user, componentIDs)
	assert.NotEqual(t, first, second)

	finished := s.listFinished(ctx, t, user, 0)
	require.Len(t, finished, 2)
	assert.NotEqual(t, finished[0].FinishedWorkoutID, finished[1].FinishedWorkoutID)
	for _, fw := range finished {
		assert.Equal(t, "pull day", fw.Name)
		assert.Len(t, fw.Components, 2)
	}
	// newest first
	assert.Equal(t, second, finished[0].FinishedWorkoutID)

	limited := s.listFinished(ctx, t, user, 1)
	require.Len(t, limited, 1)
	assert.Equal(t, second, limited[0].FinishedWorkoutID)
	assert.Len(t, limited[0].Components, 2)
}

func (s *IntegrationTestSuite) TestWorkouts_FinishUnknownComponent() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	user := s.signupAndLogin(ctx, t, "nori")

	finishJson, err := json.Marshal(workout.FinishWorkoutRequest{
		ComponentIDs: []uuid.UUID{uuid.New()},
	})
	require.NoError(t, err)

	req := authedRequest(ctx, t, user, "POST", fmt.Sprintf("%s/workouts/finish", serverEndpoint), finishJson)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func (s *IntegrationTestSuite) TestExercises_List() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/exercises", serverEndpoint), nil)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var list struct {
		Exercises []struct {
			ID   uuid.UUID `json:"id"`
			Name string    `json:"name"`
		} `json:"exercises"`
	}
	require.NoError(t, json.Unmarshal(respBytes, &list))
	require.NotEmpty(t, list.Exercises)

	names := make(map[string]bool, len(list.Exercises))
	for _, e := range list.Exercises {
		names[e.Name] = true
	}
	assert.True(t, names["squats"])
	assert.True(t, names["push_ups"])
}
