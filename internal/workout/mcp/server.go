package mcp

import (
	"github.com/thorin/workoutapp/internal/exercises"
	"github.com/thorin/workoutapp/internal/workout"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer builds an MCP server with workout recommendation tools: exercise
// names, recent finished workouts, create recommendation.
// Used by the main backend when mounting MCP at /mcp (internal/server).
func NewServer(exercisesRepo *exercises.Repo, workoutService *workout.Service) *mcp.Server {
	svc := NewRecommendationService(exercisesRepo, workoutService)
	h := NewHandler(svc)
	s := mcp.NewServer(&mcp.Implementation{
		Name:    "workout-recommendations",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_exercise_names",
		Description: "Returns all valid exercise names, one per line. A recommended workout may only use these names. Always call this before create_workout_recommendation.",
	}, h.GetExerciseNamesTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_recent_finished_workouts",
		Description: "Returns the user's most recently completed workouts (newest first), each with the exercises, reps and weights as they were at completion time. Args: user_id; optional: limit (default 5). Use to ground a recommendation in what the user actually trained.",
	}, h.GetRecentFinishedWorkoutsTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "create_workout_recommendation",
		Description: "Saves a recommended workout for the user. The workout is stored as AI generated and shows up in the user's workout list. Args: user_id, name, components (exercise, position, reps, weight, units). Exercise names must come from get_exercise_names.",
	}, h.CreateWorkoutRecommendationTool())

	return s
}
