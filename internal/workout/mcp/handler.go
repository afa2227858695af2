package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/thorin/workoutapp/internal/workout"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// recommendationService provides recommendation context data and the save
// path. Used by Handler for testability.
type recommendationService interface {
	ExerciseNames(ctx context.Context) ([]string, error)
	RecentFinishedWorkouts(ctx context.Context, userID uuid.UUID, limit int) ([]workout.FinishedWorkoutView, error)
	SaveRecommendation(ctx context.Context, userID uuid.UUID, name string, components []workout.NewComponent) (*workout.Workout, error)
}

// Handler handles MCP tool requests and responses: parses input, calls the service, formats MCP result.
type Handler struct {
	service recommendationService
}

// NewHandler builds a handler with the given service.
func NewHandler(service recommendationService) *Handler {
	return &Handler{
		service: service,
	}
}

// GetExerciseNamesTool returns the MCP tool handler for get_exercise_names.
func (h *Handler) GetExerciseNamesTool() func(context.Context, *mcp.CallToolRequest, any) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ any) (*mcp.CallToolResult, any, error) {
		names, err := h.service.ExerciseNames(ctx)
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "Error fetching exercise names: " + err.Error()}},
				IsError: true,
			}, nil, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: strings.Join(names, "\n")}},
		}, nil, nil
	}
}

// RecentFinishedWorkoutsInput is the input for get_recent_finished_workouts.
type RecentFinishedWorkoutsInput struct {
	UserID string `json:"user_id" jsonschema:"ID of the user whose workout history to fetch"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Max number of finished workouts to return (default 5)"`
}

// GetRecentFinishedWorkoutsTool returns the MCP tool handler for get_recent_finished_workouts.
func (h *Handler) GetRecentFinishedWorkoutsTool() func(context.Context, *mcp.CallToolRequest, RecentFinishedWorkoutsInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in RecentFinishedWorkoutsInput) (*mcp.CallToolResult, any, error) {
		userID, err := uuid.Parse(in.UserID)
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "Invalid user_id: must be a UUID"}},
				IsError: true,
			}, nil, nil
		}

		finished, err := h.service.RecentFinishedWorkouts(ctx, userID, in.Limit)
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "Error fetching finished workouts: " + err.Error()}},
				IsError: true,
			}, nil, nil
		}
		raw, err := json.MarshalIndent(finished, "", "  ")
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "Error encoding response: " + err.Error()}},
				IsError: true,
			}, nil, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(raw)}},
		}, nil, nil
	}
}

// RecommendedComponentInput is one component of a recommended workout.
type RecommendedComponentInput struct {
	Exercise string  `json:"exercise" jsonschema:"Exercise name, must be one of the names from get_exercise_names"`
	Position int     `json:"position" jsonschema:"Order of the exercise within the workout, starting at 1"`
	Reps     string  `json:"reps" jsonschema:"Target reps, a number or a range (e.g. 8 or 6-8)"`
	Weight   float64 `json:"weight" jsonschema:"Target weight"`
	Units    string  `json:"units" jsonschema:"Weight units (e.g. kg, lbs)"`
}

// CreateRecommendationInput is the input for create_workout_recommendation.
type CreateRecommendationInput struct {
	UserID     string                      `json:"user_id" jsonschema:"ID of the user the workout is recommended for"`
	Name       string                      `json:"name" jsonschema:"Name of the recommended workout"`
	Components []RecommendedComponentInput `json:"components" jsonschema:"Exercises of the recommended workout, in order"`
}

// CreateWorkoutRecommendationTool returns the MCP tool handler for create_workout_recommendation.
func (h *Handler) CreateWorkoutRecommendationTool() func(context.Context, *mcp.CallToolRequest, CreateRecommendationInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in CreateRecommendationInput) (*mcp.CallToolResult, any, error) {
		userID, err := uuid.Parse(in.UserID)
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "Invalid user_id: must be a UUID"}},
				IsError: true,
			}, nil, nil
		}
		if len(in.Components) == 0 {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "A recommended workout needs at least one component"}},
				IsError: true,
			}, nil, nil
		}

		components := make([]workout.NewComponent, 0, len(in.Components))
		for _, c := range in.Components {
			components = append(components, workout.NewComponent{
				Exercise: c.Exercise,
				Position: c.Position,
				Reps:     c.Reps,
				Weight:   c.Weight,
				Units:    c.Units,
			})
		}

		created, err := h.service.SaveRecommendation(ctx, userID, in.Name, components)
		if err != nil {
			var unknownExercise *workout.UnknownExerciseError
			if errors.As(err, &unknownExercise) {
				return &mcp.CallToolResult{
					Content: []mcp.Content{&mcp.TextContent{
						Text: "Unknown exercise " + unknownExercise.Name + ": use only names from get_exercise_names",
					}},
					IsError: true,
				}, nil, nil
			}
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "Error saving recommendation: " + err.Error()}},
				IsError: true,
			}, nil, nil
		}

		raw, err := json.MarshalIndent(created, "", "  ")
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "Error encoding response: " + err.Error()}},
				IsError: true,
			}, nil, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(raw)}},
		}, nil, nil
	}
}
