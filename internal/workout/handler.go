package workout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/thorin/workoutapp/internal/auth"
	"github.com/thorin/workoutapp/internal/telemetry/metrics"
	"github.com/thorin/workoutapp/internal/telemetry/tracing"
	"github.com/thorin/workoutapp/pkg"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type workoutService interface {
	CreateWorkout(ctx context.Context, userID uuid.UUID, name string, aiGenerated bool, components []NewComponent) (*Workout, error)
	UpdateComponents(ctx context.Context, updates []ComponentUpdate) ([]ComponentState, error)
	FinishWorkout(ctx context.Context, componentIDs []uuid.UUID) (uuid.UUID, error)
	GetWorkoutsForUser(ctx context.Context, userID uuid.UUID) ([]WorkoutView, error)
	GetRecentFinishedWorkouts(ctx context.Context, userID uuid.UUID, limit int) ([]FinishedWorkoutView, error)
}

type CreateWorkoutRequest struct {
	Name        string         `json:"name"`
	AIGenerated bool           `json:"aiGenerated"`
	Components  []NewComponent `json:"components"`
}

type UpdateComponentsRequest struct {
	Components []ComponentUpdate `json:"components"`
}

type UpdateComponentsResponse struct {
	Components []ComponentState `json:"components"`
}

type FinishWorkoutRequest struct {
	ComponentIDs []uuid.UUID `json:"componentIds"`
}

type FinishWorkoutResponse struct {
	FinishedWorkoutID uuid.UUID `json:"finishedWorkoutId"`
}

type ListResponse struct {
	Workouts []WorkoutView `json:"workouts"`
}

type FinishedListResponse struct {
	FinishedWorkouts []FinishedWorkoutView `json:"finishedWorkouts"`
}

type Handler struct {
	service workoutService
	metrics *metrics.Manager
}

func NewHandler(service workoutService, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		service: service,
		metrics: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/workouts", handler.HandleList).Methods("GET", "OPTIONS").Name("list-workouts")
	router.HandleFunc("/workouts", handler.HandleCreate).Methods("POST", "OPTIONS").Name("new-workout")
	router.HandleFunc("/workouts/components", handler.HandleUpdateComponents).Methods("PUT", "OPTIONS").Name("update-components")
	router.HandleFunc("/workouts/finish", handler.HandleFinish).Methods("POST", "OPTIONS").Name("finish-workout")
	router.HandleFunc("/workouts/finished", handler.HandleListFinished).Methods("GET", "OPTIONS").Name("list-finished-workouts")
}

func userIDFromRequest(r *http.Request) (uuid.UUID, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, false
	}
	return userID, true
}

func (handler *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.create")
	defer span.End()

	userID, ok := userIDFromRequest(r)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var req CreateWorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("new workout, unmarshal json params: %s", err)
		http.Error(w, "invalid workout request", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "error, workout name empty", http.StatusBadRequest)
		return
	}

	created, err := handler.service.CreateWorkout(ctx, userID, req.Name, req.AIGenerated, req.Components)
	if err != nil {
		var unknownExercise *UnknownExerciseError
		if errors.As(err, &unknownExercise) {
			http.Error(w, unknownExercise.Error(), http.StatusBadRequest)
			return
		}
		var integrityErr *pkg.IntegrityError
		if errors.As(err, &integrityErr) {
			http.Error(w, integrityErr.Error(), http.StatusConflict)
			return
		}
		log.Errorf("failed to create workout [%s] for user [%s]: %s", req.Name, userID, err)
		http.Error(w, "error, failed to create workout", http.StatusInternalServerError)
		return
	}

	createdJson, err := json.Marshal(created)
	if err != nil {
		log.Errorf("failed to marshal created workout: %s", err)
		http.Error(w, "error, failed to create workout", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterWorkoutsCreated.Inc()
	log.Debugf("new workout created: %s [%s]", created.Name, created.ID)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, createdJson, http.StatusCreated)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.list")
	defer span.End()

	userID, ok := userIDFromRequest(r)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	workouts, err := handler.service.GetWorkoutsForUser(ctx, userID)
	if err != nil {
		log.Errorf("failed to list workouts for user [%s]: %s", userID, err)
		http.Error(w, "error, failed to list workouts", http.StatusInternalServerError)
		return
	}

	listJson, err := json.Marshal(ListResponse{Workouts: workouts})
	if err != nil {
		log.Errorf("failed to marshal workouts: %s", err)
		http.Error(w, "error, failed to list workouts", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, listJson)
}

func (handler *Handler) HandleUpdateComponents(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.updateComponents")
	defer span.End()

	if _, ok := userIDFromRequest(r); !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var req UpdateComponentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("update components, unmarshal json params: %s", err)
		http.Error(w, "invalid update request", http.StatusBadRequest)
		return
	}
	if len(req.Components) == 0 {
		http.Error(w, "error, no components given", http.StatusBadRequest)
		return
	}

	states, err := handler.service.UpdateComponents(ctx, req.Components)
	if err != nil {
		if errors.Is(err, ErrComponentNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		log.Errorf("failed to update components: %s", err)
		http.Error(w, "error, failed to update components", http.StatusInternalServerError)
		return
	}

	statesJson, err := json.Marshal(UpdateComponentsResponse{Components: states})
	if err != nil {
		log.Errorf("failed to marshal component states: %s", err)
		http.Error(w, "error, failed to update components", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterComponentUpdates.Inc()
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, statesJson)
}

func (handler *Handler) HandleFinish(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.finish")
	defer span.End()

	if _, ok := userIDFromRequest(r); !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var req FinishWorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("finish workout, unmarshal json params: %s", err)
		http.Error(w, "invalid finish request", http.StatusBadRequest)
		return
	}
	if len(req.ComponentIDs) == 0 {
		http.Error(w, "error, no components given", http.StatusBadRequest)
		return
	}

	finishedID, err := handler.service.FinishWorkout(ctx, req.ComponentIDs)
	if err != nil {
		if errors.Is(err, ErrComponentNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		log.Errorf("failed to finish workout: %s", err)
		http.Error(w, "error, failed to finish workout", http.StatusInternalServerError)
		return
	}

	finishedJson, err := json.Marshal(FinishWorkoutResponse{FinishedWorkoutID: finishedID})
	if err != nil {
		log.Errorf("failed to marshal finished workout: %s", err)
		http.Error(w, "error, failed to finish workout", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterWorkoutsFinished.Inc()
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, finishedJson, http.StatusCreated)
}

func (handler *Handler) HandleListFinished(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.listFinished")
	defer span.End()

	userID, ok := userIDFromRequest(r)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	limit := DefaultRecentFinishedLimit
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		parsedLimit, err := strconv.Atoi(limitParam)
		if err != nil || parsedLimit <= 0 {
			http.Error(w, "error, invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsedLimit
	}

	finished, err := handler.service.GetRecentFinishedWorkouts(ctx, userID, limit)
	if err != nil {
		log.Errorf("failed to list finished workouts for user [%s]: %s", userID, err)
		http.Error(w, "error, failed to list finished workouts", http.StatusInternalServerError)
		return
	}

	finishedJson, err := json.Marshal(FinishedListResponse{FinishedWorkouts: finished})
	if err != nil {
		log.Errorf("failed to marshal finished workouts: %s", err)
		http.Error(w, "error, failed to list finished workouts", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, finishedJson)
}
