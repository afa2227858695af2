package exercises

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/thorin/workoutapp/internal/telemetry/tracing"
	"github.com/thorin/workoutapp/pkg"

	log "github.com/sirupsen/logrus"
)

type exercisesRepo interface {
	ListAll(ctx context.Context) ([]Exercise, error)
}

type ListResponse struct {
	Exercises []Exercise `json:"exercises"`
}

type Handler struct {
	repo exercisesRepo
}

func NewHandler(repo exercisesRepo) *Handler {
	return &Handler{
		repo: repo,
	}
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.list")
	defer span.End()

	exercises, err := handler.repo.ListAll(ctx)
	if err != nil {
		log.Errorf("failed to list exercises: %s", err)
		http.Error(w, "error, failed to list exercises", http.StatusInternalServerError)
		return
	}
	if exercises == nil {
		exercises = []Exercise{}
	}

	listJson, err := json.Marshal(ListResponse{Exercises: exercises})
	if err != nil {
		log.Errorf("failed to marshal exercises: %s", err)
		http.Error(w, "error, failed to list exercises", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, listJson)
}
