package audit

import (
	"context"

	"github.com/thorin/workoutapp/internal/telemetry/tracing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// Auditable action names, seeded into the actions table on schema setup.
const (
	ActionSuccessfulLogin   = "SUCCESSFUL_LOG_IN"
	ActionUnsuccessfulLogin = "UNSUCCESSFUL_LOG_IN"
	ActionLoggedOut         = "LOGGED_OUT"
	ActionUnknown           = "UNKNOWN_ACTION"
	ActionFailedLog         = "FAILED_LOG"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Insert adds an action log entry, resolving the action by name. An unknown
// action name is logged under UNKNOWN_ACTION so the entry is never lost.
func (r *Repo) Insert(ctx context.Context, actionName string, userID *uuid.UUID, description string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.audit.insert")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("action", actionName))

	tag, err := r.db.Exec(ctx, `
		INSERT INTO action_log (log_id, action_id, user_id, description)
		SELECT $1, action_id, $2, $3
		FROM actions WHERE action_name = $4`,
		uuid.New(), userID, description, actionName,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		_, err = r.db.Exec(ctx, `
			INSERT INTO action_log (log_id, action_id, user_id, description)
			SELECT $1, action_id, $2, $3
			FROM actions WHERE action_name = $4`,
			uuid.New(), userID, "unknown action ["+actionName+"]: "+description, ActionUnknown,
		)
		return err
	}

	return nil
}

type auditRepo interface {
	Insert(ctx context.Context, actionName string, userID *uuid.UUID, description string) error
}

// Recorder writes audit entries without ever failing the caller: a broken
// audit trail must not abort a login or logout.
type Recorder struct {
	repo auditRepo
}

func NewRecorder(repo auditRepo) *Recorder {
	return &Recorder{
		repo: repo,
	}
}

func (rec *Recorder) Record(ctx context.Context, actionName string, userID *uuid.UUID, description string) {
	if err := rec.repo.Insert(ctx, actionName, userID, description); err != nil {
		log.Errorf("audit: failed to record action [%s]: %s", actionName, err)
	}
}
