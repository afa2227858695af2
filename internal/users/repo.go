package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/thorin/workoutapp/internal/telemetry/tracing"
	"github.com/thorin/workoutapp/pkg"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Create inserts the user together with its credentials, in one transaction.
// A taken username surfaces as *pkg.IntegrityError.
func (r *Repo) Create(ctx context.Context, username, passwordHash, passwordSalt string) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("username", username))

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

	user := &User{
		ID:       uuid.New(),
		Username: username,
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO users (user_id, username)
		VALUES ($1, $2)
		RETURNING datetime_created`,
		user.ID, user.Username,
	).Scan(&user.CreatedAt)
	if err != nil {
		if integrityErr := pkg.AsIntegrityError(err); integrityErr != nil {
			return nil, integrityErr
		}
		return nil, err
	}

	if _, err = tx.Exec(ctx, `
		INSERT INTO user_password_hashes (user_id, password_hash, password_salt)
		VALUES ($1, $2, $3)`,
		user.ID, passwordHash, passwordSalt,
	); err != nil {
		return nil, err
	}

	return user, nil
}

// GetSalt returns the stored password salt for the username, so that
// clients can hash their password locally before login.
func (r *Repo) GetSalt(ctx context.Context, username string) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.getSalt")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var salt string
	err = r.db.QueryRow(ctx, `
		SELECT uph.password_salt
		FROM user_password_hashes uph
			JOIN users u ON u.user_id = uph.user_id
		WHERE u.username = $1`,
		username,
	).Scan(&salt)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", err
	}
	return salt, nil
}

// GetCredentials returns the user and its stored credentials.
func (r *Repo) GetCredentials(ctx context.Context, username string) (_ *User, _ *Credentials, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.getCredentials")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	user := &User{}
	creds := &Credentials{}
	err = r.db.QueryRow(ctx, `
		SELECT u.user_id, u.username, u.datetime_created, uph.password_hash, uph.password_salt
		FROM users u
			JOIN user_password_hashes uph ON uph.user_id = u.user_id
		WHERE u.username = $1`,
		username,
	).Scan(&user.ID, &user.Username, &user.CreatedAt, &creds.PasswordHash, &creds.PasswordSalt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrUserNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return user, creds, nil
}

// Get returns the user by id.
func (r *Repo) Get(ctx context.Context, id uuid.UUID) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	user := &User{}
	err = r.db.QueryRow(ctx, `
		SELECT user_id, username, datetime_created
		FROM users
		WHERE user_id = $1`,
		id,
	).Scan(&user.ID, &user.Username, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
