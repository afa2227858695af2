package users

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/thorin/workoutapp/internal/audit"
	"github.com/thorin/workoutapp/internal/auth"
	"github.com/thorin/workoutapp/internal/middleware"
	"github.com/thorin/workoutapp/internal/telemetry/metrics"
	"github.com/thorin/workoutapp/internal/telemetry/tracing"
	"github.com/thorin/workoutapp/pkg"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type usersRepo interface {
	Create(ctx context.Context, username, passwordHash, passwordSalt string) (*User, error)
	GetSalt(ctx context.Context, username string) (string, error)
	GetCredentials(ctx context.Context, username string) (*User, *Credentials, error)
	Get(ctx context.Context, id uuid.UUID) (*User, error)
}

type sessions interface {
	Login(ctx context.Context, userID, username string, createdAt time.Time) (string, error)
	AccessToken(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, token string) (bool, error)
}

type auditRecorder interface {
	Record(ctx context.Context, actionName string, userID *uuid.UUID, description string)
}

type SignupRequest struct {
	Username     string `json:"username"`
	PasswordHash string `json:"hash"`
	PasswordSalt string `json:"salt"`
}

type SaltResponse struct {
	Salt string `json:"salt"`
}

type LoginRequest struct {
	Username     string `json:"username"`
	PasswordHash string `json:"hash"`
}

type LoginResponse struct {
	RefreshToken string `json:"refreshToken"`
}

type AccessTokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type ConflictResponse struct {
	Error  string `json:"error"`
	Column string `json:"column"`
	Value  string `json:"value"`
}

type Handler struct {
	repo     usersRepo
	sessions sessions
	recorder auditRecorder
	metrics  *metrics.Manager
}

func NewHandler(
	repo usersRepo,
	sessions sessions,
	recorder auditRecorder,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		repo:     repo,
		sessions: sessions,
		recorder: recorder,
		metrics:  metricsManager,
	}
}

func (handler *Handler) SetupRoutes(
	router *mux.Router,
	rateLimiter middleware.RequestRateLimiter,
	loginAllowedPerMin int,
) {
	router.HandleFunc("/users/signup", handler.HandleSignup).Methods("POST", "OPTIONS").Name("signup")
	router.HandleFunc("/users/salt", handler.HandleGetSalt).Methods("GET", "OPTIONS").Name("get-salt")
	router.Handle(
		"/users/login",
		middleware.RateLimit(rateLimiter, "login", loginAllowedPerMin, handler.metrics)(
			http.HandlerFunc(handler.HandleLogin),
		),
	).Methods("POST", "OPTIONS").Name("login")
	router.HandleFunc("/access_tokens", handler.HandleAccessToken).Methods("GET", "OPTIONS").Name("access-token")
	router.HandleFunc("/a/logout", handler.HandleLogout).Methods("GET", "OPTIONS").Name("logout")
	router.HandleFunc("/users/me", handler.HandleMe).Methods("GET", "OPTIONS").Name("me")
}

func (handler *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.signup")
	defer span.End()

	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("signup, unmarshal json params: %s", err)
		http.Error(w, "invalid signup request", http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.PasswordHash == "" || req.PasswordSalt == "" {
		http.Error(w, "error, username, hash or salt empty", http.StatusBadRequest)
		return
	}

	user, err := handler.repo.Create(ctx, req.Username, req.PasswordHash, req.PasswordSalt)
	if err != nil {
		var integrityErr *pkg.IntegrityError
		if errors.As(err, &integrityErr) {
			conflictJson, err := json.Marshal(ConflictResponse{
				Error:  "username taken",
				Column: integrityErr.Column,
				Value:  integrityErr.Value,
			})
			if err != nil {
				http.Error(w, "signup failed", http.StatusInternalServerError)
				return
			}
			pkg.WriteResponseBytes(w, pkg.ContentType.JSON, conflictJson, http.StatusConflict)
			return
		}
		log.Errorf("failed to create user [%s]: %s", req.Username, err)
		http.Error(w, "signup failed", http.StatusInternalServerError)
		return
	}

	userJson, err := json.Marshal(user)
	if err != nil {
		log.Errorf("failed to marshal created user: %s", err)
		http.Error(w, "signup failed", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterSignups.Inc()
	log.Debugf("new user created: %s", user.Username)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, userJson, http.StatusCreated)
}

func (handler *Handler) HandleGetSalt(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.getSalt")
	defer span.End()

	username := r.URL.Query().Get("username")
	if username == "" {
		http.Error(w, "error, username empty", http.StatusBadRequest)
		return
	}

	salt, err := handler.repo.GetSalt(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			http.Error(w, "unknown username", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get salt for [%s]: %s", username, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	saltJson, err := json.Marshal(SaltResponse{Salt: salt})
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, saltJson)
}

func (handler *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.login")
	defer span.End()

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("login, unmarshal json params: %s", err)
		http.Error(w, "invalid login request", http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.PasswordHash == "" {
		http.Error(w, "error, username or hash empty", http.StatusBadRequest)
		return
	}

	user, creds, err := handler.repo.GetCredentials(ctx, req.Username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			handler.metrics.CounterFailedLogins.Inc()
			handler.recorder.Record(ctx, audit.ActionUnsuccessfulLogin, nil, "unknown username: "+req.Username)
			http.Error(w, "login failed", http.StatusUnauthorized)
			return
		}
		log.Errorf("failed to get credentials for [%s]: %s", req.Username, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	// the client hashes the password with the stored salt, the server
	// only ever compares hashes
	if subtle.ConstantTimeCompare([]byte(creds.PasswordHash), []byte(req.PasswordHash)) != 1 {
		handler.metrics.CounterFailedLogins.Inc()
		handler.recorder.Record(ctx, audit.ActionUnsuccessfulLogin, &user.ID, "wrong password")
		http.Error(w, "login failed", http.StatusUnauthorized)
		return
	}

	refreshToken, err := handler.sessions.Login(ctx, user.ID.String(), user.Username, time.Now())
	if err != nil {
		log.Errorf("failed to create login session for [%s]: %s", user.Username, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterLogins.Inc()
	handler.recorder.Record(ctx, audit.ActionSuccessfulLogin, &user.ID, "")

	loginJson, err := json.Marshal(LoginResponse{RefreshToken: refreshToken})
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, loginJson)
}

func (handler *Handler) HandleAccessToken(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.accessToken")
	defer span.End()

	refreshToken := r.URL.Query().Get("refresh_token")
	if refreshToken == "" {
		http.Error(w, "error, refresh_token empty", http.StatusBadRequest)
		return
	}

	accessToken, err := handler.sessions.AccessToken(ctx, refreshToken)
	if err != nil {
		log.Tracef("access token refused: %s", err)
		http.Error(w, "not authorized", http.StatusUnauthorized)
		return
	}

	tokenJson, err := json.Marshal(AccessTokenResponse{AccessToken: accessToken})
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, tokenJson)
}

func (handler *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.logout")
	defer span.End()

	refreshToken := bearerToken(r)
	if refreshToken == "" {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	loggedOut, err := handler.sessions.Logout(ctx, refreshToken)
	if err != nil || !loggedOut {
		log.Tracef("logout refused: %v", err)
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	handler.recorder.Record(ctx, audit.ActionLoggedOut, nil, "")
	pkg.WriteTextResponseOK(w, "logged-out")
}

// HandleMe returns the profile of the user behind the access token.
func (handler *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.me")
	defer span.End()

	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		log.Tracef("me, bad user id in claims: %s", err)
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	user, err := handler.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			http.Error(w, "unknown user", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get user [%s]: %s", claims.UserID, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	userJson, err := json.Marshal(user)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, userJson)
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(authHeader, "Bearer ")
}
