package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/thorin/workoutapp/internal/auth"
	"github.com/thorin/workoutapp/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

type accessTokenVerifier interface {
	ParseAccessToken(tokenString string) (*auth.Claims, error)
}

type AuthMiddlewareHandler struct {
	verifier             accessTokenVerifier
	mcpSecret            string
	allowedPaths         map[string]bool
	allowedPathsPrefixes []string
}

func NewAuthMiddlewareHandler(
	verifier accessTokenVerifier,
	mcpSecret string,
) *AuthMiddlewareHandler {
	return &AuthMiddlewareHandler{
		verifier:  verifier,
		mcpSecret: mcpSecret,
		allowedPaths: map[string]bool{
			"/":        true,
			"/version": true,

			// signup and login flow:
			"/users/signup":  true,
			"/users/salt":    true,
			"/users/login":   true,
			"/access_tokens": true,
			"/a/logout":      true,

			// exercise catalog is public:
			"/exercises": true,
		},
		allowedPathsPrefixes: []string{},
	}
}

func (h *AuthMiddlewareHandler) pathIsAlwaysAllowed(path string) bool {
	if h.allowedPaths[path] {
		return true
	}
	for _, prefix := range h.allowedPathsPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (h *AuthMiddlewareHandler) AuthCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, span := tracing.GlobalTracer.Start(r.Context(), "middleware.auth")
			defer span.End()

			if r.Method == http.MethodOptions {
				w.Header().Add("Allow", "GET, POST, PUT, OPTIONS")
				w.WriteHeader(http.StatusOK)
				span.SetStatus(codes.Ok, "options-ok")
				return
			}

			if h.pathIsAlwaysAllowed(r.URL.Path) {
				span.SetStatus(codes.Ok, "ok")
				next.ServeHTTP(w, r)
				return
			}

			// MCP clients authenticate with a shared secret, not a user token
			if strings.HasPrefix(r.URL.Path, "/mcp") {
				mcpSecret := r.Header.Get("X-MCP-Secret")
				if h.mcpSecret == "" ||
					subtle.ConstantTimeCompare([]byte(h.mcpSecret), []byte(mcpSecret)) != 1 {
					log.Tracef("[invalid mcp secret] [auth middleware] unauthorized => %s", r.URL.Path)
					http.Error(w, "no can do", http.StatusUnauthorized)
					span.SetStatus(codes.Error, "invalid-mcp-secret")
					return
				}
				span.SetStatus(codes.Ok, "ok")
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Tracef("[missing token] [auth middleware] unauthorized => %s", r.URL.Path)
				http.Error(w, "no can do", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "missing-auth-token")
				return
			}

			claims, err := h.verifier.ParseAccessToken(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				log.Tracef("[invalid token] [auth middleware] unauthorized => %s: %s", r.URL.Path, err)
				http.Error(w, "no can do", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "invalid-auth-token")
				return
			}

			span.SetStatus(codes.Ok, "ok")
			next.ServeHTTP(w, r.WithContext(
				auth.ContextWithClaims(r.Context(), claims),
			))
		})
	}
}
