package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/fitrackhq/fitrack/internal/auth"
	"github.com/fitrackhq/fitrack/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

// AuthTokenHeader carries the redis-backed session token set by web clients.
const AuthTokenHeader = "X-FITRACK-TOKEN"

type sessionChecker interface {
	GetSession(ctx context.Context, token string) (*auth.Session, error)
}

type AuthMiddlewareHandler struct {
	jwtSecret    string
	loginChecker sessionChecker
	allowedPaths map[string]bool
}

func NewAuthMiddlewareHandler(
	jwtSecret string,
	loginChecker sessionChecker,
) *AuthMiddlewareHandler {
	return &AuthMiddlewareHandler{
		jwtSecret:    jwtSecret,
		loginChecker: loginChecker,
		allowedPaths: map[string]bool{
			"/":         true,
			"/version":  true,
			"/a/login":  true,
			"/a/logout": true,
		},
	}
}

// isAdminPath tells whether the given method+path combination mutates the
// exercise/workout catalog, which only admins are allowed to do. User-facing
// workout paths (enrollment, status, completion) are deliberately excluded.
func isAdminPath(method, path string) bool {
	if method == http.MethodGet {
		return false
	}

	if strings.HasPrefix(path, "/exercises") {
		return true
	}

	if path == "/workouts" && method == http.MethodPost {
		return true
	}

	if strings.HasPrefix(path, "/workouts/") {
		if path == "/workouts/user" {
			return false
		}
		if strings.HasSuffix(path, "/status") || strings.HasSuffix(path, "/complete") {
			return false
		}
		return method == http.MethodPut || method == http.MethodDelete ||
			strings.Contains(path, "/exercises")
	}

	return false
}

func (h *AuthMiddlewareHandler) resolveUser(ctx context.Context, r *http.Request) (*auth.User, error) {
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		claims, err := auth.VerifyJWT(strings.TrimPrefix(authHeader, "Bearer "), h.jwtSecret)
		if err != nil {
			return nil, err
		}
		return &auth.User{ID: claims.UserID, Role: claims.Role}, nil
	}

	token := r.Header.Get(AuthTokenHeader)
	if token == "" {
		return nil, auth.ErrNotLoggedIn
	}

	session, err := h.loginChecker.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}
	return &auth.User{ID: session.UserID, Role: session.Role}, nil
}

func (h *AuthMiddlewareHandler) AuthCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.GlobalTracer.Start(r.Context(), "middleware.auth")
			defer span.End()

			if r.Method == http.MethodOptions {
				w.Header().Add("Allow", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.WriteHeader(http.StatusOK)
				span.SetStatus(codes.Ok, "options-ok")
				return
			}

			if h.allowedPaths[r.URL.Path] {
				span.SetStatus(codes.Ok, "ok")
				next.ServeHTTP(w, r)
				return
			}

			user, err := h.resolveUser(ctx, r)
			if err != nil {
				log.Tracef("[auth middleware] unauthorized => %s: %s", r.URL.Path, err)
				http.Error(w, "no can do", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "unauthorized")
				return
			}

			if isAdminPath(r.Method, r.URL.Path) && !user.IsAdmin() {
				log.Tracef("[auth middleware] forbidden for role [%s] => %s", user.Role, r.URL.Path)
				http.Error(w, "no can do", http.StatusForbidden)
				span.SetStatus(codes.Error, "forbidden")
				return
			}

			span.SetStatus(codes.Ok, "ok")
			next.ServeHTTP(w, r.WithContext(auth.ContextWithUser(ctx, *user)))
		})
	}
}
