package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Tiisu/eco-action-hub/internal/access"
	"github.com/Tiisu/eco-action-hub/internal/domain"
	"github.com/Tiisu/eco-action-hub/internal/security/auth"
	"github.com/Tiisu/eco-action-hub/internal/security/ratelimit"
)

type ClaimsContextKey struct{}

// publicPath reports whether a path is reachable without a session token.
func publicPath(path string) bool {
	switch path {
	case "/healthz", "/readyz", "/metrics",
		"/api/auth/register", "/api/auth/login", "/api/auth/reset-password",
		"/api/rewards", "/api/leaderboard":
		return true
	}
	return strings.HasPrefix(path, "/static/")
}

// JWTMiddleware validates the bearer token on protected paths and stores
// the claims in the request context. WebSocket upgrades carry the token in
// a query parameter because browsers cannot set headers on WS handshakes.
func JWTMiddleware(tm *auth.TokenManager, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// CORS preflights carry no Authorization header; the CORS
			// handler downstream answers them.
			if r.Method == http.MethodOptions || publicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			var tokenString string
			if strings.HasPrefix(r.URL.Path, "/ws/") {
				tokenString = r.URL.Query().Get("token")
			} else {
				authHeader := r.Header.Get("Authorization")
				if authHeader == "" {
					writeError(w, http.StatusUnauthorized, "missing auth")
					return
				}
				var err error
				tokenString, err = auth.ExtractToken(authHeader)
				if err != nil {
					writeError(w, http.StatusUnauthorized, "invalid auth")
					return
				}
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole enforces the access guard on a handler. The guard decision is
// mapped onto HTTP: RedirectLogin -> 401, RedirectPending and
// RedirectDashboard -> 403 with a redirect hint the SPA can follow.
func RequireRole(required domain.Role, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaimsFromContext(r.Context())

			in := access.Input{Required: required}
			if claims != nil {
				in.Authenticated = true
				in.Role = claims.Role
				in.Approved = claims.Approved
			}

			decision := access.Decide(in)
			switch decision.Kind {
			case access.Render:
				next.ServeHTTP(w, r)
			case access.RedirectLogin:
				writeError(w, http.StatusUnauthorized, "authentication required")
			default:
				log.Warn("role check failed",
					slog.String("path", r.URL.Path),
					slog.String("required", string(required)),
					slog.String("decision", decision.Kind.String()),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				json.NewEncoder(w).Encode(map[string]string{
					"error":    "forbidden",
					"decision": decision.Kind.String(),
					"redirect": decision.Target,
				})
			}
		})
	}
}

// RateLimitMiddleware limits authenticated traffic per user.
func RateLimitMiddleware(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || publicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			userID := ""
			if claims := GetClaimsFromContext(r.Context()); claims != nil {
				userID = claims.UserID
			}

			if !limiter.Allow(userID) {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	if c := ctx.Value(ClaimsContextKey{}); c != nil {
		return c.(*auth.Claims)
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
