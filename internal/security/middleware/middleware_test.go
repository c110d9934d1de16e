package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Tiisu/eco-action-hub/internal/domain"
	"github.com/Tiisu/eco-action-hub/internal/security/auth"
	"github.com/Tiisu/eco-action-hub/internal/security/ratelimit"
)

func testTokenManager() *auth.TokenManager {
	return auth.NewTokenManager("test-secret", "test", time.Hour)
}

func tokenFor(t *testing.T, tm *auth.TokenManager, role domain.Role, approved bool) string {
	t.Helper()
	token, err := tm.GenerateToken(&domain.Profile{ID: "p-1", Email: "x@example.com", Role: role, Approved: approved})
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestJWTMiddlewareSkipsPublicPaths(t *testing.T) {
	mw := JWTMiddleware(testTokenManager(), slog.Default())
	handler := mw(okHandler())

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/api/auth/login", "/api/rewards", "/api/leaderboard", "/static/avatars/p-1.png"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200 without a token, got %d", path, rec.Code)
		}
	}
}

func TestPreflightBypassesAuthChain(t *testing.T) {
	tm := testTokenManager()
	limiter := ratelimit.NewLimiter(1, time.Minute)
	defer limiter.Stop()

	// Same shape as the real chain: CORS answers OPTIONS at the bottom.
	cors := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Origin", r.Header.Get("Origin"))
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	handler := JWTMiddleware(tm, slog.Default())(RateLimitMiddleware(limiter, slog.Default())(cors))

	for _, path := range []string{"/api/reports", "/api/admin/rewards", "/api/rewards/r-1/redeem"} {
		req := httptest.NewRequest(http.MethodOptions, path, nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Errorf("%s: preflight without auth header expected 204, got %d", path, rec.Code)
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
			t.Errorf("%s: missing allow-origin header, got %q", path, got)
		}
	}
}

func TestJWTMiddlewareRejectsMissingToken(t *testing.T) {
	mw := JWTMiddleware(testTokenManager(), slog.Default())
	handler := mw(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestJWTMiddlewareRejectsBadToken(t *testing.T) {
	mw := JWTMiddleware(testTokenManager(), slog.Default())
	handler := mw(okHandler())

	for _, header := range []string{"garbage", "Bearer not.a.token"} {
		req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: expected 401, got %d", header, rec.Code)
		}
	}
}

func TestJWTMiddlewarePutsClaimsInContext(t *testing.T) {
	tm := testTokenManager()
	mw := JWTMiddleware(tm, slog.Default())

	var got *auth.Claims
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetClaimsFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, tm, domain.RoleUser, true))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil || got.UserID != "p-1" || got.Role != domain.RoleUser {
		t.Errorf("unexpected claims %+v", got)
	}
}

func TestJWTMiddlewareWebsocketQueryToken(t *testing.T) {
	tm := testTokenManager()
	mw := JWTMiddleware(tm, slog.Default())
	handler := mw(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/ws/agent-approval?token="+tokenFor(t, tm, domain.RoleAgent, false), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with query token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/ws/agent-approval", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without query token, got %d", rec.Code)
	}
}

func protectedRequest(t *testing.T, tm *auth.TokenManager, required domain.Role, role domain.Role, approved bool) *httptest.ResponseRecorder {
	t.Helper()
	jwtMW := JWTMiddleware(tm, slog.Default())
	roleMW := RequireRole(required, slog.Default())
	handler := jwtMW(roleMW(okHandler()))

	req := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, tm, role, approved))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRequireRole(t *testing.T) {
	tm := testTokenManager()

	if rec := protectedRequest(t, tm, domain.RoleAdmin, domain.RoleAdmin, true); rec.Code != http.StatusOK {
		t.Errorf("admin on admin route: expected 200, got %d", rec.Code)
	}
	if rec := protectedRequest(t, tm, domain.RoleAdmin, domain.RoleUser, true); rec.Code != http.StatusForbidden {
		t.Errorf("user on admin route: expected 403, got %d", rec.Code)
	}
	if rec := protectedRequest(t, tm, domain.RoleAgent, domain.RoleAgent, true); rec.Code != http.StatusOK {
		t.Errorf("approved agent: expected 200, got %d", rec.Code)
	}
}

func TestRequireRolePendingAgentGetsRedirectHint(t *testing.T) {
	tm := testTokenManager()

	rec := protectedRequest(t, tm, domain.RoleAgent, domain.RoleAgent, false)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["redirect"] != "/pending-approval" {
		t.Errorf("expected /pending-approval hint, got %q", body["redirect"])
	}
	if body["decision"] != "redirect_pending" {
		t.Errorf("expected redirect_pending decision, got %q", body["decision"])
	}
}

func TestRequireRoleUnauthenticated(t *testing.T) {
	handler := RequireRole(domain.RoleUser, slog.Default())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with no claims, got %d", rec.Code)
	}
}

func TestRequireRoleNilLogger(t *testing.T) {
	tm := testTokenManager()
	handler := JWTMiddleware(tm, slog.Default())(RequireRole(domain.RoleAdmin, nil)(okHandler()))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/settings", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, tm, domain.RoleUser, true))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	tm := testTokenManager()
	limiter := ratelimit.NewLimiter(2, time.Minute)
	defer limiter.Stop()

	jwtMW := JWTMiddleware(tm, slog.Default())
	handler := jwtMW(RateLimitMiddleware(limiter, slog.Default())(okHandler()))

	token := tokenFor(t, tm, domain.RoleUser, true)
	codes := []int{}
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("first two requests should pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("third request should be limited, got %v", codes)
	}
}
