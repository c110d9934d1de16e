package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Tiisu/eco-action-hub/internal/domain"
	"github.com/Tiisu/eco-action-hub/internal/security/auth"
	"github.com/Tiisu/eco-action-hub/internal/security/middleware"
)

func withClaims(r *http.Request, claims *auth.Claims) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), middleware.ClaimsContextKey{}, claims))
}

func routeDecision(t *testing.T, claims *auth.Claims, requiredRole string) map[string]string {
	t.Helper()
	h := NewRouteHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/access/route?role="+requiredRole, nil)
	if claims != nil {
		req = withClaims(req, claims)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	return body
}

func TestRouteHandlerAnonymous(t *testing.T) {
	body := routeDecision(t, nil, "user")
	if body["decision"] != "redirect_login" || body["redirect"] != "/login" {
		t.Errorf("unexpected decision %+v", body)
	}
}

func TestRouteHandlerMatchingRole(t *testing.T) {
	claims := &auth.Claims{UserID: "p-1", Role: domain.RoleUser, Approved: true}
	body := routeDecision(t, claims, "user")
	if body["decision"] != "render" {
		t.Errorf("unexpected decision %+v", body)
	}
}

func TestRouteHandlerWrongRole(t *testing.T) {
	claims := &auth.Claims{UserID: "p-1", Role: domain.RoleUser, Approved: true}
	body := routeDecision(t, claims, "admin")
	if body["decision"] != "redirect_dashboard" || body["redirect"] != "/user-dashboard" {
		t.Errorf("unexpected decision %+v", body)
	}
}

func TestRouteHandlerPendingAgent(t *testing.T) {
	claims := &auth.Claims{UserID: "p-1", Role: domain.RoleAgent, Approved: false}
	body := routeDecision(t, claims, "agent")
	if body["decision"] != "redirect_pending" || body["redirect"] != "/pending-approval" {
		t.Errorf("unexpected decision %+v", body)
	}
}

func TestRouteHandlerUnknownRole(t *testing.T) {
	h := NewRouteHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/access/route?role=superuser", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown role, got %d", rec.Code)
	}
}
