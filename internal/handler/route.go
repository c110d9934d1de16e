package handler

import (
	"net/http"

	"github.com/Tiisu/eco-action-hub/internal/access"
	"github.com/Tiisu/eco-action-hub/internal/domain"
	"github.com/Tiisu/eco-action-hub/internal/security/middleware"
)

// RouteHandler exposes the access guard to the SPA: given a required role
// it answers where the current session should be routed. GET
// /api/access/route?role=agent
type RouteHandler struct{}

// NewRouteHandler creates a new route handler
func NewRouteHandler() *RouteHandler {
	return &RouteHandler{}
}

// ServeHTTP evaluates the guard for the current session.
func (h *RouteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	required := domain.Role(r.URL.Query().Get("role"))
	if required != "" && !required.Valid() {
		writeError(w, http.StatusBadRequest, "unknown role")
		return
	}

	in := access.Input{Required: required}
	if claims := middleware.GetClaimsFromContext(r.Context()); claims != nil {
		in.Authenticated = true
		in.Role = claims.Role
		in.Approved = claims.Approved
	}

	decision := access.Decide(in)
	writeJSON(w, http.StatusOK, map[string]string{
		"decision": decision.Kind.String(),
		"redirect": decision.Target,
	})
}
