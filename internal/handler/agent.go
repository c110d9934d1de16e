package handler

import (
	"log/slog"
	"net/http"

	"github.com/Tiisu/eco-action-hub/internal/security/middleware"
	"github.com/Tiisu/eco-action-hub/internal/service"
)

// AgentHandler handles agent approval endpoints
type AgentHandler struct {
	agents      *service.AgentService
	sessions    *service.SessionService
	pollSeconds int
	logger      *slog.Logger
}

// NewAgentHandler creates a new agent handler
func NewAgentHandler(agents *service.AgentService, sessions *service.SessionService, pollSeconds int, logger *slog.Logger) *AgentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if pollSeconds <= 0 {
		pollSeconds = 60
	}

	return &AgentHandler{
		agents:      agents,
		sessions:    sessions,
		pollSeconds: pollSeconds,
		logger:      logger,
	}
}

// ListPending handles GET /api/admin/agents/pending
func (h *AgentHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	agents, err := h.agents.ListPending(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]ProfileResponse, 0, len(agents))
	for _, a := range agents {
		out = append(out, toProfileResponse(a))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"agents": out})
}

// Approve handles POST /api/admin/agents/{id}/approve
func (h *AgentHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, true)
}

// Reject handles POST /api/admin/agents/{id}/reject
func (h *AgentHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, false)
}

func (h *AgentHandler) decide(w http.ResponseWriter, r *http.Request, approve bool) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	agentID := r.PathValue("id")
	if agentID == "" {
		writeError(w, http.StatusBadRequest, "missing agent id")
		return
	}

	var err error
	outcome := "approved"
	if approve {
		err = h.agents.Approve(r.Context(), claims.UserID, agentID)
	} else {
		outcome = "rejected"
		err = h.agents.Reject(r.Context(), claims.UserID, agentID)
	}
	if err != nil {
		h.logger.Info("agent decision failed",
			slog.String("agent_id", agentID),
			slog.String("admin_id", claims.UserID),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": outcome})
}

// AgentStatusResponse is the approval poll payload. Token is set only
// when the stored approval state has diverged from the caller's token.
type AgentStatusResponse struct {
	Approved    bool   `json:"approved"`
	PollSeconds int    `json:"pollSeconds"`
	Token       string `json:"token,omitempty"`
	ExpiresIn   int    `json:"expiresIn,omitempty"`
	TokenType   string `json:"tokenType,omitempty"`
}

// Status handles GET /api/agents/status, the approval poll for pending
// agents. PollSeconds tells the client how often to come back. When the
// approval flag no longer matches the token's snapshot, a fresh token is
// included so the client can reach agent routes without a re-login.
func (h *AgentHandler) Status(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	approved, err := h.agents.Status(r.Context(), claims.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := AgentStatusResponse{Approved: approved, PollSeconds: h.pollSeconds}
	if approved != claims.Approved && h.sessions != nil {
		session, err := h.sessions.Reissue(r.Context(), claims.UserID)
		if err != nil {
			h.logger.Warn("failed to reissue agent token",
				slog.String("agent_id", claims.UserID),
				slog.String("error", err.Error()),
			)
		} else {
			resp.Token = session.Token
			resp.ExpiresIn = session.ExpiresIn
			resp.TokenType = session.TokenType
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
