package handler

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Tiisu/eco-action-hub/internal/observability/metrics"
	"github.com/Tiisu/eco-action-hub/internal/security/middleware"
)

// ApprovalEvent is pushed to a pending agent when an admin decides.
type ApprovalEvent struct {
	Type     string `json:"type"` // always "agent_approval"
	Approved bool   `json:"approved"`
	Redirect string `json:"redirect"`
}

// ApprovalHub streams agent approval decisions over WebSocket, so a
// pending agent learns the outcome without waiting for the next poll.
// Slow or gone subscribers are dropped rather than blocking the admin
// action that triggered the event.
type ApprovalHub struct {
	mu             sync.RWMutex
	subscribers    map[string]chan ApprovalEvent // agent ID -> channel
	logger         *slog.Logger
	allowedOrigins []string
}

// NewApprovalHub creates a new approval event hub
func NewApprovalHub(allowedOrigins []string, logger *slog.Logger) *ApprovalHub {
	if logger == nil {
		logger = slog.Default()
	}

	return &ApprovalHub{
		subscribers:    make(map[string]chan ApprovalEvent),
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
}

// NotifyApproval implements service.ApprovalNotifier.
func (h *ApprovalHub) NotifyApproval(agentID string, approved bool) {
	h.mu.RLock()
	ch, ok := h.subscribers[agentID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	event := ApprovalEvent{
		Type:     "agent_approval",
		Approved: approved,
		Redirect: "/agent-dashboard",
	}
	if !approved {
		event.Redirect = "/"
	}

	select {
	case ch <- event:
	default:
		h.logger.Warn("approval event dropped, subscriber not reading",
			slog.String("agent_id", agentID),
		)
	}
}

func (h *ApprovalHub) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}
}

// ServeHTTP handles GET /ws/approval. The JWT middleware has already
// validated the token (carried as a query parameter on WS handshakes).
func (h *ApprovalHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	upgrader := h.getUpgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()

	ch := h.subscribe(claims.UserID)
	defer h.unsubscribe(claims.UserID, ch)

	metrics.IncApprovalSubscribers()
	defer metrics.DecApprovalSubscribers()

	h.logger.Debug("approval subscriber connected", slog.String("agent_id", claims.UserID))

	// Reader goroutine notices the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case event := <-ch:
			if err := ws.WriteJSON(event); err != nil {
				h.logger.Debug("failed to write approval event", slog.String("error", err.Error()))
				return
			}
		}
	}
}

func (h *ApprovalHub) subscribe(agentID string) chan ApprovalEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	// A reconnect replaces the previous subscription.
	ch := make(chan ApprovalEvent, 1)
	h.subscribers[agentID] = ch
	return ch
}

// unsubscribe removes the subscription only if it still belongs to the
// caller. After a reconnect the map holds the new connection's channel,
// which the old connection's deferred cleanup must not delete.
func (h *ApprovalHub) unsubscribe(agentID string, ch chan ApprovalEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subscribers[agentID] == ch {
		delete(h.subscribers, agentID)
	}
}
