package handler

import (
	"log/slog"
	"net/http"

	"github.com/Tiisu/eco-action-hub/internal/service"
)

// LeaderboardHandler handles the public points ranking
type LeaderboardHandler struct {
	leaderboard *service.LeaderboardService
	logger      *slog.Logger
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(leaderboard *service.LeaderboardService, logger *slog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		leaderboard: leaderboard,
		logger:      logger,
	}
}

// ServeHTTP handles GET /api/leaderboard
func (h *LeaderboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entries, err := h.leaderboard.Top(r.Context())
	if err != nil {
		h.logger.Error("failed to load leaderboard", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load leaderboard")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"leaderboard": entries})
}
