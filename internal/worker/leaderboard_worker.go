package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/Tiisu/eco-action-hub/internal/observability/metrics"
	"github.com/Tiisu/eco-action-hub/internal/service"
)

// LeaderboardWorker periodically rebuilds the Redis leaderboard cache so
// reads stay cheap and bounded-stale. It is the only recurring background
// loop in the server and stops when its context is cancelled.
type LeaderboardWorker struct {
	leaderboard *service.LeaderboardService
	logger      *slog.Logger
	interval    time.Duration
}

// NewLeaderboardWorker creates a new leaderboard worker
func NewLeaderboardWorker(leaderboard *service.LeaderboardService, logger *slog.Logger, interval time.Duration) *LeaderboardWorker {
	if interval <= 0 {
		interval = time.Minute
	}

	return &LeaderboardWorker{
		leaderboard: leaderboard,
		logger:      logger,
		interval:    interval,
	}
}

// Start begins the refresh loop. An immediate refresh warms the cache
// before the first tick.
func (w *LeaderboardWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("leaderboard worker started", slog.Duration("interval", w.interval))
	w.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("leaderboard worker stopped")
			return
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *LeaderboardWorker) refresh(ctx context.Context) {
	if err := w.leaderboard.Refresh(ctx); err != nil {
		w.logger.Error("leaderboard refresh failed", slog.String("error", err.Error()))
		metrics.ObserveLeaderboardRefresh("error")
		return
	}
	metrics.ObserveLeaderboardRefresh("success")
}
