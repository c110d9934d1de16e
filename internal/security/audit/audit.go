package audit

import (
	"context"
	"log/slog"
	"time"
)

// Logger writes structured audit entries for every mutating admin and
// agent action. Entries go to the normal log stream tagged "audit" so they
// can be filtered downstream.
type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

func (al *Logger) LogAction(ctx context.Context, actorID, action, resource, resourceID, status, details string) {
	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("actor_id", actorID),
		slog.String("status", status),
		slog.String("details", details),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *Logger) LogReportDecision(ctx context.Context, agentID, reportID, decision, status string) {
	al.LogAction(ctx, agentID, "decide_report", "waste_report", reportID, status, decision)
}

func (al *Logger) LogAgentDecision(ctx context.Context, adminID, agentID, decision, status string) {
	al.LogAction(ctx, adminID, "decide_agent", "profile", agentID, status, decision)
}

func (al *Logger) LogRedemption(ctx context.Context, userID, rewardID, status, details string) {
	al.LogAction(ctx, userID, "redeem", "reward", rewardID, status, details)
}

func (al *Logger) LogSettingChange(ctx context.Context, adminID, key, value string) {
	al.LogAction(ctx, adminID, "update_setting", "system_setting", key, "applied", value)
}
