package service

import (
	"context"
	"log/slog"

	"github.com/Tiisu/eco-action-hub/internal/domain"
	"github.com/Tiisu/eco-action-hub/internal/observability/metrics"
	"github.com/Tiisu/eco-action-hub/internal/security/audit"
)

// ApprovalNotifier receives agent approval decisions for push delivery.
// The websocket hub implements it; tests use a recording fake.
type ApprovalNotifier interface {
	NotifyApproval(agentID string, approved bool)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) NotifyApproval(string, bool) {}

// AgentService governs the agent registration lifecycle: admins approve or
// reject pending agents. Rejection is a soft delete; the profile row stays
// for audit but the agent can no longer sign in.
type AgentService struct {
	profiles domain.ProfileRepository
	notifier ApprovalNotifier
	audit    *audit.Logger
	logger   *slog.Logger
}

// NewAgentService creates a new agent service
func NewAgentService(
	profiles domain.ProfileRepository,
	notifier ApprovalNotifier,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *AgentService {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}

	return &AgentService{
		profiles: profiles,
		notifier: notifier,
		audit:    auditLog,
		logger:   logger,
	}
}

// ListPending returns agents awaiting an admin decision.
func (s *AgentService) ListPending(ctx context.Context) ([]*domain.Profile, error) {
	return s.profiles.ListPendingAgents(ctx)
}

// Approve marks a pending agent approved. The admin role was already
// enforced by middleware; the actor is re-checked here so the rule does not
// depend on routing alone.
func (s *AgentService) Approve(ctx context.Context, adminID, agentID string) error {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		s.audit.LogAgentDecision(ctx, adminID, agentID, "approve", "denied")
		return err
	}

	if err := s.profiles.SetApproved(ctx, agentID); err != nil {
		s.audit.LogAgentDecision(ctx, adminID, agentID, "approve", "failed")
		return err
	}

	s.audit.LogAgentDecision(ctx, adminID, agentID, "approve", "applied")
	metrics.ObserveAgentDecided("approved")
	s.notifier.NotifyApproval(agentID, true)
	return nil
}

// Reject deactivates a pending agent. Terminal: a rejected agent cannot be
// re-approved through this service.
func (s *AgentService) Reject(ctx context.Context, adminID, agentID string) error {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		s.audit.LogAgentDecision(ctx, adminID, agentID, "reject", "denied")
		return err
	}

	agent, err := s.profiles.GetByID(ctx, agentID)
	if err != nil {
		return err
	}
	if agent.Role != domain.RoleAgent {
		return domain.ErrInvalidStateTransition
	}
	if agent.Approved || !agent.IsActive {
		return domain.ErrInvalidStateTransition
	}

	if err := s.profiles.Deactivate(ctx, agentID); err != nil {
		s.audit.LogAgentDecision(ctx, adminID, agentID, "reject", "failed")
		return err
	}

	s.audit.LogAgentDecision(ctx, adminID, agentID, "reject", "applied")
	metrics.ObserveAgentDecided("rejected")
	s.notifier.NotifyApproval(agentID, false)
	return nil
}

// Status returns the approval state for the polling endpoint.
func (s *AgentService) Status(ctx context.Context, agentID string) (approved bool, err error) {
	agent, err := s.profiles.GetByID(ctx, agentID)
	if err != nil {
		return false, err
	}
	if agent.Role != domain.RoleAgent || !agent.IsActive {
		return false, domain.ErrNotFound
	}
	return agent.Approved, nil
}

func (s *AgentService) requireAdmin(ctx context.Context, adminID string) error {
	actor, err := s.profiles.GetByID(ctx, adminID)
	if err != nil {
		return domain.ErrForbidden
	}
	if actor.Role != domain.RoleAdmin || !actor.IsActive {
		s.logger.Warn("non-admin attempted agent decision", slog.String("actor_id", adminID))
		return domain.ErrForbidden
	}
	return nil
}
