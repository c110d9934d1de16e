package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/Tiisu/eco-action-hub/internal/domain"
	"github.com/Tiisu/eco-action-hub/internal/observability/metrics"
	"github.com/Tiisu/eco-action-hub/internal/security/audit"
)

// RankInvalidator is told when a points balance changed, so cached
// rankings can be dropped. LeaderboardService implements it.
type RankInvalidator interface {
	Invalidate(ctx context.Context)
}

// ReportService governs the waste report lifecycle: submission by users,
// decision by approved agents, and the points credit on approval.
type ReportService struct {
	reports  domain.ReportRepository
	profiles domain.ProfileRepository
	settings *SettingService
	ranks    RankInvalidator
	audit    *audit.Logger
	logger   *slog.Logger
}

// NewReportService creates a new report service
func NewReportService(
	reports domain.ReportRepository,
	profiles domain.ProfileRepository,
	settings *SettingService,
	ranks RankInvalidator,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}

	return &ReportService{
		reports:  reports,
		profiles: profiles,
		settings: settings,
		ranks:    ranks,
		audit:    auditLog,
		logger:   logger,
	}
}

// Submit creates a pending report for the given user.
func (s *ReportService) Submit(ctx context.Context, userID, category string, weightKg float64, location, imageURL string) (*domain.WasteReport, error) {
	if category == "" {
		return nil, fmt.Errorf("%w: category is required", domain.ErrValidation)
	}
	if weightKg <= 0 {
		return nil, fmt.Errorf("%w: weight must be positive", domain.ErrValidation)
	}

	report := &domain.WasteReport{
		UserID:   userID,
		Category: category,
		WeightKg: weightKg,
		Location: location,
		ImageURL: imageURL,
	}

	if err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}

	metrics.ObserveReportSubmitted(category)
	s.logger.Info("report submitted",
		slog.String("report_id", report.ID),
		slog.String("user_id", userID),
		slog.Float64("weight_kg", weightKg),
	)

	return report, nil
}

// Decide applies an agent's decision to a pending report. The actor must
// be an active, approved agent read from the database; the token alone is
// not trusted. Approval credits round-half-up(weight * points_per_kg) to
// the owning user inside the same transaction as the status change.
func (s *ReportService) Decide(ctx context.Context, reportID string, decision domain.ReportStatus, agentID string) (*domain.WasteReport, error) {
	if decision != domain.ReportApproved && decision != domain.ReportRejected {
		return nil, fmt.Errorf("%w: decision must be approved or rejected", domain.ErrValidation)
	}

	agent, err := s.profiles.GetByID(ctx, agentID)
	if err != nil {
		return nil, domain.ErrForbidden
	}
	if agent.Role != domain.RoleAgent || !agent.Approved || !agent.IsActive {
		s.audit.LogReportDecision(ctx, agentID, reportID, string(decision), "denied")
		return nil, domain.ErrForbidden
	}

	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}

	points := 0
	if decision == domain.ReportApproved {
		points = PointsFor(report.WeightKg, s.settings.PointsPerKg(ctx))
	}

	if err := s.reports.Decide(ctx, reportID, decision, agentID, points); err != nil {
		s.audit.LogReportDecision(ctx, agentID, reportID, string(decision), "failed")
		return nil, err
	}

	s.audit.LogReportDecision(ctx, agentID, reportID, string(decision), "applied")
	metrics.ObserveReportDecided(string(decision))
	if points > 0 {
		metrics.ObservePointsAwarded(points)
		if s.ranks != nil {
			s.ranks.Invalidate(ctx)
		}
	}

	return s.reports.GetByID(ctx, reportID)
}

// ListByUser returns a user's own reports.
func (s *ReportService) ListByUser(ctx context.Context, userID string) ([]*domain.WasteReport, error) {
	return s.reports.ListByUser(ctx, userID)
}

// ListPending returns the agent work queue.
func (s *ReportService) ListPending(ctx context.Context) ([]*domain.WasteReport, error) {
	return s.reports.ListByStatus(ctx, domain.ReportPending)
}

// ListAll returns every report, for the admin overview.
func (s *ReportService) ListAll(ctx context.Context) ([]*domain.WasteReport, error) {
	return s.reports.List(ctx)
}

// PointsFor computes the credit for an approved report: weight times the
// points-per-kilogram ratio, rounded half-up. Weights are validated
// positive at submission, so half-up and away-from-zero coincide.
func PointsFor(weightKg, pointsPerKg float64) int {
	return int(math.Floor(weightKg*pointsPerKg + 0.5))
}
