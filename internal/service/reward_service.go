package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Tiisu/eco-action-hub/internal/domain"
	"github.com/Tiisu/eco-action-hub/internal/observability/metrics"
	"github.com/Tiisu/eco-action-hub/internal/security/audit"
)

// RewardService is the rewards ledger: catalog listing, redemption
// eligibility, and the redemption itself with its balance and stock
// deductions.
type RewardService struct {
	rewards  domain.RewardRepository
	profiles domain.ProfileRepository
	ranks    RankInvalidator
	audit    *audit.Logger
	logger   *slog.Logger
}

// NewRewardService creates a new reward service
func NewRewardService(
	rewards domain.RewardRepository,
	profiles domain.ProfileRepository,
	ranks RankInvalidator,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *RewardService {
	if logger == nil {
		logger = slog.Default()
	}

	return &RewardService{
		rewards:  rewards,
		profiles: profiles,
		ranks:    ranks,
		audit:    auditLog,
		logger:   logger,
	}
}

// ListAvailable returns in-stock rewards, cheapest first.
func (s *RewardService) ListAvailable(ctx context.Context) ([]*domain.Reward, error) {
	return s.rewards.ListAvailable(ctx)
}

// ListAll returns the full catalog for the admin screen.
func (s *RewardService) ListAll(ctx context.Context) ([]*domain.Reward, error) {
	return s.rewards.List(ctx)
}

// CanRedeem reports redemption eligibility: balance covers the price.
func CanRedeem(profile *domain.Profile, reward *domain.Reward) bool {
	return profile.Points >= reward.PointsRequired
}

// Redeem exchanges points for a reward. The repository applies the
// redemption insert, stock decrement, and balance debit transactionally;
// the eligibility pre-check here exists only to fail fast with a clean
// error before touching the transaction.
func (s *RewardService) Redeem(ctx context.Context, userID, rewardID string) (*domain.Redemption, error) {
	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile.Role != domain.RoleUser {
		return nil, domain.ErrForbidden
	}

	reward, err := s.rewards.GetByID(ctx, rewardID)
	if err != nil {
		return nil, err
	}

	if !CanRedeem(profile, reward) {
		s.audit.LogRedemption(ctx, userID, rewardID, "denied", "insufficient points")
		return nil, domain.ErrInsufficientPoints
	}

	redemption := &domain.Redemption{
		UserID:      userID,
		RewardID:    rewardID,
		RewardName:  reward.Name,
		PointsSpent: reward.PointsRequired,
	}

	if err := s.rewards.Redeem(ctx, redemption); err != nil {
		s.audit.LogRedemption(ctx, userID, rewardID, "failed", err.Error())
		return nil, err
	}

	s.audit.LogRedemption(ctx, userID, rewardID, "applied", fmt.Sprintf("points_spent=%d", redemption.PointsSpent))
	metrics.ObserveRedemption(redemption.PointsSpent)
	if s.ranks != nil {
		s.ranks.Invalidate(ctx)
	}
	s.logger.Info("reward redeemed",
		slog.String("user_id", userID),
		slog.String("reward_id", rewardID),
		slog.Int("points_spent", redemption.PointsSpent),
	)

	return redemption, nil
}

// History returns a user's redemption history.
func (s *RewardService) History(ctx context.Context, userID string) ([]*domain.Redemption, error) {
	return s.rewards.ListRedemptionsByUser(ctx, userID)
}

// CreateReward adds a catalog entry (admin).
func (s *RewardService) CreateReward(ctx context.Context, r *domain.Reward) error {
	if err := validateReward(r); err != nil {
		return err
	}
	return s.rewards.Create(ctx, r)
}

// UpdateReward updates a catalog entry (admin).
func (s *RewardService) UpdateReward(ctx context.Context, r *domain.Reward) error {
	if err := validateReward(r); err != nil {
		return err
	}
	return s.rewards.Update(ctx, r)
}

// DeleteReward removes a catalog entry (admin).
func (s *RewardService) DeleteReward(ctx context.Context, id string) error {
	return s.rewards.Delete(ctx, id)
}

func validateReward(r *domain.Reward) error {
	if r.Name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if r.PointsRequired <= 0 {
		return fmt.Errorf("%w: points required must be positive", domain.ErrValidation)
	}
	if r.Quantity < 0 {
		return fmt.Errorf("%w: quantity must be non-negative", domain.ErrValidation)
	}
	return nil
}
