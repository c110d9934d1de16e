package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Tiisu/eco-action-hub/internal/domain"
	"github.com/Tiisu/eco-action-hub/pkg/cache"
)

const settingCacheTTL = 30 * time.Second

// SettingService reads and writes system settings. Reads go through a
// short-lived in-process cache; rule logic calls PointsPerKg and
// DefaultAgentApproval on every decision, and those must not each cost a
// database round trip.
type SettingService struct {
	repo                 domain.SettingRepository
	cache                *cache.Cache
	logger               *slog.Logger
	defaultPointsPerKg   float64
	defaultAgentApproval bool
}

// NewSettingService creates a new setting service
func NewSettingService(repo domain.SettingRepository, defaultPointsPerKg float64, defaultAgentApproval bool, logger *slog.Logger) *SettingService {
	if logger == nil {
		logger = slog.Default()
	}

	return &SettingService{
		repo:                 repo,
		cache:                cache.New(),
		logger:               logger,
		defaultPointsPerKg:   defaultPointsPerKg,
		defaultAgentApproval: defaultAgentApproval,
	}
}

// PointsPerKg returns the points-per-kilogram ratio, falling back to the
// configured default when the setting row is absent or malformed.
func (s *SettingService) PointsPerKg(ctx context.Context) float64 {
	raw, err := s.get(ctx, domain.SettingPointsPerKg)
	if err != nil {
		return s.defaultPointsPerKg
	}
	ratio, err := strconv.ParseFloat(raw, 64)
	if err != nil || ratio <= 0 {
		s.logger.Warn("malformed points_per_kg setting, using default",
			slog.String("value", raw),
		)
		return s.defaultPointsPerKg
	}
	return ratio
}

// DefaultAgentApproval reports whether newly registered agents start
// approved.
func (s *SettingService) DefaultAgentApproval(ctx context.Context) bool {
	raw, err := s.get(ctx, domain.SettingDefaultAgentApproval)
	if err != nil {
		return s.defaultAgentApproval
	}
	return raw == "true"
}

// List returns all settings for the admin screen
func (s *SettingService) List(ctx context.Context) ([]*domain.SystemSetting, error) {
	return s.repo.List(ctx)
}

// Update validates and persists a setting, then invalidates the cache so
// the next rule evaluation sees the new value.
func (s *SettingService) Update(ctx context.Context, key, value string) error {
	switch key {
	case domain.SettingPointsPerKg:
		ratio, err := strconv.ParseFloat(value, 64)
		if err != nil || ratio <= 0 {
			return fmt.Errorf("%w: points_per_kg must be a positive number", domain.ErrValidation)
		}
	case domain.SettingDefaultAgentApproval:
		if value != "true" && value != "false" {
			return fmt.Errorf("%w: default_agent_approval must be true or false", domain.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown setting %q", domain.ErrValidation, key)
	}

	if err := s.repo.Set(ctx, key, value); err != nil {
		return err
	}
	s.cache.Delete("setting:" + key)
	return nil
}

func (s *SettingService) get(ctx context.Context, key string) (string, error) {
	cacheKey := "setting:" + key
	if v, ok := s.cache.Get(cacheKey); ok {
		return v.(string), nil
	}

	value, err := s.repo.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("failed to read setting",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
		return "", err
	}

	s.cache.Set(cacheKey, value, settingCacheTTL)
	return value, nil
}
