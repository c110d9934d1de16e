package service

import (
	"context"
	"log/slog"

	"github.com/Tiisu/eco-action-hub/internal/domain"
	"github.com/Tiisu/eco-action-hub/internal/infrastructure/redis"
)

const leaderboardKey = "leaderboard:points"

// LeaderboardEntry is one row of the public leaderboard.
type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Points    int    `json:"points"`
}

// LeaderboardService serves the points ranking. Reads come from a Redis
// sorted set maintained by the background refresher; when the cache is
// empty or Redis is down it falls through to the database.
type LeaderboardService struct {
	profiles domain.ProfileRepository
	cache    *redis.Client
	size     int
	logger   *slog.Logger
}

// NewLeaderboardService creates a new leaderboard service
func NewLeaderboardService(profiles domain.ProfileRepository, cache *redis.Client, size int, logger *slog.Logger) *LeaderboardService {
	if logger == nil {
		logger = slog.Default()
	}
	if size <= 0 {
		size = 50
	}

	return &LeaderboardService{
		profiles: profiles,
		cache:    cache,
		size:     size,
		logger:   logger,
	}
}

// Top returns the highest-points users. Cached ranks carry only ID and
// score; display fields are re-read from the database per entry set.
func (s *LeaderboardService) Top(ctx context.Context) ([]LeaderboardEntry, error) {
	if s.cache != nil {
		members, err := s.cache.TopSortedSet(ctx, leaderboardKey, s.size)
		if err == nil && len(members) > 0 {
			return s.hydrate(ctx, members)
		}
		if err != nil {
			s.logger.Warn("leaderboard cache read failed, falling back to database",
				slog.String("error", err.Error()),
			)
		}
	}

	profiles, err := s.profiles.TopByPoints(ctx, s.size)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(profiles))
	for i, p := range profiles {
		entries = append(entries, entryFromProfile(i+1, p))
	}
	return entries, nil
}

// Refresh rebuilds the cached sorted set from the database. Called by the
// background worker and after point-changing operations.
func (s *LeaderboardService) Refresh(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}

	profiles, err := s.profiles.TopByPoints(ctx, s.size)
	if err != nil {
		return err
	}

	members := make([]redis.Member, 0, len(profiles))
	for _, p := range profiles {
		members = append(members, redis.Member{ID: p.ID, Points: p.Points})
	}

	return s.cache.ReplaceSortedSet(ctx, leaderboardKey, members)
}

// Invalidate drops the cached ranking after a balance change, so reads
// fall back to the database until the next refresh. Best effort: a failed
// delete only extends staleness to the refresh interval.
func (s *LeaderboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, leaderboardKey); err != nil {
		s.logger.Warn("leaderboard invalidation failed", slog.String("error", err.Error()))
	}
}

func (s *LeaderboardService) hydrate(ctx context.Context, members []redis.Member) ([]LeaderboardEntry, error) {
	entries := make([]LeaderboardEntry, 0, len(members))
	for i, m := range members {
		p, err := s.profiles.GetByID(ctx, m.ID)
		if err != nil {
			// Deactivated between refreshes; skip rather than fail the page.
			continue
		}
		entry := entryFromProfile(i+1, p)
		entries = append(entries, entry)
	}
	return entries, nil
}

func entryFromProfile(rank int, p *domain.Profile) LeaderboardEntry {
	name := p.FirstName
	if p.LastName != "" {
		if name != "" {
			name += " "
		}
		name += p.LastName
	}
	if name == "" {
		name = "Anonymous"
	}
	return LeaderboardEntry{
		Rank:      rank,
		UserID:    p.ID,
		Name:      name,
		AvatarURL: p.AvatarURL,
		Points:    p.Points,
	}
}
