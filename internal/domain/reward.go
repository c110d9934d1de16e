package domain

import (
	"context"
	"time"
)

// Reward is a catalog entry users spend points on.
type Reward struct {
	ID             string // UUID
	Name           string
	Description    string
	Category       string
	PointsRequired int // positive
	Quantity       int // non-negative, decremented on redemption
	ImageURL       string
}

// Redemption records one exchange of points for a reward. Rows are
// insert-only; they are never mutated or deleted.
type Redemption struct {
	ID          string // UUID
	UserID      string
	RewardID    string
	RewardName  string
	PointsSpent int
	CreatedAt   time.Time
}

// RewardRepository defines data access for the reward catalog and
// redemption history.
type RewardRepository interface {
	Create(ctx context.Context, r *Reward) error
	GetByID(ctx context.Context, id string) (*Reward, error)
	// ListAvailable returns in-stock rewards ordered by points required
	// ascending.
	ListAvailable(ctx context.Context) ([]*Reward, error)
	List(ctx context.Context) ([]*Reward, error)
	Update(ctx context.Context, r *Reward) error
	Delete(ctx context.Context, id string) error
	// Redeem inserts the redemption, decrements the reward quantity, and
	// debits the user's points in a single transaction. Fails with
	// ErrOutOfStock or ErrInsufficientPoints, leaving no redemption row.
	Redeem(ctx context.Context, red *Redemption) error
	ListRedemptionsByUser(ctx context.Context, userID string) ([]*Redemption, error)
}
