package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Tiisu/eco-action-hub/internal/domain"
)

// PostgresRewardRepository implements domain.RewardRepository using PostgreSQL
type PostgresRewardRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresRewardRepository creates a new reward repository
func NewPostgresRewardRepository(db *sql.DB, logger *slog.Logger) *PostgresRewardRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresRewardRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new reward catalog entry
func (r *PostgresRewardRepository) Create(ctx context.Context, rw *domain.Reward) error {
	if rw.ID == "" {
		rw.ID = uuid.NewString()
	}

	query := `
		INSERT INTO rewards (id, name, description, category, points_required, quantity, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		rw.ID,
		rw.Name,
		rw.Description,
		rw.Category,
		rw.PointsRequired,
		rw.Quantity,
		rw.ImageURL,
	)
	if err != nil {
		r.logger.Error("failed to create reward",
			slog.String("name", rw.Name),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create reward: %w", err)
	}

	return nil
}

// GetByID retrieves a reward by ID
func (r *PostgresRewardRepository) GetByID(ctx context.Context, id string) (*domain.Reward, error) {
	rw := &domain.Reward{}

	query := `
		SELECT id, name, description, category, points_required, quantity, image_url
		FROM rewards
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rw.ID,
		&rw.Name,
		&rw.Description,
		&rw.Category,
		&rw.PointsRequired,
		&rw.Quantity,
		&rw.ImageURL,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reward: %w", err)
	}

	return rw, nil
}

// ListAvailable lists in-stock rewards, cheapest first
func (r *PostgresRewardRepository) ListAvailable(ctx context.Context) ([]*domain.Reward, error) {
	query := `
		SELECT id, name, description, category, points_required, quantity, image_url
		FROM rewards
		WHERE quantity > 0
		ORDER BY points_required ASC
	`

	return r.queryRewards(ctx, query)
}

// List lists the full catalog including out-of-stock entries
func (r *PostgresRewardRepository) List(ctx context.Context) ([]*domain.Reward, error) {
	query := `
		SELECT id, name, description, category, points_required, quantity, image_url
		FROM rewards
		ORDER BY points_required ASC
	`

	return r.queryRewards(ctx, query)
}

// Update updates a reward catalog entry
func (r *PostgresRewardRepository) Update(ctx context.Context, rw *domain.Reward) error {
	query := `
		UPDATE rewards
		SET name = $1, description = $2, category = $3, points_required = $4, quantity = $5, image_url = $6
		WHERE id = $7
	`

	result, err := r.db.ExecContext(ctx, query,
		rw.Name,
		rw.Description,
		rw.Category,
		rw.PointsRequired,
		rw.Quantity,
		rw.ImageURL,
		rw.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update reward: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// Delete removes a reward from the catalog. A reward that has been
// redeemed is referenced by redemption rows and cannot be removed; the
// admin zeroes its quantity instead to retire it.
func (r *PostgresRewardRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM rewards WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: reward has redemptions", domain.ErrInvalidStateTransition)
		}
		return fmt.Errorf("failed to delete reward: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// Redeem inserts the redemption row, decrements stock, and debits the
// user's balance in one transaction. The conditional UPDATEs keep racing
// redemptions correct: quantity never goes negative and neither does the
// balance, regardless of interleaving.
func (r *PostgresRewardRepository) Redeem(ctx context.Context, red *domain.Redemption) error {
	if red.ID == "" {
		red.ID = uuid.NewString()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE rewards
		SET quantity = quantity - 1
		WHERE id = $1 AND quantity > 0
	`, red.RewardID)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		var exists int
		lookupErr := r.db.QueryRowContext(ctx, `SELECT 1 FROM rewards WHERE id = $1`, red.RewardID).Scan(&exists)
		if errors.Is(lookupErr, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return domain.ErrOutOfStock
	}

	result, err = tx.ExecContext(ctx, `
		UPDATE profiles
		SET points = points - $1, updated_at = now()
		WHERE id = $2 AND is_active = true AND points >= $1
	`, red.PointsSpent, red.UserID)
	if err != nil {
		return fmt.Errorf("failed to debit points: %w", err)
	}
	rows, err = result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrInsufficientPoints
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO redemptions (id, user_id, reward_id, points_spent)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, red.ID, red.UserID, red.RewardID, red.PointsSpent).Scan(&red.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert redemption: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit redemption: %w", err)
	}

	r.logger.Info("reward redeemed",
		slog.String("user_id", red.UserID),
		slog.String("reward_id", red.RewardID),
		slog.Int("points_spent", red.PointsSpent),
	)

	return nil
}

// ListRedemptionsByUser lists a user's redemption history, newest first
func (r *PostgresRewardRepository) ListRedemptionsByUser(ctx context.Context, userID string) ([]*domain.Redemption, error) {
	query := `
		SELECT rd.id, rd.user_id, rd.reward_id, rw.name, rd.points_spent, rd.created_at
		FROM redemptions rd
		JOIN rewards rw ON rw.id = rd.reward_id
		WHERE rd.user_id = $1
		ORDER BY rd.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		r.logger.Error("failed to list redemptions",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list redemptions: %w", err)
	}
	defer rows.Close()

	var redemptions []*domain.Redemption
	for rows.Next() {
		red := &domain.Redemption{}
		err := rows.Scan(
			&red.ID,
			&red.UserID,
			&red.RewardID,
			&red.RewardName,
			&red.PointsSpent,
			&red.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan redemption: %w", err)
		}
		redemptions = append(redemptions, red)
	}

	return redemptions, rows.Err()
}

func (r *PostgresRewardRepository) queryRewards(ctx context.Context, query string) ([]*domain.Reward, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("failed to list rewards", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []*domain.Reward
	for rows.Next() {
		rw := &domain.Reward{}
		err := rows.Scan(
			&rw.ID,
			&rw.Name,
			&rw.Description,
			&rw.Category,
			&rw.PointsRequired,
			&rw.Quantity,
			&rw.ImageURL,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reward: %w", err)
		}
		rewards = append(rewards, rw)
	}

	return rewards, rows.Err()
}
