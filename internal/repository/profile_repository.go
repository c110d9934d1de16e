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

const profileColumns = `id, email, password_hash, role, approved, first_name, last_name,
		company_name, license_number, points, avatar_url, is_active, created_at, updated_at`

// PostgresProfileRepository implements domain.ProfileRepository using PostgreSQL
type PostgresProfileRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresProfileRepository creates a new profile repository
func NewPostgresProfileRepository(db *sql.DB, logger *slog.Logger) *PostgresProfileRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresProfileRepository{
		db:     db,
		logger: logger,
	}
}

func scanProfile(row interface{ Scan(...interface{}) error }) (*domain.Profile, error) {
	p := &domain.Profile{}
	err := row.Scan(
		&p.ID,
		&p.Email,
		&p.PasswordHash,
		&p.Role,
		&p.Approved,
		&p.FirstName,
		&p.LastName,
		&p.CompanyName,
		&p.LicenseNumber,
		&p.Points,
		&p.AvatarURL,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create creates a new profile
func (r *PostgresProfileRepository) Create(ctx context.Context, p *domain.Profile) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	query := `
		INSERT INTO profiles (id, email, password_hash, role, approved, first_name, last_name,
			company_name, license_number, avatar_url, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, true)
		RETURNING points, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		p.ID,
		p.Email,
		p.PasswordHash,
		p.Role,
		p.Approved,
		p.FirstName,
		p.LastName,
		p.CompanyName,
		p.LicenseNumber,
		p.AvatarURL,
	).Scan(&p.Points, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		r.logger.Error("failed to create profile",
			slog.String("email", p.Email),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create profile: %w", err)
	}
	p.IsActive = true

	return nil
}

// GetByID retrieves a profile by ID
func (r *PostgresProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	p, err := scanProfile(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("failed to get profile by id",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return p, nil
}

// GetByEmail retrieves an active profile by email
func (r *PostgresProfileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE email = $1 AND is_active = true`

	p, err := scanProfile(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile by email: %w", err)
	}

	return p, nil
}

// Update updates self-service profile fields. Role, points, and the
// approval flag have dedicated operations and are deliberately not
// writable here.
func (r *PostgresProfileRepository) Update(ctx context.Context, p *domain.Profile) error {
	query := `
		UPDATE profiles
		SET first_name = $1, last_name = $2, company_name = $3, license_number = $4,
			avatar_url = $5, password_hash = $6, updated_at = now()
		WHERE id = $7 AND is_active = true
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		p.FirstName,
		p.LastName,
		p.CompanyName,
		p.LicenseNumber,
		p.AvatarURL,
		p.PasswordHash,
		p.ID,
	).Scan(&p.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to update profile: %w", err)
	}

	return nil
}

// SetApproved approves a pending agent. The WHERE clause makes the
// transition single-shot: an already-approved or deactivated agent matches
// no rows.
func (r *PostgresProfileRepository) SetApproved(ctx context.Context, id string) error {
	query := `
		UPDATE profiles
		SET approved = true, updated_at = now()
		WHERE id = $1 AND role = 'agent' AND approved = false AND is_active = true
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to approve agent: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrInvalidStateTransition
	}

	return nil
}

// Deactivate soft-deletes a profile (sets is_active to false)
func (r *PostgresProfileRepository) Deactivate(ctx context.Context, id string) error {
	query := `
		UPDATE profiles
		SET is_active = false, updated_at = now()
		WHERE id = $1 AND is_active = true
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate profile: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrInvalidStateTransition
	}

	return nil
}

// IncrementPoints applies a server-side balance delta. The points >= 0
// check constraint rejects debits below zero; callers see that as
// ErrInsufficientPoints.
func (r *PostgresProfileRepository) IncrementPoints(ctx context.Context, id string, delta int) error {
	query := `
		UPDATE profiles
		SET points = points + $1, updated_at = now()
		WHERE id = $2 AND is_active = true
	`

	result, err := r.db.ExecContext(ctx, query, delta, id)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrInsufficientPoints
		}
		return fmt.Errorf("failed to increment points: %w", err)
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

// ListPendingAgents lists active agents awaiting an admin decision
func (r *PostgresProfileRepository) ListPendingAgents(ctx context.Context) ([]*domain.Profile, error) {
	query := `SELECT ` + profileColumns + `
		FROM profiles
		WHERE role = 'agent' AND approved = false AND is_active = true
		ORDER BY created_at ASC`

	return r.queryProfiles(ctx, query)
}

// TopByPoints returns active users ordered by points descending
func (r *PostgresProfileRepository) TopByPoints(ctx context.Context, limit int) ([]*domain.Profile, error) {
	query := `SELECT ` + profileColumns + `
		FROM profiles
		WHERE role = 'user' AND is_active = true
		ORDER BY points DESC, created_at ASC
		LIMIT $1`

	return r.queryProfiles(ctx, query, limit)
}

func (r *PostgresProfileRepository) queryProfiles(ctx context.Context, query string, args ...interface{}) ([]*domain.Profile, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list profiles", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			r.logger.Error("failed to scan profile row", slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}

	return profiles, rows.Err()
}
