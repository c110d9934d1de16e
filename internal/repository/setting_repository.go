package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Tiisu/eco-action-hub/internal/domain"
)

// PostgresSettingRepository implements domain.SettingRepository using PostgreSQL
type PostgresSettingRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresSettingRepository creates a new setting repository
func NewPostgresSettingRepository(db *sql.DB, logger *slog.Logger) *PostgresSettingRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSettingRepository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves a setting value by key
func (r *PostgresSettingRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM system_settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("failed to get setting: %w", err)
	}
	return value, nil
}

// Set upserts a setting
func (r *PostgresSettingRepository) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO system_settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`

	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		r.logger.Error("failed to set setting",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to set setting: %w", err)
	}

	return nil
}

// List returns all settings
func (r *PostgresSettingRepository) List(ctx context.Context) ([]*domain.SystemSetting, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM system_settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()

	var settings []*domain.SystemSetting
	for rows.Next() {
		s := &domain.SystemSetting{}
		if err := rows.Scan(&s.Key, &s.Value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings = append(settings, s)
	}

	return settings, rows.Err()
}
