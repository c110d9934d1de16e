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

const reportColumns = `id, user_id, category, weight_kg, location, image_url, status,
		COALESCE(agent_id::text, ''), created_at, updated_at`

// PostgresReportRepository implements domain.ReportRepository using PostgreSQL
type PostgresReportRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresReportRepository creates a new report repository
func NewPostgresReportRepository(db *sql.DB, logger *slog.Logger) *PostgresReportRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresReportRepository{
		db:     db,
		logger: logger,
	}
}

func scanReport(row interface{ Scan(...interface{}) error }) (*domain.WasteReport, error) {
	rep := &domain.WasteReport{}
	err := row.Scan(
		&rep.ID,
		&rep.UserID,
		&rep.Category,
		&rep.WeightKg,
		&rep.Location,
		&rep.ImageURL,
		&rep.Status,
		&rep.AgentID,
		&rep.CreatedAt,
		&rep.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// Create creates a new pending report
func (r *PostgresReportRepository) Create(ctx context.Context, rep *domain.WasteReport) error {
	if rep.ID == "" {
		rep.ID = uuid.NewString()
	}
	rep.Status = domain.ReportPending

	query := `
		INSERT INTO waste_reports (id, user_id, category, weight_kg, location, image_url, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		rep.ID,
		rep.UserID,
		rep.Category,
		rep.WeightKg,
		rep.Location,
		rep.ImageURL,
	).Scan(&rep.CreatedAt, &rep.UpdatedAt)

	if err != nil {
		r.logger.Error("failed to create report",
			slog.String("user_id", rep.UserID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create report: %w", err)
	}

	return nil
}

// GetByID retrieves a report by ID
func (r *PostgresReportRepository) GetByID(ctx context.Context, id string) (*domain.WasteReport, error) {
	query := `SELECT ` + reportColumns + ` FROM waste_reports WHERE id = $1`

	rep, err := scanReport(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	return rep, nil
}

// ListByUser lists a user's reports, newest first
func (r *PostgresReportRepository) ListByUser(ctx context.Context, userID string) ([]*domain.WasteReport, error) {
	query := `SELECT ` + reportColumns + `
		FROM waste_reports
		WHERE user_id = $1
		ORDER BY created_at DESC`

	return r.queryReports(ctx, query, userID)
}

// ListByStatus lists reports with a given status, oldest first so agents
// work the queue in submission order
func (r *PostgresReportRepository) ListByStatus(ctx context.Context, status domain.ReportStatus) ([]*domain.WasteReport, error) {
	query := `SELECT ` + reportColumns + `
		FROM waste_reports
		WHERE status = $1
		ORDER BY created_at ASC`

	return r.queryReports(ctx, query, string(status))
}

// List lists all reports, newest first
func (r *PostgresReportRepository) List(ctx context.Context) ([]*domain.WasteReport, error) {
	query := `SELECT ` + reportColumns + `
		FROM waste_reports
		ORDER BY created_at DESC`

	return r.queryReports(ctx, query)
}

// Decide applies the pending -> terminal transition and, on approval, the
// points credit in one transaction. The conditional UPDATE is the
// concurrency guard: of two racing decisions on the same report exactly one
// matches the pending row, the other gets ErrInvalidStateTransition.
func (r *PostgresReportRepository) Decide(ctx context.Context, reportID string, status domain.ReportStatus, agentID string, points int) error {
	if !status.Terminal() {
		return domain.ErrInvalidStateTransition
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var userID string
	err = tx.QueryRowContext(ctx, `
		UPDATE waste_reports
		SET status = $1, agent_id = $2, updated_at = now()
		WHERE id = $3 AND status = 'pending'
		RETURNING user_id
	`, string(status), agentID, reportID).Scan(&userID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Distinguish a missing report from one already decided.
			var existing string
			lookupErr := r.db.QueryRowContext(ctx, `SELECT status FROM waste_reports WHERE id = $1`, reportID).Scan(&existing)
			if errors.Is(lookupErr, sql.ErrNoRows) {
				return domain.ErrNotFound
			}
			return domain.ErrInvalidStateTransition
		}
		return fmt.Errorf("failed to decide report: %w", err)
	}

	if status == domain.ReportApproved && points > 0 {
		result, err := tx.ExecContext(ctx, `
			UPDATE profiles
			SET points = points + $1, updated_at = now()
			WHERE id = $2 AND is_active = true
		`, points, userID)
		if err != nil {
			return fmt.Errorf("failed to credit points: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("credit points: owner profile missing: %w", domain.ErrNotFound)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit decision: %w", err)
	}

	r.logger.Info("report decided",
		slog.String("report_id", reportID),
		slog.String("status", string(status)),
		slog.String("agent_id", agentID),
		slog.Int("points", points),
	)

	return nil
}

func (r *PostgresReportRepository) queryReports(ctx context.Context, query string, args ...interface{}) ([]*domain.WasteReport, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list reports", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []*domain.WasteReport
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			r.logger.Error("failed to scan report row", slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, rep)
	}

	return reports, rows.Err()
}
