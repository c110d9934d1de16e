package domain

import (
	"context"
	"time"
)

// ReportStatus is the lifecycle state of a waste report. The only legal
// transitions are pending -> approved and pending -> rejected, exactly once.
type ReportStatus string

const (
	ReportPending  ReportStatus = "pending"
	ReportApproved ReportStatus = "approved"
	ReportRejected ReportStatus = "rejected"
)

// Terminal reports whether the status admits no further transitions.
func (s ReportStatus) Terminal() bool {
	return s == ReportApproved || s == ReportRejected
}

// WasteReport is a user-submitted claim of collected waste. WeightKg is
// fixed at creation. AgentID is empty while pending and set exactly once
// when an agent decides the report.
type WasteReport struct {
	ID        string // UUID
	UserID    string
	Category  string
	WeightKg  float64 // positive
	Location  string
	ImageURL  string
	Status    ReportStatus
	AgentID   string // deciding agent, set on decision
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReportRepository defines data access for waste reports.
type ReportRepository interface {
	Create(ctx context.Context, r *WasteReport) error
	GetByID(ctx context.Context, id string) (*WasteReport, error)
	ListByUser(ctx context.Context, userID string) ([]*WasteReport, error)
	ListByStatus(ctx context.Context, status ReportStatus) ([]*WasteReport, error)
	List(ctx context.Context) ([]*WasteReport, error)
	// Decide moves a pending report to a terminal status, records the
	// deciding agent, and, when approving, credits the owning user's
	// balance by points, all in one transaction. A report that is not
	// pending yields ErrInvalidStateTransition with no effect.
	Decide(ctx context.Context, reportID string, status ReportStatus, agentID string, points int) error
}
