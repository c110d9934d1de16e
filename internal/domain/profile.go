package domain

import (
	"context"
	"time"
)

// Role identifies what a profile is allowed to do.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAgent || r == RoleAdmin
}

// Profile represents a registered identity. Role is immutable after
// creation. Approved is meaningful only for agents: users and admins are
// approved implicitly at creation. Points belong to the user role and only
// change through report approval and reward redemption.
type Profile struct {
	ID            string // UUID
	Email         string // Unique email address
	PasswordHash  string // Bcrypt hashed password (not returned in API)
	Role          Role
	Approved      bool
	FirstName     string
	LastName      string
	CompanyName   string // agent only
	LicenseNumber string // agent only
	Points        int    // non-negative
	AvatarURL     string
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ProfileRepository defines data access for profiles.
type ProfileRepository interface {
	Create(ctx context.Context, p *Profile) error
	GetByID(ctx context.Context, id string) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	Update(ctx context.Context, p *Profile) error
	// SetApproved flips the agent approval flag. The row must currently be
	// an active, unapproved agent; anything else is ErrInvalidStateTransition.
	SetApproved(ctx context.Context, id string) error
	// Deactivate soft-deletes a profile (is_active = false). Used as the
	// terminal "rejected" state for agents; the record is kept for audit.
	Deactivate(ctx context.Context, id string) error
	// IncrementPoints applies points = points + delta server-side so that
	// concurrent approvals and redemptions never lose updates. A negative
	// delta that would take the balance below zero must fail.
	IncrementPoints(ctx context.Context, id string, delta int) error
	ListPendingAgents(ctx context.Context) ([]*Profile, error)
	// TopByPoints returns active user-role profiles ordered by points
	// descending, for the leaderboard.
	TopByPoints(ctx context.Context, limit int) ([]*Profile, error)
}
