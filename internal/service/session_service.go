package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/Tiisu/eco-action-hub/internal/domain"
	"github.com/Tiisu/eco-action-hub/internal/observability/metrics"
	"github.com/Tiisu/eco-action-hub/internal/security/auth"
)

// SessionService is the single source of truth for "who is logged in and
// what is their profile". It owns sign-up, sign-in, password management,
// and profile refresh.
type SessionService struct {
	profiles domain.ProfileRepository
	settings *SettingService
	tokens   *auth.TokenManager
	logger   *slog.Logger
}

// NewSessionService creates a new session service
func NewSessionService(
	profiles domain.ProfileRepository,
	settings *SettingService,
	tokens *auth.TokenManager,
	logger *slog.Logger,
) *SessionService {
	if logger == nil {
		logger = slog.Default()
	}

	return &SessionService{
		profiles: profiles,
		settings: settings,
		tokens:   tokens,
		logger:   logger,
	}
}

// SignUpInput carries registration fields. CompanyName and LicenseNumber
// are meaningful only for the agent role.
type SignUpInput struct {
	Email         string
	Password      string
	Role          domain.Role
	FirstName     string
	LastName      string
	CompanyName   string
	LicenseNumber string
}

// SessionResult is returned by SignUp and SignIn.
type SessionResult struct {
	Profile   *domain.Profile
	Token     string
	ExpiresIn int // seconds
	TokenType string
}

// SignUp creates a new identity and profile. Role is restricted to user or
// agent; admins are provisioned out of band. Agents start unapproved unless
// the default_agent_approval setting is on.
func (s *SessionService) SignUp(ctx context.Context, in SignUpInput) (*SessionResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrValidation)
	}
	if len(in.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", domain.ErrValidation)
	}
	if in.Role != domain.RoleUser && in.Role != domain.RoleAgent {
		return nil, fmt.Errorf("%w: role must be user or agent", domain.ErrValidation)
	}
	if in.Role == domain.RoleAgent && in.LicenseNumber == "" {
		return nil, fmt.Errorf("%w: license number is required for agents", domain.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, errors.New("failed to register")
	}

	approved := true
	if in.Role == domain.RoleAgent {
		approved = s.settings.DefaultAgentApproval(ctx)
	}

	profile := &domain.Profile{
		Email:         email,
		PasswordHash:  string(hash),
		Role:          in.Role,
		Approved:      approved,
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		CompanyName:   in.CompanyName,
		LicenseNumber: in.LicenseNumber,
	}

	if err := s.profiles.Create(ctx, profile); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, domain.ErrEmailTaken
		}
		s.logger.Error("failed to create profile", slog.String("error", err.Error()))
		return nil, errors.New("failed to register")
	}

	metrics.ObserveSignUp(string(in.Role))
	s.logger.Info("profile registered",
		slog.String("user_id", profile.ID),
		slog.String("role", string(profile.Role)),
		slog.Bool("approved", profile.Approved),
	)

	return s.issue(profile)
}

// SignIn authenticates by email and password. All failures surface as
// ErrInvalidCredentials so callers cannot probe which emails exist.
func (s *SessionService) SignIn(ctx context.Context, email, password string) (*SessionResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrValidation)
	}

	profile, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		s.logger.Info("sign-in attempt with unknown email", slog.String("email", email))
		return nil, domain.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("sign-in failed with wrong password", slog.String("email", email))
		return nil, domain.ErrInvalidCredentials
	}

	s.logger.Info("profile signed in",
		slog.String("user_id", profile.ID),
		slog.String("role", string(profile.Role)),
	)
	metrics.ObserveSignIn()

	return s.issue(profile)
}

// RefreshProfile re-reads the profile row for the current identity. Clients
// poll this while an agent decision is pending.
func (s *SessionService) RefreshProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !profile.IsActive {
		return nil, domain.ErrNotFound
	}
	return profile, nil
}

// Reissue mints a fresh token for the current identity. Tokens snapshot
// the role and approval flag at signing time, so when the profile row
// changes (an admin approving an agent) the client needs a new token to
// pass role checks without logging in again.
func (s *SessionService) Reissue(ctx context.Context, userID string) (*SessionResult, error) {
	profile, err := s.RefreshProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.issue(profile)
}

// UpdateProfile mutates self-service fields only.
func (s *SessionService) UpdateProfile(ctx context.Context, userID string, firstName, lastName, companyName string) (*domain.Profile, error) {
	profile, err := s.RefreshProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile.FirstName = firstName
	profile.LastName = lastName
	profile.CompanyName = companyName

	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// SetAvatar records the uploaded avatar URL on the profile.
func (s *SessionService) SetAvatar(ctx context.Context, userID, url string) (*domain.Profile, error) {
	profile, err := s.RefreshProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile.AvatarURL = url
	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// ChangePassword changes a profile's password
func (s *SessionService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return fmt.Errorf("%w: new password must be at least 8 characters", domain.ErrValidation)
	}

	profile, err := s.RefreshProfile(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(oldPassword)); err != nil {
		return domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash new password", slog.String("error", err.Error()))
		return errors.New("failed to change password")
	}

	profile.PasswordHash = string(hash)
	if err := s.profiles.Update(ctx, profile); err != nil {
		return err
	}

	s.logger.Info("profile changed password", slog.String("user_id", userID))
	return nil
}

// ResetPassword acknowledges a reset request. Delivery belongs to an
// external identity provider; the response is identical whether or not the
// email exists.
func (s *SessionService) ResetPassword(ctx context.Context, email string) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := s.profiles.GetByEmail(ctx, email); err != nil {
		s.logger.Info("password reset requested for unknown email", slog.String("email", email))
		return
	}
	s.logger.Info("password reset requested", slog.String("email", email))
}

func (s *SessionService) issue(profile *domain.Profile) (*SessionResult, error) {
	token, err := s.tokens.GenerateToken(profile)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, errors.New("failed to issue session")
	}

	return &SessionResult{
		Profile:   profile,
		Token:     token,
		ExpiresIn: int(s.tokens.TTL().Seconds()),
		TokenType: "Bearer",
	}, nil
}
