package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/Tiisu/eco-action-hub/internal/domain"
	"github.com/Tiisu/eco-action-hub/internal/security/middleware"
	"github.com/Tiisu/eco-action-hub/internal/security/ratelimit"
	"github.com/Tiisu/eco-action-hub/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	sessions   *service.SessionService
	limiter    *ratelimit.Limiter
	loginLimit int
	logger     *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(sessions *service.SessionService, limiter *ratelimit.Limiter, loginLimit int, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if loginLimit <= 0 {
		loginLimit = 10
	}

	return &AuthHandler{
		sessions:   sessions,
		limiter:    limiter,
		loginLimit: loginLimit,
		logger:     logger,
	}
}

// RegisterRequest represents registration request
type RegisterRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	Role          string `json:"role"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	CompanyName   string `json:"companyName"`
	LicenseNumber string `json:"licenseNumber"`
}

// LoginRequest represents login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is returned on register and login.
type SessionResponse struct {
	Profile   ProfileResponse `json:"profile"`
	Token     string          `json:"token"`
	ExpiresIn int             `json:"expiresIn"`
	TokenType string          `json:"tokenType"`
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode register request", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	role := domain.Role(req.Role)
	if req.Role == "" {
		role = domain.RoleUser
	}

	result, err := h.sessions.SignUp(r.Context(), service.SignUpInput{
		Email:         req.Email,
		Password:      req.Password,
		Role:          role,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		CompanyName:   req.CompanyName,
		LicenseNumber: req.LicenseNumber,
	})
	if err != nil {
		h.logger.Info("registration failed",
			slog.String("email", req.Email),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, SessionResponse{
		Profile:   toProfileResponse(result.Profile),
		Token:     result.Token,
		ExpiresIn: result.ExpiresIn,
		TokenType: result.TokenType,
	})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode login request", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	// Strict per-email limit on credential guessing.
	if h.limiter != nil && !h.limiter.AllowStrict("login:"+req.Email, h.loginLimit, time.Minute) {
		writeError(w, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	result, err := h.sessions.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SessionResponse{
		Profile:   toProfileResponse(result.Profile),
		Token:     result.Token,
		ExpiresIn: result.ExpiresIn,
		TokenType: result.TokenType,
	})
}

// Me handles GET /api/auth/me, the profile refresh read.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	profile, err := h.sessions.RefreshProfile(r.Context(), claims.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

// ResetPasswordRequest represents a reset request
type ResetPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPassword handles POST /api/auth/reset-password. The response never
// reveals whether the email is registered.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	if h.limiter != nil && !h.limiter.AllowStrict("reset:"+req.Email, 3, time.Minute) {
		writeError(w, http.StatusTooManyRequests, "too many reset attempts")
		return
	}

	h.sessions.ResetPassword(r.Context(), req.Email)
	writeJSON(w, http.StatusOK, map[string]string{"message": "if the email exists, a reset link has been sent"})
}

// ChangePasswordRequest represents change password request
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// ChangePassword handles POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "oldPassword and newPassword are required")
		return
	}

	if err := h.sessions.ChangePassword(r.Context(), claims.UserID, req.OldPassword, req.NewPassword); err != nil {
		writeDomainError(w, err)
		return
	}

	h.logger.Info("profile changed password", slog.String("user_id", claims.UserID))
	writeJSON(w, http.StatusOK, map[string]string{"message": "password changed successfully"})
}
