package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Tiisu/eco-action-hub/internal/domain"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeDomainError maps the shared error taxonomy onto HTTP statuses.
// Unknown errors are reported generically so internals never leak.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidStateTransition):
		writeError(w, http.StatusConflict, "invalid state transition")
	case errors.Is(err, domain.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email already registered")
	case errors.Is(err, domain.ErrInsufficientPoints):
		writeError(w, http.StatusUnprocessableEntity, "insufficient points")
	case errors.Is(err, domain.ErrOutOfStock):
		writeError(w, http.StatusUnprocessableEntity, "reward out of stock")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// ProfileResponse is the wire shape of a profile. The password hash never
// leaves the server.
type ProfileResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	Approved      bool   `json:"approved"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	CompanyName   string `json:"companyName,omitempty"`
	LicenseNumber string `json:"licenseNumber,omitempty"`
	Points        int    `json:"points"`
	AvatarURL     string `json:"avatarUrl,omitempty"`
	CreatedAt     string `json:"createdAt"`
	UpdatedAt     string `json:"updatedAt"`
}

func toProfileResponse(p *domain.Profile) ProfileResponse {
	return ProfileResponse{
		ID:            p.ID,
		Email:         p.Email,
		Role:          string(p.Role),
		Approved:      p.Approved,
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		CompanyName:   p.CompanyName,
		LicenseNumber: p.LicenseNumber,
		Points:        p.Points,
		AvatarURL:     p.AvatarURL,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     p.UpdatedAt.Format(time.RFC3339),
	}
}

// ReportResponse is the wire shape of a waste report.
type ReportResponse struct {
	ID        string  `json:"id"`
	UserID    string  `json:"userId"`
	Category  string  `json:"category"`
	WeightKg  float64 `json:"weightKg"`
	Location  string  `json:"location,omitempty"`
	ImageURL  string  `json:"imageUrl,omitempty"`
	Status    string  `json:"status"`
	AgentID   string  `json:"agentId,omitempty"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}

func toReportResponse(r *domain.WasteReport) ReportResponse {
	return ReportResponse{
		ID:        r.ID,
		UserID:    r.UserID,
		Category:  r.Category,
		WeightKg:  r.WeightKg,
		Location:  r.Location,
		ImageURL:  r.ImageURL,
		Status:    string(r.Status),
		AgentID:   r.AgentID,
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
		UpdatedAt: r.UpdatedAt.Format(time.RFC3339),
	}
}

func toReportResponses(reports []*domain.WasteReport) []ReportResponse {
	out := make([]ReportResponse, 0, len(reports))
	for _, r := range reports {
		out = append(out, toReportResponse(r))
	}
	return out
}

// RewardResponse is the wire shape of a catalog entry.
type RewardResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	Category       string `json:"category,omitempty"`
	PointsRequired int    `json:"pointsRequired"`
	Quantity       int    `json:"quantity"`
	ImageURL       string `json:"imageUrl,omitempty"`
}

func toRewardResponse(r *domain.Reward) RewardResponse {
	return RewardResponse{
		ID:             r.ID,
		Name:           r.Name,
		Description:    r.Description,
		Category:       r.Category,
		PointsRequired: r.PointsRequired,
		Quantity:       r.Quantity,
		ImageURL:       r.ImageURL,
	}
}

func toRewardResponses(rewards []*domain.Reward) []RewardResponse {
	out := make([]RewardResponse, 0, len(rewards))
	for _, r := range rewards {
		out = append(out, toRewardResponse(r))
	}
	return out
}
