package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Tiisu/eco-action-hub/internal/security/middleware"
	"github.com/Tiisu/eco-action-hub/internal/service"
	"github.com/Tiisu/eco-action-hub/internal/storage"
)

// ProfileHandler handles profile self-service endpoints
type ProfileHandler struct {
	sessions *service.SessionService
	avatars  *storage.AvatarStore
	logger   *slog.Logger
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(sessions *service.SessionService, avatars *storage.AvatarStore, logger *slog.Logger) *ProfileHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &ProfileHandler{
		sessions: sessions,
		avatars:  avatars,
		logger:   logger,
	}
}

// Get handles GET /api/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
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

// UpdateProfileRequest carries self-service fields only.
type UpdateProfileRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	CompanyName string `json:"companyName"`
}

// Update handles PUT /api/profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	profile, err := h.sessions.UpdateProfile(r.Context(), claims.UserID, req.FirstName, req.LastName, req.CompanyName)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

// UploadAvatar handles POST /api/profile/avatar (multipart form, field
// "avatar"). Re-upload overwrites the previous image.
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(4 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeError(w, http.StatusBadRequest, "avatar file is required")
		return
	}
	defer file.Close()

	url, err := h.avatars.Save(claims.UserID, file, header.Header.Get("Content-Type"))
	if err != nil {
		h.logger.Warn("avatar upload rejected",
			slog.String("user_id", claims.UserID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := h.sessions.SetAvatar(r.Context(), claims.UserID, url)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}
