package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Tiisu/eco-action-hub/internal/security/audit"
	"github.com/Tiisu/eco-action-hub/internal/security/middleware"
	"github.com/Tiisu/eco-action-hub/internal/service"
)

// SettingsHandler handles admin system settings
type SettingsHandler struct {
	settings *service.SettingService
	audit    *audit.Logger
	logger   *slog.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settings *service.SettingService, auditLog *audit.Logger, logger *slog.Logger) *SettingsHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &SettingsHandler{
		settings: settings,
		audit:    auditLog,
		logger:   logger,
	}
}

// List handles GET /api/admin/settings
func (h *SettingsHandler) List(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make(map[string]string, len(settings))
	for _, s := range settings {
		out[s.Key] = s.Value
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"settings": out})
}

// UpdateSettingRequest represents a setting change
type UpdateSettingRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Update handles PUT /api/admin/settings
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UpdateSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		writeError(w, http.StatusBadRequest, "key and value are required")
		return
	}

	if err := h.settings.Update(r.Context(), req.Key, req.Value); err != nil {
		writeDomainError(w, err)
		return
	}

	h.audit.LogSettingChange(r.Context(), claims.UserID, req.Key, req.Value)
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
