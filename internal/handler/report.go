package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Tiisu/eco-action-hub/internal/domain"
	"github.com/Tiisu/eco-action-hub/internal/security/middleware"
	"github.com/Tiisu/eco-action-hub/internal/service"
)

// ReportHandler handles waste report endpoints
type ReportHandler struct {
	reports *service.ReportService
	logger  *slog.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(reports *service.ReportService, logger *slog.Logger) *ReportHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &ReportHandler{
		reports: reports,
		logger:  logger,
	}
}

// SubmitReportRequest represents a report submission
type SubmitReportRequest struct {
	Category string  `json:"category"`
	WeightKg float64 `json:"weightKg"`
	Location string  `json:"location"`
	ImageURL string  `json:"imageUrl"`
}

// Submit handles POST /api/reports
func (h *ReportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SubmitReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	report, err := h.reports.Submit(r.Context(), claims.UserID, req.Category, req.WeightKg, req.Location, req.ImageURL)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toReportResponse(report))
}

// ListOwn handles GET /api/reports, the caller's own submissions.
func (h *ReportHandler) ListOwn(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	reports, err := h.reports.ListByUser(r.Context(), claims.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"reports": toReportResponses(reports)})
}

// ListPending handles GET /api/reports/pending, the agent work queue.
func (h *ReportHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	reports, err := h.reports.ListPending(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"reports": toReportResponses(reports)})
}

// ListAll handles GET /api/admin/reports
func (h *ReportHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	reports, err := h.reports.ListAll(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"reports": toReportResponses(reports)})
}

// DecideRequest represents an agent decision
type DecideRequest struct {
	Decision string `json:"decision"` // approved | rejected
}

// Decide handles POST /api/reports/{id}/decision
func (h *ReportHandler) Decide(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	reportID := r.PathValue("id")
	if reportID == "" {
		writeError(w, http.StatusBadRequest, "missing report id")
		return
	}

	var req DecideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	report, err := h.reports.Decide(r.Context(), reportID, domain.ReportStatus(req.Decision), claims.UserID)
	if err != nil {
		h.logger.Info("report decision failed",
			slog.String("report_id", reportID),
			slog.String("agent_id", claims.UserID),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toReportResponse(report))
}
