package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/Tiisu/eco-action-hub/internal/domain"
	"github.com/Tiisu/eco-action-hub/internal/security/middleware"
	"github.com/Tiisu/eco-action-hub/internal/service"
)

// RewardHandler handles reward catalog and redemption endpoints
type RewardHandler struct {
	rewards *service.RewardService
	logger  *slog.Logger
}

// NewRewardHandler creates a new reward handler
func NewRewardHandler(rewards *service.RewardService, logger *slog.Logger) *RewardHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &RewardHandler{
		rewards: rewards,
		logger:  logger,
	}
}

// ListAvailable handles GET /api/rewards: public catalog, in stock,
// cheapest first.
func (h *RewardHandler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.rewards.ListAvailable(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"rewards": toRewardResponses(rewards)})
}

// Redeem handles POST /api/rewards/{id}/redeem
func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	rewardID := r.PathValue("id")
	if rewardID == "" {
		writeError(w, http.StatusBadRequest, "missing reward id")
		return
	}

	redemption, err := h.rewards.Redeem(r.Context(), claims.UserID, rewardID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":          redemption.ID,
		"rewardId":    redemption.RewardID,
		"rewardName":  redemption.RewardName,
		"pointsSpent": redemption.PointsSpent,
		"createdAt":   redemption.CreatedAt.Format(time.RFC3339),
	})
}

// History handles GET /api/redemptions
func (h *RewardHandler) History(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	redemptions, err := h.rewards.History(r.Context(), claims.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	type item struct {
		ID          string `json:"id"`
		RewardID    string `json:"rewardId"`
		RewardName  string `json:"rewardName"`
		PointsSpent int    `json:"pointsSpent"`
		CreatedAt   string `json:"createdAt"`
	}
	out := make([]item, 0, len(redemptions))
	for _, red := range redemptions {
		out = append(out, item{
			ID:          red.ID,
			RewardID:    red.RewardID,
			RewardName:  red.RewardName,
			PointsSpent: red.PointsSpent,
			CreatedAt:   red.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"redemptions": out})
}

// RewardRequest represents an admin catalog mutation
type RewardRequest struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	Category       string `json:"category"`
	PointsRequired int    `json:"pointsRequired"`
	Quantity       int    `json:"quantity"`
	ImageURL       string `json:"imageUrl"`
}

// ListAll handles GET /api/admin/rewards
func (h *RewardHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.rewards.ListAll(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"rewards": toRewardResponses(rewards)})
}

// Create handles POST /api/admin/rewards
func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req RewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	reward := &domain.Reward{
		Name:           req.Name,
		Description:    req.Description,
		Category:       req.Category,
		PointsRequired: req.PointsRequired,
		Quantity:       req.Quantity,
		ImageURL:       req.ImageURL,
	}
	if err := h.rewards.CreateReward(r.Context(), reward); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toRewardResponse(reward))
}

// Update handles PUT /api/admin/rewards/{id}
func (h *RewardHandler) Update(w http.ResponseWriter, r *http.Request) {
	rewardID := r.PathValue("id")
	if rewardID == "" {
		writeError(w, http.StatusBadRequest, "missing reward id")
		return
	}

	var req RewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	reward := &domain.Reward{
		ID:             rewardID,
		Name:           req.Name,
		Description:    req.Description,
		Category:       req.Category,
		PointsRequired: req.PointsRequired,
		Quantity:       req.Quantity,
		ImageURL:       req.ImageURL,
	}
	if err := h.rewards.UpdateReward(r.Context(), reward); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRewardResponse(reward))
}

// Delete handles DELETE /api/admin/rewards/{id}
func (h *RewardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	rewardID := r.PathValue("id")
	if rewardID == "" {
		writeError(w, http.StatusBadRequest, "missing reward id")
		return
	}

	if err := h.rewards.DeleteReward(r.Context(), rewardID); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
