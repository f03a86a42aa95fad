package api

import (
	"net/http"
	"time"

	"github.com/phrazzld/atelier-api/internal/api/shared"
	"github.com/phrazzld/atelier-api/internal/domain"
	"github.com/phrazzld/atelier-api/internal/store"
)

// QuotaHandler handles quota lookup requests.
type QuotaHandler struct {
	quotas store.QuotaStore
	limits map[domain.QuotaTier]domain.TierLimits
}

// NewQuotaHandler creates a new QuotaHandler.
func NewQuotaHandler(
	quotas store.QuotaStore,
	limits map[domain.QuotaTier]domain.TierLimits,
) *QuotaHandler {
	return &QuotaHandler{
		quotas: quotas,
		limits: limits,
	}
}

// GetQuota handles GET /api/quota. It reports the authenticated user's
// remaining credits and daily allowance.
func (h *QuotaHandler) GetQuota(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	quota, err := h.quotas.GetByUserID(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	limits := h.limits[quota.Tier]

	shared.RespondWithJSON(w, r, http.StatusOK, QuotaResponse{
		Tier:                 string(quota.Tier),
		CreditsRemaining:     quota.CreditsRemaining,
		ImagesGeneratedToday: quota.ImagesGeneratedToday,
		ImagesRemainingToday: quota.RemainingToday(limits, time.Now().UTC()),
		OnDemandAllowed:      limits.OnDemandAllowed,
		UpdatedAt:            quota.UpdatedAt,
	})
}
