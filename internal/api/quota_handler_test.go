package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/atelier-api/internal/api/shared"
	"github.com/phrazzld/atelier-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quotaRequest(userID uuid.UUID) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/quota", nil)
	if userID != uuid.Nil {
		ctx := context.WithValue(req.Context(), shared.UserIDContextKey, userID)
		req = req.WithContext(ctx)
	}
	return req
}

func TestGetQuota(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	quota, err := domain.NewUserQuota(userID, domain.QuotaTierPlus, 150)
	require.NoError(t, err)
	quota.CreditsRemaining = 120
	quota.ImagesGeneratedToday = 15

	quotas := &mockQuotaStore{
		getByUserIDFn: func(ctx context.Context, id uuid.UUID) (*domain.UserQuota, error) {
			return quota, nil
		},
	}
	handler := NewQuotaHandler(quotas, testTierLimits())

	rr := httptest.NewRecorder()
	handler.GetQuota(rr, quotaRequest(userID))

	require.Equal(t, http.StatusOK, rr.Code)

	var resp QuotaResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "plus", resp.Tier)
	assert.Equal(t, 120, resp.CreditsRemaining)
	assert.Equal(t, 15, resp.ImagesGeneratedToday)
	assert.Equal(t, 25, resp.ImagesRemainingToday)
	assert.True(t, resp.OnDemandAllowed)
}

func TestGetQuotaNotFound(t *testing.T) {
	t.Parallel()

	handler := NewQuotaHandler(&mockQuotaStore{}, testTierLimits())

	rr := httptest.NewRecorder()
	handler.GetQuota(rr, quotaRequest(uuid.New()))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetQuotaUnauthenticated(t *testing.T) {
	t.Parallel()

	handler := NewQuotaHandler(&mockQuotaStore{}, testTierLimits())

	rr := httptest.NewRecorder()
	handler.GetQuota(rr, quotaRequest(uuid.Nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
