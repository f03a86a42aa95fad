package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserQuota(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	quota, err := NewUserQuota(userID, QuotaTierFree, 30)

	require.NoError(t, err)
	assert.Equal(t, userID, quota.UserID)
	assert.Equal(t, 30, quota.CreditsRemaining)
	assert.Zero(t, quota.ImagesGeneratedToday)

	_, err = NewUserQuota(uuid.Nil, QuotaTierFree, 30)
	assert.ErrorIs(t, err, ErrQuotaUserIDEmpty)

	_, err = NewUserQuota(uuid.New(), QuotaTier("gold"), 30)
	assert.ErrorIs(t, err, ErrInvalidQuotaTier)

	_, err = NewUserQuota(uuid.New(), QuotaTierFree, -1)
	assert.ErrorIs(t, err, ErrQuotaNegativeCredits)
}

func TestDebit(t *testing.T) {
	t.Parallel()

	quota, err := NewUserQuota(uuid.New(), QuotaTierFree, 10)
	require.NoError(t, err)

	require.NoError(t, quota.Debit(4))
	assert.Equal(t, 6, quota.CreditsRemaining)

	// Debit beyond the balance must fail without touching the balance.
	err = quota.Debit(7)
	assert.ErrorIs(t, err, ErrInsufficientCredits)
	assert.Equal(t, 6, quota.CreditsRemaining)

	// Draining to exactly zero is allowed.
	require.NoError(t, quota.Debit(6))
	assert.Zero(t, quota.CreditsRemaining)

	err = quota.Debit(1)
	assert.ErrorIs(t, err, ErrInsufficientCredits)

	err = quota.Debit(-1)
	assert.ErrorIs(t, err, ErrQuotaNegativeCredits)
}

func TestRefund(t *testing.T) {
	t.Parallel()

	quota, err := NewUserQuota(uuid.New(), QuotaTierPlus, 5)
	require.NoError(t, err)

	quota.Refund(3)
	assert.Equal(t, 8, quota.CreditsRemaining)

	// Zero and negative refunds are no-ops.
	quota.Refund(0)
	quota.Refund(-2)
	assert.Equal(t, 8, quota.CreditsRemaining)
}

func TestRecordImagesDailyRollover(t *testing.T) {
	t.Parallel()

	quota, err := NewUserQuota(uuid.New(), QuotaTierFree, 30)
	require.NoError(t, err)

	day1 := quota.DayStartedAt

	quota.RecordImages(4, day1.Add(time.Hour))
	assert.Equal(t, 4, quota.ImagesGeneratedToday)

	quota.RecordImages(2, day1.Add(2*time.Hour))
	assert.Equal(t, 6, quota.ImagesGeneratedToday)

	// A full day later the counter resets before recording.
	quota.RecordImages(3, day1.Add(25*time.Hour))
	assert.Equal(t, 3, quota.ImagesGeneratedToday)
	assert.Equal(t, day1.Add(25*time.Hour), quota.DayStartedAt)
}

func TestRemainingToday(t *testing.T) {
	t.Parallel()

	quota, err := NewUserQuota(uuid.New(), QuotaTierFree, 30)
	require.NoError(t, err)

	limits := TierLimits{MonthlyCredits: 30, MaxImagesPerDay: 10}
	now := quota.DayStartedAt.Add(time.Hour)

	assert.Equal(t, 10, quota.RemainingToday(limits, now))

	quota.RecordImages(7, now)
	assert.Equal(t, 3, quota.RemainingToday(limits, now))

	quota.RecordImages(3, now)
	assert.Zero(t, quota.RemainingToday(limits, now))

	// The stale counter is ignored once the day rolls over.
	assert.Equal(t, 10, quota.RemainingToday(limits, now.Add(24*time.Hour)))

	// A zero cap means unlimited.
	unlimited := TierLimits{MonthlyCredits: 500, MaxImagesPerDay: 0}
	assert.Greater(t, quota.RemainingToday(unlimited, now), 1_000_000)
}
