package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Quota-specific validation errors
var (
	// ErrQuotaUserIDEmpty is returned when a quota's user ID is empty or nil.
	ErrQuotaUserIDEmpty = errors.New("quota user ID cannot be empty")

	// ErrQuotaNegativeCredits is returned when a quota would hold a negative balance.
	ErrQuotaNegativeCredits = errors.New("credits remaining cannot be negative")

	// ErrInsufficientCredits is returned when a debit exceeds the remaining balance.
	ErrInsufficientCredits = errors.New("insufficient credits")
)

// QuotaTier identifies a user's subscription level. Tier-specific limits
// (credits, daily image cap, on-demand access) are configured per tier.
type QuotaTier string

// Recognized quota tiers.
const (
	QuotaTierFree QuotaTier = "free"
	QuotaTierPlus QuotaTier = "plus"
	QuotaTierPro  QuotaTier = "pro"
)

// Validate checks that the tier is one of the recognized values.
func (t QuotaTier) Validate() error {
	switch t {
	case QuotaTierFree, QuotaTierPlus, QuotaTierPro:
		return nil
	}
	return ErrInvalidQuotaTier
}

// TierLimits holds the per-tier generation limits.
type TierLimits struct {
	// MonthlyCredits is the credit allowance granted at each refill.
	MonthlyCredits int

	// MaxImagesPerDay caps how many images a user may generate per day.
	// Zero means unlimited.
	MaxImagesPerDay int

	// OnDemandAllowed controls whether the user may trigger ad-hoc
	// regeneration outside of artifact creation.
	OnDemandAllowed bool
}

// UserQuota tracks a single user's image-generation allowance. The balance is
// only ever mutated through the quota ledger, which serializes access per
// user; UserQuota itself carries no synchronization.
type UserQuota struct {
	UserID               uuid.UUID `json:"user_id"`
	Tier                 QuotaTier `json:"tier"`
	CreditsRemaining     int       `json:"credits_remaining"`
	ImagesGeneratedToday int       `json:"images_generated_today"`
	DayStartedAt         time.Time `json:"day_started_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// NewUserQuota creates a quota for a user with the given tier and starting
// balance. Returns an error if validation fails.
func NewUserQuota(userID uuid.UUID, tier QuotaTier, credits int) (*UserQuota, error) {
	now := time.Now().UTC()
	quota := &UserQuota{
		UserID:           userID,
		Tier:             tier,
		CreditsRemaining: credits,
		DayStartedAt:     now,
		UpdatedAt:        now,
	}

	if err := quota.Validate(); err != nil {
		return nil, err
	}

	return quota, nil
}

// Validate checks if the UserQuota has valid data.
func (q *UserQuota) Validate() error {
	if q.UserID == uuid.Nil {
		return ErrQuotaUserIDEmpty
	}

	if err := q.Tier.Validate(); err != nil {
		return err
	}

	if q.CreditsRemaining < 0 {
		return ErrQuotaNegativeCredits
	}

	return nil
}

// Debit removes count credits from the balance. It fails without side effects
// when the balance is insufficient, which keeps the never-negative invariant
// inside the mutation rather than as a clamp applied after the fact.
func (q *UserQuota) Debit(count int) error {
	if count < 0 {
		return ErrQuotaNegativeCredits
	}

	if q.CreditsRemaining < count {
		return ErrInsufficientCredits
	}

	q.CreditsRemaining -= count
	q.UpdatedAt = time.Now().UTC()
	return nil
}

// Refund returns count credits to the balance.
func (q *UserQuota) Refund(count int) {
	if count <= 0 {
		return
	}

	q.CreditsRemaining += count
	q.UpdatedAt = time.Now().UTC()
}

// RecordImages adds to the daily generated-image counter, resetting it first
// when the counter's day has rolled over.
func (q *UserQuota) RecordImages(count int, now time.Time) {
	if now.Sub(q.DayStartedAt) >= 24*time.Hour {
		q.ImagesGeneratedToday = 0
		q.DayStartedAt = now
	}

	q.ImagesGeneratedToday += count
	q.UpdatedAt = now
}

// RemainingToday reports how many more images the user may generate today
// under the given limits. A zero MaxImagesPerDay means unlimited.
func (q *UserQuota) RemainingToday(limits TierLimits, now time.Time) int {
	if limits.MaxImagesPerDay == 0 {
		return int(^uint(0) >> 1)
	}

	generated := q.ImagesGeneratedToday
	if now.Sub(q.DayStartedAt) >= 24*time.Hour {
		generated = 0
	}

	remaining := limits.MaxImagesPerDay - generated
	if remaining < 0 {
		return 0
	}
	return remaining
}
