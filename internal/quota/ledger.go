// Package quota implements per-user credit accounting for image generation.
//
// All balance mutations go through the Ledger's reserve/commit/release
// protocol. A reservation is a provisional hold taken before any external
// call is made; it is reconciled to the actual cost at commit, or refunded
// in full at release. Checking the balance once up front and trusting it for
// the rest of a batch is exactly the race this package exists to prevent:
// many workers draw from the same balance concurrently.
package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/atelier-api/internal/domain"
	"github.com/phrazzld/atelier-api/internal/store"
)

// Reservation is a provisional hold on a user's credits.
type Reservation struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Credits   int
	Images    int
	CreatedAt time.Time
}

// Ledger serializes all quota mutations per user. The persistent balance
// lives in the quota store; the ledger owns the locking that makes
// reserve/commit/release indivisible with respect to concurrent callers for
// the same user.
type Ledger struct {
	store  store.QuotaStore
	limits map[domain.QuotaTier]domain.TierLimits
	logger *slog.Logger

	mu           sync.Mutex
	userLocks    map[uuid.UUID]*sync.Mutex
	reservations map[uuid.UUID]*Reservation

	// pendingImages counts reserved-but-unsettled images per user. The daily
	// counter in the store only advances at commit, so without this a second
	// concurrent batch could pass the daily check on a stale count.
	pendingImages map[uuid.UUID]int
}

// NewLedger creates a Ledger over the given quota store and tier limit table.
func NewLedger(
	quotaStore store.QuotaStore,
	limits map[domain.QuotaTier]domain.TierLimits,
	logger *slog.Logger,
) *Ledger {
	return &Ledger{
		store:         quotaStore,
		limits:        limits,
		logger:        logger.With("component", "quota_ledger"),
		userLocks:     make(map[uuid.UUID]*sync.Mutex),
		reservations:  make(map[uuid.UUID]*Reservation),
		pendingImages: make(map[uuid.UUID]int),
	}
}

// userLock returns the mutex serializing balance access for one user,
// creating it on first use.
func (l *Ledger) userLock(userID uuid.UUID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		l.userLocks[userID] = lock
	}
	return lock
}

// Reserve atomically checks that the user can afford credits more credits and
// has room for imageCount more images today, and decrements the balance if so.
// On any failure nothing is charged and no reservation exists.
func (l *Ledger) Reserve(
	ctx context.Context,
	userID uuid.UUID,
	credits int,
	imageCount int,
) (*Reservation, error) {
	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	quota, err := l.store.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load quota: %w", err)
	}

	now := time.Now().UTC()
	limits := l.limits[quota.Tier]
	remaining := quota.RemainingToday(limits, now)
	if pending := l.pendingImagesFor(userID); imageCount > remaining-pending {
		return nil, ErrDailyLimitExceeded
	}

	if err := quota.Debit(credits); err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			return nil, fmt.Errorf("%w: need %d credits, %d remaining",
				ErrQuotaExceeded, credits, quota.CreditsRemaining)
		}
		return nil, err
	}

	if err := l.store.Update(ctx, quota); err != nil {
		return nil, fmt.Errorf("failed to persist reservation: %w", err)
	}

	reservation := &Reservation{
		ID:        uuid.New(),
		UserID:    userID,
		Credits:   credits,
		Images:    imageCount,
		CreatedAt: now,
	}

	l.mu.Lock()
	l.reservations[reservation.ID] = reservation
	l.pendingImages[userID] += imageCount
	l.mu.Unlock()

	l.logger.DebugContext(ctx, "credits reserved",
		"user_id", userID,
		"reservation_id", reservation.ID,
		"credits", credits)

	return reservation, nil
}

// Commit reconciles a reservation to its actual cost: the difference between
// the reserved hold and actualUsed is refunded, and imagesProduced is added
// to the user's daily counter. actualUsed above the hold is clamped to the
// hold; a reservation can never charge more than it reserved.
func (l *Ledger) Commit(ctx context.Context, reservationID uuid.UUID, actualUsed, imagesProduced int) error {
	reservation, err := l.takeReservation(reservationID)
	if err != nil {
		return err
	}

	if actualUsed > reservation.Credits {
		l.logger.WarnContext(ctx, "commit exceeds reservation, clamping",
			"reservation_id", reservationID,
			"reserved", reservation.Credits,
			"actual_used", actualUsed)
		actualUsed = reservation.Credits
	}
	if actualUsed < 0 {
		actualUsed = 0
	}

	return l.settle(ctx, reservation, reservation.Credits-actualUsed, imagesProduced)
}

// Release refunds a reservation in full without recording any usage. Used
// when a batch never executes, e.g. batch-level cancellation before dispatch.
func (l *Ledger) Release(ctx context.Context, reservationID uuid.UUID) error {
	reservation, err := l.takeReservation(reservationID)
	if err != nil {
		return err
	}

	return l.settle(ctx, reservation, reservation.Credits, 0)
}

// takeReservation removes and returns the reservation, ensuring each
// reservation is settled at most once.
func (l *Ledger) takeReservation(reservationID uuid.UUID) (*Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	reservation, ok := l.reservations[reservationID]
	if !ok {
		return nil, ErrReservationNotFound
	}
	delete(l.reservations, reservationID)

	return reservation, nil
}

// pendingImagesFor returns the user's reserved-but-unsettled image count.
func (l *Ledger) pendingImagesFor(userID uuid.UUID) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pendingImages[userID]
}

// releasePendingImages drops count reserved images for the user.
func (l *Ledger) releasePendingImages(userID uuid.UUID, count int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pendingImages[userID] -= count
	if l.pendingImages[userID] <= 0 {
		delete(l.pendingImages, userID)
	}
}

// settle applies the refund and daily-counter update under the user's lock.
// The reservation's pending image hold is released before the lock is given
// up, so a concurrent Reserve sees either the hold or the recorded count,
// never neither.
func (l *Ledger) settle(
	ctx context.Context,
	reservation *Reservation,
	refund int,
	imagesProduced int,
) error {
	lock := l.userLock(reservation.UserID)
	lock.Lock()
	defer lock.Unlock()
	defer l.releasePendingImages(reservation.UserID, reservation.Images)

	quota, err := l.store.GetByUserID(ctx, reservation.UserID)
	if err != nil {
		return fmt.Errorf("failed to load quota: %w", err)
	}

	quota.Refund(refund)
	if imagesProduced > 0 {
		quota.RecordImages(imagesProduced, time.Now().UTC())
	}

	if err := l.store.Update(ctx, quota); err != nil {
		return fmt.Errorf("failed to persist quota settlement: %w", err)
	}

	l.logger.DebugContext(ctx, "reservation settled",
		"user_id", reservation.UserID,
		"reservation_id", reservation.ID,
		"reserved", reservation.Credits,
		"refunded", refund,
		"images_recorded", imagesProduced)

	return nil
}

// AllowOnDemand reports whether the user's tier permits ad-hoc regeneration.
func (l *Ledger) AllowOnDemand(ctx context.Context, userID uuid.UUID) error {
	quota, err := l.store.GetByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load quota: %w", err)
	}

	if !l.limits[quota.Tier].OnDemandAllowed {
		return ErrOnDemandNotAllowed
	}
	return nil
}
