package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/atelier-api/internal/domain"
	"github.com/phrazzld/atelier-api/internal/platform/logger"
	"github.com/phrazzld/atelier-api/internal/store"
)

// QuotaStore implements store.QuotaStore using PostgreSQL. Update is a single
// upsert; the quota ledger provides the per-user serialization above this.
type QuotaStore struct {
	db store.DBTX
}

// NewQuotaStore creates a new QuotaStore.
func NewQuotaStore(db store.DBTX) *QuotaStore {
	return &QuotaStore{db: db}
}

// WithTx returns a QuotaStore bound to the given transaction.
func (s *QuotaStore) WithTx(tx *sql.Tx) store.QuotaStore {
	return &QuotaStore{db: tx}
}

// GetByUserID retrieves the quota for a user.
func (s *QuotaStore) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.UserQuota, error) {
	query := `
		SELECT user_id, tier, credits_remaining, images_generated_today,
		       day_started_at, updated_at
		FROM user_quotas
		WHERE user_id = $1
	`

	var quota domain.UserQuota
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&quota.UserID,
		&quota.Tier,
		&quota.CreditsRemaining,
		&quota.ImagesGeneratedToday,
		&quota.DayStartedAt,
		&quota.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrQuotaNotFound
		}
		return nil, store.NewStoreError("quota", "get", "database error", err)
	}

	return &quota, nil
}

// Update upserts the user's quota atomically.
func (s *QuotaStore) Update(ctx context.Context, quota *domain.UserQuota) error {
	log := logger.FromContext(ctx)

	if err := quota.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO user_quotas
			(user_id, tier, credits_remaining, images_generated_today,
			 day_started_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			tier = EXCLUDED.tier,
			credits_remaining = EXCLUDED.credits_remaining,
			images_generated_today = EXCLUDED.images_generated_today,
			day_started_at = EXCLUDED.day_started_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		quota.UserID,
		quota.Tier,
		quota.CreditsRemaining,
		quota.ImagesGeneratedToday,
		quota.DayStartedAt,
		quota.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to update quota", "user_id", quota.UserID, "error", err)
		return store.NewStoreError("quota", "update", "database error", err)
	}

	return nil
}
