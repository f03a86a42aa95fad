package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/atelier-api/internal/domain"
)

// QuotaStore defines the interface for user quota persistence.
//
// The store itself provides only atomic upsert semantics; serializing
// concurrent balance mutations for one user is the quota ledger's job, and
// callers must never read-then-write a balance outside the ledger.
type QuotaStore interface {
	// GetByUserID retrieves the quota for a user.
	// Returns ErrQuotaNotFound if no quota row exists for the user.
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.UserQuota, error)

	// Update upserts the user's quota atomically.
	// Returns validation errors if the quota is invalid.
	Update(ctx context.Context, quota *domain.UserQuota) error

	// WithTx returns a new QuotaStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) QuotaStore
}
