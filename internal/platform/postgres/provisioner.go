package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/phrazzld/atelier-api/internal/domain"
	"github.com/phrazzld/atelier-api/internal/store"
)

// AccountProvisioner creates a user row and their starting quota row in one
// transaction. A failed quota insert must not leave behind a user who can
// log in but has no allowance.
type AccountProvisioner struct {
	db     *sql.DB
	users  *UserStore
	quotas *QuotaStore
}

// NewAccountProvisioner creates an AccountProvisioner over the given stores.
func NewAccountProvisioner(db *sql.DB, users *UserStore, quotas *QuotaStore) *AccountProvisioner {
	return &AccountProvisioner{
		db:     db,
		users:  users,
		quotas: quotas,
	}
}

// Provision persists the user and their quota atomically. Returns
// store.ErrDuplicate if the email is already taken.
func (p *AccountProvisioner) Provision(
	ctx context.Context,
	user *domain.User,
	quota *domain.UserQuota,
) error {
	return store.RunInTransaction(ctx, p.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := p.users.WithTx(tx).Create(ctx, user); err != nil {
			return err
		}
		if err := p.quotas.WithTx(tx).Update(ctx, quota); err != nil {
			return fmt.Errorf("failed to provision quota: %w", err)
		}
		return nil
	})
}
