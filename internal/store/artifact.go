package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/atelier-api/internal/domain"
)

// ArtifactStore defines the interface for artifact persistence.
//
// Save is an atomic upsert of the full content model: callers that merge a
// batch result into an artifact must never expose a half-updated artifact,
// so implementations persist the whole row in a single statement (or within
// a caller-managed transaction via WithTx).
type ArtifactStore interface {
	// Save upserts the artifact, replacing any previously stored version
	// atomically. Returns validation errors if the artifact is invalid.
	Save(ctx context.Context, artifact *domain.Artifact) error

	// GetByID retrieves an artifact by its unique ID.
	// Returns ErrArtifactNotFound if the artifact does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Artifact, error)

	// Delete removes an artifact from the store by its ID.
	// Returns ErrArtifactNotFound if the artifact does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new ArtifactStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller,
	// typically through RunInTransaction.
	WithTx(tx *sql.Tx) ArtifactStore
}
