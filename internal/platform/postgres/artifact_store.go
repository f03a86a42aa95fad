package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/atelier-api/internal/domain"
	"github.com/phrazzld/atelier-api/internal/platform/logger"
	"github.com/phrazzld/atelier-api/internal/store"
)

// ArtifactStore implements store.ArtifactStore using PostgreSQL. The image
// collections and metadata are stored as JSONB columns, and Save is a single
// upsert statement, so readers never observe a half-updated artifact.
type ArtifactStore struct {
	db store.DBTX
}

// NewArtifactStore creates a new ArtifactStore.
func NewArtifactStore(db store.DBTX) *ArtifactStore {
	return &ArtifactStore{db: db}
}

// WithTx returns an ArtifactStore bound to the given transaction.
func (s *ArtifactStore) WithTx(tx *sql.Tx) store.ArtifactStore {
	return &ArtifactStore{db: tx}
}

// Save upserts the artifact atomically.
func (s *ArtifactStore) Save(ctx context.Context, artifact *domain.Artifact) error {
	log := logger.FromContext(ctx)

	if err := artifact.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	steps, err := json.Marshal(artifact.Steps)
	if err != nil {
		return fmt.Errorf("failed to marshal steps: %w", err)
	}

	mainImage, err := marshalNullable(artifact.MainImage)
	if err != nil {
		return fmt.Errorf("failed to marshal main image: %w", err)
	}

	stageImages, err := marshalNullable(artifact.StageImages)
	if err != nil {
		return fmt.Errorf("failed to marshal stage images: %w", err)
	}

	generation, err := marshalNullable(artifact.Generation)
	if err != nil {
		return fmt.Errorf("failed to marshal generation metadata: %w", err)
	}

	query := `
		INSERT INTO artifacts
			(id, user_id, title, content_domain, style_hint, steps,
			 main_image, stage_images, generation, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			content_domain = EXCLUDED.content_domain,
			style_hint = EXCLUDED.style_hint,
			steps = EXCLUDED.steps,
			main_image = EXCLUDED.main_image,
			stage_images = EXCLUDED.stage_images,
			generation = EXCLUDED.generation,
			updated_at = EXCLUDED.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		artifact.ID,
		artifact.UserID,
		artifact.Title,
		artifact.ContentDomain,
		artifact.StyleHint,
		steps,
		mainImage,
		stageImages,
		generation,
		artifact.CreatedAt,
		artifact.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to save artifact", "artifact_id", artifact.ID, "error", err)
		return store.NewStoreError("artifact", "save", "database error", err)
	}

	return nil
}

// GetByID retrieves an artifact by its ID.
func (s *ArtifactStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Artifact, error) {
	query := `
		SELECT id, user_id, title, content_domain, style_hint, steps,
		       main_image, stage_images, generation, created_at, updated_at
		FROM artifacts
		WHERE id = $1
	`

	var (
		artifact    domain.Artifact
		steps       []byte
		mainImage   sql.Null[[]byte]
		stageImages sql.Null[[]byte]
		generation  sql.Null[[]byte]
	)

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&artifact.ID,
		&artifact.UserID,
		&artifact.Title,
		&artifact.ContentDomain,
		&artifact.StyleHint,
		&steps,
		&mainImage,
		&stageImages,
		&generation,
		&artifact.CreatedAt,
		&artifact.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrArtifactNotFound
		}
		return nil, store.NewStoreError("artifact", "get", "database error", err)
	}

	if err := json.Unmarshal(steps, &artifact.Steps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
	}
	if err := unmarshalNullable(mainImage, &artifact.MainImage); err != nil {
		return nil, fmt.Errorf("failed to unmarshal main image: %w", err)
	}
	if err := unmarshalNullable(stageImages, &artifact.StageImages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stage images: %w", err)
	}
	if err := unmarshalNullable(generation, &artifact.Generation); err != nil {
		return nil, fmt.Errorf("failed to unmarshal generation metadata: %w", err)
	}

	return &artifact, nil
}

// Delete removes an artifact by its ID.
func (s *ArtifactStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM artifacts WHERE id = $1`, id)
	if err != nil {
		return store.NewStoreError("artifact", "delete", "database error", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return store.NewStoreError("artifact", "delete", "rows affected", err)
	}
	if affected == 0 {
		return store.ErrArtifactNotFound
	}

	return nil
}

// marshalNullable marshals v to JSON, mapping nil pointers and empty slices
// to SQL NULL.
func marshalNullable(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return nil, nil
	}
	return data, nil
}

// unmarshalNullable unmarshals a nullable JSONB column into dst, leaving dst
// untouched for NULL.
func unmarshalNullable(col sql.Null[[]byte], dst any) error {
	if !col.Valid || len(col.V) == 0 {
		return nil
	}
	return json.Unmarshal(col.V, dst)
}
