package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/atelier-api/internal/batch"
	"github.com/phrazzld/atelier-api/internal/service/artifact"
)

// Dependency validation errors.
var (
	ErrNilImageService  = errors.New("image service cannot be nil")
	ErrNilLogger        = errors.New("logger cannot be nil")
	ErrEmptyArtifactID  = errors.New("artifact ID cannot be empty")
	ErrEmptyOwnerUserID = errors.New("owner user ID cannot be empty")
)

// ImageService is the slice of the artifact service the task needs.
type ImageService interface {
	GenerateImages(
		ctx context.Context,
		artifactID uuid.UUID,
		userID uuid.UUID,
		opts artifact.GenerateOptions,
	) (*batch.Result, error)
}

// imageGenerationPayload is the serialized data stored with the task.
type imageGenerationPayload struct {
	ArtifactID  uuid.UUID `json:"artifact_id"`
	UserID      uuid.UUID `json:"user_id"`
	IncludeMain bool      `json:"include_main"`
	StageLimit  int       `json:"stage_limit,omitempty"`
}

// ImageGenerationTask runs one artifact's image-generation batch in the
// background.
type ImageGenerationTask struct {
	id      uuid.UUID
	payload imageGenerationPayload
	images  ImageService
	logger  *slog.Logger
	status  TaskStatus
}

// NewImageGenerationTask creates a background generation task for the
// artifact.
func NewImageGenerationTask(
	artifactID uuid.UUID,
	userID uuid.UUID,
	includeMain bool,
	stageLimit int,
	images ImageService,
	logger *slog.Logger,
) (*ImageGenerationTask, error) {
	if images == nil {
		return nil, ErrNilImageService
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if artifactID == uuid.Nil {
		return nil, ErrEmptyArtifactID
	}
	if userID == uuid.Nil {
		return nil, ErrEmptyOwnerUserID
	}

	return &ImageGenerationTask{
		id: uuid.New(),
		payload: imageGenerationPayload{
			ArtifactID:  artifactID,
			UserID:      userID,
			IncludeMain: includeMain,
			StageLimit:  stageLimit,
		},
		images: images,
		logger: logger.With(
			"task_type", TaskTypeImageGeneration,
			"artifact_id", artifactID,
		),
		status: TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier.
func (t *ImageGenerationTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier.
func (t *ImageGenerationTask) Type() string {
	return TaskTypeImageGeneration
}

// Payload returns the task data as a byte slice.
func (t *ImageGenerationTask) Payload() []byte {
	data, err := json.Marshal(t.payload)
	if err != nil {
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}
	return data
}

// Status returns the current task status.
func (t *ImageGenerationTask) Status() TaskStatus {
	return t.status
}

// Execute runs the image-generation batch for the artifact. Partial batch
// failures are not task failures: the batch result already accounts for
// them and the materialized artifact preserves previous good state. Only
// quota rejection, lookup failures and persistence failures fail the task.
func (t *ImageGenerationTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	t.logger.Info("starting image generation task")

	if err := ctx.Err(); err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("task cancelled: %w", err)
	}

	result, err := t.images.GenerateImages(ctx, t.payload.ArtifactID, t.payload.UserID,
		artifact.GenerateOptions{
			IncludeMain: t.payload.IncludeMain,
			StageLimit:  t.payload.StageLimit,
		})
	if err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("image generation failed", "error", err)
		return fmt.Errorf("failed to generate images: %w", err)
	}

	t.status = TaskStatusCompleted
	t.logger.Info("image generation task finished",
		"success_count", result.SuccessCount,
		"failure_count", result.FailureCount,
		"credits_used", result.TotalCreditsUsed)

	return nil
}
