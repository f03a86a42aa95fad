package task

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// ImageGenerationTaskFactory creates ImageGenerationTask instances bound
// to the shared image service.
type ImageGenerationTaskFactory struct {
	images ImageService
	logger *slog.Logger
}

// NewImageGenerationTaskFactory creates a new factory for ImageGenerationTasks.
func NewImageGenerationTaskFactory(
	images ImageService,
	logger *slog.Logger,
) *ImageGenerationTaskFactory {
	return &ImageGenerationTaskFactory{
		images: images,
		logger: logger.With("component", "image_generation_task_factory"),
	}
}

// CreateTask creates a new ImageGenerationTask for the specified artifact.
func (f *ImageGenerationTaskFactory) CreateTask(
	artifactID uuid.UUID,
	userID uuid.UUID,
	includeMain bool,
	stageLimit int,
) (Task, error) {
	return NewImageGenerationTask(
		artifactID,
		userID,
		includeMain,
		stageLimit,
		f.images,
		f.logger,
	)
}

// ReconstructTask rebuilds an executable task from a persisted row,
// preserving the original task ID. It is used during crash recovery when
// unfinished tasks are loaded back from the database.
func (f *ImageGenerationTaskFactory) ReconstructTask(
	taskType string,
	id uuid.UUID,
	payload []byte,
) (Task, error) {
	if taskType != TaskTypeImageGeneration {
		return nil, fmt.Errorf("unknown task type %q", taskType)
	}

	var p imageGenerationPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to decode task payload: %w", err)
	}

	t, err := NewImageGenerationTask(
		p.ArtifactID, p.UserID, p.IncludeMain, p.StageLimit, f.images, f.logger,
	)
	if err != nil {
		return nil, err
	}
	t.id = id
	return t, nil
}
