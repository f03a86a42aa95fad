package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/atelier-api/internal/events"
)

// TaskSubmitter accepts tasks for background execution.
type TaskSubmitter interface {
	Submit(ctx context.Context, task Task) error
}

// TaskFactoryEventHandler implements the events.EventHandler interface.
// It turns image-generation request events into tasks and submits them
// to the runner.
type TaskFactoryEventHandler struct {
	factory *ImageGenerationTaskFactory
	runner  TaskSubmitter
	logger  *slog.Logger
}

// NewTaskFactoryEventHandler creates an event handler that uses the given
// task factory to create tasks and submits them to the provided runner.
func NewTaskFactoryEventHandler(
	factory *ImageGenerationTaskFactory,
	runner TaskSubmitter,
	logger *slog.Logger,
) *TaskFactoryEventHandler {
	return &TaskFactoryEventHandler{
		factory: factory,
		runner:  runner,
		logger:  logger.With("component", "task_factory_event_handler"),
	}
}

// HandleEvent processes image-generation request events by creating and
// submitting a task. Events of other types are ignored.
func (h *TaskFactoryEventHandler) HandleEvent(
	ctx context.Context,
	event *events.TaskRequestEvent,
) error {
	if event.Type != TaskTypeImageGeneration {
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	var payload struct {
		ArtifactID  string `json:"artifact_id"`
		UserID      string `json:"user_id"`
		IncludeMain bool   `json:"include_main"`
		StageLimit  int    `json:"stage_limit"`
	}
	if err := event.UnmarshalPayload(&payload); err != nil {
		h.logger.Error("failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	artifactID, err := uuid.Parse(payload.ArtifactID)
	if err != nil {
		h.logger.Error("invalid artifact ID",
			"error", err,
			"artifact_id", payload.ArtifactID,
			"event_id", event.ID)
		return fmt.Errorf("invalid artifact ID: %w", err)
	}

	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		h.logger.Error("invalid user ID",
			"error", err,
			"user_id", payload.UserID,
			"event_id", event.ID)
		return fmt.Errorf("invalid user ID: %w", err)
	}

	t, err := h.factory.CreateTask(artifactID, userID, payload.IncludeMain, payload.StageLimit)
	if err != nil {
		h.logger.Error("failed to create task",
			"error", err,
			"artifact_id", artifactID,
			"event_id", event.ID)
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.runner.Submit(ctx, t); err != nil {
		h.logger.Error("failed to submit task",
			"error", err,
			"task_id", t.ID(),
			"artifact_id", artifactID,
			"event_id", event.ID)
		return fmt.Errorf("failed to submit task: %w", err)
	}

	h.logger.Info("task created and submitted",
		"task_id", t.ID(),
		"artifact_id", artifactID,
		"event_id", event.ID)
	return nil
}

// Ensure TaskFactoryEventHandler implements events.EventHandler
var _ events.EventHandler = (*TaskFactoryEventHandler)(nil)
