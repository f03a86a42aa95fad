package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/atelier-api/internal/platform/logger"
	"github.com/phrazzld/atelier-api/internal/store"
	"github.com/phrazzld/atelier-api/internal/task"
)

// TaskReconstructor rebuilds executable tasks from persisted rows.
// The image-generation task factory implements this.
type TaskReconstructor interface {
	ReconstructTask(taskType string, id uuid.UUID, payload []byte) (task.Task, error)
}

// TaskStore implements the task.TaskStore interface using PostgreSQL.
type TaskStore struct {
	db      store.DBTX
	rebuild TaskReconstructor
}

// NewTaskStore creates a new TaskStore. The reconstructor is used to turn
// rows loaded during recovery back into executable tasks.
func NewTaskStore(db store.DBTX, rebuild TaskReconstructor) *TaskStore {
	return &TaskStore{
		db:      db,
		rebuild: rebuild,
	}
}

// Ensure TaskStore implements task.TaskStore
var _ task.TaskStore = (*TaskStore)(nil)

// SaveTask persists a task to the database.
func (s *TaskStore) SaveTask(ctx context.Context, t task.Task) error {
	log := logger.FromContext(ctx)

	query := `
		INSERT INTO tasks (id, type, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, query,
		t.ID(),
		t.Type(),
		t.Payload(),
		t.Status(),
		now,
		now,
	)
	if err != nil {
		log.Error("failed to save task",
			"task_id", t.ID(),
			"task_type", t.Type(),
			"error", err)
		return fmt.Errorf("failed to save task to database: %w", err)
	}

	return nil
}

// UpdateTaskStatus updates the status of a task in the database.
func (s *TaskStore) UpdateTaskStatus(
	ctx context.Context,
	taskID uuid.UUID,
	status task.TaskStatus,
	errorMsg string,
) error {
	log := logger.FromContext(ctx)

	query := `
		UPDATE tasks
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := s.db.ExecContext(ctx, query,
		status,
		errorMsg,
		time.Now().UTC(),
		taskID,
	)
	if err != nil {
		log.Error("failed to update task status",
			"task_id", taskID,
			"status", status,
			"error", err)
		return fmt.Errorf("failed to update task status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Task rows can be pruned while a status update is in flight,
		// treat a missing row as a no-op.
		log.Warn("no task found with ID to update status", "task_id", taskID)
		return nil
	}

	return nil
}

// GetPendingTasks retrieves all tasks with "pending" status.
func (s *TaskStore) GetPendingTasks(ctx context.Context) ([]task.Task, error) {
	return s.getTasksByStatus(ctx, task.TaskStatusPending, 0)
}

// GetProcessingTasks retrieves tasks with "processing" status, optionally
// filtered to those untouched for longer than olderThan.
func (s *TaskStore) GetProcessingTasks(
	ctx context.Context,
	olderThan time.Duration,
) ([]task.Task, error) {
	return s.getTasksByStatus(ctx, task.TaskStatusProcessing, olderThan)
}

// WithTx returns a TaskStore bound to the provided transaction.
func (s *TaskStore) WithTx(tx *sql.Tx) task.TaskStore {
	return &TaskStore{
		db:      tx,
		rebuild: s.rebuild,
	}
}

func (s *TaskStore) getTasksByStatus(
	ctx context.Context,
	status task.TaskStatus,
	olderThan time.Duration,
) ([]task.Task, error) {
	log := logger.FromContext(ctx)

	query := `
		SELECT id, type, payload
		FROM tasks
		WHERE status = $1
		ORDER BY created_at ASC
	`
	args := []interface{}{status}

	if olderThan > 0 {
		query = `
			SELECT id, type, payload
			FROM tasks
			WHERE status = $1 AND updated_at < $2
			ORDER BY created_at ASC
		`
		args = append(args, time.Now().UTC().Add(-olderThan))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks by status",
			"status", status,
			"error", err)
		return nil, fmt.Errorf("failed to query tasks by status: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []task.Task

	for rows.Next() {
		var (
			id       uuid.UUID
			taskType string
			payload  []byte
		)

		if err := rows.Scan(&id, &taskType, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}

		t, err := s.rebuild.ReconstructTask(taskType, id, payload)
		if err != nil {
			// A row we cannot reconstruct would be retried forever,
			// park it as failed instead.
			log.Error("failed to reconstruct task, marking failed",
				"task_id", id,
				"task_type", taskType,
				"error", err)
			if updateErr := s.UpdateTaskStatus(ctx, id, task.TaskStatusFailed, err.Error()); updateErr != nil {
				log.Error("failed to mark unreconstructable task failed",
					"task_id", id,
					"error", updateErr)
			}
			continue
		}

		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}

	return tasks, nil
}
