package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/todo-assistant/internal/model"
)

// CreateTask inserts a new task for the given user.
func (s *SQLiteStore) CreateTask(
	ctx context.Context,
	userID, title, description string,
) (*model.Task, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("task title must not be empty")
	}

	now := time.Now().UTC()
	task := model.Task{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       title,
		Description: description,
		Completed:   false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, user_id, title, description, completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.UserID, task.Title, task.Description,
		boolToInt(task.Completed), task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	return &task, nil
}

// GetTasksByUser retrieves all tasks owned by userID, oldest first. The
// stable ordering keeps matcher tie-breaks deterministic.
func (s *SQLiteStore) GetTasksByUser(
	ctx context.Context,
	userID string,
) ([]model.Task, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT * FROM tasks WHERE user_id = ? ORDER BY created_at ASC, id ASC", userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// GetTaskByID retrieves a single task by ID, scoped to its owner.
func (s *SQLiteStore) GetTaskByID(
	ctx context.Context,
	taskID, userID string,
) (*model.Task, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT * FROM tasks WHERE id = ? AND user_id = ?", taskID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", taskID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("getting task %s: %w", taskID, err)
		}
		return nil, ErrNotFound
	}
	task, err := scanTask(rows)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask applies the non-nil fields of update to the task. Owner-scoped.
func (s *SQLiteStore) UpdateTask(
	ctx context.Context,
	taskID, userID string,
	update model.TaskUpdate,
) (*model.Task, error) {
	task, err := s.GetTaskByID(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}

	if update.Title != nil {
		if strings.TrimSpace(*update.Title) == "" {
			return nil, fmt.Errorf("task title must not be empty")
		}
		task.Title = *update.Title
	}
	if update.Description != nil {
		task.Description = *update.Description
	}
	if update.Completed != nil {
		task.Completed = *update.Completed
	}
	task.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		UPDATE tasks SET title = ?, description = ?, completed = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		task.Title, task.Description, boolToInt(task.Completed), task.UpdatedAt,
		taskID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating task %s: %w", taskID, err)
	}

	return task, nil
}

// DeleteTask removes a task by ID, scoped to its owner.
func (s *SQLiteStore) DeleteTask(ctx context.Context, taskID, userID string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM tasks WHERE id = ? AND user_id = ?", taskID, userID,
	)
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", taskID, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// SetTaskCompletion marks a task complete or incomplete. Setting the same
// state twice succeeds; the operation is idempotent.
func (s *SQLiteStore) SetTaskCompletion(
	ctx context.Context,
	taskID, userID string,
	completed bool,
) (*model.Task, error) {
	return s.UpdateTask(ctx, taskID, userID, model.TaskUpdate{Completed: &completed})
}

// scanTask scans a task row from a sqlx.Rows result set.
func scanTask(rows interface {
	Scan(dest ...any) error
}) (model.Task, error) {
	var (
		task         model.Task
		completedInt int
		createdAt    time.Time
		updatedAt    time.Time
	)

	err := rows.Scan(
		&task.ID, &task.UserID, &task.Title, &task.Description,
		&completedInt, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, ErrNotFound
	}
	if err != nil {
		return model.Task{}, fmt.Errorf("scanning task row: %w", err)
	}

	task.Completed = completedInt != 0
	task.CreatedAt = createdAt
	task.UpdatedAt = updatedAt

	return task, nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
