package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/memoria/core/internal/domain/entities"
	"github.com/memoria/core/internal/infrastructure/database"
	"github.com/memoria/core/internal/ports"
)

// TaskRepositoryImpl implements the TaskRepository interface
type TaskRepositoryImpl struct {
	db *database.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *database.DB) ports.TaskRepository {
	return &TaskRepositoryImpl{db: db}
}

func (r *TaskRepositoryImpl) GetDayState(ctx context.Context, date string) (*entities.DayState, error) {
	query := `SELECT date, is_explicitly_empty FROM task_day_states WHERE date = ?`

	var state entities.DayState
	if err := r.db.DB.GetContext(ctx, &state, query, date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get day state: %w", err)
	}

	return &state, nil
}

func (r *TaskRepositoryImpl) ListByDate(ctx context.Context, date string) ([]entities.Task, error) {
	query := `
		SELECT id, content, quadrant, date, completed, deleted_on
		FROM tasks
		WHERE date = ?
		ORDER BY rowid`

	tasks := []entities.Task{}
	if err := r.db.DB.SelectContext(ctx, &tasks, query, date); err != nil {
		return nil, fmt.Errorf("list tasks by date: %w", err)
	}

	return tasks, nil
}

func (r *TaskRepositoryImpl) LatestDateBefore(ctx context.Context, date string) (string, error) {
	query := `SELECT MAX(date) FROM tasks WHERE date < ?`

	var latest sql.NullString
	if err := r.db.DB.GetContext(ctx, &latest, query, date); err != nil {
		return "", fmt.Errorf("find latest task date: %w", err)
	}

	return latest.String, nil
}

func (r *TaskRepositoryImpl) ReplaceDay(ctx context.Context, date string, tasks []entities.Task) error {
	return r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE date = ?`, date); err != nil {
			return fmt.Errorf("clear tasks for %s: %w", date, err)
		}

		stateQuery := `
			INSERT INTO task_day_states (date, is_explicitly_empty) VALUES (?, ?)
			ON CONFLICT(date) DO UPDATE SET is_explicitly_empty = excluded.is_explicitly_empty`
		if _, err := tx.ExecContext(ctx, stateQuery, date, len(tasks) == 0); err != nil {
			return fmt.Errorf("save day state for %s: %w", date, err)
		}

		insertQuery := `
			INSERT OR REPLACE INTO tasks (id, content, quadrant, date, completed, deleted_on)
			VALUES (?, ?, ?, ?, ?, ?)`
		for _, task := range tasks {
			if _, err := tx.ExecContext(ctx, insertQuery,
				task.ID, task.Content, task.Quadrant, date, task.Completed, task.DeletedOn,
			); err != nil {
				return fmt.Errorf("save task %s: %w", task.ID, err)
			}
		}

		return nil
	})
}
