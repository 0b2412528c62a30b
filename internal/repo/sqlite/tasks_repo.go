package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/tasklist/internal/domain/task"
	"github.com/geocoder89/tasklist/internal/observability"
)

type TasksRepo struct {
	db   *sql.DB
	prom *observability.Prom
}

func NewTasksRepo(db *sql.DB, prom *observability.Prom) *TasksRepo {
	return &TasksRepo{db: db, prom: prom}
}

func (r *TasksRepo) ListByOwner(ctx context.Context, ownerID string) ([]task.Task, error) {
	out := make([]task.Task, 0)

	err := r.prom.ObserveDB("tasks.list_by_owner", func() error {
		rows, err := r.db.QueryContext(ctx,
			`SELECT id, owner_id, text, created_at, updated_at
			FROM tasks
			WHERE owner_id = ?
			ORDER BY seq ASC`,
			ownerID,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var t task.Task

			err := rows.Scan(&t.ID, &t.OwnerID, &t.Text, &t.CreatedAt, &t.UpdatedAt)

			if err != nil {
				return err
			}

			out = append(out, t)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	return out, nil
}

func (r *TasksRepo) Insert(ctx context.Context, t task.Task) (task.Task, error) {
	err := r.prom.ObserveDB("tasks.insert", func() error {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO tasks (id, owner_id, text, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)`,
			t.ID, t.OwnerID, t.Text, t.CreatedAt, t.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if isUniqueViolation(err) {
			return task.Task{}, task.ErrDuplicateID
		}

		return task.Task{}, fmt.Errorf("insert task: %w", err)
	}

	return t, nil
}

func (r *TasksRepo) UpdateText(ctx context.Context, ownerID, id, text string) (task.Task, error) {
	var t task.Task

	err := r.prom.ObserveDB("tasks.update_text", func() error {
		return r.db.QueryRowContext(ctx,
			`UPDATE tasks
			SET text = ?, updated_at = ?
			WHERE id = ? AND owner_id = ?
			RETURNING id, owner_id, text, created_at, updated_at`,
			text, time.Now().UTC(), id, ownerID,
		).Scan(&t.ID, &t.OwnerID, &t.Text, &t.CreatedAt, &t.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return task.Task{}, task.ErrNotFound
		}

		return task.Task{}, fmt.Errorf("update task: %w", err)
	}

	return t, nil
}

func (r *TasksRepo) Delete(ctx context.Context, ownerID, id string) (task.Task, error) {
	var t task.Task

	err := r.prom.ObserveDB("tasks.delete", func() error {
		return r.db.QueryRowContext(ctx,
			`DELETE FROM tasks
			WHERE id = ? AND owner_id = ?
			RETURNING id, owner_id, text, created_at, updated_at`,
			id, ownerID,
		).Scan(&t.ID, &t.OwnerID, &t.Text, &t.CreatedAt, &t.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return task.Task{}, task.ErrNotFound
		}

		return task.Task{}, fmt.Errorf("delete task: %w", err)
	}

	return t, nil
}
