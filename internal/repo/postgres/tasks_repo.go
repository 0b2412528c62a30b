package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/tasklist/internal/domain/task"
	"github.com/geocoder89/tasklist/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TasksRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewTasksRepo(pool *pgxpool.Pool, prom *observability.Prom) *TasksRepo {
	return &TasksRepo{pool: pool, prom: prom}
}

// ListByOwner returns tasks in insertion order. seq is a BIGSERIAL so two
// inserts within the same clock tick still keep their order.
func (r *TasksRepo) ListByOwner(ctx context.Context, ownerID string) ([]task.Task, error) {
	out := make([]task.Task, 0)

	err := r.prom.ObserveDB("tasks.list_by_owner", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT id, owner_id, text, created_at, updated_at
			FROM tasks
			WHERE owner_id = $1
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
		_, err := r.pool.Exec(ctx,
			`INSERT INTO tasks (id, owner_id, text, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5)`,
			t.ID, t.OwnerID, t.Text, t.CreatedAt, t.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return task.Task{}, task.ErrDuplicateID
		}

		return task.Task{}, fmt.Errorf("insert task: %w", err)
	}

	return t, nil
}

// UpdateText matches on id and owner together, so a foreign id looks exactly
// like a missing one.
func (r *TasksRepo) UpdateText(ctx context.Context, ownerID, id, text string) (task.Task, error) {
	var t task.Task

	err := r.prom.ObserveDB("tasks.update_text", func() error {
		return r.pool.QueryRow(ctx,
			`UPDATE tasks
			SET text = $3, updated_at = NOW()
			WHERE id = $1 AND owner_id = $2
			RETURNING id, owner_id, text, created_at, updated_at`,
			id, ownerID, text,
		).Scan(&t.ID, &t.OwnerID, &t.Text, &t.CreatedAt, &t.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return task.Task{}, task.ErrNotFound
		}

		return task.Task{}, fmt.Errorf("update task: %w", err)
	}

	return t, nil
}

func (r *TasksRepo) Delete(ctx context.Context, ownerID, id string) (task.Task, error) {
	var t task.Task

	err := r.prom.ObserveDB("tasks.delete", func() error {
		return r.pool.QueryRow(ctx,
			`DELETE FROM tasks
			WHERE id = $1 AND owner_id = $2
			RETURNING id, owner_id, text, created_at, updated_at`,
			id, ownerID,
		).Scan(&t.ID, &t.OwnerID, &t.Text, &t.CreatedAt, &t.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return task.Task{}, task.ErrNotFound
		}

		return task.Task{}, fmt.Errorf("delete task: %w", err)
	}

	return t, nil
}
