package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/tasklist/internal/domain/task"
)

// TasksRepo keeps tasks in insertion order. One mutex guards both the slice and
// the index so every operation is a single indivisible step.
type TasksRepo struct {
	mu    sync.RWMutex
	items []task.Task
	index map[string]int // id -> position in items
}

func NewTasksRepo() *TasksRepo {
	return &TasksRepo{
		index: make(map[string]int),
	}
}

func (r *TasksRepo) ListByOwner(ctx context.Context, ownerID string) ([]task.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]task.Task, 0)

	for _, t := range r.items {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}

	return out, nil
}

func (r *TasksRepo) Insert(ctx context.Context, t task.Task) (task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[t.ID]; exists {
		return task.Task{}, task.ErrDuplicateID
	}

	r.index[t.ID] = len(r.items)
	r.items = append(r.items, t)

	return t, nil
}

func (r *TasksRepo) UpdateText(ctx context.Context, ownerID, id, text string) (task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos, ok := r.lookup(ownerID, id)

	if !ok {
		return task.Task{}, task.ErrNotFound
	}

	r.items[pos].Text = text
	r.items[pos].UpdatedAt = time.Now().UTC()

	return r.items[pos], nil
}

func (r *TasksRepo) Delete(ctx context.Context, ownerID, id string) (task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos, ok := r.lookup(ownerID, id)

	if !ok {
		return task.Task{}, task.ErrNotFound
	}

	deleted := r.items[pos]

	r.items = append(r.items[:pos], r.items[pos+1:]...)
	delete(r.index, id)

	// shift positions of everything after the removed item
	for i := pos; i < len(r.items); i++ {
		r.index[r.items[i].ID] = i
	}

	return deleted, nil
}

// lookup must be called with the lock held.
func (r *TasksRepo) lookup(ownerID, id string) (int, bool) {
	pos, ok := r.index[id]

	if !ok || r.items[pos].OwnerID != ownerID {
		return 0, false
	}

	return pos, true
}
