// Package tasks is the access-controlled task store. Every operation takes the
// caller's owner id from the authenticated session and never from request data.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/geocoder89/tasklist/internal/cache"
	"github.com/geocoder89/tasklist/internal/domain/task"
	"github.com/geocoder89/tasklist/internal/observability"
)

const maxInsertAttempts = 3

type Store struct {
	repo  task.Repository
	lists *cache.Cache[[]task.Task]
	log   *slog.Logger
	prom  *observability.Prom
}

type Option func(*Store)

// WithMetrics counts list cache hits and misses.
func WithMetrics(p *observability.Prom) Option {
	return func(s *Store) { s.prom = p }
}

// NewStore wires the store. lists may be nil to disable list caching.
func NewStore(repo task.Repository, lists *cache.Cache[[]task.Task], log *slog.Logger, opts ...Option) *Store {
	if log == nil {
		log = slog.Default()
	}

	s := &Store{repo: repo, lists: lists, log: log}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Store) List(ctx context.Context, ownerID string) ([]task.Task, error) {
	if ownerID == "" {
		return nil, task.ErrMissingOwner
	}

	key := listKey(ownerID)

	var version uint64

	if s.lists != nil {
		cached, ok := s.lists.Get(key)
		s.prom.ObserveCache(ok)

		if ok {
			return slices.Clone(cached), nil
		}
		version = s.lists.Version(key)
	}

	items, err := s.repo.ListByOwner(ctx, ownerID)

	if err != nil {
		s.log.ErrorContext(ctx, "tasks.list failed", "owner_id", ownerID, "err", err)
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	if s.lists != nil {
		s.lists.SetIfVersion(key, slices.Clone(items), version)
	}

	return items, nil
}

func (s *Store) Create(ctx context.Context, ownerID, text string) (task.Task, error) {
	if ownerID == "" {
		return task.Task{}, task.ErrMissingOwner
	}

	text, err := task.NormalizeText(text)

	if err != nil {
		return task.Task{}, err
	}

	for attempt := 1; ; attempt++ {
		created, err := s.repo.Insert(ctx, task.New(ownerID, text))

		if err == nil {
			s.invalidate(ownerID)
			return created, nil
		}

		if errors.Is(err, task.ErrDuplicateID) && attempt < maxInsertAttempts {
			continue
		}

		s.log.ErrorContext(ctx, "tasks.create failed", "owner_id", ownerID, "attempt", attempt, "err", err)
		return task.Task{}, fmt.Errorf("create task: %w", err)
	}
}

func (s *Store) Update(ctx context.Context, ownerID, id, text string) (task.Task, error) {
	if ownerID == "" {
		return task.Task{}, task.ErrMissingOwner
	}

	text, err := task.NormalizeText(text)

	if err != nil {
		return task.Task{}, err
	}

	err = task.ValidateID(id)

	if err != nil {
		return task.Task{}, err
	}

	updated, err := s.repo.UpdateText(ctx, ownerID, id, text)

	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			return task.Task{}, err
		}

		s.log.ErrorContext(ctx, "tasks.update failed", "owner_id", ownerID, "task_id", id, "err", err)
		return task.Task{}, fmt.Errorf("update task: %w", err)
	}

	s.invalidate(ownerID)

	return updated, nil
}

func (s *Store) Delete(ctx context.Context, ownerID, id string) (task.Task, error) {
	if ownerID == "" {
		return task.Task{}, task.ErrMissingOwner
	}

	err := task.ValidateID(id)

	if err != nil {
		return task.Task{}, err
	}

	deleted, err := s.repo.Delete(ctx, ownerID, id)

	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			return task.Task{}, err
		}

		s.log.ErrorContext(ctx, "tasks.delete failed", "owner_id", ownerID, "task_id", id, "err", err)
		return task.Task{}, fmt.Errorf("delete task: %w", err)
	}

	s.invalidate(ownerID)

	return deleted, nil
}

func (s *Store) invalidate(ownerID string) {
	if s.lists != nil {
		s.lists.Delete(listKey(ownerID))
	}
}

func listKey(ownerID string) string {
	return "tasks:list:v1:owner=" + ownerID
}
