package task

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const MaxTextLength = 500

var (
	ErrNotFound     = errors.New("task not found")
	ErrEmptyText    = errors.New("task text is required")
	ErrTextTooLong  = errors.New("task text is too long")
	ErrInvalidID    = errors.New("invalid task id")
	ErrMissingOwner = errors.New("missing task owner")
	ErrDuplicateID  = errors.New("duplicate task id")
)

type Task struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	OwnerID   string    `json:"-"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// Repository is owner-scoped storage: every lookup matches (id, ownerID) jointly.
type Repository interface {
	ListByOwner(ctx context.Context, ownerID string) ([]Task, error)
	Insert(ctx context.Context, t Task) (Task, error)
	UpdateText(ctx context.Context, ownerID, id, text string) (Task, error)
	Delete(ctx context.Context, ownerID, id string) (Task, error)
}

type CreateTaskRequest struct {
	Text string `json:"text" binding:"required,notblank"`
}

// the id travels in the body for updates, the owner never does.
type UpdateTaskRequest struct {
	ID   string `json:"id" binding:"required"`
	Text string `json:"text" binding:"required,notblank"`
}

// NormalizeText trims the text and enforces the length rules.
func NormalizeText(text string) (string, error) {
	text = strings.TrimSpace(text)

	if text == "" {
		return "", ErrEmptyText
	}

	if utf8.RuneCountInString(text) > MaxTextLength {
		return "", ErrTextTooLong
	}

	return text, nil
}

func ValidateID(id string) error {
	_, err := uuid.Parse(id)

	if err != nil {
		return ErrInvalidID
	}

	return nil
}
