package task

import (
	"time"

	"github.com/google/uuid"
)

func New(ownerID, text string) Task {
	now := time.Now().UTC()

	return Task{
		ID:        uuid.NewString(),
		Text:      text,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
