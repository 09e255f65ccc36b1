package subscribers

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("subscriber not found")

type Repo interface {
	// Create inserts s unless a subscriber with the same id exists, and returns the stored row.
	Create(ctx context.Context, s Subscriber) (Subscriber, error)
	GetByID(ctx context.Context, id string) (Subscriber, error)
	SetPlan(ctx context.Context, id, planID string) error
}
