package rankings

import (
	"context"
	"time"
)

// Repo persists ranking records.
type Repo interface {
	Create(ctx context.Context, rec Record) error
	GetByID(ctx context.Context, id string) (Record, error)
	Get(ctx context.Context, subscriberID, id string) (Record, error)
	ListBySubscriber(ctx context.Context, subscriberID string, limit int) ([]Record, error)
	// Complete and Fail move a processing record to its terminal state once.
	// A second transition returns ErrAlreadyTerminal.
	Complete(ctx context.Context, id string, results []ResumeScore, at time.Time) error
	Fail(ctx context.Context, id, message string, at time.Time) error
	// Delete removes a terminal record. A processing record yields ErrStillProcessing.
	Delete(ctx context.Context, subscriberID, id string) error
}
