package ledger

import (
	"context"
	"time"
)

// Store persists reservations and counters. Implementations serialize Reserve,
// Commit and Release per subscriber.
type Store interface {
	// Reserve checks limits against used+pending and persists r as pending.
	Reserve(ctx context.Context, r Reservation, limits Limits) error
	// Commit applies a pending reservation to the counters. Committing twice is a no-op.
	Commit(ctx context.Context, reservationID string, at time.Time) (Reservation, error)
	// Release discards a pending reservation. Releasing twice is a no-op.
	Release(ctx context.Context, reservationID string, at time.Time) (Reservation, error)
	// Expire releases a reservation only while it is pending and unbound.
	Expire(ctx context.Context, reservationID string, at time.Time) (Reservation, error)
	// Bind attaches a pending reservation to its ranking record.
	Bind(ctx context.Context, reservationID, rankingID string) (Reservation, error)
	Get(ctx context.Context, reservationID string) (Reservation, error)
	Usage(ctx context.Context, subscriberID string) (Usage, error)
	// ListExpired returns unbound pending reservations created before cutoff, oldest first.
	ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]Reservation, error)
}
