package ledger

import (
	"context"
	"sort"
	"sync"
	"time"
)

type MemoryStore struct {
	mu           sync.Mutex
	reservations map[string]Reservation
	counters     map[string]Usage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reservations: make(map[string]Reservation),
		counters:     make(map[string]Usage),
	}
}

func (s *MemoryStore) Reserve(ctx context.Context, r Reservation, limits Limits) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	usage := s.usageLocked(r.SubscriberID)
	if err := checkQuota(limits, usage, r.JDDelta, r.CVDelta); err != nil {
		return err
	}
	r.Status = StatusPending
	s.reservations[r.ID] = r
	return nil
}

func (s *MemoryStore) Commit(ctx context.Context, reservationID string, at time.Time) (Reservation, error) {
	if err := ctx.Err(); err != nil {
		return Reservation{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[reservationID]
	if !ok {
		return Reservation{}, ErrReservationNotFound
	}
	switch r.Status {
	case StatusCommitted:
		return r, nil
	case StatusReleased:
		return r, ErrReservationReleased
	}
	c := s.counters[r.SubscriberID]
	c.SubscriberID = r.SubscriberID
	c.JDUsed += r.JDDelta
	c.CVUsed += r.CVDelta
	s.counters[r.SubscriberID] = c
	r.Status = StatusCommitted
	r.SettledAt = &at
	s.reservations[r.ID] = r
	return r, nil
}

func (s *MemoryStore) Release(ctx context.Context, reservationID string, at time.Time) (Reservation, error) {
	return s.release(ctx, reservationID, at, true)
}

func (s *MemoryStore) Expire(ctx context.Context, reservationID string, at time.Time) (Reservation, error) {
	return s.release(ctx, reservationID, at, false)
}

func (s *MemoryStore) release(ctx context.Context, reservationID string, at time.Time, allowBound bool) (Reservation, error) {
	if err := ctx.Err(); err != nil {
		return Reservation{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[reservationID]
	if !ok {
		return Reservation{}, ErrReservationNotFound
	}
	if !allowBound && r.Status == StatusPending && r.Bound() {
		return r, ErrReservationBound
	}
	switch r.Status {
	case StatusReleased:
		return r, nil
	case StatusCommitted:
		return r, ErrReservationCommitted
	}
	r.Status = StatusReleased
	r.SettledAt = &at
	s.reservations[r.ID] = r
	return r, nil
}

func (s *MemoryStore) Bind(ctx context.Context, reservationID, rankingID string) (Reservation, error) {
	if err := ctx.Err(); err != nil {
		return Reservation{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[reservationID]
	if !ok {
		return Reservation{}, ErrReservationNotFound
	}
	if r.Status != StatusPending {
		return r, settledError(r.Status, StatusPending)
	}
	r.RankingID = rankingID
	s.reservations[r.ID] = r
	return r, nil
}

func (s *MemoryStore) Get(ctx context.Context, reservationID string) (Reservation, error) {
	if err := ctx.Err(); err != nil {
		return Reservation{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[reservationID]
	if !ok {
		return Reservation{}, ErrReservationNotFound
	}
	return r, nil
}

func (s *MemoryStore) Usage(ctx context.Context, subscriberID string) (Usage, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usageLocked(subscriberID), nil
}

func (s *MemoryStore) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Reservation
	for _, r := range s.reservations {
		if r.Status == StatusPending && !r.Bound() && r.CreatedAt.Before(cutoff) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) usageLocked(subscriberID string) Usage {
	u := s.counters[subscriberID]
	u.SubscriberID = subscriberID
	for _, r := range s.reservations {
		if r.SubscriberID == subscriberID && r.Status == StatusPending {
			u.JDPending += r.JDDelta
			u.CVPending += r.CVDelta
		}
	}
	return u
}
