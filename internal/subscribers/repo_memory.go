package subscribers

import (
	"context"
	"sync"
	"time"
)

type MemoryRepo struct {
	mu   sync.RWMutex
	subs map[string]Subscriber
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{subs: make(map[string]Subscriber)}
}

func (r *MemoryRepo) Create(ctx context.Context, s Subscriber) (Subscriber, error) {
	if err := ctx.Err(); err != nil {
		return Subscriber{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.subs[s.ID]; ok {
		return existing, nil
	}
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	r.subs[s.ID] = s
	return s, nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Subscriber, error) {
	if err := ctx.Err(); err != nil {
		return Subscriber{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.subs[id]
	if !ok {
		return Subscriber{}, ErrNotFound
	}
	return s, nil
}

func (r *MemoryRepo) SetPlan(ctx context.Context, id, planID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	if !ok {
		return ErrNotFound
	}
	s.PlanID = planID
	s.UpdatedAt = time.Now().UTC()
	r.subs[id] = s
	return nil
}
