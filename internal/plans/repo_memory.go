package plans

import (
	"context"
	"sort"
	"sync"
)

type MemoryRepo struct {
	mu    sync.RWMutex
	plans map[string]Plan
}

// NewMemoryRepo builds a repo seeded with the given plans. Invalid plans are rejected.
func NewMemoryRepo(seed ...Plan) (*MemoryRepo, error) {
	r := &MemoryRepo{plans: make(map[string]Plan, len(seed))}
	for _, p := range seed {
		if err := r.Put(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Put adds or replaces a plan.
func (r *MemoryRepo) Put(p Plan) error {
	if err := Validate(p); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans[p.ID] = p
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Plan, error) {
	if err := ctx.Err(); err != nil {
		return Plan{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plans[id]
	if !ok {
		return Plan{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepo) List(ctx context.Context) ([]Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Plan, 0, len(r.plans))
	for _, p := range r.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
