package rankings

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo implements Repo in memory for dev and tests.
type MemoryRepo struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{records: make(map[string]Record)}
}

func (r *MemoryRepo) Create(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.ID] = cloneRecord(rec)
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (r *MemoryRepo) Get(ctx context.Context, subscriberID, id string) (Record, error) {
	rec, err := r.GetByID(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if rec.SubscriberID != subscriberID {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (r *MemoryRepo) ListBySubscriber(ctx context.Context, subscriberID string, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Record
	for _, rec := range r.records {
		if rec.SubscriberID == subscriberID {
			out = append(out, cloneRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) Complete(ctx context.Context, id string, results []ResumeScore, at time.Time) error {
	return r.finish(ctx, id, StatusCompleted, results, "", at)
}

func (r *MemoryRepo) Fail(ctx context.Context, id, message string, at time.Time) error {
	return r.finish(ctx, id, StatusFailed, nil, message, at)
}

func (r *MemoryRepo) finish(ctx context.Context, id string, status Status, results []ResumeScore, message string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return ErrNotFound
	}
	if rec.Status.Terminal() {
		return ErrAlreadyTerminal
	}
	rec.Status = status
	if results != nil {
		rec.Results = append([]ResumeScore(nil), results...)
	}
	rec.Error = message
	rec.UpdatedAt = at
	completed := at
	rec.CompletedAt = &completed
	r.records[id] = rec
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, subscriberID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.SubscriberID != subscriberID {
		return ErrNotFound
	}
	if !rec.Status.Terminal() {
		return ErrStillProcessing
	}
	delete(r.records, id)
	return nil
}

func cloneRecord(rec Record) Record {
	rec.ResumeIDs = append([]string(nil), rec.ResumeIDs...)
	rec.Results = append([]ResumeScore(nil), rec.Results...)
	if rec.CompletedAt != nil {
		at := *rec.CompletedAt
		rec.CompletedAt = &at
	}
	return rec
}
