package documents

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo implements Repo in memory for dev and tests.
type MemoryRepo struct {
	mu      sync.RWMutex
	jds     map[string]JobDescription
	resumes map[string]Resume
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		jds:     make(map[string]JobDescription),
		resumes: make(map[string]Resume),
	}
}

func (r *MemoryRepo) CreateBatch(ctx context.Context, batch Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if batch.JobDescription != nil {
		r.jds[batch.JobDescription.ID] = *batch.JobDescription
	}
	for _, res := range batch.Resumes {
		r.resumes[res.ID] = res
	}
	return nil
}

func (r *MemoryRepo) GetJobDescription(ctx context.Context, subscriberID, id string) (JobDescription, error) {
	if err := ctx.Err(); err != nil {
		return JobDescription{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	jd, ok := r.jds[id]
	if !ok || jd.SubscriberID != subscriberID {
		return JobDescription{}, ErrNotFound
	}
	return jd, nil
}

func (r *MemoryRepo) ListJobDescriptions(ctx context.Context, subscriberID string, limit int) ([]JobDescription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []JobDescription
	for _, jd := range r.jds {
		if jd.SubscriberID == subscriberID {
			out = append(out, jd)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) SetJobDescriptionStatus(ctx context.Context, subscriberID, id string, status Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jd, ok := r.jds[id]
	if !ok || jd.SubscriberID != subscriberID {
		return ErrNotFound
	}
	jd.Status = status
	jd.UpdatedAt = time.Now().UTC()
	r.jds[id] = jd
	return nil
}

func (r *MemoryRepo) IncrementRankedCount(ctx context.Context, id string, n int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jd, ok := r.jds[id]
	if !ok {
		return ErrNotFound
	}
	jd.RankedCount += n
	jd.UpdatedAt = time.Now().UTC()
	r.jds[id] = jd
	return nil
}

func (r *MemoryRepo) GetResumes(ctx context.Context, subscriberID string, ids []string) ([]Resume, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Resume, 0, len(ids))
	for _, id := range ids {
		if res, ok := r.resumes[id]; ok && res.SubscriberID == subscriberID {
			out = append(out, res)
		}
	}
	return out, nil
}

func (r *MemoryRepo) ListResumes(ctx context.Context, subscriberID string, limit int) ([]Resume, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Resume
	for _, res := range r.resumes {
		if res.SubscriberID == subscriberID {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) SetResumeStatus(ctx context.Context, subscriberID, id string, status Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.resumes[id]
	if !ok || res.SubscriberID != subscriberID {
		return ErrNotFound
	}
	res.Status = status
	r.resumes[id] = res
	return nil
}
