package documents

import "context"

// Repo persists job descriptions and resumes. Reads are scoped to the owning subscriber.
type Repo interface {
	// CreateBatch stores the batch atomically.
	CreateBatch(ctx context.Context, batch Batch) error
	GetJobDescription(ctx context.Context, subscriberID, id string) (JobDescription, error)
	ListJobDescriptions(ctx context.Context, subscriberID string, limit int) ([]JobDescription, error)
	SetJobDescriptionStatus(ctx context.Context, subscriberID, id string, status Status) error
	IncrementRankedCount(ctx context.Context, id string, n int) error
	// GetResumes returns the subscriber's resumes among ids. Missing ids are skipped.
	GetResumes(ctx context.Context, subscriberID string, ids []string) ([]Resume, error)
	ListResumes(ctx context.Context, subscriberID string, limit int) ([]Resume, error)
	SetResumeStatus(ctx context.Context, subscriberID, id string, status Status) error
}
