package documents

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"talentranker/internal/shared/storage/object"
	"talentranker/internal/shared/telemetry"
	"talentranker/internal/shared/util"
)

const defaultJobTitle = "Job Description"

// Service contains business logic for job descriptions and resumes.
type Service struct {
	Repo  Repo
	Store object.ObjectStore
	Now   func() time.Time
}

func NewService(repo Repo, store object.ObjectStore) *Service {
	return &Service{Repo: repo, Store: store, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// NewJobDescription builds an unsaved record. A file-derived title drops the extension.
func (s *Service) NewJobDescription(subscriberID, title, filename, content string) JobDescription {
	title = strings.TrimSpace(title)
	if title == "" && filename != "" {
		title = util.StripExtension(filename)
	}
	if title == "" {
		title = defaultJobTitle
	}
	now := s.now()
	return JobDescription{
		ID:           uuid.NewString(),
		SubscriberID: subscriberID,
		Title:        title,
		Description:  util.TruncateRunes(content, descriptionRunes),
		Content:      content,
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewResume builds an unsaved record. An empty content with failed=true marks an unreadable file.
func (s *Service) NewResume(subscriberID, filename, content string, sizeBytes int64, failed bool) Resume {
	status := StatusActive
	if failed {
		status = StatusFailed
		content = ""
	}
	return Resume{
		ID:           uuid.NewString(),
		SubscriberID: subscriberID,
		Filename:     filename,
		Content:      content,
		SizeBytes:    sizeBytes,
		Status:       status,
		CreatedAt:    s.now(),
	}
}

// Archive stores the raw upload and returns its key. Archiving is best-effort:
// a failure is logged and yields an empty key.
func (s *Service) Archive(ctx context.Context, subscriberID string, kind object.Kind, filename string, data []byte) string {
	if s.Store == nil || len(data) == 0 {
		return ""
	}
	obj, err := s.Store.Save(ctx, subscriberID, kind, filename, bytes.NewReader(data))
	if err != nil {
		telemetry.Warn("documents.archive.failed", map[string]any{
			"subscriber_id": subscriberID,
			"kind":          string(kind),
			"error":         err,
		})
		return ""
	}
	return obj.Key
}

// SaveBatch persists the records for a submission in one unit.
func (s *Service) SaveBatch(ctx context.Context, batch Batch) error {
	if batch.JobDescription == nil && len(batch.Resumes) == 0 {
		return nil
	}
	return s.Repo.CreateBatch(ctx, batch)
}

// ResolveJobDescription returns the job description only while it is active.
func (s *Service) ResolveJobDescription(ctx context.Context, subscriberID, jdID string) (JobDescription, error) {
	jd, err := s.Repo.GetJobDescription(ctx, subscriberID, jdID)
	if err != nil {
		return JobDescription{}, err
	}
	if jd.Status != StatusActive {
		return JobDescription{}, ErrNotFound
	}
	return jd, nil
}

// ResolveResumes returns the active resumes among ids in request order.
func (s *Service) ResolveResumes(ctx context.Context, subscriberID string, resumeIDs []string) ([]Resume, error) {
	ids := dedupe(resumeIDs)
	if len(ids) == 0 {
		return nil, nil
	}
	found, err := s.Repo.GetResumes(ctx, subscriberID, ids)
	if err != nil {
		return nil, err
	}
	active := make([]Resume, 0, len(found))
	for _, res := range found {
		if res.Status == StatusActive {
			active = append(active, res)
		}
	}
	return active, nil
}

// LoadForRecord loads the documents a persisted ranking refers to regardless of
// their current status. Missing resumes are simply absent from the result.
func (s *Service) LoadForRecord(ctx context.Context, subscriberID, jdID string, resumeIDs []string) (JobDescription, []Resume, error) {
	jd, err := s.Repo.GetJobDescription(ctx, subscriberID, jdID)
	if err != nil {
		return JobDescription{}, nil, err
	}
	found, err := s.Repo.GetResumes(ctx, subscriberID, resumeIDs)
	if err != nil {
		return JobDescription{}, nil, err
	}
	return jd, found, nil
}

// IncrementRankedCount adds n processed resumes to the job description.
func (s *Service) IncrementRankedCount(ctx context.Context, jdID string, n int) error {
	if n <= 0 {
		return nil
	}
	return s.Repo.IncrementRankedCount(ctx, jdID, n)
}

func (s *Service) GetJobDescription(ctx context.Context, subscriberID, id string) (JobDescription, error) {
	return s.Repo.GetJobDescription(ctx, subscriberID, id)
}

func (s *Service) ListJobDescriptions(ctx context.Context, subscriberID string, limit int) ([]JobDescription, error) {
	return s.Repo.ListJobDescriptions(ctx, subscriberID, clampLimit(limit))
}

func (s *Service) ListResumes(ctx context.Context, subscriberID string, limit int) ([]Resume, error) {
	return s.Repo.ListResumes(ctx, subscriberID, clampLimit(limit))
}

// ArchiveJobDescription soft-deletes a job description.
func (s *Service) ArchiveJobDescription(ctx context.Context, subscriberID, id string) error {
	jd, err := s.Repo.GetJobDescription(ctx, subscriberID, id)
	if err != nil {
		return err
	}
	if jd.Status == StatusArchived {
		return nil
	}
	return s.Repo.SetJobDescriptionStatus(ctx, subscriberID, id, StatusArchived)
}

// ArchiveResume soft-deletes a resume. Failed resumes stay failed.
func (s *Service) ArchiveResume(ctx context.Context, subscriberID, id string) error {
	found, err := s.Repo.GetResumes(ctx, subscriberID, []string{id})
	if err != nil {
		return err
	}
	if len(found) == 0 {
		return ErrNotFound
	}
	switch found[0].Status {
	case StatusArchived:
		return nil
	case StatusFailed:
		return ErrInvalidStatus
	}
	return s.Repo.SetResumeStatus(ctx, subscriberID, id, StatusArchived)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 50 {
		return 50
	}
	return limit
}
