package documents

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"talentranker/internal/shared/storage/object"
	"talentranker/internal/shared/storage/object/local"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc := NewService(NewMemoryRepo(), local.New(t.TempDir()))
	base := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	svc.Now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return svc
}

func TestNewJobDescriptionTitleAndDescription(t *testing.T) {
	svc := newTestService(t)
	content := strings.Repeat("é", 600)

	jd := svc.NewJobDescription("sub-1", "", "Senior Go Engineer.pdf", content)
	if jd.Title != "Senior Go Engineer" {
		t.Fatalf("unexpected title %q", jd.Title)
	}
	if got := len([]rune(jd.Description)); got != 500 {
		t.Fatalf("expected 500-rune description, got %d", got)
	}
	if jd.Status != StatusActive || jd.RankedCount != 0 {
		t.Fatalf("unexpected initial state: %+v", jd)
	}

	inline := svc.NewJobDescription("sub-1", "  Platform Lead ", "", "short")
	if inline.Title != "Platform Lead" || inline.Description != "short" {
		t.Fatalf("unexpected inline jd: %+v", inline)
	}
	if untitled := svc.NewJobDescription("sub-1", "", "", "x"); untitled.Title != defaultJobTitle {
		t.Fatalf("expected default title, got %q", untitled.Title)
	}
}

func TestNewResumeFailedDropsContent(t *testing.T) {
	svc := newTestService(t)
	res := svc.NewResume("sub-1", "broken.pdf", "garbage", 42, true)
	if res.Status != StatusFailed || res.Content != "" || res.SizeBytes != 42 {
		t.Fatalf("unexpected failed resume: %+v", res)
	}
}

func TestResolveFiltersAndOrders(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	jd := svc.NewJobDescription("sub-1", "JD", "", "content")
	a := svc.NewResume("sub-1", "a.pdf", "A", 1, false)
	b := svc.NewResume("sub-1", "b.pdf", "B", 1, false)
	failed := svc.NewResume("sub-1", "c.pdf", "", 1, true)
	foreign := svc.NewResume("sub-2", "d.pdf", "D", 1, false)
	if err := svc.SaveBatch(ctx, Batch{JobDescription: &jd, Resumes: []Resume{a, b, failed}}); err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}
	if err := svc.SaveBatch(ctx, Batch{Resumes: []Resume{foreign}}); err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}

	if _, err := svc.ResolveJobDescription(ctx, "sub-1", jd.ID); err != nil {
		t.Fatalf("ResolveJobDescription: %v", err)
	}
	got, err := svc.ResolveResumes(ctx, "sub-1", []string{b.ID, a.ID, b.ID, failed.ID, foreign.ID, "missing"})
	if err != nil {
		t.Fatalf("ResolveResumes: %v", err)
	}
	if len(got) != 2 || got[0].ID != b.ID || got[1].ID != a.ID {
		t.Fatalf("unexpected resumes: %+v", got)
	}

	if err := svc.ArchiveJobDescription(ctx, "sub-1", jd.ID); err != nil {
		t.Fatalf("ArchiveJobDescription: %v", err)
	}
	if _, err := svc.ResolveJobDescription(ctx, "sub-1", jd.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("archived jd must be not found, got %v", err)
	}
	if _, err := svc.ResolveJobDescription(ctx, "sub-2", jd.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign jd must be not found, got %v", err)
	}
}

func TestArchiveResumeRules(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	ok := svc.NewResume("sub-1", "a.pdf", "A", 1, false)
	failed := svc.NewResume("sub-1", "b.pdf", "", 1, true)
	if err := svc.SaveBatch(ctx, Batch{Resumes: []Resume{ok, failed}}); err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}
	if err := svc.ArchiveResume(ctx, "sub-1", ok.ID); err != nil {
		t.Fatalf("ArchiveResume: %v", err)
	}
	if err := svc.ArchiveResume(ctx, "sub-1", ok.ID); err != nil {
		t.Fatalf("archive must be idempotent: %v", err)
	}
	if err := svc.ArchiveResume(ctx, "sub-1", failed.ID); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if err := svc.ArchiveResume(ctx, "sub-2", ok.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestArchiveStoresRawUpload(t *testing.T) {
	svc := newTestService(t)
	key := svc.Archive(context.Background(), "sub-1", object.KindResume, "cv.pdf", []byte("%PDF-1.4"))
	if !strings.HasPrefix(key, "resumes/") {
		t.Fatalf("unexpected key %q", key)
	}
	if key := svc.Archive(context.Background(), "sub-1", object.KindResume, "../x.pdf", []byte("x")); key != "" {
		t.Fatalf("expected empty key on failure, got %q", key)
	}
}

func TestIncrementRankedCount(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	jd := svc.NewJobDescription("sub-1", "JD", "", "content")
	if err := svc.SaveBatch(ctx, Batch{JobDescription: &jd}); err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}
	if err := svc.IncrementRankedCount(ctx, jd.ID, 3); err != nil {
		t.Fatalf("IncrementRankedCount: %v", err)
	}
	if err := svc.IncrementRankedCount(ctx, jd.ID, 2); err != nil {
		t.Fatalf("IncrementRankedCount: %v", err)
	}
	got, err := svc.GetJobDescription(ctx, "sub-1", jd.ID)
	if err != nil {
		t.Fatalf("GetJobDescription: %v", err)
	}
	if got.RankedCount != 5 {
		t.Fatalf("expected rankedCount 5, got %d", got.RankedCount)
	}
}

func TestLoadForRecordKeepsNonActiveResumes(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	jd := svc.NewJobDescription("sub-1", "JD", "", "content")
	ok := svc.NewResume("sub-1", "a.pdf", "A", 1, false)
	failed := svc.NewResume("sub-1", "b.pdf", "", 1, true)
	if err := svc.SaveBatch(ctx, Batch{JobDescription: &jd, Resumes: []Resume{ok, failed}}); err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}
	if err := svc.ArchiveJobDescription(ctx, "sub-1", jd.ID); err != nil {
		t.Fatalf("ArchiveJobDescription: %v", err)
	}

	gotJD, got, err := svc.LoadForRecord(ctx, "sub-1", jd.ID, []string{failed.ID, "missing", ok.ID})
	if err != nil {
		t.Fatalf("LoadForRecord: %v", err)
	}
	if gotJD.ID != jd.ID || gotJD.Content != "content" {
		t.Fatalf("unexpected jd: %+v", gotJD)
	}
	if len(got) != 2 || got[0].ID != failed.ID || got[1].ID != ok.ID {
		t.Fatalf("unexpected resumes: %+v", got)
	}
}
