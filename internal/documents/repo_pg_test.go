package documents

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoCreateBatchIsTransactional(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	jd := JobDescription{ID: "jd-1", SubscriberID: "s1", Title: "JD", Content: "c", Status: StatusActive, CreatedAt: now, UpdatedAt: now}
	res := Resume{ID: "r-1", SubscriberID: "s1", Filename: "a.pdf", Content: "A", SizeBytes: 10, Status: StatusActive, CreatedAt: now}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO job_descriptions")).
		WithArgs("jd-1", "s1", "JD", "", "c", "", "active", 0, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO resumes")).
		WithArgs("r-1", "s1", "a.pdf", "A", int64(10), "", "active", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := &PGRepo{DB: db}
	if err := repo.CreateBatch(context.Background(), Batch{JobDescription: &jd, Resumes: []Resume{res}}); err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoGetResumesPreservesRequestOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	cols := []string{"id", "subscriber_id", "filename", "content", "size_bytes", "storage_key", "status", "created_at"}
	mock.ExpectQuery(regexp.QuoteMeta("jsonb_array_elements_text")).
		WithArgs("s1", `["r-2","r-1","r-3"]`).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("r-1", "s1", "a.pdf", "A", 1, "", "active", now).
			AddRow("r-2", "s1", "b.pdf", "B", 1, "", "archived", now))

	repo := &PGRepo{DB: db}
	got, err := repo.GetResumes(context.Background(), "s1", []string{"r-2", "r-1", "r-3"})
	if err != nil {
		t.Fatalf("GetResumes: %v", err)
	}
	if len(got) != 2 || got[0].ID != "r-2" || got[1].ID != "r-1" || got[0].Status != StatusArchived {
		t.Fatalf("unexpected resumes: %+v", got)
	}
}
