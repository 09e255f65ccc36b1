package plans

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoGetScansNullableLimits(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "name", "region", "billing_cycle", "jd_limit", "cv_limit", "is_active"}).
		AddRow("growth-intl-monthly", "Growth", "intl", "monthly", 25, nil, true)
	mock.ExpectQuery(regexp.QuoteMeta("FROM plans")).
		WithArgs("growth-intl-monthly").
		WillReturnRows(rows)

	repo := &PGRepo{DB: db}
	p, err := repo.Get(context.Background(), "growth-intl-monthly")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Limit(DimensionJD) != 25 {
		t.Fatalf("expected jd limit 25, got %d", p.Limit(DimensionJD))
	}
	if !p.IsUnlimited(DimensionCV) {
		t.Fatalf("expected null cv limit to be unlimited")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM plans")).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	repo := &PGRepo{DB: db}
	if _, err := repo.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
