package subscribers

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoCreateIsIdempotent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO subscribers")).
		WithArgs("sub-1", "a@example.com", "freemium").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM subscribers")).
		WithArgs("sub-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "plan_id", "created_at", "updated_at"}).
			AddRow("sub-1", "a@example.com", "starter-intl-monthly", now, now))

	repo := &PGRepo{DB: db}
	got, err := repo.Create(context.Background(), Subscriber{ID: "sub-1", Email: "a@example.com", PlanID: "freemium"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.PlanID != "starter-intl-monthly" {
		t.Fatalf("expected existing row to win, got %q", got.PlanID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoSetPlanNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE subscribers SET plan_id")).
		WithArgs("ghost", "freemium").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := &PGRepo{DB: db}
	if err := repo.SetPlan(context.Background(), "ghost", "freemium"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
