package rankings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres. Results and resume ids are stored as JSONB.
type PGRepo struct {
	DB *sql.DB
}

const recordColumns = `id, subscriber_id, job_description_id, job_title, reservation_id, resume_ids, results, status, error_message, created_at, updated_at, completed_at`

func (r *PGRepo) Create(ctx context.Context, rec Record) error {
	resumeIDs, err := marshalJSON(rec.ResumeIDs, "[]")
	if err != nil {
		return err
	}
	results, err := marshalJSON(rec.Results, "[]")
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, `
INSERT INTO rankings (id, subscriber_id, job_description_id, job_title, reservation_id, resume_ids, results, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb, $8, $9, $10)`,
		rec.ID, rec.SubscriberID, rec.JobDescriptionID, rec.JobTitle, nullString(rec.ReservationID),
		resumeIDs, results, string(rec.Status), rec.CreatedAt, rec.UpdatedAt)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Record, error) {
	rec, err := scanRecord(r.DB.QueryRowContext(ctx, `
SELECT `+recordColumns+`
FROM rankings
WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

func (r *PGRepo) Get(ctx context.Context, subscriberID, id string) (Record, error) {
	rec, err := scanRecord(r.DB.QueryRowContext(ctx, `
SELECT `+recordColumns+`
FROM rankings
WHERE id = $1 AND subscriber_id = $2`, id, subscriberID))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

func (r *PGRepo) ListBySubscriber(ctx context.Context, subscriberID string, limit int) ([]Record, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT `+recordColumns+`
FROM rankings
WHERE subscriber_id = $1
ORDER BY created_at DESC
LIMIT $2`, subscriberID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *PGRepo) Complete(ctx context.Context, id string, results []ResumeScore, at time.Time) error {
	encoded, err := marshalJSON(results, "[]")
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, `
UPDATE rankings
SET status = $2, results = $3::jsonb, error_message = NULL, updated_at = $4, completed_at = $4
WHERE id = $1 AND status = 'processing'`, id, string(StatusCompleted), encoded, at)
	return r.checkTransition(ctx, id, res, err)
}

func (r *PGRepo) Fail(ctx context.Context, id, message string, at time.Time) error {
	res, err := r.DB.ExecContext(ctx, `
UPDATE rankings
SET status = $2, error_message = $3, updated_at = $4, completed_at = $4
WHERE id = $1 AND status = 'processing'`, id, string(StatusFailed), message, at)
	return r.checkTransition(ctx, id, res, err)
}

func (r *PGRepo) checkTransition(ctx context.Context, id string, res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var status string
	err = r.DB.QueryRowContext(ctx, `SELECT status FROM rankings WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrAlreadyTerminal
}

func (r *PGRepo) Delete(ctx context.Context, subscriberID, id string) error {
	res, err := r.DB.ExecContext(ctx, `
DELETE FROM rankings
WHERE id = $1 AND subscriber_id = $2 AND status <> 'processing'`, id, subscriberID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var status string
	err = r.DB.QueryRowContext(ctx, `
SELECT status FROM rankings WHERE id = $1 AND subscriber_id = $2`, id, subscriberID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrStillProcessing
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec           Record
		reservationID sql.NullString
		resumeIDs     []byte
		results       []byte
		status        string
		errorMessage  sql.NullString
		completedAt   sql.NullTime
	)
	err := row.Scan(&rec.ID, &rec.SubscriberID, &rec.JobDescriptionID, &rec.JobTitle, &reservationID,
		&resumeIDs, &results, &status, &errorMessage, &rec.CreatedAt, &rec.UpdatedAt, &completedAt)
	if err != nil {
		return Record{}, err
	}
	rec.ReservationID = reservationID.String
	rec.Status = Status(status)
	rec.Error = errorMessage.String
	if completedAt.Valid {
		at := completedAt.Time
		rec.CompletedAt = &at
	}
	if len(resumeIDs) > 0 {
		if err := json.Unmarshal(resumeIDs, &rec.ResumeIDs); err != nil {
			return Record{}, err
		}
	}
	if len(results) > 0 {
		if err := json.Unmarshal(results, &rec.Results); err != nil {
			return Record{}, err
		}
	}
	return rec, nil
}

func marshalJSON(v any, empty string) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return empty, nil
	}
	return string(b), nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
