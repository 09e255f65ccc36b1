package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) CreateBatch(ctx context.Context, batch Batch) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if jd := batch.JobDescription; jd != nil {
		if _, err = tx.ExecContext(ctx, `
INSERT INTO job_descriptions (id, subscriber_id, title, description, content, storage_key, status, ranked_count, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			jd.ID, jd.SubscriberID, jd.Title, jd.Description, jd.Content, jd.StorageKey,
			string(jd.Status), jd.RankedCount, jd.CreatedAt, jd.UpdatedAt); err != nil {
			return err
		}
	}
	for _, res := range batch.Resumes {
		if _, err = tx.ExecContext(ctx, `
INSERT INTO resumes (id, subscriber_id, filename, content, size_bytes, storage_key, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			res.ID, res.SubscriberID, res.Filename, res.Content, res.SizeBytes, res.StorageKey,
			string(res.Status), res.CreatedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

const jdColumns = `id, subscriber_id, title, description, content, storage_key, status, ranked_count, created_at, updated_at`

func (r *PGRepo) GetJobDescription(ctx context.Context, subscriberID, id string) (JobDescription, error) {
	jd, err := scanJobDescription(r.DB.QueryRowContext(ctx, `
SELECT `+jdColumns+`
FROM job_descriptions
WHERE id = $1 AND subscriber_id = $2`, id, subscriberID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return JobDescription{}, ErrNotFound
		}
		return JobDescription{}, err
	}
	return jd, nil
}

func (r *PGRepo) ListJobDescriptions(ctx context.Context, subscriberID string, limit int) ([]JobDescription, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT `+jdColumns+`
FROM job_descriptions
WHERE subscriber_id = $1
ORDER BY created_at DESC
LIMIT $2`, subscriberID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []JobDescription
	for rows.Next() {
		jd, err := scanJobDescription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, jd)
	}
	return out, rows.Err()
}

func (r *PGRepo) SetJobDescriptionStatus(ctx context.Context, subscriberID, id string, status Status) error {
	res, err := r.DB.ExecContext(ctx, `
UPDATE job_descriptions SET status = $3, updated_at = now()
WHERE id = $1 AND subscriber_id = $2`, id, subscriberID, string(status))
	return expectOneRow(res, err)
}

func (r *PGRepo) IncrementRankedCount(ctx context.Context, id string, n int) error {
	res, err := r.DB.ExecContext(ctx, `
UPDATE job_descriptions SET ranked_count = ranked_count + $2, updated_at = now()
WHERE id = $1`, id, n)
	return expectOneRow(res, err)
}

const resumeColumns = `id, subscriber_id, filename, content, size_bytes, storage_key, status, created_at`

func (r *PGRepo) GetResumes(ctx context.Context, subscriberID string, ids []string) ([]Resume, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	encoded, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx, `
SELECT `+resumeColumns+`
FROM resumes
WHERE subscriber_id = $1
  AND id::text IN (SELECT jsonb_array_elements_text($2::jsonb))`, subscriberID, string(encoded))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[string]Resume, len(ids))
	for rows.Next() {
		res, err := scanResume(rows)
		if err != nil {
			return nil, err
		}
		byID[res.ID] = res
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]Resume, 0, len(byID))
	for _, id := range ids {
		if res, ok := byID[id]; ok {
			out = append(out, res)
		}
	}
	return out, nil
}

func (r *PGRepo) ListResumes(ctx context.Context, subscriberID string, limit int) ([]Resume, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT `+resumeColumns+`
FROM resumes
WHERE subscriber_id = $1
ORDER BY created_at DESC
LIMIT $2`, subscriberID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Resume
	for rows.Next() {
		res, err := scanResume(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *PGRepo) SetResumeStatus(ctx context.Context, subscriberID, id string, status Status) error {
	res, err := r.DB.ExecContext(ctx, `
UPDATE resumes SET status = $3
WHERE id = $1 AND subscriber_id = $2`, id, subscriberID, string(status))
	return expectOneRow(res, err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJobDescription(row rowScanner) (JobDescription, error) {
	var jd JobDescription
	var status string
	err := row.Scan(&jd.ID, &jd.SubscriberID, &jd.Title, &jd.Description, &jd.Content, &jd.StorageKey,
		&status, &jd.RankedCount, &jd.CreatedAt, &jd.UpdatedAt)
	if err != nil {
		return JobDescription{}, err
	}
	jd.Status = Status(status)
	return jd, nil
}

func scanResume(row rowScanner) (Resume, error) {
	var res Resume
	var status string
	err := row.Scan(&res.ID, &res.SubscriberID, &res.Filename, &res.Content, &res.SizeBytes, &res.StorageKey,
		&status, &res.CreatedAt)
	if err != nil {
		return Resume{}, err
	}
	res.Status = Status(status)
	return res, nil
}

func expectOneRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
