package subscribers

import (
	"context"
	"database/sql"
	"errors"
)

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, s Subscriber) (Subscriber, error) {
	const query = `
INSERT INTO subscribers (id, email, plan_id, created_at, updated_at)
VALUES ($1, $2, $3, now(), now())
ON CONFLICT (id) DO NOTHING`
	if _, err := r.DB.ExecContext(ctx, query, s.ID, s.Email, nullableString(s.PlanID)); err != nil {
		return Subscriber{}, err
	}
	return r.GetByID(ctx, s.ID)
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Subscriber, error) {
	const query = `
SELECT id, email, plan_id, created_at, updated_at
FROM subscribers
WHERE id = $1
LIMIT 1`
	var s Subscriber
	var planID sql.NullString
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.Email, &planID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Subscriber{}, ErrNotFound
		}
		return Subscriber{}, err
	}
	if planID.Valid {
		s.PlanID = planID.String
	}
	return s, nil
}

func (r *PGRepo) SetPlan(ctx context.Context, id, planID string) error {
	res, err := r.DB.ExecContext(ctx, `
UPDATE subscribers SET plan_id = $2, updated_at = now() WHERE id = $1`, id, nullableString(planID))
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

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
