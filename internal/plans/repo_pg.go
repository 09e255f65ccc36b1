package plans

import (
	"context"
	"database/sql"
	"errors"
)

type PGRepo struct {
	DB *sql.DB
}

const planColumns = `id, name, region, billing_cycle, jd_limit, cv_limit, is_active`

func (r *PGRepo) Get(ctx context.Context, id string) (Plan, error) {
	row := r.DB.QueryRowContext(ctx, `
SELECT `+planColumns+`
FROM plans
WHERE id = $1`, id)
	p, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Plan{}, ErrNotFound
		}
		return Plan{}, err
	}
	return p, nil
}

func (r *PGRepo) List(ctx context.Context) ([]Plan, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT `+planColumns+`
FROM plans
ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (Plan, error) {
	var p Plan
	var jdLimit, cvLimit sql.NullInt64
	if err := row.Scan(&p.ID, &p.Name, &p.Region, &p.BillingCycle, &jdLimit, &cvLimit, &p.IsActive); err != nil {
		return Plan{}, err
	}
	if jdLimit.Valid {
		p.JDLimit = IntPtr(int(jdLimit.Int64))
	}
	if cvLimit.Valid {
		p.CVLimit = IntPtr(int(cvLimit.Int64))
	}
	return p, nil
}
