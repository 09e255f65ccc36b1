package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGStore keeps counters on the subscribers row and reservations in
// ledger_reservations. Every mutation locks the subscribers row first.
type PGStore struct {
	DB *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{DB: db}
}

func (s *PGStore) Reserve(ctx context.Context, r Reservation, limits Limits) (err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	usage, err := lockUsage(ctx, tx, r.SubscriberID)
	if err != nil {
		return err
	}
	if err = checkQuota(limits, usage, r.JDDelta, r.CVDelta); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `
INSERT INTO ledger_reservations (id, subscriber_id, jd_delta, cv_delta, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, r.SubscriberID, r.JDDelta, r.CVDelta, string(StatusPending), r.CreatedAt); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PGStore) Commit(ctx context.Context, reservationID string, at time.Time) (Reservation, error) {
	return s.settle(ctx, reservationID, at, StatusCommitted, true)
}

func (s *PGStore) Release(ctx context.Context, reservationID string, at time.Time) (Reservation, error) {
	return s.settle(ctx, reservationID, at, StatusReleased, true)
}

func (s *PGStore) Expire(ctx context.Context, reservationID string, at time.Time) (Reservation, error) {
	return s.settle(ctx, reservationID, at, StatusReleased, false)
}

func (s *PGStore) settle(ctx context.Context, reservationID string, at time.Time, target ReservationStatus, allowBound bool) (res Reservation, err error) {
	subscriberID, err := s.subscriberFor(ctx, reservationID)
	if err != nil {
		return Reservation{}, err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Reservation{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = lockUsage(ctx, tx, subscriberID); err != nil {
		return Reservation{}, err
	}
	res, err = scanReservation(tx.QueryRowContext(ctx, `
SELECT id, subscriber_id, jd_delta, cv_delta, status, ranking_id, created_at, settled_at
FROM ledger_reservations
WHERE id = $1
FOR UPDATE`, reservationID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrReservationNotFound
		}
		return Reservation{}, err
	}

	if !allowBound && res.Status == StatusPending && res.Bound() {
		tx.Rollback()
		err = ErrReservationBound
		return res, err
	}
	if res.Status != StatusPending {
		tx.Rollback()
		err = settledError(res.Status, target)
		return res, err
	}

	if target == StatusCommitted {
		if _, err = tx.ExecContext(ctx, `
UPDATE subscribers
SET jd_used = jd_used + $2, cv_used = cv_used + $3, updated_at = $4
WHERE id = $1`, subscriberID, res.JDDelta, res.CVDelta, at); err != nil {
			return Reservation{}, err
		}
	}
	if _, err = tx.ExecContext(ctx, `
UPDATE ledger_reservations SET status = $2, settled_at = $3 WHERE id = $1`,
		reservationID, string(target), at); err != nil {
		return Reservation{}, err
	}
	if err = tx.Commit(); err != nil {
		return Reservation{}, err
	}
	res.Status = target
	res.SettledAt = &at
	return res, nil
}

// settledError maps a repeat settle to nil (same outcome) or a conflict.
func settledError(current, target ReservationStatus) error {
	switch {
	case current == target:
		return nil
	case current == StatusReleased:
		return ErrReservationReleased
	default:
		return ErrReservationCommitted
	}
}

func (s *PGStore) subscriberFor(ctx context.Context, reservationID string) (string, error) {
	var subscriberID string
	err := s.DB.QueryRowContext(ctx, `
SELECT subscriber_id FROM ledger_reservations WHERE id = $1`, reservationID).Scan(&subscriberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrReservationNotFound
		}
		return "", err
	}
	return subscriberID, nil
}

// Bind only touches pending rows; a settled reservation reports how it was settled.
func (s *PGStore) Bind(ctx context.Context, reservationID, rankingID string) (Reservation, error) {
	res, err := scanReservation(s.DB.QueryRowContext(ctx, `
UPDATE ledger_reservations SET ranking_id = $2
WHERE id = $1 AND status = 'pending'
RETURNING id, subscriber_id, jd_delta, cv_delta, status, ranking_id, created_at, settled_at`,
		reservationID, rankingID))
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Reservation{}, err
	}
	current, err := s.Get(ctx, reservationID)
	if err != nil {
		return Reservation{}, err
	}
	return current, settledError(current.Status, StatusPending)
}

func (s *PGStore) Get(ctx context.Context, reservationID string) (Reservation, error) {
	res, err := scanReservation(s.DB.QueryRowContext(ctx, `
SELECT id, subscriber_id, jd_delta, cv_delta, status, ranking_id, created_at, settled_at
FROM ledger_reservations
WHERE id = $1`, reservationID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Reservation{}, ErrReservationNotFound
		}
		return Reservation{}, err
	}
	return res, nil
}

func (s *PGStore) Usage(ctx context.Context, subscriberID string) (Usage, error) {
	return readUsage(ctx, s.DB, subscriberID, "")
}

func (s *PGStore) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]Reservation, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, subscriber_id, jd_delta, cv_delta, status, ranking_id, created_at, settled_at
FROM ledger_reservations
WHERE status = 'pending' AND ranking_id IS NULL AND created_at < $1
ORDER BY created_at ASC
LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func lockUsage(ctx context.Context, tx *sql.Tx, subscriberID string) (Usage, error) {
	return readUsage(ctx, tx, subscriberID, " FOR UPDATE")
}

func readUsage(ctx context.Context, q queryer, subscriberID, lockClause string) (Usage, error) {
	u := Usage{SubscriberID: subscriberID}
	err := q.QueryRowContext(ctx, `
SELECT jd_used, cv_used FROM subscribers WHERE id = $1`+lockClause, subscriberID).Scan(&u.JDUsed, &u.CVUsed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Usage{}, ErrSubscriberNotFound
		}
		return Usage{}, err
	}
	err = q.QueryRowContext(ctx, `
SELECT COALESCE(SUM(jd_delta), 0), COALESCE(SUM(cv_delta), 0)
FROM ledger_reservations
WHERE subscriber_id = $1 AND status = 'pending'`, subscriberID).Scan(&u.JDPending, &u.CVPending)
	if err != nil {
		return Usage{}, err
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (Reservation, error) {
	var res Reservation
	var status string
	var rankingID sql.NullString
	var settledAt sql.NullTime
	if err := row.Scan(&res.ID, &res.SubscriberID, &res.JDDelta, &res.CVDelta, &status, &rankingID, &res.CreatedAt, &settledAt); err != nil {
		return Reservation{}, err
	}
	res.Status = ReservationStatus(status)
	res.RankingID = rankingID.String
	if settledAt.Valid {
		t := settledAt.Time
		res.SettledAt = &t
	}
	return res, nil
}
