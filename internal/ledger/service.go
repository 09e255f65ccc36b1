package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"talentranker/internal/plans"
	"talentranker/internal/shared/metrics"
	"talentranker/internal/shared/telemetry"
)

// PlanResolver returns the active plan bound to a subscriber.
type PlanResolver interface {
	PlanFor(ctx context.Context, subscriberID string) (plans.Plan, error)
}

// Service is the quota ledger: the only writer of usage counters.
type Service struct {
	Store  Store
	Plans  PlanResolver
	MaxAge time.Duration
	Now    func() time.Time
}

func NewService(store Store, resolver PlanResolver, maxAge time.Duration) *Service {
	return &Service{Store: store, Plans: resolver, MaxAge: maxAge, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// Reserve holds jdDelta/cvDelta credits against the subscriber's plan.
func (s *Service) Reserve(ctx context.Context, subscriberID string, jdDelta, cvDelta int) (Reservation, error) {
	if jdDelta < 0 || cvDelta < 0 || jdDelta+cvDelta == 0 {
		return Reservation{}, ErrInvalidDelta
	}
	plan, err := s.Plans.PlanFor(ctx, subscriberID)
	if err != nil {
		metrics.IncLedger("reserve", "no_plan")
		return Reservation{}, err
	}

	r := Reservation{
		ID:           uuid.NewString(),
		SubscriberID: subscriberID,
		JDDelta:      jdDelta,
		CVDelta:      cvDelta,
		Status:       StatusPending,
		CreatedAt:    s.now(),
	}
	if err := s.Store.Reserve(ctx, r, LimitsFor(plan)); err != nil {
		var quotaErr *QuotaExceededError
		if errors.As(err, &quotaErr) {
			metrics.IncLedger("reserve", "quota_exceeded")
			telemetry.Info("ledger.reserve.rejected", map[string]any{
				"subscriber_id": subscriberID,
				"dimension":     string(quotaErr.Dimension),
				"limit":         quotaErr.Limit,
				"current":       quotaErr.Current,
				"requested":     quotaErr.Requested,
			})
			return Reservation{}, err
		}
		metrics.IncLedger("reserve", "error")
		return Reservation{}, err
	}
	metrics.IncLedger("reserve", "ok")
	telemetry.Info("ledger.reserve", map[string]any{
		"subscriber_id":  subscriberID,
		"reservation_id": r.ID,
		"jd_delta":       jdDelta,
		"cv_delta":       cvDelta,
		"plan_id":        plan.ID,
	})
	return r, nil
}

// Commit applies the reservation to the counters. Repeated commits succeed without effect.
func (s *Service) Commit(ctx context.Context, reservationID string) error {
	r, err := s.Store.Commit(ctx, reservationID, s.now())
	if err != nil {
		metrics.IncLedger("commit", outcomeFor(err))
		telemetry.Warn("ledger.commit.failed", map[string]any{
			"reservation_id": reservationID,
			"error":          err,
		})
		return err
	}
	metrics.IncLedger("commit", "ok")
	telemetry.Info("ledger.commit", map[string]any{
		"subscriber_id":  r.SubscriberID,
		"reservation_id": r.ID,
		"jd_delta":       r.JDDelta,
		"cv_delta":       r.CVDelta,
	})
	return nil
}

// Release discards a pending reservation without touching counters.
func (s *Service) Release(ctx context.Context, reservationID string) error {
	r, err := s.Store.Release(ctx, reservationID, s.now())
	if err != nil {
		metrics.IncLedger("release", outcomeFor(err))
		return err
	}
	metrics.IncLedger("release", "ok")
	telemetry.Info("ledger.release", map[string]any{
		"subscriber_id":  r.SubscriberID,
		"reservation_id": r.ID,
	})
	return nil
}

// Bind marks the reservation as owned by a ranking record. Bound reservations
// are settled only through Commit or Release.
func (s *Service) Bind(ctx context.Context, reservationID, rankingID string) error {
	r, err := s.Store.Bind(ctx, reservationID, rankingID)
	if err != nil {
		metrics.IncLedger("bind", outcomeFor(err))
		return err
	}
	metrics.IncLedger("bind", "ok")
	telemetry.Info("ledger.bind", map[string]any{
		"subscriber_id":  r.SubscriberID,
		"reservation_id": r.ID,
		"ranking_id":     rankingID,
	})
	return nil
}

// ReapExpired releases unbound pending reservations older than MaxAge.
func (s *Service) ReapExpired(ctx context.Context) (int, error) {
	if s.MaxAge <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.MaxAge)
	expired, err := s.Store.ListExpired(ctx, cutoff, 100)
	if err != nil {
		return 0, err
	}
	released := 0
	for _, r := range expired {
		if err := ctx.Err(); err != nil {
			return released, err
		}
		_, err := s.Store.Expire(ctx, r.ID, s.now())
		if err != nil {
			if errors.Is(err, ErrReservationCommitted) || errors.Is(err, ErrReservationBound) {
				continue
			}
			return released, err
		}
		released++
		metrics.IncLedger("reap", "ok")
		telemetry.Warn("ledger.reservation.reaped", map[string]any{
			"subscriber_id":  r.SubscriberID,
			"reservation_id": r.ID,
			"age_ms":         s.now().Sub(r.CreatedAt).Milliseconds(),
		})
	}
	return released, nil
}

// Summary reports plan limits against committed and pending usage.
func (s *Service) Summary(ctx context.Context, subscriberID string) (Summary, error) {
	plan, err := s.Plans.PlanFor(ctx, subscriberID)
	if err != nil {
		return Summary{}, err
	}
	usage, err := s.Store.Usage(ctx, subscriberID)
	if err != nil {
		if !errors.Is(err, ErrSubscriberNotFound) {
			return Summary{}, err
		}
		usage = Usage{SubscriberID: subscriberID}
	}
	limits := LimitsFor(plan)
	return Summary{
		PlanID:   plan.ID,
		PlanName: plan.Name,
		JD:       summarize(limits.JD, usage.JDUsed, usage.JDPending),
		CV:       summarize(limits.CV, usage.CVUsed, usage.CVPending),
	}, nil
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, ErrReservationNotFound):
		return "not_found"
	case errors.Is(err, ErrReservationReleased):
		return "released"
	case errors.Is(err, ErrReservationCommitted):
		return "committed"
	case errors.Is(err, ErrReservationBound):
		return "bound"
	default:
		return "error"
	}
}
