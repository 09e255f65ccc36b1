package ledger

import (
	"errors"
	"fmt"

	"talentranker/internal/plans"
)

var (
	ErrReservationNotFound  = errors.New("reservation not found")
	ErrReservationReleased  = errors.New("reservation already released")
	ErrReservationCommitted = errors.New("reservation already committed")
	ErrReservationBound     = errors.New("reservation bound to a ranking")
	ErrSubscriberNotFound   = errors.New("subscriber not found")
	ErrInvalidDelta         = errors.New("reservation deltas must be non-negative and not both zero")
)

// QuotaExceededError reports a reservation that would exceed the plan cap.
type QuotaExceededError struct {
	Dimension plans.Dimension
	Limit     int
	Current   int
	Requested int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s: limit=%d current=%d requested=%d", e.Dimension, e.Limit, e.Current, e.Requested)
}

// checkQuota is evaluated under the subscriber lock by every store.
// Current counts committed usage plus pending reservations.
func checkQuota(limits Limits, usage Usage, jdDelta, cvDelta int) error {
	if jdDelta > 0 && limits.JD != plans.Unlimited {
		current := usage.JDUsed + usage.JDPending
		if limits.JD-current < jdDelta {
			return &QuotaExceededError{Dimension: plans.DimensionJD, Limit: limits.JD, Current: current, Requested: jdDelta}
		}
	}
	if cvDelta > 0 && limits.CV != plans.Unlimited {
		current := usage.CVUsed + usage.CVPending
		if limits.CV-current < cvDelta {
			return &QuotaExceededError{Dimension: plans.DimensionCV, Limit: limits.CV, Current: current, Requested: cvDelta}
		}
	}
	return nil
}
