package ledger

import (
	"time"

	"talentranker/internal/plans"
)

type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusCommitted ReservationStatus = "committed"
	StatusReleased  ReservationStatus = "released"
)

// Reservation holds quota for an in-flight ranking until it is committed or released.
// RankingID is set once the ranking's documents are persisted; bound
// reservations are settled by their ranking and never reaped.
type Reservation struct {
	ID           string            `json:"id"`
	SubscriberID string            `json:"subscriberId"`
	JDDelta      int               `json:"jdDelta"`
	CVDelta      int               `json:"cvDelta"`
	Status       ReservationStatus `json:"status"`
	RankingID    string            `json:"rankingId,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	SettledAt    *time.Time        `json:"settledAt,omitempty"`
}

func (r Reservation) Bound() bool { return r.RankingID != "" }

// Usage is a subscriber's committed and pending consumption.
type Usage struct {
	SubscriberID string
	JDUsed       int
	CVUsed       int
	JDPending    int
	CVPending    int
}

// Limits are the caps applied at reserve time. plans.Unlimited disables a cap.
type Limits struct {
	JD int
	CV int
}

// LimitsFor derives reserve-time caps from a plan.
func LimitsFor(p plans.Plan) Limits {
	return Limits{JD: p.Limit(plans.DimensionJD), CV: p.Limit(plans.DimensionCV)}
}

// DimensionSummary describes one metered dimension for the usage endpoint.
type DimensionSummary struct {
	Limit     *int `json:"limit"`
	Used      int  `json:"used"`
	Pending   int  `json:"pending"`
	Remaining *int `json:"remaining"`
	Unlimited bool `json:"unlimited"`
}

// Summary is the usage endpoint payload.
type Summary struct {
	PlanID   string           `json:"planId"`
	PlanName string           `json:"planName"`
	JD       DimensionSummary `json:"jd"`
	CV       DimensionSummary `json:"cv"`
}

func summarize(limit, used, pending int) DimensionSummary {
	d := DimensionSummary{Used: used, Pending: pending}
	if limit == plans.Unlimited {
		d.Unlimited = true
		return d
	}
	remaining := limit - used - pending
	if remaining < 0 {
		remaining = 0
	}
	d.Limit = &limit
	d.Remaining = &remaining
	return d
}
