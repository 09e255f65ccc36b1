package subscribers

import "time"

// Subscriber is an authenticated account bound to a plan. Usage counters are
// owned by the ledger.
type Subscriber struct {
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	PlanID    string    `json:"planId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
