package plans

import (
	"errors"
	"strings"
)

// Unlimited is the limit sentinel for an uncapped dimension.
const Unlimited = -1

// Dimension is a metered quantity.
type Dimension string

const (
	DimensionJD Dimension = "jd"
	DimensionCV Dimension = "cv"
)

const enterpriseName = "Enterprise"

var (
	ErrNotFound     = errors.New("plan not found")
	ErrNoActivePlan = errors.New("no active plan")
)

// Plan caps how many job descriptions and resumes a subscriber may process.
// A nil limit or the Unlimited sentinel means no cap.
type Plan struct {
	ID           string `json:"id" validate:"required"`
	Name         string `json:"name" validate:"required,oneof=Freemium Starter Growth Pro Enterprise"`
	Region       string `json:"region,omitempty"`
	BillingCycle string `json:"billingCycle,omitempty"`
	JDLimit      *int   `json:"jdLimit" validate:"omitempty,min=-1"`
	CVLimit      *int   `json:"cvLimit" validate:"omitempty,min=-1"`
	IsActive     bool   `json:"isActive"`
}

// IsUnlimited reports whether d is uncapped on this plan.
func (p Plan) IsUnlimited(d Dimension) bool {
	if strings.EqualFold(p.Name, enterpriseName) {
		return true
	}
	limit := p.rawLimit(d)
	return limit == nil || *limit == Unlimited
}

// Limit returns the cap for d, or Unlimited.
func (p Plan) Limit(d Dimension) int {
	if p.IsUnlimited(d) {
		return Unlimited
	}
	return *p.rawLimit(d)
}

func (p Plan) rawLimit(d Dimension) *int {
	switch d {
	case DimensionJD:
		return p.JDLimit
	case DimensionCV:
		return p.CVLimit
	default:
		return nil
	}
}

// IntPtr is a helper for building plan literals.
func IntPtr(v int) *int { return &v }
