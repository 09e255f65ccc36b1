package plans

import "context"

// Repo reads the plan catalog.
type Repo interface {
	Get(ctx context.Context, id string) (Plan, error)
	List(ctx context.Context) ([]Plan, error)
}

// DefaultCatalog is the seeded plan set. It mirrors migration 00002_seed_plans.
func DefaultCatalog() []Plan {
	return []Plan{
		{ID: "freemium", Name: "Freemium", JDLimit: IntPtr(1), CVLimit: IntPtr(10), IsActive: true},
		{ID: "starter-intl-monthly", Name: "Starter", Region: "intl", BillingCycle: "monthly", JDLimit: IntPtr(10), CVLimit: IntPtr(1000), IsActive: true},
		{ID: "growth-intl-monthly", Name: "Growth", Region: "intl", BillingCycle: "monthly", JDLimit: IntPtr(25), CVLimit: IntPtr(2500), IsActive: true},
		{ID: "pro-intl-monthly", Name: "Pro", Region: "intl", BillingCycle: "monthly", JDLimit: IntPtr(50), CVLimit: IntPtr(5000), IsActive: true},
		{ID: "enterprise", Name: "Enterprise", JDLimit: IntPtr(Unlimited), CVLimit: IntPtr(Unlimited), IsActive: true},
	}
}
