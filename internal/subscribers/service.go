package subscribers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"talentranker/internal/plans"
	"talentranker/internal/shared/telemetry"
)

type Service struct {
	Repo          Repo
	Plans         plans.Repo
	DefaultPlanID string
}

func NewService(repo Repo, planRepo plans.Repo, defaultPlanID string) *Service {
	return &Service{Repo: repo, Plans: planRepo, DefaultPlanID: defaultPlanID}
}

// Ensure returns the subscriber, provisioning it on the default plan on first sight.
func (s *Service) Ensure(ctx context.Context, id, email string) (Subscriber, error) {
	if s == nil || s.Repo == nil {
		return Subscriber{}, errors.New("subscribers service not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Subscriber{}, errors.New("subscriber id is required")
	}
	existing, err := s.Repo.GetByID(ctx, id)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Subscriber{}, err
	}
	created, err := s.Repo.Create(ctx, Subscriber{ID: id, Email: email, PlanID: s.DefaultPlanID})
	if err != nil {
		return Subscriber{}, fmt.Errorf("provision subscriber: %w", err)
	}
	telemetry.Info("subscriber.provisioned", map[string]any{
		"subscriber_id": id,
		"plan_id":       created.PlanID,
	})
	return created, nil
}

// PlanFor resolves the active plan bound to the subscriber.
func (s *Service) PlanFor(ctx context.Context, subscriberID string) (plans.Plan, error) {
	sub, err := s.Repo.GetByID(ctx, subscriberID)
	if err != nil {
		return plans.Plan{}, err
	}
	if sub.PlanID == "" || s.Plans == nil {
		return plans.Plan{}, plans.ErrNoActivePlan
	}
	p, err := s.Plans.Get(ctx, sub.PlanID)
	if err != nil {
		if errors.Is(err, plans.ErrNotFound) {
			return plans.Plan{}, plans.ErrNoActivePlan
		}
		return plans.Plan{}, err
	}
	if !p.IsActive {
		return plans.Plan{}, plans.ErrNoActivePlan
	}
	return p, nil
}
