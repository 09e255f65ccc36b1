package health

import (
	"context"
	"sort"
	"time"
)

// Checker reports whether a dependency is reachable.
type Checker func(ctx context.Context) error

// Service encapsulates health-related checks.
type Service struct {
	checks  map[string]Checker
	timeout time.Duration
}

// Report is the health payload.
type Report struct {
	OK     bool              `json:"ok"`
	Checks map[string]string `json:"checks,omitempty"`
}

// NewService constructs a new health service.
func NewService() *Service {
	return &Service{checks: make(map[string]Checker), timeout: 2 * time.Second}
}

// Register adds a named dependency check. A nil checker is ignored.
func (s *Service) Register(name string, check Checker) {
	if check == nil {
		return
	}
	s.checks[name] = check
}

// Status runs every registered check and reports the aggregate state.
func (s *Service) Status(ctx context.Context) Report {
	report := Report{OK: true}
	if len(s.checks) == 0 {
		return report
	}
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	report.Checks = make(map[string]string, len(names))
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err := s.checks[name](checkCtx)
		cancel()
		if err != nil {
			report.OK = false
			report.Checks[name] = err.Error()
			continue
		}
		report.Checks[name] = "ok"
	}
	return report
}
