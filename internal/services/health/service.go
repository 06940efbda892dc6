package health

import (
	"context"
	"sort"
	"time"
)

const defaultCheckTimeout = 2 * time.Second

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

// Report is the health payload.
type Report struct {
	OK          bool              `json:"ok"`
	Env         string            `json:"env,omitempty"`
	RecordStore string            `json:"recordStore,omitempty"`
	ObjectStore string            `json:"objectStore,omitempty"`
	Checks      map[string]string `json:"checks,omitempty"`
}

// Service encapsulates health-related checks.
type Service struct {
	Env         string
	RecordStore string
	ObjectStore string
	Timeout     time.Duration

	checks map[string]Check
}

// NewService constructs a new health service.
func NewService(env, recordStore, objectStore string) *Service {
	return &Service{
		Env:         env,
		RecordStore: recordStore,
		ObjectStore: objectStore,
		Timeout:     defaultCheckTimeout,
		checks:      map[string]Check{},
	}
}

// Register adds a named dependency check. Nil checks are ignored.
func (s *Service) Register(name string, check Check) {
	if s == nil || check == nil {
		return
	}
	s.checks[name] = check
}

// Status runs every registered check and reports "ok" or the error text per dependency.
func (s *Service) Status(ctx context.Context) Report {
	if s == nil {
		return Report{OK: true}
	}
	report := Report{
		OK:          true,
		Env:         s.Env,
		RecordStore: s.RecordStore,
		ObjectStore: s.ObjectStore,
	}
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
		checkCtx, cancel := context.WithTimeout(ctx, s.Timeout)
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
