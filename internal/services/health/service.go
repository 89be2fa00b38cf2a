package health

import (
	"context"
	"sort"
	"time"
)

const checkTimeout = 2 * time.Second

// Checker probes one dependency.
type Checker func(ctx context.Context) error

// Service encapsulates health-related checks.
type Service struct {
	checks map[string]Checker
}

// NewService constructs a new health service.
func NewService() *Service {
	return &Service{checks: map[string]Checker{}}
}

// Register adds a named dependency probe. A nil checker is ignored.
func (s *Service) Register(name string, check Checker) {
	if check == nil {
		return
	}
	s.checks[name] = check
}

// Status runs every probe and reports ok only when all of them pass.
func (s *Service) Status(ctx context.Context) (bool, map[string]string) {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	ok := true
	out := make(map[string]string, len(names))
	for _, name := range names {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := s.checks[name](cctx)
		cancel()
		if err != nil {
			ok = false
			out[name] = err.Error()
			continue
		}
		out[name] = "ok"
	}
	return ok, out
}
