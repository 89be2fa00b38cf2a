package applied

import (
	"context"
	"time"

	"cvtailor-backend/internal/normalize"
)

// Service normalizes keys the same way the JD cache does, so "Acme " and
// "acme" address the same flag.
type Service struct {
	Repo Repo
	Now  func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repo) *Service {
	return &Service{Repo: repo, Now: func() time.Time { return time.Now().UTC() }}
}

func keyOf(company, jobID string) (string, string, error) {
	c, j := normalize.Company(company), normalize.JobID(jobID)
	if c == "" || j == "" {
		return "", "", ErrInvalidInput
	}
	return c, j, nil
}

// Set records the applied state for a job.
func (s *Service) Set(ctx context.Context, userID, company, jobID string, applied bool) (Flag, error) {
	c, j, err := keyOf(company, jobID)
	if err != nil || userID == "" {
		return Flag{}, ErrInvalidInput
	}
	f := Flag{UserID: userID, Company: c, JobID: j, Applied: applied, UpdatedAt: s.Now()}
	if err := s.Repo.Upsert(ctx, f); err != nil {
		return Flag{}, err
	}
	return f, nil
}

// Get returns the flag, defaulting to not applied.
func (s *Service) Get(ctx context.Context, userID, company, jobID string) (Flag, error) {
	c, j, err := keyOf(company, jobID)
	if err != nil || userID == "" {
		return Flag{}, ErrInvalidInput
	}
	f, ok, err := s.Repo.Get(ctx, userID, c, j)
	if err != nil {
		return Flag{}, err
	}
	if !ok {
		return Flag{UserID: userID, Company: c, JobID: j}, nil
	}
	return f, nil
}

// List returns every flag the user has set.
func (s *Service) List(ctx context.Context, userID string) ([]Flag, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.List(ctx, userID)
}
