package applied

import (
	"context"
	"sort"
	"sync"
)

type flagKey struct {
	userID  string
	company string
	jobID   string
}

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu    sync.RWMutex
	flags map[flagKey]Flag
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{flags: make(map[flagKey]Flag)}
}

func (r *MemoryRepo) Upsert(ctx context.Context, f Flag) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flags[flagKey{f.UserID, f.Company, f.JobID}] = f
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, userID, company, jobID string) (Flag, bool, error) {
	if err := ctx.Err(); err != nil {
		return Flag{}, false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.flags[flagKey{userID, company, jobID}]
	return f, ok, nil
}

func (r *MemoryRepo) List(ctx context.Context, userID string) ([]Flag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := []Flag{}
	for k, f := range r.flags {
		if k.userID == userID {
			out = append(out, f)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Company != out[j].Company {
			return out[i].Company < out[j].Company
		}
		return out[i].JobID < out[j].JobID
	})
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)
