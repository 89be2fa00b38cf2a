package cvversions

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu       sync.RWMutex
	original map[string]Artifact
	tailored map[tailoredKey][]Artifact // ordered by version
}

type tailoredKey struct {
	userID  string
	company string
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		original: make(map[string]Artifact),
		tailored: make(map[tailoredKey][]Artifact),
	}
}

func (r *MemoryRepo) GetOriginal(ctx context.Context, userID string) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.original[userID]
	if !ok {
		return Artifact{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepo) GetLatestTailored(ctx context.Context, userID, company string) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	versions := r.tailored[tailoredKey{userID, company}]
	if len(versions) == 0 {
		return Artifact{}, ErrNotFound
	}
	return versions[len(versions)-1], nil
}

// ListTailored returns versions newest first.
func (r *MemoryRepo) ListTailored(ctx context.Context, userID, company string) ([]Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	versions := r.tailored[tailoredKey{userID, company}]
	out := make([]Artifact, 0, len(versions))
	for i := len(versions) - 1; i >= 0; i-- {
		out = append(out, versions[i])
	}
	return out, nil
}

func (r *MemoryRepo) InsertTailored(ctx context.Context, a Artifact) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := tailoredKey{a.UserID, a.Company}
	versions := r.tailored[key]
	a.Kind = KindTailored
	a.Version = len(versions) + 1
	r.tailored[key] = append(versions, a)
	return a, nil
}

func (r *MemoryRepo) UpsertOriginal(ctx context.Context, a Artifact) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a.Kind = KindOriginal
	a.Company = ""
	a.Version = r.original[a.UserID].Version + 1
	r.original[a.UserID] = a
	return a, nil
}

var _ Repo = (*MemoryRepo)(nil)
