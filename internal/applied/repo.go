package applied

import "context"

// Repo persists applied flags keyed by (user, company, job id).
type Repo interface {
	Upsert(ctx context.Context, f Flag) error
	Get(ctx context.Context, userID, company, jobID string) (Flag, bool, error)
	List(ctx context.Context, userID string) ([]Flag, error)
}
