package cvversions

import "context"

// Repo persists artifact rows. Object payloads live in the object store and
// must be written before a row referencing them is inserted.
type Repo interface {
	GetOriginal(ctx context.Context, userID string) (Artifact, error)
	GetLatestTailored(ctx context.Context, userID, company string) (Artifact, error)
	ListTailored(ctx context.Context, userID, company string) ([]Artifact, error)
	// InsertTailored assigns the next version for (user, company) and returns
	// the stored artifact. Version allocation is serialized per key.
	InsertTailored(ctx context.Context, a Artifact) (Artifact, error)
	// UpsertOriginal creates or replaces the user's original CV.
	UpsertOriginal(ctx context.Context, a Artifact) (Artifact, error)
}
