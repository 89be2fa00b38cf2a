package cvversions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const artifactColumns = `id, user_id, company, kind, version, structured_key, plain_text_key, created_at`

func (r *PGRepo) GetOriginal(ctx context.Context, userID string) (Artifact, error) {
	const query = `
SELECT ` + artifactColumns + `
FROM cv_artifacts
WHERE user_id = $1 AND kind = 'original'
LIMIT 1`
	return scanArtifact(r.DB.QueryRowContext(ctx, query, userID))
}

func (r *PGRepo) GetLatestTailored(ctx context.Context, userID, company string) (Artifact, error) {
	const query = `
SELECT ` + artifactColumns + `
FROM cv_artifacts
WHERE user_id = $1 AND company = $2 AND kind = 'tailored'
ORDER BY version DESC
LIMIT 1`
	return scanArtifact(r.DB.QueryRowContext(ctx, query, userID, company))
}

func (r *PGRepo) ListTailored(ctx context.Context, userID, company string) ([]Artifact, error) {
	const query = `
SELECT ` + artifactColumns + `
FROM cv_artifacts
WHERE user_id = $1 AND company = $2 AND kind = 'tailored'
ORDER BY version DESC`
	rows, err := r.DB.QueryContext(ctx, query, userID, company)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Artifact{}
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// InsertTailored takes a transaction-scoped advisory lock on (user, company)
// so concurrent writers queue for the next version. The partial unique index
// on (user_id, company, version) backs this up.
func (r *PGRepo) InsertTailored(ctx context.Context, a Artifact) (Artifact, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Artifact{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, a.UserID+"|"+a.Company); err != nil {
		return Artifact{}, fmt.Errorf("lock versions: %w", err)
	}

	var next int
	const nextQuery = `
SELECT COALESCE(MAX(version), 0) + 1
FROM cv_artifacts
WHERE user_id = $1 AND company = $2 AND kind = 'tailored'`
	if err := tx.QueryRowContext(ctx, nextQuery, a.UserID, a.Company).Scan(&next); err != nil {
		return Artifact{}, fmt.Errorf("next version: %w", err)
	}

	const insert = `
INSERT INTO cv_artifacts (` + artifactColumns + `)
VALUES ($1, $2, $3, 'tailored', $4, $5, $6, $7)`
	if _, err := tx.ExecContext(ctx, insert,
		a.ID,
		a.UserID,
		a.Company,
		next,
		a.StructuredKey,
		a.PlainTextKey,
		a.CreatedAt,
	); err != nil {
		return Artifact{}, err
	}
	if err := tx.Commit(); err != nil {
		return Artifact{}, err
	}

	a.Kind = KindTailored
	a.Version = next
	return a, nil
}

func (r *PGRepo) UpsertOriginal(ctx context.Context, a Artifact) (Artifact, error) {
	const query = `
INSERT INTO cv_artifacts (` + artifactColumns + `)
VALUES ($1, $2, NULL, 'original', 1, $3, $4, $5)
ON CONFLICT (user_id) WHERE kind = 'original'
DO UPDATE SET
    id = EXCLUDED.id,
    version = cv_artifacts.version + 1,
    structured_key = EXCLUDED.structured_key,
    plain_text_key = EXCLUDED.plain_text_key,
    created_at = EXCLUDED.created_at
RETURNING version`
	var version int
	if err := r.DB.QueryRowContext(ctx, query,
		a.ID,
		a.UserID,
		a.StructuredKey,
		a.PlainTextKey,
		a.CreatedAt,
	).Scan(&version); err != nil {
		return Artifact{}, err
	}
	a.Kind = KindOriginal
	a.Company = ""
	a.Version = version
	return a, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row rowScanner) (Artifact, error) {
	var a Artifact
	var company sql.NullString
	var kind string
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&company,
		&kind,
		&a.Version,
		&a.StructuredKey,
		&a.PlainTextKey,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Artifact{}, ErrNotFound
		}
		return Artifact{}, err
	}
	if company.Valid {
		a.Company = company.String
	}
	a.Kind = Kind(kind)
	return a, nil
}

var _ Repo = (*PGRepo)(nil)
