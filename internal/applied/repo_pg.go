package applied

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Upsert(ctx context.Context, f Flag) error {
	const query = `
INSERT INTO applied_flags (user_id, company, job_id, applied, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id, company, job_id)
DO UPDATE SET applied = EXCLUDED.applied, updated_at = EXCLUDED.updated_at`
	_, err := r.DB.ExecContext(ctx, query, f.UserID, f.Company, f.JobID, f.Applied, f.UpdatedAt)
	return err
}

func (r *PGRepo) Get(ctx context.Context, userID, company, jobID string) (Flag, bool, error) {
	const query = `
SELECT applied, updated_at
FROM applied_flags
WHERE user_id = $1 AND company = $2 AND job_id = $3`
	f := Flag{UserID: userID, Company: company, JobID: jobID}
	err := r.DB.QueryRowContext(ctx, query, userID, company, jobID).Scan(&f.Applied, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Flag{}, false, nil
		}
		return Flag{}, false, err
	}
	return f, true, nil
}

func (r *PGRepo) List(ctx context.Context, userID string) ([]Flag, error) {
	const query = `
SELECT company, job_id, applied, updated_at
FROM applied_flags
WHERE user_id = $1
ORDER BY company, job_id`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Flag{}
	for rows.Next() {
		f := Flag{UserID: userID}
		if err := rows.Scan(&f.Company, &f.JobID, &f.Applied, &f.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

var _ Repo = (*PGRepo)(nil)
