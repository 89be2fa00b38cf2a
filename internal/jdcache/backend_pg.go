package jdcache

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGBackend stores entries in the jd_cache table. Bump is a single
// UPDATE ... RETURNING so the row lock serializes concurrent reuses.
type PGBackend struct {
	DB *sql.DB
}

func (b *PGBackend) Bump(ctx context.Context, key Key, now, notBefore time.Time) (Entry, bool, error) {
	const query = `
UPDATE jd_cache
SET use_count = use_count + 1, last_used_at = $4
WHERE user_id = $1 AND company = $2 AND jd_url = $3 AND cached_at >= $5
RETURNING analysis, cached_at, last_used_at, use_count`
	e := Entry{Key: key}
	var analysis []byte
	err := b.DB.QueryRowContext(ctx, query, key.UserID, key.Company, key.JDURL, now, notBefore).Scan(
		&analysis,
		&e.CachedAt,
		&e.LastUsedAt,
		&e.UseCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	e.Analysis = analysis
	return e, true, nil
}

func (b *PGBackend) Put(ctx context.Context, e Entry, ttl time.Duration) error {
	const query = `
INSERT INTO jd_cache (user_id, company, jd_url, analysis, cached_at, last_used_at, use_count)
VALUES ($1, $2, $3, $4, $5, $6, 0)
ON CONFLICT (user_id, company, jd_url)
DO UPDATE SET
    analysis = EXCLUDED.analysis,
    cached_at = EXCLUDED.cached_at,
    last_used_at = EXCLUDED.last_used_at,
    use_count = 0`
	_, err := b.DB.ExecContext(ctx, query,
		e.UserID,
		e.Company,
		e.JDURL,
		[]byte(e.Analysis),
		e.CachedAt,
		e.LastUsedAt,
	)
	return err
}

func (b *PGBackend) Delete(ctx context.Context, key Key) error {
	const query = `DELETE FROM jd_cache WHERE user_id = $1 AND company = $2 AND jd_url = $3`
	_, err := b.DB.ExecContext(ctx, query, key.UserID, key.Company, key.JDURL)
	return err
}

func (b *PGBackend) Peek(ctx context.Context, key Key) (Entry, bool, error) {
	const query = `
SELECT analysis, cached_at, last_used_at, use_count
FROM jd_cache
WHERE user_id = $1 AND company = $2 AND jd_url = $3`
	e := Entry{Key: key}
	var analysis []byte
	err := b.DB.QueryRowContext(ctx, query, key.UserID, key.Company, key.JDURL).Scan(
		&analysis,
		&e.CachedAt,
		&e.LastUsedAt,
		&e.UseCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	e.Analysis = analysis
	return e, true, nil
}

// PurgeExpired deletes rows older than ttl. Lookups already ignore them;
// this only reclaims space.
func (b *PGBackend) PurgeExpired(ctx context.Context, ttl time.Duration, now time.Time) (int64, error) {
	res, err := b.DB.ExecContext(ctx, `DELETE FROM jd_cache WHERE cached_at < $1`, now.Add(-ttl))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var _ Backend = (*PGBackend)(nil)
