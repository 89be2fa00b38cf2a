package jdcache

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGBackendBumpIsSingleConditionalUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	backend := &PGBackend{DB: db}
	key := Key{UserID: "user-1", Company: "acme", JDURL: "https://x.com/job"}
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	notBefore := now.Add(-time.Hour)
	cachedAt := now.Add(-10 * time.Minute)

	mock.ExpectQuery("UPDATE jd_cache\\s+SET use_count = use_count \\+ 1").
		WithArgs("user-1", "acme", "https://x.com/job", now, notBefore).
		WillReturnRows(sqlmock.NewRows([]string{"analysis", "cached_at", "last_used_at", "use_count"}).
			AddRow([]byte(`{"skills":[]}`), cachedAt, now, 4))

	e, ok, err := backend.Bump(context.Background(), key, now, notBefore)
	if err != nil {
		t.Fatalf("Bump: %v", err)
	}
	if !ok || e.UseCount != 4 || !e.LastUsedAt.Equal(now) || e.Company != "acme" {
		t.Fatalf("unexpected entry ok=%v %+v", ok, e)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGBackendBumpMissWhenNoRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	backend := &PGBackend{DB: db}
	mock.ExpectQuery("UPDATE jd_cache").
		WillReturnRows(sqlmock.NewRows([]string{"analysis", "cached_at", "last_used_at", "use_count"}))

	_, ok, err := backend.Bump(context.Background(), Key{UserID: "u", Company: "c", JDURL: "j"}, time.Now(), time.Now())
	if err != nil {
		t.Fatalf("Bump: %v", err)
	}
	if ok {
		t.Fatalf("expected miss")
	}
}

func TestPGBackendPutResetsUseCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	backend := &PGBackend{DB: db}
	now := time.Now().UTC()
	e := Entry{
		Key:        Key{UserID: "user-1", Company: "acme", JDURL: "https://x.com/job"},
		Analysis:   []byte(`{"a":1}`),
		CachedAt:   now,
		LastUsedAt: now,
	}
	mock.ExpectExec("ON CONFLICT \\(user_id, company, jd_url\\)").
		WithArgs("user-1", "acme", "https://x.com/job", []byte(`{"a":1}`), now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := backend.Put(context.Background(), e, time.Hour); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGBackendPurgeExpired(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	backend := &PGBackend{DB: db}
	now := time.Now().UTC()
	mock.ExpectExec("DELETE FROM jd_cache WHERE cached_at <").
		WithArgs(now.Add(-time.Hour)).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := backend.PurgeExpired(context.Background(), time.Hour, now)
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if n != 7 {
		t.Fatalf("expected 7 rows, got %d", n)
	}
}
