package cvversions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoInsertTailoredAllocatesNextVersionUnderLock(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()
	a := Artifact{
		ID:            "art-1",
		UserID:        "user-1",
		Company:       "acme",
		StructuredKey: "cvs/u/acme/art-1.json",
		PlainTextKey:  "cvs/u/acme/art-1.txt",
		CreatedAt:     now,
	}

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").
		WithArgs("user-1|acme").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("COALESCE\\(MAX\\(version\\), 0\\) \\+ 1").
		WithArgs("user-1", "acme").
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(3))
	mock.ExpectExec("INSERT INTO cv_artifacts").
		WithArgs(a.ID, a.UserID, a.Company, 3, a.StructuredKey, a.PlainTextKey, now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	got, err := repo.InsertTailored(context.Background(), a)
	if err != nil {
		t.Fatalf("InsertTailored: %v", err)
	}
	if got.Version != 3 || got.Kind != KindTailored {
		t.Fatalf("unexpected artifact %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoInsertTailoredRollsBackOnConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("COALESCE").WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(1))
	mock.ExpectExec("INSERT INTO cv_artifacts").WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	if _, err := repo.InsertTailored(context.Background(), Artifact{ID: "a", UserID: "u", Company: "c"}); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetLatestTailoredNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectQuery("FROM cv_artifacts").
		WithArgs("user-1", "acme").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "company", "kind", "version", "structured_key", "plain_text_key", "created_at"}))

	if _, err := repo.GetLatestTailored(context.Background(), "user-1", "acme"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoGetOriginalScansNullCompany(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	now := time.Now().UTC()
	repo := &PGRepo{DB: db}
	mock.ExpectQuery("kind = 'original'").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "company", "kind", "version", "structured_key", "plain_text_key", "created_at"}).
			AddRow("orig-1", "user-1", nil, "original", 2, "s.json", "s.txt", now))

	got, err := repo.GetOriginal(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetOriginal: %v", err)
	}
	if got.Company != "" || got.Kind != KindOriginal || got.Version != 2 {
		t.Fatalf("unexpected artifact %+v", got)
	}
}

func TestPGRepoUpsertOriginalReturnsVersion(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	now := time.Now().UTC()
	repo := &PGRepo{DB: db}
	mock.ExpectQuery("ON CONFLICT \\(user_id\\) WHERE kind = 'original'").
		WithArgs("orig-2", "user-1", "k.json", "k.txt", now).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(2))

	got, err := repo.UpsertOriginal(context.Background(), Artifact{
		ID: "orig-2", UserID: "user-1", StructuredKey: "k.json", PlainTextKey: "k.txt", CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("UpsertOriginal: %v", err)
	}
	if got.Version != 2 || got.Kind != KindOriginal {
		t.Fatalf("unexpected artifact %+v", got)
	}
}
