package cvversions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"cvtailor-backend/internal/normalize"
	"cvtailor-backend/internal/shared/metrics"
	"cvtailor-backend/internal/shared/storage/object"
	"cvtailor-backend/internal/shared/telemetry"
	"cvtailor-backend/internal/shared/util"
)

const maxLoadBytes = 8 << 20

// Service owns CV artifacts: object payloads plus the versioned rows that
// publish them.
type Service struct {
	Repo  Repo
	Store object.ObjectStore
	Now   func() time.Time
	NewID func() string
}

// NewService constructs a Service with a real clock and uuid ids.
func NewService(repo Repo, store object.ObjectStore) *Service {
	return &Service{
		Repo:  repo,
		Store: store,
		Now:   func() time.Time { return time.Now().UTC() },
		NewID: uuid.NewString,
	}
}

// GetOriginal returns the user's original CV or ErrNotFound.
func (s *Service) GetOriginal(ctx context.Context, userID string) (Artifact, error) {
	if strings.TrimSpace(userID) == "" {
		return Artifact{}, ErrInvalidInput
	}
	return s.Repo.GetOriginal(ctx, userID)
}

// GetLatestTailored returns the highest tailored version for a company or ErrNotFound.
func (s *Service) GetLatestTailored(ctx context.Context, userID, company string) (Artifact, error) {
	company = normalize.Company(company)
	if strings.TrimSpace(userID) == "" || company == "" {
		return Artifact{}, ErrInvalidInput
	}
	return s.Repo.GetLatestTailored(ctx, userID, company)
}

// ListTailored returns every tailored version for a company, newest first.
func (s *Service) ListTailored(ctx context.Context, userID, company string) ([]Artifact, error) {
	company = normalize.Company(company)
	if strings.TrimSpace(userID) == "" || company == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListTailored(ctx, userID, company)
}

// RecordTailored writes both representations, then publishes a new version.
func (s *Service) RecordTailored(ctx context.Context, userID, company string, content Content) (Artifact, error) {
	company = normalize.Company(company)
	if strings.TrimSpace(userID) == "" || company == "" {
		return Artifact{}, ErrInvalidInput
	}
	a, err := s.writeContent(ctx, userID, util.Slug(company), content)
	if err != nil {
		return Artifact{}, err
	}
	a.Company = company

	stored, err := s.Repo.InsertTailored(ctx, a)
	if err != nil {
		s.discard(a)
		return Artifact{}, fmt.Errorf("record tailored cv: %w", err)
	}
	metrics.IncCVTailored()
	telemetry.Info("cv.tailored_recorded", map[string]any{
		"user_id":     userID,
		"company":     company,
		"version":     stored.Version,
		"artifact_id": stored.ID,
	})
	return stored, nil
}

// SaveOriginal creates or replaces the user's original CV.
func (s *Service) SaveOriginal(ctx context.Context, userID string, content Content) (Artifact, error) {
	if strings.TrimSpace(userID) == "" {
		return Artifact{}, ErrInvalidInput
	}
	a, err := s.writeContent(ctx, userID, "original", content)
	if err != nil {
		return Artifact{}, err
	}
	stored, err := s.Repo.UpsertOriginal(ctx, a)
	if err != nil {
		s.discard(a)
		return Artifact{}, fmt.Errorf("save original cv: %w", err)
	}
	telemetry.Info("cv.original_saved", map[string]any{
		"user_id":     userID,
		"version":     stored.Version,
		"artifact_id": stored.ID,
	})
	return stored, nil
}

// Load reads both representations of an artifact.
func (s *Service) Load(ctx context.Context, a Artifact) (Content, error) {
	structured, err := s.read(ctx, a.StructuredKey)
	if err != nil {
		return Content{}, fmt.Errorf("load structured cv: %w", err)
	}
	plain, err := s.read(ctx, a.PlainTextKey)
	if err != nil {
		return Content{}, fmt.Errorf("load plain text cv: %w", err)
	}
	return Content{Structured: json.RawMessage(structured), PlainText: string(plain)}, nil
}

func (s *Service) writeContent(ctx context.Context, userID, scope string, content Content) (Artifact, error) {
	structured := bytes.TrimSpace(content.Structured)
	if len(structured) == 0 && strings.TrimSpace(content.PlainText) == "" {
		return Artifact{}, ErrInvalidInput
	}
	if len(structured) == 0 {
		structured = []byte("{}")
	}
	if !json.Valid(structured) || structured[0] != '{' {
		return Artifact{}, fmt.Errorf("%w: structured cv must be a JSON object", ErrInvalidInput)
	}

	id := s.NewID()
	base := fmt.Sprintf("cvs/%s/%s/%s", util.HashUserKey(userID), scope, id)
	a := Artifact{
		ID:            id,
		UserID:        userID,
		StructuredKey: base + ".json",
		PlainTextKey:  base + ".txt",
		CreatedAt:     s.Now(),
	}

	if _, err := s.Store.Put(ctx, a.StructuredKey, "application/json", bytes.NewReader(structured)); err != nil {
		return Artifact{}, fmt.Errorf("write structured cv: %w", err)
	}
	if _, err := s.Store.Put(ctx, a.PlainTextKey, "text/plain; charset=utf-8", strings.NewReader(content.PlainText)); err != nil {
		s.discard(Artifact{StructuredKey: a.StructuredKey})
		return Artifact{}, fmt.Errorf("write plain text cv: %w", err)
	}
	return a, nil
}

// discard removes unpublished objects. Failures only leave orphans behind.
func (s *Service) discard(a Artifact) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, key := range []string{a.StructuredKey, a.PlainTextKey} {
		if key == "" {
			continue
		}
		if err := s.Store.Delete(ctx, key); err != nil {
			telemetry.Warn("cv.discard_failed", map[string]any{
				"storage_key": key,
				"error":       err.Error(),
			})
		}
	}
}

func (s *Service) read(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.Store.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, maxLoadBytes))
}
