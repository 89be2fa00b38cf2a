package analysis

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cvtailor-backend/internal/collab"
	"cvtailor-backend/internal/cvversions"
	"cvtailor-backend/internal/jdcache"
	"cvtailor-backend/internal/selection"
	"cvtailor-backend/internal/shared/storage/object/local"
)

var testJD = json.RawMessage(`{"job_title":"Backend Engineer","required_skills":["Go","PostgreSQL"],"preferred_skills":["Kafka"]}`)

type fakeAnalyzer struct {
	calls   int32
	result  json.RawMessage
	err     error
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (f *fakeAnalyzer) AnalyzeJD(ctx context.Context, req collab.JDRequest) (json.RawMessage, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.started != nil {
		f.once.Do(func() { close(f.started) })
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeAnalyzer) Calls() int { return int(atomic.LoadInt32(&f.calls)) }

type fakeTailor struct {
	resp collab.TailorResponse
	err  error
	got  collab.TailorRequest
}

func (f *fakeTailor) TailorCV(ctx context.Context, req collab.TailorRequest) (collab.TailorResponse, error) {
	f.got = req
	return f.resp, f.err
}

type fixture struct {
	svc      *Service
	cvs      *cvversions.Service
	cache    *jdcache.Cache
	analyzer *fakeAnalyzer
	tailor   *fakeTailor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cvs := cvversions.NewService(cvversions.NewMemoryRepo(), local.New(t.TempDir()))
	cache := jdcache.New(jdcache.NewMemoryBackend(), 24*time.Hour)
	analyzer := &fakeAnalyzer{result: testJD}
	tailor := &fakeTailor{resp: collab.TailorResponse{
		Structured:        json.RawMessage(`{"skills":["Go","PostgreSQL","Kafka"]}`),
		PlainText:         "Go, PostgreSQL, Kafka",
		AIRecommendations: json.RawMessage(`["Lead with Kafka experience"]`),
	}}
	svc := NewService(cvs, cache, analyzer, tailor, selection.Policy{})
	return &fixture{svc: svc, cvs: cvs, cache: cache, analyzer: analyzer, tailor: tailor}
}

func (f *fixture) uploadOriginal(t *testing.T, userID string) {
	t.Helper()
	_, err := f.cvs.SaveOriginal(context.Background(), userID, cvversions.Content{
		Structured: json.RawMessage(`{"summary":"Engineer","skills":["Go"],"experience":[],"education":[]}`),
		PlainText:  "Engineer with Go and PostgreSQL",
	})
	if err != nil {
		t.Fatalf("SaveOriginal: %v", err)
	}
}

func contains(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}
