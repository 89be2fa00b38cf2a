package selection

import (
	"bytes"
	"context"
	"io"
	"sync"
)

type nopStore struct {
	mu sync.Mutex
	m  map[string][]byte
}

func newNopStore() *nopStore { return &nopStore{m: map[string][]byte{}} }

func (s *nopStore) Put(ctx context.Context, key, contentType string, r io.Reader) (int64, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.m[key] = b
	s.mu.Unlock()
	return int64(len(b)), nil
}

func (s *nopStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return io.NopCloser(bytes.NewReader(s.m[key])), nil
}

func (s *nopStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
	return nil
}
