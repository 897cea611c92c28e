// Package testutil provides shared mocks for package-level tests. Packages
// that providers itself depends on cannot use it; those keep local mocks.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sds/internal/providers"
	"sds/internal/query"
	"sds/internal/storage"
)

// MockLogger records formatted messages per log type.
type MockLogger struct {
	mu       sync.Mutex
	Messages map[providers.TypeEnum][]string
}

func NewMockLogger() *MockLogger {
	return &MockLogger{Messages: make(map[providers.TypeEnum][]string)}
}

func (m *MockLogger) record(t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages[t] = append(m.Messages[t], fmt.Sprintf(format, args...))
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record(t, format, args...)
}

func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record(t, format, args...)
}

func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record(t, format, args...)
}

func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record(t, format, args...)
}

func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record(t, format, args...)
}

func (m *MockLogger) Close() {}

// Logged returns all messages recorded for a type.
func (m *MockLogger) Logged(t providers.TypeEnum) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Messages[t]...)
}

// MockClock returns a fixed instant.
type MockClock struct {
	Instant time.Time
}

func (c *MockClock) Now() time.Time { return c.Instant }

// MockCache is a plain map-backed cache.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (c *MockCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	val, ok := c.Data[key]
	return val, ok
}

func (c *MockCache) Set(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Data[key] = value
}

// MockMetrics counts calls so tests can assert instrumentation happened.
type MockMetrics struct {
	mu             sync.Mutex
	Requests       int
	CacheHits      int
	CacheMisses    int
	BulkActions    map[string]int
	BulkRetries    int
	Flushes        int
	Persists       int
	BackfilledDays map[string]int
	DocsTotal      map[string]int
	Buffer         providers.BufferSizer
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		BulkActions:    make(map[string]int),
		BackfilledDays: make(map[string]int),
		DocsTotal:      make(map[string]int),
	}
}

func (m *MockMetrics) IncRequestsTotal(_ string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests++
}

func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}

func (m *MockMetrics) IncCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}

func (m *MockMetrics) IncCacheMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}

func (m *MockMetrics) IncBulkActions(index string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BulkActions[index] += count
}

func (m *MockMetrics) IncBulkRetries() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BulkRetries++
}

func (m *MockMetrics) ObserveFlushDuration(_ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Flushes++
}

func (m *MockMetrics) ObservePersistenceDuration(_ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Persists++
}

func (m *MockMetrics) AddBackfilledDays(docType string, days int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BackfilledDays[docType] += days
}

func (m *MockMetrics) SetDocsTotal(index string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DocsTotal[index] = count
}

func (m *MockMetrics) RegisterBufferGauge(buffer providers.BufferSizer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Buffer = buffer
}

// MockStore is a scriptable StoreInterface for tests that need failure
// injection; tests that want real merge semantics use storage.MemStore.
type MockStore struct {
	mu          sync.Mutex
	Docs        map[string]map[string]map[string]any
	BulkErr     error
	BulkErrOnce bool
	BulkCalls   int
	LastActions []storage.BulkAction
	SearchFn    func(ctx context.Context, index string, req storage.SearchRequest) (*storage.SearchResult, error)
}

func NewMockStore() *MockStore {
	return &MockStore{Docs: make(map[string]map[string]map[string]any)}
}

func (s *MockStore) MultiGet(_ context.Context, index string, ids []string) ([]*storage.GetDoc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*storage.GetDoc, len(ids))
	for i, id := range ids {
		if src, ok := s.Docs[index][id]; ok {
			out[i] = &storage.GetDoc{ID: id, Version: 1, Source: src}
		}
	}
	return out, nil
}

func (s *MockStore) Bulk(_ context.Context, index string, actions []storage.BulkAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BulkCalls++
	s.LastActions = append([]storage.BulkAction(nil), actions...)
	if s.BulkErr != nil {
		err := s.BulkErr
		if s.BulkErrOnce {
			s.BulkErr = nil
		}
		return err
	}
	if s.Docs[index] == nil {
		s.Docs[index] = make(map[string]map[string]any)
	}
	for _, a := range actions {
		if s.Docs[index][a.ID] == nil {
			s.Docs[index][a.ID] = make(map[string]any)
		}
		for section, body := range a.Doc {
			s.Docs[index][a.ID][section] = body
		}
	}
	return nil
}

func (s *MockStore) Search(ctx context.Context, index string, req storage.SearchRequest) (*storage.SearchResult, error) {
	if s.SearchFn != nil {
		return s.SearchFn(ctx, index, req)
	}
	return &storage.SearchResult{}, nil
}

func (s *MockStore) Count(_ context.Context, index string, _ *query.Query) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Docs[index]), nil
}
