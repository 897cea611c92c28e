package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"sds/internal/providers"
	"sds/internal/query"
)

// MemStore is the embedded implementation of the backing document store.
// It applies the same partial-update contract a remote search cluster would:
// section-wise deep merge, explicit nulls clearing fields, create-if-absent,
// and predicate search with stable sort keys. The daemon persists it as a
// zstd-compressed JSON snapshot.
type MemStore struct {
	mu         sync.RWMutex
	indices    map[string]map[string]*memDoc
	clock      providers.Clock
	compressor CompressorInterface
	logger     providers.Logger
}

type memDoc struct {
	Version int64          `json:"version"`
	Source  map[string]any `json:"source"`
}

func NewMemStore(clock providers.Clock, compressor CompressorInterface, logger providers.Logger) *MemStore {
	return &MemStore{
		indices:    make(map[string]map[string]*memDoc),
		clock:      clock,
		compressor: compressor,
		logger:     logger,
	}
}

func (s *MemStore) MultiGet(_ context.Context, index string, ids []string) ([]*GetDoc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := s.indices[index]
	out := make([]*GetDoc, len(ids))
	for i, id := range ids {
		doc, ok := docs[id]
		if !ok {
			continue
		}
		out[i] = &GetDoc{ID: id, Version: doc.Version, Source: deepCopy(doc.Source)}
	}
	return out, nil
}

func (s *MemStore) Bulk(_ context.Context, index string, actions []BulkAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.indices[index]
	if docs == nil {
		docs = make(map[string]*memDoc)
		s.indices[index] = docs
	}

	var errs []error
	for _, action := range actions {
		doc, ok := docs[action.ID]
		if !ok {
			if !action.DocAsUpsert {
				errs = append(errs, fmt.Errorf("bulk update %s/%s: document missing", index, action.ID))
				continue
			}
			doc = &memDoc{Source: make(map[string]any)}
			docs[action.ID] = doc
		}
		mergeDoc(doc.Source, action.Doc)
		doc.Version++
	}
	return errors.Join(errs...)
}

// mergeDoc merges a section-keyed patch into the stored source. Nil field
// values are kept as explicit nulls so the field reads as cleared.
func mergeDoc(dst map[string]any, patch map[string]any) {
	for section, value := range patch {
		fields, ok := value.(map[string]any)
		if !ok {
			dst[section] = value
			continue
		}
		existing, ok := dst[section].(map[string]any)
		if !ok {
			existing = make(map[string]any, len(fields))
			dst[section] = existing
		}
		for field, v := range fields {
			existing[field] = v
		}
	}
}

func (s *MemStore) Search(_ context.Context, index string, req SearchRequest) (*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.clock.Now()
	var hits []Hit
	for id, doc := range s.indices[index] {
		if req.Query != nil && !req.Query.Match(doc.Source, now) {
			continue
		}
		hits = append(hits, Hit{
			ID:      id,
			Version: doc.Version,
			Source:  deepCopy(doc.Source),
			Sort:    sortKey(doc.Source, req.Sort),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return compareKeys(hits[i], hits[j], req.Sort, now) < 0
	})

	if len(req.SearchAfter) > 0 && len(req.SearchAfter) == len(req.Sort) {
		cut := sort.Search(len(hits), func(i int) bool {
			return compareSortKeys(hits[i].Sort, req.SearchAfter, req.Sort, now) > 0
		})
		hits = hits[cut:]
	}

	total := len(hits)
	if req.Limit > 0 && len(hits) > req.Limit {
		hits = hits[:req.Limit]
	}
	return &SearchResult{Hits: hits, Total: total}, nil
}

func (s *MemStore) Count(_ context.Context, index string, q *query.Query) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.clock.Now()
	count := 0
	for _, doc := range s.indices[index] {
		if q == nil || q.Match(doc.Source, now) {
			count++
		}
	}
	return count, nil
}

func sortKey(source map[string]any, sorts []SortField) []any {
	key := make([]any, len(sorts))
	for i, sf := range sorts {
		if v, ok := query.Lookup(source, sf.Field); ok {
			key[i] = v
		}
	}
	return key
}

// compareKeys orders hits by their sort-key values, falling through to the
// document id so pagination stays deterministic on full ties.
func compareKeys(a, b Hit, sorts []SortField, now time.Time) int {
	if cmp := compareSortKeys(a.Sort, b.Sort, sorts, now); cmp != 0 {
		return cmp
	}
	return strings.Compare(a.ID, b.ID)
}

// compareSortKeys orders two sort keys field by field. Absent values sort
// first ascending and last descending, matching the backend's missing rule.
func compareSortKeys(a, b []any, sorts []SortField, now time.Time) int {
	for i, sf := range sorts {
		av, bv := a[i], b[i]
		var cmp int
		switch {
		case av == nil && bv == nil:
			continue
		case av == nil:
			cmp = -1
		case bv == nil:
			cmp = 1
		default:
			cmp = query.Compare(av, bv, now)
		}
		if cmp == 0 {
			continue
		}
		if sf.Desc {
			return -cmp
		}
		return cmp
	}
	return 0
}

func deepCopy(source map[string]any) map[string]any {
	out := make(map[string]any, len(source))
	for k, v := range source {
		if m, ok := v.(map[string]any); ok {
			out[k] = deepCopy(m)
			continue
		}
		out[k] = v
	}
	return out
}

// DocCount reports the number of documents per index, for metrics.
func (s *MemStore) DocCount() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int, len(s.indices))
	for index, docs := range s.indices {
		out[index] = len(docs)
	}
	return out
}

// SaveSnapshot writes the whole store to disk atomically.
func (s *MemStore) SaveSnapshot(path string) error {
	s.mu.RLock()
	data, err := json.Marshal(s.indices)
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	compressed, err := s.compressor.Compress(data)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err = file.Write(compressed); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err = file.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// LoadSnapshot restores a previously saved store. A missing file is fine:
// the store starts empty.
func (s *MemStore) LoadSnapshot(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	decompressed, err := s.compressor.Decompress(data)
	if err != nil {
		return err
	}

	indices := make(map[string]map[string]*memDoc)
	if err := json.Unmarshal(decompressed, &indices); err != nil {
		s.logger.Warnf(providers.TypeApp, "Snapshot %s is unreadable: %s", path, err)
		return err
	}

	s.mu.Lock()
	s.indices = indices
	s.mu.Unlock()
	return nil
}

func (s *MemStore) Close() {
	s.compressor.Close()
}
