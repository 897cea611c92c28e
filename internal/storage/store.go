package storage

import (
	"context"
	"errors"

	"sds/internal/query"
)

// ErrConflict is returned by Bulk when an optimistic-concurrency conflict
// survives the store's own retry hints. Callers retry the whole batch with
// backoff and surface the error once attempts are exhausted.
var ErrConflict = errors.New("storage: version conflict")

// BulkAction is one partial-update instruction: merge Doc into the stored
// document section by section. A nil field value clears that field.
// DocAsUpsert creates the document when it does not exist.
type BulkAction struct {
	ID              string
	Doc             map[string]any
	DocAsUpsert     bool
	RetryOnConflict int
}

// GetDoc is one multi-get result.
type GetDoc struct {
	ID      string
	Version int64
	Source  map[string]any
}

// SortField orders search results; ties are broken by later entries.
type SortField struct {
	Field string
	Desc  bool
}

// SearchRequest is a filtered, sorted, paginated scan. SearchAfter holds the
// sort-key values of the last consumed hit; pagination is forward-only, so
// cancelling a scan just means not asking for the next page.
type SearchRequest struct {
	Query       *query.Query
	Sort        []SortField
	Limit       int
	SearchAfter []any
}

// Hit is one search result with its sort-key values.
type Hit struct {
	ID      string
	Version int64
	Source  map[string]any
	Sort    []any
}

type SearchResult struct {
	Hits  []Hit
	Total int
}

// StoreInterface is the backing document store. Implementations must support
// multi-get, bulk partial updates with create-if-absent, and predicate
// search with stable sort keys.
type StoreInterface interface {
	// MultiGet returns one entry per requested id, nil for missing documents.
	MultiGet(ctx context.Context, index string, ids []string) ([]*GetDoc, error)
	Bulk(ctx context.Context, index string, actions []BulkAction) error
	Search(ctx context.Context, index string, req SearchRequest) (*SearchResult, error)
	Count(ctx context.Context, index string, q *query.Query) (int, error)
}
