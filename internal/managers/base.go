package managers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"sds/internal/models"
	"sds/internal/providers"
	"sds/internal/query"
	"sds/internal/storage"
	"sds/internal/structures"
)

// IncludeEmpty decides where never-updated documents surface relative to
// outdated ones in GetForRefresh. The zero value is rejected: mixing the two
// sets is a policy choice the caller has to make explicitly.
type IncludeEmpty int

const (
	IncludeEmptyFirst IncludeEmpty = iota + 1
	IncludeEmptyLast
	IncludeEmptyNo
)

// UpsertOptions narrows one upsert call. Empty Sections means the manager's
// whole allowed set. Sections listed in IgnoreUpdateTime keep their previous
// updated_at instead of being restamped (brand-new sections still get one).
type UpsertOptions struct {
	Sections         []string
	IgnoreUpdateTime []string
}

// Base is the generic document manager: chunked point-lookups with a
// read-through cache, sectioned partial updates, and freshness scans.
// Construction validates every configured section name, so a bad section is
// a startup failure, never a runtime one.
type Base[T models.Document] struct {
	conf            *structures.Config
	store           storage.StoreInterface
	cache           providers.CacheProviderInterface
	logger          providers.Logger
	metrics         providers.MetricsProviderInterface
	clock           providers.Clock
	schema          *models.Schema
	allowedSections []string
	outdatedSection string
	newDoc          func(id string) T
}

func newBase[T models.Document](
	conf *structures.Config,
	store storage.StoreInterface,
	cache providers.CacheProviderInterface,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
	clock providers.Clock,
	schema *models.Schema,
	allowedSections []string,
	outdatedSection string,
	newDoc func(id string) T,
) (*Base[T], error) {
	for _, name := range allowedSections {
		if !schema.HasSection(name) {
			return nil, fmt.Errorf("%w: %s has no section %q", ErrUnknownSection, schema.DocType(), name)
		}
	}
	if !schema.HasSection(outdatedSection) {
		return nil, fmt.Errorf("%w: %s has no section %q", ErrUnknownSection, schema.DocType(), outdatedSection)
	}
	return &Base[T]{
		conf:            conf,
		store:           store,
		cache:           cache,
		logger:          logger,
		metrics:         metrics,
		clock:           clock,
		schema:          schema,
		allowedSections: allowedSections,
		outdatedSection: outdatedSection,
		newDoc:          newDoc,
	}, nil
}

func (b *Base[T]) Schema() *models.Schema {
	return b.schema
}

type cachedDoc struct {
	Version int64          `json:"version"`
	Source  map[string]any `json:"source"`
}

func (b *Base[T]) cacheKey(id string) string {
	return b.schema.Index() + "/" + id
}

// Get loads documents by id, serving from the cache where possible and
// multi-getting the rest in chunks. Missing ids are simply absent from the
// result.
func (b *Base[T]) Get(ctx context.Context, ids []string) ([]T, error) {
	out := make([]T, 0, len(ids))
	var missing []string
	for _, id := range ids {
		data, ok := b.cache.Get(b.cacheKey(id))
		if ok {
			var cached cachedDoc
			if err := json.Unmarshal(data, &cached); err == nil {
				doc, err := b.decode(id, cached.Version, cached.Source)
				if err == nil {
					out = append(out, doc)
					continue
				}
			}
		}
		missing = append(missing, id)
	}

	for _, batch := range chunks(missing, b.conf.Bulk.ChunkSize) {
		got, err := b.store.MultiGet(ctx, b.schema.Index(), batch)
		if err != nil {
			return nil, err
		}
		for _, item := range got {
			if item == nil {
				continue
			}
			doc, err := b.decode(item.ID, item.Version, item.Source)
			if err != nil {
				return nil, err
			}
			out = append(out, doc)
			if data, err := json.Marshal(cachedDoc{Version: item.Version, Source: item.Source}); err == nil {
				b.cache.Set(b.cacheKey(item.ID), data)
			}
		}
	}
	return out, nil
}

// GetOrCreate returns one document per id, in input order, creating fresh
// ones for ids the store does not know.
func (b *Base[T]) GetOrCreate(ctx context.Context, ids []string) ([]T, error) {
	loaded, err := b.Get(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]T, len(loaded))
	for _, doc := range loaded {
		byID[doc.ID()] = doc
	}

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		doc, ok := byID[id]
		if !ok {
			doc = b.newDoc(id)
			doc.PrepareHistory()
		}
		out = append(out, doc)
	}
	return out, nil
}

func (b *Base[T]) decode(id string, version int64, source map[string]any) (T, error) {
	var zero T
	data, err := json.Marshal(source)
	if err != nil {
		return zero, err
	}
	doc := b.newDoc(id)
	if err := json.Unmarshal(data, doc); err != nil {
		return zero, fmt.Errorf("decode %s/%s: %w", b.schema.Index(), id, err)
	}

	meta := doc.Meta()
	meta.Version = &version
	meta.Raw = make(map[string]map[string]any, len(source))
	for name, value := range source {
		if m, ok := value.(map[string]any); ok {
			meta.Raw[name] = m
		}
	}
	doc.PrepareHistory()
	return doc, nil
}

// Upsert emits one partial-update instruction per document, covering only
// the requested sections, in independent chunked batches. A failed batch is
// reported but never blocks its siblings.
func (b *Base[T]) Upsert(ctx context.Context, docs []T, opts UpsertOptions) error {
	sections := opts.Sections
	if len(sections) == 0 {
		sections = b.allowedSections
	} else {
		for _, name := range sections {
			if !b.sectionAllowed(name) {
				return fmt.Errorf("%w: %q for %s", ErrSectionNotAllowed, name, b.schema.DocType())
			}
		}
	}
	ignore := make(map[string]struct{}, len(opts.IgnoreUpdateTime))
	for _, name := range opts.IgnoreUpdateTime {
		ignore[name] = struct{}{}
	}

	now := b.clock.Now()
	var errs []error
	actions := make([]storage.BulkAction, 0, len(docs))
	for _, doc := range docs {
		patch, err := b.buildPatch(doc, now, sections, ignore)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(patch) == 0 {
			continue
		}
		doc.Meta().Version = nil
		actions = append(actions, storage.BulkAction{
			ID:              doc.ID(),
			Doc:             patch,
			DocAsUpsert:     true,
			RetryOnConflict: b.conf.Bulk.MaxRetries,
		})
	}

	for _, batch := range chunks(actions, b.conf.Bulk.ChunkSize) {
		if err := b.writeBatch(ctx, batch); err != nil {
			b.logger.Errorf(providers.TypeBulk, "Bulk write of %d actions to %s failed: %s", len(batch), b.schema.Index(), err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Base[T]) sectionAllowed(name string) bool {
	for _, allowed := range b.allowedSections {
		if allowed == name {
			return true
		}
	}
	return false
}

// buildPatch serializes the document's populated sections among the
// requested set. Timestamps are stamped on the in-memory section first, so
// the document and the emitted instruction agree. The serialized fields are
// laid over the raw source map the section was loaded with; anything the
// schema does not own is then set to explicit null so the store clears it.
func (b *Base[T]) buildPatch(doc T, now time.Time, sections []string, ignore map[string]struct{}) (map[string]any, error) {
	patch := make(map[string]any, len(sections))
	for _, name := range sections {
		data, ok := doc.Section(name)
		if !ok {
			continue
		}
		ts := doc.SectionTimestamps(name)
		if ts.CreatedAt == nil {
			created := now
			ts.CreatedAt = &created
		} else {
			created := ts.CreatedAt.UTC()
			ts.CreatedAt = &created
		}
		if _, exempt := ignore[name]; !exempt || ts.UpdatedAt == nil {
			updated := now
			ts.UpdatedAt = &updated
		}

		fields, err := models.SectionToMap(data)
		if err != nil {
			return nil, fmt.Errorf("serialize %s.%s: %w", b.schema.DocType(), name, err)
		}
		merged := make(map[string]any, len(fields))
		for key, value := range doc.Meta().Raw[name] {
			merged[key] = value
		}
		for key, value := range fields {
			merged[key] = value
		}
		for _, field := range b.schema.UnknownFields(name, merged) {
			merged[field] = nil
		}
		patch[name] = merged
	}
	return patch, nil
}

func (b *Base[T]) writeBatch(ctx context.Context, batch []storage.BulkAction) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(b.conf.Bulk.MaxRetries)), ctx)
	attempt := 0
	return backoff.Retry(func() error {
		if attempt > 0 {
			b.metrics.IncBulkRetries()
			b.logger.Warnf(providers.TypeBulk, "Retrying bulk batch on %s, attempt %d", b.schema.Index(), attempt+1)
		}
		attempt++
		err := b.store.Bulk(ctx, b.schema.Index(), batch)
		if err == nil {
			b.metrics.IncBulkActions(b.schema.Index(), len(batch))
			return nil
		}
		if errors.Is(err, storage.ErrConflict) {
			return err
		}
		return backoff.Permanent(err)
	}, policy)
}

// Delete marks the documents logically deleted and persists only that
// section. Documents are never physically removed by the normal flow.
func (b *Base[T]) Delete(ctx context.Context, docs []T, initiator, reason string) error {
	for _, doc := range docs {
		doc.MarkDeleted(initiator, reason)
	}
	return b.Upsert(ctx, docs, UpsertOptions{Sections: []string{models.SectionDeleted}})
}

// Search runs a filtered scan and returns the decoded documents plus the
// sort key of the last hit for forward-only pagination (nil when the page
// was not full).
func (b *Base[T]) Search(ctx context.Context, req storage.SearchRequest) ([]T, []any, error) {
	res, err := b.store.Search(ctx, b.schema.Index(), req)
	if err != nil {
		return nil, nil, err
	}
	docs := make([]T, 0, len(res.Hits))
	for _, hit := range res.Hits {
		doc, err := b.decode(hit.ID, hit.Version, hit.Source)
		if err != nil {
			return nil, nil, err
		}
		docs = append(docs, doc)
	}
	if req.Limit > 0 && len(res.Hits) == req.Limit {
		return docs, res.Hits[len(res.Hits)-1].Sort, nil
	}
	return docs, nil, nil
}

func (b *Base[T]) Count(ctx context.Context, q *query.Query) (int, error) {
	return b.store.Count(ctx, b.schema.Index(), q)
}

// FilterAlive excludes logically deleted documents.
func (b *Base[T]) FilterAlive(q query.Query) query.Query {
	return q.And(query.NewBuilder().MustNot().Exists().Field(models.SectionDeleted))
}

func (b *Base[T]) IDsQuery(ids []string) query.Query {
	return query.NewBuilder().Must().Terms().Field(models.MainIDField).Value(ids)
}

func (b *Base[T]) IDsNotEqualQuery(ids []string) query.Query {
	return query.NewBuilder().MustNot().Terms().Field(models.MainIDField).Value(ids)
}

func (b *Base[T]) FilterSegment(q query.Query, segmentUUID string) query.Query {
	return q.And(query.NewBuilder().Must().Term().Field(models.SegmentsUUIDField).Value(segmentUUID))
}

// NeverUpdatedQuery finds documents whose control section was never written.
// The identity section is required so corrupt partial records are skipped.
func (b *Base[T]) NeverUpdatedQuery(section string, ids []string, aliveOnly bool) query.Query {
	q := query.NewBuilder().Must().Exists().Field(models.MainIDField)
	q = q.And(query.NewBuilder().MustNot().Exists().Field(section + "." + models.FieldUpdatedAt))
	if len(ids) > 0 {
		q = q.And(b.IDsQuery(ids))
	}
	if aliveOnly {
		q = b.FilterAlive(q)
	}
	return q
}

// OutdatedQuery finds documents whose control section is older than cutoff.
func (b *Base[T]) OutdatedQuery(section string, cutoff time.Time, ids []string, aliveOnly bool) query.Query {
	field := section + "." + models.FieldUpdatedAt
	q := query.NewBuilder().Must().Exists().Field(field)
	q = q.And(query.NewBuilder().Must().Range().Field(field).Lt(cutoff.UTC()).Get())
	if len(ids) > 0 {
		q = q.And(b.IDsQuery(ids))
	}
	if aliveOnly {
		q = b.FilterAlive(q)
	}
	return q
}

// ForcedFilters bounds served data staleness: alive documents whose
// designated section was refreshed within the rolling window. The bound is a
// relative offset, so the serialized query is identical across calls and
// therefore cacheable.
func (b *Base[T]) ForcedFilters() query.Query {
	seconds := b.conf.Freshness.ForcedFilterOutdatedDays * 24 * 60 * 60
	bound := fmt.Sprintf("now-%ds/s", seconds)
	q := query.NewBuilder().Must().Range().Field(b.outdatedSection + "." + models.FieldUpdatedAt).Gte(bound).Get()
	return b.FilterAlive(q)
}

func (b *Base[T]) outdatedSort(section string) []storage.SortField {
	return []storage.SortField{
		{Field: section + "." + models.FieldUpdatedAt},
		{Field: models.MainIDField},
	}
}

func (b *Base[T]) SearchNeverUpdated(ctx context.Context, section string, limit int, searchAfter []any) ([]T, []any, error) {
	return b.Search(ctx, storage.SearchRequest{
		Query:       ptr(b.NeverUpdatedQuery(section, nil, true)),
		Sort:        []storage.SortField{{Field: models.MainIDField}},
		Limit:       limit,
		SearchAfter: searchAfter,
	})
}

func (b *Base[T]) SearchOutdated(ctx context.Context, section string, cutoff time.Time, limit int, searchAfter []any) ([]T, []any, error) {
	return b.Search(ctx, storage.SearchRequest{
		Query:       ptr(b.OutdatedQuery(section, cutoff, nil, true)),
		Sort:        b.outdatedSort(section),
		Limit:       limit,
		SearchAfter: searchAfter,
	})
}

func (b *Base[T]) GetNeverUpdated(ctx context.Context, section string, limit int) ([]T, error) {
	docs, _, err := b.SearchNeverUpdated(ctx, section, limit, nil)
	return docs, err
}

func (b *Base[T]) GetOutdated(ctx context.Context, section string, cutoff time.Time, limit int) ([]T, error) {
	docs, _, err := b.SearchOutdated(ctx, section, cutoff, limit, nil)
	return docs, err
}

// GetForRefresh lists documents due for a refresh pass. The include-empty
// policy decides whether never-updated documents come before, after, or not
// at all relative to outdated ones.
func (b *Base[T]) GetForRefresh(ctx context.Context, section string, cutoff time.Time, limit int, policy IncludeEmpty) ([]T, error) {
	switch policy {
	case IncludeEmptyFirst:
		docs, err := b.GetNeverUpdated(ctx, section, limit)
		if err != nil {
			return nil, err
		}
		if len(docs) < limit {
			outdated, err := b.GetOutdated(ctx, section, cutoff, limit-len(docs))
			if err != nil {
				return nil, err
			}
			docs = append(docs, outdated...)
		}
		return docs, nil
	case IncludeEmptyLast:
		docs, err := b.GetOutdated(ctx, section, cutoff, limit)
		if err != nil {
			return nil, err
		}
		if len(docs) < limit {
			never, err := b.GetNeverUpdated(ctx, section, limit-len(docs))
			if err != nil {
				return nil, err
			}
			docs = append(docs, never...)
		}
		return docs, nil
	case IncludeEmptyNo:
		return b.GetOutdated(ctx, section, cutoff, limit)
	default:
		return nil, ErrIncludeEmptyPolicy
	}
}

// AddToSegmentByIDs adds the documents to a segment, creating missing
// documents on the way. An empty segmentUUID mints a new segment; the
// effective uuid is returned either way.
func (b *Base[T]) AddToSegmentByIDs(ctx context.Context, ids []string, segmentUUID string) (string, error) {
	if segmentUUID == "" {
		segmentUUID = uuid.NewString()
	}
	docs, err := b.GetOrCreate(ctx, ids)
	if err != nil {
		return segmentUUID, err
	}
	for _, doc := range docs {
		doc.PopulateSegments().AddUniq(segmentUUID)
	}
	err = b.Upsert(ctx, docs, UpsertOptions{Sections: []string{models.SectionSegments}})
	return segmentUUID, err
}

func ptr(q query.Query) *query.Query {
	return &q
}
