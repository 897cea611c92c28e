package managers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sds/internal/models"
	"sds/internal/query"
	"sds/internal/storage"
	"sds/internal/structures"
	"sds/internal/testutil"
)

func managerConfig() *structures.Config {
	return &structures.Config{
		Bulk: structures.BulkConfig{
			ChunkSize:  500,
			MaxRetries: 3,
		},
		Freshness: structures.FreshnessConfig{
			OutdatedDays:             1,
			ForcedFilterOutdatedDays: 5,
			BatchSize:                1000,
		},
	}
}

type managerEnv struct {
	store   *storage.MemStore
	cache   *testutil.MockCache
	logger  *testutil.MockLogger
	metrics *testutil.MockMetrics
	clock   *testutil.MockClock
}

func newEnv(t *testing.T) *managerEnv {
	t.Helper()
	compressor, err := storage.NewZstdCompressor()
	require.NoError(t, err)
	t.Cleanup(compressor.Close)

	env := &managerEnv{
		cache:   testutil.NewMockCache(),
		logger:  testutil.NewMockLogger(),
		metrics: testutil.NewMockMetrics(),
		clock:   &testutil.MockClock{Instant: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)},
	}
	env.store = storage.NewMemStore(env.clock, compressor, env.logger)
	return env
}

func (e *managerEnv) channels(t *testing.T) *ChannelManager {
	t.Helper()
	m, err := NewChannelManager(managerConfig(), e.store, e.cache, e.logger, e.metrics, e.clock)
	require.NoError(t, err)
	return m
}

func (e *managerEnv) seed(t *testing.T, index, id string, doc map[string]any) {
	t.Helper()
	err := e.store.Bulk(context.Background(), index, []storage.BulkAction{
		{ID: id, Doc: doc, DocAsUpsert: true},
	})
	require.NoError(t, err)
}

func (e *managerEnv) channelSource(t *testing.T, id string) map[string]any {
	t.Helper()
	docs, err := e.store.MultiGet(context.Background(), "channels", []string{id})
	require.NoError(t, err)
	require.NotNil(t, docs[0], "channel %s not in store", id)
	return docs[0].Source
}

func TestNewBase_RejectsUnknownSection(t *testing.T) {
	env := newEnv(t)

	_, err := newBase(
		managerConfig(), env.store, env.cache, env.logger, env.metrics, env.clock,
		models.ChannelSchema(),
		[]string{models.SectionMain, "bogus"},
		models.SectionGeneralData,
		models.NewChannel,
	)
	assert.ErrorIs(t, err, ErrUnknownSection)

	_, err = newBase(
		managerConfig(), env.store, env.cache, env.logger, env.metrics, env.clock,
		models.ChannelSchema(),
		[]string{models.SectionMain},
		"bogus",
		models.NewChannel,
	)
	assert.ErrorIs(t, err, ErrUnknownSection)
}

func TestBase_GetMissingIDsAbsent(t *testing.T) {
	env := newEnv(t)
	m := env.channels(t)
	env.seed(t, "channels", "ch1", map[string]any{"main": map[string]any{"id": "ch1"}})

	docs, err := m.Get(context.Background(), []string{"ch1", "ghost"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "ch1", docs[0].ID())
	require.NotNil(t, docs[0].Meta().Version)
	assert.Equal(t, int64(1), *docs[0].Meta().Version)
}

func TestBase_GetPopulatesAndServesCache(t *testing.T) {
	env := newEnv(t)
	m := env.channels(t)
	env.seed(t, "channels", "ch1", map[string]any{"main": map[string]any{"id": "ch1"}})

	_, err := m.Get(context.Background(), []string{"ch1"})
	require.NoError(t, err)
	_, cached := env.cache.Get("channels/ch1")
	assert.True(t, cached)

	// second load decodes straight from the cache
	docs, err := m.Get(context.Background(), []string{"ch1"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "ch1", docs[0].ID())
}

func TestBase_GetOrCreateKeepsInputOrder(t *testing.T) {
	env := newEnv(t)
	m := env.channels(t)
	env.seed(t, "channels", "ch2", map[string]any{"main": map[string]any{"id": "ch2"}})

	docs, err := m.GetOrCreate(context.Background(), []string{"ch1", "ch2", "ch3"})
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "ch1", docs[0].ID())
	assert.Equal(t, "ch2", docs[1].ID())
	assert.Equal(t, "ch3", docs[2].ID())
	assert.Nil(t, docs[0].Meta().Version, "fresh doc has no stored version")
	assert.NotNil(t, docs[1].Meta().Version)
}

func TestBase_UpsertStampsTimestamps(t *testing.T) {
	env := newEnv(t)
	m := env.channels(t)

	ch := models.NewChannel("ch1")
	ch.PopulateStats().Views = i64(100)

	require.NoError(t, m.Upsert(context.Background(), []*models.Channel{ch}, UpsertOptions{}))

	source := env.channelSource(t, "ch1")
	st := source["stats"].(map[string]any)
	now := "2024-06-01T12:00:00Z"
	assert.Equal(t, now, st["created_at"])
	assert.Equal(t, now, st["updated_at"])
	main := source["main"].(map[string]any)
	assert.Equal(t, now, main["created_at"])

	_, hasGeneral := source["general_data"]
	assert.False(t, hasGeneral, "unpopulated sections never enter the patch")
}

func TestBase_UpsertKeepsCreatedAtOnLaterWrites(t *testing.T) {
	env := newEnv(t)
	m := env.channels(t)

	ch := models.NewChannel("ch1")
	ch.PopulateStats().Views = i64(100)
	require.NoError(t, m.Upsert(context.Background(), []*models.Channel{ch}, UpsertOptions{}))

	env.clock.Instant = env.clock.Instant.Add(48 * time.Hour)

	loaded, err := m.Get(context.Background(), []string{"ch1"})
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	loaded[0].PopulateStats().Views = i64(200)
	require.NoError(t, m.Upsert(context.Background(), loaded, UpsertOptions{Sections: []string{models.SectionStats}}))

	st := env.channelSource(t, "ch1")["stats"].(map[string]any)
	assert.Equal(t, "2024-06-01T12:00:00Z", st["created_at"], "created_at is stamped once")
	assert.Equal(t, "2024-06-03T12:00:00Z", st["updated_at"])
}

func TestBase_UpsertIgnoreUpdateTime(t *testing.T) {
	env := newEnv(t)
	m := env.channels(t)

	ch := models.NewChannel("ch1")
	ch.PopulateStats().Views = i64(100)
	require.NoError(t, m.Upsert(context.Background(), []*models.Channel{ch}, UpsertOptions{}))

	env.clock.Instant = env.clock.Instant.Add(48 * time.Hour)

	loaded, err := m.Get(context.Background(), []string{"ch1"})
	require.NoError(t, err)
	loaded[0].PopulateStats().Views = i64(200)
	require.NoError(t, m.Upsert(context.Background(), loaded, UpsertOptions{
		Sections:         []string{models.SectionStats},
		IgnoreUpdateTime: []string{models.SectionStats},
	}))

	st := env.channelSource(t, "ch1")["stats"].(map[string]any)
	assert.Equal(t, "2024-06-01T12:00:00Z", st["updated_at"], "exempt section keeps its previous updated_at")
	assert.Equal(t, float64(200), st["views"], "the value itself still lands")
}

func TestBase_UpsertIgnoreUpdateTimeStampsBrandNewSection(t *testing.T) {
	env := newEnv(t)
	m := env.channels(t)

	ch := models.NewChannel("ch1")
	ch.PopulateStats().Views = i64(100)
	require.NoError(t, m.Upsert(context.Background(), []*models.Channel{ch}, UpsertOptions{
		Sections:         []string{models.SectionMain, models.SectionStats},
		IgnoreUpdateTime: []string{models.SectionStats},
	}))

	st := env.channelSource(t, "ch1")["stats"].(map[string]any)
	assert.Equal(t, "2024-06-01T12:00:00Z", st["updated_at"], "a section without history still gets stamped")
}

func TestBase_UpsertNullsSchemaUnknownFields(t *testing.T) {
	env := newEnv(t)
	m := env.channels(t)
	env.seed(t, "channels", "ch1", map[string]any{
		"main":  map[string]any{"id": "ch1"},
		"stats": map[string]any{"views": float64(50), "legacy_counter": float64(7)},
	})

	loaded, err := m.Get(context.Background(), []string{"ch1"})
	require.NoError(t, err)
	loaded[0].PopulateStats().Views = i64(60)
	require.NoError(t, m.Upsert(context.Background(), loaded, UpsertOptions{Sections: []string{models.SectionStats}}))

	st := env.channelSource(t, "ch1")["stats"].(map[string]any)
	val, present := st["legacy_counter"]
	require.True(t, present)
	assert.Nil(t, val, "schema-unknown fields are nulled, not dropped")
	assert.Equal(t, float64(60), st["views"])
}

func TestBase_UpsertRejectsDisallowedSection(t *testing.T) {
	env := newEnv(t)
	m := env.channels(t)

	ch := models.NewChannel("ch1")
	err := m.Upsert(context.Background(), []*models.Channel{ch}, UpsertOptions{
		Sections: []string{models.SectionCaptions},
	})
	assert.ErrorIs(t, err, ErrSectionNotAllowed)
}

func TestBase_UpsertRetriesOnConflict(t *testing.T) {
	env := newEnv(t)
	mock := testutil.NewMockStore()
	mock.BulkErr = storage.ErrConflict
	mock.BulkErrOnce = true

	m, err := NewChannelManager(managerConfig(), mock, env.cache, env.logger, env.metrics, env.clock)
	require.NoError(t, err)

	ch := models.NewChannel("ch1")
	ch.PopulateStats().Views = i64(1)
	require.NoError(t, m.Upsert(context.Background(), []*models.Channel{ch}, UpsertOptions{}))

	assert.Equal(t, 2, mock.BulkCalls)
	assert.Equal(t, 1, env.metrics.BulkRetries)
	assert.Equal(t, 1, env.metrics.BulkActions["channels"])
}

func TestBase_UpsertDoesNotRetryPermanentErrors(t *testing.T) {
	env := newEnv(t)
	mock := testutil.NewMockStore()
	mock.BulkErr = errors.New("mapping rejected")

	m, err := NewChannelManager(managerConfig(), mock, env.cache, env.logger, env.metrics, env.clock)
	require.NoError(t, err)

	ch := models.NewChannel("ch1")
	err = m.Upsert(context.Background(), []*models.Channel{ch}, UpsertOptions{})
	require.Error(t, err)
	assert.Equal(t, 1, mock.BulkCalls)
	assert.Equal(t, 0, env.metrics.BulkRetries)
}

func TestBase_Delete(t *testing.T) {
	env := newEnv(t)
	m := env.channels(t)
	env.seed(t, "channels", "ch1", map[string]any{
		"main":  map[string]any{"id": "ch1"},
		"stats": map[string]any{"views": float64(50)},
	})

	loaded, err := m.Get(context.Background(), []string{"ch1"})
	require.NoError(t, err)
	require.NoError(t, m.Delete(context.Background(), loaded, "ops", "spam"))

	source := env.channelSource(t, "ch1")
	deleted := source["deleted"].(map[string]any)
	assert.Equal(t, "ops", deleted["initiator"])
	assert.Equal(t, "spam", deleted["reason"])
	st := source["stats"].(map[string]any)
	_, touched := st["updated_at"]
	assert.False(t, touched, "delete writes only the deleted section")

	alive := m.FilterAlive(query.Query{})
	count, err := m.Count(context.Background(), &alive)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func seedFreshnessDocs(t *testing.T, env *managerEnv) {
	// never-updated: main only
	env.seed(t, "channels", "ch-never", map[string]any{
		"main": map[string]any{"id": "ch-never"},
	})
	// outdated: stats.updated_at well before the cutoff
	env.seed(t, "channels", "ch-old", map[string]any{
		"main":  map[string]any{"id": "ch-old"},
		"stats": map[string]any{"updated_at": "2024-05-01T00:00:00Z"},
	})
	// fresh: stats.updated_at after the cutoff
	env.seed(t, "channels", "ch-fresh", map[string]any{
		"main":  map[string]any{"id": "ch-fresh"},
		"stats": map[string]any{"updated_at": "2024-06-01T10:00:00Z"},
	})
	// deleted outdated doc must not surface
	env.seed(t, "channels", "ch-dead", map[string]any{
		"main":    map[string]any{"id": "ch-dead"},
		"stats":   map[string]any{"updated_at": "2024-05-01T00:00:00Z"},
		"deleted": map[string]any{"initiator": "ops"},
	})
	// corrupt record without identity is skipped by never-updated scans
	env.seed(t, "channels", "ch-corrupt", map[string]any{
		"general_data": map[string]any{"title": "orphan"},
	})
}

func docIDs[T models.Document](docs []T) []string {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID()
	}
	return ids
}

func TestBase_FreshnessSetsAreDisjoint(t *testing.T) {
	env := newEnv(t)
	m := env.channels(t)
	seedFreshnessDocs(t, env)
	cutoff := time.Date(2024, 5, 31, 12, 0, 0, 0, time.UTC)

	never, err := m.GetNeverUpdated(context.Background(), models.SectionStats, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"ch-never"}, docIDs(never))

	outdated, err := m.GetOutdated(context.Background(), models.SectionStats, cutoff, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"ch-old"}, docIDs(outdated))
}

func TestBase_GetForRefreshPolicies(t *testing.T) {
	env := newEnv(t)
	m := env.channels(t)
	seedFreshnessDocs(t, env)
	cutoff := time.Date(2024, 5, 31, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	first, err := m.GetForRefresh(ctx, models.SectionStats, cutoff, 10, IncludeEmptyFirst)
	require.NoError(t, err)
	assert.Equal(t, []string{"ch-never", "ch-old"}, docIDs(first))

	last, err := m.GetForRefresh(ctx, models.SectionStats, cutoff, 10, IncludeEmptyLast)
	require.NoError(t, err)
	assert.Equal(t, []string{"ch-old", "ch-never"}, docIDs(last))

	no, err := m.GetForRefresh(ctx, models.SectionStats, cutoff, 10, IncludeEmptyNo)
	require.NoError(t, err)
	assert.Equal(t, []string{"ch-old"}, docIDs(no))
}

func TestBase_GetForRefreshHonorsLimit(t *testing.T) {
	env := newEnv(t)
	m := env.channels(t)
	seedFreshnessDocs(t, env)
	cutoff := time.Date(2024, 5, 31, 12, 0, 0, 0, time.UTC)

	docs, err := m.GetForRefresh(context.Background(), models.SectionStats, cutoff, 1, IncludeEmptyFirst)
	require.NoError(t, err)
	assert.Equal(t, []string{"ch-never"}, docIDs(docs), "a full first page skips the outdated query")
}

func TestBase_GetForRefreshRejectsZeroPolicy(t *testing.T) {
	env := newEnv(t)
	m := env.channels(t)

	_, err := m.GetForRefresh(context.Background(), models.SectionStats, time.Now(), 10, 0)
	assert.ErrorIs(t, err, ErrIncludeEmptyPolicy)
}

func TestChannelManager_ForcedFilters(t *testing.T) {
	env := newEnv(t)
	m := env.channels(t)

	// refreshed within the window, described, alive
	env.seed(t, "channels", "ch-served", map[string]any{
		"main":         map[string]any{"id": "ch-served"},
		"general_data": map[string]any{"title": "ok", "updated_at": "2024-05-30T00:00:00Z"},
	})
	// refreshed outside the five-day window
	env.seed(t, "channels", "ch-stale", map[string]any{
		"main":         map[string]any{"id": "ch-stale"},
		"general_data": map[string]any{"title": "stale", "updated_at": "2024-05-20T00:00:00Z"},
	})

	q := m.ForcedFilters()
	count, err := m.Count(context.Background(), &q)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestBase_SearchReturnsLastSortOnlyOnFullPage(t *testing.T) {
	env := newEnv(t)
	m := env.channels(t)
	seedFreshnessDocs(t, env)
	cutoff := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)

	docs, lastSort, err := m.SearchOutdated(context.Background(), models.SectionStats, cutoff, 2, nil)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.NotNil(t, lastSort)

	more, lastSort2, err := m.SearchOutdated(context.Background(), models.SectionStats, cutoff, 2, lastSort)
	require.NoError(t, err)
	assert.Len(t, more, 0)
	assert.Nil(t, lastSort2)
}

func TestBase_AddToSegmentByIDs(t *testing.T) {
	env := newEnv(t)
	m := env.channels(t)
	env.seed(t, "channels", "ch1", map[string]any{"main": map[string]any{"id": "ch1"}})

	uuid, err := m.AddToSegmentByIDs(context.Background(), []string{"ch1", "ch-new"}, "")
	require.NoError(t, err)
	require.NotEmpty(t, uuid)

	for _, id := range []string{"ch1", "ch-new"} {
		source := env.channelSource(t, id)
		seg := source["segments"].(map[string]any)
		uuids := seg["uuid"].([]any)
		assert.Contains(t, uuids, uuid)
	}

	// a second add with an explicit uuid does not duplicate membership
	_, err = m.AddToSegmentByIDs(context.Background(), []string{"ch1"}, uuid)
	require.NoError(t, err)
	seg := env.channelSource(t, "ch1")["segments"].(map[string]any)
	assert.Len(t, seg["uuid"].([]any), 1)
}

func TestVideoManager_CountByChannel(t *testing.T) {
	env := newEnv(t)
	m, err := NewVideoManager(managerConfig(), env.store, env.cache, env.logger, env.metrics, env.clock)
	require.NoError(t, err)

	env.seed(t, "videos", "v1", map[string]any{
		"main":    map[string]any{"id": "v1"},
		"channel": map[string]any{"id": "ch1"},
	})
	env.seed(t, "videos", "v2", map[string]any{
		"main":    map[string]any{"id": "v2"},
		"channel": map[string]any{"id": "ch1"},
		"deleted": map[string]any{"initiator": "ops"},
	})
	env.seed(t, "videos", "v3", map[string]any{
		"main":    map[string]any{"id": "v3"},
		"channel": map[string]any{"id": "ch2"},
	})

	count, err := m.CountByChannel(context.Background(), "ch1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestChunks(t *testing.T) {
	assert.Nil(t, chunks[int](nil, 2))
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, chunks([]int{1, 2, 3, 4, 5}, 2))
	assert.Equal(t, [][]int{{1, 2, 3}}, chunks([]int{1, 2, 3}, 0), "non-positive size means one chunk")
}

func i64(v int64) *int64 { return &v }
