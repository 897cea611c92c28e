package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sds/internal/managers"
	"sds/internal/models"
	"sds/internal/providers"
	"sds/internal/storage"
	"sds/internal/structures"
	"sds/internal/testutil"
)

type ingestEnv struct {
	store   *storage.MemStore
	logger  *testutil.MockLogger
	metrics *testutil.MockMetrics
	clock   *testutil.MockClock
	service IngestServiceInterface
}

func newIngestEnv(t *testing.T) *ingestEnv {
	t.Helper()
	conf := &structures.Config{
		Bulk:   structures.BulkConfig{ChunkSize: 500, MaxRetries: 3},
		Ingest: structures.IngestConfig{FlushInterval: 10 * time.Second},
	}
	compressor, err := storage.NewZstdCompressor()
	require.NoError(t, err)
	t.Cleanup(compressor.Close)

	env := &ingestEnv{
		logger:  testutil.NewMockLogger(),
		metrics: testutil.NewMockMetrics(),
		clock:   &testutil.MockClock{Instant: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)},
	}
	env.store = storage.NewMemStore(env.clock, compressor, env.logger)
	cache := testutil.NewMockCache()

	channels, err := managers.NewChannelManager(conf, env.store, cache, env.logger, env.metrics, env.clock)
	require.NoError(t, err)
	videos, err := managers.NewVideoManager(conf, env.store, cache, env.logger, env.metrics, env.clock)
	require.NoError(t, err)
	keywords, err := managers.NewKeywordManager(conf, env.store, cache, env.logger, env.metrics, env.clock)
	require.NoError(t, err)

	env.service = NewIngestService(conf, env.logger, env.metrics, channels, videos, keywords)
	return env
}

func (e *ingestEnv) source(t *testing.T, index, id string) map[string]any {
	t.Helper()
	docs, err := e.store.MultiGet(context.Background(), index, []string{id})
	require.NoError(t, err)
	require.NotNil(t, docs[0], "%s/%s not in store", index, id)
	return docs[0].Source
}

func obsAt(kind, id string, at time.Time) *models.StatsObservation {
	return &models.StatsObservation{Kind: kind, ID: id, FetchedAt: at}
}

func TestIngestService_BufferSwap(t *testing.T) {
	env := newIngestEnv(t)
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	obs := obsAt("keyword", "kw1", at)
	views := int64(100)
	obs.Views = &views
	env.service.AddObservation(obs)
	assert.Equal(t, 1, env.service.GetBufferSize())

	require.NoError(t, env.service.Flush(context.Background()))
	assert.Equal(t, 0, env.service.GetBufferSize(), "flush drains into the inactive buffer")
	assert.Equal(t, 1, env.metrics.Flushes)

	// buffers alternate across flushes
	env.service.AddObservation(obs)
	assert.Equal(t, 1, env.service.GetBufferSize())
	require.NoError(t, env.service.Flush(context.Background()))
	assert.Equal(t, 0, env.service.GetBufferSize())
}

func TestIngestService_FlushEmptyBufferIsSilent(t *testing.T) {
	env := newIngestEnv(t)

	require.NoError(t, env.service.Flush(context.Background()))
	assert.Equal(t, 0, env.metrics.Flushes, "an empty flush is not observed")
}

func TestIngestService_FlushPersistsChannelStats(t *testing.T) {
	env := newIngestEnv(t)
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	obs := obsAt("channel", "ch1", at)
	subs, views, total := int64(5000), int64(1_000_000), int64(100)
	obs.Subscribers = &subs
	obs.Views = &views
	obs.TotalVideosCount = &total
	env.service.AddObservation(obs)

	require.NoError(t, env.service.Flush(context.Background()))

	st := env.source(t, "channels", "ch1")["stats"].(map[string]any)
	assert.Equal(t, float64(5000), st["subscribers"])
	assert.Equal(t, float64(1_000_000), st["views"])
	assert.Equal(t, float64(10000), st["views_per_video"], "derived views/video")
	assert.Equal(t, "2024-06-01T10:00:00Z", st["fetched_at"])

	main := env.source(t, "channels", "ch1")["main"].(map[string]any)
	assert.Equal(t, "ch1", main["id"], "identity section persists for created docs")
	assert.Equal(t, 1, env.metrics.BulkActions["channels"])
}

func TestIngestService_FlushComputesVideoDerivedMetrics(t *testing.T) {
	env := newIngestEnv(t)
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	obs := obsAt("video", "v1", at)
	views, likes, dislikes, comments := int64(1000), int64(10), int64(5), int64(15)
	obs.Views = &views
	obs.Likes = &likes
	obs.Dislikes = &dislikes
	obs.Comments = &comments
	env.service.AddObservation(obs)

	require.NoError(t, env.service.Flush(context.Background()))

	st := env.source(t, "videos", "v1")["stats"].(map[string]any)
	assert.InDelta(t, 66.666, st["sentiment"].(float64), 0.01)
	assert.InDelta(t, 3.0, st["engage_rate"].(float64), 0.001)
}

func TestIngestService_FlushGroupsByKind(t *testing.T) {
	env := newIngestEnv(t)
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	views := int64(100)
	for _, obs := range []*models.StatsObservation{
		obsAt("channel", "ch1", at),
		obsAt("video", "v1", at),
		obsAt("keyword", "kw1", at),
	} {
		obs.Views = &views
		env.service.AddObservation(obs)
	}

	require.NoError(t, env.service.Flush(context.Background()))

	assert.Equal(t, 1, env.metrics.BulkActions["channels"])
	assert.Equal(t, 1, env.metrics.BulkActions["videos"])
	assert.Equal(t, 1, env.metrics.BulkActions["keywords"])
}

func TestIngestService_MalformedObservationDropped(t *testing.T) {
	env := newIngestEnv(t)

	env.service.AddObservation(&models.StatsObservation{Kind: "martian", ID: "x", FetchedAt: time.Now()})
	env.service.AddObservation(&models.StatsObservation{Kind: "channel", ID: "", FetchedAt: time.Now()})

	require.NoError(t, env.service.Flush(context.Background()))
	assert.Len(t, env.logger.Logged(providers.TypeIngest), 2)

	counts := env.store.DocCount()
	assert.Zero(t, counts["channels"])
}

func TestIngestService_BackfillsAcrossDays(t *testing.T) {
	env := newIngestEnv(t)

	day1 := time.Date(2024, 6, 1, 23, 59, 59, 0, time.UTC)
	obs1 := obsAt("keyword", "kw1", day1)
	v1 := int64(100)
	obs1.Views = &v1
	env.service.AddObservation(obs1)
	require.NoError(t, env.service.Flush(context.Background()))

	day4 := time.Date(2024, 6, 4, 23, 59, 59, 0, time.UTC)
	obs2 := obsAt("keyword", "kw1", day4)
	v2 := int64(400)
	obs2.Views = &v2
	env.service.AddObservation(obs2)
	require.NoError(t, env.service.Flush(context.Background()))

	st := env.source(t, "keywords", "kw1")["stats"].(map[string]any)
	history := st["views_history"].([]any)
	require.Len(t, history, 3)
	assert.Equal(t, float64(300), history[0])
	assert.Equal(t, float64(200), history[1])
	assert.Equal(t, float64(100), history[2])

	assert.Equal(t, 3, env.metrics.BackfilledDays["keyword"])
}

func TestIngestService_WindowCountersFollowHistory(t *testing.T) {
	env := newIngestEnv(t)

	day1 := time.Date(2024, 6, 1, 23, 59, 59, 0, time.UTC)
	obs1 := obsAt("channel", "ch1", day1)
	v1 := int64(100)
	obs1.Views = &v1
	env.service.AddObservation(obs1)
	require.NoError(t, env.service.Flush(context.Background()))

	day4 := time.Date(2024, 6, 4, 23, 59, 59, 0, time.UTC)
	obs2 := obsAt("channel", "ch1", day4)
	v2 := int64(400)
	obs2.Views = &v2
	env.service.AddObservation(obs2)
	require.NoError(t, env.service.Flush(context.Background()))

	st := env.source(t, "channels", "ch1")["stats"].(map[string]any)
	assert.Equal(t, float64(100), st["last_day_views"])
	assert.Equal(t, float64(200), st["last_7day_views"])
	assert.Equal(t, float64(200), st["last_30day_views"])
}

func TestIngestService_OutOfOrderObservationExcludedFromWrite(t *testing.T) {
	env := newIngestEnv(t)

	later := time.Date(2024, 6, 5, 10, 0, 0, 0, time.UTC)
	obs1 := obsAt("keyword", "kw1", later)
	v1 := int64(500)
	obs1.Views = &v1
	env.service.AddObservation(obs1)
	require.NoError(t, env.service.Flush(context.Background()))

	// a stale sample for kw1 plus a clean one for kw2 in the same flush
	earlier := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	stale := obsAt("keyword", "kw1", earlier)
	v2 := int64(50)
	stale.Views = &v2
	env.service.AddObservation(stale)

	clean := obsAt("keyword", "kw2", later)
	v3 := int64(70)
	clean.Views = &v3
	env.service.AddObservation(clean)

	require.NoError(t, env.service.Flush(context.Background()))

	st1 := env.source(t, "keywords", "kw1")["stats"].(map[string]any)
	assert.Equal(t, float64(500), st1["views"], "stale sample never persisted")
	assert.Equal(t, "2024-06-05T10:00:00Z", st1["fetched_at"])

	st2 := env.source(t, "keywords", "kw2")["stats"].(map[string]any)
	assert.Equal(t, float64(70), st2["views"], "siblings in the batch are unaffected")
}

func TestIngestService_PartialCountersKeepPreviousValues(t *testing.T) {
	env := newIngestEnv(t)

	at1 := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	obs1 := obsAt("channel", "ch1", at1)
	subs, views := int64(100), int64(9000)
	obs1.Subscribers = &subs
	obs1.Views = &views
	env.service.AddObservation(obs1)
	require.NoError(t, env.service.Flush(context.Background()))

	// the worker only managed to fetch views this time
	at2 := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)
	obs2 := obsAt("channel", "ch1", at2)
	views2 := int64(9500)
	obs2.Views = &views2
	env.service.AddObservation(obs2)
	require.NoError(t, env.service.Flush(context.Background()))

	st := env.source(t, "channels", "ch1")["stats"].(map[string]any)
	assert.Equal(t, float64(9500), st["views"])
	assert.Equal(t, float64(100), st["subscribers"], "missing counters keep their last value")
}
