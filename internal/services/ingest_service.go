package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/atomic"

	"sds/internal/managers"
	"sds/internal/models"
	"sds/internal/providers"
	"sds/internal/stats"
	"sds/internal/structures"
)

type IngestServiceInterface interface {
	AddObservation(obs *models.StatsObservation)
	GetBufferSize() int
	Flush(ctx context.Context) error
}

// IngestService buffers incoming counter observations and flushes them
// through the managers in bulk. Intake is double-buffered: a flush swaps the
// buffers, so writers never wait on the store.
type IngestService struct {
	conf     *structures.Config
	logger   providers.Logger
	metrics  providers.MetricsProviderInterface
	channels *managers.ChannelManager
	videos   *managers.VideoManager
	keywords *managers.KeywordManager

	mu      sync.Mutex
	primary atomic.Bool
	buffer1 []*models.StatsObservation
	buffer2 []*models.StatsObservation
}

func NewIngestService(
	conf *structures.Config,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
	channels *managers.ChannelManager,
	videos *managers.VideoManager,
	keywords *managers.KeywordManager,
) IngestServiceInterface {
	s := &IngestService{
		conf:     conf,
		logger:   logger,
		metrics:  metrics,
		channels: channels,
		videos:   videos,
		keywords: keywords,
		buffer1:  make([]*models.StatsObservation, 0),
		buffer2:  make([]*models.StatsObservation, 0),
	}
	s.primary.Store(true)
	return s
}

func (s *IngestService) AddObservation(obs *models.StatsObservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.primary.Load() {
		s.buffer1 = append(s.buffer1, obs)
	} else {
		s.buffer2 = append(s.buffer2, obs)
	}
}

func (s *IngestService) GetBufferSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.primary.Load() {
		return len(s.buffer1)
	}
	return len(s.buffer2)
}

// drain swaps the buffers and hands back the filled one.
func (s *IngestService) drain() []*models.StatsObservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var batch []*models.StatsObservation
	if s.primary.Load() {
		batch = s.buffer1
		s.buffer1 = make([]*models.StatsObservation, 0)
	} else {
		batch = s.buffer2
		s.buffer2 = make([]*models.StatsObservation, 0)
	}
	s.primary.Store(!s.primary.Load())
	return batch
}

// Flush applies the buffered observations in arrival order per entity, runs
// the history engines, and persists main+stats for every entity that took at
// least one clean update. An entity whose update fails (out-of-order sample)
// is dropped from the write entirely rather than persisted half-mutated.
func (s *IngestService) Flush(ctx context.Context) error {
	batch := s.drain()
	if len(batch) == 0 {
		return nil
	}
	start := time.Now()

	byKind := make(map[string][]*models.StatsObservation, 3)
	for _, obs := range batch {
		if !obs.Valid() {
			s.logger.Warnf(providers.TypeIngest, "Dropped malformed observation kind=%q id=%q", obs.Kind, obs.ID)
			continue
		}
		byKind[obs.Kind] = append(byKind[obs.Kind], obs)
	}

	err := errors.Join(
		s.flushChannels(ctx, byKind[models.ChannelDocType]),
		s.flushVideos(ctx, byKind[models.VideoDocType]),
		s.flushKeywords(ctx, byKind[models.KeywordDocType]),
	)
	s.metrics.ObserveFlushDuration(time.Since(start))
	return err
}

func uniqueIDs(observations []*models.StatsObservation) []string {
	seen := make(map[string]struct{}, len(observations))
	ids := make([]string, 0, len(observations))
	for _, obs := range observations {
		if _, ok := seen[obs.ID]; !ok {
			seen[obs.ID] = struct{}{}
			ids = append(ids, obs.ID)
		}
	}
	return ids
}

func (s *IngestService) flushChannels(ctx context.Context, observations []*models.StatsObservation) error {
	if len(observations) == 0 {
		return nil
	}
	docs, err := s.channels.GetOrCreate(ctx, uniqueIDs(observations))
	if err != nil {
		return err
	}
	byID := make(map[string]*models.Channel, len(docs))
	for _, doc := range docs {
		byID[doc.ID()] = doc
	}

	failed := make(map[string]struct{})
	for _, obs := range observations {
		doc := byID[obs.ID]
		st := doc.PopulateStats()
		doc.PrepareHistory()

		before := len(st.ViewsHistory)
		fetched := obs.FetchedAt.UTC()
		st.FetchedAt = &fetched
		if obs.Subscribers != nil {
			st.Subscribers = obs.Subscribers
		}
		if obs.Views != nil {
			st.Views = obs.Views
		}
		if obs.TotalVideosCount != nil {
			st.TotalVideosCount = obs.TotalVideosCount
		}
		if obs.ObservedVideosCount != nil {
			st.ObservedVideosCount = obs.ObservedVideosCount
		}
		if st.Views != nil && st.TotalVideosCount != nil && *st.TotalVideosCount > 0 {
			perVideo := float64(*st.Views) / float64(*st.TotalVideosCount)
			st.ViewsPerVideo = &perVideo
		}

		if err := doc.UpdateHistory(); err != nil {
			s.logger.Warnf(providers.TypeIngest, "Rejected channel observation %s: %s", obs.ID, err)
			failed[obs.ID] = struct{}{}
			continue
		}
		st.RefreshWindowCounters()
		if days := len(st.ViewsHistory) - before; days > 0 {
			s.metrics.AddBackfilledDays(models.ChannelDocType, days)
		}
	}

	return upsertSurvivors(docs, failed, func(survivors []*models.Channel) error {
		return s.channels.Upsert(ctx, survivors, statsUpsert())
	})
}

func (s *IngestService) flushVideos(ctx context.Context, observations []*models.StatsObservation) error {
	if len(observations) == 0 {
		return nil
	}
	docs, err := s.videos.GetOrCreate(ctx, uniqueIDs(observations))
	if err != nil {
		return err
	}
	byID := make(map[string]*models.Video, len(docs))
	for _, doc := range docs {
		byID[doc.ID()] = doc
	}

	failed := make(map[string]struct{})
	for _, obs := range observations {
		doc := byID[obs.ID]
		st := doc.PopulateStats()
		doc.PrepareHistory()

		before := len(st.ViewsHistory)
		fetched := obs.FetchedAt.UTC()
		st.FetchedAt = &fetched
		if obs.Views != nil {
			st.Views = obs.Views
		}
		if obs.Likes != nil {
			st.Likes = obs.Likes
		}
		if obs.Dislikes != nil {
			st.Dislikes = obs.Dislikes
		}
		if obs.Comments != nil {
			st.Comments = obs.Comments
		}
		if st.Likes != nil && st.Dislikes != nil {
			sentiment := stats.Sentiment(*st.Likes, *st.Dislikes)
			st.Sentiment = &sentiment
			if st.Comments != nil && st.Views != nil {
				engage := stats.EngageRate(*st.Likes, *st.Dislikes, *st.Comments, *st.Views)
				st.EngageRate = &engage
			}
		}

		if err := doc.UpdateHistory(); err != nil {
			s.logger.Warnf(providers.TypeIngest, "Rejected video observation %s: %s", obs.ID, err)
			failed[obs.ID] = struct{}{}
			continue
		}
		st.RefreshWindowCounters()
		if days := len(st.ViewsHistory) - before; days > 0 {
			s.metrics.AddBackfilledDays(models.VideoDocType, days)
		}
	}

	return upsertSurvivors(docs, failed, func(survivors []*models.Video) error {
		return s.videos.Upsert(ctx, survivors, statsUpsert())
	})
}

func (s *IngestService) flushKeywords(ctx context.Context, observations []*models.StatsObservation) error {
	if len(observations) == 0 {
		return nil
	}
	docs, err := s.keywords.GetOrCreate(ctx, uniqueIDs(observations))
	if err != nil {
		return err
	}
	byID := make(map[string]*models.Keyword, len(docs))
	for _, doc := range docs {
		byID[doc.ID()] = doc
	}

	failed := make(map[string]struct{})
	for _, obs := range observations {
		doc := byID[obs.ID]
		st := doc.PopulateStats()
		doc.PrepareHistory()

		before := len(st.ViewsHistory)
		fetched := obs.FetchedAt.UTC()
		st.FetchedAt = &fetched
		if obs.Views != nil {
			st.Views = obs.Views
		}
		if obs.MonthlySearches != nil {
			st.MonthlySearches = obs.MonthlySearches
		}
		if obs.VideosCount != nil {
			st.VideosCount = obs.VideosCount
		}

		if err := doc.UpdateHistory(); err != nil {
			s.logger.Warnf(providers.TypeIngest, "Rejected keyword observation %s: %s", obs.ID, err)
			failed[obs.ID] = struct{}{}
			continue
		}
		if days := len(st.ViewsHistory) - before; days > 0 {
			s.metrics.AddBackfilledDays(models.KeywordDocType, days)
		}
	}

	return upsertSurvivors(docs, failed, func(survivors []*models.Keyword) error {
		return s.keywords.Upsert(ctx, survivors, statsUpsert())
	})
}

// upsertSurvivors persists every document that did not take a failed update.
func upsertSurvivors[T models.Document](docs []T, failed map[string]struct{}, upsert func([]T) error) error {
	survivors := make([]T, 0, len(docs))
	for _, doc := range docs {
		if _, bad := failed[doc.ID()]; !bad {
			survivors = append(survivors, doc)
		}
	}
	if len(survivors) == 0 {
		return nil
	}
	return upsert(survivors)
}

func statsUpsert() managers.UpsertOptions {
	return managers.UpsertOptions{Sections: []string{models.SectionMain, models.SectionStats}}
}
