package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/roylee0704/gron"

	"sds/internal/providers"
	"sds/internal/scheduler/interfaces"
	"sds/internal/services"
	"sds/internal/storage"
	"sds/internal/structures"
)

// Scheduler drives the two periodic jobs: flushing the ingest buffer into
// the store and persisting the store snapshot. The mutex keeps the jobs from
// overlapping with a shutdown-time Persist.
type Scheduler struct {
	config  *structures.Config
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
	ingest  services.IngestServiceInterface
	store   *storage.MemStore
	cron    *gron.Cron
	opsMu   sync.Mutex
}

func (s *Scheduler) Init() {
	s.cron = gron.New()

	s.cron.AddFunc(gron.Every(s.config.Ingest.FlushInterval), func() {
		s.opsMu.Lock()
		defer s.opsMu.Unlock()

		if err := s.ingest.Flush(context.Background()); err != nil {
			s.logger.Errorf(providers.TypeScheduler, "Flush error: %s", err)
			return
		}
		s.logger.Debugf(providers.TypeScheduler, "Ingest buffer flushed")
	})

	s.cron.AddFunc(gron.Every(s.config.Persistence.SaveInterval), func() {
		s.opsMu.Lock()
		defer s.opsMu.Unlock()

		if err := s.save(); err != nil {
			s.logger.Errorf(providers.TypeScheduler, "Error while persisting snapshot: %s", err)
			return
		}
		s.logger.Infof(providers.TypeScheduler, "Persisted snapshot to %s", s.config.Persistence.FilePath)
	})

	s.cron.Start()
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *Scheduler) Restore() error {
	return s.store.LoadSnapshot(s.config.Persistence.FilePath)
}

// Persist drains the ingest buffer and writes a final snapshot. Called on
// shutdown so no accepted observation is lost.
func (s *Scheduler) Persist() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	if err := s.ingest.Flush(context.Background()); err != nil {
		s.logger.Errorf(providers.TypeScheduler, "Final flush error: %s", err)
	}
	s.logger.Infof(providers.TypeScheduler, "Persisting snapshot...")
	if err := s.save(); err != nil {
		s.logger.Errorf(providers.TypeScheduler, "Error while persisting snapshot: %s", err)
		return err
	}
	return nil
}

func (s *Scheduler) save() error {
	start := time.Now()
	if err := s.store.SaveSnapshot(s.config.Persistence.FilePath); err != nil {
		return err
	}
	s.metrics.ObservePersistenceDuration(time.Since(start))
	for index, count := range s.store.DocCount() {
		s.metrics.SetDocsTotal(index, count)
	}
	return nil
}

func NewScheduler(
	config *structures.Config,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
	ingest services.IngestServiceInterface,
	store *storage.MemStore,
) interfaces.SchedulerInterface {
	metrics.RegisterBufferGauge(ingest)
	return &Scheduler{
		config:  config,
		logger:  logger,
		metrics: metrics,
		ingest:  ingest,
		store:   store,
	}
}
