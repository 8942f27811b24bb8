package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/weather-history/internal/weather"
)

// Ingester is the part of weather.Service the scheduler needs.
type Ingester interface {
	Ingest(ctx context.Context, city string) (weather.IngestResult, error)
}

// Scheduler periodically ingests the current weather for configured cities.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   Ingester
	cities    []string
	interval  time.Duration
	timeout   time.Duration
	logger    *zap.Logger
}

// New creates a new Scheduler.
func New(cities []string, interval time.Duration, service Ingester, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		service:   service,
		cities:    cities,
		interval:  interval,
		timeout:   30 * time.Second,
		logger:    logger,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first run happens immediately.
func (s *Scheduler) Start() error {
	if len(s.cities) == 0 {
		s.logger.Info("scheduler: no cities configured; nothing to schedule")
		return nil
	}

	interval := s.interval
	if interval <= 0 {
		interval = time.Hour
	}

	_, err := s.scheduler.Every(interval).SingletonMode().Do(s.RunOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce ingests every configured city one after the other.
// Failures are logged; a failing city does not stop the others.
func (s *Scheduler) RunOnce() {
	s.logger.Info("scheduler: running ingestion job", zap.Int("cities", len(s.cities)))

	var created, duplicate, failed int
	for _, city := range s.cities {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		result, err := s.service.Ingest(ctx, city)
		cancel()

		if err != nil {
			failed++
			s.logger.Warn("scheduler: ingestion failed", zap.String("city", city), zap.Error(err))
			continue
		}
		if result.Status == weather.StatusCreated {
			created++
		} else {
			duplicate++
		}
	}

	s.logger.Info("scheduler: completed ingestion job",
		zap.Int("created", created),
		zap.Int("duplicate", duplicate),
		zap.Int("failed", failed))
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
