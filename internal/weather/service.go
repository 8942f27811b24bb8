package weather

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/weather-history/internal/common"
)

// Service runs the fetch-normalize-dedupe-store pipeline and the record queries.
type Service struct {
	store    Store
	provider Provider
	parser   TimestampParser
	logger   *zap.Logger
	now      func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithTimestampParser replaces the default last_updated parser.
func WithTimestampParser(p TimestampParser) Option {
	return func(s *Service) { s.parser = p }
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides the clock used for Record.RecordedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new Service.
func NewService(store Store, provider Provider, opts ...Option) *Service {
	s := &Service{
		store:    store,
		provider: provider,
		parser:   NewLayoutParser(DefaultTimestampLayout),
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest fetches the current weather for city and stores it unless a record for
// the same city, country and observation timestamp already exists.
// It makes exactly one provider call and at most one store mutation.
func (s *Service) Ingest(ctx context.Context, city string) (IngestResult, error) {
	if s.provider == nil {
		return IngestResult{}, fmt.Errorf("%w: no weather provider configured", ErrUpstream)
	}
	if strings.TrimSpace(city) == "" {
		return IngestResult{}, fmt.Errorf("%w: city is required", ErrValidation)
	}

	obs, err := s.provider.Current(ctx, city)
	if err != nil {
		s.logger.Warn("provider fetch failed",
			zap.String("provider", s.provider.Name()),
			zap.String("city", city),
			zap.Error(err))
		if errors.Is(err, ErrUpstream) || errors.Is(err, ErrValidation) {
			return IngestResult{}, err
		}
		return IngestResult{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	observedAt, err := s.parser.Parse(obs.LastUpdated)
	if err != nil {
		return IngestResult{}, err
	}

	name := common.NormalizeCity(obs.Name)

	sess, err := s.store.Acquire(ctx)
	if err != nil {
		return IngestResult{}, err
	}
	defer sess.Close()

	existing, err := sess.FindExisting(ctx, name, obs.Country, observedAt)
	switch {
	case err == nil:
		s.logger.Info("observation already stored",
			zap.String("city", name),
			zap.Time("observed_at", observedAt),
			zap.Int64("id", existing.ID))
		return duplicateResult(existing, name, observedAt), nil
	case !errors.Is(err, ErrNotFound):
		return IngestResult{}, err
	}

	rec := recordFromObservation(obs, name, observedAt, s.now().UTC())
	stored, err := sess.Insert(ctx, rec)
	if errors.Is(err, ErrDuplicate) {
		// Lost the race against a concurrent ingestion of the same observation.
		existing, findErr := sess.FindExisting(ctx, name, obs.Country, observedAt)
		if findErr != nil {
			existing = rec
		}
		return duplicateResult(existing, name, observedAt), nil
	}
	if err != nil {
		return IngestResult{}, err
	}

	s.logger.Info("observation stored",
		zap.String("city", name),
		zap.Time("observed_at", observedAt),
		zap.Int64("id", stored.ID))

	return IngestResult{
		Status: StatusCreated,
		Message: fmt.Sprintf("Weather record created for %s at %s",
			name, observedAt.Format(DefaultTimestampLayout)),
		Record: stored,
	}, nil
}

func duplicateResult(existing Record, name string, observedAt time.Time) IngestResult {
	temp := "?"
	if existing.TempC != nil {
		temp = fmt.Sprintf("%.1f", *existing.TempC)
	}
	return IngestResult{
		Status: StatusDuplicate,
		Message: fmt.Sprintf("No update for %s since the last record at %s, when the temperature was %s°C.",
			name, observedAt.Format(DefaultTimestampLayout), temp),
		Record: existing,
	}
}

func recordFromObservation(obs Observation, name string, observedAt, recordedAt time.Time) Record {
	country := obs.Country
	return Record{
		City:       &name,
		Country:    &country,
		TempC:      obs.TempC,
		TempF:      obs.TempF,
		FeelsLikeC: obs.FeelsLikeC,
		FeelsLikeF: obs.FeelsLikeF,
		Condition:  obs.Condition,
		RecordedAt: &recordedAt,
		ObservedAt: &observedAt,
		WindMph:    obs.WindMph,
		WindKph:    obs.WindKph,
		WindDegree: obs.WindDegree,
		WindDir:    obs.WindDir,
		PressureMb: obs.PressureMb,
		PressureIn: obs.PressureIn,
		PrecipMm:   obs.PrecipMm,
		Humidity:   obs.Humidity,
		Cloud:      obs.Cloud,
	}
}

// List returns every stored record ordered by ID.
func (s *Service) List(ctx context.Context) ([]Record, error) {
	return s.query(ctx, func(sess Session) ([]Record, error) {
		return sess.ListAll(ctx)
	}, "no records stored")
}

// Get returns the record with the given ID.
func (s *Service) Get(ctx context.Context, id int64) (Record, error) {
	sess, err := s.store.Acquire(ctx)
	if err != nil {
		return Record{}, err
	}
	defer sess.Close()

	return sess.FindByID(ctx, id)
}

// ByCity returns the records of a city. The name is normalized first.
func (s *Service) ByCity(ctx context.Context, city string) ([]Record, error) {
	name := common.NormalizeCity(city)
	return s.query(ctx, func(sess Session) ([]Record, error) {
		return sess.FindByCity(ctx, name)
	}, "no records for city")
}

// ByCityAndDate returns the records of a city observed on a calendar day (YYYY-MM-DD).
func (s *Service) ByCityAndDate(ctx context.Context, city, date string) ([]Record, error) {
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	name := common.NormalizeCity(city)
	return s.query(ctx, func(sess Session) ([]Record, error) {
		return sess.FindByCityAndDate(ctx, name, day)
	}, "no records for city and date")
}

// Delete removes the record with the given ID. Unknown IDs yield ErrNotFound.
func (s *Service) Delete(ctx context.Context, id int64) error {
	sess, err := s.store.Acquire(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	deleted, err := sess.DeleteByID(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	s.logger.Info("record deleted", zap.Int64("id", id))
	return nil
}

// Ping reports whether the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) query(ctx context.Context, fn func(Session) ([]Record, error), emptyMsg string) ([]Record, error) {
	sess, err := s.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	records, err := fn(sess)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, emptyMsg)
	}
	return records, nil
}
