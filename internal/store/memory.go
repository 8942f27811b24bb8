package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/weather-history/internal/weather"
)

// MemoryStore is a concurrency-safe in-memory implementation of weather.Store.
// IDs come from a monotonic counter and are never reused after deletion.
type MemoryStore struct {
	mu sync.RWMutex

	records []weather.Record
	nextID  int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

// Acquire returns a session over the shared in-memory table.
func (s *MemoryStore) Acquire(ctx context.Context) (weather.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", weather.ErrStorage, err)
	}
	return &memorySession{store: s}, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

type memorySession struct {
	store  *MemoryStore
	closed bool
}

func (m *memorySession) Close() error {
	m.closed = true
	return nil
}

func (m *memorySession) check() error {
	if m.closed {
		return fmt.Errorf("%w: session closed", weather.ErrStorage)
	}
	return nil
}

// Insert stores a deep copy of rec under a fresh ID. The dedup triple is enforced
// like the SQLite unique index.
func (m *memorySession) Insert(ctx context.Context, rec weather.Record) (weather.Record, error) {
	if err := m.check(); err != nil {
		return weather.Record{}, err
	}
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.City != nil && rec.Country != nil && rec.ObservedAt != nil {
		for _, r := range s.records {
			if sameTriple(r, *rec.City, *rec.Country, *rec.ObservedAt) {
				return weather.Record{}, weather.ErrDuplicate
			}
		}
	}

	rec = cloneRecord(rec)
	rec.ID = s.nextID
	s.nextID++
	s.records = append(s.records, rec)
	return cloneRecord(rec), nil
}

func (m *memorySession) FindByID(ctx context.Context, id int64) (weather.Record, error) {
	if err := m.check(); err != nil {
		return weather.Record{}, err
	}
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.records {
		if r.ID == id {
			return cloneRecord(r), nil
		}
	}
	return weather.Record{}, fmt.Errorf("%w: id %d", weather.ErrNotFound, id)
}

func (m *memorySession) FindByCity(ctx context.Context, city string) ([]weather.Record, error) {
	return m.filter(func(r weather.Record) bool {
		return r.City != nil && *r.City == city
	}, true)
}

func (m *memorySession) FindByCityAndDate(ctx context.Context, city string, day time.Time) ([]weather.Record, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	return m.filter(func(r weather.Record) bool {
		if r.City == nil || *r.City != city || r.ObservedAt == nil {
			return false
		}
		ts := r.ObservedAt.UTC()
		return !ts.Before(from) && ts.Before(to)
	}, true)
}

func (m *memorySession) FindExisting(ctx context.Context, city, country string, observedAt time.Time) (weather.Record, error) {
	if err := m.check(); err != nil {
		return weather.Record{}, err
	}
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.records {
		if sameTriple(r, city, country, observedAt) {
			return cloneRecord(r), nil
		}
	}
	return weather.Record{}, weather.ErrNotFound
}

func (m *memorySession) DeleteByID(ctx context.Context, id int64) (bool, error) {
	if err := m.check(); err != nil {
		return false, err
	}
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.records {
		if r.ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memorySession) ListAll(ctx context.Context) ([]weather.Record, error) {
	return m.filter(func(weather.Record) bool { return true }, false)
}

// filter returns matching records ordered by ID, or by observation timestamp
// then ID when byObserved is set.
func (m *memorySession) filter(keep func(weather.Record) bool, byObserved bool) ([]weather.Record, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]weather.Record, 0)
	for _, r := range s.records {
		if keep(r) {
			result = append(result, cloneRecord(r))
		}
	}

	if byObserved {
		sort.SliceStable(result, func(i, j int) bool {
			a, b := result[i].ObservedAt, result[j].ObservedAt
			switch {
			case a == nil && b == nil:
				return result[i].ID < result[j].ID
			case a == nil:
				return true
			case b == nil:
				return false
			case !a.Equal(*b):
				return a.Before(*b)
			}
			return result[i].ID < result[j].ID
		})
	}
	return result, nil
}

func sameTriple(r weather.Record, city, country string, observedAt time.Time) bool {
	return r.City != nil && *r.City == city &&
		r.Country != nil && *r.Country == country &&
		r.ObservedAt != nil && r.ObservedAt.Equal(observedAt)
}

// cloneRecord copies every pointer field so callers never share memory with
// the stored record.
func cloneRecord(r weather.Record) weather.Record {
	r.City = clonePtr(r.City)
	r.Country = clonePtr(r.Country)
	r.TempC = clonePtr(r.TempC)
	r.TempF = clonePtr(r.TempF)
	r.FeelsLikeC = clonePtr(r.FeelsLikeC)
	r.FeelsLikeF = clonePtr(r.FeelsLikeF)
	r.Condition = clonePtr(r.Condition)
	r.RecordedAt = clonePtr(r.RecordedAt)
	r.ObservedAt = clonePtr(r.ObservedAt)
	r.WindMph = clonePtr(r.WindMph)
	r.WindKph = clonePtr(r.WindKph)
	r.WindDegree = clonePtr(r.WindDegree)
	r.WindDir = clonePtr(r.WindDir)
	r.PressureMb = clonePtr(r.PressureMb)
	r.PressureIn = clonePtr(r.PressureIn)
	r.PrecipMm = clonePtr(r.PrecipMm)
	r.Humidity = clonePtr(r.Humidity)
	r.Cloud = clonePtr(r.Cloud)
	return r
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
