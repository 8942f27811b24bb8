package weather

import (
	"context"
	"time"
)

// Provider abstracts the upstream weather data source (WeatherAPI.com in production).
type Provider interface {
	Name() string
	Current(ctx context.Context, city string) (Observation, error)
}

// Repository is the record store contract. Implementations must return
// ErrNotFound from the single-record lookups and empty slices (not errors)
// from the multi-record ones.
type Repository interface {
	Insert(ctx context.Context, rec Record) (Record, error)
	FindByID(ctx context.Context, id int64) (Record, error)
	FindByCity(ctx context.Context, city string) ([]Record, error)
	FindByCityAndDate(ctx context.Context, city string, day time.Time) ([]Record, error)
	FindExisting(ctx context.Context, city, country string, observedAt time.Time) (Record, error)
	DeleteByID(ctx context.Context, id int64) (bool, error)
	ListAll(ctx context.Context) ([]Record, error)
}

// Session is a Repository bound to one store connection. Callers must Close it.
type Session interface {
	Repository
	Close() error
}

// Store hands out sessions. Both the SQLite and the in-memory store satisfy it.
type Store interface {
	Acquire(ctx context.Context) (Session, error)
	Ping(ctx context.Context) error
	Close() error
}
