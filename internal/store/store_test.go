package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/i474232898/weather-history/internal/weather"
)

func ptr[T any](v T) *T { return &v }

func observation(city, country string, at time.Time, tempC float64) weather.Record {
	recorded := time.Date(2025, 3, 24, 20, 0, 0, 123456000, time.UTC)
	return weather.Record{
		City:       ptr(city),
		Country:    ptr(country),
		TempC:      ptr(tempC),
		TempF:      ptr(tempC*9/5 + 32),
		FeelsLikeC: ptr(tempC + 1),
		FeelsLikeF: ptr((tempC+1)*9/5 + 32),
		Condition:  ptr("Partly cloudy"),
		RecordedAt: &recorded,
		ObservedAt: &at,
		WindMph:    ptr(5.6),
		WindKph:    ptr(9.0),
		WindDegree: ptr(120),
		WindDir:    ptr("ESE"),
		PressureMb: ptr(1012.0),
		PressureIn: ptr(29.88),
		PrecipMm:   ptr(0.1),
		Humidity:   ptr(62),
		Cloud:      ptr(50),
	}
}

type storeFactory func(t *testing.T) weather.Store

func factories() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T) weather.Store {
			return NewMemoryStore()
		},
		"sqlite": func(t *testing.T) weather.Store {
			path := filepath.Join(t.TempDir(), "weather.db")
			s, err := OpenSQLite(context.Background(), path, zaptest.NewLogger(t))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func session(t *testing.T, s weather.Store) weather.Session {
	t.Helper()
	sess, err := s.Acquire(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { sess.Close() })
	return sess
}

func TestInsertAndFindByID(t *testing.T) {
	for name, newStore := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sess := session(t, newStore(t))

			at := time.Date(2025, 3, 24, 17, 45, 0, 0, time.UTC)
			rec := observation("Goiania", "Brazil", at, 25.0)

			stored, err := sess.Insert(ctx, rec)
			require.NoError(t, err)
			require.NotZero(t, stored.ID)

			got, err := sess.FindByID(ctx, stored.ID)
			require.NoError(t, err)
			assert.Equal(t, stored, got)
		})
	}
}

func TestInsertKeepsNullFields(t *testing.T) {
	for name, newStore := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sess := session(t, newStore(t))

			stored, err := sess.Insert(ctx, weather.Record{City: ptr("Goiania")})
			require.NoError(t, err)

			got, err := sess.FindByID(ctx, stored.ID)
			require.NoError(t, err)
			assert.Equal(t, "Goiania", *got.City)
			assert.Nil(t, got.Country)
			assert.Nil(t, got.TempC)
			assert.Nil(t, got.ObservedAt)
			assert.Nil(t, got.Humidity)
		})
	}
}

func TestFindByIDMissing(t *testing.T) {
	for name, newStore := range factories() {
		t.Run(name, func(t *testing.T) {
			sess := session(t, newStore(t))

			_, err := sess.FindByID(context.Background(), 42)
			assert.ErrorIs(t, err, weather.ErrNotFound)
		})
	}
}

func TestFindByCityOrdersByObservation(t *testing.T) {
	for name, newStore := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sess := session(t, newStore(t))

			late := time.Date(2025, 3, 24, 18, 0, 0, 0, time.UTC)
			early := time.Date(2025, 3, 24, 9, 15, 0, 0, time.UTC)

			_, err := sess.Insert(ctx, observation("Sao Paulo", "Brazil", late, 28))
			require.NoError(t, err)
			_, err = sess.Insert(ctx, observation("Sao Paulo", "Brazil", early, 21))
			require.NoError(t, err)
			_, err = sess.Insert(ctx, observation("Goiania", "Brazil", early, 24))
			require.NoError(t, err)

			got, err := sess.FindByCity(ctx, "Sao Paulo")
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.True(t, got[0].ObservedAt.Equal(early))
			assert.True(t, got[1].ObservedAt.Equal(late))

			none, err := sess.FindByCity(ctx, "Recife")
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestFindByCityAndDateIgnoresTimeOfDay(t *testing.T) {
	for name, newStore := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sess := session(t, newStore(t))

			for _, at := range []time.Time{
				time.Date(2025, 3, 24, 0, 0, 0, 0, time.UTC),
				time.Date(2025, 3, 24, 17, 45, 0, 0, time.UTC),
				time.Date(2025, 3, 24, 23, 59, 0, 0, time.UTC),
				time.Date(2025, 3, 25, 0, 0, 0, 0, time.UTC),
				time.Date(2025, 3, 23, 23, 59, 0, 0, time.UTC),
			} {
				_, err := sess.Insert(ctx, observation("Goiania", "Brazil", at, 25))
				require.NoError(t, err)
			}
			_, err := sess.Insert(ctx, observation("Brasilia", "Brazil", time.Date(2025, 3, 24, 12, 0, 0, 0, time.UTC), 27))
			require.NoError(t, err)

			day := time.Date(2025, 3, 24, 0, 0, 0, 0, time.UTC)
			got, err := sess.FindByCityAndDate(ctx, "Goiania", day)
			require.NoError(t, err)
			require.Len(t, got, 3)
			for _, r := range got {
				assert.Equal(t, "Goiania", *r.City)
				assert.Equal(t, 24, r.ObservedAt.Day())
			}

			none, err := sess.FindByCityAndDate(ctx, "Goiania", day.AddDate(0, 0, 5))
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestFindExisting(t *testing.T) {
	for name, newStore := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sess := session(t, newStore(t))

			at := time.Date(2025, 3, 24, 17, 45, 0, 0, time.UTC)
			stored, err := sess.Insert(ctx, observation("Goiania", "Brazil", at, 25))
			require.NoError(t, err)

			got, err := sess.FindExisting(ctx, "Goiania", "Brazil", at)
			require.NoError(t, err)
			assert.Equal(t, stored.ID, got.ID)

			_, err = sess.FindExisting(ctx, "Goiania", "Brasil", at)
			assert.ErrorIs(t, err, weather.ErrNotFound)

			_, err = sess.FindExisting(ctx, "Goiania", "Brazil", at.Add(time.Minute))
			assert.ErrorIs(t, err, weather.ErrNotFound)
		})
	}
}

func TestInsertRejectsDuplicateTriple(t *testing.T) {
	for name, newStore := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sess := session(t, newStore(t))

			at := time.Date(2025, 3, 24, 17, 45, 0, 0, time.UTC)
			_, err := sess.Insert(ctx, observation("Goiania", "Brazil", at, 25))
			require.NoError(t, err)

			_, err = sess.Insert(ctx, observation("Goiania", "Brazil", at, 26))
			assert.ErrorIs(t, err, weather.ErrDuplicate)

			all, err := sess.ListAll(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 1)
		})
	}
}

func TestDeleteByID(t *testing.T) {
	for name, newStore := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sess := session(t, newStore(t))

			first, err := sess.Insert(ctx, observation("Goiania", "Brazil", time.Date(2025, 3, 24, 17, 45, 0, 0, time.UTC), 25))
			require.NoError(t, err)
			second, err := sess.Insert(ctx, observation("Goiania", "Brazil", time.Date(2025, 3, 24, 18, 0, 0, 0, time.UTC), 24))
			require.NoError(t, err)

			deleted, err := sess.DeleteByID(ctx, second.ID)
			require.NoError(t, err)
			assert.True(t, deleted)

			_, err = sess.FindByID(ctx, second.ID)
			assert.ErrorIs(t, err, weather.ErrNotFound)

			deleted, err = sess.DeleteByID(ctx, second.ID)
			require.NoError(t, err)
			assert.False(t, deleted)

			// IDs are never handed out twice.
			third, err := sess.Insert(ctx, observation("Goiania", "Brazil", time.Date(2025, 3, 24, 18, 15, 0, 0, time.UTC), 23))
			require.NoError(t, err)
			assert.Greater(t, third.ID, second.ID)

			all, err := sess.ListAll(ctx)
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, first.ID, all[0].ID)
			assert.Equal(t, third.ID, all[1].ID)
		})
	}
}

func TestSessionsShareData(t *testing.T) {
	for name, newStore := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			writer, err := s.Acquire(ctx)
			require.NoError(t, err)
			stored, err := writer.Insert(ctx, observation("Goiania", "Brazil", time.Date(2025, 3, 24, 17, 45, 0, 0, time.UTC), 25))
			require.NoError(t, err)
			require.NoError(t, writer.Close())

			reader := session(t, s)
			got, err := reader.FindByID(ctx, stored.ID)
			require.NoError(t, err)
			assert.Equal(t, stored.ID, got.ID)
			assert.NoError(t, s.Ping(ctx))
		})
	}
}

func TestOpenSQLiteInMemory(t *testing.T) {
	s, err := OpenSQLite(context.Background(), ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	sess := session(t, s)
	_, err = sess.Insert(context.Background(), weather.Record{City: ptr("Goiania")})
	assert.NoError(t, err)
}

func TestReturnedRecordsDoNotAliasStoredData(t *testing.T) {
	for name, newStore := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sess := session(t, newStore(t))

			at := time.Date(2025, 3, 24, 17, 45, 0, 0, time.UTC)
			input := observation("Goiania", "Brazil", at, 25.0)
			stored, err := sess.Insert(ctx, input)
			require.NoError(t, err)

			*input.City = "Recife"
			*stored.TempC = -99

			got, err := sess.FindByID(ctx, stored.ID)
			require.NoError(t, err)
			*got.City = "Changed"
			*got.ObservedAt = at.Add(time.Hour)

			byCity, err := sess.FindByCity(ctx, "Goiania")
			require.NoError(t, err)
			require.Len(t, byCity, 1)
			*byCity[0].Humidity = 0

			again, err := sess.FindByID(ctx, stored.ID)
			require.NoError(t, err)
			assert.Equal(t, "Goiania", *again.City)
			assert.Equal(t, 25.0, *again.TempC)
			assert.Equal(t, 62, *again.Humidity)
			assert.True(t, again.ObservedAt.Equal(at))

			_, err = sess.FindExisting(ctx, "Goiania", "Brazil", at)
			assert.NoError(t, err)
		})
	}
}

func TestMemorySessionClosed(t *testing.T) {
	sess, err := NewMemoryStore().Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, sess.Close())

	_, err = sess.ListAll(context.Background())
	assert.ErrorIs(t, err, weather.ErrStorage)
}
