package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/i474232898/weather-history/internal/weather"
)

// Timestamps are written as naive UTC text so that equality and date()
// comparisons in SQL are exact.
const (
	observedLayout = "2006-01-02 15:04:05"
	recordedLayout = "2006-01-02 15:04:05.999999999"
)

const schema = `
CREATE TABLE IF NOT EXISTS weather_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	cidade TEXT,
	pais TEXT,
	temperatura_c REAL,
	temperatura_f REAL,
	sensacao_termica_c REAL,
	sensacao_termica_f REAL,
	descricao_clima TEXT,
	registrado_em TIMESTAMP,
	data_previsao TIMESTAMP,
	vento_mph REAL,
	vento_kph REAL,
	vento_grau INTEGER,
	vento_direcao TEXT,
	pressao_mb REAL,
	pressao_in REAL,
	precipitacao_mm REAL,
	umidade INTEGER,
	nuvens INTEGER
);
CREATE INDEX IF NOT EXISTS idx_weather_records_cidade ON weather_records (cidade);
CREATE UNIQUE INDEX IF NOT EXISTS idx_weather_records_observation
	ON weather_records (cidade, pais, data_previsao);
`

const columns = `id, cidade, pais, temperatura_c, temperatura_f, sensacao_termica_c,
	sensacao_termica_f, descricao_clima, registrado_em, data_previsao, vento_mph, vento_kph,
	vento_grau, vento_direcao, pressao_mb, pressao_in, precipitacao_mm, umidade, nuvens`

// SQLiteStore persists weather records in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenSQLite opens (creating if needed) the database at path and bootstraps the schema.
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	inMemory := path == ":memory:"
	if !inMemory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory for SQLite: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if inMemory {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create weather_records table: %w", err)
	}

	logger.Info("connected to SQLite database", zap.String("path", path))
	return &SQLiteStore{db: db, logger: logger}, nil
}

// Acquire pins a single connection for the caller until the session is closed.
func (s *SQLiteStore) Acquire(ctx context.Context) (weather.Session, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: acquire connection: %v", weather.ErrStorage, err)
	}
	return &sqliteSession{conn: conn, logger: s.logger}, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type sqliteSession struct {
	conn   *sql.Conn
	logger *zap.Logger
}

func (s *sqliteSession) Close() error {
	return s.conn.Close()
}

func (s *sqliteSession) Insert(ctx context.Context, rec weather.Record) (weather.Record, error) {
	res, err := s.conn.ExecContext(ctx, `
		INSERT INTO weather_records (
			cidade, pais, temperatura_c, temperatura_f, sensacao_termica_c, sensacao_termica_f,
			descricao_clima, registrado_em, data_previsao, vento_mph, vento_kph, vento_grau,
			vento_direcao, pressao_mb, pressao_in, precipitacao_mm, umidade, nuvens
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.City, rec.Country, rec.TempC, rec.TempF, rec.FeelsLikeC, rec.FeelsLikeF,
		rec.Condition, formatTime(rec.RecordedAt, recordedLayout), formatTime(rec.ObservedAt, observedLayout),
		rec.WindMph, rec.WindKph, rec.WindDegree, rec.WindDir, rec.PressureMb, rec.PressureIn,
		rec.PrecipMm, rec.Humidity, rec.Cloud,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return weather.Record{}, weather.ErrDuplicate
		}
		return weather.Record{}, fmt.Errorf("%w: insert weather record: %v", weather.ErrStorage, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return weather.Record{}, fmt.Errorf("%w: read inserted id: %v", weather.ErrStorage, err)
	}
	rec.ID = id
	return rec, nil
}

func (s *sqliteSession) FindByID(ctx context.Context, id int64) (weather.Record, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+columns+` FROM weather_records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return weather.Record{}, fmt.Errorf("%w: id %d", weather.ErrNotFound, id)
	}
	if err != nil {
		return weather.Record{}, fmt.Errorf("%w: find by id: %v", weather.ErrStorage, err)
	}
	return rec, nil
}

func (s *sqliteSession) FindByCity(ctx context.Context, city string) ([]weather.Record, error) {
	return s.queryRecords(ctx, `SELECT `+columns+` FROM weather_records
		WHERE cidade = ? ORDER BY data_previsao, id`, city)
}

func (s *sqliteSession) FindByCityAndDate(ctx context.Context, city string, day time.Time) ([]weather.Record, error) {
	return s.queryRecords(ctx, `SELECT `+columns+` FROM weather_records
		WHERE cidade = ? AND date(data_previsao) = ? ORDER BY data_previsao, id`,
		city, day.Format(weather.DateLayout))
}

func (s *sqliteSession) FindExisting(ctx context.Context, city, country string, observedAt time.Time) (weather.Record, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+columns+` FROM weather_records
		WHERE cidade = ? AND pais = ? AND data_previsao = ? LIMIT 1`,
		city, country, observedAt.UTC().Format(observedLayout))
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return weather.Record{}, weather.ErrNotFound
	}
	if err != nil {
		return weather.Record{}, fmt.Errorf("%w: find existing: %v", weather.ErrStorage, err)
	}
	return rec, nil
}

// DeleteByID removes one record inside a transaction; any failure rolls it back.
func (s *sqliteSession) DeleteByID(ctx context.Context, id int64) (bool, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("%w: begin delete: %v", weather.ErrStorage, err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.logger.Error("rollback failed", zap.Int64("id", id), zap.Error(err))
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM weather_records WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("%w: delete weather record: %v", weather.ErrStorage, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: delete weather record: %v", weather.ErrStorage, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("%w: commit delete: %v", weather.ErrStorage, err)
	}
	return n > 0, nil
}

func (s *sqliteSession) ListAll(ctx context.Context) ([]weather.Record, error) {
	return s.queryRecords(ctx, `SELECT `+columns+` FROM weather_records ORDER BY id`)
}

func (s *sqliteSession) queryRecords(ctx context.Context, query string, args ...any) ([]weather.Record, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query weather records: %v", weather.ErrStorage, err)
	}
	defer rows.Close()

	records := make([]weather.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan weather record: %v", weather.ErrStorage, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate weather records: %v", weather.ErrStorage, err)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (weather.Record, error) {
	var (
		rec                                weather.Record
		city, country, condition, windDir  sql.NullString
		tempC, tempF, feelsC, feelsF       sql.NullFloat64
		windMph, windKph, pressMb, pressIn sql.NullFloat64
		precip                             sql.NullFloat64
		windDeg, humidity, cloud           sql.NullInt64
		recordedAt, observedAt             sql.NullTime
	)

	err := sc.Scan(&rec.ID, &city, &country, &tempC, &tempF, &feelsC, &feelsF,
		&condition, &recordedAt, &observedAt, &windMph, &windKph, &windDeg, &windDir,
		&pressMb, &pressIn, &precip, &humidity, &cloud)
	if err != nil {
		return weather.Record{}, err
	}

	rec.City = nullString(city)
	rec.Country = nullString(country)
	rec.TempC = nullFloat(tempC)
	rec.TempF = nullFloat(tempF)
	rec.FeelsLikeC = nullFloat(feelsC)
	rec.FeelsLikeF = nullFloat(feelsF)
	rec.Condition = nullString(condition)
	rec.RecordedAt = nullTime(recordedAt)
	rec.ObservedAt = nullTime(observedAt)
	rec.WindMph = nullFloat(windMph)
	rec.WindKph = nullFloat(windKph)
	rec.WindDegree = nullInt(windDeg)
	rec.WindDir = nullString(windDir)
	rec.PressureMb = nullFloat(pressMb)
	rec.PressureIn = nullFloat(pressIn)
	rec.PrecipMm = nullFloat(precip)
	rec.Humidity = nullInt(humidity)
	rec.Cloud = nullInt(cloud)
	return rec, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func formatTime(t *time.Time, layout string) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(layout)
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}
