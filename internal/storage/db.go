package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"notam_parser/internal/notam"
)

// ErrNotFound is returned when no record exists for a notice id.
var ErrNotFound = errors.New("storage: not found")

// RecordStore persists decoded records keyed by notice id. Saving a notice
// replaces every record previously stored for it.
type RecordStore interface {
	// SaveRecords stores the records and returns the id of the save batch.
	SaveRecords(ctx context.Context, records []notam.Record) (string, error)

	// RecordsByID returns the records of one notice, or ErrNotFound.
	RecordsByID(ctx context.Context, id string) ([]notam.Record, error)

	// ActiveAt returns records whose validity window contains the instant.
	ActiveAt(ctx context.Context, at time.Time, limit int) ([]notam.Record, error)

	Close() error
}

// Config holds database connection settings for both ClickHouse and PostgreSQL.
type Config struct {
	ClickHouse ClickHouseConfig
	Postgres   PostgresConfig
}

// DefaultConfig returns a configuration with default local development settings.
func DefaultConfig() Config {
	return Config{
		ClickHouse: ClickHouseConfig{
			Host:     "localhost",
			Port:     9000,
			Database: "notam",
			User:     "default",
			Password: "",
		},
		Postgres: PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "notam",
			User:     "notam",
			Password: "notam",
		},
	}
}

// DB wraps both ClickHouse and PostgreSQL connections.
type DB struct {
	CH *ClickHouseDB // ClickHouse for decode history and analytics.
	PG *PostgresDB   // PostgreSQL for current records.
}

// Open opens connections to both ClickHouse and PostgreSQL.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	ch, err := OpenClickHouse(ctx, cfg.ClickHouse)
	if err != nil {
		return nil, fmt.Errorf("clickhouse: %w", err)
	}

	pg, err := OpenPostgres(ctx, cfg.Postgres)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	return &DB{CH: ch, PG: pg}, nil
}

// Close closes both database connections.
func (d *DB) Close() error {
	var errs []error
	if d.CH != nil {
		if err := d.CH.Close(); err != nil {
			errs = append(errs, fmt.Errorf("clickhouse: %w", err))
		}
	}
	if d.PG != nil {
		_ = d.PG.Close()
	}
	return errors.Join(errs...)
}

// CreateSchemas creates the schemas in both databases.
func (d *DB) CreateSchemas(ctx context.Context) error {
	if err := d.CH.CreateSchema(ctx); err != nil {
		return fmt.Errorf("clickhouse schema: %w", err)
	}
	if err := d.PG.CreateSchema(ctx); err != nil {
		return fmt.Errorf("postgres schema: %w", err)
	}
	return nil
}

// SaveRecords stores current records in PostgreSQL and appends them to the
// ClickHouse history under the same batch id.
func (d *DB) SaveRecords(ctx context.Context, records []notam.Record) (string, error) {
	batchID, err := d.PG.SaveRecords(ctx, records)
	if err != nil {
		return "", err
	}
	if err := d.CH.AppendHistory(ctx, batchID, time.Now().UTC(), records); err != nil {
		return batchID, fmt.Errorf("clickhouse history: %w", err)
	}
	return batchID, nil
}

// RecordsByID returns the current records of one notice from PostgreSQL.
func (d *DB) RecordsByID(ctx context.Context, id string) ([]notam.Record, error) {
	return d.PG.RecordsByID(ctx, id)
}

// ActiveAt returns records in force at the instant from PostgreSQL.
func (d *DB) ActiveAt(ctx context.Context, at time.Time, limit int) ([]notam.Record, error) {
	return d.PG.ActiveAt(ctx, at, limit)
}

// History returns the decode history of a notice from ClickHouse.
func (d *DB) History(ctx context.Context, id string, limit int) ([]HistoryEntry, error) {
	return d.CH.History(ctx, id, limit)
}

// HistoryStats returns aggregate counts over the ClickHouse history.
func (d *DB) HistoryStats(ctx context.Context) (*CHStats, error) {
	return d.CH.GetStats(ctx)
}

// HistoryStore is implemented by stores that keep every decode of a notice.
type HistoryStore interface {
	History(ctx context.Context, id string, limit int) ([]HistoryEntry, error)
	HistoryStats(ctx context.Context) (*CHStats, error)
}

// Compile-time checks that every backend is a RecordStore.
var (
	_ RecordStore = (*DB)(nil)
	_ RecordStore = (*PostgresDB)(nil)
	_ RecordStore = (*SQLiteDB)(nil)

	_ HistoryStore = (*DB)(nil)
	_ HistoryStore = (*ClickHouseDB)(nil)
)

// noticeGroup is the records of one notice in first-appearance order.
type noticeGroup struct {
	id      string
	records []notam.Record
}

// groupByNotice splits records by notice id, keeping input order.
func groupByNotice(records []notam.Record) []noticeGroup {
	index := make(map[string]int)
	var groups []noticeGroup
	for _, r := range records {
		i, ok := index[r.ID]
		if !ok {
			i = len(groups)
			index[r.ID] = i
			groups = append(groups, noticeGroup{id: r.ID})
		}
		groups[i].records = append(groups[i].records, r)
	}
	return groups
}
