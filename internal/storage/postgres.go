package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"notam_parser/internal/notam"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// PostgresDB wraps a PostgreSQL connection pool for current records.
type PostgresDB struct {
	pool *pgxpool.Pool
}

// OpenPostgres opens a connection pool to PostgreSQL.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresDB, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	// Test the connection.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

// Close closes the PostgreSQL connection pool.
func (d *PostgresDB) Close() error {
	d.pool.Close()
	return nil
}

// Ping checks the connection.
func (d *PostgresDB) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

// CreateSchema creates the PostgreSQL tables.
func (d *PostgresDB) CreateSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS notams (
		id              TEXT PRIMARY KEY,
		content         TEXT NOT NULL,
		icao_codes      TEXT[] NOT NULL DEFAULT '{}',
		start_date      TIMESTAMPTZ,
		end_date        TIMESTAMPTZ,
		permanent       BOOLEAN NOT NULL DEFAULT FALSE,
		estimated       BOOLEAN NOT NULL DEFAULT FALSE,
		batch_id        UUID,
		first_seen      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_seen       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		seen_count      INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_notams_window ON notams(start_date, end_date);
	CREATE INDEX IF NOT EXISTS idx_notams_icao ON notams USING GIN(icao_codes);

	CREATE TABLE IF NOT EXISTS notam_records (
		notam_id        TEXT NOT NULL REFERENCES notams(id) ON DELETE CASCADE,
		seq             INTEGER NOT NULL,
		is_polygon      BOOLEAN NOT NULL,
		coordinates     JSONB NOT NULL,
		PRIMARY KEY (notam_id, seq)
	);
	`

	_, err := d.pool.Exec(ctx, schema)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// SaveRecords upserts each notice and replaces its records in one transaction.
func (d *PostgresDB) SaveRecords(ctx context.Context, records []notam.Record) (string, error) {
	batchID := uuid.New()
	if len(records) == 0 {
		return batchID.String(), nil
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, g := range groupByNotice(records) {
		first := g.records[0]
		icao := first.ICAOCodes
		if icao == nil {
			icao = []string{}
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO notams (id, content, icao_codes, start_date, end_date, permanent, estimated, batch_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				content = EXCLUDED.content,
				icao_codes = EXCLUDED.icao_codes,
				start_date = EXCLUDED.start_date,
				end_date = EXCLUDED.end_date,
				permanent = EXCLUDED.permanent,
				estimated = EXCLUDED.estimated,
				batch_id = EXCLUDED.batch_id,
				last_seen = NOW(),
				seen_count = notams.seen_count + 1
		`, g.id, first.FullContent, icao, first.StartDate, first.EndDate,
			first.Permanent, first.Estimated, batchID)
		if err != nil {
			return "", fmt.Errorf("upsert notam: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM notam_records WHERE notam_id = $1`, g.id); err != nil {
			return "", fmt.Errorf("delete records: %w", err)
		}

		batch := &pgx.Batch{}
		for seq, r := range g.records {
			coords, err := notam.MarshalCoordinates(r.Coordinates)
			if err != nil {
				return "", fmt.Errorf("marshal coordinates: %w", err)
			}
			batch.Queue(`
				INSERT INTO notam_records (notam_id, seq, is_polygon, coordinates)
				VALUES ($1, $2, $3, $4::jsonb)
			`, g.id, seq, r.IsPolygon, coords)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return "", fmt.Errorf("insert records: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return batchID.String(), nil
}

const pgRecordColumns = `n.id, n.content, n.icao_codes, n.start_date, n.end_date,
	n.permanent, n.estimated, r.is_polygon, r.coordinates::text`

// RecordsByID returns the records of one notice in stored order.
func (d *PostgresDB) RecordsByID(ctx context.Context, id string) ([]notam.Record, error) {
	records, err := d.query(ctx, `
		SELECT `+pgRecordColumns+`
		FROM notam_records r JOIN notams n ON n.id = r.notam_id
		WHERE n.id = $1
		ORDER BY r.seq`, id)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records, nil
}

// ActiveAt returns records in force at the instant. Records with no known
// validity are excluded.
func (d *PostgresDB) ActiveAt(ctx context.Context, at time.Time, limit int) ([]notam.Record, error) {
	return d.query(ctx, `
		SELECT `+pgRecordColumns+`
		FROM notam_records r JOIN notams n ON n.id = r.notam_id
		WHERE (n.start_date IS NOT NULL OR n.end_date IS NOT NULL OR n.permanent)
			AND (n.start_date IS NULL OR n.start_date <= $1)
			AND (n.permanent OR n.end_date IS NULL OR n.end_date > $1)
		ORDER BY n.first_seen, n.id, r.seq
		LIMIT $2`, at.UTC(), queryLimit(limit))
}

// ByLocation returns records of notices that name the ICAO location.
func (d *PostgresDB) ByLocation(ctx context.Context, icao string, limit int) ([]notam.Record, error) {
	return d.query(ctx, `
		SELECT `+pgRecordColumns+`
		FROM notam_records r JOIN notams n ON n.id = r.notam_id
		WHERE $1 = ANY(n.icao_codes)
		ORDER BY n.first_seen, n.id, r.seq
		LIMIT $2`, icao, queryLimit(limit))
}

func (d *PostgresDB) query(ctx context.Context, query string, args ...any) ([]notam.Record, error) {
	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []notam.Record
	for rows.Next() {
		var r notam.Record
		var coords string
		err := rows.Scan(&r.ID, &r.FullContent, &r.ICAOCodes, &r.StartDate, &r.EndDate,
			&r.Permanent, &r.Estimated, &r.IsPolygon, &coords)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if len(r.ICAOCodes) == 0 {
			r.ICAOCodes = nil
		}
		if r.Coordinates, err = notam.UnmarshalCoordinates([]byte(coords)); err != nil {
			return nil, fmt.Errorf("decode coordinates of %s: %w", r.ID, err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// DeleteNotice removes a notice and, by cascade, its records.
func (d *PostgresDB) DeleteNotice(ctx context.Context, id string) error {
	tag, err := d.pool.Exec(ctx, `DELETE FROM notams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete notam: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SeenCount returns how many times a notice has been saved.
func (d *PostgresDB) SeenCount(ctx context.Context, id string) (int, error) {
	var n int
	err := d.pool.QueryRow(ctx, `SELECT seen_count FROM notams WHERE id = $1`, id).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return n, err
}
