// Package storage provides persistent storage for decoded NOTAM records.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"notam_parser/internal/notam"
)

// timeLayout is how validity instants are stored as SQLite text. All values
// are UTC so lexical order is chronological.
const timeLayout = time.RFC3339

// SQLiteDB wraps a SQLite database connection for local record storage.
type SQLiteDB struct {
	db *sql.DB
}

// OpenSQLite opens or creates a SQLite database at the given path.
// ":memory:" opens a private in-memory database.
func OpenSQLite(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if err := createSQLiteSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// NewSQLiteWithDB wraps an existing connection without touching the schema.
func NewSQLiteWithDB(db *sql.DB) *SQLiteDB {
	return &SQLiteDB{db: db}
}

// Close closes the database connection.
func (d *SQLiteDB) Close() error {
	return d.db.Close()
}

func createSQLiteSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS notices (
		id          TEXT PRIMARY KEY,
		content     TEXT NOT NULL,
		icao_codes  TEXT,
		start_date  TEXT,
		end_date    TEXT,
		permanent   INTEGER NOT NULL DEFAULT 0,
		estimated   INTEGER NOT NULL DEFAULT 0,
		batch_id    TEXT,
		updated_at  TEXT DEFAULT (datetime('now'))
	);

	CREATE INDEX IF NOT EXISTS idx_notices_start ON notices(start_date);
	CREATE INDEX IF NOT EXISTS idx_notices_end ON notices(end_date);

	CREATE TABLE IF NOT EXISTS records (
		notice_id   TEXT NOT NULL,
		seq         INTEGER NOT NULL,
		is_polygon  INTEGER NOT NULL,
		coordinates TEXT NOT NULL,
		PRIMARY KEY (notice_id, seq)
	);

	-- FTS5 virtual table for full-text search on notice text.
	CREATE VIRTUAL TABLE IF NOT EXISTS notices_fts USING fts5(
		content,
		content='notices',
		content_rowid='rowid'
	);

	-- Triggers to keep FTS index in sync.
	CREATE TRIGGER IF NOT EXISTS notices_ai AFTER INSERT ON notices BEGIN
		INSERT INTO notices_fts(rowid, content) VALUES (new.rowid, new.content);
	END;

	CREATE TRIGGER IF NOT EXISTS notices_ad AFTER DELETE ON notices BEGIN
		INSERT INTO notices_fts(notices_fts, rowid, content) VALUES('delete', old.rowid, old.content);
	END;

	CREATE TRIGGER IF NOT EXISTS notices_au AFTER UPDATE ON notices BEGIN
		INSERT INTO notices_fts(notices_fts, rowid, content) VALUES('delete', old.rowid, old.content);
		INSERT INTO notices_fts(rowid, content) VALUES (new.rowid, new.content);
	END;
	`

	_, err := db.Exec(schema)
	return err
}

// SaveRecords stores records, replacing whatever was stored for their notices.
func (d *SQLiteDB) SaveRecords(ctx context.Context, records []notam.Record) (string, error) {
	batchID := uuid.NewString()
	if len(records) == 0 {
		return batchID, nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, g := range groupByNotice(records) {
		first := g.records[0]

		if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE notice_id = ?`, g.id); err != nil {
			return "", fmt.Errorf("delete records: %w", err)
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO notices (id, content, icao_codes, start_date, end_date, permanent, estimated, batch_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				content = excluded.content,
				icao_codes = excluded.icao_codes,
				start_date = excluded.start_date,
				end_date = excluded.end_date,
				permanent = excluded.permanent,
				estimated = excluded.estimated,
				batch_id = excluded.batch_id,
				updated_at = datetime('now')
		`, g.id, first.FullContent, strings.Join(first.ICAOCodes, " "),
			formatTime(first.StartDate), formatTime(first.EndDate),
			boolInt(first.Permanent), boolInt(first.Estimated), batchID)
		if err != nil {
			return "", fmt.Errorf("upsert notice: %w", err)
		}

		for seq, r := range g.records {
			coords, err := notam.MarshalCoordinates(r.Coordinates)
			if err != nil {
				return "", fmt.Errorf("marshal coordinates: %w", err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO records (notice_id, seq, is_polygon, coordinates)
				VALUES (?, ?, ?, ?)
			`, g.id, seq, boolInt(r.IsPolygon), coords)
			if err != nil {
				return "", fmt.Errorf("insert record: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return batchID, nil
}

const recordColumns = `n.id, n.content, n.icao_codes, n.start_date, n.end_date,
	n.permanent, n.estimated, r.is_polygon, r.coordinates`

// RecordsByID returns the records of one notice in stored order.
func (d *SQLiteDB) RecordsByID(ctx context.Context, id string) ([]notam.Record, error) {
	records, err := d.query(ctx, `
		SELECT `+recordColumns+`
		FROM records r JOIN notices n ON n.id = r.notice_id
		WHERE n.id = ?
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
func (d *SQLiteDB) ActiveAt(ctx context.Context, at time.Time, limit int) ([]notam.Record, error) {
	ts := at.UTC().Format(timeLayout)
	return d.query(ctx, `
		SELECT `+recordColumns+`
		FROM records r JOIN notices n ON n.id = r.notice_id
		WHERE (n.start_date IS NOT NULL OR n.end_date IS NOT NULL OR n.permanent = 1)
			AND (n.start_date IS NULL OR n.start_date <= ?)
			AND (n.permanent = 1 OR n.end_date IS NULL OR n.end_date > ?)
		ORDER BY n.rowid, r.seq
		LIMIT ?`, ts, ts, queryLimit(limit))
}

// Search runs an FTS5 query over notice text and returns matching records.
func (d *SQLiteDB) Search(ctx context.Context, query string, limit int) ([]notam.Record, error) {
	return d.query(ctx, `
		SELECT `+recordColumns+`
		FROM records r JOIN notices n ON n.id = r.notice_id
		WHERE n.rowid IN (SELECT rowid FROM notices_fts WHERE notices_fts MATCH ?)
		ORDER BY n.rowid, r.seq
		LIMIT ?`, query, queryLimit(limit))
}

// All returns every stored record in insertion order.
func (d *SQLiteDB) All(ctx context.Context) ([]notam.Record, error) {
	return d.query(ctx, `
		SELECT `+recordColumns+`
		FROM records r JOIN notices n ON n.id = r.notice_id
		ORDER BY n.rowid, r.seq`)
}

func (d *SQLiteDB) query(ctx context.Context, query string, args ...any) ([]notam.Record, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []notam.Record
	for rows.Next() {
		var r notam.Record
		var icao, start, end sql.NullString
		var permanent, estimated, polygon int
		var coords string

		err := rows.Scan(&r.ID, &r.FullContent, &icao, &start, &end,
			&permanent, &estimated, &polygon, &coords)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		if icao.Valid && icao.String != "" {
			r.ICAOCodes = strings.Fields(icao.String)
		}
		r.StartDate = parseTime(start)
		r.EndDate = parseTime(end)
		r.Permanent = permanent == 1
		r.Estimated = estimated == 1
		r.IsPolygon = polygon == 1
		if r.Coordinates, err = notam.UnmarshalCoordinates([]byte(coords)); err != nil {
			return nil, fmt.Errorf("decode coordinates of %s: %w", r.ID, err)
		}

		records = append(records, r)
	}
	return records, rows.Err()
}

// Stats holds aggregate counts of stored data.
type Stats struct {
	Notices  int `json:"notices"`
	Records  int `json:"records"`
	Polygons int `json:"polygons"`
}

// GetStats returns statistics about the stored records.
func (d *SQLiteDB) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notices`).Scan(&stats.Notices)
	if err != nil {
		return nil, err
	}
	err = d.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(is_polygon), 0) FROM records`).
		Scan(&stats.Records, &stats.Polygons)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// DeleteNotice removes a notice and its records.
func (d *SQLiteDB) DeleteNotice(ctx context.Context, id string) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM notices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete notice: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	_, err = d.db.ExecContext(ctx, `DELETE FROM records WHERE notice_id = ?`, id)
	return err
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func queryLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}

// IsNotFound reports whether err is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
