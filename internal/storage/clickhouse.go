package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"notam_parser/internal/notam"
)

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// ClickHouseDB wraps a ClickHouse connection for the append-only decode history.
type ClickHouseDB struct {
	conn driver.Conn
}

// Conn returns the underlying ClickHouse connection for direct queries.
func (d *ClickHouseDB) Conn() driver.Conn {
	return d.conn
}

// OpenClickHouse opens a connection to ClickHouse.
func OpenClickHouse(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	// Test the connection.
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return &ClickHouseDB{conn: conn}, nil
}

// Close closes the ClickHouse connection.
func (d *ClickHouseDB) Close() error {
	return d.conn.Close()
}

// CreateSchema creates the ClickHouse tables.
func (d *ClickHouseDB) CreateSchema(ctx context.Context) error {
	err := d.conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS decode_history (
		batch_id        UUID,
		decoded_at      DateTime64(3),
		notam_id        String,
		seq             UInt16,
		is_polygon      Bool,
		vertices        UInt32,
		coordinates     String,
		icao_codes      Array(LowCardinality(String)),
		start_date      Nullable(DateTime),
		end_date        Nullable(DateTime),
		permanent       Bool,
		estimated       Bool,
		content         String
	)
	ENGINE = MergeTree()
	PARTITION BY toYYYYMM(decoded_at)
	ORDER BY (notam_id, decoded_at, seq)
	SETTINGS index_granularity = 8192`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	// Bloom filter index for free-text search (ignore error if it already exists).
	_ = d.conn.Exec(ctx, `ALTER TABLE decode_history ADD INDEX IF NOT EXISTS idx_content_bloom content TYPE tokenbf_v1(32768, 3, 0) GRANULARITY 1`)

	return nil
}

// AppendHistory writes one history row per record, numbered within its notice.
func (d *ClickHouseDB) AppendHistory(ctx context.Context, batchID string, decodedAt time.Time, records []notam.Record) error {
	if len(records) == 0 {
		return nil
	}

	batch, err := d.conn.PrepareBatch(ctx, `
		INSERT INTO decode_history (batch_id, decoded_at, notam_id, seq, is_polygon, vertices, coordinates,
			icao_codes, start_date, end_date, permanent, estimated, content)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, g := range groupByNotice(records) {
		for seq, r := range g.records {
			coords, err := notam.MarshalCoordinates(r.Coordinates)
			if err != nil {
				_ = batch.Abort()
				return fmt.Errorf("marshal coordinates: %w", err)
			}
			icao := r.ICAOCodes
			if icao == nil {
				icao = []string{}
			}
			err = batch.Append(batchID, decodedAt, r.ID, uint16(seq), r.IsPolygon,
				uint32(len(r.Coordinates)), string(coords), icao,
				r.StartDate, r.EndDate, r.Permanent, r.Estimated, r.FullContent)
			if err != nil {
				_ = batch.Abort()
				return fmt.Errorf("append to batch: %w", err)
			}
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// HistoryEntry is one decode of a notice as recorded in the history.
type HistoryEntry struct {
	BatchID   string    `json:"batch_id"`
	DecodedAt time.Time `json:"decoded_at"`
	Records   int       `json:"records"`
	Polygons  int       `json:"polygons"`
}

// History returns the decodes of a notice, newest first.
func (d *ClickHouseDB) History(ctx context.Context, id string, limit int) ([]HistoryEntry, error) {
	rows, err := d.conn.Query(ctx, `
		SELECT toString(batch_id), max(decoded_at), count(), countIf(is_polygon)
		FROM decode_history
		WHERE notam_id = ?
		GROUP BY batch_id
		ORDER BY max(decoded_at) DESC
		LIMIT ?`, id, queryLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var records, polygons uint64
		if err := rows.Scan(&e.BatchID, &e.DecodedAt, &records, &polygons); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		e.Records = int(records)
		e.Polygons = int(polygons)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// CHStats contains statistics about the decode history.
type CHStats struct {
	TotalRows   uint64            `json:"total_rows"`
	DistinctIDs uint64            `json:"distinct_ids"`
	Batches     uint64            `json:"batches"`
	PolygonRows uint64            `json:"polygon_rows"`
	ByLocation  map[string]uint64 `json:"by_location"`
}

// GetStats returns statistics about the decode history.
func (d *ClickHouseDB) GetStats(ctx context.Context) (*CHStats, error) {
	stats := &CHStats{ByLocation: make(map[string]uint64)}

	row := d.conn.QueryRow(ctx, `
		SELECT count(), uniqExact(notam_id), uniqExact(batch_id), countIf(is_polygon)
		FROM decode_history`)
	if err := row.Scan(&stats.TotalRows, &stats.DistinctIDs, &stats.Batches, &stats.PolygonRows); err != nil {
		return nil, fmt.Errorf("count rows: %w", err)
	}

	rows, err := d.conn.Query(ctx, `
		SELECT code, count() FROM decode_history ARRAY JOIN icao_codes AS code
		GROUP BY code ORDER BY count() DESC LIMIT 20`)
	if err != nil {
		return nil, fmt.Errorf("count by location: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var code string
		var count uint64
		if err := rows.Scan(&code, &count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		stats.ByLocation[code] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return stats, nil
}

// HistoryStats is GetStats under the HistoryStore name.
func (d *ClickHouseDB) HistoryStats(ctx context.Context) (*CHStats, error) {
	return d.GetStats(ctx)
}
