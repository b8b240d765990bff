package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Addr     string
	Database string
	User     string
	Password string
}

// ClickHouseStore appends outcomes to a MergeTree table for analytics.
type ClickHouseStore struct {
	conn driver.Conn
}

// OpenClickHouse opens a connection to ClickHouse and creates the schema.
func OpenClickHouse(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseStore, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
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
		_ = conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	s := &ClickHouseStore{conn: conn}
	if err := s.createSchema(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the ClickHouse connection.
func (s *ClickHouseStore) Close() error {
	return s.conn.Close()
}

func (s *ClickHouseStore) createSchema(ctx context.Context) error {
	err := s.conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS outcomes (
			id              String,
			document_id     String,
			source          LowCardinality(String),
			parser_id       LowCardinality(String),
			success         Bool,
			received_at     DateTime64(3),
			stored_at       DateTime64(3),
			raw_text        String,
			result          String,
			errors          Array(String),
			warnings        Array(String)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(received_at)
		ORDER BY (parser_id, received_at, id)
		SETTINGS index_granularity = 8192`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	// Add bloom filter index for full-text search (ignore error if already exists).
	_ = s.conn.Exec(ctx, `ALTER TABLE outcomes ADD INDEX IF NOT EXISTS idx_raw_text_bloom raw_text TYPE tokenbf_v1(32768, 3, 0) GRANULARITY 1`)
	return nil
}

// Save stores one outcome.
func (s *ClickHouseStore) Save(ctx context.Context, rec *Record) error {
	return s.SaveBatch(ctx, []*Record{rec})
}

// SaveBatch stores many outcomes in one insert.
func (s *ClickHouseStore) SaveBatch(ctx context.Context, recs []*Record) error {
	if len(recs) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO outcomes (id, document_id, source, parser_id, success, received_at, stored_at, raw_text, result, errors, warnings)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, rec := range recs {
		prepare(rec)
		err := batch.Append(rec.ID, rec.DocumentID, rec.Source, rec.ParserID, rec.Success,
			rec.ReceivedAt, rec.StoredAt, rec.RawText, string(rec.Result), nonNil(rec.Errors), nonNil(rec.Warnings))
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

const chColumns = `id, document_id, source, parser_id, success, received_at, stored_at, raw_text, result, errors, warnings`

// Get retrieves a single outcome by ID.
func (s *ClickHouseStore) Get(ctx context.Context, id string) (*Record, error) {
	records, err := s.query(ctx, `SELECT `+chColumns+` FROM outcomes WHERE id = ? LIMIT 1`, id)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return &records[0], nil
}

// Query retrieves outcomes matching the given parameters.
func (s *ClickHouseStore) Query(ctx context.Context, p QueryParams) ([]Record, error) {
	var conditions []string
	var args []any

	if p.ParserID != "" {
		conditions = append(conditions, "parser_id = ?")
		args = append(args, p.ParserID)
	}
	if p.Success != nil {
		conditions = append(conditions, "success = ?")
		args = append(args, *p.Success)
	}
	if p.FullText != "" {
		conditions = append(conditions, "raw_text LIKE ?")
		args = append(args, "%"+p.FullText+"%")
	}
	if !p.Since.IsZero() {
		conditions = append(conditions, "received_at >= ?")
		args = append(args, p.Since)
	}

	query := `SELECT ` + chColumns + ` FROM outcomes`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	direction := "ASC"
	if p.OrderDesc {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY received_at %s LIMIT %d OFFSET %d", direction, p.limit(), p.Offset)

	return s.query(ctx, query, args...)
}

func (s *ClickHouseStore) query(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec    Record
			result string
		)
		err := rows.Scan(&rec.ID, &rec.DocumentID, &rec.Source, &rec.ParserID, &rec.Success,
			&rec.ReceivedAt, &rec.StoredAt, &rec.RawText, &result, &rec.Errors, &rec.Warnings)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if result != "" {
			rec.Result = []byte(result)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return records, nil
}

// Stats returns statistics about stored outcomes.
func (s *ClickHouseStore) Stats(ctx context.Context) (*Stats, error) {
	stats := newStats()

	rows, err := s.conn.Query(ctx, `SELECT parser_id, success, count() FROM outcomes GROUP BY parser_id, success`)
	if err != nil {
		return nil, fmt.Errorf("query by parser: %w", err)
	}
	for rows.Next() {
		var (
			parser  string
			success bool
			count   uint64
		)
		if err := rows.Scan(&parser, &success, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan parser stats: %w", err)
		}
		stats.Total += int(count)
		stats.ByParser[parser] += int(count)
		if success {
			stats.Succeeded += int(count)
		} else {
			stats.Failed += int(count)
		}
	}
	rows.Close()

	rows, err = s.conn.Query(ctx, `SELECT errors[1] AS reason, count() FROM outcomes WHERE NOT success AND length(errors) > 0 GROUP BY reason ORDER BY count() DESC LIMIT 20`)
	if err != nil {
		return nil, fmt.Errorf("query top errors: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			reason string
			count  uint64
		)
		if err := rows.Scan(&reason, &count); err != nil {
			return nil, fmt.Errorf("scan error stats: %w", err)
		}
		if reason != "" {
			stats.TopErrors[reason] += int(count)
		}
	}
	return stats, rows.Err()
}
