package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps outcomes in PostgreSQL with JSONB results.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres opens a connection pool to PostgreSQL and creates the schema.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
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

	s := &PostgresStore{pool: pool}
	if err := s.createSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the PostgreSQL connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) createSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS outcomes (
		id              UUID PRIMARY KEY,
		document_id     TEXT,
		source          TEXT,
		parser_id       TEXT NOT NULL,
		success         BOOLEAN NOT NULL,
		received_at     TIMESTAMPTZ NOT NULL,
		stored_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		raw_text        TEXT NOT NULL,
		result          JSONB,
		errors          JSONB NOT NULL DEFAULT '[]',
		warnings        JSONB NOT NULL DEFAULT '[]'
	);

	CREATE INDEX IF NOT EXISTS idx_outcomes_parser_id ON outcomes(parser_id);
	CREATE INDEX IF NOT EXISTS idx_outcomes_received_at ON outcomes(received_at);
	`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Save stores rec.
func (s *PostgresStore) Save(ctx context.Context, rec *Record) error {
	prepare(rec)

	var result *string
	if len(rec.Result) > 0 {
		r := string(rec.Result)
		result = &r
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO outcomes (id, document_id, source, parser_id, success, received_at, stored_at, raw_text, result, errors, warnings)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10::jsonb, $11::jsonb)
	`, rec.ID, rec.DocumentID, rec.Source, rec.ParserID, rec.Success, rec.ReceivedAt, rec.StoredAt,
		rec.RawText, result, encodeList(rec.Errors), encodeList(rec.Warnings))
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

const pgColumns = `id::text, COALESCE(document_id, ''), COALESCE(source, ''), parser_id, success,
	received_at, stored_at, raw_text, result::text, errors::text, warnings::text`

// Get retrieves a single outcome by ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgColumns+` FROM outcomes WHERE id::text = $1`, id)
	rec, err := scanPostgres(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Query retrieves outcomes matching the given parameters.
func (s *PostgresStore) Query(ctx context.Context, p QueryParams) ([]Record, error) {
	var conditions []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if p.ParserID != "" {
		conditions = append(conditions, "parser_id = "+arg(p.ParserID))
	}
	if p.Success != nil {
		conditions = append(conditions, "success = "+arg(*p.Success))
	}
	if p.FullText != "" {
		conditions = append(conditions, "raw_text ILIKE "+arg("%"+p.FullText+"%"))
	}
	if !p.Since.IsZero() {
		conditions = append(conditions, "received_at >= "+arg(p.Since))
	}

	query := `SELECT ` + pgColumns + ` FROM outcomes`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	direction := "ASC"
	if p.OrderDesc {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY received_at %s LIMIT %d OFFSET %d", direction, p.limit(), p.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanPostgres(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func scanPostgres(row pgx.Row) (*Record, error) {
	var (
		rec                 Record
		result              *string
		errorList, warnList string
	)
	err := row.Scan(&rec.ID, &rec.DocumentID, &rec.Source, &rec.ParserID, &rec.Success,
		&rec.ReceivedAt, &rec.StoredAt, &rec.RawText, &result, &errorList, &warnList)
	if err != nil {
		return nil, err
	}
	if result != nil {
		rec.Result = []byte(*result)
	}
	rec.Errors = decodeList(errorList)
	rec.Warnings = decodeList(warnList)
	return &rec, nil
}

// Stats returns aggregate statistics about stored outcomes.
func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	stats := newStats()

	rows, err := s.pool.Query(ctx, `SELECT parser_id, success, COUNT(*) FROM outcomes GROUP BY parser_id, success`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			parser  string
			success bool
			count   int64
		)
		if err := rows.Scan(&parser, &success, &count); err != nil {
			rows.Close()
			return nil, err
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
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, `SELECT errors->>0, COUNT(*) FROM outcomes WHERE NOT success GROUP BY 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			reason *string
			count  int64
		)
		if err := rows.Scan(&reason, &count); err != nil {
			return nil, err
		}
		if reason != nil && *reason != "" {
			stats.TopErrors[*reason] += int(count)
		}
	}
	return stats, rows.Err()
}
