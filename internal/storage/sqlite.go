package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// sqliteTime has a fixed width so stored times compare as text.
const sqliteTime = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore keeps outcomes in a local SQLite file with an FTS5 index
// over the raw screen text.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates a SQLite database at the given path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer at a time; concurrent parses queue here instead of failing busy.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := createSQLiteSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func createSQLiteSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS outcomes (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		document_id TEXT,
		source TEXT,
		parser_id TEXT NOT NULL,
		success INTEGER NOT NULL,
		received_at TEXT NOT NULL,
		stored_at TEXT NOT NULL,
		raw_text TEXT NOT NULL,
		result TEXT,
		errors TEXT NOT NULL DEFAULT '[]',
		warnings TEXT NOT NULL DEFAULT '[]'
	);

	CREATE INDEX IF NOT EXISTS idx_outcomes_parser_id ON outcomes(parser_id);
	CREATE INDEX IF NOT EXISTS idx_outcomes_received_at ON outcomes(received_at);
	CREATE INDEX IF NOT EXISTS idx_outcomes_success ON outcomes(success);

	CREATE VIRTUAL TABLE IF NOT EXISTS outcomes_fts USING fts5(
		raw_text,
		content='outcomes',
		content_rowid='seq'
	);

	CREATE TRIGGER IF NOT EXISTS outcomes_ai AFTER INSERT ON outcomes BEGIN
		INSERT INTO outcomes_fts(rowid, raw_text) VALUES (new.seq, new.raw_text);
	END;

	CREATE TRIGGER IF NOT EXISTS outcomes_ad AFTER DELETE ON outcomes BEGIN
		INSERT INTO outcomes_fts(outcomes_fts, rowid, raw_text) VALUES('delete', old.seq, old.raw_text);
	END;
	`
	_, err := db.Exec(schema)
	return err
}

// Save stores rec. An empty ID or StoredAt is filled in.
func (s *SQLiteStore) Save(ctx context.Context, rec *Record) error {
	prepare(rec)

	var result sql.NullString
	if len(rec.Result) > 0 {
		result = sql.NullString{String: string(rec.Result), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outcomes (id, document_id, source, parser_id, success, received_at, stored_at, raw_text, result, errors, warnings)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.DocumentID, rec.Source, rec.ParserID, rec.Success,
		rec.ReceivedAt.UTC().Format(sqliteTime), rec.StoredAt.UTC().Format(sqliteTime),
		rec.RawText, result, encodeList(rec.Errors), encodeList(rec.Warnings))
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

const sqliteColumns = `o.id, o.document_id, o.source, o.parser_id, o.success, o.received_at, o.stored_at,
	o.raw_text, o.result, o.errors, o.warnings`

// Get retrieves a single outcome by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM outcomes o WHERE o.id = ?`, id)
	rec, err := scanSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Query retrieves outcomes matching the given parameters.
func (s *SQLiteStore) Query(ctx context.Context, p QueryParams) ([]Record, error) {
	var conditions []string
	var args []any

	query := `SELECT ` + sqliteColumns + ` FROM outcomes o`
	if p.FullText != "" {
		query += ` JOIN outcomes_fts fts ON o.seq = fts.rowid`
		conditions = append(conditions, "outcomes_fts MATCH ?")
		args = append(args, ftsPhrase(p.FullText))
	}
	if p.ParserID != "" {
		conditions = append(conditions, "o.parser_id = ?")
		args = append(args, p.ParserID)
	}
	if p.Success != nil {
		conditions = append(conditions, "o.success = ?")
		args = append(args, *p.Success)
	}
	if !p.Since.IsZero() {
		conditions = append(conditions, "o.received_at >= ?")
		args = append(args, p.Since.UTC().Format(sqliteTime))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	direction := "ASC"
	if p.OrderDesc {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY o.received_at %s, o.seq %s LIMIT %d OFFSET %d", direction, direction, p.limit(), p.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		rec, err := scanSQLite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// ftsPhrase quotes term so FTS5 treats it as one phrase.
func ftsPhrase(term string) string {
	return `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLite(row scanner) (*Record, error) {
	var (
		rec                 Record
		docID, source       sql.NullString
		received, stored    string
		result              sql.NullString
		errorList, warnList string
	)
	err := row.Scan(&rec.ID, &docID, &source, &rec.ParserID, &rec.Success, &received, &stored,
		&rec.RawText, &result, &errorList, &warnList)
	if err != nil {
		return nil, err
	}
	rec.DocumentID = docID.String
	rec.Source = source.String
	rec.ReceivedAt, _ = time.Parse(sqliteTime, received)
	rec.StoredAt, _ = time.Parse(sqliteTime, stored)
	if result.Valid {
		rec.Result = []byte(result.String)
	}
	rec.Errors = decodeList(errorList)
	rec.Warnings = decodeList(warnList)
	return &rec, nil
}

// Stats returns aggregate statistics about the stored outcomes.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	stats := newStats()

	rows, err := s.db.QueryContext(ctx, "SELECT parser_id, success, COUNT(*) FROM outcomes GROUP BY parser_id, success")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			parser  string
			success bool
			count   int
		)
		if err := rows.Scan(&parser, &success, &count); err != nil {
			_ = rows.Close()
			return nil, err
		}
		stats.Total += count
		stats.ByParser[parser] += count
		if success {
			stats.Succeeded += count
		} else {
			stats.Failed += count
		}
	}
	_ = rows.Close()

	rows, err = s.db.QueryContext(ctx, "SELECT errors FROM outcomes WHERE success = 0")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var errorList string
		if err := rows.Scan(&errorList); err != nil {
			return nil, err
		}
		countError(stats, decodeList(errorList))
	}
	return stats, rows.Err()
}

// prepare fills the generated fields of rec before insertion.
func prepare(rec *Record) {
	if rec.ID == "" {
		rec.ID = newID()
	}
	if rec.StoredAt.IsZero() {
		rec.StoredAt = time.Now().UTC()
	}
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = rec.StoredAt
	}
}
