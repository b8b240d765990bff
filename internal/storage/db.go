// Package storage persists parse outcomes to SQLite, PostgreSQL or ClickHouse.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"iw_parser/internal/screen"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("outcome not found")

// Config selects and configures the outcome store. Keys are flat so every
// field maps onto one IWPARSER_STORAGE_* variable.
type Config struct {
	Driver             string `koanf:"driver"` // sqlite, postgres, clickhouse or empty for none
	SQLitePath         string `koanf:"sqlite_path"`
	PostgresDSN        string `koanf:"postgres_dsn"`
	ClickHouseAddr     string `koanf:"clickhouse_addr"`
	ClickHouseDatabase string `koanf:"clickhouse_database"`
	ClickHouseUser     string `koanf:"clickhouse_user"`
	ClickHousePassword string `koanf:"clickhouse_password"`
}

// DefaultConfig returns a configuration with default local development settings.
func DefaultConfig() Config {
	return Config{
		SQLitePath:         "iw_parser.db",
		PostgresDSN:        "postgres://iw:iw@localhost:5432/iw_parser?sslmode=disable",
		ClickHouseAddr:     "localhost:9000",
		ClickHouseDatabase: "iw_parser",
		ClickHouseUser:     "default",
	}
}

// Record is one stored outcome.
type Record struct {
	ID         string          `json:"id"`
	DocumentID string          `json:"document_id,omitempty"`
	Source     string          `json:"source,omitempty"`
	ParserID   string          `json:"parser_id"`
	Success    bool            `json:"success"`
	ReceivedAt time.Time       `json:"received_at"`
	StoredAt   time.Time       `json:"stored_at"`
	RawText    string          `json:"raw_text"`
	Result     json.RawMessage `json:"result,omitempty"`
	Errors     []string        `json:"errors,omitempty"`
	Warnings   []string        `json:"warnings,omitempty"`
}

// NewRecord converts the outcome of doc into a storable record with a
// fresh id. A zero ReceivedAt is replaced by the current time.
func NewRecord(doc screen.Document, out *screen.Outcome) (*Record, error) {
	rec := &Record{
		ID:         newID(),
		DocumentID: string(doc.ID),
		Source:     doc.Source,
		ParserID:   out.Identifier,
		Success:    out.Success,
		ReceivedAt: doc.ReceivedAt,
		RawText:    doc.Text,
		Errors:     out.Errors,
		Warnings:   out.Warnings,
	}
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now().UTC()
	}
	if out.Record != nil {
		data, err := json.Marshal(out.Record)
		if err != nil {
			return nil, fmt.Errorf("marshal record: %w", err)
		}
		rec.Result = data
	}
	return rec, nil
}

// QueryParams contains filtering options for querying outcomes.
type QueryParams struct {
	ParserID  string    // Filter by parser id (exact match).
	Success   *bool     // Filter by success flag.
	FullText  string    // Search in raw_text.
	Since     time.Time // Only outcomes received at or after.
	Limit     int       // Max results (default 100).
	Offset    int       // Pagination offset.
	OrderDesc bool      // Newest first.
}

func (p QueryParams) limit() int {
	if p.Limit > 0 {
		return p.Limit
	}
	return 100
}

// Stats contains aggregate statistics about stored outcomes.
type Stats struct {
	Total     int            `json:"total"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	ByParser  map[string]int `json:"by_parser"`
	TopErrors map[string]int `json:"top_errors"`
}

func newStats() *Stats {
	return &Stats{ByParser: make(map[string]int), TopErrors: make(map[string]int)}
}

// Store is implemented by every backend.
type Store interface {
	Save(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	Query(ctx context.Context, p QueryParams) ([]Record, error)
	Stats(ctx context.Context) (*Stats, error)
	Close() error
}

// Open opens the store selected by cfg.Driver and creates its schema.
func Open(ctx context.Context, cfg Config, log *zap.Logger) (Store, error) {
	log = log.With(zap.String("driver", cfg.Driver))

	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "sqlite":
		s, err = OpenSQLite(cfg.SQLitePath)
	case "postgres":
		s, err = OpenPostgres(ctx, cfg.PostgresDSN)
	case "clickhouse":
		s, err = OpenClickHouse(ctx, ClickHouseConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			User:     cfg.ClickHouseUser,
			Password: cfg.ClickHousePassword,
		})
	case "":
		return nil, errors.New("no storage driver configured")
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Driver, err)
	}

	log.Info("outcome store opened")
	return s, nil
}

func newID() string { return uuid.NewString() }

func encodeList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	data, _ := json.Marshal(items)
	return string(data)
}

func decodeList(s string) []string {
	var items []string
	_ = json.Unmarshal([]byte(s), &items)
	return items
}

// countError adds the leading reason of a failed outcome to stats.
func countError(stats *Stats, errs []string) {
	if len(errs) > 0 && errs[0] != "" {
		stats.TopErrors[errs[0]]++
	}
}
