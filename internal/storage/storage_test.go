package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"iw_parser/internal/screen"
)

type stubRecord struct {
	Planets int `json:"planets"`
}

func (stubRecord) Type() string { return "stub" }

func openTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "outcomes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func record(t *testing.T, parser string, success bool, text string, at time.Time) *Record {
	t.Helper()
	out := &screen.Outcome{Identifier: parser, Success: success}
	if success {
		out.Record = stubRecord{Planets: 2}
		out.Warnings = []string{"row dropped"}
	} else {
		out.Errors = []string{"Unable to match the pattern.", text}
	}
	rec, err := NewRecord(screen.Document{ID: "42", Source: "test", ReceivedAt: at, Text: text}, out)
	require.NoError(t, err)
	return rec
}

func TestNewRecord(t *testing.T) {
	at := time.Date(2011, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := record(t, "de_index_geb", true, "Mine bis", at)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "42", rec.DocumentID)
	assert.Equal(t, "de_index_geb", rec.ParserID)
	assert.Equal(t, at, rec.ReceivedAt)
	assert.JSONEq(t, `{"planets":2}`, string(rec.Result))

	other := record(t, "de_index_geb", true, "Mine bis", at)
	assert.NotEqual(t, rec.ID, other.ID)

	failed, err := NewRecord(screen.Document{Text: "x"}, &screen.Outcome{Identifier: "de_info_schiff"})
	require.NoError(t, err)
	assert.Nil(t, failed.Result)
	assert.False(t, failed.ReceivedAt.IsZero())
}

func TestOpenUnknownDriver(t *testing.T) {
	ctx := context.Background()
	_, err := Open(ctx, Config{}, zap.NewNop())
	assert.Error(t, err)
	_, err = Open(ctx, Config{Driver: "mysql"}, zap.NewNop())
	assert.Error(t, err)
}

func TestOpenSQLiteThroughConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Driver = "sqlite"
	cfg.SQLitePath = filepath.Join(t.TempDir(), "cfg.db")

	s, err := Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestSQLiteSaveGet(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()
	at := time.Date(2011, 3, 1, 12, 0, 0, 0, time.UTC)

	rec := record(t, "de_index_geb", true, "Erde (1:2:3) Mine bis 24.12.2010 13:45", at)
	require.NoError(t, s.Save(ctx, rec))

	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "42", got.DocumentID)
	assert.Equal(t, "test", got.Source)
	assert.True(t, got.Success)
	assert.True(t, at.Equal(got.ReceivedAt))
	assert.JSONEq(t, `{"planets":2}`, string(got.Result))
	assert.Equal(t, []string{"row dropped"}, got.Warnings)
	assert.Empty(t, got.Errors)

	_, err = s.Get(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteQuery(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()
	base := time.Date(2011, 3, 1, 12, 0, 0, 0, time.UTC)

	recs := []*Record{
		record(t, "de_index_geb", true, "Erde (1:2:3) Forschungslabor bis", base),
		record(t, "de_info_schiff", false, "Schiffinfo: Eisbär", base.Add(time.Minute)),
		record(t, "de_index_geb", true, "Mars (1:2:4) Mine bis", base.Add(2*time.Minute)),
	}
	for _, r := range recs {
		require.NoError(t, s.Save(ctx, r))
	}

	yes := true
	tests := []struct {
		name string
		p    QueryParams
		want []string
	}{
		{"all", QueryParams{}, []string{recs[0].ID, recs[1].ID, recs[2].ID}},
		{"newest first", QueryParams{OrderDesc: true}, []string{recs[2].ID, recs[1].ID, recs[0].ID}},
		{"by parser", QueryParams{ParserID: "de_index_geb"}, []string{recs[0].ID, recs[2].ID}},
		{"successes", QueryParams{Success: &yes}, []string{recs[0].ID, recs[2].ID}},
		{"full text", QueryParams{FullText: "Forschungslabor"}, []string{recs[0].ID}},
		{"since", QueryParams{Since: base.Add(time.Minute)}, []string{recs[1].ID, recs[2].ID}},
		{"limit offset", QueryParams{Limit: 1, Offset: 1}, []string{recs[1].ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Query(ctx, tt.p)
			require.NoError(t, err)
			var ids []string
			for _, r := range got {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestSQLiteStats(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()
	at := time.Date(2011, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(ctx, record(t, "de_index_geb", true, "a", at)))
	require.NoError(t, s.Save(ctx, record(t, "de_index_geb", false, "b", at)))
	require.NoError(t, s.Save(ctx, record(t, "de_mil_schiff_uebersicht", false, "c", at)))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Succeeded)
	assert.Equal(t, 2, stats.Failed)
	assert.Equal(t, map[string]int{"de_index_geb": 2, "de_mil_schiff_uebersicht": 1}, stats.ByParser)
	assert.Equal(t, map[string]int{"Unable to match the pattern.": 2}, stats.TopErrors)
}

// The server backends run only when a test database is configured.

func TestPostgresRoundTrip(t *testing.T) {
	dsn := os.Getenv("IWPARSER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("IWPARSER_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	s, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	defer s.Close()

	rec := record(t, "de_index_geb", true, "Erde (1:2:3)", time.Now().UTC().Truncate(time.Millisecond))
	require.NoError(t, s.Save(ctx, rec))
	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ParserID, got.ParserID)
	assert.JSONEq(t, string(rec.Result), string(got.Result))
}

func TestClickHouseRoundTrip(t *testing.T) {
	addr := os.Getenv("IWPARSER_TEST_CLICKHOUSE_ADDR")
	if addr == "" {
		t.Skip("IWPARSER_TEST_CLICKHOUSE_ADDR not set")
	}
	ctx := context.Background()
	s, err := OpenClickHouse(ctx, ClickHouseConfig{Addr: addr, Database: "default", User: "default"})
	require.NoError(t, err)
	defer s.Close()

	rec := record(t, "de_info_schiff", false, "Schiffinfo:", time.Now().UTC().Truncate(time.Millisecond))
	require.NoError(t, s.Save(ctx, rec))
	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Errors, got.Errors)
}
