package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iw_parser/internal/ingest"
)

const queueScreen = "Gebäudebau\nErde (1:2:3)\tMine bis 20.12.2010 08:00\n"

// execute runs the root command and returns what it wrote.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("IWPARSER_LOG_LEVEL", "error")

	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

type parsedLine struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Outcome    struct {
		Identifier string          `json:"identifier"`
		Success    bool            `json:"success"`
		Record     json.RawMessage `json:"record"`
		Errors     []string        `json:"errors"`
	} `json:"outcome"`
}

func decodeLines(t *testing.T, out string) []parsedLine {
	t.Helper()
	var lines []parsedLine
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		var l parsedLine
		require.NoError(t, json.Unmarshal(sc.Bytes(), &l), "line %q", sc.Text())
		lines = append(lines, l)
	}
	return lines
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestParseFile(t *testing.T) {
	path := writeFile(t, "queue.txt", queueScreen)

	stdout, _, err := execute(t, "", "parse", path)
	require.NoError(t, err)

	lines := decodeLines(t, stdout)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].Outcome.Success, "errors: %v", lines[0].Outcome.Errors)
	assert.Equal(t, "de_index_geb", lines[0].Outcome.Identifier)
	assert.Contains(t, string(lines[0].Outcome.Record), `"1:2:3"`)
	assert.Empty(t, lines[0].ID, "nothing stored without --store")
}

func TestParseJSONLKeepsInputOrder(t *testing.T) {
	input := strings.Join([]string{
		`{"id": 1, "text": ` + jsonString(queueScreen) + `}`,
		``,
		`Hallo Welt`,
		`{"id": "drei", "text": ` + jsonString(queueScreen) + `}`,
	}, "\n")

	stdout, stderr, err := execute(t, input, "parse", "--jsonl", "--stats", "--workers", "2")
	require.NoError(t, err)

	lines := decodeLines(t, stdout)
	require.Len(t, lines, 3)
	assert.Equal(t, "1", lines[0].DocumentID)
	assert.True(t, lines[0].Outcome.Success)
	assert.False(t, lines[1].Outcome.Success)
	assert.Empty(t, lines[1].Outcome.Identifier)
	assert.Equal(t, "drei", lines[2].DocumentID)

	assert.Contains(t, stderr, "screens=3 succeeded=2 failed=0 unclassified=1")
	assert.Contains(t, stderr, "de_index_geb=2")
}

func TestParseOnlyParsed(t *testing.T) {
	input := "Hallo Welt\n" + `{"text": ` + jsonString(queueScreen) + `}` + "\n"

	stdout, _, err := execute(t, input, "parse", "--jsonl", "--only-parsed")
	require.NoError(t, err)
	lines := decodeLines(t, stdout)
	require.Len(t, lines, 1)
	assert.Equal(t, "de_index_geb", lines[0].Outcome.Identifier)
}

func TestParseForcedParser(t *testing.T) {
	path := writeFile(t, "queue.txt", queueScreen)

	stdout, _, err := execute(t, "", "parse", "--parser", "de_mil_schiff_uebersicht", path)
	require.NoError(t, err)
	lines := decodeLines(t, stdout)
	require.Len(t, lines, 1)
	assert.False(t, lines[0].Outcome.Success)
	assert.Equal(t, "de_mil_schiff_uebersicht", lines[0].Outcome.Identifier)

	_, _, err = execute(t, "", "parse", "--parser", "de_nope", path)
	assert.ErrorIs(t, err, ingest.ErrUnknownParser)
}

func TestParseMissingFile(t *testing.T) {
	_, _, err := execute(t, "", "parse", filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestParseStoreThenHistory(t *testing.T) {
	t.Setenv("IWPARSER_STORAGE_DRIVER", "sqlite")
	t.Setenv("IWPARSER_STORAGE_SQLITE_PATH", filepath.Join(t.TempDir(), "outcomes.db"))

	input := `{"id": 5, "text": ` + jsonString(queueScreen) + `}` + "\nHallo Welt\n"
	stdout, stderr, err := execute(t, input, "parse", "--jsonl", "--store", "--stats", "--workers", "1")
	require.NoError(t, err)
	assert.Contains(t, stderr, "stored=2")

	lines := decodeLines(t, stdout)
	require.Len(t, lines, 2)
	storedID := lines[0].ID
	require.NotEmpty(t, storedID)

	stdout, _, err = execute(t, "", "history", "--oldest-first")
	require.NoError(t, err)
	var recs []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(stdout), "\n") {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		recs = append(recs, rec)
	}
	require.Len(t, recs, 2)
	assert.Equal(t, storedID, recs[0]["id"])
	assert.Equal(t, "5", recs[0]["document_id"])

	stdout, _, err = execute(t, "", "history", "--failed")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(stdout, "\n"))
	assert.Contains(t, stdout, "Hallo Welt")

	stdout, _, err = execute(t, "", "history", "--id", storedID)
	require.NoError(t, err)
	assert.Contains(t, stdout, `"parser_id":"de_index_geb"`)

	stdout, _, err = execute(t, "", "history", "--stats")
	require.NoError(t, err)
	var st struct {
		Total     int `json:"total"`
		Succeeded int `json:"succeeded"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &st))
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 1, st.Succeeded)

	_, _, err = execute(t, "", "history", "--failed", "--succeeded")
	assert.Error(t, err)
}

func TestClassifyCommand(t *testing.T) {
	stdout, _, err := execute(t, "", "classify", "--list")
	require.NoError(t, err)
	assert.Equal(t, "de_mil_schiff_uebersicht\nde_info_schiff\nde_index_geb\n", stdout)

	path := writeFile(t, "queue.txt", queueScreen)
	stdout, _, err = execute(t, "", "classify", path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, path+": de_index_geb"), stdout)

	stdout, _, err = execute(t, "Hallo Welt", "classify", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"source":"stdin","parsers":[]}`, stdout)
}

func TestTraceCommand(t *testing.T) {
	stdout, _, err := execute(t, queueScreen, "trace", "--json", "--parser", "de_index_geb")
	require.NoError(t, err)

	var tr struct {
		ParserID string `json:"parser_id"`
		Matches  bool   `json:"matches"`
		Matched  bool   `json:"matched"`
		Formats  []struct {
			Name    string `json:"name"`
			Matched bool   `json:"matched"`
		} `json:"formats"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &tr))
	assert.Equal(t, "de_index_geb", tr.ParserID)
	assert.True(t, tr.Matches)
	assert.True(t, tr.Matched)
	require.NotEmpty(t, tr.Formats)
	assert.Equal(t, "queue_line", tr.Formats[0].Name)

	stdout, _, err = execute(t, "Hallo Welt", "trace")
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(stdout, "=== "), "every parser traced when none matches")
	assert.Contains(t, stdout, "quick-match: no")

	_, _, err = execute(t, queueScreen, "trace", "--parser", "de_nope")
	assert.Error(t, err)
}

func TestServeNeedsSomething(t *testing.T) {
	_, _, err := execute(t, "", "serve", "--no-nats", "--no-http")
	assert.Error(t, err)
}

func TestBadLogLevel(t *testing.T) {
	_, _, err := execute(t, "", "--log-level", "loud", "classify", "--list")
	assert.Error(t, err)
}
