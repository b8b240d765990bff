package milschiff

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iw_parser/internal/assemble"
	"iw_parser/internal/patterns"
	"iw_parser/internal/screen"
)

func lines(l ...string) string { return strings.Join(l, "\n") + "\n" }

func i64(v int64) *int64 { return &v }

func newParser(t *testing.T) *Parser {
	t.Helper()
	p, err := New(patterns.NewLibrary(nil))
	require.NoError(t, err)
	return p
}

var overview = lines(
	"Militär",
	"Schiffübersicht",
	"Schiffsübersicht",
	"HILFE",
	"\t1:2:3",
	"(Kolonie)\t1:2:4",
	"(Kampfbasis)\tIm Flug\tStat\tGesamt",
	"Systrans\t10\t5\t0\t3\t18",
	"Eisbär\t\t2\t1\t0\t3",
	"\t1:2:5",
	"(KB)\tIm Flug\tStat\tGesamt",
	"Systrans\t7\t0\t3\t18",
	"Kampfdrohne\t1.500\t0\t0\t1.500",
)

func TestParser(t *testing.T) {
	p := newParser(t)

	ok, err := p.Descriptor().Matches(overview)
	require.NoError(t, err)
	require.True(t, ok)

	out := p.Parse(overview)
	require.True(t, out.Success, "errors: %v", out.Errors)
	assert.Empty(t, out.Warnings)
	res := out.Record.(*Result)

	wantKolos := map[string]*Kolo{
		"1:2:3": {Coords: "1:2:3", Galaxy: 1, System: 2, Planet: 3, ObjectType: "Kolonie"},
		"1:2:4": {Coords: "1:2:4", Galaxy: 1, System: 2, Planet: 4, ObjectType: "Kampfbasis"},
		"1:2:5": {Coords: "1:2:5", Galaxy: 1, System: 2, Planet: 5, ObjectType: "Kampfbasis"},
	}
	if diff := cmp.Diff(wantKolos, res.Kolos); diff != "" {
		t.Errorf("kolos mismatch (-want +got):\n%s", diff)
	}

	wantShips := []*Ship{
		{
			Name:     "Systrans",
			Counts:   map[string]int64{"1:2:3": 10, "1:2:4": 5, "1:2:5": 7},
			InFlight: i64(0), Stationed: i64(3), Total: i64(18),
		},
		{
			Name:     "Eisbär",
			Counts:   map[string]int64{"1:2:4": 2},
			InFlight: i64(1), Stationed: i64(0), Total: i64(3),
		},
		{
			Name:     "Kampfdrohne",
			Counts:   map[string]int64{"1:2:5": 1500},
			InFlight: i64(0), Stationed: i64(0), Total: i64(1500),
		},
	}
	if diff := cmp.Diff(wantShips, res.Ships); diff != "" {
		t.Errorf("ships mismatch (-want +got):\n%s", diff)
	}
}

func TestParserDropsMisalignedRow(t *testing.T) {
	text := lines(
		"HILFE",
		"\t1:2:3",
		"(Kolonie)\t1:2:4",
		"(Kolonie)\tIm Flug\tStat\tGesamt",
		"Kaputt\t1\t2\t3",
		"Systrans\t1\t2\t0\t0\t3",
	)
	out := newParser(t).Parse(text)
	require.True(t, out.Success, "errors: %v", out.Errors)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "Kaputt")

	res := out.Record.(*Result)
	require.Len(t, res.Ships, 1)
	assert.Equal(t, "Systrans", res.Ships[0].Name)
}

func TestParserMergesRepeatedShip(t *testing.T) {
	text := lines(
		"HILFE",
		"\t1:2:3",
		"(Kolonie)\tIm Flug\tStat\tGesamt",
		"Systrans\t10\t0\t0\t10",
		"\t1:2:4",
		"(Kolonie)\tIm Flug\tStat\tGesamt",
		"Systrans\t7\t2\t3\t12",
	)
	out := newParser(t).Parse(text)
	require.True(t, out.Success, "errors: %v", out.Errors)

	res := out.Record.(*Result)
	want := []*Ship{{
		Name:     "Systrans",
		Counts:   map[string]int64{"1:2:3": 10, "1:2:4": 7},
		InFlight: i64(2), Stationed: i64(3), Total: i64(12),
	}}
	if diff := cmp.Diff(want, res.Ships); diff != "" {
		t.Errorf("ships mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []string{
		`record "Systrans": in_flight 0 replaced by 2`,
		`record "Systrans": stationed 0 replaced by 3`,
		`record "Systrans": total 10 replaced by 12`,
	}, out.Warnings)
}

func TestParserNoTable(t *testing.T) {
	out := newParser(t).Parse("Militär\nSchiffübersicht\nHILFE\nkeine Schiffe\n")
	assert.False(t, out.Success)
	assert.Equal(t, "Unable to match the pattern.", out.Errors[0])
	assert.True(t, errors.Is(out.Err, screen.ErrStructuralNoMatch))
}

func TestRowCorrelationIndependentOfColumnCount(t *testing.T) {
	p := newParser(t)
	for _, n := range []int{1, 3, 10} {
		res := &Result{Kolos: map[string]*Kolo{}}
		ships := map[string]*Ship{}
		columns := make([]string, n)
		cells := []string{"Systrans"}
		for i := range columns {
			columns[i] = assemble.CoordsKey(1, int64(i+1), 1)
			cells = append(cells, strings.Repeat("1", i+1))
		}
		cells = append(cells, "0", "0", "0")

		require.NoError(t, p.row(res, ships, columns, strings.Join(cells, "\t")))
		require.Len(t, res.Ships, 1)
		for i, key := range columns {
			var want int64
			for j := 0; j <= i; j++ {
				want = want*10 + 1
			}
			assert.Equal(t, want, res.Ships[0].Counts[key], "column %d of %d", i, n)
		}
	}
}
