package assemble

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iw_parser/internal/locale"
	"iw_parser/internal/patterns"
)

type entry struct {
	Name string `json:"name"`
	At   int64  `json:"at"`
}

type location struct {
	Key     string  `json:"key"`
	Name    string  `json:"name"`
	Entries []entry `json:"entries"`
}

func foldLocations(t *testing.T, sets []patterns.Captures) (map[string]*location, []error) {
	t.Helper()
	out := make(map[string]*location)
	diags, err := Fold(sets, func(_ int, c patterns.Captures) error {
		key := c.Get("coords")
		loc, err := Upsert(out, key, func() (*location, error) {
			if !c.Present("name") {
				return nil, &DegenerateKeyError{Key: key, Field: "name"}
			}
			return &location{Key: key, Name: c.Get("name")}, nil
		})
		if err != nil {
			return err
		}
		var at int64
		fmt.Sscan(c.Get("at"), &at)
		loc.Entries = InsertByTime(loc.Entries, entry{Name: c.Get("entry"), At: at}, func(e entry) int64 { return e.At })
		return nil
	})
	require.NoError(t, err)
	return out, diags
}

func TestKeyedMergeOrdersByTime(t *testing.T) {
	sets := []patterns.Captures{
		{"coords": "1:2:3", "name": "Erde", "entry": "late", "at": "100"},
		{"coords": "1:2:3", "name": "Erde", "entry": "early", "at": "50"},
	}

	got, diags := foldLocations(t, sets)
	assert.Empty(t, diags)
	want := map[string]*location{
		"1:2:3": {Key: "1:2:3", Name: "Erde", Entries: []entry{{"early", 50}, {"late", 100}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("fold mismatch (-want +got):\n%s", diff)
	}
}

func TestIdentityComesFromFirstOccurrence(t *testing.T) {
	sets := []patterns.Captures{
		{"coords": "1:2:3", "name": "Erde", "entry": "a", "at": "1"},
		{"coords": "1:2:3", "name": "Renamed", "entry": "b", "at": "2"},
	}
	got, _ := foldLocations(t, sets)
	assert.Equal(t, "Erde", got["1:2:3"].Name)
}

func TestDegenerateKeyIsDropped(t *testing.T) {
	sets := []patterns.Captures{
		{"coords": "1:2:3", "name": "", "entry": "a", "at": "1"},
		{"coords": "1:2:4", "name": "Mars", "entry": "b", "at": "2"},
	}
	got, diags := foldLocations(t, sets)
	require.Len(t, diags, 1)
	var de *DegenerateKeyError
	require.True(t, errors.As(diags[0], &de))
	assert.Equal(t, "1:2:3", de.Key)
	assert.NotContains(t, got, "1:2:3")
	assert.Contains(t, got, "1:2:4")
}

func TestFoldStopsOnStructuralError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	_, err := Fold([]patterns.Captures{{}, {}, {}}, func(i int, _ patterns.Captures) error {
		calls++
		if i == 1 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestFoldCollectsNormalizationErrors(t *testing.T) {
	loc := locale.Default()
	diags, err := Fold([]patterns.Captures{{"n": "x"}, {"n": "5"}}, func(_ int, c patterns.Captures) error {
		_, err := loc.ToInteger(c.Get("n"))
		return err
	})
	require.NoError(t, err)
	assert.Len(t, diags, 1)
}

func TestAssemblyIsDeterministic(t *testing.T) {
	sets := []patterns.Captures{
		{"coords": "1:2:3", "name": "Erde", "entry": "x", "at": "7"},
		{"coords": "2:2:2", "name": "Mars", "entry": "y", "at": "7"},
		{"coords": "1:2:3", "name": "Erde", "entry": "z", "at": "7"},
	}
	first, _ := foldLocations(t, sets)
	second, _ := foldLocations(t, sets)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.Equal(t, []entry{{"x", 7}, {"z", 7}}, first["1:2:3"].Entries, "ties keep insertion order")
}

func TestInsertByTime(t *testing.T) {
	at := func(v int64) int64 { return v }
	var list []int64
	for _, v := range []int64{5, 1, 3, 3, 9, 0} {
		list = InsertByTime(list, v, at)
	}
	assert.Equal(t, []int64{0, 1, 3, 3, 5, 9}, list)
}

func TestCorrelateAnyColumnCount(t *testing.T) {
	for _, n := range []int{1, 3, 10} {
		t.Run(fmt.Sprintf("%d columns", n), func(t *testing.T) {
			headers := make([]string, n)
			cells := []string{"Systrans"}
			for i := 0; i < n; i++ {
				headers[i] = CoordsKey(1, int64(i+1), 1)
				cells = append(cells, fmt.Sprint(i+10))
			}
			cells = append(cells, "4", "5", "6")

			row, err := SplitRow(cells, 1, 3)
			require.NoError(t, err)
			assert.Equal(t, []string{"Systrans"}, row.Lead)
			assert.Equal(t, []string{"4", "5", "6"}, row.Trail)

			got, err := Correlate(headers, row.Positional)
			require.NoError(t, err)
			require.Len(t, got, n)
			for i, c := range got {
				assert.Equal(t, i, c.Column)
				assert.Equal(t, headers[i], c.Header)
				assert.Equal(t, fmt.Sprint(i+10), c.Value)
			}
		})
	}
}

func TestCorrelateMismatch(t *testing.T) {
	_, err := Correlate([]string{"1:1:1", "1:1:2"}, []string{"5"})
	var ce *ColumnMismatchError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 2, ce.Headers)
	assert.Equal(t, 1, ce.Cells)
	assert.True(t, IsLocal(err))

	_, err = SplitRow([]string{"a", "b"}, 1, 3)
	assert.Error(t, err)
}

func TestCoordsKey(t *testing.T) {
	assert.Equal(t, "12:345:6", CoordsKey(12, 345, 6))
}

func TestMergeConflictIsLocal(t *testing.T) {
	err := &MergeConflictError{Key: "Systrans", Field: "total", Previous: "10", Current: "12"}
	assert.True(t, IsLocal(err))
	assert.True(t, IsLocal(fmt.Errorf("row: %w", err)))
	assert.Equal(t, `record "Systrans": total 10 replaced by 12`, err.Error())
}
