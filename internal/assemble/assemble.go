// Package assemble folds capture sets into result records: keyed upserts,
// time ordered sub-lists and positional correlation of table rows with a
// header declared elsewhere.
package assemble

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"iw_parser/internal/locale"
	"iw_parser/internal/patterns"
)

// DegenerateKeyError reports a keyed occurrence whose identity fields were
// missing on first sight. The occurrence is dropped.
type DegenerateKeyError struct {
	Key   string
	Field string
}

func (e *DegenerateKeyError) Error() string {
	return fmt.Sprintf("record %q: identity field %s missing on first occurrence, dropped", e.Key, e.Field)
}

// Fold applies step to every capture set in order. Errors that are local
// to one field or one occurrence (NormalizationError, DegenerateKeyError,
// ColumnMismatchError, MergeConflictError) are collected as diagnostics; any other error stops
// the fold and is returned.
func Fold(sets []patterns.Captures, step func(i int, c patterns.Captures) error) ([]error, error) {
	var diags []error
	for i, c := range sets {
		err := step(i, c)
		if err == nil {
			continue
		}
		if IsLocal(err) {
			diags = append(diags, err)
			continue
		}
		return diags, err
	}
	return diags, nil
}

// IsLocal reports whether err only affects one field or one occurrence.
func IsLocal(err error) bool {
	var (
		ne *locale.NormalizationError
		de *DegenerateKeyError
		ce *ColumnMismatchError
		me *MergeConflictError
	)
	return errors.As(err, &ne) || errors.As(err, &de) || errors.As(err, &ce) || errors.As(err, &me)
}

// MergeConflictError reports a repeated occurrence of a keyed record whose
// value for a single-valued field differs from the one already held. The
// later value replaces the earlier one.
type MergeConflictError struct {
	Key      string
	Field    string
	Previous string
	Current  string
}

func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("record %q: %s %s replaced by %s", e.Key, e.Field, e.Previous, e.Current)
}

// Upsert returns the record for key, calling create on the first
// occurrence only. Identity fields are taken from that first occurrence.
func Upsert[T any](m map[string]*T, key string, create func() (*T, error)) (*T, error) {
	if v, ok := m[key]; ok {
		return v, nil
	}
	v, err := create()
	if err != nil {
		return nil, err
	}
	m[key] = v
	return v, nil
}

// InsertByTime inserts item into list, which stays sorted ascending by at.
// An item whose time equals existing ones goes after them.
func InsertByTime[T any](list []T, item T, at func(T) int64) []T {
	t := at(item)
	i := sort.Search(len(list), func(i int) bool { return at(list[i]) > t })
	list = append(list, item)
	copy(list[i+1:], list[i:])
	list[i] = item
	return list
}

// CoordsKey formats gal:sol:pla as used for keyed records.
func CoordsKey(gal, sol, pla int64) string {
	return fmt.Sprintf("%d:%d:%d", gal, sol, pla)
}

// ColumnMismatchError reports a table row whose positional cells do not
// line up with the declared header.
type ColumnMismatchError struct {
	Row     string
	Headers int
	Cells   int
}

func (e *ColumnMismatchError) Error() string {
	return fmt.Sprintf("row %q: %d cells where %d columns are declared, dropped", e.Row, e.Cells, e.Headers)
}

// Row is a table row split into its fixed leading cells, its positional
// cells and its fixed trailing cells.
type Row struct {
	Lead       []string
	Positional []string
	Trail      []string
}

// SplitRow splits cells into lead leading cells, lead trailing cells and
// the positional cells between them.
func SplitRow(cells []string, lead, trail int) (Row, error) {
	if len(cells) < lead+trail {
		return Row{}, &ColumnMismatchError{
			Row:     strings.Join(cells, "\t"),
			Headers: lead + trail,
			Cells:   len(cells),
		}
	}
	return Row{
		Lead:       cells[:lead],
		Positional: cells[lead : len(cells)-trail],
		Trail:      cells[len(cells)-trail:],
	}, nil
}

// Cell is one positional value bound to its header column.
type Cell struct {
	Column int
	Header string
	Value  string
}

// Correlate binds positional cell i to header i. The header count is
// whatever the header block declared; a differing cell count is an error.
func Correlate(headers []string, cells []string) ([]Cell, error) {
	if len(headers) != len(cells) {
		return nil, &ColumnMismatchError{
			Row:     strings.Join(cells, "\t"),
			Headers: len(headers),
			Cells:   len(cells),
		}
	}
	out := make([]Cell, len(cells))
	for i := range cells {
		out[i] = Cell{Column: i, Header: headers[i], Value: cells[i]}
	}
	return out, nil
}
