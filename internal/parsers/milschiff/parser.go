// Package milschiff parses the military ship overview.
package milschiff

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"iw_parser/internal/assemble"
	"iw_parser/internal/locale"
	"iw_parser/internal/patterns"
	"iw_parser/internal/registry"
	"iw_parser/internal/screen"
	"iw_parser/internal/vocab"
)

// ID identifies the layout.
const ID = "de_mil_schiff_uebersicht"

const noMatchReason = "Unable to match the pattern."

// Kolo is one column of the overview.
type Kolo struct {
	Coords     string `json:"coords"`
	Galaxy     int64  `json:"galaxy"`
	System     int64  `json:"system"`
	Planet     int64  `json:"planet"`
	ObjectType string `json:"object_type"`
}

// Ship is one row of the overview. Counts is keyed by colony coordinates;
// an empty cell leaves the colony out.
type Ship struct {
	Name      string           `json:"name"`
	Counts    map[string]int64 `json:"counts"`
	InFlight  *int64           `json:"in_flight,omitempty"`
	Stationed *int64           `json:"stationed,omitempty"`
	Total     *int64           `json:"total,omitempty"`
}

// Result holds every colony column and every ship row.
type Result struct {
	Kolos map[string]*Kolo `json:"kolos"`
	Ships []*Ship          `json:"ships"`
}

func (r *Result) Type() string { return ID }

// Parser parses the military ship overview.
type Parser struct {
	desc     *screen.Descriptor
	compiler *patterns.Compiler
	loc      *locale.Locale
}

func init() {
	registry.Register(ID, func(lib *patterns.Library) (registry.Parser, error) {
		return New(lib)
	})
}

// New compiles the parser for lib.
func New(lib *patterns.Library) (*Parser, error) {
	desc, err := screen.NewDescriptor(screen.DescriptorConfig{
		ID:       ID,
		CanParse: `Milit.+r[\s\S]*Schiff.+bersicht[\s\S]*Schiffs.+bersicht`,
		Begin:    `HILFE`,
		Priority: 10,
	}, lib.MatchTimeout())
	if err != nil {
		return nil, err
	}
	c := patterns.NewCompiler(lib, Formats, nil)
	if err := c.Compile(); err != nil {
		return nil, fmt.Errorf("%s: %w", ID, err)
	}
	return &Parser{desc: desc, compiler: c, loc: lib.Locale()}, nil
}

func (p *Parser) Descriptor() *screen.Descriptor { return p.desc }

func (p *Parser) Parse(text string) *screen.Outcome {
	text = p.loc.Normalize(text)
	stripped, err := p.desc.Strip(text)
	if err != nil {
		return screen.Failed(ID, err, text)
	}

	tables, err := p.compiler.FindAllMatches(stripped, formatTable)
	if err != nil {
		return screen.Failed(ID, err, stripped)
	}
	if len(tables) == 0 {
		return screen.NoMatch(ID, noMatchReason, stripped)
	}

	res, diags, err := p.assemble(tables)
	if err != nil {
		return screen.Failed(ID, err, stripped)
	}
	return screen.Succeeded(ID, res, diags)
}

func (p *Parser) ParseWithTrace(text string) *registry.TraceResult {
	tr := registry.TraceFormats(p.desc, p.compiler, p.loc.Normalize(text))
	if len(tr.Formats) > 0 {
		tr.Formats = tr.Formats[:1]
		tr.Matched = tr.Formats[0].Matched
	}
	return tr
}

// assemble folds every table into one Result. The header of each table is
// parsed on its own, so tables with different colony columns combine.
func (p *Parser) assemble(tables []patterns.Captures) (*Result, []error, error) {
	res := &Result{Kolos: make(map[string]*Kolo), Ships: []*Ship{}}
	ships := make(map[string]*Ship)
	var rowDiags []error

	diags, err := assemble.Fold(tables, func(_ int, table patterns.Captures) error {
		columns, err := p.header(res, table.Get("header"))
		if err != nil {
			return err
		}

		for _, line := range strings.Split(table.Get("rows"), "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			err := p.row(res, ships, columns, line)
			if err == nil {
				continue
			}
			if !assemble.IsLocal(err) {
				return err
			}
			if joined, ok := err.(interface{ Unwrap() []error }); ok {
				rowDiags = append(rowDiags, joined.Unwrap()...)
				continue
			}
			rowDiags = append(rowDiags, err)
		}
		return nil
	})
	diags = append(diags, rowDiags...)
	if err != nil {
		return nil, diags, err
	}
	return res, diags, nil
}

// header registers the colonies of one header block and returns their
// coordinates in column order.
func (p *Parser) header(res *Result, block string) ([]string, error) {
	sets, err := p.compiler.FindAllMatches(block, formatHeader)
	if err != nil {
		return nil, err
	}

	columns := make([]string, 0, len(sets))
	for _, c := range sets {
		gal, err := p.loc.ToInteger(c.Get("gal"))
		if err != nil {
			return nil, err
		}
		sol, err := p.loc.ToInteger(c.Get("sol"))
		if err != nil {
			return nil, err
		}
		pla, err := p.loc.ToInteger(c.Get("pla"))
		if err != nil {
			return nil, err
		}
		key := assemble.CoordsKey(gal, sol, pla)

		objectType := p.loc.ToString(c.Get("kolo_type"))
		if canonical, ok := vocab.ObjectTypes.Lookup(objectType); ok {
			objectType = canonical
		}
		if _, err := assemble.Upsert(res.Kolos, key, func() (*Kolo, error) {
			return &Kolo{Coords: key, Galaxy: gal, System: sol, Planet: pla, ObjectType: objectType}, nil
		}); err != nil {
			return nil, err
		}
		columns = append(columns, key)
	}
	return columns, nil
}

// row correlates one data line with the header columns. Rows naming a ship
// seen before merge into it: counts are added per colony and differing
// totals are replaced by the later row with a MergeConflictError.
func (p *Parser) row(res *Result, ships map[string]*Ship, columns []string, line string) error {
	split, err := assemble.SplitRow(strings.Split(line, "\t"), 1, 3)
	if err != nil {
		return err
	}
	cells, err := assemble.Correlate(columns, split.Positional)
	if err != nil {
		return fmt.Errorf("ship %q: %w", split.Lead[0], err)
	}

	name := p.loc.ToString(split.Lead[0])
	if name == "" {
		return &assemble.DegenerateKeyError{Key: line, Field: "name"}
	}

	counts := make(map[string]int64, len(cells))
	for _, cell := range cells {
		if strings.TrimSpace(cell.Value) == "" {
			continue
		}
		n, err := p.loc.ToInteger(cell.Value)
		if err != nil {
			return err
		}
		counts[cell.Header] = n
	}
	var trail [3]*int64
	for i, v := range split.Trail {
		if strings.TrimSpace(v) == "" {
			continue
		}
		n, err := p.loc.ToInteger(v)
		if err != nil {
			return err
		}
		trail[i] = &n
	}

	created := false
	ship, err := assemble.Upsert(ships, name, func() (*Ship, error) {
		created = true
		s := &Ship{
			Name:      name,
			Counts:    make(map[string]int64),
			InFlight:  trail[0],
			Stationed: trail[1],
			Total:     trail[2],
		}
		res.Ships = append(res.Ships, s)
		return s, nil
	})
	if err != nil {
		return err
	}
	for k, v := range counts {
		ship.Counts[k] += v
	}
	if created {
		return nil
	}

	var conflicts []error
	for i, field := range []struct {
		name string
		dst  **int64
	}{
		{"in_flight", &ship.InFlight},
		{"stationed", &ship.Stationed},
		{"total", &ship.Total},
	} {
		if sameCount(*field.dst, trail[i]) {
			continue
		}
		conflicts = append(conflicts, &assemble.MergeConflictError{
			Key:      name,
			Field:    field.name,
			Previous: formatCount(*field.dst),
			Current:  formatCount(trail[i]),
		})
		*field.dst = trail[i]
	}
	return errors.Join(conflicts...)
}

func sameCount(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func formatCount(v *int64) string {
	if v == nil {
		return "empty"
	}
	return strconv.FormatInt(*v, 10)
}
