// Package indexgeb parses the building queue shown on the main page.
package indexgeb

import (
	"fmt"

	"iw_parser/internal/assemble"
	"iw_parser/internal/locale"
	"iw_parser/internal/patterns"
	"iw_parser/internal/registry"
	"iw_parser/internal/screen"
)

// ID identifies the layout.
const ID = "de_index_geb"

const noMatchReason = "Unable to match the pattern."

// Construction is one building in progress.
type Construction struct {
	Name string `json:"name"`
	// CompletesAt is Unix seconds.
	CompletesAt int64 `json:"completes_at"`
	// Remaining is in seconds when the screen shows it.
	Remaining *int64 `json:"remaining,omitempty"`
}

// Planet is one queue entry per location.
type Planet struct {
	Name      string         `json:"name"`
	Coords    string         `json:"coords"`
	Galaxy    int64          `json:"galaxy"`
	System    int64          `json:"system"`
	Planet    int64          `json:"planet"`
	Buildings []Construction `json:"buildings"`
}

// Result is keyed by "gal:sol:pla".
type Result struct {
	Planets map[string]*Planet `json:"planets"`
}

func (r *Result) Type() string { return ID }

// Parser parses the building queue.
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
		CanParse: `\(\d+:\d+:\d+\)\s+(?:[^\n]*\s+bis\s(?:\d|[^\d\s,]+\s\d{1,2})|n.{1,5}scht)`,
		Priority: 30,
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

	sets, err := p.compiler.FindAllMatches(stripped, "queue_line")
	if err != nil {
		return screen.Failed(ID, err, stripped)
	}
	if len(sets) == 0 {
		return screen.NoMatch(ID, noMatchReason, stripped)
	}

	res, diags, err := Assemble(p.loc, sets)
	if err != nil {
		return screen.Failed(ID, err, stripped)
	}
	return screen.Succeeded(ID, res, diags)
}

func (p *Parser) ParseWithTrace(text string) *registry.TraceResult {
	return registry.TraceFormats(p.desc, p.compiler, p.loc.Normalize(text))
}

// Assemble folds queue lines into a Result. Planet identity comes from the
// first line for a location; constructions accumulate ordered by
// completion time.
func Assemble(loc *locale.Locale, sets []patterns.Captures) (*Result, []error, error) {
	res := &Result{Planets: make(map[string]*Planet)}

	diags, err := assemble.Fold(sets, func(_ int, c patterns.Captures) error {
		gal, err := loc.ToInteger(c.Get("gal"))
		if err != nil {
			return err
		}
		sol, err := loc.ToInteger(c.Get("sol"))
		if err != nil {
			return err
		}
		pla, err := loc.ToInteger(c.Get("pla"))
		if err != nil {
			return err
		}
		key := assemble.CoordsKey(gal, sol, pla)

		planet, err := assemble.Upsert(res.Planets, key, func() (*Planet, error) {
			name := loc.ToString(c.Get("planet"))
			if name == "" {
				return nil, &assemble.DegenerateKeyError{Key: key, Field: "planet"}
			}
			return &Planet{
				Name:      name,
				Coords:    key,
				Galaxy:    gal,
				System:    sol,
				Planet:    pla,
				Buildings: []Construction{},
			}, nil
		})
		if err != nil {
			return err
		}

		if !c.Present("building") {
			return nil
		}
		until, err := loc.ToTimestamp(c.Get("until"))
		if err != nil {
			return err
		}
		b := Construction{Name: loc.ToString(c.Get("building")), CompletesAt: until}
		if c.Present("remaining") {
			secs, err := loc.ToDurationSeconds(c.Get("remaining"))
			if err != nil {
				return err
			}
			b.Remaining = &secs
		}
		planet.Buildings = assemble.InsertByTime(planet.Buildings, b, func(b Construction) int64 { return b.CompletesAt })
		return nil
	})
	if err != nil {
		return nil, diags, err
	}
	return res, diags, nil
}
