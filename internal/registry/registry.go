// Package registry provides a screen parser registry for classifying
// screens and dispatching them to the parser for their layout.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"iw_parser/internal/patterns"
	"iw_parser/internal/screen"
)

// ErrLayoutMismatch is returned when no descriptor applies to a screen.
var ErrLayoutMismatch = errors.New("no parser recognises this screen")

// Parser is implemented by each screen parser.
type Parser interface {
	// Descriptor returns how the parser's layout is recognised.
	Descriptor() *screen.Descriptor

	// Parse extracts a record from text. It never panics and never
	// returns nil.
	Parse(text string) *screen.Outcome
}

// Factory builds a parser for one fragment library.
type Factory func(lib *patterns.Library) (Parser, error)

var (
	factoriesMu sync.Mutex
	factories   []namedFactory
)

type namedFactory struct {
	id  string
	new Factory
}

// Register adds a parser factory. Called during init() in each parser
// package.
func Register(id string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	for _, nf := range factories {
		if nf.id == id {
			panic(fmt.Sprintf("registry: parser %q registered twice", id))
		}
	}
	factories = append(factories, namedFactory{id: id, new: f})
}

// Registry holds instantiated parsers sorted for dispatch.
type Registry struct {
	mu      sync.RWMutex
	parsers []Parser
	sorted  bool
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{}
}

// Build instantiates every registered factory for lib.
func Build(lib *patterns.Library) (*Registry, error) {
	factoriesMu.Lock()
	fs := make([]namedFactory, len(factories))
	copy(fs, factories)
	factoriesMu.Unlock()

	r := New()
	for _, nf := range fs {
		p, err := nf.new(lib)
		if err != nil {
			return nil, fmt.Errorf("build parser %s: %w", nf.id, err)
		}
		r.Add(p)
	}
	r.Sort()
	return r, nil
}

// Add adds a parser to the registry.
func (r *Registry) Add(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers = append(r.parsers, p)
	r.sorted = false
}

// Sort orders parsers by priority, keeping registration order on ties.
func (r *Registry) Sort() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sorted {
		return
	}
	sort.SliceStable(r.parsers, func(i, j int) bool {
		return r.parsers[i].Descriptor().Priority < r.parsers[j].Descriptor().Priority
	})
	r.sorted = true
}

// Classify returns the first parser whose quick-match applies to text.
func (r *Registry) Classify(text string) (Parser, error) {
	r.Sort()
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.parsers {
		ok, err := p.Descriptor().Matches(text)
		if err != nil {
			return nil, fmt.Errorf("classify %s: %w", p.Descriptor().ID, err)
		}
		if ok {
			return p, nil
		}
	}
	return nil, ErrLayoutMismatch
}

// ClassifyAll returns every parser whose quick-match applies, in dispatch
// order.
func (r *Registry) ClassifyAll(text string) ([]Parser, error) {
	r.Sort()
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Parser
	for _, p := range r.parsers {
		ok, err := p.Descriptor().Matches(text)
		if err != nil {
			return nil, fmt.Errorf("classify %s: %w", p.Descriptor().ID, err)
		}
		if ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Dispatch classifies text and parses it with the selected parser. The
// returned outcome is never nil.
func (r *Registry) Dispatch(text string) *screen.Outcome {
	p, err := r.Classify(text)
	if err != nil {
		return screen.Failed("", err, text)
	}
	return p.Parse(text)
}

// Lookup returns the parser with the given descriptor id.
func (r *Registry) Lookup(id string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.parsers {
		if p.Descriptor().ID == id {
			return p, true
		}
	}
	return nil, false
}

// IDs returns the descriptor ids in dispatch order.
func (r *Registry) IDs() []string {
	r.Sort()
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.parsers))
	for _, p := range r.parsers {
		ids = append(ids, p.Descriptor().ID)
	}
	return ids
}

// ParserCount returns the number of parsers.
func (r *Registry) ParserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.parsers)
}
