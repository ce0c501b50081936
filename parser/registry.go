package parser

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateParser is returned when two definitions share a name.
	ErrDuplicateParser = errors.New("duplicate parser name")

	// ErrUnknownParser is returned when a parser is requested by a name that
	// is not registered.
	ErrUnknownParser = errors.New("unknown parser")
)

// Registry is the ordered list of parsers used for selection. The fallback
// parser is always present and always last. A Registry is read-only once
// built.
type Registry struct {
	parsers  []*Parser
	byName   map[string]*Parser
	fallback *Parser
}

// NewRegistry registers parsers in selection order and appends the
// basic_8601 fallback.
func NewRegistry(parsers ...*Parser) (*Registry, error) {
	r := &Registry{
		parsers:  make([]*Parser, 0, len(parsers)+1),
		byName:   make(map[string]*Parser, len(parsers)+1),
		fallback: fallback,
	}
	for _, p := range parsers {
		if _, dup := r.byName[p.Name]; dup || p.Name == FallbackName {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateParser, p.Name)
		}
		r.parsers = append(r.parsers, p)
		r.byName[p.Name] = p
	}
	r.byName[FallbackName] = fallback
	return r, nil
}

// Build compiles custom definitions and registers them ahead of the built-in
// library. A custom definition replaces the built-in parser of the same
// name.
func Build(custom []Definition) (*Registry, error) {
	parsers := make([]*Parser, 0, len(custom)+len(library))
	seen := make(map[string]bool, len(custom))
	for _, def := range custom {
		if seen[def.Name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateParser, def.Name)
		}
		seen[def.Name] = true
		p, err := Compile(def)
		if err != nil {
			return nil, err
		}
		parsers = append(parsers, p)
	}
	for _, p := range library {
		if !seen[p.Name] {
			parsers = append(parsers, p)
		}
	}
	return NewRegistry(parsers...)
}

// Default returns a registry holding only the built-in library.
func Default() *Registry {
	r, err := NewRegistry(library...)
	if err != nil {
		panic(err)
	}
	return r
}

// Select returns the first parser whose match rules accept id, or the
// fallback parser.
func (r *Registry) Select(id Identity) *Parser {
	for _, p := range r.parsers {
		if p.Matches(id) {
			return p
		}
	}
	return r.fallback
}

// Lookup returns the parser registered under name.
func (r *Registry) Lookup(name string) (*Parser, error) {
	if p, ok := r.byName[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownParser, name)
}

// Names returns every parser name in selection order, fallback last.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.parsers)+1)
	for _, p := range r.parsers {
		out = append(out, p.Name)
	}
	return append(out, r.fallback.Name)
}

// Selectable returns the names of the parsers offered for manual re-parse,
// in selection order.
func (r *Registry) Selectable() []string {
	var out []string
	for _, p := range r.parsers {
		if p.ShowInSelector {
			out = append(out, p.Name)
		}
	}
	if r.fallback.ShowInSelector {
		out = append(out, r.fallback.Name)
	}
	return out
}

// Len returns the number of registered parsers, fallback included.
func (r *Registry) Len() int { return len(r.parsers) + 1 }
