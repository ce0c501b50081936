package parser

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/Alain-L/lognorm/rules"
)

// ErrInvalidDefinition is returned for a definition that cannot be compiled
// for reasons other than its rules.
var ErrInvalidDefinition = errors.New("invalid parser definition")

// MatchKey is the declarative form of a MatchRule, as found in parser
// definition files.
type MatchKey struct {
	PodName       string
	ContainerName string
	ImageName     string
	ImageRegex    string
	ContainerType string
}

// Definition is a parser as declared by a user or by the built-in library.
type Definition struct {
	Name string

	// ShowInSelector lists the parser in the manual re-parse selector.
	ShowInSelector bool

	// MatchKeys select the parser automatically. A definition without
	// match keys is only reachable by name.
	MatchKeys []MatchKey

	ParserRules []rules.Step
}

// Parser is a compiled Definition. It is immutable and safe for concurrent
// use.
type Parser struct {
	Name           string
	ShowInSelector bool
	MatchRules     []MatchRule

	chain *rules.Chain
}

// Compile validates def and resolves its rules. Errors wrap
// ErrInvalidDefinition or one of the rules sentinels.
func Compile(def Definition) (*Parser, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("%w: missing name", ErrInvalidDefinition)
	}
	if len(def.ParserRules) == 0 {
		return nil, fmt.Errorf("parser %q: %w: no parser rules", def.Name, ErrInvalidDefinition)
	}

	matchRules := make([]MatchRule, 0, len(def.MatchKeys))
	for i, k := range def.MatchKeys {
		mr := MatchRule{
			PodPrefix:       k.PodName,
			ContainerPrefix: k.ContainerName,
			ImagePrefix:     k.ImageName,
			ContainerType:   k.ContainerType,
		}
		if k.ImageRegex != "" {
			re, err := regexp.Compile(k.ImageRegex)
			if err != nil {
				return nil, fmt.Errorf("parser %q: match key %d: %w: image_regex: %v",
					def.Name, i, ErrInvalidDefinition, err)
			}
			mr.ImageRegex = re
		}
		matchRules = append(matchRules, mr)
	}

	chain, err := rules.Compile(def.ParserRules)
	if err != nil {
		return nil, fmt.Errorf("parser %q: %w", def.Name, err)
	}
	return &Parser{
		Name:           def.Name,
		ShowInSelector: def.ShowInSelector,
		MatchRules:     matchRules,
		chain:          chain,
	}, nil
}

// MustCompile is like Compile but panics on error. It is meant for the
// built-in library and tests.
func MustCompile(def Definition) *Parser {
	p, err := Compile(def)
	if err != nil {
		panic(err)
	}
	return p
}

// Matches reports whether any of the parser's match rules accepts id.
func (p *Parser) Matches(id Identity) bool {
	for _, m := range p.MatchRules {
		if m.Matches(id) {
			return true
		}
	}
	return false
}

// Steps returns the parser's rule chain.
func (p *Parser) Steps() []rules.Step {
	return p.chain.Steps()
}
