// Package rules compiles parser rule declarations into executable chains and
// provides the scanners that continue multi-line blocks.
package rules

import (
	"errors"
	"fmt"
	"time"

	"github.com/Alain-L/lognorm/extract"
	"github.com/Alain-L/lognorm/severity"
)

// Configuration errors returned by Compile.
var (
	ErrUnknownRule   = errors.New("unknown rule")
	ErrMissingOption = errors.New("missing rule option")
	ErrInvalidOption = errors.New("invalid rule option")
)

// Step is one rule declaration. A nil Options map is the bare form.
type Step struct {
	Name    string
	Options map[string]any
}

// Bare returns a step without options.
func Bare(name string) Step { return Step{Name: name} }

// With returns a step with options.
func With(name string, options map[string]any) Step {
	return Step{Name: name, Options: options}
}

func (s Step) String() string {
	if s.Options == nil {
		return s.Name
	}
	return fmt.Sprintf("%s%v", s.Name, s.Options)
}

// State is threaded through every rule of a chain.
type State struct {
	Message      extract.Message
	Severity     severity.Severity
	Facility     string
	Remnants     []extract.Remnant
	Timestamp    time.Time
	HasTimestamp bool
}

// setTimestamp keeps the first timestamp found along the chain.
func (st *State) setTimestamp(ts time.Time) {
	if st.HasTimestamp || ts.IsZero() {
		return
	}
	st.Timestamp, st.HasTimestamp = ts, true
}

// apply folds an extractor result into the state.
func (st *State) apply(res extract.Result) {
	st.Message = res.Message
	st.Severity = res.Severity
	st.Facility = res.Facility
	st.Remnants = append(st.Remnants, res.Remnants...)
	st.setTimestamp(res.Timestamp)
}

// rule is a compiled step. It may return a Scanner to open a block, in which
// case the chain stops.
type rule func(st *State, fold bool, f *extract.Formatting) Scanner

// Chain is an ordered list of compiled rules. It is immutable and safe for
// concurrent use.
type Chain struct {
	steps []Step
	rules []rule
}

// Compile resolves every step. Unknown names and bad options are reported
// here so that classification never fails on configuration.
func Compile(steps []Step) (*Chain, error) {
	c := &Chain{
		steps: append([]Step(nil), steps...),
		rules: make([]rule, 0, len(steps)),
	}
	for i, step := range steps {
		factory, ok := registry[step.Name]
		if !ok {
			return nil, fmt.Errorf("rule %d: %w: %q", i, ErrUnknownRule, step.Name)
		}
		r, err := factory(step)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, step.Name, err)
		}
		c.rules = append(c.rules, r)
	}
	return c, nil
}

// MustCompile is like Compile but panics on error. It is meant for the
// built-in parser library.
func MustCompile(steps ...Step) *Chain {
	c, err := Compile(steps)
	if err != nil {
		panic(err)
	}
	return c
}

// Steps returns a copy of the declarations the chain was compiled from.
func (c *Chain) Steps() []Step { return append([]Step(nil), c.steps...) }

// Run executes the chain on a line. The second result is non-nil when a rule
// opened a block; the remaining rules are then skipped. A severity still
// unset at the end of the chain becomes Info, and so do remnants that were
// produced before any severity was known.
func (c *Chain) Run(line string, fold bool, f *extract.Formatting) (State, Scanner) {
	st := State{Message: extract.Plain(line), Severity: severity.Unknown}

	var scanner Scanner
	for _, r := range c.rules {
		if scanner = r(&st, fold, f); scanner != nil {
			break
		}
	}

	if st.Severity == severity.Unknown {
		st.Severity = severity.Info
	}
	for i := range st.Remnants {
		if st.Remnants[i].Severity == severity.Unknown {
			st.Remnants[i].Severity = st.Severity
		}
	}
	return st, scanner
}
