package parser

import (
	"strings"
	"time"

	"github.com/Alain-L/lognorm/severity"
)

// LogFilters selects the records worth showing. Empty fields do not filter;
// start from NoFilters, since the zero Severity is Emergency.
type LogFilters struct {
	BeginT time.Time
	EndT   time.Time

	// MinSeverity keeps records at least as severe. severity.Unknown
	// disables the filter.
	MinSeverity severity.Severity

	Facilities []string
	Parsers    []string

	// GrepExpr keeps records whose text contains every expression;
	// ExcludeExpr drops records whose text contains any of them.
	GrepExpr    []string
	ExcludeExpr []string
}

// NoFilters returns filters that keep everything.
func NoFilters() LogFilters {
	return LogFilters{MinSeverity: severity.Unknown}
}

// Keep reports whether rec passes the filters on its own.
func (f LogFilters) Keep(rec Record) bool {
	if !f.BeginT.IsZero() && rec.HasTimestamp && rec.Timestamp.Before(f.BeginT) {
		return false
	}
	if !f.EndT.IsZero() && rec.HasTimestamp && rec.Timestamp.After(f.EndT) {
		return false
	}
	if f.MinSeverity != severity.Unknown && !rec.Severity.IsDiff() && rec.Severity > f.MinSeverity {
		return false
	}
	if len(f.Facilities) > 0 && !sliceContains(f.Facilities, rec.Facility) {
		return false
	}
	if len(f.Parsers) > 0 && !sliceContains(f.Parsers, rec.Parser) {
		return false
	}
	if len(f.GrepExpr) > 0 || len(f.ExcludeExpr) > 0 {
		text := rec.Text()
		if !containsAll(text, f.GrepExpr) || containsAny(text, f.ExcludeExpr) {
			return false
		}
	}
	return true
}

// FilterStream reads in, applies the filters, and sends the kept records to
// out, which it closes when in is drained. Continuation records follow the
// decision taken for the record that opened their block, so that a block
// is never shown in part.
func FilterStream(in <-chan Record, out chan<- Record, filters LogFilters) {
	defer close(out)

	opened := make(map[string]bool)
	for rec := range in {
		var keep bool
		if rec.Continuation {
			keep = opened[rec.Source]
		} else {
			keep = filters.Keep(rec)
			opened[rec.Source] = keep
		}
		if keep {
			out <- rec
		}
	}
}

// containsAll reports whether every pattern is present in s.
func containsAll(s string, patterns []string) bool {
	for _, p := range patterns {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func sliceContains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
