package analysis

import (
	"sort"

	"github.com/Alain-L/lognorm/parser"
	"github.com/Alain-L/lognorm/severity"
)

// EventSummary is the number of records at one severity.
type EventSummary struct {
	Severity   severity.Severity
	Count      int
	Percentage float64
}

// EventStat represents statistics for a unique event message pattern.
type EventStat struct {
	// Signature is the normalized message, see NormalizeEvent.
	Signature string
	Count     int

	// Severity is the most severe severity seen for the signature.
	Severity severity.Severity

	// Example is the first message seen with this signature.
	Example string
	Parser  string
}

const (
	maxSignatures = 1000
	maxTopEvents  = 100
)

// EventAnalyzer counts records per severity and tracks the signatures of
// warnings and worse.
//
// Usage:
//
//	analyzer := NewEventAnalyzer()
//	for rec := range records {
//	    analyzer.Process(&rec)
//	}
//	summaries, stats := analyzer.Finalize()
type EventAnalyzer struct {
	counts map[severity.Severity]int
	total  int

	stats map[string]*EventStat
}

// NewEventAnalyzer creates a new event analyzer.
func NewEventAnalyzer() *EventAnalyzer {
	return &EventAnalyzer{
		counts: make(map[severity.Severity]int),
		stats:  make(map[string]*EventStat),
	}
}

// Process counts a primary record. Continuations belong to the record that
// opened their block and are ignored.
func (a *EventAnalyzer) Process(rec *parser.Record) {
	if rec.Continuation || !rec.Severity.Valid() {
		return
	}
	a.counts[rec.Severity]++
	a.total++

	if rec.Severity > severity.Warning {
		return
	}
	msg := rec.Message.String()
	pattern := NormalizeEvent(msg)
	if pattern == "" {
		return
	}
	if stat, ok := a.stats[pattern]; ok {
		stat.Count++
		stat.Severity = severity.Merge(stat.Severity, rec.Severity)
	} else if len(a.stats) < maxSignatures {
		a.stats[pattern] = &EventStat{
			Signature: pattern,
			Count:     1,
			Severity:  rec.Severity,
			Example:   msg,
			Parser:    rec.Parser,
		}
	}
}

// Finalize returns the severity distribution, most severe first, and the
// most frequent signatures.
func (a *EventAnalyzer) Finalize() ([]EventSummary, []EventStat) {
	summaries := make([]EventSummary, 0, len(a.counts))
	for sev := severity.Emergency; sev <= severity.Debug; sev++ {
		count := a.counts[sev]
		if count == 0 {
			continue
		}
		summaries = append(summaries, EventSummary{
			Severity:   sev,
			Count:      count,
			Percentage: float64(count) / float64(a.total) * 100,
		})
	}

	eventStats := make([]EventStat, 0, len(a.stats))
	for _, stat := range a.stats {
		eventStats = append(eventStats, *stat)
	}
	sort.Slice(eventStats, func(i, j int) bool {
		if eventStats[i].Count != eventStats[j].Count {
			return eventStats[i].Count > eventStats[j].Count
		}
		return eventStats[i].Signature < eventStats[j].Signature
	})
	if len(eventStats) > maxTopEvents {
		eventStats = eventStats[:maxTopEvents]
	}

	return summaries, eventStats
}
