// Package analysis aggregates classified records into a run summary.
package analysis

import (
	"sort"
	"time"

	"github.com/Alain-L/lognorm/parser"
	"github.com/Alain-L/lognorm/severity"
)

// GlobalMetrics aggregates general statistics over every record.
type GlobalMetrics struct {
	// Count is the number of primary records.
	Count int

	// Continuations is the number of records produced inside open blocks.
	Continuations int

	// Untimed is the number of primary records without a timestamp.
	Untimed int

	MinTimestamp time.Time
	MaxTimestamp time.Time
}

// Duration is the time span covered by the timestamped records.
func (g GlobalMetrics) Duration() time.Duration {
	return g.MaxTimestamp.Sub(g.MinTimestamp)
}

// CountKey identifies a counter of the metrics export.
type CountKey struct {
	Parser   string
	Severity severity.Severity
}

// TimeBucket is the number of records in one minute.
type TimeBucket struct {
	Start time.Time
	Count int
}

// AggregatedMetrics is the final output of a run.
type AggregatedMetrics struct {
	Global GlobalMetrics

	// Events is the severity distribution, most severe first.
	Events []EventSummary

	// TopEvents holds the most frequent signatures of warnings and worse.
	TopEvents []EventStat

	Parsers    []EntityCount
	Facilities []EntityCount
	Sources    []EntityCount

	// Counts breaks the primary records down by parser and severity.
	Counts map[CountKey]int

	// Timeline counts timestamped records per minute, oldest first.
	Timeline []TimeBucket
}

const maxEntities = 20

// StreamingAnalyzer aggregates records as they are produced without
// keeping them in memory. It is not safe for concurrent use; the CLI feeds it
// from the single goroutine that renders records.
//
// Usage:
//
//	analyzer := NewStreamingAnalyzer()
//	for rec := range records {
//	    analyzer.Process(&rec)
//	}
//	metrics := analyzer.Finalize()
type StreamingAnalyzer struct {
	global GlobalMetrics
	events *EventAnalyzer

	parsers    map[string]int
	facilities map[string]int
	sources    map[string]int
	counts     map[CountKey]int
	minutes    map[int64]int
}

// NewStreamingAnalyzer creates an empty analyzer.
func NewStreamingAnalyzer() *StreamingAnalyzer {
	return &StreamingAnalyzer{
		events:     NewEventAnalyzer(),
		parsers:    make(map[string]int),
		facilities: make(map[string]int),
		sources:    make(map[string]int),
		counts:     make(map[CountKey]int),
		minutes:    make(map[int64]int),
	}
}

// Process adds one record.
func (a *StreamingAnalyzer) Process(rec *parser.Record) {
	if rec.Continuation {
		a.global.Continuations++
		return
	}
	a.global.Count++
	a.events.Process(rec)

	a.parsers[parserLabel(rec.Parser)]++
	if rec.Facility != "" {
		a.facilities[rec.Facility]++
	}
	if rec.Source != "" {
		a.sources[rec.Source]++
	}
	a.counts[CountKey{Parser: parserLabel(rec.Parser), Severity: rec.Severity}]++

	if !rec.HasTimestamp {
		a.global.Untimed++
		return
	}
	ts := rec.Timestamp
	if a.global.MinTimestamp.IsZero() || ts.Before(a.global.MinTimestamp) {
		a.global.MinTimestamp = ts
	}
	if ts.After(a.global.MaxTimestamp) {
		a.global.MaxTimestamp = ts
	}
	a.minutes[ts.Unix()/60]++
}

// Finalize returns the aggregated metrics. The analyzer can keep processing
// records afterwards.
func (a *StreamingAnalyzer) Finalize() AggregatedMetrics {
	m := AggregatedMetrics{
		Global:     a.global,
		Parsers:    SortByCount(a.parsers),
		Facilities: top(SortByCount(a.facilities), maxEntities),
		Sources:    top(SortByCount(a.sources), maxEntities),
		Counts:     make(map[CountKey]int, len(a.counts)),
		Timeline:   make([]TimeBucket, 0, len(a.minutes)),
	}
	m.Events, m.TopEvents = a.events.Finalize()

	for k, v := range a.counts {
		m.Counts[k] = v
	}
	for minute, n := range a.minutes {
		m.Timeline = append(m.Timeline, TimeBucket{Start: time.Unix(minute*60, 0).UTC(), Count: n})
	}
	sort.Slice(m.Timeline, func(i, j int) bool {
		return m.Timeline[i].Start.Before(m.Timeline[j].Start)
	})
	return m
}

// Collect drains in into an analyzer, forwarding every record to out when
// out is not nil. out is closed when in is drained.
func Collect(in <-chan parser.Record, out chan<- parser.Record) AggregatedMetrics {
	a := NewStreamingAnalyzer()
	for rec := range in {
		a.Process(&rec)
		if out != nil {
			out <- rec
		}
	}
	if out != nil {
		close(out)
	}
	return a.Finalize()
}

// parserLabel names synthetic records, which carry no parser.
func parserLabel(name string) string {
	if name == "" {
		return "none"
	}
	return name
}
