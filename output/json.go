package output

import (
	"bufio"
	"encoding/json"
	"io"
	"time"

	"github.com/Alain-L/lognorm/analysis"
	"github.com/Alain-L/lognorm/extract"
	"github.com/Alain-L/lognorm/parser"
	"github.com/Alain-L/lognorm/severity"
)

// RecordJSON is the wire form of a record: one JSON object per line.
type RecordJSON struct {
	Timestamp    string            `json:"timestamp,omitempty"`
	Severity     severity.Severity `json:"severity"`
	Facility     string            `json:"facility,omitempty"`
	Parser       string            `json:"parser,omitempty"`
	Source       string            `json:"source,omitempty"`
	Line         int               `json:"line,omitempty"`
	Continuation bool              `json:"continuation,omitempty"`
	Message      string            `json:"message"`
	Segments     []extract.Segment `json:"segments,omitempty"`
	Remnants     []RemnantJSON     `json:"remnants,omitempty"`
}

// RemnantJSON is the wire form of a remnant.
type RemnantJSON struct {
	Message  string            `json:"message"`
	Severity severity.Severity `json:"severity"`
}

// NewRecordJSON converts rec to its wire form.
func NewRecordJSON(rec parser.Record) RecordJSON {
	out := RecordJSON{
		Severity:     rec.Severity,
		Facility:     rec.Facility,
		Parser:       rec.Parser,
		Source:       rec.Source,
		Line:         rec.LineNumber,
		Continuation: rec.Continuation,
		Message:      rec.Message.String(),
		Segments:     rec.Message.Segments,
	}
	if rec.HasTimestamp {
		out.Timestamp = rec.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	for _, rem := range rec.Remnants {
		out.Remnants = append(out.Remnants, RemnantJSON{Message: rem.Message.String(), Severity: rem.Severity})
	}
	return out
}

// JSONRenderer writes records as newline delimited JSON.
type JSONRenderer struct {
	w   *bufio.Writer
	enc *json.Encoder
}

// NewJSONRenderer returns a JSON renderer writing to w.
func NewJSONRenderer(w io.Writer) *JSONRenderer {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	return &JSONRenderer{w: bw, enc: enc}
}

// Render implements Renderer.
func (j *JSONRenderer) Render(rec parser.Record) error {
	return j.enc.Encode(NewRecordJSON(rec))
}

// Flush implements Renderer.
func (j *JSONRenderer) Flush() error {
	return j.w.Flush()
}

// SummaryJSON is the wire form of a run summary.
type SummaryJSON struct {
	StartDate     string           `json:"start_date,omitempty"`
	EndDate       string           `json:"end_date,omitempty"`
	Duration      string           `json:"duration"`
	Records       int              `json:"records"`
	Continuations int              `json:"continuations"`
	Untimed       int              `json:"untimed"`
	Severities    []SeverityJSON   `json:"severities"`
	TopEvents     []EventJSON      `json:"top_events"`
	Parsers       map[string]int   `json:"parsers"`
	Facilities    map[string]int   `json:"facilities"`
	Sources       map[string]int   `json:"sources"`
	Timeline      []TimeBucketJSON `json:"timeline"`
}

type SeverityJSON struct {
	Severity   severity.Severity `json:"severity"`
	Count      int               `json:"count"`
	Percentage float64           `json:"percentage"`
}

type EventJSON struct {
	Signature string            `json:"signature"`
	Count     int               `json:"count"`
	Severity  severity.Severity `json:"severity"`
	Example   string            `json:"example"`
	Parser    string            `json:"parser,omitempty"`
}

type TimeBucketJSON struct {
	Start string `json:"start"`
	Count int    `json:"count"`
}

// NewSummaryJSON converts m to its wire form.
func NewSummaryJSON(m analysis.AggregatedMetrics) SummaryJSON {
	out := SummaryJSON{
		Duration:      m.Global.Duration().String(),
		Records:       m.Global.Count,
		Continuations: m.Global.Continuations,
		Untimed:       m.Global.Untimed,
		Severities:    make([]SeverityJSON, 0, len(m.Events)),
		TopEvents:     make([]EventJSON, 0, len(m.TopEvents)),
		Parsers:       counts(m.Parsers),
		Facilities:    counts(m.Facilities),
		Sources:       counts(m.Sources),
		Timeline:      make([]TimeBucketJSON, 0, len(m.Timeline)),
	}
	if !m.Global.MinTimestamp.IsZero() {
		out.StartDate = m.Global.MinTimestamp.UTC().Format(time.RFC3339Nano)
		out.EndDate = m.Global.MaxTimestamp.UTC().Format(time.RFC3339Nano)
	}
	for _, e := range m.Events {
		out.Severities = append(out.Severities, SeverityJSON{Severity: e.Severity, Count: e.Count, Percentage: e.Percentage})
	}
	for _, e := range m.TopEvents {
		out.TopEvents = append(out.TopEvents, EventJSON{
			Signature: e.Signature,
			Count:     e.Count,
			Severity:  e.Severity,
			Example:   e.Example,
			Parser:    e.Parser,
		})
	}
	for _, b := range m.Timeline {
		out.Timeline = append(out.Timeline, TimeBucketJSON{Start: b.Start.Format(time.RFC3339), Count: b.Count})
	}
	return out
}

func counts(items []analysis.EntityCount) map[string]int {
	out := make(map[string]int, len(items))
	for _, c := range items {
		out[c.Name] = c.Count
	}
	return out
}

// ExportJSON writes the run summary as an indented JSON document.
func ExportJSON(w io.Writer, m analysis.AggregatedMetrics) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(NewSummaryJSON(m))
}
