// Package extract holds the format extractors: one routine per log convention
// (glog, key=value, JSON, HTTP access logs, directory listings, ...).
//
// Every extractor is a pure function of the form
//
//	func(line string, sev severity.Severity, facility string, fold bool, f *Formatting, ...) Result
//
// It never panics and never returns an error: a line that does not have the
// expected shape is returned untouched, with the incoming severity and facility.
package extract

import (
	"strings"
	"time"

	"github.com/Alain-L/lognorm/severity"
)

// Style is a rendering tag attached to a segment. The empty style means the
// segment is painted according to its severity.
type Style string

const (
	StyleNone        Style = ""
	StyleTimestamp   Style = "timestamp"
	StyleFacility    Style = "facility"
	StyleKey         Style = "key"
	StyleValue       Style = "value"
	StyleSeparator   Style = "separator"
	StyleResidue     Style = "residue"
	StyleAddress     Style = "address"
	StyleVerb        Style = "verb"
	StyleURL         Style = "url"
	StyleProtocol    Style = "protocol"
	StyleSize        Style = "size"
	StyleUserAgent   Style = "user_agent"
	StylePermissions Style = "permissions"
	StyleOwner       Style = "owner"
	StyleFile        Style = "file"
	StyleDirectory   Style = "directory"
	StyleSymlink     Style = "symlink"
	StyleExecutable  Style = "executable"
	StyleLineNumber  Style = "line_number"
	StyleFunction    Style = "function"
	StyleCode        Style = "code"
	StyleBullet      Style = "bullet"
)

// Segment is a run of text with a single style.
type Segment struct {
	Text     string            `json:"text"`
	Style    Style             `json:"style,omitempty"`
	Severity severity.Severity `json:"severity"`
}

// Seg builds a segment painted with an explicit style.
func Seg(text string, style Style) Segment {
	return Segment{Text: text, Style: style, Severity: severity.Unknown}
}

// SevSeg builds a segment painted according to a severity.
func SevSeg(text string, sev severity.Severity) Segment {
	return Segment{Text: text, Severity: sev}
}

// Message is either a plain string or a list of styled segments.
type Message struct {
	Text     string    `json:"text,omitempty"`
	Segments []Segment `json:"segments,omitempty"`
}

// Plain wraps a string.
func Plain(s string) Message { return Message{Text: s} }

// Segmented wraps a list of segments.
func Segmented(segs ...Segment) Message { return Message{Segments: segs} }

// Structured reports whether m carries segments rather than plain text.
func (m Message) Structured() bool { return m.Segments != nil }

// String flattens the message to plain text.
func (m Message) String() string {
	if m.Segments == nil {
		return m.Text
	}
	var b strings.Builder
	for _, s := range m.Segments {
		b.WriteString(s.Text)
	}
	return b.String()
}

// Empty reports whether the message has no visible text.
func (m Message) Empty() bool {
	if m.Segments == nil {
		return m.Text == ""
	}
	for _, s := range m.Segments {
		if s.Text != "" {
			return false
		}
	}
	return true
}

// Len returns the length in bytes of the flattened text.
func (m Message) Len() int {
	if m.Segments == nil {
		return len(m.Text)
	}
	n := 0
	for _, s := range m.Segments {
		n += len(s.Text)
	}
	return n
}

// MapText returns a copy of m with fn applied to the text of every segment.
func (m Message) MapText(fn func(string) string) Message {
	if m.Segments == nil {
		return Message{Text: fn(m.Text)}
	}
	segs := make([]Segment, len(m.Segments))
	for i, s := range m.Segments {
		s.Text = fn(s.Text)
		segs[i] = s
	}
	return Message{Segments: segs}
}

// Remnant is a continuation line already rendered for display.
type Remnant struct {
	Message  Message           `json:"message"`
	Severity severity.Severity `json:"severity"`
}

// Result is what every extractor returns.
type Result struct {
	Message  Message
	Severity severity.Severity
	Facility string
	Remnants []Remnant

	// Timestamp is set when the extractor parsed a stamp out of the line.
	Timestamp time.Time
}

// Passthrough returns a result that leaves the line unchanged.
func Passthrough(line string, sev severity.Severity, facility string) Result {
	return Result{Message: Plain(line), Severity: sev, Facility: facility}
}

// Formatting holds engine-wide rendering toggles. It is set once when the
// engine is built and is read-only afterwards.
type Formatting struct {
	// ExtractMessages selects the message field out of structured lines.
	// When false the structured line is shown as is; severity and facility
	// are still extracted.
	ExtractMessages bool

	// KeepTimestamps leaves timestamp-looking fields in the residue.
	KeepTimestamps bool

	// MergeStartingVersion folds a lone "version" residue into a message
	// starting with "Starting".
	MergeStartingVersion bool

	// ExpandErrorLists splits "N errors occurred:" values into one remnant
	// per listed error.
	ExpandErrorLists bool

	// CollectorBullets replaces the "* " markers of expanded error lists
	// with a bullet glyph.
	CollectorBullets bool
}

// DefaultFormatting returns the toggles used by the dashboard.
func DefaultFormatting() Formatting {
	return Formatting{
		ExtractMessages:      true,
		KeepTimestamps:       false,
		MergeStartingVersion: true,
		ExpandErrorLists:     true,
		CollectorBullets:     true,
	}
}

// upgrade lets a structured payload refine a severity that is still unknown
// or at the Info default.
func upgrade(current, found severity.Severity) severity.Severity {
	if found == severity.Unknown {
		return current
	}
	if current == severity.Unknown || current == severity.Info {
		return found
	}
	return current
}
