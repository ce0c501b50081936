// Package parser selects a parser for every container log line and turns the
// line into a normalized Record.
//
// The Engine is synchronous: one Classify call per line, no I/O, no locks.
// Multi-line constructs (Python tracebacks, pretty-printed JSON or YAML) are
// followed through a ScanState that the caller keeps per log stream.
package parser

import (
	"time"

	"github.com/Alain-L/lognorm/extract"
	"github.com/Alain-L/lognorm/severity"
)

// Identity names the container a line comes from. Parser selection depends
// on nothing else.
type Identity struct {
	PodName       string
	ContainerName string
	ImageName     string

	// ContainerType is "container" for regular containers, "init" for init
	// containers, or whatever the collector reports.
	ContainerType string
}

// Request is the input of a single Classify call.
type Request struct {
	Identity

	// Line is the raw line as delivered by the kubelet, including its
	// leading RFC 3339 timestamp when present.
	Line       string
	LineNumber int

	// Dropped counts the characters a reader cut from the end of Line.
	// They count toward MaxLineLength.
	Dropped int

	// Fold appends structured residue to the message instead of emitting
	// one remnant per residue field.
	Fold bool

	// Override names a parser to use instead of matching, as requested by a
	// manual re-parse.
	Override string
}

// Record is one normalized log line.
//
// A record is either a primary line, whose Message is the display text, or a
// continuation of an open block, whose Message is empty and whose Remnants
// hold the rendered line:
//
//	Traceback (most recent call last):        <- primary, Severity Error
//	  File "app.py", line 3, in main          <- continuation
//	ValueError: x                             <- continuation, closes the block
type Record struct {
	// Timestamp is the kubelet timestamp when present, otherwise the first
	// timestamp found in the payload.
	Timestamp    time.Time
	HasTimestamp bool

	Facility string

	// Severity is the most severe of the extracted severity and the
	// severities of the remnants produced by the same call.
	Severity severity.Severity

	Message  extract.Message
	Remnants []extract.Remnant

	// Parser is the name of the parser that produced the record. It is
	// empty for synthetic records.
	Parser string

	// Source names the stream the line was read from, when classified
	// through Stream.
	Source     string
	LineNumber int

	// Continuation is set on records produced by an open block.
	Continuation bool
}

// Text flattens the message and every remnant, one per line.
func (r Record) Text() string {
	s := r.Message.String()
	for _, rem := range r.Remnants {
		if s != "" {
			s += "\n"
		}
		s += rem.Message.String()
	}
	return s
}
