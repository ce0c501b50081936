package parser

import (
	"github.com/Alain-L/lognorm/rules"
	"github.com/Alain-L/lognorm/severity"
)

// ScanState follows an open multi-line block on one log stream. The zero
// value is idle. Streams must not share a ScanState.
type ScanState struct {
	scanner rules.Scanner
	parser  string

	// severity and facility of the record that opened the block; block
	// lines without a severity of their own inherit them.
	severity severity.Severity
	facility string

	lines int
}

// Active reports whether a block is open.
func (s *ScanState) Active() bool { return s != nil && s.scanner != nil }

// Parser returns the name of the parser that opened the current block.
func (s *ScanState) Parser() string {
	if s == nil {
		return ""
	}
	return s.parser
}

// Lines returns the number of continuation lines consumed so far.
func (s *ScanState) Lines() int {
	if s == nil {
		return 0
	}
	return s.lines
}

// Reset closes any open block.
func (s *ScanState) Reset() {
	if s != nil {
		*s = ScanState{}
	}
}

func (s *ScanState) open(sc rules.Scanner, parser string, sev severity.Severity, facility string) {
	*s = ScanState{scanner: sc, parser: parser, severity: sev, facility: facility}
}
