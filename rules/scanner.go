package rules

import (
	"github.com/Alain-L/lognorm/extract"
	"github.com/Alain-L/lognorm/severity"
)

// Action tells the caller what a Scanner did with a line.
type Action int

const (
	// Block consumes the line as a continuation and keeps the block open.
	Block Action = iota
	// EndBlock consumes the line and closes the block.
	EndBlock
	// EndBlockNotProcessed closes the block without consuming the line,
	// which must be classified again as a fresh line.
	EndBlockNotProcessed
	// Break abandons the block without consuming the line.
	Break
)

var actionNames = [...]string{"block", "end_block", "end_block_not_processed", "break"}

func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return "unknown"
	}
	return actionNames[a]
}

// Consumed reports whether the line was taken into the block.
func (a Action) Consumed() bool { return a == Block || a == EndBlock }

// Open reports whether the block is still open after the line.
func (a Action) Open() bool { return a == Block }

// ScanResult is the outcome of feeding one line to a Scanner. Message and
// Severity are only meaningful when the line was consumed. A Severity of
// severity.Unknown means the line takes the severity of the record that
// opened the block.
type ScanResult struct {
	Action   Action
	Message  extract.Message
	Severity severity.Severity
}

// Scanner continues a multi-line construct opened by a rule. It is fed one
// raw line per call and keeps only the little state it needs between calls,
// so that callers can interleave several streams, each with its own scanner.
type Scanner interface {
	Scan(line string, fold bool, f *extract.Formatting) ScanResult
}
