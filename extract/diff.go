package extract

import (
	"strings"

	"github.com/Alain-L/lognorm/severity"
)

// Diff handles unified diff output, as printed by configuration reconcilers.
// Added, removed and context lines carry the diff markers as segment
// severities; the record severity is left alone.
func Diff(line string, sev severity.Severity, facility string, fold bool, f *Formatting) Result {
	var seg Segment
	switch {
	case strings.HasPrefix(line, "+++ "), strings.HasPrefix(line, "--- "):
		seg = Seg(line, StyleFile)
	case strings.HasPrefix(line, "@@"):
		seg = Seg(line, StyleLineNumber)
	case strings.HasPrefix(line, "+"):
		seg = SevSeg(line, severity.DiffPlus)
	case strings.HasPrefix(line, "-"):
		seg = SevSeg(line, severity.DiffMinus)
	case strings.HasPrefix(line, " "):
		seg = SevSeg(line, severity.DiffSame)
	default:
		return Passthrough(line, sev, facility)
	}
	return Result{Message: Segmented(seg), Severity: sev, Facility: facility}
}
