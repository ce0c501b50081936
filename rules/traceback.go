package rules

import (
	"regexp"
	"strings"

	"github.com/Alain-L/lognorm/extract"
	"github.com/Alain-L/lognorm/severity"
)

var (
	frameRe     = regexp.MustCompile(`^(\s+File )("[^"]*")(, line )(\d+)(?:(, in )(.*))?$`)
	exceptionRe = regexp.MustCompile(`^([A-Za-z_][\w.]*)(?:(:)(.*))?$`)
	excSuffixRe = regexp.MustCompile(`(?:Error|Exception|Interrupt|Exit|Warning|Iteration)$`)
)

// PythonTraceback continues the block opened by "Traceback (most recent call
// last):". Frames and source lines are indented; the block ends with the
// unindented exception line. Any other unindented line closes the block
// without being consumed.
type PythonTraceback struct{}

func (PythonTraceback) Scan(line string, fold bool, f *extract.Formatting) ScanResult {
	line = strings.TrimRight(line, " \r")
	switch {
	case line == "":
		return ScanResult{Action: EndBlockNotProcessed, Severity: severity.Unknown}
	case strings.TrimSpace(line) == tracebackHeader:
		return ScanResult{Action: Break, Severity: severity.Unknown}
	case line[0] == ' ' || line[0] == '\t':
		return ScanResult{Action: Block, Message: frame(line), Severity: severity.Error}
	}

	m := exceptionRe.FindStringSubmatch(line)
	if m == nil || (m[2] == "" && !excSuffixRe.MatchString(m[1])) {
		return ScanResult{Action: EndBlockNotProcessed, Severity: severity.Unknown}
	}
	segs := []extract.Segment{extract.SevSeg(m[1], severity.Error)}
	if m[2] != "" {
		segs = append(segs, extract.Seg(m[2], extract.StyleSeparator), extract.SevSeg(m[3], severity.Error))
	}
	return ScanResult{Action: EndBlock, Message: extract.Segmented(segs...), Severity: severity.Error}
}

// frame renders `  File "app.py", line 3, in main` with its parts styled,
// and any other indented line as source code.
func frame(line string) extract.Message {
	m := frameRe.FindStringSubmatch(line)
	if m == nil {
		return extract.Segmented(extract.Seg(line, extract.StyleCode))
	}
	segs := []extract.Segment{
		extract.Seg(m[1], extract.StyleNone),
		extract.Seg(m[2], extract.StyleFile),
		extract.Seg(m[3], extract.StyleNone),
		extract.Seg(m[4], extract.StyleLineNumber),
	}
	if m[5] != "" {
		segs = append(segs, extract.Seg(m[5], extract.StyleNone), extract.Seg(m[6], extract.StyleFunction))
	}
	return extract.Segmented(segs...)
}
