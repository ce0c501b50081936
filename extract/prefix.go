package extract

import (
	"regexp"

	"github.com/Alain-L/lognorm/severity"
	"github.com/Alain-L/lognorm/timestamp"
)

var (
	bracketedRe  = regexp.MustCompile(`^(\[\s*[A-Za-z]+\s*\]):?\s*(.*)$`)
	colonRe      = regexp.MustCompile(`^([A-Za-z]+:)\s+(.*)$`)
	fourLetterRe = regexp.MustCompile(`^([A-Z]{4,5})\s+(?:\[([^\]]+)\]\s*)?(.*)$`)
	pythonLogRe  = regexp.MustCompile(`^(CRITICAL|ERROR|WARNING|INFO|DEBUG):([^:]*):(.*)$`)
	envLoggerRe  = regexp.MustCompile(`^\[(?:(\S+)\s+)?([A-Za-z]{4,5})\s+([^\]\s]+)\s*\]:?\s?(.*)$`)
)

// BracketedSeverity handles "[ERROR] message" and "[W] message".
func BracketedSeverity(line string, sev severity.Severity, facility string, fold bool, f *Formatting) Result {
	m := bracketedRe.FindStringSubmatch(line)
	if m == nil {
		return Passthrough(line, sev, facility)
	}
	found := severity.FromBracketed(m[1], severity.Unknown)
	if found == severity.Unknown {
		return Passthrough(line, sev, facility)
	}
	return Result{Message: Plain(m[2]), Severity: found, Facility: facility}
}

// ColonSeverity handles "error: message" and "Warning: message".
func ColonSeverity(line string, sev severity.Severity, facility string, fold bool, f *Formatting) Result {
	m := colonRe.FindStringSubmatch(line)
	if m == nil {
		return Passthrough(line, sev, facility)
	}
	found := severity.FromColonPrefixed(m[1], severity.Unknown)
	if found == severity.Unknown {
		return Passthrough(line, sev, facility)
	}
	return Result{Message: Plain(m[2]), Severity: found, Facility: facility}
}

// FourLetterSeverity handles an upper-case level word followed by an optional
// bracketed facility, as in "WARN [main] message" or "ERROR message".
func FourLetterSeverity(line string, sev severity.Severity, facility string, fold bool, f *Formatting) Result {
	m := fourLetterRe.FindStringSubmatch(line)
	if m == nil {
		return Passthrough(line, sev, facility)
	}
	found := severity.From4Letter(m[1], severity.Unknown)
	if found == severity.Unknown {
		found = severity.FromWord(m[1], severity.Unknown)
	}
	if found == severity.Unknown {
		return Passthrough(line, sev, facility)
	}
	if m[2] != "" {
		facility = m[2]
	}
	return Result{Message: Plain(m[3]), Severity: found, Facility: facility}
}

// PythonLogging handles the default format of Python's logging module,
// "LEVEL:logger:message".
func PythonLogging(line string, sev severity.Severity, facility string, fold bool, f *Formatting) Result {
	m := pythonLogRe.FindStringSubmatch(line)
	if m == nil {
		return Passthrough(line, sev, facility)
	}
	if m[2] != "" {
		facility = m[2]
	}
	return Result{Message: Plain(m[3]), Severity: severity.FromWord(m[1], sev), Facility: facility}
}

// EnvLogger handles the header of Rust's env_logger and similar loggers,
// where timestamp, severity and facility share one pair of brackets:
//
//	[2022-01-29T10:34:20Z INFO  hyper::server] listening
func EnvLogger(line string, sev severity.Severity, facility string, fold bool, f *Formatting) Result {
	m := envLoggerRe.FindStringSubmatch(line)
	if m == nil {
		return Passthrough(line, sev, facility)
	}
	found := severity.FromWord(m[2], severity.Unknown)
	if found == severity.Unknown {
		found = severity.From4Letter(m[2], severity.Unknown)
	}
	if found == severity.Unknown {
		return Passthrough(line, sev, facility)
	}

	res := Result{Message: Plain(m[4]), Severity: found, Facility: m[3]}
	if m[1] != "" {
		if _, ts, ok := timestamp.ISO8601(m[1]); ok {
			res.Timestamp = ts
		}
	}
	return res
}
