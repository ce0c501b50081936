package extract

import (
	"strings"

	"github.com/Alain-L/lognorm/severity"
	"github.com/Alain-L/lognorm/timestamp"
)

// ZapConsole handles zap's console encoder, whose columns are tab separated:
//
//	2022-01-29T10:34:20.123Z	INFO	server/main.go:42	started	{"port": 8080}
//
// The timestamp and caller columns are optional. A trailing JSON object is
// treated as structured residue.
func ZapConsole(line string, sev severity.Severity, facility string, fold bool, f *Formatting, o *FieldOptions) Result {
	cols := strings.Split(line, "\t")
	if len(cols) < 2 {
		return Passthrough(line, sev, facility)
	}

	res := Result{Severity: sev, Facility: facility}
	if _, ts, ok := timestamp.ISO8601(cols[0]); ok {
		res.Timestamp = ts
		cols = cols[1:]
	}
	if len(cols) < 2 {
		return Passthrough(line, sev, facility)
	}

	found := severity.FromWord(cols[0], severity.Unknown)
	if found == severity.Unknown {
		return Passthrough(line, sev, facility)
	}
	res.Severity = found
	cols = cols[1:]

	if len(cols) > 1 && isCaller(cols[0]) {
		res.Facility = cols[0]
		cols = cols[1:]
	}

	var payload []Field
	if last := strings.TrimSpace(cols[len(cols)-1]); len(cols) > 1 && strings.HasPrefix(last, "{") {
		fields, err := DecodeObject(last)
		if err == nil {
			payload = fields
			cols = cols[:len(cols)-1]
		}
	}

	msg := strings.Join(cols, " ")
	if payload == nil {
		res.Message = Plain(msg)
		return res
	}

	fields := append([]Field{{Key: "msg", Value: msg}}, payload...)
	opts := *o
	opts.MessageKeys = []string{"msg"}
	sr := structured(msg, fields, res.Severity, res.Facility, fold, f, &opts, syntaxJSON)
	sr.Timestamp = res.Timestamp
	return sr
}

// isCaller reports whether s looks like "path/file.go:123".
func isCaller(s string) bool {
	i := strings.LastIndexByte(s, ':')
	if i <= 0 || i == len(s)-1 || strings.ContainsAny(s, " \t") {
		return false
	}
	for _, c := range s[i+1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
