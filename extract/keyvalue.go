package extract

import (
	"strconv"
	"strings"

	"github.com/Alain-L/lognorm/severity"
)

// KeyValue handles logfmt and logrus text formatter lines:
//
//	time="2022-01-29T10:34:20Z" level=info msg="Started" component=api
//
// Every whitespace separated token must be a key=value pair, otherwise the
// line is left alone.
func KeyValue(line string, sev severity.Severity, facility string, fold bool, f *Formatting, o *FieldOptions) Result {
	fields, ok := SplitKeyValues(line)
	if !ok {
		return Passthrough(line, sev, facility)
	}
	return structured(line, fields, sev, facility, fold, f, o, syntaxKeyValue)
}

// SplitKeyValues splits a line made only of key=value pairs. Values may be
// double-quoted with Go escapes.
func SplitKeyValues(s string) ([]Field, bool) {
	var fields []Field
	i := 0
	for {
		for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
			i++
		}
		if i >= len(s) {
			break
		}

		start := i
		for i < len(s) && isKeyChar(s[i]) {
			i++
		}
		if i == start || i >= len(s) || s[i] != '=' {
			return nil, false
		}
		key := s[start:i]
		i++

		var value string
		if i < len(s) && s[i] == '"' {
			end, ok := closingQuote(s, i)
			if !ok {
				return nil, false
			}
			raw := s[i : end+1]
			if v, err := strconv.Unquote(raw); err == nil {
				value = v
			} else {
				value = raw[1 : len(raw)-1]
			}
			i = end + 1
			if i < len(s) && s[i] != ' ' && s[i] != '\t' {
				return nil, false
			}
		} else {
			vs := i
			for i < len(s) && s[i] != ' ' && s[i] != '\t' {
				i++
			}
			value = s[vs:i]
		}
		fields = append(fields, Field{Key: key, Value: value})
	}
	return fields, len(fields) > 0
}

// closingQuote returns the index of the double quote closing the string that
// opens at s[open].
func closingQuote(s string, open int) (int, bool) {
	for j := open + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case '"':
			return j, true
		}
	}
	return 0, false
}

func isKeyChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("_-.@/", c) >= 0
}
