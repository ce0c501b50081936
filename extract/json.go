package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/Alain-L/lognorm/severity"
)

var errNotObject = errors.New("not a JSON object")

// JSON handles lines holding a single JSON object, as written by zap, logrus'
// JSON formatter, bunyan, slog and most structured loggers. A line holding a
// Python dict literal ({'a': True}) is accepted as well.
func JSON(line string, sev severity.Severity, facility string, fold bool, f *Formatting, o *FieldOptions) Result {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) < 2 || trimmed[0] != '{' || trimmed[len(trimmed)-1] != '}' {
		return Passthrough(line, sev, facility)
	}

	fields, err := DecodeObject(trimmed)
	if err != nil {
		converted, ok := pythonLiteralToJSON(trimmed)
		if !ok {
			return Passthrough(line, sev, facility)
		}
		if fields, err = DecodeObject(converted); err != nil {
			return Passthrough(line, sev, facility)
		}
	}
	return structured(line, fields, sev, facility, fold, f, o, syntaxJSON)
}

// DecodeObject decodes a JSON object keeping the order of its keys. String
// values are unquoted; every other value keeps its compact JSON encoding.
func DecodeObject(s string) ([]Field, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errNotObject
	}

	var fields []Field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, errNotObject
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		fields = append(fields, rawField(key, raw))
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errNotObject
	}
	return fields, nil
}

func rawField(key string, raw json.RawMessage) Field {
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		compact.Reset()
		compact.Write(raw)
	}
	f := Field{Key: key, Raw: compact.String()}

	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			f.Value = s
			return f
		}
	}
	f.Value = f.Raw
	return f
}

// pythonLiteralToJSON rewrites a Python dict literal into JSON: single-quoted
// strings become double-quoted, True/False/None become true/false/null.
// Anything it does not understand makes it give up.
func pythonLiteralToJSON(s string) (string, bool) {
	var b strings.Builder
	b.Grow(len(s))
	changed := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'':
			b.WriteByte('"')
			i++
			for ; i < len(s) && s[i] != '\''; i++ {
				switch s[i] {
				case '\\':
					if i+1 < len(s) && s[i+1] == '\'' {
						b.WriteByte('\'')
						i++
						continue
					}
					b.WriteByte('\\')
					if i+1 < len(s) {
						i++
						b.WriteByte(s[i])
					}
				case '"':
					b.WriteString(`\"`)
				default:
					b.WriteByte(s[i])
				}
			}
			if i >= len(s) {
				return "", false
			}
			b.WriteByte('"')
			changed = true
		case c == '"':
			j := i + 1
			for ; j < len(s) && s[j] != '"'; j++ {
				if s[j] == '\\' {
					j++
				}
			}
			if j >= len(s) {
				return "", false
			}
			b.WriteString(s[i : j+1])
			i = j
		case strings.HasPrefix(s[i:], "True"):
			b.WriteString("true")
			i += len("True") - 1
			changed = true
		case strings.HasPrefix(s[i:], "False"):
			b.WriteString("false")
			i += len("False") - 1
			changed = true
		case strings.HasPrefix(s[i:], "None"):
			b.WriteString("null")
			i += len("None") - 1
			changed = true
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), changed
}
