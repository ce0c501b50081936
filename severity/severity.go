// Package severity defines the canonical severity scale used for every classified
// log line, and the converters from the many conventions containers use to spell it.
//
// The scale follows syslog ordering: the lower the value, the more urgent the line.
// Converters never fail; an unrecognised token yields the caller-supplied default.
package severity

import (
	"errors"
	"fmt"
	"strings"
)

// Severity is a position on the canonical scale, most severe first.
type Severity int

const (
	// Unknown marks a severity that has not been determined yet.
	// It never appears on a classified record.
	Unknown Severity = iota - 1
	Emergency
	Alert
	Critical
	Error
	Warning
	Notice
	Info
	Debug

	// Synthetic markers used when rendering structural diffs.
	// They are not severities and never take part in a merge.
	DiffPlus
	DiffMinus
	DiffSame
)

// ErrUnknownSeverity is returned by Parse for names that are not on the scale.
var ErrUnknownSeverity = errors.New("unknown severity")

var names = [...]string{
	Emergency: "emergency",
	Alert:     "alert",
	Critical:  "critical",
	Error:     "error",
	Warning:   "warning",
	Notice:    "notice",
	Info:      "info",
	Debug:     "debug",
	DiffPlus:  "diffplus",
	DiffMinus: "diffminus",
	DiffSame:  "diffsame",
}

var byName = func() map[string]Severity {
	m := make(map[string]Severity, len(names))
	for i, n := range names {
		m[n] = Severity(i)
	}
	return m
}()

// Name returns the canonical lower-case name of s.
// It is the inverse of FromLevelName.
func Name(s Severity) string {
	if s < 0 || int(s) >= len(names) {
		return "unknown"
	}
	return names[s]
}

func (s Severity) String() string { return Name(s) }

// Valid reports whether s is one of the eight real severities.
func (s Severity) Valid() bool { return s >= Emergency && s <= Debug }

// IsDiff reports whether s is one of the diff markers.
func (s Severity) IsDiff() bool { return s >= DiffPlus && s <= DiffSame }

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(Name(s)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using Parse.
func (s *Severity) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Merge returns the more severe of a and b.
// Unknown and the diff markers are ignored; if neither side is a real
// severity the result is a.
func Merge(a, b Severity) Severity {
	switch {
	case !b.Valid():
		return a
	case !a.Valid():
		return b
	case b < a:
		return b
	default:
		return a
	}
}

// FromLevelName maps a canonical name (case-insensitive) back to its severity.
func FromLevelName(name string, def Severity) Severity {
	if s, ok := byName[strings.ToLower(strings.TrimSpace(name))]; ok {
		return s
	}
	return def
}

// Parse is the strict variant used while compiling configuration.
// It accepts canonical names as well as the common word aliases.
func Parse(name string) (Severity, error) {
	if s := FromLevelName(name, Unknown); s != Unknown {
		return s, nil
	}
	if s := FromWord(name, Unknown); s != Unknown {
		return s, nil
	}
	return Unknown, fmt.Errorf("%w: %q", ErrUnknownSeverity, name)
}

var letters = map[byte]Severity{
	'A': Alert,
	'C': Critical,
	'F': Critical,
	'E': Error,
	'W': Warning,
	'N': Notice,
	'I': Info,
	'D': Debug,
	'T': Debug,
	'V': Debug,
}

// FromLetter converts the single-letter codes used by glog, klog and tensorflow.
func FromLetter(token string, def Severity) Severity {
	if len(token) != 1 {
		return def
	}
	c := token[0]
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	if s, ok := letters[c]; ok {
		return s
	}
	return def
}

var threeLetters = map[string]Severity{
	"EMR": Emergency,
	"EMG": Emergency,
	"ALR": Alert,
	"CRT": Critical,
	"CRI": Critical,
	"FTL": Critical,
	"FAT": Critical,
	"ERR": Error,
	"WRN": Warning,
	"WAR": Warning,
	"NOT": Notice,
	"NTC": Notice,
	"INF": Info,
	"DBG": Debug,
	"DEB": Debug,
	"TRC": Debug,
}

// From3Letter converts three-letter abbreviations such as "WRN" or "dbg".
func From3Letter(token string, def Severity) Severity {
	if s, ok := threeLetters[strings.ToUpper(token)]; ok {
		return s
	}
	return def
}

var fourLetters = map[string]Severity{
	"EMER": Emergency,
	"PANI": Emergency,
	"ALRT": Alert,
	"CRIT": Critical,
	"FATA": Critical,
	"EROR": Error,
	"ERRO": Error,
	"WARN": Warning,
	"NOTI": Notice,
	"INFO": Info,
	"DEBU": Debug,
	"DBUG": Debug,
	"TRAC": Debug,
}

// From4Letter converts the four-letter forms emitted by logrus' text formatter
// and friends ("ERRO", "WARN", "INFO", "DEBU").
func From4Letter(token string, def Severity) Severity {
	if s, ok := fourLetters[strings.ToUpper(token)]; ok {
		return s
	}
	return def
}

var words = map[string]Severity{
	"emergency":     Emergency,
	"emerg":         Emergency,
	"panic":         Emergency,
	"alert":         Alert,
	"critical":      Critical,
	"crit":          Critical,
	"fatal":         Critical,
	"severe":        Critical,
	"dpanic":        Critical,
	"error":         Error,
	"err":           Error,
	"warning":       Warning,
	"warn":          Warning,
	"notice":        Notice,
	"info":          Info,
	"information":   Info,
	"informational": Info,
	"debug":         Debug,
	"trace":         Debug,
	"verbose":       Debug,
	"fine":          Debug,
	"finer":         Debug,
	"finest":        Debug,
}

// FromWord converts full words in any case ("Warning", "ERROR", "fatal").
func FromWord(token string, def Severity) Severity {
	if s, ok := words[strings.ToLower(strings.TrimSpace(token))]; ok {
		return s
	}
	return def
}

// FromColonPrefixed converts tokens of the form "error:" or "Warning:".
// The trailing colon is required.
func FromColonPrefixed(token string, def Severity) Severity {
	word, ok := strings.CutSuffix(strings.TrimSpace(token), ":")
	if !ok {
		return def
	}
	return FromWord(word, def)
}

// FromBracketed converts tokens of the form "[error]", "[WARN]" or "[ I ]".
func FromBracketed(token string, def Severity) Severity {
	token = strings.TrimSpace(token)
	if len(token) < 3 || token[0] != '[' || token[len(token)-1] != ']' {
		return def
	}
	inner := strings.TrimSpace(token[1 : len(token)-1])
	if s := FromWord(inner, Unknown); s != Unknown {
		return s
	}
	if s := From4Letter(inner, Unknown); s != Unknown {
		return s
	}
	if s := From3Letter(inner, Unknown); s != Unknown {
		return s
	}
	return FromLetter(inner, def)
}

// FromHTTPStatus maps a response status code: 1xx and 2xx are Notice,
// 3xx Warning, anything from 400 up Error.
func FromHTTPStatus(code int) Severity {
	switch {
	case code <= 0:
		return Info
	case code < 300:
		return Notice
	case code < 400:
		return Warning
	default:
		return Error
	}
}

// FromSyslogPriority maps a syslog PRI value (facility*8 + severity).
func FromSyslogPriority(pri int) Severity {
	if pri < 0 {
		return Unknown
	}
	return Severity(pri % 8)
}
