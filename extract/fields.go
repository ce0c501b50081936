package extract

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/Alain-L/lognorm/severity"
)

// Field is one key of a structured payload, in the order it appeared.
type Field struct {
	Key   string
	Value string

	// Raw is the compact JSON encoding of the value for JSON payloads,
	// empty for key=value payloads.
	Raw string
}

// FacilityRule builds a facility from one or more fields. All keys must be
// present for the rule to apply; Separators[i] joins Keys[i] and Keys[i+1].
type FacilityRule struct {
	Keys       []string
	Separators []string
}

// FieldOptions selects which keys of a structured payload carry the message,
// the severity, timestamps and the facility.
type FieldOptions struct {
	MessageKeys   []string
	SeverityKeys  []string
	TimestampKeys []string
	ErrorKeys     []string
	Facilities    []FacilityRule
}

// DefaultFieldOptions returns the candidate lists used when a parser does not
// configure its own.
func DefaultFieldOptions() FieldOptions {
	return FieldOptions{
		MessageKeys:   []string{"msg", "message"},
		SeverityKeys:  []string{"level", "lvl", "severity", "loglevel"},
		TimestampKeys: []string{"time", "ts", "timestamp", "@timestamp", "date"},
		ErrorKeys:     []string{"err", "error"},
		Facilities: []FacilityRule{
			{Keys: []string{"logger"}},
			{Keys: []string{"caller"}},
			{Keys: []string{"component"}},
			{Keys: []string{"module"}},
		},
	}
}

// fieldSyntax decides how residue is written back.
type fieldSyntax int

const (
	syntaxKeyValue fieldSyntax = iota
	syntaxJSON
)

var errorListRe = regexp.MustCompile(`^(\d+) errors? occurred:`)

// structured turns a parsed payload into a Result following the rules shared
// by every JSON and key=value style extractor. original is returned as the
// message when message extraction is disabled.
func structured(original string, fields []Field, sev severity.Severity, facility string, fold bool,
	f *Formatting, o *FieldOptions, syntax fieldSyntax) Result {
	residue := make([]Field, 0, len(fields))
	residue = append(residue, fields...)

	msg, hasMsg := "", false
	if i := indexOf(residue, o.MessageKeys); i >= 0 {
		msg, hasMsg = residue[i].Value, true
		residue = remove(residue, i)
	}

	if i := indexOf(residue, o.SeverityKeys); i >= 0 {
		sev = upgrade(sev, severityValue(residue[i].Value))
		residue = remove(residue, i)
	}

	if !f.KeepTimestamps {
		for {
			i := indexOf(residue, o.TimestampKeys)
			if i < 0 {
				break
			}
			residue = remove(residue, i)
		}
	}

	for _, rule := range o.Facilities {
		fac, rest, ok := applyFacility(residue, rule)
		if !ok {
			continue
		}
		if facility == "" {
			facility = fac
		}
		residue = rest
		break
	}

	if !f.ExtractMessages {
		return Result{Message: Plain(original), Severity: sev, Facility: facility}
	}

	if f.MergeStartingVersion && hasMsg && len(residue) == 1 &&
		residue[0].Key == "version" && strings.HasPrefix(msg, "Starting") {
		msg = msg + " (version=" + residue[0].Value + ")"
		residue = residue[:0]
	}

	if len(residue) == 0 {
		return Result{Message: Plain(msg), Severity: sev, Facility: facility}
	}

	if fold {
		segs := make([]Segment, 0, 2*len(residue)+1)
		if msg != "" {
			segs = append(segs, SevSeg(msg, severity.Unknown), Seg(" ", StyleNone))
		}
		if syntax == syntaxJSON {
			segs = append(segs, Seg(compactJSON(residue), StyleResidue))
		} else {
			for i, fld := range residue {
				if i > 0 {
					segs = append(segs, Seg(" ", StyleNone))
				}
				segs = append(segs,
					Seg(fld.Key, StyleKey),
					Seg("=", StyleSeparator),
					Seg(quoteValue(fld.Value), StyleValue))
			}
		}
		return Result{Message: Segmented(segs...), Severity: sev, Facility: facility}
	}

	sep := "="
	if syntax == syntaxJSON {
		sep = ": "
	}
	var remnants []Remnant
	for _, fld := range residue {
		remnants = append(remnants, residueRemnants(fld, sep, sev, f, o)...)
	}
	for _, r := range remnants {
		sev = severity.Merge(sev, r.Severity)
	}
	return Result{Message: Plain(msg), Severity: sev, Facility: facility, Remnants: remnants}
}

// residueRemnants renders one residue field as one or more continuation lines.
func residueRemnants(fld Field, sep string, sev severity.Severity, f *Formatting, o *FieldOptions) []Remnant {
	valueStyle := Seg("", StyleValue)
	remSev := sev
	if contains(o.ErrorKeys, fld.Key) && !nilValue(fld.Value) {
		remSev = severity.Error
		valueStyle = SevSeg("", severity.Error)
	}

	value := fld.Value
	if fld.Raw != "" && !strings.HasPrefix(fld.Raw, `"`) {
		value = fld.Raw
	}

	if f.ExpandErrorLists && errorListRe.MatchString(value) {
		return errorList(fld.Key, sep, value, f.CollectorBullets)
	}

	lines := strings.Split(strings.TrimRight(value, "\n"), "\n")
	out := make([]Remnant, 0, len(lines))
	first := valueStyle
	first.Text = lines[0]
	out = append(out, Remnant{
		Message:  Segmented(Seg(fld.Key, StyleKey), Seg(sep, StyleSeparator), first),
		Severity: remSev,
	})
	for _, l := range lines[1:] {
		cont := valueStyle
		cont.Text = "  " + l
		out = append(out, Remnant{Message: Segmented(cont), Severity: remSev})
	}
	return out
}

// errorList expands an aggregated "N errors occurred:" value, as produced by
// hashicorp/go-multierror, into one remnant per listed error.
func errorList(key, sep, value string, bullets bool) []Remnant {
	lines := strings.Split(value, "\n")
	out := []Remnant{{
		Message: Segmented(
			Seg(key, StyleKey), Seg(sep, StyleSeparator),
			SevSeg(strings.TrimSpace(lines[0]), severity.Error)),
		Severity: severity.Error,
	}}
	for _, l := range lines[1:] {
		item := strings.TrimSpace(l)
		if item == "" {
			continue
		}
		marker := "* "
		if rest, ok := strings.CutPrefix(item, "* "); ok {
			item = rest
			if bullets {
				marker = "• "
			}
		} else {
			marker = "  "
		}
		out = append(out, Remnant{
			Message:  Segmented(Seg("  "+marker, StyleBullet), SevSeg(item, severity.Error)),
			Severity: severity.Error,
		})
	}
	return out
}

// severityValue converts the value of a severity field. Besides words and
// their abbreviations it understands bunyan/pino numeric levels (10..60) and
// syslog numbers (0..7).
func severityValue(v string) severity.Severity {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		switch {
		case n >= 0 && n <= 7:
			return severity.Severity(n)
		case n >= 60:
			return severity.Critical
		case n >= 50:
			return severity.Error
		case n >= 40:
			return severity.Warning
		case n >= 30:
			return severity.Info
		case n >= 10:
			return severity.Debug
		}
		return severity.Unknown
	}
	if s := severity.FromWord(v, severity.Unknown); s != severity.Unknown {
		return s
	}
	if s := severity.From4Letter(v, severity.Unknown); s != severity.Unknown {
		return s
	}
	if s := severity.From3Letter(v, severity.Unknown); s != severity.Unknown {
		return s
	}
	return severity.FromLetter(v, severity.Unknown)
}

func applyFacility(fields []Field, rule FacilityRule) (string, []Field, bool) {
	if len(rule.Keys) == 0 {
		return "", fields, false
	}
	var b strings.Builder
	rest := fields
	for i, key := range rule.Keys {
		j := indexOf(rest, []string{key})
		if j < 0 {
			return "", fields, false
		}
		if i > 0 {
			sep := ":"
			if i-1 < len(rule.Separators) {
				sep = rule.Separators[i-1]
			}
			b.WriteString(sep)
		}
		b.WriteString(rest[j].Value)
		rest = remove(rest, j)
	}
	return b.String(), rest, true
}

// indexOf returns the position of the first field whose key is the first
// candidate present, or -1.
func indexOf(fields []Field, candidates []string) int {
	for _, c := range candidates {
		for i, f := range fields {
			if f.Key == c {
				return i
			}
		}
	}
	return -1
}

// remove returns a new slice without element i.
func remove(fields []Field, i int) []Field {
	out := make([]Field, 0, len(fields)-1)
	out = append(out, fields[:i]...)
	return append(out, fields[i+1:]...)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func nilValue(v string) bool {
	switch v {
	case "", "nil", "<nil>", "null", "None":
		return true
	}
	return false
}

func quoteValue(v string) string {
	if v == "" || strings.ContainsAny(v, " \t\"=") {
		return strconv.Quote(v)
	}
	return v
}

func compactJSON(fields []Field) string {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		k, _ := json.Marshal(f.Key)
		b.Write(k)
		b.WriteByte(':')
		if f.Raw != "" {
			b.WriteString(f.Raw)
		} else {
			v, _ := json.Marshal(f.Value)
			b.Write(v)
		}
	}
	b.WriteByte('}')
	return b.String()
}
