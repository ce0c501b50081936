// Package timestamp strips leading timestamps from log lines.
//
// Every extractor handles a single dialect and follows the same contract: on a
// match it returns the line with the timestamp (and its trailing separator)
// removed, the parsed time and true; otherwise it returns the line unchanged,
// the zero time and false. Extractors use positional checks before calling
// time.Parse so that the common no-match case stays cheap.
package timestamp

import (
	"strings"
	"time"
)

// Extractor strips one timestamp dialect from the start of a line.
type Extractor func(line string) (rest string, ts time.Time, ok bool)

// Dialect is a named extractor.
type Dialect struct {
	Name    string
	Extract Extractor
}

// Catalog lists the supported dialects in the order they are tried by
// StripAll.
var Catalog = []Dialect{
	{Name: "iso8601", Extract: ISO8601},
	{Name: "apache", Extract: Apache},
	{Name: "ctime", Extract: CTime},
	{Name: "golog", Extract: GoLog},
	{Name: "syslog", Extract: Syslog},
}

// Lookup returns the extractor registered under name.
func Lookup(name string) (Extractor, bool) {
	for _, d := range Catalog {
		if d.Name == name {
			return d.Extract, true
		}
	}
	return nil, false
}

// Names returns the dialect names in catalog order.
func Names() []string {
	out := make([]string, len(Catalog))
	for i, d := range Catalog {
		out[i] = d.Name
	}
	return out
}

// Chain runs the extractors in order against line. Only the first timestamp
// found is kept: if have is already true, ts is returned as given and later
// matches only strip text. This handles lines that carry two redundant stamps.
func Chain(line string, ts time.Time, have bool, extractors ...Extractor) (string, time.Time, bool) {
	for _, extract := range extractors {
		rest, t, ok := extract(line)
		if !ok {
			continue
		}
		line = rest
		if !have {
			ts, have = t, true
		}
	}
	return line, ts, have
}

// StripAll tries every dialect of the catalog once, in order.
func StripAll(line string) (string, time.Time, bool) {
	var ts time.Time
	var have bool
	for _, d := range Catalog {
		line, ts, have = Chain(line, ts, have, d.Extract)
	}
	return line, ts, have
}

// StripKubernetes removes the RFC 3339 timestamp the kubelet prepends to every
// container log line. Exactly one separating space is removed so that the
// indentation of the payload survives.
func StripKubernetes(line string) (string, time.Time, bool) {
	sp := strings.IndexByte(line, ' ')
	if sp < 20 || line[4] != '-' || line[10] != 'T' {
		return line, time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, line[:sp])
	if err != nil {
		return line, time.Time{}, false
	}
	return line[sp+1:], t, true
}

// ISO8601 handles ISO 8601 / RFC 3339 variants:
//
//	2022-01-29T10:34:20Z
//	2022-01-29 10:34:20,123
//	2022-01-29T10:34:20.123456+01:00
//	[2022-01-29 10:34:20.123+0100]
//
// The stamp may be followed by whitespace, or by ':' or '|' and whitespace.
// Stamps without a zone are taken as UTC.
func ISO8601(line string) (string, time.Time, bool) {
	s, bracketed := openBracket(line)

	n, frac, zone := isoLength(s)
	if n == 0 {
		return line, time.Time{}, false
	}

	t, err := parseISO(s[:n], frac, zone)
	if err != nil {
		return line, time.Time{}, false
	}

	rest, ok := closeStamp(s[n:], bracketed)
	if !ok {
		return line, time.Time{}, false
	}
	return rest, t, true
}

// isoLength returns the length of the ISO 8601 stamp at the start of s, the
// span of the fractional digits and the span of the zone suffix.
func isoLength(s string) (int, [2]int, [2]int) {
	var frac, zone [2]int
	if len(s) < 19 ||
		!digits(s[0:4]) || s[4] != '-' ||
		!digits(s[5:7]) || s[7] != '-' ||
		!digits(s[8:10]) || (s[10] != 'T' && s[10] != ' ') ||
		!digits(s[11:13]) || s[13] != ':' ||
		!digits(s[14:16]) || s[16] != ':' ||
		!digits(s[17:19]) {
		return 0, frac, zone
	}

	i := 19
	if i < len(s) && (s[i] == '.' || s[i] == ',') {
		j := i + 1
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		if j == i+1 {
			return 0, frac, zone
		}
		frac = [2]int{i + 1, j}
		i = j
	}

	if i < len(s) {
		switch s[i] {
		case 'Z':
			zone = [2]int{i, i + 1}
			i++
		case '+', '-':
			j := i + 1
			for j < len(s) && (isDigit(s[j]) || s[j] == ':') && j-i <= 6 {
				j++
			}
			switch j - i {
			case 3, 5, 6:
				zone = [2]int{i, j}
				i = j
			}
		}
	}
	return i, frac, zone
}

func parseISO(s string, frac, zone [2]int) (time.Time, error) {
	var b strings.Builder
	b.Grow(len(s) + 3)
	b.WriteString(s[:10])
	b.WriteByte('T')
	b.WriteString(s[11:19])
	if frac[1] > frac[0] {
		digits := s[frac[0]:frac[1]]
		if len(digits) > 9 {
			digits = digits[:9]
		}
		b.WriteByte('.')
		b.WriteString(digits)
	}

	if zone[1] == zone[0] {
		return time.Parse("2006-01-02T15:04:05", b.String())
	}

	z := strings.ReplaceAll(s[zone[0]:zone[1]], ":", "")
	switch len(z) {
	case 1: // Z
		b.WriteString(z)
	case 3:
		b.WriteString(z + ":00")
	default:
		b.WriteString(z[:3] + ":" + z[3:])
	}
	return time.Parse(time.RFC3339Nano, b.String())
}

// Apache handles the common log format stamp "29/Jan/2022:10:34:20 +0000",
// with or without its square brackets.
func Apache(line string) (string, time.Time, bool) {
	const layout = "02/Jan/2006:15:04:05 -0700"

	s, bracketed := openBracket(line)
	if len(s) < len(layout) ||
		s[2] != '/' || s[6] != '/' || s[11] != ':' ||
		s[14] != ':' || s[17] != ':' || s[20] != ' ' {
		return line, time.Time{}, false
	}

	t, err := time.Parse(layout, s[:len(layout)])
	if err != nil {
		return line, time.Time{}, false
	}

	rest, ok := closeStamp(s[len(layout):], bracketed)
	if !ok {
		return line, time.Time{}, false
	}
	return rest, t, true
}

// CTime handles the C asctime() form "Sat Jan 29 10:34:20 2022".
func CTime(line string) (string, time.Time, bool) {
	s, bracketed := openBracket(line)
	if len(s) < len(time.ANSIC) ||
		s[3] != ' ' || s[7] != ' ' || s[10] != ' ' ||
		s[13] != ':' || s[16] != ':' || s[19] != ' ' {
		return line, time.Time{}, false
	}

	t, err := time.Parse(time.ANSIC, s[:len(time.ANSIC)])
	if err != nil {
		return line, time.Time{}, false
	}

	rest, ok := closeStamp(s[len(time.ANSIC):], bracketed)
	if !ok {
		return line, time.Time{}, false
	}
	return rest, t, true
}

// GoLog handles the default format of Go's log package,
// "2022/01/29 10:34:20" with optional microseconds.
func GoLog(line string) (string, time.Time, bool) {
	if len(line) < 19 ||
		!digits(line[0:4]) || line[4] != '/' || line[7] != '/' ||
		line[10] != ' ' || line[13] != ':' || line[16] != ':' {
		return line, time.Time{}, false
	}

	n := 19
	if n < len(line) && line[n] == '.' {
		j := n + 1
		for j < len(line) && isDigit(line[j]) {
			j++
		}
		n = j
	}

	t, err := time.Parse("2006/01/02 15:04:05", line[:n])
	if err != nil {
		return line, time.Time{}, false
	}

	rest, ok := closeStamp(line[n:], false)
	if !ok {
		return line, time.Time{}, false
	}
	return rest, t, true
}

// Syslog handles the BSD syslog form "Jan _2 15:04:05". Since the format
// carries no year, the current year is assumed.
func Syslog(line string) (string, time.Time, bool) {
	if len(line) < 15 ||
		line[3] != ' ' ||
		line[6] != ' ' ||
		line[9] != ':' || line[12] != ':' {
		return line, time.Time{}, false
	}

	clock, err := time.Parse("Jan _2 15:04:05", line[:15])
	if err != nil {
		return line, time.Time{}, false
	}
	t, ok := InYear(time.Now().Year(), clock.Month(), clock.Day(), clock)
	if !ok {
		return line, time.Time{}, false
	}

	rest, ok := closeStamp(line[15:], false)
	if !ok {
		return line, time.Time{}, false
	}
	return rest, t, true
}

// InYear places a yearless month, day and clock in year. It fails when the
// day does not exist that year, like Feb 29 outside leap years.
func InYear(year int, month time.Month, day int, clock time.Time) (time.Time, bool) {
	t := time.Date(year, month, day, clock.Hour(), clock.Minute(), clock.Second(), clock.Nanosecond(), time.UTC)
	if t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func openBracket(line string) (string, bool) {
	if strings.HasPrefix(line, "[") {
		return line[1:], true
	}
	return line, false
}

// closeStamp validates what follows a timestamp and strips the separator.
// A stamp must be followed by the end of the line, whitespace, or one of
// ':' and '|' (themselves followed by whitespace or the end of the line).
func closeStamp(rest string, bracketed bool) (string, bool) {
	if bracketed {
		if !strings.HasPrefix(rest, "]") {
			return "", false
		}
		rest = rest[1:]
	}
	if rest == "" {
		return rest, true
	}
	switch rest[0] {
	case ' ', '\t':
	case ':', '|':
		if len(rest) > 1 && rest[1] != ' ' && rest[1] != '\t' {
			return "", false
		}
		rest = rest[1:]
	default:
		return "", false
	}
	return strings.TrimLeft(rest, " \t"), true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return s != ""
}
