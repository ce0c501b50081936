package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Alain-L/lognorm/severity"
	"github.com/Alain-L/lognorm/timestamp"
)

// Common and combined log formats; anything after the combined fields (as
// appended by the nginx ingress controller) is kept as trailing residue.
var httpRe = regexp.MustCompile(
	`^(\S+)\s+` + // remote address
		`(\S+)\s+` + // ident
		`(\S+)\s+` + // user
		`\[([^\]]+)\]\s+` + // timestamp
		`"([^"]*)"\s+` + // request line
		`(\d{3})\s+` + // status
		`(\S+)` + // size
		`(?:\s+"([^"]*)"\s+"([^"]*)")?` + // referrer and user agent
		`(.*)$`,
)

// HTTP handles access logs in the common and combined formats:
//
//	10.0.0.5 - - [29/Jan/2022:10:34:20 +0000] "GET /healthz HTTP/1.1" 200 3
//
// The status code gives the severity: 1xx and 2xx Notice, 3xx Warning,
// 4xx and 5xx Error.
func HTTP(line string, sev severity.Severity, facility string, fold bool, f *Formatting) Result {
	m := httpRe.FindStringSubmatch(line)
	if m == nil {
		return Passthrough(line, sev, facility)
	}

	status, err := strconv.Atoi(m[6])
	if err != nil {
		return Passthrough(line, sev, facility)
	}
	sev = severity.FromHTTPStatus(status)

	res := Result{Severity: sev, Facility: facility}
	if _, ts, ok := timestamp.Apache(m[4]); ok {
		res.Timestamp = ts
	}

	segs := []Segment{Seg(m[1], StyleAddress)}
	if m[3] != "-" {
		segs = append(segs, Seg(" ", StyleNone), Seg(m[3], StyleOwner))
	}
	segs = append(segs, Seg(" ", StyleNone))
	segs = append(segs, requestSegments(m[5])...)
	segs = append(segs,
		Seg(" ", StyleNone), SevSeg(m[6], sev),
		Seg(" ", StyleNone), Seg(m[7], StyleSize))

	var tail []Segment
	if m[8] != "" && m[8] != "-" {
		tail = append(tail, Seg(m[8], StyleURL))
	}
	if m[9] != "" && m[9] != "-" {
		if len(tail) > 0 {
			tail = append(tail, Seg(" ", StyleNone))
		}
		tail = append(tail, Seg(m[9], StyleUserAgent))
	}
	if extra := strings.TrimSpace(m[10]); extra != "" {
		if len(tail) > 0 {
			tail = append(tail, Seg(" ", StyleNone))
		}
		tail = append(tail, Seg(extra, StyleResidue))
	}

	switch {
	case len(tail) == 0:
	case fold:
		segs = append(segs, Seg(" ", StyleNone))
		segs = append(segs, tail...)
	default:
		res.Remnants = []Remnant{{Message: Segmented(tail...), Severity: sev}}
	}

	res.Message = Segmented(segs...)
	return res
}

// requestSegments splits `GET /path HTTP/1.1`. Malformed request lines (TLS
// handshakes sent to a plain port, "-") are kept as a single segment.
func requestSegments(req string) []Segment {
	parts := strings.SplitN(req, " ", 3)
	if len(parts) != 3 {
		return []Segment{Seg(strconv.Quote(req), StyleResidue)}
	}
	return []Segment{
		Seg(parts[0], StyleVerb), Seg(" ", StyleNone),
		Seg(parts[1], StyleURL), Seg(" ", StyleNone),
		Seg(parts[2], StyleProtocol),
	}
}
