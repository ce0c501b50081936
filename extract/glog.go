package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Alain-L/lognorm/severity"
	"github.com/Alain-L/lognorm/timestamp"
)

// glog / klog header: Lmmdd hh:mm:ss.uuuuuu threadid file:line] msg
var glogRe = regexp.MustCompile(`^([IWEFD])(\d{2})(\d{2}) (\d{2}:\d{2}:\d{2}\.\d{6})\s+(\d+)\s+([^\s\]]+)\] ?(.*)$`)

// Glog handles the header written by glog and klog:
//
//	E0514 09:01:55.108028       1 server.cc:40] connection refused
//
// The letter gives the severity and file:line the facility. When the message
// is a klog structured entry ("msg" key="value" ...), the pairs are treated
// like any key=value residue.
func Glog(line string, sev severity.Severity, facility string, fold bool, f *Formatting, o *FieldOptions) Result {
	m := glogRe.FindStringSubmatch(line)
	if m == nil {
		return Passthrough(line, sev, facility)
	}

	res := Result{
		Message:   Plain(m[7]),
		Severity:  severity.FromLetter(m[1], sev),
		Facility:  m[6],
		Timestamp: glogTime(m[2], m[3], m[4]),
	}

	msg := m[7]
	if !strings.HasPrefix(msg, `"`) {
		return res
	}
	end, ok := closingQuote(msg, 0)
	if !ok {
		return res
	}
	text, err := strconv.Unquote(msg[:end+1])
	if err != nil {
		return res
	}
	rest := strings.TrimSpace(msg[end+1:])
	if rest == "" {
		res.Message = Plain(text)
		return res
	}
	pairs, ok := SplitKeyValues(rest)
	if !ok {
		return res
	}

	fields := append([]Field{{Key: "msg", Value: text}}, pairs...)
	opts := *o
	opts.MessageKeys = []string{"msg"}
	sr := structured(msg, fields, res.Severity, res.Facility, fold, f, &opts, syntaxKeyValue)
	sr.Timestamp = res.Timestamp
	return sr
}

func glogTime(month, day, clock string) time.Time {
	mo, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	t, err := time.Parse("15:04:05.000000", clock)
	if err != nil {
		return time.Time{}
	}
	ts, _ := timestamp.InYear(time.Now().Year(), time.Month(mo), d, t)
	return ts
}
