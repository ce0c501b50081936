package extract

import (
	"regexp"

	"github.com/Alain-L/lognorm/severity"
	"github.com/Alain-L/lognorm/timestamp"
)

var tensorflowRe = regexp.MustCompile(`^([IWEF]) (\S+:\d+)\] ?(.*)$`)

// Tensorflow handles the TensorFlow C++ runtime header, which follows its own
// timestamp:
//
//	2022-01-29 10:34:20.123456: I tensorflow/core/platform/cpu_feature_guard.cc:142] msg
func Tensorflow(line string, sev severity.Severity, facility string, fold bool, f *Formatting) Result {
	rest, ts, _ := timestamp.ISO8601(line)
	m := tensorflowRe.FindStringSubmatch(rest)
	if m == nil {
		return Passthrough(line, sev, facility)
	}
	return Result{
		Message:   Plain(m[3]),
		Severity:  severity.FromLetter(m[1], sev),
		Facility:  m[2],
		Timestamp: ts,
	}
}
