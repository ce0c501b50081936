package parser

import (
	"strings"
)

// maxPartial bounds the bytes joined from partial CRI lines before the
// joined line is handed over as is.
const maxPartial = 4 * MaxLineLength

// splitCRI splits a line of the CRI container log file format,
//
//	2018-09-20T11:54:11.753589172Z stdout F This is my message
//
// into its timestamp, partial flag and content. The stream name is checked
// but dropped: severity comes from the content.
func splitCRI(line string) (ts string, partial bool, content string, ok bool) {
	parts := strings.SplitN(line, " ", 4)
	if len(parts) < 3 {
		return "", false, "", false
	}
	ts = parts[0]
	if len(ts) < 20 || ts[4] != '-' || ts[10] != 'T' {
		return "", false, "", false
	}
	if parts[1] != "stdout" && parts[1] != "stderr" {
		return "", false, "", false
	}
	switch parts[2] {
	case "F":
	case "P":
		partial = true
	default:
		return "", false, "", false
	}
	if len(parts) == 4 {
		content = parts[3]
	}
	return ts, partial, content, true
}

// criJoiner reassembles lines the runtime split into partial chunks.
type criJoiner struct {
	ts      string
	buf     strings.Builder
	first   int
	dropped int
	active  bool
}

// add returns the full kubelet-style line ("<ts> <content>") once the last
// chunk has been seen, together with the line number of its first chunk and
// the characters the reader dropped from its chunks.
func (j *criJoiner) add(line string, number, dropped int) (string, int, int, bool) {
	ts, partial, content, ok := splitCRI(line)
	if !ok {
		if j.active {
			// A foreign line ends the partial run.
			joined, first, d := j.take()
			return joined + "\n" + line, first, d + dropped, true
		}
		return line, number, dropped, true
	}
	if !j.active {
		j.ts, j.first, j.active = ts, number, true
	}
	j.buf.WriteString(content)
	j.dropped += dropped
	if partial && j.buf.Len() < maxPartial {
		return "", 0, 0, false
	}
	joined, first, d := j.take()
	return joined, first, d, true
}

// flush returns what is left of an unterminated partial run.
func (j *criJoiner) flush() (string, int, int, bool) {
	if !j.active {
		return "", 0, 0, false
	}
	joined, first, d := j.take()
	return joined, first, d, true
}

func (j *criJoiner) take() (string, int, int) {
	joined := j.ts + " " + j.buf.String()
	first, dropped := j.first, j.dropped
	j.buf.Reset()
	j.ts, j.first, j.dropped, j.active = "", 0, 0, false
	return joined, first, dropped
}
