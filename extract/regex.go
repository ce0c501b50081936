package extract

import (
	"regexp"

	"github.com/Alain-L/lognorm/severity"
)

// Group names with a fixed meaning in Regex patterns.
const (
	GroupSeverity  = "severity"
	GroupFacility  = "facility"
	GroupMessage   = "message"
	GroupTimestamp = "timestamp"
)

// Regex applies a user supplied pattern. The named groups severity, facility,
// message and timestamp have their usual meaning; every other named group is
// residue, handled like a key=value field. Without a message group the whole
// line is the message.
func Regex(line string, sev severity.Severity, facility string, fold bool, f *Formatting, o *FieldOptions, re *regexp.Regexp) Result {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return Passthrough(line, sev, facility)
	}

	var fields []Field
	if re.SubexpIndex(GroupMessage) < 0 {
		fields = append(fields, Field{Key: GroupMessage, Value: line})
	}
	for i, name := range re.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		fields = append(fields, Field{Key: name, Value: m[i]})
	}

	opts := FieldOptions{
		MessageKeys:   []string{GroupMessage},
		SeverityKeys:  []string{GroupSeverity},
		TimestampKeys: []string{GroupTimestamp},
		ErrorKeys:     o.ErrorKeys,
		Facilities:    []FacilityRule{{Keys: []string{GroupFacility}}},
	}
	return structured(line, fields, sev, facility, fold, f, &opts, syntaxKeyValue)
}
