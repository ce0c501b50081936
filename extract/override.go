package extract

import (
	"regexp"
	"strings"

	"github.com/Alain-L/lognorm/severity"
)

// Override forces a severity on messages containing Match, or matching
// Pattern when it is set.
type Override struct {
	Match    string
	Pattern  *regexp.Regexp
	Severity severity.Severity
}

func (o Override) matches(text string) bool {
	if o.Pattern != nil {
		return o.Pattern.MatchString(text)
	}
	return o.Match != "" && strings.Contains(text, o.Match)
}

// OverrideSeverity returns the severity of the first override matching the
// message text, or sev when none does. It is meant for components that log
// benign events at error level, or the other way round.
func OverrideSeverity(msg Message, sev severity.Severity, overrides []Override) severity.Severity {
	if len(overrides) == 0 {
		return sev
	}
	text := msg.String()
	for _, o := range overrides {
		if o.matches(text) {
			return o.Severity
		}
	}
	return sev
}
