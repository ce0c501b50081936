package extract

import (
	"regexp"

	"github.com/Alain-L/lognorm/severity"
)

var modinfoRe = regexp.MustCompile(`^([a-z_]+):(\s+)(.*)$`)

// Modinfo handles the aligned "key:   value" output of modinfo(8) printed
// by driver installer containers.
func Modinfo(line string, sev severity.Severity, facility string, fold bool, f *Formatting) Result {
	m := modinfoRe.FindStringSubmatch(line)
	if m == nil {
		return Passthrough(line, sev, facility)
	}
	return Result{
		Message: Segmented(
			Seg(m[1], StyleKey), Seg(":", StyleSeparator),
			Seg(m[2], StyleNone), Seg(m[3], StyleValue)),
		Severity: sev,
		Facility: facility,
	}
}
