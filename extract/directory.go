package extract

import (
	"regexp"
	"strings"

	"github.com/Alain-L/lognorm/severity"
)

var (
	lsRe = regexp.MustCompile(`^([-dlcbps])([-rwxsStT]{9})([.+@]?)(\s+)(\d+)(\s+)(\S+)(\s+)(\S+)(\s+)` +
		`(\d+(?:,\s*\d+)?|[\d.]+[KMGTP]?)(\s+)` +
		`(\w{3}\s+\d{1,2}\s+(?:\d{1,2}:\d{2}|\d{4})|\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}(?::\d{2}(?:\.\d+)?)?(?:\s+[+-]\d{4})?)` +
		`(\s+)(.+)$`)
	lsTotalRe = regexp.MustCompile(`^total (\d+[KMGTP]?)$`)
)

// Directory handles the output of `ls -l`, which shows up in init containers
// and debug scripts. Entry names are styled by type: directories, symbolic
// links, executables and regular files.
func Directory(line string, sev severity.Severity, facility string, fold bool, f *Formatting) Result {
	if m := lsTotalRe.FindStringSubmatch(line); m != nil {
		return Result{
			Message:  Segmented(Seg("total", StyleKey), Seg(" ", StyleNone), Seg(m[1], StyleSize)),
			Severity: sev,
			Facility: facility,
		}
	}

	m := lsRe.FindStringSubmatch(line)
	if m == nil {
		return Passthrough(line, sev, facility)
	}

	kind, perms := m[1], m[2]
	segs := []Segment{
		Seg(kind+perms+m[3], StylePermissions), Seg(m[4], StyleNone),
		Seg(m[5], StyleNone), Seg(m[6], StyleNone),
		Seg(m[7], StyleOwner), Seg(m[8], StyleNone),
		Seg(m[9], StyleOwner), Seg(m[10], StyleNone),
		Seg(m[11], StyleSize), Seg(m[12], StyleNone),
		Seg(m[13], StyleTimestamp), Seg(m[14], StyleNone),
	}

	name := m[15]
	switch kind {
	case "d":
		segs = append(segs, Seg(name, StyleDirectory))
	case "l":
		if link, dest, ok := strings.Cut(name, " -> "); ok {
			segs = append(segs, Seg(link, StyleSymlink), Seg(" -> ", StyleSeparator), Seg(dest, StyleFile))
		} else {
			segs = append(segs, Seg(name, StyleSymlink))
		}
	default:
		if kind == "-" && strings.ContainsAny(perms, "xst") {
			segs = append(segs, Seg(name, StyleExecutable))
		} else {
			segs = append(segs, Seg(name, StyleFile))
		}
	}

	return Result{Message: Segmented(segs...), Severity: sev, Facility: facility}
}
