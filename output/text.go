package output

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/Alain-L/lognorm/analysis"
	"github.com/Alain-L/lognorm/extract"
	"github.com/Alain-L/lognorm/parser"
	"github.com/Alain-L/lognorm/severity"
)

const (
	timestampLayout = "2006-01-02T15:04:05.000Z"
	remnantIndent   = "    "
)

var severityLabels = map[severity.Severity]string{
	severity.Emergency: "EMRG",
	severity.Alert:     "ALRT",
	severity.Critical:  "CRIT",
	severity.Error:     "ERR ",
	severity.Warning:   "WARN",
	severity.Notice:    "NOTE",
	severity.Info:      "INFO",
	severity.Debug:     "DEBG",
	severity.DiffPlus:  "   +",
	severity.DiffMinus: "   -",
	severity.DiffSame:  "    ",
}

// palette maps severities and segment styles to terminal styles.
type palette struct {
	enabled bool

	severities map[severity.Severity]lipgloss.Style
	tags       map[extract.Style]lipgloss.Style
	bold       lipgloss.Style
}

func newPalette(r *lipgloss.Renderer, enabled bool) palette {
	fg := func(color string) lipgloss.Style {
		return r.NewStyle().Foreground(lipgloss.Color(color))
	}
	p := palette{
		enabled: enabled,
		bold:    r.NewStyle().Bold(true),
		severities: map[severity.Severity]lipgloss.Style{
			severity.Emergency: fg("196").Bold(true).Reverse(true),
			severity.Alert:     fg("196").Bold(true),
			severity.Critical:  fg("196").Bold(true),
			severity.Error:     fg("196"),
			severity.Warning:   fg("214"),
			severity.Notice:    fg("39"),
			severity.Debug:     fg("244"),
			severity.DiffPlus:  fg("34"),
			severity.DiffMinus: fg("160"),
			severity.DiffSame:  fg("244"),
		},
		tags: map[extract.Style]lipgloss.Style{
			extract.StyleTimestamp:   fg("244"),
			extract.StyleFacility:    fg("141"),
			extract.StyleKey:         fg("75"),
			extract.StyleSeparator:   fg("240"),
			extract.StyleResidue:     fg("244"),
			extract.StyleAddress:     fg("37"),
			extract.StyleVerb:        fg("214").Bold(true),
			extract.StyleURL:         fg("75").Underline(true),
			extract.StyleProtocol:    fg("244"),
			extract.StyleSize:        fg("37"),
			extract.StyleUserAgent:   fg("244"),
			extract.StylePermissions: fg("244"),
			extract.StyleOwner:       fg("179"),
			extract.StyleDirectory:   fg("33").Bold(true),
			extract.StyleSymlink:     fg("37"),
			extract.StyleExecutable:  fg("34").Bold(true),
			extract.StyleLineNumber:  fg("179"),
			extract.StyleFunction:    fg("141"),
			extract.StyleCode:        fg("250"),
			extract.StyleBullet:      fg("240"),
		},
	}
	return p
}

func (p palette) severity(text string, sev severity.Severity) string {
	if !p.enabled {
		return text
	}
	if st, ok := p.severities[sev]; ok {
		return st.Render(text)
	}
	return text
}

func (p palette) tag(text string, style extract.Style) string {
	if !p.enabled {
		return text
	}
	if st, ok := p.tags[style]; ok {
		return st.Render(text)
	}
	return text
}

func (p palette) heading(text string) string {
	if !p.enabled {
		return text
	}
	return p.bold.Render(text)
}

// message paints m. Unstyled segments, and plain messages, take the color
// of their own severity, or of def when they have none.
func (p palette) message(m extract.Message, def severity.Severity) string {
	if !m.Structured() {
		return p.severity(m.Text, def)
	}
	var b strings.Builder
	for _, s := range m.Segments {
		switch {
		case s.Style != extract.StyleNone:
			b.WriteString(p.tag(s.Text, s.Style))
		case s.Severity.Valid() || s.Severity.IsDiff():
			b.WriteString(p.severity(s.Text, s.Severity))
		default:
			b.WriteString(p.severity(s.Text, def))
		}
	}
	return b.String()
}

// TextRenderer writes one line per record followed by one indented line per
// remnant:
//
//	2024-05-14T09:01:55.108Z ERR  [server.cc:40] connection refused
//	    retry in 5s
type TextRenderer struct {
	w          *bufio.Writer
	palette    palette
	showSource bool
}

// NewTextRenderer returns a text renderer writing to w.
func NewTextRenderer(w io.Writer, mode ColorMode, showSource bool) *TextRenderer {
	r := lipgloss.NewRenderer(w)
	color := useColor(w, mode)
	if color {
		r.SetColorProfile(termenv.ANSI256)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	return &TextRenderer{
		w:          bufio.NewWriter(w),
		palette:    newPalette(r, color),
		showSource: showSource,
	}
}

// Render implements Renderer.
func (t *TextRenderer) Render(rec parser.Record) error {
	if !rec.Continuation || !rec.Message.Empty() {
		t.header(rec)
		t.w.WriteString(t.palette.message(rec.Message, rec.Severity))
		t.w.WriteByte('\n')
	}
	for _, rem := range rec.Remnants {
		sev := rem.Severity
		if !sev.Valid() && !sev.IsDiff() {
			sev = rec.Severity
		}
		t.w.WriteString(remnantIndent)
		t.w.WriteString(t.palette.message(rem.Message, sev))
		t.w.WriteByte('\n')
	}
	// bufio keeps the first write error and returns it from every write.
	_, err := t.w.WriteString("")
	return err
}

func (t *TextRenderer) header(rec parser.Record) {
	if t.showSource && rec.Source != "" {
		t.w.WriteString(t.palette.tag(fmt.Sprintf("%s:%d ", rec.Source, rec.LineNumber), extract.StyleFile))
	}
	ts := strings.Repeat(" ", len(timestampLayout))
	if rec.HasTimestamp {
		ts = rec.Timestamp.UTC().Format(timestampLayout)
	}
	t.w.WriteString(t.palette.tag(ts, extract.StyleTimestamp))
	t.w.WriteByte(' ')

	label, ok := severityLabels[rec.Severity]
	if !ok {
		label = "????"
	}
	t.w.WriteString(t.palette.severity(label, rec.Severity))
	t.w.WriteByte(' ')

	if rec.Facility != "" {
		t.w.WriteString(t.palette.tag("["+rec.Facility+"]", extract.StyleFacility))
		t.w.WriteByte(' ')
	}
}

// Flush implements Renderer.
func (t *TextRenderer) Flush() error {
	return t.w.Flush()
}

// WriteSummary prints the run summary as a text report.
func WriteSummary(w io.Writer, m analysis.AggregatedMetrics, mode ColorMode) error {
	r := lipgloss.NewRenderer(w)
	color := useColor(w, mode)
	if color {
		r.SetColorProfile(termenv.ANSI256)
	}
	p := newPalette(r, color)
	width := terminalWidth(w, 80)
	barWidth := histogramWidth
	if width/2 < barWidth {
		barWidth = width / 2
	}

	b := bufio.NewWriter(w)
	section := func(title string) {
		fmt.Fprintf(b, "\n%s\n\n", p.heading(title))
	}

	section("SUMMARY")
	fmt.Fprintf(b, "  %-25s : %s\n", "Start date", humanDate(m.Global.MinTimestamp))
	fmt.Fprintf(b, "  %-25s : %s\n", "End date", humanDate(m.Global.MaxTimestamp))
	fmt.Fprintf(b, "  %-25s : %s\n", "Duration", humanDuration(m.Global.Duration()))
	fmt.Fprintf(b, "  %-25s : %s\n", "Records", formatIntWithCommas(int64(m.Global.Count)))
	fmt.Fprintf(b, "  %-25s : %s\n", "Continuation lines", formatIntWithCommas(int64(m.Global.Continuations)))
	fmt.Fprintf(b, "  %-25s : %s\n", "Records without timestamp", formatIntWithCommas(int64(m.Global.Untimed)))
	if d := m.Global.Duration(); d > 0 {
		fmt.Fprintf(b, "  %-25s : %.2f records/s\n", "Throughput", float64(m.Global.Count)/d.Seconds())
	}

	if len(m.Events) > 0 {
		section("SEVERITIES")
		h := computeSeverityHistogram(m, barWidth)
		for i, e := range m.Events {
			bar := p.severity(h.bar(i, "■"), e.Severity)
			fmt.Fprintf(b, "  %-9s %8d %6.2f%%  %s\n", h.labels[i], e.Count, e.Percentage, bar)
		}
	}

	if h := computeTimelineHistogram(m, 6, barWidth); !h.empty() {
		section("TIMELINE")
		for i, label := range h.labels {
			fmt.Fprintf(b, "  %s | %s %d\n", label, h.bar(i, "■"), h.values[i])
		}
	}

	printCounts := func(title string, counts []analysis.EntityCount) {
		if len(counts) == 0 {
			return
		}
		section(title)
		nameLen := 0
		for _, c := range counts {
			if len(c.Name) > nameLen {
				nameLen = len(c.Name)
			}
		}
		if nameLen > width*2/5 {
			nameLen = width * 2 / 5
		}
		for _, c := range counts {
			fmt.Fprintf(b, "  %-*s %8d\n", nameLen, truncate(c.Name, nameLen), c.Count)
		}
	}
	printCounts("PARSERS", m.Parsers)
	printCounts("FACILITIES", m.Facilities)
	printCounts("SOURCES", m.Sources)

	if len(m.TopEvents) > 0 {
		section("TOP EVENTS")
		limit := 10
		for i, e := range m.TopEvents {
			if i == limit {
				break
			}
			label := strings.TrimSpace(severityLabels[e.Severity])
			fmt.Fprintf(b, "  %6d %s %s\n", e.Count, p.severity(fmt.Sprintf("%-4s", label), e.Severity),
				truncate(e.Signature, width-14))
		}
	}
	return b.Flush()
}

// truncate shortens s to n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if n < 2 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
