package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/Alain-L/lognorm/analysis"
	"github.com/Alain-L/lognorm/severity"
)

// ExportMarkdown writes the run summary as a markdown report.
func ExportMarkdown(w io.Writer, m analysis.AggregatedMetrics) error {
	var b strings.Builder

	b.WriteString("## SUMMARY\n\n")
	b.WriteString(fmt.Sprintf("This _lognorm_ report summarizes **%s** records collected between %s and %s, spanning %s of activity.\n\n",
		formatIntWithCommas(int64(m.Global.Count)),
		humanDate(m.Global.MinTimestamp),
		humanDate(m.Global.MaxTimestamp),
		humanDuration(m.Global.Duration()),
	))
	b.WriteString("|  |  |\n|---|---:|\n")
	b.WriteString(fmt.Sprintf("| Continuation lines | %s |\n", formatIntWithCommas(int64(m.Global.Continuations))))
	b.WriteString(fmt.Sprintf("| Records without timestamp | %s |\n\n", formatIntWithCommas(int64(m.Global.Untimed))))

	if len(m.Events) > 0 {
		b.WriteString("## SEVERITIES\n\n")
		printHistogramMarkdown(&b, computeSeverityHistogram(m, histogramWidth), "Severity distribution")
	}

	if h := computeTimelineHistogram(m, 6, histogramWidth); !h.empty() {
		b.WriteString("## TIMELINE\n\n")
		printHistogramMarkdown(&b, h, "Records over time")
	}

	printCountsMarkdown(&b, "PARSERS", "Parser", m.Parsers)
	printCountsMarkdown(&b, "FACILITIES", "Facility", m.Facilities)
	printCountsMarkdown(&b, "SOURCES", "Source", m.Sources)

	if len(m.TopEvents) > 0 {
		b.WriteString("## TOP EVENTS\n\n")
		b.WriteString("| Count | Severity | Signature |\n|---:|---|---|\n")
		for _, e := range m.TopEvents {
			b.WriteString(fmt.Sprintf("| %d | %s | `%s` |\n", e.Count, severity.Name(e.Severity), escapeMarkdown(e.Signature)))
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func printHistogramMarkdown(b *strings.Builder, h histogram, title string) {
	if h.empty() {
		b.WriteString("(No data available)\n\n")
		return
	}

	b.WriteString(fmt.Sprintf("### %s\n\n```\n", title))
	width := 0
	for _, l := range h.labels {
		if len(l) > width {
			width = len(l)
		}
	}
	for i, label := range h.labels {
		valueStr := fmt.Sprintf("%d", h.values[i])
		if h.values[i] == 0 {
			valueStr = "-"
		}
		b.WriteString(fmt.Sprintf("%-*s | %s %s\n", width, label, h.bar(i, "■"), valueStr))
	}
	b.WriteString("```\n\n")
}

func printCountsMarkdown(b *strings.Builder, title, column string, counts []analysis.EntityCount) {
	if len(counts) == 0 {
		return
	}
	b.WriteString(fmt.Sprintf("## %s\n\n| %s | Records |\n|---|---:|\n", title, column))
	for _, c := range counts {
		b.WriteString(fmt.Sprintf("| %s | %s |\n", escapeMarkdown(c.Name), formatIntWithCommas(int64(c.Count))))
	}
	b.WriteString("\n")
}

// escapeMarkdown keeps table cells intact.
func escapeMarkdown(s string) string {
	return strings.NewReplacer("|", `\|`, "`", "'").Replace(s)
}
