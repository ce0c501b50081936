package output

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alain-L/lognorm/analysis"
	"github.com/Alain-L/lognorm/extract"
	"github.com/Alain-L/lognorm/parser"
	"github.com/Alain-L/lognorm/severity"
)

var ts = time.Date(2024, 5, 14, 9, 1, 55, 108028000, time.UTC)

func glogRecord() parser.Record {
	return parser.Record{
		Timestamp:    ts,
		HasTimestamp: true,
		Severity:     severity.Error,
		Facility:     "server.cc:40",
		Parser:       "kubernetes",
		Source:       "kube.log",
		LineNumber:   3,
		Message:      extract.Plain("connection refused"),
		Remnants:     []extract.Remnant{{Message: extract.Plain("retry in 5s"), Severity: severity.Error}},
	}
}

func render(t *testing.T, r Renderer, recs ...parser.Record) {
	t.Helper()
	for _, rec := range recs {
		require.NoError(t, r.Render(rec))
	}
}

func TestTextRenderer(t *testing.T) {
	var buf bytes.Buffer
	r := NewTextRenderer(&buf, ColorNever, false)
	render(t, r,
		glogRecord(),
		parser.Record{Severity: severity.Error, Continuation: true,
			Remnants: []extract.Remnant{{Message: extract.Plain(`  File "a.py", line 3`), Severity: severity.Error}}},
		parser.Record{Severity: severity.Info, Message: extract.Plain("no timestamp")},
	)
	assert.Empty(t, buf.String(), "output is buffered until Flush")
	require.NoError(t, r.Flush())

	want := "2024-05-14T09:01:55.108Z ERR  [server.cc:40] connection refused\n" +
		"    retry in 5s\n" +
		`      File "a.py", line 3` + "\n" +
		strings.Repeat(" ", 24) + " INFO no timestamp\n"
	assert.Equal(t, want, buf.String())
}

func TestTextRendererSegments(t *testing.T) {
	var buf bytes.Buffer
	r := NewTextRenderer(&buf, ColorNever, true)
	rec := parser.Record{
		Severity:   severity.Notice,
		Source:     "nginx.log",
		LineNumber: 12,
		Message: extract.Segmented(
			extract.Seg("GET", extract.StyleVerb),
			extract.SevSeg(" /healthz ", severity.Unknown),
			extract.SevSeg("200", severity.Notice),
		),
	}
	render(t, r, rec)
	require.NoError(t, r.Flush())
	assert.Equal(t, "nginx.log:12 "+strings.Repeat(" ", 24)+" NOTE GET /healthz 200\n", buf.String())
}

func TestTextRendererColors(t *testing.T) {
	var buf bytes.Buffer
	r := NewTextRenderer(&buf, ColorAlways, false)
	render(t, r, glogRecord())
	require.NoError(t, r.Flush())

	out := buf.String()
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "connection refused")
	assert.Contains(t, out, "server.cc:40")
}

func TestAutoColorOffForPipes(t *testing.T) {
	assert.False(t, useColor(&bytes.Buffer{}, ColorAuto))
	assert.True(t, useColor(&bytes.Buffer{}, ColorAlways))
	assert.False(t, useColor(&bytes.Buffer{}, ColorNever))
}

func TestJSONRenderer(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, Options{JSON: true})
	render(t, r,
		glogRecord(),
		parser.Record{Severity: severity.Warning, Continuation: true,
			Remnants: []extract.Remnant{{Message: extract.Plain("  detail <b>"), Severity: severity.Warning}}},
	)
	require.NoError(t, r.Flush())

	sc := bufio.NewScanner(&buf)
	var got []RecordJSON
	for sc.Scan() {
		var rec RecordJSON
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		got = append(got, rec)
	}
	require.Len(t, got, 2)

	assert.Equal(t, "2024-05-14T09:01:55.108028Z", got[0].Timestamp)
	assert.Equal(t, severity.Error, got[0].Severity)
	assert.Equal(t, "server.cc:40", got[0].Facility)
	assert.Equal(t, "kubernetes", got[0].Parser)
	assert.Equal(t, 3, got[0].Line)
	assert.Equal(t, "connection refused", got[0].Message)
	assert.Equal(t, []RemnantJSON{{Message: "retry in 5s", Severity: severity.Error}}, got[0].Remnants)

	assert.True(t, got[1].Continuation)
	assert.Empty(t, got[1].Timestamp)
	assert.Equal(t, "  detail <b>", got[1].Remnants[0].Message)
}

func TestJSONRendererSeverityNames(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONRenderer(&buf)
	render(t, r, parser.Record{Severity: severity.Critical, Message: extract.Plain("x")})
	require.NoError(t, r.Flush())
	assert.Contains(t, buf.String(), `"severity":"critical"`)
}

func metrics() analysis.AggregatedMetrics {
	a := analysis.NewStreamingAnalyzer()
	for i, sev := range []severity.Severity{severity.Info, severity.Info, severity.Error, severity.Warning} {
		rec := parser.Record{
			Timestamp:    ts.Add(time.Duration(i) * 10 * time.Minute),
			HasTimestamp: true,
			Severity:     sev,
			Parser:       "json",
			Facility:     "db",
			Source:       "app.log",
			Message:      extract.Plain("query took 12ms"),
		}
		a.Process(&rec)
	}
	return a.Finalize()
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, metrics(), ColorNever))

	out := buf.String()
	for _, section := range []string{"SUMMARY", "SEVERITIES", "TIMELINE", "PARSERS", "FACILITIES", "SOURCES", "TOP EVENTS"} {
		assert.Contains(t, out, "\n"+section+"\n", section)
	}
	assert.Contains(t, out, "30m")
	assert.Contains(t, out, "query took ?")
	assert.NotContains(t, out, "\x1b[")
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportJSON(&buf, metrics()))

	var got SummaryJSON
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 4, got.Records)
	assert.Equal(t, "30m0s", got.Duration)
	assert.Equal(t, map[string]int{"json": 4}, got.Parsers)
	require.Len(t, got.Severities, 3)
	assert.Equal(t, severity.Error, got.Severities[0].Severity)
	require.Len(t, got.TopEvents, 1)
	assert.Equal(t, 2, got.TopEvents[0].Count)
	assert.Len(t, got.Timeline, 4)
}

func TestExportMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportMarkdown(&buf, metrics()))

	out := buf.String()
	assert.Contains(t, out, "**4** records")
	assert.Contains(t, out, "## SEVERITIES")
	assert.Contains(t, out, "| json | 4 |")
	assert.Contains(t, out, "| 2 | error | `query took ?` |")
}

func TestTimelineHistogram(t *testing.T) {
	h := computeTimelineHistogram(metrics(), 6, 40)
	require.Len(t, h.labels, 6)
	total := 0
	for _, v := range h.values {
		total += v
	}
	assert.Equal(t, 4, total)
	assert.Equal(t, "09:01 - 09:06", h.labels[0])

	short := analysis.AggregatedMetrics{Timeline: []analysis.TimeBucket{{Start: ts.Truncate(time.Minute), Count: 3}}}
	h = computeTimelineHistogram(short, 6, 40)
	assert.Equal(t, []int{3}, h.values)

	assert.True(t, computeTimelineHistogram(analysis.AggregatedMetrics{}, 6, 40).empty())
}

func TestHistogramBar(t *testing.T) {
	h := histogram{values: []int{0, 1, 200}, scaleFactor: scale([]int{0, 1, 200}, 40)}
	assert.Equal(t, 5, h.scaleFactor)
	assert.Equal(t, "", h.bar(0, "#"))
	assert.Equal(t, "#", h.bar(1, "#"))
	assert.Equal(t, strings.Repeat("#", 40), h.bar(2, "#"))
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "1,234,567", formatIntWithCommas(1234567))
	assert.Equal(t, "-1,000", formatIntWithCommas(-1000))
	assert.Equal(t, "999", formatIntWithCommas(999))
	assert.Equal(t, "1h 2m 3s", humanDuration(time.Hour+2*time.Minute+3*time.Second))
	assert.Equal(t, "0s", humanDuration(0))
	assert.Equal(t, "N/A", humanDate(time.Time{}))
	assert.Equal(t, "abc…", truncate("abcdef", 4))
	assert.Equal(t, "abc", truncate("abc", 4))
}
