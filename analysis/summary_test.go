package analysis

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alain-L/lognorm/extract"
	"github.com/Alain-L/lognorm/parser"
	"github.com/Alain-L/lognorm/severity"
)

var t0 = time.Date(2024, 5, 14, 9, 1, 0, 0, time.UTC)

func records() []parser.Record {
	return []parser.Record{
		{Timestamp: t0.Add(5 * time.Second), HasTimestamp: true, Severity: severity.Info, Parser: "kubernetes",
			Facility: "main.go:10", Source: "a.log", Message: extract.Plain("starting")},
		{Timestamp: t0.Add(70 * time.Second), HasTimestamp: true, Severity: severity.Error, Parser: "kubernetes",
			Facility: "main.go:11", Source: "a.log", Message: extract.Plain("dial 10.0.0.1:443 failed")},
		{Severity: severity.Error, Parser: "kubernetes", Continuation: true, Source: "a.log"},
		{Timestamp: t0, HasTimestamp: true, Severity: severity.Error, Parser: "python", Source: "b.log",
			Message: extract.Plain("dial 10.0.0.2:443 failed")},
		{Severity: severity.Warning, Source: "b.log", Message: extract.Plain("raw")},
	}
}

func TestStreamingAnalyzer(t *testing.T) {
	a := NewStreamingAnalyzer()
	for _, rec := range records() {
		a.Process(&rec)
	}
	m := a.Finalize()

	assert.Equal(t, 4, m.Global.Count)
	assert.Equal(t, 1, m.Global.Continuations)
	assert.Equal(t, 1, m.Global.Untimed)
	assert.Equal(t, t0, m.Global.MinTimestamp)
	assert.Equal(t, t0.Add(70*time.Second), m.Global.MaxTimestamp)
	assert.Equal(t, 70*time.Second, m.Global.Duration())

	require.Len(t, m.Events, 3)
	assert.Equal(t, EventSummary{Severity: severity.Error, Count: 2, Percentage: 50}, m.Events[0])
	assert.Equal(t, severity.Warning, m.Events[1].Severity)
	assert.Equal(t, severity.Info, m.Events[2].Severity)

	require.Len(t, m.TopEvents, 2)
	assert.Equal(t, "dial ? failed", m.TopEvents[0].Signature)
	assert.Equal(t, 2, m.TopEvents[0].Count)
	assert.Equal(t, "dial 10.0.0.1:443 failed", m.TopEvents[0].Example)
	assert.Equal(t, "raw", m.TopEvents[1].Signature)

	assert.Equal(t, []EntityCount{{"kubernetes", 2}, {"none", 1}, {"python", 1}}, m.Parsers)
	assert.Equal(t, []EntityCount{{"a.log", 2}, {"b.log", 2}}, m.Sources)
	assert.Len(t, m.Facilities, 2)

	assert.Equal(t, 1, m.Counts[CountKey{Parser: "kubernetes", Severity: severity.Error}])
	assert.Equal(t, 1, m.Counts[CountKey{Parser: "none", Severity: severity.Warning}])

	assert.Equal(t, []TimeBucket{{Start: t0, Count: 2}, {Start: t0.Add(time.Minute), Count: 1}}, m.Timeline)
}

func TestCollectForwards(t *testing.T) {
	in := make(chan parser.Record, 10)
	out := make(chan parser.Record, 10)
	for _, rec := range records() {
		in <- rec
	}
	close(in)

	m := Collect(in, out)
	assert.Equal(t, 4, m.Global.Count)

	n := 0
	for range out {
		n++
	}
	assert.Equal(t, 5, n)
}

func TestFinalizeEmpty(t *testing.T) {
	m := NewStreamingAnalyzer().Finalize()
	assert.Zero(t, m.Global.Count)
	assert.Empty(t, m.Events)
	assert.Empty(t, m.TopEvents)
	assert.Empty(t, m.Timeline)
}

func TestSortByCount(t *testing.T) {
	got := SortByCount(map[string]int{"b": 2, "a": 2, "c": 5})
	assert.Equal(t, []EntityCount{{"c", 5}, {"a", 2}, {"b", 2}}, got)
	assert.Len(t, top(got, 1), 1)
}

func TestMetricsRegistry(t *testing.T) {
	in := make(chan parser.Record, 10)
	for _, rec := range records() {
		in <- rec
	}
	close(in)
	m := Collect(in, nil)

	reg, err := m.Registry()
	require.NoError(t, err)

	expected := `
# HELP lognorm_records_total Classified records by parser and severity.
# TYPE lognorm_records_total counter
lognorm_records_total{parser="kubernetes",severity="error"} 1
lognorm_records_total{parser="kubernetes",severity="info"} 1
lognorm_records_total{parser="none",severity="warning"} 1
lognorm_records_total{parser="python",severity="error"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "lognorm_records_total"))
}

func TestWriteMetrics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lognorm.prom")
	a := NewStreamingAnalyzer()
	for _, rec := range records() {
		a.Process(&rec)
	}
	require.NoError(t, WriteMetrics(path, a.Finalize()))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "lognorm_continuation_records_total 1")
	assert.Contains(t, string(b), `lognorm_timestamp_seconds{bound="first"}`)

	assert.Error(t, WriteMetrics(filepath.Join(t.TempDir(), "missing", "x.prom"), a.Finalize()))
}
