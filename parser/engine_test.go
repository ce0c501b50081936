package parser

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Alain-L/lognorm/extract"
	"github.com/Alain-L/lognorm/rules"
	"github.com/Alain-L/lognorm/severity"
)

var pythonApp = Identity{
	PodName:       "billing-7d9c",
	ContainerName: "app",
	ImageName:     "docker.io/library/python:3.12-slim",
	ContainerType: "container",
}

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	return NewEngine(nil, append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)...)
}

func classify(e *Engine, state *ScanState, id Identity, line string) Record {
	return e.Classify(state, Request{Identity: id, Line: line})
}

func TestClassifyKeyValue(t *testing.T) {
	e := newEngine(t)
	rec := e.Classify(nil, Request{Line: `level=error msg="disk full" path=/var`, Override: "key_value"})

	assert.Equal(t, "disk full", rec.Message.String())
	assert.Equal(t, severity.Error, rec.Severity)
	require.Len(t, rec.Remnants, 1)
	assert.Equal(t, "path=/var", rec.Remnants[0].Message.String())
	assert.Equal(t, severity.Error, rec.Remnants[0].Severity)
	assert.Equal(t, "key_value", rec.Parser)
}

func TestClassifyGlog(t *testing.T) {
	e := newEngine(t)
	id := Identity{PodName: "kube-controller-manager-cp1", ImageName: "registry.k8s.io/kube-controller-manager:v1.30.1"}
	rec := classify(e, nil, id, "E0514 09:01:55.108028 1 server.cc:40] connection refused")

	assert.Equal(t, "kubernetes", rec.Parser)
	assert.Equal(t, "server.cc:40", rec.Facility)
	assert.Equal(t, severity.Error, rec.Severity)
	assert.Equal(t, "connection refused", rec.Message.String())
}

func TestClassifyHTTP(t *testing.T) {
	e := newEngine(t)
	id := Identity{ImageName: "registry.k8s.io/ingress-nginx/controller:v1.10.0"}
	rec := classify(e, nil, id, `10.0.0.5 - - [29/Jan/2022:10:34:20 +0000] "GET /healthz HTTP/1.1" 200 3`)

	assert.Equal(t, "ingress_nginx", rec.Parser)
	assert.Equal(t, severity.Notice, rec.Severity)
	require.True(t, rec.Message.Structured())
	var verb, url, status string
	for _, s := range rec.Message.Segments {
		switch {
		case s.Style == extract.StyleVerb:
			verb = s.Text
		case s.Style == extract.StyleURL:
			url = s.Text
		case s.Style == extract.StyleNone && s.Text == "200":
			status = s.Text
		}
	}
	assert.Equal(t, "GET", verb)
	assert.Equal(t, "/healthz", url)
	assert.Equal(t, "200", status)
	assert.True(t, rec.HasTimestamp)
	assert.Equal(t, 2022, rec.Timestamp.Year())
}

func TestClassifyTraceback(t *testing.T) {
	e := newEngine(t)
	var state ScanState
	lines := []string{
		"Traceback (most recent call last):",
		`  File "a.py", line 3, in f`,
		`    raise ValueError("x")`,
		"ValueError: x",
		"INFO:worker:retrying",
	}

	head := classify(e, &state, pythonApp, lines[0])
	assert.Equal(t, "python", head.Parser)
	assert.Equal(t, severity.Error, head.Severity)
	assert.Equal(t, lines[0], head.Message.String())
	assert.False(t, head.Continuation)
	require.True(t, state.Active())
	assert.Equal(t, "python", state.Parser())

	for _, line := range lines[1:3] {
		rec := classify(e, &state, pythonApp, line)
		assert.True(t, rec.Continuation, line)
		assert.True(t, rec.Message.Empty(), line)
		require.Len(t, rec.Remnants, 1)
		assert.Equal(t, line, rec.Remnants[0].Message.String())
		assert.Equal(t, severity.Error, rec.Severity)
	}
	assert.Equal(t, 2, state.Lines())

	end := classify(e, &state, pythonApp, lines[3])
	assert.True(t, end.Continuation)
	assert.Equal(t, severity.Error, end.Severity)
	assert.Equal(t, "ValueError: x", end.Remnants[0].Message.String())
	assert.False(t, state.Active())

	next := classify(e, &state, pythonApp, lines[4])
	assert.False(t, next.Continuation)
	assert.Equal(t, severity.Info, next.Severity)
	assert.Equal(t, "worker", next.Facility)
	assert.Equal(t, "retrying", next.Message.String())
}

func TestClassifyBlockReprocessesClosingLine(t *testing.T) {
	e := newEngine(t)
	var state ScanState
	classify(e, &state, pythonApp, "Traceback (most recent call last):")
	classify(e, &state, pythonApp, `  File "a.py", line 3, in f`)

	rec := classify(e, &state, pythonApp, "[WARNING] slow query")
	assert.False(t, rec.Continuation)
	assert.Equal(t, severity.Warning, rec.Severity)
	assert.Equal(t, "slow query", rec.Message.String())
	assert.False(t, state.Active())
}

func TestClassifyBlockInheritsSeverity(t *testing.T) {
	e := newEngine(t)
	var state ScanState
	id := Identity{ImageName: "registry.k8s.io/kube-scheduler:v1.30.1"}

	head := classify(e, &state, id, `W0514 09:01:55.108028 1 config.go:12] loaded configuration {`)
	assert.Equal(t, severity.Warning, head.Severity)
	require.True(t, state.Active())

	body := classify(e, &state, id, `  "profiles": 1`)
	assert.True(t, body.Continuation)
	assert.Equal(t, severity.Warning, body.Severity)
	assert.Equal(t, severity.Warning, body.Remnants[0].Severity)
	assert.Equal(t, "config.go:12", body.Facility)

	closing := classify(e, &state, id, `}`)
	assert.True(t, closing.Continuation)
	assert.False(t, state.Active())
}

func TestClassifyMaxBlockLines(t *testing.T) {
	e := newEngine(t, WithMaxBlockLines(2))
	var state ScanState
	classify(e, &state, pythonApp, "Traceback (most recent call last):")
	assert.True(t, classify(e, &state, pythonApp, `  File "a.py", line 1, in a`).Continuation)
	assert.True(t, classify(e, &state, pythonApp, `  File "a.py", line 2, in b`).Continuation)

	rec := classify(e, &state, pythonApp, `  File "a.py", line 3, in c`)
	assert.False(t, rec.Continuation)
	assert.False(t, state.Active())
}

func TestClassifyStripsKubernetesTimestamp(t *testing.T) {
	e := newEngine(t)
	rec := classify(e, nil, Identity{}, "2024-05-14T09:01:55.108028123Z 2021-01-01 00:00:00 hello")

	assert.Equal(t, "hello", rec.Message.String())
	assert.Equal(t, FallbackName, rec.Parser)
	assert.Equal(t, severity.Info, rec.Severity)
	assert.Empty(t, rec.Facility)
	require.True(t, rec.HasTimestamp)
	assert.True(t, rec.Timestamp.Equal(time.Date(2024, 5, 14, 9, 1, 55, 108028123, time.UTC)))
}

func TestClassifyPassthrough(t *testing.T) {
	e := newEngine(t)
	rec := classify(e, nil, Identity{}, "nothing to see here")
	assert.Equal(t, "nothing to see here", rec.Message.String())
	assert.Equal(t, severity.Info, rec.Severity)
	assert.False(t, rec.HasTimestamp)
}

func TestClassifyOversizedLine(t *testing.T) {
	e := newEngine(t)
	var state ScanState
	classify(e, &state, pythonApp, "Traceback (most recent call last):")

	rec := classify(e, &state, pythonApp, strings.Repeat("x", 20000))
	assert.Equal(t, strings.Repeat("x", 16383), rec.Message.String())
	assert.Equal(t, severity.Error, rec.Severity)
	require.Len(t, rec.Remnants, 2)
	assert.Equal(t, strings.Repeat("x", 20000-16383), rec.Remnants[0].Message.String())
	assert.Equal(t, severity.Error, rec.Remnants[0].Severity)
	assert.Equal(t, "Line too long (20000 bytes); truncated...", rec.Remnants[1].Message.String())
	assert.Equal(t, severity.Error, rec.Remnants[1].Severity)
	assert.False(t, state.Active())
}

func TestClassifyOversizedLineCountsCharacters(t *testing.T) {
	e := newEngine(t)

	line := strings.Repeat("é", 10000)
	rec := classify(e, nil, Identity{}, line)
	assert.Equal(t, line, rec.Message.String())
	assert.Equal(t, severity.Info, rec.Severity)
	assert.Empty(t, rec.Remnants)

	rec = classify(e, nil, Identity{}, strings.Repeat("é", 20000))
	assert.Equal(t, 16383, utf8.RuneCountInString(rec.Message.String()))
	assert.Equal(t, strings.Repeat("é", 16383), rec.Message.String())
	require.Len(t, rec.Remnants, 2)
	assert.Equal(t, strings.Repeat("é", 20000-16383), rec.Remnants[0].Message.String())
	assert.Equal(t, "Line too long (20000 bytes); truncated...", rec.Remnants[1].Message.String())
}

func TestClassifyOversizedRemnantIsCapped(t *testing.T) {
	e := newEngine(t)
	rec := classify(e, nil, Identity{}, strings.Repeat("y", 3*MaxLineLength))
	require.Len(t, rec.Remnants, 2)
	assert.Equal(t, MaxLineLength-1, len(rec.Message.String()))
	assert.Equal(t, MaxLineLength-1, len(rec.Remnants[0].Message.String()))
	assert.Equal(t, "Line too long (49152 bytes); truncated...", rec.Remnants[1].Message.String())
}

func TestClassifyCountsDroppedCharacters(t *testing.T) {
	e := newEngine(t)
	rec := e.Classify(nil, Request{Line: "short", Dropped: 20000})
	assert.Equal(t, severity.Error, rec.Severity)
	assert.Equal(t, "short", rec.Message.String())
	require.Len(t, rec.Remnants, 1)
	assert.Equal(t, "Line too long (20005 bytes); truncated...", rec.Remnants[0].Message.String())
}

func TestClassifyExpandsTabs(t *testing.T) {
	e := newEngine(t)
	rec := classify(e, nil, Identity{}, "a\tbc\td")
	assert.Equal(t, "a       bc      d", rec.Message.String())

	rec = e.Classify(nil, Request{Line: "time=1 msg=hi\tthere path=\t/x", Override: "key_value"})
	assert.NotContains(t, rec.Text(), "\t")
}

func TestClassifyOverride(t *testing.T) {
	e := newEngine(t)
	id := Identity{ImageName: "registry.k8s.io/kube-apiserver:v1.30.1"}

	rec := e.Classify(nil, Request{Identity: id, Line: `{"level":"warn","msg":"slow"}`, Override: "json"})
	assert.Equal(t, "json", rec.Parser)
	assert.Equal(t, "slow", rec.Message.String())
	assert.Equal(t, severity.Warning, rec.Severity)
}

func TestClassifyUnknownOverride(t *testing.T) {
	e := newEngine(t)
	rec := e.Classify(nil, Request{Line: "raw line", Override: "nope"})

	assert.Equal(t, "raw line", rec.Message.String())
	assert.Equal(t, severity.Error, rec.Severity)
	assert.Empty(t, rec.Parser)
	require.Len(t, rec.Remnants, 1)
	assert.Contains(t, rec.Remnants[0].Message.String(), "unknown parser")
}

type panicScanner struct{}

func (panicScanner) Scan(string, bool, *extract.Formatting) rules.ScanResult { panic("boom") }

func TestClassifyRecoversPanics(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	e := NewEngine(nil, WithLogger(zap.New(core)))

	var state ScanState
	state.open(panicScanner{}, "test", severity.Info, "")
	rec := e.Classify(&state, Request{Line: "line\twith tab", LineNumber: 7})

	assert.Equal(t, severity.Error, rec.Severity)
	assert.Equal(t, "line    with tab", rec.Message.String())
	assert.Equal(t, "internal error: boom", rec.Remnants[0].Message.String())
	assert.Equal(t, 7, rec.LineNumber)
	assert.False(t, state.Active())

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, int64(7), entry.ContextMap()["line"])
}

func TestClassifyInvalidUTF8(t *testing.T) {
	e := newEngine(t)
	rec := classify(e, nil, Identity{}, "bad \xff byte")
	assert.Equal(t, "bad � byte", rec.Message.String())
}

func TestClassifyFormatting(t *testing.T) {
	f := extract.DefaultFormatting()
	f.ExtractMessages = false
	e := newEngine(t, WithFormatting(f))

	rec := e.Classify(nil, Request{Line: `{"level":"error","msg":"x"}`, Override: "json"})
	assert.Equal(t, severity.Error, rec.Severity)
	assert.Equal(t, `{"level":"error","msg":"x"}`, rec.Message.String())
	assert.False(t, e.Formatting().ExtractMessages)
}

func TestRecordText(t *testing.T) {
	rec := Record{
		Message:  extract.Plain("head"),
		Remnants: []extract.Remnant{{Message: extract.Plain("a")}, {Message: extract.Plain("b")}},
	}
	assert.Equal(t, "head\na\nb", rec.Text())
	assert.Equal(t, "a", Record{Remnants: rec.Remnants[:1]}.Text())
}
