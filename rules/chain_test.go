package rules

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alain-L/lognorm/extract"
	"github.com/Alain-L/lognorm/severity"
)

func formatting() *extract.Formatting {
	f := extract.DefaultFormatting()
	return &f
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name  string
		steps []Step
		want  error
	}{
		{"unknown rule", []Step{Bare("strip_timestamps"), Bare("nope")}, ErrUnknownRule},
		{"missing dialect", []Step{Bare("strip_timestamp")}, ErrMissingOption},
		{"unknown dialect", []Step{With("strip_timestamp", map[string]any{"dialect": "mayan"})}, ErrInvalidOption},
		{"unknown option", []Step{With("json", map[string]any{"mesage_keys": []any{"m"}})}, ErrInvalidOption},
		{"wrong type", []Step{With("json_block", map[string]any{"allow_empty_lines": "maybe"})}, ErrInvalidOption},
		{"options on bare rule", []Step{With("http", map[string]any{"x": 1})}, ErrInvalidOption},
		{"bad regex", []Step{With("regex", map[string]any{"pattern": "("})}, ErrInvalidOption},
		{"missing pattern", []Step{Bare("regex")}, ErrMissingOption},
		{"missing overrides", []Step{Bare("override_severity")}, ErrMissingOption},
		{"bad severity", []Step{With("override_severity", map[string]any{
			"overrides": []any{map[string]any{"match": "x", "severity": "loud"}},
		})}, ErrInvalidOption},
		{"missing yaml start", []Step{Bare("yaml_block")}, ErrMissingOption},
		{"facility without keys", []Step{With("key_value", map[string]any{
			"facilities": []any{map[string]any{"separators": []any{":"}}},
		})}, ErrMissingOption},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.steps)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestCompileBadSeverityKeepsCause(t *testing.T) {
	_, err := Compile([]Step{With("override_severity", map[string]any{
		"overrides": []any{map[string]any{"match": "x", "severity": "loud"}},
	})})
	assert.ErrorIs(t, err, severity.ErrUnknownSeverity)
}

func TestEveryRuleCompilesBare(t *testing.T) {
	needOptions := map[string]bool{
		"strip_timestamp": true, "regex": true, "override_severity": true, "yaml_block": true,
	}
	for _, name := range Names() {
		if needOptions[name] {
			continue
		}
		_, err := Compile([]Step{Bare(name)})
		assert.NoError(t, err, name)
	}
	assert.True(t, Known("json"))
	assert.False(t, Known("xml"))
}

func TestRunDefaultsToInfo(t *testing.T) {
	c := MustCompile(Bare("strip_timestamps"))
	st, sc := c.Run("2022-01-29T10:34:20Z hello", false, formatting())

	assert.Nil(t, sc)
	assert.Equal(t, "hello", st.Message.String())
	assert.Equal(t, severity.Info, st.Severity)
	assert.True(t, st.HasTimestamp)
	assert.True(t, st.Timestamp.Equal(time.Date(2022, 1, 29, 10, 34, 20, 0, time.UTC)))
}

func TestRunKeepsFirstTimestamp(t *testing.T) {
	c := MustCompile(
		With("strip_timestamp", map[string]any{"dialect": "iso8601"}),
		With("strip_timestamp", map[string]any{"dialect": "iso8601"}),
	)
	st, _ := c.Run("2022-01-29T10:34:20Z 2021-06-01 00:00:00 msg", false, formatting())
	assert.Equal(t, "msg", st.Message.String())
	assert.Equal(t, 2022, st.Timestamp.Year())
}

func TestRunKeyValueScenario(t *testing.T) {
	c := MustCompile(Bare("strip_timestamps"), Bare("key_value"))
	st, _ := c.Run(`level=error msg="disk full" path=/var`, false, formatting())

	assert.Equal(t, "disk full", st.Message.String())
	assert.Equal(t, severity.Error, st.Severity)
	require.Len(t, st.Remnants, 1)
	assert.Equal(t, "path=/var", st.Remnants[0].Message.String())
	assert.Equal(t, severity.Error, st.Remnants[0].Severity)
}

func TestRunFillsUnknownRemnantSeverity(t *testing.T) {
	c := MustCompile(Bare("key_value"))
	st, _ := c.Run(`msg=hello path=/var`, false, formatting())

	assert.Equal(t, severity.Info, st.Severity)
	require.Len(t, st.Remnants, 1)
	assert.Equal(t, severity.Info, st.Remnants[0].Severity)
}

func TestRunOrderMatters(t *testing.T) {
	line := "2022-01-29T10:34:20Z level=warn msg=hi"

	stripFirst := MustCompile(Bare("strip_timestamps"), Bare("key_value"))
	st, _ := stripFirst.Run(line, false, formatting())
	assert.Equal(t, "hi", st.Message.String())
	assert.Equal(t, severity.Warning, st.Severity)

	splitFirst := MustCompile(Bare("key_value"), Bare("strip_timestamps"))
	st, _ = splitFirst.Run(line, false, formatting())
	assert.Equal(t, "level=warn msg=hi", st.Message.String())
	assert.Equal(t, severity.Info, st.Severity)
}

func TestRunSkipsTextRulesOnStructuredMessage(t *testing.T) {
	c := MustCompile(Bare("http"), Bare("bracketed_severity"))
	st, _ := c.Run(`1.2.3.4 - - [29/Jan/2022:10:34:20 +0000] "GET /[ERROR] HTTP/1.1" 200 1`, false, formatting())
	assert.Equal(t, severity.Notice, st.Severity)
	assert.True(t, st.Message.Structured())
	assert.Equal(t, 2022, st.Timestamp.Year())
}

func TestRunOverride(t *testing.T) {
	c := MustCompile(Bare("glog"), With("override_severity", map[string]any{
		"overrides": []any{
			map[string]any{"match": "TLS handshake error", "severity": "notice"},
		},
	}))
	st, _ := c.Run("E0514 09:01:55.108028 1 server.go:3] http: TLS handshake error from 1.2.3.4", false, formatting())
	assert.Equal(t, severity.Notice, st.Severity)
}

func TestRunCustomFieldOptions(t *testing.T) {
	c := MustCompile(With("json", map[string]any{
		"message_keys":  "text",
		"facility_keys": []any{"svc"},
	}))
	st, _ := c.Run(`{"text":"ok","svc":"billing","logger":"x"}`, false, formatting())
	assert.Equal(t, "ok", st.Message.String())
	assert.Equal(t, "billing", st.Facility)
	require.Len(t, st.Remnants, 1)
	assert.Equal(t, "logger: x", st.Remnants[0].Message.String())
}

func TestRunStopsOnBlockStart(t *testing.T) {
	c := MustCompile(Bare("python_traceback"), Bare("colon_severity"))
	st, sc := c.Run("Traceback (most recent call last):", false, formatting())

	require.NotNil(t, sc)
	assert.IsType(t, &PythonTraceback{}, sc)
	assert.Equal(t, severity.Error, st.Severity)
	assert.Equal(t, "Traceback (most recent call last):", st.Message.String())
}

func TestStepsCopy(t *testing.T) {
	steps := []Step{Bare("glog")}
	c := MustCompile(steps...)
	steps[0].Name = "json"
	assert.Equal(t, "glog", c.Steps()[0].Name)
	assert.Equal(t, "glog", c.Steps()[0].String())
}
