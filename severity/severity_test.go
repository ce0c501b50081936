package severity

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameRoundTrip(t *testing.T) {
	for _, name := range names {
		for _, variant := range []string{name, strings.ToUpper(name), strings.ToUpper(name[:1]) + name[1:]} {
			got := Name(FromLevelName(variant, Unknown))
			assert.Equal(t, name, got, "round trip of %q", variant)
		}
	}
	assert.Equal(t, "unknown", Name(Unknown))
	assert.Equal(t, Info, FromLevelName("bogus", Info))
}

func TestMergeMonotonic(t *testing.T) {
	for a := Emergency; a <= Debug; a++ {
		for b := Emergency; b <= Debug; b++ {
			got := Merge(a, b)
			want := a
			if b < a {
				want = b
			}
			require.Equal(t, want, got, "Merge(%s, %s)", a, b)
		}
	}

	assert.Equal(t, Error, Merge(Unknown, Error))
	assert.Equal(t, Warning, Merge(Warning, Unknown))
	assert.Equal(t, Info, Merge(Info, DiffPlus))
	assert.Equal(t, Unknown, Merge(Unknown, Unknown))
}

func TestConverters(t *testing.T) {
	tests := []struct {
		name  string
		conv  func(string, Severity) Severity
		token string
		want  Severity
	}{
		{"letter E", FromLetter, "E", Error},
		{"letter lower w", FromLetter, "w", Warning},
		{"letter F", FromLetter, "F", Critical},
		{"letter too long", FromLetter, "EE", Info},
		{"three WRN", From3Letter, "WRN", Warning},
		{"three dbg", From3Letter, "dbg", Debug},
		{"four ERRO", From4Letter, "ERRO", Error},
		{"four DEBU", From4Letter, "DEBU", Debug},
		{"four unknown", From4Letter, "ABCD", Info},
		{"word Warning", FromWord, "Warning", Warning},
		{"word fatal", FromWord, "FATAL", Critical},
		{"word trace", FromWord, "trace", Debug},
		{"colon error", FromColonPrefixed, "error:", Error},
		{"colon missing", FromColonPrefixed, "error", Info},
		{"bracket word", FromBracketed, "[ERROR]", Error},
		{"bracket four", FromBracketed, "[WARN]", Warning},
		{"bracket letter", FromBracketed, "[ E ]", Error},
		{"bracket none", FromBracketed, "ERROR", Info},
		{"bracket garbage", FromBracketed, "[foo]", Info},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.conv(tt.token, Info))
		})
	}
}

func TestFromHTTPStatus(t *testing.T) {
	assert.Equal(t, Notice, FromHTTPStatus(101))
	assert.Equal(t, Notice, FromHTTPStatus(200))
	assert.Equal(t, Warning, FromHTTPStatus(304))
	assert.Equal(t, Error, FromHTTPStatus(404))
	assert.Equal(t, Error, FromHTTPStatus(503))
}

func TestFromSyslogPriority(t *testing.T) {
	assert.Equal(t, Error, FromSyslogPriority(11))
	assert.Equal(t, Debug, FromSyslogPriority(191))
	assert.Equal(t, Unknown, FromSyslogPriority(-1))
}

func TestParse(t *testing.T) {
	s, err := Parse("Warn")
	require.NoError(t, err)
	assert.Equal(t, Warning, s)

	_, err = Parse("loud")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownSeverity))
}

func TestTextMarshaling(t *testing.T) {
	var v struct {
		Level Severity `json:"level"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"level":"critical"}`), &v))
	assert.Equal(t, Critical, v.Level)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"level":"critical"}`, string(out))
}
