package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alain-L/lognorm/parser"
	"github.com/Alain-L/lognorm/severity"
)

func TestLoadParsers(t *testing.T) {
	t.Setenv("LOGNORM_TEST_PARSER", "team_kv")

	defs, err := LoadParsers(filepath.Join("testdata", "parsers.yaml"))
	require.NoError(t, err)
	require.Len(t, defs, 2)

	billing := defs[0]
	assert.Equal(t, "billing", billing.Name)
	assert.True(t, billing.ShowInSelector)
	assert.Equal(t, []parser.MatchKey{
		{ImageName: "/acme/billing"},
		{PodName: "billing-", ContainerType: "container"},
	}, billing.MatchKeys)

	require.Len(t, billing.ParserRules, 3)
	assert.Equal(t, "strip_timestamps", billing.ParserRules[0].Name)
	assert.Nil(t, billing.ParserRules[0].Options)
	assert.Equal(t, "json", billing.ParserRules[1].Name)
	assert.Equal(t, []any{"text"}, billing.ParserRules[1].Options["message_keys"])
	assert.Equal(t, "regex", billing.ParserRules[2].Name)
	assert.Contains(t, billing.ParserRules[2].Options["pattern"], "(?P<severity>")

	assert.Equal(t, "team_kv", defs[1].Name)
	assert.False(t, defs[1].ShowInSelector)
}

func TestLoadedParsersCompile(t *testing.T) {
	t.Setenv("LOGNORM_TEST_PARSER", "team_kv")
	defs, err := LoadParsers(filepath.Join("testdata", "parsers.yaml"))
	require.NoError(t, err)

	reg, err := parser.Build(defs)
	require.NoError(t, err)

	e := parser.NewEngine(reg)
	rec := e.Classify(nil, parser.Request{
		Identity: parser.Identity{ImageName: "ghcr.io/acme/billing:1.2"},
		Line:     `{"level":"warn","text":"card declined"}`,
	})
	assert.Equal(t, "billing", rec.Parser)
	assert.Equal(t, "card declined", rec.Message.String())
	assert.Equal(t, severity.Warning, rec.Severity)

	rec = e.Classify(nil, parser.Request{
		Identity: parser.Identity{ImageName: "ghcr.io/acme/billing:1.2"},
		Line:     "ERROR ledger out of sync",
	})
	assert.Equal(t, severity.Error, rec.Severity)
	assert.Equal(t, "ledger out of sync", rec.Message.String())
}

func TestParseParsersErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown field", "parsers:\n  - name: x\n    rules: [json]\n"},
		{"rule sequence", "parsers:\n  - name: x\n    parser_rules:\n      - [json]\n"},
		{"two keys", "parsers:\n  - name: x\n    parser_rules:\n      - json: {}\n        glog: {}\n"},
		{"not yaml", "parsers: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseParsers([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestParseParsersEmpty(t *testing.T) {
	defs, err := ParseParsers(nil)
	require.NoError(t, err)
	assert.Empty(t, defs)
}

func TestLoadParsersMissingFile(t *testing.T) {
	_, err := LoadParsers(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadSettingsDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	s, err := Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, "auto", s.Color)
	assert.Equal(t, 1000, s.MaxBlockLines)
	assert.False(t, s.JSON)
	assert.True(t, s.Formatting.ExtractMessages)
	assert.True(t, s.Formatting.CollectorBullets)
	assert.False(t, s.Formatting.KeepTimestamps)
}

func TestLoadSettingsFile(t *testing.T) {
	s, err := Load(NewViper(), filepath.Join("testdata", "settings.yaml"))
	require.NoError(t, err)

	assert.True(t, s.JSON)
	assert.Equal(t, "never", s.Color)
	assert.Equal(t, 50, s.MaxBlockLines)
	assert.Equal(t, "/etc/lognorm/parsers.yaml", s.Parsers)

	f := s.Formatting.Options()
	assert.True(t, f.KeepTimestamps)
	assert.False(t, f.CollectorBullets)
	assert.True(t, f.ExtractMessages)
}

func TestLoadSettingsEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LOGNORM_FOLD", "true")
	t.Setenv("LOGNORM_FORMATTING_EXTRACT_MESSAGES", "false")

	s, err := Load(NewViper(), "")
	require.NoError(t, err)
	assert.True(t, s.Fold)
	assert.False(t, s.Formatting.ExtractMessages)
}

func TestLoadSettingsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"color", "color: sometimes\n"},
		{"block lines", "max_block_lines: 0\n"},
		{"workers", "workers: -2\n"},
		{"severity", "min_severity: loud\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cfg.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))
			_, err := Load(NewViper(), path)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := Load(NewViper(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
