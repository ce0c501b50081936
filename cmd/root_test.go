package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alain-L/lognorm/config"
	"github.com/Alain-L/lognorm/output"
	"github.com/Alain-L/lognorm/parser"
	"github.com/Alain-L/lognorm/severity"
)

const (
	schedulerLog   = "testdata/pods/kube-system_kube-scheduler-cp1_9a0b/kube-scheduler/0.log"
	schedulerImage = "registry.k8s.io/kube-scheduler:v1.30.1"
)

// run executes the command tree in-process with the given stdin.
func run(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	cmd := newRootCmd()
	var outBuf, errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

func decodeRecords(t *testing.T, s string) []output.RecordJSON {
	t.Helper()
	var recs []output.RecordJSON
	dec := json.NewDecoder(strings.NewReader(s))
	for {
		var r output.RecordJSON
		err := dec.Decode(&r)
		if errors.Is(err, io.EOF) {
			return recs
		}
		require.NoError(t, err)
		recs = append(recs, r)
	}
}

func TestRunJSON(t *testing.T) {
	stdout, stderr, err := run(t, "", schedulerLog, "--image", schedulerImage, "--json")
	require.NoError(t, err, stderr)

	recs := decodeRecords(t, stdout)
	require.Len(t, recs, 3)

	assert.Equal(t, "kubernetes", recs[0].Parser)
	assert.Equal(t, "server.go:154", recs[0].Facility)
	assert.Equal(t, "Starting Kubernetes Scheduler", recs[0].Message)
	assert.Equal(t, severity.Info, recs[0].Severity)
	assert.Equal(t, "2024-05-14T09:01:55.108028123Z", recs[0].Timestamp)
	assert.Equal(t, schedulerLog, recs[0].Source)
	assert.Equal(t, 1, recs[0].Line)

	assert.Equal(t, severity.Warning, recs[1].Severity)
	assert.Equal(t, severity.Error, recs[2].Severity)
	assert.Equal(t, 3, recs[2].Line)
}

func TestRunText(t *testing.T) {
	stdout, stderr, err := run(t, "", schedulerLog, "--image", schedulerImage, "--color", "never")
	require.NoError(t, err, stderr)

	lines := strings.Split(strings.TrimSuffix(stdout, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "2024-05-14T09:01:55.108Z INFO [server.go:154] Starting Kubernetes Scheduler", lines[0])
	assert.Equal(t, "2024-05-14T09:02:10.000Z ERR  [reflector.go:147] Failed to watch pods: connection refused", lines[2])
}

func TestRunShowSource(t *testing.T) {
	stdout, _, err := run(t, "", schedulerLog, "--image", schedulerImage, "--color", "never", "--source")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, schedulerLog+":1 2024-05-14T09:01:55.108Z INFO "), stdout)
}

func TestRunStdin(t *testing.T) {
	input := `{"level":"warn","msg":"slow"}` + "\n" + `{"level":"error","msg":"down"}` + "\n"

	for _, args := range [][]string{
		{"--parser", "json", "--json"},
		{"-", "--parser", "json", "--json"},
	} {
		stdout, stderr, err := run(t, input, args...)
		require.NoError(t, err, stderr)

		recs := decodeRecords(t, stdout)
		require.Len(t, recs, 2)
		assert.Equal(t, "slow", recs[0].Message)
		assert.Equal(t, severity.Warning, recs[0].Severity)
		assert.Equal(t, parser.StdinName, recs[0].Source)
		assert.Equal(t, "json", recs[1].Parser)
	}
}

func TestRunEmptyStdin(t *testing.T) {
	stdout, _, err := run(t, "", "--json")
	require.NoError(t, err)
	assert.Empty(t, stdout)
}

func TestRunFilters(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"min severity", []string{"--min-severity", "warning"}, []string{"authentication.go:368", "reflector.go:147"}},
		{"grep", []string{"--grep", "refused"}, []string{"reflector.go:147"}},
		{"exclude", []string{"-x", "Scheduler", "-x", "refused"}, []string{"authentication.go:368"}},
		{"facility", []string{"--facility", "server.go:154"}, []string{"server.go:154"}},
		{"only parser", []string{"--only-parser", parser.FallbackName}, nil},
		{"begin", []string{"--begin", "2024-05-14 09:01:56"}, []string{"authentication.go:368", "reflector.go:147"}},
		{"end rfc3339", []string{"--end", "2024-05-14T09:01:56Z"}, []string{"server.go:154", "authentication.go:368"}},
		{"begin and window", []string{"-b", "2024-05-14 09:00:00", "-W", "1m56s"}, []string{"server.go:154", "authentication.go:368"}},
		{"last", []string{"--last", "1h"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{schedulerLog, "--image", schedulerImage, "--json"}, tt.args...)
			stdout, stderr, err := run(t, "", args...)
			require.NoError(t, err, stderr)

			var got []string
			for _, r := range decodeRecords(t, stdout) {
				got = append(got, r.Facility)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunCustomParsers(t *testing.T) {
	stdout, stderr, err := run(t, "", schedulerLog, "--parsers", "testdata/parsers.yaml", "--json")
	require.NoError(t, err, stderr)

	recs := decodeRecords(t, stdout)
	require.Len(t, recs, 3)
	for _, r := range recs {
		assert.Equal(t, "scheduler", r.Parser)
	}
	assert.Equal(t, "reflector.go:147", recs[2].Facility)
}

func TestRunFallbackParser(t *testing.T) {
	stdout, _, err := run(t, "", schedulerLog, "--json")
	require.NoError(t, err)

	recs := decodeRecords(t, stdout)
	require.Len(t, recs, 3)
	assert.Equal(t, parser.FallbackName, recs[0].Parser)
}

func TestRunSummaryJSON(t *testing.T) {
	stdout, stderr, err := run(t, "", schedulerLog, "--image", schedulerImage, "--summary", "--summary-format", "json")
	require.NoError(t, err, stderr)

	var s output.SummaryJSON
	require.NoError(t, json.Unmarshal([]byte(stdout), &s))
	assert.Equal(t, 3, s.Records)
	assert.Equal(t, map[string]int{"kubernetes": 3}, s.Parsers)
	assert.Equal(t, map[string]int{schedulerLog: 3}, s.Sources)
	assert.Equal(t, "2024-05-14T09:01:55.108028123Z", s.StartDate)
	require.Len(t, s.TopEvents, 2)
	assert.Equal(t, "Error looking up in-cluster authentication configuration", s.TopEvents[0].Signature)
	assert.Equal(t, severity.Warning, s.TopEvents[0].Severity)
}

func TestRunSummaryText(t *testing.T) {
	stdout, stderr, err := run(t, "", schedulerLog, "--image", schedulerImage, "--summary", "--color", "never")
	require.NoError(t, err, stderr)

	assert.True(t, strings.HasPrefix(stdout, "lognorm: 3 records processed in "), stdout)
	assert.Contains(t, stdout, "SEVERITIES")
	assert.Contains(t, stdout, "kubernetes")
	assert.NotContains(t, stdout, "Starting Kubernetes Scheduler\n")
}

func TestRunSummaryMarkdown(t *testing.T) {
	stdout, _, err := run(t, "", schedulerLog, "--summary", "--summary-format", "markdown")
	require.NoError(t, err)
	assert.Contains(t, stdout, "**3**")
}

func TestRunMetricsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lognorm.prom")
	_, stderr, err := run(t, "", schedulerLog, "--image", schedulerImage, "--json", "--metrics-file", path)
	require.NoError(t, err, stderr)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `lognorm_records_total{parser="kubernetes",severity="error"} 1`)
}

func TestRunConfigFile(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "lognorm.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("json: true\nmin_severity: error\n"), 0o644))

	stdout, stderr, err := run(t, "", schedulerLog, "--image", schedulerImage, "--config", cfg)
	require.NoError(t, err, stderr)
	recs := decodeRecords(t, stdout)
	require.Len(t, recs, 1)
	assert.Equal(t, severity.Error, recs[0].Severity)

	// Flags win over the file.
	stdout, _, err = run(t, "", schedulerLog, "--image", schedulerImage, "--config", cfg, "--min-severity", "info")
	require.NoError(t, err)
	assert.Len(t, decodeRecords(t, stdout), 3)
}

func TestRunMissingFiles(t *testing.T) {
	stdout, stderr, err := run(t, "", "testdata/nonexistent_file_xyz.log")
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "no files match pattern")
	assert.Contains(t, stderr, "no log files found")
}

func TestRunInvalid(t *testing.T) {
	gz := filepath.Join(t.TempDir(), "0.log.gz")
	require.NoError(t, os.WriteFile(gz, []byte("x"), 0o644))

	tests := []struct {
		name string
		args []string
		want error
		msg  string
	}{
		{"begin end window", []string{schedulerLog, "-b", "2024-01-01 00:00:00", "-e", "2024-12-31 23:59:59", "-W", "1h"}, errTimeFilter, "cannot all be used together"},
		{"last with begin", []string{schedulerLog, "--last", "1h", "--begin", "2024-01-01 00:00:00"}, errTimeFilter, "--last cannot be combined"},
		{"bad begin", []string{schedulerLog, "--begin", "yesterday"}, errTimeFilter, "--begin"},
		{"end before begin", []string{schedulerLog, "-b", "2024-01-02 00:00:00", "-e", "2024-01-01 00:00:00"}, errTimeFilter, "before"},
		{"negative last", []string{schedulerLog, "--last", "-1h"}, errTimeFilter, "positive"},
		{"unknown parser", []string{schedulerLog, "--parser", "nope"}, parser.ErrUnknownParser, "nope"},
		{"bad color", []string{schedulerLog, "--color", "purple"}, config.ErrInvalidConfig, "purple"},
		{"bad severity", []string{schedulerLog, "--min-severity", "loud"}, config.ErrInvalidConfig, "loud"},
		{"bad summary format", []string{schedulerLog, "--summary", "--summary-format", "xml"}, nil, "unknown summary format"},
		{"missing parsers file", []string{schedulerLog, "--parsers", "testdata/missing.yaml"}, os.ErrNotExist, "missing.yaml"},
		{"follow compressed", []string{gz, "--follow"}, nil, "only plain files"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, err := run(t, "", tt.args...)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
			assert.Contains(t, err.Error(), tt.msg)
			assert.Contains(t, stderr, "Error:")
		})
	}
}

func TestListParsers(t *testing.T) {
	stdout, _, err := run(t, "", "list-parsers")
	require.NoError(t, err)
	assert.Contains(t, stdout, "NAME")
	assert.Contains(t, stdout, "kubernetes")
	assert.Contains(t, stdout, parser.FallbackName)
	assert.NotContains(t, stdout, "scheduler")

	stdout, _, err = run(t, "", "list-parsers", "--parsers", "testdata/parsers.yaml")
	require.NoError(t, err)
	assert.Contains(t, stdout, "scheduler")
	assert.Contains(t, stdout, "strip_timestamps,glog")
}

func TestListRules(t *testing.T) {
	stdout, _, err := run(t, "", "list-rules")
	require.NoError(t, err)
	assert.Contains(t, strings.Split(stdout, "\n"), "glog")
}

func TestIdentityFor(t *testing.T) {
	o := options{containerType: "container"}
	assert.Equal(t, parser.Identity{PodName: "kube-scheduler-cp1", ContainerName: "kube-scheduler", ContainerType: "container"},
		o.identityFor(schedulerLog))

	o = options{podName: "override", imageName: schedulerImage, containerType: "init"}
	assert.Equal(t, parser.Identity{PodName: "override", ContainerName: "kube-scheduler", ImageName: schedulerImage, ContainerType: "init"},
		o.identityFor(schedulerLog))

	o = options{containerType: "container"}
	assert.Equal(t, parser.Identity{ContainerType: "container"}, o.identityFor("app.log"))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512B", formatBytes(512))
	assert.Equal(t, "1.5kB", formatBytes(1536))
	assert.Equal(t, "3.0MB", formatBytes(3*1024*1024))
}
