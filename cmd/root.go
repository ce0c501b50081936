// Package cmd implements the command-line interface for lognorm.
// It uses the Cobra library to handle commands and flags, and viper to merge
// them with the configuration file and the environment.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Alain-L/lognorm/config"
)

// options holds the flags that are not settings: they describe one run and
// have no place in a configuration file.
type options struct {
	cfgFile string

	// Identity flags
	podName       string
	containerName string
	imageName     string
	containerType string

	// Parser override (manual re-parse)
	override string

	// Time filtering flags
	beginTime  string
	endTime    string
	windowFlag string
	lastFlag   string

	// Record filtering flags
	facilities []string
	parsers    []string
	grep       []string
	exclude    []string

	// Output flags
	follow        bool
	showSource    bool
	summary       bool
	summaryFormat string
}

// app is the state shared by the commands of one invocation.
type app struct {
	opts     options
	v        *viper.Viper
	settings config.Settings
	log      *zap.Logger
}

// newRootCmd builds the command tree. Every call returns an independent
// tree, so tests can run commands side by side.
func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper(), log: zap.NewNop()}

	rootCmd := &cobra.Command{
		Use:   "lognorm [files, dirs or globs]",
		Short: "Kubernetes container log normalizer",
		Long: `lognorm classifies container log lines: it picks a parser from the pod,
container and image names, strips timestamps, maps every severity convention
onto one scale, extracts a facility and a readable message, and folds
tracebacks and pretty-printed payloads into continuation lines.

Arguments are files, directories (scanned recursively) or glob patterns
with ** support. Files may be gzip, zstd, lz4 or snappy compressed, or tar
and 7z archives. Without arguments, or with "-", standard input is read.

Kubelet paths such as /var/log/pods/<ns>_<pod>_<uid>/<container>/0.log
provide the pod and container names; flags take precedence.`,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return a.initConfig(cmd) },
		RunE:              a.executeParsing,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.opts.cfgFile, "config", "", "Config file (default is $HOME/.lognorm.yaml)")
	pf.String("parsers", "", "YAML file of custom parser definitions")
	pf.BoolP("verbose", "v", false, "Log at debug level")

	f := rootCmd.Flags()
	// Identity flags
	f.StringVar(&a.opts.podName, "pod", "", "Pod name used to select a parser")
	f.StringVar(&a.opts.containerName, "container", "", "Container name used to select a parser")
	f.StringVar(&a.opts.imageName, "image", "", "Image name used to select a parser (e.g. registry.k8s.io/etcd:3.5.12-0)")
	f.StringVar(&a.opts.containerType, "container-type", "container", "Container type: container or init")
	f.StringVarP(&a.opts.override, "parser", "p", "", "Use this parser for every line instead of selecting one")

	// Classification settings, also read from the config file
	f.Bool("fold", false, "Append structured residue to the message instead of continuation lines")
	f.Int("max-block-lines", 1000, "Longest multi-line block followed before giving up")
	f.Int("workers", 0, "Parallel file workers (0 picks a value from the CPU count)")

	// Time filter flags
	f.StringVarP(&a.opts.beginTime, "begin", "b", "", "Keep records after this datetime (format: YYYY-MM-DD HH:MM:SS or RFC 3339)")
	f.StringVarP(&a.opts.endTime, "end", "e", "", "Keep records before this datetime")
	f.StringVarP(&a.opts.windowFlag, "window", "W", "", "Time window duration (e.g. 30m, 2h). Adjusts --begin or --end accordingly")
	f.StringVarP(&a.opts.lastFlag, "last", "L", "", "Keep the last N duration from now (e.g. 1h, 30m)")

	// Record filter flags
	f.String("min-severity", "", "Keep records at least this severe (e.g. warning)")
	f.StringSliceVar(&a.opts.facilities, "facility", nil, "Keep records with this facility. Can be specified multiple times")
	f.StringSliceVar(&a.opts.parsers, "only-parser", nil, "Keep records produced by this parser. Can be specified multiple times")
	f.StringSliceVarP(&a.opts.grep, "grep", "g", nil, "Keep records containing this text. Can be specified multiple times")
	f.StringSliceVarP(&a.opts.exclude, "exclude", "x", nil, "Drop records containing this text")

	// Output flags
	f.BoolP("json", "J", false, "Write records as newline delimited JSON")
	f.String("color", "auto", "Colorize text output: auto, always or never")
	f.BoolVar(&a.opts.showSource, "source", false, "Prefix records with their file and line number")
	f.BoolVarP(&a.opts.follow, "follow", "f", false, "Keep reading files as they grow")
	f.BoolVar(&a.opts.summary, "summary", false, "Print a summary of the run instead of the records")
	f.StringVar(&a.opts.summaryFormat, "summary-format", "", "Summary format: text, json or markdown (default follows --json)")
	f.String("metrics-file", "", "Write run metrics to this file in the Prometheus text format")

	for key, flag := range map[string]string{
		"parsers":         "parsers",
		"verbose":         "verbose",
		"fold":            "fold",
		"max_block_lines": "max-block-lines",
		"workers":         "workers",
		"min_severity":    "min-severity",
		"json":            "json",
		"color":           "color",
		"metrics_file":    "metrics-file",
	} {
		fl := pf.Lookup(flag)
		if fl == nil {
			fl = f.Lookup(flag)
		}
		// Both lookups are on flags declared above.
		_ = a.v.BindPFlag(key, fl)
	}

	rootCmd.AddCommand(newListParsersCmd(a), newListRulesCmd())
	return rootCmd
}

// initConfig merges the config file, the environment and the flags, then
// builds the logger.
func (a *app) initConfig(cmd *cobra.Command) error {
	s, err := config.Load(a.v, a.opts.cfgFile)
	if err != nil {
		return err
	}
	a.settings = s

	a.log = newLogger(s.Verbose, cmd.ErrOrStderr())
	if used := a.v.ConfigFileUsed(); used != "" {
		a.log.Debug("configuration loaded", zap.String("file", used))
	}
	return nil
}

// newLogger logs warnings and errors to w, or everything in verbose mode.
func newLogger(verbose bool, w io.Writer) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	level := zap.WarnLevel
	if verbose {
		encCfg = zap.NewDevelopmentEncoderConfig()
		level = zap.DebugLevel
	}
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core)
}

// Execute runs the root command.
// This is called by main.go to start the CLI application.
func Execute(version, commit, date string) {
	rootCmd := newRootCmd()
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
