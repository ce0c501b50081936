package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/Alain-L/lognorm/analysis"
	"github.com/Alain-L/lognorm/config"
	"github.com/Alain-L/lognorm/output"
	"github.com/Alain-L/lognorm/parser"
	"github.com/Alain-L/lognorm/severity"
)

// recordBufferSize is the capacity of the channels between the pipeline
// stages.
const recordBufferSize = 16384

// executeParsing is the main execution function for the root command.
// It orchestrates the log processing pipeline:
//  1. Build the engine and the filters from the settings
//  2. Collect input files
//  3. Classify files in parallel, or follow them as they grow
//  4. Filter records
//  5. Render records, then the summary and the metrics file
func (a *app) executeParsing(cmd *cobra.Command, args []string) error {
	startTime := time.Now()

	if err := a.validateOptions(); err != nil {
		return err
	}
	eng, err := a.engine()
	if err != nil {
		return err
	}
	filters, err := a.buildLogFilters(startTime)
	if err != nil {
		return err
	}

	stdin := cmd.InOrStdin()
	var files []string
	switch {
	case len(args) == 0:
		if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return cmd.Help()
		}
		files = []string{parser.StdinName}
	case len(args) == 1 && args[0] == parser.StdinName:
		files = []string{parser.StdinName}
	default:
		files = collectFiles(args, a.log)
	}
	if len(files) == 0 {
		a.log.Warn("no log files found")
		return nil
	}
	if a.opts.follow {
		for _, f := range files {
			if f != parser.StdinName && (parser.IsArchive(f) || parser.IsCompressed(f)) {
				return fmt.Errorf("cannot follow %s: only plain files can be followed", f)
			}
		}
	}
	totalFileSize := calculateTotalFileSize(files)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	raw := make(chan parser.Record, recordBufferSize)
	filtered := make(chan parser.Record, recordBufferSize)

	go func() {
		defer close(raw)
		if a.opts.follow {
			a.followFiles(ctx, eng, files, stdin, raw)
			return
		}
		a.parseFilesAsync(ctx, eng, files, stdin, raw)
	}()
	go parser.FilterStream(raw, filtered, filters)

	w := cmd.OutOrStdout()
	metrics, err := a.processAndOutput(w, filtered, stop)
	if err != nil {
		return err
	}

	elapsed := time.Since(startTime)
	a.log.Info("processing complete",
		zap.Int("files", len(files)),
		zap.Int("records", metrics.Global.Count),
		zap.Duration("elapsed", elapsed),
		zap.String("size", formatBytes(totalFileSize)))

	if a.opts.summary {
		if err := a.writeSummary(w, metrics, elapsed, totalFileSize); err != nil {
			return err
		}
	}
	if path := a.settings.MetricsFile; path != "" {
		if err := analysis.WriteMetrics(path, metrics); err != nil {
			return err
		}
		a.log.Debug("metrics written", zap.String("file", path))
	}
	return nil
}

// validateOptions rejects flag combinations that would fail late.
func (a *app) validateOptions() error {
	switch a.opts.summaryFormat {
	case "", "text", "json", "markdown":
	default:
		return fmt.Errorf("unknown summary format %q (want text, json or markdown)", a.opts.summaryFormat)
	}
	return nil
}

// registry returns the built-in parsers, preceded by the custom ones when
// a parser file is configured.
func (a *app) registry() (*parser.Registry, error) {
	if a.settings.Parsers == "" {
		return parser.Default(), nil
	}
	defs, err := config.LoadParsers(a.settings.Parsers)
	if err != nil {
		return nil, err
	}
	reg, err := parser.Build(defs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.settings.Parsers, err)
	}
	a.log.Debug("custom parsers loaded", zap.String("file", a.settings.Parsers), zap.Int("count", len(defs)))
	return reg, nil
}

// engine builds the classification engine from the settings.
func (a *app) engine() (*parser.Engine, error) {
	reg, err := a.registry()
	if err != nil {
		return nil, err
	}
	if a.opts.override != "" {
		if _, err := reg.Lookup(a.opts.override); err != nil {
			return nil, err
		}
	}
	return parser.NewEngine(reg,
		parser.WithLogger(a.log.Named("engine")),
		parser.WithFormatting(a.settings.Formatting.Options()),
		parser.WithMaxBlockLines(a.settings.MaxBlockLines),
	), nil
}

// buildLogFilters creates the record filters from the flags and settings.
func (a *app) buildLogFilters(now time.Time) (parser.LogFilters, error) {
	f := parser.NoFilters()

	begin, end, err := a.opts.timeRange(now, func(msg string) { a.log.Warn(msg) })
	if err != nil {
		return f, err
	}
	f.BeginT, f.EndT = begin, end

	if name := a.settings.MinSeverity; name != "" {
		sev, err := severity.Parse(name)
		if err != nil {
			return f, err
		}
		f.MinSeverity = sev
	}

	f.Facilities = a.opts.facilities
	f.Parsers = a.opts.parsers
	f.GrepExpr = a.opts.grep
	f.ExcludeExpr = a.opts.exclude
	return f, nil
}

// stream describes the log stream read from name. Identity flags win over
// what the kubelet path tells.
func (a *app) stream(name string) parser.Stream {
	return parser.Stream{
		Identity: a.opts.identityFor(name),
		Name:     name,
		Fold:     a.settings.Fold,
		Override: a.opts.override,
	}
}

func (o *options) identityFor(name string) parser.Identity {
	id := parser.Identity{
		PodName:       o.podName,
		ContainerName: o.containerName,
		ImageName:     o.imageName,
		ContainerType: o.containerType,
	}
	if fromPath, ok := parser.IdentityFromPath(name); ok {
		if id.PodName == "" {
			id.PodName = fromPath.PodName
		}
		if id.ContainerName == "" {
			id.ContainerName = fromPath.ContainerName
		}
		if id.ContainerType == "" {
			id.ContainerType = fromPath.ContainerType
		}
	}
	return id
}

// parseFilesAsync classifies files in parallel and sends records to out.
// Records of one stream stay in order; streams are interleaved.
func (a *app) parseFilesAsync(ctx context.Context, eng *parser.Engine, files []string, stdin io.Reader, out chan<- parser.Record) {
	numWorkers := determineWorkerCount(len(files), a.settings.Workers)
	a.log.Debug("parsing files", zap.Int("files", len(files)), zap.Int("workers", numWorkers))

	if numWorkers == 1 {
		for _, file := range files {
			a.parseFile(ctx, eng, file, stdin, out)
		}
		return
	}

	fileChan := make(chan string, len(files))
	for _, file := range files {
		fileChan <- file
	}
	close(fileChan)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range fileChan {
				a.parseFile(ctx, eng, file, stdin, out)
			}
		}()
	}
	wg.Wait()
}

// parseFile classifies every stream of one file. Failures are logged and
// do not stop the run.
func (a *app) parseFile(ctx context.Context, eng *parser.Engine, file string, stdin io.Reader, out chan<- parser.Record) {
	fn := func(name string, r io.Reader) error {
		return eng.Stream(ctx, a.stream(name), r, out)
	}

	var err error
	if file == parser.StdinName {
		err = parser.Stdin(stdin, fn)
	} else {
		err = parser.Open(file, fn)
	}
	a.reportFileError(file, err)
}

func (a *app) reportFileError(file string, err error) {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
	case errors.Is(err, parser.ErrBinaryFile):
		a.log.Warn("skipping binary content", zap.String("file", file), zap.Error(err))
	default:
		a.log.Error("failed to parse file", zap.String("file", file), zap.Error(err))
	}
}

// followFiles follows every file until ctx is done. Standard input is read
// to its end.
func (a *app) followFiles(ctx context.Context, eng *parser.Engine, files []string, stdin io.Reader, out chan<- parser.Record) {
	var wg sync.WaitGroup
	for _, file := range files {
		wg.Add(1)
		go func(file string) {
			defer wg.Done()
			if file == parser.StdinName {
				a.parseFile(ctx, eng, file, stdin, out)
				return
			}
			a.reportFileError(file, eng.Follow(ctx, a.stream(file), file, out))
		}(file)
	}
	wg.Wait()
}

// processAndOutput renders the filtered records while analyzing them. A
// render failure calls cancel so that the producers stop, and the
// remaining records are drained.
func (a *app) processAndOutput(w io.Writer, in <-chan parser.Record, cancel func()) (analysis.AggregatedMetrics, error) {
	if a.opts.summary {
		return analysis.Collect(in, nil), nil
	}

	r := output.New(w, output.Options{
		JSON:       a.settings.JSON,
		Color:      output.ColorMode(a.settings.Color),
		ShowSource: a.opts.showSource,
	})

	shown := make(chan parser.Record, recordBufferSize)
	done := make(chan analysis.AggregatedMetrics, 1)
	go func() { done <- analysis.Collect(in, shown) }()

	var renderErr error
	for rec := range shown {
		if renderErr != nil {
			continue
		}
		renderErr = r.Render(rec)
		// Flush whenever the pipeline is idle, so that followed files
		// show up as they grow.
		if renderErr == nil && len(shown) == 0 {
			renderErr = r.Flush()
		}
		if renderErr != nil {
			cancel()
		}
	}
	if renderErr == nil {
		renderErr = r.Flush()
	}
	metrics := <-done
	if renderErr != nil {
		return metrics, fmt.Errorf("failed to write records: %w", renderErr)
	}
	return metrics, nil
}

// writeSummary prints the run summary in the requested format, which
// follows --json unless set.
func (a *app) writeSummary(w io.Writer, m analysis.AggregatedMetrics, elapsed time.Duration, size int64) error {
	format := a.opts.summaryFormat
	if format == "" {
		format = "text"
		if a.settings.JSON {
			format = "json"
		}
	}

	switch format {
	case "json":
		return output.ExportJSON(w, m)
	case "markdown":
		return output.ExportMarkdown(w, m)
	}
	if _, err := fmt.Fprintf(w, "lognorm: %d records processed in %.2f s (%s)\n",
		m.Global.Count, elapsed.Seconds(), formatBytes(size)); err != nil {
		return err
	}
	return output.WriteSummary(w, m, output.ColorMode(a.settings.Color))
}

// formatBytes converts a byte count to a human-readable string (KB, MB, GB, etc).
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%dB", b)
	}

	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%cB", float64(b)/float64(div), "kMGTPE"[exp])
}
