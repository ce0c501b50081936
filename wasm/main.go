//go:build js && wasm

// Package main provides the WASM entry point for lognorm.
// It exposes the engine, the analysis and the JSON output to JavaScript.
package main

import (
	"encoding/json"
	"strconv"
	"syscall/js"
	"time"

	"github.com/Alain-L/lognorm/analysis"
	"github.com/Alain-L/lognorm/output"
	"github.com/Alain-L/lognorm/parser"
	"github.com/Alain-L/lognorm/severity"
)

const version = "0.1.0-wasm"

// JSOptions is the JSON structure for options from JavaScript.
type JSOptions struct {
	Pod           string   `json:"pod"`
	Container     string   `json:"container"`
	Image         string   `json:"image"`
	ContainerType string   `json:"container_type"`
	Parser        string   `json:"parser"` // manual re-parse
	Fold          bool     `json:"fold"`
	Begin         string   `json:"begin"` // ISO datetime string
	End           string   `json:"end"`
	MinSeverity   string   `json:"min_severity"`
	Grep          []string `json:"grep"`
}

// Meta describes one classification call.
type Meta struct {
	Version   string `json:"version"`
	Records   int    `json:"records"`
	Bytes     int    `json:"bytes"`
	ParseTime string `json:"parse_time"`
}

// Result is what lognormClassify returns.
type Result struct {
	Meta    Meta                `json:"meta"`
	Records []output.RecordJSON `json:"records"`
	Summary output.SummaryJSON  `json:"summary"`
}

var (
	perf   = js.Global().Get("performance")
	engine = parser.NewEngine(nil)
)

func now() float64 {
	return perf.Call("now").Float()
}

// convertFilters converts JS options to parser.LogFilters
func convertFilters(o JSOptions) parser.LogFilters {
	f := parser.NoFilters()

	// JS sends ISO format like "2024-06-05T00:00"
	if o.Begin != "" {
		if t, err := time.Parse("2006-01-02T15:04", o.Begin); err == nil {
			f.BeginT = t
		}
	}
	if o.End != "" {
		if t, err := time.Parse("2006-01-02T15:04", o.End); err == nil {
			f.EndT = t
		}
	}
	if sev, err := severity.Parse(o.MinSeverity); err == nil {
		f.MinSeverity = sev
	}
	f.GrepExpr = o.Grep
	return f
}

func formatDuration(ms int64) string {
	if ms < 1000 {
		return strconv.FormatInt(ms, 10) + "ms"
	}
	secs := float64(ms) / 1000
	return strconv.FormatFloat(secs, 'f', 2, 64) + "s"
}

func main() {
	js.Global().Set("lognormClassify", js.FuncOf(classify))
	js.Global().Set("lognormParsers", js.FuncOf(parsers))
	js.Global().Set("lognormVersion", js.FuncOf(getVersion))
	select {}
}

func getVersion(this js.Value, args []js.Value) interface{} {
	return version
}

// parsers lists the parsers offered for a manual re-parse.
func parsers(this js.Value, args []js.Value) interface{} {
	b, err := json.Marshal(engine.Registry().Selectable())
	if err != nil {
		return errorJSON(err.Error())
	}
	return string(b)
}

func errorJSON(msg string) string {
	b, _ := json.Marshal(map[string]string{"error": msg})
	return string(b)
}

func classify(this js.Value, args []js.Value) interface{} {
	t0 := now()

	if len(args) < 1 {
		return errorJSON("No input provided")
	}
	content := args[0].String()
	if len(content) == 0 {
		return errorJSON("Empty input")
	}

	// Optional options (second argument)
	var opts JSOptions
	if len(args) >= 2 && !args[1].IsNull() && !args[1].IsUndefined() {
		if s := args[1].String(); s != "" {
			if err := json.Unmarshal([]byte(s), &opts); err != nil {
				return errorJSON("Invalid options: " + err.Error())
			}
		}
	}
	if opts.Parser != "" {
		if _, err := engine.Registry().Lookup(opts.Parser); err != nil {
			return errorJSON(err.Error())
		}
	}

	s := parser.Stream{
		Identity: parser.Identity{
			PodName:       opts.Pod,
			ContainerName: opts.Container,
			ImageName:     opts.Image,
			ContainerType: opts.ContainerType,
		},
		Name:     "input",
		Fold:     opts.Fold,
		Override: opts.Parser,
	}
	records := engine.ClassifyText(s, content)

	// Buffered to hold every record, so the filter runs synchronously.
	in := make(chan parser.Record, len(records))
	kept := make(chan parser.Record, len(records))
	for _, rec := range records {
		in <- rec
	}
	close(in)
	parser.FilterStream(in, kept, convertFilters(opts))

	out := make(chan parser.Record, len(records))
	metrics := analysis.Collect(kept, out)

	res := Result{Records: make([]output.RecordJSON, 0, len(out))}
	for rec := range out {
		res.Records = append(res.Records, output.NewRecordJSON(rec))
	}
	res.Summary = output.NewSummaryJSON(metrics)
	res.Meta = Meta{
		Version:   version,
		Records:   metrics.Global.Count,
		Bytes:     len(content),
		ParseTime: formatDuration(int64(now() - t0)),
	}

	b, err := json.Marshal(res)
	if err != nil {
		return errorJSON("JSON export error: " + err.Error())
	}
	return string(b)
}
