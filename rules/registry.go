package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Alain-L/lognorm/extract"
	"github.com/Alain-L/lognorm/severity"
	"github.com/Alain-L/lognorm/timestamp"
)

type factory func(step Step) (rule, error)

// textExtractor is the shape shared by the format specific extractors.
type textExtractor func(line string, sev severity.Severity, facility string, fold bool, f *extract.Formatting) extract.Result

// fieldExtractor is the shape of the structured extractors.
type fieldExtractor func(line string, sev severity.Severity, facility string, fold bool, f *extract.Formatting, o *extract.FieldOptions) extract.Result

var registry map[string]factory

func init() {
	registry = map[string]factory{
		"strip_timestamp":  stripTimestamp,
		"strip_timestamps": stripTimestamps,

		"glog":        fields(extract.Glog),
		"key_value":   fields(extract.KeyValue),
		"json":        fields(extract.JSON),
		"zap_console": fields(extract.ZapConsole),
		"regex":       regexRule,

		"http":                 text(extract.HTTP),
		"directory":            text(extract.Directory),
		"tensorflow":           text(extract.Tensorflow),
		"modinfo":              text(extract.Modinfo),
		"bracketed_severity":   text(extract.BracketedSeverity),
		"colon_severity":       text(extract.ColonSeverity),
		"four_letter_severity": text(extract.FourLetterSeverity),
		"python_logging":       text(extract.PythonLogging),
		"env_logger":           text(extract.EnvLogger),
		"diff":                 text(extract.Diff),

		"override_severity": overrideSeverity,

		"python_traceback": pythonTraceback,
		"json_block":       jsonBlock,
		"yaml_block":       yamlBlock,
	}
}

// Known reports whether name is a rule.
func Known(name string) bool {
	_, ok := registry[name]
	return ok
}

// Names returns the rule names in alphabetical order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func noOptions(step Step) error {
	if len(step.Options) > 0 {
		return fmt.Errorf("%w: %s takes no options", ErrInvalidOption, step.Name)
	}
	return nil
}

// text adapts an extractor working on plain text. Once an earlier rule has
// produced a structured message, the extractor is skipped.
func text(fn textExtractor) factory {
	return func(step Step) (rule, error) {
		if err := noOptions(step); err != nil {
			return nil, err
		}
		return func(st *State, fold bool, f *extract.Formatting) Scanner {
			if !st.Message.Structured() {
				st.apply(fn(st.Message.Text, st.Severity, st.Facility, fold, f))
			}
			return nil
		}, nil
	}
}

func fields(fn fieldExtractor) factory {
	return func(step Step) (rule, error) {
		var opts fieldOptions
		if err := decodeOptions(step, &opts); err != nil {
			return nil, err
		}
		o, err := opts.resolve()
		if err != nil {
			return nil, err
		}
		return func(st *State, fold bool, f *extract.Formatting) Scanner {
			if !st.Message.Structured() {
				st.apply(fn(st.Message.Text, st.Severity, st.Facility, fold, f, &o))
			}
			return nil
		}, nil
	}
}

func stripTimestamp(step Step) (rule, error) {
	var opts stripOptions
	if err := decodeOptions(step, &opts); err != nil {
		return nil, err
	}
	if opts.Dialect == "" {
		return nil, missing("dialect")
	}
	ext, ok := timestamp.Lookup(opts.Dialect)
	if !ok {
		return nil, invalid("dialect", fmt.Errorf("unknown dialect %q, want one of %s",
			opts.Dialect, strings.Join(timestamp.Names(), ", ")))
	}
	return stripWith(ext), nil
}

func stripTimestamps(step Step) (rule, error) {
	var opts stripAllOptions
	if err := decodeOptions(step, &opts); err != nil {
		return nil, err
	}
	if len(opts.Dialects) == 0 {
		return stripWith(timestamp.StripAll), nil
	}
	exts := make([]timestamp.Extractor, 0, len(opts.Dialects))
	for _, name := range opts.Dialects {
		ext, ok := timestamp.Lookup(name)
		if !ok {
			return nil, invalid("dialects", fmt.Errorf("unknown dialect %q", name))
		}
		exts = append(exts, ext)
	}
	return stripWith(func(line string) (string, time.Time, bool) {
		return timestamp.Chain(line, time.Time{}, false, exts...)
	}), nil
}

func stripWith(ext timestamp.Extractor) rule {
	return func(st *State, fold bool, f *extract.Formatting) Scanner {
		if st.Message.Structured() {
			return nil
		}
		if rest, ts, ok := ext(st.Message.Text); ok {
			st.Message = extract.Plain(rest)
			st.setTimestamp(ts)
		}
		return nil
	}
}

func regexRule(step Step) (rule, error) {
	var opts regexOptions
	if err := decodeOptions(step, &opts); err != nil {
		return nil, err
	}
	if opts.Pattern == "" {
		return nil, missing("pattern")
	}
	re, err := regexp.Compile(opts.Pattern)
	if err != nil {
		return nil, invalid("pattern", err)
	}
	o := extract.DefaultFieldOptions()
	if opts.ErrorKeys != nil {
		o.ErrorKeys = opts.ErrorKeys
	}
	return func(st *State, fold bool, f *extract.Formatting) Scanner {
		if !st.Message.Structured() {
			st.apply(extract.Regex(st.Message.Text, st.Severity, st.Facility, fold, f, &o, re))
		}
		return nil
	}, nil
}

func overrideSeverity(step Step) (rule, error) {
	var opts overrideOptions
	if err := decodeOptions(step, &opts); err != nil {
		return nil, err
	}
	overrides, err := opts.resolve()
	if err != nil {
		return nil, err
	}
	return func(st *State, fold bool, f *extract.Formatting) Scanner {
		st.Severity = extract.OverrideSeverity(st.Message, st.Severity, overrides)
		return nil
	}, nil
}

const tracebackHeader = "Traceback (most recent call last):"

func pythonTraceback(step Step) (rule, error) {
	if err := noOptions(step); err != nil {
		return nil, err
	}
	return func(st *State, fold bool, f *extract.Formatting) Scanner {
		if st.Message.Structured() || strings.TrimSpace(st.Message.Text) != tracebackHeader {
			return nil
		}
		st.Severity = severity.Merge(st.Severity, severity.Error)
		return &PythonTraceback{}
	}, nil
}

func jsonBlock(step Step) (rule, error) {
	var opts blockOptions
	if err := decodeOptions(step, &opts); err != nil {
		return nil, err
	}
	start, err := compileStart(opts.Start)
	if err != nil {
		return nil, err
	}
	return func(st *State, fold bool, f *extract.Formatting) Scanner {
		if st.Message.Structured() {
			return nil
		}
		line := st.Message.Text
		depth, _ := bracketDepth(line, 0)
		switch {
		case start != nil:
			if !start.MatchString(line) {
				return nil
			}
		case depth <= 0:
			return nil
		default:
			last := strings.TrimSpace(line)
			if c := last[len(last)-1]; c != '{' && c != '[' {
				return nil
			}
		}
		return NewJSONBlock(depth, opts.Close, opts.AllowEmptyLines)
	}, nil
}

func yamlBlock(step Step) (rule, error) {
	var opts blockOptions
	if err := decodeOptions(step, &opts); err != nil {
		return nil, err
	}
	if opts.Start == "" {
		return nil, missing("start")
	}
	start, err := compileStart(opts.Start)
	if err != nil {
		return nil, err
	}
	return func(st *State, fold bool, f *extract.Formatting) Scanner {
		if st.Message.Structured() || !start.MatchString(st.Message.Text) {
			return nil
		}
		return NewYAMLBlock(opts.Close, opts.AllowEmptyLines)
	}, nil
}

func compileStart(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, invalid("start", err)
	}
	return re, nil
}
