package parser

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/Alain-L/lognorm/extract"
	"github.com/Alain-L/lognorm/severity"
	"github.com/Alain-L/lognorm/timestamp"
)

const (
	// MaxLineLength is the longest line, in characters, classified as is.
	// Longer lines are cut to MaxLineLength-1 characters and flagged as
	// errors.
	MaxLineLength = 16384

	// DefaultMaxBlockLines bounds the continuation lines of one block.
	DefaultMaxBlockLines = 1000

	tabWidth = 8
)

// Engine classifies log lines. It holds only read-only state once built and
// can be shared by any number of goroutines, each with its own ScanState.
type Engine struct {
	registry      *Registry
	formatting    extract.Formatting
	maxBlockLines int
	log           *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for recovered failures.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithFormatting replaces the default formatting toggles.
func WithFormatting(f extract.Formatting) Option {
	return func(e *Engine) { e.formatting = f }
}

// WithMaxBlockLines bounds the number of lines a block may span. The block
// is abandoned when the limit is reached and the next line is classified on
// its own.
func WithMaxBlockLines(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxBlockLines = n
		}
	}
}

// NewEngine returns an engine selecting parsers from reg. A nil registry
// means the built-in library.
func NewEngine(reg *Registry, opts ...Option) *Engine {
	if reg == nil {
		reg = Default()
	}
	e := &Engine{
		registry:      reg,
		formatting:    extract.DefaultFormatting(),
		maxBlockLines: DefaultMaxBlockLines,
		log:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log.Debug("engine ready",
		zap.Int("parsers", reg.Len()),
		zap.Int("max_block_lines", e.maxBlockLines),
		zap.Bool("extract_messages", e.formatting.ExtractMessages))
	return e
}

// Registry returns the engine's parser registry.
func (e *Engine) Registry() *Registry { return e.registry }

// Formatting returns the engine's formatting toggles.
func (e *Engine) Formatting() extract.Formatting { return e.formatting }

// Classify turns one raw line into a Record. It never fails: lines that no
// parser understands come back unchanged at Info, and internal failures are
// reported as error records carrying the raw line.
//
// state follows multi-line blocks across calls. It may be nil when the
// caller classifies isolated lines.
func (e *Engine) Classify(state *ScanState, req Request) (rec Record) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn("recovered panic while classifying line",
				zap.Any("panic", r),
				zap.String("pod", req.PodName),
				zap.String("container", req.ContainerName),
				zap.String("override", req.Override),
				zap.Int("line", req.LineNumber))
			state.Reset()
			rec = e.finish(errorRecord(req.Line, fmt.Sprintf("internal error: %v", r)), req)
		}
	}()

	line := strings.TrimRight(strings.ToValidUTF8(req.Line, string(utf8.RuneError)), "\r\n")
	line, ts, hasTS := timestamp.StripKubernetes(line)

	if n := utf8.RuneCountInString(line) + req.Dropped; n > MaxLineLength {
		state.Reset()
		rec = oversize(line, n)
		rec.Timestamp, rec.HasTimestamp = ts, hasTS
		return e.finish(rec, req)
	}

	if state.Active() {
		if cont, ok := e.continueBlock(state, line, req.Fold); ok {
			cont.Timestamp, cont.HasTimestamp = ts, hasTS
			return e.finish(cont, req)
		}
	}

	p, err := e.pick(req)
	if err != nil {
		state.Reset()
		rec = errorRecord(line, err.Error())
		rec.Timestamp, rec.HasTimestamp = ts, hasTS
		return e.finish(rec, req)
	}

	st, sc := p.chain.Run(line, req.Fold, &e.formatting)
	rec = Record{
		Timestamp:    st.Timestamp,
		HasTimestamp: st.HasTimestamp,
		Facility:     st.Facility,
		Severity:     st.Severity,
		Message:      st.Message,
		Remnants:     st.Remnants,
		Parser:       p.Name,
	}
	if hasTS {
		rec.Timestamp, rec.HasTimestamp = ts, true
	}
	for _, r := range rec.Remnants {
		rec.Severity = severity.Merge(rec.Severity, r.Severity)
	}
	if sc != nil && state != nil {
		state.open(sc, p.Name, rec.Severity, rec.Facility)
	}
	return e.finish(rec, req)
}

func (e *Engine) pick(req Request) (*Parser, error) {
	if req.Override != "" {
		return e.registry.Lookup(req.Override)
	}
	return e.registry.Select(req.Identity), nil
}

// continueBlock feeds line to the open block. It returns false when the
// block is over and line must be classified on its own.
func (e *Engine) continueBlock(state *ScanState, line string, fold bool) (Record, bool) {
	if state.lines >= e.maxBlockLines {
		e.log.Debug("abandoning block at line limit",
			zap.String("parser", state.parser),
			zap.Int("lines", state.lines))
		state.Reset()
		return Record{}, false
	}

	res := state.scanner.Scan(line, fold, &e.formatting)
	if !res.Action.Consumed() {
		state.Reset()
		return Record{}, false
	}

	sev := res.Severity
	if sev == severity.Unknown {
		sev = state.severity
	}
	rec := Record{
		Facility:     state.facility,
		Severity:     sev,
		Remnants:     []extract.Remnant{{Message: res.Message, Severity: sev}},
		Parser:       state.parser,
		Continuation: true,
	}
	if res.Action.Open() {
		state.lines++
	} else {
		state.Reset()
	}
	return rec, true
}

func (e *Engine) finish(rec Record, req Request) Record {
	rec.LineNumber = req.LineNumber
	rec.Message = expandTabs(rec.Message)
	for i := range rec.Remnants {
		rec.Remnants[i].Message = expandTabs(rec.Remnants[i].Message)
	}
	return rec
}

// errorRecord keeps the raw line and explains what went wrong in a remnant.
func errorRecord(line, reason string) Record {
	return Record{
		Severity: severity.Error,
		Message:  extract.Plain(line),
		Remnants: []extract.Remnant{{Message: extract.Plain(reason), Severity: severity.Error}},
	}
}

// oversize keeps the first MaxLineLength-1 characters as the message and
// the next ones, as many at most, as a remnant. length counts the whole line.
func oversize(line string, length int) Record {
	msg, rest := splitRunes(line, MaxLineLength-1)
	rest, _ = splitRunes(rest, MaxLineLength-1)
	rec := Record{Severity: severity.Error, Message: extract.Plain(msg)}
	if rest != "" {
		rec.Remnants = append(rec.Remnants, extract.Remnant{Message: extract.Plain(rest), Severity: severity.Error})
	}
	reason := fmt.Sprintf("Line too long (%d bytes); truncated...", length)
	rec.Remnants = append(rec.Remnants, extract.Remnant{Message: extract.Plain(reason), Severity: severity.Error})
	return rec
}

// splitRunes splits s after its first n characters.
func splitRunes(s string, n int) (string, string) {
	for i := range s {
		if n == 0 {
			return s[:i], s[i:]
		}
		n--
	}
	return s, ""
}

// expandTabs replaces tabs with spaces up to the next multiple of tabWidth.
// Columns carry over from one segment to the next.
func expandTabs(m extract.Message) extract.Message {
	if !strings.Contains(m.String(), "\t") {
		return m
	}
	col := 0
	return m.MapText(func(s string) string {
		var b strings.Builder
		b.Grow(len(s))
		for _, r := range s {
			switch r {
			case '\t':
				n := tabWidth - col%tabWidth
				b.WriteString(strings.Repeat(" ", n))
				col += n
			case '\n':
				b.WriteRune(r)
				col = 0
			default:
				b.WriteRune(r)
				col++
			}
		}
		return b.String()
	})
}
