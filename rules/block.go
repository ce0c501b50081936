package rules

import (
	"regexp"
	"strings"

	"github.com/Alain-L/lognorm/extract"
	"github.com/Alain-L/lognorm/severity"
)

type blockSyntax int

const (
	syntaxJSON blockSyntax = iota
	syntaxYAML
)

var (
	jsonMemberRe = regexp.MustCompile(`^(\s*)("(?:[^"\\]|\\.)*")(\s*:\s*)(.*)$`)
	yamlMemberRe = regexp.MustCompile(`^(\s*)(- )?([^\s:#-][^:#]*?)(:)(\s+.*)?$`)
	yamlKeyRe    = regexp.MustCompile(`^[\w.\-/"']+:(?:\s|$)`)
)

// StructuredBlock continues a pretty-printed JSON or YAML dump. JSON blocks
// track bracket balance and end on the line that closes the outermost
// bracket. YAML blocks go on while lines are indented or look like mapping
// keys, list items or document markers. Either kind ends early on a line
// equal to the close token, when one is configured. Blank lines end the
// block unless AllowEmptyLines is set.
type StructuredBlock struct {
	syntax     blockSyntax
	depth      int
	close      string
	allowEmpty bool
}

// NewJSONBlock returns a scanner for a JSON dump whose first line left depth
// brackets open.
func NewJSONBlock(depth int, close string, allowEmpty bool) *StructuredBlock {
	return &StructuredBlock{syntax: syntaxJSON, depth: depth, close: close, allowEmpty: allowEmpty}
}

// NewYAMLBlock returns a scanner for a YAML dump.
func NewYAMLBlock(close string, allowEmpty bool) *StructuredBlock {
	return &StructuredBlock{syntax: syntaxYAML, close: close, allowEmpty: allowEmpty}
}

func (b *StructuredBlock) Scan(line string, fold bool, f *extract.Formatting) ScanResult {
	line = strings.TrimRight(line, " \r")
	trimmed := strings.TrimSpace(line)

	if trimmed == "" {
		if b.allowEmpty {
			return inherit(Block, extract.Plain(""))
		}
		return inherit(EndBlockNotProcessed, extract.Message{})
	}
	if b.close != "" && trimmed == b.close {
		return inherit(EndBlock, b.render(line))
	}

	if b.syntax == syntaxYAML {
		if !indented(line) && !yamlKeyRe.MatchString(line) && !strings.HasPrefix(line, "- ") &&
			line != "---" && line != "..." {
			return inherit(EndBlockNotProcessed, extract.Message{})
		}
		return inherit(Block, b.render(line))
	}

	if !indented(line) {
		c := line[0]
		closing := c == '}' || c == ']'
		opening := b.depth == 0 && (c == '{' || c == '[')
		if !closing && !opening {
			return inherit(EndBlockNotProcessed, extract.Message{})
		}
	}
	depth, underflow := bracketDepth(line, b.depth)
	if underflow {
		return inherit(Break, extract.Message{})
	}
	b.depth = depth
	if depth == 0 && b.close == "" {
		return inherit(EndBlock, b.render(line))
	}
	return inherit(Block, b.render(line))
}

// inherit builds a result that takes the severity of the opening record.
func inherit(a Action, m extract.Message) ScanResult {
	return ScanResult{Action: a, Message: m, Severity: severity.Unknown}
}

func (b *StructuredBlock) render(line string) extract.Message {
	if b.syntax == syntaxJSON {
		if m := jsonMemberRe.FindStringSubmatch(line); m != nil {
			return extract.Segmented(
				extract.Seg(m[1], extract.StyleNone),
				extract.Seg(m[2], extract.StyleKey),
				extract.Seg(m[3], extract.StyleSeparator),
				extract.Seg(m[4], extract.StyleValue))
		}
		return extract.Plain(line)
	}

	m := yamlMemberRe.FindStringSubmatch(line)
	if m == nil {
		return extract.Plain(line)
	}
	segs := []extract.Segment{extract.Seg(m[1], extract.StyleNone)}
	if m[2] != "" {
		segs = append(segs, extract.Seg(m[2], extract.StyleBullet))
	}
	segs = append(segs, extract.Seg(m[3], extract.StyleKey), extract.Seg(m[4], extract.StyleSeparator))
	if m[5] != "" {
		segs = append(segs, extract.Seg(m[5], extract.StyleValue))
	}
	return extract.Segmented(segs...)
}

func indented(line string) bool {
	return line != "" && (line[0] == ' ' || line[0] == '\t')
}

// bracketDepth adds the brackets opened and closed by line to depth, ignoring
// those inside double-quoted strings. The second result reports that more
// brackets were closed than were open.
func bracketDepth(line string, depth int) (int, bool) {
	inString := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth < 0 {
				return depth, true
			}
		}
	}
	return depth, false
}
