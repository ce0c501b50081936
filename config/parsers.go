// Package config loads parser definition files and the CLI settings.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Alain-L/lognorm/parser"
	"github.com/Alain-L/lognorm/rules"
)

// ErrInvalidConfig is returned for files that cannot be decoded.
var ErrInvalidConfig = errors.New("invalid configuration")

// parserFile is the layout of a parser definition file:
//
//	parsers:
//	  - name: billing
//	    show_in_selector: true
//	    match_keys:
//	      - image_name: /acme/billing
//	    parser_rules:
//	      - strip_timestamps
//	      - name: json
//	        options:
//	          message_keys: [text]
//	      - regex:
//	          pattern: '^(?P<severity>[A-Z]+) (?P<message>.*)$'
type parserFile struct {
	Parsers []parserDef `yaml:"parsers"`
}

type parserDef struct {
	Name           string        `yaml:"name"`
	ShowInSelector bool          `yaml:"show_in_selector"`
	MatchKeys      []matchKeyDef `yaml:"match_keys"`
	ParserRules    []ruleDef     `yaml:"parser_rules"`
}

type matchKeyDef struct {
	PodName       string `yaml:"pod_name"`
	ContainerName string `yaml:"container_name"`
	ImageName     string `yaml:"image_name"`
	ImageRegex    string `yaml:"image_regex"`
	ContainerType string `yaml:"container_type"`
}

// ruleDef accepts the three spellings of a rule: a bare name, a
// {name, options} mapping, or a single-key mapping from name to options.
type ruleDef rules.Step

func (r *ruleDef) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		r.Name = node.Value
		return nil

	case yaml.MappingNode:
		var long struct {
			Name    string         `yaml:"name"`
			Options map[string]any `yaml:"options"`
		}
		if isLongForm(node) {
			if err := node.Decode(&long); err != nil {
				return err
			}
			r.Name, r.Options = long.Name, long.Options
			if r.Options == nil && hasKey(node, "options") {
				r.Options = map[string]any{}
			}
			return nil
		}
		if len(node.Content) != 2 {
			return fmt.Errorf("line %d: a rule mapping needs a name and options", node.Line)
		}
		r.Name = node.Content[0].Value
		options := map[string]any{}
		if err := node.Content[1].Decode(&options); err != nil {
			return fmt.Errorf("line %d: rule %s: %w", node.Line, r.Name, err)
		}
		r.Options = options
		return nil
	}
	return fmt.Errorf("line %d: a rule is a name or a mapping", node.Line)
}

func isLongForm(node *yaml.Node) bool {
	return hasKey(node, "name")
}

func hasKey(node *yaml.Node, key string) bool {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return true
		}
	}
	return false
}

// LoadParsers reads parser definitions from path. ${VAR} references are
// expanded from the environment before decoding.
func LoadParsers(path string) ([]parser.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parser file %s: %w", path, err)
	}
	defs, err := ParseParsers(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

// ParseParsers decodes parser definitions. Unknown fields are rejected.
// The definitions are not compiled; see parser.Build.
func ParseParsers(data []byte) ([]parser.Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader([]byte(os.ExpandEnv(string(data)))))
	dec.KnownFields(true)

	var f parserFile
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	defs := make([]parser.Definition, 0, len(f.Parsers))
	for _, p := range f.Parsers {
		def := parser.Definition{
			Name:           p.Name,
			ShowInSelector: p.ShowInSelector,
			MatchKeys:      make([]parser.MatchKey, 0, len(p.MatchKeys)),
			ParserRules:    make([]rules.Step, 0, len(p.ParserRules)),
		}
		for _, k := range p.MatchKeys {
			def.MatchKeys = append(def.MatchKeys, parser.MatchKey(k))
		}
		for _, r := range p.ParserRules {
			def.ParserRules = append(def.ParserRules, rules.Step(r))
		}
		defs = append(defs, def)
	}
	return defs, nil
}
