package rules

import (
	"fmt"
	"regexp"

	"github.com/mitchellh/mapstructure"

	"github.com/Alain-L/lognorm/extract"
	"github.com/Alain-L/lognorm/severity"
)

// decodeOptions copies step options into out. Unknown keys and values of the
// wrong type are rejected. A single string is accepted where a list is
// expected.
func decodeOptions(step Step, out any) error {
	if len(step.Options) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(step.Options); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOption, err)
	}
	return nil
}

func missing(option string) error {
	return fmt.Errorf("%w: %q", ErrMissingOption, option)
}

func invalid(option string, err error) error {
	return fmt.Errorf("%w: %q: %w", ErrInvalidOption, option, err)
}

// fieldOptions configures the structured extractors. Unset lists keep the
// defaults of extract.DefaultFieldOptions.
type fieldOptions struct {
	MessageKeys   []string         `mapstructure:"message_keys"`
	SeverityKeys  []string         `mapstructure:"severity_keys"`
	TimestampKeys []string         `mapstructure:"timestamp_keys"`
	ErrorKeys     []string         `mapstructure:"error_keys"`
	FacilityKeys  []string         `mapstructure:"facility_keys"`
	Facilities    []facilityOption `mapstructure:"facilities"`
}

type facilityOption struct {
	Keys       []string `mapstructure:"keys"`
	Separators []string `mapstructure:"separators"`
}

func (o fieldOptions) resolve() (extract.FieldOptions, error) {
	out := extract.DefaultFieldOptions()
	if o.MessageKeys != nil {
		out.MessageKeys = o.MessageKeys
	}
	if o.SeverityKeys != nil {
		out.SeverityKeys = o.SeverityKeys
	}
	if o.TimestampKeys != nil {
		out.TimestampKeys = o.TimestampKeys
	}
	if o.ErrorKeys != nil {
		out.ErrorKeys = o.ErrorKeys
	}

	if o.FacilityKeys != nil || o.Facilities != nil {
		out.Facilities = nil
		for _, k := range o.FacilityKeys {
			out.Facilities = append(out.Facilities, extract.FacilityRule{Keys: []string{k}})
		}
		for _, fo := range o.Facilities {
			if len(fo.Keys) == 0 {
				return out, missing("facilities.keys")
			}
			if len(fo.Separators) > len(fo.Keys)-1 {
				return out, invalid("facilities.separators", fmt.Errorf("%d separators for %d keys", len(fo.Separators), len(fo.Keys)))
			}
			out.Facilities = append(out.Facilities, extract.FacilityRule{Keys: fo.Keys, Separators: fo.Separators})
		}
	}
	return out, nil
}

type stripOptions struct {
	Dialect string `mapstructure:"dialect"`
}

type stripAllOptions struct {
	Dialects []string `mapstructure:"dialects"`
}

type regexOptions struct {
	Pattern   string   `mapstructure:"pattern"`
	ErrorKeys []string `mapstructure:"error_keys"`
}

type overrideOption struct {
	Match    string `mapstructure:"match"`
	Regex    string `mapstructure:"regex"`
	Severity string `mapstructure:"severity"`
}

type overrideOptions struct {
	Overrides []overrideOption `mapstructure:"overrides"`
}

func (o overrideOptions) resolve() ([]extract.Override, error) {
	if len(o.Overrides) == 0 {
		return nil, missing("overrides")
	}
	out := make([]extract.Override, 0, len(o.Overrides))
	for i, ov := range o.Overrides {
		e := extract.Override{Match: ov.Match}
		switch {
		case ov.Regex != "":
			re, err := regexp.Compile(ov.Regex)
			if err != nil {
				return nil, invalid(fmt.Sprintf("overrides[%d].regex", i), err)
			}
			e.Pattern = re
		case ov.Match == "":
			return nil, missing(fmt.Sprintf("overrides[%d].match", i))
		}
		if ov.Severity == "" {
			return nil, missing(fmt.Sprintf("overrides[%d].severity", i))
		}
		sev, err := severity.Parse(ov.Severity)
		if err != nil {
			return nil, invalid(fmt.Sprintf("overrides[%d].severity", i), err)
		}
		e.Severity = sev
		out = append(out, e)
	}
	return out, nil
}

type blockOptions struct {
	Start           string `mapstructure:"start"`
	Close           string `mapstructure:"close"`
	AllowEmptyLines bool   `mapstructure:"allow_empty_lines"`
}
