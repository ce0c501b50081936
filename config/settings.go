package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/Alain-L/lognorm/extract"
	"github.com/Alain-L/lognorm/severity"
)

// EnvPrefix prefixes every environment override, e.g. LOGNORM_JSON=true.
const EnvPrefix = "LOGNORM"

// Settings is the merged view of the config file, the environment and the
// command line flags bound to the same viper instance.
type Settings struct {
	// Parsers is a YAML file of custom parser definitions.
	Parsers string `mapstructure:"parsers"`

	Fold          bool   `mapstructure:"fold"`
	JSON          bool   `mapstructure:"json"`
	Color         string `mapstructure:"color"`
	Verbose       bool   `mapstructure:"verbose"`
	MaxBlockLines int    `mapstructure:"max_block_lines"`
	Workers       int    `mapstructure:"workers"`
	MetricsFile   string `mapstructure:"metrics_file"`
	MinSeverity   string `mapstructure:"min_severity"`

	Formatting FormattingSettings `mapstructure:"formatting"`
}

// FormattingSettings mirrors extract.Formatting.
type FormattingSettings struct {
	ExtractMessages      bool `mapstructure:"extract_messages"`
	KeepTimestamps       bool `mapstructure:"keep_timestamps"`
	MergeStartingVersion bool `mapstructure:"merge_starting_version"`
	ExpandErrorLists     bool `mapstructure:"expand_error_lists"`
	CollectorBullets     bool `mapstructure:"collector_bullets"`
}

// Options converts the settings to engine formatting toggles.
func (f FormattingSettings) Options() extract.Formatting {
	return extract.Formatting(f)
}

// NewViper returns a viper instance carrying the defaults and the
// environment bindings.
func NewViper() *viper.Viper {
	v := viper.New()

	def := extract.DefaultFormatting()
	v.SetDefault("formatting.extract_messages", def.ExtractMessages)
	v.SetDefault("formatting.keep_timestamps", def.KeepTimestamps)
	v.SetDefault("formatting.merge_starting_version", def.MergeStartingVersion)
	v.SetDefault("formatting.expand_error_lists", def.ExpandErrorLists)
	v.SetDefault("formatting.collector_bullets", def.CollectorBullets)
	v.SetDefault("parsers", "")
	v.SetDefault("fold", false)
	v.SetDefault("json", false)
	v.SetDefault("verbose", false)
	v.SetDefault("metrics_file", "")
	v.SetDefault("min_severity", "")
	v.SetDefault("color", "auto")
	v.SetDefault("max_block_lines", 1000)
	v.SetDefault("workers", 0)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads cfgFile, or ~/.lognorm.yaml when cfgFile is empty, into v and
// returns the merged settings. A missing default file is not an error.
func Load(v *viper.Viper, cfgFile string) (Settings, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigName(".lognorm")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := s.validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s Settings) validate() error {
	switch s.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("%w: color must be auto, always or never, got %q", ErrInvalidConfig, s.Color)
	}
	if s.MaxBlockLines < 1 {
		return fmt.Errorf("%w: max_block_lines must be positive", ErrInvalidConfig)
	}
	if s.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", ErrInvalidConfig)
	}
	if s.MinSeverity != "" {
		if _, err := severity.Parse(s.MinSeverity); err != nil {
			return fmt.Errorf("%w: min_severity: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}
