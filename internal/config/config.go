// Package config loads the configuration of the command line tool from defaults,
// an optional config file, HIGHLIGHT_ environment variables and flags.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
	"gitlab.com/tozd/go/errors"

	highlight "go.gopad.dev/go-highlight"
	"go.gopad.dev/go-highlight/internal/logging"
	"go.gopad.dev/go-highlight/internal/tracing"
	"go.gopad.dev/go-highlight/provider/remote"
)

// EnvPrefix prefixes environment variables, log.level is read from HIGHLIGHT_LOG_LEVEL.
const EnvPrefix = "HIGHLIGHT"

// Config holds all options of the command line tool.
type Config struct {
	MaxInjectionDepth uint           `mapstructure:"max_injection_depth"`
	Format            string         `mapstructure:"format"`
	ClassPrefix       string         `mapstructure:"class_prefix"`
	GrammarDirs       []string       `mapstructure:"grammar_dirs"`
	GrammarURL        string         `mapstructure:"grammar_url"`
	CacheTTL          time.Duration  `mapstructure:"cache_ttl"`
	Log               logging.Config `mapstructure:"log"`
	Tracing           tracing.Config `mapstructure:"tracing"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		MaxInjectionDepth: highlight.DefaultMaxInjectionDepth,
		Format:            highlight.FormatCustomElements.String(),
		CacheTTL:          remote.DefaultTTL,
		Log: logging.Config{
			Level: "warn",
		},
		Tracing: tracing.DefaultConfig(),
	}
}

// SetDefaults registers the defaults with v.
// Every key needs a default for environment variables to be picked up by [Load].
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("max_injection_depth", d.MaxInjectionDepth)
	v.SetDefault("format", d.Format)
	v.SetDefault("class_prefix", d.ClassPrefix)
	v.SetDefault("grammar_dirs", d.GrammarDirs)
	v.SetDefault("grammar_url", d.GrammarURL)
	v.SetDefault("cache_ttl", d.CacheTTL)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.pretty", d.Log.Pretty)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
}

// Load reads the configuration into a validated [Config].
// file is optional, its format follows its extension.
func Load(v *viper.Viper, file string) (Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Errorf("error reading config file %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Errorf("error decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values that are not checked by decoding.
func (c Config) Validate() error {
	if _, err := highlight.ParseFormat(c.Format); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.CacheTTL < 0 {
		return errors.Errorf("cache_ttl must not be negative, got %s", c.CacheTTL)
	}
	if c.Tracing.Enabled && c.Tracing.Exporter == tracing.ExporterOTLP && c.Tracing.OTLPEndpoint == "" {
		return errors.New("tracing.otlp_endpoint is required when exporter is \"otlp\"")
	}
	return c.Tracing.Validate()
}

// Highlight returns the library configuration. Theme and profile keep their defaults.
func (c Config) Highlight() (highlight.Config, error) {
	format, err := highlight.ParseFormat(c.Format)
	if err != nil {
		return highlight.Config{}, err
	}

	cfg := highlight.DefaultConfig()
	cfg.MaxInjectionDepth = c.MaxInjectionDepth
	cfg.Format = format
	cfg.ClassPrefix = c.ClassPrefix
	return cfg, nil
}
