// Package config loads process-wide settings for the bayesharness command
// from an optional bayesharness.yaml and BAYES_ environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/roach88/bayesharness/internal/trace"
)

// Config holds settings shared by every command. Command-line flags
// override these values.
type Config struct {
	// Seed drives data simulation and sampling.
	Seed uint64

	// Backend is the trace store kind: memory, sqlite, file or badger.
	Backend trace.Kind

	// TraceDir is where file-backed trace stores are created.
	TraceDir string

	// LogLevel is debug, info, warn or error.
	LogLevel string

	// LogFormat is text or json.
	LogFormat string
}

// Load reads configuration. path names a config file; when empty,
// bayesharness.yaml is looked up in the working directory and a missing
// file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BAYES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("bayesharness")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	backend, err := trace.ParseKind(v.GetString("backend"))
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg := &Config{
		Seed:      v.GetUint64("seed"),
		Backend:   backend,
		TraceDir:  v.GetString("trace_dir"),
		LogLevel:  strings.ToLower(v.GetString("log_level")),
		LogFormat: strings.ToLower(v.GetString("log_format")),
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("seed", 20090425)
	v.SetDefault("backend", string(trace.KindMemory))
	v.SetDefault("trace_dir", "traces")
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "text")
}

func validate(cfg *Config) error {
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return fmt.Errorf("config: log_format must be text or json, got %q", cfg.LogFormat)
	}
	return nil
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}
