// Package config loads boolexpr settings.
//
// Precedence, lowest first: built-in defaults, the TOML file, variables from
// a .env file, the process environment. Command-line flags are applied on top
// by the caller.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/lemonberrylabs/boolexpr/pkg/expr"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "boolexpr.toml"

// Config holds the complete application configuration.
type Config struct {
	LogLevel string       `toml:"log_level"`
	Server   ServerConfig `toml:"server"`
	Format   FormatConfig `toml:"format"`
	REPL     REPLConfig   `toml:"repl"`
}

// ServerConfig holds HTTP and gRPC listener settings.
type ServerConfig struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	GRPCPort       int    `toml:"grpc_port"`
	ExpressionsDir string `toml:"expressions_dir"`
}

// FormatConfig holds pretty-printer defaults.
type FormatConfig struct {
	Case   string `toml:"case"`
	Parens string `toml:"parens"`
	Indent int    `toml:"indent"`
}

// REPLConfig holds interactive shell settings.
type REPLConfig struct {
	HistoryFile string `toml:"history_file"`
	Color       bool   `toml:"color"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Server: ServerConfig{
			Host:     "0.0.0.0",
			Port:     8787,
			GRPCPort: 8788,
		},
		Format: FormatConfig{
			Case:   "upper",
			Parens: "minimal",
		},
		REPL: REPLConfig{
			HistoryFile: defaultHistoryFile(),
			Color:       true,
		},
	}
}

// Load builds the configuration. path names a TOML file and must exist when
// given; when empty, BOOLEXPR_CONFIG and then ./boolexpr.toml are tried and
// silently skipped if absent.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("BOOLEXPR_CONFIG")
		explicit = path != ""
	}
	if !explicit {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}

	if path != "" {
		path = os.ExpandEnv(path)
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	loadDotEnv()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv loads BOOLEXPR_ENV_FILE (default .env) into the environment.
// Variables already set are not overridden.
func loadDotEnv() {
	envPath := os.Getenv("BOOLEXPR_ENV_FILE")
	if envPath == "" {
		envPath = ".env"
	}
	if err := godotenv.Load(envPath); err != nil {
		slog.Debug("Skipping .env ...", "path", envPath, "error", err)
	}
}

func (c *Config) applyEnv() error {
	c.Server.Host = envOrDefault("HOST", c.Server.Host)
	c.Server.ExpressionsDir = envOrDefault("EXPRESSIONS_DIR", c.Server.ExpressionsDir)
	c.Format.Case = envOrDefault("BOOLEXPR_CASE", c.Format.Case)
	c.Format.Parens = envOrDefault("BOOLEXPR_PARENS", c.Format.Parens)
	c.REPL.HistoryFile = envOrDefault("BOOLEXPR_HISTORY", c.REPL.HistoryFile)
	c.LogLevel = envOrDefault("LOG_LEVEL", c.LogLevel)

	ints := []struct {
		key string
		dst *int
	}{
		{"PORT", &c.Server.Port},
		{"GRPC_PORT", &c.Server.GRPCPort},
		{"BOOLEXPR_INDENT", &c.Format.Indent},
	}
	for _, v := range ints {
		raw := os.Getenv(v.key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: must be a number", v.key, raw)
		}
		*v.dst = n
	}

	if raw := os.Getenv("NO_COLOR"); raw != "" {
		c.REPL.Color = false
	}
	return nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	if err := validatePort(c.Server.Port); err != nil {
		errs = append(errs, fmt.Errorf("invalid port: %w", err))
	}
	if err := validatePort(c.Server.GRPCPort); err != nil {
		errs = append(errs, fmt.Errorf("invalid grpc port: %w", err))
	}
	if c.Format.Indent < 0 {
		errs = append(errs, errors.New("indent must not be negative"))
	}
	if _, err := c.PrintOptions(); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// PrintOptions converts the format section into printer options.
func (c *Config) PrintOptions() (expr.PrintOptions, error) {
	cs, err := expr.ParseCaseStyle(c.Format.Case)
	if err != nil {
		return expr.PrintOptions{}, err
	}
	pm, err := expr.ParseParenMode(c.Format.Parens)
	if err != nil {
		return expr.PrintOptions{}, err
	}
	return expr.PrintOptions{Case: cs, Parens: pm, Indent: c.Format.Indent}, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GRPCAddr returns the gRPC listen address.
func (c *Config) GRPCAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func validatePort(port int) error {
	if port < 1 || port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".boolexpr_history")
}
