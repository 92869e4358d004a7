package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemonberrylabs/boolexpr/pkg/expr"
)

// isolate runs the test in an empty directory with no config-related
// environment variables set.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)
	for _, key := range []string{
		"BOOLEXPR_CONFIG", "BOOLEXPR_ENV_FILE", "PORT", "GRPC_PORT", "HOST",
		"EXPRESSIONS_DIR", "BOOLEXPR_CASE", "BOOLEXPR_PARENS", "BOOLEXPR_INDENT",
		"BOOLEXPR_HISTORY", "LOG_LEVEL", "NO_COLOR",
	} {
		t.Setenv(key, "")
	}
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8787", cfg.Addr())
	assert.Equal(t, "0.0.0.0:8788", cfg.GRPCAddr())
	assert.Empty(t, cfg.Server.ExpressionsDir)

	opts, err := cfg.PrintOptions()
	require.NoError(t, err)
	assert.Equal(t, expr.PrintOptions{}, opts)
}

func TestLoadTOML(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.toml")
	writeFile(t, path, `
log_level = "debug"

[server]
port = 9000
expressions_dir = "rules"

[format]
case = "lower"
parens = "always"
indent = 2
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 8788, cfg.Server.GRPCPort, "unset keys keep defaults")
	assert.Equal(t, "rules", cfg.Server.ExpressionsDir)
	assert.Equal(t, "debug", cfg.LogLevel)

	opts, err := cfg.PrintOptions()
	require.NoError(t, err)
	assert.Equal(t, expr.PrintOptions{Case: expr.CaseLower, Parens: expr.ParensAlways, Indent: 2}, opts)
}

func TestLoadDefaultFileInWorkingDirectory(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, DefaultFile), "[server]\nhost = \"127.0.0.1\"\n")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	isolate(t)
	_, err := Load("nope.toml")
	assert.ErrorContains(t, err, "config file not found")
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "c.toml")
	writeFile(t, path, "[server]\nport = 9000\n[format]\ncase = \"lower\"\n")

	t.Setenv("PORT", "9100")
	t.Setenv("BOOLEXPR_CASE", "mixed")
	t.Setenv("EXPRESSIONS_DIR", "/srv/rules")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "mixed", cfg.Format.Case)
	assert.Equal(t, "/srv/rules", cfg.Server.ExpressionsDir)
}

func TestDotEnv(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".env"), "GRPC_PORT=9200\nBOOLEXPR_PARENS=never\n")
	// godotenv does not override variables that are already present, so the
	// isolation placeholders must be removed first.
	require.NoError(t, os.Unsetenv("GRPC_PORT"))
	require.NoError(t, os.Unsetenv("BOOLEXPR_PARENS"))
	t.Cleanup(func() {
		os.Unsetenv("GRPC_PORT")
		os.Unsetenv("BOOLEXPR_PARENS")
	})

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9200, cfg.Server.GRPCPort)
	assert.Equal(t, "never", cfg.Format.Parens)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"port not a number", map[string]string{"PORT": "http"}, "invalid PORT"},
		{"port out of range", map[string]string{"PORT": "70000"}, "invalid port"},
		{"bad case", map[string]string{"BOOLEXPR_CASE": "shouting"}, "unknown case style"},
		{"bad parens", map[string]string{"BOOLEXPR_PARENS": "some"}, "unknown paren mode"},
		{"bad level", map[string]string{"LOG_LEVEL": "loud"}, "unknown log level"},
		{"negative indent", map[string]string{"BOOLEXPR_INDENT": "-1"}, "indent must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}
