// Package main is the entry point for the boolexpr command.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/boolexpr/pkg/config"
	"github.com/lemonberrylabs/boolexpr/pkg/expr"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// app carries state shared by every subcommand once configuration is loaded.
type app struct {
	cfg    *config.Config
	format expr.PrintOptions
	logger *slog.Logger
	debug  bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "boolexpr",
		Short:         "Parse, evaluate, optimize and format boolean expressions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}
	root.Version = version + " (commit=" + commit + ", built=" + date + ")"
	root.SetVersionTemplate("boolexpr version {{.Version}}\n")

	root.PersistentFlags().String("config", "", "Path to a TOML config file (env BOOLEXPR_CONFIG, default ./boolexpr.toml)")
	root.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (env LOG_LEVEL)")
	root.PersistentFlags().Bool("debug", false, "Trace parsing, optimization and evaluation")

	root.AddCommand(
		a.tokensCmd(),
		a.astCmd(),
		a.evalCmd(),
		a.optimizeCmd(),
		a.formatCmd(),
		a.jsonCmd(),
		a.fromJSONCmd(),
		a.dotCmd(),
		a.checkCmd(),
		a.replCmd(),
		a.serveCmd(),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	a.debug, _ = cmd.Flags().GetBool("debug")
	if a.debug {
		cfg.LogLevel = "debug"
	}

	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)

	a.format, err = cfg.PrintOptions()
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// tracer returns the logger handed to the parser, optimizer and evaluator,
// or nil unless --debug is set.
func (a *app) tracer() *slog.Logger {
	if a.debug {
		return a.logger
	}
	return nil
}

// sourceError renders a language error against the text it came from.
type sourceError struct {
	err    error
	source string
}

func (e *sourceError) Error() string { return expr.Render(e.err, e.source) }
func (e *sourceError) Unwrap() error { return e.err }

// readSource joins args into one expression. A single "-" reads standard
// input.
func readSource(cmd *cobra.Command, args []string) (string, error) {
	source := strings.Join(args, " ")
	if source != "-" {
		return source, nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	source = strings.TrimSpace(string(data))
	if source == "" {
		return "", errors.New("no expression on stdin")
	}
	return source, nil
}

// parse tokenizes and parses source, tracing when --debug is set.
func (a *app) parse(source string) (expr.Node, error) {
	tokens, err := expr.Tokenize(source)
	if err != nil {
		return nil, &sourceError{err: err, source: source}
	}
	p := expr.NewParser(tokens)
	p.Logger = a.tracer()
	node, err := p.Parse()
	if err != nil {
		return nil, &sourceError{err: err, source: source}
	}
	return node, nil
}
