package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/boolexpr/pkg/dot"
	"github.com/lemonberrylabs/boolexpr/pkg/expr"
	"github.com/lemonberrylabs/boolexpr/pkg/repl"
	"github.com/lemonberrylabs/boolexpr/pkg/suite"
)

func (a *app) tokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens EXPR",
		Short: "Print the tokens of an expression",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := readSource(cmd, args)
			if err != nil {
				return err
			}
			tokens, err := expr.Tokenize(source)
			if err != nil {
				return &sourceError{err: err, source: source}
			}
			fmt.Fprintln(cmd.OutOrStdout(), expr.DebugTokens(tokens))
			return nil
		},
	}
}

func (a *app) astCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ast EXPR",
		Short: "Print the syntax tree of an expression",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := readSource(cmd, args)
			if err != nil {
				return err
			}
			node, err := a.parse(source)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), expr.Dump(node))
			return nil
		},
	}
}

func (a *app) evalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval EXPR [NAME=VALUE ...]",
		Short: "Evaluate an expression",
		Long: `Evaluate an expression against variables given as NAME=VALUE arguments.
Pairs may also be comma-separated: A=true,B=false. Values are true/1/yes/on
or false/0/no/off.`,
		Example: "  boolexpr eval 'A AND NOT B' A=true B=false",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := readSource(cmd, args[:1])
			if err != nil {
				return err
			}
			env, err := expr.ParseAssignments(args[1:])
			if err != nil {
				return err
			}
			node, err := a.parse(source)
			if err != nil {
				return err
			}

			if optimize, _ := cmd.Flags().GetBool("optimize"); optimize {
				node = (&expr.Optimizer{Logger: a.tracer()}).Optimize(node)
			}

			ev := &expr.Evaluator{Scope: env, Logger: a.tracer()}
			result, err := ev.Eval(node)
			if err != nil {
				return &sourceError{err: err, source: source}
			}
			fmt.Fprintln(cmd.OutOrStdout(), expr.PrettyPrint(expr.Lit(result), a.format))
			return nil
		},
	}
	cmd.Flags().Bool("optimize", false, "Fold constants before evaluating")
	return cmd
}

func (a *app) optimizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimize EXPR",
		Short: "Fold constants and print the simplified expression",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := readSource(cmd, args)
			if err != nil {
				return err
			}
			node, err := a.parse(source)
			if err != nil {
				return err
			}
			optimized := (&expr.Optimizer{Logger: a.tracer()}).Optimize(node)

			out := cmd.OutOrStdout()
			if tree, _ := cmd.Flags().GetBool("tree"); tree {
				fmt.Fprintln(out, expr.Dump(optimized))
				return nil
			}
			fmt.Fprintln(out, expr.PrettyPrint(optimized, a.format))
			return nil
		},
	}
	cmd.Flags().Bool("tree", false, "Print the optimized syntax tree instead of text")
	return cmd
}

func (a *app) formatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "format EXPR",
		Short: "Pretty-print an expression",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := readSource(cmd, args)
			if err != nil {
				return err
			}
			opts, err := a.formatFlags(cmd)
			if err != nil {
				return err
			}
			node, err := a.parse(source)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), expr.PrettyPrint(node, opts))
			return nil
		},
	}
	cmd.Flags().String("case", "", "Keyword case: upper, lower, mixed (default from config)")
	cmd.Flags().String("parens", "", "Parentheses: minimal, always, never (default from config)")
	cmd.Flags().Int("indent", 0, "Spaces per nesting level, 0 for a single line")
	return cmd
}

// formatFlags overlays the format command's flags on the configured defaults.
func (a *app) formatFlags(cmd *cobra.Command) (expr.PrintOptions, error) {
	opts := a.format
	if v, _ := cmd.Flags().GetString("case"); v != "" {
		cs, err := expr.ParseCaseStyle(v)
		if err != nil {
			return opts, err
		}
		opts.Case = cs
	}
	if v, _ := cmd.Flags().GetString("parens"); v != "" {
		pm, err := expr.ParseParenMode(v)
		if err != nil {
			return opts, err
		}
		opts.Parens = pm
	}
	if cmd.Flags().Changed("indent") {
		n, _ := cmd.Flags().GetInt("indent")
		if n < 0 {
			return opts, fmt.Errorf("--indent must not be negative")
		}
		opts.Indent = n
	}
	return opts, nil
}

func (a *app) jsonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "json EXPR",
		Short: "Print the record form of an expression as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := readSource(cmd, args)
			if err != nil {
				return err
			}
			node, err := a.parse(source)
			if err != nil {
				return err
			}
			data, err := expr.MarshalJSON(node)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := json.Indent(&buf, data, "", "  "); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), buf.String())
			return nil
		},
	}
}

func (a *app) fromJSONCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "from-json FILE",
		Short: "Read a JSON record and print the expression (\"-\" reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			node, err := expr.UnmarshalJSON(data)
			if err != nil {
				return &sourceError{err: err}
			}
			fmt.Fprintln(cmd.OutOrStdout(), expr.PrettyPrint(node, a.format))
			return nil
		},
	}
}

func (a *app) dotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dot EXPR",
		Short: "Export the syntax tree as a Graphviz digraph",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := readSource(cmd, args)
			if err != nil {
				return err
			}
			node, err := a.parse(source)
			if err != nil {
				return err
			}
			name, _ := cmd.Flags().GetString("name")

			output, _ := cmd.Flags().GetString("output")
			if output == "" {
				return dot.Export(cmd.OutOrStdout(), node, name)
			}

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := dot.Export(f, node, name); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			a.logger.Info("Wrote DOT file", "path", output)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "Write to FILE instead of stdout")
	cmd.Flags().String("name", dot.DefaultGraphName, "Graph name")
	return cmd
}

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check FILE...",
		Short: "Run YAML expression suites",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				s, err := suite.LoadFile(path)
				if err != nil {
					return err
				}
				report := suite.Run(s)
				fmt.Fprintln(out, report.String())
				if !report.OK() {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d suites failed", failed, len(args))
			}
			return nil
		},
	}
}

func (a *app) replCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl [NAME=VALUE ...]",
		Short: "Start an interactive shell",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := expr.ParseAssignments(args)
			if err != nil {
				return err
			}
			history := a.cfg.REPL.HistoryFile
			if noHistory, _ := cmd.Flags().GetBool("no-history"); noHistory {
				history = ""
			}
			r := repl.New(repl.Options{
				Env:         env,
				Format:      a.format,
				HistoryFile: history,
				Color:       a.cfg.REPL.Color,
				Out:         cmd.OutOrStdout(),
			})
			return r.Run()
		},
	}
	cmd.Flags().Bool("no-history", false, "Do not read or write the history file")
	return cmd
}
