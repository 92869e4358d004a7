// Package repl implements the interactive expression shell.
package repl

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/peterh/liner"

	"github.com/lemonberrylabs/boolexpr/pkg/dot"
	"github.com/lemonberrylabs/boolexpr/pkg/expr"
)

const (
	// Prompt is shown before every input line.
	Prompt = "expr> "
	// DefaultDotFile is where :dot writes when no file is given.
	DefaultDotFile = "ast.dot"
)

const helpText = `Commands:
  :ast           show the tree of the last expression
  :tokens        show the tokens of the last expression
  :opt           show the optimized tree and text of the last expression
  :json          show the last expression as JSON
  :dot [FILE]    write the last expression as Graphviz DOT (default ast.dot)
  :fmt           pretty-print the last expression
  :debug on|off  trace parsing, optimization and evaluation
  :env [A=true,B=false]
                 show or update the environment
  :help          show this help
  :quit, :exit   leave the shell

Examples:
  A AND B
  NOT (A OR B)
  :env A=true,B=false,C=true`

var commands = []string{":ast", ":tokens", ":opt", ":json", ":dot", ":fmt", ":debug", ":env", ":help", ":quit", ":exit"}

// Options configures a REPL.
type Options struct {
	Env         *expr.Env
	Format      expr.PrintOptions
	HistoryFile string
	Color       bool
	Out         io.Writer
}

// REPL holds one interactive session.
type REPL struct {
	env         *expr.Env
	format      expr.PrintOptions
	historyFile string
	out         io.Writer
	style       styles

	debug  bool
	logger *slog.Logger

	lastSource string
	lastNode   expr.Node
}

// New creates a session. A nil Env starts empty; a nil Out writes to stdout.
func New(opts Options) *REPL {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	env := opts.Env
	if env == nil {
		env = expr.NewEnv()
	}
	return &REPL{
		env:         env,
		format:      opts.Format,
		historyFile: opts.HistoryFile,
		out:         out,
		style:       newStyles(out, opts.Color),
	}
}

// Env returns the session environment.
func (r *REPL) Env() *expr.Env { return r.env }

// Run reads lines from the terminal until :quit or end of input.
func (r *REPL) Run() error {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(r.Complete)

	if r.historyFile != "" {
		if f, err := os.Open(r.historyFile); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			f, err := os.Create(r.historyFile)
			if err != nil {
				slog.Warn("Could not save history", "file", r.historyFile, "error", err)
				return
			}
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}()
	}

	r.Banner()

	for {
		line, err := ln.Prompt(Prompt)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(r.out)
			return nil
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		if strings.TrimSpace(line) != "" {
			ln.AppendHistory(line)
		}
		if r.HandleLine(line) {
			return nil
		}
	}
}

// Banner prints the greeting and the initial environment.
func (r *REPL) Banner() {
	fmt.Fprintln(r.out, r.style.banner.Render("Boolean expressions (AND, OR, NOT)\nPrecedence: NOT > AND > OR"))
	fmt.Fprintln(r.out, r.style.muted.Render("Type an expression or :help for commands."))
	fmt.Fprintln(r.out, r.style.info.Render("Environment: "+r.env.String()))
}

// HandleLine processes one line of input and reports whether the session
// should end.
func (r *REPL) HandleLine(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if strings.HasPrefix(line, ":") {
		return r.command(line)
	}
	r.evaluate(line)
	return false
}

func (r *REPL) evaluate(source string) {
	r.lastSource = source
	r.lastNode = nil

	tokens, err := expr.Tokenize(source)
	if err != nil {
		r.printError(err, source)
		return
	}
	p := expr.NewParser(tokens)
	p.Logger = r.logger
	node, err := p.Parse()
	if err != nil {
		r.printError(err, source)
		return
	}
	r.lastNode = node

	if r.debug {
		r.heading("AST:")
		fmt.Fprintln(r.out, expr.Dump(node))
	}

	ev := &expr.Evaluator{Scope: r.env, Logger: r.logger}
	result, err := ev.Eval(node)
	if err != nil {
		r.printError(err, source)
		return
	}

	word := expr.PrettyPrint(expr.Lit(result), r.format)
	if result {
		fmt.Fprintln(r.out, r.style.yes.Render("=> "+word))
	} else {
		fmt.Fprintln(r.out, r.style.no.Render("=> "+word))
	}
}

func (r *REPL) command(line string) bool {
	name, args, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
	name = strings.ToLower(strings.TrimSpace(name))
	args = strings.TrimSpace(args)

	switch name {
	case "quit", "exit":
		return true
	case "help":
		fmt.Fprintln(r.out, r.style.info.Render(helpText))
	case "ast":
		if r.requireLast() {
			r.heading("AST:")
			fmt.Fprintln(r.out, expr.Dump(r.lastNode))
		}
	case "tokens":
		r.showTokens()
	case "opt":
		if r.requireLast() {
			opt := &expr.Optimizer{Logger: r.logger}
			optimized := opt.Optimize(r.lastNode)
			r.heading("Optimized AST:")
			fmt.Fprintln(r.out, expr.Dump(optimized))
			r.heading("Optimized expression:")
			fmt.Fprintln(r.out, expr.PrettyPrint(optimized, r.format))
		}
	case "json":
		if r.requireLast() {
			data, err := json.MarshalIndent(expr.ToRecord(r.lastNode), "", "  ")
			if err != nil {
				r.printError(err, "")
				return false
			}
			r.heading("AST JSON:")
			fmt.Fprintln(r.out, string(data))
		}
	case "dot":
		if r.requireLast() {
			r.exportDot(args)
		}
	case "fmt":
		if r.requireLast() {
			fmt.Fprintln(r.out, expr.PrettyPrint(r.lastNode, r.format))
		}
	case "debug":
		r.setDebug(args)
	case "env":
		r.updateEnv(args)
	default:
		fmt.Fprintln(r.out, r.style.err.Render(fmt.Sprintf("unknown command :%s, type :help for help", name)))
	}
	return false
}

func (r *REPL) requireLast() bool {
	if r.lastNode == nil {
		fmt.Fprintln(r.out, r.style.muted.Render("no previous expression"))
		return false
	}
	return true
}

func (r *REPL) showTokens() {
	if r.lastSource == "" {
		fmt.Fprintln(r.out, r.style.muted.Render("no previous expression"))
		return
	}
	tokens, err := expr.Tokenize(r.lastSource)
	if err != nil {
		r.printError(err, r.lastSource)
		return
	}
	r.heading("Tokens:")
	fmt.Fprintln(r.out, expr.DebugTokens(tokens))
}

func (r *REPL) exportDot(path string) {
	if path == "" {
		path = DefaultDotFile
	}
	f, err := os.Create(path)
	if err != nil {
		r.printError(err, "")
		return
	}
	if err := dot.Export(f, r.lastNode, dot.DefaultGraphName); err != nil {
		f.Close()
		r.printError(err, "")
		return
	}
	if err := f.Close(); err != nil {
		r.printError(err, "")
		return
	}
	fmt.Fprintln(r.out, r.style.ok.Render("AST exported to "+path))
}

func (r *REPL) setDebug(arg string) {
	switch strings.ToLower(arg) {
	case "on", "true", "1", "yes":
		r.debug = true
		r.logger = slog.New(slog.NewTextHandler(r.out, &slog.HandlerOptions{Level: slog.LevelDebug}))
		fmt.Fprintln(r.out, r.style.ok.Render("debug mode on"))
	case "off", "false", "0", "no":
		r.debug = false
		r.logger = nil
		fmt.Fprintln(r.out, r.style.ok.Render("debug mode off"))
	default:
		state := "off"
		if r.debug {
			state = "on"
		}
		fmt.Fprintln(r.out, r.style.info.Render("debug mode is "+state))
	}
}

func (r *REPL) updateEnv(args string) {
	if args == "" {
		fmt.Fprintln(r.out, r.style.info.Render("Environment: "+r.env.String()))
		return
	}
	update, err := expr.ParseAssignments(strings.Fields(args))
	if err != nil {
		r.printError(err, "")
		return
	}
	r.env = r.env.Merge(update)
	fmt.Fprintln(r.out, r.style.ok.Render("Environment updated: "+r.env.String()))
}

// Complete offers command names after ':' and keywords or environment
// variables otherwise, completing the last word of line.
func (r *REPL) Complete(line string) []string {
	start := strings.LastIndexAny(line, " ()") + 1
	prefix, word := line[:start], line[start:]
	if word == "" {
		return nil
	}

	var candidates []string
	if start == 0 && strings.HasPrefix(word, ":") {
		candidates = commands
	} else {
		candidates = append([]string{"AND", "OR", "NOT", "TRUE", "FALSE"}, r.env.Names()...)
	}

	var out []string
	for _, c := range candidates {
		if strings.HasPrefix(strings.ToUpper(c), strings.ToUpper(word)) {
			out = append(out, prefix+c)
		}
	}
	sort.Strings(out)
	return out
}

func (r *REPL) heading(s string) {
	fmt.Fprintln(r.out, r.style.heading.Render(s))
}

func (r *REPL) printError(err error, source string) {
	fmt.Fprintln(r.out, r.style.err.Render(expr.Render(err, source)))
}
