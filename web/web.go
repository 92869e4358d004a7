// Package web provides the embedded web UI for the boolexpr server.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"

	"github.com/lemonberrylabs/boolexpr/pkg/dot"
	"github.com/lemonberrylabs/boolexpr/pkg/expr"
	"github.com/lemonberrylabs/boolexpr/pkg/store"
)

//go:embed templates/*.html
var templateFS embed.FS

// Handler serves the web UI pages.
type Handler struct {
	store   *store.Store
	format  expr.PrintOptions
	funcMap template.FuncMap
}

// pageData wraps all page-specific data with common fields.
type pageData struct {
	NavActive string
	Data      interface{}
}

// New creates a new web UI handler.
func New(s *store.Store, format expr.PrintOptions) *Handler {
	return &Handler{
		store:  s,
		format: format,
		funcMap: template.FuncMap{
			"timeAgo":     timeAgo,
			"formatTime":  formatTime,
			"resultClass": resultClass,
			"resultText":  resultText,
			"truncate":    truncate,
			"countLines":  countLines,
		},
	}
}

func (h *Handler) render(c *fiber.Ctx, page string, navActive string, data interface{}) error {
	// Each page is parsed alongside the layout on its own so that "content"
	// blocks from different pages never collide.
	tmpl := template.Must(
		template.New("").Funcs(h.funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+page),
	)

	pd := pageData{
		NavActive: navActive,
		Data:      data,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, page, pd); err != nil {
		return c.Status(500).SendString(fmt.Sprintf("template error: %v", err))
	}

	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.Send(buf.Bytes())
}

// Register adds web UI routes to the Fiber app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/ui", h.dashboard)
	app.Get("/ui/expressions/:name", h.expressionDetail)
	app.Get("/ui/playground", h.playground)

	// Redirect root to UI
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/ui")
	})
}

// --- Page Data Types ---

type dashboardContent struct {
	Expressions     []*expressionView
	EvaluationCount int
	FailedCount     int
}

type expressionView struct {
	*store.Expression
	Formatted       string
	EvaluationCount int
	LastEvaluation  *store.Evaluation
}

type expressionDetailContent struct {
	Expression  *store.Expression
	Formatted   string
	Optimized   string
	Tree        string
	Graph       string
	Evaluations []*store.Evaluation
}

// playgroundContent carries one playground run. Stages after a failing one
// are left empty.
type playgroundContent struct {
	Source    string
	EnvText   string
	Case      string
	Parens    string
	Tokens    []expr.Token
	Tree      string
	Formatted string
	Optimized string
	Ran       bool
	Result    bool
	ErrorKind string
	Error     string
}

type notFoundContent struct {
	Message string
}

// --- Page Handlers ---

func (h *Handler) dashboard(c *fiber.Ctx) error {
	expressions := h.store.List()

	content := dashboardContent{}
	for _, e := range expressions {
		evals := h.store.ListEvaluations(e.Name)
		view := &expressionView{
			Expression:      e,
			Formatted:       expr.PrettyPrint(e.Node(), h.format),
			EvaluationCount: len(evals),
		}
		if len(evals) > 0 {
			view.LastEvaluation = evals[0]
		}
		for _, ev := range evals {
			if ev.Error != "" {
				content.FailedCount++
			}
		}
		content.EvaluationCount += len(evals)
		content.Expressions = append(content.Expressions, view)
	}

	return h.render(c, "dashboard.html", "dashboard", content)
}

func (h *Handler) expressionDetail(c *fiber.Ctx) error {
	name := c.Params("name")

	e, err := h.store.Get(name)
	if err != nil {
		c.Status(fiber.StatusNotFound)
		return h.render(c, "not_found.html", "", notFoundContent{
			Message: fmt.Sprintf("Expression '%s' not found", name),
		})
	}

	graph, err := dot.String(e.Node(), e.Name)
	if err != nil {
		graph = err.Error()
	}

	return h.render(c, "expression_detail.html", "dashboard", expressionDetailContent{
		Expression:  e,
		Formatted:   expr.PrettyPrint(e.Node(), h.format),
		Optimized:   expr.PrettyPrint(expr.Optimize(e.Node()), h.format),
		Tree:        expr.Dump(e.Node()),
		Graph:       graph,
		Evaluations: h.store.ListEvaluations(e.Name),
	})
}

func (h *Handler) playground(c *fiber.Ctx) error {
	content := playgroundContent{
		Source:  c.Query("source"),
		EnvText: c.Query("env"),
		Case:    c.Query("case", h.format.Case.String()),
		Parens:  c.Query("parens", h.format.Parens.String()),
	}
	if strings.TrimSpace(content.Source) != "" {
		h.runPlayground(&content)
	}
	return h.render(c, "playground.html", "playground", content)
}

func (h *Handler) runPlayground(p *playgroundContent) {
	fail := func(err error) {
		p.ErrorKind = expr.KindOf(err)
		p.Error = expr.Render(err, p.Source)
	}

	opts := h.format
	if cs, err := expr.ParseCaseStyle(p.Case); err == nil {
		opts.Case = cs
	}
	if pm, err := expr.ParseParenMode(p.Parens); err == nil {
		opts.Parens = pm
	}

	tokens, err := expr.Tokenize(p.Source)
	if err != nil {
		fail(err)
		return
	}
	p.Tokens = tokens

	node, err := expr.ParseTokens(tokens)
	if err != nil {
		fail(err)
		return
	}
	p.Tree = expr.Dump(node)
	p.Formatted = expr.PrettyPrint(node, opts)
	p.Optimized = expr.PrettyPrint(expr.Optimize(node), opts)

	env := expr.NewEnv()
	if strings.TrimSpace(p.EnvText) != "" {
		env, err = expr.ParseAssignments([]string{p.EnvText})
		if err != nil {
			p.ErrorKind = "InvalidEnvironment"
			p.Error = err.Error()
			return
		}
	}

	result, err := expr.Evaluate(node, env)
	if err != nil {
		fail(err)
		return
	}
	p.Ran = true
	p.Result = result
}

// --- Template Helpers ---

func timeAgo(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		m := int(d.Minutes())
		if m == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", m)
	case d < 24*time.Hour:
		h := int(d.Hours())
		if h == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", h)
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func resultClass(ev *store.Evaluation) string {
	switch {
	case ev == nil:
		return ""
	case ev.Error != "":
		return "result-error"
	case ev.Result:
		return "result-true"
	default:
		return "result-false"
	}
}

func resultText(ev *store.Evaluation) string {
	switch {
	case ev == nil:
		return "-"
	case ev.Error != "":
		return ev.Kind
	case ev.Result:
		return "TRUE"
	default:
		return "FALSE"
	}
}

// truncate shortens s to at most maxLen characters.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
