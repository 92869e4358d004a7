// Package api implements the REST API for tokenizing, parsing, optimizing,
// formatting and evaluating boolean expressions, plus CRUD for named
// expressions.
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lemonberrylabs/boolexpr/pkg/expr"
	"github.com/lemonberrylabs/boolexpr/pkg/store"
	"github.com/lemonberrylabs/boolexpr/pkg/suite"
)

// Server is the HTTP API server.
type Server struct {
	app    *fiber.App
	store  *store.Store
	format expr.PrintOptions
}

// New creates a new API server. format is the default pretty-print style
// used in responses; requests may override it.
func New(s *store.Store, format expr.PrintOptions) *Server {
	srv := &Server{
		store:  s,
		format: format,
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	// Language API
	app.Post("/v1/tokenize", srv.tokenize)
	app.Post("/v1/parse", srv.parse)
	app.Post("/v1/evaluate", srv.evaluate)
	app.Post("/v1/optimize", srv.optimize)
	app.Post("/v1/format", srv.formatExpr)

	// Expressions API
	app.Post("/v1/expressions", srv.createExpression)
	app.Get("/v1/expressions", srv.listExpressions)
	app.Get("/v1/expressions/:name", srv.getExpression)
	app.Patch("/v1/expressions/:name", srv.updateExpression)
	app.Delete("/v1/expressions/:name", srv.deleteExpression)
	app.Post("/v1/expressions/:name/evaluate", srv.evaluateExpression)
	app.Get("/v1/expressions/:name/evaluations", srv.listEvaluations)

	srv.app = app
	return srv
}

// Listen starts the HTTP server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

// --- Directory Loading ---

// LoadDir deploys the expressions declared by every .yaml/.yml suite file in
// dir. Files that fail to load and expressions that fail to deploy are logged
// and skipped. It returns the number of expressions deployed.
func (s *Server) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("reading expressions directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".yaml", ".yml":
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	loaded := 0
	for _, name := range files {
		st, err := suite.LoadFile(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("could not load suite", "file", name, "error", err)
			continue
		}
		for _, e := range st.Expressions {
			if _, err := s.store.Create(e.Name, e.Source, st.Name); err != nil {
				slog.Warn("could not deploy expression", "file", name, "expression", e.Name, "error", err)
				continue
			}
			loaded++
			slog.Info("loaded expression", "expression", e.Name, "file", name)
		}
	}

	slog.Info("loaded expressions", "count", loaded, "dir", dir)
	return loaded, nil
}

// --- Errors ---

func apiError(c *fiber.Ctx, code int, status, message string) error {
	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
			"status":  status,
		},
	})
}

// languageError reports a tokenizer, parser, evaluator or record error
// together with its kind and, where known, its position in source.
func languageError(c *fiber.Ctx, err error, source string) error {
	body := fiber.Map{
		"code":    fiber.StatusBadRequest,
		"message": err.Error(),
		"status":  "INVALID_ARGUMENT",
		"kind":    expr.KindOf(err),
	}
	if pos, ok := expr.ErrorPosition(err, source); ok {
		body["line"] = pos.Line
		body["column"] = pos.Column
	}
	var unknown *expr.UnknownVariableError
	if errors.As(err, &unknown) {
		body["variable"] = unknown.Name
		body["suggestions"] = nonNil(unknown.Suggestions)
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": body})
}

// storeError maps store sentinel errors onto HTTP statuses.
func storeError(c *fiber.Ctx, err error, source string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apiError(c, fiber.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, store.ErrAlreadyExists):
		return apiError(c, fiber.StatusConflict, "ALREADY_EXISTS", err.Error())
	case errors.Is(err, store.ErrInvalidName):
		return apiError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
	case expr.KindOf(err) != "":
		return languageError(c, err, source)
	default:
		return apiError(c, fiber.StatusInternalServerError, "INTERNAL", err.Error())
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
