package api

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/lemonberrylabs/boolexpr/pkg/expr"
)

// exprRequest is the body shared by the language endpoints. Exactly one of
// Source and AST should be set; Source wins when both are.
type exprRequest struct {
	Source   string         `json:"source"`
	AST      map[string]any `json:"ast"`
	Env      *expr.Env      `json:"env"`
	Optimize bool           `json:"optimize"`
	Case     string         `json:"case"`
	Parens   string         `json:"parens"`
	Indent   *int           `json:"indent"`
}

// node returns the request's tree.
func (r *exprRequest) node() (expr.Node, error) {
	if r.Source != "" {
		return expr.Parse(r.Source)
	}
	if r.AST != nil {
		return expr.FromRecord(r.AST)
	}
	return nil, errMissingExpression
}

var errMissingExpression = fmt.Errorf("one of source or ast is required")

// printOptions overlays the request's format fields on the server default.
func (s *Server) printOptions(r *exprRequest) (expr.PrintOptions, error) {
	opts := s.format
	if r.Case != "" {
		cs, err := expr.ParseCaseStyle(r.Case)
		if err != nil {
			return opts, err
		}
		opts.Case = cs
	}
	if r.Parens != "" {
		pm, err := expr.ParseParenMode(r.Parens)
		if err != nil {
			return opts, err
		}
		opts.Parens = pm
	}
	if r.Indent != nil {
		if *r.Indent < 0 {
			return opts, fmt.Errorf("indent must not be negative")
		}
		opts.Indent = *r.Indent
	}
	return opts, nil
}

// parseBody decodes the request and builds its tree, writing the error
// response itself on failure. A nil node means a response was written.
func (s *Server) parseBody(c *fiber.Ctx) (*exprRequest, expr.Node, error) {
	var req exprRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, nil, apiError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}
	node, err := req.node()
	if err == errMissingExpression {
		return nil, nil, apiError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
	}
	if err != nil {
		return nil, nil, languageError(c, err, req.Source)
	}
	return &req, node, nil
}

func (s *Server) tokenize(c *fiber.Ctx) error {
	var req exprRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}

	tokens, err := expr.Tokenize(req.Source)
	if err != nil {
		return languageError(c, err, req.Source)
	}

	items := make([]fiber.Map, len(tokens))
	for i, tok := range tokens {
		items[i] = tokenToJSON(tok)
	}
	return c.JSON(fiber.Map{"tokens": items})
}

func (s *Server) parse(c *fiber.Ctx) error {
	req, node, err := s.parseBody(c)
	if node == nil {
		return err
	}
	opts, err := s.printOptions(req)
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
	}
	return c.JSON(fiber.Map{
		"ast":       expr.ToRecord(node),
		"formatted": expr.PrettyPrint(node, opts),
	})
}

func (s *Server) evaluate(c *fiber.Ctx) error {
	req, node, err := s.parseBody(c)
	if node == nil {
		return err
	}
	if req.Optimize {
		node = expr.Optimize(node)
	}

	env := req.Env
	if env == nil {
		env = expr.NewEnv()
	}
	result, err := expr.Evaluate(node, env)
	if err != nil {
		return languageError(c, err, req.Source)
	}
	return c.JSON(fiber.Map{"result": result})
}

func (s *Server) optimize(c *fiber.Ctx) error {
	req, node, err := s.parseBody(c)
	if node == nil {
		return err
	}
	opts, err := s.printOptions(req)
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
	}
	optimized := expr.Optimize(node)
	return c.JSON(fiber.Map{
		"ast":       expr.ToRecord(optimized),
		"formatted": expr.PrettyPrint(optimized, opts),
	})
}

func (s *Server) formatExpr(c *fiber.Ctx) error {
	req, node, err := s.parseBody(c)
	if node == nil {
		return err
	}
	opts, err := s.printOptions(req)
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
	}
	return c.JSON(fiber.Map{"formatted": expr.PrettyPrint(node, opts)})
}

func tokenToJSON(tok expr.Token) fiber.Map {
	m := fiber.Map{
		"type":   tok.Type.String(),
		"text":   tok.Text,
		"line":   tok.Pos.Line,
		"column": tok.Pos.Column,
		"offset": tok.Pos.Offset,
	}
	if tok.Type == expr.TokenBool {
		m["value"] = tok.Value
	}
	return m
}
