package api

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lemonberrylabs/boolexpr/pkg/expr"
	"github.com/lemonberrylabs/boolexpr/pkg/store"
)

type expressionRequest struct {
	Name        string `json:"name"`
	Source      string `json:"source"`
	Description string `json:"description"`
}

func (s *Server) createExpression(c *fiber.Ctx) error {
	var req expressionRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}

	name := c.Query("name", req.Name)
	if name == "" {
		return apiError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "name query parameter is required")
	}
	if req.Source == "" {
		return apiError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "source is required")
	}

	e, err := s.store.Create(name, req.Source, req.Description)
	if err != nil {
		return storeError(c, err, req.Source)
	}
	return c.JSON(s.expressionToJSON(e))
}

func (s *Server) getExpression(c *fiber.Ctx) error {
	e, err := s.store.Get(c.Params("name"))
	if err != nil {
		return storeError(c, err, "")
	}
	return c.JSON(s.expressionToJSON(e))
}

func (s *Server) listExpressions(c *fiber.Ctx) error {
	expressions := s.store.List()

	items := make([]fiber.Map, len(expressions))
	for i, e := range expressions {
		items[i] = s.expressionToJSON(e)
	}
	return c.JSON(fiber.Map{"expressions": items})
}

func (s *Server) updateExpression(c *fiber.Ctx) error {
	var req expressionRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}

	name := c.Params("name")
	source := req.Source
	if source == "" {
		current, err := s.store.Get(name)
		if err != nil {
			return storeError(c, err, "")
		}
		source = current.Source
	}

	e, err := s.store.Update(name, source, req.Description)
	if err != nil {
		return storeError(c, err, source)
	}
	return c.JSON(s.expressionToJSON(e))
}

func (s *Server) deleteExpression(c *fiber.Ctx) error {
	if err := s.store.Delete(c.Params("name")); err != nil {
		return storeError(c, err, "")
	}
	return c.JSON(fiber.Map{})
}

type evaluateRequest struct {
	Env      *expr.Env `json:"env"`
	Optimize bool      `json:"optimize"`
}

func (s *Server) evaluateExpression(c *fiber.Ctx) error {
	var req evaluateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apiError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
		}
	}
	if req.Env == nil {
		req.Env = expr.NewEnv()
	}

	e, err := s.store.Get(c.Params("name"))
	if err != nil {
		return storeError(c, err, "")
	}

	node := e.Node()
	if req.Optimize {
		node = expr.Optimize(node)
	}
	result, evalErr := expr.Evaluate(node, req.Env)
	ev := s.store.RecordEvaluation(e, req.Env, result, evalErr)
	if evalErr != nil {
		return languageError(c, evalErr, e.Source)
	}

	return c.JSON(fiber.Map{
		"id":         ev.ID,
		"expression": e.Name,
		"revision":   e.Revision,
		"result":     result,
	})
}

func (s *Server) listEvaluations(c *fiber.Ctx) error {
	name := c.Params("name")
	if _, err := s.store.Get(name); err != nil {
		return storeError(c, err, "")
	}

	evaluations := s.store.ListEvaluations(name)
	items := make([]fiber.Map, len(evaluations))
	for i, ev := range evaluations {
		items[i] = evaluationToJSON(ev)
	}
	return c.JSON(fiber.Map{"evaluations": items})
}

func (s *Server) expressionToJSON(e *store.Expression) fiber.Map {
	return fiber.Map{
		"id":          e.ID,
		"name":        e.Name,
		"description": e.Description,
		"source":      e.Source,
		"formatted":   expr.PrettyPrint(e.Node(), s.format),
		"ast":         expr.ToRecord(e.Node()),
		"revision":    e.Revision,
		"createTime":  e.CreateTime.Format(time.RFC3339),
		"updateTime":  e.UpdateTime.Format(time.RFC3339),
	}
}

func evaluationToJSON(ev *store.Evaluation) fiber.Map {
	m := fiber.Map{
		"id":       ev.ID,
		"revision": ev.Revision,
		"env":      ev.Env,
		"result":   ev.Result,
		"time":     ev.Time.Format(time.RFC3339),
	}
	if ev.Error != "" {
		m["error"] = fiber.Map{"kind": ev.Kind, "message": ev.Error}
	}
	return m
}
