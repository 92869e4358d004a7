package expr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Evaluate evaluates an expression node within the given scope.
func Evaluate(node Node, scope Scope) (bool, error) {
	return (&Evaluator{Scope: scope}).Eval(node)
}

// Evaluator evaluates trees against a scope. AND and OR always evaluate both
// operands, so an unknown variable on either side is reported even when the
// other side alone decides the result.
type Evaluator struct {
	Scope Scope

	// Logger, when set, receives a debug record per evaluated node.
	Logger *slog.Logger
}

// Eval evaluates node.
func (e *Evaluator) Eval(node Node) (bool, error) {
	switch n := node.(type) {
	case *BoolLitNode:
		return n.Value, nil
	case *VarNode:
		return e.evalVar(n)
	case *NotNode:
		v, err := e.Eval(n.Operand)
		if err != nil {
			return false, err
		}
		e.step(n, !v)
		return !v, nil
	case *BinaryNode:
		return e.evalBinary(n)
	default:
		return false, fmt.Errorf("unsupported expression node type: %T", node)
	}
}

func (e *Evaluator) evalVar(n *VarNode) (bool, error) {
	if e.Scope != nil {
		if v, ok := e.Scope.Lookup(n.Name); ok {
			e.step(n, v)
			return v, nil
		}
	}
	var names []string
	if e.Scope != nil {
		names = e.Scope.Names()
	}
	return false, &UnknownVariableError{
		Name:        n.Name,
		Suggestions: FindSimilar(n.Name, names, MaxSuggestionDistance),
	}
}

func (e *Evaluator) evalBinary(n *BinaryNode) (bool, error) {
	left, lerr := e.Eval(n.Left)
	right, rerr := e.Eval(n.Right)
	switch {
	case lerr != nil && rerr != nil:
		return false, errors.Join(lerr, rerr)
	case lerr != nil:
		return false, lerr
	case rerr != nil:
		return false, rerr
	}

	var result bool
	switch n.Op {
	case TokenAnd:
		result = left && right
	case TokenOr:
		result = left || right
	default:
		return false, fmt.Errorf("unsupported binary operator: %s", n.Op)
	}
	e.step(n, result)
	return result, nil
}

func (e *Evaluator) step(n Node, v bool) {
	if e.Logger == nil {
		return
	}
	e.Logger.LogAttrs(context.Background(), slog.LevelDebug, "eval",
		slog.String("node", TypeOf(n)),
		slog.Bool("value", v),
	)
}
