package expr

import (
	"context"
	"log/slog"
)

// Optimize folds constants bottom-up and returns a new tree. The input is
// left untouched.
func Optimize(node Node) Node {
	return (&Optimizer{}).Optimize(node)
}

// Optimizer performs constant folding:
//
//	NOT TRUE          -> FALSE
//	NOT FALSE         -> TRUE
//	NOT NOT x         -> x
//	TRUE AND x        -> x        (either side)
//	FALSE AND x       -> FALSE    (either side)
//	TRUE OR x         -> TRUE     (either side)
//	FALSE OR x        -> x        (either side)
//
// Children are optimized before their parent, so one pass reaches a fixed
// point.
type Optimizer struct {
	// Logger, when set, receives a debug record for every applied rewrite.
	Logger *slog.Logger
}

// Optimize returns the folded form of node.
func (o *Optimizer) Optimize(node Node) Node {
	switch n := node.(type) {
	case *VarNode:
		return &VarNode{Name: n.Name}
	case *BoolLitNode:
		return &BoolLitNode{Value: n.Value}
	case *NotNode:
		return o.optimizeNot(n)
	case *BinaryNode:
		return o.optimizeBinary(n)
	default:
		return node
	}
}

func (o *Optimizer) optimizeNot(n *NotNode) Node {
	operand := o.Optimize(n.Operand)
	switch x := operand.(type) {
	case *BoolLitNode:
		o.rewrite("not-literal", n)
		return &BoolLitNode{Value: !x.Value}
	case *NotNode:
		o.rewrite("double-negation", n)
		return x.Operand
	}
	return &NotNode{Operand: operand}
}

func (o *Optimizer) optimizeBinary(n *BinaryNode) Node {
	left := o.Optimize(n.Left)
	right := o.Optimize(n.Right)

	// absorbing is the literal that decides the result on its own; the other
	// literal is the identity element.
	absorbing := n.Op == TokenOr
	if lit, ok := left.(*BoolLitNode); ok {
		if lit.Value == absorbing {
			o.rewrite("annihilate", n)
			return &BoolLitNode{Value: absorbing}
		}
		o.rewrite("identity", n)
		return right
	}
	if lit, ok := right.(*BoolLitNode); ok {
		if lit.Value == absorbing {
			o.rewrite("annihilate", n)
			return &BoolLitNode{Value: absorbing}
		}
		o.rewrite("identity", n)
		return left
	}
	return &BinaryNode{Op: n.Op, Left: left, Right: right}
}

func (o *Optimizer) rewrite(rule string, n Node) {
	if o.Logger == nil {
		return
	}
	o.Logger.LogAttrs(context.Background(), slog.LevelDebug, "optimize",
		slog.String("rule", rule),
		slog.String("node", TypeOf(n)),
	)
}
