package expr

import (
	"fmt"
	"strings"
)

// Node type discriminators, shared by the record form.
const (
	TypeVar     = "Var"
	TypeBoolLit = "BoolLit"
	TypeNot     = "Not"
	TypeBinOp   = "BinOp"
)

// Node is the interface for all expression AST nodes. The set of
// implementations is closed: *VarNode, *BoolLitNode, *NotNode, *BinaryNode.
// Nodes are never modified after construction.
type Node interface {
	nodeType() string
}

// VarNode represents a variable reference.
type VarNode struct {
	Name string
}

func (n *VarNode) nodeType() string { return TypeVar }

// BoolLitNode represents a TRUE or FALSE literal.
type BoolLitNode struct {
	Value bool
}

func (n *BoolLitNode) nodeType() string { return TypeBoolLit }

// NotNode represents a logical negation.
type NotNode struct {
	Operand Node
}

func (n *NotNode) nodeType() string { return TypeNot }

// BinaryNode represents a binary operation. Op is TokenAnd or TokenOr.
type BinaryNode struct {
	Op    TokenType
	Left  Node
	Right Node
}

func (n *BinaryNode) nodeType() string { return TypeBinOp }

// Var returns a variable reference node.
func Var(name string) Node { return &VarNode{Name: name} }

// Lit returns a boolean literal node.
func Lit(v bool) Node { return &BoolLitNode{Value: v} }

// Not returns the negation of operand.
func Not(operand Node) Node { return &NotNode{Operand: operand} }

// And returns left AND right.
func And(left, right Node) Node { return &BinaryNode{Op: TokenAnd, Left: left, Right: right} }

// Or returns left OR right.
func Or(left, right Node) Node { return &BinaryNode{Op: TokenOr, Left: left, Right: right} }

// TypeOf returns the discriminator of a node ("Var", "BoolLit", "Not", "BinOp").
func TypeOf(n Node) string {
	if n == nil {
		return ""
	}
	return n.nodeType()
}

// Equal reports whether two trees have the same shape and leaf values.
func Equal(a, b Node) bool {
	switch x := a.(type) {
	case *VarNode:
		y, ok := b.(*VarNode)
		return ok && x.Name == y.Name
	case *BoolLitNode:
		y, ok := b.(*BoolLitNode)
		return ok && x.Value == y.Value
	case *NotNode:
		y, ok := b.(*NotNode)
		return ok && Equal(x.Operand, y.Operand)
	case *BinaryNode:
		y, ok := b.(*BinaryNode)
		return ok && x.Op == y.Op && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case nil:
		return b == nil
	default:
		return false
	}
}

// Dump renders the tree one node per line, children indented by two spaces:
//
//	BinOp AND
//	  Var A
//	  Not
//	    BoolLit TRUE
func Dump(n Node) string {
	var sb strings.Builder
	dump(&sb, n, 0)
	return strings.TrimSuffix(sb.String(), "\n")
}

func dump(sb *strings.Builder, n Node, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	switch x := n.(type) {
	case *VarNode:
		fmt.Fprintf(sb, "Var %s\n", x.Name)
	case *BoolLitNode:
		fmt.Fprintf(sb, "BoolLit %s\n", boolKeyword(x.Value))
	case *NotNode:
		sb.WriteString("Not\n")
		dump(sb, x.Operand, depth+1)
	case *BinaryNode:
		fmt.Fprintf(sb, "BinOp %s\n", x.Op)
		dump(sb, x.Left, depth+1)
		dump(sb, x.Right, depth+1)
	default:
		fmt.Fprintf(sb, "<invalid %T>\n", n)
	}
}

func boolKeyword(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}
