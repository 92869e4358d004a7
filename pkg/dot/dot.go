// Package dot renders expression trees in Graphviz DOT format.
package dot

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/lemonberrylabs/boolexpr/pkg/expr"
)

// DefaultGraphName is used when Export is given an empty name.
const DefaultGraphName = "AST"

var plainID = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Export writes node as a digraph. Nodes are numbered n1, n2, ... in
// pre-order; a ROOT ellipse points at the top of the tree.
func Export(w io.Writer, node expr.Node, graphName string) error {
	if node == nil {
		return fmt.Errorf("dot: nil expression")
	}
	if graphName == "" {
		graphName = DefaultGraphName
	}

	bw := bufio.NewWriter(w)
	e := &exporter{w: bw}

	fmt.Fprintf(bw, "digraph %s {\n", graphID(graphName))
	bw.WriteString("  node [shape=box, style=rounded];\n")
	bw.WriteString("  edge [fontsize=10];\n\n")

	rootID := e.visit(node)

	bw.WriteString("  root [label=\"ROOT\", shape=ellipse, style=filled, fillcolor=lightblue];\n")
	fmt.Fprintf(bw, "  root -> n%d;\n", rootID)
	bw.WriteString("}\n")
	return bw.Flush()
}

// String returns the DOT text for node.
func String(node expr.Node, graphName string) (string, error) {
	var sb strings.Builder
	if err := Export(&sb, node, graphName); err != nil {
		return "", err
	}
	return sb.String(), nil
}

type exporter struct {
	w     *bufio.Writer
	count int
}

func (e *exporter) visit(node expr.Node) int {
	e.count++
	id := e.count

	switch n := node.(type) {
	case *expr.VarNode:
		fmt.Fprintf(e.w, "  n%d [label=\"Var\\n%s\"];\n", id, escape(n.Name))
	case *expr.BoolLitNode:
		value := "FALSE"
		if n.Value {
			value = "TRUE"
		}
		fmt.Fprintf(e.w, "  n%d [label=\"BoolLit\\n%s\", fillcolor=lightgreen, style=\"rounded,filled\"];\n", id, value)
	case *expr.NotNode:
		fmt.Fprintf(e.w, "  n%d [label=\"NOT\", fillcolor=lightyellow, style=\"rounded,filled\"];\n", id)
		child := e.visit(n.Operand)
		fmt.Fprintf(e.w, "  n%d -> n%d [label=\"operand\"];\n", id, child)
	case *expr.BinaryNode:
		color := "lightcoral"
		if n.Op == expr.TokenOr {
			color = "lightcyan"
		}
		fmt.Fprintf(e.w, "  n%d [label=\"%s\", fillcolor=%s, style=\"rounded,filled\"];\n", id, n.Op, color)
		left := e.visit(n.Left)
		right := e.visit(n.Right)
		fmt.Fprintf(e.w, "  n%d -> n%d [label=\"left\"];\n", id, left)
		fmt.Fprintf(e.w, "  n%d -> n%d [label=\"right\"];\n", id, right)
	default:
		fmt.Fprintf(e.w, "  n%d [label=\"%s\"];\n", id, escape(fmt.Sprintf("%T", node)))
	}
	return id
}

func escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return strings.ReplaceAll(s, "\n", `\n`)
}

func graphID(name string) string {
	if plainID.MatchString(name) {
		return name
	}
	return `"` + escape(name) + `"`
}
