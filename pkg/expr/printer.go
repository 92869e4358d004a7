package expr

import (
	"fmt"
	"strings"
)

// CaseStyle selects how keywords and literals are spelled.
type CaseStyle int

const (
	CaseUpper CaseStyle = iota // AND, TRUE
	CaseLower                  // and, true
	CaseMixed                  // And, True
)

func (c CaseStyle) String() string {
	switch c {
	case CaseUpper:
		return "upper"
	case CaseLower:
		return "lower"
	case CaseMixed:
		return "mixed"
	default:
		return fmt.Sprintf("CaseStyle(%d)", int(c))
	}
}

// ParseCaseStyle parses "upper", "lower" or "mixed".
func ParseCaseStyle(s string) (CaseStyle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "upper", "":
		return CaseUpper, nil
	case "lower":
		return CaseLower, nil
	case "mixed", "title":
		return CaseMixed, nil
	default:
		return CaseUpper, fmt.Errorf("unknown case style %q (want upper, lower or mixed)", s)
	}
}

// ParenMode selects where parentheses are emitted.
type ParenMode int

const (
	// ParensMinimal emits only the parentheses needed to keep the tree shape.
	ParensMinimal ParenMode = iota
	// ParensAlways wraps every binary operation and every non-leaf NOT operand.
	ParensAlways
	// ParensNever emits no parentheses. The output is for display only and may
	// not parse back to the same tree.
	ParensNever
)

func (m ParenMode) String() string {
	switch m {
	case ParensMinimal:
		return "minimal"
	case ParensAlways:
		return "always"
	case ParensNever:
		return "never"
	default:
		return fmt.Sprintf("ParenMode(%d)", int(m))
	}
}

// ParseParenMode parses "minimal", "always" or "never".
func ParseParenMode(s string) (ParenMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimal", "":
		return ParensMinimal, nil
	case "always":
		return ParensAlways, nil
	case "never":
		return ParensNever, nil
	default:
		return ParensMinimal, fmt.Errorf("unknown paren mode %q (want minimal, always or never)", s)
	}
}

// PrintOptions configures PrettyPrint. The zero value prints upper-case
// keywords, minimal parentheses, on a single line.
type PrintOptions struct {
	Case   CaseStyle
	Parens ParenMode
	// Indent is the number of spaces per nesting level. Zero prints on one
	// line; otherwise a line break precedes every binary operator.
	Indent int
}

// Binding strength, low to high.
const (
	precOr   = 1
	precAnd  = 2
	precNot  = 3
	precLeaf = 4
)

func precedence(n Node) int {
	switch x := n.(type) {
	case *BinaryNode:
		if x.Op == TokenOr {
			return precOr
		}
		return precAnd
	case *NotNode:
		return precNot
	default:
		return precLeaf
	}
}

// PrettyPrint renders node as source text. With ParensMinimal or ParensAlways
// the output parses back to a tree equal to node.
func PrettyPrint(node Node, opts PrintOptions) string {
	p := printer{opts: opts}
	return strings.Join(p.lines(node), "\n")
}

type printer struct {
	opts PrintOptions
}

func (p *printer) keyword(word string) string {
	switch p.opts.Case {
	case CaseLower:
		return strings.ToLower(word)
	case CaseMixed:
		return word[:1] + strings.ToLower(word[1:])
	default:
		return word
	}
}

// lines renders node. Outside of indented mode the result is always a single
// line.
func (p *printer) lines(n Node) []string {
	switch x := n.(type) {
	case *VarNode:
		return []string{x.Name}
	case *BoolLitNode:
		return []string{p.keyword(boolKeyword(x.Value))}
	case *NotNode:
		return p.notLines(x)
	case *BinaryNode:
		return p.binaryLines(x)
	default:
		return []string{fmt.Sprintf("<invalid %T>", n)}
	}
}

func (p *printer) notLines(n *NotNode) []string {
	operand := p.lines(n.Operand)
	var wrap bool
	switch p.opts.Parens {
	case ParensMinimal:
		_, wrap = n.Operand.(*BinaryNode)
	case ParensAlways:
		// binary operands come back already wrapped
		_, wrap = n.Operand.(*NotNode)
	}
	if wrap {
		operand = p.group(operand)
	}
	return append([]string{p.keyword("NOT") + " " + operand[0]}, operand[1:]...)
}

func (p *printer) binaryLines(n *BinaryNode) []string {
	prec := precedence(n)
	left := p.lines(n.Left)
	right := p.lines(n.Right)

	if p.opts.Parens == ParensMinimal {
		if precedence(n.Left) < prec {
			left = p.group(left)
		}
		if precedence(n.Right) <= prec {
			right = p.group(right)
		}
	}

	op := p.keyword(n.Op.String())
	out := make([]string, 0, len(left)+len(right))
	out = append(out, left...)
	out = append(out, op+" "+right[0])
	out = append(out, right[1:]...)
	if p.opts.Indent <= 0 {
		out = []string{strings.Join(out, " ")}
	}

	if p.opts.Parens == ParensAlways {
		out = p.group(out)
	}
	return out
}

// group wraps rendered lines in parentheses. In indented mode the contents
// move to their own lines, one level deeper.
func (p *printer) group(inner []string) []string {
	if p.opts.Indent <= 0 {
		return []string{"(" + strings.Join(inner, " ") + ")"}
	}
	pad := strings.Repeat(" ", p.opts.Indent)
	out := make([]string, 0, len(inner)+2)
	out = append(out, "(")
	for _, line := range inner {
		out = append(out, pad+line)
	}
	return append(out, ")")
}
