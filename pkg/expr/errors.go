package expr

import (
	"errors"
	"fmt"
	"strings"
)

// Error kind names. They double as the "kind" field of API error payloads.
const (
	KindLexical            = "LexicalError"
	KindUnexpectedToken    = "UnexpectedTokenError"
	KindMissingParenthesis = "MissingParenthesisError"
	KindMissingOperand     = "MissingOperandError"
	KindEndOfInput         = "EndOfInputError"
	KindUnknownVariable    = "UnknownVariableError"
	KindFormat             = "FormatError"
)

var (
	// ErrLexical matches every *LexicalError via errors.Is.
	ErrLexical = errors.New("lexical error")
	// ErrSyntax matches every parse-time error via errors.Is.
	ErrSyntax = errors.New("syntax error")
)

// Located is implemented by errors that point at a place in the source.
type Located interface {
	error
	Position() Position
}

// LexicalError reports a character that does not start any token.
type LexicalError struct {
	Char rune
	Pos  Position
}

func (e *LexicalError) Error() string {
	return fmt.Sprintf("unexpected character %q at %s", e.Char, e.Pos)
}

func (e *LexicalError) Kind() string         { return KindLexical }
func (e *LexicalError) Position() Position   { return e.Pos }
func (e *LexicalError) Is(target error) bool { return target == ErrLexical }

// UnexpectedTokenError reports a token that no grammar rule accepts at its
// position, including trailing input after a complete expression.
type UnexpectedTokenError struct {
	Expected string
	Found    Token
}

func (e *UnexpectedTokenError) Error() string {
	return fmt.Sprintf("unexpected token '%s' at %s, expected %s", e.Found.Display(), e.Found.Pos, e.Expected)
}

func (e *UnexpectedTokenError) Kind() string         { return KindUnexpectedToken }
func (e *UnexpectedTokenError) Position() Position   { return e.Found.Pos }
func (e *UnexpectedTokenError) Is(target error) bool { return target == ErrSyntax }

// MissingParenthesisError reports a '(' that is never closed. Open is the
// position of the opening parenthesis; Found is the token seen instead of ')'.
type MissingParenthesisError struct {
	Open  Position
	Found Token
}

func (e *MissingParenthesisError) Error() string {
	return fmt.Sprintf("missing ')' for '(' opened at %s, found '%s' at %s", e.Open, e.Found.Display(), e.Found.Pos)
}

func (e *MissingParenthesisError) Kind() string         { return KindMissingParenthesis }
func (e *MissingParenthesisError) Position() Position   { return e.Open }
func (e *MissingParenthesisError) Is(target error) bool { return target == ErrSyntax }

// MissingOperandError reports an operator with no operand after it.
type MissingOperandError struct {
	Operator    TokenType
	OperatorPos Position
	Found       Token
}

func (e *MissingOperandError) Error() string {
	return fmt.Sprintf("missing operand for '%s' at %s, found '%s'", e.Operator, e.OperatorPos, e.Found.Display())
}

func (e *MissingOperandError) Kind() string         { return KindMissingOperand }
func (e *MissingOperandError) Position() Position   { return e.OperatorPos }
func (e *MissingOperandError) Is(target error) bool { return target == ErrSyntax }

// EndOfInputError reports input that ends where more was required.
type EndOfInputError struct {
	Expected string
	Pos      Position
}

func (e *EndOfInputError) Error() string {
	return fmt.Sprintf("unexpected end of input at %s, expected %s", e.Pos, e.Expected)
}

func (e *EndOfInputError) Kind() string         { return KindEndOfInput }
func (e *EndOfInputError) Position() Position   { return e.Pos }
func (e *EndOfInputError) Is(target error) bool { return target == ErrSyntax }

// UnknownVariableError reports a variable missing from the evaluation scope.
type UnknownVariableError struct {
	Name        string
	Suggestions []string
}

func (e *UnknownVariableError) Error() string {
	msg := fmt.Sprintf("unknown variable '%s'", e.Name)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(e.Suggestions, ", "))
	}
	return msg
}

func (e *UnknownVariableError) Kind() string { return KindUnknownVariable }

// FormatError reports a malformed serialized record. Path locates the bad
// record, e.g. "$.left.operand".
type FormatError struct {
	Path   string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid expression record at %s: %s", e.Path, e.Reason)
}

func (e *FormatError) Kind() string { return KindFormat }

// KindOf returns the kind name of the first error in err's chain that belongs
// to this package, or "" if there is none.
func KindOf(err error) string {
	var k interface{ Kind() string }
	if errors.As(err, &k) {
		return k.Kind()
	}
	return ""
}

// Render formats err against the source it came from, GCC style:
//
//	MissingOperandError: missing operand for 'AND' at 1:3, found 'end of input'
//	  --> 1:3
//	>>>    1 | A AND
//	       |   ^
//
// Errors without a position fall back to "Kind: message".
func Render(err error, source string) string {
	if err == nil {
		return ""
	}
	head := err.Error()
	if kind := KindOf(err); kind != "" {
		head = kind + ": " + head
	}

	pos, ok := ErrorPosition(err, source)
	if !ok {
		return head
	}

	lines := strings.Split(source, "\n")
	idx := pos.Line - 1
	if idx < 0 || idx >= len(lines) {
		return head
	}

	var sb strings.Builder
	sb.WriteString(head)
	fmt.Fprintf(&sb, "\n  --> %s", pos)
	from := max(0, idx-2)
	to := min(len(lines), idx+3)
	for i := from; i < to; i++ {
		marker := "   "
		if i == idx {
			marker = ">>>"
		}
		fmt.Fprintf(&sb, "\n%s %4d | %s", marker, i+1, strings.TrimRight(lines[i], "\r"))
		if i == idx {
			fmt.Fprintf(&sb, "\n       | %s^", strings.Repeat(" ", max(0, pos.Column-1)))
		}
	}
	return sb.String()
}

// ErrorPosition returns where err points in source. Unknown variables are
// located at their first occurrence.
func ErrorPosition(err error, source string) (Position, bool) {
	var located Located
	if errors.As(err, &located) {
		return located.Position(), true
	}
	var unknown *UnknownVariableError
	if errors.As(err, &unknown) {
		return findIdent(source, unknown.Name)
	}
	return Position{}, false
}

// findIdent returns the position of the first IDENT token spelled name.
func findIdent(source, name string) (Position, bool) {
	tokens, err := Tokenize(source)
	if err != nil {
		return Position{}, false
	}
	for _, tok := range tokens {
		if tok.Type == TokenIdent && tok.Text == name {
			return tok.Pos, true
		}
	}
	return Position{}, false
}
