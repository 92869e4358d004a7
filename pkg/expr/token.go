// Package expr implements the boolean expression language: tokenizer, parser,
// AST, constant-folding optimizer, evaluator, pretty-printer and the record
// form used to serialize trees. Everything in this package is a pure function
// over immutable inputs and is safe to call from multiple goroutines.
package expr

import (
	"fmt"
	"strings"
)

// TokenType represents the type of a lexical token.
type TokenType int

const (
	TokenIdent  TokenType = iota // identifier (variable name)
	TokenBool                    // TRUE / FALSE
	TokenAnd                     // AND
	TokenOr                      // OR
	TokenNot                     // NOT
	TokenLParen                  // (
	TokenRParen                  // )
	TokenEOF                     // end of input
)

// String returns a debug-friendly representation of the token type.
func (t TokenType) String() string {
	switch t {
	case TokenIdent:
		return "IDENT"
	case TokenBool:
		return "BOOL"
	case TokenAnd:
		return "AND"
	case TokenOr:
		return "OR"
	case TokenNot:
		return "NOT"
	case TokenLParen:
		return "LPAREN"
	case TokenRParen:
		return "RPAREN"
	case TokenEOF:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}

// Position is a location in source text. Line and Column are 1-based and
// Column counts characters, not bytes. Offset is the 0-based byte offset.
type Position struct {
	Line   int
	Column int
	Offset int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token represents a single lexical token.
type Token struct {
	Type  TokenType
	Text  string // raw lexeme as written; empty for parentheses and EOF
	Value bool   // decoded value (for TokenBool)
	Pos   Position
}

// Display returns the textual form used in error messages.
func (t Token) Display() string {
	switch t.Type {
	case TokenLParen:
		return "("
	case TokenRParen:
		return ")"
	case TokenEOF:
		return "end of input"
	default:
		return t.Text
	}
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF@" + t.Pos.String()
	}
	return fmt.Sprintf("%s(%q)@%s", t.Type, t.Display(), t.Pos)
}

// DebugTokens renders a token sequence on one line, e.g.
// IDENT("A")@1:1, AND("and")@1:3, EOF@1:6.
func DebugTokens(tokens []Token) string {
	parts := make([]string, len(tokens))
	for i, tok := range tokens {
		parts[i] = tok.String()
	}
	return strings.Join(parts, ", ")
}
