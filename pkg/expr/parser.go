package expr

import (
	"context"
	"log/slog"
)

const expectedOperand = "identifier, TRUE, FALSE, NOT or '('"

// Parser is a recursive descent parser over a token sequence.
//
// Precedence (low to high):
//
//	OR
//	AND
//	NOT (prefix, right-associative)
//	identifier, literal, parenthesized expression
type Parser struct {
	tokens []Token
	pos    int

	// Logger, when set, receives a debug record for every grammar rule entered
	// and every node built.
	Logger *slog.Logger
}

// NewParser creates a parser over tokens. The sequence should end with an
// EOF token, as produced by Tokenize; a missing EOF is treated as present.
func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse tokenizes and parses a complete expression.
func Parse(source string) (Node, error) {
	tokens, err := Tokenize(source)
	if err != nil {
		return nil, err
	}
	return NewParser(tokens).Parse()
}

// ParseTokens parses an already tokenized expression.
func ParseTokens(tokens []Token) (Node, error) {
	return NewParser(tokens).Parse()
}

// Parse parses one expression and requires that it spans the whole input.
func (p *Parser) Parse() (Node, error) {
	p.trace("expression")
	node, err := p.parseOr(nil)
	if err != nil {
		return nil, err
	}

	if p.current().Type != TokenEOF {
		return nil, &UnexpectedTokenError{Expected: "end of input", Found: p.current()}
	}
	return node, nil
}

// current returns the current token.
func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return p.eof()
	}
	return p.tokens[p.pos]
}

// peek returns the token after the current one without consuming anything.
func (p *Parser) peek() Token {
	if p.pos+1 >= len(p.tokens) {
		return p.eof()
	}
	return p.tokens[p.pos+1]
}

// advance consumes the current token and returns it. EOF is never consumed.
func (p *Parser) advance() Token {
	tok := p.current()
	if tok.Type != TokenEOF {
		p.pos++
	}
	return tok
}

func (p *Parser) eof() Token {
	if n := len(p.tokens); n > 0 {
		last := p.tokens[n-1]
		if last.Type == TokenEOF {
			return last
		}
		return Token{Type: TokenEOF, Pos: last.Pos}
	}
	return Token{Type: TokenEOF, Pos: Position{Line: 1, Column: 1}}
}

// The op argument threaded through the rules below is the operator token
// that demanded the operand being parsed, or nil at the start of the input
// and directly after '('. It decides between MissingOperandError and the
// generic unexpected-token / end-of-input errors.

func (p *Parser) parseOr(op *Token) (Node, error) {
	p.trace("or")
	left, err := p.parseAnd(op)
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenOr {
		opTok := p.advance()
		right, err := p.parseAnd(&opTok)
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{Op: TokenOr, Left: left, Right: right}
		p.reduce(left)
	}
	return left, nil
}

func (p *Parser) parseAnd(op *Token) (Node, error) {
	p.trace("and")
	left, err := p.parseNotExpr(op)
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenAnd {
		opTok := p.advance()
		right, err := p.parseNotExpr(&opTok)
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{Op: TokenAnd, Left: left, Right: right}
		p.reduce(left)
	}
	return left, nil
}

func (p *Parser) parseNotExpr(op *Token) (Node, error) {
	p.trace("not")
	if p.current().Type == TokenNot {
		opTok := p.advance()
		operand, err := p.parseNotExpr(&opTok)
		if err != nil {
			return nil, err
		}
		node := &NotNode{Operand: operand}
		p.reduce(node)
		return node, nil
	}
	return p.parsePrimary(op)
}

func (p *Parser) parsePrimary(op *Token) (Node, error) {
	p.trace("primary")
	tok := p.current()

	switch tok.Type {
	case TokenIdent:
		p.advance()
		return &VarNode{Name: tok.Text}, nil
	case TokenBool:
		p.advance()
		return &BoolLitNode{Value: tok.Value}, nil
	case TokenLParen:
		open := p.advance()
		inner, err := p.parseOr(nil)
		if err != nil {
			return nil, err
		}
		if p.current().Type != TokenRParen {
			return nil, &MissingParenthesisError{Open: open.Pos, Found: p.current()}
		}
		p.advance()
		return inner, nil
	}

	if op != nil {
		return nil, &MissingOperandError{Operator: op.Type, OperatorPos: op.Pos, Found: tok}
	}
	if tok.Type == TokenEOF {
		return nil, &EndOfInputError{Expected: expectedOperand, Pos: tok.Pos}
	}
	return nil, &UnexpectedTokenError{Expected: expectedOperand, Found: tok}
}

func (p *Parser) trace(rule string) {
	if p.Logger == nil {
		return
	}
	p.Logger.LogAttrs(context.Background(), slog.LevelDebug, "parse rule",
		slog.String("rule", rule),
		slog.String("token", p.current().String()),
		slog.String("next", p.peek().Type.String()),
	)
}

func (p *Parser) reduce(n Node) {
	if p.Logger == nil {
		return
	}
	p.Logger.LogAttrs(context.Background(), slog.LevelDebug, "parse reduce",
		slog.String("node", TypeOf(n)),
	)
}
