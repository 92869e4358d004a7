package expr

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// keywords maps the upper-cased spelling of every reserved word to its type.
var keywords = map[string]TokenType{
	"AND":   TokenAnd,
	"OR":    TokenOr,
	"NOT":   TokenNot,
	"TRUE":  TokenBool,
	"FALSE": TokenBool,
}

// LexerOption configures a Lexer.
type LexerOption func(*Lexer)

// WithComments controls whether '#' starts a line comment. When disabled a
// '#' is reported as an unexpected character.
func WithComments(enabled bool) LexerOption {
	return func(l *Lexer) { l.comments = enabled }
}

// Lexer tokenizes boolean expression source text.
type Lexer struct {
	input    string
	pos      int // byte offset
	line     int
	col      int
	comments bool
	tokens   []Token
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string, opts ...LexerOption) *Lexer {
	l := &Lexer{input: input, line: 1, col: 1, comments: true}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Tokenize is shorthand for NewLexer(source).Tokenize().
func Tokenize(source string) ([]Token, error) {
	return NewLexer(source).Tokenize()
}

// Tokenize scans the entire input and returns all tokens, terminated by EOF.
func (l *Lexer) Tokenize() ([]Token, error) {
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		l.tokens = append(l.tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}
	return l.tokens, nil
}

// next returns the next token from the input.
func (l *Lexer) next() (Token, error) {
	l.skipTrivia()

	start := l.position()
	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: start}, nil
	}

	ch := l.input[l.pos]
	switch ch {
	case '(':
		l.advance()
		return Token{Type: TokenLParen, Pos: start}, nil
	case ')':
		l.advance()
		return Token{Type: TokenRParen, Pos: start}, nil
	}

	if isIdentStart(ch) {
		return l.readIdentifier(start), nil
	}

	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return Token{}, &LexicalError{Char: r, Pos: start}
}

// readIdentifier reads an identifier or keyword.
func (l *Lexer) readIdentifier(start Position) Token {
	for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
		l.advance()
	}

	word := l.input[start.Offset:l.pos]
	tt, ok := keywords[strings.ToUpper(word)]
	if !ok {
		return Token{Type: TokenIdent, Text: word, Pos: start}
	}
	tok := Token{Type: tt, Text: word, Pos: start}
	if tt == TokenBool {
		tok.Value = strings.EqualFold(word, "TRUE")
	}
	return tok
}

// skipTrivia skips whitespace and, when enabled, '#' comments.
func (l *Lexer) skipTrivia() {
	for l.pos < len(l.input) {
		r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
		switch {
		case unicode.IsSpace(r):
			l.advance()
		case r == '#' && l.comments:
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

// advance consumes one character and updates line/column tracking.
func (l *Lexer) advance() {
	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

func (l *Lexer) position() Position {
	return Position{Line: l.line, Column: l.col, Offset: l.pos}
}

// IsIdentifier reports whether name lexes as a single IDENT token, that is
// it is a well-formed identifier and not a reserved word.
func IsIdentifier(name string) bool {
	if name == "" || !isIdentStart(name[0]) {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !isIdentPart(name[i]) {
			return false
		}
	}
	_, reserved := keywords[strings.ToUpper(name)]
	return !reserved
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9')
}
