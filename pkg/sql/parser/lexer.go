package parser

import (
	"strings"

	"github.com/htapcore/engine/pkg/errors"
)

// Lexer turns a SQL string into a stream of Tokens. Identifiers and
// keywords are case-insensitive by upper-casing keyword comparisons only;
// the original casing of an identifier's Literal is preserved for error
// messages (column lookups fold case themselves, see the strings.EqualFold
// lookup in pkg/sql/phys).
type Lexer struct {
	input        string
	pos, readPos int
	ch           byte
	line, col    int
}

func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1, col: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// Next returns the next token in the stream, EOF once exhausted.
func (l *Lexer) Next() (Token, error) {
	l.skipWhitespace()

	line, col := l.line, l.col
	mk := func(t TokenType, lit string) Token { return Token{Type: t, Literal: lit, Line: line, Column: col} }

	switch {
	case l.ch == 0:
		return mk(EOF, ""), nil
	case l.ch == '\'':
		s, err := l.readString()
		if err != nil {
			return Token{}, err
		}
		return mk(STRING, s), nil
	case l.ch == '$' && isDigit(l.peekChar()):
		lit := l.readParamPositional()
		return mk(PARAM, lit), nil
	case l.ch == ':' && isIdentStart(l.peekChar()):
		lit := l.readParamNamed()
		return mk(PARAM, lit), nil
	case isDigit(l.ch):
		lit, isFloat := l.readNumber()
		if isFloat {
			return mk(FLOAT, lit), nil
		}
		return mk(INT, lit), nil
	case isIdentStart(l.ch):
		lit := l.readIdentifier()
		return mk(LookupIdent(strings.ToUpper(lit)), lit), nil
	}

	switch l.ch {
	case '+':
		l.readChar()
		return mk(PLUS, "+"), nil
	case '-':
		l.readChar()
		return mk(MINUS, "-"), nil
	case '*':
		l.readChar()
		return mk(ASTERISK, "*"), nil
	case '/':
		l.readChar()
		return mk(SLASH, "/"), nil
	case '%':
		l.readChar()
		return mk(PERCENT, "%"), nil
	case ',':
		l.readChar()
		return mk(COMMA, ","), nil
	case ';':
		l.readChar()
		return mk(SEMICOLON, ";"), nil
	case '(':
		l.readChar()
		return mk(LPAREN, "("), nil
	case ')':
		l.readChar()
		return mk(RPAREN, ")"), nil
	case '.':
		l.readChar()
		return mk(DOT, "."), nil
	case '=':
		l.readChar()
		return mk(EQ, "="), nil
	case '<':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return mk(LTE, "<="), nil
		}
		if l.ch == '>' {
			l.readChar()
			return mk(NEQ, "<>"), nil
		}
		return mk(LT, "<"), nil
	case '>':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return mk(GTE, ">="), nil
		}
		return mk(GT, ">"), nil
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return mk(NEQ, "!="), nil
		}
	}

	ch := l.ch
	l.readChar()
	return Token{}, &errors.SqlParseError{Message: "unexpected character " + string(ch), Sql: l.input}
}

func (l *Lexer) readString() (string, error) {
	var b strings.Builder
	l.readChar() // consume opening quote
	for {
		if l.ch == 0 {
			return "", &errors.SqlParseError{Message: "unterminated string literal", Sql: l.input}
		}
		if l.ch == '\'' {
			if l.peekChar() == '\'' {
				b.WriteByte('\'')
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar()
			break
		}
		b.WriteByte(l.ch)
		l.readChar()
	}
	return b.String(), nil
}

func (l *Lexer) readParamPositional() string {
	start := l.pos
	l.readChar() // consume '$'
	for isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func (l *Lexer) readParamNamed() string {
	start := l.pos
	l.readChar() // consume ':'
	for isIdentPart(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func (l *Lexer) readNumber() (string, bool) {
	start := l.pos
	isFloat := false
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[start:l.pos], isFloat
}

func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isIdentPart(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func isDigit(b byte) bool      { return b >= '0' && b <= '9' }
func isIdentStart(b byte) bool { return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }
func isIdentPart(b byte) bool  { return isIdentStart(b) || isDigit(b) }
