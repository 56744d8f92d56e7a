package lexer

import (
	"strconv"
	"strings"
)

// maxTokenText bounds the stored token text; longer matches are truncated.
const maxTokenText = 255

// keywords maps lower-cased source text to its keyword TokenType.
// Keyword matching is case-insensitive.
var keywords = map[string]TokenType{
	"rem":   REM,
	"input": INPUT,
	"print": PRINT,
	"let":   LET,
	"goto":  GOTO,
	"if":    IF,
	"for":   FOR,
	"to":    TO,
	"step":  STEP,
	"next":  NEXT,
	"end":   END,
}

// Lexer scans a byte buffer into a token stream. The buffer is never
// modified; start and current are byte offsets into it, so callers may
// re-scan any previously indexed position with ResetTo.
type Lexer struct {
	src     []byte
	start   int // offset of the current token's first byte
	current int // offset of the next byte to consume
	line    int // 1-based source line
	column  int // 1-based column of the next byte to consume
}

// New returns a Lexer positioned at the start of src.
func New(src []byte) *Lexer {
	return &Lexer{src: src, line: 1, column: 1}
}

// ResetTo repositions the scanner at the given byte offset and resets
// the column to 1. The line counter is left alone; callers re-scanning
// an indexed line manage it themselves.
func (l *Lexer) ResetTo(offset int) {
	l.start = offset
	l.current = offset
	l.column = 1
}

func (l *Lexer) atEnd() bool {
	return l.current >= len(l.src)
}

// advance consumes one byte and returns it.
func (l *Lexer) advance() byte {
	b := l.src[l.current]
	l.current++
	l.column++
	return b
}

// peekByte returns the current byte without consuming it.
func (l *Lexer) peekByte() byte {
	if l.atEnd() {
		return 0
	}
	return l.src[l.current]
}

// peekNextByte returns the byte after the current one.
func (l *Lexer) peekNextByte() byte {
	if l.current+1 >= len(l.src) {
		return 0
	}
	return l.src[l.current+1]
}

// match consumes the current byte iff it equals expected.
func (l *Lexer) match(expected byte) bool {
	if l.atEnd() || l.src[l.current] != expected {
		return false
	}
	l.current++
	l.column++
	return true
}

func (l *Lexer) skipWhitespace() {
	for !l.atEnd() {
		switch l.src[l.current] {
		case ' ', '\t', '\r':
			l.advance()
		default:
			return
		}
	}
}

// makeToken builds a token from the bytes consumed since start.
func (l *Lexer) makeToken(tt TokenType) Token {
	length := l.current - l.start
	text := l.src[l.start:l.current]
	if length > maxTokenText {
		text = text[:maxTokenText]
	}
	return Token{
		Type:   tt,
		Text:   string(text),
		Line:   l.line,
		Column: l.column - length,
	}
}

// errorToken reports a lexical error; the token text is the diagnostic,
// not source text.
func (l *Lexer) errorToken(message string) Token {
	return Token{
		Type:   ERROR,
		Text:   message,
		Line:   l.line,
		Column: l.column - (l.current - l.start),
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// scanNumber consumes an integer literal, extending it to a FLOAT only
// when a '.' is directly followed by another digit; "10." stays NUMBER
// with the dot left unconsumed.
func (l *Lexer) scanNumber() Token {
	for isDigit(l.peekByte()) {
		l.advance()
	}

	tt := NUMBER
	if l.peekByte() == '.' && isDigit(l.peekNextByte()) {
		tt = FLOAT
		l.advance()
		for isDigit(l.peekByte()) {
			l.advance()
		}
	}

	tok := l.makeToken(tt)
	tok.Value, _ = strconv.ParseFloat(tok.Text, 64)
	return tok
}

// scanString consumes a string literal; the opening quote is already
// consumed. Strings may not span lines.
func (l *Lexer) scanString() Token {
	for l.peekByte() != '"' && !l.atEnd() {
		if l.peekByte() == '\n' {
			return l.errorToken("Unterminated string")
		}
		l.advance()
	}

	if l.atEnd() {
		return l.errorToken("Unterminated string")
	}

	l.advance() // closing quote
	return l.makeToken(STRING)
}

// scanIdentifier consumes an identifier and folds it to a keyword token
// when the text matches one case-insensitively.
func (l *Lexer) scanIdentifier() Token {
	for isAlpha(l.peekByte()) || isDigit(l.peekByte()) || l.peekByte() == '_' {
		l.advance()
	}

	tok := l.makeToken(IDENT)
	if kw, ok := keywords[strings.ToLower(tok.Text)]; ok {
		tok.Type = kw
	}
	return tok
}

// Next consumes and returns the next token. After the end of input it
// keeps returning EOF tokens.
func (l *Lexer) Next() Token {
	l.skipWhitespace()

	l.start = l.current

	if l.atEnd() {
		return l.makeToken(EOF)
	}

	c := l.advance()

	if c == '\n' {
		tok := l.makeToken(NEWLINE)
		l.line++
		l.column = 1
		return tok
	}

	if isDigit(c) {
		return l.scanNumber()
	}
	if isAlpha(c) || c == '_' {
		return l.scanIdentifier()
	}
	if c == '"' {
		return l.scanString()
	}

	switch c {
	case '+':
		return l.makeToken(PLUS)
	case '-':
		return l.makeToken(MINUS)
	case '*':
		return l.makeToken(STAR)
	case '/':
		return l.makeToken(SLASH)
	case '%':
		return l.makeToken(PERCENT)
	case '^':
		return l.makeToken(CARET)
	case ',':
		return l.makeToken(COMMA)
	case '(':
		return l.makeToken(LPAREN)
	case ')':
		return l.makeToken(RPAREN)
	case '=':
		if l.match('=') {
			return l.makeToken(EQ)
		}
		return l.makeToken(ASSIGN)
	case '!':
		if l.match('=') {
			return l.makeToken(NE)
		}
		return l.errorToken("Expected '=' after '!'")
	case '<':
		if l.match('=') {
			return l.makeToken(LE)
		}
		return l.makeToken(LT)
	case '>':
		if l.match('=') {
			return l.makeToken(GE)
		}
		return l.makeToken(GT)
	}

	return l.errorToken("Unexpected character")
}

// Peek returns the next token without consuming it. The whole scanner
// state is saved and restored, so Peek never moves observable state.
func (l *Lexer) Peek() Token {
	savedStart := l.start
	savedCurrent := l.current
	savedLine := l.line
	savedColumn := l.column

	tok := l.Next()

	l.start = savedStart
	l.current = savedCurrent
	l.line = savedLine
	l.column = savedColumn

	return tok
}
