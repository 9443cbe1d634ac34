package tmpl

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// The lexer scans template source and yields tokens for text runs, raw
// blocks and the contents of print tags {{ }} and statement tags {% %}.
// Comments {# #} are dropped. A '-' next to a delimiter ({{- -}} {%- -%}
// {#- -#}) trims the whitespace of the adjacent text run.

// TokenKind identifies the class of a Token.
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenText
	TokenRaw
	TokenPrintOpen  // {{
	TokenPrintClose // }}
	TokenStmtOpen   // {%
	TokenStmtClose  // %}
	TokenName
	TokenString
	TokenInt
	TokenFloat
	TokenOperator // == != < <= > >= + - * / % ~
	TokenAssign   // =
	TokenPipe     // |
	TokenComma
	TokenColon
	TokenDot
	TokenLParen
	TokenRParen
	TokenLBracket
	TokenRBracket
	TokenLBrace
	TokenRBrace
)

var tokenNames = [...]string{
	TokenEOF:        "end of input",
	TokenText:       "text",
	TokenRaw:        "raw text",
	TokenPrintOpen:  "'{{'",
	TokenPrintClose: "'}}'",
	TokenStmtOpen:   "'{%'",
	TokenStmtClose:  "'%}'",
	TokenName:       "name",
	TokenString:     "string",
	TokenInt:        "integer",
	TokenFloat:      "float",
	TokenOperator:   "operator",
	TokenAssign:     "'='",
	TokenPipe:       "'|'",
	TokenComma:      "','",
	TokenColon:      "':'",
	TokenDot:        "'.'",
	TokenLParen:     "'('",
	TokenRParen:     "')'",
	TokenLBracket:   "'['",
	TokenRBracket:   "']'",
	TokenLBrace:     "'{'",
	TokenRBrace:     "'}'",
}

func (k TokenKind) String() string {
	if int(k) < len(tokenNames) {
		return tokenNames[k]
	}
	return fmt.Sprintf("token(%d)", int(k))
}

// Pos is a position in template source. Line and Column are 1-based,
// Offset is the byte offset.
type Pos struct {
	Line   int
	Column int
	Offset int
}

func (p Pos) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Column) }

// Position returns p. Embedding Pos gives nodes and expressions their
// Position method.
func (p Pos) Position() Pos { return p }

// Token is a lexical token. Val holds the text of text runs, the decoded
// contents of string literals and the spelling of everything else.
type Token struct {
	Kind TokenKind
	Val  string
	Pos  Pos
}

func (t Token) String() string {
	switch t.Kind {
	case TokenEOF, TokenPrintOpen, TokenPrintClose, TokenStmtOpen, TokenStmtClose:
		return t.Kind.String()
	case TokenString, TokenText, TokenRaw:
		return fmt.Sprintf("%q", t.Val)
	}
	return "'" + t.Val + "'"
}

type lexer struct {
	name string
	src  string
	i    int
	n    int
	line int
	col  int

	tokens   []Token
	trimNext bool // the next text run loses its leading whitespace
}

// Lex tokenizes src. The name is only used in error messages.
func Lex(name, src string) ([]Token, error) {
	l := &lexer{name: name, src: src, n: len(src), line: 1, col: 1}
	if err := l.run(); err != nil {
		return nil, err
	}
	return l.tokens, nil
}

func (l *lexer) pos() Pos { return Pos{Line: l.line, Column: l.col, Offset: l.i} }

func (l *lexer) errorf(pos Pos, format string, args ...any) error {
	return &LexError{Template: l.name, Pos: pos, Reason: fmt.Sprintf(format, args...)}
}

// advance consumes n bytes, keeping line and column current. Columns
// count runes.
func (l *lexer) advance(n int) {
	for ; n > 0 && l.i < l.n; n-- {
		switch c := l.src[l.i]; {
		case c == '\n':
			l.line++
			l.col = 1
		case utf8.RuneStart(c):
			l.col++
		}
		l.i++
	}
}

func (l *lexer) peek() byte {
	if l.i >= l.n {
		return 0
	}
	return l.src[l.i]
}

func (l *lexer) peekAt(k int) byte {
	if l.i+k >= l.n {
		return 0
	}
	return l.src[l.i+k]
}

func (l *lexer) hasPrefix(s string) bool {
	return strings.HasPrefix(l.src[l.i:], s)
}

func (l *lexer) emit(kind TokenKind, val string, pos Pos) {
	l.tokens = append(l.tokens, Token{Kind: kind, Val: val, Pos: pos})
}

// emitText emits a text run, applying pending and requested trimming.
func (l *lexer) emitText(text string, pos Pos, trimRight bool) {
	if l.trimNext {
		trimmed := strings.TrimLeft(text, " \t\r\n")
		for _, c := range text[:len(text)-len(trimmed)] {
			if c == '\n' {
				pos.Line++
				pos.Column = 1
			} else {
				pos.Column++
			}
		}
		pos.Offset += len(text) - len(trimmed)
		text = trimmed
		l.trimNext = false
	}
	if trimRight {
		text = strings.TrimRight(text, " \t\r\n")
	}
	if text != "" {
		l.emit(TokenText, text, pos)
	}
}

// nextOpen returns the offset of the next opening delimiter at or after
// l.i, or -1.
func (l *lexer) nextOpen() int {
	for j := l.i; j+1 < l.n; j++ {
		if l.src[j] == '{' {
			switch l.src[j+1] {
			case '{', '%', '#':
				return j
			}
		}
	}
	return -1
}

func (l *lexer) run() error {
	for l.i < l.n {
		start := l.pos()
		j := l.nextOpen()
		if j < 0 {
			text := l.src[l.i:]
			l.advance(len(text))
			l.emitText(text, start, false)
			break
		}
		if j > l.i {
			text := l.src[l.i:j]
			trim := j+2 < l.n && l.src[j+2] == '-'
			l.advance(len(text))
			l.emitText(text, start, trim)
		} else {
			l.trimNext = false
		}
		if err := l.lexTag(); err != nil {
			return err
		}
	}
	l.emit(TokenEOF, "", l.pos())
	return nil
}

// lexTag lexes one tag starting at an opening delimiter.
func (l *lexer) lexTag() error {
	open := l.pos()
	kind := l.src[l.i+1]
	l.advance(2)
	if l.peek() == '-' {
		l.advance(1)
	}
	switch kind {
	case '#':
		return l.lexComment(open)
	case '{':
		l.emit(TokenPrintOpen, "{{", open)
		return l.lexInside(open, '}', TokenPrintClose)
	default:
		first := len(l.tokens)
		l.emit(TokenStmtOpen, "{%", open)
		if err := l.lexInside(open, '%', TokenStmtClose); err != nil {
			return err
		}
		// {% raw %} switches off tokenizing until {% endraw %}.
		if len(l.tokens) == first+3 && l.tokens[first+1].Kind == TokenName && l.tokens[first+1].Val == "raw" {
			l.tokens = l.tokens[:first]
			return l.lexRaw(open)
		}
		return nil
	}
}

func (l *lexer) lexComment(open Pos) error {
	for l.i < l.n {
		if l.hasPrefix("-#}") {
			l.advance(3)
			l.trimNext = true
			return nil
		}
		if l.hasPrefix("#}") {
			l.advance(2)
			return nil
		}
		l.advance(1)
	}
	return l.errorf(open, "unterminated comment")
}

// lexRaw scans verbatim text up to the matching {% endraw %}.
func (l *lexer) lexRaw(open Pos) error {
	start := l.pos()
	for j := l.i; j+1 < l.n; j++ {
		if l.src[j] != '{' || l.src[j+1] != '%' {
			continue
		}
		end := strings.Index(l.src[j+2:], "%}")
		if end < 0 {
			break
		}
		inner := strings.Trim(l.src[j+2:j+2+end], "- \t\r\n")
		if inner != "endraw" {
			continue
		}
		text := l.src[l.i:j]
		if l.trimNext {
			text = strings.TrimLeft(text, " \t\r\n")
			l.trimNext = false
		}
		if l.src[j+2] == '-' {
			text = strings.TrimRight(text, " \t\r\n")
		}
		l.emit(TokenRaw, text, start)
		l.advance(j + 2 + end + 2 - l.i)
		l.trimNext = l.src[j+2+end-1] == '-'
		return nil
	}
	return l.errorf(open, "unterminated raw block, expected {%% endraw %%}")
}

// lexInside tokenizes the contents of a tag until its closing delimiter,
// whose first byte is closeByte ('}' or '%') followed by '}'.
func (l *lexer) lexInside(open Pos, closeByte byte, closeKind TokenKind) error {
	depth := 0 // nesting of '{' inside the tag
	for {
		l.skipSpace()
		if l.i >= l.n {
			return l.errorf(open, "unterminated tag, expected %s", closeKind)
		}
		pos := l.pos()
		c := l.peek()
		if depth == 0 {
			if c == '-' && l.peekAt(1) == closeByte && l.peekAt(2) == '}' {
				l.advance(3)
				l.emit(closeKind, "", pos)
				l.trimNext = true
				return nil
			}
			if c == closeByte && l.peekAt(1) == '}' {
				l.advance(2)
				l.emit(closeKind, "", pos)
				return nil
			}
		}
		switch {
		case isNameStart(c):
			j := l.i + 1
			for j < l.n && isNameChar(l.src[j]) {
				j++
			}
			val := l.src[l.i:j]
			l.advance(j - l.i)
			l.emit(TokenName, val, pos)
		case isDigit(c):
			l.lexNumber(pos)
		case c == '"' || c == '\'':
			if err := l.lexString(pos, c); err != nil {
				return err
			}
		default:
			if err := l.lexPunct(pos, c, &depth); err != nil {
				return err
			}
		}
	}
}

func (l *lexer) skipSpace() {
	for l.i < l.n {
		switch l.src[l.i] {
		case ' ', '\t', '\r', '\n':
			l.advance(1)
		default:
			return
		}
	}
}

func (l *lexer) lexNumber(pos Pos) {
	j := l.i
	for j < l.n && isDigit(l.src[j]) {
		j++
	}
	kind := TokenInt
	if j+1 < l.n && l.src[j] == '.' && isDigit(l.src[j+1]) {
		kind = TokenFloat
		j++
		for j < l.n && isDigit(l.src[j]) {
			j++
		}
	}
	val := l.src[l.i:j]
	l.advance(j - l.i)
	l.emit(kind, val, pos)
}

func (l *lexer) lexString(pos Pos, quote byte) error {
	var b strings.Builder
	l.advance(1)
	for {
		if l.i >= l.n {
			return l.errorf(pos, "unterminated string literal")
		}
		c := l.peek()
		if c == quote {
			l.advance(1)
			l.emit(TokenString, b.String(), pos)
			return nil
		}
		if c != '\\' {
			b.WriteByte(c)
			l.advance(1)
			continue
		}
		escPos := l.pos()
		switch l.peekAt(1) {
		case '\\':
			b.WriteByte('\\')
		case '"':
			b.WriteByte('"')
		case '\'':
			b.WriteByte('\'')
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		default:
			return l.errorf(escPos, "invalid escape sequence \\%c in string literal", l.peekAt(1))
		}
		l.advance(2)
	}
}

func (l *lexer) lexPunct(pos Pos, c byte, depth *int) error {
	two := ""
	if l.i+2 <= l.n {
		two = l.src[l.i : l.i+2]
	}
	switch two {
	case "==", "!=", "<=", ">=":
		l.advance(2)
		l.emit(TokenOperator, two, pos)
		return nil
	}
	kind := TokenOperator
	switch c {
	case '<', '>', '+', '-', '*', '/', '%', '~':
	case '=':
		kind = TokenAssign
	case '|':
		kind = TokenPipe
	case ',':
		kind = TokenComma
	case ':':
		kind = TokenColon
	case '.':
		kind = TokenDot
	case '(':
		kind = TokenLParen
	case ')':
		kind = TokenRParen
	case '[':
		kind = TokenLBracket
	case ']':
		kind = TokenRBracket
	case '{':
		kind = TokenLBrace
		*depth++
	case '}':
		kind = TokenRBrace
		if *depth > 0 {
			*depth--
		}
	default:
		return l.errorf(pos, "unexpected character %q", c)
	}
	l.advance(1)
	l.emit(kind, string(c), pos)
	return nil
}

func isNameStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isNameChar(c byte) bool { return isNameStart(c) || isDigit(c) }

func isDigit(c byte) bool { return '0' <= c && c <= '9' }
