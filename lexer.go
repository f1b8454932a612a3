package main

import "strconv"

// Lexer is a single-pass, context-sensitive tokenizer over a zero-terminated
// source buffer. The trailing NUL lets lookahead (nextChar) always be safe
// without a separate bounds check, exactly as original_source/source/sl's
// Lexer relies on a NUL-terminated char buffer.
//
// Newlines are significant only at certain syntactic positions: eolIsWs
// tracks whether the lexer is inside an expression (newline is whitespace)
// or between statements (newline ends the statement, emitted as an Eol
// token).
type Lexer struct {
	file string
	src  []byte // includes a trailing 0 byte
	pos  int
	line int // 0-based; diagnostics report line+1

	eolIsWs bool
	atEof   bool
}

func newLexer(file string, src []byte) *Lexer {
	if len(src) == 0 || src[len(src)-1] != 0 {
		src = append(append([]byte(nil), src...), 0)
	}
	return &Lexer{file: file, src: src, eolIsWs: true}
}

func (lx *Lexer) nextChar() byte {
	return lx.src[lx.pos]
}

func (lx *Lexer) eatChar() byte {
	c := lx.src[lx.pos]
	lx.pos++
	if c == '\n' {
		lx.line++
	}
	return c
}

func charIsDigit(c byte) bool { return c >= '0' && c <= '9' }

func charIsWordStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func charIsWordPart(c byte) bool { return charIsWordStart(c) || charIsDigit(c) }

func (lx *Lexer) isWs(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || (lx.eolIsWs && c == '\n')
}

func (lx *Lexer) eatWhitespace() bool {
	if !lx.isWs(lx.nextChar()) {
		return false
	}
	for lx.isWs(lx.nextChar()) {
		lx.eatChar()
	}
	return true
}

func (lx *Lexer) eatComment() bool {
	if lx.nextChar() != '#' {
		return false
	}
	for lx.nextChar() != '\n' && lx.nextChar() != 0 {
		lx.eatChar()
	}
	return true
}

func (lx *Lexer) eatPadding() {
	for lx.eatWhitespace() || lx.eatComment() {
	}
}

// lexError is panicked by the lexer on malformed input and recovered at the
// Compiler's API boundary alongside compileError, using the same
// panic-then-recover-at-the-boundary discipline as internal/panicerr.
type lexError struct {
	file string
	line int
	msg  string
}

func (e lexError) Error() string {
	return e.file + ":" + strconv.Itoa(e.line+1) + ": " + e.msg
}

func (lx *Lexer) fail(msg string) {
	panic(lexError{lx.file, lx.line, msg})
}

// eatToken scans and returns the next token, advancing past it.
func (lx *Lexer) eatToken() Token {
	lx.eatPadding()
	line := lx.line

	c := lx.nextChar()
	switch {
	case c == 0:
		return lx.eatEofToken(line)
	case c == '\n':
		// eolIsWs is false here, or eatPadding would have consumed it. Once
		// this newline has ended the statement, further blank lines (and
		// the end of input) are whitespace.
		lx.eatChar()
		lx.eolIsWs = true
		return Token{Kind: TokEol, Line: line}
	case charIsWordStart(c):
		return lx.eatWordToken(line)
	case charIsDigit(c):
		return lx.eatNumberToken(line)
	case c == '"':
		return lx.eatStringToken(line)
	default:
		return lx.eatSymbolToken(line)
	}
}

func (lx *Lexer) eatEofToken(line int) Token {
	if lx.eolIsWs {
		return Token{Kind: TokEof, Line: line}
	}
	lx.eolIsWs = true
	return Token{Kind: TokEol, Line: line}
}

func (lx *Lexer) eatWordToken(line int) Token {
	start := lx.pos
	for charIsWordPart(lx.nextChar()) {
		lx.eatChar()
	}
	word := string(lx.src[start:lx.pos])

	if kind, isKw := keywords[word]; isKw {
		switch kind {
		case TokKwBreak, TokKwContinue, TokKwReturn:
			lx.eolIsWs = false
		default:
			lx.eolIsWs = statementKeyword(kind)
		}
		return Token{Kind: kind, Line: line, Text: word}
	}

	lx.eolIsWs = false
	return Token{Kind: TokName, Line: line, Text: word}
}

func (lx *Lexer) eatNumberToken(line int) Token {
	start := lx.pos
	for charIsDigit(lx.nextChar()) {
		lx.eatChar()
	}
	if lx.nextChar() == '.' {
		lx.eatChar()
		for charIsDigit(lx.nextChar()) {
			lx.eatChar()
		}
	}
	if charIsWordStart(lx.nextChar()) {
		lx.fail("invalid character in number constant")
	}

	text := string(lx.src[start:lx.pos])
	val, err := strconv.ParseFloat(text, 64)
	if err != nil {
		lx.fail("invalid character in number constant")
	}

	lx.eolIsWs = false
	return Token{Kind: TokNumber, Line: line, Number: val}
}

func (lx *Lexer) eatStringToken(line int) Token {
	lx.eatChar() // opening quote
	start := lx.pos
	for {
		c := lx.nextChar()
		if c == '"' {
			break
		}
		if c == 0 {
			lx.line = line
			lx.fail("unclosed string constant")
		}
		if c == '\\' {
			lx.eatChar()
			switch lx.nextChar() {
			case '"', '\\', 'n', 't', 'f', 'r', 'b':
				lx.eatChar()
			default:
				lx.fail("invalid escape sequence")
			}
			continue
		}
		lx.eatChar()
	}
	raw := string(lx.src[start:lx.pos])
	lx.eatChar() // closing quote

	lx.eolIsWs = false
	return Token{Kind: TokString, Line: line, Text: raw}
}

var twoCharOps = map[string]TokenKind{
	"==": TokEq,
	"!=": TokNEq,
	"&&": TokAndL,
	"||": TokOrL,
	"<=": TokLtEq,
	">=": TokGtEq,
}

func (lx *Lexer) eatSymbolToken(line int) Token {
	c := lx.eatChar()
	pair := string([]byte{c, lx.nextChar()})
	if two, ok := twoCharOps[pair]; ok {
		lx.eatChar()
		lx.eolIsWs = true
		return Token{Kind: two, Line: line, Text: pair}
	}

	switch c {
	case '(', '[', '{':
		lx.eolIsWs = true
	case ')', ']', '}':
		lx.eolIsWs = false
	case '+', '-', '*', '/', '%', '!', '=', '<', '>':
		lx.eolIsWs = true
	default:
		lx.eolIsWs = false
	}
	return Token{Kind: TokenKind(c), Line: line}
}
