package main

import "fmt"

// TokenKind identifies the lexical category of a Token. Values in [0, 255]
// are reserved for single-ASCII-character tokens, whose kind is simply the
// character's codepoint (so '+' lexes to TokenKind('+')). Named kinds start
// at 256, matching the original C++ `enum TokenKind` layout in
// original_source/source/sl/token.h.
type TokenKind int

const (
	TokEof TokenKind = iota + 256
	TokEol

	TokNumber
	TokString

	TokName

	TokKwNil
	TokKwTrue
	TokKwFalse
	TokKwFunc
	TokKwPrint
	TokKwVar
	TokKwIf
	TokKwElse
	TokKwWhile
	TokKwBreak
	TokKwContinue
	TokKwReturn
	TokKwThis

	TokEq    // ==
	TokNEq   // !=
	TokAndL  // &&
	TokOrL   // ||
	TokLtEq  // <=
	TokGtEq  // >=
)

var keywords = map[string]TokenKind{
	"nil":      TokKwNil,
	"true":     TokKwTrue,
	"false":    TokKwFalse,
	"func":     TokKwFunc,
	"print":    TokKwPrint,
	"var":      TokKwVar,
	"if":       TokKwIf,
	"else":     TokKwElse,
	"while":    TokKwWhile,
	"break":    TokKwBreak,
	"continue": TokKwContinue,
	"return":   TokKwReturn,
	"this":     TokKwThis,
}

// statementKeyword reports whether kw begins a statement, and therefore
// switches the lexer into "newline is whitespace" mode the same way an
// opening bracket or binary operator does.
func statementKeyword(k TokenKind) bool {
	switch k {
	case TokKwVar, TokKwIf, TokKwElse, TokKwWhile, TokKwPrint, TokKwFunc:
		return true
	default:
		return false
	}
}

// Token carries a kind, the 1-based-at-output source line it started on,
// and a variant payload (a parsed number, or a raw slice into the source
// for names/strings — escape processing happens later, in the compiler).
type Token struct {
	Kind TokenKind
	Line int

	Number float64
	Text   string // Name, String (raw, un-escaped), two-character operator text
}

// desc returns a short human-readable description of the token for
// diagnostics, mirroring original_source/source/sl/token.h's `Token::desc`.
func (t Token) desc() string {
	switch {
	case t.Kind < 256:
		return fmt.Sprintf("%q", rune(t.Kind))
	case t.Kind == TokEof:
		return "end of file"
	case t.Kind == TokEol:
		return "end of line"
	case t.Kind == TokNumber:
		return fmt.Sprintf("number %v", t.Number)
	case t.Kind == TokString:
		return fmt.Sprintf("string %q", t.Text)
	case t.Kind == TokName:
		return fmt.Sprintf("name %q", t.Text)
	case t.Kind == TokEq:
		return `"=="`
	case t.Kind == TokNEq:
		return `"!="`
	case t.Kind == TokAndL:
		return `"&&"`
	case t.Kind == TokOrL:
		return `"||"`
	case t.Kind == TokLtEq:
		return `"<="`
	case t.Kind == TokGtEq:
		return `">="`
	default:
		for word, kind := range keywords {
			if kind == t.Kind {
				return fmt.Sprintf("keyword %q", word)
			}
		}
		return "token"
	}
}
