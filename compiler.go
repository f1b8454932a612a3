package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/sl-lang/sl/internal/panicerr"
)

// compileError is the diagnostic panicked by a parse, resolution, or
// semantic failure and recovered at Compile's boundary. Its Error form
// matches lexError's: file:line+1: message.
type compileError struct {
	file string
	line int
	msg  string
}

func (e compileError) Error() string {
	return e.file + ":" + strconv.Itoa(e.line+1) + ": " + e.msg
}

// compilerVar records a local or parameter: its stack-frame offset and the
// name that resolves to it. Parameters sit at negative offsets, locals at
// 0..nLocals-1.
type compilerVar struct {
	name string
	idx  int32
}

// compilerScope is a lexical scope: block, if-branch, or loop body.
// enterScope records where the scope began; exitScope truncates activeVars
// back to it and, for a loop scope, patches every pending break jump to the
// op just past the loop.
type compilerScope struct {
	firstOp        int
	firstActiveVar int
	isLoop         bool
}

// Compiler is a one-pass recursive-descent compiler: it emits bytecode
// directly into ops as it parses, with no separate AST stage. A nested
// func(...){...} expression is compiled by saving this entire state,
// resetting it, compiling the inner function, and restoring it — see
// pushFuncState/popFuncState.
//
// Grounded on original_source/source/sl/compiler.h/compiler.cpp.
type Compiler struct {
	heap *Heap
	file string

	lexer *Lexer
	tok   Token // one token of lookahead

	consts []Value
	ops    []Op

	nParams int
	nLocals int

	activeVars []compilerVar
	scopes     []compilerScope
	breakOps   []int
}

// compilerFuncState is the subset of Compiler saved and restored around a
// nested function literal.
type compilerFuncState struct {
	consts     []Value
	ops        []Op
	nParams    int
	nLocals    int
	activeVars []compilerVar
	scopes     []compilerScope
	breakOps   []int
}

func (c *Compiler) pushFuncState() compilerFuncState {
	saved := compilerFuncState{
		consts:     c.consts,
		ops:        c.ops,
		nParams:    c.nParams,
		nLocals:    c.nLocals,
		activeVars: c.activeVars,
		scopes:     c.scopes,
		breakOps:   c.breakOps,
	}
	c.consts = nil
	c.ops = nil
	c.nParams = 0
	c.nLocals = 0
	c.activeVars = nil
	c.scopes = nil
	c.breakOps = nil
	return saved
}

func (c *Compiler) popFuncState(saved compilerFuncState) {
	c.consts = saved.consts
	c.ops = saved.ops
	c.nParams = saved.nParams
	c.nLocals = saved.nLocals
	c.activeVars = saved.activeVars
	c.scopes = saved.scopes
	c.breakOps = saved.breakOps
}

func (c *Compiler) fail(format string, args ...interface{}) {
	panic(compileError{c.file, c.tok.Line, fmt.Sprintf(format, args...)})
}

func (c *Compiler) failAt(line int, format string, args ...interface{}) {
	panic(compileError{c.file, line, fmt.Sprintf(format, args...)})
}

// advance returns the current lookahead token and pulls the next one from
// the lexer.
func (c *Compiler) advance() Token {
	prev := c.tok
	c.tok = c.lexer.eatToken()
	return prev
}

func (c *Compiler) expectToken(kind TokenKind, desc string) Token {
	if c.tok.Kind != kind {
		c.fail("expected %s before %s", desc, c.tok.desc())
	}
	return c.advance()
}

// eatSepToken consumes one statement/argument separator (`,` or Eol) if
// present.
func (c *Compiler) eatSepToken() bool {
	if c.tok.Kind == TokenKind(',') || c.tok.Kind == TokEol {
		c.advance()
		return true
	}
	return false
}

// getConst returns the pool index of val, appending it if no existing
// constant is equal to it.
func (c *Compiler) getConst(val Value) int32 {
	for i, ev := range c.consts {
		if ev.Equals(val) {
			return int32(i)
		}
	}
	c.consts = append(c.consts, val)
	return int32(len(c.consts) - 1)
}

func (c *Compiler) emit(op Opcode, arg int32) int {
	idx := len(c.ops)
	c.ops = append(c.ops, MakeOp(op, arg))
	return idx
}

func (c *Compiler) patch(opIdx int, target int32) {
	c.ops[opIdx] = MakeOp(c.ops[opIdx].Opcode(), target)
}

// createLocal allocates the next local slot for name and returns its index.
func (c *Compiler) createLocal(name string) int32 {
	idx := int32(c.nLocals)
	c.nLocals++
	c.activeVars = append(c.activeVars, compilerVar{name, idx})
	return idx
}

// declareParams assigns parameter slots -n..-1 to names, in order, so the
// first parameter sits deepest (-nParams) and the last sits at -1 —
// matching how the VM pushes argument values onto the stack in source
// order.
func (c *Compiler) declareParams(names []string) {
	n := len(names)
	c.nParams = n
	for i, name := range names {
		c.activeVars = append(c.activeVars, compilerVar{name, int32(i - n)})
	}
}

// getVar resolves name to a slot index, searching the most recently
// declared variable first so inner declarations shadow outer ones.
func (c *Compiler) getVar(name string) (int32, bool) {
	for i := len(c.activeVars) - 1; i >= 0; i-- {
		if c.activeVars[i].name == name {
			return c.activeVars[i].idx, true
		}
	}
	return 0, false
}

func (c *Compiler) enterScope(isLoop bool) {
	c.scopes = append(c.scopes, compilerScope{
		firstOp:        len(c.ops),
		firstActiveVar: len(c.activeVars),
		isLoop:         isLoop,
	})
}

// exitScope pops the innermost scope, dropping its locals. If it was a
// loop scope, every break still pending in breakOps is patched to
// jump here (the op just past the loop) and breakOps is cleared — matching
// the original's flush-on-loop-exit behavior exactly, including its quirk
// of also flushing any breakOps recorded by an enclosing loop body before
// this inner loop was entered (an outer break occurring textually before a
// nested loop gets bound to the nested loop's exit instead of the outer
// one's). This is preserved as-is rather than corrected.
func (c *Compiler) exitScope() {
	n := len(c.scopes)
	s := c.scopes[n-1]
	c.scopes = c.scopes[:n-1]

	if s.isLoop {
		end := int32(len(c.ops))
		for _, opIdx := range c.breakOps {
			c.patch(opIdx, end)
		}
		c.breakOps = c.breakOps[:0]
	}

	c.activeVars = c.activeVars[:s.firstActiveVar]
}

// minExprPrecedence is the lowest level in the binary-operator table;
// passing it to eatExpr/expectExpr means "accept any expression".
const minExprPrecedence = 1

func (c *Compiler) expectExpr(minPrecedence int) {
	if !c.eatExpr(minPrecedence) {
		c.fail("expected expression before %s", c.tok.desc())
	}
}

// binOpInfo maps a binary operator token to its precedence level and opcode.
func binOpInfo(kind TokenKind) (prec int, op Opcode, ok bool) {
	switch kind {
	case TokOrL:
		return 1, OpOrL, true
	case TokAndL:
		return 2, OpAndL, true
	case TokEq:
		return 3, OpCmpEq, true
	case TokNEq:
		return 3, OpCmpNEq, true
	case TokenKind('<'):
		return 3, OpCmpLt, true
	case TokenKind('>'):
		return 3, OpCmpGt, true
	case TokLtEq:
		return 3, OpCmpLtEq, true
	case TokGtEq:
		return 3, OpCmpGtEq, true
	case TokenKind('+'):
		return 4, OpAdd, true
	case TokenKind('-'):
		return 4, OpSub, true
	case TokenKind('*'):
		return 5, OpMul, true
	case TokenKind('/'):
		return 5, OpDiv, true
	case TokenKind('%'):
		return 5, OpMod, true
	default:
		return 0, 0, false
	}
}

// eatExpr parses one expression at or above minPrecedence, emitting its
// bytecode directly as it goes, and reports whether anything was parsed.
// Primary atoms, postfix call/index/member, prefix unary, and left-
// associative binary operators are all handled in a single pass, the way
// the original's eatExpr does.
func (c *Compiler) eatExpr(minPrecedence int) bool {
	hasLhs := c.eatPrimary()

	for {
		switch {
		case c.tok.Kind == TokenKind('('):
			if !hasLhs {
				return false
			}
			c.advance()
			n := c.eatExprList()
			c.expectToken(TokenKind(')'), `")"`)
			c.emit(OpCall, int32(n))

		case c.tok.Kind == TokenKind('['):
			if !hasLhs {
				return false
			}
			c.advance()
			c.expectExpr(minExprPrecedence)
			c.expectToken(TokenKind(']'), `"]"`)
			c.emit(OpGetElem, 0)

		case c.tok.Kind == TokenKind('.'):
			if !hasLhs {
				return false
			}
			c.advance()
			nameTok := c.expectToken(TokName, "name")
			idx := c.getConst(stringValue(c.heap.NewString([]byte(nameTok.Text))))
			if c.tok.Kind == TokenKind('(') {
				c.emit(OpGetConst, idx)
				c.advance()
				n := c.eatExprList()
				c.expectToken(TokenKind(')'), `")"`)
				c.emit(OpInstCall, int32(n))
			} else {
				c.emit(OpGetConst, idx)
				c.emit(OpGetElem, 0)
			}

		default:
			if !hasLhs {
				return false
			}
			prec, op, ok := binOpInfo(c.tok.Kind)
			if !ok || prec < minPrecedence {
				return true
			}
			c.advance()
			// Left-associative: the right operand may not itself absorb
			// another operator at this same precedence level.
			c.expectExpr(prec + 1)
			c.emit(op, 0)
			continue
		}
		hasLhs = true
	}
}

// eatPrimary parses a single atom followed by no postfix, reporting
// whether one was found. A leading unary `-`/`!` recurses into eatExpr at
// precedence 6 (tighter than any binary operator) for its operand.
func (c *Compiler) eatPrimary() bool {
	switch {
	case c.tok.Kind == TokenKind('('):
		c.advance()
		c.expectExpr(minExprPrecedence)
		c.expectToken(TokenKind(')'), `")"`)
		return true

	case c.tok.Kind == TokKwNil:
		c.advance()
		c.emit(OpGetConst, c.getConst(NilValue))
		return true

	case c.tok.Kind == TokKwTrue:
		c.advance()
		c.emit(OpGetConst, c.getConst(numberValue(1)))
		return true

	case c.tok.Kind == TokKwFalse:
		c.advance()
		c.emit(OpGetConst, c.getConst(numberValue(0)))
		return true

	case c.tok.Kind == TokNumber:
		n := c.tok.Number
		c.advance()
		c.emit(OpGetConst, c.getConst(numberValue(n)))
		return true

	case c.tok.Kind == TokString:
		raw := c.tok.Text
		c.advance()
		s := c.heap.NewString(unescapeString(raw))
		c.emit(OpGetConst, c.getConst(stringValue(s)))
		return true

	case c.tok.Kind == TokenKind('['):
		c.eatArrayLiteral()
		return true

	case c.tok.Kind == TokenKind('{'):
		c.eatStructLiteral()
		return true

	case c.tok.Kind == TokKwFunc:
		c.eatFuncLiteral()
		return true

	case c.tok.Kind == TokKwThis:
		c.advance()
		c.emit(OpGetInst, 0)
		return true

	case c.tok.Kind == TokName:
		name, line := c.tok.Text, c.tok.Line
		c.advance()
		idx, ok := c.getVar(name)
		if !ok {
			c.failAt(line, "unresolved name %q", name)
		}
		c.emit(OpGetVar, idx)
		return true

	case c.tok.Kind == TokenKind('-') || c.tok.Kind == TokenKind('!'):
		neg := c.tok.Kind == TokenKind('-')
		c.advance()
		c.expectExpr(6)
		if neg {
			c.emit(OpNeg, 0)
		} else {
			c.emit(OpNotL, 0)
		}
		return true

	default:
		return false
	}
}

// eatExprList parses a comma/Eol-separated list of expressions (call
// arguments) and returns the count.
func (c *Compiler) eatExprList() int {
	n := 0
	for c.eatExpr(minExprPrecedence) {
		n++
		if !c.eatSepToken() {
			break
		}
	}
	return n
}

func (c *Compiler) eatArrayLiteral() {
	c.advance() // '['
	n := 0
	if c.tok.Kind != TokenKind(']') {
		for {
			c.expectExpr(minExprPrecedence)
			n++
			if !c.eatSepToken() {
				break
			}
			if c.tok.Kind == TokenKind(']') {
				break
			}
		}
	}
	c.expectToken(TokenKind(']'), `"]"`)
	c.emit(OpMakeArray, int32(n))
}

func (c *Compiler) expectStructKey() string {
	switch c.tok.Kind {
	case TokName:
		s := c.tok.Text
		c.advance()
		return s
	case TokString:
		raw := c.tok.Text
		c.advance()
		return string(unescapeString(raw))
	default:
		c.fail("expected struct key before %s", c.tok.desc())
		return ""
	}
}

// eatStructLiteral parses `{ key = expr, ... }`, pushing each pair as
// key (a pooled String constant) then value, and emits MakeStruct(n).
func (c *Compiler) eatStructLiteral() {
	c.advance() // '{'
	n := 0
	if c.tok.Kind != TokenKind('}') {
		for {
			key := c.expectStructKey()
			c.expectToken(TokenKind('='), `"="`)
			idx := c.getConst(stringValue(c.heap.NewString([]byte(key))))
			c.emit(OpGetConst, idx)
			c.expectExpr(minExprPrecedence)
			n++
			if !c.eatSepToken() {
				break
			}
			if c.tok.Kind == TokenKind('}') {
				break
			}
		}
	}
	c.expectToken(TokenKind('}'), `"}"`)
	c.emit(OpMakeStruct, int32(n))
}

func (c *Compiler) expectName() string {
	tok := c.expectToken(TokName, "name")
	return tok.Text
}

// eatFuncLiteral parses `func(params){body}` as an expression: the whole
// compiler state is saved and reset (pushFuncState), the inner function is
// compiled against a blank slate, and the resulting Func is interned into
// the *outer* constant pool once the state is restored.
func (c *Compiler) eatFuncLiteral() {
	c.advance() // 'func'
	c.expectToken(TokenKind('('), `"("`)

	var params []string
	if c.tok.Kind != TokenKind(')') {
		for {
			params = append(params, c.expectName())
			if !c.eatSepToken() {
				break
			}
			if c.tok.Kind == TokenKind(')') {
				break
			}
		}
	}
	c.expectToken(TokenKind(')'), `")"`)
	c.expectToken(TokenKind('{'), `"{"`)

	saved := c.pushFuncState()
	c.declareParams(params)
	c.eatFuncStmtList()
	c.expectToken(TokenKind('}'), `"}"`)
	fn := c.heap.NewFunc(c.consts, c.ops, c.nParams, c.nLocals)
	c.popFuncState(saved)

	c.emit(OpGetConst, c.getConst(funcValue(fn)))
}

// eatStmt parses one statement, emitting its bytecode, and reports whether
// one was found.
func (c *Compiler) eatStmt() bool {
	switch {
	case c.tok.Kind == TokenKind('{'):
		c.advance()
		c.enterScope(false)
		c.eatStmtList()
		c.expectToken(TokenKind('}'), `"}"`)
		c.exitScope()
		return true

	case c.tok.Kind == TokKwPrint:
		c.advance()
		c.expectExpr(minExprPrecedence)
		c.emit(OpPrint, 0)
		return true

	case c.tok.Kind == TokKwVar:
		c.advance()
		name := c.expectName()
		idx := c.createLocal(name)
		if c.tok.Kind == TokenKind('=') {
			c.advance()
			c.expectExpr(minExprPrecedence)
			c.emit(OpSetVar, idx)
		}
		return true

	case c.tok.Kind == TokKwIf:
		c.advance()
		c.expectExpr(minExprPrecedence)

		jmpElseOp := c.emit(OpJmpN, -1)
		c.expectStmt()

		if c.tok.Kind == TokKwElse {
			c.advance()
			jmpEndOp := c.emit(OpJmp, -1)
			c.patch(jmpElseOp, int32(len(c.ops)))
			c.expectStmt()
			c.patch(jmpEndOp, int32(len(c.ops)))
		} else {
			c.patch(jmpElseOp, int32(len(c.ops)))
		}
		return true

	case c.tok.Kind == TokKwWhile:
		c.advance()
		c.enterScope(true)
		start := len(c.ops)

		c.expectExpr(minExprPrecedence)
		jmpEndOp := c.emit(OpJmpN, -1)

		c.expectStmt()
		c.emit(OpJmp, int32(start))
		c.patch(jmpEndOp, int32(len(c.ops)))

		c.exitScope()
		return true

	case c.tok.Kind == TokKwBreak:
		if !c.inLoop() {
			c.fail("'break' not within loop")
		}
		c.advance()
		c.breakOps = append(c.breakOps, c.emit(OpJmp, -1))
		return true

	case c.tok.Kind == TokKwContinue:
		target, ok := c.nearestLoopStart()
		if !ok {
			c.fail("'continue' not within loop")
		}
		c.advance()
		c.emit(OpJmp, target)
		return true

	case c.tok.Kind == TokKwReturn:
		c.advance()
		if !c.eatExpr(minExprPrecedence) {
			c.emit(OpGetConst, c.getConst(NilValue))
		}
		c.emit(OpRet, 0)
		return true

	default:
		if !c.eatExpr(minExprPrecedence) {
			return false
		}
		c.rewriteAsAssignmentIfFollowedByEq()
		return true
	}
}

// inLoop reports whether any enclosing scope is a loop.
func (c *Compiler) inLoop() bool {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if c.scopes[i].isLoop {
			return true
		}
	}
	return false
}

// nearestLoopStart returns the firstOp of the innermost enclosing loop
// scope.
func (c *Compiler) nearestLoopStart() (int32, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if c.scopes[i].isLoop {
			return int32(c.scopes[i].firstOp), true
		}
	}
	return 0, false
}

// rewriteAsAssignmentIfFollowedByEq implements assignment as a syntactic
// rewrite of an ordinary expression statement: one whose last-emitted op is
// GetVar or GetElem, and
// which is immediately followed by `=`, has that op popped and replaced by
// the corresponding Set op around the RHS; otherwise the expression's
// value is simply discarded with Eat.
func (c *Compiler) rewriteAsAssignmentIfFollowedByEq() {
	if c.tok.Kind != TokenKind('=') {
		c.emit(OpEat, 0)
		return
	}

	if len(c.ops) == 0 {
		c.fail("assignment to unassignable expression")
	}
	lastIdx := len(c.ops) - 1
	last := c.ops[lastIdx]

	switch last.Opcode() {
	case OpGetVar:
		slot := last.Arg()
		c.ops = c.ops[:lastIdx]
		c.advance()
		c.expectExpr(minExprPrecedence)
		c.emit(OpSetVar, slot)
	case OpGetElem:
		c.ops = c.ops[:lastIdx]
		c.advance()
		c.expectExpr(minExprPrecedence)
		c.emit(OpSetElem, 0)
	default:
		c.fail("assignment to unassignable expression")
	}
}

func (c *Compiler) expectStmt() {
	if !c.eatStmt() {
		c.fail("expected statement before %s", c.tok.desc())
	}
}

func (c *Compiler) eatStmtList() {
	for c.eatStmt() {
		if !c.eatSepToken() {
			break
		}
	}
}

// eatFuncStmtList parses a function body's statement list and guarantees
// its invariant that every Func ends in Ret: if the body falls off the end
// without one, `GetConst(nil); Ret` is appended. The same pair is appended
// when a jump targets the op just past the body (an if whose branch ends in
// return), so every jump target is a valid op index.
func (c *Compiler) eatFuncStmtList() {
	c.eatStmtList()
	end := int32(len(c.ops))
	needRet := end == 0 || c.ops[end-1].Opcode() != OpRet
	for _, op := range c.ops {
		if (op.Opcode() == OpJmp || op.Opcode() == OpJmpN) && op.Arg() == end {
			needRet = true
		}
	}
	if needRet {
		c.emit(OpGetConst, c.getConst(NilValue))
		c.emit(OpRet, 0)
	}
}

// unescapeString decodes a string token's raw text (backslash escapes
// intact) into its byte value. The lexer has already rejected any escape
// other than \" \\ \n \t \f \r \b, so no further validation is needed here.
func unescapeString(raw string) []byte {
	if len(raw) == 0 {
		return nil
	}
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' {
			out = append(out, c)
			continue
		}
		i++
		switch raw[i] {
		case '"':
			out = append(out, '"')
		case '\\':
			out = append(out, '\\')
		case 'n':
			out = append(out, '\n')
		case 't':
			out = append(out, '\t')
		case 'f':
			out = append(out, '\f')
		case 'r':
			out = append(out, '\r')
		case 'b':
			out = append(out, '\b')
		}
	}
	return out
}

// Compile compiles src (file is used only for diagnostics) into a Func.
// src need not be NUL-terminated; a trailing NUL is appended if missing.
// Any lex or parse failure is recovered here and returned as an error
// formatted "file:line: message"; a successful compile never returns an
// error.
//
// Grounded on original_source/source/sl/compiler.cpp's Compiler::run,
// wrapped in internal/panicerr's panic-then-recover-at-the-boundary
// discipline in place of the original's try/catch(...).
func Compile(heap *Heap, file string, src []byte) (*Func, error) {
	var fn *Func
	err := panicerr.Recover("compile "+file, func() (rerr error) {
		c := &Compiler{heap: heap, file: file, lexer: newLexer(file, src)}
		c.advance()

		c.eatFuncStmtList()

		c.expectToken(TokEof, "end of file")

		fn = heap.NewFunc(c.consts, c.ops, c.nParams, c.nLocals)
		return nil
	})
	if err != nil {
		return nil, unwrapCompileDiagnostic(err)
	}
	return fn, nil
}

// unwrapCompileDiagnostic recovers a known diagnostic (lexError,
// compileError, heapLimitError) from the panicerr wrapper panicerr.Recover
// returns, so callers see the diagnostic's own file:line:message form
// instead of a generic "paniced: ..." wrapper. An unrecognized panic
// (an actual implementation bug, not a source diagnostic) is returned
// unwrapped, preserving panicerr's "paniced: ..." framing as a signal that
// something went wrong beyond the usual compile-error paths.
func unwrapCompileDiagnostic(err error) error {
	var ce compileError
	if errors.As(err, &ce) {
		return ce
	}
	var le lexError
	if errors.As(err, &le) {
		return le
	}
	var he heapLimitError
	if errors.As(err, &he) {
		return he
	}
	return err
}
