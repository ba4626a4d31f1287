package compiler

import (
	"fmt"
	"strconv"

	"github.com/kristofer/smogvm/pkg/bytecode"
	"github.com/kristofer/smogvm/pkg/object"
	"github.com/kristofer/smogvm/pkg/value"
)

// Allocator is the narrow slice of the VM's heap the compiler needs:
// enough to intern string literals and identifier names, and to
// allocate the Function objects backing the top-level script and every
// nested `fun` declaration. pkg/vm's Heap satisfies this interface
// structurally, so this package never imports pkg/vm — the call runs
// the other way, from VM.Interpret into compiler.Compile.
type Allocator interface {
	InternString(chars string) *object.String
	NewFunction() *object.Function
}

// CompileError reports a compile-time failure: a syntax error message
// together with the source line it occurred on.
type CompileError struct {
	Message string
	Line    int
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("[line %d] Error: %s", e.Line, e.Message)
}

// Compile scans and parses source in a single pass, emitting bytecode
// directly into a synthetic top-level Function's chunk (the "script"
// function, identified by a nil Name). It returns the first syntax
// error encountered, a nil *object.Function and non-nil error standing
// in for the usual Option/Result split.
func Compile(alloc Allocator, source string) (*object.Function, error) {
	p := &parser{alloc: alloc, lx: newLexer(source)}
	p.cs = newFunctionState(nil, alloc.NewFunction(), typeScript)

	p.advance()
	for !p.match(TokenEOF) {
		p.declaration()
	}

	fn := p.endFunction()
	if p.firstErr != nil {
		return nil, p.firstErr
	}
	return fn, nil
}

type functionType int

const (
	typeFunction functionType = iota
	typeScript
)

// local tracks one in-scope local variable by name and the block depth
// it was declared at. depth == -1 marks a local whose initializer is
// still being compiled (so `var a = a;` inside a block is reported as a
// compile error instead of reading the uninitialized slot).
type local struct {
	name  string
	depth int
}

// functionState is one nested compilation unit: every `fun` body gets
// its own, chained to the enclosing one so a function can fall back to
// resolving names (here: only its own locals — there are no upvalues or
// closures) while code generation always targets the innermost
// function's chunk.
type functionState struct {
	enclosing *functionState
	function  *object.Function
	fnType    functionType

	locals     []local
	scopeDepth int
}

func newFunctionState(enclosing *functionState, fn *object.Function, t functionType) *functionState {
	fs := &functionState{enclosing: enclosing, function: fn, fnType: t}
	// Slot 0 is reserved for the callee itself.
	fs.locals = append(fs.locals, local{name: "", depth: 0})
	return fs
}

type parser struct {
	alloc Allocator
	lx    *lexer

	current  Token
	previous Token

	panicMode bool
	firstErr  error

	cs *functionState
}

func (p *parser) chunk() *bytecode.Chunk { return p.cs.function.Chunk }

func (p *parser) advance() {
	p.previous = p.current
	for {
		p.current = p.lx.next()
		if p.current.Type != TokenError {
			break
		}
		p.errorAtCurrent(p.current.Lexeme)
	}
}

func (p *parser) check(t TokenType) bool { return p.current.Type == t }

func (p *parser) match(t TokenType) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *parser) consume(t TokenType, msg string) {
	if p.current.Type == t {
		p.advance()
		return
	}
	p.errorAtCurrent(msg)
}

func (p *parser) errorAtCurrent(msg string) { p.errorAt(p.current, msg) }
func (p *parser) error(msg string)          { p.errorAt(p.previous, msg) }

func (p *parser) errorAt(tok Token, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	if p.firstErr == nil {
		p.firstErr = &CompileError{Message: msg, Line: tok.Line}
	}
}

// synchronize skips tokens after a parse error until it finds a
// plausible statement boundary, so one mistake doesn't cascade into a
// page of spurious follow-on errors.
func (p *parser) synchronize() {
	p.panicMode = false
	for p.current.Type != TokenEOF {
		if p.previous.Type == TokenSemicolon {
			return
		}
		switch p.current.Type {
		case TokenFun, TokenVar, TokenFor, TokenIf, TokenWhile, TokenPrint, TokenReturn:
			return
		}
		p.advance()
	}
}

// --- emission helpers -------------------------------------------------

func (p *parser) emitByte(b byte) { p.chunk().Write(b, p.previous.Line) }
func (p *parser) emitOp(op bytecode.OpCode) { p.chunk().WriteOp(op, p.previous.Line) }
func (p *parser) emitOpByte(op bytecode.OpCode, b byte) {
	p.emitOp(op)
	p.emitByte(b)
}

func (p *parser) emitConstant(v value.Value) {
	idx := p.makeConstant(v)
	p.emitOpByte(bytecode.OpConstant, idx)
}

func (p *parser) makeConstant(v value.Value) byte {
	if len(p.chunk().Constants) >= bytecode.MaxConstants {
		p.error("Too many constants in one chunk.")
		return 0
	}
	return byte(p.chunk().AddConstant(v))
}

func (p *parser) emitJump(op bytecode.OpCode) int {
	p.emitOp(op)
	p.emitByte(0xff)
	p.emitByte(0xff)
	return len(p.chunk().Code) - 2
}

func (p *parser) patchJump(offset int) {
	jump := len(p.chunk().Code) - offset - 2
	if jump > 0xffff {
		p.error("Too much code to jump over.")
	}
	p.chunk().Code[offset] = byte(jump >> 8)
	p.chunk().Code[offset+1] = byte(jump & 0xff)
}

func (p *parser) emitLoop(loopStart int) {
	p.emitOp(bytecode.OpLoop)
	offset := len(p.chunk().Code) - loopStart + 2
	if offset > 0xffff {
		p.error("Loop body too large.")
	}
	p.emitByte(byte(offset >> 8))
	p.emitByte(byte(offset & 0xff))
}

func (p *parser) endFunction() *object.Function {
	p.emitOp(bytecode.OpNil)
	p.emitOp(bytecode.OpReturn)
	fn := p.cs.function
	if p.cs.enclosing != nil {
		p.cs = p.cs.enclosing
	}
	return fn
}

// --- scopes and locals -------------------------------------------------

func (p *parser) beginScope() { p.cs.scopeDepth++ }

func (p *parser) endScope() {
	p.cs.scopeDepth--
	n := 0
	for len(p.cs.locals) > 0 && p.cs.locals[len(p.cs.locals)-1].depth > p.cs.scopeDepth {
		p.cs.locals = p.cs.locals[:len(p.cs.locals)-1]
		n++
	}
	if n == 1 {
		p.emitOp(bytecode.OpPop)
	} else if n > 1 {
		p.emitOpByte(bytecode.OpPopN, byte(n))
	}
}

func (p *parser) identifierConstant(name Token) byte {
	return p.makeConstant(value.FromObj(p.alloc.InternString(name.Lexeme)))
}

func (p *parser) resolveLocal(fs *functionState, name Token) int {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].name == name.Lexeme {
			if fs.locals[i].depth == -1 {
				p.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

func (p *parser) declareVariable() {
	if p.cs.scopeDepth == 0 {
		return
	}
	name := p.previous
	for i := len(p.cs.locals) - 1; i >= 0; i-- {
		l := p.cs.locals[i]
		if l.depth != -1 && l.depth < p.cs.scopeDepth {
			break
		}
		if l.name == name.Lexeme {
			p.error("Already a variable with this name in this scope.")
		}
	}
	if len(p.cs.locals) >= 256 {
		p.error("Too many local variables in function.")
		return
	}
	p.cs.locals = append(p.cs.locals, local{name: name.Lexeme, depth: -1})
}

func (p *parser) parseVariable(errMsg string) byte {
	p.consume(TokenIdentifier, errMsg)
	p.declareVariable()
	if p.cs.scopeDepth > 0 {
		return 0
	}
	return p.identifierConstant(p.previous)
}

func (p *parser) markInitialized() {
	if p.cs.scopeDepth == 0 {
		return
	}
	p.cs.locals[len(p.cs.locals)-1].depth = p.cs.scopeDepth
}

func (p *parser) defineVariable(global byte) {
	if p.cs.scopeDepth > 0 {
		p.markInitialized()
		return
	}
	p.emitOpByte(bytecode.OpDefineGlobal, global)
}

// --- numbers -------------------------------------------------------

func parseNumber(lexeme string) float64 {
	n, _ := strconv.ParseFloat(lexeme, 64)
	return n
}
