package compiler

import (
	"github.com/kristofer/smogvm/pkg/bytecode"
	"github.com/kristofer/smogvm/pkg/value"
)

func (p *parser) declaration() {
	switch {
	case p.match(TokenFun):
		p.funDeclaration()
	case p.match(TokenVar):
		p.varDeclaration()
	default:
		p.statement()
	}
	if p.panicMode {
		p.synchronize()
	}
}

func (p *parser) statement() {
	switch {
	case p.match(TokenPrint):
		p.printStatement()
	case p.match(TokenIf):
		p.ifStatement()
	case p.match(TokenWhile):
		p.whileStatement()
	case p.match(TokenFor):
		p.forStatement()
	case p.match(TokenReturn):
		p.returnStatement()
	case p.match(TokenLeftBrace):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.expressionStatement()
	}
}

func (p *parser) block() {
	for !p.check(TokenRightBrace) && !p.check(TokenEOF) {
		p.declaration()
	}
	p.consume(TokenRightBrace, "Expect '}' after block.")
}

func (p *parser) varDeclaration() {
	global := p.parseVariable("Expect variable name.")
	if p.match(TokenEqual) {
		p.expression()
	} else {
		p.emitOp(bytecode.OpNil)
	}
	p.consume(TokenSemicolon, "Expect ';' after variable declaration.")
	p.defineVariable(global)
}

func (p *parser) funDeclaration() {
	p.consume(TokenIdentifier, "Expect function name.")
	nameTok := p.previous
	p.declareVariable()
	var global byte
	if p.cs.scopeDepth == 0 {
		global = p.identifierConstant(nameTok)
	}
	p.markInitialized()
	p.function(nameTok, typeFunction)
	p.defineVariable(global)
}

// function compiles a `fun name(params) { body }` declaration's body
// into its own chunk, nested inside the enclosing one. functionState
// chains to the enclosing one the way clox chains Compiler structs,
// even though — with no closures in scope — the only thing ever
// resolved through that chain is "not found, must be global".
func (p *parser) function(name Token, t functionType) {
	fn := p.alloc.NewFunction()
	fn.Name = p.alloc.InternString(name.Lexeme)

	p.cs = newFunctionState(p.cs, fn, t)
	p.beginScope()

	p.consume(TokenLeftParen, "Expect '(' after function name.")
	if !p.check(TokenRightParen) {
		for {
			fn.Arity++
			if fn.Arity > 255 {
				p.errorAtCurrent("Can't have more than 255 parameters.")
			}
			paramConst := p.parseVariable("Expect parameter name.")
			p.defineVariable(paramConst)
			if !p.match(TokenComma) {
				break
			}
		}
	}
	p.consume(TokenRightParen, "Expect ')' after parameters.")
	p.consume(TokenLeftBrace, "Expect '{' before function body.")
	p.block()

	compiled := p.endFunction()
	p.emitConstant(value.FromObj(compiled))
}

func (p *parser) printStatement() {
	p.expression()
	p.consume(TokenSemicolon, "Expect ';' after value.")
	p.emitOp(bytecode.OpPrint)
}

func (p *parser) expressionStatement() {
	p.expression()
	p.consume(TokenSemicolon, "Expect ';' after expression.")
	p.emitOp(bytecode.OpPop)
}

func (p *parser) returnStatement() {
	if p.cs.fnType == typeScript {
		p.error("Can't return from top-level code.")
	}
	if p.match(TokenSemicolon) {
		p.emitOp(bytecode.OpNil)
		p.emitOp(bytecode.OpReturn)
		return
	}
	p.expression()
	p.consume(TokenSemicolon, "Expect ';' after return value.")
	p.emitOp(bytecode.OpReturn)
}

func (p *parser) ifStatement() {
	p.consume(TokenLeftParen, "Expect '(' after 'if'.")
	p.expression()
	p.consume(TokenRightParen, "Expect ')' after condition.")

	thenJump := p.emitJump(bytecode.OpJumpIfFalse)
	p.emitOp(bytecode.OpPop)
	p.statement()

	elseJump := p.emitJump(bytecode.OpJump)
	p.patchJump(thenJump)
	p.emitOp(bytecode.OpPop)

	if p.match(TokenElse) {
		p.statement()
	}
	p.patchJump(elseJump)
}

func (p *parser) whileStatement() {
	loopStart := len(p.chunk().Code)
	p.consume(TokenLeftParen, "Expect '(' after 'while'.")
	p.expression()
	p.consume(TokenRightParen, "Expect ')' after condition.")

	exitJump := p.emitJump(bytecode.OpJumpIfFalse)
	p.emitOp(bytecode.OpPop)
	p.statement()
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
	p.emitOp(bytecode.OpPop)
}

// forStatement desugars `for (init; cond; incr) body` into the
// equivalent while-loop bytecode instead of giving `for` its own
// opcodes.
func (p *parser) forStatement() {
	p.beginScope()
	p.consume(TokenLeftParen, "Expect '(' after 'for'.")

	switch {
	case p.match(TokenSemicolon):
		// no initializer
	case p.match(TokenVar):
		p.varDeclaration()
	default:
		p.expressionStatement()
	}

	loopStart := len(p.chunk().Code)
	exitJump := -1
	if !p.match(TokenSemicolon) {
		p.expression()
		p.consume(TokenSemicolon, "Expect ';' after loop condition.")
		exitJump = p.emitJump(bytecode.OpJumpIfFalse)
		p.emitOp(bytecode.OpPop)
	}

	if !p.match(TokenRightParen) {
		bodyJump := p.emitJump(bytecode.OpJump)
		incrStart := len(p.chunk().Code)
		p.expression()
		p.emitOp(bytecode.OpPop)
		p.consume(TokenRightParen, "Expect ')' after for clauses.")

		p.emitLoop(loopStart)
		loopStart = incrStart
		p.patchJump(bodyJump)
	}

	p.statement()
	p.emitLoop(loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emitOp(bytecode.OpPop)
	}
	p.endScope()
}
