package compiler

import (
	"github.com/kristofer/smogvm/pkg/bytecode"
	"github.com/kristofer/smogvm/pkg/value"
)

// precedence orders the binary operators from loosest- to
// tightest-binding. There is no Or/And tier: this language's grammar
// has no short-circuit logical operators, so `and`/`or` are not
// defined.
type precedence int

const (
	precNone precedence = iota
	precAssignment
	precEquality
	precComparison
	precTerm
	precFactor
	precUnary
	precCall
	precPrimary
)

type parseFn func(p *parser, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence precedence
}

var rules map[TokenType]parseRule

func init() {
	rules = map[TokenType]parseRule{
		TokenLeftParen:    {prefix: (*parser).grouping, infix: (*parser).call, precedence: precCall},
		TokenMinus:        {prefix: (*parser).unary, infix: (*parser).binary, precedence: precTerm},
		TokenPlus:         {infix: (*parser).binary, precedence: precTerm},
		TokenSlash:        {infix: (*parser).binary, precedence: precFactor},
		TokenStar:         {infix: (*parser).binary, precedence: precFactor},
		TokenBang:         {prefix: (*parser).unary},
		TokenBangEqual:    {infix: (*parser).binary, precedence: precEquality},
		TokenEqualEqual:   {infix: (*parser).binary, precedence: precEquality},
		TokenGreater:      {infix: (*parser).binary, precedence: precComparison},
		TokenGreaterEqual: {infix: (*parser).binary, precedence: precComparison},
		TokenLess:         {infix: (*parser).binary, precedence: precComparison},
		TokenLessEqual:    {infix: (*parser).binary, precedence: precComparison},
		TokenIdentifier:   {prefix: (*parser).variable},
		TokenString:       {prefix: (*parser).stringLiteral},
		TokenNumber:       {prefix: (*parser).number},
		TokenFalse:        {prefix: (*parser).literal},
		TokenTrue:         {prefix: (*parser).literal},
		TokenNil:          {prefix: (*parser).literal},
	}
}

func ruleFor(t TokenType) parseRule { return rules[t] }

func (p *parser) expression() {
	p.parsePrecedence(precAssignment)
}

func (p *parser) parsePrecedence(prec precedence) {
	p.advance()
	prefix := ruleFor(p.previous.Type).prefix
	if prefix == nil {
		p.error("Expect expression.")
		return
	}
	canAssign := prec <= precAssignment
	prefix(p, canAssign)

	for prec <= ruleFor(p.current.Type).precedence {
		p.advance()
		infix := ruleFor(p.previous.Type).infix
		infix(p, canAssign)
	}

	if canAssign && p.match(TokenEqual) {
		p.error("Invalid assignment target.")
	}
}

func (p *parser) number(canAssign bool) {
	p.emitConstant(value.Number(parseNumber(p.previous.Lexeme)))
}

func (p *parser) stringLiteral(canAssign bool) {
	p.emitConstant(value.FromObj(p.alloc.InternString(p.previous.Lexeme)))
}

func (p *parser) literal(canAssign bool) {
	switch p.previous.Type {
	case TokenFalse:
		p.emitOp(bytecode.OpFalse)
	case TokenTrue:
		p.emitOp(bytecode.OpTrue)
	case TokenNil:
		p.emitOp(bytecode.OpNil)
	}
}

func (p *parser) grouping(canAssign bool) {
	p.expression()
	p.consume(TokenRightParen, "Expect ')' after expression.")
}

func (p *parser) unary(canAssign bool) {
	opType := p.previous.Type
	p.parsePrecedence(precUnary)
	switch opType {
	case TokenBang:
		p.emitOp(bytecode.OpNot)
	case TokenMinus:
		p.emitOp(bytecode.OpNegate)
	}
}

func (p *parser) binary(canAssign bool) {
	opType := p.previous.Type
	rule := ruleFor(opType)
	p.parsePrecedence(rule.precedence + 1)

	switch opType {
	case TokenBangEqual:
		p.emitOp(bytecode.OpEqual)
		p.emitOp(bytecode.OpNot)
	case TokenEqualEqual:
		p.emitOp(bytecode.OpEqual)
	case TokenGreater:
		p.emitOp(bytecode.OpGreater)
	case TokenGreaterEqual:
		p.emitOp(bytecode.OpLess)
		p.emitOp(bytecode.OpNot)
	case TokenLess:
		p.emitOp(bytecode.OpLess)
	case TokenLessEqual:
		p.emitOp(bytecode.OpGreater)
		p.emitOp(bytecode.OpNot)
	case TokenPlus:
		p.emitOp(bytecode.OpAdd)
	case TokenMinus:
		p.emitOp(bytecode.OpSubtract)
	case TokenStar:
		p.emitOp(bytecode.OpMultiply)
	case TokenSlash:
		p.emitOp(bytecode.OpDivide)
	}
}

func (p *parser) variable(canAssign bool) {
	p.namedVariable(p.previous, canAssign)
}

func (p *parser) namedVariable(name Token, canAssign bool) {
	var getOp, setOp bytecode.OpCode
	arg := p.resolveLocal(p.cs, name)
	if arg != -1 {
		getOp, setOp = bytecode.OpGetLocal, bytecode.OpSetLocal
	} else {
		arg = int(p.identifierConstant(name))
		getOp, setOp = bytecode.OpGetGlobal, bytecode.OpSetGlobal
	}

	if canAssign && p.match(TokenEqual) {
		p.expression()
		p.emitOpByte(setOp, byte(arg))
	} else {
		p.emitOpByte(getOp, byte(arg))
	}
}

// call compiles a function-call argument list: `(` arg, arg, ... `)`.
func (p *parser) call(canAssign bool) {
	argc := p.argumentList()
	p.emitOpByte(bytecode.OpCall, argc)
}

func (p *parser) argumentList() byte {
	argc := 0
	if !p.check(TokenRightParen) {
		for {
			p.expression()
			if argc == 255 {
				p.error("Can't have more than 255 arguments.")
			}
			argc++
			if !p.match(TokenComma) {
				break
			}
		}
	}
	p.consume(TokenRightParen, "Expect ')' after arguments.")
	return byte(argc)
}
