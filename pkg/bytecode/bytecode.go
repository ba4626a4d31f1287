// Package bytecode defines the bytecode format the virtual machine
// executes: the opcode set, the packed instruction encoding, the
// constant pool, and the run-length-encoded source line table.
//
// Architecture:
//
// Unlike a tree-walking interpreter, execution here never revisits the
// AST. The compiler (pkg/compiler, an external collaborator as far as
// this package is concerned) flattens a function body into a flat byte
// stream plus a constant pool:
//
//	1. Values too large to fit in an operand (numbers, strings) live in
//	   the constant pool and are referenced by an 8-bit index.
//	2. Every opcode is exactly one byte; its operands, if any, follow
//	   immediately in the code stream (one or two bytes, big-endian).
//	3. Source line numbers are recorded out-of-band in a run-length
//	   encoded table, one run per contiguous span of bytes on the same
//	   line, so correctly-indented source doesn't cost a line number
//	   per byte.
//
// Example:
//
//	Source:  print 1 + 2;
//
//	Bytecode:
//	  OP_CONSTANT 0   ; constants[0] = 1
//	  OP_CONSTANT 1   ; constants[1] = 2
//	  OP_ADD
//	  OP_PRINT
//	  OP_NIL
//	  OP_RETURN
package bytecode

import (
	"github.com/samber/lo"

	"github.com/kristofer/smogvm/pkg/value"
)

// OpCode identifies a single bytecode instruction.
type OpCode byte

// The opcode set. Every opcode's operand encoding and stack effect is
// documented on the constant; the execution engine (pkg/vm) and the
// disassembler in this package share this one table so they can never
// disagree about what a byte means.
const (
	// OpConstant pushes constants[idx] onto the stack. Operand: idx u8.
	OpConstant OpCode = iota
	OpNil
	OpTrue
	OpFalse
	// OpPop discards the top of the stack.
	OpPop
	// OpPopN discards n slots. Operand: n u8.
	OpPopN
	// OpGetLocal pushes frame.slots[slot]. Operand: slot u8.
	OpGetLocal
	// OpSetLocal sets frame.slots[slot] = peek(0), leaving the value on
	// the stack (assignment is an expression). Operand: slot u8.
	OpSetLocal
	// OpDefineGlobal binds globals[name] = peek(0), then pops. Operand:
	// nameIdx u8 (index into the constant pool of the name string).
	OpDefineGlobal
	// OpGetGlobal pushes the value bound to name, or raises "Undefined
	// variable" if unbound. Operand: nameIdx u8.
	OpGetGlobal
	// OpSetGlobal rebinds an existing global; it does not create a new
	// one. Operand: nameIdx u8.
	OpSetGlobal
	OpEqual
	OpGreater
	OpLess
	// OpAdd adds two numbers or concatenates two strings.
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpNot
	OpNegate
	// OpPrint pops and prints the top of stack followed by a newline.
	OpPrint
	// OpJump unconditionally advances ip by the u16 big-endian operand.
	OpJump
	// OpJumpIfFalse advances ip by the operand if peek(0) is falsey; the
	// condition value is left on the stack.
	OpJumpIfFalse
	// OpLoop rewinds ip by the u16 big-endian operand (a backward jump).
	OpLoop
	// OpCall invokes peek(argc) with argc arguments. Operand: argc u8.
	OpCall
	// OpReturn pops the return value and unwinds the current frame.
	OpReturn
)

var opcodeNames = [...]string{
	OpConstant:     "OP_CONSTANT",
	OpNil:          "OP_NIL",
	OpTrue:         "OP_TRUE",
	OpFalse:        "OP_FALSE",
	OpPop:          "OP_POP",
	OpPopN:         "OP_POPN",
	OpGetLocal:     "OP_GET_LOCAL",
	OpSetLocal:     "OP_SET_LOCAL",
	OpDefineGlobal: "OP_DEFINE_GLOBAL",
	OpGetGlobal:    "OP_GET_GLOBAL",
	OpSetGlobal:    "OP_SET_GLOBAL",
	OpEqual:        "OP_EQUAL",
	OpGreater:      "OP_GREATER",
	OpLess:         "OP_LESS",
	OpAdd:          "OP_ADD",
	OpSubtract:     "OP_SUBTRACT",
	OpMultiply:     "OP_MULTIPLY",
	OpDivide:       "OP_DIVIDE",
	OpNot:          "OP_NOT",
	OpNegate:       "OP_NEGATE",
	OpPrint:        "OP_PRINT",
	OpJump:         "OP_JUMP",
	OpJumpIfFalse:  "OP_JUMP_IF_FALSE",
	OpLoop:         "OP_LOOP",
	OpCall:         "OP_CALL",
	OpReturn:       "OP_RETURN",
}

// String renders the opcode's mnemonic, used by the disassembler and so
// by execution tracing.
func (op OpCode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return "OP_UNKNOWN"
}

// MaxConstants is the largest number of constants a single chunk may
// hold: OP_CONSTANT and friends reference the pool with an 8-bit index.
const MaxConstants = 256

// LineRun is one run of the RLE line table: Count consecutive bytes of
// code all originate from source Line. Exported so the binary chunk
// format (SaveBinary/LoadBinary) can serialize and reconstruct a
// chunk's line table without the decoder re-deriving it by re-walking
// source it no longer has.
type LineRun struct {
	Line  int
	Count int
}

// Chunk is the compiled artifact of one function body: its instruction
// stream, its constant pool, and the line table mapping code offsets
// back to source lines for diagnostics.
type Chunk struct {
	Code      []byte
	Constants []value.Value
	lines     []LineRun
}

// NewChunk returns an empty chunk ready for Write/AddConstant.
func NewChunk() *Chunk {
	return &Chunk{}
}

// Write appends one byte of code, recording that it originates from the
// given source line. Consecutive writes on the same line extend the
// current run instead of starting a new one.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	if n := len(c.lines); n > 0 && c.lines[n-1].Line == line {
		c.lines[n-1].Count++
		return
	}
	c.lines = append(c.lines, LineRun{Line: line, Count: 1})
}

// WriteOp appends an opcode byte, equivalent to Write(byte(op), line).
func (c *Chunk) WriteOp(op OpCode, line int) {
	c.Write(byte(op), line)
}

// AddConstant appends v to the constant pool and returns its index. It
// panics if the pool is already at MaxConstants; the compiler is
// expected to check this ahead of time and report it as a compile
// error instead of letting it reach this call.
func (c *Chunk) AddConstant(v value.Value) int {
	if len(c.Constants) >= MaxConstants {
		panic("bytecode: constant pool overflow")
	}
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// GetLine returns the source line responsible for the byte at offset.
// It is monotonically non-decreasing in offset by construction: the
// line table is built by contiguous, ascending runs.
func (c *Chunk) GetLine(offset int) int {
	pos := 0
	for _, run := range c.lines {
		pos += run.Count
		if offset < pos {
			return run.Line
		}
	}
	if len(c.lines) == 0 {
		return 0
	}
	return c.lines[len(c.lines)-1].Line
}

// Lines returns the chunk's run-length-encoded line table.
func (c *Chunk) Lines() []LineRun { return c.lines }

// LineCount reports how many distinct source lines contributed code to
// the chunk, a cheap diagnostic the disassembler could use for a
// summary header. Built by folding the RLE run table with lo.UniqBy
// rather than re-walking c.Code line by line.
func (c *Chunk) LineCount() int {
	return len(lo.UniqBy(c.lines, func(r LineRun) int { return r.Line }))
}

// InstructionBytes reports the total number of code bytes the line
// table accounts for — equivalent to len(c.Code) but derived from the
// RLE runs, so comparing it with len(c.Code) checks that the line table
// and the code stream stayed in sync.
func (c *Chunk) InstructionBytes() int {
	return lo.SumBy(c.lines, func(r LineRun) int { return r.Count })
}

// FromParts reconstructs a Chunk from already-decoded pieces, used by
// the binary chunk loader to rebuild a Chunk without replaying Write
// calls one byte at a time.
func FromParts(code []byte, constants []value.Value, lines []LineRun) *Chunk {
	return &Chunk{Code: code, Constants: constants, lines: lines}
}
