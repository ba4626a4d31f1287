package bytecode

import (
	"fmt"
	"io"
)

// Disassemble writes a human-readable listing of every instruction in c
// to w, labelled name. It is a read-only consumer of the chunk format:
// it never mutates c, and its offset walk always lands exactly on
// instruction boundaries, ending at len(c.Code) — the same contract the
// execution engine relies on when it decodes operands.
func Disassemble(w io.Writer, c *Chunk, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for offset := 0; offset < len(c.Code); {
		offset = DisassembleInstruction(w, c, offset)
	}
}

// DisassembleInstruction prints the single instruction at offset and
// returns the offset of the next instruction.
func DisassembleInstruction(w io.Writer, c *Chunk, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)
	line := c.GetLine(offset)
	if offset > 0 && line == c.GetLine(offset-1) {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", line)
	}

	op := OpCode(c.Code[offset])
	switch op {
	case OpConstant, OpDefineGlobal, OpGetGlobal, OpSetGlobal:
		return constantInstruction(w, op, c, offset)
	case OpGetLocal, OpSetLocal, OpPopN, OpCall:
		return byteInstruction(w, op, c, offset)
	case OpJump, OpJumpIfFalse:
		return jumpInstruction(w, op, c, offset, 1)
	case OpLoop:
		return jumpInstruction(w, op, c, offset, -1)
	default:
		fmt.Fprintf(w, "%s\n", op)
		return offset + 1
	}
}

func constantInstruction(w io.Writer, op OpCode, c *Chunk, offset int) int {
	idx := c.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d '%s'\n", op, idx, c.Constants[idx].String())
	return offset + 2
}

func byteInstruction(w io.Writer, op OpCode, c *Chunk, offset int) int {
	slot := c.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d\n", op, slot)
	return offset + 2
}

func jumpInstruction(w io.Writer, op OpCode, c *Chunk, offset int, sign int) int {
	jump := int(c.Code[offset+1])<<8 | int(c.Code[offset+2])
	fmt.Fprintf(w, "%-16s %4d -> %d\n", op, offset, offset+3+sign*jump)
	return offset + 3
}
