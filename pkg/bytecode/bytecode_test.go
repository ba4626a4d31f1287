package bytecode_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kristofer/smogvm/pkg/bytecode"
	"github.com/kristofer/smogvm/pkg/value"
)

func TestWriteTracksLineRuns(t *testing.T) {
	c := bytecode.NewChunk()
	c.WriteOp(bytecode.OpNil, 1)
	c.WriteOp(bytecode.OpNil, 1)
	c.WriteOp(bytecode.OpReturn, 2)

	if got, want := c.GetLine(0), 1; got != want {
		t.Fatalf("GetLine(0) = %d, want %d", got, want)
	}
	if got, want := c.GetLine(1), 1; got != want {
		t.Fatalf("GetLine(1) = %d, want %d", got, want)
	}
	if got, want := c.GetLine(2), 2; got != want {
		t.Fatalf("GetLine(2) = %d, want %d", got, want)
	}

	runs := c.Lines()
	if len(runs) != 2 {
		t.Fatalf("expected two runs (consecutive same-line writes coalesce), got %d: %+v", len(runs), runs)
	}
	if runs[0].Line != 1 || runs[0].Count != 2 {
		t.Fatalf("first run = %+v, want {Line:1 Count:2}", runs[0])
	}
	if runs[1].Line != 2 || runs[1].Count != 1 {
		t.Fatalf("second run = %+v, want {Line:2 Count:1}", runs[1])
	}
}

func TestAddConstantReturnsIndex(t *testing.T) {
	c := bytecode.NewChunk()
	i0 := c.AddConstant(value.Number(1))
	i1 := c.AddConstant(value.Number(2))
	if i0 != 0 || i1 != 1 {
		t.Fatalf("got indices %d, %d, want 0, 1", i0, i1)
	}
}

func TestAddConstantPanicsOverMax(t *testing.T) {
	c := bytecode.NewChunk()
	for i := 0; i < bytecode.MaxConstants; i++ {
		c.AddConstant(value.Number(float64(i)))
	}
	defer func() {
		if recover() == nil {
			t.Fatal("expected AddConstant to panic once the pool is full")
		}
	}()
	c.AddConstant(value.Number(999))
}

func TestOpCodeStringKnownAndUnknown(t *testing.T) {
	if got, want := bytecode.OpReturn.String(), "OP_RETURN"; got != want {
		t.Fatalf("OpReturn.String() = %q, want %q", got, want)
	}
	unknown := bytecode.OpCode(255)
	if got, want := unknown.String(), "OP_UNKNOWN"; got != want {
		t.Fatalf("unknown opcode String() = %q, want %q", got, want)
	}
}

func TestDisassembleProducesReadableListing(t *testing.T) {
	c := bytecode.NewChunk()
	idx := c.AddConstant(value.Number(42))
	c.WriteOp(bytecode.OpConstant, 7)
	c.Write(byte(idx), 7)
	c.WriteOp(bytecode.OpReturn, 7)

	var buf bytes.Buffer
	bytecode.Disassemble(&buf, c, "test chunk")
	out := buf.String()

	if !strings.Contains(out, "== test chunk ==") {
		t.Fatalf("missing header, got:\n%s", out)
	}
	if !strings.Contains(out, "OP_CONSTANT") {
		t.Fatalf("missing OP_CONSTANT, got:\n%s", out)
	}
	if !strings.Contains(out, "42") {
		t.Fatalf("missing constant value, got:\n%s", out)
	}
	if !strings.Contains(out, "OP_RETURN") {
		t.Fatalf("missing OP_RETURN, got:\n%s", out)
	}
}

func TestLineCountAndInstructionBytes(t *testing.T) {
	c := bytecode.NewChunk()
	c.WriteOp(bytecode.OpNil, 1)
	c.WriteOp(bytecode.OpNil, 1)
	c.WriteOp(bytecode.OpPop, 2)
	c.WriteOp(bytecode.OpReturn, 1)

	if got, want := c.LineCount(), 2; got != want {
		t.Fatalf("LineCount() = %d, want %d (distinct lines 1 and 2)", got, want)
	}
	if got, want := c.InstructionBytes(), len(c.Code); got != want {
		t.Fatalf("InstructionBytes() = %d, want %d (len(c.Code))", got, want)
	}
}

func TestFromPartsRoundTripsGetLine(t *testing.T) {
	c := bytecode.FromParts(
		[]byte{byte(bytecode.OpNil), byte(bytecode.OpReturn)},
		nil,
		[]bytecode.LineRun{{Line: 3, Count: 2}},
	)
	if got, want := c.GetLine(0), 3; got != want {
		t.Fatalf("GetLine(0) = %d, want %d", got, want)
	}
	if got, want := c.GetLine(1), 3; got != want {
		t.Fatalf("GetLine(1) = %d, want %d", got, want)
	}
}
