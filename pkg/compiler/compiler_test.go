package compiler_test

import (
	"testing"

	"github.com/kristofer/smogvm/pkg/bytecode"
	"github.com/kristofer/smogvm/pkg/compiler"
	"github.com/kristofer/smogvm/pkg/object"
	"github.com/kristofer/smogvm/pkg/vm"
)

// opcodesOf decodes a chunk's instruction stream into its opcode
// sequence, skipping operand bytes, for assertions that care about
// control flow shape rather than exact byte offsets.
func opcodesOf(c *bytecode.Chunk) []bytecode.OpCode {
	var ops []bytecode.OpCode
	for i := 0; i < len(c.Code); {
		op := bytecode.OpCode(c.Code[i])
		ops = append(ops, op)
		switch op {
		case bytecode.OpConstant, bytecode.OpPopN, bytecode.OpGetLocal, bytecode.OpSetLocal,
			bytecode.OpDefineGlobal, bytecode.OpGetGlobal, bytecode.OpSetGlobal, bytecode.OpCall:
			i += 2
		case bytecode.OpJump, bytecode.OpJumpIfFalse, bytecode.OpLoop:
			i += 3
		default:
			i++
		}
	}
	return ops
}

func mustContain(t *testing.T, ops []bytecode.OpCode, want bytecode.OpCode) {
	t.Helper()
	for _, op := range ops {
		if op == want {
			return
		}
	}
	t.Fatalf("expected %v among %v", want, ops)
}

func TestCompileSimpleExpressionStatement(t *testing.T) {
	heap := vm.NewHeap()
	fn, err := compiler.Compile(heap, "print 1 + 2;")
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	if fn.Name != nil {
		t.Fatal("the top-level script function must be unnamed")
	}
	if len(fn.Chunk.Code) == 0 {
		t.Fatal("expected emitted bytecode")
	}

	ops := opcodesOf(fn.Chunk)
	mustContain(t, ops, bytecode.OpAdd)
	mustContain(t, ops, bytecode.OpPrint)
	if ops[len(ops)-1] != bytecode.OpReturn {
		t.Fatalf("every function ends with OP_RETURN, got %v", ops[len(ops)-1])
	}
}

func TestCompileReportsLineOfSyntaxError(t *testing.T) {
	heap := vm.NewHeap()
	_, err := compiler.Compile(heap, "var x = ;\n")
	if err == nil {
		t.Fatal("expected a syntax error")
	}
	cerr, ok := err.(*compiler.CompileError)
	if !ok {
		t.Fatalf("error type = %T, want *compiler.CompileError", err)
	}
	if cerr.Line != 1 {
		t.Fatalf("Line = %d, want 1", cerr.Line)
	}
}

func TestCompileFunctionDeclarationEmitsNestedConstant(t *testing.T) {
	heap := vm.NewHeap()
	fn, err := compiler.Compile(heap, `
		fun add(a, b) {
			return a + b;
		}
	`)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}

	found := false
	for _, c := range fn.Chunk.Constants {
		if object.IsFunction(c) {
			nested := object.AsFunction(c)
			if nested.Name != nil && nested.Name.Chars == "add" && nested.Arity == 2 {
				found = true
			}
		}
	}
	if !found {
		t.Fatal("expected the compiled script's constants to contain the nested function 'add'")
	}
}

func TestResolveLocalRejectsSelfReferentialInitializer(t *testing.T) {
	heap := vm.NewHeap()
	_, err := compiler.Compile(heap, `
		{
			var a = a;
		}
	`)
	if err == nil {
		t.Fatal("expected a compile error for a local referencing itself in its initializer")
	}
}

func TestTooManyArgumentsIsCompileError(t *testing.T) {
	heap := vm.NewHeap()
	args := ""
	for i := 0; i < 256; i++ {
		if i > 0 {
			args += ", "
		}
		args += "0"
	}
	_, err := compiler.Compile(heap, "fun f() { return 0; } f("+args+");")
	if err == nil {
		t.Fatal("expected a compile error for more than 255 arguments")
	}
}
