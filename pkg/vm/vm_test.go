package vm_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/kristofer/smogvm/pkg/vm"
)

// errorsAsRuntimeError unwraps the github.com/pkg/errors stack trace
// wrapper runtimeError applies, recovering the underlying *vm.RuntimeError.
func errorsAsRuntimeError(err error) (*vm.RuntimeError, bool) {
	var rerr *vm.RuntimeError
	ok := errors.As(err, &rerr)
	return rerr, ok
}

func interpret(t *testing.T, source string) (string, vm.InterpretResult, error) {
	t.Helper()
	var out bytes.Buffer
	machine := vm.New(&out)
	defer machine.Free()
	result, err := machine.Interpret(source)
	return out.String(), result, err
}

func TestArithmeticPrecedence(t *testing.T) {
	out, result, err := interpret(t, "print 1 + 2 * 3;")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != vm.InterpretOK {
		t.Fatalf("result = %v, want InterpretOK", result)
	}
	if got, want := strings.TrimSpace(out), "7"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestStringConcatenation(t *testing.T) {
	out, result, err := interpret(t, `print "foo" + "bar";`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != vm.InterpretOK {
		t.Fatalf("result = %v, want InterpretOK", result)
	}
	if got, want := strings.TrimSpace(out), "foobar"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestWhileLoop(t *testing.T) {
	src := `
		var i = 0;
		var sum = 0;
		while (i < 5) {
			sum = sum + i;
			i = i + 1;
		}
		print sum;
	`
	out, result, err := interpret(t, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != vm.InterpretOK {
		t.Fatalf("result = %v, want InterpretOK", result)
	}
	if got, want := strings.TrimSpace(out), "10"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestForLoopDesugaring(t *testing.T) {
	src := `
		var total = 0;
		for (var i = 0; i < 4; i = i + 1) {
			total = total + i;
		}
		print total;
	`
	out, _, err := interpret(t, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := strings.TrimSpace(out), "6"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestFunctionCallAndReturn(t *testing.T) {
	src := `
		fun add(a, b) {
			return a + b;
		}
		print add(2, 3);
	`
	out, result, err := interpret(t, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != vm.InterpretOK {
		t.Fatalf("result = %v, want InterpretOK", result)
	}
	if got, want := strings.TrimSpace(out), "5"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestNativeTriple(t *testing.T) {
	out, _, err := interpret(t, "print triple(4);")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := strings.TrimSpace(out), "12"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestUndefinedGlobalIsRuntimeError(t *testing.T) {
	_, result, err := interpret(t, "print missing;")
	if result != vm.InterpretRuntimeError {
		t.Fatalf("result = %v, want InterpretRuntimeError", result)
	}
	if err == nil {
		t.Fatal("expected a runtime error")
	}
	rerr, ok := errorsAsRuntimeError(err)
	if !ok {
		t.Fatalf("error %v is not a *vm.RuntimeError (possibly wrapped)", err)
	}
	if !strings.Contains(rerr.Message, "Undefined variable") {
		t.Fatalf("message = %q, want it to mention the undefined variable", rerr.Message)
	}
	if len(rerr.Frames) != 1 {
		t.Fatalf("expected one backtrace frame for top-level code, got %d", len(rerr.Frames))
	}
}

func TestStackOverflowReportsFullBacktrace(t *testing.T) {
	src := `
		fun recurse() {
			return recurse();
		}
		recurse();
	`
	_, result, err := interpret(t, src)
	if result != vm.InterpretRuntimeError {
		t.Fatalf("result = %v, want InterpretRuntimeError", result)
	}
	rerr, ok := errorsAsRuntimeError(err)
	if !ok {
		t.Fatalf("error %v is not a *vm.RuntimeError", err)
	}
	if !strings.Contains(rerr.Message, "Stack overflow") {
		t.Fatalf("message = %q, want it to mention stack overflow", rerr.Message)
	}
	if len(rerr.Frames) != vm.FramesMax {
		t.Fatalf("backtrace has %d frames, want FramesMax (%d)", len(rerr.Frames), vm.FramesMax)
	}
}

func TestCompileErrorLeavesVMUsable(t *testing.T) {
	var out bytes.Buffer
	machine := vm.New(&out)
	defer machine.Free()

	if _, err := machine.Interpret("print ;"); err == nil {
		t.Fatal("expected a compile error")
	}
	if _, err := machine.Interpret("print 1 + 1;"); err != nil {
		t.Fatalf("VM should still work after a compile error, got: %v", err)
	}
	if got, want := strings.TrimSpace(out.String()), "2"; got != want {
		t.Fatalf("output after recovery = %q, want %q", got, want)
	}
}
