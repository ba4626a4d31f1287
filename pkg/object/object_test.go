package object_test

import (
	"testing"

	"github.com/kristofer/smogvm/pkg/object"
	"github.com/kristofer/smogvm/pkg/value"
)

func TestStringPredicatesAndAccessors(t *testing.T) {
	s := object.NewString("hi", 42)
	v := value.FromObj(s)

	if !object.IsString(v) {
		t.Fatal("expected IsString to be true")
	}
	if object.IsFunction(v) || object.IsNative(v) {
		t.Fatal("a string must not also report as function or native")
	}
	if got := object.AsString(v); got != s {
		t.Fatalf("AsString returned %v, want %v", got, s)
	}
	if got := v.String(); got != "hi" {
		t.Fatalf("String() = %q, want %q", got, "hi")
	}
}

func TestFunctionStringRendersName(t *testing.T) {
	fn := object.NewFunction()
	if got, want := fn.String(), "<script>"; got != want {
		t.Fatalf("unnamed function String() = %q, want %q", got, want)
	}

	fn.Name = object.NewString("area", 1)
	if got, want := fn.String(), "<fn area>"; got != want {
		t.Fatalf("named function String() = %q, want %q", got, want)
	}
}

func TestNativePredicateAndString(t *testing.T) {
	n := object.NewNative("clock", func(argc int, argv []value.Value) (value.Value, object.NativeStatus) {
		return value.Number(0), object.NativeOK
	})
	v := value.FromObj(n)

	if !object.IsNative(v) {
		t.Fatal("expected IsNative to be true")
	}
	if got, want := n.String(), "<native fn clock>"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestNewFunctionHasEmptyChunk(t *testing.T) {
	fn := object.NewFunction()
	if fn.Chunk == nil {
		t.Fatal("NewFunction must allocate a chunk ready for the compiler to emit into")
	}
	if len(fn.Chunk.Code) != 0 {
		t.Fatal("a freshly allocated function's chunk must start empty")
	}
}
