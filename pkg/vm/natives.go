package vm

import (
	"time"

	"github.com/kristofer/smogvm/pkg/object"
	"github.com/kristofer/smogvm/pkg/value"
)

// defineNatives registers every built-in native function: clock,
// triple, and str.
func (vm *VM) defineNatives() {
	vm.defineNative("clock", nativeClock)
	vm.defineNative("triple", nativeTriple)
	vm.defineNative("str", vm.bindStr())
}

// defineNative interns the name, allocates a Native object, and binds
// it in globals. The name and the Native value are pushed onto the
// operand stack for the duration of the table insert — not needed for
// correctness under Go's own collector, but kept as a requirement for a
// future tracing collector built on this object model.
func (vm *VM) defineNative(name string, fn object.NativeFn) {
	nameObj := vm.heap.InternString(name)
	vm.push(value.FromObj(nameObj))
	native := vm.heap.NewNative(name, fn)
	vm.push(value.FromObj(native))
	vm.globals.Set(nameObj, vm.stack[vm.stackTop-1])
	vm.pop()
	vm.pop()
}

// nativeClock returns the wall-clock time in seconds since the Unix
// epoch, as a Number; it does not measure process CPU time. It takes no
// arguments and reports NativeErrorArgc when called with any.
func nativeClock(argc int, argv []value.Value) (value.Value, object.NativeStatus) {
	if argc != 0 {
		return value.Nil, object.NativeErrorArgc
	}
	return value.Number(float64(time.Now().UnixNano()) / 1e9), object.NativeOK
}

// nativeTriple returns 3 * x for a single Number argument.
func nativeTriple(argc int, argv []value.Value) (value.Value, object.NativeStatus) {
	if argc != 1 {
		return value.Nil, object.NativeErrorArgc
	}
	if !argv[0].IsNumber() {
		return value.Nil, object.NativeErrorArgv
	}
	return value.Number(3 * argv[0].AsNumber()), object.NativeOK
}

// bindStr returns a NativeFn closed over vm's interner, so str() can
// turn its result into a canonical String object the same way every
// other string in the system is produced.
func (vm *VM) bindStr() object.NativeFn {
	return func(argc int, argv []value.Value) (value.Value, object.NativeStatus) {
		if argc != 1 {
			return value.Nil, object.NativeErrorArgc
		}
		return value.FromObj(vm.heap.InternString(argv[0].String())), object.NativeOK
	}
}
