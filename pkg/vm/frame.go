package vm

import "github.com/kristofer/smogvm/pkg/object"

// CallFrame is one activation record: the function it is executing, its
// instruction pointer into that function's chunk, and the base index
// into the VM's value stack where its local variable slots begin.
//
// Frames hold explicit indices rather than cached pointers into the
// stack/code arrays, since the backing stack array is fixed-size and
// never reallocates; slotsBase plus an int ip is enough to resolve any
// local or instruction relative to the frame.
type CallFrame struct {
	fn        *object.Function
	ip        int
	slotsBase int
}
