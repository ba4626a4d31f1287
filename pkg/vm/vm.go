// Package vm implements the bytecode execution engine: the dispatch
// loop over opcodes, the operand stack and call-frame stack, global
// variable storage, and the native function call protocol. This is the
// hot path of the interpreter.
//
// The VM is a single struct passed by reference rather than a
// process-wide singleton: nothing here reaches through a package-level
// global, so an embedder can run several independent interpreters side
// by side.
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/kristofer/smogvm/pkg/bytecode"
	"github.com/kristofer/smogvm/pkg/compiler"
	"github.com/kristofer/smogvm/pkg/object"
	"github.com/kristofer/smogvm/pkg/table"
	"github.com/kristofer/smogvm/pkg/value"
)

// FramesMax bounds the depth of nested function calls.
const FramesMax = 64

// StackMax is the fixed operand stack capacity: FramesMax frames, each
// able to occupy up to 256 stack slots (the largest local-slot index an
// 8-bit operand can address).
const StackMax = FramesMax * 256

// InterpretResult is the outcome of a VM.Interpret call.
type InterpretResult int

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

// VM is a single bytecode interpreter instance: its operand stack, its
// call-frame stack, its globals table, and the heap of objects it has
// allocated.
type VM struct {
	stack      [StackMax]value.Value
	stackTop   int
	frames     [FramesMax]CallFrame
	frameCount int

	globals *table.Table
	heap    *Heap

	out   io.Writer
	log   zerolog.Logger
	trace bool
}

// SetTrace enables or disables per-instruction execution tracing: the
// operand stack and the disassembled instruction are printed to stdout
// before each opcode runs. Off by default since it dominates runtime
// cost.
func (vm *VM) SetTrace(enabled bool) { vm.trace = enabled }

// New constructs a VM ready to interpret: an empty heap, an empty
// globals table, and the built-in native functions registered. OP_PRINT
// output is written to out; runtime error messages and log events go to
// stderr.
func New(out io.Writer) *VM {
	vm := &VM{
		globals: table.New(),
		heap:    NewHeap(),
		out:     out,
		log:     zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}).With().Timestamp().Logger(),
	}
	vm.defineNatives()
	vm.log.Debug().Msg("vm initialized")
	return vm
}

// Free releases both tables and walks the heap list, freeing every
// object exactly once.
func (vm *VM) Free() {
	vm.log.Debug().Int("objects", vm.heap.Objects()).Msg("vm freed")
	vm.heap.Free()
	vm.globals = table.New()
	vm.resetStack()
}

// Interpret compiles source and runs it to completion. Compile errors
// never mutate VM state; runtime errors reset the stack and frame
// count but preserve globals and the intern table, so a REPL can keep
// going after either kind of failure.
func (vm *VM) Interpret(source string) (InterpretResult, error) {
	fn, err := compiler.Compile(vm.heap, source)
	if err != nil {
		vm.log.Warn().Err(err).Msg("compile error")
		return InterpretCompileError, err
	}
	return vm.Run(fn)
}

// Heap exposes the VM's object heap so the CLI driver can load or save
// .sgc bytecode files and disassemble compiled functions without
// reaching into VM internals.
func (vm *VM) Heap() *Heap { return vm.heap }

// Compile runs the compiler without executing the result, used by the
// `smogvm compile` subcommand to produce a .sgc file.
func (vm *VM) Compile(source string) (*object.Function, error) {
	return compiler.Compile(vm.heap, source)
}

// Run executes an already-compiled top-level function, used by
// Interpret after compiling source and by the `smogvm run` subcommand
// when given a .sgc file.
func (vm *VM) Run(fn *object.Function) (InterpretResult, error) {
	vm.push(value.FromObj(fn))
	if err := vm.callValue(value.FromObj(fn), 0); err != nil {
		vm.resetStack()
		return InterpretRuntimeError, err
	}
	return vm.run()
}

// push, pop, peek operate on the fixed-size operand stack. They trust
// the compiler's stack-effect bookkeeping and do not themselves grow
// or shrink storage; StackMax is large enough that legitimate programs
// never approach it, and FramesMax is checked explicitly in call().
func (vm *VM) push(v value.Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() value.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.stackTop-1-distance]
}

// resetStack zeroes the operand stack and frame count, the recovery
// step taken after every runtime error.
func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameCount = 0
}

// call pushes a new frame for fn after checking its arity and the
// frame-depth limit.
func (vm *VM) call(fn *object.Function, argc int) error {
	if vm.frameCount == FramesMax {
		return vm.runtimeError("Stack overflow.")
	}
	if fn.Arity != argc {
		name := "script"
		if fn.Name != nil {
			name = fn.Name.Chars
		}
		return vm.runtimeError("Expected %d arguments, got %d, for function '%s'.", fn.Arity, argc, name)
	}
	vm.frames[vm.frameCount] = CallFrame{
		fn:        fn,
		ip:        0,
		slotsBase: vm.stackTop - argc - 1,
	}
	vm.frameCount++
	return nil
}

// callValue dispatches on the callee's object type, or raises a
// not-callable error for anything else.
func (vm *VM) callValue(callee value.Value, argc int) error {
	if callee.IsObj() {
		switch callee.AsObj().ObjType() {
		case value.ObjTypeFunction:
			return vm.call(object.AsFunction(callee), argc)
		case value.ObjTypeNative:
			return vm.callNative(object.AsNative(callee), argc)
		}
	}
	return vm.runtimeError("Can only call functions and classes.")
}

// callNative invokes a Native function directly, short-circuiting the
// frame stack entirely. ErrorArgc/ErrorArgv results are turned into the
// same runtime-error path a bad compiled call takes.
func (vm *VM) callNative(native *object.Native, argc int) error {
	argv := vm.stack[vm.stackTop-argc : vm.stackTop]
	result, status := native.Fn(argc, argv)
	switch status {
	case object.NativeErrorArgc:
		return vm.runtimeError("Invalid argument count for native function '%s'.", native.Name)
	case object.NativeErrorArgv:
		return vm.runtimeError("Invalid argument type for native function '%s'.", native.Name)
	}
	vm.stackTop -= argc + 1
	vm.push(result)
	return nil
}

// frame returns the currently executing call frame.
func (vm *VM) frame() *CallFrame {
	return &vm.frames[vm.frameCount-1]
}

func (vm *VM) readByte() byte {
	f := vm.frame()
	b := f.fn.Chunk.Code[f.ip]
	f.ip++
	return b
}

func (vm *VM) readShort() int {
	hi := vm.readByte()
	lo := vm.readByte()
	return int(hi)<<8 | int(lo)
}

func (vm *VM) readConstant() value.Value {
	return vm.frame().fn.Chunk.Constants[vm.readByte()]
}

func (vm *VM) readString() *object.String {
	return object.AsString(vm.readConstant())
}

// run is the dispatch loop: it decodes and executes opcodes from the
// current frame's chunk until an OP_RETURN unwinds the last frame or a
// runtime error is raised.
func (vm *VM) run() (InterpretResult, error) {
	for {
		if vm.trace {
			vm.traceStep()
		}
		op := bytecode.OpCode(vm.readByte())
		switch op {
		case bytecode.OpConstant:
			vm.push(vm.readConstant())

		case bytecode.OpNil:
			vm.push(value.Nil)
		case bytecode.OpTrue:
			vm.push(value.Bool(true))
		case bytecode.OpFalse:
			vm.push(value.Bool(false))

		case bytecode.OpPop:
			vm.pop()
		case bytecode.OpPopN:
			n := int(vm.readByte())
			vm.stackTop -= n

		case bytecode.OpGetLocal:
			slot := int(vm.readByte())
			vm.push(vm.stack[vm.frame().slotsBase+slot])
		case bytecode.OpSetLocal:
			slot := int(vm.readByte())
			vm.stack[vm.frame().slotsBase+slot] = vm.peek(0)

		case bytecode.OpDefineGlobal:
			name := vm.readString()
			vm.globals.Set(name, vm.peek(0))
			vm.pop()
		case bytecode.OpGetGlobal:
			name := vm.readString()
			v, ok := vm.globals.Get(name)
			if !ok {
				return InterpretRuntimeError, vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}
			vm.push(v)
		case bytecode.OpSetGlobal:
			name := vm.readString()
			if vm.globals.Set(name, vm.peek(0)) {
				vm.globals.Delete(name)
				return InterpretRuntimeError, vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}

		case bytecode.OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.Bool(value.Equal(a, b)))
		case bytecode.OpGreater:
			if res, err := vm.numericCompare(func(a, b float64) bool { return a > b }); err != nil {
				return InterpretRuntimeError, err
			} else {
				vm.push(res)
			}
		case bytecode.OpLess:
			if res, err := vm.numericCompare(func(a, b float64) bool { return a < b }); err != nil {
				return InterpretRuntimeError, err
			} else {
				vm.push(res)
			}

		case bytecode.OpAdd:
			if err := vm.add(); err != nil {
				return InterpretRuntimeError, err
			}
		case bytecode.OpSubtract:
			if err := vm.binaryNumeric(func(a, b float64) float64 { return a - b }); err != nil {
				return InterpretRuntimeError, err
			}
		case bytecode.OpMultiply:
			if err := vm.binaryNumeric(func(a, b float64) float64 { return a * b }); err != nil {
				return InterpretRuntimeError, err
			}
		case bytecode.OpDivide:
			if err := vm.binaryNumeric(func(a, b float64) float64 { return a / b }); err != nil {
				return InterpretRuntimeError, err
			}

		case bytecode.OpNot:
			vm.push(value.Bool(value.IsFalsey(vm.pop())))
		case bytecode.OpNegate:
			if !vm.peek(0).IsNumber() {
				return InterpretRuntimeError, vm.runtimeError("Operand must be a number.")
			}
			vm.push(value.Number(-vm.pop().AsNumber()))

		case bytecode.OpPrint:
			fmt.Fprintln(vm.out, vm.pop().String())

		case bytecode.OpJump:
			offset := vm.readShort()
			vm.frame().ip += offset
		case bytecode.OpJumpIfFalse:
			offset := vm.readShort()
			if value.IsFalsey(vm.peek(0)) {
				vm.frame().ip += offset
			}
		case bytecode.OpLoop:
			offset := vm.readShort()
			vm.frame().ip -= offset

		case bytecode.OpCall:
			argc := int(vm.readByte())
			if err := vm.callValue(vm.peek(argc), argc); err != nil {
				return InterpretRuntimeError, err
			}

		case bytecode.OpReturn:
			result := vm.pop()
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return InterpretOK, nil
			}
			vm.stackTop = vm.frame().slotsBase
			vm.push(result)

		default:
			return InterpretRuntimeError, vm.runtimeError("Unknown opcode %d.", op)
		}
	}
}

func (vm *VM) traceStep() {
	fmt.Fprint(os.Stdout, "          ")
	for i := 0; i < vm.stackTop; i++ {
		fmt.Fprintf(os.Stdout, "[ %s ]", vm.stack[i].String())
	}
	fmt.Fprintln(os.Stdout)
	f := vm.frame()
	bytecode.DisassembleInstruction(os.Stdout, f.fn.Chunk, f.ip)
}

func (vm *VM) add() error {
	b, a := vm.peek(0), vm.peek(1)
	switch {
	case a.IsNumber() && b.IsNumber():
		vm.pop()
		vm.pop()
		vm.push(value.Number(a.AsNumber() + b.AsNumber()))
		return nil
	case object.IsString(a) && object.IsString(b):
		vm.pop()
		vm.pop()
		vm.push(value.FromObj(vm.heap.Concat(object.AsString(a), object.AsString(b))))
		return nil
	default:
		return vm.runtimeError("Operands must be two numbers or two strings.")
	}
}

func (vm *VM) binaryNumeric(op func(a, b float64) float64) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError("Operands must be numbers.")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	vm.push(value.Number(op(a, b)))
	return nil
}

func (vm *VM) numericCompare(op func(a, b float64) bool) (value.Value, error) {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return value.Nil, vm.runtimeError("Operands must be numbers.")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	return value.Bool(op(a, b)), nil
}

// runtimeError builds a RuntimeError with a full backtrace (innermost
// frame first), resets the stack and frame count so a REPL can
// continue, and logs the failure. Globals and the intern table are
// deliberately left untouched.
func (vm *VM) runtimeError(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)

	frames := make([]StackFrame, 0, vm.frameCount)
	for i := vm.frameCount - 1; i >= 0; i-- {
		f := &vm.frames[i]
		line := f.fn.Chunk.GetLine(f.ip - 1)
		name := ""
		if f.fn.Name != nil {
			name = f.fn.Name.Chars
		}
		frames = append(frames, StackFrame{Name: name, Line: line})
	}

	err := newRuntimeError(msg, frames)
	vm.log.Error().Str("message", msg).Int("frames", len(frames)).Msg("runtime error")
	fmt.Fprintln(os.Stderr, err.Error())
	vm.resetStack()
	return errors.WithStack(err)
}
