// Package object implements the heap object subsystem: the concrete
// types living behind a value.Obj handle (functions, native functions,
// interned strings) and the intrusive allocation list used for bulk
// teardown at VM shutdown.
//
// Object lifetimes are process-long in this VM — there is no tracing
// collector — so the allocation list exists purely so Heap.Free can
// walk every object exactly once.
package object

import (
	"fmt"

	"github.com/kristofer/smogvm/pkg/bytecode"
	"github.com/kristofer/smogvm/pkg/value"
)

// Header is embedded by every concrete object type. It carries the
// ObjType discriminator and the intrusive Next link, so value.Obj's
// three bookkeeping methods come for free.
type Header struct {
	typ  value.ObjType
	next value.Obj
}

func (h *Header) ObjType() value.ObjType { return h.typ }
func (h *Header) Next() value.Obj        { return h.next }
func (h *Header) SetNext(o value.Obj)    { h.next = o }

// String is an immutable, interned byte sequence. For any distinct
// sequence of bytes, at most one String exists in a VM's intern table
// at a time (the VM heap's InternString enforces this); equality of strings therefore
// reduces to pointer identity.
type String struct {
	Header
	Chars string
	Hash  uint32
}

// NewString allocates a String object. It does not intern it — callers
// (pkg/vm's Heap.InternString) are responsible for ensuring at most one
// String with these Chars ever exists.
func NewString(chars string, hash uint32) *String {
	s := &String{Chars: chars, Hash: hash}
	s.typ = value.ObjTypeString
	return s
}

func (s *String) String() string { return s.Chars }

// Function is a compiled function: its arity, its chunk of bytecode,
// and an optional name. A nil Name denotes the synthetic top-level
// script function that wraps a whole source file.
type Function struct {
	Header
	Arity int
	Chunk *bytecode.Chunk
	Name  *String
}

// NewFunction allocates an empty Function with a fresh chunk, ready for
// the compiler to emit into.
func NewFunction() *Function {
	f := &Function{Chunk: bytecode.NewChunk()}
	f.typ = value.ObjTypeFunction
	return f
}

func (f *Function) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name.Chars)
}

// NativeStatus is the result discriminator a NativeFn returns alongside
// its value: rather than smuggling an out-of-band signal through the
// Value tag space via reserved sentinel values, native functions return
// an explicit status the call protocol switches on.
type NativeStatus int

const (
	NativeOK NativeStatus = iota
	NativeErrorArgc
	NativeErrorArgv
)

// NativeFn is the signature every host-provided function implements.
type NativeFn func(argc int, argv []value.Value) (value.Value, NativeStatus)

// Native wraps a host function so it can be stored in a Value and
// called through the same OP_CALL path as a compiled Function.
type Native struct {
	Header
	Fn   NativeFn
	Name string
}

// NewNative allocates a Native object wrapping fn.
func NewNative(name string, fn NativeFn) *Native {
	n := &Native{Fn: fn, Name: name}
	n.typ = value.ObjTypeNative
	return n
}

func (n *Native) String() string { return fmt.Sprintf("<native fn %s>", n.Name) }

// IsString, IsFunction and IsNative test a Value's object kind. They
// live here rather than on value.Value because only this package knows
// the concrete object layouts.
func IsString(v value.Value) bool   { return v.IsObjType(value.ObjTypeString) }
func IsFunction(v value.Value) bool { return v.IsObjType(value.ObjTypeFunction) }
func IsNative(v value.Value) bool   { return v.IsObjType(value.ObjTypeNative) }

// AsString, AsFunction and AsNative unwrap a Value known (by a prior
// IsX check) to hold the given object kind.
func AsString(v value.Value) *String     { return v.AsObj().(*String) }
func AsFunction(v value.Value) *Function { return v.AsObj().(*Function) }
func AsNative(v value.Value) *Native     { return v.AsObj().(*Native) }
