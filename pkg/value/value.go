// Package value defines the tagged runtime value representation shared by
// every other package in the virtual machine: the bytecode constant pool,
// the operand stack, the globals table, and native function signatures all
// traffic in value.Value.
//
// Value intentionally knows nothing about the concrete heap object types
// (strings, functions, natives) that live behind an Obj handle — that
// would create an import cycle with pkg/object, which itself needs Chunk
// from pkg/bytecode, which needs Value for its constant pool. Obj is
// therefore a narrow interface, the Go analogue of the C family's forward
// declaration "typedef struct Obj Obj;".
package value

import "strconv"

// Type is the tag discriminating the arms of Value.
type Type int

const (
	TypeNil Type = iota
	TypeBool
	TypeNumber
	TypeObj
)

// ObjType discriminates the heap object kinds. The concrete types living
// behind each tag are defined in pkg/object.
type ObjType int

const (
	ObjTypeString ObjType = iota
	ObjTypeFunction
	ObjTypeNative
)

// Obj is satisfied by every heap object kind (String, Function, Native).
// Next/SetNext give the VM's allocation list its intrusive singly-linked
// structure without Value or this package needing to know the concrete
// object layouts.
type Obj interface {
	ObjType() ObjType
	Next() Obj
	SetNext(Obj)
	String() string
}

// Value is a tagged union of the language's runtime values: Nil, Bool,
// Number (an IEEE-754 double), or Obj (a handle to a heap object).
//
// The zero Value is Nil, so a freshly zeroed stack slot or locals array
// behaves correctly without explicit initialization.
type Value struct {
	typ Type
	b   bool
	n   float64
	o   Obj
}

// Nil is the Nil value.
var Nil = Value{typ: TypeNil}

// Bool constructs a Bool value.
func Bool(b bool) Value { return Value{typ: TypeBool, b: b} }

// Number constructs a Number value.
func Number(n float64) Value { return Value{typ: TypeNumber, n: n} }

// FromObj constructs an Obj value wrapping the given heap object handle.
func FromObj(o Obj) Value { return Value{typ: TypeObj, o: o} }

func (v Value) IsNil() bool    { return v.typ == TypeNil }
func (v Value) IsBool() bool   { return v.typ == TypeBool }
func (v Value) IsNumber() bool { return v.typ == TypeNumber }
func (v Value) IsObj() bool    { return v.typ == TypeObj }

// IsObjType reports whether v is an Obj value of the given concrete kind.
func (v Value) IsObjType(t ObjType) bool { return v.IsObj() && v.o.ObjType() == t }

func (v Value) AsBool() bool       { return v.b }
func (v Value) AsNumber() float64  { return v.n }
func (v Value) AsObj() Obj         { return v.o }

// Type reports the value's tag. Exposed for diagnostics and disassembly.
func (v Value) Type() Type { return v.typ }

// String renders v the way OP_PRINT and the disassembler do: numbers use
// Go's shortest round-tripping decimal form, objects delegate to their
// own String method (so a String object prints its bytes, a Function
// prints "<fn name>", etc).
func (v Value) String() string {
	switch v.typ {
	case TypeNil:
		return "nil"
	case TypeBool:
		if v.b {
			return "true"
		}
		return "false"
	case TypeNumber:
		return strconv.FormatFloat(v.n, 'g', -1, 64)
	case TypeObj:
		return v.o.String()
	default:
		return "<invalid value>"
	}
}

// IsFalsey reports whether v counts as false in a boolean context: Nil or
// Bool(false). Every other value, including Number(0) and the empty
// string, is truthy.
func IsFalsey(v Value) bool {
	return v.IsNil() || (v.IsBool() && !v.AsBool())
}

// Equal implements valuesEqual: tag mismatch is never equal; Obj values
// compare by handle identity (sound because strings are interned and
// functions/natives are allocated once); Number uses ordinary IEEE-754
// equality, so NaN != NaN.
func Equal(a, b Value) bool {
	if a.typ != b.typ {
		return false
	}
	switch a.typ {
	case TypeNil:
		return true
	case TypeBool:
		return a.b == b.b
	case TypeNumber:
		return a.n == b.n
	case TypeObj:
		return a.o == b.o
	default:
		return false
	}
}
