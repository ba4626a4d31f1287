package vm

import (
	"github.com/kristofer/smogvm/pkg/object"
	"github.com/kristofer/smogvm/pkg/table"
	"github.com/kristofer/smogvm/pkg/value"
)

// Heap owns every heap-allocated object a VM creates: the intrusive
// allocation list used for bulk teardown, and the intern table that
// gives every distinct string byte sequence a single canonical
// instance. It is the one piece of VM state the compiler also needs —
// compiling a function or a string constant allocates objects that
// must be linked and, for strings, interned exactly the
// way the execution engine's own OP_ADD concatenation does.
//
// Splitting Heap out of VM (rather than a single struct) is what lets
// pkg/compiler depend on it without importing pkg/vm: compiler.Compile
// takes a compiler.Allocator, and *Heap satisfies that interface
// structurally.
type Heap struct {
	objects value.Obj
	strings *table.Table
}

// NewHeap returns an empty heap with an empty intern table, ready for
// a freshly constructed VM.
func NewHeap() *Heap {
	return &Heap{strings: table.New()}
}

// track links obj onto the allocation list so Free can reach it.
func (h *Heap) track(obj value.Obj) {
	obj.SetNext(h.objects)
	h.objects = obj
}

// InternString hashes the bytes, probes the intern table for a
// canonical instance, and allocates only on a miss. It is the single
// path by which any String object enters the system, so every String
// anywhere is guaranteed to be the canonical instance for its bytes.
func (h *Heap) InternString(chars string) *object.String {
	hash := table.HashString(chars)
	if existing := h.strings.FindString(chars, hash); existing != nil {
		return existing
	}
	s := object.NewString(chars, hash)
	h.track(s)
	// The intern table doubles as a hash set here: storing Bool(true)
	// as the value, since what we need back out is only the key.
	h.strings.Set(s, value.Bool(true))
	return s
}

// Concat builds the OP_ADD string-concatenation result and interns it
// by content, so if an identical string already exists that instance is
// returned and the freshly concatenated bytes never become a heap
// object; Go's own garbage collector reclaims the temporary buffer.
func (h *Heap) Concat(a, b *object.String) *object.String {
	return h.InternString(a.Chars + b.Chars)
}

// NewFunction allocates an empty Function object linked onto the heap.
func (h *Heap) NewFunction() *object.Function {
	f := object.NewFunction()
	h.track(f)
	return f
}

// NewNative allocates a Native object wrapping fn and links it onto the
// heap.
func (h *Heap) NewNative(name string, fn object.NativeFn) *object.Native {
	n := object.NewNative(name, fn)
	h.track(n)
	return n
}

// Objects reports how many objects are currently linked onto the heap,
// for diagnostics (Free logs this count before releasing).
func (h *Heap) Objects() int {
	n := 0
	for o := h.objects; o != nil; o = o.Next() {
		n++
	}
	return n
}

// Free walks the allocation list, visiting every object exactly once.
// There is no explicit per-object deallocation step — object lifetimes
// are process-long and Go's own garbage collector reclaims the memory
// once the list itself is dropped — but the walk is kept as the hook a
// future tracing collector would build on.
func (h *Heap) Free() {
	for o := h.objects; o != nil; {
		next := o.Next()
		o.SetNext(nil)
		o = next
	}
	h.objects = nil
	h.strings = table.New()
}
