// Binary .sgc bytecode file format: a pre-compiled chunk can be saved
// and later loaded without re-running the compiler. The layout is a
// magic number and version header followed by a recursive
// constant/instruction encoding, sized for this VM's byte-packed chunk
// and its constant type set (Nil, Bool, Number, String, Function).
//
// Loading interns every decoded string through the destination VM's
// heap, so a Function loaded from disk produces identifiers and
// string literals that are canonical alongside anything the VM itself
// compiles afterwards — loading bytecode and compiling source are both
// just ways of populating the same heap.
package vm

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/kristofer/smogvm/pkg/bytecode"
	"github.com/kristofer/smogvm/pkg/object"
	"github.com/kristofer/smogvm/pkg/value"
)

const (
	sgcMagic   uint32 = 0x53564D42 // "SVMB"
	sgcVersion uint32 = 1
)

const (
	constTagNil byte = iota
	constTagBool
	constTagNumber
	constTagString
	constTagFunction
)

// SaveBinary encodes fn (typically the result of compiler.Compile) to
// w in the .sgc format.
func SaveBinary(w io.Writer, fn *object.Function) error {
	if err := binary.Write(w, binary.BigEndian, sgcMagic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, sgcVersion); err != nil {
		return err
	}
	return writeFunction(w, fn)
}

func writeFunction(w io.Writer, fn *object.Function) error {
	if err := binary.Write(w, binary.BigEndian, uint8(fn.Arity)); err != nil {
		return err
	}
	if fn.Name == nil {
		if _, err := w.Write([]byte{0}); err != nil {
			return err
		}
	} else {
		if _, err := w.Write([]byte{1}); err != nil {
			return err
		}
		if err := writeString(w, fn.Name.Chars); err != nil {
			return err
		}
	}
	return writeChunk(w, fn.Chunk)
}

func writeChunk(w io.Writer, c *bytecode.Chunk) error {
	if err := binary.Write(w, binary.BigEndian, uint16(len(c.Constants))); err != nil {
		return err
	}
	for _, v := range c.Constants {
		if err := writeValue(w, v); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(c.Code))); err != nil {
		return err
	}
	if _, err := w.Write(c.Code); err != nil {
		return err
	}
	lines := c.Lines()
	if err := binary.Write(w, binary.BigEndian, uint32(len(lines))); err != nil {
		return err
	}
	for _, run := range lines {
		if err := binary.Write(w, binary.BigEndian, uint32(run.Line)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, uint32(run.Count)); err != nil {
			return err
		}
	}
	return nil
}

func writeValue(w io.Writer, v value.Value) error {
	switch {
	case v.IsNil():
		_, err := w.Write([]byte{constTagNil})
		return err
	case v.IsBool():
		b := byte(0)
		if v.AsBool() {
			b = 1
		}
		_, err := w.Write([]byte{constTagBool, b})
		return err
	case v.IsNumber():
		if _, err := w.Write([]byte{constTagNumber}); err != nil {
			return err
		}
		return binary.Write(w, binary.BigEndian, math.Float64bits(v.AsNumber()))
	case object.IsString(v):
		if _, err := w.Write([]byte{constTagString}); err != nil {
			return err
		}
		return writeString(w, object.AsString(v).Chars)
	case object.IsFunction(v):
		if _, err := w.Write([]byte{constTagFunction}); err != nil {
			return err
		}
		return writeFunction(w, object.AsFunction(v))
	default:
		return fmt.Errorf("sgc: unsupported constant type %v", v)
	}
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// LoadBinary decodes a .sgc stream, interning every string and linking
// every object through heap.
func LoadBinary(r io.Reader, heap *Heap) (*object.Function, error) {
	var magic, version uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return nil, err
	}
	if magic != sgcMagic {
		return nil, fmt.Errorf("sgc: bad magic number %#x", magic)
	}
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		return nil, err
	}
	if version != sgcVersion {
		return nil, fmt.Errorf("sgc: unsupported version %d", version)
	}
	return readFunction(r, heap)
}

func readFunction(r io.Reader, heap *Heap) (*object.Function, error) {
	var arity uint8
	if err := binary.Read(r, binary.BigEndian, &arity); err != nil {
		return nil, err
	}
	var hasName [1]byte
	if _, err := io.ReadFull(r, hasName[:]); err != nil {
		return nil, err
	}
	fn := heap.NewFunction()
	fn.Arity = int(arity)
	if hasName[0] == 1 {
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		fn.Name = heap.InternString(name)
	}
	chunk, err := readChunk(r, heap)
	if err != nil {
		return nil, err
	}
	fn.Chunk = chunk
	return fn, nil
}

func readChunk(r io.Reader, heap *Heap) (*bytecode.Chunk, error) {
	var constCount uint16
	if err := binary.Read(r, binary.BigEndian, &constCount); err != nil {
		return nil, err
	}
	constants := make([]value.Value, constCount)
	for i := range constants {
		v, err := readValue(r, heap)
		if err != nil {
			return nil, err
		}
		constants[i] = v
	}

	var codeLen uint32
	if err := binary.Read(r, binary.BigEndian, &codeLen); err != nil {
		return nil, err
	}
	code := make([]byte, codeLen)
	if _, err := io.ReadFull(r, code); err != nil {
		return nil, err
	}

	var runCount uint32
	if err := binary.Read(r, binary.BigEndian, &runCount); err != nil {
		return nil, err
	}
	lines := make([]bytecode.LineRun, runCount)
	for i := range lines {
		var line, count uint32
		if err := binary.Read(r, binary.BigEndian, &line); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &count); err != nil {
			return nil, err
		}
		lines[i] = bytecode.LineRun{Line: int(line), Count: int(count)}
	}

	return bytecode.FromParts(code, constants, lines), nil
}

func readValue(r io.Reader, heap *Heap) (value.Value, error) {
	var tag [1]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return value.Nil, err
	}
	switch tag[0] {
	case constTagNil:
		return value.Nil, nil
	case constTagBool:
		var b [1]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return value.Nil, err
		}
		return value.Bool(b[0] != 0), nil
	case constTagNumber:
		var bits uint64
		if err := binary.Read(r, binary.BigEndian, &bits); err != nil {
			return value.Nil, err
		}
		return value.Number(math.Float64frombits(bits)), nil
	case constTagString:
		s, err := readString(r)
		if err != nil {
			return value.Nil, err
		}
		return value.FromObj(heap.InternString(s)), nil
	case constTagFunction:
		fn, err := readFunction(r, heap)
		if err != nil {
			return value.Nil, err
		}
		return value.FromObj(fn), nil
	default:
		return value.Nil, fmt.Errorf("sgc: unknown constant tag %d", tag[0])
	}
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
