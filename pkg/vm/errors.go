// Package vm - runtime error reporting with per-frame backtraces.
package vm

import (
	"fmt"
	"strings"
)

// StackFrame is one line of a runtime error backtrace: the function
// that was executing and the source line its instruction pointer had
// reached.
type StackFrame struct {
	Name string // function name, or "" for the top-level script frame
	Line int    // source line resolved via Chunk.GetLine
}

// RuntimeError is the error the execution engine raises for a type
// error, arity error, undefined variable, stack overflow, not-callable
// call, or native-function error. Frames is ordered innermost-first,
// matching the backtrace format: "[line L] in NAME()" / "[line L] in
// script".
type RuntimeError struct {
	Message string
	Frames  []StackFrame
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for _, f := range e.Frames {
		b.WriteByte('\n')
		if f.Name == "" {
			fmt.Fprintf(&b, "[line %d] in script", f.Line)
		} else {
			fmt.Fprintf(&b, "[line %d] in %s()", f.Line, f.Name)
		}
	}
	return b.String()
}

func newRuntimeError(message string, frames []StackFrame) *RuntimeError {
	return &RuntimeError{Message: message, Frames: frames}
}
