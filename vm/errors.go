package vm

import "fmt"

// RuntimeError reports a failure raised while executing bytecode: a
// type mismatch, a call on a non-function value, or an opcode the
// interpreter does not implement.
// It carries enough source position to format the same "chunk:line:
// message" surface the compiler's own SyntaxError uses.
type RuntimeError struct {
	ChunkName string
	Line      int
	Message   string

	// Traceback is the call stack at the moment the error was raised,
	// innermost call first, formatted by Frame.
	Traceback []string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.ChunkName, e.Line, e.Message)
}

// unwind is the panic payload used to abort execution back to the
// nearest protected call boundary, mirroring the compiler's own
// panic-based abort and, at one remove, the reference language's
// setjmp/longjmp error propagation.
type unwind struct{ err *RuntimeError }

// runtimeError snapshots the current call stack before panicking,
// since the deferred frame pops in call unwind before PCall's recover
// runs and would otherwise leave nothing to report.
func (s *State) runtimeError(chunkName string, line int, format string, args ...any) {
	panic(unwind{&RuntimeError{
		ChunkName: chunkName,
		Line:      line,
		Message:   fmt.Sprintf(format, args...),
		Traceback: framesToLines(s.frames),
	}})
}
