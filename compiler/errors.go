package compiler

import "fmt"

// SyntaxError reports a compile-time failure with source position
// information, mirroring the reader/chunk-name-qualified error surface
// the runtime uses for its own errors.
type SyntaxError struct {
	ChunkName string
	Line      int
	Column    int
	Message   string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.ChunkName, e.Line, e.Column, e.Message)
}

// abort is the panic payload used to unwind the recursive-descent parser
// back to Compile once a SyntaxError has been recorded, analogous to the
// runtime's own longjmp-style protected-call boundary.
type abort struct{ err *SyntaxError }

// errorAt records a syntax error at pos and unwinds the parse via panic.
// The panic is recovered only by Compile.
func (c *Compiler) errorAt(pos Position, format string, args ...any) {
	err := &SyntaxError{
		ChunkName: c.chunkName,
		Line:      pos.Line,
		Column:    pos.Column,
		Message:   fmt.Sprintf(format, args...),
	}
	panic(abort{err})
}

// errorAtCurrent is errorAt at the current token's position.
func (c *Compiler) errorAtCurrent(format string, args ...any) {
	c.errorAt(c.cur.Pos, format, args...)
}
