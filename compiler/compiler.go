// Package compiler implements a single-pass, recursive-descent parser
// that emits bytecode directly as it recognizes syntax, without ever
// materializing an intermediate abstract syntax tree.
package compiler

import (
	"github.com/chazu/rill/code"
	"github.com/chazu/rill/value"
)

// Compiler drives the lexer and emits bytecode for one chunk (and any
// function literals nested inside it) into a tree of FunctionProtos
// rooted at the chunk's own top-level proto.
type Compiler struct {
	lex       *Lexer
	cur       Token
	ahead     Token
	haveAhead bool

	chunkName string
	heap      *value.Heap

	fs *funcState
}

// New creates a Compiler over src, attributing chunkName to any error
// messages and to every FunctionProto it constructs. heap is used to
// allocate strings and function prototypes as they are encountered.
func New(src, chunkName string, heap *value.Heap) *Compiler {
	c := &Compiler{lex: NewLexer(src, chunkName), chunkName: chunkName, heap: heap}
	c.advance()
	return c
}

// Compile parses and compiles the whole chunk, returning its top-level
// FunctionProto. On a syntax error it returns the error instead of
// panicking out to the caller.
func (c *Compiler) Compile() (fp *value.FunctionProto, err error) {
	defer func() {
		if r := recover(); r != nil {
			a, ok := r.(abort)
			if !ok {
				panic(r)
			}
			err = a.err
		}
	}()

	proto := c.heap.NewFunctionProto(c.chunkName, c.cur.Pos.Line)
	c.fs = newFuncState(nil, proto)
	c.fs.enterBlock(false)

	for !c.check(TokEOF) {
		c.statement()
	}
	proto.EndLine = c.cur.Pos.Line
	c.emit(code.MakeABC(code.RET0, 0, 0, 0), c.cur.Pos.Line)

	return proto, nil
}

// advance shifts the lookahead token (if any) or a freshly lexed token
// into cur.
func (c *Compiler) advance() {
	if c.haveAhead {
		c.cur = c.ahead
		c.haveAhead = false
		return
	}
	c.cur = c.lex.NextToken()
	if c.cur.Kind == TokError {
		c.errorAtCurrent("%s", c.cur.Text)
	}
}

// peek returns the token after cur without consuming it.
func (c *Compiler) peek() Token {
	if !c.haveAhead {
		c.ahead = c.lex.NextToken()
		c.haveAhead = true
	}
	return c.ahead
}

func (c *Compiler) check(k TokenKind) bool { return c.cur.Kind == k }

func (c *Compiler) match(k TokenKind) bool {
	if !c.check(k) {
		return false
	}
	c.advance()
	return true
}

// expect consumes the current token if it has kind k, else raises a
// syntax error naming what was expected.
func (c *Compiler) expect(k TokenKind, what string) Token {
	if !c.check(k) {
		c.errorAtCurrent("expected %s, got %s", what, c.cur.Kind)
	}
	tok := c.cur
	c.advance()
	return tok
}
