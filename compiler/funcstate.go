package compiler

import (
	"github.com/chazu/rill/code"
	"github.com/chazu/rill/value"
)

// MaxLocals bounds the number of local variables live at once in a
// function; the 8-bit slot operand can address 256 registers, but one
// slot is always kept free for a relocatable-instruction destination and
// scratch use once locals fill the rest.
const MaxLocals = 255

// MaxConstants bounds the size of a function's constant pool, which is
// indexed by a 16-bit operand.
const MaxConstants = 1 << 16

// blockScope is one entry in the parser's block-scope stack: `do...end`,
// loop bodies, and if/then arms that introduce locals.
type blockScope struct {
	parent     *blockScope
	firstLocal int
	isLoop     bool
	breaks     int // jump list head, NoJump if empty
}

// funcState is the parser's per-function-scope record: the prototype
// under construction, the live register top, the committed locals, and
// the block scope stack. funcStates nest via parent for lexical scoping
// of function literals (the current core does not support upvalue
// capture, so a nested function only inherits its own fresh scope).
type funcState struct {
	parent *funcState
	proto  *value.FunctionProto

	numStack  int
	numLocals int
	locals    []string

	blocks *blockScope
}

func newFuncState(parent *funcState, proto *value.FunctionProto) *funcState {
	return &funcState{parent: parent, proto: proto}
}

func (fs *funcState) enterBlock(isLoop bool) *blockScope {
	b := &blockScope{parent: fs.blocks, firstLocal: fs.numLocals, isLoop: isLoop, breaks: NoJump}
	fs.blocks = b
	return b
}

func (fs *funcState) exitBlock() *blockScope {
	b := fs.blocks
	fs.blocks = b.parent
	fs.numLocals = b.firstLocal
	fs.numStack = b.firstLocal
	fs.locals = fs.locals[:b.firstLocal]
	return b
}

func (fs *funcState) nearestLoop() *blockScope {
	for b := fs.blocks; b != nil; b = b.parent {
		if b.isLoop {
			return b
		}
	}
	return nil
}

// resolveLocal looks up name against the locals stack in reverse, so
// shadowing resolves to the most recently declared variable. Returns -1
// if not found in this function scope.
func (fs *funcState) resolveLocal(name string) int {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i] == name {
			return i
		}
	}
	return -1
}

// addConstant interns value v into the prototype's constant pool,
// returning its index. Numeric and string constants are deduplicated by
// value; function prototypes are always appended fresh.
func (c *Compiler) addConstant(v value.Value) int {
	fs := c.fs
	if !v.IsPtr() || v.ObjectKind() != value.KindFunctionProto {
		for i, k := range fs.proto.K {
			if constEqual(k, v) {
				return i
			}
		}
	}
	if len(fs.proto.K) >= MaxConstants {
		c.errorAtCurrent("too many constants in function")
	}
	fs.proto.K = append(fs.proto.K, v)
	return len(fs.proto.K) - 1
}

func constEqual(a, b value.Value) bool {
	if a.IsFloat() && b.IsFloat() {
		return a.Float64() == b.Float64()
	}
	if a.IsPtr() && b.IsPtr() && a.ObjectKind() == value.KindString && b.ObjectKind() == value.KindString {
		return a.AsString().Equal(b.AsString())
	}
	return a == b
}

// reserveSlot allocates the next free register and returns its index.
// Slot NoReg (255) is never handed out: it is reserved as the sentinel
// marking a relocatable instruction's destination as not yet bound.
func (c *Compiler) reserveSlot() int {
	fs := c.fs
	if fs.numStack >= NoReg {
		c.errorAtCurrent("too many local variables in function")
	}
	slot := fs.numStack
	fs.numStack++
	return slot
}

// freeSlot releases slot if it is the current stack top and lies above
// the committed locals; this is the only case in which reclaiming it is
// safe.
func (c *Compiler) freeSlot(slot int) {
	fs := c.fs
	if slot >= fs.numLocals && slot == fs.numStack-1 {
		fs.numStack--
	}
}

// newLocal commits a new local variable in the slot at the current
// numLocals, which the caller must already have reserved via
// reserveSlot (locals occupy the low, permanently-owned end of the
// register file).
func (c *Compiler) newLocal(name string) int {
	fs := c.fs
	if fs.numLocals >= MaxLocals {
		c.errorAtCurrent("too many local variables in function")
	}
	slot := fs.numLocals
	fs.locals = append(fs.locals, name)
	fs.numLocals++
	return slot
}

// emit appends an instruction to the current function's code, recording
// its source line, and returns its PC.
func (c *Compiler) emit(ins code.Instruction, line int) int {
	fs := c.fs
	pc := len(fs.proto.Ins)
	fs.proto.Ins = append(fs.proto.Ins, uint32(ins))
	fs.proto.LineInfo = append(fs.proto.LineInfo, value.SourceLine(line))
	return pc
}

func (c *Compiler) currentLine() int { return c.cur.Pos.Line }

func (c *Compiler) instAt(pc int) code.Instruction { return code.Instruction(c.fs.proto.Ins[pc]) }

func (c *Compiler) setInstAt(pc int, ins code.Instruction) { c.fs.proto.Ins[pc] = uint32(ins) }

func (c *Compiler) pc() int { return len(c.fs.proto.Ins) }
