package compiler

import (
	"github.com/chazu/rill/code"
	"github.com/chazu/rill/value"
)

// ExprKind identifies which variant of the deferred-evaluation
// expression descriptor an Expr holds.
type ExprKind int

const (
	EPrim     ExprKind = iota // Prim: a nil/true/false constant
	ENum                      // Num: a numeric constant
	EStr                      // Str: a string constant
	ELocal                    // Slot: a local variable's own slot
	ECall                     // PC: a CALL instruction's PC (base slot = A)
	ENonReloc                 // Slot: value already resident in a slot
	EReloc                    // PC: instruction with unpatched (relocatable) A
	EJmp                      // PC: a pending comparison's JMP instruction
)

// NoJump is the sentinel head/next value for an empty or terminal jump
// list link.
const NoJump = -1

// NoReg marks operand A of a relocatable instruction as not yet bound to
// a destination slot.
const NoReg = 0xFF

// Expr is the parser-internal expression descriptor: a value that has
// been parsed but not yet forced into a specific register. It never
// leaves the compiler.
type Expr struct {
	Kind ExprKind

	Slot int
	PC   int

	Num  float64
	Str  string
	Prim value.Value

	TrueList  int
	FalseList int

	Line int
}

func exprPrim(v value.Value, line int) Expr {
	return Expr{Kind: EPrim, Prim: v, TrueList: NoJump, FalseList: NoJump, Line: line}
}

func exprNum(n float64, line int) Expr {
	return Expr{Kind: ENum, Num: n, TrueList: NoJump, FalseList: NoJump, Line: line}
}

func exprStr(s string, line int) Expr {
	return Expr{Kind: EStr, Str: s, TrueList: NoJump, FalseList: NoJump, Line: line}
}

func exprLocal(slot, line int) Expr {
	return Expr{Kind: ELocal, Slot: slot, TrueList: NoJump, FalseList: NoJump, Line: line}
}

func exprNonReloc(slot, line int) Expr {
	return Expr{Kind: ENonReloc, Slot: slot, TrueList: NoJump, FalseList: NoJump, Line: line}
}

func exprReloc(pc, line int) Expr {
	return Expr{Kind: EReloc, PC: pc, TrueList: NoJump, FalseList: NoJump, Line: line}
}

func exprCall(pc, line int) Expr {
	return Expr{Kind: ECall, PC: pc, TrueList: NoJump, FalseList: NoJump, Line: line}
}

// hasJumps reports whether e carries any pending true/false branches that
// a sink must account for.
func (e *Expr) hasJumps() bool { return e.TrueList != NoJump || e.FalseList != NoJump }

// isConst reports whether e is a compile-time constant (prim, number, or
// string), the precondition for constant folding.
func (e *Expr) isConst() bool { return e.Kind == EPrim || e.Kind == ENum || e.Kind == EStr }

// discharge normalises variants that already denote a concrete slot
// (ELocal, ECall) into ENonReloc, so downstream code only has to handle
// one "value is in a slot" shape.
func (c *Compiler) discharge(e *Expr) {
	switch e.Kind {
	case ELocal:
		e.Kind = ENonReloc
	case ECall:
		e.Slot = int(c.instAt(e.PC).A())
		e.Kind = ENonReloc
	}
}

// toSlot forces e's value into register dst, emitting the minimal
// instruction for its variant, and resolves any pending jump list by
// synthesizing true/false tail blocks when needed.
func (c *Compiler) toSlot(e *Expr, dst int) {
	c.discharge(e)
	line := e.Line
	switch e.Kind {
	case EPrim:
		c.emit(code.MakeAD(code.KPRIM, byte(dst), uint16(primTag(e.Prim))), line)
	case ENum:
		c.emitConstNum(dst, e.Num, line)
	case EStr:
		idx := c.addConstant(c.internString(e.Str))
		c.emit(code.MakeAD(code.KSTR, byte(dst), uint16(idx)), line)
	case ENonReloc:
		if e.Slot != dst {
			c.emit(code.MakeAD(code.MOV, byte(dst), uint16(e.Slot)), line)
		}
	case EReloc:
		ins := c.instAt(e.PC).SetA(byte(dst))
		c.setInstAt(e.PC, ins)
	case EJmp:
		c.appendJMP(&e.TrueList, e.PC)
	}

	if e.hasJumps() {
		c.dischargeJumpsToSlot(e, dst)
	}

	e.Kind = ENonReloc
	e.Slot = dst
}

// dischargeJumpsToSlot resolves a boolean-producing expression's jump
// lists by patching every conditional-copy in them to write dst, and
// only synthesizing an explicit true/false tail block when some jump in
// the list has no associated value instruction to patch.
func (c *Compiler) dischargeJumpsToSlot(e *Expr, dst int) {
	end := NoJump
	if c.jmpsNeedFallThrough(e.TrueList) || c.jmpsNeedFallThrough(e.FalseList) {
		var fj int
		if e.Kind == EJmp {
			fj = NoJump
		} else {
			fj = c.emitJMP(e.Line)
		}
		fallFalse := c.pc()
		c.emit(code.MakeAD(code.KPRIM, byte(dst), uint16(primTag(value.False))), e.Line)
		endJ := c.emitJMP(e.Line)
		fallTrue := c.pc()
		c.emit(code.MakeAD(code.KPRIM, byte(dst), uint16(primTag(value.True))), e.Line)
		if fj != NoJump {
			c.patchJMP(fj, c.pc())
		}
		c.patchJMPsAndVals(e.FalseList, fallFalse, dst, fallFalse)
		c.patchJMPsAndVals(e.TrueList, fallTrue, dst, fallTrue)
		c.appendJMP(&end, endJ)
	} else {
		c.patchJMPsAndVals(e.FalseList, c.pc(), dst, c.pc())
		c.patchJMPsAndVals(e.TrueList, c.pc(), dst, c.pc())
	}
	if end != NoJump {
		c.patchJMP(end, c.pc())
	}
	e.TrueList, e.FalseList = NoJump, NoJump
}

// toNextSlot frees e's current slot if it is a temporary top, reserves a
// fresh register, and forces e into it.
func (c *Compiler) toNextSlot(e *Expr) int {
	c.freeExpr(e)
	slot := c.reserveSlot()
	c.toSlot(e, slot)
	return slot
}

// toAnySlot returns e's slot if it is already sitting in one
// (ENonReloc), otherwise behaves like toNextSlot.
func (c *Compiler) toAnySlot(e *Expr) int {
	c.discharge(e)
	if e.Kind == ENonReloc && !e.hasJumps() {
		return e.Slot
	}
	return c.toNextSlot(e)
}

// freeExpr releases e's register if it denotes a temporary at the
// current stack top.
func (c *Compiler) freeExpr(e *Expr) {
	if e.Kind == ENonReloc {
		c.freeSlot(e.Slot)
	}
}

func primTag(v value.Value) byte {
	switch v {
	case value.Nil:
		return 0
	case value.False:
		return 1
	case value.True:
		return 2
	default:
		panic("compiler: not a primitive value")
	}
}

func primFromTag(tag byte) value.Value {
	switch tag {
	case 0:
		return value.Nil
	case 1:
		return value.False
	case 2:
		return value.True
	default:
		panic("compiler: invalid primitive tag")
	}
}

func (c *Compiler) internString(s string) value.Value {
	return c.heap.NewString([]byte(s))
}

// emitConstNum picks KINT for a value that round-trips through a signed
// 16-bit integer, else materialises it through the constant pool.
func (c *Compiler) emitConstNum(dst int, n float64, line int) {
	if i := int16(n); float64(i) == n {
		c.emit(code.MakeAD(code.KINT, byte(dst), uint16(uint16(i))), line)
		return
	}
	idx := c.addConstant(value.FromFloat64(n))
	c.emit(code.MakeAD(code.KNUM, byte(dst), uint16(idx)), line)
}

// inlineUint8Num reports whether n fits as an 8-bit-indexed inline
// constant (used for the VN/NV arithmetic forms, which take an 8-bit C
// or B operand indexing k[]), returning the pool index.
func (c *Compiler) inlineUint8Num(n float64) (byte, bool) {
	idx := c.addConstant(value.FromFloat64(n))
	if idx > 0xFF {
		// constant pool is shared; a large index still works for the
		// general KNUM path, it just cannot be inlined into an 8-bit
		// operand. Undo is unnecessary: constants are deduplicated and
		// harmless to leave in the pool.
		return 0, false
	}
	return byte(idx), true
}
