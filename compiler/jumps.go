package compiler

import (
	"github.com/chazu/rill/code"
	"github.com/chazu/rill/value"
)

// emitJMP emits a JMP instruction with its E field set to the sentinel
// (unpatched) and returns its PC.
func (c *Compiler) emitJMP(line int) int {
	return c.emit(code.MakeE(code.JMP, code.JMPSentinel), line)
}

// patchJMP sets the JMP instruction at pc j to branch to target.
func (c *Compiler) patchJMP(j, target int) {
	e, err := code.EncodeJumpE(j, target)
	if err != nil {
		c.errorAt(Position{Line: int(c.fs.proto.LineInfo[j])}, "control structure too long")
	}
	c.setInstAt(j, c.instAt(j).SetE(e))
}

// followJMP returns the next PC linked from the JMP at j, or NoJump if j
// is the list's tail.
func (c *Compiler) followJMP(j int) int {
	e := c.instAt(j).E()
	if e == code.JMPSentinel {
		return NoJump
	}
	return code.DecodeJumpTarget(j, e)
}

// appendJMP walks toAdd to its tail and links it in front of *head,
// growing the list toAdd -> ... -> old *head.
func (c *Compiler) appendJMP(head *int, toAdd int) {
	if toAdd == NoJump {
		return
	}
	if *head == NoJump {
		*head = toAdd
		return
	}
	j := toAdd
	for {
		next := c.followJMP(j)
		if next == NoJump {
			break
		}
		j = next
	}
	c.patchJMP(j, *head)
	*head = toAdd
}

// patchJMPs points every jump in head at target, discarding any
// associated conditional-copy value each jump was paired with.
func (c *Compiler) patchJMPs(head, target int) {
	for j := head; j != NoJump; {
		next := c.followJMP(j)
		if j > 0 {
			prev := c.instAt(j - 1)
			switch prev.Op() {
			case code.ISTC:
				c.setInstAt(j-1, prev.SetOp(code.IST))
			case code.ISFC:
				c.setInstAt(j-1, prev.SetOp(code.ISF))
			}
		}
		c.patchJMP(j, target)
		j = next
	}
}

// patchJMPsAndVals resolves every jump in head. Each jump may be
// immediately preceded by a conditional-copy (ISTC/ISFC) or a
// relocatable instruction whose destination is still unbound; when so,
// and dst is not the sentinel, the value's destination is patched to
// dst and the jump is pointed at valueTarget. If dst is the sentinel, or
// there is no associated value, the conditional copy is demoted to its
// non-copying form (ISTC->IST, ISFC->ISF) or the relocatable becomes
// NOP, and the jump is pointed at jumpTarget instead.
func (c *Compiler) patchJMPsAndVals(head, jumpTarget, dst, valueTarget int) {
	for j := head; j != NoJump; {
		next := c.followJMP(j)
		if dst != NoReg && c.patchListValue(j, dst) {
			c.patchJMP(j, valueTarget)
		} else {
			c.demoteListValue(j)
			c.patchJMP(j, jumpTarget)
		}
		j = next
	}
}

// patchListValue rewrites the conditional-copy or relocatable
// instruction immediately preceding the JMP at j to write dst. Returns
// false if there is nothing to patch (j has no associated value).
func (c *Compiler) patchListValue(j, dst int) bool {
	if j == 0 {
		return false
	}
	prev := c.instAt(j - 1)
	switch prev.Op() {
	case code.ISTC, code.ISFC:
		c.setInstAt(j-1, prev.SetA(byte(dst)))
		return true
	}
	if prev.A() == NoReg {
		c.setInstAt(j-1, prev.SetA(byte(dst)))
		return true
	}
	return false
}

// demoteListValue turns a conditional-copy preceding j into its
// non-copying form, or a still-relocatable instruction into NOP, when no
// destination will ever be bound for it.
func (c *Compiler) demoteListValue(j int) {
	if j == 0 {
		return
	}
	prev := c.instAt(j - 1)
	switch prev.Op() {
	case code.ISTC:
		c.setInstAt(j-1, prev.SetOp(code.IST))
	case code.ISFC:
		c.setInstAt(j-1, prev.SetOp(code.ISF))
	default:
		if prev.A() == NoReg {
			c.setInstAt(j-1, prev.SetOp(code.NOP))
		}
	}
}

// jmpsNeedFallThrough reports whether any jump in head is "pure" (has no
// associated value instruction), meaning materialising it as a value
// requires synthetic true/false tail blocks.
func (c *Compiler) jmpsNeedFallThrough(head int) bool {
	for j := head; j != NoJump; j = c.followJMP(j) {
		if j == 0 {
			return true
		}
		op := c.instAt(j - 1).Op()
		switch op {
		case code.ISTC, code.ISFC:
			continue
		}
		if c.instAt(j - 1).A() == NoReg {
			continue
		}
		return true
	}
	return false
}

// invertCompareAt inverts the polarity of the conditional test that
// immediately precedes the JMP at pc.
func (c *Compiler) invertCompareAt(pc int) {
	cmp := c.instAt(pc - 1)
	c.setInstAt(pc-1, cmp.SetOp(code.InvertOp(cmp.Op())))
}

// emitBranchTrue produces a jump that fires when l is false and appends
// it to l.FalseList, then patches l.TrueList to fall through here. Used
// by `and`. A falsy constant's own value must survive the jump, since
// it becomes the whole expression's result, so it is routed through the
// same materialize-then-conditional-copy path as a non-constant operand
// rather than jumping bare.
func (c *Compiler) emitBranchTrue(l *Expr) {
	c.discharge(l)
	var j int
	switch l.Kind {
	case EPrim:
		if l.Prim == value.Nil || l.Prim == value.False {
			slot := c.toAnySlot(l)
			c.emit(code.MakeAD(code.ISFC, NoReg, uint16(slot)), l.Line)
			j = c.emitJMP(l.Line)
			c.freeSlot(slot)
		} else {
			j = NoJump
		}
	case ENum, EStr:
		j = NoJump
	case EJmp:
		c.invertCompareAt(l.PC)
		j = l.PC
	default:
		slot := c.toAnySlot(l)
		c.emit(code.MakeAD(code.ISFC, NoReg, uint16(slot)), l.Line)
		j = c.emitJMP(l.Line)
		c.freeSlot(slot)
	}
	c.appendJMP(&l.FalseList, j)
	c.patchJMPs(l.TrueList, c.pc())
	l.TrueList = NoJump
}

// emitBranchFalse is the dual of emitBranchTrue, used by `or`. A truthy
// constant (which is every number and string, and true itself) must
// survive the jump since it becomes the whole expression's result.
func (c *Compiler) emitBranchFalse(l *Expr) {
	c.discharge(l)
	var j int
	switch l.Kind {
	case EPrim:
		if l.Prim == value.Nil || l.Prim == value.False {
			j = NoJump
		} else {
			slot := c.toAnySlot(l)
			c.emit(code.MakeAD(code.ISTC, NoReg, uint16(slot)), l.Line)
			j = c.emitJMP(l.Line)
			c.freeSlot(slot)
		}
	case EJmp:
		j = l.PC
	default: // ENum, EStr, ENonReloc, EReloc, ECall/ELocal (post-discharge)
		slot := c.toAnySlot(l)
		c.emit(code.MakeAD(code.ISTC, NoReg, uint16(slot)), l.Line)
		j = c.emitJMP(l.Line)
		c.freeSlot(slot)
	}
	c.appendJMP(&l.TrueList, j)
	c.patchJMPs(l.FalseList, c.pc())
	l.FalseList = NoJump
}
