package compiler

import (
	"github.com/chazu/rill/code"
	"github.com/chazu/rill/value"
)

// opInfo describes one binary operator's precedence and the minimum
// precedence to use when parsing its right operand; equal to prec for a
// right-associative operator (concat, pow), one above prec otherwise.
type opInfo struct {
	prec    int
	nextMin int
	bin     BinOp
}

var binops = map[TokenKind]opInfo{
	TokOr:      {1, 2, OpOr},
	TokAnd:     {2, 3, OpAnd},
	TokLt:      {3, 4, OpLt},
	TokGt:      {3, 4, OpGt},
	TokLe:      {3, 4, OpLe},
	TokGe:      {3, 4, OpGe},
	TokNe:      {3, 4, OpNe},
	TokEq:      {3, 4, OpEq},
	TokConcat:  {4, 4, OpConcat},
	TokPlus:    {5, 6, OpAdd},
	TokMinus:   {5, 6, OpSub},
	TokStar:    {6, 7, OpMul},
	TokSlash:   {6, 7, OpDiv},
	TokPercent: {6, 7, OpMod},
	TokCaret:   {8, 8, OpPow},
}

const unaryPrec = 7

// expression parses a full expression, applying every binary operator
// whose precedence is at least minPrec, in the manner of a precedence
// climbing (Pratt) parser.
func (c *Compiler) expression(minPrec int) Expr {
	left := c.unaryExpr()
	for {
		info, ok := binops[c.cur.Kind]
		if !ok || info.prec < minPrec {
			break
		}
		line := c.cur.Pos.Line
		c.advance()
		c.emitBinopLeft(info.bin, &left)
		right := c.expression(info.nextMin)
		left = c.emitBinop(info.bin, &left, &right, line)
	}
	return left
}

func (c *Compiler) unaryExpr() Expr {
	line := c.cur.Pos.Line
	switch c.cur.Kind {
	case TokNot:
		c.advance()
		e := c.expression(unaryPrec)
		return c.emitNot(&e, line)
	case TokMinus:
		c.advance()
		e := c.expression(unaryPrec)
		return c.emitUnaryMinus(&e, line)
	default:
		return c.simpleExpr()
	}
}

func (c *Compiler) simpleExpr() Expr {
	line := c.cur.Pos.Line
	switch c.cur.Kind {
	case TokNumber:
		n := c.cur.Num
		c.advance()
		return exprNum(n, line)
	case TokString:
		s := c.cur.Str
		c.advance()
		return exprStr(s, line)
	case TokNil:
		c.advance()
		return exprPrim(value.Nil, line)
	case TokTrue:
		c.advance()
		return exprPrim(value.True, line)
	case TokFalse:
		c.advance()
		return exprPrim(value.False, line)
	case TokFunction:
		c.advance()
		return c.funcBody("", line)
	default:
		return c.suffixedExpr()
	}
}

// suffixedExpr parses an identifier or parenthesized expression, then
// any trailing call suffixes.
func (c *Compiler) suffixedExpr() Expr {
	line := c.cur.Pos.Line
	var e Expr
	switch c.cur.Kind {
	case TokIdent:
		name := c.cur.Text
		c.advance()
		slot := c.fs.resolveLocal(name)
		if slot < 0 {
			c.errorAt(Position{Line: line}, "undefined variable '%s'", name)
		}
		e = exprLocal(slot, line)
	case TokLParen:
		c.advance()
		e = c.expression(0)
		c.expect(TokRParen, ")")
	default:
		c.errorAtCurrent("unexpected symbol")
	}
	for c.check(TokLParen) {
		e = c.callExpr(&e)
	}
	return e
}

// callExpr parses a call suffix `(args)` against an already-parsed
// callee expression, placing the callee and its arguments in
// consecutive registers as CALL requires.
func (c *Compiler) callExpr(fn *Expr) Expr {
	line := c.cur.Pos.Line
	base := c.toNextSlot(fn)
	nargs := 0
	c.expect(TokLParen, "(")
	if !c.check(TokRParen) {
		for {
			arg := c.expression(0)
			c.toNextSlot(&arg)
			nargs++
			if !c.match(TokComma) {
				break
			}
		}
	}
	c.expect(TokRParen, ")")
	c.fs.numStack = base + 1
	pc := c.emit(code.MakeABC(code.CALL, byte(base), byte(nargs+1), 1), line)
	return exprCall(pc, line)
}

// statement parses and emits one statement.
func (c *Compiler) statement() {
	switch c.cur.Kind {
	case TokSemi:
		c.advance()
	case TokLocal:
		c.advance()
		if c.match(TokFunction) {
			c.localFunctionStatement()
		} else {
			c.localStatement()
		}
	case TokFunction:
		c.functionStatement()
	case TokIf:
		c.ifStatement()
	case TokWhile:
		c.whileStatement()
	case TokRepeat:
		c.repeatStatement()
	case TokDo:
		c.doStatement()
	case TokBreak:
		c.breakStatement()
	case TokReturn:
		c.returnStatement()
	default:
		c.exprStatement()
	}
}

func (c *Compiler) localStatement() {
	names := []string{c.expect(TokIdent, "identifier").Text}
	for c.match(TokComma) {
		names = append(names, c.expect(TokIdent, "identifier").Text)
	}
	line := c.cur.Pos.Line
	base := c.fs.numStack
	nexprs := 0
	lastCallPC := -1
	if c.match(TokAssign) {
		nexprs, lastCallPC = c.exprListToNextSlots()
	}
	c.adjustAssign(base, len(names), nexprs, lastCallPC, line)
	for _, n := range names {
		c.newLocal(n)
	}
}

// exprListToNextSlots parses a comma-separated expression list, forcing
// each one into the next free register in order. It returns the total
// count and, when the final expression is still a live call descriptor,
// that call's CALL instruction PC, so adjust_assign can rewrite its
// return count instead of padding extras with nil.
func (c *Compiler) exprListToNextSlots() (int, int) {
	n := 0
	lastCallPC := -1
	for {
		e := c.expression(0)
		if e.Kind == ECall {
			lastCallPC = e.PC
			c.toAnySlot(&e)
		} else {
			lastCallPC = -1
			c.toNextSlot(&e)
		}
		n++
		if !c.match(TokComma) {
			break
		}
	}
	return n, lastCallPC
}

// adjustAssign reconciles a target count of nvars against the nexprs
// values already sitting in the nexprs contiguous slots starting at
// base. If the last expression was a call, its CALL is rewritten to
// produce exactly the values still needed instead of padding with nil;
// otherwise a shortfall is padded with nil and a surplus is dropped,
// matching a var count that always wins over the expression count.
func (c *Compiler) adjustAssign(base, nvars, nexprs, lastCallPC, line int) {
	extra := nvars - nexprs
	if lastCallPC >= 0 {
		newC := extra + 1
		if newC < 0 {
			newC = 0
		}
		c.setInstAt(lastCallPC, c.instAt(lastCallPC).SetC(byte(newC)))
		c.fs.numStack = base + nexprs - 1 + newC
		return
	}
	if extra == 1 {
		slot := c.reserveSlot()
		c.emit(code.MakeAD(code.KPRIM, byte(slot), uint16(primTag(value.Nil))), line)
	} else if extra > 1 {
		first := c.reserveSlot()
		for i := 1; i < extra; i++ {
			c.reserveSlot()
		}
		last := first + extra - 1
		c.emit(code.MakeAD(code.KNIL, byte(first), uint16(last)), line)
	} else if extra < 0 {
		for i := 0; i < -extra; i++ {
			c.freeSlot(c.fs.numStack - 1)
		}
	}
}

func (c *Compiler) localFunctionStatement() {
	line := c.cur.Pos.Line
	name := c.expect(TokIdent, "identifier").Text
	slot := c.reserveSlot()
	c.newLocal(name)
	e := c.funcBody(name, line)
	c.toSlot(&e, slot)
}

// functionStatement handles a bare `function name(...) ... end`, which
// this language treats as declaring a local since it has no globals or
// tables to assign a field of.
func (c *Compiler) functionStatement() {
	line := c.cur.Pos.Line
	c.advance() // 'function'
	name := c.expect(TokIdent, "identifier").Text
	slot := c.reserveSlot()
	c.newLocal(name)
	e := c.funcBody(name, line)
	c.toSlot(&e, slot)
}

// funcBody parses a parameter list and body, compiling them into a
// fresh FunctionProto under its own funcState, and returns an
// expression descriptor for loading the resulting function value.
// Nested functions have no access to an enclosing function's locals:
// there are no upvalues.
func (c *Compiler) funcBody(name string, line int) Expr {
	parent := c.fs
	proto := c.heap.NewFunctionProto(c.chunkName, line)
	proto.Name = name
	c.fs = newFuncState(parent, proto)
	c.fs.enterBlock(false)

	c.expect(TokLParen, "(")
	if !c.check(TokRParen) {
		for {
			pname := c.expect(TokIdent, "identifier").Text
			c.reserveSlot()
			c.newLocal(pname)
			proto.NumParams++
			if !c.match(TokComma) {
				break
			}
		}
	}
	c.expect(TokRParen, ")")

	for !c.check(TokEnd) && !c.check(TokEOF) {
		c.statement()
	}
	proto.EndLine = c.cur.Pos.Line
	c.emit(code.MakeABC(code.RET0, 0, 0, 0), proto.EndLine)
	c.expect(TokEnd, "end")

	c.fs = parent
	idx := c.addConstant(proto.Value())
	pc := c.emit(code.MakeAD(code.KFN, NoReg, uint16(idx)), line)
	return exprReloc(pc, line)
}

func (c *Compiler) doStatement() {
	c.advance()
	c.fs.enterBlock(false)
	for !c.check(TokEnd) && !c.check(TokEOF) {
		c.statement()
	}
	c.fs.exitBlock()
	c.expect(TokEnd, "end")
}

// ifStatement compiles an if/elseif*/else? chain. Each branch's
// condition is threaded through emitBranchTrue so its false list skips
// straight to the next branch (or end), and its true list falls through
// into the branch body.
func (c *Compiler) ifStatement() {
	c.advance() // 'if'
	endList := NoJump
	c.ifBranch(&endList)
	for c.match(TokElseif) {
		c.ifBranch(&endList)
	}
	if c.match(TokElse) {
		c.fs.enterBlock(false)
		for !c.check(TokEnd) && !c.check(TokEOF) {
			c.statement()
		}
		c.fs.exitBlock()
	}
	c.expect(TokEnd, "end")
	c.patchJMPs(endList, c.pc())
}

func (c *Compiler) ifBranch(endList *int) {
	cond := c.expression(0)
	c.expect(TokThen, "then")
	c.emitBranchTrue(&cond)
	c.fs.enterBlock(false)
	for !c.check(TokElseif) && !c.check(TokElse) && !c.check(TokEnd) && !c.check(TokEOF) {
		c.statement()
	}
	c.fs.exitBlock()
	if c.check(TokElseif) || c.check(TokElse) {
		j := c.emitJMP(c.cur.Pos.Line)
		c.appendJMP(endList, j)
	}
	c.patchJMPs(cond.FalseList, c.pc())
}

// whileStatement re-evaluates its condition each iteration, jumping to
// the loop's start at the bottom of the body.
func (c *Compiler) whileStatement() {
	c.advance() // 'while'
	start := c.pc()
	cond := c.expression(0)
	c.expect(TokDo, "do")
	c.emitBranchTrue(&cond)
	b := c.fs.enterBlock(true)
	for !c.check(TokEnd) && !c.check(TokEOF) {
		c.statement()
	}
	c.fs.exitBlock()
	j := c.emitJMP(c.cur.Pos.Line)
	c.patchJMP(j, start)
	c.expect(TokEnd, "end")
	c.patchJMPs(cond.FalseList, c.pc())
	c.patchJMPs(b.breaks, c.pc())
}

// repeatStatement evaluates its condition after the body, in the body's
// own scope, and loops back while the condition is false.
func (c *Compiler) repeatStatement() {
	c.advance() // 'repeat'
	start := c.pc()
	b := c.fs.enterBlock(true)
	for !c.check(TokUntil) && !c.check(TokEOF) {
		c.statement()
	}
	c.expect(TokUntil, "until")
	cond := c.expression(0)
	c.emitBranchTrue(&cond)
	c.patchJMPs(cond.FalseList, start)
	c.fs.exitBlock()
	c.patchJMPs(b.breaks, c.pc())
}

func (c *Compiler) breakStatement() {
	line := c.cur.Pos.Line
	c.advance()
	loop := c.fs.nearestLoop()
	if loop == nil {
		c.errorAt(Position{Line: line}, "break outside a loop")
	}
	j := c.emitJMP(line)
	c.appendJMP(&loop.breaks, j)
}

func (c *Compiler) returnStatement() {
	line := c.cur.Pos.Line
	c.advance()
	switch c.cur.Kind {
	case TokEnd, TokEOF, TokElse, TokElseif, TokUntil:
		c.emit(code.MakeABC(code.RET0, 0, 0, 0), line)
		return
	case TokSemi:
		c.advance()
		c.emit(code.MakeABC(code.RET0, 0, 0, 0), line)
		return
	}
	e := c.expression(0)
	if !c.check(TokComma) {
		slot := c.toAnySlot(&e)
		c.emit(code.MakeAD(code.RET1, 0, uint16(slot)), line)
		c.match(TokSemi)
		return
	}
	base := c.toNextSlot(&e)
	n := 1
	for c.match(TokComma) {
		e = c.expression(0)
		c.toNextSlot(&e)
		n++
	}
	c.emit(code.MakeAD(code.RET, byte(base), uint16(n)), line)
	c.match(TokSemi)
}

// exprStatement handles the statement forms that begin with an
// identifier or a parenthesized prefix expression: single assignment,
// multiple assignment, and call statements.
func (c *Compiler) exprStatement() {
	line := c.cur.Pos.Line
	if c.check(TokIdent) {
		switch c.peek().Kind {
		case TokAssign:
			c.singleAssignStatement(line)
			return
		case TokComma:
			c.multiAssignStatement(line)
			return
		}
	}
	e := c.suffixedExpr()
	if e.Kind != ECall {
		c.errorAt(Position{Line: line}, "syntax error (expected statement)")
	}
	c.setInstAt(e.PC, c.instAt(e.PC).SetC(0))
}

func (c *Compiler) singleAssignStatement(line int) {
	name := c.cur.Text
	c.advance() // ident
	c.advance() // '='
	slot := c.fs.resolveLocal(name)
	if slot < 0 {
		c.errorAt(Position{Line: line}, "undefined variable '%s'", name)
	}
	e := c.expression(0)
	c.toSlot(&e, slot)
}

// multiAssignStatement evaluates every right-hand expression into a
// fresh temporary before moving any of them into a target slot, so that
// a swap like `a, b = b, a` reads both old values before either target
// is overwritten. A count mismatch runs through the same adjust_assign
// as a local declaration: nil-pad a shortfall, drop a surplus, or let a
// trailing call spread its results across it.
func (c *Compiler) multiAssignStatement(line int) {
	names := []string{c.expect(TokIdent, "identifier").Text}
	for c.match(TokComma) {
		names = append(names, c.expect(TokIdent, "identifier").Text)
	}
	c.expect(TokAssign, "=")

	slots := make([]int, len(names))
	for i, n := range names {
		slot := c.fs.resolveLocal(n)
		if slot < 0 {
			c.errorAt(Position{Line: line}, "undefined variable '%s'", n)
		}
		slots[i] = slot
	}

	base := c.fs.numStack
	nexprs, lastCallPC := c.exprListToNextSlots()
	c.adjustAssign(base, len(names), nexprs, lastCallPC, line)

	for i := len(names) - 1; i >= 0; i-- {
		src := base + i
		if src != slots[i] {
			c.emit(code.MakeAD(code.MOV, byte(slots[i]), uint16(src)), line)
		}
		c.freeSlot(base + i)
	}
}
