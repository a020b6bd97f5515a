package vm

import (
	"math"
	"strconv"

	"github.com/chazu/rill/code"
	"github.com/chazu/rill/value"
)

// call runs proto's instruction stream with its register window
// starting at base in the shared stack. It recurses for CALL, one Go
// frame per rill call. Its return values are left where RET/RET1 wrote
// them rather than copied out; call reports where they start (retBase)
// and how many there are (nret), and the caller (execCall, or PCall for
// the top-level chunk) copies as many as it actually wants.
func (s *State) call(proto *value.FunctionProto, base int) (retBase, nret int) {
	s.frames = append(s.frames, Frame{ChunkName: proto.ChunkName})
	defer func() { s.frames = s.frames[:len(s.frames)-1] }()
	top := len(s.frames) - 1

	pc := 0
	for {
		word := proto.Ins[pc]
		ins := code.Instruction(word)
		op := ins.Op()
		line := int(proto.LineInfo[pc])
		s.frames[top].Line = line

		if s.Trace != nil {
			s.Trace(Step{ChunkName: proto.ChunkName, Line: line, PC: pc, Op: op.String(), Base: base})
		}

		switch op {
		case code.NOP:
			pc++

		case code.MOV:
			s.Stack[base+int(ins.A())] = s.Stack[base+int(ins.D())]
			pc++

		case code.KPRIM:
			s.Stack[base+int(ins.A())] = primOfTag(byte(ins.D()))
			pc++

		case code.KINT:
			s.Stack[base+int(ins.A())] = value.FromFloat64(float64(int16(ins.D())))
			pc++

		case code.KNUM, code.KSTR, code.KFN:
			s.Stack[base+int(ins.A())] = proto.K[ins.D()]
			pc++

		case code.KNIL:
			for i := int(ins.A()); i <= int(ins.D()); i++ {
				s.Stack[base+i] = value.Nil
			}
			pc++

		case code.NEG:
			v := s.Stack[base+int(ins.D())]
			if !v.IsFloat() {
				s.runtimeError(proto.ChunkName, line, "attempt to negate a %s value", v.TypeName())
			}
			s.Stack[base+int(ins.A())] = value.FromFloat64(-v.Float64())
			pc++

		case code.NOT:
			s.Stack[base+int(ins.A())] = value.Bool(s.Stack[base+int(ins.D())].IsFalsy())
			pc++

		case code.ADDVV, code.SUBVV, code.MULVV, code.DIVVV, code.MODVV:
			a, b := s.arithOperands(proto, line, op, s.Stack[base+int(ins.B())], s.Stack[base+int(ins.C())])
			s.Stack[base+int(ins.A())] = value.FromFloat64(arith(op, a, b))
			pc++

		case code.ADDVN, code.SUBVN, code.MULVN, code.DIVVN, code.MODVN:
			a, b := s.arithOperands(proto, line, op, s.Stack[base+int(ins.B())], proto.K[ins.C()])
			s.Stack[base+int(ins.A())] = value.FromFloat64(arith(op, a, b))
			pc++

		case code.SUBNV, code.DIVNV, code.MODNV:
			a, b := s.arithOperands(proto, line, op, proto.K[ins.B()], s.Stack[base+int(ins.C())])
			s.Stack[base+int(ins.A())] = value.FromFloat64(arith(op, a, b))
			pc++

		case code.POW:
			a, b := s.arithOperands(proto, line, op, s.Stack[base+int(ins.B())], s.Stack[base+int(ins.C())])
			s.Stack[base+int(ins.A())] = value.FromFloat64(math.Pow(a, b))
			pc++

		case code.CONCAT:
			l := s.concatOperand(proto, line, base+int(ins.B()))
			r := s.concatOperand(proto, line, base+int(ins.C()))
			s.Stack[base+int(ins.A())] = s.Heap.NewString([]byte(l + r))
			pc++

		case code.IST:
			pc = s.skipUnless(pc, s.Stack[base+int(ins.D())].IsTruthy())
		case code.ISF:
			pc = s.skipUnless(pc, s.Stack[base+int(ins.D())].IsFalsy())
		case code.ISTC:
			v := s.Stack[base+int(ins.D())]
			if v.IsTruthy() {
				s.Stack[base+int(ins.A())] = v
				pc++
			} else {
				pc += 2
			}
		case code.ISFC:
			v := s.Stack[base+int(ins.D())]
			if v.IsFalsy() {
				s.Stack[base+int(ins.A())] = v
				pc++
			} else {
				pc += 2
			}

		case code.EQVV:
			pc = s.skipUnless(pc, valueEqual(s.Stack[base+int(ins.A())], s.Stack[base+int(ins.D())]))
		case code.NEQVV:
			pc = s.skipUnless(pc, !valueEqual(s.Stack[base+int(ins.A())], s.Stack[base+int(ins.D())]))
		case code.EQVP:
			pc = s.skipUnless(pc, valueEqual(s.Stack[base+int(ins.A())], primOfTag(byte(ins.D()))))
		case code.NEQVP:
			pc = s.skipUnless(pc, !valueEqual(s.Stack[base+int(ins.A())], primOfTag(byte(ins.D()))))
		case code.EQVN:
			pc = s.skipUnless(pc, valueEqual(s.Stack[base+int(ins.A())], proto.K[ins.D()]))
		case code.NEQVN:
			pc = s.skipUnless(pc, !valueEqual(s.Stack[base+int(ins.A())], proto.K[ins.D()]))
		case code.EQVS:
			pc = s.skipUnless(pc, valueEqual(s.Stack[base+int(ins.A())], proto.K[ins.D()]))
		case code.NEQVS:
			pc = s.skipUnless(pc, !valueEqual(s.Stack[base+int(ins.A())], proto.K[ins.D()]))

		case code.LTVV:
			pc = s.compareVV(proto, line, pc, base, ins, func(a, b float64) bool { return a < b })
		case code.LEVV:
			pc = s.compareVV(proto, line, pc, base, ins, func(a, b float64) bool { return a <= b })
		case code.GTVV:
			pc = s.compareVV(proto, line, pc, base, ins, func(a, b float64) bool { return a > b })
		case code.GEVV:
			pc = s.compareVV(proto, line, pc, base, ins, func(a, b float64) bool { return a >= b })
		case code.LTVN:
			pc = s.compareVN(proto, line, pc, base, ins, func(a, b float64) bool { return a < b })
		case code.LEVN:
			pc = s.compareVN(proto, line, pc, base, ins, func(a, b float64) bool { return a <= b })
		case code.GTVN:
			pc = s.compareVN(proto, line, pc, base, ins, func(a, b float64) bool { return a > b })
		case code.GEVN:
			pc = s.compareVN(proto, line, pc, base, ins, func(a, b float64) bool { return a >= b })

		case code.JMP:
			pc = code.DecodeJumpTarget(pc, ins.E())

		case code.CALL:
			pc = s.execCall(proto, line, base, ins, pc)

		case code.RET0:
			return base, 0
		case code.RET1:
			return base + int(ins.D()), 1
		case code.RET:
			return base + int(ins.A()), int(ins.D())

		default:
			s.runtimeError(proto.ChunkName, line, "unimplemented opcode %s", op)
		}
	}
}

// skipUnless returns the next pc: pc+1 if cond holds (letting the
// paired JMP fire), pc+2 if it does not (skipping the JMP).
func (s *State) skipUnless(pc int, cond bool) int {
	if cond {
		return pc + 1
	}
	return pc + 2
}

// execCall dispatches a CALL: it runs the callee, then copies as many of
// its actual return values (nret) as the caller asked for (ins.C()) into
// the caller's own register window starting at the call's own slot,
// padding any shortfall with nil. copy() is safe even when the two
// ranges overlap.
func (s *State) execCall(proto *value.FunctionProto, line, base int, ins code.Instruction, pc int) int {
	a := int(ins.A())
	fn := s.Stack[base+a]
	if !fn.IsPtr() || fn.ObjectKind() != value.KindFunctionProto {
		s.runtimeError(proto.ChunkName, line, "attempt to call a %s value", fn.TypeName())
	}
	callee := fn.AsFunctionProto()
	nargs := int(ins.B()) - 1
	calleeBase := base + a + 1
	s.ensure(calleeBase + maxRegistersPerFrame)
	for i := nargs; i < callee.NumParams; i++ {
		s.Stack[calleeBase+i] = value.Nil
	}
	retBase, nret := s.call(callee, calleeBase)
	want := int(ins.C())
	n := nret
	if n > want {
		n = want
	}
	copy(s.Stack[base+a:base+a+n], s.Stack[retBase:retBase+n])
	for i := n; i < want; i++ {
		s.Stack[base+a+i] = value.Nil
	}
	return pc + 1
}

func (s *State) number(proto *value.FunctionProto, line, slot int, verb string) float64 {
	v := s.Stack[slot]
	if !v.IsFloat() {
		s.runtimeError(proto.ChunkName, line, "attempt to %s a %s value", verb, v.TypeName())
	}
	return v.Float64()
}

// arithOperands type-checks both sides of a binary arithmetic opcode
// together so a mismatch names both operand types, not just the one
// that failed the check.
func (s *State) arithOperands(proto *value.FunctionProto, line int, op code.Opcode, a, b value.Value) (float64, float64) {
	if !a.IsFloat() || !b.IsFloat() {
		s.runtimeError(proto.ChunkName, line, "attempt to %s a %s and %s value", arithVerb(op), a.TypeName(), b.TypeName())
	}
	return a.Float64(), b.Float64()
}

func arithVerb(op code.Opcode) string {
	switch op {
	case code.ADDVV, code.ADDVN:
		return "add"
	case code.SUBVV, code.SUBVN, code.SUBNV:
		return "subtract"
	case code.MULVV, code.MULVN:
		return "multiply"
	case code.DIVVV, code.DIVVN, code.DIVNV:
		return "divide"
	case code.MODVV, code.MODVN, code.MODNV:
		return "modulo"
	case code.POW:
		return "exponentiate"
	default:
		panic("vm: not an arithmetic opcode")
	}
}

func (s *State) concatOperand(proto *value.FunctionProto, line, slot int) string {
	v := s.Stack[slot]
	switch {
	case v.IsFloat():
		return strconv.FormatFloat(v.Float64(), 'g', -1, 64)
	case v.IsPtr() && v.ObjectKind() == value.KindString:
		return v.AsString().String()
	default:
		s.runtimeError(proto.ChunkName, line, "attempt to concatenate a %s value", v.TypeName())
		return ""
	}
}

func (s *State) compareVV(proto *value.FunctionProto, line, pc, base int, ins code.Instruction, cmp func(a, b float64) bool) int {
	a := s.number(proto, line, base+int(ins.A()), "compare")
	b := s.number(proto, line, base+int(ins.D()), "compare")
	return s.skipUnless(pc, cmp(a, b))
}

func (s *State) compareVN(proto *value.FunctionProto, line, pc, base int, ins code.Instruction, cmp func(a, b float64) bool) int {
	a := s.number(proto, line, base+int(ins.A()), "compare")
	b := proto.K[ins.D()].Float64()
	return s.skipUnless(pc, cmp(a, b))
}

func primOfTag(tag byte) value.Value {
	switch tag {
	case 0:
		return value.Nil
	case 1:
		return value.False
	default:
		return value.True
	}
}

func valueEqual(a, b value.Value) bool {
	if a.IsFloat() && b.IsFloat() {
		return a.Float64() == b.Float64()
	}
	if a.IsPtr() && b.IsPtr() {
		if a.ObjectKind() == value.KindString && b.ObjectKind() == value.KindString {
			return a.AsString().Equal(b.AsString())
		}
		return a == b
	}
	return a == b
}

func arith(op code.Opcode, a, b float64) float64 {
	switch op {
	case code.ADDVV, code.ADDVN:
		return a + b
	case code.SUBVV, code.SUBVN, code.SUBNV:
		return a - b
	case code.MULVV, code.MULVN:
		return a * b
	case code.DIVVV, code.DIVVN, code.DIVNV:
		return a / b
	case code.MODVV, code.MODVN, code.MODNV:
		return luaMod(a, b)
	default:
		panic("vm: not an arithmetic opcode")
	}
}

func luaMod(a, b float64) float64 {
	r := math.Mod(a, b)
	if r != 0 && (r < 0) != (b < 0) {
		r += b
	}
	return r
}
