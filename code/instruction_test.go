package code

import "testing"

func TestMakeABCRoundTrip(t *testing.T) {
	ins := MakeABC(ADDVV, 1, 2, 3)
	if ins.Op() != ADDVV || ins.A() != 1 || ins.B() != 2 || ins.C() != 3 {
		t.Fatalf("round trip failed: %#v", ins)
	}
}

func TestMakeADRoundTrip(t *testing.T) {
	ins := MakeAD(KNUM, 5, 4000)
	if ins.Op() != KNUM || ins.A() != 5 || ins.D() != 4000 {
		t.Fatalf("round trip failed: %#v", ins)
	}
}

func TestMakeERoundTrip(t *testing.T) {
	ins := MakeE(JMP, 0x7fffff)
	if ins.Op() != JMP || ins.E() != 0x7fffff {
		t.Fatalf("round trip failed: %#v", ins)
	}
}

func TestSetAPreservesRest(t *testing.T) {
	ins := MakeABC(ADDVV, 1, 2, 3)
	ins = ins.SetA(9)
	if ins.A() != 9 || ins.B() != 2 || ins.C() != 3 || ins.Op() != ADDVV {
		t.Fatalf("SetA corrupted other fields: %#v", ins)
	}
}

func TestSetEPreservesOp(t *testing.T) {
	ins := MakeE(JMP, 10)
	ins = ins.SetE(20)
	if ins.Op() != JMP || ins.E() != 20 {
		t.Fatalf("SetE corrupted opcode: %#v", ins)
	}
}

func TestJumpEncodeDecodeRoundTrip(t *testing.T) {
	pc, target := 100, 40
	e, err := EncodeJumpE(pc, target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := DecodeJumpTarget(pc, e)
	if got != target {
		t.Fatalf("target = %d, want %d", got, target)
	}
}

func TestJumpEncodeOverflow(t *testing.T) {
	if _, err := EncodeJumpE(0, 1<<24); err == nil {
		t.Fatal("expected overflow error")
	}
}

func TestInvertOpInvolution(t *testing.T) {
	for op := range invertOp {
		if InvertOp(InvertOp(op)) != op {
			t.Errorf("InvertOp(InvertOp(%s)) != %s", op, op)
		}
	}
}

func TestInvertTKInvolution(t *testing.T) {
	tokens := []CompareToken{TokEQ, TokNE, TokLT, TokLE, TokGT, TokGE}
	for _, tk := range tokens {
		if InvertTK(InvertTK(tk)) != tk {
			t.Errorf("InvertTK(InvertTK(%v)) != %v", tk, tk)
		}
	}
}
