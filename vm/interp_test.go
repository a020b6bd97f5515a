package vm

import (
	"strings"
	"testing"

	"github.com/chazu/rill/compiler"
	"github.com/chazu/rill/value"
)

func run(t *testing.T, src string) value.Value {
	t.Helper()
	heap := value.NewHeap()
	fp, err := compiler.New(src, "test", heap).Compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	result, err := New(heap).Run(fp)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return result
}

func runErr(t *testing.T, src string) error {
	t.Helper()
	heap := value.NewHeap()
	fp, err := compiler.New(src, "test", heap).Compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	_, err = New(heap).Run(fp)
	return err
}

func TestArithmetic(t *testing.T) {
	v := run(t, "return 2 + 3 * 4")
	if !v.IsFloat() || v.Float64() != 14 {
		t.Fatalf("expected 14, got %v", v)
	}
}

func TestPowRightAssociativeAndUnaryPrecedence(t *testing.T) {
	v := run(t, "return -2^2")
	if v.Float64() != -4 {
		t.Fatalf("expected -4, got %v", v.Float64())
	}
}

func TestLocalsAndAssignment(t *testing.T) {
	v := run(t, "local a = 1\na = a + 41\nreturn a")
	if v.Float64() != 42 {
		t.Fatalf("expected 42, got %v", v.Float64())
	}
}

func TestIfElse(t *testing.T) {
	v := run(t, `
local a = 5
local r
if a > 10 then
  r = "big"
elseif a > 3 then
  r = "medium"
else
  r = "small"
end
return r
`)
	if v.AsString().String() != "medium" {
		t.Fatalf("expected medium, got %v", v.AsString())
	}
}

func TestWhileLoop(t *testing.T) {
	v := run(t, `
local i = 0
local sum = 0
while i < 5 do
  sum = sum + i
  i = i + 1
end
return sum
`)
	if v.Float64() != 10 {
		t.Fatalf("expected 10, got %v", v.Float64())
	}
}

func TestRepeatUntil(t *testing.T) {
	v := run(t, `
local i = 0
repeat
  i = i + 1
until i == 5
return i
`)
	if v.Float64() != 5 {
		t.Fatalf("expected 5, got %v", v.Float64())
	}
}

func TestBreak(t *testing.T) {
	v := run(t, `
local i = 0
while true do
  i = i + 1
  if i == 3 then
    break
  end
end
return i
`)
	if v.Float64() != 3 {
		t.Fatalf("expected 3, got %v", v.Float64())
	}
}

func TestAndOr(t *testing.T) {
	v := run(t, `return 1 == 1 and "yes" or "no"`)
	if v.AsString().String() != "yes" {
		t.Fatalf("expected yes, got %v", v.AsString())
	}
	v = run(t, `return 1 == 2 and "yes" or "no"`)
	if v.AsString().String() != "no" {
		t.Fatalf("expected no, got %v", v.AsString())
	}
}

func TestNotFoldingAndRuntime(t *testing.T) {
	v := run(t, "return not (1 == 2)")
	if !v.IsTrue() {
		t.Fatalf("expected true, got %v", v)
	}
}

func TestConcat(t *testing.T) {
	v := run(t, `return "n=" .. 42`)
	if v.AsString().String() != "n=42" {
		t.Fatalf("expected n=42, got %q", v.AsString())
	}
}

func TestFunctionCall(t *testing.T) {
	v := run(t, `
local function add(a, b)
  return a + b
end
return add(3, 4)
`)
	if v.Float64() != 7 {
		t.Fatalf("expected 7, got %v", v.Float64())
	}
}

func TestNestedCalls(t *testing.T) {
	v := run(t, `
local function double(x)
  return x * 2
end
local function quadruple(f, x)
  return f(f(x))
end
return quadruple(double, 5)
`)
	if v.Float64() != 20 {
		t.Fatalf("expected 20, got %v", v.Float64())
	}
}

func TestArithmeticTypeErrorSurfacesAsRuntimeError(t *testing.T) {
	err := runErr(t, `return "x" + 1`)
	if err == nil {
		t.Fatalf("expected runtime error")
	}
	if _, ok := err.(*RuntimeError); !ok {
		t.Fatalf("expected *RuntimeError, got %T", err)
	}
}

func TestArithmeticTypeErrorNamesBothOperands(t *testing.T) {
	err := runErr(t, `
local x = nil + 1
return x
`)
	if err == nil {
		t.Fatalf("expected runtime error")
	}
	want := "attempt to add a nil and number value"
	if !strings.Contains(err.Error(), want) {
		t.Fatalf("expected error to contain %q, got %q", want, err.Error())
	}
}

func TestSubtractTypeErrorNamesBothOperands(t *testing.T) {
	err := runErr(t, `return "x" - true`)
	want := "attempt to subtract a string and boolean value"
	if err == nil || !strings.Contains(err.Error(), want) {
		t.Fatalf("expected error to contain %q, got %v", want, err)
	}
}

func TestNegateTypeError(t *testing.T) {
	err := runErr(t, `return -"x"`)
	want := "attempt to negate a string value"
	if err == nil || !strings.Contains(err.Error(), want) {
		t.Fatalf("expected error to contain %q, got %v", want, err)
	}
}

func TestCallingNonFunctionIsRuntimeError(t *testing.T) {
	err := runErr(t, `
local a = 1
return a()
`)
	if err == nil {
		t.Fatalf("expected runtime error")
	}
}

func TestMultiReturnAdjustAssignSpreadsCallResults(t *testing.T) {
	v := run(t, `
local function f(a, b)
  return a + 1, b + 2, a + 3
end
local x, y, z, w = f(1, 2)
return x == 2 and y == 4 and z == 4 and w == nil
`)
	if !v.IsTrue() {
		t.Fatalf("expected true, got %v", v)
	}
}

func TestMultiReturnStatementReturnsAllValues(t *testing.T) {
	v := run(t, `
local function pair()
  return 1, 2
end
local a, b = pair()
return a + b
`)
	if v.Float64() != 3 {
		t.Fatalf("expected 3, got %v", v.Float64())
	}
}

func TestMultiAssignShortfallPadsNil(t *testing.T) {
	v := run(t, `
local a, b, c
a, b, c = 1, 2
return c
`)
	if !v.IsNil() {
		t.Fatalf("expected nil, got %v", v)
	}
}

func TestMultiAssignSurplusIsDropped(t *testing.T) {
	v := run(t, `
local a, b
a, b = 1, 2, 3
return b
`)
	if v.Float64() != 2 {
		t.Fatalf("expected 2, got %v", v.Float64())
	}
}

func TestBareCallStatementIgnoresReturnValues(t *testing.T) {
	v := run(t, `
local function f()
  return 1, 2
end
f()
return 42
`)
	if v.Float64() != 42 {
		t.Fatalf("expected 42, got %v", v.Float64())
	}
}

func TestSwap(t *testing.T) {
	v := run(t, `
local a = 1
local b = 2
a, b = b, a
return a
`)
	if v.Float64() != 2 {
		t.Fatalf("expected 2, got %v", v.Float64())
	}
}
