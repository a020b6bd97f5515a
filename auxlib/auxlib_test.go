package auxlib

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/rill/reader"
	"github.com/chazu/rill/value"
	"github.com/chazu/rill/vm"
)

func runFunction(heap *value.Heap, fp *value.FunctionProto) (value.Value, error) {
	return vm.New(heap).Run(fp)
}

func TestDoStringReturnsResult(t *testing.T) {
	heap := value.NewHeap()
	v, status, err := DoString(heap, "test", "return 1 + 2")
	if err != nil {
		t.Fatalf("DoString: %v", err)
	}
	if status != StatusOK {
		t.Fatalf("status = %v, want OK", status)
	}
	if v.Float64() != 3 {
		t.Fatalf("result = %v, want 3", v.Float64())
	}
}

func TestDoStringSyntaxError(t *testing.T) {
	heap := value.NewHeap()
	_, status, err := DoString(heap, "test", "local = ")
	if err == nil {
		t.Fatalf("expected syntax error")
	}
	if status != StatusSyntaxErr {
		t.Fatalf("status = %v, want SYNTAX_ERR", status)
	}
}

func TestDoStringRuntimeError(t *testing.T) {
	heap := value.NewHeap()
	_, status, err := DoString(heap, "test", `return "x" + 1`)
	if err == nil {
		t.Fatalf("expected runtime error")
	}
	if status != StatusRunErr {
		t.Fatalf("status = %v, want RUN_ERR", status)
	}
}

func TestDoFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chunk.rill")
	if err := os.WriteFile(path, []byte("return 41 + 1"), 0o644); err != nil {
		t.Fatalf("write chunk: %v", err)
	}
	heap := value.NewHeap()
	v, status, err := DoFile(heap, path)
	if err != nil {
		t.Fatalf("DoFile: %v", err)
	}
	if status != StatusOK || v.Float64() != 42 {
		t.Fatalf("result = %v (%v), want 42 (OK)", v.Float64(), status)
	}
}

func TestDoFileMissing(t *testing.T) {
	heap := value.NewHeap()
	_, _, err := DoFile(heap, filepath.Join(t.TempDir(), "missing.rill"))
	if err == nil {
		t.Fatalf("expected file-open error")
	}
}

func TestCheckArgCount(t *testing.T) {
	heap := value.NewHeap()
	fp, status, err := Load(heap, reader.String("test", `
local function f(a, b)
  return a
end
return f
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if status != StatusOK {
		t.Fatalf("status = %v, want OK", status)
	}
	result, err := runFunction(heap, fp)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	callee := result.AsFunctionProto()
	if err := CheckArgCount(callee, []value.Value{value.FromFloat64(1)}); err == nil {
		t.Fatalf("expected error for missing argument")
	}
	if err := CheckArgCount(callee, []value.Value{value.FromFloat64(1), value.FromFloat64(2)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckType(t *testing.T) {
	heap := value.NewHeap()
	s := heap.NewString([]byte("hi"))
	if err := CheckType(s, "string"); err != nil {
		t.Fatalf("CheckType(string): %v", err)
	}
	if err := CheckType(s, "number"); err == nil {
		t.Fatalf("expected type mismatch error")
	}
	if _, err := CheckNumber(s); err == nil {
		t.Fatalf("expected CheckNumber to reject a string")
	}
	if got, err := CheckString(s); err != nil || got != "hi" {
		t.Fatalf("CheckString = %q, %v, want hi, nil", got, err)
	}
}

