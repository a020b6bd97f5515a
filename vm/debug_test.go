package vm

import (
	"strings"
	"testing"

	"github.com/chazu/rill/compiler"
	"github.com/chazu/rill/value"
)

func TestWhereDuringTrace(t *testing.T) {
	heap := value.NewHeap()
	fp, err := compiler.New("local a = 1\nlocal b = 2\nreturn a + b", "chunk.rill", heap).Compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	state := New(heap)
	var lastWhere string
	state.Trace = func(Step) { lastWhere = state.Where() }

	if _, err := state.Run(fp); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(lastWhere, "chunk.rill:") {
		t.Fatalf("expected Where to report chunk.rill:line, got %q", lastWhere)
	}
}

func TestTracebackOnRuntimeError(t *testing.T) {
	heap := value.NewHeap()
	fp, err := compiler.New(`return "x" + 1`, "chunk.rill", heap).Compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	_, err = New(heap).Run(fp)
	if err == nil {
		t.Fatalf("expected a runtime error")
	}
	rerr, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("expected *RuntimeError, got %T", err)
	}
	if len(rerr.Traceback) != 1 {
		t.Fatalf("expected one traceback frame, got %d: %v", len(rerr.Traceback), rerr.Traceback)
	}
	if !strings.Contains(rerr.Traceback[0], "chunk.rill:") {
		t.Fatalf("expected traceback frame to name the chunk, got %q", rerr.Traceback[0])
	}
}

func TestTracebackNestedCalls(t *testing.T) {
	heap := value.NewHeap()
	src := `
local function inner(x)
    return x + "boom"
end
local function outer(f, x)
    return f(x)
end
return outer(inner, 1)
`
	fp, err := compiler.New(src, "chunk.rill", heap).Compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	_, err = New(heap).Run(fp)
	if err == nil {
		t.Fatalf("expected a runtime error")
	}
	rerr := err.(*RuntimeError)
	if len(rerr.Traceback) != 3 {
		t.Fatalf("expected 3 traceback frames (inner, outer, chunk), got %d: %v", len(rerr.Traceback), rerr.Traceback)
	}
}

func TestWhereWithNoActiveCallIsEmpty(t *testing.T) {
	state := New(value.NewHeap())
	if got := state.Where(); got != "" {
		t.Fatalf("expected empty Where before any call, got %q", got)
	}
}
