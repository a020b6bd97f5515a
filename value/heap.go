package value

import "sync"

// Heap roots heap objects that are only reachable through a NaN-boxed
// Value. Go's garbage collector cannot trace a pointer hidden inside a
// uint64, so every object handed out as a Value must also be kept alive
// here for as long as the owning state is open. This mirrors the
// reference VM's keepAlive/cellRegistry pattern: a plain map keyed by the
// object's address, scoped to one interpreter state rather than global.
type Heap struct {
	mu    sync.Mutex
	alive map[uintptr]any
}

// NewHeap creates an empty object heap.
func NewHeap() *Heap {
	return &Heap{alive: make(map[uintptr]any)}
}

// NewString allocates and roots a new String object holding a copy of b.
func (h *Heap) NewString(b []byte) Value {
	cp := make([]byte, len(b))
	copy(cp, b)
	s := &String{header: header{Kind: KindString}, Bytes: cp}
	return h.root(s)
}

// NewFunctionProto allocates and roots a new, empty FunctionProto for the
// given chunk and start line. The caller appends Ins/LineInfo/K while the
// function scope is open.
func (h *Heap) NewFunctionProto(chunkName string, startLine int) *FunctionProto {
	fp := &FunctionProto{
		header:    header{Kind: KindFunctionProto},
		ChunkName: chunkName,
		StartLine: startLine,
	}
	h.root(fp)
	return fp
}

// Value boxes an already-rooted FunctionProto as a Value.
func (fp *FunctionProto) Value() Value { return FromObjectPtr(fp) }

func (h *Heap) root(o any) Value {
	v := FromObjectPtr(o)
	h.mu.Lock()
	h.alive[uintptr(v.ObjectPtr())] = o
	h.mu.Unlock()
	return v
}

// Count returns the number of objects currently rooted, for diagnostics.
func (h *Heap) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.alive)
}
