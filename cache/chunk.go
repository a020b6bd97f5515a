// Package cache implements the compiled-chunk cache: a content-addressed
// on-disk store of compiled FunctionProto trees, so rillc can skip
// recompiling a source file whose bytes haven't changed. Uses CBOR for
// serialization and zstd for compression rather than a hand-written
// binary format.
package cache

import "github.com/chazu/rill/value"

// wireValue is the portable form of a value.Value that can appear in a
// FunctionProto's constant pool: a number, a string, or a nested
// function prototype. Everything else (nil/true/false) never appears in
// K, since those are loaded with KPRIM instead of KNUM/KSTR/KFN.
type wireValue struct {
	Kind wireKind   `cbor:"kind"`
	Num  float64    `cbor:"num,omitempty"`
	Str  []byte     `cbor:"str,omitempty"`
	Func *wireProto `cbor:"func,omitempty"`
}

type wireKind uint8

const (
	wireNum wireKind = iota
	wireStr
	wireFunc
)

// wireProto is the portable form of a *value.FunctionProto.
type wireProto struct {
	Name      string      `cbor:"name"`
	ChunkName string      `cbor:"chunk_name"`
	StartLine int         `cbor:"start_line"`
	EndLine   int         `cbor:"end_line"`
	NumParams int         `cbor:"num_params"`
	Ins       []uint32    `cbor:"ins"`
	LineInfo  []int32     `cbor:"line_info"`
	K         []wireValue `cbor:"k"`
}

// encodeProto converts a live FunctionProto tree into its portable form.
func encodeProto(fp *value.FunctionProto) *wireProto {
	w := &wireProto{
		Name:      fp.Name,
		ChunkName: fp.ChunkName,
		StartLine: fp.StartLine,
		EndLine:   fp.EndLine,
		NumParams: fp.NumParams,
		Ins:       append([]uint32(nil), fp.Ins...),
		LineInfo:  make([]int32, len(fp.LineInfo)),
		K:         make([]wireValue, len(fp.K)),
	}
	for i, l := range fp.LineInfo {
		w.LineInfo[i] = int32(l)
	}
	for i, k := range fp.K {
		w.K[i] = encodeValue(k)
	}
	return w
}

func encodeValue(v value.Value) wireValue {
	switch {
	case v.IsFloat():
		return wireValue{Kind: wireNum, Num: v.Float64()}
	case v.IsPtr() && v.ObjectKind() == value.KindString:
		return wireValue{Kind: wireStr, Str: v.AsString().Bytes}
	case v.IsPtr() && v.ObjectKind() == value.KindFunctionProto:
		return wireValue{Kind: wireFunc, Func: encodeProto(v.AsFunctionProto())}
	default:
		panic("cache: unexpected constant pool value")
	}
}

// decodeProto rebuilds a FunctionProto tree rooted on heap from its
// portable form.
func decodeProto(heap *value.Heap, w *wireProto) *value.FunctionProto {
	fp := heap.NewFunctionProto(w.ChunkName, w.StartLine)
	fp.Name = w.Name
	fp.EndLine = w.EndLine
	fp.NumParams = w.NumParams
	fp.Ins = append([]uint32(nil), w.Ins...)
	fp.LineInfo = make([]value.SourceLine, len(w.LineInfo))
	for i, l := range w.LineInfo {
		fp.LineInfo[i] = value.SourceLine(l)
	}
	fp.K = make([]value.Value, len(w.K))
	for i, k := range w.K {
		fp.K[i] = decodeValue(heap, k)
	}
	return fp
}

func decodeValue(heap *value.Heap, w wireValue) value.Value {
	switch w.Kind {
	case wireNum:
		return value.FromFloat64(w.Num)
	case wireStr:
		return heap.NewString(w.Str)
	case wireFunc:
		return decodeProto(heap, w.Func).Value()
	default:
		panic("cache: unknown wire constant kind")
	}
}
