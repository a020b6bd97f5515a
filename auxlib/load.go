package auxlib

import (
	"github.com/chazu/rill/compiler"
	"github.com/chazu/rill/reader"
	"github.com/chazu/rill/value"
	"github.com/chazu/rill/vm"
)

// Load compiles chunk against heap, playing the role of the embedding
// API's `load`: on success it returns the function prototype and
// StatusOK; on failure it returns the compiler's error message and
// StatusSyntaxErr. Grounded on the original's luaL_loadfile, which
// wraps lua_load with a file-backed reader.
func Load(heap *value.Heap, chunk reader.Chunk) (*value.FunctionProto, Status, error) {
	fp, err := compiler.New(chunk.Source, chunk.Name, heap).Compile()
	if err != nil {
		return nil, StatusSyntaxErr, err
	}
	return fp, StatusOK, nil
}

// LoadFile reads path and loads it as a chunk, distinguishing a failure
// to open or read the file (returned directly with StatusOK, no status
// code produced) from a syntax error in its contents (StatusSyntaxErr),
// per the LUA_ERRFILE-equivalent status resolution in DESIGN.md.
func LoadFile(heap *value.Heap, path string) (*value.FunctionProto, Status, error) {
	chunk, err := reader.File(path)
	if err != nil {
		return nil, StatusOK, err
	}
	return Load(heap, chunk)
}

// DoString compiles and runs src in one step, the auxiliary library's
// usual shortcut over the raw load/call pair.
func DoString(heap *value.Heap, chunkName, src string) (value.Value, Status, error) {
	fp, status, err := Load(heap, reader.String(chunkName, src))
	if err != nil {
		return value.Nil, status, err
	}
	result, err := vm.New(heap).Run(fp)
	if err != nil {
		return value.Nil, StatusRunErr, err
	}
	return result, StatusOK, nil
}

// DoFile is DoString's file-backed counterpart.
func DoFile(heap *value.Heap, path string) (value.Value, Status, error) {
	fp, status, err := LoadFile(heap, path)
	if err != nil {
		return value.Nil, status, err
	}
	result, err := vm.New(heap).Run(fp)
	if err != nil {
		return value.Nil, StatusRunErr, err
	}
	return result, StatusOK, nil
}
