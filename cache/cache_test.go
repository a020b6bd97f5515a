package cache

import (
	"path/filepath"
	"testing"

	"github.com/chazu/rill/compiler"
	"github.com/chazu/rill/value"
	"github.com/chazu/rill/vm"
)

func TestKeyIsStableAndContentAddressed(t *testing.T) {
	a := Key([]byte("return 1"))
	b := Key([]byte("return 1"))
	c := Key([]byte("return 2"))
	if a != b {
		t.Errorf("Key not stable: %q != %q", a, b)
	}
	if a == c {
		t.Errorf("distinct sources hashed to the same key: %q", a)
	}
}

func TestStoreLoadRoundTrip(t *testing.T) {
	src := `
local function add(a, b)
  return a + b
end
return add(3, 4)
`
	heap := value.NewHeap()
	fp, err := compiler.New(src, "test", heap).Compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	dir := t.TempDir()
	key := Key([]byte(src))
	if err := Store(dir, key, fp); err != nil {
		t.Fatalf("Store: %v", err)
	}

	loadHeap := value.NewHeap()
	loaded, ok, err := Load(dir, key, loadHeap)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !ok {
		t.Fatalf("expected cache hit")
	}

	result, err := vm.New(loadHeap).Run(loaded)
	if err != nil {
		t.Fatalf("run loaded chunk: %v", err)
	}
	if result.Float64() != 7 {
		t.Fatalf("result = %v, want 7", result.Float64())
	}
}

func TestLoadMissingIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	heap := value.NewHeap()
	_, ok, err := Load(dir, "does-not-exist", heap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected cache miss")
	}
}

func TestStoreCreatesCacheDir(t *testing.T) {
	heap := value.NewHeap()
	fp, err := compiler.New("return 1", "test", heap).Compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	if err := Store(dir, "k", fp); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, ok, err := Load(dir, "k", value.NewHeap()); err != nil || !ok {
		t.Fatalf("Load after Store = ok=%v err=%v", ok, err)
	}
}
