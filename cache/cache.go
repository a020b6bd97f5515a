package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/chazu/rill/value"
)

// Key derives the cache key for a source chunk: its content hash. Two
// byte-identical sources always hash to the same key regardless of
// their chunk name, so renaming a file without touching it is still a
// cache hit.
func Key(source []byte) string {
	sum := sha256.Sum256(source)
	return hex.EncodeToString(sum[:])
}

// Store serializes fp's tree to CBOR, compresses it with zstd, and
// writes it under dir named by key.
func Store(dir, key string, fp *value.FunctionProto) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cache: create %s: %w", dir, err)
	}
	raw, err := cbor.Marshal(encodeProto(fp))
	if err != nil {
		return fmt.Errorf("cache: encode: %w", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return fmt.Errorf("cache: new compressor: %w", err)
	}
	defer enc.Close()
	compressed := enc.EncodeAll(raw, nil)

	path := filepath.Join(dir, key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, compressed, 0o644); err != nil {
		return fmt.Errorf("cache: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("cache: rename %s: %w", tmp, err)
	}
	return nil
}

// Load reads the cache entry for key under dir, decompresses and
// decodes it, and rebuilds its FunctionProto tree rooted on heap. It
// returns ok=false (with a nil error) when the entry is simply absent.
func Load(dir, key string, heap *value.Heap) (fp *value.FunctionProto, ok bool, err error) {
	path := filepath.Join(dir, key)
	compressed, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache: read %s: %w", path, err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, false, fmt.Errorf("cache: new decompressor: %w", err)
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, false, fmt.Errorf("cache: decompress %s: %w", path, err)
	}

	var w wireProto
	if err := cbor.Unmarshal(raw, &w); err != nil {
		return nil, false, fmt.Errorf("cache: decode %s: %w", path, err)
	}
	return decodeProto(heap, &w), true, nil
}
