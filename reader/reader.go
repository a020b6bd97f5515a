// Package reader supplies chunk sources to the compiler: a named string
// of source text, or a file read in full before compilation begins.
package reader

import "os"

// Chunk is a named block of source text together with the name that
// should be attributed to it in error messages and stack traces.
type Chunk struct {
	Name   string
	Source string
}

// String wraps src as a chunk named name.
func String(name, src string) Chunk {
	return Chunk{Name: name, Source: src}
}

// File reads path in full and names the resulting chunk "@path", the
// convention error messages use to distinguish a file source from an
// inline string.
func File(path string) (Chunk, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Chunk{}, err
	}
	return Chunk{Name: "@" + path, Source: string(b)}, nil
}
