// Package config handles rill.toml project configuration: default
// search paths, the compiled-chunk cache directory, and LSP listen
// options.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents a rill.toml project configuration.
type Config struct {
	Source Source `toml:"source"`
	Cache  Cache  `toml:"cache"`
	LSP    LSP    `toml:"lsp"`

	// Dir is the directory containing the rill.toml file (set at load time).
	Dir string `toml:"-"`
}

// Source holds the [source] table of rill.toml. rillc does not read it:
// it always takes the source file from its command line.
type Source struct {
	Dirs  []string `toml:"dirs"`
	Entry string   `toml:"entry"`
}

// Cache configures the compiled-chunk cache.
type Cache struct {
	Dir     string `toml:"dir"`
	Enabled bool   `toml:"enabled"`
}

// LSP holds the [lsp] table of rill.toml. `rillc -lsp` does not read
// it: the diagnostics server always runs over stdio.
type LSP struct {
	Stdio bool   `toml:"stdio"`
	Addr  string `toml:"addr"`
}

// Default returns the configuration used when no rill.toml is found.
func Default() *Config {
	return &Config{
		Source: Source{Dirs: []string{"."}},
		Cache:  Cache{Dir: ".rill/cache", Enabled: true},
		LSP:    LSP{Stdio: true},
	}
}

// Load parses a rill.toml file from the given directory, filling in
// defaults for anything the file leaves unset.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, "rill.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = ".rill/cache"
	}
	return c, nil
}

// FindAndLoad walks up from startDir looking for a rill.toml file, then
// loads it. It returns Default() with no error if none is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		path := filepath.Join(dir, "rill.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

// CacheDirPath returns the cache directory as an absolute path.
func (c *Config) CacheDirPath() string {
	if filepath.IsAbs(c.Cache.Dir) {
		return c.Cache.Dir
	}
	if c.Dir == "" {
		return c.Cache.Dir
	}
	return filepath.Join(c.Dir, c.Cache.Dir)
}

// SourceDirPaths returns absolute paths for the configured source
// directories.
func (c *Config) SourceDirPaths() []string {
	paths := make([]string, 0, len(c.Source.Dirs))
	for _, d := range c.Source.Dirs {
		if filepath.IsAbs(d) || c.Dir == "" {
			paths = append(paths, d)
		} else {
			paths = append(paths, filepath.Join(c.Dir, d))
		}
	}
	return paths
}
