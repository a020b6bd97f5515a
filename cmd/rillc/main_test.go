package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/rill/config"
	"github.com/chazu/rill/value"
)

func writeScript(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "script.rill")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestRunPrintsResultAndCachesOnSecondRun(t *testing.T) {
	path := writeScript(t, "local a = 1\nreturn a + 41")
	cfg := config.Default()
	cfg.Dir = filepath.Dir(path)
	cfg.Cache.Dir = filepath.Join(t.TempDir(), "cache")

	if status := run(path, cfg, false, false); status != 0 {
		t.Fatalf("expected StatusOK, got %v", status)
	}
	if status := run(path, cfg, false, false); status != 0 {
		t.Fatalf("expected StatusOK on cached run, got %v", status)
	}

	entries, err := os.ReadDir(cfg.CacheDirPath())
	if err != nil {
		t.Fatalf("cache dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one cache entry, got %d", len(entries))
	}
}

func TestRunSurfacesRuntimeError(t *testing.T) {
	path := writeScript(t, `return "x" + 1`)
	cfg := config.Default()
	cfg.Dir = filepath.Dir(path)
	cfg.Cache.Enabled = false

	if status := run(path, cfg, false, true); status != 2 {
		t.Fatalf("expected StatusRunErr (2), got %v", status)
	}
}

func TestRunSurfacesSyntaxError(t *testing.T) {
	path := writeScript(t, "local = 1")
	cfg := config.Default()
	cfg.Dir = filepath.Dir(path)
	cfg.Cache.Enabled = false

	if status := run(path, cfg, false, true); status != 3 {
		t.Fatalf("expected StatusSyntaxErr (3), got %v", status)
	}
}

func TestFormatValue(t *testing.T) {
	heap := value.NewHeap()
	cases := []struct {
		v    value.Value
		want string
	}{
		{value.Nil, "nil"},
		{value.True, "true"},
		{value.False, "false"},
		{value.FromFloat64(3.5), "3.5"},
		{heap.NewString([]byte("hi")), "hi"},
	}
	for _, c := range cases {
		if got := formatValue(c.v); got != c.want {
			t.Errorf("formatValue(%v) = %q, want %q", c.v, got, c.want)
		}
	}
}
