// Command rillc is the language's entry point: it compiles and runs
// chunks from the command line, or starts the LSP or debug server.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/chazu/rill/auxlib"
	"github.com/chazu/rill/cache"
	"github.com/chazu/rill/config"
	"github.com/chazu/rill/debugserver"
	"github.com/chazu/rill/lsp"
	"github.com/chazu/rill/reader"
	"github.com/chazu/rill/value"
	"github.com/chazu/rill/vm"
)

func main() {
	verbose := flag.Bool("v", false, "verbose output")
	noCache := flag.Bool("no-cache", false, "skip the compiled-chunk cache")
	lspMode := flag.Bool("lsp", false, "start the LSP diagnostics server on stdio")
	debugAddr := flag.String("debug", "", "start the debug server on this address (e.g. :7777) instead of running a file")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: rillc [options] <file>\n\n")
		fmt.Fprintf(os.Stderr, "Compiles and runs a chunk, printing its return value.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  rillc script.rill        # run script.rill\n")
		fmt.Fprintf(os.Stderr, "  rillc -v script.rill     # run with cache/timing diagnostics\n")
		fmt.Fprintf(os.Stderr, "  rillc -lsp               # serve diagnostics to an editor over stdio\n")
		fmt.Fprintf(os.Stderr, "  rillc -debug :7777       # serve the step debugger over websockets\n")
	}
	flag.Parse()

	cfg, err := config.FindAndLoad(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "rillc: loading rill.toml: %v\n", err)
		os.Exit(int(auxlib.StatusErrErr))
	}

	if *lspMode {
		if err := lsp.New().RunStdio(); err != nil {
			fmt.Fprintf(os.Stderr, "rillc: lsp: %v\n", err)
			os.Exit(int(auxlib.StatusErrErr))
		}
		return
	}

	if *debugAddr != "" {
		runDebugServer(*debugAddr, *verbose)
		return
	}

	args := flag.Args()
	if len(args) != 1 {
		flag.Usage()
		os.Exit(int(auxlib.StatusErrErr))
	}

	os.Exit(int(run(args[0], cfg, *verbose, *noCache)))
}

func runDebugServer(addr string, verbose bool) {
	heap := value.NewHeap()
	http.HandleFunc("/debug", debugserver.Handler(heap))
	if verbose {
		fmt.Printf("rillc: debug server listening on %s\n", addr)
	}
	if err := http.ListenAndServe(addr, nil); err != nil {
		fmt.Fprintf(os.Stderr, "rillc: debug server: %v\n", err)
		os.Exit(int(auxlib.StatusErrErr))
	}
}

// run loads path (via the cache when enabled), executes it, and prints
// its result. It returns the embedding-API status code to exit with.
func run(path string, cfg *config.Config, verbose, noCache bool) auxlib.Status {
	started := time.Now()
	heap := value.NewHeap()

	chunk, err := reader.File(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rillc: %v\n", err)
		return auxlib.StatusErrErr
	}

	useCache := cfg.Cache.Enabled && !noCache
	key := cache.Key([]byte(chunk.Source))

	var fp *value.FunctionProto
	cacheHit := false
	if useCache {
		if cached, ok, err := cache.Load(cfg.CacheDirPath(), key, heap); err == nil && ok {
			fp, cacheHit = cached, true
		}
	}

	if fp == nil {
		var status auxlib.Status
		fp, status, err = auxlib.Load(heap, chunk)
		if err != nil {
			fmt.Fprintf(os.Stderr, "rillc: %v\n", err)
			return status
		}
		if useCache {
			if err := cache.Store(cfg.CacheDirPath(), key, fp); err != nil && verbose {
				fmt.Fprintf(os.Stderr, "rillc: cache: %v\n", err)
			}
		}
	}

	if verbose {
		fmt.Printf("rillc: loaded %s (%s) in %s, cache %s\n",
			path, humanize.Bytes(uint64(len(chunk.Source))), time.Since(started), cacheStatus(cacheHit))
	}

	state := vm.New(heap)
	if verbose {
		state.Trace = func(step vm.Step) {
			fmt.Fprintf(os.Stderr, "  %s:%d pc=%d %s\n", step.ChunkName, step.Line, step.PC, step.Op)
		}
	}

	result, err := state.Run(fp)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rillc: %s\n", err.Error())
		if rerr, ok := err.(*vm.RuntimeError); ok {
			for _, line := range rerr.Traceback {
				fmt.Fprintln(os.Stderr, line)
			}
		}
		return auxlib.StatusRunErr
	}

	fmt.Println(formatValue(result))
	return auxlib.StatusOK
}

func cacheStatus(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

func formatValue(v value.Value) string {
	switch {
	case v.IsNil():
		return "nil"
	case v.IsTrue():
		return "true"
	case v.IsFalse():
		return "false"
	case v.IsFloat():
		return trimFloat(v.Float64())
	case v.IsPtr() && v.ObjectKind() == value.KindString:
		return v.AsString().String()
	case v.IsPtr() && v.ObjectKind() == value.KindFunctionProto:
		return "function"
	default:
		return v.TypeName()
	}
}

func trimFloat(f float64) string {
	return fmt.Sprintf("%g", f)
}
