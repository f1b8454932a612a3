// Command sl compiles and runs scripts.
//
// Each command-line argument names a source file; files run in order,
// sharing a single Heap and a single global Struct, so a later script can
// see the globals an earlier one set. A bare "-" reads a script from
// stdin.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"github.com/sl-lang/sl/internal/flushio"
	"github.com/sl-lang/sl/internal/logio"
)

func main() {
	var (
		heapLimit uint
		timeout   time.Duration
		trace     bool
		dump      bool
	)
	flag.UintVar(&heapLimit, "heap-limit", 0, "bound the number of objects the shared heap may allocate across all scripts")
	flag.DurationVar(&timeout, "timeout", 0, "abort the run once this duration has passed, across all scripts")
	flag.BoolVar(&trace, "trace", false, "log every executed op to stderr")
	flag.BoolVar(&dump, "dump", false, "print a heap dump after all scripts have run")
	flag.Parse()

	log := logio.Logger{}
	log.SetOutput(os.Stderr)
	defer func() { os.Exit(log.ExitCode()) }()

	ctx := context.Background()
	if timeout != 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	heap := NewHeap(heapLimit)
	global := structValue(heap.NewStruct())
	thread := heap.NewThread(global)

	out := flushio.NewWriteFlusher(os.Stdout)
	thread.SetOutput(out)
	if trace {
		thread.SetTrace(log.Leveledf("TRACE"))
	}

	if flag.NArg() == 0 {
		log.Errorf("no script given")
		return
	}

	for _, path := range flag.Args() {
		if ctx.Err() != nil {
			log.ErrorIf(ctx.Err())
			break
		}
		if err := runFile(ctx, thread, path); err != nil {
			log.ErrorIf(err)
		}
		if ferr := thread.Flush(); ferr != nil {
			log.ErrorIf(ferr)
		}
	}

	if dump {
		lw := &logio.Writer{Logf: log.Leveledf("DUMP")}
		defer lw.Close()
		dumpHeap(heap, lw)
	}
}

// runFile reads, compiles, and runs a single script, naming it by path in
// any diagnostic the Compiler or Thread produces. A path of "-" reads the
// script from stdin instead of the filesystem.
func runFile(ctx context.Context, thread *Thread, path string) error {
	src, err := readSource(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	fn, err := Compile(thread.heap, path, src)
	if err != nil {
		return err
	}

	_, err = thread.Call(ctx, fn)
	return err
}

func readSource(path string) ([]byte, error) {
	if path == "-" {
		return ioutil.ReadAll(os.Stdin)
	}
	return ioutil.ReadFile(path)
}
