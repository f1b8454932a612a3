// Command gen_golden regenerates testdata/*.out golden files by running the
// sl CLI against every testdata/*.scr script and capturing its output.
//
// It follows the same context.WithTimeout bound run that shells out via
// exec.CommandContext, fanned out with errgroup.Group: every .scr file
// here is independent and writes its own .out file, so there is no
// ordered stdin/stdout pipe to preserve.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/net/context"
	"golang.org/x/sync/errgroup"
)

func main() {
	dir := flag.String("dir", "testdata", "directory of .scr scripts to regenerate .out files for")
	timeout := flag.Duration("timeout", 5*time.Second, "overall run timeout")
	flag.Parse()

	scripts, err := filepath.Glob(filepath.Join(*dir, "*.scr"))
	if err != nil {
		log.Fatalf("glob %s: %v", *dir, err)
	}
	if len(scripts) == 0 {
		log.Fatalf("no scripts found under %s", *dir)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	eg, ctx := errgroup.WithContext(ctx)
	for _, path := range scripts {
		path := path
		eg.Go(func() error {
			return regenerate(ctx, path)
		})
	}

	if err := eg.Wait(); err != nil {
		log.Fatalln(err)
	}
}

func regenerate(ctx context.Context, scrPath string) error {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, "go", "run", ".", scrPath)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running %s: %w: %s", scrPath, err, stderr.String())
	}

	outPath := strings.TrimSuffix(scrPath, filepath.Ext(scrPath)) + ".out"
	if err := ioutil.WriteFile(outPath, stdout.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	return nil
}
