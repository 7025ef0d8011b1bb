//go:build mage

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

// run executes the built CLI binary with the given arguments.
func run(args ...string) error {
	bin := filepath.Join(binDir, binName)
	cmd := exec.Command(bin, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w", binName, args[0], err)
	}
	return nil
}

// Harvest runs all configured database searches and writes per-database
// export files.
func Harvest() error {
	mg.Deps(Build)
	return run("harvest")
}

// Dedup merges the latest exports into the deduplicated screening set.
func Dedup() error {
	mg.Deps(Build)
	return run("dedup")
}

// Enrich fetches missing abstracts and applies the no-abstract exclusion.
func Enrich() error {
	mg.Deps(Build)
	return run("enrich")
}

// Ingest loads the dedup outputs into the SQLite screening index.
func Ingest() error {
	mg.Deps(Build)
	return run("store", "ingest")
}

// Pipeline runs harvest, dedup, enrich, and ingest in order.
func Pipeline() error {
	mg.SerialDeps(Harvest, Dedup, Enrich, Ingest)
	return nil
}
