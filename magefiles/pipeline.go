//go:build mage

package main

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

// runBinary executes the built CLI with the given arguments.
func runBinary(args ...string) error {
	cmd := exec.Command(filepath.Join(binDir, binName), args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	return cmd.Run()
}

// Pipeline runs the extraction pipeline over the corpus/ directory.
// See prd006-pipeline for full requirements.
func Pipeline() error {
	mg.Deps(Build)
	return runBinary("pipeline", "corpus")
}

// Relationships derives inter-paper edges from the ingested graph.
// See prd005-ingestion R4 for full requirements.
func Relationships() error {
	mg.Deps(Build)
	return runBinary("compute-relationships")
}

// Embeddings backfills embedding vectors onto graph nodes.
// See prd007-embeddings for full requirements.
func Embeddings() error {
	mg.Deps(Build)
	return runBinary("generate-embeddings")
}
