// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Command scholar-graph runs the SMJ corpus extraction pipeline and its
// post-hoc graph passes. Implements: prd006-pipeline (R5);
//
//	docs/ARCHITECTURE § CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes. Partial failure means the pipeline ran to completion but
// some papers failed.
const (
	exitOK             = 0
	exitConfigError    = 1
	exitPartialFailure = 2
	exitCancelled      = 130
)

var (
	errPartialFailure = errors.New("some papers failed")
	errCancelled      = errors.New("cancelled")
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		switch {
		case errors.Is(err, errCancelled):
			os.Exit(exitCancelled)
		case errors.Is(err, errPartialFailure):
			os.Exit(exitPartialFailure)
		default:
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(exitConfigError)
		}
	}
	os.Exit(exitOK)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "scholar-graph",
		Short:         "Extract scholarly entities from the SMJ PDF corpus into a knowledge graph",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "path to a YAML config file")
	root.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	root.PersistentFlags().String("secrets-dir", ".secrets", "directory of secret files")

	root.AddCommand(
		newPipelineCmd(),
		newRelationshipsCmd(),
		newEmbeddingsCmd(),
		newVersionCmd(),
	)
	return root
}
