// Ragd answers questions over crawled documentation, grounding every answer
// in retrieved source passages with verifiable citations.
//
// Usage:
//
//	ragd serve              Start the HTTP API
//	ragd ingest             Index crawled documents into the vector store
//	ragd ask "question"     One-shot question from the command line
//	ragd version            Show version information
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	root := &cobra.Command{
		Use:           "ragd",
		Short:         "Retrieval-augmented answers over crawled documentation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")

	root.AddCommand(newServeCmd())
	root.AddCommand(newIngestCmd())
	root.AddCommand(newAskCmd())
	root.AddCommand(newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Printf("ragd %s\n  commit: %s\n  built:  %s\n", version, gitCommit, buildDate)
		},
	}
}
