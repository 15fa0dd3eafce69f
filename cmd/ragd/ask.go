package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/ragd/internal/citations"
)

func newAskCmd() *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a one-shot question from the command line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			question := strings.Join(args, " ")
			svc := a.newPipeline()

			stream, err := svc.Answer(ctx, question, nil)
			if err != nil {
				return err
			}

			var answer strings.Builder
			for token := range stream.Tokens {
				fmt.Print(token)
				answer.WriteString(token)
			}
			fmt.Println()
			if err := <-stream.Errs; err != nil {
				return err
			}

			if len(stream.Sources) > 0 {
				fmt.Println("\nSources:")
				for _, s := range stream.Sources {
					fmt.Printf("  [%d] %s (%s)\n", s.Number, s.Title, s.URL)
				}
			}

			if verify {
				result := svc.VerifyCitations(answer.String(), stream.Sources)
				fmt.Printf("\nCitation accuracy: %.0f%% (%d valid, %d invalid)\n",
					result.CitationAccuracy*100,
					len(result.ValidCitations), len(result.InvalidCitations))
				if len(result.InvalidCitations) > 0 {
					for _, c := range result.InvalidCitations {
						fmt.Fprintf(os.Stderr, "  hallucinated: %s\n", c.Text)
					}
					fmt.Println("\nAnnotated answer:")
					fmt.Println(citations.Annotate(answer.String(), result))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", true, "verify citations after answering")
	return cmd
}
