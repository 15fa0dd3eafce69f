package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/ragd/internal/chunker"
	"github.com/fyrsmithlabs/ragd/internal/ingest"
)

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Index crawled documents into the vector store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			ch := chunker.New(chunker.Config{
				ParentSize:    a.cfg.Chunking.ParentSize,
				ParentOverlap: a.cfg.Chunking.ParentOverlap,
				ChildSize:     a.cfg.Chunking.ChildSize,
				ChildOverlap:  a.cfg.Chunking.ChildOverlap,
				MinWords:      a.cfg.Chunking.MinWords,
			})

			ingestor := ingest.New(a.docs, ch, a.dense, a.sparse, a.store, a.logger)
			stats, err := ingestor.Run(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("Indexed %d documents (%d chunks, %d low quality, %d failed)\n",
				stats.Documents, stats.Chunks, stats.LowQuality, stats.Failed)
			return nil
		},
	}
}
