package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/example/go-deepqa/internal/dataindexer"
	"github.com/example/go-deepqa/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var vocabPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the tokenize and index HTTP server",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			if vocabPath == "" {
				return fmt.Errorf("--vocab is required")
			}

			tok, err := buildTokenizer(cfg)
			if err != nil {
				return err
			}

			vocab, err := dataindexer.LoadFile(vocabPath)
			if err != nil {
				return err
			}

			pipeline := server.NewPipeline(tok, vocab, cfg.Data.Namespaces, cfg.FixedPaddingLengths(), cfg.Truncation())

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			slog.Info("serving",
				"addr", cfg.Server.ListenAddr,
				"tokenizer", cfg.Tokenizer.Type,
				"vocab", vocabPath,
			)

			return server.New(cfg, pipeline).Start(ctx)
		},
	}

	cmd.Flags().StringVar(&vocabPath, "vocab", "", "Vocabulary JSON path (required)")

	return cmd
}
