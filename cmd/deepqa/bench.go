package main

import (
	"context"
	"fmt"

	"github.com/example/go-deepqa/internal/bench"
	"github.com/example/go-deepqa/internal/instance"
	"github.com/spf13/cobra"
)

func newBenchCmd() *cobra.Command {
	var (
		dataPath      string
		vocabPath     string
		runs          int
		format        string
		minThroughput float64
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark dataset indexing and padding throughput",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if runs < 1 {
				return fmt.Errorf("--runs must be at least 1")
			}
			if format != "table" && format != "json" {
				return fmt.Errorf("--format must be 'table' or 'json'")
			}

			tok, err := buildTokenizer(cfg)
			if err != nil {
				return err
			}

			ds, err := readDataset(cfg, dataPath)
			if err != nil {
				return err
			}

			vocab, err := loadOrFitVocab(cfg, vocabPath, ds, tok)
			if err != nil {
				return err
			}

			ictx := instance.Context{Tokenizer: tok, Vocabulary: vocab, Namespaces: cfg.Data.Namespaces}

			results, err := bench.Run(cmd.Context(), runs, func(ctx context.Context) (int, error) {
				indexed, err := ds.ToIndexed(ctx, ictx, cfg.Data.Workers)
				if err != nil {
					return 0, err
				}
				batch, err := indexed.Pad(cfg.FixedPaddingLengths(), cfg.Truncation(), cfg.Data.Workers)
				if err != nil {
					return 0, err
				}
				return batch.Size, nil
			})
			if err != nil {
				return err
			}

			stats := bench.ComputeStats(bench.Durations(results))

			switch format {
			case "json":
				bench.FormatJSON(results, stats, cmd.OutOrStdout())
			default:
				bench.FormatTable(results, stats, cmd.OutOrStdout())
			}

			return bench.CheckThroughputThreshold(bench.MeanThroughput(results), minThroughput)
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "Dataset file to index on each run (required)")
	cmd.Flags().StringVar(&vocabPath, "vocab", "", "Vocabulary JSON path (default: fit on --data)")
	cmd.Flags().IntVar(&runs, "runs", 5, "Number of index-and-pad runs")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table|json")
	cmd.Flags().Float64Var(&minThroughput, "min-throughput", 0, "Exit non-zero if mean instances/s is below this value (0 = disabled)")

	return cmd
}
