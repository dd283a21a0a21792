package main

import (
	"fmt"
	"log/slog"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/example/go-deepqa/internal/dataset"
	"github.com/example/go-deepqa/internal/instance"
	"github.com/spf13/cobra"
)

func newIndexCmd() *cobra.Command {
	var dataPath, vocabPath, saveVocabPath, outPath string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index and pad a dataset into a .safetensors batch",
		Long: "Read a dataset, index it against a vocabulary (fitted on the dataset when --vocab " +
			"is not given), pad every instance to common lengths and write the arrays as int32 tensors.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			if outPath == "" {
				return fmt.Errorf("--out is required")
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
			if saveVocabPath != "" {
				if err := vocab.SaveFile(saveVocabPath); err != nil {
					return err
				}
			}

			start := time.Now()
			indexed, err := ds.ToIndexed(cmd.Context(), instance.Context{
				Tokenizer:  tok,
				Vocabulary: vocab,
				Namespaces: cfg.Data.Namespaces,
			}, cfg.Data.Workers)
			if err != nil {
				return err
			}

			batch, err := indexed.Pad(cfg.FixedPaddingLengths(), cfg.Truncation(), cfg.Data.Workers)
			if err != nil {
				return err
			}

			if err := batch.WriteFile(outPath); err != nil {
				return err
			}

			slog.Info("batch written",
				"path", outPath,
				"instances", batch.Size,
				"duration_ms", time.Since(start).Milliseconds(),
			)

			return printBatchSummary(cmd, batch)
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "Dataset file, one instance per line (required)")
	cmd.Flags().StringVar(&vocabPath, "vocab", "", "Vocabulary JSON path (default: fit on --data)")
	cmd.Flags().StringVar(&saveVocabPath, "save-vocab", "", "Also write the vocabulary used to this path")
	cmd.Flags().StringVar(&outPath, "out", "", "Output .safetensors path (required)")

	return cmd
}

func printBatchSummary(cmd *cobra.Command, batch *dataset.Batch) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

	keys := make([]string, 0, len(batch.Lengths))
	for k := range batch.Lengths {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(w, "batch_size\t%d\n", batch.Size)
	for _, k := range keys {
		fmt.Fprintf(w, "%s\t%d\n", k, batch.Lengths[k])
	}

	tensors, err := batch.Tensors()
	if err != nil {
		return err
	}
	for _, t := range tensors {
		fmt.Fprintf(w, "tensor %s\t%v\n", t.Name, t.Shape)
	}

	return w.Flush()
}
