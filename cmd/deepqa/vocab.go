package main

import (
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/example/go-deepqa/internal/dataindexer"
	"github.com/spf13/cobra"
)

func newVocabCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "Build and inspect vocabularies",
	}

	cmd.AddCommand(newVocabBuildCmd())
	cmd.AddCommand(newVocabShowCmd())

	return cmd
}

func newVocabBuildCmd() *cobra.Command {
	var dataPath, outPath string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Fit a vocabulary on a dataset and write it as JSON",
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

			vocab := ds.FitIndexer(tok, cfg.Data.Namespaces, cfg.Data.MinCount, cfg.Data.Workers)
			if err := vocab.SaveFile(outPath); err != nil {
				return err
			}

			slog.Info("vocabulary written",
				"path", outPath,
				"instances", ds.Len(),
				"min_count", cfg.Data.MinCount,
			)

			return printVocabSizes(cmd, vocab)
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "Dataset file, one instance per line (required)")
	cmd.Flags().StringVar(&outPath, "out", "", "Output vocabulary JSON path (required)")

	return cmd
}

func newVocabShowCmd() *cobra.Command {
	var (
		vocabPath string
		namespace string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print namespace sizes, or the words of one namespace",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if vocabPath == "" {
				return fmt.Errorf("--vocab is required")
			}

			vocab, err := dataindexer.LoadFile(vocabPath)
			if err != nil {
				return err
			}

			if namespace == "" {
				return printVocabSizes(cmd, vocab)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, word := range vocab.WordsInIndex(namespace) {
				fmt.Fprintf(w, "%d\t%q\n", vocab.GetWordIndex(word, namespace), word)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&vocabPath, "vocab", "", "Vocabulary JSON path (required)")
	cmd.Flags().StringVar(&namespace, "namespace", "", "List the words of this namespace")

	return cmd
}

func printVocabSizes(cmd *cobra.Command, vocab *dataindexer.DataIndexer) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAMESPACE\tSIZE")
	for _, ns := range vocab.Namespaces() {
		fmt.Fprintf(w, "%s\t%d\n", ns, vocab.GetVocabSize(ns))
	}
	return w.Flush()
}
