package main

import (
	"fmt"

	"github.com/example/go-deepqa/internal/dataindexer"
	"github.com/example/go-deepqa/internal/doctor"
	"github.com/example/go-deepqa/internal/tokenizer"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	var (
		vocabPath string
		dataFiles []string
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the tokenizer, vocabulary and data files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			dcfg := doctor.Config{
				BuildTokenizer: func() (string, error) {
					tok, err := buildTokenizer(cfg)
					if err != nil {
						return "", err
					}
					return tok.Strategy().String(), nil
				},
				VocabPath:          vocabPath,
				LoadVocab:          vocabSizes,
				RequiredNamespaces: requiredNamespaces(cfg.Tokenizer.Type, cfg.Data.Namespaces.Words, cfg.Data.Namespaces.Characters),
				DataFiles:          dataFiles,
			}
			if cfg.Tokenizer.WordSplitter == tokenizer.SplitterSentencePiece {
				dcfg.SentencePieceModel = cfg.Tokenizer.SentencePieceModel
			}

			result := doctor.Run(dcfg, out)
			if result.Failed() {
				return fmt.Errorf("doctor found %d problem(s)", len(result.Failures()))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&vocabPath, "vocab", "", "Vocabulary JSON path to check")
	cmd.Flags().StringSliceVar(&dataFiles, "data", nil, "Dataset files to check (repeatable)")

	return cmd
}

func vocabSizes(path string) (map[string]int, error) {
	vocab, err := dataindexer.LoadFile(path)
	if err != nil {
		return nil, err
	}

	sizes := map[string]int{}
	for _, ns := range vocab.Namespaces() {
		sizes[ns] = vocab.GetVocabSize(ns)
	}
	return sizes, nil
}

// requiredNamespaces lists the vocabulary namespaces the configured tokenizer
// indexes into.
func requiredNamespaces(strategy, words, characters string) []string {
	s, err := tokenizer.ParseStrategy(strategy)
	if err != nil {
		return nil
	}
	if s.UsesWordCharacters() {
		return []string{words, characters}
	}
	return []string{words}
}
