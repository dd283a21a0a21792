package main

import (
	"fmt"
	"log/slog"

	"github.com/example/go-deepqa/internal/config"
	"github.com/example/go-deepqa/internal/dataindexer"
	"github.com/example/go-deepqa/internal/dataset"
	"github.com/example/go-deepqa/internal/tokenizer"
)

func buildTokenizer(cfg config.Config) (tokenizer.Tokenizer, error) {
	params, err := cfg.TokenizerParams()
	if err != nil {
		return nil, err
	}

	tok, err := tokenizer.New(params)
	if err != nil {
		return nil, fmt.Errorf("build tokenizer: %w", err)
	}

	return tok, nil
}

func readDataset(cfg config.Config, path string) (*dataset.TextDataset, error) {
	if path == "" {
		return nil, fmt.Errorf("--data is required")
	}

	t, err := cfg.InstanceType()
	if err != nil {
		return nil, err
	}

	ds, err := dataset.ReadFile(path, t)
	if err != nil {
		return nil, err
	}

	slog.Debug("dataset loaded", "path", path, "type", t.String(), "instances", ds.Len())

	return ds, nil
}

// loadOrFitVocab loads the vocabulary at path, or fits one on ds when path
// is empty.
func loadOrFitVocab(cfg config.Config, path string, ds *dataset.TextDataset, tok tokenizer.Tokenizer) (*dataindexer.DataIndexer, error) {
	if path != "" {
		return dataindexer.LoadFile(path)
	}

	vocab := ds.FitIndexer(tok, cfg.Data.Namespaces, cfg.Data.MinCount, cfg.Data.Workers)
	slog.Info("vocabulary fitted", "namespaces", len(vocab.Namespaces()), "min_count", cfg.Data.MinCount)

	return vocab, nil
}
