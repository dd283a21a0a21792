package config

import (
	"fmt"

	"github.com/example/go-deepqa/internal/instance"
	"github.com/example/go-deepqa/internal/tokenizer"
)

// NormalizeTokenizer resolves a tokenizer strategy name. Empty selects words.
func NormalizeTokenizer(raw string) (tokenizer.Strategy, error) {
	s, err := tokenizer.ParseStrategy(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid tokenizer: %w", err)
	}

	return s, nil
}

// NormalizeInstanceType resolves a dataset line format name. Empty selects
// text_classification.
func NormalizeInstanceType(raw string) (instance.Type, error) {
	t, err := instance.ParseType(raw)
	if err != nil {
		return 0, fmt.Errorf(
			"invalid instance type %q (expected text_classification|verb_semantics): %w",
			raw,
			err,
		)
	}

	return t, nil
}

// TokenizerParams converts the tokenizer section. Component names are
// checked when the tokenizer is built.
func (c Config) TokenizerParams() (tokenizer.Params, error) {
	s, err := NormalizeTokenizer(c.Tokenizer.Type)
	if err != nil {
		return tokenizer.Params{}, err
	}

	return tokenizer.Params{
		Strategy:           s,
		WordSplitter:       c.Tokenizer.WordSplitter,
		WordFilter:         c.Tokenizer.WordFilter,
		WordStemmer:        c.Tokenizer.WordStemmer,
		SentencePieceModel: c.Tokenizer.SentencePieceModel,
	}, nil
}

func (c Config) InstanceType() (instance.Type, error) {
	return NormalizeInstanceType(c.Data.InstanceType)
}

// FixedPaddingLengths returns the configured padding lengths. Zero values
// leave the dataset's inferred lengths in place.
func (c Config) FixedPaddingLengths() instance.PaddingLengths {
	return instance.PaddingLengths{
		instance.KeySentenceWords:  c.Data.NumSentenceWords,
		instance.KeyWordCharacters: c.Data.NumWordCharacters,
	}
}

func (c Config) Truncation() instance.Truncation {
	if c.Data.Truncate {
		return instance.TruncateFront
	}

	return instance.TruncateReject
}
