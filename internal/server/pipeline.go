package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/go-deepqa/internal/dataindexer"
	"github.com/example/go-deepqa/internal/dataset"
	"github.com/example/go-deepqa/internal/instance"
	"github.com/example/go-deepqa/internal/tokenizer"
)

// ErrNoTexts is returned when an index request carries no text.
var ErrNoTexts = errors.New("no texts to index")

// IndexResult is the tokenization and padded arrays for a batch of texts.
type IndexResult struct {
	Tokens []tokenizer.Representation
	Batch  *dataset.Batch
}

// Pipeline tokenizes, indexes and pads free text against a fixed
// vocabulary. It is safe for concurrent use.
type Pipeline struct {
	context    instance.Context
	vocab      *dataindexer.DataIndexer
	fixed      instance.PaddingLengths
	truncation instance.Truncation
}

func NewPipeline(
	tok tokenizer.Tokenizer,
	vocab *dataindexer.DataIndexer,
	namespaces instance.Namespaces,
	fixed instance.PaddingLengths,
	truncation instance.Truncation,
) *Pipeline {
	return &Pipeline{
		context:    instance.Context{Tokenizer: tok, Vocabulary: vocab, Namespaces: namespaces},
		vocab:      vocab,
		fixed:      fixed,
		truncation: truncation,
	}
}

func (p *Pipeline) Tokenize(text string) tokenizer.Representation {
	return p.context.Tokenizer.Tokenize(text)
}

// Index treats every text as an unlabeled text classification instance and
// pads them together.
func (p *Pipeline) Index(ctx context.Context, texts []string) (*IndexResult, error) {
	if len(texts) == 0 {
		return nil, ErrNoTexts
	}

	instances := make([]instance.TextInstance, len(texts))
	tokens := make([]tokenizer.Representation, len(texts))
	for i, text := range texts {
		inst := instance.NewTextClassificationInstance(text, nil)
		instances[i] = inst
		tokens[i] = inst.Words(p.context.Tokenizer)
	}

	indexed, err := dataset.New(instances...).ToIndexed(ctx, p.context, 1)
	if err != nil {
		return nil, err
	}

	batch, err := indexed.Pad(p.fixed, p.truncation, 1)
	if err != nil {
		return nil, fmt.Errorf("pad: %w", err)
	}

	return &IndexResult{Tokens: tokens, Batch: batch}, nil
}

// VocabSizes returns the size of every namespace, reserved entries included.
func (p *Pipeline) VocabSizes() map[string]int {
	sizes := map[string]int{}
	for _, ns := range p.vocab.Namespaces() {
		sizes[ns] = p.vocab.GetVocabSize(ns)
	}

	return sizes
}
