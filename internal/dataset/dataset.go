// Package dataset reads collections of text instances, fits a vocabulary
// over them and converts them into padded integer batches.
package dataset

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/example/go-deepqa/internal/dataindexer"
	"github.com/example/go-deepqa/internal/instance"
	"github.com/example/go-deepqa/internal/tokenizer"
	"github.com/sourcegraph/conc/iter"
)

// ErrEmptyDataset is returned when a dataset has no instances.
var ErrEmptyDataset = errors.New("dataset has no instances")

const maxLineBytes = 1 << 20

// TextDataset is an ordered collection of raw instances.
type TextDataset struct {
	Instances []instance.TextInstance
}

func New(instances ...instance.TextInstance) *TextDataset {
	return &TextDataset{Instances: instances}
}

// Read parses one instance per non-blank line of r. Input without any
// instance is ErrEmptyDataset.
func Read(r io.Reader, t instance.Type) (*TextDataset, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	d := &TextDataset{}
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		inst, err := t.ReadLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		d.Instances = append(d.Instances, inst)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	if len(d.Instances) == 0 {
		return nil, ErrEmptyDataset
	}

	return d, nil
}

func ReadFile(path string, t instance.Type) (*TextDataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	d, err := Read(f, t)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return d, nil
}

func (d *TextDataset) Len() int { return len(d.Instances) }

// Counts tallies every token of every instance, keyed by the namespace its
// representation kind maps to. Tokenization runs on up to workers goroutines.
func (d *TextDataset) Counts(tok tokenizer.Tokenizer, ns instance.Namespaces, workers int) dataindexer.Counts {
	mapper := iter.Mapper[instance.TextInstance, tokenizer.Representation]{MaxGoroutines: clampWorkers(workers)}
	reps := mapper.Map(d.Instances, func(inst *instance.TextInstance) tokenizer.Representation {
		return (*inst).Words(tok)
	})

	counts := dataindexer.Counts{}
	for _, rep := range reps {
		for kind, tokens := range rep {
			namespace := ns.For(kind)
			for _, token := range tokens {
				counts.Add(namespace, token)
			}
		}
	}

	return counts
}

// FitIndexer builds a vocabulary from the dataset, keeping tokens seen at
// least minCount times.
func (d *TextDataset) FitIndexer(tok tokenizer.Tokenizer, ns instance.Namespaces, minCount, workers int) *dataindexer.DataIndexer {
	indexer := dataindexer.New()
	indexer.FitWordDictionary(d.Counts(tok, ns, workers), minCount)

	return indexer
}

// ToIndexed converts every instance with c. Every failure is joined into
// the returned error.
func (d *TextDataset) ToIndexed(ctx context.Context, c instance.Context, workers int) (*IndexedDataset, error) {
	mapper := iter.Mapper[instance.TextInstance, instance.IndexedInstance]{MaxGoroutines: clampWorkers(workers)}
	indexed, err := mapper.MapErr(d.Instances, func(inst *instance.TextInstance) (instance.IndexedInstance, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return (*inst).ToIndexedInstance(c)
	})
	if err != nil {
		return nil, fmt.Errorf("index dataset: %w", err)
	}

	return &IndexedDataset{Instances: indexed}, nil
}

func clampWorkers(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
