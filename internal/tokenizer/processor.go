package tokenizer

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// WordProcessor lowercases text, splits it into word tokens, then filters and
// stems them.
type WordProcessor struct {
	splitter WordSplitter
	filter   WordFilter
	stemmer  WordStemmer
}

// NewWordProcessor builds the processor named by the splitter, filter and
// stemmer fields of p. Empty names select the defaults.
func NewWordProcessor(p Params) (*WordProcessor, error) {
	splitter, err := NewWordSplitter(p.WordSplitter, p.SentencePieceModel)
	if err != nil {
		return nil, err
	}
	filter, err := NewWordFilter(p.WordFilter)
	if err != nil {
		return nil, err
	}
	stemmer, err := NewWordStemmer(p.WordStemmer)
	if err != nil {
		return nil, err
	}
	return &WordProcessor{splitter: splitter, filter: filter, stemmer: stemmer}, nil
}

// Process returns the word tokens of text in order.
func (p *WordProcessor) Process(text string) []string {
	// cases.Caser is stateful; a fresh one per call keeps Process safe for
	// concurrent use.
	lowered := cases.Lower(language.Und).String(norm.NFC.String(text))
	words := p.filter.Filter(p.splitter.Split(lowered))
	out := make([]string, 0, len(words))
	for _, w := range words {
		out = append(out, p.stemmer.Stem(w))
	}
	return out
}
