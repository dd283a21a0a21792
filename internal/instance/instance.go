// Package instance turns raw labeled examples into indexed, padded integer
// arrays shaped for a fixed-size model input.
//
// A TextInstance is tokenized and looked up in a vocabulary to produce an
// IndexedInstance. The IndexedInstance reports the padding lengths it needs
// and pads itself to the lengths chosen for the whole dataset.
package instance

import (
	"github.com/example/go-deepqa/internal/dataindexer"
	"github.com/example/go-deepqa/internal/tokenizer"
)

// Representation kinds used as keys of Words() beyond the tokenizer's own.
const (
	KindTags         = "tags"
	KindStateChanges = "state_changes"
	KindLabels       = "labels"
)

// Model input and output array names.
const (
	InputWords        = "word_array_input"
	InputVerb         = "verb_array_input"
	InputEntity       = "entity_array_input"
	OutputLabel       = "label"
	OutputStateChange = "state_change"
	OutputTags        = "tags"
)

// Vocabulary is the read-only view of a data indexer needed for indexing.
type Vocabulary interface {
	GetWordIndex(word, namespace string) int
	GetVocabSize(namespace string) int
}

// Namespaces names the vocabulary namespace used for each representation
// kind.
type Namespaces struct {
	Words        string `mapstructure:"words"`
	Characters   string `mapstructure:"characters"`
	Tags         string `mapstructure:"tags"`
	StateChanges string `mapstructure:"state_changes"`
	Labels       string `mapstructure:"labels"`
}

func DefaultNamespaces() Namespaces {
	return Namespaces{
		Words:        dataindexer.NamespaceWords,
		Characters:   dataindexer.NamespaceCharacters,
		Tags:         dataindexer.NamespaceTags,
		StateChanges: dataindexer.NamespaceStateChanges,
		Labels:       dataindexer.NamespaceLabels,
	}
}

// For returns the namespace for a representation kind. Unknown kinds map to
// a namespace of the same name.
func (n Namespaces) For(kind string) string {
	var ns string
	switch kind {
	case tokenizer.KeyWords:
		ns = n.Words
	case tokenizer.KeyCharacters:
		ns = n.Characters
	case KindTags:
		ns = n.Tags
	case KindStateChanges:
		ns = n.StateChanges
	case KindLabels:
		ns = n.Labels
	}
	if ns == "" {
		return kind
	}
	return ns
}

// Context carries the tokenizer and vocabulary used to index instances. It
// holds no mutable state and may be shared between goroutines once the
// vocabulary is fully built.
type Context struct {
	Tokenizer  tokenizer.Tokenizer
	Vocabulary Vocabulary
	Namespaces Namespaces
}

// IndexText tokenizes text and looks every token up. Under the words and
// characters strategy each word carries its own character indices, looked up
// in the characters namespace.
func (c Context) IndexText(text string) WordSequence {
	words := c.Tokenizer.Tokenize(text)[tokenizer.KeyWords]
	return c.indexWords(words)
}

func (c Context) indexWords(words []string) WordSequence {
	wordsNS := c.Namespaces.For(tokenizer.KeyWords)

	if !c.Tokenizer.Strategy().UsesWordCharacters() {
		indices := make([]int, len(words))
		for i, w := range words {
			indices[i] = c.Vocabulary.GetWordIndex(w, wordsNS)
		}
		return WordsOnly(indices...)
	}

	charsNS := c.Namespaces.For(tokenizer.KeyCharacters)
	entries := make([][]int, len(words))
	for i, w := range words {
		chars := c.Tokenizer.CharactersOf(w)
		entry := make([]int, 0, 1+len(chars))
		entry = append(entry, c.Vocabulary.GetWordIndex(w, wordsNS))
		for _, ch := range chars {
			entry = append(entry, c.Vocabulary.GetWordIndex(ch, charsNS))
		}
		entries[i] = entry
	}
	return WordsWithCharacters(entries...)
}

// TextInstance is a raw labeled example.
type TextInstance interface {
	// Words returns every token of the instance keyed by representation kind,
	// as produced by tok plus any label kinds.
	Words(tok tokenizer.Tokenizer) tokenizer.Representation
	ToIndexedInstance(c Context) (IndexedInstance, error)
}

// IndexedInstance is a TextInstance after vocabulary lookup.
type IndexedInstance interface {
	PaddingLengths() PaddingLengths
	Pad(lengths PaddingLengths, truncation Truncation) (Padded, error)
}

// Padded holds the fixed-shape arrays of one instance, keyed by input and
// output name.
type Padded struct {
	Inputs  map[string]Array
	Outputs map[string]Array
}
