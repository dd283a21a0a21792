package tokenizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/kljensen/snowball"
)

// Filter and stemmer names.
const (
	FilterPassThrough  = "pass_through"
	FilterStopwords    = "stopwords"
	StemmerPassThrough = "pass_through"
	StemmerPorter      = "porter"
)

var (
	// ErrUnknownFilter is returned for an unrecognised word filter name.
	ErrUnknownFilter = errors.New("unknown word filter")
	// ErrUnknownStemmer is returned for an unrecognised word stemmer name.
	ErrUnknownStemmer = errors.New("unknown word stemmer")
)

// WordFilter removes tokens from a split sentence.
type WordFilter interface {
	Filter(words []string) []string
}

// WordStemmer maps a token to its stem.
type WordStemmer interface {
	Stem(word string) string
}

func NewWordFilter(name string) (WordFilter, error) {
	switch canonicalName(name) {
	case "", FilterPassThrough:
		return passThroughFilter{}, nil
	case FilterStopwords:
		return stopwordFilter{stopwords: setOf(englishStopwords...)}, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownFilter, name)
	}
}

func NewWordStemmer(name string) (WordStemmer, error) {
	switch canonicalName(name) {
	case "", StemmerPassThrough:
		return passThroughStemmer{}, nil
	case StemmerPorter:
		return porterStemmer{}, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownStemmer, name)
	}
}

func canonicalName(name string) string {
	return strcase.ToSnake(strings.TrimSpace(name))
}

type passThroughFilter struct{}

func (passThroughFilter) Filter(words []string) []string { return words }

type stopwordFilter struct {
	stopwords map[string]struct{}
}

func (f stopwordFilter) Filter(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if _, stop := f.stopwords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

type passThroughStemmer struct{}

func (passThroughStemmer) Stem(word string) string { return word }

type porterStemmer struct{}

// Stem leaves the word unchanged when snowball cannot stem it (punctuation,
// digits).
func (porterStemmer) Stem(word string) string {
	stemmed, err := snowball.Stem(word, "english", true)
	if err != nil || stemmed == "" {
		return word
	}
	return stemmed
}

var englishStopwords = []string{
	"i", "me", "my", "myself", "we", "our", "ours", "ourselves", "you", "your",
	"yours", "yourself", "yourselves", "he", "him", "his", "himself", "she",
	"her", "hers", "herself", "it", "its", "itself", "they", "them", "their",
	"theirs", "themselves", "what", "which", "who", "whom", "this", "that",
	"these", "those", "am", "is", "are", "was", "were", "be", "been", "being",
	"have", "has", "had", "having", "do", "does", "did", "doing", "a", "an",
	"the", "and", "but", "if", "or", "because", "as", "until", "while", "of",
	"at", "by", "for", "with", "about", "against", "between", "into",
	"through", "during", "before", "after", "above", "below", "to", "from",
	"up", "down", "in", "out", "on", "off", "over", "under", "again",
	"further", "then", "once", "here", "there", "when", "where", "why", "how",
	"all", "any", "both", "each", "few", "more", "most", "other", "some",
	"such", "no", "nor", "not", "only", "own", "same", "so", "than", "too",
	"very", "s", "t", "can", "will", "just", "don", "should", "now",
}
