// Package tokenizer splits raw text into the token sequences that the data
// indexer turns into integer indices. Three strategies are supported: word
// tokens, raw characters, and word tokens together with their characters.
package tokenizer

import (
	"fmt"
	"unicode"
)

// Representation keys.
const (
	KeyWords      = "words"
	KeyCharacters = "characters"
)

// Representation maps a representation kind ("words", "characters") to the
// ordered token strings produced for it.
type Representation map[string][]string

// Tokenizer converts text into a Representation under a fixed strategy.
type Tokenizer interface {
	// Tokenize returns the decomposition of text. Empty text yields empty
	// sequences.
	Tokenize(text string) Representation
	// CharactersOf returns the character tokens contributed by a single word
	// token in the words-and-characters strategy.
	CharactersOf(word string) []string
	Strategy() Strategy
}

// Params selects and configures a Tokenizer.
type Params struct {
	Strategy           Strategy
	WordSplitter       string
	WordFilter         string
	WordStemmer        string
	SentencePieceModel string
}

// DefaultParams returns the word strategy with the simple splitter and no
// filtering or stemming.
func DefaultParams() Params {
	return Params{
		Strategy:     StrategyWords,
		WordSplitter: SplitterSimple,
		WordFilter:   FilterPassThrough,
		WordStemmer:  StemmerPassThrough,
	}
}

// New builds the tokenizer described by p. Unknown component names are
// configuration errors.
func New(p Params) (Tokenizer, error) {
	switch p.Strategy {
	case StrategyCharacters:
		return characterTokenizer{}, nil
	case StrategyWords, StrategyWordsAndCharacters:
		proc, err := NewWordProcessor(p)
		if err != nil {
			return nil, err
		}
		if p.Strategy == StrategyWords {
			return &wordTokenizer{proc: proc}, nil
		}
		return &wordAndCharacterTokenizer{proc: proc}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownStrategy, int(p.Strategy))
	}
}

// MustNew is like New but panics on error. Intended for tests and package-level
// defaults where the params are known to be valid.
func MustNew(p Params) Tokenizer {
	t, err := New(p)
	if err != nil {
		panic(err)
	}
	return t
}

type wordTokenizer struct {
	proc *WordProcessor
}

func (t *wordTokenizer) Tokenize(text string) Representation {
	return Representation{KeyWords: t.proc.Process(text)}
}

func (t *wordTokenizer) CharactersOf(word string) []string {
	return wordCharacters(word)
}

func (t *wordTokenizer) Strategy() Strategy { return StrategyWords }

type characterTokenizer struct{}

// Tokenize keeps the original casing and every rune, spaces included.
func (characterTokenizer) Tokenize(text string) Representation {
	chars := make([]string, 0, len(text))
	for _, r := range text {
		chars = append(chars, string(r))
	}
	return Representation{KeyWords: chars}
}

func (characterTokenizer) CharactersOf(word string) []string {
	return wordCharacters(word)
}

func (characterTokenizer) Strategy() Strategy { return StrategyCharacters }

type wordAndCharacterTokenizer struct {
	proc *WordProcessor
}

func (t *wordAndCharacterTokenizer) Tokenize(text string) Representation {
	words := t.proc.Process(text)
	chars := make([]string, 0, len(text))
	for _, w := range words {
		chars = append(chars, wordCharacters(w)...)
	}
	return Representation{KeyWords: words, KeyCharacters: chars}
}

func (t *wordAndCharacterTokenizer) CharactersOf(word string) []string {
	return wordCharacters(word)
}

func (t *wordAndCharacterTokenizer) Strategy() Strategy { return StrategyWordsAndCharacters }

// wordCharacters drops spaces and punctuation; punctuation-only tokens
// contribute nothing to the character stream.
func wordCharacters(word string) []string {
	out := make([]string, 0, len(word))
	for _, r := range word {
		if unicode.IsSpace(r) || unicode.IsPunct(r) {
			continue
		}
		out = append(out, string(r))
	}
	return out
}
