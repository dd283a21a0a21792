package tokenizer

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Word splitter names.
const (
	SplitterSimple        = "simple"
	SplitterJustSpaces    = "just_spaces"
	SplitterSentencePiece = "sentencepiece"
)

// ErrUnknownSplitter is returned for an unrecognised word splitter name.
var ErrUnknownSplitter = errors.New("unknown word splitter")

// WordSplitter splits an already lowercased sentence into word tokens.
type WordSplitter interface {
	Split(sentence string) []string
}

// NewWordSplitter returns the splitter registered under name. modelPath is
// only used by the sentencepiece splitter.
func NewWordSplitter(name, modelPath string) (WordSplitter, error) {
	switch canonicalName(name) {
	case "", SplitterSimple:
		return NewSimpleWordSplitter(), nil
	case SplitterJustSpaces:
		return justSpacesSplitter{}, nil
	case SplitterSentencePiece, "sentence_piece":
		return NewSentencePieceSplitter(modelPath)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownSplitter, name)
	}
}

type justSpacesSplitter struct{}

func (justSpacesSplitter) Split(sentence string) []string {
	return strings.Fields(sentence)
}

// SimpleWordSplitter splits on whitespace, then peels leading punctuation,
// trailing punctuation and contraction suffixes off each field as separate
// tokens. Known abbreviations such as "e.g." are never split.
type SimpleWordSplitter struct {
	specialCases         map[string]struct{}
	contractions         []string
	beginningPunctuation map[rune]struct{}
	endingPunctuation    map[rune]struct{}
}

func NewSimpleWordSplitter() *SimpleWordSplitter {
	contractions := []string{"n't", "'s", "'ve", "'re", "'ll", "'d", "'m"}
	for _, c := range contractions[:7] {
		contractions = append(contractions, strings.ReplaceAll(c, "'", "’"))
	}

	return &SimpleWordSplitter{
		specialCases: setOf("mr.", "mrs.", "etc.", "e.g.", "cf.", "c.f.", "eg.", "al."),
		contractions: contractions,
		beginningPunctuation: runeSet(
			'"', '\'', '(', '[', '{', '#', '$', '“', '‘',
		),
		endingPunctuation: runeSet(
			'"', '\'', '.', ',', ';', ')', ']', '}', ':', '!', '?', '%', '”', '’',
		),
	}
}

func (s *SimpleWordSplitter) Split(sentence string) []string {
	var tokens []string

	for _, field := range strings.Fields(sentence) {
		var atEnd []string

		for s.canSplit(field) {
			r, size := utf8.DecodeRuneInString(field)
			if _, ok := s.beginningPunctuation[r]; !ok {
				break
			}
			tokens = append(tokens, string(r))
			field = field[size:]
		}

		for s.canSplit(field) {
			r, size := utf8.DecodeLastRuneInString(field)
			if _, ok := s.endingPunctuation[r]; !ok {
				break
			}
			atEnd = append([]string{string(r)}, atEnd...)
			field = field[:len(field)-size]
		}

		// Several contractions can stack ("shouldn't've"); keep peeling until
		// none match.
		for removed := true; removed; {
			removed = false
			for _, c := range s.contractions {
				if s.canSplit(field) && strings.HasSuffix(field, c) {
					atEnd = append([]string{c}, atEnd...)
					field = field[:len(field)-len(c)]
					removed = true
				}
			}
		}

		if field != "" {
			tokens = append(tokens, field)
		}
		tokens = append(tokens, atEnd...)
	}

	return tokens
}

func (s *SimpleWordSplitter) canSplit(token string) bool {
	if token == "" {
		return false
	}
	_, special := s.specialCases[strings.ToLower(token)]
	return !special
}

func setOf(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, it := range items {
		m[it] = struct{}{}
	}
	return m
}

func runeSet(items ...rune) map[rune]struct{} {
	m := make(map[rune]struct{}, len(items))
	for _, r := range items {
		m[r] = struct{}{}
	}
	return m
}
