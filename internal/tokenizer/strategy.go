package tokenizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"
)

// ErrUnknownStrategy is returned when a strategy name is not recognised.
var ErrUnknownStrategy = errors.New("unknown tokenizer strategy")

// Strategy selects how text is decomposed into tokens.
type Strategy int

const (
	StrategyWords Strategy = iota
	StrategyCharacters
	StrategyWordsAndCharacters
)

// Canonical strategy names.
const (
	NameWords              = "words"
	NameCharacters         = "characters"
	NameWordsAndCharacters = "words and characters"
)

// ParseStrategy converts a strategy name to a Strategy. Case and separators
// are ignored, so "words_and_characters", "WordsAndCharacters" and
// "words-and-characters" all resolve to StrategyWordsAndCharacters. An empty
// name selects StrategyWords.
func ParseStrategy(name string) (Strategy, error) {
	key := strcase.ToSnake(strings.TrimSpace(name))
	switch key {
	case "", "words":
		return StrategyWords, nil
	case "characters", "chars":
		return StrategyCharacters, nil
	case "words_and_characters":
		return StrategyWordsAndCharacters, nil
	default:
		return StrategyWords, fmt.Errorf(
			"%w %q (expected %q|%q|%q)",
			ErrUnknownStrategy,
			name,
			NameWords,
			NameCharacters,
			NameWordsAndCharacters,
		)
	}
}

func (s Strategy) String() string {
	switch s {
	case StrategyWords:
		return NameWords
	case StrategyCharacters:
		return NameCharacters
	case StrategyWordsAndCharacters:
		return NameWordsAndCharacters
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// UsesWordCharacters reports whether indexed words carry a character
// sub-sequence.
func (s Strategy) UsesWordCharacters() bool {
	return s == StrategyWordsAndCharacters
}
