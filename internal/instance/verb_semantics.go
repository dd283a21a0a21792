package instance

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/example/go-deepqa/internal/tokenizer"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrUnsupportedStrategy is returned when an instance type cannot be indexed
// under the active tokenizer strategy.
var ErrUnsupportedStrategy = errors.New("tokenizer strategy not supported by instance type")

// Span is a half-open [Start, End) range of token positions.
type Span struct {
	Start int
	End   int
}

func (s Span) contains(i int) bool { return i >= s.Start && i < s.End }

// VerbSemanticsInstance is a pre-tokenized sentence with the span of a verb,
// the span of an entity, the state change the verb causes to the entity
// (CREATE, DESTROY, MOVE, ...) and one argument tag per token.
type VerbSemanticsInstance struct {
	Tokens      []string
	Verb        Span
	Entity      Span
	StateChange string
	Tags        []string
}

func (v VerbSemanticsInstance) lowered() []string {
	lower := cases.Lower(language.Und)
	out := make([]string, len(v.Tokens))
	for i, t := range v.Tokens {
		out[i] = lower.String(t)
	}
	return out
}

// Words returns the sentence tokens plus the state change and tags kinds.
func (v VerbSemanticsInstance) Words(tok tokenizer.Tokenizer) tokenizer.Representation {
	var rep tokenizer.Representation
	if tok.Strategy() == tokenizer.StrategyCharacters {
		rep = tok.Tokenize(strings.Join(v.Tokens, " "))
	} else {
		words := v.lowered()
		rep = tokenizer.Representation{tokenizer.KeyWords: words}
		if tok.Strategy().UsesWordCharacters() {
			var chars []string
			for _, w := range words {
				chars = append(chars, tok.CharactersOf(w)...)
			}
			rep[tokenizer.KeyCharacters] = chars
		}
	}

	if v.StateChange != "" {
		rep[KindStateChanges] = []string{v.StateChange}
	}
	if len(v.Tags) > 0 {
		rep[KindTags] = append([]string(nil), v.Tags...)
	}

	return rep
}

// ToIndexedInstance indexes the sentence token by token so positions stay
// aligned with the spans and tags. The characters strategy is rejected.
func (v VerbSemanticsInstance) ToIndexedInstance(c Context) (IndexedInstance, error) {
	if c.Tokenizer.Strategy() == tokenizer.StrategyCharacters {
		return nil, fmt.Errorf("%w: verb semantics with %q", ErrUnsupportedStrategy, c.Tokenizer.Strategy())
	}

	n := len(v.Tokens)
	out := &IndexedVerbSemanticsInstance{
		WordIndices: c.indexWords(v.lowered()),
		VerbMask:    make([]int, n),
		EntityMask:  make([]int, n),
		StateChange: -1,
	}
	for i := 0; i < n; i++ {
		if v.Verb.contains(i) {
			out.VerbMask[i] = 1
		}
		if v.Entity.contains(i) {
			out.EntityMask[i] = 1
		}
	}

	if v.StateChange != "" {
		ns := c.Namespaces.For(KindStateChanges)
		out.StateChange = c.Vocabulary.GetWordIndex(v.StateChange, ns)
		out.NumStateChanges = c.Vocabulary.GetVocabSize(ns) - 2
	}

	if len(v.Tags) > 0 {
		ns := c.Namespaces.For(KindTags)
		out.Tags = make([]int, len(v.Tags))
		for i, tag := range v.Tags {
			out.Tags[i] = c.Vocabulary.GetWordIndex(tag, ns)
		}
		out.NumTags = c.Vocabulary.GetVocabSize(ns) - 2
	}

	return out, nil
}

// ReadVerbSemantics parses a tab-separated line:
//
//	tokens<TAB>verb span<TAB>entity span[<TAB>state change[<TAB>tags]]
//
// Tokens and tags are space-separated; spans are "start,end" token offsets,
// end exclusive.
func ReadVerbSemantics(line string) (VerbSemanticsInstance, error) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), "\t")
	if len(fields) < 3 || len(fields) > 5 {
		return VerbSemanticsInstance{}, fmt.Errorf("verb semantics line has %d fields, want 3-5", len(fields))
	}

	inst := VerbSemanticsInstance{Tokens: strings.Fields(fields[0])}
	n := len(inst.Tokens)

	var err error
	if inst.Verb, err = parseSpan(fields[1], n); err != nil {
		return VerbSemanticsInstance{}, fmt.Errorf("verb span: %w", err)
	}
	if inst.Entity, err = parseSpan(fields[2], n); err != nil {
		return VerbSemanticsInstance{}, fmt.Errorf("entity span: %w", err)
	}

	if len(fields) > 3 {
		inst.StateChange = strings.TrimSpace(fields[3])
	}
	if len(fields) > 4 {
		inst.Tags = strings.Fields(fields[4])
		if len(inst.Tags) != n {
			return VerbSemanticsInstance{}, fmt.Errorf("got %d tags for %d tokens", len(inst.Tags), n)
		}
	}

	return inst, nil
}

func parseSpan(s string, n int) (Span, error) {
	start, end, ok := strings.Cut(strings.TrimSpace(s), ",")
	if !ok {
		return Span{}, fmt.Errorf("span %q must be start,end", s)
	}
	a, err := strconv.Atoi(strings.TrimSpace(start))
	if err != nil {
		return Span{}, fmt.Errorf("span start %q: %w", start, err)
	}
	b, err := strconv.Atoi(strings.TrimSpace(end))
	if err != nil {
		return Span{}, fmt.Errorf("span end %q: %w", end, err)
	}
	if a < 0 || b < a || b > n {
		return Span{}, fmt.Errorf("span [%d,%d) out of range for %d tokens", a, b, n)
	}
	return Span{Start: a, End: b}, nil
}

// IndexedVerbSemanticsInstance is the indexed form of a
// VerbSemanticsInstance. StateChange is -1 and Tags nil when unlabeled.
type IndexedVerbSemanticsInstance struct {
	WordIndices     WordSequence
	VerbMask        []int
	EntityMask      []int
	StateChange     int
	Tags            []int
	NumStateChanges int
	NumTags         int
}

func (i *IndexedVerbSemanticsInstance) PaddingLengths() PaddingLengths {
	return i.WordIndices.PaddingLengths()
}

// Pad shapes the sentence, the verb and entity masks and the tags to the
// same word count. Masks take the sentence's shape so they can be multiplied
// with it element-wise. Tags and the state change become one-hot rows over
// their vocabularies, reserved indices excluded.
func (i *IndexedVerbSemanticsInstance) Pad(lengths PaddingLengths, truncation Truncation) (Padded, error) {
	words, err := PadWordSequence(i.WordIndices, lengths, truncation)
	if err != nil {
		return Padded{}, err
	}
	numWords := words.Shape[0]

	verb, err := i.padMask(i.VerbMask, words, truncation)
	if err != nil {
		return Padded{}, fmt.Errorf("verb mask: %w", err)
	}
	entity, err := i.padMask(i.EntityMask, words, truncation)
	if err != nil {
		return Padded{}, fmt.Errorf("entity mask: %w", err)
	}

	padded := Padded{
		Inputs: map[string]Array{
			InputWords:  words,
			InputVerb:   verb,
			InputEntity: entity,
		},
		Outputs: map[string]Array{},
	}

	if i.StateChange >= 0 {
		padded.Outputs[OutputStateChange] = Array{
			Shape: []int{i.NumStateChanges},
			Data:  oneHot(i.StateChange, i.NumStateChanges),
		}
	}

	if i.Tags != nil {
		tags, err := padToLength(i.Tags, numWords, truncation)
		if err != nil {
			return Padded{}, fmt.Errorf("tags: %w", err)
		}
		data := make([]int, 0, numWords*i.NumTags)
		for _, t := range tags {
			data = append(data, oneHot(t, i.NumTags)...)
		}
		padded.Outputs[OutputTags] = Array{Shape: []int{numWords, i.NumTags}, Data: data}
	}

	return padded, nil
}

func (i *IndexedVerbSemanticsInstance) padMask(mask []int, words Array, truncation Truncation) (Array, error) {
	values, err := padToLength(mask, words.Shape[0], truncation)
	if err != nil {
		return Array{}, err
	}
	if len(words.Shape) == 2 {
		return expandRows(values, words.Shape[1]), nil
	}
	return Array{Shape: []int{len(values)}, Data: values}, nil
}
