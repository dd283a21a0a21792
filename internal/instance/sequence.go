package instance

import (
	"errors"
	"fmt"
)

// Padding length keys.
const (
	KeySentenceWords  = "num_sentence_words"
	KeyWordCharacters = "num_word_characters"
)

var (
	// ErrSequenceTooLong is returned when a padding target is shorter than the
	// natural word count and truncation was not requested.
	ErrSequenceTooLong = errors.New("sequence longer than padding length")
	// ErrMissingPaddingLength is returned when a required padding key is absent.
	ErrMissingPaddingLength = errors.New("missing padding length")
)

// PaddingLengths maps padding keys to sizes.
type PaddingLengths map[string]int

// Merge returns the per-key maximum of p and other.
func (p PaddingLengths) Merge(other PaddingLengths) PaddingLengths {
	out := make(PaddingLengths, len(p)+len(other))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range other {
		if cur, ok := out[k]; !ok || v > cur {
			out[k] = v
		}
	}
	return out
}

// Override returns a copy of p where every positive value in fixed replaces
// the inferred one. Keys only present in fixed are ignored.
func (p PaddingLengths) Override(fixed PaddingLengths) PaddingLengths {
	out := make(PaddingLengths, len(p))
	for k, v := range p {
		out[k] = v
		if f, ok := fixed[k]; ok && f > 0 {
			out[k] = f
		}
	}
	return out
}

func (p PaddingLengths) require(key string) (int, error) {
	v, ok := p[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingPaddingLength, key)
	}
	if v < 0 {
		return 0, fmt.Errorf("padding length %s must be non-negative, got %d", key, v)
	}
	return v, nil
}

// Truncation decides what happens when a sequence is longer than its target
// word count.
type Truncation int

const (
	// TruncateReject fails with ErrSequenceTooLong.
	TruncateReject Truncation = iota
	// TruncateFront drops leading entries and keeps the last ones, mirroring
	// the left-padding convention.
	TruncateFront
)

// Word is one indexed word token. Characters holds the indices of the word's
// characters and is only meaningful when the owning sequence carries
// characters.
type Word struct {
	Index      int
	Characters []int
}

// entry returns the word's padded row form: [index, char indices...].
func (w Word) entry() []int {
	out := make([]int, 0, 1+len(w.Characters))
	out = append(out, w.Index)
	return append(out, w.Characters...)
}

// WordSequence is an ordered list of indexed words. Whether words carry
// character indices is fixed when the sequence is built.
type WordSequence struct {
	withCharacters bool
	words          []Word
}

// WordsOnly builds a word-only sequence from word indices.
func WordsOnly(indices ...int) WordSequence {
	words := make([]Word, len(indices))
	for i, idx := range indices {
		words[i] = Word{Index: idx}
	}
	return WordSequence{words: words}
}

// WordsWithCharacters builds a word+character sequence. Each entry is
// [word index, char index, ...]; an empty entry becomes a padding word.
func WordsWithCharacters(entries ...[]int) WordSequence {
	words := make([]Word, len(entries))
	for i, e := range entries {
		if len(e) == 0 {
			continue
		}
		words[i] = Word{Index: e[0], Characters: append([]int(nil), e[1:]...)}
	}
	return WordSequence{withCharacters: true, words: words}
}

// HasCharacters reports whether words carry character indices.
func (s WordSequence) HasCharacters() bool { return s.withCharacters }

// Len returns the number of words.
func (s WordSequence) Len() int { return len(s.words) }

// Words returns a copy of the words.
func (s WordSequence) Words() []Word {
	return append([]Word(nil), s.words...)
}

// Indices returns the word index of every word.
func (s WordSequence) Indices() []int {
	out := make([]int, len(s.words))
	for i, w := range s.words {
		out[i] = w.Index
	}
	return out
}

// Entries returns every word in its row form. Word-only sequences yield
// single-element rows.
func (s WordSequence) Entries() [][]int {
	out := make([][]int, len(s.words))
	for i, w := range s.words {
		if s.withCharacters {
			out[i] = w.entry()
		} else {
			out[i] = []int{w.Index}
		}
	}
	return out
}

// PaddingLengths returns num_sentence_words and, for sequences with
// characters, num_word_characters: the longest row including the word index.
func (s WordSequence) PaddingLengths() PaddingLengths {
	lengths := PaddingLengths{KeySentenceWords: len(s.words)}
	if s.withCharacters {
		longest := 0
		for _, w := range s.words {
			if n := 1 + len(w.Characters); n > longest {
				longest = n
			}
		}
		lengths[KeyWordCharacters] = longest
	}
	return lengths
}

// PadWordSequence shapes seq to exactly lengths[num_sentence_words] words,
// adding all-zero words at the front. With characters, every row is
// right-padded with zeros or cut to lengths[num_word_characters]. The result
// is [words] for word-only sequences and [words, characters] otherwise.
func PadWordSequence(seq WordSequence, lengths PaddingLengths, truncation Truncation) (Array, error) {
	numWords, err := lengths.require(KeySentenceWords)
	if err != nil {
		return Array{}, err
	}

	if !seq.withCharacters {
		data, err := padToLength(seq.Indices(), numWords, truncation)
		if err != nil {
			return Array{}, err
		}
		return Array{Shape: []int{numWords}, Data: data}, nil
	}

	numChars, err := lengths.require(KeyWordCharacters)
	if err != nil {
		return Array{}, err
	}

	words := seq.words
	start, err := frontOffset(len(words), numWords, truncation)
	if err != nil {
		return Array{}, err
	}
	words = words[start:]

	data := make([]int, numWords*numChars)
	lead := numWords - len(words)
	for i, w := range words {
		row := data[(lead+i)*numChars : (lead+i+1)*numChars]
		copy(row, w.entry())
	}

	return Array{Shape: []int{numWords, numChars}, Data: data}, nil
}

// padToLength left-pads seq with zeros to n entries.
func padToLength(seq []int, n int, truncation Truncation) ([]int, error) {
	start, err := frontOffset(len(seq), n, truncation)
	if err != nil {
		return nil, err
	}
	seq = seq[start:]

	out := make([]int, n)
	copy(out[n-len(seq):], seq)
	return out, nil
}

// frontOffset returns how many leading entries to drop so that natural fits
// into target.
func frontOffset(natural, target int, truncation Truncation) (int, error) {
	if natural <= target {
		return 0, nil
	}
	if truncation != TruncateFront {
		return 0, fmt.Errorf("%w: %d words, target %d", ErrSequenceTooLong, natural, target)
	}
	return natural - target, nil
}

// Array is a dense row-major integer array.
type Array struct {
	Shape []int
	Data  []int
}

// Rows splits a two-dimensional array into its rows. One-dimensional arrays
// yield a single row.
func (a Array) Rows() [][]int {
	if len(a.Shape) < 2 {
		return [][]int{append([]int(nil), a.Data...)}
	}
	width := 1
	for _, d := range a.Shape[1:] {
		width *= d
	}
	rows := make([][]int, a.Shape[0])
	for i := range rows {
		rows[i] = append([]int(nil), a.Data[i*width:(i+1)*width]...)
	}
	return rows
}

// expandRows repeats every value of a [n] array across width columns,
// giving a [n, width] array.
func expandRows(values []int, width int) Array {
	data := make([]int, len(values)*width)
	for i, v := range values {
		for j := 0; j < width; j++ {
			data[i*width+j] = v
		}
	}
	return Array{Shape: []int{len(values), width}, Data: data}
}

// oneHot returns a vector of size n with a 1 at index-2. Reserved and
// out-of-range indices give an all-zero vector.
func oneHot(index, n int) []int {
	out := make([]int, n)
	if pos := index - 2; pos >= 0 && pos < n {
		out[pos] = 1
	}
	return out
}
