package instance

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/example/go-deepqa/internal/tokenizer"
)

// TextClassificationInstance is a piece of text with an optional true/false
// label.
type TextClassificationInstance struct {
	Text  string
	Label *bool
}

func NewTextClassificationInstance(text string, label *bool) TextClassificationInstance {
	return TextClassificationInstance{Text: text, Label: label}
}

func (t TextClassificationInstance) Words(tok tokenizer.Tokenizer) tokenizer.Representation {
	return tok.Tokenize(t.Text)
}

func (t TextClassificationInstance) ToIndexedInstance(c Context) (IndexedInstance, error) {
	return &IndexedTextClassificationInstance{
		WordIndices: c.IndexText(t.Text),
		Label:       t.Label,
	}, nil
}

// ReadTextClassification parses "text", "text<TAB>label" or
// "index<TAB>text<TAB>label". Two fields are always text and label, so a
// numeric first field is only taken as an index when three fields are
// present. Labels accept the values understood by strconv.ParseBool.
func ReadTextClassification(line string) (TextClassificationInstance, error) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), "\t")

	var text, labelField string
	switch len(fields) {
	case 1:
		text = fields[0]
	case 2:
		text, labelField = fields[0], fields[1]
	case 3:
		if !isIndex(fields[0]) {
			return TextClassificationInstance{}, fmt.Errorf("text classification index %q is not a non-negative integer", fields[0])
		}
		text, labelField = fields[1], fields[2]
	default:
		return TextClassificationInstance{}, fmt.Errorf("text classification line has %d fields, want 1-3", len(fields))
	}

	inst := TextClassificationInstance{Text: text}
	if labelField != "" {
		label, err := strconv.ParseBool(strings.TrimSpace(labelField))
		if err != nil {
			return TextClassificationInstance{}, fmt.Errorf("parse label %q: %w", labelField, err)
		}
		inst.Label = &label
	}

	return inst, nil
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}

// IndexedTextClassificationInstance holds the indexed text and label.
type IndexedTextClassificationInstance struct {
	WordIndices WordSequence
	Label       *bool
}

func (i *IndexedTextClassificationInstance) PaddingLengths() PaddingLengths {
	return i.WordIndices.PaddingLengths()
}

// Pad returns the padded word array as input and, when labeled, a two-way
// one-hot label ([1 0] false, [0 1] true) as output.
func (i *IndexedTextClassificationInstance) Pad(lengths PaddingLengths, truncation Truncation) (Padded, error) {
	words, err := PadWordSequence(i.WordIndices, lengths, truncation)
	if err != nil {
		return Padded{}, err
	}

	padded := Padded{
		Inputs:  map[string]Array{InputWords: words},
		Outputs: map[string]Array{},
	}
	if i.Label != nil {
		label := []int{1, 0}
		if *i.Label {
			label = []int{0, 1}
		}
		padded.Outputs[OutputLabel] = Array{Shape: []int{2}, Data: label}
	}

	return padded, nil
}
