package tokenizer

import (
	"errors"
	"fmt"
	"os"
	"strings"

	gosp "github.com/vikesh-raj/go-sentencepiece-encoder/sentencepiece"
	"google.golang.org/protobuf/proto"
)

// ErrEmptyPath is returned when a sentencepiece splitter is requested without
// a model path.
var ErrEmptyPath = errors.New("sentencepiece model path must not be empty")

// spWordStart is the SentencePiece word-start marker (U+2581).
const spWordStart = "▁"

// SentencePieceSplitter splits text into SentencePiece pieces using a
// pure-Go UNIGRAM model. Word-start markers are stripped and pieces that
// consist only of the marker are dropped.
type SentencePieceSplitter struct {
	proc   gosp.Sentencepiece
	pieces []string
}

// NewSentencePieceSplitter loads a SentencePiece model from modelPath.
func NewSentencePieceSplitter(modelPath string) (*SentencePieceSplitter, error) {
	if modelPath == "" {
		return nil, ErrEmptyPath
	}

	// The model is lowercased upstream by WordProcessor.
	proc, err := gosp.NewSentencepieceFromFile(modelPath, false)
	if err != nil {
		return nil, fmt.Errorf("load sentencepiece model %q: %w", modelPath, err)
	}

	pieces, err := loadPieceTable(modelPath)
	if err != nil {
		return nil, err
	}

	return &SentencePieceSplitter{proc: proc, pieces: pieces}, nil
}

// loadPieceTable reads the piece strings of the model in id order.
func loadPieceTable(modelPath string) ([]string, error) {
	data, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, fmt.Errorf("read sentencepiece model %q: %w", modelPath, err)
	}

	var model gosp.ModelProto
	if err := proto.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("unmarshal sentencepiece model: %w", err)
	}

	pieces := make([]string, len(model.GetPieces()))
	for i, p := range model.GetPieces() {
		pieces[i] = p.GetPiece()
	}

	return pieces, nil
}

// Split returns the piece strings for sentence.
func (s *SentencePieceSplitter) Split(sentence string) []string {
	if strings.TrimSpace(sentence) == "" {
		return []string{}
	}

	ids := s.proc.TokenizeToIDs(sentence)

	out := make([]string, 0, len(ids))
	for _, id := range ids {
		idx := int(id)
		if idx < 0 || idx >= len(s.pieces) {
			continue
		}
		piece := strings.TrimPrefix(s.pieces[idx], spWordStart)
		if piece == "" {
			continue
		}
		out = append(out, piece)
	}

	return out
}
