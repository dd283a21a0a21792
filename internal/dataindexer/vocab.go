package dataindexer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

const vocabVersion = 1

// ErrDuplicateToken is returned when a saved vocabulary lists a token twice
// within one namespace.
var ErrDuplicateToken = errors.New("duplicate token in vocabulary")

// vocabFile is the on-disk layout: real tokens per namespace in index order,
// so the token at position i has index i+2.
type vocabFile struct {
	Version    int                 `json:"version"`
	Namespaces map[string][]string `json:"namespaces"`
}

// Save writes the vocabulary as JSON.
func (d *DataIndexer) Save(w io.Writer) error {
	vf := vocabFile{
		Version:    vocabVersion,
		Namespaces: make(map[string][]string, len(d.namespaces)),
	}
	for name, ns := range d.namespaces {
		vf.Namespaces[name] = ns.words()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(vf); err != nil {
		return fmt.Errorf("encode vocabulary: %w", err)
	}
	return nil
}

// Load reads a vocabulary written by Save. Indices are restored exactly. The
// returned indexer is marked as fit.
func Load(r io.Reader) (*DataIndexer, error) {
	var vf vocabFile
	if err := json.NewDecoder(r).Decode(&vf); err != nil {
		return nil, fmt.Errorf("decode vocabulary: %w", err)
	}
	if vf.Version != vocabVersion {
		return nil, fmt.Errorf("unsupported vocabulary version %d (want %d)", vf.Version, vocabVersion)
	}

	d := New()
	for name, words := range vf.Namespaces {
		ns := newNamespace()
		for _, w := range words {
			if _, exists := ns.wordToIndex[w]; exists {
				return nil, fmt.Errorf("%w: %q in namespace %q", ErrDuplicateToken, w, name)
			}
			ns.add(w)
		}
		d.namespaces[name] = ns
	}
	d.fit = true

	return d, nil
}

// SaveFile writes the vocabulary to path.
func (d *DataIndexer) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create vocabulary %s: %w", path, err)
	}

	if err := d.Save(f); err != nil {
		_ = f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close vocabulary %s: %w", path, err)
	}

	return nil
}

// LoadFile reads a vocabulary from path.
func LoadFile(path string) (*DataIndexer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocabulary %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return Load(f)
}
