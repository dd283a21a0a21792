// Package dataindexer maps token strings to integer indices, partitioned into
// named namespaces ("words", "characters", "tags", ...).
//
// Every namespace reserves index 0 for padding and index 1 for unknown tokens.
// A DataIndexer is not safe for concurrent writers: build the vocabulary in a
// single goroutine, after which concurrent read-only lookups are fine.
package dataindexer

import (
	"sort"
)

// Common namespace names.
const (
	NamespaceWords        = "words"
	NamespaceCharacters   = "characters"
	NamespaceTags         = "tags"
	NamespaceStateChanges = "state_changes"
	NamespaceLabels       = "labels"
)

// DataIndexer owns a set of lazily created namespaces. The zero value is an
// empty, unfit vocabulary ready for use.
type DataIndexer struct {
	namespaces map[string]*Namespace
	fit        bool
}

func New() *DataIndexer {
	return &DataIndexer{namespaces: map[string]*Namespace{}}
}

// AddWordToIndex returns the index of word in namespace, assigning the next
// free index (starting at 2) if the word is new. Calling it again with the
// same arguments returns the same index and does not grow the vocabulary.
func (d *DataIndexer) AddWordToIndex(word, namespace string) int {
	ns, ok := d.namespaces[namespace]
	if !ok {
		if d.namespaces == nil {
			d.namespaces = map[string]*Namespace{}
		}
		ns = newNamespace()
		d.namespaces[namespace] = ns
	}
	return ns.add(word)
}

// GetWordIndex returns the index of word in namespace, or UnknownIndex if it
// was never added. It never fails.
func (d *DataIndexer) GetWordIndex(word, namespace string) int {
	ns, ok := d.namespaces[namespace]
	if !ok {
		return UnknownIndex
	}
	return ns.index(word)
}

// GetWordFromIndex returns the token stored at index. The reserved indices
// resolve to PaddingToken and UnknownToken in every namespace, registered or
// not.
func (d *DataIndexer) GetWordFromIndex(index int, namespace string) (string, bool) {
	ns, ok := d.namespaces[namespace]
	if !ok {
		ns = newNamespace()
	}
	return ns.word(index)
}

// GetVocabSize returns the number of entries in namespace including the two
// reserved ones. Unregistered namespaces report 2.
func (d *DataIndexer) GetVocabSize(namespace string) int {
	ns, ok := d.namespaces[namespace]
	if !ok {
		return firstTokenIndex
	}
	return ns.size()
}

// WordsInIndex returns the real tokens of namespace in index order.
func (d *DataIndexer) WordsInIndex(namespace string) []string {
	ns, ok := d.namespaces[namespace]
	if !ok {
		return []string{}
	}
	return ns.words()
}

// Namespaces returns the registered namespace names, sorted.
func (d *DataIndexer) Namespaces() []string {
	names := make([]string, 0, len(d.namespaces))
	for name := range d.namespaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsFit reports whether the vocabulary was built with FitWordDictionary or
// loaded from a saved vocabulary.
func (d *DataIndexer) IsFit() bool {
	return d.fit
}

// FitWordDictionary adds every word whose count reaches minCount. Within a
// namespace words are added by descending count, ties broken lexically, so
// the resulting indices are deterministic.
func (d *DataIndexer) FitWordDictionary(counts Counts, minCount int) {
	for _, namespace := range counts.Namespaces() {
		for _, wc := range counts.sorted(namespace) {
			if wc.count < minCount {
				break
			}
			d.AddWordToIndex(wc.word, namespace)
		}
	}
	d.fit = true
}

// Counts holds token frequencies per namespace.
type Counts map[string]map[string]int

// Add increments the count of word in namespace.
func (c Counts) Add(namespace, word string) {
	m, ok := c[namespace]
	if !ok {
		m = map[string]int{}
		c[namespace] = m
	}
	m[word]++
}

// Namespaces returns the counted namespace names, sorted.
func (c Counts) Namespaces() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type wordCount struct {
	word  string
	count int
}

func (c Counts) sorted(namespace string) []wordCount {
	m := c[namespace]
	out := make([]wordCount, 0, len(m))
	for w, n := range m {
		out = append(out, wordCount{word: w, count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].word < out[j].word
	})
	return out
}
