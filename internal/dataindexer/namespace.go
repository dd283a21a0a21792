package dataindexer

// Reserved indices present in every namespace.
const (
	PaddingIndex = 0
	UnknownIndex = 1
)

// Reserved token strings for PaddingIndex and UnknownIndex.
const (
	PaddingToken = "@@PADDING@@"
	UnknownToken = "@@UNKNOWN@@"
)

// firstTokenIndex is the smallest index ever given to a real token.
const firstTokenIndex = 2

// Namespace is one independent vocabulary. Indices are assigned in insertion
// order starting at 2 and are never reassigned.
type Namespace struct {
	wordToIndex map[string]int
	indexToWord []string
}

func newNamespace() *Namespace {
	return &Namespace{
		wordToIndex: map[string]int{},
		indexToWord: []string{PaddingToken, UnknownToken},
	}
}

// add returns the index of word, assigning the next free one if needed. The
// reserved token strings are ordinary tokens here; they never map to 0 or 1.
func (n *Namespace) add(word string) int {
	if idx, ok := n.wordToIndex[word]; ok {
		return idx
	}
	idx := len(n.indexToWord)
	n.wordToIndex[word] = idx
	n.indexToWord = append(n.indexToWord, word)
	return idx
}

func (n *Namespace) index(word string) int {
	if idx, ok := n.wordToIndex[word]; ok {
		return idx
	}
	return UnknownIndex
}

func (n *Namespace) word(index int) (string, bool) {
	if index < 0 || index >= len(n.indexToWord) {
		return "", false
	}
	return n.indexToWord[index], true
}

func (n *Namespace) size() int {
	return len(n.indexToWord)
}

// words returns the real tokens in index order.
func (n *Namespace) words() []string {
	return append([]string(nil), n.indexToWord[firstTokenIndex:]...)
}
