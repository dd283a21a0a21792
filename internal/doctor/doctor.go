// Package doctor provides environment preflight checks for deepqa.
package doctor

import (
	"fmt"
	"io"
	"os"
	"sort"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// reservedEntries is the number of padding and unknown entries every
// vocabulary namespace starts with.
const reservedEntries = 2

// Config holds injectable dependencies for each doctor check.
type Config struct {
	// BuildTokenizer builds the configured tokenizer and returns its strategy
	// name.
	BuildTokenizer func() (string, error)
	// SentencePieceModel is checked on disk when non-empty.
	SentencePieceModel string
	// VocabPath is loaded with LoadVocab when non-empty.
	VocabPath string
	// LoadVocab returns the size of every namespace in a saved vocabulary.
	LoadVocab func(path string) (map[string]int, error)
	// RequiredNamespaces must be present in the vocabulary with at least one
	// real token.
	RequiredNamespaces []string
	// DataFiles is the list of dataset paths to verify on disk.
	DataFiles []string
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// AddFailure appends an external failure message to the result.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// Run executes all configured checks and writes human-readable output to w.
// Each check line is prefixed with PassMark or FailMark.
func Run(cfg Config, w io.Writer) Result {
	var res Result

	// ---- tokenizer ------------------------------------------------------
	if cfg.BuildTokenizer != nil {
		name, err := cfg.BuildTokenizer()
		if err != nil {
			res.fail(fmt.Sprintf("tokenizer: %v", err))
			fmt.Fprintf(w, "%s tokenizer: %v\n", FailMark, err)
		} else {
			fmt.Fprintf(w, "%s tokenizer: %s\n", PassMark, name)
		}
	}

	// ---- sentencepiece model --------------------------------------------
	if cfg.SentencePieceModel != "" {
		checkFile(&res, w, "sentencepiece model", cfg.SentencePieceModel)
	}

	// ---- vocabulary -----------------------------------------------------
	if cfg.VocabPath == "" {
		fmt.Fprintf(w, "%s vocabulary: skipped (no --vocab)\n", PassMark)
	} else {
		checkVocab(&res, w, cfg)
	}

	// ---- data files -----------------------------------------------------
	for _, path := range cfg.DataFiles {
		checkFile(&res, w, "data file", path)
	}

	return res
}

func checkFile(res *Result, w io.Writer, label, path string) {
	info, err := os.Stat(path)
	switch {
	case err != nil:
		res.fail(fmt.Sprintf("%s %q: %v", label, path, err))
		fmt.Fprintf(w, "%s %s %s: not found\n", FailMark, label, path)
	case info.IsDir():
		res.fail(fmt.Sprintf("%s %q: is a directory", label, path))
		fmt.Fprintf(w, "%s %s %s: is a directory\n", FailMark, label, path)
	default:
		fmt.Fprintf(w, "%s %s: %s (%d bytes)\n", PassMark, label, path, info.Size())
	}
}

func checkVocab(res *Result, w io.Writer, cfg Config) {
	if cfg.LoadVocab == nil {
		res.fail("vocabulary: no loader configured")
		fmt.Fprintf(w, "%s vocabulary: no loader configured\n", FailMark)
		return
	}

	sizes, err := cfg.LoadVocab(cfg.VocabPath)
	if err != nil {
		res.fail(fmt.Sprintf("vocabulary %q: %v", cfg.VocabPath, err))
		fmt.Fprintf(w, "%s vocabulary %s: %v\n", FailMark, cfg.VocabPath, err)
		return
	}
	fmt.Fprintf(w, "%s vocabulary: %s (%d namespaces)\n", PassMark, cfg.VocabPath, len(sizes))

	required := append([]string(nil), cfg.RequiredNamespaces...)
	sort.Strings(required)
	for _, ns := range required {
		size, ok := sizes[ns]
		switch {
		case !ok:
			res.fail(fmt.Sprintf("namespace %q: missing from vocabulary", ns))
			fmt.Fprintf(w, "%s namespace %s: missing\n", FailMark, ns)
		case size <= reservedEntries:
			res.fail(fmt.Sprintf("namespace %q: no tokens", ns))
			fmt.Fprintf(w, "%s namespace %s: no tokens\n", FailMark, ns)
		default:
			fmt.Fprintf(w, "%s namespace %s: %d entries\n", PassMark, ns, size)
		}
	}
}
