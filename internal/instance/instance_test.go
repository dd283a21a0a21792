package instance

import (
	"errors"
	"reflect"
	"testing"

	"github.com/example/go-deepqa/internal/dataindexer"
	"github.com/example/go-deepqa/internal/tokenizer"
)

func newTokenizer(t *testing.T, s tokenizer.Strategy) tokenizer.Tokenizer {
	t.Helper()

	p := tokenizer.DefaultParams()
	p.Strategy = s

	tok, err := tokenizer.New(p)
	if err != nil {
		t.Fatalf("tokenizer.New(%s): %v", s, err)
	}

	return tok
}

func newContext(t *testing.T, s tokenizer.Strategy, d *dataindexer.DataIndexer) Context {
	t.Helper()

	return Context{Tokenizer: newTokenizer(t, s), Vocabulary: d, Namespaces: DefaultNamespaces()}
}

func boolPtr(b bool) *bool { return &b }

// ---------------------------------------------------------------------------
// Text classification
// ---------------------------------------------------------------------------

func TestTextClassification_WordsPerStrategy(t *testing.T) {
	inst := NewTextClassificationInstance("This is a sentence.", nil)

	tests := []struct {
		strategy tokenizer.Strategy
		want     tokenizer.Representation
	}{
		{
			tokenizer.StrategyWords,
			tokenizer.Representation{"words": {"this", "is", "a", "sentence", "."}},
		},
		{
			tokenizer.StrategyCharacters,
			tokenizer.Representation{"words": {
				"T", "h", "i", "s", " ", "i", "s", " ", "a", " ",
				"s", "e", "n", "t", "e", "n", "c", "e", ".",
			}},
		},
		{
			tokenizer.StrategyWordsAndCharacters,
			tokenizer.Representation{
				"words": {"this", "is", "a", "sentence", "."},
				"characters": {
					"t", "h", "i", "s", "i", "s", "a",
					"s", "e", "n", "t", "e", "n", "c", "e",
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.strategy.String(), func(t *testing.T) {
			got := inst.Words(newTokenizer(t, tt.strategy))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Words = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTextClassification_ToIndexedInstance(t *testing.T) {
	d := dataindexer.New()
	ns := dataindexer.NamespaceWords
	cs := dataindexer.NamespaceCharacters

	sentence := d.AddWordToIndex("sentence", ns)
	capitalA := d.AddWordToIndex("A", ns)
	space := d.AddWordToIndex(" ", ns)
	a := d.AddWordToIndex("a", ns)
	s := d.AddWordToIndex("s", ns)
	e := d.AddWordToIndex("e", ns)
	n := d.AddWordToIndex("n", ns)
	tt := d.AddWordToIndex("t", ns)
	c := d.AddWordToIndex("c", ns)
	aChar := d.AddWordToIndex("a", cs)
	sChar := d.AddWordToIndex("s", cs)
	eChar := d.AddWordToIndex("e", cs)
	nChar := d.AddWordToIndex("n", cs)
	tChar := d.AddWordToIndex("t", cs)
	cChar := d.AddWordToIndex("c", cs)

	inst := NewTextClassificationInstance("A sentence", nil)

	index := func(t *testing.T, s tokenizer.Strategy) *IndexedTextClassificationInstance {
		t.Helper()

		got, err := inst.ToIndexedInstance(newContext(t, s, d))
		if err != nil {
			t.Fatalf("ToIndexedInstance: %v", err)
		}

		return got.(*IndexedTextClassificationInstance)
	}

	t.Run("words", func(t *testing.T) {
		got := index(t, tokenizer.StrategyWords)
		if want := []int{a, sentence}; !reflect.DeepEqual(got.WordIndices.Indices(), want) {
			t.Errorf("indices = %v, want %v", got.WordIndices.Indices(), want)
		}

		if got.WordIndices.HasCharacters() {
			t.Error("word strategy should not carry characters")
		}
	})

	t.Run("characters", func(t *testing.T) {
		got := index(t, tokenizer.StrategyCharacters)
		want := []int{capitalA, space, s, e, n, tt, e, n, c, e}
		if !reflect.DeepEqual(got.WordIndices.Indices(), want) {
			t.Errorf("indices = %v, want %v", got.WordIndices.Indices(), want)
		}
	})

	t.Run("words and characters", func(t *testing.T) {
		got := index(t, tokenizer.StrategyWordsAndCharacters)
		want := [][]int{
			{a, aChar},
			{sentence, sChar, eChar, nChar, tChar, eChar, nChar, cChar, eChar},
		}
		if !reflect.DeepEqual(got.WordIndices.Entries(), want) {
			t.Errorf("entries = %v, want %v", got.WordIndices.Entries(), want)
		}
	})
}

func TestTextClassification_UnknownWordsMapToUnknownIndex(t *testing.T) {
	d := dataindexer.New()
	known := d.AddWordToIndex("known", dataindexer.NamespaceWords)

	got, err := NewTextClassificationInstance("known stranger", nil).
		ToIndexedInstance(newContext(t, tokenizer.StrategyWords, d))
	if err != nil {
		t.Fatalf("ToIndexedInstance: %v", err)
	}

	want := []int{known, dataindexer.UnknownIndex}
	if idx := got.(*IndexedTextClassificationInstance).WordIndices.Indices(); !reflect.DeepEqual(idx, want) {
		t.Errorf("indices = %v, want %v", idx, want)
	}
}

func TestTextClassification_PadLabel(t *testing.T) {
	tests := []struct {
		name  string
		label *bool
		want  []int
	}{
		{"true", boolPtr(true), []int{0, 1}},
		{"false", boolPtr(false), []int{1, 0}},
		{"unlabeled", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := &IndexedTextClassificationInstance{WordIndices: WordsOnly(4, 5), Label: tt.label}

			padded, err := inst.Pad(PaddingLengths{KeySentenceWords: 3}, TruncateReject)
			if err != nil {
				t.Fatalf("Pad: %v", err)
			}

			if got := padded.Inputs[InputWords].Data; !reflect.DeepEqual(got, []int{0, 4, 5}) {
				t.Errorf("words = %v, want [0 4 5]", got)
			}

			label, ok := padded.Outputs[OutputLabel]
			if tt.want == nil {
				if ok {
					t.Errorf("unlabeled instance produced label %v", label.Data)
				}
				return
			}

			if !reflect.DeepEqual(label.Data, tt.want) {
				t.Errorf("label = %v, want %v", label.Data, tt.want)
			}
		})
	}
}

func TestReadTextClassification(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantText  string
		wantLabel *bool
		wantErr   bool
	}{
		{"text only", "a sentence", "a sentence", nil, false},
		{"text and label", "a sentence\t1", "a sentence", boolPtr(true), false},
		{"numeric text and label", "42\ttrue", "42", boolPtr(true), false},
		{"index with empty label", "3\ta sentence\t", "a sentence", nil, false},
		{"index text label", "3\ta sentence\tfalse\n", "a sentence", boolPtr(false), false},
		{"bad label", "a sentence\tmaybe", "", nil, true},
		{"index and text without label", "12\ta sentence", "", nil, true},
		{"non-numeric index", "x\ta sentence\t1", "", nil, true},
		{"too many fields", "1\t2\t3\t4", "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadTextClassification(tt.line)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}

			if err != nil {
				t.Fatalf("ReadTextClassification: %v", err)
			}

			if got.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", got.Text, tt.wantText)
			}

			if !reflect.DeepEqual(got.Label, tt.wantLabel) {
				t.Errorf("Label = %v, want %v", got.Label, tt.wantLabel)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Padding
// ---------------------------------------------------------------------------

func TestPaddingLengths_WordsAndCharacters(t *testing.T) {
	inst := &IndexedTextClassificationInstance{WordIndices: WordsWithCharacters([]int{1, 2}, []int{3, 1, 2})}

	want := PaddingLengths{KeySentenceWords: 2, KeyWordCharacters: 3}
	if got := inst.PaddingLengths(); !reflect.DeepEqual(got, want) {
		t.Errorf("PaddingLengths = %v, want %v", got, want)
	}
}

func TestPaddingLengths_WordsOnly(t *testing.T) {
	want := PaddingLengths{KeySentenceWords: 3}
	if got := WordsOnly(5, 6, 7).PaddingLengths(); !reflect.DeepEqual(got, want) {
		t.Errorf("PaddingLengths = %v, want %v", got, want)
	}
}

func TestPadWordSequence(t *testing.T) {
	withChars := WordsWithCharacters([]int{1, 2}, []int{3, 1, 2})

	tests := []struct {
		name       string
		seq        WordSequence
		lengths    PaddingLengths
		truncation Truncation
		wantShape  []int
		wantRows   [][]int
		wantErr    error
	}{
		{
			name:      "characters fewer words",
			seq:       withChars,
			lengths:   PaddingLengths{KeySentenceWords: 3, KeyWordCharacters: 4},
			wantShape: []int{3, 4},
			wantRows:  [][]int{{0, 0, 0, 0}, {1, 2, 0, 0}, {3, 1, 2, 0}},
		},
		{
			name:      "characters many more words",
			seq:       withChars,
			lengths:   PaddingLengths{KeySentenceWords: 5, KeyWordCharacters: 4},
			wantShape: []int{5, 4},
			wantRows: [][]int{
				{0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}, {1, 2, 0, 0}, {3, 1, 2, 0},
			},
		},
		{
			name:      "characters exact",
			seq:       withChars,
			lengths:   PaddingLengths{KeySentenceWords: 2, KeyWordCharacters: 3},
			wantShape: []int{2, 3},
			wantRows:  [][]int{{1, 2, 0}, {3, 1, 2}},
		},
		{
			name:      "characters cut keeps first entries",
			seq:       withChars,
			lengths:   PaddingLengths{KeySentenceWords: 2, KeyWordCharacters: 2},
			wantShape: []int{2, 2},
			wantRows:  [][]int{{1, 2}, {3, 1}},
		},
		{
			name:      "words left padded",
			seq:       WordsOnly(7, 8),
			lengths:   PaddingLengths{KeySentenceWords: 4},
			wantShape: []int{4},
			wantRows:  [][]int{{0, 0, 7, 8}},
		},
		{
			name:      "empty sequence",
			seq:       WordsOnly(),
			lengths:   PaddingLengths{KeySentenceWords: 2},
			wantShape: []int{2},
			wantRows:  [][]int{{0, 0}},
		},
		{
			name:      "too long rejected",
			seq:       WordsOnly(1, 2, 3),
			lengths:   PaddingLengths{KeySentenceWords: 2},
			wantErr:   ErrSequenceTooLong,
		},
		{
			name:       "too long truncated keeps last",
			seq:        WordsOnly(1, 2, 3),
			lengths:    PaddingLengths{KeySentenceWords: 2},
			truncation: TruncateFront,
			wantShape:  []int{2},
			wantRows:   [][]int{{2, 3}},
		},
		{
			name:       "characters truncated keeps last words",
			seq:        withChars,
			lengths:    PaddingLengths{KeySentenceWords: 1, KeyWordCharacters: 3},
			truncation: TruncateFront,
			wantShape:  []int{1, 3},
			wantRows:   [][]int{{3, 1, 2}},
		},
		{
			name:    "missing word count",
			seq:     WordsOnly(1),
			lengths: PaddingLengths{},
			wantErr: ErrMissingPaddingLength,
		},
		{
			name:    "missing character count",
			seq:     withChars,
			lengths: PaddingLengths{KeySentenceWords: 2},
			wantErr: ErrMissingPaddingLength,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PadWordSequence(tt.seq, tt.lengths, tt.truncation)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("PadWordSequence: %v", err)
			}

			if !reflect.DeepEqual(got.Shape, tt.wantShape) {
				t.Errorf("Shape = %v, want %v", got.Shape, tt.wantShape)
			}

			if !reflect.DeepEqual(got.Rows(), tt.wantRows) {
				t.Errorf("Rows = %v, want %v", got.Rows(), tt.wantRows)
			}
		})
	}
}

func TestPadWordSequence_PaddingWordInsideSequence(t *testing.T) {
	seq := WordsWithCharacters([]int{4, 5}, nil, []int{6})

	got, err := PadWordSequence(seq, PaddingLengths{KeySentenceWords: 3, KeyWordCharacters: 2}, TruncateReject)
	if err != nil {
		t.Fatalf("PadWordSequence: %v", err)
	}

	want := [][]int{{4, 5}, {0, 0}, {6, 0}}
	if !reflect.DeepEqual(got.Rows(), want) {
		t.Errorf("Rows = %v, want %v", got.Rows(), want)
	}
}

func TestPaddingLengths_MergeAndOverride(t *testing.T) {
	a := PaddingLengths{KeySentenceWords: 3, KeyWordCharacters: 5}
	b := PaddingLengths{KeySentenceWords: 7}

	merged := a.Merge(b)
	want := PaddingLengths{KeySentenceWords: 7, KeyWordCharacters: 5}
	if !reflect.DeepEqual(merged, want) {
		t.Errorf("Merge = %v, want %v", merged, want)
	}

	got := merged.Override(PaddingLengths{KeySentenceWords: 10, KeyWordCharacters: 0, "other": 4})
	want = PaddingLengths{KeySentenceWords: 10, KeyWordCharacters: 5}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Override = %v, want %v", got, want)
	}

	if a[KeySentenceWords] != 3 {
		t.Error("Merge must not modify its receiver")
	}
}

// ---------------------------------------------------------------------------
// Verb semantics
// ---------------------------------------------------------------------------

func verbSemanticsIndexer(tokens []string) *dataindexer.DataIndexer {
	d := dataindexer.New()
	for _, tok := range tokens {
		d.AddWordToIndex(tok, dataindexer.NamespaceWords)
	}

	d.AddWordToIndex("MOVE", dataindexer.NamespaceStateChanges)
	d.AddWordToIndex("CREATE", dataindexer.NamespaceStateChanges)

	for _, tag := range []string{"O", "E", "V"} {
		d.AddWordToIndex(tag, dataindexer.NamespaceTags)
	}

	return d
}

func TestVerbSemantics_Pad(t *testing.T) {
	inst, err := ReadVerbSemantics("The seed grows into a plant\t2,3\t1,2\tCREATE\tO E V O O O")
	if err != nil {
		t.Fatalf("ReadVerbSemantics: %v", err)
	}

	d := verbSemanticsIndexer([]string{"the", "seed", "grows", "into", "a", "plant"})

	indexed, err := inst.ToIndexedInstance(newContext(t, tokenizer.StrategyWords, d))
	if err != nil {
		t.Fatalf("ToIndexedInstance: %v", err)
	}

	if got := indexed.PaddingLengths(); !reflect.DeepEqual(got, PaddingLengths{KeySentenceWords: 6}) {
		t.Errorf("PaddingLengths = %v", got)
	}

	padded, err := indexed.Pad(PaddingLengths{KeySentenceWords: 8}, TruncateReject)
	if err != nil {
		t.Fatalf("Pad: %v", err)
	}

	checks := []struct {
		name string
		got  Array
		want []int
	}{
		{"words", padded.Inputs[InputWords], []int{0, 0, 2, 3, 4, 5, 6, 7}},
		{"verb", padded.Inputs[InputVerb], []int{0, 0, 0, 0, 1, 0, 0, 0}},
		{"entity", padded.Inputs[InputEntity], []int{0, 0, 0, 1, 0, 0, 0, 0}},
		{"state change", padded.Outputs[OutputStateChange], []int{0, 1}},
	}
	for _, c := range checks {
		if !reflect.DeepEqual(c.got.Data, c.want) {
			t.Errorf("%s = %v, want %v", c.name, c.got.Data, c.want)
		}
	}

	tags := padded.Outputs[OutputTags]
	if !reflect.DeepEqual(tags.Shape, []int{8, 3}) {
		t.Fatalf("tags shape = %v, want [8 3]", tags.Shape)
	}

	wantTags := [][]int{
		{0, 0, 0}, {0, 0, 0},
		{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 0, 0}, {1, 0, 0}, {1, 0, 0},
	}
	if !reflect.DeepEqual(tags.Rows(), wantTags) {
		t.Errorf("tags = %v, want %v", tags.Rows(), wantTags)
	}
}

func TestVerbSemantics_MasksFollowCharacterShape(t *testing.T) {
	inst := VerbSemanticsInstance{
		Tokens: []string{"Seeds", "grow"},
		Verb:   Span{Start: 1, End: 2},
		Entity: Span{Start: 0, End: 1},
	}

	d := verbSemanticsIndexer([]string{"seeds", "grow"})
	for _, ch := range []string{"s", "e", "d", "g", "r", "o", "w"} {
		d.AddWordToIndex(ch, dataindexer.NamespaceCharacters)
	}

	indexed, err := inst.ToIndexedInstance(newContext(t, tokenizer.StrategyWordsAndCharacters, d))
	if err != nil {
		t.Fatalf("ToIndexedInstance: %v", err)
	}

	lengths := indexed.PaddingLengths()
	if lengths[KeyWordCharacters] != 6 {
		t.Errorf("num_word_characters = %d, want 6", lengths[KeyWordCharacters])
	}

	lengths[KeySentenceWords] = 3

	padded, err := indexed.Pad(lengths, TruncateReject)
	if err != nil {
		t.Fatalf("Pad: %v", err)
	}

	zeros := []int{0, 0, 0, 0, 0, 0}
	ones := []int{1, 1, 1, 1, 1, 1}

	if got, want := padded.Inputs[InputVerb].Rows(), [][]int{zeros, zeros, ones}; !reflect.DeepEqual(got, want) {
		t.Errorf("verb = %v, want %v", got, want)
	}

	if got, want := padded.Inputs[InputEntity].Rows(), [][]int{zeros, ones, zeros}; !reflect.DeepEqual(got, want) {
		t.Errorf("entity = %v, want %v", got, want)
	}

	if !reflect.DeepEqual(padded.Inputs[InputWords].Shape, []int{3, 6}) {
		t.Errorf("words shape = %v, want [3 6]", padded.Inputs[InputWords].Shape)
	}

	if len(padded.Outputs) != 0 {
		t.Errorf("unlabeled instance produced outputs %v", padded.Outputs)
	}
}

func TestVerbSemantics_RejectsCharacterStrategy(t *testing.T) {
	inst := VerbSemanticsInstance{Tokens: []string{"grow"}, Verb: Span{0, 1}}

	_, err := inst.ToIndexedInstance(newContext(t, tokenizer.StrategyCharacters, dataindexer.New()))
	if !errors.Is(err, ErrUnsupportedStrategy) {
		t.Fatalf("error = %v, want %v", err, ErrUnsupportedStrategy)
	}
}

func TestVerbSemantics_Words(t *testing.T) {
	inst := VerbSemanticsInstance{
		Tokens:      []string{"Water", "evaporates"},
		Verb:        Span{1, 2},
		Entity:      Span{0, 1},
		StateChange: "DESTROY",
		Tags:        []string{"E", "V"},
	}

	want := tokenizer.Representation{
		tokenizer.KeyWords: {"water", "evaporates"},
		KindStateChanges:   {"DESTROY"},
		KindTags:           {"E", "V"},
	}
	if got := inst.Words(newTokenizer(t, tokenizer.StrategyWords)); !reflect.DeepEqual(got, want) {
		t.Errorf("Words = %v, want %v", got, want)
	}
}

func TestReadVerbSemantics_Errors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"too few fields", "a b\t0,1"},
		{"span without comma", "a b\t0\t1,2"},
		{"span not numeric", "a b\tx,1\t1,2"},
		{"span reversed", "a b\t1,0\t1,2"},
		{"span past end", "a b\t0,1\t1,3"},
		{"tag count mismatch", "a b\t0,1\t1,2\tMOVE\tO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadVerbSemantics(tt.line); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

func TestParseType(t *testing.T) {
	tests := []struct {
		name    string
		want    Type
		wantErr bool
	}{
		{"", TypeTextClassification, false},
		{"text_classification", TypeTextClassification, false},
		{"TextClassification", TypeTextClassification, false},
		{"verb-semantics", TypeVerbSemantics, false},
		{"question_answer", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseType(tt.name)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownType) {
					t.Fatalf("error = %v, want %v", err, ErrUnknownType)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseType: %v", err)
			}

			if got != tt.want {
				t.Errorf("ParseType(%q) = %s, want %s", tt.name, got, tt.want)
			}
		})
	}
}

func TestType_ReadLine(t *testing.T) {
	inst, err := TypeVerbSemantics.ReadLine("a b\t0,1\t1,2")
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}

	if _, ok := inst.(VerbSemanticsInstance); !ok {
		t.Errorf("ReadLine returned %T", inst)
	}

	if _, err := TypeTextClassification.ReadLine("a\tb\tc\td"); err == nil {
		t.Error("expected error for malformed line")
	}
}
