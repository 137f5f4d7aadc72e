package corpus

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

const readerBookJSON = `[
  [ [[0,"the",1.0,"ROOT"],[1,"cat",1.0,"nsubj"],[2,"the",1.0,"det"],[3,"</s>",1.0,"ROOT"]],
    [[0,"the",0.5,"ROOT"],[4,"cat",0.5,"nsubj"]] ],
  [ [[0,"the",1.0,"ROOT"],[1,"cat",1.0,"nsubj"],[2,"sat",1.0,"ROOT"],[3,"</s>",1.0,"ROOT"]] ]
]`

func writeBook(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "book.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseBookFile(t *testing.T) {
	path := writeBook(t, readerBookJSON)
	book, err := parseBookFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(book) != 2 {
		t.Fatalf("sentences = %d, want 2", len(book))
	}
	if len(book[0]) != 2 || len(book[1]) != 1 {
		t.Fatalf("unrolls = [%d %d], want [2 1]", len(book[0]), len(book[1]))
	}
	tok := book[0][0][1]
	if tok.Position != 1 || tok.Word != "cat" || tok.Discount != 1.0 || tok.Label != "nsubj" {
		t.Errorf("token = %+v", tok)
	}
}

func TestParseBookFileRejectsBadTuple(t *testing.T) {
	path := writeBook(t, `[ [ [[0,"the",1.0]] ] ]`)
	if _, err := parseBookFile(path); err == nil {
		t.Fatal("expected an error for a 3-element token tuple")
	}
}

func TestReadVocabularyCountsDiscounts(t *testing.T) {
	path := writeBook(t, readerBookJSON)
	raw := NewCorpus([]string{path})

	total, err := raw.ReadVocabulary(false)
	if err != nil {
		t.Fatal(err)
	}
	if total != 10 {
		t.Errorf("total tokens = %d, want 10", total)
	}
	// "the": 3 full visits plus one discounted revisit.
	if got := raw.wordCounts["the"]; math.Abs(got-3.5) > 1e-12 {
		t.Errorf("discounted count of \"the\" = %g, want 3.5", got)
	}
	if got := raw.wordCounts["cat"]; math.Abs(got-2.5) > 1e-12 {
		t.Errorf("discounted count of \"cat\" = %g, want 2.5", got)
	}
	// Labels in encounter order.
	want := []string{"ROOT", "nsubj", "det"}
	if len(raw.LabelsReverse) != len(want) {
		t.Fatalf("labels = %v, want %v", raw.LabelsReverse, want)
	}
	for i, l := range want {
		if raw.LabelsReverse[i] != l {
			t.Errorf("label %d = %s, want %s", i, raw.LabelsReverse[i], l)
		}
	}
}

func TestFilterSortVocabularyPinsSentinels(t *testing.T) {
	path := writeBook(t, readerBookJSON)
	raw := NewCorpus([]string{path})
	if _, err := raw.ReadVocabulary(false); err != nil {
		t.Fatal(err)
	}

	c := NewCorpus([]string{path})
	c.MinWordCount = 2
	c.FilterSortVocabulary(raw)

	if c.VocabularyReverse[0] != EndOfSentence || c.VocabularyReverse[1] != Unknown {
		t.Fatalf("vocabulary head = %v, want [</s> <unk>]", c.VocabularyReverse[:2])
	}
	if got := c.SearchWord("the"); got != 2 {
		t.Errorf("index of \"the\" = %d, want 2", got)
	}
	if got := c.SearchWord("cat"); got != 3 {
		t.Errorf("index of \"cat\" = %d, want 3", got)
	}
	// "sat" appears once, below the pruning threshold.
	if got := c.SearchWord("sat"); got != -1 {
		t.Errorf("index of pruned \"sat\" = %d, want -1", got)
	}
}

func TestReadBookMapsUnknownToMinusOne(t *testing.T) {
	path := writeBook(t, readerBookJSON)
	raw := NewCorpus([]string{path})
	if _, err := raw.ReadVocabulary(false); err != nil {
		t.Fatal(err)
	}

	c := NewCorpus([]string{path})
	c.MinWordCount = 2
	c.FilterSortVocabulary(raw)

	if err := c.NextBook(); err != nil {
		t.Fatal(err)
	}
	if err := c.ReadBook(false); err != nil {
		t.Fatal(err)
	}
	book := c.CurrentBook
	book.ResetSentence()
	book.NextSentence() // second sentence holds the pruned word

	words := []int{book.CurrentTokenWord()}
	for book.NextTokenInUnroll() >= 0 {
		words = append(words, book.CurrentTokenWord())
	}
	// the, cat, sat (pruned), </s>
	want := []int{2, 3, -1, 0}
	if len(words) != len(want) {
		t.Fatalf("words = %v, want %v", words, want)
	}
	for i := range want {
		if words[i] != want[i] {
			t.Fatalf("words = %v, want %v", words, want)
		}
	}
}

func TestTreeLabelsFoldedIntoWords(t *testing.T) {
	path := writeBook(t, readerBookJSON)
	raw := NewCorpus([]string{path})
	if _, err := raw.ReadVocabulary(true); err != nil {
		t.Fatal(err)
	}
	if got := raw.wordCounts["cat/nsubj"]; math.Abs(got-2.5) > 1e-12 {
		t.Errorf("discounted count of \"cat/nsubj\" = %g, want 2.5", got)
	}
	// "the" splits across its two dependency labels.
	if got := raw.wordCounts["the/ROOT"]; math.Abs(got-2.5) > 1e-12 {
		t.Errorf("discounted count of \"the/ROOT\" = %g, want 2.5", got)
	}
	if got := raw.wordCounts["the/det"]; math.Abs(got-1.0) > 1e-12 {
		t.Errorf("discounted count of \"the/det\" = %g, want 1", got)
	}
}

func TestNextBookWrapsAround(t *testing.T) {
	a := NewBookFromTokens([][][]Token{{{{Position: 0, Word: 0, Discount: 1, Label: 0}}}})
	b := NewBookFromTokens([][][]Token{{{{Position: 0, Word: 1, Discount: 1, Label: 0}}}})
	c := NewCorpusFromBooks([]*BookUnrolls{a, b})

	for epoch := 0; epoch < 2; epoch++ {
		for _, want := range []*BookUnrolls{a, b} {
			if err := c.NextBook(); err != nil {
				t.Fatal(err)
			}
			if err := c.ReadBook(false); err != nil {
				t.Fatal(err)
			}
			if c.CurrentBook != want {
				t.Fatal("books served out of order")
			}
		}
	}
}

func TestNextBookEmptyCorpus(t *testing.T) {
	c := NewCorpus(nil)
	if err := c.NextBook(); err == nil {
		t.Fatal("expected an error on an empty corpus")
	}
}
