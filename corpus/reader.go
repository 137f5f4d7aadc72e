package corpus

import (
	"errors"
	"fmt"
	"sort"
)

// Tokens automatically present in every vocabulary.
const (
	EndOfSentence = "</s>"
	Unknown       = "<unk>"
)

// DefaultMinWordCount is the frequency-pruning threshold applied by
// FilterSortVocabulary when none is configured.
const DefaultMinWordCount = 3

// Corpus reads a list of dependency-tree books, counts a discounted
// vocabulary over them, and serves one decoded book at a time to the
// training and evaluation loops.
type Corpus struct {
	bookFiles []string
	books     []*BookUnrolls // in-memory alternative to bookFiles

	idxBook     int
	CurrentBook *BookUnrolls

	// Raw statistics accumulated by ReadVocabulary.
	wordCounts map[string]float64
	numTokens  int64

	// Built vocabulary, after FilterSortVocabulary or CopyVocabulary.
	VocabularyReverse    []string  // index -> word
	WordCountsDiscounted []float64 // index -> discounted count
	LabelsReverse        []string  // index -> dependency label
	wordIndex            map[string]int
	labelIndex           map[string]int

	// MinWordCount prunes words rarer than this during
	// FilterSortVocabulary; 0 means DefaultMinWordCount.
	MinWordCount int
}

// NewCorpus builds a corpus over a list of book file paths.
func NewCorpus(bookFiles []string) *Corpus {
	return &Corpus{bookFiles: bookFiles, idxBook: -1}
}

// NewCorpusFromBooks builds a corpus over pre-decoded in-memory books,
// used by tests and synthetic experiments.
func NewCorpusFromBooks(books []*BookUnrolls) *Corpus {
	return &Corpus{books: books, idxBook: -1}
}

func (c *Corpus) NumBooks() int {
	if len(c.books) > 0 {
		return len(c.books)
	}
	return len(c.bookFiles)
}

func (c *Corpus) NumWords() int {
	if len(c.VocabularyReverse) > 0 {
		return len(c.VocabularyReverse)
	}
	return len(c.wordCounts)
}

func (c *Corpus) NumLabels() int {
	return len(c.LabelsReverse)
}

// NumTokens returns the total token count seen by ReadVocabulary.
func (c *Corpus) NumTokens() int64 {
	return c.numTokens
}

// wordKey folds the dependency label into the word string when labels
// are carried inside the word tokens themselves.
func wordKey(word, label string, useTreeLabels bool) string {
	if useTreeLabels && label != "" {
		return word + "/" + label
	}
	return word
}

// ReadVocabulary scans every book once, accumulating discount-weighted
// word counts and the dependency labels in encounter order. It returns
// the total number of tokens read.
func (c *Corpus) ReadVocabulary(useTreeLabels bool) (int64, error) {
	c.wordCounts = make(map[string]float64)
	c.LabelsReverse = c.LabelsReverse[:0]
	c.labelIndex = make(map[string]int)
	c.numTokens = 0

	for _, path := range c.bookFiles {
		book, err := parseBookFile(path)
		if err != nil {
			return 0, err
		}
		for _, sentence := range book {
			for _, unroll := range sentence {
				for _, t := range unroll {
					c.wordCounts[wordKey(t.Word, t.Label, useTreeLabels)] += t.Discount
					c.numTokens++
					if _, ok := c.labelIndex[t.Label]; !ok {
						c.labelIndex[t.Label] = len(c.LabelsReverse)
						c.LabelsReverse = append(c.LabelsReverse, t.Label)
					}
				}
			}
		}
	}
	return c.numTokens, nil
}

// FilterSortVocabulary rebuilds this corpus's vocabulary from the raw
// counts of another corpus: words rarer than the pruning threshold are
// dropped, the rest are sorted by decreasing discounted count, and the
// end-of-sentence and unknown tokens are pinned to the front.
func (c *Corpus) FilterSortVocabulary(raw *Corpus) {
	minCount := c.MinWordCount
	if minCount <= 0 {
		minCount = DefaultMinWordCount
	}

	type entry struct {
		word  string
		count float64
	}
	entries := make([]entry, 0, len(raw.wordCounts))
	for word, count := range raw.wordCounts {
		if word == EndOfSentence || word == Unknown {
			continue
		}
		if count >= float64(minCount) {
			entries = append(entries, entry{word, count})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].word < entries[j].word
	})

	c.VocabularyReverse = make([]string, 0, len(entries)+2)
	c.WordCountsDiscounted = make([]float64, 0, len(entries)+2)
	c.VocabularyReverse = append(c.VocabularyReverse, EndOfSentence, Unknown)
	c.WordCountsDiscounted = append(c.WordCountsDiscounted,
		raw.wordCounts[EndOfSentence], raw.wordCounts[Unknown])
	for _, e := range entries {
		c.VocabularyReverse = append(c.VocabularyReverse, e.word)
		c.WordCountsDiscounted = append(c.WordCountsDiscounted, e.count)
	}

	c.wordIndex = make(map[string]int, len(c.VocabularyReverse))
	for i, w := range c.VocabularyReverse {
		c.wordIndex[w] = i
	}

	c.LabelsReverse = append([]string(nil), raw.LabelsReverse...)
	c.labelIndex = make(map[string]int, len(c.LabelsReverse))
	for i, l := range c.LabelsReverse {
		c.labelIndex[l] = i
	}
	c.numTokens = raw.numTokens
}

// CopyVocabulary copies the built vocabulary of another corpus, so that
// validation and test books are encoded with the training indices.
func (c *Corpus) CopyVocabulary(src *Corpus) {
	c.SetVocabulary(src.VocabularyReverse, src.WordCountsDiscounted, src.LabelsReverse)
}

// SetVocabulary installs an explicit vocabulary, as when a persisted
// model is reloaded for evaluation.
func (c *Corpus) SetVocabulary(words []string, counts []float64, labels []string) {
	c.VocabularyReverse = append([]string(nil), words...)
	if counts != nil {
		c.WordCountsDiscounted = append([]float64(nil), counts...)
	} else {
		c.WordCountsDiscounted = make([]float64, len(words))
	}
	c.LabelsReverse = append([]string(nil), labels...)
	c.wordIndex = make(map[string]int, len(words))
	for i, w := range words {
		c.wordIndex[w] = i
	}
	c.labelIndex = make(map[string]int, len(labels))
	for i, l := range labels {
		c.labelIndex[l] = i
	}
}

// NextBook advances to the next book, wrapping around at the end of the
// list so that successive epochs revisit the books in order.
func (c *Corpus) NextBook() error {
	n := c.NumBooks()
	if n == 0 {
		return errors.New("corpus has no books")
	}
	c.idxBook = (c.idxBook + 1) % n
	return nil
}

// ReadBook decodes the current book into token indices using the built
// vocabulary. Unknown words map to -1; an explicit unknown-word token in
// the book maps to its vocabulary index.
func (c *Corpus) ReadBook(useTreeLabels bool) error {
	if c.idxBook < 0 {
		return errors.New("NextBook must be called before ReadBook")
	}
	if len(c.books) > 0 {
		c.CurrentBook = c.books[c.idxBook]
		c.CurrentBook.ResetSentence()
		return nil
	}
	if c.wordIndex == nil {
		return errors.New("vocabulary not built")
	}

	book, err := parseBookFile(c.bookFiles[c.idxBook])
	if err != nil {
		return err
	}
	sentences := make([][][]Token, len(book))
	for i, sentence := range book {
		sentences[i] = make([][]Token, len(sentence))
		for j, unroll := range sentence {
			tokens := make([]Token, len(unroll))
			for k, t := range unroll {
				word, ok := c.wordIndex[wordKey(t.Word, t.Label, useTreeLabels)]
				if !ok {
					word = -1
				}
				label, ok := c.labelIndex[t.Label]
				if !ok {
					label = -1
				}
				tokens[k] = Token{
					Position: t.Position,
					Word:     word,
					Discount: t.Discount,
					Label:    label,
				}
			}
			sentences[i][j] = tokens
		}
	}
	c.CurrentBook = NewBookFromTokens(sentences)
	return nil
}

// SearchWord returns the vocabulary index of a word, or -1.
func (c *Corpus) SearchWord(word string) int {
	if i, ok := c.wordIndex[word]; ok {
		return i
	}
	return -1
}

// SearchLabel returns the label index of a dependency label, or -1.
func (c *Corpus) SearchLabel(label string) int {
	if i, ok := c.labelIndex[label]; ok {
		return i
	}
	return -1
}

// String describes the corpus for diagnostics.
func (c *Corpus) String() string {
	return fmt.Sprintf("corpus{books: %d, words: %d, labels: %d}",
		c.NumBooks(), c.NumWords(), c.NumLabels())
}
