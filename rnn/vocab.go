package rnn

// VocabWord is one vocabulary entry. Indices are dense, assigned once
// and stable for the lifetime of the model; index 0 is the
// end-of-sentence token.
type VocabWord struct {
	Word       string
	Count      int
	ClassIndex int
}

// Vocabulary maps words and dependency labels to dense indices and owns
// the frequency-based word-class partition of the factored output layer.
type Vocabulary struct {
	Words []VocabWord

	wordIndex  map[string]int
	labels     []string
	labelIndex map[string]int

	// Contiguous per-class index ranges; classEnd is exclusive.
	classStart []int
	classEnd   []int
}

func NewVocabulary() *Vocabulary {
	return &Vocabulary{
		wordIndex:  make(map[string]int),
		labelIndex: make(map[string]int),
	}
}

// Reset drops all entries so the vocabulary can be rebuilt.
func (v *Vocabulary) Reset() {
	v.Words = v.Words[:0]
	v.wordIndex = make(map[string]int)
	v.labels = v.labels[:0]
	v.labelIndex = make(map[string]int)
	v.classStart = nil
	v.classEnd = nil
}

// AddWordToVocabulary appends a new entry with zero count and returns
// its index. If the word is already present, the existing index is
// returned and nothing changes.
func (v *Vocabulary) AddWordToVocabulary(word string) int {
	if i, ok := v.wordIndex[word]; ok {
		return i
	}
	i := len(v.Words)
	v.Words = append(v.Words, VocabWord{Word: word})
	v.wordIndex[word] = i
	return i
}

// SearchWordInVocabulary returns the index of a word, or -1.
func (v *Vocabulary) SearchWordInVocabulary(word string) int {
	if i, ok := v.wordIndex[word]; ok {
		return i
	}
	return -1
}

// AddLabel records a dependency label with the next sequential index.
// Labels are kept in corpus-encounter order, never resorted.
func (v *Vocabulary) AddLabel(label string) int {
	if i, ok := v.labelIndex[label]; ok {
		return i
	}
	i := len(v.labels)
	v.labels = append(v.labels, label)
	v.labelIndex[label] = i
	return i
}

// SearchLabelInVocabulary returns the index of a label, or -1.
func (v *Vocabulary) SearchLabelInVocabulary(label string) int {
	if i, ok := v.labelIndex[label]; ok {
		return i
	}
	return -1
}

func (v *Vocabulary) NumWords() int  { return len(v.Words) }
func (v *Vocabulary) NumLabels() int { return len(v.labels) }
func (v *Vocabulary) NumClasses() int {
	return len(v.classStart)
}

// LabelAt returns the label string at an index.
func (v *Vocabulary) LabelAt(i int) string { return v.labels[i] }

// WordClass returns the class of a word index.
func (v *Vocabulary) WordClass(word int) int {
	return v.Words[word].ClassIndex
}

// ClassRange returns the contiguous [start, end) word-index range of a
// class. Empty classes return start == end.
func (v *Vocabulary) ClassRange(class int) (int, int) {
	return v.classStart[class], v.classEnd[class]
}

// AssignClassesByFrequency partitions the vocabulary into numClasses
// classes by cumulative word frequency. The vocabulary is already
// frequency-sorted, so class indices are nondecreasing over word
// indices and every class occupies a contiguous index range.
func (v *Vocabulary) AssignClassesByFrequency(numClasses int) {
	if numClasses < 1 {
		numClasses = 1
	}
	total := 0.0
	for _, w := range v.Words {
		total += float64(w.Count)
	}
	if total <= 0 {
		total = 1
	}

	df := 0.0
	class := 0
	for i := range v.Words {
		v.Words[i].ClassIndex = class
		df += float64(v.Words[i].Count) / total
		if df > float64(class+1)/float64(numClasses) && class < numClasses-1 {
			class++
		}
	}

	v.buildClassRanges(numClasses)
}

// buildClassRanges derives the contiguous [start, end) range of every
// class from the per-word class indices, which are nondecreasing over
// the frequency-sorted vocabulary.
func (v *Vocabulary) buildClassRanges(numClasses int) {
	v.classStart = make([]int, numClasses)
	v.classEnd = make([]int, numClasses)
	for c := range v.classStart {
		v.classStart[c] = -1
	}
	for i, w := range v.Words {
		if v.classStart[w.ClassIndex] < 0 {
			v.classStart[w.ClassIndex] = i
		}
		v.classEnd[w.ClassIndex] = i + 1
	}
	for c := range v.classStart {
		if v.classStart[c] < 0 {
			v.classStart[c] = 0
			v.classEnd[c] = 0
		}
	}
}
