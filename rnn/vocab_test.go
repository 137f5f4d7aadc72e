package rnn

import "testing"

func TestAddWordReturnsExistingIndex(t *testing.T) {
	v := NewVocabulary()
	a := v.AddWordToVocabulary("</s>")
	b := v.AddWordToVocabulary("cat")
	if a != 0 || b != 1 {
		t.Fatalf("indices = %d, %d, want 0, 1", a, b)
	}
	if got := v.AddWordToVocabulary("cat"); got != 1 {
		t.Errorf("duplicate add returned %d, want 1", got)
	}
	if v.NumWords() != 2 {
		t.Errorf("vocabulary size = %d, want 2", v.NumWords())
	}
	if got := v.SearchWordInVocabulary("dog"); got != -1 {
		t.Errorf("missing word index = %d, want -1", got)
	}
}

func TestLabelsKeepEncounterOrder(t *testing.T) {
	v := NewVocabulary()
	v.AddLabel("ROOT")
	v.AddLabel("nsubj")
	v.AddLabel("ROOT")
	if v.NumLabels() != 2 {
		t.Fatalf("label count = %d, want 2", v.NumLabels())
	}
	if v.LabelAt(0) != "ROOT" || v.LabelAt(1) != "nsubj" {
		t.Errorf("labels = [%s %s], want [ROOT nsubj]", v.LabelAt(0), v.LabelAt(1))
	}
	if got := v.SearchLabelInVocabulary("dobj"); got != -1 {
		t.Errorf("missing label index = %d, want -1", got)
	}
}

func TestAssignClassesByFrequency(t *testing.T) {
	v := NewVocabulary()
	words := []string{"</s>", "the", "cat", "sat", "mat"}
	counts := []int{10, 5, 3, 2, 1}
	for i, w := range words {
		idx := v.AddWordToVocabulary(w)
		v.Words[idx].Count = counts[i]
	}
	v.AssignClassesByFrequency(2)

	if v.NumClasses() != 2 {
		t.Fatalf("classes = %d, want 2", v.NumClasses())
	}
	// Class indices are nondecreasing over the frequency-sorted words.
	prev := 0
	for i := 0; i < v.NumWords(); i++ {
		c := v.WordClass(i)
		if c < prev {
			t.Fatalf("word %d class %d below previous %d", i, c, prev)
		}
		prev = c
	}
	// The class ranges partition the vocabulary contiguously.
	next := 0
	for c := 0; c < v.NumClasses(); c++ {
		start, end := v.ClassRange(c)
		if start != next {
			t.Fatalf("class %d starts at %d, want %d", c, start, next)
		}
		for i := start; i < end; i++ {
			if v.WordClass(i) != c {
				t.Fatalf("word %d in range of class %d has class %d", i, c, v.WordClass(i))
			}
		}
		next = end
	}
	if next != v.NumWords() {
		t.Fatalf("ranges cover %d words, want %d", next, v.NumWords())
	}
}

func TestClassRangeEmptyClasses(t *testing.T) {
	v := NewVocabulary()
	idx := v.AddWordToVocabulary("</s>")
	v.Words[idx].Count = 1
	v.AssignClassesByFrequency(3)

	if got := v.WordClass(0); got != 0 {
		t.Fatalf("single word class = %d, want 0", got)
	}
	if start, end := v.ClassRange(0); start != 0 || end != 1 {
		t.Errorf("class 0 range = [%d,%d), want [0,1)", start, end)
	}
	for c := 1; c < v.NumClasses(); c++ {
		if start, end := v.ClassRange(c); start != end {
			t.Errorf("empty class %d range = [%d,%d), want empty", c, start, end)
		}
	}
}
