package rnn

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BinbinBian/DependencyTreeRnn/corpus"
	"github.com/BinbinBian/DependencyTreeRnn/params"
)

// buildModel assembles an initialized model over an explicit vocabulary
// and in-memory books, bypassing the file-based vocabulary learning.
func buildModel(cfg params.TrainingConfig, words []string, counts []int,
	labels []string, train, valid []*corpus.BookUnrolls) *Model {
	m := NewModelFromCorpora(cfg,
		corpus.NewCorpusFromBooks(train),
		corpus.NewCorpusFromBooks(train),
		corpus.NewCorpusFromBooks(valid))
	for i, w := range words {
		idx := m.vocab.AddWordToVocabulary(w)
		m.vocab.Words[idx].Count = counts[i]
	}
	for _, l := range labels {
		m.vocab.AddLabel(l)
	}
	m.Initialize()
	return m
}

func smallConfig() params.TrainingConfig {
	return params.TrainingConfig{
		HiddenSize:             8,
		NumClasses:             2,
		LearningRate:           0.1,
		LabelMode:              params.LabelsFeatures,
		FeatureGamma:           0.9,
		MinLogProbaImprovement: 1.0001,
		MinWordCount:           1,
	}
}

var smallWords = []string{corpus.EndOfSentence, corpus.Unknown, "the", "cat", "sat"}
var smallCounts = []int{10, 0, 6, 4, 3}
var smallLabels = []string{"ROOT", "nsubj"}

const testBookJSON = `[
  [ [[0,"the",1.0,"ROOT"],[1,"cat",1.0,"nsubj"],[2,"</s>",1.0,"ROOT"]] ],
  [ [[0,"the",1.0,"ROOT"],[1,"sat",1.0,"ROOT"],[2,"</s>",1.0,"ROOT"]] ]
]`

func writeBookFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "book.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLearnVocabularyFromTrainFile(t *testing.T) {
	path := writeBookFile(t, testBookJSON)

	cfg := smallConfig()
	m := NewModel(cfg, []string{path}, []string{path})
	if err := m.LearnVocabularyFromTrainFile(); err != nil {
		t.Fatal(err)
	}

	// </s> and <unk> are pinned, the rest is frequency-sorted with ties
	// broken alphabetically.
	want := []string{"</s>", "<unk>", "the", "cat", "sat"}
	if got := m.GetVocabularySize(); got != len(want) {
		t.Fatalf("vocab size = %d, want %d", got, len(want))
	}
	for i, w := range want {
		if got := m.vocab.SearchWordInVocabulary(w); got != i {
			t.Errorf("index of %q = %d, want %d", w, got, i)
		}
	}
	if got := m.vocab.Words[2].Count; got != 2 {
		t.Errorf("count of \"the\" = %d, want 2", got)
	}

	if got := m.vocab.SearchLabelInVocabulary("ROOT"); got != 0 {
		t.Errorf("index of ROOT label = %d, want 0", got)
	}
	if got := m.vocab.SearchLabelInVocabulary("nsubj"); got != 1 {
		t.Errorf("index of nsubj label = %d, want 1", got)
	}
}

func TestClassFileRejected(t *testing.T) {
	path := writeBookFile(t, testBookJSON)

	cfg := smallConfig()
	cfg.UseClassFile = true
	m := NewModel(cfg, []string{path}, []string{path})
	if err := m.LearnVocabularyFromTrainFile(); err == nil {
		t.Fatal("expected an error for an external class file")
	}
}

func TestRollbackRestoresCheckpoint(t *testing.T) {
	m := buildModel(smallConfig(), smallWords, smallCounts, smallLabels, nil, nil)

	w0 := m.weights.Output.At(0, 0)
	h0 := m.state.HiddenLayer[0]
	m.checkpoint()

	m.weights.Output.Set(0, 0, w0+123)
	m.state.HiddenLayer[0] = h0 + 9

	m.rollback()
	if got := m.weights.Output.At(0, 0); got != w0 {
		t.Errorf("Output[0,0] after rollback = %g, want %g", got, w0)
	}
	if got := m.state.HiddenLayer[0]; got != h0 {
		t.Errorf("HiddenLayer[0] after rollback = %g, want %g", got, h0)
	}

	// The backup must survive a rollback so a later epoch can roll back
	// to the same checkpoint again.
	m.weights.Output.Set(0, 0, w0+456)
	m.rollback()
	if got := m.weights.Output.At(0, 0); got != w0 {
		t.Errorf("Output[0,0] after second rollback = %g, want %g", got, w0)
	}
}

func TestSaveLoadModelRoundTrip(t *testing.T) {
	cfg := smallConfig()
	m := buildModel(cfg, smallWords, smallCounts, smallLabels, nil, nil)
	m.iteration = 7
	m.learningRate = 0.025
	m.reducingLearningRate = true

	path := filepath.Join(t.TempDir(), "model.gob")
	if err := m.SaveModelToFile(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadModelFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := loaded.GetVocabularySize(); got != m.GetVocabularySize() {
		t.Fatalf("vocab size = %d, want %d", got, m.GetVocabularySize())
	}
	if got := loaded.iteration; got != 7 {
		t.Errorf("iteration = %d, want 7", got)
	}
	if got := loaded.learningRate; got != 0.025 {
		t.Errorf("learning rate = %g, want 0.025", got)
	}
	if !loaded.reducingLearningRate {
		t.Error("reducingLearningRate not restored")
	}
	for w := 0; w < m.GetVocabularySize(); w++ {
		if loaded.vocab.WordClass(w) != m.vocab.WordClass(w) {
			t.Fatalf("word %d class = %d, want %d",
				w, loaded.vocab.WordClass(w), m.vocab.WordClass(w))
		}
	}
	if got, want := loaded.weights.Output.At(3, 2), m.weights.Output.At(3, 2); got != want {
		t.Errorf("Output[3,2] = %g, want %g", got, want)
	}
	if got, want := loaded.weights.Input2Hidden.At(2, 1), m.weights.Input2Hidden.At(2, 1); got != want {
		t.Errorf("Input2Hidden[2,1] = %g, want %g", got, want)
	}
}

func TestSaveWordEmbeddings(t *testing.T) {
	m := buildModel(smallConfig(), smallWords, smallCounts, smallLabels, nil, nil)

	path := filepath.Join(t.TempDir(), "embeddings.txt")
	if err := m.SaveWordEmbeddings(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("embeddings file is empty")
	}
}
