package rnn

import (
	"math"
	"math/rand"
	"testing"

	"github.com/BinbinBian/DependencyTreeRnn/corpus"
	"github.com/BinbinBian/DependencyTreeRnn/params"
)

func TestClassSoftmaxNormalizes(t *testing.T) {
	rand.Seed(42)
	m := buildModel(smallConfig(), smallWords, smallCounts, smallLabels, nil, nil)
	s := m.state

	word := 3
	m.UpdateFeatureLabelVector(0, s)
	if err := m.ForwardPropagateOneStep(0, word, s); err != nil {
		t.Fatal(err)
	}

	sizeVocab := m.GetVocabularySize()
	classSum := 0.0
	for c := 0; c < m.vocab.NumClasses(); c++ {
		p := s.OutputLayer[sizeVocab+c]
		if p <= 0 || p > 1 {
			t.Fatalf("class %d probability out of range: %g", c, p)
		}
		classSum += p
	}
	if math.Abs(classSum-1) > 1e-12 {
		t.Errorf("class probabilities sum to %g, want 1", classSum)
	}

	start, end := m.vocab.ClassRange(m.vocab.WordClass(word))
	wordSum := 0.0
	for i := start; i < end; i++ {
		wordSum += s.OutputLayer[i]
	}
	if math.Abs(wordSum-1) > 1e-12 {
		t.Errorf("word probabilities in class sum to %g, want 1", wordSum)
	}

	if lp := m.WordLogProbability(word, s); lp > 0 || math.IsNaN(lp) {
		t.Errorf("log probability = %g, want <= 0", lp)
	}
}

func TestInputLayerStaysOneHot(t *testing.T) {
	rand.Seed(42)
	m := buildModel(smallConfig(), smallWords, smallCounts, smallLabels, nil, nil)
	s := m.state

	if err := m.ForwardPropagateOneStep(0, 2, s); err != nil {
		t.Fatal(err)
	}
	if err := m.ForwardPropagateOneStep(2, 3, s); err != nil {
		t.Fatal(err)
	}

	sum := 0.0
	for _, x := range s.InputLayer {
		sum += x
	}
	if sum != 1 || s.InputLayer[2] != 1 {
		t.Errorf("input layer not one-hot on word 2: sum=%g bit=%g", sum, s.InputLayer[2])
	}
}

func TestFeatureLayerDecay(t *testing.T) {
	m := buildModel(smallConfig(), smallWords, smallCounts, smallLabels, nil, nil)
	s := m.state

	m.ResetFeatureLabelVector(s)
	m.UpdateFeatureLabelVector(1, s)
	if s.FeatureLayer[1] != 1 || s.FeatureLayer[0] != 0 {
		t.Fatalf("after first update: %v", s.FeatureLayer)
	}
	m.UpdateFeatureLabelVector(0, s)
	if s.FeatureLayer[0] != 1 {
		t.Errorf("current label slot = %g, want 1", s.FeatureLayer[0])
	}
	if math.Abs(s.FeatureLayer[1]-0.9) > 1e-15 {
		t.Errorf("decayed slot = %g, want 0.9", s.FeatureLayer[1])
	}

	m.ResetFeatureLabelVector(s)
	for _, x := range s.FeatureLayer {
		if x != 0 {
			t.Fatalf("feature layer not cleared: %v", s.FeatureLayer)
		}
	}
}

func TestWordHistoryRotates(t *testing.T) {
	m := buildModel(smallConfig(), smallWords, smallCounts, smallLabels, nil, nil)
	s := m.state

	m.ForwardPropagateWordHistory(s, 7)
	m.ForwardPropagateWordHistory(s, 9)
	if s.WordHistory[0] != 9 || s.WordHistory[1] != 7 {
		t.Errorf("word history = %v, want [9 7 ...]", s.WordHistory[:3])
	}
}

// A one-word vocabulary with no hidden layer is still a valid model:
// every softmax block is uniform over a single entry, so every token
// has probability one and training is a fixed point.
func TestDegenerateSingleWordModel(t *testing.T) {
	cfg := params.TrainingConfig{
		HiddenSize:             0,
		NumClasses:             1,
		LearningRate:           0.1,
		LabelMode:              params.LabelsNone,
		MinLogProbaImprovement: 1.0001,
		MaxEpochs:              2,
	}
	sentence := [][]corpus.Token{{
		{Position: 0, Word: 0, Discount: 1, Label: 0},
		{Position: 1, Word: 0, Discount: 1, Label: 0},
	}}
	book := corpus.NewBookFromTokens([][][]corpus.Token{sentence})

	m := buildModel(cfg, []string{corpus.EndOfSentence}, []int{1}, nil,
		[]*corpus.BookUnrolls{book}, []*corpus.BookUnrolls{book})

	if err := m.ForwardPropagateOneStep(0, 0, m.state); err != nil {
		t.Fatal(err)
	}
	if p := m.state.OutputLayer[0]; p != 1 {
		t.Errorf("P(word) = %g, want 1", p)
	}
	if p := m.state.OutputLayer[1]; p != 1 {
		t.Errorf("P(class) = %g, want 1", p)
	}
	if lp := m.WordLogProbability(0, m.state); lp != 0 {
		t.Errorf("log probability = %g, want 0", lp)
	}
	m.BackPropagateErrorsThenOneStepGradientDescent(0, 0, m.state)

	stats, err := m.TrainModel()
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 2 {
		t.Fatalf("trained %d epochs, want 2", len(stats))
	}
	for _, ep := range stats {
		if ep.TrainEntropy != 0 {
			t.Errorf("iteration %d train entropy = %g, want 0", ep.Iteration, ep.TrainEntropy)
		}
		if ep.ValidPerplexity != 1 {
			t.Errorf("iteration %d valid perplexity = %g, want 1", ep.Iteration, ep.ValidPerplexity)
		}
		if ep.RolledBack {
			t.Errorf("iteration %d rolled back", ep.Iteration)
		}
	}
}
