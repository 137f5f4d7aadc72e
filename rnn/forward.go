package rnn

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/BinbinBian/DependencyTreeRnn/utils"
)

// ErrNumericalDivergence reports a non-finite softmax normalization or
// accumulated log-probability. Divergence indicates a learning-rate or
// architecture problem, so the training run stops rather than retries.
var ErrNumericalDivergence = errors.New("numerical error: non-finite value")

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// ResetFeatureLabelVector zeroes the label feature layer; called at the
// beginning of each unroll.
func (m *Model) ResetFeatureLabelVector(s *State) {
	zero(s.FeatureLayer)
}

// UpdateFeatureLabelVector decays every feature slot by gamma and sets
// the current label's slot to 1. Values stay in [0,1] and decay toward
// zero without tree-label input.
func (m *Model) UpdateFeatureLabelVector(label int, s *State) {
	gamma := m.config.FeatureGamma
	for i := range s.FeatureLayer {
		s.FeatureLayer[i] *= gamma
	}
	if label >= 0 && label < len(s.FeatureLayer) {
		s.FeatureLayer[label] = 1.0
	}
}

// ForwardPropagateOneStep runs one timestep: the hidden layer is the
// sigmoid of the previous word's embedding row, the previous hidden
// state through the recurrent matrix and the feature layer through its
// matrix; the optional compression layer follows; the output is the
// factored class softmax plus the word softmax restricted to the
// current word's class. Softmax blocks are plain exp-and-normalize; a
// non-finite normalization is fatal.
func (m *Model) ForwardPropagateOneStep(lastWord, word int, s *State) error {
	sizeHidden := s.HiddenSize()

	// Sparse one-hot input layer: clear last step's bit, set this one.
	if s.lastInput >= 0 {
		s.InputLayer[s.lastInput] = 0
	}
	if lastWord >= 0 {
		s.InputLayer[lastWord] = 1
	}
	s.lastInput = lastWord

	if sizeHidden > 0 {
		hv := mat.NewVecDense(sizeHidden, s.HiddenLayer)
		if m.weights.Recurrent2Hidden != nil {
			hv.MulVec(m.weights.Recurrent2Hidden, mat.NewVecDense(sizeHidden, s.RecurrentLayer))
		} else {
			zero(s.HiddenLayer)
		}
		if lastWord >= 0 && m.weights.Input2Hidden != nil {
			floats.Add(s.HiddenLayer, m.weights.Input2Hidden.RawRowView(lastWord))
		}
		if len(s.FeatureLayer) > 0 && m.weights.Feature2Hidden != nil {
			sc := mat.NewVecDense(sizeHidden, m.gradScratch)
			sc.MulVec(m.weights.Feature2Hidden, mat.NewVecDense(len(s.FeatureLayer), s.FeatureLayer))
			floats.Add(s.HiddenLayer, m.gradScratch)
		}
		for i := range s.HiddenLayer {
			s.HiddenLayer[i] = utils.Sigmoid(s.HiddenLayer[i])
		}
	}

	top := s.HiddenLayer
	if s.CompressSize() > 0 {
		if m.weights.Hidden2Compress != nil {
			cv := mat.NewVecDense(s.CompressSize(), s.CompressLayer)
			cv.MulVec(m.weights.Hidden2Compress, mat.NewVecDense(sizeHidden, s.HiddenLayer))
		} else {
			zero(s.CompressLayer)
		}
		for i := range s.CompressLayer {
			s.CompressLayer[i] = utils.Sigmoid(s.CompressLayer[i])
		}
		top = s.CompressLayer
	}

	sizeVocab := m.vocab.NumWords()
	numClasses := m.vocab.NumClasses()

	// Class softmax block.
	sum := 0.0
	for c := 0; c < numClasses; c++ {
		a := 0.0
		if m.weights.Output != nil && len(top) > 0 {
			a = floats.Dot(m.weights.Output.RawRowView(sizeVocab+c), top)
		}
		e := math.Exp(a)
		s.OutputLayer[sizeVocab+c] = e
		sum += e
	}
	if !isFinite(sum) || sum <= 0 {
		return ErrNumericalDivergence
	}
	for c := 0; c < numClasses; c++ {
		s.OutputLayer[sizeVocab+c] /= sum
	}

	// Word softmax restricted to the current word's class. The word's
	// class is known from the vocabulary, not predicted.
	if word >= 0 {
		start, end := m.vocab.ClassRange(m.vocab.WordClass(word))
		sum = 0.0
		for i := start; i < end; i++ {
			a := 0.0
			if m.weights.Output != nil && len(top) > 0 {
				a = floats.Dot(m.weights.Output.RawRowView(i), top)
			}
			e := math.Exp(a)
			s.OutputLayer[i] = e
			sum += e
		}
		if !isFinite(sum) || sum <= 0 {
			return ErrNumericalDivergence
		}
		for i := start; i < end; i++ {
			s.OutputLayer[i] /= sum
		}
	}
	return nil
}

// ForwardPropagateRecurrentConnectionOnly stores the current hidden
// state so the next step can use it as s(t-1).
func (m *Model) ForwardPropagateRecurrentConnectionOnly(s *State) {
	copy(s.RecurrentLayer, s.HiddenLayer)
}

// ForwardPropagateWordHistory rotates the short word-history ring by
// one and records the current word at the front.
func (m *Model) ForwardPropagateWordHistory(s *State, word int) {
	for i := len(s.WordHistory) - 1; i > 0; i-- {
		s.WordHistory[i] = s.WordHistory[i-1]
	}
	s.WordHistory[0] = word
}

// WordLogProbability reads the base-10 log-probability of the realized
// word off the output layer: P(class) times P(word | class).
func (m *Model) WordLogProbability(word int, s *State) float64 {
	sizeVocab := m.vocab.NumWords()
	condProbaClass := s.OutputLayer[sizeVocab+m.vocab.WordClass(word)]
	condProbaWordGivenClass := s.OutputLayer[word]
	return math.Log10(condProbaClass * condProbaWordGivenClass)
}
