package rnn

// MaxNGramOrder bounds the short word-history ring kept for n-gram
// direct connections.
const MaxNGramOrder = 20

// State owns every activation and gradient vector of one timestep. The
// output layer has vocabulary+classes entries: the class softmax block
// sits after the word block, and the word block is only ever written
// inside the current word's class range.
type State struct {
	InputLayer     []float64
	FeatureLayer   []float64
	RecurrentLayer []float64 // hidden layer at the previous timestep
	HiddenLayer    []float64
	CompressLayer  []float64
	OutputLayer    []float64

	InputGradient     []float64
	FeatureGradient   []float64
	RecurrentGradient []float64
	HiddenGradient    []float64
	CompressGradient  []float64
	OutputGradient    []float64

	WordHistory []int

	// Index of the one-hot bit currently set in InputLayer, -1 if none.
	lastInput int
}

func NewState(sizeVocab, sizeHidden, sizeFeature, sizeClasses, sizeCompress int) *State {
	sizeOutput := sizeVocab + sizeClasses
	return &State{
		InputLayer:     make([]float64, sizeVocab),
		FeatureLayer:   make([]float64, sizeFeature),
		RecurrentLayer: make([]float64, sizeHidden),
		HiddenLayer:    make([]float64, sizeHidden),
		CompressLayer:  make([]float64, sizeCompress),
		OutputLayer:    make([]float64, sizeOutput),

		InputGradient:     make([]float64, sizeVocab),
		FeatureGradient:   make([]float64, sizeFeature),
		RecurrentGradient: make([]float64, sizeHidden),
		HiddenGradient:    make([]float64, sizeHidden),
		CompressGradient:  make([]float64, sizeCompress),
		OutputGradient:    make([]float64, sizeOutput),

		WordHistory: make([]int, MaxNGramOrder),
		lastInput:   -1,
	}
}

func (s *State) HiddenSize() int   { return len(s.HiddenLayer) }
func (s *State) FeatureSize() int  { return len(s.FeatureLayer) }
func (s *State) CompressSize() int { return len(s.CompressLayer) }
func (s *State) OutputSize() int   { return len(s.OutputLayer) }

// Copy returns a deep copy, used for checkpoint and rollback.
func (s *State) Copy() *State {
	c := &State{
		InputLayer:     append([]float64(nil), s.InputLayer...),
		FeatureLayer:   append([]float64(nil), s.FeatureLayer...),
		RecurrentLayer: append([]float64(nil), s.RecurrentLayer...),
		HiddenLayer:    append([]float64(nil), s.HiddenLayer...),
		CompressLayer:  append([]float64(nil), s.CompressLayer...),
		OutputLayer:    append([]float64(nil), s.OutputLayer...),

		InputGradient:     append([]float64(nil), s.InputGradient...),
		FeatureGradient:   append([]float64(nil), s.FeatureGradient...),
		RecurrentGradient: append([]float64(nil), s.RecurrentGradient...),
		HiddenGradient:    append([]float64(nil), s.HiddenGradient...),
		CompressGradient:  append([]float64(nil), s.CompressGradient...),
		OutputGradient:    append([]float64(nil), s.OutputGradient...),

		WordHistory: append([]int(nil), s.WordHistory...),
		lastInput:   s.lastInput,
	}
	return c
}

func zero(v []float64) {
	for i := range v {
		v[i] = 0
	}
}

// ResetHiddenStateAndWordHistory zeroes the recurrent state and clears
// the word-history ring; called at each unroll boundary.
func (s *State) ResetHiddenStateAndWordHistory() {
	zero(s.RecurrentLayer)
	zero(s.HiddenLayer)
	zero(s.HiddenGradient)
	for i := range s.WordHistory {
		s.WordHistory[i] = 0
	}
}

// ResetAllActivations zeroes every buffer, including the feature,
// input, compression and output layers; called once per epoch and at
// the start of evaluation.
func (s *State) ResetAllActivations() {
	s.ResetHiddenStateAndWordHistory()
	s.lastInput = -1
	zero(s.InputLayer)
	zero(s.InputGradient)
	zero(s.FeatureLayer)
	zero(s.FeatureGradient)
	zero(s.RecurrentGradient)
	zero(s.CompressLayer)
	zero(s.CompressGradient)
	zero(s.OutputLayer)
	zero(s.OutputGradient)
}
