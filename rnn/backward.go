package rnn

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// updateRow applies one SGD step to a weight row:
// row = (1 - alpha*beta)*row + alpha*g*x.
func updateRow(row []float64, alpha, beta, g float64, x []float64) {
	if beta > 0 {
		floats.Scale(1-alpha*beta, row)
	}
	floats.AddScaled(row, alpha*g, x)
}

// decayMatrix applies weight decay to a whole dense matrix.
func decayMatrix(w *mat.Dense, rate float64) {
	if w == nil || rate <= 0 {
		return
	}
	floats.Scale(1-rate, w.RawMatrix().Data)
}

// BackPropagateErrorsThenOneStepGradientDescent computes the output
// error for the realized word, propagates it through the output,
// compression and hidden layers, replays the backward pass over the
// retained BPTT window against a single weight snapshot, and applies
// the SGD update in place. The caller is responsible for scaling the
// learning rate by the token's discount before this call and restoring
// it after. A word index below zero has no target, so the call is a
// no-op.
func (m *Model) BackPropagateErrorsThenOneStepGradientDescent(lastWord, word int, s *State) {
	if word < 0 {
		return
	}
	sizeVocab := m.vocab.NumWords()
	sizeHidden := s.HiddenSize()
	numClasses := m.vocab.NumClasses()
	alpha := m.learningRate
	beta := m.config.Regularization

	// Output error: target minus prediction, on the one-hot word within
	// its class and the one-hot class.
	wordClass := m.vocab.WordClass(word)
	start, end := m.vocab.ClassRange(wordClass)
	for i := start; i < end; i++ {
		s.OutputGradient[i] = -s.OutputLayer[i]
	}
	s.OutputGradient[word] += 1.0
	for c := 0; c < numClasses; c++ {
		s.OutputGradient[sizeVocab+c] = -s.OutputLayer[sizeVocab+c]
	}
	s.OutputGradient[sizeVocab+wordClass] += 1.0

	// Propagate the output error to the top layer through the current
	// output weights, then update those same rows.
	top := s.HiddenLayer
	topGrad := s.HiddenGradient
	if s.CompressSize() > 0 {
		top = s.CompressLayer
		topGrad = s.CompressGradient
	}
	zero(topGrad)
	if m.weights.Output != nil && len(top) > 0 {
		for i := start; i < end; i++ {
			floats.AddScaled(topGrad, s.OutputGradient[i], m.weights.Output.RawRowView(i))
		}
		for c := 0; c < numClasses; c++ {
			floats.AddScaled(topGrad, s.OutputGradient[sizeVocab+c],
				m.weights.Output.RawRowView(sizeVocab+c))
		}
		for i := start; i < end; i++ {
			updateRow(m.weights.Output.RawRowView(i), alpha, beta, s.OutputGradient[i], top)
		}
		for c := 0; c < numClasses; c++ {
			updateRow(m.weights.Output.RawRowView(sizeVocab+c), alpha, beta,
				s.OutputGradient[sizeVocab+c], top)
		}
	}
	if sizeHidden == 0 {
		return
	}

	// Through the compression layer when configured.
	if s.CompressSize() > 0 {
		for i := range s.CompressGradient {
			c := s.CompressLayer[i]
			s.CompressGradient[i] *= c * (1 - c)
		}
		zero(s.HiddenGradient)
		if m.weights.Hidden2Compress != nil {
			for z := 0; z < s.CompressSize(); z++ {
				floats.AddScaled(s.HiddenGradient, s.CompressGradient[z],
					m.weights.Hidden2Compress.RawRowView(z))
			}
			for z := 0; z < s.CompressSize(); z++ {
				updateRow(m.weights.Hidden2Compress.RawRowView(z), alpha, beta,
					s.CompressGradient[z], s.HiddenLayer)
			}
		}
	}

	if m.config.NumBpttSteps > 0 && m.bptt.Depth() > 0 {
		m.backPropagateThroughTime(s)
	} else {
		m.oneStepGradientDescent(lastWord, s)
	}
}

// oneStepGradientDescent is the truncated depth-1 update used when BPTT
// is disabled: only the current timestep's gradient reaches the input,
// recurrent and feature matrices.
func (m *Model) oneStepGradientDescent(lastWord int, s *State) {
	sizeHidden := s.HiddenSize()
	alpha := m.learningRate
	beta := m.config.Regularization

	for i := 0; i < sizeHidden; i++ {
		h := s.HiddenLayer[i]
		m.eh[i] = s.HiddenGradient[i] * h * (1 - h)
	}
	ehVec := mat.NewVecDense(sizeHidden, m.eh)

	if len(s.FeatureLayer) > 0 && m.weights.Feature2Hidden != nil {
		decayMatrix(m.weights.Feature2Hidden, alpha*beta)
		m.weights.Feature2Hidden.RankOne(m.weights.Feature2Hidden, alpha,
			ehVec, mat.NewVecDense(len(s.FeatureLayer), s.FeatureLayer))
	}
	if lastWord >= 0 && m.weights.Input2Hidden != nil {
		updateRow(m.weights.Input2Hidden.RawRowView(lastWord), alpha, beta, 1.0, m.eh)
	}
	if m.weights.Recurrent2Hidden != nil {
		decayMatrix(m.weights.Recurrent2Hidden, alpha*beta)
		m.weights.Recurrent2Hidden.RankOne(m.weights.Recurrent2Hidden, alpha,
			ehVec, mat.NewVecDense(sizeHidden, s.RecurrentLayer))
	}
}

// backPropagateThroughTime replays the backward pass over every
// retained slot of the window, newest to oldest. Weight gradients are
// accumulated against the single weight snapshot taken at entry and
// applied once at the end; the recurrent matrix used for propagation is
// never re-fetched per depth.
func (m *Model) backPropagateThroughTime(s *State) {
	b := m.bptt
	sizeHidden := s.HiddenSize()
	if sizeHidden == 0 {
		return
	}
	sizeFeature := s.FeatureSize()
	alpha := m.learningRate
	beta := m.config.Regularization

	// Slot 0 is the current step, stored by the Shift that preceded
	// this call; fill in its gradient placeholder.
	copy(b.Gradient(0), s.HiddenGradient)
	grad := m.bpttGrad
	copy(grad, s.HiddenGradient)

	for step := 0; step < b.Depth()-1; step++ {
		h := b.Hidden(step)
		for i := 0; i < sizeHidden; i++ {
			m.eh[i] = grad[i] * h[i] * (1 - h[i])
		}
		ehVec := mat.NewVecDense(sizeHidden, m.eh)

		if sizeFeature > 0 && b.Feature2Hidden != nil {
			b.Feature2Hidden.RankOne(b.Feature2Hidden, 1.0,
				ehVec, mat.NewVecDense(sizeFeature, b.Feature(step)))
		}
		if w := b.Word(step); w >= 0 && b.Input2Hidden != nil {
			floats.Add(b.Input2Hidden.RawRowView(w), m.eh)
		}
		if b.Recurrent2Hidden != nil {
			b.Recurrent2Hidden.RankOne(b.Recurrent2Hidden, 1.0,
				ehVec, mat.NewVecDense(sizeHidden, b.Hidden(step+1)))
		}

		// Propagate to the previous timestep through the snapshot
		// recurrent weights and fold in that step's stored gradient.
		gv := mat.NewVecDense(sizeHidden, m.gradScratch)
		gv.MulVec(m.weights.Recurrent2Hidden.T(), ehVec)
		floats.Add(m.gradScratch, b.Gradient(step+1))
		copy(grad, m.gradScratch)
	}

	if m.weights.Recurrent2Hidden != nil && b.Recurrent2Hidden != nil {
		decayMatrix(m.weights.Recurrent2Hidden, alpha*beta)
		floats.AddScaled(m.weights.Recurrent2Hidden.RawMatrix().Data, alpha,
			b.Recurrent2Hidden.RawMatrix().Data)
		zero(b.Recurrent2Hidden.RawMatrix().Data)
	}
	if sizeFeature > 0 && m.weights.Feature2Hidden != nil && b.Feature2Hidden != nil {
		decayMatrix(m.weights.Feature2Hidden, alpha*beta)
		floats.AddScaled(m.weights.Feature2Hidden.RawMatrix().Data, alpha,
			b.Feature2Hidden.RawMatrix().Data)
		zero(b.Feature2Hidden.RawMatrix().Data)
	}
	if m.weights.Input2Hidden != nil && b.Input2Hidden != nil {
		for step := 0; step < b.Depth(); step++ {
			w := b.Word(step)
			if w < 0 {
				continue
			}
			// A word revisited at several depths accumulates into one
			// row; apply it only once.
			seen := false
			for prior := 0; prior < step; prior++ {
				if b.Word(prior) == w {
					seen = true
					break
				}
			}
			if seen {
				continue
			}
			accRow := b.Input2Hidden.RawRowView(w)
			updateRow(m.weights.Input2Hidden.RawRowView(w), alpha, beta, 1.0, accRow)
			zero(accRow)
		}
	}
}
