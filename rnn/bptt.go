package rnn

import "gonum.org/v1/gonum/mat"

// BpttBuffer is the time-indexed ring of past hidden activations,
// hidden gradients, feature snapshots and input word indices needed to
// replay the chain rule over a fixed window of prior steps. Slot 0 is
// always the most recent completed step; shifting moves a logical head
// pointer instead of copying slot contents.
//
// The buffer also owns the gradient accumulators for the three
// hidden-side weight matrices: the backward replay of one token's
// window accumulates into these against a single weight snapshot, and
// the result is applied to the live weights once at the end.
type BpttBuffer struct {
	depth       int // numBpttSteps + bpttBlockSize
	sizeHidden  int
	sizeFeature int

	head     int
	words    []int
	hidden   []float64 // depth * sizeHidden
	gradient []float64 // depth * sizeHidden
	feature  []float64 // depth * sizeFeature

	Input2Hidden     *mat.Dense // (vocab x hidden)
	Recurrent2Hidden *mat.Dense // (hidden x hidden)
	Feature2Hidden   *mat.Dense // (hidden x feature)
}

// NewBpttBuffer allocates a window of numBpttSteps+bpttBlockSize slots.
// With numBpttSteps == 0 the buffer is empty and Shift is a no-op: the
// SGD engine then updates weights from the current timestep only.
func NewBpttBuffer(sizeVocab, sizeHidden, sizeFeature, numBpttSteps, bpttBlockSize int) *BpttBuffer {
	depth := 0
	if numBpttSteps > 0 {
		depth = numBpttSteps + bpttBlockSize
		if depth < 2 {
			depth = 2
		}
	}
	b := &BpttBuffer{
		depth:       depth,
		sizeHidden:  sizeHidden,
		sizeFeature: sizeFeature,
		words:       make([]int, depth),
		hidden:      make([]float64, depth*sizeHidden),
		gradient:    make([]float64, depth*sizeHidden),
		feature:     make([]float64, depth*sizeFeature),
	}
	if depth > 0 {
		b.Input2Hidden = newZeroDense(sizeVocab, sizeHidden)
		b.Recurrent2Hidden = newZeroDense(sizeHidden, sizeHidden)
		b.Feature2Hidden = newZeroDense(sizeHidden, sizeFeature)
	}
	b.Reset()
	return b
}

func (b *BpttBuffer) Depth() int { return b.depth }

// Reset invalidates every slot; called at the start of each epoch.
func (b *BpttBuffer) Reset() {
	b.head = 0
	for i := range b.words {
		b.words[i] = -1
	}
	zero(b.hidden)
	zero(b.gradient)
	zero(b.feature)
}

func (b *BpttBuffer) slot(i int) int {
	return (b.head + i) % b.depth
}

// Shift rotates the window one step: the oldest slot is discarded and
// logical slot 0 receives the input word just consumed, the hidden
// activation just produced, a zeroed gradient placeholder and the
// current feature snapshot.
func (b *BpttBuffer) Shift(word int, hidden, feature []float64) {
	if b.depth == 0 {
		return
	}
	b.head = (b.head - 1 + b.depth) % b.depth
	p := b.head
	b.words[p] = word
	copy(b.hidden[p*b.sizeHidden:(p+1)*b.sizeHidden], hidden)
	zero(b.gradient[p*b.sizeHidden : (p+1)*b.sizeHidden])
	copy(b.feature[p*b.sizeFeature:(p+1)*b.sizeFeature], feature)
}

// Word returns the input word index stored at logical slot i.
func (b *BpttBuffer) Word(i int) int { return b.words[b.slot(i)] }

// Hidden returns the hidden activation stored at logical slot i.
func (b *BpttBuffer) Hidden(i int) []float64 {
	p := b.slot(i)
	return b.hidden[p*b.sizeHidden : (p+1)*b.sizeHidden]
}

// Gradient returns the hidden gradient stored at logical slot i.
func (b *BpttBuffer) Gradient(i int) []float64 {
	p := b.slot(i)
	return b.gradient[p*b.sizeHidden : (p+1)*b.sizeHidden]
}

// Feature returns the feature snapshot stored at logical slot i.
func (b *BpttBuffer) Feature(i int) []float64 {
	p := b.slot(i)
	return b.feature[p*b.sizeFeature : (p+1)*b.sizeFeature]
}
