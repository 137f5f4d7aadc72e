package rnn

import (
	"gonum.org/v1/gonum/mat"

	"github.com/BinbinBian/DependencyTreeRnn/utils"
)

// newRandomDense returns a (r x c) matrix with uniform ±1/sqrt(fanIn)
// entries, or nil when either dimension is zero (gonum rejects empty
// matrices; callers skip nil contributions).
func newRandomDense(r, c int, fanIn float64) *mat.Dense {
	if r == 0 || c == 0 {
		return nil
	}
	return mat.NewDense(r, c, utils.RandomArray(r*c, fanIn))
}

// newZeroDense returns a zeroed (r x c) matrix, or nil on empty dims.
func newZeroDense(r, c int) *mat.Dense {
	if r == 0 || c == 0 {
		return nil
	}
	return mat.NewDense(r, c, nil)
}

// Weights holds every weight matrix of the model. Input2Hidden stores
// one embedding row per vocabulary word. Output projects the top layer
// (the compression layer when configured, the hidden layer otherwise)
// onto vocabulary+classes output rows.
type Weights struct {
	Input2Hidden     *mat.Dense // (vocab x hidden)
	Recurrent2Hidden *mat.Dense // (hidden x hidden)
	Feature2Hidden   *mat.Dense // (hidden x feature)
	Hidden2Compress  *mat.Dense // (compress x hidden), nil when disabled
	Output           *mat.Dense // (vocab+classes x top)
}

func NewWeights(sizeVocab, sizeHidden, sizeFeature, sizeClasses, sizeCompress int) *Weights {
	top := sizeHidden
	if sizeCompress > 0 {
		top = sizeCompress
	}
	return &Weights{
		Input2Hidden:     newRandomDense(sizeVocab, sizeHidden, float64(sizeHidden)),
		Recurrent2Hidden: newRandomDense(sizeHidden, sizeHidden, float64(sizeHidden)),
		Feature2Hidden:   newRandomDense(sizeHidden, sizeFeature, float64(sizeFeature)),
		Hidden2Compress:  newRandomDense(sizeCompress, sizeHidden, float64(sizeHidden)),
		Output:           newRandomDense(sizeVocab+sizeClasses, top, float64(top)),
	}
}

func copyDense(m *mat.Dense) *mat.Dense {
	if m == nil {
		return nil
	}
	return mat.DenseCopyOf(m)
}

// Copy returns a deep copy used for the checkpoint backup; the live
// weights and the backup are never aliased.
func (w *Weights) Copy() *Weights {
	return &Weights{
		Input2Hidden:     copyDense(w.Input2Hidden),
		Recurrent2Hidden: copyDense(w.Recurrent2Hidden),
		Feature2Hidden:   copyDense(w.Feature2Hidden),
		Hidden2Compress:  copyDense(w.Hidden2Compress),
		Output:           copyDense(w.Output),
	}
}
