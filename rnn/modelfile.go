package rnn

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/BinbinBian/DependencyTreeRnn/corpus"
	"github.com/BinbinBian/DependencyTreeRnn/params"
)

// denseData is the serialized form of a weight matrix; zero dimensions
// stand for a nil (disabled) matrix.
type denseData struct {
	Rows, Cols int
	Data       []float64
}

func packDense(m *mat.Dense) denseData {
	if m == nil {
		return denseData{}
	}
	r, c := m.Dims()
	data := make([]float64, r*c)
	copy(data, mat.DenseCopyOf(m).RawMatrix().Data)
	return denseData{Rows: r, Cols: c, Data: data}
}

func unpackDense(d denseData) *mat.Dense {
	if d.Rows == 0 || d.Cols == 0 {
		return nil
	}
	return mat.NewDense(d.Rows, d.Cols, d.Data)
}

type modelData struct {
	Config    params.TrainingConfig
	Words     []VocabWord
	Labels    []string
	Iteration int

	LearningRate         float64
	ReducingLearningRate bool

	Input2Hidden     denseData
	Recurrent2Hidden denseData
	Feature2Hidden   denseData
	Hidden2Compress  denseData
	Output           denseData
}

// SaveModelToFile persists the vocabulary, configuration and weights as
// a gob snapshot.
func (m *Model) SaveModelToFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	labels := make([]string, m.vocab.NumLabels())
	for i := range labels {
		labels[i] = m.vocab.LabelAt(i)
	}
	data := modelData{
		Config:               m.config,
		Words:                append([]VocabWord(nil), m.vocab.Words...),
		Labels:               labels,
		Iteration:            m.iteration,
		LearningRate:         m.learningRate,
		ReducingLearningRate: m.reducingLearningRate,
		Input2Hidden:         packDense(m.weights.Input2Hidden),
		Recurrent2Hidden:     packDense(m.weights.Recurrent2Hidden),
		Feature2Hidden:       packDense(m.weights.Feature2Hidden),
		Hidden2Compress:      packDense(m.weights.Hidden2Compress),
		Output:               packDense(m.weights.Output),
	}
	return gob.NewEncoder(f).Encode(&data)
}

// LoadModelFromFile rebuilds a model from a gob snapshot. The returned
// model has fresh state buffers and no corpora attached; call
// AttachEvaluationCorpus before TestModel.
func LoadModelFromFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var data modelData
	if err := gob.NewDecoder(f).Decode(&data); err != nil {
		return nil, fmt.Errorf("malformed model file %s: %w", path, err)
	}

	m := NewModelFromCorpora(data.Config,
		corpus.NewCorpus(nil), corpus.NewCorpus(nil), corpus.NewCorpus(nil))
	for _, w := range data.Words {
		i := m.vocab.AddWordToVocabulary(w.Word)
		m.vocab.Words[i].Count = w.Count
		m.vocab.Words[i].ClassIndex = w.ClassIndex
	}
	for _, l := range data.Labels {
		m.vocab.AddLabel(l)
	}
	numClasses := 1
	for _, w := range data.Words {
		if w.ClassIndex+1 > numClasses {
			numClasses = w.ClassIndex + 1
		}
	}
	if data.Config.NumClasses > numClasses {
		numClasses = data.Config.NumClasses
	}
	m.vocab.buildClassRanges(numClasses)

	m.allocate()
	m.weights = &Weights{
		Input2Hidden:     unpackDense(data.Input2Hidden),
		Recurrent2Hidden: unpackDense(data.Recurrent2Hidden),
		Feature2Hidden:   unpackDense(data.Feature2Hidden),
		Hidden2Compress:  unpackDense(data.Hidden2Compress),
		Output:           unpackDense(data.Output),
	}
	m.iteration = data.Iteration
	m.learningRate = data.LearningRate
	m.reducingLearningRate = data.ReducingLearningRate
	return m, nil
}

// AttachEvaluationCorpus encodes an evaluation corpus with this model's
// vocabulary and installs it for TestModel.
func (m *Model) AttachEvaluationCorpus(c *corpus.Corpus) {
	words := make([]string, m.vocab.NumWords())
	counts := make([]float64, m.vocab.NumWords())
	for i, w := range m.vocab.Words {
		words[i] = w.Word
		counts[i] = float64(w.Count)
	}
	labels := make([]string, m.vocab.NumLabels())
	for i := range labels {
		labels[i] = m.vocab.LabelAt(i)
	}
	c.SetVocabulary(words, counts, labels)
	m.corpusValidTest = c
}

// SaveWordEmbeddings writes the learned input-layer embeddings as plain
// text: one row per vocabulary word, the word followed by its vector.
func (m *Model) SaveWordEmbeddings(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for i, entry := range m.vocab.Words {
		if _, err := w.WriteString(entry.Word); err != nil {
			return err
		}
		if m.weights.Input2Hidden != nil {
			row := m.weights.Input2Hidden.RawRowView(i)
			for _, v := range row {
				if _, err := fmt.Fprintf(w, " %g", v); err != nil {
					return err
				}
			}
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return w.Flush()
}
