package rnn

import (
	"bufio"
	"errors"
	"log"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/BinbinBian/DependencyTreeRnn/corpus"
	"github.com/BinbinBian/DependencyTreeRnn/params"
)

// Model aggregates the vocabulary, weights, per-timestep state and BPTT
// window of one dependency-tree RNN language model. It is passed by
// exclusive ownership into the training loop; the checkpoint backup is
// an independently owned snapshot, never aliased with the live model.
type Model struct {
	config params.TrainingConfig

	vocab   *Vocabulary
	weights *Weights
	state   *State
	bptt    *BpttBuffer

	backupWeights *Weights
	backupState   *State

	corpusVocabulary *corpus.Corpus // raw counts
	corpusTrain      *corpus.Corpus // pruned, frequency-sorted
	corpusValidTest  *corpus.Corpus

	learningRate         float64
	initialLearningRate  float64
	reducingLearningRate bool
	iteration            int

	wordCounter   int64
	numTrainWords int64

	correctSentenceLabels []int

	// scratch vectors reused across timesteps
	eh          []float64
	gradScratch []float64
	bpttGrad    []float64
}

// NewModel builds a model over training and validation book lists.
func NewModel(cfg params.TrainingConfig, trainBooks, validBooks []string) *Model {
	return NewModelFromCorpora(cfg,
		corpus.NewCorpus(trainBooks),
		corpus.NewCorpus(trainBooks),
		corpus.NewCorpus(validBooks))
}

// NewModelFromCorpora builds a model over explicit corpora; tests use
// this with in-memory books.
func NewModelFromCorpora(cfg params.TrainingConfig, vocabCorpus, train, valid *corpus.Corpus) *Model {
	if cfg.NumClasses < 1 {
		cfg.NumClasses = 1
	}
	train.MinWordCount = cfg.MinWordCount
	return &Model{
		config:           cfg,
		vocab:            NewVocabulary(),
		corpusVocabulary: vocabCorpus,
		corpusTrain:      train,
		corpusValidTest:  valid,
		learningRate:     cfg.LearningRate,
	}
}

func (m *Model) Config() params.TrainingConfig { return m.config }
func (m *Model) Vocabulary() *Vocabulary       { return m.vocab }
func (m *Model) Weights() *Weights             { return m.weights }
func (m *Model) State() *State                 { return m.state }
func (m *Model) LearningRate() float64         { return m.learningRate }
func (m *Model) Iteration() int                { return m.iteration }

func (m *Model) GetVocabularySize() int { return m.vocab.NumWords() }
func (m *Model) GetLabelSize() int      { return m.vocab.NumLabels() }
func (m *Model) GetHiddenSize() int     { return m.config.HiddenSize }
func (m *Model) GetCompressSize() int   { return m.config.CompressSize }

// GetFeatureSize is the width of the label feature layer: the label
// vocabulary size when tree-label features are enabled, zero otherwise.
func (m *Model) GetFeatureSize() int {
	if m.config.LabelMode == params.LabelsFeatures {
		return m.vocab.NumLabels()
	}
	return 0
}

// LearnVocabularyFromTrainFile counts, prunes and frequency-sorts the
// training vocabulary through the corpus reader, then rebuilds the
// word and label maps with the end-of-sentence token at index 0.
func (m *Model) LearnVocabularyFromTrainFile() error {
	useTreeLabels := m.config.LabelMode == params.LabelsInWords
	total, err := m.corpusVocabulary.ReadVocabulary(useTreeLabels)
	if err != nil {
		return err
	}
	m.corpusTrain.FilterSortVocabulary(m.corpusVocabulary)

	m.vocab.Reset()

	// Classes must be frequency-based; an external class file cannot be
	// honored by the factored output layer.
	if m.config.UseClassFile {
		return errors.New("class files are not supported: word classes are frequency-based")
	}

	log.Printf("Vocab size (before pruning): %d", m.corpusVocabulary.NumWords())
	log.Printf("Vocab size (after pruning): %d", m.corpusTrain.NumWords())
	log.Printf("Label vocab size: %d", m.corpusTrain.NumLabels())

	m.vocab.AddWordToVocabulary(corpus.EndOfSentence)
	for k := 0; k < m.corpusTrain.NumWords(); k++ {
		word := m.corpusTrain.VocabularyReverse[k]
		index := m.vocab.SearchWordInVocabulary(word)
		if index == -1 {
			index = m.vocab.AddWordToVocabulary(word)
		}
		m.vocab.Words[index].Count = int(math.Round(m.corpusTrain.WordCountsDiscounted[k]))
	}
	for k := 0; k < m.corpusTrain.NumLabels(); k++ {
		label := m.corpusTrain.LabelsReverse[k]
		if m.vocab.SearchLabelInVocabulary(label) == -1 {
			m.vocab.AddLabel(label)
		}
	}

	m.corpusValidTest.CopyVocabulary(m.corpusTrain)
	m.numTrainWords = total

	log.Printf("Vocab size: %d", m.GetVocabularySize())
	log.Printf("Words in train corpus: %d", m.numTrainWords)
	return nil
}

// Initialize assigns word classes and allocates weights, state and the
// BPTT window for the current vocabulary and configuration.
func (m *Model) Initialize() {
	m.vocab.AssignClassesByFrequency(m.config.NumClasses)
	m.allocate()
	m.weights = NewWeights(m.vocab.NumWords(), m.config.HiddenSize,
		m.GetFeatureSize(), m.vocab.NumClasses(), m.config.CompressSize)
}

// allocate sizes the state buffers, BPTT window and scratch vectors for
// the current vocabulary; the weights are installed separately so that
// model loading can reuse this path.
func (m *Model) allocate() {
	sizeVocab := m.vocab.NumWords()
	sizeHidden := m.config.HiddenSize
	sizeFeature := m.GetFeatureSize()
	sizeClasses := m.vocab.NumClasses()
	sizeCompress := m.config.CompressSize

	m.state = NewState(sizeVocab, sizeHidden, sizeFeature, sizeClasses, sizeCompress)
	m.bptt = NewBpttBuffer(sizeVocab, sizeHidden, sizeFeature,
		m.config.NumBpttSteps, m.config.BpttBlockSize)

	m.eh = make([]float64, sizeHidden)
	m.gradScratch = make([]float64, sizeHidden)
	m.bpttGrad = make([]float64, sizeHidden)
	m.learningRate = m.config.LearningRate
	m.initialLearningRate = m.config.LearningRate
}

// checkpoint snapshots the live weights and state as the last known
// good model.
func (m *Model) checkpoint() {
	m.backupWeights = m.weights.Copy()
	m.backupState = m.state.Copy()
}

// rollback restores the last checkpoint, discarding the current epoch's
// updates. The backup itself stays intact for further rollbacks.
func (m *Model) rollback() {
	if m.backupWeights == nil {
		return
	}
	m.weights = m.backupWeights.Copy()
	m.state = m.backupState.Copy()
}

// LoadCorrectSentenceLabels reads one correct-candidate index per line,
// consumed by the n-best re-ranking accuracy at validation time.
func (m *Model) LoadCorrectSentenceLabels(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	m.correctSentenceLabels = m.correctSentenceLabels[:0]
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		label, err := strconv.Atoi(line)
		if err != nil {
			return err
		}
		m.correctSentenceLabels = append(m.correctSentenceLabels, label)
	}
	return scanner.Err()
}

// SetCorrectSentenceLabels installs labels directly (tests, callers
// with labels from another source).
func (m *Model) SetCorrectSentenceLabels(labels []int) {
	m.correctSentenceLabels = append([]int(nil), labels...)
}
