package rnn

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/BinbinBian/DependencyTreeRnn/params"
	"github.com/BinbinBian/DependencyTreeRnn/utils"
)

// EpochStats summarizes one training epoch for the caller and the CSV
// training log.
type EpochStats struct {
	Iteration           int
	LearningRate        float64
	TrainEntropy        float64
	TrainPerplexity     float64
	ValidLogProbability float64
	ValidAccuracy       float64
	ValidEntropy        float64
	ValidPerplexity     float64
	RolledBack          bool
}

func entropyPerplexity(logProbability float64, words int) (float64, float64) {
	if words == 0 {
		return 0, 0
	}
	entropy := -logProbability / math.Log10(2) / float64(words)
	perplexity := utils.ExponentiateBase10(-logProbability / float64(words))
	return entropy, perplexity
}

// TrainModel runs epochs over the training books until the validation
// log-probability stops improving. After each epoch the model is
// checkpointed when validation improved and rolled back to the last
// checkpoint when it regressed; once the improvement ratio falls below
// the configured threshold the learning rate is halved each epoch, and
// the next threshold crossing persists the model and stops.
func (m *Model) TrainModel() ([]EpochStats, error) {
	// Very large negative sentinel so the first epoch always checkpoints.
	lastValidLogProbability := -1e37
	m.wordCounter = 0
	m.initialLearningRate = m.learningRate

	if m.config.NumClasses > m.GetVocabularySize() {
		log.Printf("WARNING: number of classes exceeds vocabulary size")
	}
	if m.config.CorrectLabelsFile != "" {
		if err := m.LoadCorrectSentenceLabels(m.config.CorrectLabelsFile); err != nil {
			return nil, err
		}
	}

	var logWriter *csv.Writer
	if m.config.LogFile != "" {
		f, err := os.Create(m.config.LogFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		logWriter = csv.NewWriter(f)
		logWriter.Write([]string{"iteration", "book", "alpha", "entropy", "perplexity",
			"accuracy", "fraction", "words_per_sec", "split"})
		defer logWriter.Flush()
	}
	record := func(fields ...string) {
		if logWriter != nil {
			logWriter.Write(fields)
			logWriter.Flush()
		}
	}

	useTreeLabels := m.config.LabelMode == params.LabelsInWords
	var stats []EpochStats

	for {
		trainLogProbability := 0.0
		uniqueWordCounter := 0

		log.Printf("Iter: %d Alpha: %g", m.iteration, m.learningRate)

		// Reset everything, including the word history and BPTT window.
		m.state.ResetAllActivations()
		m.bptt.Reset()

		start := time.Now()
		for idxBook := 0; idxBook < m.corpusTrain.NumBooks(); idxBook++ {
			if err := m.corpusTrain.NextBook(); err != nil {
				return stats, err
			}
			if err := m.corpusTrain.ReadBook(useTreeLabels); err != nil {
				return stats, err
			}
			book := m.corpusTrain.CurrentBook

			book.ResetSentence()
			for idxSentence := 0; idxSentence < book.NumSentences(); idxSentence++ {
				// Log-probability per token position, so words visited
				// by several unroll paths count once.
				logProbSentence := make(map[int]float64)

				book.ResetUnroll()
				numUnrolls := book.NumUnrolls(idxSentence)
				for idxUnroll := 0; idxUnroll < numUnrolls; idxUnroll++ {
					// Each unroll restarts from a clean recurrent state,
					// the end-of-sentence word and the root label.
					m.state.ResetHiddenStateAndWordHistory()
					m.ResetFeatureLabelVector(m.state)
					lastWord := 0
					lastLabel := 0

					for ok := true; ok; {
						tokenNumber := book.CurrentTokenNumberInSentence()
						word := book.CurrentTokenWord()
						discount := book.CurrentTokenDiscount()
						label := book.CurrentTokenLabel()

						if m.config.LabelMode == params.LabelsFeatures {
							m.UpdateFeatureLabelVector(lastLabel, m.state)
						}
						if err := m.ForwardPropagateOneStep(lastWord, word, m.state); err != nil {
							return stats, err
						}

						// OOV words carry no probability mass.
						if word >= 0 {
							logProbabilityWord := m.WordLogProbability(word, m.state)
							if _, seen := logProbSentence[tokenNumber]; !seen {
								logProbSentence[tokenNumber] = logProbabilityWord
								trainLogProbability += logProbabilityWord
								uniqueWordCounter++
							}
							m.wordCounter++
						}
						if math.IsNaN(trainLogProbability) {
							return stats, fmt.Errorf("infinite training log-likelihood: %w",
								ErrNumericalDivergence)
						}

						if m.config.NumBpttSteps > 0 {
							m.bptt.Shift(lastWord, m.state.HiddenLayer, m.state.FeatureLayer)
						}

						// Discount the learning rate for repeat visits of
						// the same tree node; never let it leak past this
						// token.
						alphaBackup := m.learningRate
						m.learningRate *= discount
						m.BackPropagateErrorsThenOneStepGradientDescent(lastWord, word, m.state)
						m.learningRate = alphaBackup

						m.ForwardPropagateRecurrentConnectionOnly(m.state)
						m.ForwardPropagateWordHistory(m.state, word)
						lastWord = word
						lastLabel = label
						ok = book.NextTokenInUnroll() >= 0
					}
					book.NextUnrollInSentence()
				}

				if idxSentence%1000 == 0 && uniqueWordCounter > 0 {
					entropy, perplexity := entropyPerplexity(trainLogProbability, uniqueWordCounter)
					fraction := 0.0
					if m.numTrainWords > 0 {
						fraction = 100 * float64(m.wordCounter) / float64(m.numTrainWords)
					}
					wps := float64(m.wordCounter) / time.Since(start).Seconds()
					log.Printf("Iter,%d,Book,%d,Alpha,%g,TRAINentropy,%.4f,TRAINppx,%.4f,fraction,%.2f,words/sec,%.0f",
						m.iteration, idxBook, m.learningRate, entropy, perplexity, fraction, wps)
					record(fmt.Sprint(m.iteration), fmt.Sprint(idxBook),
						fmt.Sprint(m.learningRate), fmt.Sprint(entropy), fmt.Sprint(perplexity),
						"", fmt.Sprint(fraction), fmt.Sprintf("%.0f", wps), "train")
				}
				book.NextSentence()
			}
		}

		trainEntropy, trainPerplexity := entropyPerplexity(trainLogProbability, uniqueWordCounter)
		wps := float64(m.wordCounter) / time.Since(start).Seconds()
		log.Printf("Iter,%d,Alpha,%g,Book,ALL,TRAINentropy,%.4f,TRAINppx,%.4f,fraction,100,words/sec,%.0f",
			m.iteration, m.learningRate, trainEntropy, trainPerplexity, wps)
		record(fmt.Sprint(m.iteration), "ALL", fmt.Sprint(m.learningRate),
			fmt.Sprint(trainEntropy), fmt.Sprint(trainPerplexity), "", "100",
			fmt.Sprintf("%.0f", wps), "train")

		// Validation pass.
		validLogProbability, validWordCounter, _, sentenceScores, err :=
			m.TestModel(m.corpusValidTest)
		if err != nil {
			return stats, err
		}
		validEntropy, validPerplexity := entropyPerplexity(validLogProbability, validWordCounter)
		validAccuracy := AccuracyNBestList(sentenceScores, m.correctSentenceLabels)
		if len(m.correctSentenceLabels) > 0 {
			log.Printf("Accuracy %.2f%% on %d sentences",
				validAccuracy*100, len(sentenceScores))
		}
		log.Printf("Iter,%d,Alpha,%g,VALIDaccuracy,%.4f,VALIDentropy,%.4f,VALIDppx,%.4f,words/sec,%.0f",
			m.iteration, m.learningRate, validAccuracy, validEntropy, validPerplexity, wps)
		record(fmt.Sprint(m.iteration), "ALL", fmt.Sprint(m.learningRate),
			fmt.Sprint(validEntropy), fmt.Sprint(validPerplexity),
			fmt.Sprint(validAccuracy), "100", fmt.Sprintf("%.0f", wps), "valid")

		m.wordCounter = 0

		rolledBack := validLogProbability < lastValidLogProbability
		if rolledBack {
			m.rollback()
			log.Printf("Restored the weights from the previous iteration")
		} else {
			m.checkpoint()
		}

		stats = append(stats, EpochStats{
			Iteration:           m.iteration,
			LearningRate:        m.learningRate,
			TrainEntropy:        trainEntropy,
			TrainPerplexity:     trainPerplexity,
			ValidLogProbability: validLogProbability,
			ValidAccuracy:       validAccuracy,
			ValidEntropy:        validEntropy,
			ValidPerplexity:     validPerplexity,
			RolledBack:          rolledBack,
		})

		// Ratio test on two negative log-probabilities, reproduced as
		// specified.
		if validLogProbability*m.config.MinLogProbaImprovement < lastValidLogProbability {
			if !m.reducingLearningRate {
				m.reducingLearningRate = true
			} else {
				if err := m.persistModel(); err != nil {
					return stats, err
				}
				break
			}
		}

		if m.reducingLearningRate {
			m.learningRate /= 2
		}
		lastValidLogProbability = validLogProbability
		m.iteration++
		if err := m.persistModel(); err != nil {
			return stats, err
		}
		if m.config.MaxEpochs > 0 && m.iteration >= m.config.MaxEpochs {
			break
		}
	}
	return stats, nil
}

// persistModel writes the model snapshot and the word embeddings when a
// model file is configured.
func (m *Model) persistModel() error {
	if m.config.ModelFile == "" {
		return nil
	}
	if err := m.SaveModelToFile(m.config.ModelFile); err != nil {
		return err
	}
	return m.SaveWordEmbeddings(m.config.ModelFile + ".word_embeddings.txt")
}
