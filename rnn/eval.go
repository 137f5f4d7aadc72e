package rnn

import (
	"log"
	"math"

	"github.com/BinbinBian/DependencyTreeRnn/corpus"
	"github.com/BinbinBian/DependencyTreeRnn/params"
)

// UnknownWordIndex is the conventional vocabulary index of the <unk>
// sentinel; it carries no probability mass during evaluation.
const UnknownWordIndex = 1

// TestModel replays forward propagation over a corpus without weight
// updates. Per sentence it accumulates the base-10 log-probability of
// each unique token position (revisits from other unroll paths are
// deduplicated) and records one aggregate score per sentence.
// Out-of-vocabulary tokens and the <unk> sentinel contribute nothing
// and are tallied separately.
func (m *Model) TestModel(c *corpus.Corpus) (testLogProbability float64, uniqueWordCounter, numUnk int, sentenceScores []float64, err error) {
	useTreeLabels := m.config.LabelMode == params.LabelsInWords

	m.state.ResetAllActivations()
	m.ForwardPropagateRecurrentConnectionOnly(m.state)

	for idxBook := 0; idxBook < c.NumBooks(); idxBook++ {
		if err = c.NextBook(); err != nil {
			return
		}
		if err = c.ReadBook(useTreeLabels); err != nil {
			return
		}
		book := c.CurrentBook

		book.ResetSentence()
		for idxSentence := 0; idxSentence < book.NumSentences(); idxSentence++ {
			logProbSentence := make(map[int]float64)
			sentenceLogProbability := 0.0

			book.ResetUnroll()
			numUnrolls := book.NumUnrolls(idxSentence)
			for idxUnroll := 0; idxUnroll < numUnrolls; idxUnroll++ {
				m.state.ResetHiddenStateAndWordHistory()
				m.ResetFeatureLabelVector(m.state)

				// The unroll starts from the end-of-sentence word and
				// the root label.
				lastWord := 0
				lastLabel := 0

				for ok := true; ok; {
					tokenNumber := book.CurrentTokenNumberInSentence()
					word := book.CurrentTokenWord()
					label := book.CurrentTokenLabel()

					if m.config.LabelMode == params.LabelsFeatures {
						m.UpdateFeatureLabelVector(lastLabel, m.state)
					}
					if err = m.ForwardPropagateOneStep(lastWord, word, m.state); err != nil {
						return
					}

					if word >= 0 && word != UnknownWordIndex {
						logProbabilityWord := m.WordLogProbability(word, m.state)
						if prev, seen := logProbSentence[tokenNumber]; !seen {
							logProbSentence[tokenNumber] = logProbabilityWord
							testLogProbability += logProbabilityWord
							sentenceLogProbability += logProbabilityWord
							uniqueWordCounter++
						} else if m.config.Debug && prev != logProbabilityWord {
							log.Printf("token %d revisited with different score: %g vs %g",
								tokenNumber, prev, logProbabilityWord)
						}
					} else {
						numUnk++
					}

					m.ForwardPropagateRecurrentConnectionOnly(m.state)
					m.ForwardPropagateWordHistory(m.state, word)
					lastWord = word
					lastLabel = label
					ok = book.NextTokenInUnroll() >= 0
				}
				book.NextUnrollInSentence()
			}

			sentenceScores = append(sentenceScores, sentenceLogProbability)
			book.NextSentence()
		}
	}

	if !isFinite(testLogProbability) {
		err = ErrNumericalDivergence
		return
	}
	if m.config.Debug {
		perplexity := 0.0
		if uniqueWordCounter > 0 {
			perplexity = math.Pow(10, -testLogProbability/float64(uniqueWordCounter))
		}
		log.Printf("Log probability: %g, number of words %d (%d <unk>, %d sentences), PPL %g",
			testLogProbability, uniqueWordCounter, numUnk, len(sentenceScores), perplexity)
	}
	return
}

// Evaluate runs TestModel over the attached evaluation corpus and
// reports perplexity, entropy and, when labels are loaded, the n-best
// re-ranking accuracy.
func (m *Model) Evaluate() error {
	logProb, words, numUnk, scores, err := m.TestModel(m.corpusValidTest)
	if err != nil {
		return err
	}
	perplexity := 0.0
	entropy := 0.0
	if words > 0 {
		perplexity = math.Pow(10, -logProb/float64(words))
		entropy = -logProb / math.Log10(2) / float64(words)
	}
	log.Printf("Log probability: %g, number of words %d (%d <unk>, %d sentences)",
		logProb, words, numUnk, len(scores))
	log.Printf("PPL net (perplexity without OOV): %g, entropy %g", perplexity, entropy)
	if len(m.correctSentenceLabels) > 0 {
		accuracy := AccuracyNBestList(scores, m.correctSentenceLabels)
		log.Printf("Accuracy %.2f%% on %d sentences", accuracy*100, len(scores))
	}
	return nil
}

// AccuracyNBestList scores an n-best re-ranking task: the sentence
// scores form consecutive equal-size candidate groups, one label per
// group naming the correct candidate. A group counts as correct when
// the labeled candidate achieves the maximal score.
func AccuracyNBestList(sentenceScores []float64, correctLabels []int) float64 {
	if len(correctLabels) == 0 || len(sentenceScores) < len(correctLabels) {
		return 0
	}
	groupSize := len(sentenceScores) / len(correctLabels)
	if groupSize == 0 {
		return 0
	}
	matches := 0
	for g, label := range correctLabels {
		group := sentenceScores[g*groupSize : (g+1)*groupSize]
		best := 0
		for i, score := range group {
			if score > group[best] {
				best = i
			}
		}
		if best == label {
			matches++
		}
	}
	return float64(matches) / float64(len(correctLabels))
}
