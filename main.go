package main

import (
	"bufio"
	"flag"
	"log"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/BinbinBian/DependencyTreeRnn/corpus"
	"github.com/BinbinBian/DependencyTreeRnn/params"
	"github.com/BinbinBian/DependencyTreeRnn/rnn"
)

var (
	trainList = flag.String("train", "", "file listing training book JSON paths, one per line")
	validList = flag.String("valid", "", "file listing validation book JSON paths")
	testList  = flag.String("test", "", "evaluate an existing model on these books instead of training")
	modelFile = flag.String("rnnlm", "", "model snapshot path")

	hidden    = flag.Int("hidden", params.Config.HiddenSize, "hidden layer size")
	compress  = flag.Int("compress", params.Config.CompressSize, "compression layer size (0 = disabled)")
	classes   = flag.Int("classes", params.Config.NumClasses, "number of word classes")
	bptt      = flag.Int("bptt", params.Config.NumBpttSteps, "BPTT window depth (0 = truncated)")
	bpttBlock = flag.Int("bptt-block", params.Config.BpttBlockSize, "extra BPTT retained steps")

	alpha = flag.Float64("alpha", params.Config.LearningRate, "initial learning rate")
	beta  = flag.Float64("beta", params.Config.Regularization, "weight decay")
	gamma = flag.Float64("gamma", params.Config.FeatureGamma, "feature layer decay")

	minImprovement = flag.Float64("min-improvement", params.Config.MinLogProbaImprovement,
		"validation improvement ratio below which learning-rate reduction starts")
	maxEpochs = flag.Int("max-epochs", params.Config.MaxEpochs, "epoch cap (0 = run until convergence)")
	minCount  = flag.Int("min-count", params.Config.MinWordCount, "vocabulary pruning threshold")
	labelMode = flag.Int("label-mode", params.Config.LabelMode,
		"dependency labels: 0 = ignored, 1 = folded into words, 2 = feature layer")

	correctLabels = flag.String("labels", "", "correct-candidate labels for n-best accuracy")
	logFile       = flag.String("log", "", "CSV training log path")
	debug         = flag.Bool("debug", false, "verbose diagnostics")
	seed          = flag.Int64("seed", 0, "random seed (0 = time-based)")
)

func main() {
	flag.Parse()

	if *seed == 0 {
		rand.Seed(time.Now().UTC().UnixNano())
	} else {
		rand.Seed(*seed)
	}

	cfg := params.Config
	cfg.HiddenSize = *hidden
	cfg.CompressSize = *compress
	cfg.NumClasses = *classes
	cfg.NumBpttSteps = *bptt
	cfg.BpttBlockSize = *bpttBlock
	cfg.LearningRate = *alpha
	cfg.Regularization = *beta
	cfg.FeatureGamma = *gamma
	cfg.MinLogProbaImprovement = *minImprovement
	cfg.MaxEpochs = *maxEpochs
	cfg.MinWordCount = *minCount
	cfg.LabelMode = *labelMode
	cfg.ModelFile = *modelFile
	cfg.LogFile = *logFile
	cfg.CorrectLabelsFile = *correctLabels
	cfg.Debug = *debug

	if *testList != "" {
		if *modelFile == "" {
			log.Fatal("-test requires -rnnlm")
		}
		testBooks, err := readBookList(*testList)
		if err != nil {
			log.Fatal(err)
		}
		model, err := rnn.LoadModelFromFile(*modelFile)
		if err != nil {
			log.Fatal(err)
		}
		model.AttachEvaluationCorpus(corpus.NewCorpus(testBooks))
		if *correctLabels != "" {
			if err := model.LoadCorrectSentenceLabels(*correctLabels); err != nil {
				log.Fatal(err)
			}
		}
		if err := model.Evaluate(); err != nil {
			log.Fatal(err)
		}
		return
	}

	if *trainList == "" || *validList == "" {
		log.Fatal("training requires -train and -valid (or -test for evaluation)")
	}
	trainBooks, err := readBookList(*trainList)
	if err != nil {
		log.Fatal(err)
	}
	validBooks, err := readBookList(*validList)
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("Starting training tree-dependent LM using %d books...", len(trainBooks))
	t1 := time.Now()

	model := rnn.NewModel(cfg, trainBooks, validBooks)
	if err := model.LearnVocabularyFromTrainFile(); err != nil {
		log.Fatal(err)
	}
	model.Initialize()
	if _, err := model.TrainModel(); err != nil {
		log.Fatal(err)
	}
	log.Printf("Time taken to train: %s", time.Since(t1))
}

// readBookList reads one book path per line, skipping blanks.
func readBookList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var books []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			books = append(books, line)
		}
	}
	return books, scanner.Err()
}
