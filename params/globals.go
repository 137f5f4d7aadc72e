package params

// Dependency-label handling modes.
const (
	LabelsNone     = 0 // ignore dependency labels
	LabelsInWords  = 1 // fold the label into the word token itself
	LabelsFeatures = 2 // feed labels to the exponential-decay feature layer
)

type TrainingConfig struct {
	// Core network parameters
	HiddenSize   int // recurrent hidden layer width
	CompressSize int // optional second hidden layer (0 = disabled)
	NumClasses   int // word classes for the factored output layer

	// Backpropagation through time
	NumBpttSteps  int // BPTT window depth (0 = truncated depth 1)
	BpttBlockSize int // extra retained steps beyond the window

	// Optimization
	LearningRate   float64 // initial SGD learning rate (alpha)
	Regularization float64 // weight decay (beta), 0 disables

	// Dependency-tree features
	LabelMode    int     // one of the Labels* constants
	FeatureGamma float64 // exponential decay of the label feature layer

	// Convergence
	MinLogProbaImprovement float64 // ratio test threshold on validation logprob
	MaxEpochs              int     // hard epoch cap (0 = run until convergence)

	// Vocabulary
	MinWordCount int  // frequency pruning threshold
	UseClassFile bool // external class files are not supported

	// Artifacts
	ModelFile         string // model snapshot path ("" = do not persist)
	LogFile           string // CSV training log path ("" = stdout only)
	CorrectLabelsFile string // n-best correct-candidate labels path

	Debug bool
}

// Defaults for small experiments; main overrides from flags.
var Config = TrainingConfig{
	HiddenSize:   100,
	CompressSize: 0,
	NumClasses:   250,

	NumBpttSteps:  4,
	BpttBlockSize: 10,

	LearningRate:   0.1,
	Regularization: 1e-7,

	LabelMode:    LabelsFeatures,
	FeatureGamma: 0.9,

	MinLogProbaImprovement: 1.0001,

	MinWordCount: 3,
}
