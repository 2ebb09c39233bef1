// Package lookup implements the learned categorical lookup: (state, income
// level) pairs are label encoded and mapped to a scheme name by a decision
// tree fitted on the dataset.
package lookup

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

const (
	FeatureState  = "state"
	FeatureIncome = "income level"
	FeatureScheme = "scheme"
)

// Sample is one training row.
type Sample struct {
	State  string
	Income string
	Scheme string
}

// Options controls the hold-out evaluation. The serving tree is always fit
// on every sample.
type Options struct {
	// TestSize is the share of samples held out to measure accuracy. Zero
	// disables the evaluation.
	TestSize float64
	Seed     int64
}

type Prediction struct {
	Scheme     string
	Confidence float64
}

type Model struct {
	states  *LabelEncoder
	levels  *LabelEncoder
	schemes *LabelEncoder
	tree    *DecisionTree

	accuracy  float64
	evaluated bool
}

// Train fits the encoders and the decision tree.
func Train(samples []Sample, opts Options) (*Model, error) {
	if len(samples) == 0 {
		return nil, errors.New("no training samples")
	}
	if opts.TestSize < 0 || opts.TestSize >= 1 {
		return nil, fmt.Errorf("test size must be in [0, 1), got %v", opts.TestSize)
	}

	states := make([]string, len(samples))
	levels := make([]string, len(samples))
	names := make([]string, len(samples))
	for i, s := range samples {
		states[i], levels[i], names[i] = s.State, s.Income, s.Scheme
	}

	m := &Model{
		states:  FitEncoder(FeatureState, states),
		levels:  FitEncoder(FeatureIncome, levels),
		schemes: FitEncoder(FeatureScheme, names),
	}

	x := make([][]int, len(samples))
	y := make([]int, len(samples))
	for i, s := range samples {
		// values were used to fit the encoders, Transform cannot fail here
		stateCode, _ := m.states.Transform(s.State)
		levelCode, _ := m.levels.Transform(s.Income)
		schemeCode, _ := m.schemes.Transform(s.Scheme)
		x[i] = []int{stateCode, levelCode}
		y[i] = schemeCode
	}

	tree, err := FitTree(x, y, m.schemes.Len())
	if err != nil {
		return nil, fmt.Errorf("fit tree: %w", err)
	}
	m.tree = tree

	if opts.TestSize > 0 && len(samples) > 1 {
		acc, err := evaluate(x, y, m.schemes.Len(), opts)
		if err != nil {
			return nil, fmt.Errorf("evaluate: %w", err)
		}
		m.accuracy, m.evaluated = acc, true
	}

	return m, nil
}

// Predict returns the scheme for a state and income level. Values that were
// not seen while training yield an *UnknownCategoryError.
func (m *Model) Predict(state, level string) (Prediction, error) {
	stateCode, err := m.states.Transform(state)
	if err != nil {
		return Prediction{}, err
	}
	levelCode, err := m.levels.Transform(level)
	if err != nil {
		return Prediction{}, err
	}

	code, confidence := m.tree.Predict([]int{stateCode, levelCode})
	name, err := m.schemes.Inverse(code)
	if err != nil {
		return Prediction{}, err
	}

	return Prediction{Scheme: name, Confidence: confidence}, nil
}

// Accuracy returns the hold-out accuracy and whether it was measured.
func (m *Model) Accuracy() (float64, bool) {
	return m.accuracy, m.evaluated
}

func (m *Model) States() []string { return m.states.Classes() }

func evaluate(x [][]int, y []int, classes int, opts Options) (float64, error) {
	train, test := trainTestSplit(len(x), opts.TestSize, opts.Seed)

	trainX := make([][]int, len(train))
	trainY := make([]int, len(train))
	for i, idx := range train {
		trainX[i], trainY[i] = x[idx], y[idx]
	}

	tree, err := FitTree(trainX, trainY, classes)
	if err != nil {
		return 0, err
	}

	correct := 0
	for _, idx := range test {
		if predicted, _ := tree.Predict(x[idx]); predicted == y[idx] {
			correct++
		}
	}

	return float64(correct) / float64(len(test)), nil
}

// trainTestSplit shuffles sample indexes with a seeded source and holds out
// ceil(n*testSize) of them, keeping at least one sample on each side.
func trainTestSplit(n int, testSize float64, seed int64) ([]int, []int) {
	perm := rand.New(rand.NewSource(seed)).Perm(n)

	nTest := int(math.Ceil(float64(n) * testSize))
	if nTest < 1 {
		nTest = 1
	}
	if nTest > n-1 {
		nTest = n - 1
	}

	return perm[nTest:], perm[:nTest]
}
