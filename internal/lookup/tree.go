package lookup

import (
	"errors"
	"math"
	"sort"
)

// DecisionTree is a CART classifier over integer coded features, split by
// gini impurity.
type DecisionTree struct {
	root     *node
	classes  int
	features int
}

type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node

	// leaf only
	counts []int
	total  int
}

func (n *node) isLeaf() bool { return n.left == nil }

// FitTree grows a tree until every leaf is pure or cannot be split further.
func FitTree(x [][]int, y []int, classes int) (*DecisionTree, error) {
	if len(x) == 0 {
		return nil, errors.New("no training samples")
	}
	if len(x) != len(y) {
		return nil, errors.New("features and labels have different lengths")
	}

	features := len(x[0])
	for i := range x {
		if len(x[i]) != features {
			return nil, errors.New("samples have different feature counts")
		}
		if y[i] < 0 || y[i] >= classes {
			return nil, errors.New("label out of range")
		}
	}

	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}

	t := &DecisionTree{classes: classes, features: features}
	t.root = t.grow(x, y, idx)
	return t, nil
}

// Predict returns the majority class of the reached leaf together with its
// share of the leaf samples. Ties go to the lowest class code.
func (t *DecisionTree) Predict(sample []int) (int, float64) {
	n := t.root
	for !n.isLeaf() {
		if float64(sample[n.feature]) <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}

	best := 0
	for c, count := range n.counts {
		if count > n.counts[best] {
			best = c
		}
	}
	return best, float64(n.counts[best]) / float64(n.total)
}

func (t *DecisionTree) grow(x [][]int, y []int, idx []int) *node {
	counts := make([]int, t.classes)
	for _, i := range idx {
		counts[y[i]]++
	}

	impurity := gini(counts, len(idx))
	if impurity == 0 {
		return &node{counts: counts, total: len(idx)}
	}

	feature, threshold, ok := t.bestSplit(x, y, idx)
	if !ok {
		return &node{counts: counts, total: len(idx)}
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if float64(x[i][feature]) <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &node{
		feature:   feature,
		threshold: threshold,
		left:      t.grow(x, y, left),
		right:     t.grow(x, y, right),
	}
}

// bestSplit evaluates every midpoint between consecutive distinct values of
// every feature and keeps the split with the lowest weighted impurity. A split
// that does not lower the impurity is still taken, so interacting features
// (state and level together deciding the scheme) are separated further down.
// It fails only when every feature is constant in the node.
func (t *DecisionTree) bestSplit(x [][]int, y []int, idx []int) (int, float64, bool) {
	bestFeature, bestThreshold := -1, 0.0
	bestImpurity := math.Inf(1)

	for f := 0; f < t.features; f++ {
		values := distinct(x, idx, f)
		for v := 0; v+1 < len(values); v++ {
			threshold := float64(values[v]+values[v+1]) / 2

			left := make([]int, t.classes)
			right := make([]int, t.classes)
			nLeft, nRight := 0, 0
			for _, i := range idx {
				if float64(x[i][f]) <= threshold {
					left[y[i]]++
					nLeft++
				} else {
					right[y[i]]++
					nRight++
				}
			}

			total := float64(len(idx))
			weighted := float64(nLeft)/total*gini(left, nLeft) + float64(nRight)/total*gini(right, nRight)
			if weighted < bestImpurity {
				bestImpurity = weighted
				bestFeature = f
				bestThreshold = threshold
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}

func distinct(x [][]int, idx []int, feature int) []int {
	seen := make(map[int]struct{})
	values := make([]int, 0)
	for _, i := range idx {
		v := x[i][feature]
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	sort.Ints(values)
	return values
}

func gini(counts []int, total int) float64 {
	if total == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range counts {
		p := float64(c) / float64(total)
		sum += p * p
	}
	return 1 - sum
}
