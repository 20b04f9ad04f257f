package ml

import (
	"sort"
)

// treeNode is one node of a fitted regression tree. Leaves have Left == -1.
type treeNode struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Value     float64 `json:"v"`
}

// RegressionTree is a CART tree minimising squared error. A MaxDepth of 0
// grows the tree until leaves are pure or too small to split.
type RegressionTree struct {
	MaxDepth        int        `json:"max_depth"`
	MinSamplesSplit int        `json:"min_samples_split"`
	MinSamplesLeaf  int        `json:"min_samples_leaf"`
	Nodes           []treeNode `json:"nodes"`
}

// NewRegressionTree returns a tree with the usual CART defaults.
func NewRegressionTree(maxDepth int) *RegressionTree {
	return &RegressionTree{MaxDepth: maxDepth, MinSamplesSplit: 2, MinSamplesLeaf: 1}
}

func (t *RegressionTree) Fit(X [][]float64, y []float64) error {
	n, _, err := checkShape(X, y)
	if err != nil {
		return err
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	t.fitIndices(X, y, idx)
	return nil
}

// fitIndices grows the tree on the rows named by idx. Repeated indices
// (bootstrap samples) count with their multiplicity.
func (t *RegressionTree) fitIndices(X [][]float64, y []float64, idx []int) {
	if t.MinSamplesSplit < 2 {
		t.MinSamplesSplit = 2
	}
	if t.MinSamplesLeaf < 1 {
		t.MinSamplesLeaf = 1
	}
	t.Nodes = t.Nodes[:0]
	t.grow(X, y, idx, 0)
}

func (t *RegressionTree) grow(X [][]float64, y []float64, idx []int, depth int) int {
	var sum, sumSq float64
	for _, i := range idx {
		sum += y[i]
		sumSq += y[i] * y[i]
	}
	n := float64(len(idx))
	mean := sum / n

	node := len(t.Nodes)
	t.Nodes = append(t.Nodes, treeNode{Feature: -1, Left: -1, Right: -1, Value: mean})

	if len(idx) < t.MinSamplesSplit || (t.MaxDepth > 0 && depth >= t.MaxDepth) {
		return node
	}
	if sumSq-sum*sum/n <= 1e-12*n {
		return node
	}

	feature, threshold, ok := t.bestSplit(X, y, idx, sum)
	if !ok {
		return node
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := t.grow(X, y, left, depth+1)
	r := t.grow(X, y, right, depth+1)
	t.Nodes[node].Feature = feature
	t.Nodes[node].Threshold = threshold
	t.Nodes[node].Left = l
	t.Nodes[node].Right = r
	return node
}

// bestSplit scans every feature for the threshold that maximises the
// reduction in squared error, i.e. maximises sumL²/nL + sumR²/nR.
func (t *RegressionTree) bestSplit(X [][]float64, y []float64, idx []int, total float64) (int, float64, bool) {
	n := len(idx)
	p := len(X[idx[0]])
	minLeaf := t.MinSamplesLeaf

	bestScore := total * total / float64(n)
	bestFeature, bestThreshold := -1, 0.0

	order := make([]int, n)
	for f := 0; f < p; f++ {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool { return X[order[a]][f] < X[order[b]][f] })

		var leftSum float64
		for k := 0; k < n-1; k++ {
			leftSum += y[order[k]]
			nl := k + 1
			nr := n - nl
			if nl < minLeaf {
				continue
			}
			if nr < minLeaf {
				break
			}
			lo, hi := X[order[k]][f], X[order[k+1]][f]
			if lo == hi {
				continue
			}
			rightSum := total - leftSum
			score := leftSum*leftSum/float64(nl) + rightSum*rightSum/float64(nr)
			if score > bestScore+1e-12 {
				bestScore = score
				bestFeature = f
				bestThreshold = lo + (hi-lo)/2
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

func (t *RegressionTree) Predict(x []float64) float64 {
	if len(t.Nodes) == 0 {
		return 0
	}
	i := 0
	for {
		nd := t.Nodes[i]
		if nd.Left < 0 {
			return nd.Value
		}
		if x[nd.Feature] <= nd.Threshold {
			i = nd.Left
		} else {
			i = nd.Right
		}
	}
}
