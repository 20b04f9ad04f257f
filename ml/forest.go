package ml

import (
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// RandomForest averages fully grown regression trees, each fit on a
// bootstrap sample drawn from a seeded generator.
type RandomForest struct {
	NEstimators int               `json:"n_estimators"`
	Seed        uint64            `json:"seed"`
	MaxDepth    int               `json:"max_depth"`
	Trees       []*RegressionTree `json:"trees"`
}

// NewRandomForest returns a forest of n unpruned trees.
func NewRandomForest(n int, seed uint64) *RandomForest {
	return &RandomForest{NEstimators: n, Seed: seed}
}

func (f *RandomForest) Fit(X [][]float64, y []float64) error {
	n, _, err := checkShape(X, y)
	if err != nil {
		return err
	}
	if f.NEstimators <= 0 {
		f.NEstimators = 100
	}

	// Draw every bootstrap sample up front so the result does not depend on
	// goroutine scheduling.
	rng := rand.New(rand.NewPCG(f.Seed, f.Seed^0x9e3779b97f4a7c15))
	samples := make([][]int, f.NEstimators)
	for k := range samples {
		s := make([]int, n)
		for i := range s {
			s[i] = rng.IntN(n)
		}
		samples[k] = s
	}

	f.Trees = make([]*RegressionTree, f.NEstimators)
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for k := range samples {
		g.Go(func() error {
			tree := NewRegressionTree(f.MaxDepth)
			tree.fitIndices(X, y, samples[k])
			f.Trees[k] = tree
			return nil
		})
	}
	return g.Wait()
}

func (f *RandomForest) Predict(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	var sum float64
	for _, t := range f.Trees {
		sum += t.Predict(x)
	}
	return sum / float64(len(f.Trees))
}
