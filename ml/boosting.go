package ml

import "gonum.org/v1/gonum/stat"

// GradientBoosting fits shallow regression trees to the residuals of the
// running prediction under squared loss, starting from the target mean.
type GradientBoosting struct {
	NEstimators  int               `json:"n_estimators"`
	LearningRate float64           `json:"learning_rate"`
	MaxDepth     int               `json:"max_depth"`
	Init         float64           `json:"init"`
	Trees        []*RegressionTree `json:"trees"`
}

// NewGradientBoosting returns a booster with n stages.
func NewGradientBoosting(n int, learningRate float64, maxDepth int) *GradientBoosting {
	return &GradientBoosting{NEstimators: n, LearningRate: learningRate, MaxDepth: maxDepth}
}

func (g *GradientBoosting) Fit(X [][]float64, y []float64) error {
	n, _, err := checkShape(X, y)
	if err != nil {
		return err
	}

	g.Init = stat.Mean(y, nil)
	pred := make([]float64, n)
	for i := range pred {
		pred[i] = g.Init
	}

	resid := make([]float64, n)
	g.Trees = make([]*RegressionTree, 0, g.NEstimators)
	for stage := 0; stage < g.NEstimators; stage++ {
		for i := range y {
			resid[i] = y[i] - pred[i]
		}
		tree := NewRegressionTree(g.MaxDepth)
		if err := tree.Fit(X, resid); err != nil {
			return err
		}
		for i, x := range X {
			pred[i] += g.LearningRate * tree.Predict(x)
		}
		g.Trees = append(g.Trees, tree)
	}
	return nil
}

func (g *GradientBoosting) Predict(x []float64) float64 {
	out := g.Init
	for _, t := range g.Trees {
		out += g.LearningRate * t.Predict(x)
	}
	return out
}
