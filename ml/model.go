// Package ml holds the regression models, feature scaling, evaluation
// metrics and data splitting used to train the price model.
package ml

import (
	"errors"
	"fmt"
)

// ErrEmptyTrainingSet is returned by Fit when there is nothing to learn from.
var ErrEmptyTrainingSet = errors.New("ml: empty training set")

// Regressor is a model mapping a feature row to a real-valued target.
type Regressor interface {
	Fit(X [][]float64, y []float64) error
	Predict(x []float64) float64
}

// Candidate names a model constructor taking part in model selection.
type Candidate struct {
	Name string
	New  func() Regressor
}

// Candidate names.
const (
	NameLinear           = "Linear Regression"
	NameRidge            = "Ridge"
	NameLasso            = "Lasso"
	NameRandomForest     = "Random Forest"
	NameGradientBoosting = "Gradient Boosting"
)

// DefaultCandidates returns the five models compared during training.
func DefaultCandidates(seed uint64) []Candidate {
	return []Candidate{
		{Name: NameLinear, New: func() Regressor { return &LinearRegression{} }},
		{Name: NameRidge, New: func() Regressor { return &Ridge{Alpha: 1.0} }},
		{Name: NameLasso, New: func() Regressor { return &Lasso{Alpha: 0.1, MaxIter: 1000, Tol: 1e-4} }},
		{Name: NameRandomForest, New: func() Regressor { return NewRandomForest(100, seed) }},
		{Name: NameGradientBoosting, New: func() Regressor { return NewGradientBoosting(100, 0.1, 3) }},
	}
}

// PredictAll applies m to every row of X.
func PredictAll(m Regressor, X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = m.Predict(x)
	}
	return out
}

func checkShape(X [][]float64, y []float64) (n, p int, err error) {
	n = len(X)
	if n == 0 {
		return 0, 0, ErrEmptyTrainingSet
	}
	if len(y) != n {
		return 0, 0, fmt.Errorf("ml: %d rows but %d targets", n, len(y))
	}
	p = len(X[0])
	for i, row := range X {
		if len(row) != p {
			return 0, 0, fmt.Errorf("ml: row %d has %d features, want %d", i, len(row), p)
		}
	}
	return n, p, nil
}
