package ml

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// LinearRegression is ordinary least squares with an intercept. Rank
// deficient designs get the minimum-norm solution.
type LinearRegression struct {
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

func (m *LinearRegression) Fit(X [][]float64, y []float64) error {
	n, p, err := checkShape(X, y)
	if err != nil {
		return err
	}
	A, b, xMean, yMean := centered(X, y, n, p)

	m.Coef = make([]float64, p)
	var svd mat.SVD
	if !svd.Factorize(A, mat.SVDThin) {
		return errors.New("ml: linear regression: SVD did not converge")
	}
	if rank := svd.Rank(1e-10); rank > 0 {
		var w mat.Dense
		svd.SolveTo(&w, b, rank)
		for j := 0; j < p; j++ {
			m.Coef[j] = w.At(j, 0)
		}
	}
	m.Intercept = yMean - floats.Dot(xMean, m.Coef)
	return nil
}

func (m *LinearRegression) Predict(x []float64) float64 {
	return m.Intercept + floats.Dot(x, m.Coef)
}

// Ridge is least squares with an L2 penalty Alpha on the coefficients. The
// intercept is not penalised.
type Ridge struct {
	Alpha     float64   `json:"alpha"`
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

func (m *Ridge) Fit(X [][]float64, y []float64) error {
	n, p, err := checkShape(X, y)
	if err != nil {
		return err
	}
	A, b, xMean, yMean := centered(X, y, n, p)

	var gram mat.SymDense
	gram.SymOuterK(1, A.T())
	for j := 0; j < p; j++ {
		gram.SetSym(j, j, gram.At(j, j)+m.Alpha)
	}

	var rhs mat.VecDense
	rhs.MulVec(A.T(), b.ColView(0))

	var w mat.VecDense
	var chol mat.Cholesky
	if chol.Factorize(&gram) {
		if err := chol.SolveVecTo(&w, &rhs); err != nil {
			return err
		}
	} else if err := w.SolveVec(&gram, &rhs); err != nil {
		return err
	}

	m.Coef = make([]float64, p)
	for j := 0; j < p; j++ {
		m.Coef[j] = w.AtVec(j)
	}
	m.Intercept = yMean - floats.Dot(xMean, m.Coef)
	return nil
}

func (m *Ridge) Predict(x []float64) float64 {
	return m.Intercept + floats.Dot(x, m.Coef)
}

// Lasso minimises (1/2n)·||y − Xw||² + Alpha·||w||₁ by cyclic coordinate
// descent on centred data.
type Lasso struct {
	Alpha     float64   `json:"alpha"`
	MaxIter   int       `json:"max_iter"`
	Tol       float64   `json:"tol"`
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
	NIter     int       `json:"n_iter"`
}

func (m *Lasso) Fit(X [][]float64, y []float64) error {
	n, p, err := checkShape(X, y)
	if err != nil {
		return err
	}
	if m.MaxIter <= 0 {
		m.MaxIter = 1000
	}
	if m.Tol <= 0 {
		m.Tol = 1e-4
	}

	xMean := columnMeans(X, p)
	yMean := stat.Mean(y, nil)

	cols := make([][]float64, p)
	colSq := make([]float64, p)
	for j := 0; j < p; j++ {
		col := make([]float64, n)
		for i := 0; i < n; i++ {
			col[i] = X[i][j] - xMean[j]
		}
		cols[j] = col
		colSq[j] = floats.Dot(col, col) / float64(n)
	}

	resid := make([]float64, n)
	for i := range y {
		resid[i] = y[i] - yMean
	}

	w := make([]float64, p)
	for iter := 1; iter <= m.MaxIter; iter++ {
		m.NIter = iter
		var maxDelta, maxW float64
		for j := 0; j < p; j++ {
			if colSq[j] == 0 {
				continue
			}
			old := w[j]
			rho := floats.Dot(cols[j], resid)/float64(n) + colSq[j]*old
			w[j] = softThreshold(rho, m.Alpha) / colSq[j]
			if d := w[j] - old; d != 0 {
				floats.AddScaled(resid, -d, cols[j])
			}
			maxDelta = math.Max(maxDelta, math.Abs(w[j]-old))
			maxW = math.Max(maxW, math.Abs(w[j]))
		}
		if maxW == 0 || maxDelta/maxW < m.Tol {
			break
		}
	}

	m.Coef = w
	m.Intercept = yMean - floats.Dot(xMean, w)
	return nil
}

func (m *Lasso) Predict(x []float64) float64 {
	return m.Intercept + floats.Dot(x, m.Coef)
}

func softThreshold(v, lambda float64) float64 {
	switch {
	case v > lambda:
		return v - lambda
	case v < -lambda:
		return v + lambda
	default:
		return 0
	}
}

func columnMeans(X [][]float64, p int) []float64 {
	means := make([]float64, p)
	for _, row := range X {
		floats.Add(means, row)
	}
	floats.Scale(1/float64(len(X)), means)
	return means
}

// centered returns X and y with column means removed, as gonum matrices.
func centered(X [][]float64, y []float64, n, p int) (*mat.Dense, *mat.Dense, []float64, float64) {
	xMean := columnMeans(X, p)
	yMean := stat.Mean(y, nil)

	A := mat.NewDense(n, p, nil)
	b := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			A.Set(i, j, X[i][j]-xMean[j])
		}
		b.Set(i, 0, y[i]-yMean)
	}
	return A, b, xMean, yMean
}
