package ml

import (
	"fmt"
	"math"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// TrainTestSplit shuffles 0..n-1 with a seeded generator and returns
// train and test index sets. The test set has ceil(testSize·n) rows.
func TrainTestSplit(n int, testSize float64, seed uint64) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("ml: test size %v outside (0, 1)", testSize)
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	if n < 2 || nTest < 1 || nTest >= n {
		return nil, nil, fmt.Errorf("ml: cannot split %d rows with test size %v", n, testSize)
	}
	perm := rand.New(rand.NewPCG(seed, 0)).Perm(n)
	return perm[nTest:], perm[:nTest], nil
}

// Fold is one train/validation partition.
type Fold struct {
	Train []int
	Valid []int
}

// KFold partitions 0..n-1 into k contiguous folds without shuffling; the
// first n%k folds get one extra row.
func KFold(n, k int) ([]Fold, error) {
	if k < 2 || k > n {
		return nil, fmt.Errorf("ml: cannot make %d folds from %d rows", k, n)
	}
	folds := make([]Fold, 0, k)
	start := 0
	for f := 0; f < k; f++ {
		size := n / k
		if f < n%k {
			size++
		}
		end := start + size
		fold := Fold{}
		for i := 0; i < n; i++ {
			if i >= start && i < end {
				fold.Valid = append(fold.Valid, i)
			} else {
				fold.Train = append(fold.Train, i)
			}
		}
		folds = append(folds, fold)
		start = end
	}
	return folds, nil
}

// CrossValR2 fits a fresh model per fold and returns the mean and population
// standard deviation of the validation R² scores.
func CrossValR2(newModel func() Regressor, X [][]float64, y []float64, k int) (mean, std float64, err error) {
	folds, err := KFold(len(X), k)
	if err != nil {
		return 0, 0, err
	}

	scores := make([]float64, len(folds))
	var g errgroup.Group
	for i, fold := range folds {
		g.Go(func() error {
			m := newModel()
			if err := m.Fit(Subset(X, fold.Train), SubsetY(y, fold.Train)); err != nil {
				return fmt.Errorf("fold %d: %w", i, err)
			}
			scores[i] = R2(SubsetY(y, fold.Valid), PredictAll(m, Subset(X, fold.Valid)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}
	mean, std = stat.PopMeanStdDev(scores, nil)
	return mean, std, nil
}

// Subset selects rows of X by index.
func Subset(X [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = X[j]
	}
	return out
}

// SubsetY selects targets by index.
func SubsetY(y []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}
	return out
}
