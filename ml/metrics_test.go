package ml

import (
	"math"
	"testing"
)

func TestMetrics(t *testing.T) {
	yTrue := []float64{1, 2, 3, 4}
	yPred := []float64{1, 2, 3, 6}

	if got := MSE(yTrue, yPred); got != 1 {
		t.Errorf("MSE: got %v, want 1", got)
	}
	if got := RMSE(yTrue, yPred); got != 1 {
		t.Errorf("RMSE: got %v, want 1", got)
	}
	if got := MAE(yTrue, yPred); got != 0.5 {
		t.Errorf("MAE: got %v, want 0.5", got)
	}
	// ssTot = 5, ssRes = 4
	if got := R2(yTrue, yPred); math.Abs(got-0.2) > 1e-12 {
		t.Errorf("R2: got %v, want 0.2", got)
	}
}

func TestR2ConstantTarget(t *testing.T) {
	if got := R2([]float64{2, 2}, []float64{2, 2}); got != 1 {
		t.Errorf("exact constant: got %v, want 1", got)
	}
	if got := R2([]float64{2, 2}, []float64{1, 3}); got != 0 {
		t.Errorf("inexact constant: got %v, want 0", got)
	}
}
