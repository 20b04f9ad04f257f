package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"testing"

	"fukuyama-landprice/config"
	"fukuyama-landprice/ml"
	"fukuyama-landprice/models"
	"fukuyama-landprice/storage"
)

func trainerConfig() *config.Config {
	return &config.Config{TestSize: 0.2, Seed: 42, CVFolds: 5, MaxConcurrency: 2}
}

// syntheticRows prices land at a fixed rate per district, so log price is
// close to linear in log area.
func syntheticRows(n int) []models.CanonicalRow {
	districts := []string{"曙町", "元町", "春日町"}
	rates := []float64{50_000, 70_000, 40_000}
	rows := make([]models.CanonicalRow, 0, n)
	for i := 0; i < n; i++ {
		d := i % len(districts)
		area := float64(60 + 17*i)
		rows = append(rows, models.CanonicalRow{
			DistrictName:     districts[d],
			Area:             area,
			BuildingAgeYears: float64(i % 35),
			TradePrice:       rates[d] * area,
			PropertyType:     "宅地(土地)",
		})
	}
	return rows
}

func TestTrainerSelectsBestModel(t *testing.T) {
	tr := NewTrainer(trainerConfig(), newTestLogger())
	pred, err := tr.Train(context.Background(), syntheticRows(60))
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	info := pred.Info
	if info.RunID == "" || info.TrainedAt.IsZero() {
		t.Errorf("missing run metadata %+v", info)
	}
	if info.TrainRows != 48 || info.TestRows != 12 {
		t.Errorf("unexpected split %d/%d", info.TrainRows, info.TestRows)
	}
	if len(info.Results) != 5 {
		t.Fatalf("expected 5 candidate results, got %d", len(info.Results))
	}
	best, ok := info.Results[info.BestModelName]
	if !ok {
		t.Fatalf("best model %q has no result", info.BestModelName)
	}
	for name, s := range info.Results {
		if s.R2 > best.R2 {
			t.Errorf("%s has higher R² (%v) than selected %s (%v)", name, s.R2, info.BestModelName, best.R2)
		}
	}
	if best.R2 < 0.9 {
		t.Errorf("expected best R² ≥ 0.9, got %v", best.R2)
	}

	p, err := pred.Predict("曙町", 500, 3, "宅地(土地)")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if p.PredictedPrice <= 0 || math.Abs(p.PredictedPriceLog-math.Log1p(float64(p.PredictedPrice))) > 1e-6 {
		t.Errorf("inconsistent prediction %+v", p)
	}
}

type failingModel struct{}

func (failingModel) Fit([][]float64, []float64) error { return errors.New("boom") }
func (failingModel) Predict([]float64) float64       { return 0 }

func TestTrainerSkipsFailedCandidates(t *testing.T) {
	tr := NewTrainer(trainerConfig(), newTestLogger())
	tr.Candidates = []ml.Candidate{
		{Name: "broken", New: func() ml.Regressor { return failingModel{} }},
		{Name: ml.NameRidge, New: func() ml.Regressor { return &ml.Ridge{Alpha: 1} }},
	}
	pred, err := tr.Train(context.Background(), syntheticRows(30))
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if pred.Info.BestModelName != ml.NameRidge || len(pred.Info.Results) != 1 {
		t.Errorf("unexpected info %+v", pred.Info)
	}

	tr.Candidates = tr.Candidates[:1]
	if _, err := tr.Train(context.Background(), syntheticRows(30)); err == nil {
		t.Error("expected error when every candidate fails")
	}
}

func TestTrainerRejectsTinyDataset(t *testing.T) {
	tr := NewTrainer(trainerConfig(), newTestLogger())
	if _, err := tr.Train(context.Background(), syntheticRows(1)); err == nil {
		t.Error("expected error for a single row")
	}
}

func TestTrainerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tr := NewTrainer(trainerConfig(), newTestLogger())
	if _, err := tr.Train(ctx, syntheticRows(30)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestPredictorPersistence(t *testing.T) {
	tr := NewTrainer(trainerConfig(), newTestLogger())
	tr.Candidates = tr.Candidates[:2]
	pred, err := tr.Train(context.Background(), syntheticRows(40))
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	store := storage.NewArtifactStore(filepath.Join(dir, "models"), filepath.Join(dir, "label_encoders"))

	if _, err := LoadPredictor(store); !errors.Is(err, storage.ErrArtifactMissing) {
		t.Fatalf("expected ErrArtifactMissing before save, got %v", err)
	}
	if err := SavePredictor(store, pred); err != nil {
		t.Fatalf("SavePredictor: %v", err)
	}
	loaded, err := LoadPredictor(store)
	if err != nil {
		t.Fatalf("LoadPredictor: %v", err)
	}

	for _, tc := range []struct {
		district string
		area     float64
		age      int
	}{
		{"曙町", 100, 5},
		{"元町", 250, 0},
		{"未知町", 80, 40},
	} {
		want, err1 := pred.Predict(tc.district, tc.area, tc.age, "宅地(土地)")
		got, err2 := loaded.Predict(tc.district, tc.area, tc.age, "宅地(土地)")
		if err1 != nil || err2 != nil {
			t.Fatalf("Predict errors: %v, %v", err1, err2)
		}
		if got != want {
			t.Errorf("%v: loaded predictor differs: %+v vs %+v", tc, got, want)
		}
	}
	if loaded.Info.BestModelName != pred.Info.BestModelName {
		t.Errorf("info not restored: %+v", loaded.Info)
	}
}

func TestPredictRejectsNonFiniteArea(t *testing.T) {
	tr := NewTrainer(trainerConfig(), newTestLogger())
	tr.Candidates = tr.Candidates[1:2]
	pred, err := tr.Train(context.Background(), syntheticRows(20))
	if err != nil {
		t.Fatal(err)
	}
	_, err = pred.Predict("曙町", math.NaN(), 0, "宅地(土地)")
	var pe *PredictionError
	if !errors.As(err, &pe) {
		t.Errorf("expected PredictionError, got %v", err)
	}
}

func TestModelConfidence(t *testing.T) {
	tests := []struct {
		log  float64
		want string
	}{
		{1.0, models.ConfidenceHigh},
		{-2.0, models.ConfidenceHigh},
		{0.6, models.ConfidenceMedium},
		{2.4, models.ConfidenceMedium},
		{0.1, models.ConfidenceLow},
		{15.2, models.ConfidenceLow},
	}
	for _, tt := range tests {
		if got := ModelConfidence(tt.log); got != tt.want {
			t.Errorf("ModelConfidence(%v) = %s; want %s", tt.log, got, tt.want)
		}
	}
}

func ExampleModelConfidence() {
	fmt.Println(ModelConfidence(1.5))
	// Output: high
}
