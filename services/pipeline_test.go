package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fukuyama-landprice/config"
	"fukuyama-landprice/ml"
	"fukuyama-landprice/storage"
)

func writeDump(t *testing.T, path string, n int) {
	t.Helper()
	districts := []string{"曙町", "元町", "春日町", "引野町"}
	var b strings.Builder
	b.WriteString("[\n")
	for i := 0; i < n; i++ {
		area := 80 + 13*i
		fmt.Fprintf(&b, "  {\n    \"DistrictName\": \"%s\",\n    \"Area\": \"%d\",\n    \"BuildingYear\": \"%d年\",\n    \"TradePrice\": \"%d\",\n    \"Type\": \"宅地(土地)\"\n  },\n",
			districts[i%len(districts)], area, 1990+i%30, area*45_000)
	}
	// one record the cleaner drops
	b.WriteString("  {\n    \"DistrictName\": \"曙町\",\n    \"TradePrice\": \"0\"\n  },\n")
	b.WriteString("]\n")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestPipelinePreprocessAndTrain(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "transactions.txt")
	writeDump(t, src, 40)

	cfg := &config.Config{
		Sources:        []string{src},
		ReferenceYear:  2024,
		CleanCSVPath:   filepath.Join(dir, "output", "preprocessed_data.csv"),
		ArtifactDir:    filepath.Join(dir, "models"),
		EncoderDir:     filepath.Join(dir, "label_encoders"),
		MaxConcurrency: 2,
		MaxRetries:     1,
		TestSize:       0.2,
		Seed:           42,
		CVFolds:        5,
	}

	store, err := storage.OpenSQLStore(context.Background(), storage.DriverSQLite, filepath.Join(dir, "landprice.db"), nil)
	if err != nil {
		t.Fatalf("OpenSQLStore: %v", err)
	}
	defer store.Close()

	p := NewPipeline(cfg, newTestLogger(), store)
	defer p.Close()
	p.Trainer().Candidates = []ml.Candidate{
		{Name: ml.NameLinear, New: func() ml.Regressor { return &ml.LinearRegression{} }},
		{Name: ml.NameRidge, New: func() ml.Regressor { return &ml.Ridge{Alpha: 1} }},
	}

	ctx := context.Background()
	rows, stats, err := p.Preprocess(ctx)
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	if stats.Input != 41 || len(rows) != 40 {
		t.Errorf("expected 41 records cleaned to 40 rows, got %d -> %d", stats.Input, len(rows))
	}

	fromCSV, err := storage.ReadCanonicalCSV(cfg.CleanCSVPath)
	if err != nil {
		t.Fatalf("ReadCanonicalCSV: %v", err)
	}
	if len(fromCSV) != len(rows) || fromCSV[0] != rows[0] {
		t.Errorf("CSV does not match cleaned rows")
	}

	stored, err := store.FetchTransactions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != len(rows) {
		t.Errorf("expected %d stored transactions, got %d", len(rows), len(stored))
	}

	pred, err := p.Train(ctx)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	loaded, err := LoadPredictor(storage.NewArtifactStore(cfg.ArtifactDir, cfg.EncoderDir))
	if err != nil {
		t.Fatalf("LoadPredictor: %v", err)
	}
	if loaded.Info.RunID != pred.Info.RunID {
		t.Errorf("persisted run id %q, want %q", loaded.Info.RunID, pred.Info.RunID)
	}

	run, err := store.LatestTrainingRun(ctx)
	if err != nil {
		t.Fatalf("LatestTrainingRun: %v", err)
	}
	if run.RunID != pred.Info.RunID {
		t.Errorf("recorded run %q, want %q", run.RunID, pred.Info.RunID)
	}
}

func TestPipelinePreprocessErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.txt")
	if err := os.WriteFile(bad, []byte("no records here"), 0o644); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name    string
		sources []string
	}{
		{"no sources", nil},
		{"missing file", []string{filepath.Join(dir, "missing.txt")}},
		{"malformed file", []string{bad}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &config.Config{
				Sources:        tc.sources,
				ReferenceYear:  2024,
				CleanCSVPath:   filepath.Join(dir, "out.csv"),
				MaxConcurrency: 1,
				TestSize:       0.2,
			}
			p := NewPipeline(cfg, newTestLogger(), nil)
			if _, _, err := p.Preprocess(context.Background()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestPipelinePreprocessAllDropped(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "no_area.txt")
	// no Area column: every row fails the positive-area check
	dump := `[
  {"DistrictName": "曙町", "TradePrice": "5000000"},
  {"DistrictName": "元町", "TradePrice": "7000000"}
]`
	if err := os.WriteFile(src, []byte(dump), 0o644); err != nil {
		t.Fatal(err)
	}

	csvPath := filepath.Join(dir, "out.csv")
	cfg := &config.Config{
		Sources:        []string{src},
		ReferenceYear:  2024,
		CleanCSVPath:   csvPath,
		MaxConcurrency: 1,
		TestSize:       0.2,
	}
	p := NewPipeline(cfg, newTestLogger(), nil)
	_, stats, err := p.Preprocess(context.Background())
	if !errors.Is(err, ErrNoRowsSurvived) {
		t.Fatalf("expected ErrNoRowsSurvived, got %v", err)
	}
	if stats.Input != 2 {
		t.Errorf("expected 2 input records, got %d", stats.Input)
	}
	if _, err := os.Stat(csvPath); !os.IsNotExist(err) {
		t.Errorf("no CSV should be written when every row is dropped, stat err = %v", err)
	}
}
