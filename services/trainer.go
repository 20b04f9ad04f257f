package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"fukuyama-landprice/config"
	"fukuyama-landprice/ml"
	"fukuyama-landprice/models"
	"fukuyama-landprice/utils"
)

// Trainer fits every candidate model on the cleaned dataset and keeps the
// one with the best held-out R².
type Trainer struct {
	logger     *utils.Logger
	testSize   float64
	seed       uint64
	folds      int
	workers    int
	Candidates []ml.Candidate
}

// NewTrainer creates a Trainer with the default candidate set.
func NewTrainer(cfg *config.Config, logger *utils.Logger) *Trainer {
	return &Trainer{
		logger:     logger,
		testSize:   cfg.TestSize,
		seed:       cfg.Seed,
		folds:      cfg.CVFolds,
		workers:    cfg.MaxConcurrency,
		Candidates: ml.DefaultCandidates(cfg.Seed),
	}
}

type candidateResult struct {
	name  string
	model ml.Regressor
	score models.ModelScore
	err   error
}

// Train encodes rows, splits them, scales features and fits the candidates
// concurrently. The returned Predictor carries the winning model.
func (t *Trainer) Train(ctx context.Context, rows []models.CanonicalRow) (*Predictor, error) {
	if len(t.Candidates) == 0 {
		return nil, errors.New("trainer: no candidate models")
	}

	enc := FitEncoder(rows)
	X := enc.Matrix(rows)
	y := Targets(rows)

	trainIdx, testIdx, err := ml.TrainTestSplit(len(rows), t.testSize, t.seed)
	if err != nil {
		return nil, fmt.Errorf("trainer: %w", err)
	}

	scaler := &ml.StandardScaler{}
	if err := scaler.Fit(ml.Subset(X, trainIdx)); err != nil {
		return nil, fmt.Errorf("trainer: fit scaler: %w", err)
	}
	XTrain, err := scaler.TransformAll(ml.Subset(X, trainIdx))
	if err != nil {
		return nil, fmt.Errorf("trainer: scale train: %w", err)
	}
	XTest, err := scaler.TransformAll(ml.Subset(X, testIdx))
	if err != nil {
		return nil, fmt.Errorf("trainer: scale test: %w", err)
	}
	yTrain := ml.SubsetY(y, trainIdx)
	yTest := ml.SubsetY(y, testIdx)

	folds := min(t.folds, len(trainIdx))
	t.logger.Info("[trainer] Training %d candidates on %d rows (%d held out, %d-fold CV)",
		len(t.Candidates), len(trainIdx), len(testIdx), folds)

	results := make([]candidateResult, len(t.Candidates))
	pool := utils.NewWorkerPool(t.workers, 0)
	for i, c := range t.Candidates {
		if ctx.Err() != nil {
			break
		}
		pool.Submit(func() {
			results[i] = t.evaluate(c, XTrain, yTrain, XTest, yTest, folds)
		})
	}
	pool.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("trainer: %w", err)
	}

	info := models.ModelInfo{
		RunID:          uuid.NewString(),
		FeatureColumns: append([]string(nil), models.FeatureNames...),
		Results:        make(map[string]models.ModelScore, len(results)),
		TrainRows:      len(trainIdx),
		TestRows:       len(testIdx),
		TrainedAt:      time.Now().UTC(),
	}

	var best *candidateResult
	var errs []error
	for i := range results {
		r := &results[i]
		if r.err != nil {
			t.logger.Error("[trainer] %s failed: %v", r.name, r.err)
			errs = append(errs, fmt.Errorf("%s: %w", r.name, r.err))
			continue
		}
		info.Results[r.name] = r.score
		t.logger.Info("[trainer] %-18s R²=%.4f RMSE=%.4f MAE=%.4f CV=%.4f±%.4f",
			r.name, r.score.R2, r.score.RMSE, r.score.MAE, r.score.CVMean, r.score.CVStd)
		if best == nil || r.score.R2 > best.score.R2 {
			best = r
		}
	}
	if best == nil {
		return nil, fmt.Errorf("trainer: every candidate failed: %w", errors.Join(errs...))
	}

	info.BestModelName = best.name
	t.logger.Info("[trainer] Best model: %s (R²=%.4f)", best.name, best.score.R2)

	return &Predictor{Encoder: enc, Scaler: scaler, Model: best.model, Info: info}, nil
}

func (t *Trainer) evaluate(c ml.Candidate, XTrain [][]float64, yTrain []float64, XTest [][]float64, yTest []float64, folds int) candidateResult {
	start := time.Now()
	res := candidateResult{name: c.Name}

	m := c.New()
	if err := m.Fit(XTrain, yTrain); err != nil {
		res.err = err
		return res
	}
	pred := ml.PredictAll(m, XTest)

	res.model = m
	res.score = models.ModelScore{
		MSE:  ml.MSE(yTest, pred),
		RMSE: ml.RMSE(yTest, pred),
		MAE:  ml.MAE(yTest, pred),
		R2:   ml.R2(yTest, pred),
	}
	if math.IsNaN(res.score.R2) {
		res.err = errors.New("non-finite test score")
		return res
	}

	if folds >= 2 {
		mean, std, err := ml.CrossValR2(c.New, XTrain, yTrain, folds)
		if err != nil {
			res.err = fmt.Errorf("cross-validation: %w", err)
			return res
		}
		res.score.CVMean, res.score.CVStd = mean, std
	}

	t.logger.Debug("[trainer] %s done in %v", c.Name, time.Since(start).Round(time.Millisecond))
	return res
}
