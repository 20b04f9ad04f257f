package services

import (
	"context"
	"errors"
	"fmt"

	"fukuyama-landprice/config"
	"fukuyama-landprice/models"
	"fukuyama-landprice/scraper"
	"fukuyama-landprice/storage"
	"fukuyama-landprice/utils"
)

// Pipeline wires the offline stages: source loading, extraction, cleaning,
// CSV export and training.
type Pipeline struct {
	cfg       *config.Config
	logger    *utils.Logger
	loader    *scraper.Loader
	cleaner   *Cleaner
	trainer   *Trainer
	artifacts *storage.ArtifactStore
	store     storage.TransactionStore
}

// NewPipeline creates a Pipeline. store may be nil when no database is
// configured.
func NewPipeline(cfg *config.Config, logger *utils.Logger, store storage.TransactionStore) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		logger:    logger,
		loader:    scraper.NewLoader(cfg, logger),
		cleaner:   NewCleaner(logger, cfg.ReferenceYear),
		trainer:   NewTrainer(cfg, logger),
		artifacts: storage.NewArtifactStore(cfg.ArtifactDir, cfg.EncoderDir),
		store:     store,
	}
}

// Trainer exposes the trainer so callers can adjust its candidate set.
func (p *Pipeline) Trainer() *Trainer { return p.trainer }

// Loader exposes the source loader.
func (p *Pipeline) Loader() *scraper.Loader { return p.loader }

// ErrNoRowsSurvived is returned when cleaning drops every record.
var ErrNoRowsSurvived = errors.New("all records were dropped during cleaning")

// Preprocess loads every configured source, extracts and cleans the records,
// writes the canonical CSV and, when a store is configured, replaces the
// stored transactions.
func (p *Pipeline) Preprocess(ctx context.Context) ([]models.CanonicalRow, models.CleanStats, error) {
	docs, err := p.loader.Load(ctx, p.cfg.Sources)
	if len(docs) == 0 {
		if err == nil {
			err = errors.New("no sources configured")
		}
		return nil, models.CleanStats{}, fmt.Errorf("preprocess: %w", err)
	}
	if err != nil {
		p.logger.Warn("[pipeline] Some sources failed, continuing with %d: %v", len(docs), err)
	}

	var raw []models.RawRecord
	for _, doc := range docs {
		recs, err := CollectRecords(doc.Text)
		if err != nil {
			p.logger.Warn("[pipeline] %s: %v", doc.Location, err)
			continue
		}
		p.logger.Info("[pipeline] %s: %d records", doc.Location, len(recs))
		raw = append(raw, recs...)
	}

	rows, stats, err := p.cleaner.Clean(raw)
	if err != nil {
		return nil, stats, fmt.Errorf("preprocess: %w", err)
	}
	if len(rows) == 0 {
		return nil, stats, fmt.Errorf("preprocess: %w (%d in)", ErrNoRowsSurvived, stats.Input)
	}

	if err := p.writeCSV(rows); err != nil {
		return nil, stats, err
	}
	p.logger.Info("[pipeline] Wrote %d rows to %s", len(rows), p.cfg.CleanCSVPath)

	if p.store != nil {
		if err := p.store.ReplaceTransactions(ctx, rows); err != nil {
			return nil, stats, fmt.Errorf("preprocess: %w", err)
		}
		p.logger.Info("[pipeline] Stored %d transactions", len(rows))
	}
	return rows, stats, nil
}

func (p *Pipeline) writeCSV(rows []models.CanonicalRow) error {
	w, err := storage.NewCSVWriter(p.cfg.CleanCSVPath)
	if err != nil {
		return fmt.Errorf("preprocess: %w", err)
	}
	if err := w.Write(rows); err != nil {
		_ = w.Close()
		return fmt.Errorf("preprocess: %w", err)
	}
	return w.Close()
}

// Train reads the canonical CSV, trains the candidates and persists the
// winning predictor.
func (p *Pipeline) Train(ctx context.Context) (*Predictor, error) {
	rows, err := storage.ReadCanonicalCSV(p.cfg.CleanCSVPath)
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}
	p.logger.Info("[pipeline] Loaded %d rows from %s", len(rows), p.cfg.CleanCSVPath)

	pred, err := p.trainer.Train(ctx, rows)
	if err != nil {
		return nil, err
	}
	if err := SavePredictor(p.artifacts, pred); err != nil {
		return nil, fmt.Errorf("train: save artifacts: %w", err)
	}
	p.logger.Info("[pipeline] Saved artifacts to %s and %s", p.cfg.ArtifactDir, p.cfg.EncoderDir)

	if p.store != nil {
		if err := p.store.RecordTrainingRun(ctx, pred.Info); err != nil {
			p.logger.Warn("[pipeline] Could not record training run: %v", err)
		}
	}
	return pred, nil
}

// Close releases the browser started for remote sources.
func (p *Pipeline) Close() {
	p.loader.Close()
}
