package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"fukuyama-landprice/client"
	"fukuyama-landprice/config"
	"fukuyama-landprice/models"
	"fukuyama-landprice/server"
	"fukuyama-landprice/services"
	"fukuyama-landprice/storage"
	"fukuyama-landprice/utils"
)

const usage = `usage: landprice <command>

commands:
  preprocess  extract and clean the configured sources, write the canonical CSV
  train       train the candidate models on the canonical CSV and save artifacts
  run         preprocess then train (default)
  serve       start the HTTP prediction API
  smoke       exercise a running API (SERVER_URL)
  summary     print descriptive statistics of the cleaned dataset
`

func main() {
	cfg := config.Load()
	logger := utils.NewLoggerWithLevel(cfg.LogLevel)
	defer logger.Sync()

	cmd := "run"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd {
	case "preprocess":
		err = runPreprocess(ctx, cfg, logger)
	case "train":
		err = runTrain(ctx, cfg, logger)
	case "run":
		logger.Info("=== Fukuyama land price pipeline starting ===")
		if err = runPreprocess(ctx, cfg, logger); err == nil {
			err = runTrain(ctx, cfg, logger)
		}
	case "serve":
		err = runServe(ctx, cfg, logger)
	case "smoke":
		err = runSmoke(ctx, cfg, logger)
	case "summary":
		err = runSummary(ctx, cfg, logger)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		logger.Error("%s failed: %v", cmd, err)
		logger.Sync()
		os.Exit(1)
	}
}

// openStore returns nil when no database is configured.
func openStore(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*storage.SQLStore, error) {
	if cfg.StorageDriver == "" || cfg.StorageDriver == "none" {
		return nil, nil
	}
	retry := &utils.RetryConfig{MaxAttempts: 10, BaseDelay: time.Second, Logger: logger}
	store, err := storage.OpenSQLStore(ctx, cfg.StorageDriver, cfg.DSN(), retry)
	if err != nil {
		return nil, err
	}
	logger.Info("[main] Connected to %s store", cfg.StorageDriver)
	return store, nil
}

func newPipeline(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*services.Pipeline, func(), error) {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	var ts storage.TransactionStore
	if store != nil {
		ts = store
	}
	p := services.NewPipeline(cfg, logger, ts)
	cleanup := func() {
		p.Close()
		if store != nil {
			_ = store.Close()
		}
	}
	return p, cleanup, nil
}

func runPreprocess(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	logger.Info("[main] Sources: %s | reference year: %d", strings.Join(cfg.Sources, ", "), cfg.ReferenceYear)

	p, cleanup, err := newPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	rows, stats, err := p.Preprocess(ctx)
	if err != nil {
		return err
	}
	logger.Info("[main] Preprocess done: %d → %d rows (missing %d, price %d, area %d, outliers %d)",
		stats.Input, len(rows), stats.DroppedMissing, stats.DroppedPrice, stats.DroppedArea, stats.DroppedOutliers)

	insightSvc := services.NewInsightService(logger)
	insightSvc.Print(insightSvc.Generate(rows))
	return nil
}

func runTrain(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	p, cleanup, err := newPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	pred, err := p.Train(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("\n  Best model: %s (run %s)\n", pred.Info.BestModelName, pred.Info.RunID)
	for _, name := range sortedResultNames(pred.Info.Results) {
		s := pred.Info.Results[name]
		fmt.Printf("  %-18s R²=%.4f RMSE=%.4f MAE=%.4f CV=%.4f (±%.4f)\n",
			name, s.R2, s.RMSE, s.MAE, s.CVMean, s.CVStd*2)
	}
	fmt.Println()
	return nil
}

func runServe(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	if strings.ToLower(cfg.LogLevel) != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	svc, err := server.NewService(cfg.ServiceMode, cfg.CacheTTL(), logger)
	if err != nil {
		return err
	}
	if svc.Mode() == server.ModeModel {
		artifacts := storage.NewArtifactStore(cfg.ArtifactDir, cfg.EncoderDir)
		svc.LoadAsync(func() (*services.Predictor, error) {
			return services.LoadPredictor(artifacts)
		})
	}

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.NewRouter(svc, cfg.CORSOrigins, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("[main] HTTP API listening on %s (mode: %s)", cfg.HTTPAddr, svc.Mode())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("[main] Shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownWait)*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	logger.Info("[main] Server stopped")
	return nil
}

func runSmoke(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	c := client.New(cfg.ServerURL, 10*time.Second, logger)

	logger.Info("[main] Waiting for %s to become healthy", cfg.ServerURL)
	if err := c.WaitHealthy(ctx, 30, time.Second); err != nil {
		return err
	}

	report := c.RunSmoke(ctx)
	fmt.Printf("\n  Smoke test: %d/%d passed\n\n", report.Passed, report.Total)
	if !report.OK() {
		return fmt.Errorf("%d check(s) failed: %s", len(report.Failures), strings.Join(report.Failures, "; "))
	}
	return nil
}

func runSummary(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var rows []models.CanonicalRow
	if store != nil {
		defer store.Close()
		rows, err = store.FetchTransactions(ctx)
		if err != nil {
			logger.Warn("[main] Could not read transactions from store, falling back to CSV: %v", err)
		}
		if run, err := store.LatestTrainingRun(ctx); err == nil {
			logger.Info("[main] Latest training run %s: %s (R²=%.4f)", run.RunID, run.ModelName, run.R2)
		}
	}
	if len(rows) == 0 {
		rows, err = storage.ReadCanonicalCSV(cfg.CleanCSVPath)
		if err != nil {
			return err
		}
	}

	insightSvc := services.NewInsightService(logger)
	insightSvc.Print(insightSvc.Generate(rows))
	return nil
}

// sortedResultNames orders candidates by test R², best first.
func sortedResultNames(results map[string]models.ModelScore) []string {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return results[names[i]].R2 > results[names[j]].R2
	})
	return names
}
