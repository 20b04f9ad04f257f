package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"fukuyama-landprice/models"
	"fukuyama-landprice/utils"
)

// Supported storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const insertBatchSize = 100

var transactionColumns = []string{"district_name", "area", "building_age_years", "trade_price", "property_type"}

var migrations = map[string][]string{
	DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS transactions (
			id                 SERIAL PRIMARY KEY,
			district_name      TEXT             NOT NULL,
			area               DOUBLE PRECISION NOT NULL,
			building_age_years DOUBLE PRECISION NOT NULL DEFAULT 0,
			trade_price        DOUBLE PRECISION NOT NULL,
			property_type      TEXT             NOT NULL DEFAULT '',
			created_at         TIMESTAMPTZ      NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_district ON transactions(district_name)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_type     ON transactions(property_type)`,
		`CREATE TABLE IF NOT EXISTS training_runs (
			run_id      TEXT PRIMARY KEY,
			model_name  TEXT             NOT NULL,
			r2          DOUBLE PRECISION NOT NULL,
			rmse        DOUBLE PRECISION NOT NULL,
			train_rows  INTEGER          NOT NULL,
			test_rows   INTEGER          NOT NULL,
			results     TEXT             NOT NULL,
			trained_at  TIMESTAMPTZ      NOT NULL
		)`,
	},
	DriverSQLite: {
		`PRAGMA journal_mode = WAL`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id                 INTEGER PRIMARY KEY AUTOINCREMENT,
			district_name      TEXT    NOT NULL,
			area               REAL    NOT NULL,
			building_age_years REAL    NOT NULL DEFAULT 0,
			trade_price        REAL    NOT NULL,
			property_type      TEXT    NOT NULL DEFAULT '',
			created_at         TEXT    NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_district ON transactions(district_name)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_type     ON transactions(property_type)`,
		`CREATE TABLE IF NOT EXISTS training_runs (
			run_id      TEXT PRIMARY KEY,
			model_name  TEXT    NOT NULL,
			r2          REAL    NOT NULL,
			rmse        REAL    NOT NULL,
			train_rows  INTEGER NOT NULL,
			test_rows   INTEGER NOT NULL,
			results     TEXT    NOT NULL,
			trained_at  TEXT    NOT NULL
		)`,
	},
}

// SQLStore persists cleaned transactions and training runs to PostgreSQL or
// SQLite.
type SQLStore struct {
	db     *sql.DB
	driver string
	sb     sq.StatementBuilderType
}

var _ TransactionStore = (*SQLStore)(nil)

// OpenSQLStore opens the database, waits for it to answer a ping (retrying
// through retry when non-nil), runs schema migrations and returns a
// ready-to-use store.
func OpenSQLStore(ctx context.Context, driver, dsn string, retry *utils.RetryConfig) (*SQLStore, error) {
	stmts, ok := migrations[driver]
	if !ok {
		return nil, fmt.Errorf("sql: unsupported driver %q", driver)
	}

	if driver == DriverSQLite && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("sql: create data dir: %w", err)
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sql: open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// a single connection keeps :memory: databases and WAL writes consistent
		db.SetMaxOpenConns(1)
	}

	ping := func(ctx context.Context) error { return db.PingContext(ctx) }
	if retry != nil {
		err = retry.Do(ctx, "sql-ping", ping)
	} else {
		err = ping(ctx)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sql: ping %s: %w", driver, err)
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sql: migrate: %w", err)
		}
	}

	return &SQLStore{
		db:     db,
		driver: driver,
		sb:     sq.StatementBuilder.PlaceholderFormat(placeholderFor(driver)),
	}, nil
}

// placeholderFor returns $N placeholders for postgres and ? for sqlite.
func placeholderFor(driver string) sq.PlaceholderFormat {
	var placeholder sq.PlaceholderFormat = sq.Question
	if driver == DriverPostgres {
		placeholder = sq.Dollar
	}
	return placeholder
}

// ReplaceTransactions deletes all stored transactions and batch-inserts rows
// in a single transaction.
func (s *SQLStore) ReplaceTransactions(ctx context.Context, rows []models.CanonicalRow) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sql: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM transactions"); err != nil {
		return fmt.Errorf("sql: clear transactions: %w", err)
	}

	for i := 0; i < len(rows); i += insertBatchSize {
		end := min(i+insertBatchSize, len(rows))

		ins := s.sb.Insert("transactions").Columns(transactionColumns...)
		for _, r := range rows[i:end] {
			ins = ins.Values(r.DistrictName, r.Area, r.BuildingAgeYears, r.TradePrice, r.PropertyType)
		}
		query, args, buildErr := ins.ToSql()
		if buildErr != nil {
			err = fmt.Errorf("sql: build insert: %w", buildErr)
			return err
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("sql: insert batch at %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sql: commit: %w", err)
	}
	return nil
}

// FetchTransactions returns all stored transactions in insertion order.
func (s *SQLStore) FetchTransactions(ctx context.Context) ([]models.CanonicalRow, error) {
	query, args, err := s.sb.Select(transactionColumns...).From("transactions").OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("sql: build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sql: fetch transactions: %w", err)
	}
	defer rows.Close()

	var out []models.CanonicalRow
	for rows.Next() {
		var r models.CanonicalRow
		if err := rows.Scan(&r.DistrictName, &r.Area, &r.BuildingAgeYears, &r.TradePrice, &r.PropertyType); err != nil {
			return nil, fmt.Errorf("sql: scan transaction: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecordTrainingRun stores the metadata of a finished training run.
func (s *SQLStore) RecordTrainingRun(ctx context.Context, info models.ModelInfo) error {
	results, err := json.Marshal(info.Results)
	if err != nil {
		return fmt.Errorf("sql: encode results: %w", err)
	}
	best := info.Results[info.BestModelName]

	query, args, err := s.sb.Insert("training_runs").
		Columns("run_id", "model_name", "r2", "rmse", "train_rows", "test_rows", "results", "trained_at").
		Values(info.RunID, info.BestModelName, best.R2, best.RMSE, info.TrainRows, info.TestRows,
			string(results), info.TrainedAt.UTC().Format(time.RFC3339)).
		ToSql()
	if err != nil {
		return fmt.Errorf("sql: build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sql: insert training run: %w", err)
	}
	return nil
}

// TrainingRun is a stored training run summary.
type TrainingRun struct {
	RunID     string
	ModelName string
	R2        float64
	RMSE      float64
}

// ErrNoTrainingRuns is returned by LatestTrainingRun on an empty table.
var ErrNoTrainingRuns = errors.New("sql: no training runs recorded")

// LatestTrainingRun returns the most recently trained run.
func (s *SQLStore) LatestTrainingRun(ctx context.Context) (TrainingRun, error) {
	query, args, err := s.sb.Select("run_id", "model_name", "r2", "rmse").
		From("training_runs").OrderBy("trained_at DESC").Limit(1).ToSql()
	if err != nil {
		return TrainingRun{}, fmt.Errorf("sql: build select: %w", err)
	}

	var run TrainingRun
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&run.RunID, &run.ModelName, &run.R2, &run.RMSE)
	if errors.Is(err, sql.ErrNoRows) {
		return TrainingRun{}, ErrNoTrainingRuns
	}
	if err != nil {
		return TrainingRun{}, fmt.Errorf("sql: latest training run: %w", err)
	}
	return run, nil
}

// Close releases the database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
