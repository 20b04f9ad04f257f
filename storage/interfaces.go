package storage

import (
	"context"

	"fukuyama-landprice/models"
)

// RowWriter is the interface any canonical-row storage backend must satisfy.
type RowWriter interface {
	Write(rows []models.CanonicalRow) error
	Close() error
}

// TransactionStore persists cleaned transactions and training history.
type TransactionStore interface {
	ReplaceTransactions(ctx context.Context, rows []models.CanonicalRow) error
	FetchTransactions(ctx context.Context) ([]models.CanonicalRow, error)
	RecordTrainingRun(ctx context.Context, info models.ModelInfo) error
	Close() error
}
