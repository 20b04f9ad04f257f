package models

import "time"

// CleanStats records how many rows each cleaning step removed. It is
// informational only.
type CleanStats struct {
	Input            int
	Output           int
	MissingColumns   []string
	DroppedMissing   int
	DroppedPrice     int
	DroppedArea      int
	DroppedOutliers  int
	ImputedArea      int
	ImputedAge       int
	ClampedAge       int
	AreaMedian       float64
	AreaMedianExists bool
}

// Dropped returns the total number of rows removed.
func (s CleanStats) Dropped() int {
	return s.Input - s.Output
}

// ColumnStats mirrors a describe() row for one numeric column.
type ColumnStats struct {
	Count int
	Mean  float64
	Std   float64
	Min   float64
	Q25   float64
	Q50   float64
	Q75   float64
	Max   float64
}

// CategoryCount is a category with its frequency.
type CategoryCount struct {
	Name  string
	Count int
}

// DatasetSummary holds descriptive statistics over the cleaned dataset.
type DatasetSummary struct {
	TotalRows     int
	DistrictCount int
	TypeCount     int
	Area          ColumnStats
	BuildingAge   ColumnStats
	TradePrice    ColumnStats
	TopDistricts  []CategoryCount
	Types         []CategoryCount
}

// ModelScore holds evaluation metrics for one trained candidate.
type ModelScore struct {
	MSE    float64 `json:"mse"`
	RMSE   float64 `json:"rmse"`
	MAE    float64 `json:"mae"`
	R2     float64 `json:"r2"`
	CVMean float64 `json:"cv_mean"`
	CVStd  float64 `json:"cv_std"`
}

// ModelInfo is the metadata persisted next to the selected model.
type ModelInfo struct {
	RunID          string                `json:"run_id"`
	BestModelName  string                `json:"best_model_name"`
	FeatureColumns []string              `json:"feature_columns"`
	Results        map[string]ModelScore `json:"results"`
	TrainRows      int                   `json:"train_rows"`
	TestRows       int                   `json:"test_rows"`
	TrainedAt      time.Time             `json:"trained_at"`
}
