package services

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"fukuyama-landprice/ml"
	"fukuyama-landprice/models"
	"fukuyama-landprice/storage"
)

// PredictionError reports that a request could not be turned into a price.
type PredictionError struct {
	Err error
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("prediction failed: %v", e.Err)
}

func (e *PredictionError) Unwrap() error { return e.Err }

// maxLogPrice keeps expm1 inside int64 range.
const maxLogPrice = 43.0

// Predictor is a trained model together with everything needed to apply it.
// It is immutable once built and may be shared across goroutines.
type Predictor struct {
	Encoder *FeatureEncoder
	Scaler  *ml.StandardScaler
	Model   ml.Regressor
	Info    models.ModelInfo
}

// Predict prices one parcel. buildingAge is in years.
func (p *Predictor) Predict(district string, area float64, buildingAge int, propertyType string) (models.ModelPrediction, error) {
	if math.IsNaN(area) || math.IsInf(area, 0) {
		return models.ModelPrediction{}, &PredictionError{Err: fmt.Errorf("area %v is not a finite number", area)}
	}

	fv := p.Encoder.Apply(models.CanonicalRow{
		DistrictName:     district,
		Area:             area,
		BuildingAgeYears: float64(buildingAge),
		PropertyType:     propertyType,
	})
	x, err := p.Scaler.Transform(fv.Slice())
	if err != nil {
		return models.ModelPrediction{}, &PredictionError{Err: err}
	}

	logPrice := p.Model.Predict(x)
	if math.IsNaN(logPrice) || math.IsInf(logPrice, 0) || logPrice > maxLogPrice {
		return models.ModelPrediction{}, &PredictionError{Err: fmt.Errorf("model produced unusable value %v", logPrice)}
	}

	return models.ModelPrediction{
		PredictedPrice:    int64(math.Expm1(logPrice)),
		PredictedPriceLog: logPrice,
		Confidence:        ModelConfidence(logPrice),
	}, nil
}

// ModelConfidence grades a prediction by the magnitude of its log price.
func ModelConfidence(logPrice float64) string {
	a := math.Abs(logPrice)
	switch {
	case a >= 0.7 && a <= 2.0:
		return models.ConfidenceHigh
	case a >= 0.5 && a <= 2.5:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

// SavePredictor writes every artifact of p.
func SavePredictor(store *storage.ArtifactStore, p *Predictor) error {
	if err := store.SaveEncoder(storage.DistrictEncoderFile, p.Encoder.District); err != nil {
		return err
	}
	if err := store.SaveEncoder(storage.TypeEncoderFile, p.Encoder.Type); err != nil {
		return err
	}
	if err := store.SaveEncoder(storage.AgeBucketEncoderFile, p.Encoder.AgeBucket); err != nil {
		return err
	}
	if err := store.SaveScaler(p.Scaler); err != nil {
		return err
	}
	if err := store.SaveModel(p.Model); err != nil {
		return err
	}
	return store.SaveInfo(p.Info)
}

// LoadPredictor reads the artifacts written by SavePredictor. A missing file
// yields an error wrapping storage.ErrArtifactMissing.
func LoadPredictor(store *storage.ArtifactStore) (*Predictor, error) {
	enc := &FeatureEncoder{
		District:  &CategoryMap{},
		Type:      &CategoryMap{},
		AgeBucket: &CategoryMap{},
	}
	for name, m := range map[string]*CategoryMap{
		storage.DistrictEncoderFile:  enc.District,
		storage.TypeEncoderFile:      enc.Type,
		storage.AgeBucketEncoderFile: enc.AgeBucket,
	} {
		if err := store.LoadEncoder(name, m); err != nil {
			return nil, err
		}
	}

	scaler, err := store.LoadScaler()
	if err != nil {
		return nil, err
	}
	model, err := store.LoadModel()
	if err != nil {
		return nil, err
	}
	info, err := store.LoadInfo()
	if err != nil {
		return nil, err
	}

	if len(info.FeatureColumns) > 0 && !slices.Equal(info.FeatureColumns, models.FeatureNames) {
		return nil, fmt.Errorf("artifact: feature columns %v do not match %v", info.FeatureColumns, models.FeatureNames)
	}
	if len(scaler.Mean) != len(models.FeatureNames) {
		return nil, errors.New("artifact: scaler width does not match the feature set")
	}

	return &Predictor{Encoder: enc, Scaler: scaler, Model: model, Info: info}, nil
}
