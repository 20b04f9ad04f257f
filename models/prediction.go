package models

// DefaultPropertyType is assumed when a request omits property_type.
const DefaultPropertyType = "宅地(土地と建物)"

// PredictionRequest is the JSON body accepted by POST /predict.
type PredictionRequest struct {
	DistrictName string   `json:"district_name" binding:"required"`
	Area         *float64 `json:"area" binding:"required"`
	BuildingYear *int     `json:"building_year" binding:"required"`
	PropertyType *string  `json:"property_type,omitempty"`
}

// Type returns the requested property type or the default.
func (r PredictionRequest) Type() string {
	if r.PropertyType == nil || *r.PropertyType == "" {
		return DefaultPropertyType
	}
	return *r.PropertyType
}

// ModelPrediction is returned by the model-backed predictor.
type ModelPrediction struct {
	PredictedPrice    int64   `json:"predicted_price"`
	PredictedPriceLog float64 `json:"predicted_price_log"`
	Confidence        string  `json:"confidence"`
}

// Estimate is returned by the rule-based estimator.
type Estimate struct {
	PredictedPrice int64  `json:"predicted_price"`
	Confidence     string `json:"confidence"`
	Note           string `json:"note,omitempty"`
}

// Confidence labels.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)
