package services

import (
	"fmt"
	"math"

	"fukuyama-landprice/models"
)

// BasePricePerSqm is the yen-per-square-metre base rate of the rule estimator.
const BasePricePerSqm = 50000

// maxEstimate is the first price that no longer fits in an int64.
const maxEstimate = 1 << 63

// EstimateNote accompanies every rule-based estimate.
const EstimateNote = "簡易予測です。実際の価格とは異なる場合があります。"

var districtMultipliers = map[string]float64{
	"神辺町":  0.8,
	"駅家町":  1.2,
	"曙町":   1.0,
	"松永町":  0.9,
	"本庄町":  1.1,
	"千代田町": 1.3,
	"元町":   1.4,
	"加茂町":  0.7,
	"木之庄町": 0.8,
	"南蔵王町": 1.0,
	"御幸町":  1.1,
	"大門町":  0.9,
	"津之郷町": 0.8,
	"引野町":  1.0,
}

// districtOrder is the listing order served by /districts in rules mode.
var districtOrder = []string{
	"神辺町", "駅家町", "曙町", "松永町", "本庄町", "千代田町", "元町",
	"加茂町", "木之庄町", "南蔵王町", "御幸町", "大門町", "津之郷町", "引野町",
}

var typeMultipliers = map[string]float64{
	"宅地(土地と建物)": 1.0,
	"宅地(土地)":    0.6,
	"中古マンション等":  1.2,
	"農地":        0.3,
	"林地":        0.2,
}

var typeOrder = []string{"宅地(土地と建物)", "宅地(土地)", "中古マンション等", "農地", "林地"}

// Estimator prices a parcel from fixed multiplier tables. It needs no
// trained artifacts.
type Estimator struct{}

// NewEstimator returns a rule-based Estimator.
func NewEstimator() *Estimator { return &Estimator{} }

// Breakdown exposes the individual multipliers of an estimate.
type Breakdown struct {
	District float64
	Type     float64
	Age      float64
	Area     float64
}

// Estimate returns the price and confidence for the given inputs.
// An unknown district or property type uses multiplier 1.0 and lowers the
// confidence to "low". A product outside the int64 range is a
// *PredictionError.
func (e *Estimator) Estimate(district string, area float64, buildingAge int, propertyType string) (models.Estimate, error) {
	price, conf, _, err := e.EstimateWithBreakdown(district, area, buildingAge, propertyType)
	if err != nil {
		return models.Estimate{}, err
	}
	return models.Estimate{PredictedPrice: price, Confidence: conf, Note: EstimateNote}, nil
}

// EstimateWithBreakdown is Estimate plus the multipliers used.
func (e *Estimator) EstimateWithBreakdown(district string, area float64, buildingAge int, propertyType string) (int64, string, Breakdown, error) {
	dm, districtKnown := districtMultipliers[district]
	if !districtKnown {
		dm = 1.0
	}
	tm, typeKnown := typeMultipliers[propertyType]
	if !typeKnown {
		tm = 1.0
	}

	b := Breakdown{
		District: dm,
		Type:     tm,
		Age:      ageMultiplier(buildingAge),
		Area:     areaMultiplier(area),
	}

	raw := BasePricePerSqm * area * b.District * b.Type * b.Age * b.Area
	if math.IsNaN(raw) || math.Abs(raw) >= maxEstimate {
		return 0, "", b, &PredictionError{Err: fmt.Errorf("estimate for area %v is out of range", area)}
	}

	conf := models.ConfidenceLow
	if districtKnown && typeKnown {
		conf = models.ConfidenceMedium
	}
	return int64(raw), conf, b, nil
}

func ageMultiplier(age int) float64 {
	switch {
	case age == 0:
		return 1.0
	case age <= 5:
		return 0.95
	case age <= 10:
		return 0.9
	case age <= 20:
		return 0.8
	case age <= 30:
		return 0.7
	default:
		return 0.6
	}
}

// areaMultiplier favours small lots, which trade at a higher unit price.
func areaMultiplier(area float64) float64 {
	switch {
	case area < 100:
		return 1.2
	case area < 200:
		return 1.0
	case area < 500:
		return 0.9
	default:
		return 0.8
	}
}

// KnownDistricts lists the districts with a dedicated multiplier.
func (e *Estimator) KnownDistricts() []string {
	return append([]string(nil), districtOrder...)
}

// KnownPropertyTypes lists the property types with a dedicated multiplier.
func (e *Estimator) KnownPropertyTypes() []string {
	return append([]string(nil), typeOrder...)
}

