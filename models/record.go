package models

// Field names recognised in the upstream transaction dump.
const (
	FieldDistrictName = "DistrictName"
	FieldArea         = "Area"
	FieldBuildingYear = "BuildingYear"
	FieldTradePrice   = "TradePrice"
	FieldType         = "Type"
)

// TargetFields lists the upstream fields kept by the cleaner, in projection order.
var TargetFields = []string{FieldDistrictName, FieldArea, FieldBuildingYear, FieldTradePrice, FieldType}

// RawRecord holds the unprocessed key/value pairs scraped from one source
// object. No key is guaranteed to be present.
type RawRecord map[string]string

// CanonicalRow is a cleaned transaction ready for feature encoding.
type CanonicalRow struct {
	DistrictName     string  `json:"district_name"`
	Area             float64 `json:"area"`
	BuildingAgeYears float64 `json:"building_age_years"`
	TradePrice       float64 `json:"trade_price"`
	PropertyType     string  `json:"property_type,omitempty"`
}

// CanonicalHeader is the CSV header matching CanonicalRow.
var CanonicalHeader = []string{"district_name", "area", "building_age_years", "trade_price", "property_type"}
