package models

// Feature names in the fixed order used for training and inference.
const (
	FeatureDistrict       = "district_encoded"
	FeatureType           = "type_encoded"
	FeatureArea           = "area"
	FeatureLogArea        = "log1p_area"
	FeatureBuildingAge    = "building_age_years"
	FeatureAgeBucket      = "age_bucket_encoded"
	FeatureAreaAgeProduct = "area_x_building_age"
)

// FeatureNames is the ordered feature list persisted with every model.
var FeatureNames = []string{
	FeatureDistrict,
	FeatureType,
	FeatureArea,
	FeatureLogArea,
	FeatureBuildingAge,
	FeatureAgeBucket,
	FeatureAreaAgeProduct,
}

// FeatureVector is one encoded row, indexed in FeatureNames order.
type FeatureVector [7]float64

// Slice returns the vector as a fresh slice.
func (v FeatureVector) Slice() []float64 {
	out := make([]float64, len(v))
	copy(out, v[:])
	return out
}
