package services

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"fukuyama-landprice/models"
)

// Age bucket labels. "new" covers both age 0 and ages in (5, 10].
const (
	BucketNew     = "new"
	BucketVeryNew = "very_new"
	BucketMedium  = "medium"
	BucketOld     = "old"
	BucketVeryOld = "very_old"
)

// UnknownCode is the code assigned to categories not seen at fit time.
const UnknownCode = 0

// AgeBucket maps a building age in years to its bucket label.
func AgeBucket(age float64) string {
	switch {
	case age == 0:
		return BucketNew
	case age <= 5:
		return BucketVeryNew
	case age <= 10:
		return BucketNew
	case age <= 20:
		return BucketMedium
	case age <= 30:
		return BucketOld
	default:
		return BucketVeryOld
	}
}

// CategoryMap is a serialisable category ⇄ integer table. Codes are assigned
// 0..k-1 in lexical (code point) order of the categories seen at fit time.
type CategoryMap struct {
	classes []string
	index   map[string]int
}

// FitCategoryMap builds a CategoryMap from the distinct values.
func FitCategoryMap(values []string) *CategoryMap {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	classes := make([]string, 0, len(seen))
	for v := range seen {
		classes = append(classes, v)
	}
	sort.Strings(classes)
	return newCategoryMap(classes)
}

func newCategoryMap(classes []string) *CategoryMap {
	idx := make(map[string]int, len(classes))
	for i, c := range classes {
		idx[c] = i
	}
	return &CategoryMap{classes: classes, index: idx}
}

// Code returns the code for category, or UnknownCode when it was never seen.
func (m *CategoryMap) Code(category string) int {
	if code, ok := m.index[category]; ok {
		return code
	}
	return UnknownCode
}

// Known reports whether category was seen at fit time.
func (m *CategoryMap) Known(category string) bool {
	_, ok := m.index[category]
	return ok
}

// Category decodes code back to its category.
func (m *CategoryMap) Category(code int) (string, bool) {
	if code < 0 || code >= len(m.classes) {
		return "", false
	}
	return m.classes[code], true
}

// Classes returns the categories in code order.
func (m *CategoryMap) Classes() []string {
	return append([]string(nil), m.classes...)
}

// Len returns the number of categories.
func (m *CategoryMap) Len() int { return len(m.classes) }

type categoryMapJSON struct {
	Classes     []string `json:"classes"`
	UnknownCode int      `json:"unknown_code"`
}

func (m *CategoryMap) MarshalJSON() ([]byte, error) {
	return json.Marshal(categoryMapJSON{Classes: m.classes, UnknownCode: UnknownCode})
}

func (m *CategoryMap) UnmarshalJSON(data []byte) error {
	var raw categoryMapJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Classes == nil {
		raw.Classes = []string{}
	}
	seen := make(map[string]struct{}, len(raw.Classes))
	for _, c := range raw.Classes {
		if _, dup := seen[c]; dup {
			return fmt.Errorf("category map: duplicate class %q", c)
		}
		seen[c] = struct{}{}
	}
	*m = *newCategoryMap(raw.Classes)
	return nil
}

// FeatureEncoder turns canonical rows into feature vectors using category
// maps fit on the training corpus. It is read-only after construction.
type FeatureEncoder struct {
	District  *CategoryMap
	Type      *CategoryMap
	AgeBucket *CategoryMap
}

// FitEncoder builds the three category maps from rows.
func FitEncoder(rows []models.CanonicalRow) *FeatureEncoder {
	districts := make([]string, 0, len(rows))
	types := make([]string, 0, len(rows))
	buckets := make([]string, 0, len(rows))
	for _, r := range rows {
		districts = append(districts, r.DistrictName)
		types = append(types, r.PropertyType)
		buckets = append(buckets, AgeBucket(r.BuildingAgeYears))
	}
	return &FeatureEncoder{
		District:  FitCategoryMap(districts),
		Type:      FitCategoryMap(types),
		AgeBucket: FitCategoryMap(buckets),
	}
}

// Apply encodes one row. Unknown categories take UnknownCode.
func (e *FeatureEncoder) Apply(r models.CanonicalRow) models.FeatureVector {
	return models.FeatureVector{
		float64(e.District.Code(r.DistrictName)),
		float64(e.Type.Code(r.PropertyType)),
		r.Area,
		math.Log1p(r.Area),
		r.BuildingAgeYears,
		float64(e.AgeBucket.Code(AgeBucket(r.BuildingAgeYears))),
		r.Area * r.BuildingAgeYears,
	}
}

// Matrix encodes rows into a row-major feature matrix.
func (e *FeatureEncoder) Matrix(rows []models.CanonicalRow) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = e.Apply(r).Slice()
	}
	return out
}

// Targets returns log1p(trade price) for each row.
func Targets(rows []models.CanonicalRow) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = math.Log1p(r.TradePrice)
	}
	return out
}
