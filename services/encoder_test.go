package services

import (
	"encoding/json"
	"math"
	"slices"
	"testing"

	"fukuyama-landprice/models"
)

func TestAgeBucket(t *testing.T) {
	tests := []struct {
		age  float64
		want string
	}{
		{0, BucketNew},
		{1, BucketVeryNew},
		{5, BucketVeryNew},
		{6, BucketNew},
		{10, BucketNew},
		{15, BucketMedium},
		{20, BucketMedium},
		{30, BucketOld},
		{31, BucketVeryOld},
	}
	for _, tt := range tests {
		if got := AgeBucket(tt.age); got != tt.want {
			t.Errorf("AgeBucket(%v) = %q; want %q", tt.age, got, tt.want)
		}
	}
}

func TestCategoryMap(t *testing.T) {
	m := FitCategoryMap([]string{"本庄町", "元町", "曙町", "元町"})
	if m.Len() != 3 {
		t.Fatalf("expected 3 classes, got %d", m.Len())
	}
	classes := m.Classes()
	if !slices.IsSorted(classes) {
		t.Errorf("classes not in lexical order: %v", classes)
	}
	for code, c := range classes {
		if m.Code(c) != code {
			t.Errorf("Code(%q) = %d, want %d", c, m.Code(c), code)
		}
		back, ok := m.Category(code)
		if !ok || back != c {
			t.Errorf("Category(%d) = %q, %v; want %q", code, back, ok, c)
		}
	}
	if m.Known("松永町") || m.Code("松永町") != UnknownCode {
		t.Error("unseen category should be unknown with UnknownCode")
	}
	if _, ok := m.Category(3); ok {
		t.Error("Category out of range should fail")
	}
}

func TestCategoryMapJSON(t *testing.T) {
	m := FitCategoryMap([]string{"b", "a", "c"})
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	var back CategoryMap
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(back.Classes(), m.Classes()) || back.Code("c") != 2 {
		t.Errorf("round trip mismatch: %v vs %v", back.Classes(), m.Classes())
	}

	if err := json.Unmarshal([]byte(`{"classes":["a","a"]}`), &back); err == nil {
		t.Error("expected duplicate classes to be rejected")
	}
}

func TestFeatureEncoder(t *testing.T) {
	rows := []models.CanonicalRow{
		{DistrictName: "曙町", Area: 100, BuildingAgeYears: 5, TradePrice: 1e7, PropertyType: "宅地(土地)"},
		{DistrictName: "元町", Area: 200, BuildingAgeYears: 0, TradePrice: 2e7, PropertyType: "宅地(土地と建物)"},
	}
	enc := FitEncoder(rows)

	v := enc.Apply(rows[0])
	if v[2] != 100 || v[3] != math.Log1p(100) || v[4] != 5 || v[6] != 500 {
		t.Errorf("unexpected numeric features %v", v)
	}
	if v[0] != float64(enc.District.Code("曙町")) || v[1] != float64(enc.Type.Code("宅地(土地)")) {
		t.Errorf("unexpected category features %v", v)
	}
	if v[5] != float64(enc.AgeBucket.Code(BucketVeryNew)) {
		t.Errorf("unexpected age bucket feature %v", v[5])
	}

	unknown := enc.Apply(models.CanonicalRow{DistrictName: "松永町", Area: 50, PropertyType: "農地"})
	if unknown[0] != UnknownCode || unknown[1] != UnknownCode {
		t.Errorf("unknown categories should encode to %d, got %v", UnknownCode, unknown)
	}

	X := enc.Matrix(rows)
	if len(X) != 2 || len(X[0]) != len(models.FeatureNames) {
		t.Errorf("unexpected matrix shape %dx%d", len(X), len(X[0]))
	}

	y := Targets(rows)
	if y[0] != math.Log1p(1e7) {
		t.Errorf("target should be log1p(price), got %v", y[0])
	}
}
