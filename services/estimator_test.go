package services

import (
	"errors"
	"math"
	"testing"

	"fukuyama-landprice/models"
)

func TestEstimatorScenarios(t *testing.T) {
	e := NewEstimator()
	tests := []struct {
		name     string
		district string
		area     float64
		age      int
		typ      string
		price    int64
		conf     string
	}{
		{"known inputs", "曙町", 100, 5, "宅地(土地と建物)", 4_750_000, models.ConfidenceMedium},
		{"land only, new", "曙町", 200, 0, "宅地(土地)", 5_400_000, models.ConfidenceMedium},
		{"small condo", "曙町", 50, 20, "中古マンション等", 2_880_000, models.ConfidenceMedium},
		{"unknown district", "東京", 100, 5, "宅地(土地と建物)", 4_750_000, models.ConfidenceLow},
		{"unknown type", "曙町", 100, 5, "倉庫", 4_750_000, models.ConfidenceLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Estimate(tt.district, tt.area, tt.age, tt.typ)
			if err != nil {
				t.Fatalf("Estimate: %v", err)
			}
			if got.PredictedPrice != tt.price || got.Confidence != tt.conf {
				t.Errorf("Estimate = %d/%s; want %d/%s", got.PredictedPrice, got.Confidence, tt.price, tt.conf)
			}
			if got.Note != EstimateNote {
				t.Errorf("expected note %q, got %q", EstimateNote, got.Note)
			}
		})
	}
}

func TestEstimatorRange(t *testing.T) {
	e := NewEstimator()

	got, err := e.Estimate("曙町", 1e14, 5, "宅地(土地と建物)")
	if err != nil {
		t.Fatalf("1e14 m² should still fit: %v", err)
	}
	if got.PredictedPrice <= 0 {
		t.Errorf("expected a positive price, got %d", got.PredictedPrice)
	}

	for _, area := range []float64{1e15, -1e15, math.Inf(1), math.NaN()} {
		_, err := e.Estimate("曙町", area, 5, "宅地(土地と建物)")
		var pe *PredictionError
		if !errors.As(err, &pe) {
			t.Errorf("area %v: expected PredictionError, got %v", area, err)
		}
	}
}

func TestEstimatorBreakdown(t *testing.T) {
	e := NewEstimator()

	_, _, b, _ := e.EstimateWithBreakdown("東京", 100, 0, "宅地(土地と建物)")
	if b.District != 1.0 {
		t.Errorf("unknown district multiplier = %v, want 1.0", b.District)
	}
	if b.Age != 1.0 {
		t.Errorf("age 0 multiplier = %v, want 1.0", b.Age)
	}

	_, _, b, _ = e.EstimateWithBreakdown("元町", 600, 40, "林地")
	if b.District != 1.4 || b.Type != 0.2 || b.Age != 0.6 || b.Area != 0.8 {
		t.Errorf("unexpected breakdown %+v", b)
	}
}

func TestAreaMultiplierBoundaries(t *testing.T) {
	tests := []struct {
		area float64
		want float64
	}{
		{99.9, 1.2},
		{100, 1.0},
		{199, 1.0},
		{200, 0.9},
		{499, 0.9},
		{500, 0.8},
	}
	for _, tt := range tests {
		if got := areaMultiplier(tt.area); got != tt.want {
			t.Errorf("areaMultiplier(%v) = %v; want %v", tt.area, got, tt.want)
		}
	}
}

func TestKnownLists(t *testing.T) {
	e := NewEstimator()
	if got := len(e.KnownDistricts()); got != 14 {
		t.Errorf("expected 14 districts, got %d", got)
	}
	types := e.KnownPropertyTypes()
	if len(types) != 5 || types[0] != models.DefaultPropertyType {
		t.Errorf("unexpected property types %v", types)
	}
}
