package services

import (
	"testing"

	"fukuyama-landprice/models"
)

func sampleRows() []models.CanonicalRow {
	return []models.CanonicalRow{
		{DistrictName: "曙町", Area: 100, BuildingAgeYears: 0, TradePrice: 10_000_000, PropertyType: "宅地(土地)"},
		{DistrictName: "曙町", Area: 200, BuildingAgeYears: 10, TradePrice: 20_000_000, PropertyType: "宅地(土地と建物)"},
		{DistrictName: "元町", Area: 300, BuildingAgeYears: 20, TradePrice: 30_000_000, PropertyType: "宅地(土地と建物)"},
		{DistrictName: "春日町", Area: 400, BuildingAgeYears: 30, TradePrice: 40_000_000, PropertyType: ""},
	}
}

func TestInsightCounts(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(sampleRows())
	if r.TotalRows != 4 {
		t.Errorf("TotalRows: got %d, want 4", r.TotalRows)
	}
	if r.DistrictCount != 3 {
		t.Errorf("DistrictCount: got %d, want 3", r.DistrictCount)
	}
	if r.TypeCount != 3 {
		t.Errorf("TypeCount: got %d, want 3", r.TypeCount)
	}
}

func TestInsightColumnStats(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(sampleRows())

	if r.Area.Count != 4 || r.Area.Min != 100 || r.Area.Max != 400 || r.Area.Mean != 250 {
		t.Errorf("unexpected area stats %+v", r.Area)
	}
	if r.TradePrice.Mean != 25_000_000 {
		t.Errorf("TradePrice mean: got %v, want 25000000", r.TradePrice.Mean)
	}
	if r.BuildingAge.Q25 > r.BuildingAge.Q50 || r.BuildingAge.Q50 > r.BuildingAge.Q75 {
		t.Errorf("quartiles out of order %+v", r.BuildingAge)
	}
	if r.Area.Std <= 0 {
		t.Errorf("expected positive std, got %v", r.Area.Std)
	}
}

func TestInsightRanking(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(sampleRows())

	if len(r.TopDistricts) != 3 || r.TopDistricts[0].Name != "曙町" || r.TopDistricts[0].Count != 2 {
		t.Errorf("unexpected district ranking %+v", r.TopDistricts)
	}
	if r.Types[0].Name != "宅地(土地と建物)" || r.Types[0].Count != 2 {
		t.Errorf("unexpected type ranking %+v", r.Types)
	}
}

func TestInsightTopDistrictLimit(t *testing.T) {
	var rows []models.CanonicalRow
	for i := 0; i < 15; i++ {
		rows = append(rows, models.CanonicalRow{DistrictName: string(rune('A' + i)), Area: 1, TradePrice: 1})
	}
	r := NewInsightService(newTestLogger()).Generate(rows)
	if len(r.TopDistricts) != topDistrictCount {
		t.Errorf("expected %d top districts, got %d", topDistrictCount, len(r.TopDistricts))
	}
}

func TestInsightEmptyInput(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(nil)
	if r.TotalRows != 0 || len(r.TopDistricts) != 0 {
		t.Errorf("expected empty summary, got %+v", r)
	}
}
