package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fukuyama-landprice/models"
)

func sampleRows() []models.CanonicalRow {
	return []models.CanonicalRow{
		{DistrictName: "曙町", Area: 100, BuildingAgeYears: 5, TradePrice: 20_000_000, PropertyType: "宅地(土地と建物)"},
		{DistrictName: "春日町", Area: 165.5, BuildingAgeYears: 0, TradePrice: 8_500_000, PropertyType: "宅地(土地)"},
		{DistrictName: "引野町", Area: 70, BuildingAgeYears: 24, TradePrice: 12_000_000, PropertyType: ""},
	}
}

func TestCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "preprocessed_data.csv")

	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("NewCSVWriter: %v", err)
	}
	if err := w.Write(sampleRows()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	firstLine := strings.SplitN(string(data), "\n", 2)[0]
	if firstLine != "district_name,area,building_age_years,trade_price,property_type" {
		t.Errorf("unexpected header %q", firstLine)
	}

	got, err := ReadCanonicalCSV(path)
	if err != nil {
		t.Fatalf("ReadCanonicalCSV: %v", err)
	}
	want := sampleRows()
	if len(got) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestReadCanonicalCSVToleratesReorderedColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reordered.csv")
	content := "\ufefftrade_price,district_name,area,building_age_years\n5000000,曙町,80,3\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	rows, err := ReadCanonicalCSV(path)
	if err != nil {
		t.Fatalf("ReadCanonicalCSV: %v", err)
	}
	want := models.CanonicalRow{DistrictName: "曙町", Area: 80, BuildingAgeYears: 3, TradePrice: 5_000_000}
	if len(rows) != 1 || rows[0] != want {
		t.Errorf("expected [%+v], got %+v", want, rows)
	}
}

func TestReadCanonicalCSVErrors(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"missing column", "district_name,area,trade_price\n曙町,80,100\n"},
		{"bad number", "district_name,area,building_age_years,trade_price\n曙町,abc,0,100\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tc.name, " ", "_")+".csv")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := ReadCanonicalCSV(path); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
