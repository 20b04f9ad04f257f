package services

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"fukuyama-landprice/models"
	"fukuyama-landprice/utils"
)

const topDistrictCount = 10

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate computes descriptive statistics over cleaned rows.
func (s *InsightService) Generate(rows []models.CanonicalRow) *models.DatasetSummary {
	summary := &models.DatasetSummary{}
	if len(rows) == 0 {
		return summary
	}
	summary.TotalRows = len(rows)

	areas := make([]float64, 0, len(rows))
	ages := make([]float64, 0, len(rows))
	prices := make([]float64, 0, len(rows))
	districts := make(map[string]int)
	types := make(map[string]int)

	for _, r := range rows {
		areas = append(areas, r.Area)
		ages = append(ages, r.BuildingAgeYears)
		prices = append(prices, r.TradePrice)
		districts[r.DistrictName]++
		types[r.PropertyType]++
	}

	summary.DistrictCount = len(districts)
	summary.TypeCount = len(types)
	summary.Area = describe(areas)
	summary.BuildingAge = describe(ages)
	summary.TradePrice = describe(prices)

	summary.TopDistricts = rankCounts(districts)
	if len(summary.TopDistricts) > topDistrictCount {
		summary.TopDistricts = summary.TopDistricts[:topDistrictCount]
	}
	summary.Types = rankCounts(types)

	s.logger.Debug("[insights] Summarised %d rows across %d districts", summary.TotalRows, summary.DistrictCount)
	return summary
}

// describe uses the sample standard deviation; quartiles interpolate the
// empirical CDF.
func describe(values []float64) models.ColumnStats {
	if len(values) == 0 {
		return models.ColumnStats{}
	}
	sorted := slices.Clone(values)
	sort.Float64s(sorted)

	cs := models.ColumnStats{
		Count: len(sorted),
		Min:   floats.Min(sorted),
		Max:   floats.Max(sorted),
		Q25:   stat.Quantile(0.25, stat.LinInterp, sorted, nil),
		Q50:   stat.Quantile(0.50, stat.LinInterp, sorted, nil),
		Q75:   stat.Quantile(0.75, stat.LinInterp, sorted, nil),
	}
	if len(sorted) > 1 {
		cs.Mean, cs.Std = stat.MeanStdDev(sorted, nil)
	} else {
		cs.Mean = sorted[0]
	}
	return cs
}

// rankCounts orders categories by count descending, then by name.
func rankCounts(counts map[string]int) []models.CategoryCount {
	out := make([]models.CategoryCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, models.CategoryCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (s *InsightService) Print(r *models.DatasetSummary) {
	sep := strings.Repeat("═", 60)
	thin := strings.Repeat("─", 60)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  📊 FUKUYAMA LAND TRANSACTION SUMMARY\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Printf("\033[1;33m  Overview\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Transactions     : \033[1m%d\033[0m\n", r.TotalRows)
	fmt.Printf("  Districts        : \033[1m%d\033[0m\n", r.DistrictCount)
	fmt.Printf("  Property types   : \033[1m%d\033[0m\n", r.TypeCount)
	fmt.Println()

	if r.TotalRows == 0 {
		fmt.Printf("  No data available\n")
		fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
		return
	}

	fmt.Printf("\033[1;33m  Numeric Columns\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  %-10s %14s %14s %14s %14s %14s\n", "", "mean", "min", "median", "max", "std")
	printRow := func(name string, c models.ColumnStats) {
		fmt.Printf("  %-10s %14.1f %14.1f %14.1f %14.1f %14.1f\n", name, c.Mean, c.Min, c.Q50, c.Max, c.Std)
	}
	printRow("area", r.Area)
	printRow("age", r.BuildingAge)
	printRow("price", r.TradePrice)
	fmt.Println()

	fmt.Printf("\033[1;33m  Top %d Districts\033[0m\n", topDistrictCount)
	fmt.Printf("  %s\n", thin)
	maxCount := r.TopDistricts[0].Count
	for i, d := range r.TopDistricts {
		bar := strings.Repeat("█", max(1, d.Count*30/maxCount))
		fmt.Printf("  \033[1m%2d.\033[0m %-12s %s (%d)\n", i+1, d.Name, bar, d.Count)
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Property Types\033[0m\n")
	fmt.Printf("  %s\n", thin)
	for _, ty := range r.Types {
		name := ty.Name
		if name == "" {
			name = "(unspecified)"
		}
		fmt.Printf("  %-24s \033[1;32m%d\033[0m\n", name, ty.Count)
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}
