package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"fukuyama-landprice/models"
	"fukuyama-landprice/utils"
)

// Bounds applied by the cleaner.
const (
	MaxTradePrice = 1_000_000_000
	MaxArea       = 10_000
)

// ErrMissingRequiredColumn is returned when DistrictName or TradePrice does
// not occur in any record.
var ErrMissingRequiredColumn = errors.New("missing required column")

// MissingColumnError names the required columns absent from a source.
type MissingColumnError struct {
	Columns []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingRequiredColumn, strings.Join(e.Columns, ", "))
}

func (e *MissingColumnError) Unwrap() error { return ErrMissingRequiredColumn }

var requiredFields = []string{models.FieldDistrictName, models.FieldTradePrice}

// draft is a row between normalisation and the final bounds checks.
type draft struct {
	district     string
	propertyType string
	area         float64
	age          float64
	price        float64
	hasDistrict  bool
	hasArea      bool
	hasAge       bool
	hasPrice     bool
}

// Cleaner transforms RawRecords into validated CanonicalRows.
type Cleaner struct {
	logger        *utils.Logger
	referenceYear int
}

// NewCleaner creates a Cleaner computing building ages against referenceYear.
func NewCleaner(logger *utils.Logger, referenceYear int) *Cleaner {
	return &Cleaner{logger: logger, referenceYear: referenceYear}
}

// Clean projects, normalises, filters and imputes raw records. The steps run
// in a fixed order because later steps see the result of earlier ones:
//
//  1. project onto the target fields
//  2. normalise area, price and building year
//  3. drop rows without district or price
//  4. impute missing area with the median of the surviving areas
//  5. impute missing age with 0
//  6. drop non-positive prices
//  7. drop non-positive (or still missing) areas
//  8. clamp negative ages to 0
//  9. drop prices above MaxTradePrice and areas above MaxArea
func (c *Cleaner) Clean(raw []models.RawRecord) ([]models.CanonicalRow, models.CleanStats, error) {
	stats := models.CleanStats{Input: len(raw)}
	if len(raw) == 0 {
		return nil, stats, ErrMalformedSource
	}

	present := make(map[string]bool, len(models.TargetFields))
	for _, r := range raw {
		for _, f := range models.TargetFields {
			if _, ok := r[f]; ok {
				present[f] = true
			}
		}
	}
	for _, f := range models.TargetFields {
		if !present[f] {
			c.logger.Warn("[cleaner] Column %q not found in source", f)
			stats.MissingColumns = append(stats.MissingColumns, f)
		}
	}

	var missingRequired []string
	for _, f := range requiredFields {
		if !present[f] {
			missingRequired = append(missingRequired, f)
		}
	}
	if len(missingRequired) > 0 {
		return nil, stats, &MissingColumnError{Columns: missingRequired}
	}

	drafts := make([]draft, 0, len(raw))
	for _, r := range raw {
		drafts = append(drafts, c.normalise(r))
	}

	rows := c.filter(drafts, &stats)
	stats.Output = len(rows)

	c.logger.Info("[cleaner] Cleaned %d → %d rows (dropped %d)",
		stats.Input, stats.Output, stats.Dropped())
	return rows, stats, nil
}

// CleanRows re-applies the cleaning rules to already canonical rows. On a
// cleaned table it is the identity.
func (c *Cleaner) CleanRows(rows []models.CanonicalRow) ([]models.CanonicalRow, models.CleanStats) {
	stats := models.CleanStats{Input: len(rows)}
	drafts := make([]draft, 0, len(rows))
	for _, r := range rows {
		drafts = append(drafts, draft{
			district:     r.DistrictName,
			propertyType: r.PropertyType,
			area:         r.Area,
			age:          r.BuildingAgeYears,
			price:        r.TradePrice,
			hasDistrict:  strings.TrimSpace(r.DistrictName) != "",
			hasArea:      true,
			hasAge:       true,
			hasPrice:     true,
		})
	}
	out := c.filter(drafts, &stats)
	stats.Output = len(out)
	return out, stats
}

func (c *Cleaner) normalise(r models.RawRecord) draft {
	d := draft{}
	if v, ok := r[models.FieldDistrictName]; ok && strings.TrimSpace(v) != "" {
		d.district = strings.TrimSpace(v)
		d.hasDistrict = true
	}
	d.propertyType = strings.TrimSpace(r[models.FieldType])
	d.area, d.hasArea = ParseNumeric(r[models.FieldArea])
	d.price, d.hasPrice = ParseNumeric(r[models.FieldTradePrice])
	d.age, d.hasAge = ParseBuildingAge(r[models.FieldBuildingYear], c.referenceYear)
	return d
}

// filter runs steps 3 to 9 on normalised drafts.
func (c *Cleaner) filter(drafts []draft, stats *models.CleanStats) []models.CanonicalRow {
	// 3. required presence
	kept := drafts[:0:0]
	for _, d := range drafts {
		if !d.hasDistrict || !d.hasPrice {
			stats.DroppedMissing++
			continue
		}
		kept = append(kept, d)
	}

	// 4. area median over the already-filtered rows
	var areas []float64
	for _, d := range kept {
		if d.hasArea {
			areas = append(areas, d.area)
		}
	}
	if med, ok := median(areas); ok {
		stats.AreaMedian, stats.AreaMedianExists = med, true
		for i := range kept {
			if !kept[i].hasArea {
				kept[i].area, kept[i].hasArea = med, true
				stats.ImputedArea++
			}
		}
	}

	// 5. missing age means new construction
	for i := range kept {
		if !kept[i].hasAge {
			kept[i].age, kept[i].hasAge = 0, true
			stats.ImputedAge++
		}
	}

	out := make([]models.CanonicalRow, 0, len(kept))
	for _, d := range kept {
		// 6.
		if d.price <= 0 {
			stats.DroppedPrice++
			continue
		}
		// 7.
		if !d.hasArea || d.area <= 0 {
			stats.DroppedArea++
			continue
		}
		// 8.
		if d.age < 0 {
			d.age = 0
			stats.ClampedAge++
		}
		// 9.
		if d.price > MaxTradePrice || d.area > MaxArea {
			stats.DroppedOutliers++
			continue
		}
		out = append(out, models.CanonicalRow{
			DistrictName:     d.district,
			Area:             d.area,
			BuildingAgeYears: d.age,
			TradePrice:       d.price,
			PropertyType:     d.propertyType,
		})
	}
	return out
}

// median averages the two middle values for even-length input.
func median(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], true
	}
	return (sorted[mid-1] + sorted[mid]) / 2, true
}
