package services

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

var (
	// digitsRegexp captures the first maximal run of decimal digits.
	digitsRegexp = regexp.MustCompile(`\d+`)
	// builtYearRegexp captures a four-digit year followed by the year marker.
	builtYearRegexp = regexp.MustCompile(`(\d{4})年`)
)

// fold narrows full-width characters such as "１００" to ASCII. Other
// compatibility forms ("㎡", "²") are left alone so they never become digits.
func fold(raw string) string {
	return width.Narrow.String(raw)
}

// ParseNumeric returns the first run of digits in raw as a float. Units,
// commas and currency symbols are ignored, so "1,200万円" yields 1.
// The boolean is false for blank input or input without digits.
func ParseNumeric(raw string) (float64, bool) {
	if strings.TrimSpace(raw) == "" {
		return 0, false
	}
	match := digitsRegexp.FindString(fold(raw))
	if match == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseBuildingAge converts a construction year such as "1995年" into an age
// relative to referenceYear. Anything without a four-digit year immediately
// followed by 年 is missing.
func ParseBuildingAge(raw string, referenceYear int) (float64, bool) {
	if strings.TrimSpace(raw) == "" {
		return 0, false
	}
	m := builtYearRegexp.FindStringSubmatch(fold(raw))
	if len(m) < 2 {
		return 0, false
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return float64(referenceYear - year), true
}
