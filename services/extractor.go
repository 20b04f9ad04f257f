package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"regexp"
	"strconv"
	"strings"

	"fukuyama-landprice/models"
)

// ErrMalformedSource is returned when a non-empty source yields no records.
var ErrMalformedSource = errors.New("malformed source: no usable records")

// recordRegexp matches one brace-delimited pseudo-object followed by a comma.
// [^}] also matches newlines, so records may span lines.
var recordRegexp = regexp.MustCompile(`\{[^}]*\},`)

// ExtractRecords returns the records found in text. When the whole text is
// well-formed JSON (an array of objects or a stream of objects) it is decoded
// with a real JSON parser; otherwise the legacy line reader is used.
//
// The returned sequence is lazy and can be ranged over more than once.
func ExtractRecords(text string) iter.Seq[models.RawRecord] {
	if recs, ok := decodeJSONRecords(text); ok {
		return func(yield func(models.RawRecord) bool) {
			for _, r := range recs {
				if !yield(r) {
					return
				}
			}
		}
	}
	return ExtractLegacyRecords(text)
}

// ExtractLegacyRecords reads the line-oriented pseudo-JSON dump: every
// `{ ... },` span is split into lines and each line with a colon and at least
// two double quotes becomes a key/value pair, split on the FIRST colon; any
// later colon stays in the value. Quotes are not unescaped. Spans without any
// pair are skipped. Malformed input never fails, it only yields fewer records.
func ExtractLegacyRecords(text string) iter.Seq[models.RawRecord] {
	return func(yield func(models.RawRecord) bool) {
		rest := text
		for {
			loc := recordRegexp.FindStringIndex(rest)
			if loc == nil {
				return
			}
			body := rest[loc[0] : loc[1]-1]
			rest = rest[loc[1]:]

			if rec := parseRecordBody(body); len(rec) > 0 {
				if !yield(rec) {
					return
				}
			}
		}
	}
}

func parseRecordBody(body string) models.RawRecord {
	rec := models.RawRecord{}
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if !strings.Contains(line, ":") || strings.Count(line, `"`) < 2 {
			continue
		}

		key, value, _ := strings.Cut(line, ":")
		key = strings.Trim(strings.TrimSpace(key), `"`)
		value = strings.Trim(strings.TrimSpace(value), `",`)
		if len(value) >= 2 && strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
			value = value[1 : len(value)-1]
		}
		rec[key] = value
	}
	return rec
}

// CollectRecords drains seq into a slice and reports ErrMalformedSource when
// text had content but nothing could be extracted.
func CollectRecords(text string) ([]models.RawRecord, error) {
	var out []models.RawRecord
	for r := range ExtractRecords(text) {
		out = append(out, r)
	}
	if len(out) == 0 {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: source is empty", ErrMalformedSource)
		}
		return nil, ErrMalformedSource
	}
	return out, nil
}

// decodeJSONRecords accepts a JSON array of objects or a whitespace-separated
// stream of objects. Scalar values are stringified; nulls are dropped so they
// read as absent.
func decodeJSONRecords(text string) ([]models.RawRecord, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || (trimmed[0] != '[' && trimmed[0] != '{') {
		return nil, false
	}

	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()

	var objects []map[string]any
	if trimmed[0] == '[' {
		if err := dec.Decode(&objects); err != nil {
			return nil, false
		}
	} else {
		for dec.More() {
			var obj map[string]any
			if err := dec.Decode(&obj); err != nil {
				return nil, false
			}
			objects = append(objects, obj)
		}
	}
	if dec.More() {
		return nil, false
	}

	out := make([]models.RawRecord, 0, len(objects))
	for _, obj := range objects {
		rec := models.RawRecord{}
		for k, v := range obj {
			if s, ok := stringify(v); ok {
				rec[k] = s
			}
		}
		if len(rec) > 0 {
			out = append(out, rec)
		}
	}
	return out, true
}

func stringify(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", false
		}
		return string(bytes.TrimSpace(b)), true
	}
}
