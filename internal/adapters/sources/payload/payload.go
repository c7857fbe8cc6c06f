// Package payload normalizes the loosely-typed JSON shapes listing APIs
// return. Numeric fields arrive as numbers, strings ("1 234,56 €"), or
// single-element arrays; attribute sets arrive as maps or as lists of
// key/value pairs. Everything is folded into strict Go values here so the
// variant shapes never leak past the source adapters.
package payload

import (
	"regexp"
	"strconv"
	"strings"
)

var numericCleaner = regexp.MustCompile(`[^\d,.\-]`)

// Number extracts a float64 from any of the shapes a numeric field is known
// to arrive in. The second return is false when no number could be read.
func Number(v any) (float64, bool) {
	switch value := v.(type) {
	case nil:
		return 0, false
	case float64:
		return value, true
	case int:
		return float64(value), true
	case string:
		cleaned := numericCleaner.ReplaceAllString(value, "")
		if cleaned == "" {
			return 0, false
		}
		if strings.Contains(cleaned, ",") {
			// French style: dots are thousands separators, the comma is the decimal
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		}
		parsed, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	case []any:
		if len(value) == 0 {
			return 0, false
		}
		return Number(value[0])
	default:
		return 0, false
	}
}

// Int extracts an integer, going through Number for the variant handling
func Int(v any) (int, bool) {
	f, ok := Number(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// String extracts a string, unwrapping single-element arrays
func String(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case []any:
		if len(value) > 0 {
			return String(value[0])
		}
	}
	return ""
}

// AttributesMap folds an attribute set into a flat map. Handles the map
// shape directly and the list-of-pairs shape ({key|name, value|val} objects).
func AttributesMap(v any) map[string]any {
	switch value := v.(type) {
	case map[string]any:
		return value
	case []any:
		attrs := make(map[string]any, len(value))
		for _, item := range value {
			pair, ok := item.(map[string]any)
			if !ok {
				continue
			}
			key := String(pair["key"])
			if key == "" {
				key = String(pair["name"])
			}
			if key == "" {
				continue
			}
			if val, ok := pair["value"]; ok {
				attrs[key] = val
			} else {
				attrs[key] = pair["val"]
			}
		}
		return attrs
	default:
		return map[string]any{}
	}
}

// OptionalPositive returns a pointer when the attribute holds a positive number
func OptionalPositive(attrs map[string]any, key string) *float64 {
	if v, ok := Number(attrs[key]); ok && v > 0 {
		return &v
	}
	return nil
}

// OptionalCount returns a pointer when the attribute holds a non-negative integer
func OptionalCount(attrs map[string]any, key string) *int {
	if v, ok := Int(attrs[key]); ok && v >= 0 {
		return &v
	}
	return nil
}
