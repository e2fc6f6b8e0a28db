package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Item is a schemaless record as stored in the key-value store.
// Numbers are normalized to int64 when whole-valued, float64 otherwise.
type Item map[string]any

// String returns the field as a string, or "" when missing.
func (i Item) String(key string) string {
	v, ok := i[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// Float returns the field as a float64, defaulting to 0 for missing or
// non-numeric values.
func (i Item) Float(key string) float64 {
	f, _ := toFloat(i[key])
	return f
}

// Int returns the field truncated to an int64.
func (i Item) Int(key string) int64 {
	return int64(i.Float(key))
}

// Decimal returns the field as a decimal, defaulting to zero.
func (i Item) Decimal(key string) decimal.Decimal {
	switch t := i[key].(type) {
	case int64:
		return decimal.NewFromInt(t)
	case float64:
		if !finite(t) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(t)
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		f, ok := toFloat(t)
		if !ok {
			return decimal.Zero
		}
		return decimal.NewFromFloat(f)
	}
}

// Has reports whether the field is present and non-empty.
func (i Item) Has(key string) bool {
	v, ok := i[key]
	if !ok || v == nil {
		return false
	}
	if s, isString := v.(string); isString {
		return s != ""
	}
	return true
}

// Map returns a nested map field, or nil.
func (i Item) Map(key string) Item {
	switch t := i[key].(type) {
	case Item:
		return t
	case map[string]any:
		return Item(t)
	default:
		return nil
	}
}

// Clone returns a deep copy of the item.
func (i Item) Clone() Item {
	if i == nil {
		return nil
	}
	out := make(Item, len(i))
	for k, v := range i {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Item:
		return t.Clone()
	case map[string]any:
		return Item(t).Clone()
	case []any:
		out := make([]any, len(t))
		for idx, e := range t {
			out[idx] = cloneValue(e)
		}
		return out
	default:
		return t
	}
}

func toFloat(v any) (float64, bool) {
	f, ok := rawFloat(v)
	if !ok || !finite(f) {
		return 0, false
	}
	return f, true
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func rawFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case decimal.Decimal:
		return t.InexactFloat64(), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// ToFloat converts any numeric value, reporting whether it was numeric.
func ToFloat(v any) (float64, bool) {
	return toFloat(v)
}
