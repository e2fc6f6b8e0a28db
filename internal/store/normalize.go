package store

import (
	"encoding/json"
	"math"
	"strconv"

	"loyalty-analytics-go/internal/models"

	"github.com/shopspring/decimal"
)

// maxExactFloat is the largest integer a float64 represents exactly.
const maxExactFloat = 1 << 53

// NormalizeNumbers converts numeric wrapper types to native values, recursively:
// whole-valued numbers become int64, everything else float64. NaN and
// infinities become nil. Nested objects become models.Item.
func NormalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := strconv.ParseInt(t.String(), 10, 64); err == nil {
			return i
		}
		f, err := t.Float64()
		if err != nil {
			return t.String()
		}
		return normalizeFloat(f)
	case decimal.Decimal:
		if t.IsInteger() && t.Abs().LessThan(decimal.NewFromInt(maxExactFloat)) {
			return t.IntPart()
		}
		return t.InexactFloat64()
	case float64:
		return normalizeFloat(t)
	case float32:
		return normalizeFloat(float64(t))
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case models.Item:
		return normalizeMap(t)
	case map[string]any:
		return normalizeMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = NormalizeNumbers(e)
		}
		return out
	default:
		return t
	}
}

// NormalizeItem applies NormalizeNumbers to every field of an item.
func NormalizeItem(item models.Item) models.Item {
	if item == nil {
		return nil
	}
	return normalizeMap(item)
}

func normalizeMap(m map[string]any) models.Item {
	out := make(models.Item, len(m))
	for k, v := range m {
		out[k] = NormalizeNumbers(v)
	}
	return out
}

func normalizeFloat(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	if f == math.Trunc(f) && math.Abs(f) < maxExactFloat {
		return int64(f)
	}
	return f
}
