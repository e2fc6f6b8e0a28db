package store

import (
	"fmt"
	"sort"
	"strings"

	"loyalty-analytics-go/internal/models"
)

// applyUpdate returns a copy of item with the update applied. A nil item is
// treated as a new, empty record.
func applyUpdate(schema TableSchema, item models.Item, update Update) (models.Item, error) {
	if update.IsEmpty() {
		return nil, fmt.Errorf("%w: no fields to update", ErrInvalidUpdate)
	}

	out := item.Clone()
	if out == nil {
		out = models.Item{}
	}

	// Deterministic order keeps error messages stable.
	for _, path := range sortedKeys(update.Set) {
		if schema.isKeyAttr(path) {
			return nil, fmt.Errorf("%w: cannot modify key attribute %s", ErrInvalidUpdate, path)
		}
		parent, leaf, err := walkPath(out, path)
		if err != nil {
			return nil, err
		}
		parent[leaf] = NormalizeNumbers(update.Set[path])
	}

	for _, path := range sortedKeys(update.Add) {
		if schema.isKeyAttr(path) {
			return nil, fmt.Errorf("%w: cannot modify key attribute %s", ErrInvalidUpdate, path)
		}
		parent, leaf, err := walkPath(out, path)
		if err != nil {
			return nil, err
		}
		current := 0.0
		if existing, ok := parent[leaf]; ok && existing != nil {
			f, isNumber := models.ToFloat(existing)
			if !isNumber {
				return nil, fmt.Errorf("%w: %s is not numeric", ErrInvalidUpdate, path)
			}
			current = f
		}
		parent[leaf] = NormalizeNumbers(current + update.Add[path])
	}

	return out, nil
}

// walkPath descends a dotted path, creating intermediate maps, and returns
// the map holding the final segment.
func walkPath(item models.Item, path string) (models.Item, string, error) {
	segments := strings.Split(path, ".")
	for _, s := range segments {
		if s == "" {
			return nil, "", fmt.Errorf("%w: empty segment in path %q", ErrInvalidUpdate, path)
		}
	}

	current := item
	for _, seg := range segments[:len(segments)-1] {
		switch t := current[seg].(type) {
		case models.Item:
			current = t
		case map[string]any:
			m := models.Item(t)
			current[seg] = m
			current = m
		case nil:
			m := models.Item{}
			current[seg] = m
			current = m
		default:
			return nil, "", fmt.Errorf("%w: %s is not a map", ErrInvalidUpdate, seg)
		}
	}
	return current, segments[len(segments)-1], nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
