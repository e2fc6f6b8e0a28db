package etl

// IndexBy builds a hash index over rows. The first row wins on duplicate keys
// and rows with a zero key are left out, so an empty join key never matches.
func IndexBy[T any, K comparable](rows []T, key func(T) K) map[K]T {
	var zero K
	index := make(map[K]T, len(rows))
	for _, row := range rows {
		k := key(row)
		if k == zero {
			continue
		}
		if _, exists := index[k]; exists {
			continue
		}
		index[k] = row
	}
	return index
}
