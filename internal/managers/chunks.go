package managers

// chunks splits items into consecutive slices of at most size elements.
// Batches are independent units of work downstream, so order is preserved.
func chunks[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) == 0 {
		if len(items) == 0 {
			return nil
		}
		return [][]T{items}
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for size < len(items) {
		out = append(out, items[:size])
		items = items[size:]
	}
	return append(out, items)
}
