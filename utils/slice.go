package utils

func Filter[T any](src []T, keep func(T) bool) []T {
	out := make([]T, 0, len(src))
	for _, v := range src {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func Map[T any, U any](src []T, convert func(T) U) []U {
	out := make([]U, 0, len(src))
	for _, v := range src {
		out = append(out, convert(v))
	}
	return out
}

// Find returns a pointer to a copy of the first match, nil when none.
func Find[T any](src []T, match func(T) bool) *T {
	for _, v := range src {
		if match(v) {
			return &v
		}
	}
	return nil
}

func GroupBy[T any, K comparable](src []T, keyOf func(T) K) map[K][]T {
	groups := make(map[K][]T)
	for _, v := range src {
		k := keyOf(v)
		groups[k] = append(groups[k], v)
	}
	return groups
}
