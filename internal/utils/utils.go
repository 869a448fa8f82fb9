package utils

// Ptr returns a pointer to t. Handy for optional JSON fields.
func Ptr[T any](t T) *T {
	return &t
}

// Filter returns the elements of s for which keep is true.
func Filter[T any](s []T, keep func(T) bool) []T {
	var out []T
	for _, v := range s {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// Map applies f to every element of s.
func Map[T, U any](s []T, f func(T) U) []U {
	out := make([]U, len(s))
	for i, v := range s {
		out[i] = f(v)
	}
	return out
}
