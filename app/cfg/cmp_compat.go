package cfg

// cmpOr mirrors cmp.Or from Go 1.22 so the package builds with Go 1.21:
// it returns the first of its arguments that is not the zero value.
func cmpOr[T comparable](vals ...T) T {
	var zero T
	for _, v := range vals {
		if v != zero {
			return v
		}
	}
	return zero
}
