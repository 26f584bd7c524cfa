package utils

// CopyNew returns a deep copy of the slice.
func CopyNew[V any](s []V) (c []V) {
	if s == nil {
		return nil
	}
	c = make([]V, len(s))
	copy(c, s)
	return
}
