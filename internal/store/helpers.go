package store

// List limits. maxListLimit caps caller-supplied values.
const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

// clampLimit applies the default and maximum page size.
func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}

	return min(limit, maxListLimit)
}
