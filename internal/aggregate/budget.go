package aggregate

// DefaultBudget is the default ceiling, in bytes, for the serialized view.
const DefaultBudget = 400_000

// TryAdd reports whether a block of the given size fits under limit on top of
// total, and returns the total after the decision. A rejected block leaves the
// total unchanged, so a later, smaller block can still be accepted.
func TryAdd(size, total, limit int) (bool, int) {
	if total+size > limit {
		return false, total
	}
	return true, total + size
}
