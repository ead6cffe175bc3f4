package combo

import "strings"

// Marker identifies load combinations used for drift and torsion checks.
const Marker = "drift"

// IsDrift reports whether a combination name carries the drift marker,
// ignoring case.
func IsDrift(name string) bool {
	return strings.Contains(strings.ToLower(name), Marker)
}

// Filter returns the drift combinations of names in their original order.
func Filter(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if IsDrift(n) {
			out = append(out, n)
		}
	}
	return out
}
