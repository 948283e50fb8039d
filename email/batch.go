package email

// FilterValid returns the valid elements of addrs, unchanged and in
// their original order.
func FilterValid(addrs []string) []string {
	out := make([]string, 0, len(addrs))
	for _, s := range addrs {
		if Valid(s) {
			out = append(out, s)
		}
	}
	return out
}

// NormalizeAll returns the normalized form of every valid element of
// addrs, in order. Invalid elements are dropped.
func NormalizeAll(addrs []string) []string {
	out := make([]string, 0, len(addrs))
	for _, s := range addrs {
		if norm, ok := Normalize(s); ok {
			out = append(out, norm)
		}
	}
	return out
}

// CountValid returns how many elements of addrs are valid.
func CountValid(addrs []string) int {
	n := 0
	for _, s := range addrs {
		if Valid(s) {
			n++
		}
	}
	return n
}

// AnyValid reports whether at least one element of addrs is valid.
func AnyValid(addrs []string) bool {
	for _, s := range addrs {
		if Valid(s) {
			return true
		}
	}
	return false
}
