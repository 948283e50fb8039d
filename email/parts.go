package email

import "strings"

// Address is a validated email address split at its separator.
// Domain is always lowercase; Local keeps the case it was given in.
type Address struct {
	Local  string
	Domain string
}

// String returns the normalized form "local@domain".
func (a Address) String() string {
	return a.Local + "@" + a.Domain
}

// Parse validates s and returns its parts. The second result is false,
// and the Address zero, when s is not a valid address.
func Parse(s string) (Address, bool) {
	local, domain, ok := split(s)
	if !ok {
		return Address{}, false
	}
	return Address{Local: local, Domain: strings.ToLower(domain)}, true
}

// LocalPart returns the part of s before the '@', unchanged.
func LocalPart(s string) (string, bool) {
	a, ok := Parse(s)
	return a.Local, ok
}

// Domain returns the lowercased part of s after the '@'.
func Domain(s string) (string, bool) {
	a, ok := Parse(s)
	return a.Domain, ok
}

// Normalize returns s trimmed, with its domain lowercased.
// Normalize is idempotent.
func Normalize(s string) (string, bool) {
	a, ok := Parse(s)
	if !ok {
		return "", false
	}
	return a.String(), true
}
