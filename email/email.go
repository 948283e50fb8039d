// email/email.go

// Package email validates and normalizes email addresses against a
// pragmatic subset of the RFC 5321/5322 grammar.
//
// The grammar is deliberately narrower than the RFCs: no quoted local
// parts, no comments, no IP literals and no internationalized domains.
// A string either belongs to the grammar or it does not; callers get a
// bool (or a value plus ok flag) and never an explanation.
//
// Basic usage:
//
//	if email.Valid(input) {
//	    norm, _ := email.Normalize(input) // "User@example.com"
//	    name, ok := email.Provider(input) // "Gmail", true
//	}
//
// All functions are pure and safe for concurrent use.
package email

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Length limits, counted in runes of the trimmed input.
const (
	MinLength       = 6
	MaxLength       = 254
	MaxLocalLength  = 64
	MaxDomainLength = 253
	MaxLabelLength  = 63
	MinTLDLength    = 2
	MinLabels       = 2
	MaxLabels       = 10
)

// Valid reports whether s, after trimming surrounding whitespace, is an
// address accepted by the grammar.
func Valid(s string) bool {
	_, _, ok := split(s)
	return ok
}

// split trims s and runs every check in order, returning the local and
// domain parts (domain in its original case) when all of them pass.
func split(s string) (local, domain string, ok bool) {
	s = strings.TrimSpace(s)

	n := utf8.RuneCountInString(s)
	if n < MinLength || n > MaxLength {
		return "", "", false
	}

	at := strings.IndexByte(s, '@')
	if at <= 0 {
		return "", "", false
	}
	if strings.IndexByte(s[at+1:], '@') >= 0 {
		return "", "", false
	}

	local, domain = s[:at], s[at+1:]
	if !validLocal(local) || !validDomain(domain) {
		return "", "", false
	}
	return local, domain, true
}

func validLocal(local string) bool {
	if local == "" || utf8.RuneCountInString(local) > MaxLocalLength {
		return false
	}
	if local[0] == '.' || local[len(local)-1] == '.' {
		return false
	}
	if strings.Contains(local, "..") {
		return false
	}
	for i := 0; i < len(local); i++ {
		if !isLocalChar(local[i]) {
			return false
		}
	}
	return true
}

func validDomain(domain string) bool {
	if domain == "" || utf8.RuneCountInString(domain) > MaxDomainLength {
		return false
	}
	if strings.Contains(domain, "..") {
		return false
	}
	// The outer trim already ran, so whitespace can only show up here
	// next to the '@'. Any of it, or an edge dot or hyphen, rejects.
	if strings.TrimFunc(domain, isDomainEdge) != domain {
		return false
	}

	labels := strings.Split(domain, ".")
	if len(labels) < MinLabels || len(labels) > MaxLabels {
		return false
	}
	last := len(labels) - 1
	for i, label := range labels {
		if !validLabel(label, i == last) {
			return false
		}
	}
	return true
}

func validLabel(label string, topLevel bool) bool {
	if label == "" || utf8.RuneCountInString(label) > MaxLabelLength {
		return false
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}
	if topLevel {
		if len(label) < MinTLDLength {
			return false
		}
		for i := 0; i < len(label); i++ {
			if !isLetter(label[i]) {
				return false
			}
		}
		return true
	}
	for i := 0; i < len(label); i++ {
		c := label[i]
		if !isLetter(c) && !isDigit(c) && c != '-' {
			return false
		}
	}
	return true
}

func isDomainEdge(r rune) bool {
	return r == '.' || r == '-' || unicode.IsSpace(r)
}

func isLetter(c byte) bool { return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' }

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

// isLocalChar reports whether c may appear in a local part. Bytes of
// multi-byte UTF-8 sequences are all >= 0x80 and fail here.
func isLocalChar(c byte) bool {
	if isLetter(c) || isDigit(c) {
		return true
	}
	switch c {
	case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '/', '=', '?', '^', '_', '`', '{', '|', '}', '~', '.':
		return true
	}
	return false
}
