// report/report.go
package report

import (
	"sort"

	"github.com/dalemusser/mailcheck/email"
)

// Entry is the outcome of checking one input string. Everything except
// Input and Valid is empty when the input is not a valid address.
type Entry struct {
	Input      string `json:"input"`
	Valid      bool   `json:"valid"`
	Normalized string `json:"normalized,omitempty"`
	LocalPart  string `json:"local_part,omitempty"`
	Domain     string `json:"domain,omitempty"`
	Provider   string `json:"provider,omitempty"`
	Personal   bool   `json:"personal"`
}

// Check validates s and fills in its parts and provider.
func Check(s string) Entry {
	e := Entry{Input: s}
	addr, ok := email.Parse(s)
	if !ok {
		return e
	}
	e.Valid = true
	e.Normalized = addr.String()
	e.LocalPart = addr.Local
	e.Domain = addr.Domain
	if name, ok := email.ProviderForDomain(addr.Domain); ok {
		e.Provider = name
		e.Personal = true
	}
	return e
}

// Build checks every input in order. The result has one entry per input.
func Build(inputs []string) []Entry {
	out := make([]Entry, 0, len(inputs))
	for _, s := range inputs {
		out = append(out, Check(s))
	}
	return out
}

// Summary aggregates a set of entries.
type Summary struct {
	Total      int            `json:"total"`
	Valid      int            `json:"valid"`
	Invalid    int            `json:"invalid"`
	Personal   int            `json:"personal"`
	ByProvider map[string]int `json:"by_provider"`
}

// Summarize counts entries by outcome and by provider.
func Summarize(entries []Entry) Summary {
	s := Summary{
		Total:      len(entries),
		ByProvider: make(map[string]int),
	}
	for _, e := range entries {
		if !e.Valid {
			s.Invalid++
			continue
		}
		s.Valid++
		if e.Personal {
			s.Personal++
			s.ByProvider[e.Provider]++
		}
	}
	return s
}

// ProviderCount is one row of a provider breakdown.
type ProviderCount struct {
	Provider string
	Count    int
}

// Providers returns the provider breakdown ordered by count, then name.
func (s Summary) Providers() []ProviderCount {
	out := make([]ProviderCount, 0, len(s.ByProvider))
	for name, n := range s.ByProvider {
		out = append(out, ProviderCount{Provider: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Provider < out[j].Provider
	})
	return out
}
