// export/entries.go
package export

import (
	"strconv"

	"github.com/dalemusser/mailcheck/report"
)

// EntryHeaders are the column names used for report entries.
var EntryHeaders = []string{"input", "valid", "normalized", "local_part", "domain", "provider", "personal"}

// Entries renders report entries as CSV, one row per entry. Cells are
// formula-escaped because inputs are untrusted.
func Entries(entries []report.Entry) *CSV {
	c := NewCSV().EscapeFormulas().Headers(EntryHeaders...)
	for _, e := range entries {
		c.Row(
			e.Input,
			strconv.FormatBool(e.Valid),
			e.Normalized,
			e.LocalPart,
			e.Domain,
			e.Provider,
			strconv.FormatBool(e.Personal),
		)
	}
	return c
}

// EntriesExcel renders a "Results" sheet with one row per entry, invalid
// rows shaded, and a "Summary" sheet with totals and the provider
// breakdown.
func EntriesExcel(entries []report.Entry, summary report.Summary) *Excel {
	x := NewExcel()

	results := x.Sheet("Results").Headers(EntryHeaders...)
	for i, e := range entries {
		results.Row(e.Input, e.Valid, e.Normalized, e.LocalPart, e.Domain, e.Provider, e.Personal)
		if !e.Valid {
			results.SetCellStyle(1, i+2, len(EntryHeaders), i+2, CellStyle{FillColor: "#F8D7DA"})
		}
	}
	results.FreezeHeader().AutoWidth()

	sum := x.Sheet("Summary").Headers("metric", "value")
	sum.Row("total", summary.Total)
	sum.Row("valid", summary.Valid)
	sum.Row("invalid", summary.Invalid)
	sum.Row("personal", summary.Personal)
	sum.Row("valid_ratio", ratio(summary.Valid, summary.Total))
	sum.SetCellStyle(2, 2, 2, 5, CellStyle{NumFormat: NumberFormatInteger})
	sum.SetCellStyle(2, 6, 2, 6, CellStyle{NumFormat: NumberFormatPercent2})

	providers := summary.Providers()
	if len(providers) > 0 {
		sum.Row()
		sum.Row("provider", "count")
		sum.SetCellStyle(1, 8, 2, 8, CellStyle{Bold: true})
		for _, p := range providers {
			sum.Row(p.Provider, p.Count)
		}
	}
	sum.AutoWidth()

	return x
}

func ratio(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}
