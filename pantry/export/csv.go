// export/csv.go
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// Common errors.
var (
	ErrNoData        = errors.New("export: no data to export")
	ErrEmptyHeaders  = errors.New("export: headers cannot be empty")
	ErrColumnMissing = errors.New("export: column not found")
)

// CSV represents a CSV exporter.
type CSV struct {
	headers   []string
	rows      [][]string
	delimiter rune
	useCRLF   bool
	escape    bool
}

// NewCSV creates a new CSV exporter.
func NewCSV() *CSV {
	return &CSV{
		delimiter: ',',
		useCRLF:   true,
	}
}

// Delimiter sets the field delimiter (default: comma).
func (c *CSV) Delimiter(d rune) *CSV {
	c.delimiter = d
	return c
}

// TabDelimited sets tab as the delimiter.
func (c *CSV) TabDelimited() *CSV {
	c.delimiter = '\t'
	return c
}

// UseLF uses LF line endings instead of CRLF.
func (c *CSV) UseLF() *CSV {
	c.useCRLF = false
	return c
}

// EscapeFormulas prefixes cells that a spreadsheet would evaluate as a
// formula with a single quote. Use it whenever cells carry user input.
func (c *CSV) EscapeFormulas() *CSV {
	c.escape = true
	return c
}

// EscapeFormula returns s with a leading ' when it starts with one of
// = + - @ tab or CR, and s unchanged otherwise.
func EscapeFormula(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

// Headers sets the column headers.
func (c *CSV) Headers(headers ...string) *CSV {
	c.headers = headers
	return c
}

// Row adds a single row.
func (c *CSV) Row(values ...string) *CSV {
	c.rows = append(c.rows, values)
	return c
}

// Len returns the number of data rows.
func (c *CSV) Len() int {
	return len(c.rows)
}

// Bytes returns the CSV as bytes.
func (c *CSV) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write writes the CSV to a writer.
func (c *CSV) Write(w io.Writer) error {
	writer := csv.NewWriter(w)
	writer.Comma = c.delimiter
	writer.UseCRLF = c.useCRLF

	if len(c.headers) > 0 {
		if err := writer.Write(c.headers); err != nil {
			return err
		}
	}

	var escaped []string
	for _, row := range c.rows {
		if c.escape {
			escaped = escaped[:0]
			for _, v := range row {
				escaped = append(escaped, EscapeFormula(v))
			}
			row = escaped
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// Save saves the CSV to a file.
func (c *CSV) Save(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := c.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ServeHTTP writes the CSV as an HTTP attachment.
func (c *CSV) ServeHTTP(w http.ResponseWriter, filename string) error {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Write(w)
}

// CSVReader reads address lists out of CSV input.
type CSVReader struct {
	reader *csv.Reader
}

// ReadCSV creates a new CSV reader. Rows may have differing field counts.
func ReadCSV(r io.Reader) *CSVReader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return &CSVReader{reader: cr}
}

// Delimiter sets the field delimiter.
func (r *CSVReader) Delimiter(d rune) *CSVReader {
	r.reader.Comma = d
	return r
}

// TabDelimited sets tab as the delimiter.
func (r *CSVReader) TabDelimited() *CSVReader {
	r.reader.Comma = '\t'
	return r
}

// ReadAll reads all records.
func (r *CSVReader) ReadAll() ([][]string, error) {
	return r.reader.ReadAll()
}

// Column reads all records, treats the first as headers, and returns the
// values of the named column. Header matching ignores case and
// surrounding space. Short rows yield "" so the result stays aligned
// with the input rows.
func (r *CSVReader) Column(name string) ([]string, error) {
	records, err := r.reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoData
	}

	idx := -1
	for i, h := range records[0] {
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), strings.TrimSpace(name)) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrColumnMissing, name)
	}

	out := make([]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		if idx < len(rec) {
			out = append(out, rec[idx])
		} else {
			out = append(out, "")
		}
	}
	return out, nil
}
