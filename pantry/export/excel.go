// export/excel.go
package export

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// Excel represents an Excel workbook exporter.
type Excel struct {
	file        *excelize.File
	sheets      []*ExcelSheet
	activeSheet string
}

// ExcelSheet represents a sheet in an Excel workbook.
type ExcelSheet struct {
	excel     *Excel
	name      string
	headers   []string
	rows      [][]any
	colWidths map[int]float64
	styles    []rangeStyle
	freeze    bool
	built     bool
}

type rangeStyle struct {
	startCol, startRow, endCol, endRow int
	style                              CellStyle
}

// CellStyle represents cell styling options.
type CellStyle struct {
	Bold      bool
	Italic    bool
	FontColor string
	FillColor string
	NumFormat string
}

// NewExcel creates a new Excel workbook.
func NewExcel() *Excel {
	return &Excel{
		file: excelize.NewFile(),
	}
}

// Sheet creates or gets a sheet by name. The first sheet created becomes
// the active one and replaces the default "Sheet1".
func (e *Excel) Sheet(name string) *ExcelSheet {
	for _, s := range e.sheets {
		if s.name == name {
			return s
		}
	}

	idx, err := e.file.NewSheet(name)
	if err != nil {
		idx, _ = e.file.GetSheetIndex(name)
	}

	if e.activeSheet == "" {
		e.file.SetActiveSheet(idx)
		e.activeSheet = name
		if name != "Sheet1" {
			_ = e.file.DeleteSheet("Sheet1")
		}
	}

	sheet := &ExcelSheet{
		excel:     e,
		name:      name,
		colWidths: make(map[int]float64),
	}
	e.sheets = append(e.sheets, sheet)
	return sheet
}

// SheetNames returns the sheet names in creation order.
func (e *Excel) SheetNames() []string {
	names := make([]string, 0, len(e.sheets))
	for _, s := range e.sheets {
		names = append(names, s.name)
	}
	return names
}

// Headers sets the column headers.
func (s *ExcelSheet) Headers(headers ...string) *ExcelSheet {
	s.headers = headers
	return s
}

// Row adds a single row.
func (s *ExcelSheet) Row(values ...any) *ExcelSheet {
	s.rows = append(s.rows, values)
	return s
}

// ColWidth sets the width of a column (1-indexed).
func (s *ExcelSheet) ColWidth(col int, width float64) *ExcelSheet {
	s.colWidths[col] = width
	return s
}

// AutoWidth sizes every column to its widest value, between 10 and 50.
func (s *ExcelSheet) AutoWidth() *ExcelSheet {
	grow := func(col int, text string) {
		width := float64(utf8.RuneCountInString(text)) * 1.2
		if width < 10 {
			width = 10
		}
		if width > 50 {
			width = 50
		}
		if width > s.colWidths[col] {
			s.colWidths[col] = width
		}
	}
	for i, header := range s.headers {
		grow(i+1, header)
	}
	for _, row := range s.rows {
		for i, val := range row {
			grow(i+1, fmt.Sprint(val))
		}
	}
	return s
}

// FreezeHeader keeps the header row visible while scrolling.
func (s *ExcelSheet) FreezeHeader() *ExcelSheet {
	s.freeze = true
	return s
}

// SetCellStyle styles a range of cells (1-indexed, header is row 1).
func (s *ExcelSheet) SetCellStyle(startCol, startRow, endCol, endRow int, style CellStyle) *ExcelSheet {
	s.styles = append(s.styles, rangeStyle{startCol, startRow, endCol, endRow, style})
	return s
}

// Build writes the sheet data to the workbook. Building twice is a no-op.
func (s *ExcelSheet) Build() error {
	if s.built {
		return nil
	}
	s.built = true

	file := s.excel.file
	row := 1

	if len(s.headers) > 0 {
		for i, header := range s.headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			if err := file.SetCellValue(s.name, cell, header); err != nil {
				return err
			}
		}

		style, err := file.NewStyle(&excelize.Style{
			Font: &excelize.Font{Bold: true},
			Fill: excelize.Fill{
				Type:    "pattern",
				Color:   []string{"#E0E0E0"},
				Pattern: 1,
			},
			Border: []excelize.Border{
				{Type: "bottom", Color: "#000000", Style: 1},
			},
		})
		if err != nil {
			return err
		}
		startCell, _ := excelize.CoordinatesToCellName(1, row)
		endCell, _ := excelize.CoordinatesToCellName(len(s.headers), row)
		if err := file.SetCellStyle(s.name, startCell, endCell, style); err != nil {
			return err
		}
		row++
	}

	for _, rowData := range s.rows {
		for i, val := range rowData {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			if err := file.SetCellValue(s.name, cell, val); err != nil {
				return err
			}
		}
		row++
	}

	for _, rs := range s.styles {
		if err := s.applyStyle(rs); err != nil {
			return err
		}
	}

	for col, width := range s.colWidths {
		colName, err := excelize.ColumnNumberToName(col)
		if err != nil {
			return err
		}
		if err := file.SetColWidth(s.name, colName, colName, width); err != nil {
			return err
		}
	}

	if s.freeze && len(s.headers) > 0 {
		return file.SetPanes(s.name, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		})
	}
	return nil
}

func (s *ExcelSheet) applyStyle(rs rangeStyle) error {
	st := &excelize.Style{}
	if rs.style.Bold || rs.style.Italic || rs.style.FontColor != "" {
		st.Font = &excelize.Font{
			Bold:   rs.style.Bold,
			Italic: rs.style.Italic,
			Color:  rs.style.FontColor,
		}
	}
	if rs.style.FillColor != "" {
		st.Fill = excelize.Fill{
			Type:    "pattern",
			Color:   []string{rs.style.FillColor},
			Pattern: 1,
		}
	}
	if rs.style.NumFormat != "" {
		st.CustomNumFmt = &rs.style.NumFormat
	}

	id, err := s.excel.file.NewStyle(st)
	if err != nil {
		return err
	}
	startCell, err := excelize.CoordinatesToCellName(rs.startCol, rs.startRow)
	if err != nil {
		return err
	}
	endCell, err := excelize.CoordinatesToCellName(rs.endCol, rs.endRow)
	if err != nil {
		return err
	}
	return s.excel.file.SetCellStyle(s.name, startCell, endCell, id)
}

func (e *Excel) build() error {
	for _, s := range e.sheets {
		if err := s.Build(); err != nil {
			return fmt.Errorf("export: build sheet %q: %w", s.name, err)
		}
	}
	return nil
}

// Bytes returns the workbook as bytes.
func (e *Excel) Bytes() ([]byte, error) {
	if err := e.build(); err != nil {
		return nil, err
	}
	buf, err := e.file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write writes the workbook to a writer.
func (e *Excel) Write(w io.Writer) error {
	if err := e.build(); err != nil {
		return err
	}
	return e.file.Write(w)
}

// Save saves the workbook to a file.
func (e *Excel) Save(filename string) error {
	if err := e.build(); err != nil {
		return err
	}
	return e.file.SaveAs(filename)
}

// Close releases the workbook's resources.
func (e *Excel) Close() error {
	return e.file.Close()
}

// XLSXContentType is the media type of a workbook written by Excel.Write.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Common number formats
const (
	NumberFormatInteger  = "0"
	NumberFormatPercent2 = "0.00%"
)
