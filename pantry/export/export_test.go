package export

import (
	"bytes"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/dalemusser/mailcheck/report"
)

func TestCSV_Write(t *testing.T) {
	b, err := NewCSV().UseLF().Headers("a", "b").Row("1", "x,y").Bytes()
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,\"x,y\"\n", string(b))

	b, err = NewCSV().Headers("a", "b").Row("1", "2").Bytes()
	require.NoError(t, err)
	assert.Equal(t, "a,b\r\n1,2\r\n", string(b))

	b, err = NewCSV().TabDelimited().UseLF().Row("1", "2").Bytes()
	require.NoError(t, err)
	assert.Equal(t, "1\t2\n", string(b))
}

func TestCSV_Save(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	c := NewCSV().UseLF().Headers("email").Row("a@b.co")
	require.NoError(t, c.Save(path))
	assert.Equal(t, 1, c.Len())
}

func TestCSV_ServeHTTP(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, NewCSV().UseLF().Row("x").ServeHTTP(rec, "report.csv"))
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="report.csv"`)
	assert.Equal(t, "x\n", rec.Body.String())
}

func TestCSVReader_Column(t *testing.T) {
	in := "\ufeffName, Email \nAda,ada@example.com\nCharles\nGrace,grace@navy.mil,extra\n"
	got, err := ReadCSV(strings.NewReader(in)).Column("email")
	require.NoError(t, err)
	assert.Equal(t, []string{"ada@example.com", "", "grace@navy.mil"}, got)

	_, err = ReadCSV(strings.NewReader(in)).Column("phone")
	assert.True(t, errors.Is(err, ErrColumnMissing))

	_, err = ReadCSV(strings.NewReader("")).Column("email")
	assert.True(t, errors.Is(err, ErrNoData))
}

func TestCSVReader_TabDelimited(t *testing.T) {
	got, err := ReadCSV(strings.NewReader("email\tname\na@b.co\tA\n")).TabDelimited().Column("email")
	require.NoError(t, err)
	assert.Equal(t, []string{"a@b.co"}, got)
}

func sampleEntries() []report.Entry {
	return report.Build([]string{"Jane@Gmail.com", "ops@company.com", "broken"})
}

func TestEscapeFormula(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"a@b.co", "a@b.co"},
		{"=1+1", "'=1+1"},
		{"+cmd", "'+cmd"},
		{"-2", "'-2"},
		{"@SUM(A1)", "'@SUM(A1)"},
		{"\tx", "'\tx"},
		{"\rx", "'\rx"},
		{"a=b", "a=b"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EscapeFormula(tt.in), "EscapeFormula(%q)", tt.in)
	}
}

func TestEntries_EscapesFormulas(t *testing.T) {
	b, err := Entries(report.Build([]string{"=1+1@example.com", "-x@example.com"})).UseLF().Bytes()
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "'=1+1@example.com,true,'=1+1@example.com,'=1+1,example.com,,false", lines[1])
	assert.Equal(t, "'-x@example.com,true,'-x@example.com,'-x,example.com,,false", lines[2])
}

func TestCSV_WithoutEscapeKeepsCells(t *testing.T) {
	b, err := NewCSV().UseLF().Row("=A1").Bytes()
	require.NoError(t, err)
	assert.Equal(t, "=A1\n", string(b))
}

func TestEntries(t *testing.T) {
	b, err := Entries(sampleEntries()).UseLF().Bytes()
	require.NoError(t, err)

	want := "input,valid,normalized,local_part,domain,provider,personal\n" +
		"Jane@Gmail.com,true,Jane@gmail.com,Jane,gmail.com,Gmail,true\n" +
		"ops@company.com,true,ops@company.com,ops,company.com,,false\n" +
		"broken,false,,,,,false\n"
	assert.Equal(t, want, string(b))
}

func TestEntriesExcel(t *testing.T) {
	entries := sampleEntries()
	x := EntriesExcel(entries, report.Summarize(entries))
	defer x.Close()

	assert.Equal(t, []string{"Results", "Summary"}, x.SheetNames())

	b, err := x.Bytes()
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Results", "Summary"}, f.GetSheetList())

	rows, err := f.GetRows("Results")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, EntryHeaders, rows[0])
	assert.Equal(t, "Jane@gmail.com", rows[1][2])
	assert.Equal(t, "Gmail", rows[1][5])
	assert.Equal(t, "broken", rows[3][0])

	total, err := f.GetCellValue("Summary", "B2")
	require.NoError(t, err)
	assert.Equal(t, "3", total)

	provider, err := f.GetCellValue("Summary", "A9")
	require.NoError(t, err)
	assert.Equal(t, "Gmail", provider)
}

func TestExcel_BuildTwice(t *testing.T) {
	x := NewExcel()
	defer x.Close()
	s := x.Sheet("Data").Headers("a").Row(1)
	require.NoError(t, s.Build())
	require.NoError(t, s.Build())
	assert.Same(t, s, x.Sheet("Data"))

	var buf bytes.Buffer
	require.NoError(t, x.Write(&buf))
	assert.NotZero(t, buf.Len())
}
