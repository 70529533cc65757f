package testutil

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// CanvasStudent is one student row of a fixture export
type CanvasStudent struct {
	Name    string // "Last, First"
	ID      string
	Section string
	Grades  []string // parallel to CanvasExport.Assignments
}

// CanvasExport builds gradebook exports shaped like Canvas "Export Entire Gradebook"
type CanvasExport struct {
	Assignments []string
	MaxPoints   []string // parallel to Assignments; nil omits the Points Possible row
	Students    []CanvasStudent
	TestStudent bool
	// SummaryGroups adds "<group> Current Score"/"<group> Unposted Current Score"
	// column pairs after the assignments
	SummaryGroups []string
}

// NewCanvasExport returns a three-student, one-assignment export
func NewCanvasExport() *CanvasExport {
	return &CanvasExport{
		Assignments: []string{"Homework 1 (101)"},
		MaxPoints:   []string{"100"},
		Students: []CanvasStudent{
			{Name: "Lovelace, Ada", ID: "1001", Section: "A", Grades: []string{"100"}},
			{Name: "Hopper, Grace", ID: "1002", Section: "A", Grades: []string{""}},
			{Name: "Turing, Alan", ID: "1003", Section: "B", Grades: []string{"80"}},
		},
		TestStudent: true,
	}
}

// Header returns the header row
func (c *CanvasExport) Header() []string {
	header := []string{"Student", "ID", "SIS User ID", "SIS Login ID", "Section"}
	header = append(header, c.Assignments...)
	for _, g := range c.SummaryGroups {
		header = append(header, g+" Current Score", g+" Unposted Current Score")
	}
	return append(header, "Current Score", "Unposted Current Score", "Final Score")
}

// Rows returns the full table, header first
func (c *CanvasExport) Rows() [][]string {
	width := len(c.Header())
	rows := [][]string{c.Header()}

	if c.MaxPoints != nil {
		row := c.row("    Points Possible", "", "", c.MaxPoints, width)
		rows = append(rows, row)
	}
	for _, s := range c.Students {
		rows = append(rows, c.row(s.Name, s.ID, s.Section, s.Grades, width))
	}
	if c.TestStudent {
		rows = append(rows, c.row("Student, Test", "9999", "A", nil, width))
	}
	return rows
}

func (c *CanvasExport) row(name, id, section string, grades []string, width int) []string {
	row := make([]string, width)
	row[0], row[1], row[4] = name, id, section
	for i := range c.Assignments {
		if i < len(grades) {
			row[5+i] = grades[i]
		}
	}
	return row
}

// CSV encodes the export as CSV
func (c *CanvasExport) CSV(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.WriteAll(c.Rows()))
	return buf.Bytes()
}

// XLSX encodes the export as a single-sheet workbook
func (c *CanvasExport) XLSX(t *testing.T) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range c.Rows() {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		require.NoError(t, f.SetSheetRow(sheet, cellRef, &values))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}
