package exporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"gradecli/pkg/contracts/domain"
)

const (
	overviewSheet     = "Overview"
	maxSheetNameRunes = 31
)

var sheetNameReplacer = strings.NewReplacer(
	"[", "(", "]", ")", ":", "-", "*", "-", "?", "", "/", "-", "\\", "-",
)

func (e *Exporter) writeXLSX(w io.Writer, report *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), overviewSheet); err != nil {
		return fmt.Errorf("failed to name overview sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	if err := writeOverviewSheet(f, report, bold); err != nil {
		return err
	}

	used := map[string]bool{overviewSheet: true, strings.ToLower(overviewSheet): true}
	for _, section := range report.Assignments {
		name := uniqueSheetName(section.Assignment, used)
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %q: %w", name, err)
		}
		if err := writeAssignmentSheet(f, name, section, bold); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeOverviewSheet(f *excelize.File, report *Report, style int) error {
	rows := [][]interface{}{
		{"Gradebook", report.Title},
		{"Anonymized", report.Anonymized},
		{},
		{"Assignment", "ID", "Max Points", "Graded", "Ungraded", "Mean"},
	}
	for _, s := range report.Overview {
		rows = append(rows, []interface{}{
			s.Title, s.ID, cellValue(s.MaxPoints), s.GradedCount, s.UngradedCount, cellValue(s.Mean),
		})
	}

	if err := setRows(f, overviewSheet, 1, rows); err != nil {
		return err
	}
	return f.SetRowStyle(overviewSheet, 4, 4, style)
}

func writeAssignmentSheet(f *excelize.File, sheet string, section AssignmentReport, style int) error {
	a := section.Assignment
	rows := [][]interface{}{
		{"Assignment", a.Title, "ID", a.ID, "Max Points", cellValue(a.MaxPoints)},
		{},
		{"Rank", "Name", "Grade", "Section"},
	}
	for _, r := range section.Rows {
		var grade interface{}
		if v, ok := r.Grade.Value(); ok {
			grade = v
		}
		rows = append(rows, []interface{}{r.Rank, r.Name, grade, r.Section})
	}

	statsRow := len(rows) + 2
	rows = append(rows, []interface{}{})
	for _, rec := range statisticsCells(section.Statistics) {
		rows = append(rows, rec)
	}

	if err := setRows(f, sheet, 1, rows); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 3, 3, style); err != nil {
		return err
	}
	return f.SetRowStyle(sheet, statsRow, statsRow, style)
}

func statisticsCells(s domain.BasicStatistics) [][]interface{} {
	return [][]interface{}{
		{"Statistic", "Value"},
		{"Count", s.Count},
		{"Mean", cellValue(s.Mean)},
		{"Median", cellValue(s.Median)},
		{"Std Dev", cellValue(s.StdDev)},
		{"Min", cellValue(s.Min)},
		{"Max", cellValue(s.Max)},
		{"Q25", cellValue(s.Q25)},
		{"Q50", cellValue(s.Q50)},
		{"Q75", cellValue(s.Q75)},
	}
}

func setRows(f *excelize.File, sheet string, startRow int, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, startRow+i)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

// cellValue turns a nullable number into a cell value; nil leaves the cell blank
func cellValue(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

// uniqueSheetName derives a valid, unused worksheet name for an assignment
func uniqueSheetName(a domain.Assignment, used map[string]bool) string {
	base := a.Title
	if strings.TrimSpace(base) == "" {
		base = a.ID
	}
	base = strings.Trim(sheetNameReplacer.Replace(base), "' ")
	if base == "" {
		base = "Assignment"
	}

	name := truncateRunes(base, maxSheetNameRunes)
	for n := 2; used[strings.ToLower(name)] || used[name]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		name = truncateRunes(base, maxSheetNameRunes-len(suffix)) + suffix
	}
	used[name] = true
	used[strings.ToLower(name)] = true
	return name
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
