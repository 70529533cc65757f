package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"gradecli/internal/analysis"
	"gradecli/pkg/contracts/domain"
)

// Format is an export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat maps a format name or file extension to a Format
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// AssignmentReport is the exported view of one assignment
type AssignmentReport struct {
	Assignment domain.Assignment
	Rows       []domain.RankingRow
	Statistics domain.BasicStatistics
}

// Report is everything written by an export
type Report struct {
	Title       string
	Anonymized  bool
	Overview    []domain.AssignmentSummary
	Assignments []AssignmentReport
}

// BuildReport collects the export view of every assignment
func BuildReport(a *analysis.Analyzer, title string, anonymized bool) (*Report, error) {
	report := &Report{
		Title:      title,
		Anonymized: anonymized,
		Overview:   a.Overview(),
	}

	for _, asg := range a.Assignments() {
		rows, err := a.Ranking(asg.ID, anonymized)
		if err != nil {
			return nil, err
		}
		stats, err := a.Statistics(asg.ID)
		if err != nil {
			return nil, err
		}
		report.Assignments = append(report.Assignments, AssignmentReport{
			Assignment: asg,
			Rows:       rows,
			Statistics: stats,
		})
	}
	return report, nil
}

// Exporter writes reports as CSV or XLSX
type Exporter struct {
	logger *slog.Logger
}

// NewExporter creates an exporter
func NewExporter(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{logger: logger.With(slog.String("component", "exporter"))}
}

// Write encodes report in format to w
func (e *Exporter) Write(w io.Writer, report *Report, format Format) error {
	e.logger.Debug("Writing report",
		slog.String("title", report.Title),
		slog.String("format", string(format)),
		slog.Int("assignments", len(report.Assignments)),
		slog.Bool("anonymized", report.Anonymized))

	switch format {
	case FormatCSV:
		return e.writeCSV(w, report)
	case FormatXLSX:
		return e.writeXLSX(w, report)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// WriteFile writes report to path, choosing the format from its extension
func (e *Exporter) WriteFile(path string, report *Report) error {
	format, err := ParseFormat(filepath.Ext(path))
	if err != nil {
		return err
	}

	file, err := createFile(path)
	if err != nil {
		return err
	}
	if err := e.Write(file, report, format); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}

	e.logger.Info("Report exported", slog.String("path", path), slog.String("format", string(format)))
	return nil
}

func (e *Exporter) writeCSV(w io.Writer, report *Report) error {
	var records [][]string
	for i, section := range report.Assignments {
		if i > 0 {
			records = append(records, []string{})
		}
		records = append(records, assignmentHeader(section.Assignment))
		records = append(records, RankingHeader)
		records = append(records, RankingRecords(section.Rows)...)
		records = append(records, []string{})
		records = append(records, StatisticsRecords(section.Statistics)...)
	}

	return WriteCSV(w, WriteOptions{Records: records, BOMPrefix: true})
}

// RankingHeader labels the columns of RankingRecords
var RankingHeader = []string{"Rank", "Name", "Grade", "Section"}

func assignmentHeader(a domain.Assignment) []string {
	return []string{"Assignment", a.Title, "ID", a.ID, "Max Points", formatOptional(a.MaxPoints)}
}

// RankingRecords renders ranking rows as text cells
func RankingRecords(rows []domain.RankingRow) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = []string{formatInt(r.Rank), r.Name, formatGrade(r.Grade), r.Section}
	}
	return out
}

// StatisticsRecords renders a two-column statistics block, label row first
func StatisticsRecords(s domain.BasicStatistics) [][]string {
	return [][]string{
		{"Statistic", "Value"},
		{"Count", formatInt(s.Count)},
		{"Mean", formatOptional(s.Mean)},
		{"Median", formatOptional(s.Median)},
		{"Std Dev", formatOptional(s.StdDev)},
		{"Min", formatOptional(s.Min)},
		{"Max", formatOptional(s.Max)},
		{"Q25", formatOptional(s.Q25)},
		{"Q50", formatOptional(s.Q50)},
		{"Q75", formatOptional(s.Q75)},
	}
}
