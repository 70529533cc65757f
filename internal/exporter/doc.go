// Package exporter writes gradebook analysis reports to CSV and XLSX.
//
// A Report is assembled from an analysis.Analyzer with BuildReport and
// holds, per assignment, the full ranking plus summary statistics.
//
// CSV output is a single stream with one block per assignment, prefixed by
// a UTF-8 BOM so spreadsheet applications detect the encoding. XLSX output
// has an "Overview" sheet followed by one sheet per assignment.
//
// Example usage:
//
//	report, err := exporter.BuildReport(analyzer, "grades.csv", true)
//	if err != nil {
//		return err
//	}
//	err = exporter.NewExporter(logger).WriteFile("out/grades.xlsx", report)
package exporter
