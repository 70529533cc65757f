// Package gradebook turns a Canvas "Export Entire Gradebook" file into a
// typed roster.
//
// The package has three stages:
//
// ReadTable: decodes a CSV or XLSX payload into a two-dimensional table of
// strings. XLSX is detected by its ZIP signature when FormatAuto is used.
//
// ExtractSchema: locates the assignment columns between the "Section" and
// "Current Score" anchors, drops the per-assignment summary column pairs, and
// keeps only columns with a numeric "Points Possible" cell.
//
// Parser: materializes one domain.Student per roster row with raw,
// un-normalized grade strings.
//
// Example usage:
//
//	table, err := gradebook.ReadTable(file, gradebook.FormatAuto)
//	if err != nil {
//		return err
//	}
//	roster, err := gradebook.NewParser(gradebook.DefaultParseOptions(), logger).Parse(table)
package gradebook
