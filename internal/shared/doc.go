// Package shared holds helpers used by more than one package.
//
// The testutil subpackage builds Canvas gradebook fixtures (CSV and XLSX)
// and captures slog output for assertions:
//
//	export := testutil.NewCanvasExport()
//	body := export.CSV(t)
//	logger, handler := testutil.NewTestLogger(t)
package shared
