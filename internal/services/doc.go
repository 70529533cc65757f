// Package services implements the business logic layer of the gradebook
// analyzer. It sits between the HTTP handlers and the parsing and analysis
// packages.
//
// # Available Services
//
//	- GradebookService: parses uploads into sessions and serves rankings,
//	  statistics, distributions, chart tables and report exports
//	- HealthService: liveness, readiness and version information
//
// # Error Handling
//
// Services return the sentinel errors declared in errors.go, wrapped with
// context using %w. Parse failures wrap ErrInvalidGradebook together with the
// underlying gradebook.SchemaError or gradebook.RowFormatError so callers can
// use errors.Is and errors.As on either.
//
// # Testing
//
// Services are tested against real sessions built from fixture exports:
//
//	svc := newTestService(t, session.Config{})
//	info, err := svc.Upload(ctx, "grades.csv", bytes.NewReader(testutil.NewCanvasExport().CSV(t)))
package services
