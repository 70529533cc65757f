// Package http implements the HTTP handlers of the gradebook analyzer.
//
// Handlers are thin: they decode the request, call a service and render the
// result. Service errors are mapped to internal/errors API errors and written
// as RFC 7807 problem details by the shared ErrorHandler.
//
// # Routes
//
//	POST   /api/sessions                                     upload (multipart "file")
//	GET    /api/sessions/{id}                                session info
//	DELETE /api/sessions/{id}                                discard session
//	GET    /api/sessions/{id}/assignments                    assignment overview
//	GET    /api/sessions/{id}/assignments/{aid}/ranking      ?view=all|graded|ungraded&anonymized=
//	GET    /api/sessions/{id}/assignments/{aid}/statistics
//	GET    /api/sessions/{id}/assignments/{aid}/distribution
//	GET    /api/sessions/{id}/assignments/{aid}/charts/box
//	GET    /api/sessions/{id}/assignments/{aid}/charts/histogram
//	GET    /api/sessions/{id}/export                         ?format=csv|xlsx&anonymized=
//	GET    /api/health, /api/health/live, /api/health/ready, /api/version
//	GET    /metrics, /metrics/stats
//
// Successful JSON responses use the envelope
//
//	{"status": "success", "data": ...}
//
// Export responses are the raw report file with a Content-Disposition header.
package http
