package services

import "errors"

// Gradebook service errors
var (
	ErrSessionNotFound    = errors.New("gradebook session not found")
	ErrAssignmentNotFound = errors.New("assignment not found")

	// Upload errors
	ErrEmptyUpload       = errors.New("uploaded file is empty")
	ErrUploadTooLarge    = errors.New("uploaded file exceeds the size limit")
	ErrUnsupportedFormat = errors.New("unsupported gradebook format")
	ErrInvalidGradebook  = errors.New("invalid gradebook")

	// Query errors
	ErrInvalidQuery = errors.New("invalid query")

	// Report errors
	ErrExportFailed = errors.New("export failed")
)
