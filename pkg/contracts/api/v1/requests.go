// Package api contains the HTTP API contracts of the gradebook analyzer.
// Version v1 represents the current stable API version.
package api

import (
	"time"

	"gradecli/pkg/contracts/domain"
)

// Ranking views
const (
	ViewAll      = "all"
	ViewGraded   = "graded"
	ViewUngraded = "ungraded"
)

// RankingQuery selects one view of an assignment ranking
type RankingQuery struct {
	View       string `json:"view" query:"view" validate:"omitempty,oneof=all graded ungraded"`
	Anonymized bool   `json:"anonymized" query:"anonymized"`
}

// ExportQuery selects the format of a report download
type ExportQuery struct {
	Format     string `json:"format" query:"format" validate:"omitempty,oneof=csv xlsx"`
	Anonymized bool   `json:"anonymized" query:"anonymized"`
}

// SessionInfo describes one uploaded gradebook
type SessionInfo struct {
	ID          string                     `json:"id"`
	Filename    string                     `json:"filename"`
	Students    int                        `json:"students"`
	Assignments []domain.AssignmentSummary `json:"assignments"`
	SkippedRows []SkippedRow               `json:"skipped_rows,omitempty"`
	CreatedAt   time.Time                  `json:"created_at"`
	ExpiresAt   *time.Time                 `json:"expires_at,omitempty"`
}

// SkippedRow reports a student row dropped during parsing
type SkippedRow struct {
	Row    int    `json:"row"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

// RankingResponse is the payload of a ranking request
type RankingResponse struct {
	AssignmentID string               `json:"assignment_id"`
	View         string               `json:"view"`
	Anonymized   bool                 `json:"anonymized"`
	Rows         []domain.RankingRow  `json:"rows,omitempty"`
	Ungraded     []domain.UngradedRow `json:"ungraded,omitempty"`
}
