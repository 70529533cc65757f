package gradebook

import (
	"fmt"
	"strconv"
	"strings"

	"gradecli/pkg/contracts/domain"
)

// Canvas column names the parser relies on
const (
	ColumnStudent        = "Student"
	ColumnID             = "ID"
	ColumnSection        = "Section"
	ColumnCurrentScore   = "Current Score"
	ColumnUnpostedScore  = "Unposted Current Score"
	PointsPossibleMarker = "Points Possible"
)

// SchemaError reports a header that does not have the shape of a gradebook export
type SchemaError struct {
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("invalid gradebook header: %s", e.Reason)
	}
	return fmt.Sprintf("invalid gradebook header: column %q: %s", e.Column, e.Reason)
}

// Schema is the ordered list of assignment columns of a gradebook
type Schema struct {
	Assignments []domain.Assignment `json:"assignments"`

	columns []int // source column of each assignment
}

// IDs returns the assignment identifiers in column order
func (s *Schema) IDs() []string {
	out := make([]string, len(s.Assignments))
	for i, a := range s.Assignments {
		out[i] = a.ID
	}
	return out
}

// Titles returns the assignment titles, parallel to IDs
func (s *Schema) Titles() []string {
	out := make([]string, len(s.Assignments))
	for i, a := range s.Assignments {
		out[i] = a.Title
	}
	return out
}

// MaxPoints returns the maximum points, parallel to IDs
func (s *Schema) MaxPoints() []*float64 {
	out := make([]*float64, len(s.Assignments))
	for i, a := range s.Assignments {
		out[i] = a.Clone().MaxPoints
	}
	return out
}

// Lookup returns the assignment with the given identifier
func (s *Schema) Lookup(id string) (domain.Assignment, bool) {
	for _, a := range s.Assignments {
		if a.ID == id {
			return a.Clone(), true
		}
	}
	return domain.Assignment{}, false
}

// ExtractSchema finds the assignment columns of header.
// When maxPoints is non-nil, columns whose max-points cell is not a plain
// number are dropped and the remaining columns carry their maximum.
func ExtractSchema(header []string, maxPoints []string) (*Schema, error) {
	cleaned := CleanHeader(header)

	sectionIdx := indexOf(cleaned, ColumnSection)
	if sectionIdx < 0 {
		return nil, &SchemaError{Column: ColumnSection, Reason: "anchor column not found"}
	}
	scoreIdx := indexOf(cleaned, ColumnCurrentScore)
	if scoreIdx < 0 {
		return nil, &SchemaError{Column: ColumnCurrentScore, Reason: "anchor column not found"}
	}
	start, end := sectionIdx+1, scoreIdx
	if end < start {
		return nil, &SchemaError{Column: ColumnCurrentScore, Reason: "appears before the Section column"}
	}

	schema := &Schema{Assignments: make([]domain.Assignment, 0, end-start)}
	seen := make(map[string]struct{}, end-start)

	for i := start; i < end; i++ {
		id := cleaned[i]
		if isSummaryPair(cleaned, i) {
			break
		}

		var maxValue *float64
		if maxPoints != nil {
			v, ok := parseMaxPoints(maxPoints, i)
			if !ok {
				continue
			}
			maxValue = &v
		}

		if _, dup := seen[id]; dup {
			return nil, &SchemaError{Column: id, Reason: "duplicate assignment identifier"}
		}
		seen[id] = struct{}{}

		schema.Assignments = append(schema.Assignments, domain.Assignment{
			ID:        id,
			Title:     AssignmentTitle(id),
			MaxPoints: maxValue,
		})
		schema.columns = append(schema.columns, i)
	}

	return schema, nil
}

// AssignmentTitle drops the trailing space-delimited token Canvas appends to
// assignment column names. A single-token identifier has an empty title.
func AssignmentTitle(id string) string {
	idx := strings.LastIndex(id, " ")
	if idx < 0 {
		return ""
	}
	return id[:idx]
}

// CleanHeader strips byte order marks, zero-width characters and surrounding
// whitespace from header cells.
func CleanHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = cleanCell(h)
	}
	return out
}

var invisibleRunes = strings.NewReplacer(
	"\ufeff", "",
	"\u200b", "",
	"\u200c", "",
	"\u200d", "",
	"\u2060", "",
)

func cleanCell(s string) string {
	return strings.TrimSpace(invisibleRunes.Replace(s))
}

// isSummaryPair reports whether columns i and i+1 are a per-group
// "Current Score" / "Unposted Current Score" pair.
func isSummaryPair(header []string, i int) bool {
	if i+1 >= len(header) {
		return false
	}
	return strings.HasSuffix(header[i], ColumnCurrentScore) &&
		strings.HasSuffix(header[i+1], ColumnUnpostedScore)
}

func parseMaxPoints(row []string, i int) (float64, bool) {
	if i >= len(row) {
		return 0, false
	}
	cell := row[i]
	if !domain.IsPlainNumber(cell) {
		return 0, false
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}
