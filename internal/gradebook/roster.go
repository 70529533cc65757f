package gradebook

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gradecli/pkg/contracts/domain"
)

// RowPolicy decides what happens to a student row whose name is not "Last, First"
type RowPolicy string

const (
	// RowPolicyAbort fails the whole parse on the first malformed row
	RowPolicyAbort RowPolicy = "abort"
	// RowPolicySkip drops malformed rows and records them in Roster.Skipped
	RowPolicySkip RowPolicy = "skip"
)

// DefaultTestStudentName is the synthetic student Canvas appends to exports
const DefaultTestStudentName = "Student, Test"

// ParseOptions configures roster parsing
type ParseOptions struct {
	// MetadataRows is the number of rows between the header and the first student
	MetadataRows    int       `validate:"min=0,max=10"`
	TestStudentName string
	RowPolicy       RowPolicy `validate:"oneof=abort skip"`
}

// DefaultParseOptions matches a standard Canvas export
func DefaultParseOptions() ParseOptions {
	return ParseOptions{
		MetadataRows:    1,
		TestStudentName: DefaultTestStudentName,
		RowPolicy:       RowPolicyAbort,
	}
}

// RowFormatError reports a student row whose name field lacks the "Last, First" separator
type RowFormatError struct {
	Row   int // 1-based row number in the source table
	Value string
}

func (e *RowFormatError) Error() string {
	return fmt.Sprintf("row %d: student name %q is not in \"Last, First\" form", e.Row, e.Value)
}

// Roster is the result of a successful parse
type Roster struct {
	Schema   *Schema
	Students []domain.Student
	Skipped  []RowFormatError
}

// Parser builds a Roster from a gradebook table
type Parser struct {
	opts   ParseOptions
	logger *slog.Logger
}

// NewParser creates a parser. A nil logger discards output.
func NewParser(opts ParseOptions, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.RowPolicy == "" {
		opts.RowPolicy = RowPolicyAbort
	}
	return &Parser{
		opts:   opts,
		logger: logger.With(slog.String("component", "roster_parser")),
	}
}

// ParseReader reads and parses a gradebook payload
func (p *Parser) ParseReader(r io.Reader, format Format) (*Roster, error) {
	table, err := ReadTable(r, format)
	if err != nil {
		return nil, err
	}
	return p.Parse(table)
}

// Parse builds the roster from a table whose first row is the header
func (p *Parser) Parse(table [][]string) (*Roster, error) {
	if len(table) == 0 {
		return nil, ErrEmptyTable
	}

	header := CleanHeader(table[0])
	nameIdx := indexOf(header, ColumnStudent)
	idIdx := indexOf(header, ColumnID)
	sectionIdx := indexOf(header, ColumnSection)
	for _, req := range []struct {
		column string
		idx    int
	}{{ColumnStudent, nameIdx}, {ColumnID, idIdx}, {ColumnSection, sectionIdx}} {
		if req.idx < 0 {
			return nil, &SchemaError{Column: req.column, Reason: "required column not found"}
		}
	}

	firstStudent := 1 + p.opts.MetadataRows
	if firstStudent > len(table) {
		firstStudent = len(table)
	}

	var maxRow []string
	for _, row := range table[1:firstStudent] {
		if strings.Contains(cell(row, nameIdx), PointsPossibleMarker) {
			maxRow = row
			break
		}
	}

	schema, err := ExtractSchema(table[0], maxRow)
	if err != nil {
		return nil, err
	}

	rows := table[firstStudent:]
	if n := len(rows); n > 0 && p.isTestStudent(cell(rows[n-1], nameIdx)) {
		rows = rows[:n-1]
	}

	roster := &Roster{Schema: schema, Students: make([]domain.Student, 0, len(rows))}

	for i, row := range rows {
		rowNum := firstStudent + i + 1
		name := strings.TrimSpace(cell(row, nameIdx))
		if name == "" {
			continue
		}

		last, first, ok := strings.Cut(name, ",")
		if !ok {
			rowErr := RowFormatError{Row: rowNum, Value: name}
			if p.opts.RowPolicy == RowPolicyAbort {
				return nil, &rowErr
			}
			p.logger.Warn("Skipping malformed student row",
				slog.Int("row", rowNum),
				slog.String("name", name))
			roster.Skipped = append(roster.Skipped, rowErr)
			continue
		}

		student := domain.NewStudent(
			strings.TrimSpace(first),
			strings.TrimSpace(last),
			strings.TrimSpace(cell(row, idIdx)),
			strings.TrimSpace(cell(row, sectionIdx)),
		)
		for j, a := range schema.Assignments {
			student.AddGrade(a.ID, cell(row, schema.columns[j]))
		}
		roster.Students = append(roster.Students, student)
	}

	p.logger.Info("Parsed gradebook roster",
		slog.Int("students", len(roster.Students)),
		slog.Int("assignments", len(schema.Assignments)),
		slog.Int("skipped_rows", len(roster.Skipped)))

	return roster, nil
}

func (p *Parser) isTestStudent(name string) bool {
	return p.opts.TestStudentName != "" && strings.TrimSpace(name) == p.opts.TestStudentName
}

// cell returns row[i] or "" when the row is short
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
