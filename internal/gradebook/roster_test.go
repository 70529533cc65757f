package gradebook

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gradecli/internal/shared/testutil"
)

func TestParserParse(t *testing.T) {
	export := testutil.NewCanvasExport()
	parser := NewParser(DefaultParseOptions(), nil)

	roster, err := parser.Parse(export.Rows())
	require.NoError(t, err)

	assert.Equal(t, []string{"Homework 1 (101)"}, roster.Schema.IDs())
	require.NotNil(t, roster.Schema.Assignments[0].MaxPoints)
	assert.Equal(t, 100.0, *roster.Schema.Assignments[0].MaxPoints)

	require.Len(t, roster.Students, 3, "test student must be dropped")
	ada := roster.Students[0]
	assert.Equal(t, "Ada", ada.FirstName)
	assert.Equal(t, "Lovelace", ada.LastName)
	assert.Equal(t, "1001", ada.ID)
	assert.Equal(t, "A", ada.Section)
	assert.Equal(t, "100", ada.Grade("Homework 1 (101)"))

	assert.Equal(t, "", roster.Students[1].Grade("Homework 1 (101)"))
	assert.Equal(t, "80", roster.Students[2].Grade("Homework 1 (101)"))
	assert.Empty(t, roster.Skipped)
}

func TestParserGradesAreVerbatim(t *testing.T) {
	export := testutil.NewCanvasExport()
	export.Assignments = []string{"HW 1", "HW 2", "HW 3"}
	export.MaxPoints = []string{"10", "10", "10"}
	export.Students = []testutil.CanvasStudent{
		{Name: "Doe, Jane", ID: "1", Section: "S1", Grades: []string{"EX", " 9.5 ", "1.2.3"}},
	}

	roster, err := NewParser(DefaultParseOptions(), nil).Parse(export.Rows())
	require.NoError(t, err)
	require.Len(t, roster.Students, 1)

	grades := roster.Students[0].Grades()
	assert.Equal(t, map[string]string{"HW 1": "EX", "HW 2": " 9.5 ", "HW 3": "1.2.3"}, grades)
}

func TestParserRowHandling(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*testutil.CanvasExport)
		wantNames []string
	}{
		{
			name: "blank names are skipped",
			mutate: func(c *testutil.CanvasExport) {
				c.Students = append(c.Students, testutil.CanvasStudent{Name: "   ", ID: "x"})
			},
			wantNames: []string{"Ada Lovelace", "Grace Hopper", "Alan Turing"},
		},
		{
			name: "test student kept when not last",
			mutate: func(c *testutil.CanvasExport) {
				c.TestStudent = false
				c.Students = append([]testutil.CanvasStudent{{Name: "Student, Test", ID: "9"}}, c.Students...)
			},
			wantNames: []string{"Test Student", "Ada Lovelace", "Grace Hopper", "Alan Turing"},
		},
		{
			name: "no trailer row",
			mutate: func(c *testutil.CanvasExport) {
				c.TestStudent = false
			},
			wantNames: []string{"Ada Lovelace", "Grace Hopper", "Alan Turing"},
		},
		{
			name: "single student",
			mutate: func(c *testutil.CanvasExport) {
				c.Students = c.Students[:1]
			},
			wantNames: []string{"Ada Lovelace"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			export := testutil.NewCanvasExport()
			tt.mutate(export)

			roster, err := NewParser(DefaultParseOptions(), nil).Parse(export.Rows())
			require.NoError(t, err)

			names := make([]string, len(roster.Students))
			for i, s := range roster.Students {
				names[i] = s.Name()
			}
			assert.Equal(t, tt.wantNames, names)
		})
	}
}

func TestParserShortRow(t *testing.T) {
	table := [][]string{
		{"Student", "ID", "Section", "HW 1", "Current Score"},
		{"Points Possible", "", "", "10", ""},
		{"Doe, Jane", "1"},
	}

	roster, err := NewParser(DefaultParseOptions(), nil).Parse(table)
	require.NoError(t, err)
	require.Len(t, roster.Students, 1)
	assert.Equal(t, "", roster.Students[0].Section)
	assert.Equal(t, "", roster.Students[0].Grade("HW 1"))
}

func TestParserMetadataRows(t *testing.T) {
	table := [][]string{
		{"Student", "ID", "Section", "HW 1", "Notes 2", "Current Score"},
		{"", "", "", "Manual Posting", "", ""},
		{"    Points Possible", "", "", "10", "", ""},
		{"Doe, Jane", "1", "S1", "7", "late", ""},
	}

	opts := DefaultParseOptions()
	opts.MetadataRows = 2

	roster, err := NewParser(opts, nil).Parse(table)
	require.NoError(t, err)
	assert.Equal(t, []string{"HW 1"}, roster.Schema.IDs())
	require.Len(t, roster.Students, 1)
	assert.Equal(t, "7", roster.Students[0].Grade("HW 1"))
}

func TestParserWithoutPointsPossibleRow(t *testing.T) {
	export := testutil.NewCanvasExport()
	export.MaxPoints = nil

	opts := DefaultParseOptions()
	opts.MetadataRows = 0

	roster, err := NewParser(opts, nil).Parse(export.Rows())
	require.NoError(t, err)
	assert.Equal(t, []string{"Homework 1 (101)"}, roster.Schema.IDs())
	assert.Nil(t, roster.Schema.Assignments[0].MaxPoints)
	assert.Len(t, roster.Students, 3)
}

func TestParserMalformedNamePolicies(t *testing.T) {
	newExport := func() *testutil.CanvasExport {
		export := testutil.NewCanvasExport()
		export.Students = append(export.Students, testutil.CanvasStudent{Name: "Cher", ID: "1004", Section: "B", Grades: []string{"90"}})
		return export
	}

	t.Run("abort", func(t *testing.T) {
		roster, err := NewParser(DefaultParseOptions(), nil).Parse(newExport().Rows())
		assert.Nil(t, roster)

		var rowErr *RowFormatError
		require.True(t, errors.As(err, &rowErr))
		assert.Equal(t, "Cher", rowErr.Value)
		assert.Equal(t, 6, rowErr.Row)
	})

	t.Run("skip", func(t *testing.T) {
		logger, handler := testutil.NewTestLogger(t)
		opts := DefaultParseOptions()
		opts.RowPolicy = RowPolicySkip

		roster, err := NewParser(opts, logger).Parse(newExport().Rows())
		require.NoError(t, err)

		assert.Len(t, roster.Students, 3)
		require.Len(t, roster.Skipped, 1)
		assert.Equal(t, "Cher", roster.Skipped[0].Value)
		testutil.AssertLogContains(t, handler, slog.LevelWarn, "Skipping malformed student row")
		assert.True(t, handler.ContainsAttr("component", "roster_parser"))
	})
}

func TestParserSchemaErrors(t *testing.T) {
	tests := []struct {
		name       string
		header     []string
		wantColumn string
	}{
		{"missing student", []string{"ID", "Section", "Current Score"}, ColumnStudent},
		{"missing id", []string{"Student", "Section", "Current Score"}, ColumnID},
		{"missing section", []string{"Student", "ID", "Current Score"}, ColumnSection},
		{"missing current score", []string{"Student", "ID", "Section", "HW 1"}, ColumnCurrentScore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roster, err := NewParser(DefaultParseOptions(), nil).Parse([][]string{tt.header})
			assert.Nil(t, roster)

			var schemaErr *SchemaError
			require.True(t, errors.As(err, &schemaErr))
			assert.Equal(t, tt.wantColumn, schemaErr.Column)
		})
	}

	_, err := NewParser(DefaultParseOptions(), nil).Parse(nil)
	assert.ErrorIs(t, err, ErrEmptyTable)
}

func TestParserParseReader(t *testing.T) {
	export := testutil.NewCanvasExport()

	for name, payload := range map[string][]byte{
		"csv":  export.CSV(t),
		"xlsx": export.XLSX(t),
	} {
		t.Run(name, func(t *testing.T) {
			roster, err := NewParser(DefaultParseOptions(), nil).ParseReader(bytes.NewReader(payload), FormatAuto)
			require.NoError(t, err)
			require.Len(t, roster.Students, 3)
			assert.Equal(t, "Ada Lovelace", roster.Students[0].Name())
			assert.Equal(t, "100", roster.Students[0].Grade("Homework 1 (101)"))
			assert.Equal(t, "80", roster.Students[2].Grade("Homework 1 (101)"))
		})
	}
}
