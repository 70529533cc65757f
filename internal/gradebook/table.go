package gradebook

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format identifies the encoding of a gradebook payload
type Format string

const (
	FormatAuto Format = "auto"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ErrEmptyTable is returned when a payload contains no rows
var ErrEmptyTable = errors.New("gradebook table is empty")

var (
	zipMagic = []byte("PK\x03\x04")
	utf8BOM  = []byte{0xEF, 0xBB, 0xBF}
)

// ParseFormat maps a user supplied format or file extension to a Format
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))
	switch s {
	case "", "auto":
		return FormatAuto, nil
	case "csv", "txt":
		return FormatCSV, nil
	case "xlsx", "xlsm":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported gradebook format %q", s)
	}
}

// DetectFormat sniffs the first bytes of a payload
func DetectFormat(head []byte) Format {
	if bytes.HasPrefix(head, zipMagic) {
		return FormatXLSX
	}
	return FormatCSV
}

// ReadTable decodes r into rows of cells. Rows may be ragged.
func ReadTable(r io.Reader, format Format) ([][]string, error) {
	br := bufio.NewReader(r)
	if format == FormatAuto || format == "" {
		head, err := br.Peek(len(zipMagic))
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read gradebook: %w", err)
		}
		format = DetectFormat(head)
	}

	var (
		rows [][]string
		err  error
	)
	switch format {
	case FormatCSV:
		rows, err = readCSV(br)
	case FormatXLSX:
		rows, err = readXLSX(br)
	default:
		return nil, fmt.Errorf("unsupported gradebook format %q", format)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptyTable
	}
	return rows, nil
}

func readCSV(br *bufio.Reader) ([][]string, error) {
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return nil, fmt.Errorf("failed to skip BOM: %w", err)
		}
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	return rows, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyTable
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}
