package exporter

import (
	"fmt"
	"strconv"

	"gradecli/pkg/contracts/domain"
)

// formatFloat formats an aggregate with exactly 2 decimal places
func formatFloat(f float64) string {
	return fmt.Sprintf("%.2f", f)
}

// formatOptional formats a nullable aggregate; nil becomes an empty cell
func formatOptional(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}

// formatGrade keeps the grade as entered; missing grades become an empty cell
func formatGrade(g domain.Grade) string {
	return g.String()
}

func formatInt(i int) string {
	return strconv.Itoa(i)
}
