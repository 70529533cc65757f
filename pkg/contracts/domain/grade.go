package domain

import (
	"encoding/json"
	"strconv"
)

// MissingSentinel is the value Sentinel reports for a missing grade
const MissingSentinel = -1.0

// Grade is the normalized form of a raw gradebook cell.
// A Grade is either graded (carries a value) or missing.
type Grade struct {
	value  float64
	graded bool
}

// Graded returns a graded Grade holding v
func Graded(v float64) Grade {
	return Grade{value: v, graded: true}
}

// Missing returns a Grade with no usable numeric value
func Missing() Grade {
	return Grade{}
}

// ParseGrade normalizes a raw cell. Only plain decimal numbers are graded:
// ASCII digits with at most one decimal point and nothing else, so padded
// cells such as " 95" are Missing along with blanks, "EX" and negatives.
func ParseGrade(raw string) Grade {
	if !IsPlainNumber(raw) {
		return Missing()
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Missing()
	}
	return Graded(v)
}

// IsPlainNumber reports whether s contains at least one ASCII digit, at most
// one '.', and nothing else.
func IsPlainNumber(s string) bool {
	digits, dots := 0, 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
			dots++
			if dots > 1 {
				return false
			}
		default:
			return false
		}
	}
	return digits > 0
}

// Value returns the grade value and whether the grade is graded
func (g Grade) Value() (float64, bool) {
	return g.value, g.graded
}

// IsGraded reports whether the grade carries a numeric value
func (g Grade) IsGraded() bool {
	return g.graded
}

// Sentinel returns the value, or MissingSentinel when the grade is missing
func (g Grade) Sentinel() float64 {
	if !g.graded {
		return MissingSentinel
	}
	return g.value
}

// Less orders grades for a descending ranking: any graded value ranks
// above a missing one.
func (g Grade) Less(other Grade) bool {
	switch {
	case g.graded && other.graded:
		return g.value < other.value
	case !g.graded && other.graded:
		return true
	default:
		return false
	}
}

// String formats the value with the shortest exact representation; missing
// grades format as the empty string.
func (g Grade) String() string {
	if !g.graded {
		return ""
	}
	return strconv.FormatFloat(g.value, 'f', -1, 64)
}

// MarshalJSON encodes graded values as numbers and missing grades as null
func (g Grade) MarshalJSON() ([]byte, error) {
	if !g.graded {
		return []byte("null"), nil
	}
	return json.Marshal(g.value)
}

// UnmarshalJSON accepts a number or null
func (g *Grade) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*g = Missing()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*g = Graded(v)
	return nil
}
