package domain

import (
	"fmt"
	"strings"
)

// Student is one roster row of a gradebook export.
// Grades hold the raw cell text per assignment identifier; normalization
// happens at analysis time.
type Student struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	ID        string `json:"id"`
	Section   string `json:"section"`

	grades map[string]string
}

// NewStudent creates a student with no grades
func NewStudent(firstName, lastName, id, section string) Student {
	return Student{
		FirstName: firstName,
		LastName:  lastName,
		ID:        id,
		Section:   section,
		grades:    make(map[string]string),
	}
}

// AddGrade records the raw grade for an assignment
func (s *Student) AddGrade(assignmentID, raw string) {
	if s.grades == nil {
		s.grades = make(map[string]string)
	}
	s.grades[assignmentID] = raw
}

// Grade returns the raw grade for an assignment, "" when absent
func (s Student) Grade(assignmentID string) string {
	return s.grades[assignmentID]
}

// Grades returns a copy of the raw grade map
func (s Student) Grades() map[string]string {
	out := make(map[string]string, len(s.grades))
	for k, v := range s.grades {
		out[k] = v
	}
	return out
}

// Name returns "First Last"
func (s Student) Name() string {
	return strings.TrimSpace(fmt.Sprintf("%s %s", s.FirstName, s.LastName))
}

// Clone returns a deep copy of the student
func (s Student) Clone() Student {
	c := s
	c.grades = s.Grades()
	return c
}

// Assignment describes one gradebook column.
// ID is the raw column name including the numeric suffix Canvas appends;
// Title is the ID without that suffix.
type Assignment struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	MaxPoints *float64 `json:"max_points"`
}

// Clone returns a copy that does not share MaxPoints
func (a Assignment) Clone() Assignment {
	if a.MaxPoints != nil {
		v := *a.MaxPoints
		a.MaxPoints = &v
	}
	return a
}
