package analysis

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strconv"

	"gradecli/pkg/contracts/domain"
)

// DefaultPseudonymPool is the minimum number of labels pseudonyms are drawn from
const DefaultPseudonymPool = 999

// ErrUnknownAssignment is returned for an identifier that is not in the schema
var ErrUnknownAssignment = errors.New("unknown assignment")

// Options configures an Analyzer
type Options struct {
	// PseudonymPool is the minimum label pool size; the pool grows to the
	// roster size when the roster is larger.
	PseudonymPool int
	// Rand draws pseudonyms. Nil uses the auto-seeded global source.
	Rand   *rand.Rand
	Logger *slog.Logger
}

// assignmentResult holds every cached artifact of one assignment
type assignmentResult struct {
	assignment domain.Assignment
	named      []domain.RankingRow
	anonymized []domain.RankingRow
	graded     int
	stats      domain.BasicStatistics
	dist       domain.GradeDistribution
	box        domain.BoxPlot
	hist       domain.Histogram
}

// Analyzer computes per-assignment rankings, statistics, distributions and
// chart tables. Everything is computed in New; accessors return copies.
type Analyzer struct {
	students    []domain.Student
	assignments []domain.Assignment
	pseudonyms  []string // parallel to students
	results     map[string]*assignmentResult
	logger      *slog.Logger
}

// New analyzes students over assignments.
func New(students []domain.Student, assignments []domain.Assignment, opts Options) *Analyzer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	a := &Analyzer{
		students:    make([]domain.Student, len(students)),
		assignments: make([]domain.Assignment, len(assignments)),
		results:     make(map[string]*assignmentResult, len(assignments)),
		logger:      logger.With(slog.String("component", "assignment_analyzer")),
	}
	for i, s := range students {
		a.students[i] = s.Clone()
	}
	for i, asg := range assignments {
		a.assignments[i] = asg.Clone()
	}

	a.pseudonyms = drawPseudonyms(len(a.students), opts.PseudonymPool, opts.Rand)

	for _, asg := range a.assignments {
		a.results[asg.ID] = a.analyze(asg)
	}

	a.logger.Debug("Gradebook analysis built",
		slog.Int("students", len(a.students)),
		slog.Int("assignments", len(a.assignments)))

	return a
}

// analyze runs the pipeline for one assignment:
// normalize, rank, pseudonymize, then aggregate the graded subset.
func (a *Analyzer) analyze(asg domain.Assignment) *assignmentResult {
	grades := make([]domain.Grade, len(a.students))
	for i, s := range a.students {
		grades[i] = domain.ParseGrade(s.Grade(asg.ID))
	}

	order := rankOrder(grades)

	res := &assignmentResult{
		assignment: asg,
		named:      make([]domain.RankingRow, len(order)),
		anonymized: make([]domain.RankingRow, len(order)),
	}
	values := make([]float64, 0, len(order))

	rank := 0
	for pos, idx := range order {
		if pos == 0 || grades[idx].Less(grades[order[pos-1]]) {
			rank = pos + 1
		}
		s := a.students[idx]
		row := domain.RankingRow{
			Rank:      rank,
			Name:      s.Name(),
			StudentID: s.ID,
			Grade:     grades[idx],
			Section:   s.Section,
		}
		res.named[pos] = row

		row.Name = a.pseudonyms[idx]
		row.StudentID = ""
		res.anonymized[pos] = row

		if v, ok := grades[idx].Value(); ok {
			values = append(values, v)
		}
	}

	res.graded = len(values)
	res.stats = ComputeStatistics(asg.ID, values)
	res.dist = ComputeDistribution(values)
	res.box = buildBoxPlot(asg, res.named)
	res.hist = buildHistogram(asg, res.named)
	return res
}

// rankOrder returns roster indices sorted by grade descending with missing
// grades last. Equal grades keep roster order.
func rankOrder(grades []domain.Grade) []int {
	order := make([]int, len(grades))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(i, j int) int {
		switch {
		case grades[j].Less(grades[i]):
			return -1
		case grades[i].Less(grades[j]):
			return 1
		}
		return 0
	})
	return order
}

// drawPseudonyms picks n distinct labels from "1".."max(pool, n)"
func drawPseudonyms(n, pool int, r *rand.Rand) []string {
	if pool <= 0 {
		pool = DefaultPseudonymPool
	}
	if n > pool {
		pool = n
	}

	var perm []int
	if r != nil {
		perm = r.Perm(pool)
	} else {
		perm = rand.Perm(pool)
	}

	labels := make([]string, n)
	for i := range labels {
		labels[i] = strconv.Itoa(perm[i] + 1)
	}
	return labels
}

func (a *Analyzer) result(id string) (*assignmentResult, error) {
	res, ok := a.results[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAssignment, id)
	}
	return res, nil
}

// Assignments returns the analyzed assignments in column order
func (a *Analyzer) Assignments() []domain.Assignment {
	out := make([]domain.Assignment, len(a.assignments))
	for i, asg := range a.assignments {
		out[i] = asg.Clone()
	}
	return out
}

// StudentCount returns the number of students in the roster
func (a *Analyzer) StudentCount() int {
	return len(a.students)
}

// Ranking returns every student ordered by grade, named or anonymized
func (a *Analyzer) Ranking(id string, anonymized bool) ([]domain.RankingRow, error) {
	res, err := a.result(id)
	if err != nil {
		return nil, err
	}
	if anonymized {
		return slices.Clone(res.anonymized), nil
	}
	return slices.Clone(res.named), nil
}

// Graded returns the ranking restricted to graded students
func (a *Analyzer) Graded(id string, anonymized bool) ([]domain.RankingRow, error) {
	rows, err := a.Ranking(id, anonymized)
	if err != nil {
		return nil, err
	}
	graded := rows[:0]
	for _, row := range rows {
		if row.Grade.IsGraded() {
			graded = append(graded, row)
		}
	}
	return graded, nil
}

// Ungraded returns the students without a grade, in ranking order
func (a *Analyzer) Ungraded(id string, anonymized bool) ([]domain.UngradedRow, error) {
	rows, err := a.Ranking(id, anonymized)
	if err != nil {
		return nil, err
	}
	ungraded := make([]domain.UngradedRow, 0)
	for _, row := range rows {
		if !row.Grade.IsGraded() {
			ungraded = append(ungraded, domain.UngradedRow{
				Name:      row.Name,
				StudentID: row.StudentID,
				Section:   row.Section,
			})
		}
	}
	return ungraded, nil
}

// Statistics returns the summary statistics over graded students
func (a *Analyzer) Statistics(id string) (domain.BasicStatistics, error) {
	res, err := a.result(id)
	if err != nil {
		return domain.BasicStatistics{}, err
	}
	return res.stats.Clone(), nil
}

// AllStatistics returns statistics for every assignment in column order
func (a *Analyzer) AllStatistics() []domain.BasicStatistics {
	out := make([]domain.BasicStatistics, len(a.assignments))
	for i, asg := range a.assignments {
		out[i] = a.results[asg.ID].stats.Clone()
	}
	return out
}

// Distribution returns the grade value counts over graded students
func (a *Analyzer) Distribution(id string) (domain.GradeDistribution, error) {
	res, err := a.result(id)
	if err != nil {
		return nil, err
	}
	return slices.Clone(res.dist), nil
}

// AllDistributions returns distributions keyed by assignment identifier
func (a *Analyzer) AllDistributions() map[string]domain.GradeDistribution {
	out := make(map[string]domain.GradeDistribution, len(a.results))
	for id, res := range a.results {
		out[id] = slices.Clone(res.dist)
	}
	return out
}

// BoxPlot returns per-section box plot data
func (a *Analyzer) BoxPlot(id string) (domain.BoxPlot, error) {
	res, err := a.result(id)
	if err != nil {
		return domain.BoxPlot{}, err
	}
	return cloneBoxPlot(res.box), nil
}

// Histogram returns per-section histogram data
func (a *Analyzer) Histogram(id string) (domain.Histogram, error) {
	res, err := a.result(id)
	if err != nil {
		return domain.Histogram{}, err
	}
	return cloneHistogram(res.hist), nil
}

// Pseudonyms returns the pseudonym of every student in roster order
func (a *Analyzer) Pseudonyms() []domain.PseudonymEntry {
	out := make([]domain.PseudonymEntry, len(a.students))
	for i, s := range a.students {
		out[i] = domain.PseudonymEntry{
			StudentID: s.ID,
			Name:      s.Name(),
			Pseudonym: a.pseudonyms[i],
		}
	}
	return out
}

// Overview summarizes every assignment in column order
func (a *Analyzer) Overview() []domain.AssignmentSummary {
	out := make([]domain.AssignmentSummary, len(a.assignments))
	for i, asg := range a.assignments {
		res := a.results[asg.ID]
		stats := res.stats.Clone()
		out[i] = domain.AssignmentSummary{
			ID:            asg.ID,
			Title:         asg.Title,
			MaxPoints:     asg.Clone().MaxPoints,
			GradedCount:   res.graded,
			UngradedCount: len(res.named) - res.graded,
			Mean:          stats.Mean,
		}
	}
	return out
}
