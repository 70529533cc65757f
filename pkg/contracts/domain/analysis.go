package domain

// RankingRow is one entry of a per-assignment ranking.
// Name holds either the student's name or their pseudonym.
type RankingRow struct {
	// Rank is 1-based competition rank: equal grades share the rank of the
	// first of them and the next grade skips ahead (1, 2, 2, 4). All missing
	// grades share the rank after the last graded row.
	Rank      int    `json:"rank"`
	Name      string `json:"name"`
	StudentID string `json:"student_id,omitempty"`
	Grade     Grade  `json:"grade"`
	Section   string `json:"section"`
}

// UngradedRow is a ranking entry without a grade column
type UngradedRow struct {
	Name      string `json:"name"`
	StudentID string `json:"student_id,omitempty"`
	Section   string `json:"section"`
}

// BasicStatistics summarizes the graded entries of an assignment.
// Aggregates are nil when undefined (no graded entries, or StdDev with
// fewer than two).
type BasicStatistics struct {
	AssignmentID string   `json:"assignment_id"`
	Count        int      `json:"count"`
	Mean         *float64 `json:"mean"`
	Median       *float64 `json:"median"`
	StdDev       *float64 `json:"std_dev"`
	Min          *float64 `json:"min"`
	Max          *float64 `json:"max"`
	Q25          *float64 `json:"q25"`
	Q50          *float64 `json:"q50"`
	Q75          *float64 `json:"q75"`
}

// Clone returns a copy that shares no pointers with s
func (s BasicStatistics) Clone() BasicStatistics {
	cp := func(p *float64) *float64 {
		if p == nil {
			return nil
		}
		v := *p
		return &v
	}
	s.Mean = cp(s.Mean)
	s.Median = cp(s.Median)
	s.StdDev = cp(s.StdDev)
	s.Min = cp(s.Min)
	s.Max = cp(s.Max)
	s.Q25 = cp(s.Q25)
	s.Q50 = cp(s.Q50)
	s.Q75 = cp(s.Q75)
	return s
}

// DistributionBucket counts the students that received one grade value
type DistributionBucket struct {
	Grade float64 `json:"grade"`
	Count int     `json:"count"`
}

// GradeDistribution is ordered by ascending grade
type GradeDistribution []DistributionBucket

// Total returns the number of students in the distribution
func (d GradeDistribution) Total() int {
	total := 0
	for _, b := range d {
		total += b.Count
	}
	return total
}

// BoxPlotSeries holds the graded values of one section and their five-number summary
type BoxPlotSeries struct {
	Section string    `json:"section"`
	Values  []float64 `json:"values"`
	Min     float64   `json:"min"`
	Q1      float64   `json:"q1"`
	Median  float64   `json:"median"`
	Q3      float64   `json:"q3"`
	Max     float64   `json:"max"`
}

// BoxPlot is chart-ready data for a per-section box plot
type BoxPlot struct {
	AssignmentID string          `json:"assignment_id"`
	Title        string          `json:"title"`
	Series       []BoxPlotSeries `json:"series"`
}

// HistogramSeries is the grade distribution of one section
type HistogramSeries struct {
	Section string            `json:"section"`
	Buckets GradeDistribution `json:"buckets"`
}

// Histogram is chart-ready data for a per-section histogram
type Histogram struct {
	AssignmentID string            `json:"assignment_id"`
	Title        string            `json:"title"`
	Series       []HistogramSeries `json:"series"`
}

// AssignmentSummary is the one-line overview of an assignment
type AssignmentSummary struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	MaxPoints     *float64 `json:"max_points"`
	GradedCount   int      `json:"graded_count"`
	UngradedCount int      `json:"ungraded_count"`
	Mean          *float64 `json:"mean"`
}

// PseudonymEntry maps one roster entry to its pseudonym
type PseudonymEntry struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Pseudonym string `json:"pseudonym"`
}
