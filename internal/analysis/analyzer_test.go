package analysis

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gradecli/pkg/contracts/domain"
)

const hw = "HW1 101"

func student(last, first, id, section string, grades map[string]string) domain.Student {
	s := domain.NewStudent(first, last, id, section)
	for k, v := range grades {
		s.AddGrade(k, v)
	}
	return s
}

func testOptions() Options {
	return Options{Rand: rand.New(rand.NewPCG(1, 2))}
}

func threeStudents() ([]domain.Student, []domain.Assignment) {
	students := []domain.Student{
		student("Lovelace", "Ada", "1", "A", map[string]string{hw: "100"}),
		student("Hopper", "Grace", "2", "A", map[string]string{hw: ""}),
		student("Turing", "Alan", "3", "B", map[string]string{hw: "80"}),
	}
	return students, []domain.Assignment{{ID: hw, Title: "HW1"}}
}

func grades(rows []domain.RankingRow) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.Grade.Sentinel()
	}
	return out
}

func TestAnalyzerEndToEnd(t *testing.T) {
	students, assignments := threeStudents()
	a := New(students, assignments, testOptions())

	ranking, err := a.Ranking(hw, false)
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 80, -1}, grades(ranking))
	assert.Equal(t, []int{1, 2, 3}, []int{ranking[0].Rank, ranking[1].Rank, ranking[2].Rank})
	assert.Equal(t, "Ada Lovelace", ranking[0].Name)
	assert.False(t, ranking[2].Grade.IsGraded())

	stats, err := a.Statistics(hw)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Count)
	require.NotNil(t, stats.Mean)
	assert.Equal(t, 90.0, *stats.Mean)

	graded, err := a.Graded(hw, false)
	require.NoError(t, err)
	assert.Len(t, graded, 2)

	ungraded, err := a.Ungraded(hw, false)
	require.NoError(t, err)
	assert.Equal(t, []domain.UngradedRow{{Name: "Grace Hopper", StudentID: "2", Section: "A"}}, ungraded)
}

func TestAnalyzerRankingIsStable(t *testing.T) {
	students := []domain.Student{
		student("A", "First", "1", "S", map[string]string{hw: "70"}),
		student("B", "Second", "2", "S", map[string]string{hw: "90"}),
		student("C", "Third", "3", "S", map[string]string{hw: "70"}),
		student("D", "Fourth", "4", "S", map[string]string{hw: "EX"}),
		student("E", "Fifth", "5", "S", map[string]string{hw: "70.0"}),
		student("F", "Sixth", "6", "S", map[string]string{}),
	}
	a := New(students, []domain.Assignment{{ID: hw}}, testOptions())

	ranking, err := a.Ranking(hw, false)
	require.NoError(t, err)

	ids := make([]string, len(ranking))
	for i, r := range ranking {
		ids[i] = r.StudentID
	}
	assert.Equal(t, []string{"2", "1", "3", "5", "4", "6"}, ids)
}

func TestAnalyzerTiedGradesShareRank(t *testing.T) {
	students := []domain.Student{
		student("A", "First", "1", "S", map[string]string{hw: "70"}),
		student("B", "Second", "2", "S", map[string]string{hw: "90"}),
		student("C", "Third", "3", "S", map[string]string{hw: "70"}),
		student("D", "Fourth", "4", "S", map[string]string{hw: "EX"}),
		student("E", "Fifth", "5", "S", map[string]string{hw: "70.0"}),
		student("F", "Sixth", "6", "S", map[string]string{}),
		student("G", "Seventh", "7", "S", map[string]string{hw: "60"}),
	}
	a := New(students, []domain.Assignment{{ID: hw}}, testOptions())

	for _, anonymized := range []bool{false, true} {
		ranking, err := a.Ranking(hw, anonymized)
		require.NoError(t, err)

		ranks := make([]int, len(ranking))
		for i, r := range ranking {
			ranks[i] = r.Rank
		}
		assert.Equal(t, []int{1, 2, 2, 2, 5, 6, 6}, ranks, "anonymized=%v", anonymized)
	}

	graded, err := a.Graded(hw, false)
	require.NoError(t, err)
	assert.Equal(t, 5, graded[len(graded)-1].Rank)
}

func TestAnalyzerGradeNormalization(t *testing.T) {
	raw := map[string]float64{
		"95":     95,
		"95.5":   95.5,
		"":       -1,
		"EX":     -1,
		"1.2.3":  -1,
		"-5":     -1,
		".":      -1,
		" 95":    -1,
		"95 ":    -1,
		"\t88\n": -1,
	}
	for in, want := range raw {
		students := []domain.Student{student("X", "Y", "1", "S", map[string]string{hw: in})}
		a := New(students, []domain.Assignment{{ID: hw}}, testOptions())

		ranking, err := a.Ranking(hw, false)
		require.NoError(t, err)
		assert.Equal(t, want, ranking[0].Grade.Sentinel(), "raw %q", in)
	}
}

func TestAnalyzerPaddedGradesAreUngraded(t *testing.T) {
	students := []domain.Student{
		student("Lovelace", "Ada", "1", "A", map[string]string{hw: "100"}),
		student("Hopper", "Grace", "2", "A", map[string]string{hw: " 90"}),
		student("Turing", "Alan", "3", "B", map[string]string{hw: "80"}),
	}
	a := New(students, []domain.Assignment{{ID: hw}}, testOptions())

	graded, err := a.Graded(hw, false)
	require.NoError(t, err)
	assert.Len(t, graded, 2)

	ungraded, err := a.Ungraded(hw, false)
	require.NoError(t, err)
	require.Len(t, ungraded, 1)
	assert.Equal(t, "2", ungraded[0].StudentID)

	stats, err := a.Statistics(hw)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Count)
	require.NotNil(t, stats.Mean)
	assert.Equal(t, 90.0, *stats.Mean)
}

func TestAnalyzerAnonymization(t *testing.T) {
	students := make([]domain.Student, 0, 50)
	for i := 0; i < 50; i++ {
		g := map[string]string{hw: []string{"10", "20", "", "20", "EX"}[i%5], "HW2 2": []string{"5", "", "7"}[i%3]}
		students = append(students, student("Last", "Same", string(rune('a'+i%26))+string(rune('A'+i/26)), "S", g))
	}
	assignments := []domain.Assignment{{ID: hw}, {ID: "HW2 2"}}
	a := New(students, assignments, testOptions())

	pseudonyms := a.Pseudonyms()
	require.Len(t, pseudonyms, 50)
	seen := map[string]bool{}
	byID := map[string]string{}
	for _, p := range pseudonyms {
		assert.False(t, seen[p.Pseudonym], "duplicate pseudonym %s", p.Pseudonym)
		seen[p.Pseudonym] = true
		byID[p.StudentID] = p.Pseudonym
	}

	for _, asg := range assignments {
		named, err := a.Ranking(asg.ID, false)
		require.NoError(t, err)
		anon, err := a.Ranking(asg.ID, true)
		require.NoError(t, err)
		require.Len(t, anon, len(named))

		for i := range named {
			assert.Equal(t, byID[named[i].StudentID], anon[i].Name)
			assert.Equal(t, named[i].Grade, anon[i].Grade)
			assert.Equal(t, named[i].Section, anon[i].Section)
			assert.Empty(t, anon[i].StudentID)
		}
	}
}

func TestDrawPseudonyms(t *testing.T) {
	t.Run("pool grows with roster", func(t *testing.T) {
		labels := drawPseudonyms(5, 3, rand.New(rand.NewPCG(7, 7)))
		assert.ElementsMatch(t, []string{"1", "2", "3", "4", "5"}, labels)
	})

	t.Run("default pool", func(t *testing.T) {
		labels := drawPseudonyms(20, 0, nil)
		assert.Len(t, labels, 20)
		seen := map[string]bool{}
		for _, l := range labels {
			assert.False(t, seen[l])
			seen[l] = true
		}
	})

	t.Run("seeded draws are reproducible", func(t *testing.T) {
		a := drawPseudonyms(10, 999, rand.New(rand.NewPCG(3, 4)))
		b := drawPseudonyms(10, 999, rand.New(rand.NewPCG(3, 4)))
		assert.Equal(t, a, b)
	})
}

func TestAnalyzerGradedUngradedPartition(t *testing.T) {
	students, assignments := threeStudents()
	students = append(students,
		student("Curie", "Marie", "4", "B", map[string]string{hw: "EX"}),
		student("Noether", "Emmy", "5", "A", map[string]string{hw: "80"}),
	)
	a := New(students, assignments, testOptions())

	for _, anonymized := range []bool{false, true} {
		ranking, err := a.Ranking(hw, anonymized)
		require.NoError(t, err)
		graded, err := a.Graded(hw, anonymized)
		require.NoError(t, err)
		ungraded, err := a.Ungraded(hw, anonymized)
		require.NoError(t, err)

		assert.Equal(t, len(ranking), len(graded)+len(ungraded))

		identities := map[string]int{}
		for _, r := range graded {
			identities[r.Name+"|"+r.Section]++
		}
		for _, r := range ungraded {
			identities[r.Name+"|"+r.Section]++
		}
		for _, r := range ranking {
			assert.Equal(t, 1, identities[r.Name+"|"+r.Section], r.Name)
		}
	}
}

func TestAnalyzerEmptyGradedSet(t *testing.T) {
	students := []domain.Student{
		student("A", "A", "1", "S", map[string]string{hw: ""}),
		student("B", "B", "2", "S", map[string]string{hw: "EX"}),
	}
	a := New(students, []domain.Assignment{{ID: hw}}, testOptions())

	stats, err := a.Statistics(hw)
	require.NoError(t, err)
	assert.Equal(t, domain.BasicStatistics{AssignmentID: hw}, stats)

	dist, err := a.Distribution(hw)
	require.NoError(t, err)
	assert.Empty(t, dist)

	box, err := a.BoxPlot(hw)
	require.NoError(t, err)
	assert.Empty(t, box.Series)

	graded, err := a.Graded(hw, false)
	require.NoError(t, err)
	assert.Empty(t, graded)
}

func TestAnalyzerEmptyRoster(t *testing.T) {
	a := New(nil, []domain.Assignment{{ID: hw}}, testOptions())

	ranking, err := a.Ranking(hw, true)
	require.NoError(t, err)
	assert.Empty(t, ranking)
	assert.Empty(t, a.Pseudonyms())
	assert.Equal(t, 0, a.StudentCount())
}

func TestAnalyzerUnknownAssignment(t *testing.T) {
	students, assignments := threeStudents()
	a := New(students, assignments, testOptions())

	_, err := a.Ranking("nope", false)
	assert.ErrorIs(t, err, ErrUnknownAssignment)
	_, err = a.Graded("nope", true)
	assert.ErrorIs(t, err, ErrUnknownAssignment)
	_, err = a.Ungraded("nope", true)
	assert.ErrorIs(t, err, ErrUnknownAssignment)
	_, err = a.Statistics("nope")
	assert.ErrorIs(t, err, ErrUnknownAssignment)
	_, err = a.Distribution("nope")
	assert.ErrorIs(t, err, ErrUnknownAssignment)
	_, err = a.BoxPlot("nope")
	assert.ErrorIs(t, err, ErrUnknownAssignment)
	_, err = a.Histogram("nope")
	assert.ErrorIs(t, err, ErrUnknownAssignment)
}

func TestAnalyzerReturnsCopies(t *testing.T) {
	students, assignments := threeStudents()
	maxPoints := 100.0
	assignments[0].MaxPoints = &maxPoints
	a := New(students, assignments, testOptions())

	// mutating inputs after construction has no effect
	students[0].AddGrade(hw, "0")
	maxPoints = 1

	ranking, _ := a.Ranking(hw, false)
	ranking[0].Name = "mutated"
	again, _ := a.Ranking(hw, false)
	assert.Equal(t, "Ada Lovelace", again[0].Name)
	assert.Equal(t, 100.0, again[0].Grade.Sentinel())

	stats, _ := a.Statistics(hw)
	*stats.Mean = -42
	stats2, _ := a.Statistics(hw)
	assert.Equal(t, 90.0, *stats2.Mean)

	dist, _ := a.Distribution(hw)
	dist[0].Count = 99
	dist2, _ := a.Distribution(hw)
	assert.Equal(t, 1, dist2[0].Count)

	all := a.AllDistributions()
	all[hw][0].Count = 99
	dist3, _ := a.Distribution(hw)
	assert.Equal(t, 1, dist3[0].Count)

	box, _ := a.BoxPlot(hw)
	box.Series[0].Values[0] = -1
	box2, _ := a.BoxPlot(hw)
	assert.Equal(t, 100.0, box2.Series[0].Values[0])

	asgs := a.Assignments()
	*asgs[0].MaxPoints = 5
	assert.Equal(t, 100.0, *a.Assignments()[0].MaxPoints)
}

func TestAnalyzerCharts(t *testing.T) {
	students := []domain.Student{
		student("A", "A", "1", "B", map[string]string{hw: "50"}),
		student("B", "B", "2", "A", map[string]string{hw: "100"}),
		student("C", "C", "3", "A", map[string]string{hw: "80"}),
		student("D", "D", "4", "A", map[string]string{hw: "80"}),
		student("E", "E", "5", "C", map[string]string{hw: ""}),
	}
	a := New(students, []domain.Assignment{{ID: hw, Title: "HW1"}}, testOptions())

	box, err := a.BoxPlot(hw)
	require.NoError(t, err)
	assert.Equal(t, "HW1", box.Title)
	require.Len(t, box.Series, 2, "section without graded entries is omitted")
	assert.Equal(t, "A", box.Series[0].Section)
	assert.Equal(t, []float64{80, 80, 100}, box.Series[0].Values)
	assert.Equal(t, 80.0, box.Series[0].Min)
	assert.Equal(t, 80.0, box.Series[0].Median)
	assert.Equal(t, 100.0, box.Series[0].Max)
	assert.Equal(t, 90.0, box.Series[0].Q3)
	assert.Equal(t, "B", box.Series[1].Section)

	hist, err := a.Histogram(hw)
	require.NoError(t, err)
	require.Len(t, hist.Series, 2)
	assert.Equal(t, domain.GradeDistribution{{Grade: 80, Count: 2}, {Grade: 100, Count: 1}}, hist.Series[0].Buckets)
	assert.Equal(t, domain.GradeDistribution{{Grade: 50, Count: 1}}, hist.Series[1].Buckets)
}

func TestAnalyzerOverview(t *testing.T) {
	students, assignments := threeStudents()
	maxPoints := 100.0
	assignments[0].MaxPoints = &maxPoints
	assignments = append(assignments, domain.Assignment{ID: "Quiz 7", Title: "Quiz"})
	a := New(students, assignments, testOptions())

	overview := a.Overview()
	require.Len(t, overview, 2)

	assert.Equal(t, hw, overview[0].ID)
	assert.Equal(t, 2, overview[0].GradedCount)
	assert.Equal(t, 1, overview[0].UngradedCount)
	require.NotNil(t, overview[0].Mean)
	assert.Equal(t, 90.0, *overview[0].Mean)
	assert.Equal(t, 100.0, *overview[0].MaxPoints)

	assert.Equal(t, 0, overview[1].GradedCount)
	assert.Equal(t, 3, overview[1].UngradedCount)
	assert.Nil(t, overview[1].Mean)

	assert.Len(t, a.AllStatistics(), 2)
	assert.Len(t, a.AllDistributions(), 2)
}
