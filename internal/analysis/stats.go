package analysis

import (
	"math"
	"slices"

	"gradecli/pkg/contracts/domain"
)

// Quartile thresholds
const (
	PercentileQ1     = 0.25
	PercentileMedian = 0.5
	PercentileQ3     = 0.75
)

// Percentile returns the p-th percentile of sorted using linear interpolation
// between closest ranks. sorted must be ascending and non-empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	idx := p * float64(n-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower == upper || upper >= n {
		return sorted[lower]
	}
	frac := idx - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// Mean returns the arithmetic mean of values, 0 for an empty slice
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// SampleStdDev returns the n-1 standard deviation and false when fewer than
// two values are given.
func SampleStdDev(values []float64) (float64, bool) {
	n := len(values)
	if n < 2 {
		return 0, false
	}
	mean := Mean(values)
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n-1)), true
}

// ComputeStatistics summarizes values. Every aggregate is nil when values is
// empty; StdDev is also nil for a single value.
func ComputeStatistics(assignmentID string, values []float64) domain.BasicStatistics {
	stats := domain.BasicStatistics{AssignmentID: assignmentID, Count: len(values)}
	if len(values) == 0 {
		return stats
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	stats.Mean = ptr(Mean(sorted))
	stats.Median = ptr(Percentile(sorted, PercentileMedian))
	stats.Min = ptr(sorted[0])
	stats.Max = ptr(sorted[len(sorted)-1])
	stats.Q25 = ptr(Percentile(sorted, PercentileQ1))
	stats.Q50 = ptr(Percentile(sorted, PercentileMedian))
	stats.Q75 = ptr(Percentile(sorted, PercentileQ3))
	if sd, ok := SampleStdDev(sorted); ok {
		stats.StdDev = ptr(sd)
	}
	return stats
}

// ComputeDistribution counts each distinct value, ordered by ascending value
func ComputeDistribution(values []float64) domain.GradeDistribution {
	counts := make(map[float64]int, len(values))
	for _, v := range values {
		counts[v]++
	}

	dist := make(domain.GradeDistribution, 0, len(counts))
	for v, c := range counts {
		dist = append(dist, domain.DistributionBucket{Grade: v, Count: c})
	}
	slices.SortFunc(dist, func(a, b domain.DistributionBucket) int {
		switch {
		case a.Grade < b.Grade:
			return -1
		case a.Grade > b.Grade:
			return 1
		}
		return 0
	})
	return dist
}

func ptr(v float64) *float64 {
	return &v
}
