package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gradecli/pkg/contracts/domain"
)

func TestPercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}

	tests := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{0.25, 1.75},
		{0.5, 2.5},
		{0.75, 3.25},
		{1, 4},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Percentile(sorted, tt.p), 1e-9, "p=%v", tt.p)
	}

	assert.Equal(t, 7.0, Percentile([]float64{7}, 0.75))
}

func TestComputeStatistics(t *testing.T) {
	t.Run("basic", func(t *testing.T) {
		stats := ComputeStatistics("hw", []float64{4, 1, 3, 2})

		assert.Equal(t, "hw", stats.AssignmentID)
		assert.Equal(t, 4, stats.Count)
		require.NotNil(t, stats.Mean)
		assert.InDelta(t, 2.5, *stats.Mean, 1e-9)
		assert.InDelta(t, 2.5, *stats.Median, 1e-9)
		assert.InDelta(t, 1.2909944487, *stats.StdDev, 1e-9)
		assert.Equal(t, 1.0, *stats.Min)
		assert.Equal(t, 4.0, *stats.Max)
		assert.InDelta(t, 1.75, *stats.Q25, 1e-9)
		assert.InDelta(t, 2.5, *stats.Q50, 1e-9)
		assert.InDelta(t, 3.25, *stats.Q75, 1e-9)
	})

	t.Run("single value has no standard deviation", func(t *testing.T) {
		stats := ComputeStatistics("hw", []float64{42})
		assert.Equal(t, 1, stats.Count)
		assert.Nil(t, stats.StdDev)
		require.NotNil(t, stats.Mean)
		assert.Equal(t, 42.0, *stats.Mean)
		assert.Equal(t, 42.0, *stats.Q75)
	})

	t.Run("empty set has undefined aggregates", func(t *testing.T) {
		stats := ComputeStatistics("hw", nil)
		assert.Equal(t, domain.BasicStatistics{AssignmentID: "hw"}, stats)
	})

	t.Run("input is not reordered", func(t *testing.T) {
		values := []float64{3, 1, 2}
		ComputeStatistics("hw", values)
		assert.Equal(t, []float64{3, 1, 2}, values)
	})
}

func TestComputeDistribution(t *testing.T) {
	dist := ComputeDistribution([]float64{80, 100, 80, 95.5})

	assert.Equal(t, domain.GradeDistribution{
		{Grade: 80, Count: 2},
		{Grade: 95.5, Count: 1},
		{Grade: 100, Count: 1},
	}, dist)
	assert.Equal(t, 4, dist.Total())
	assert.Empty(t, ComputeDistribution(nil))
}
