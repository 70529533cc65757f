package analysis

import (
	"slices"

	"gradecli/pkg/contracts/domain"
)

// groupBySection collects the graded values of each section in roster order.
// Sections are returned sorted; sections without graded entries are omitted.
func groupBySection(rows []domain.RankingRow) ([]string, map[string][]float64) {
	groups := make(map[string][]float64)
	for _, row := range rows {
		v, ok := row.Grade.Value()
		if !ok {
			continue
		}
		groups[row.Section] = append(groups[row.Section], v)
	}

	sections := make([]string, 0, len(groups))
	for s := range groups {
		sections = append(sections, s)
	}
	slices.Sort(sections)
	return sections, groups
}

func buildBoxPlot(a domain.Assignment, rows []domain.RankingRow) domain.BoxPlot {
	sections, groups := groupBySection(rows)
	plot := domain.BoxPlot{
		AssignmentID: a.ID,
		Title:        a.Title,
		Series:       make([]domain.BoxPlotSeries, 0, len(sections)),
	}

	for _, section := range sections {
		values := slices.Clone(groups[section])
		slices.Sort(values)
		plot.Series = append(plot.Series, domain.BoxPlotSeries{
			Section: section,
			Values:  values,
			Min:     values[0],
			Q1:      Percentile(values, PercentileQ1),
			Median:  Percentile(values, PercentileMedian),
			Q3:      Percentile(values, PercentileQ3),
			Max:     values[len(values)-1],
		})
	}
	return plot
}

func buildHistogram(a domain.Assignment, rows []domain.RankingRow) domain.Histogram {
	sections, groups := groupBySection(rows)
	hist := domain.Histogram{
		AssignmentID: a.ID,
		Title:        a.Title,
		Series:       make([]domain.HistogramSeries, 0, len(sections)),
	}

	for _, section := range sections {
		hist.Series = append(hist.Series, domain.HistogramSeries{
			Section: section,
			Buckets: ComputeDistribution(groups[section]),
		})
	}
	return hist
}

func cloneBoxPlot(p domain.BoxPlot) domain.BoxPlot {
	p.Series = slices.Clone(p.Series)
	for i := range p.Series {
		p.Series[i].Values = slices.Clone(p.Series[i].Values)
	}
	return p
}

func cloneHistogram(h domain.Histogram) domain.Histogram {
	h.Series = slices.Clone(h.Series)
	for i := range h.Series {
		h.Series[i].Buckets = slices.Clone(h.Series[i].Buckets)
	}
	return h
}
