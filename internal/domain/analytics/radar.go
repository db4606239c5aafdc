package analytics

import "math"

const (
	// radarEpsilon floors the normalization denominator so an all-zero
	// metric column yields 0, not NaN.
	radarEpsilon = 1e-9

	// maxRadarCategories caps the comparison to the chart's axis budget.
	maxRadarCategories = 8
)

// RadarMetric selects one raw metric column from a category aggregate.
type RadarMetric struct {
	Name   string
	Select func(CategoryAggregate) float64
}

// DefaultRadarMetrics is the dashboard's standard comparison column set.
func DefaultRadarMetrics() []RadarMetric {
	return []RadarMetric{
		{Name: "emissions", Select: func(c CategoryAggregate) float64 { return c.EmissionsKg }},
		{Name: "count", Select: func(c CategoryAggregate) float64 { return float64(c.ActivityCount) }},
		{Name: "average", Select: func(c CategoryAggregate) float64 {
			if c.ActivityCount == 0 {
				return 0
			}
			return c.EmissionsKg / float64(c.ActivityCount)
		}},
	}
}

// BuildRadarSeries rescales each metric column onto a common 0-100 domain
// across the largest categories. Zero records is "no data"; a single
// category is "insufficient data" - the dashboard renders those states
// differently, so they are signaled distinctly rather than both collapsing
// to an empty series.
func BuildRadarSeries(records []ActivityRecord, metrics []RadarMetric) RadarResult {
	if len(records) == 0 {
		return RadarResult{State: RadarNoData}
	}
	if len(metrics) == 0 {
		metrics = DefaultRadarMetrics()
	}

	categories := BuildCategoryAggregates(records, maxRadarCategories)

	points := make([]RadarPoint, 0, len(categories))
	for _, cat := range categories {
		point := RadarPoint{
			Category:   cat.Name,
			Raw:        make(map[string]float64, len(metrics)),
			Normalized: make(map[string]float64, len(metrics)),
		}
		for _, metric := range metrics {
			point.Raw[metric.Name] = metric.Select(cat)
		}
		points = append(points, point)
	}

	for _, metric := range metrics {
		max := radarEpsilon
		for _, point := range points {
			if v := point.Raw[metric.Name]; v > max {
				max = v
			}
		}
		for i := range points {
			normalized := 100 * points[i].Raw[metric.Name] / max
			if math.IsNaN(normalized) || math.IsInf(normalized, 0) {
				normalized = 0
			}
			points[i].Normalized[metric.Name] = normalized
		}
	}

	state := RadarOK
	if len(points) < 2 {
		state = RadarInsufficientData
	}
	return RadarResult{State: state, Points: points}
}
