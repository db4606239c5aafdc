package analytics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildRadarSeriesNoData(t *testing.T) {
	got := BuildRadarSeries(nil, nil)
	require.Equal(t, RadarNoData, got.State)
	require.Empty(t, got.Points)
}

func TestBuildRadarSeriesSingleCategoryInsufficient(t *testing.T) {
	records := []ActivityRecord{
		{Category: "Energy", EmissionsKg: 100},
		{Category: "Energy", EmissionsKg: 200},
	}

	got := BuildRadarSeries(records, nil)
	require.Equal(t, RadarInsufficientData, got.State)
	require.Len(t, got.Points, 1)
}

func TestBuildRadarSeriesNormalization(t *testing.T) {
	records := []ActivityRecord{
		{Category: "Energy", EmissionsKg: 400},
		{Category: "Travel", EmissionsKg: 100},
	}

	got := BuildRadarSeries(records, nil)
	require.Equal(t, RadarOK, got.State)
	require.Len(t, got.Points, 2)

	energy := got.Points[0]
	travel := got.Points[1]
	require.Equal(t, "Energy", energy.Category)
	require.Equal(t, 400.0, energy.Raw["emissions"])
	require.InDelta(t, 100.0, energy.Normalized["emissions"], 1e-9)
	require.InDelta(t, 25.0, travel.Normalized["emissions"], 1e-9)

	// count metric: one activity each, both at the shared max
	require.InDelta(t, 100.0, energy.Normalized["count"], 1e-9)
	require.InDelta(t, 100.0, travel.Normalized["count"], 1e-9)
}

func TestBuildRadarSeriesAllZeroColumn(t *testing.T) {
	records := []ActivityRecord{
		{Category: "A", EmissionsKg: 0},
		{Category: "B", EmissionsKg: 0},
	}

	got := BuildRadarSeries(records, []RadarMetric{
		{Name: "emissions", Select: func(c CategoryAggregate) float64 { return c.EmissionsKg }},
	})
	require.Equal(t, RadarOK, got.State)
	for _, point := range got.Points {
		require.Zero(t, point.Normalized["emissions"])
	}
}

func TestBuildRadarSeriesCategoryCap(t *testing.T) {
	records := make([]ActivityRecord, 0, 12)
	for i := 0; i < 12; i++ {
		records = append(records, ActivityRecord{
			Category:    string(rune('A' + i)),
			EmissionsKg: float64(100 - i),
		})
	}

	got := BuildRadarSeries(records, nil)
	require.Equal(t, RadarOK, got.State)
	require.Len(t, got.Points, maxRadarCategories)
	require.Equal(t, "A", got.Points[0].Category)
}
