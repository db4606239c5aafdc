package analytics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeActivityDefensiveCoercion(t *testing.T) {
	emissions := 1250.5
	quantity := 320.0
	scope := 2

	rec := NormalizeActivity(RawActivity{
		ID:           "act-1",
		ActivityType: "electricity",
		Category:     "  Energy ",
		EmissionsKg:  &emissions,
		ScopeNumber:  &scope,
		Quantity:     &quantity,
		Unit:         "kWh",
		Date:         "2024-03-15",
	})

	require.Equal(t, "act-1", rec.ID)
	require.Equal(t, "electricity", rec.ActivityType)
	require.Equal(t, "Energy", rec.Category)
	require.Equal(t, 1250.5, rec.EmissionsKg)
	require.Equal(t, Scope2, rec.Scope)
	require.False(t, rec.ScopeInferred)
	require.Equal(t, 320.0, rec.Quantity)
	require.True(t, rec.HasQuantity)
	require.True(t, rec.DateValid)
	require.Equal(t, "2024-03-15", rec.Date.Format("2006-01-02"))
}

func TestNormalizeActivityMissingFields(t *testing.T) {
	rec := NormalizeActivity(RawActivity{
		ID:           "act-2",
		ActivityName: "Fleet diesel",
		Date:         "not a date",
	})

	require.Equal(t, "Fleet diesel", rec.ActivityType)
	require.Zero(t, rec.EmissionsKg)
	require.Equal(t, Scope3, rec.Scope)
	require.True(t, rec.ScopeInferred)
	require.False(t, rec.HasQuantity)
	require.False(t, rec.DateValid)
}

func TestNormalizeActivityNegativeEmissions(t *testing.T) {
	negative := -42.0
	rec := NormalizeActivity(RawActivity{ID: "act-3", EmissionsKg: &negative})
	require.Zero(t, rec.EmissionsKg)
}

func TestNormalizeActivitiesStats(t *testing.T) {
	one := 1
	emissions := 10.0
	raws := []RawActivity{
		{ID: "a", EmissionsKg: &emissions, ScopeNumber: &one, Date: "2024-01-01"},
		{ID: "b", EmissionsKg: &emissions, Date: "2024-01-02"},
		{ID: "c", EmissionsKg: &emissions, ScopeLabel: "Scope 2", Date: "bogus"},
	}

	records, stats := NormalizeActivities(raws)
	require.Len(t, records, 3)
	require.Equal(t, 1, stats.InferredScopes)
	require.Equal(t, 1, stats.InvalidDates)
}

func TestClassifyScope(t *testing.T) {
	two := 2
	seven := 7

	cases := []struct {
		name     string
		explicit *int
		label    string
		scope    ScopeNumber
		inferred bool
	}{
		{name: "explicit wins", explicit: &two, label: "scope 1", scope: Scope2},
		{name: "out of range falls to label", explicit: &seven, label: "Scope 1 stationary", scope: Scope1},
		{name: "spaced label", label: "SCOPE 2 purchased electricity", scope: Scope2},
		{name: "joined label", label: "scope3-upstream", scope: Scope3},
		{name: "unknown defaults to scope 3", label: "business travel", scope: Scope3, inferred: true},
		{name: "empty defaults to scope 3", scope: Scope3, inferred: true},
	}

	for _, tc := range cases {
		scope, inferred := ClassifyScope(tc.explicit, tc.label)
		require.Equal(t, tc.scope, scope, tc.name)
		require.Equal(t, tc.inferred, inferred, tc.name)
	}
}

func TestParseActivityDateLayouts(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2024-06-01T10:30:00Z", true},
		{"2024-06-01T10:30:00", true},
		{"2024-06-01", true},
		{"2024/06/01", true},
		{"06/01/2024", false},
		{"", false},
	}

	for _, tc := range cases {
		_, ok := parseActivityDate(tc.in)
		if ok != tc.ok {
			t.Fatalf("%q: expected ok=%v got %v", tc.in, tc.ok, ok)
		}
	}
}
