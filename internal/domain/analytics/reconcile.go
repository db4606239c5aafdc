package analytics

// SourceSet carries the independently fetched summaries for one tenant and
// window. Any field may be nil or empty when its upstream call failed; the
// reconciler treats that the same as an unavailable source.
type SourceSet struct {
	Breakdown  *ScopeBreakdown
	Timeline   []PeriodBucket
	Activities []ActivityRecord
	Stats      *StatsSummary
}

type breakdownProvider struct {
	tier    BreakdownSource
	resolve func(SourceSet) (ScopeBreakdown, bool)
}

// breakdownProviders is the explicit precedence order: the authoritative
// endpoint, then totals re-derived from the timeline series, then totals
// re-derived from raw activities. Each tier only fires when the previous one
// is unavailable or degenerate (all-zero).
var breakdownProviders = []breakdownProvider{
	{SourceAuthoritative, fromAuthoritative},
	{SourceTimeline, fromTimeline},
	{SourceActivities, fromActivities},
}

// ReconcileScopeBreakdown selects a single consistent breakdown from up to
// four independent sources. The dashboard must never show a spuriously empty
// breakdown just because one summary endpoint is degenerate while richer raw
// data exists.
func ReconcileScopeBreakdown(set SourceSet) ScopeBreakdown {
	for _, provider := range breakdownProviders {
		if breakdown, ok := provider.resolve(set); ok {
			breakdown.Source = provider.tier
			return breakdown
		}
	}
	empty := NewScopeBreakdown(0, 0, 0)
	empty.Source = SourceNone
	return empty
}

func fromAuthoritative(set SourceSet) (ScopeBreakdown, bool) {
	b := set.Breakdown
	if b == nil {
		return ScopeBreakdown{}, false
	}
	if b.Scope1.TotalKg <= 0 && b.Scope2.TotalKg <= 0 && b.Scope3.TotalKg <= 0 {
		return ScopeBreakdown{}, false
	}
	return NewScopeBreakdown(b.Scope1.TotalKg, b.Scope2.TotalKg, b.Scope3.TotalKg), true
}

func fromTimeline(set SourceSet) (ScopeBreakdown, bool) {
	var s1, s2, s3 float64
	for _, bucket := range set.Timeline {
		s1 += bucket.Scope1Tonnes * KgPerTonne
		s2 += bucket.Scope2Tonnes * KgPerTonne
		s3 += bucket.Scope3Tonnes * KgPerTonne
	}
	if s1+s2+s3 <= 0 {
		return ScopeBreakdown{}, false
	}
	return NewScopeBreakdown(s1, s2, s3), true
}

func fromActivities(set SourceSet) (ScopeBreakdown, bool) {
	if len(set.Activities) == 0 {
		return ScopeBreakdown{}, false
	}
	return BreakdownFromRecords(set.Activities), true
}

// BreakdownFromRecords sums per-scope totals directly from canonical records.
func BreakdownFromRecords(records []ActivityRecord) ScopeBreakdown {
	var s1, s2, s3 float64
	for _, rec := range records {
		switch rec.Scope {
		case Scope1:
			s1 += rec.EmissionsKg
		case Scope2:
			s2 += rec.EmissionsKg
		default:
			s3 += rec.EmissionsKg
		}
	}
	return NewScopeBreakdown(s1, s2, s3)
}

// NewScopeBreakdown assembles a breakdown with percentages guarded against a
// zero grand total: shares are 0, never NaN.
func NewScopeBreakdown(scope1Kg, scope2Kg, scope3Kg float64) ScopeBreakdown {
	total := scope1Kg + scope2Kg + scope3Kg
	return ScopeBreakdown{
		Scope1:  ScopeTotal{TotalKg: scope1Kg, Percentage: share(scope1Kg, total)},
		Scope2:  ScopeTotal{TotalKg: scope2Kg, Percentage: share(scope2Kg, total)},
		Scope3:  ScopeTotal{TotalKg: scope3Kg, Percentage: share(scope3Kg, total)},
		TotalKg: total,
	}
}

// share is the percentage formula used throughout: value/grandTotal when the
// grand total is positive, else 0.
func share(value, grandTotal float64) float64 {
	if grandTotal <= 0 {
		return 0
	}
	return value / grandTotal
}
