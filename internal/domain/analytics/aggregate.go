package analytics

import "sort"

// uncategorizedName labels records whose source omitted a grouping value.
const uncategorizedName = "Uncategorized"

// GrandTotalKg sums emissions across all records, dated or not.
func GrandTotalKg(records []ActivityRecord) float64 {
	var total float64
	for _, rec := range records {
		total += rec.EmissionsKg
	}
	return total
}

// AverageEmissionsKg is total/count, defined as 0 for an empty set.
func AverageEmissionsKg(records []ActivityRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	return GrandTotalKg(records) / float64(len(records))
}

// BuildCategoryAggregates groups records by category, sorted descending by
// emissions with a stable encounter-order tie break, truncated to topN when
// topN is positive.
func BuildCategoryAggregates(records []ActivityRecord, topN int) []CategoryAggregate {
	groups := groupTotals(records, func(rec ActivityRecord) string { return rec.Category })
	out := make([]CategoryAggregate, 0, len(groups))
	for _, g := range groups {
		out = append(out, CategoryAggregate(g))
	}
	if topN > 0 && topN < len(out) {
		out = out[:topN]
	}
	return out
}

// BuildEmitterAggregates groups records by activity type with the same
// ordering and truncation rules as categories.
func BuildEmitterAggregates(records []ActivityRecord, topN int) []EmitterAggregate {
	groups := groupTotals(records, func(rec ActivityRecord) string { return rec.ActivityType })
	out := make([]EmitterAggregate, 0, len(groups))
	for _, g := range groups {
		out = append(out, EmitterAggregate(g))
	}
	if topN > 0 && topN < len(out) {
		out = out[:topN]
	}
	return out
}

type groupAggregate struct {
	Name          string  `json:"name"`
	EmissionsKg   float64 `json:"emissionsKg"`
	ActivityCount int     `json:"activityCount"`
	Percentage    float64 `json:"percentage"`
}

func groupTotals(records []ActivityRecord, keyOf func(ActivityRecord) string) []groupAggregate {
	totals := make(map[string]*groupAggregate)
	order := make([]string, 0)
	var grandTotal float64

	for _, rec := range records {
		name := keyOf(rec)
		if name == "" {
			name = uncategorizedName
		}
		agg, ok := totals[name]
		if !ok {
			agg = &groupAggregate{Name: name}
			totals[name] = agg
			order = append(order, name)
		}
		agg.EmissionsKg += rec.EmissionsKg
		agg.ActivityCount++
		grandTotal += rec.EmissionsKg
	}

	out := make([]groupAggregate, 0, len(order))
	for _, name := range order {
		agg := totals[name]
		agg.Percentage = share(agg.EmissionsKg, grandTotal)
		out = append(out, *agg)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EmissionsKg > out[j].EmissionsKg
	})
	return out
}
