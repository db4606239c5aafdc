package analytics

import "time"

// KgPerTonne converts stored kilogram amounts into displayed tonnes CO2e.
const KgPerTonne = 1000.0

// ScopeNumber is a GHG Protocol scope classification.
type ScopeNumber int

const (
	Scope1 ScopeNumber = 1
	Scope2 ScopeNumber = 2
	Scope3 ScopeNumber = 3
)

// RawActivity is the loosely typed wire shape delivered by upstream sources.
// Every field may be absent; normalization decides what survives.
type RawActivity struct {
	ID           string   `json:"id"`
	ActivityType string   `json:"activity_type"`
	ActivityName string   `json:"activity_name"`
	Category     string   `json:"category"`
	EmissionsKg  *float64 `json:"co2e_kg"`
	ScopeNumber  *int     `json:"scope"`
	ScopeLabel   string   `json:"scope_label"`
	Quantity     *float64 `json:"quantity"`
	Unit         string   `json:"unit"`
	Date         string   `json:"activity_date"`
}

// ActivityRecord is the canonical form of one emission-causing event.
type ActivityRecord struct {
	ID            string
	ActivityType  string
	Category      string
	EmissionsKg   float64
	Scope         ScopeNumber
	ScopeInferred bool
	Quantity      float64
	HasQuantity   bool
	Unit          string
	Date          time.Time
	DateValid     bool
}

// Granularity selects the period bucketing resolution.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityMonth Granularity = "month"
	GranularityYear  Granularity = "year"
)

// Window bounds a query to an inclusive date range. A zero field leaves that
// side open; a fully zero Window means the caller wants the default range.
type Window struct {
	From time.Time
	To   time.Time
}

// IsZero reports whether no bounds were supplied.
func (w Window) IsZero() bool {
	return w.From.IsZero() && w.To.IsZero()
}

// Contains reports whether t falls inside the window. Bounds are compared at
// day precision: a record timestamped anywhere on the boundary date stays
// inside the inclusive range even when the bound was parsed as midnight.
func (w Window) Contains(t time.Time) bool {
	day := dayOf(t)
	if !w.From.IsZero() && day.Before(dayOf(w.From)) {
		return false
	}
	if !w.To.IsZero() && day.After(dayOf(w.To)) {
		return false
	}
	return true
}

func dayOf(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// PeriodBucket accumulates emissions for one day/month/year slot. Amounts are
// tonnes CO2e; SortKey orders buckets lexicographically while Label is what
// the dashboard renders.
type PeriodBucket struct {
	SortKey      string  `json:"sortKey"`
	Label        string  `json:"label"`
	Scope1Tonnes float64 `json:"scope1"`
	Scope2Tonnes float64 `json:"scope2"`
	Scope3Tonnes float64 `json:"scope3"`
	TotalTonnes  float64 `json:"total"`
	Count        int     `json:"count"`
}

// BucketResult carries the ordered buckets plus diagnostics about records
// that could not be placed.
type BucketResult struct {
	Buckets             []PeriodBucket
	SkippedInvalidDates int
}

// BreakdownSource identifies which reconciliation tier produced a breakdown.
type BreakdownSource string

const (
	SourceAuthoritative BreakdownSource = "authoritative"
	SourceTimeline      BreakdownSource = "timeline"
	SourceActivities    BreakdownSource = "activities"
	SourceNone          BreakdownSource = "none"
)

// ScopeTotal is one scope's slice of a breakdown.
type ScopeTotal struct {
	TotalKg    float64 `json:"totalKg"`
	Percentage float64 `json:"percentage"`
}

// ScopeBreakdown is the top-level scope 1/2/3 summary for a tenant window.
type ScopeBreakdown struct {
	Scope1  ScopeTotal      `json:"scope1"`
	Scope2  ScopeTotal      `json:"scope2"`
	Scope3  ScopeTotal      `json:"scope3"`
	TotalKg float64         `json:"totalKg"`
	Source  BreakdownSource `json:"source"`
}

// CategoryAggregate groups activity emissions by category.
type CategoryAggregate struct {
	Name          string  `json:"name"`
	EmissionsKg   float64 `json:"emissionsKg"`
	ActivityCount int     `json:"activityCount"`
	Percentage    float64 `json:"percentage"`
}

// EmitterAggregate groups activity emissions by activity type.
type EmitterAggregate struct {
	Name          string  `json:"name"`
	EmissionsKg   float64 `json:"emissionsKg"`
	ActivityCount int     `json:"activityCount"`
	Percentage    float64 `json:"percentage"`
}

// StatsSummary mirrors the upstream stats endpoint.
type StatsSummary struct {
	TotalEmissionsKg float64 `json:"totalEmissionsKg"`
	TotalActivities  int     `json:"totalActivities"`
	PeakPeriod       string  `json:"peakPeriod"`
}

// RadarState distinguishes a usable comparison from the two empty states the
// dashboard must tell apart.
type RadarState string

const (
	RadarOK               RadarState = "ok"
	RadarNoData           RadarState = "no_data"
	RadarInsufficientData RadarState = "insufficient_data"
)

// RadarPoint is one category on the multi-axis comparison chart. Raw holds
// the measured values per metric column, Normalized the 0-100 rescaling.
type RadarPoint struct {
	Category   string             `json:"category"`
	Raw        map[string]float64 `json:"raw"`
	Normalized map[string]float64 `json:"normalized"`
}

// RadarResult is the radar series plus its data-availability state.
type RadarResult struct {
	State  RadarState   `json:"state"`
	Points []RadarPoint `json:"points"`
}

// Filters narrows the record set fed into an aggregation.
type Filters struct {
	Window       Window
	Category     string
	ActivityType string
	Scope        ScopeNumber
}

// FilterRecords returns the records matching every set filter field. Records
// without a valid date pass any window filter untouched so they keep counting
// toward unbucketed totals.
func FilterRecords(records []ActivityRecord, f Filters) []ActivityRecord {
	out := make([]ActivityRecord, 0, len(records))
	for _, rec := range records {
		if f.Category != "" && rec.Category != f.Category {
			continue
		}
		if f.ActivityType != "" && rec.ActivityType != f.ActivityType {
			continue
		}
		if f.Scope != 0 && rec.Scope != f.Scope {
			continue
		}
		if !f.Window.IsZero() && rec.DateValid && !f.Window.Contains(rec.Date) {
			continue
		}
		out = append(out, rec)
	}
	return out
}
