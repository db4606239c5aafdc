package analytics

import (
	"strings"
	"time"
)

// dateLayouts are tried in order when parsing activity dates.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
}

// NormalizeStats counts the coercions applied while normalizing a batch.
// Inferred scopes and invalid dates are data-quality signals, not errors.
type NormalizeStats struct {
	InferredScopes int
	InvalidDates   int
}

// NormalizeActivity coerces a loose upstream record into canonical form. It
// never fails: a missing emissions value becomes 0 so downstream totals stay
// defined, and an unparsable date marks the record as unbucketable while it
// still counts toward aggregate totals.
func NormalizeActivity(raw RawActivity) ActivityRecord {
	rec := ActivityRecord{
		ID:           raw.ID,
		ActivityType: firstNonEmpty(raw.ActivityType, raw.ActivityName),
		Category:     strings.TrimSpace(raw.Category),
		Unit:         strings.TrimSpace(raw.Unit),
	}

	if raw.EmissionsKg != nil && *raw.EmissionsKg > 0 {
		rec.EmissionsKg = *raw.EmissionsKg
	}

	rec.Scope, rec.ScopeInferred = ClassifyScope(raw.ScopeNumber, raw.ScopeLabel)

	if raw.Quantity != nil {
		rec.Quantity = *raw.Quantity
		rec.HasQuantity = true
	}

	if t, ok := parseActivityDate(raw.Date); ok {
		rec.Date = t
		rec.DateValid = true
	}

	return rec
}

// NormalizeActivities normalizes a batch and reports the coercion counts so
// callers can log data-quality warnings.
func NormalizeActivities(raws []RawActivity) ([]ActivityRecord, NormalizeStats) {
	records := make([]ActivityRecord, 0, len(raws))
	var stats NormalizeStats
	for _, raw := range raws {
		rec := NormalizeActivity(raw)
		if rec.ScopeInferred {
			stats.InferredScopes++
		}
		if !rec.DateValid {
			stats.InvalidDates++
		}
		records = append(records, rec)
	}
	return records, stats
}

// ClassifyScope resolves a scope number with deterministic fallback order: an
// explicit in-range number wins, then a case-insensitive label match, then
// Scope 3. The inferred flag is true only for the final default so consumers
// can tell trusted classification from the value-chain convention guess.
func ClassifyScope(explicit *int, label string) (ScopeNumber, bool) {
	if explicit != nil && *explicit >= 1 && *explicit <= 3 {
		return ScopeNumber(*explicit), false
	}

	lowered := strings.ToLower(label)
	for _, scope := range []ScopeNumber{Scope1, Scope2, Scope3} {
		spaced := "scope " + digit(scope)
		joined := "scope" + digit(scope)
		if strings.Contains(lowered, spaced) || strings.Contains(lowered, joined) {
			return scope, false
		}
	}

	return Scope3, true
}

func digit(s ScopeNumber) string {
	return string(rune('0' + int(s)))
}

func parseActivityDate(value string) (time.Time, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
