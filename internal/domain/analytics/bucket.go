package analytics

import (
	"sort"
	"time"
)

// ResolveWindow substitutes the rolling trailing-twelve-month default when the
// caller supplied no bounds.
func ResolveWindow(w Window, now time.Time) Window {
	if !w.IsZero() {
		return w
	}
	return Window{From: now.AddDate(-1, 0, 0), To: now}
}

// BucketByPeriod groups valid-dated records into sparse period buckets keyed
// by a zero-padded sortable string. Records with invalid dates are skipped
// with a retained count; records outside the window are dropped silently.
// Buckets come back ordered by ascending SortKey, never insertion order.
func BucketByPeriod(records []ActivityRecord, g Granularity, w Window) BucketResult {
	byKey := make(map[string]*PeriodBucket)
	var skipped int

	for _, rec := range records {
		if !rec.DateValid {
			skipped++
			continue
		}
		if !w.IsZero() && !w.Contains(rec.Date) {
			continue
		}

		key, label := periodKey(rec.Date, g)
		bucket, ok := byKey[key]
		if !ok {
			bucket = &PeriodBucket{SortKey: key, Label: label}
			byKey[key] = bucket
		}

		tonnes := rec.EmissionsKg / KgPerTonne
		switch rec.Scope {
		case Scope1:
			bucket.Scope1Tonnes += tonnes
		case Scope2:
			bucket.Scope2Tonnes += tonnes
		default:
			bucket.Scope3Tonnes += tonnes
		}
		bucket.TotalTonnes += tonnes
		bucket.Count++
	}

	buckets := make([]PeriodBucket, 0, len(byKey))
	for _, bucket := range byKey {
		buckets = append(buckets, *bucket)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].SortKey < buckets[j].SortKey
	})

	return BucketResult{Buckets: buckets, SkippedInvalidDates: skipped}
}

// LastN keeps the most recent n buckets of an already sorted sequence.
func LastN(buckets []PeriodBucket, n int) []PeriodBucket {
	if n <= 0 || n >= len(buckets) {
		return buckets
	}
	return buckets[len(buckets)-n:]
}

func periodKey(t time.Time, g Granularity) (string, string) {
	switch g {
	case GranularityDay:
		return t.Format("2006-01-02"), t.Format("Jan 2, 2006")
	case GranularityYear:
		return t.Format("2006"), t.Format("2006")
	default:
		return t.Format("2006-01"), t.Format("Jan 2006")
	}
}
