package analytics

import "strconv"

// FlatRow is one activity flattened for CSV/JSON export. String fields stay
// empty when the underlying value was absent rather than inventing zeros.
type FlatRow struct {
	ID              string  `json:"id"`
	Date            string  `json:"date"`
	ActivityType    string  `json:"activityType"`
	Category        string  `json:"category"`
	Scope           int     `json:"scope"`
	ScopeInferred   bool    `json:"scopeInferred"`
	EmissionsKg     float64 `json:"emissionsKg"`
	EmissionsTonnes float64 `json:"emissionsTonnes"`
	Quantity        string  `json:"quantity,omitempty"`
	Unit            string  `json:"unit,omitempty"`
}

// ExportFlatRows flattens canonical records into tabular export rows.
func ExportFlatRows(records []ActivityRecord) []FlatRow {
	rows := make([]FlatRow, 0, len(records))
	for _, rec := range records {
		row := FlatRow{
			ID:              rec.ID,
			ActivityType:    rec.ActivityType,
			Category:        rec.Category,
			Scope:           int(rec.Scope),
			ScopeInferred:   rec.ScopeInferred,
			EmissionsKg:     rec.EmissionsKg,
			EmissionsTonnes: rec.EmissionsKg / KgPerTonne,
			Unit:            rec.Unit,
		}
		if rec.DateValid {
			row.Date = rec.Date.Format("2006-01-02")
		}
		if rec.HasQuantity {
			row.Quantity = strconv.FormatFloat(rec.Quantity, 'f', -1, 64)
		}
		rows = append(rows, row)
	}
	return rows
}

// CSVHeader matches the column order of FlatRow.CSVRecord.
func CSVHeader() []string {
	return []string{
		"id", "date", "activity_type", "category", "scope",
		"scope_inferred", "emissions_kg", "emissions_tonnes", "quantity", "unit",
	}
}

// CSVRecord serializes the row for encoding/csv.
func (r FlatRow) CSVRecord() []string {
	return []string{
		r.ID,
		r.Date,
		r.ActivityType,
		r.Category,
		strconv.Itoa(r.Scope),
		strconv.FormatBool(r.ScopeInferred),
		strconv.FormatFloat(r.EmissionsKg, 'f', -1, 64),
		strconv.FormatFloat(r.EmissionsTonnes, 'f', -1, 64),
		r.Quantity,
		r.Unit,
	}
}
