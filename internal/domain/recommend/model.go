package recommend

import "time"

// Recommendation is one actionable emissions-reduction suggestion.
type Recommendation struct {
	ID                string  `json:"id"`
	Title             string  `json:"title"`
	Description       string  `json:"description"`
	Impact            string  `json:"impact"`
	Effort            string  `json:"effort"`
	EstimatedSavingKg float64 `json:"estimatedSavingKg"`
	TargetCategory    string  `json:"targetCategory,omitempty"`
}

// Entry is the tenant-scoped cache payload. Put replaces it wholesale; saved
// and implemented markers ride along so they survive until the next
// regeneration.
type Entry struct {
	Recommendations []Recommendation `json:"recommendations"`
	SavedIDs        []string         `json:"savedIds"`
	ImplementedIDs  []string         `json:"implementedIds"`
	WrittenAt       time.Time        `json:"writtenAt"`
}

// Request parameterizes a recommendation fetch.
type Request struct {
	Tenant  string
	Refresh bool
}

// Response is serialized back to API consumers.
type Response struct {
	Recommendations []Recommendation `json:"recommendations"`
	SavedIDs        []string         `json:"savedIds"`
	ImplementedIDs  []string         `json:"implementedIds"`
	GeneratedAt     time.Time        `json:"generatedAt"`
	Source          string           `json:"source"`
}

// Config wires runtime knobs for the recommendation domain.
type Config struct {
	Model           string
	Temperature     float32
	Prompt          string
	CacheTTL        time.Duration
	MaxPromptTokens int
}
