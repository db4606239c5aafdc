package carbonapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jlin-dev/carbonlens/internal/domain/analytics"
)

// Client fetches activities and pre-computed summaries from the carbon
// platform's internal API. Every endpoint is independently failable; callers
// decide how to degrade.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient builds an API client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Activities retrieves raw activity entries for a tenant.
func (c *Client) Activities(ctx context.Context, tenant string, f analytics.Filters) ([]analytics.RawActivity, error) {
	query := url.Values{}
	if !f.Window.From.IsZero() {
		query.Set("from", f.Window.From.Format("2006-01-02"))
	}
	if !f.Window.To.IsZero() {
		query.Set("to", f.Window.To.Format("2006-01-02"))
	}
	if f.Category != "" {
		query.Set("category", f.Category)
	}
	if f.ActivityType != "" {
		query.Set("activity_type", f.ActivityType)
	}

	var wire struct {
		Activities []analytics.RawActivity `json:"activities"`
	}
	if err := c.get(ctx, c.tenantPath(tenant, "activities"), query, &wire); err != nil {
		return nil, err
	}
	return wire.Activities, nil
}

// Timeline retrieves the per-scope stacked series.
func (c *Client) Timeline(ctx context.Context, tenant string, g analytics.Granularity, w analytics.Window) ([]analytics.PeriodBucket, error) {
	query := url.Values{}
	if g != "" {
		query.Set("granularity", string(g))
	}
	if !w.From.IsZero() {
		query.Set("from", w.From.Format("2006-01-02"))
	}
	if !w.To.IsZero() {
		query.Set("to", w.To.Format("2006-01-02"))
	}

	var wire struct {
		Series []timelinePoint `json:"series"`
	}
	if err := c.get(ctx, c.tenantPath(tenant, "emissions/timeline"), query, &wire); err != nil {
		return nil, err
	}

	buckets := make([]analytics.PeriodBucket, 0, len(wire.Series))
	for _, point := range wire.Series {
		buckets = append(buckets, point.toBucket())
	}
	return buckets, nil
}

// ScopeBreakdownSummary retrieves the authoritative scope breakdown. A 404
// means the summary has not been materialized yet and maps to nil, nil.
func (c *Client) ScopeBreakdownSummary(ctx context.Context, tenant string, w analytics.Window) (*analytics.ScopeBreakdown, error) {
	query := url.Values{}
	if !w.From.IsZero() {
		query.Set("from", w.From.Format("2006-01-02"))
	}
	if !w.To.IsZero() {
		query.Set("to", w.To.Format("2006-01-02"))
	}

	var wire scopeBreakdownWire
	err := c.get(ctx, c.tenantPath(tenant, "emissions/scopes"), query, &wire)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	breakdown := wire.toBreakdown()
	return &breakdown, nil
}

// TopEmitters retrieves the pre-ranked emitter list.
func (c *Client) TopEmitters(ctx context.Context, tenant string, limit int) ([]analytics.EmitterAggregate, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var wire struct {
		Emitters []emitterWire `json:"emitters"`
	}
	if err := c.get(ctx, c.tenantPath(tenant, "emissions/top-emitters"), query, &wire); err != nil {
		return nil, err
	}
	out := make([]analytics.EmitterAggregate, 0, len(wire.Emitters))
	for _, e := range wire.Emitters {
		out = append(out, analytics.EmitterAggregate{
			Name:          firstNonEmpty(e.Name, e.ActivityType),
			EmissionsKg:   deref(e.EmissionsKg),
			ActivityCount: e.ActivityCount,
			Percentage:    deref(e.Percentage),
		})
	}
	return out, nil
}

// StatsSummary retrieves the tenant-wide headline numbers.
func (c *Client) StatsSummary(ctx context.Context, tenant string) (*analytics.StatsSummary, error) {
	var wire struct {
		TotalEmissionsKg *float64 `json:"total_emissions_kg"`
		TotalActivities  int      `json:"total_activities"`
		PeakPeriod       string   `json:"peak_period"`
	}
	if err := c.get(ctx, c.tenantPath(tenant, "stats"), nil, &wire); err != nil {
		return nil, err
	}
	return &analytics.StatsSummary{
		TotalEmissionsKg: deref(wire.TotalEmissionsKg),
		TotalActivities:  wire.TotalActivities,
		PeakPeriod:       wire.PeakPeriod,
	}, nil
}

func (c *Client) tenantPath(tenant, suffix string) string {
	return fmt.Sprintf("%s/v1/tenants/%s/%s", c.baseURL, url.PathEscape(tenant), suffix)
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	if len(query) > 0 {
		endpoint = endpoint + "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build carbon api request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("carbon api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &statusError{status: resp.StatusCode, body: string(payload)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read carbon api response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode carbon api response: %w", err)
	}
	return nil
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("carbon api error: status=%d body=%s", e.status, e.body)
}

func isNotFound(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.status == http.StatusNotFound
}

// timelinePoint tolerates the summary API's partially populated series rows.
type timelinePoint struct {
	Period  string   `json:"period"`
	Label   string   `json:"label"`
	Scope1T *float64 `json:"scope1_tonnes"`
	Scope2T *float64 `json:"scope2_tonnes"`
	Scope3T *float64 `json:"scope3_tonnes"`
	TotalT  *float64 `json:"total_tonnes"`
	Count   int      `json:"count"`
}

func (p timelinePoint) toBucket() analytics.PeriodBucket {
	bucket := analytics.PeriodBucket{
		SortKey:      p.Period,
		Label:        firstNonEmpty(p.Label, p.Period),
		Scope1Tonnes: deref(p.Scope1T),
		Scope2Tonnes: deref(p.Scope2T),
		Scope3Tonnes: deref(p.Scope3T),
		Count:        p.Count,
	}
	if p.TotalT != nil {
		bucket.TotalTonnes = *p.TotalT
	} else {
		bucket.TotalTonnes = bucket.Scope1Tonnes + bucket.Scope2Tonnes + bucket.Scope3Tonnes
	}
	return bucket
}

type scopeBreakdownWire struct {
	Scope1Kg *float64 `json:"scope1_kg"`
	Scope2Kg *float64 `json:"scope2_kg"`
	Scope3Kg *float64 `json:"scope3_kg"`
}

func (w scopeBreakdownWire) toBreakdown() analytics.ScopeBreakdown {
	return analytics.NewScopeBreakdown(deref(w.Scope1Kg), deref(w.Scope2Kg), deref(w.Scope3Kg))
}

type emitterWire struct {
	Name          string   `json:"name"`
	ActivityType  string   `json:"activity_type"`
	EmissionsKg   *float64 `json:"emissions_kg"`
	ActivityCount int      `json:"activity_count"`
	Percentage    *float64 `json:"percentage"`
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
