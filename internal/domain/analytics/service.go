package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/jlin-dev/carbonlens/pkg/errors"
)

// ActivityReader loads raw activity entries for a tenant.
type ActivityReader interface {
	Activities(ctx context.Context, tenant string, f Filters) ([]RawActivity, error)
}

// SummaryAPI exposes the upstream platform's pre-computed summary endpoints.
// Each call is independently failable.
type SummaryAPI interface {
	Timeline(ctx context.Context, tenant string, g Granularity, w Window) ([]PeriodBucket, error)
	ScopeBreakdownSummary(ctx context.Context, tenant string, w Window) (*ScopeBreakdown, error)
	TopEmitters(ctx context.Context, tenant string, limit int) ([]EmitterAggregate, error)
	StatsSummary(ctx context.Context, tenant string) (*StatsSummary, error)
}

// Config holds the aggregation defaults.
type Config struct {
	TopCategories int
	TopEmitters   int
}

// Service exposes the dashboard aggregation operations.
type Service interface {
	Dashboard(ctx context.Context, req DashboardRequest) (DashboardSnapshot, error)
	Timeline(ctx context.Context, req TimelineRequest) (TimelineResponse, error)
	Categories(ctx context.Context, tenant string, f Filters, topN int) ([]CategoryAggregate, error)
	Emitters(ctx context.Context, tenant string, f Filters, topN int) ([]EmitterAggregate, error)
	Radar(ctx context.Context, tenant string, f Filters) (RadarResult, error)
	Export(ctx context.Context, tenant string, f Filters) ([]FlatRow, error)
	Profile(ctx context.Context, tenant string) (EmissionsProfile, error)
}

// DashboardRequest identifies one analytics view fetch cycle.
type DashboardRequest struct {
	Tenant      string
	Granularity Granularity
	Window      Window
}

// DashboardSnapshot is everything the dashboard view renders for one cycle.
// It is recomputed wholesale on every fetch and never merged incrementally.
type DashboardSnapshot struct {
	Breakdown       ScopeBreakdown      `json:"breakdown"`
	Timeline        []PeriodBucket      `json:"timeline"`
	TopCategories   []CategoryAggregate `json:"topCategories"`
	TopEmitters     []EmitterAggregate  `json:"topEmitters"`
	Stats           StatsSummary        `json:"stats"`
	AverageKg       float64             `json:"averageKg"`
	InvalidDates    int                 `json:"invalidDates"`
	DegradedSources []string            `json:"degradedSources,omitempty"`
}

// TimelineRequest parameterizes the stacked series view.
type TimelineRequest struct {
	Tenant      string
	Granularity Granularity
	Window      Window
	LastN       int
}

// TimelineResponse carries the ordered buckets plus skip diagnostics.
type TimelineResponse struct {
	Buckets             []PeriodBucket `json:"buckets"`
	SkippedInvalidDates int            `json:"skippedInvalidDates"`
}

// EmissionsProfile is the condensed tenant picture the recommendation
// generator prompts with.
type EmissionsProfile struct {
	TotalKg    float64
	Breakdown  ScopeBreakdown
	Categories []CategoryAggregate
}

type service struct {
	cfg    Config
	reader ActivityReader
	api    SummaryAPI
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires up the analytics domain.
func NewService(cfg Config, reader ActivityReader, api SummaryAPI, logger *slog.Logger) Service {
	if cfg.TopCategories <= 0 {
		cfg.TopCategories = 5
	}
	if cfg.TopEmitters <= 0 {
		cfg.TopEmitters = 5
	}
	return &service{
		cfg:    cfg,
		reader: reader,
		api:    api,
		logger: logger.With("component", "analytics.service"),
		now:    time.Now,
	}
}

// Dashboard fans out the four upstream fetches concurrently, joins them once
// all complete or individually fail, and reduces the survivors into one
// consistent snapshot. A single failing source degrades to a placeholder; the
// precedence chain in the reconciler does the rest.
func (s *service) Dashboard(ctx context.Context, req DashboardRequest) (DashboardSnapshot, error) {
	window := ResolveWindow(req.Window, s.now())
	granularity := req.Granularity
	if granularity == "" {
		granularity = GranularityMonth
	}

	var (
		wg        sync.WaitGroup
		raws      []RawActivity
		timeline  []PeriodBucket
		breakdown *ScopeBreakdown
		stats     *StatsSummary
		failed    = make([]string, 0, 4)
		failedMu  sync.Mutex
	)

	degrade := func(source string, err error) {
		s.logger.Warn("source unavailable, degrading", "source", source, "tenant", req.Tenant, "error", err)
		failedMu.Lock()
		failed = append(failed, source)
		failedMu.Unlock()
	}

	wg.Add(4)
	go func() {
		defer wg.Done()
		v, err := s.reader.Activities(ctx, req.Tenant, Filters{Window: window})
		if err != nil {
			degrade("activities", err)
			return
		}
		raws = v
	}()
	go func() {
		defer wg.Done()
		v, err := s.api.Timeline(ctx, req.Tenant, granularity, window)
		if err != nil {
			degrade("timeline", err)
			return
		}
		timeline = v
	}()
	go func() {
		defer wg.Done()
		v, err := s.api.ScopeBreakdownSummary(ctx, req.Tenant, window)
		if err != nil {
			degrade("scope_breakdown", err)
			return
		}
		breakdown = v
	}()
	go func() {
		defer wg.Done()
		v, err := s.api.StatsSummary(ctx, req.Tenant)
		if err != nil {
			degrade("stats", err)
			return
		}
		stats = v
	}()
	wg.Wait()

	if len(failed) == 4 {
		return DashboardSnapshot{}, apperrors.Wrap("upstream_unavailable", "all analytics sources failed", nil)
	}

	records, normStats := NormalizeActivities(raws)
	if normStats.InferredScopes > 0 || normStats.InvalidDates > 0 {
		s.logger.Warn("data quality issues in activity batch",
			"tenant", req.Tenant,
			"inferred_scopes", normStats.InferredScopes,
			"invalid_dates", normStats.InvalidDates)
	}

	// Reconcile against the upstream timeline only. A locally derived series
	// drops undated records, so feeding it into the timeline tier would
	// understate the grand total that the activities tier still carries.
	reconciled := ReconcileScopeBreakdown(SourceSet{
		Breakdown:  breakdown,
		Timeline:   timeline,
		Activities: records,
		Stats:      stats,
	})

	if len(timeline) == 0 {
		timeline = BucketByPeriod(records, granularity, window).Buckets
	}

	snapshot := DashboardSnapshot{
		Breakdown:       reconciled,
		Timeline:        timeline,
		TopCategories:   BuildCategoryAggregates(records, s.cfg.TopCategories),
		TopEmitters:     BuildEmitterAggregates(records, s.cfg.TopEmitters),
		AverageKg:       AverageEmissionsKg(records),
		InvalidDates:    normStats.InvalidDates,
		DegradedSources: failed,
	}
	if stats != nil {
		snapshot.Stats = *stats
	} else {
		snapshot.Stats = StatsSummary{
			TotalEmissionsKg: GrandTotalKg(records),
			TotalActivities:  len(records),
			PeakPeriod:       peakPeriod(timeline),
		}
	}
	return snapshot, nil
}

func (s *service) Timeline(ctx context.Context, req TimelineRequest) (TimelineResponse, error) {
	window := ResolveWindow(req.Window, s.now())
	granularity := req.Granularity
	if granularity == "" {
		granularity = GranularityMonth
	}

	records, err := s.loadRecords(ctx, req.Tenant, Filters{Window: window})
	if err != nil {
		return TimelineResponse{}, err
	}
	result := BucketByPeriod(records, granularity, window)
	return TimelineResponse{
		Buckets:             LastN(result.Buckets, req.LastN),
		SkippedInvalidDates: result.SkippedInvalidDates,
	}, nil
}

func (s *service) Categories(ctx context.Context, tenant string, f Filters, topN int) ([]CategoryAggregate, error) {
	records, err := s.loadRecords(ctx, tenant, f)
	if err != nil {
		return nil, err
	}
	if topN <= 0 {
		topN = s.cfg.TopCategories
	}
	return BuildCategoryAggregates(records, topN), nil
}

func (s *service) Emitters(ctx context.Context, tenant string, f Filters, topN int) ([]EmitterAggregate, error) {
	if topN <= 0 {
		topN = s.cfg.TopEmitters
	}
	// Prefer the upstream pre-ranked list; fall back to local derivation.
	if emitters, err := s.api.TopEmitters(ctx, tenant, topN); err == nil && len(emitters) > 0 {
		return emitters, nil
	} else if err != nil {
		s.logger.Warn("top emitters source unavailable, deriving locally", "tenant", tenant, "error", err)
	}
	records, err := s.loadRecords(ctx, tenant, f)
	if err != nil {
		return nil, err
	}
	return BuildEmitterAggregates(records, topN), nil
}

func (s *service) Radar(ctx context.Context, tenant string, f Filters) (RadarResult, error) {
	records, err := s.loadRecords(ctx, tenant, f)
	if err != nil {
		return RadarResult{}, err
	}
	return BuildRadarSeries(records, nil), nil
}

func (s *service) Export(ctx context.Context, tenant string, f Filters) ([]FlatRow, error) {
	records, err := s.loadRecords(ctx, tenant, f)
	if err != nil {
		return nil, err
	}
	return ExportFlatRows(records), nil
}

func (s *service) Profile(ctx context.Context, tenant string) (EmissionsProfile, error) {
	records, err := s.loadRecords(ctx, tenant, Filters{Window: ResolveWindow(Window{}, s.now())})
	if err != nil {
		return EmissionsProfile{}, err
	}
	return EmissionsProfile{
		TotalKg:    GrandTotalKg(records),
		Breakdown:  BreakdownFromRecords(records),
		Categories: BuildCategoryAggregates(records, s.cfg.TopCategories),
	}, nil
}

func (s *service) loadRecords(ctx context.Context, tenant string, f Filters) ([]ActivityRecord, error) {
	raws, err := s.reader.Activities(ctx, tenant, f)
	if err != nil {
		return nil, apperrors.Wrap("upstream_unavailable", "activity source failed", err)
	}
	records, stats := NormalizeActivities(raws)
	if stats.InferredScopes > 0 {
		s.logger.Warn("scope inferred for unclassified activities", "tenant", tenant, "count", stats.InferredScopes)
	}
	return FilterRecords(records, f), nil
}

func peakPeriod(buckets []PeriodBucket) string {
	var (
		peak    string
		highest float64
	)
	for _, b := range buckets {
		if b.TotalTonnes > highest {
			highest = b.TotalTonnes
			peak = b.Label
		}
	}
	return peak
}
