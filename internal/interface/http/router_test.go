package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/jlin-dev/carbonlens/internal/domain/analytics"
	"github.com/jlin-dev/carbonlens/internal/domain/recommend"
	"github.com/jlin-dev/carbonlens/internal/infra/config"
	"github.com/jlin-dev/carbonlens/internal/infra/exportstore"
	apperrors "github.com/jlin-dev/carbonlens/pkg/errors"
)

func TestRouter_DashboardSuccess(t *testing.T) {
	snapshot := analytics.DashboardSnapshot{
		Breakdown: analytics.NewScopeBreakdown(1000, 2000, 0),
		Stats:     analytics.StatsSummary{TotalActivities: 7},
	}
	snapshot.Breakdown.Source = analytics.SourceAuthoritative

	svc := &stubAnalytics{
		dashboardFn: func(ctx context.Context, req analytics.DashboardRequest) (analytics.DashboardSnapshot, error) {
			require.Equal(t, "acme", req.Tenant)
			require.Equal(t, analytics.GranularityMonth, req.Granularity)
			return snapshot, nil
		},
	}

	rec := performGet(t, "/api/v1/analytics/dashboard?granularity=month", newRouterUnderTest(t, svc, &stubRecommend{}))
	require.Equal(t, http.StatusOK, rec.Code)

	var got analytics.DashboardSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, analytics.SourceAuthoritative, got.Breakdown.Source)
	require.Equal(t, 7, got.Stats.TotalActivities)
}

func TestRouter_DashboardMissingTenant(t *testing.T) {
	server := newRouterUnderTest(t, &stubAnalytics{}, &stubRecommend{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/dashboard", nil)
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	errBody := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, "unauthorized", errBody["error"]["code"])
}

func TestRouter_DashboardUpstreamFailure(t *testing.T) {
	svc := &stubAnalytics{
		dashboardFn: func(ctx context.Context, req analytics.DashboardRequest) (analytics.DashboardSnapshot, error) {
			return analytics.DashboardSnapshot{}, apperrors.Wrap("upstream_unavailable", "all analytics sources failed", nil)
		},
	}

	rec := performGet(t, "/api/v1/analytics/dashboard", newRouterUnderTest(t, svc, &stubRecommend{}))
	require.Equal(t, http.StatusBadGateway, rec.Code)

	errBody := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, "upstream_unavailable", errBody["error"]["code"])
	require.Contains(t, errBody["error"]["message"], "all analytics sources failed")
}

func TestRouter_TimelineInvalidWindow(t *testing.T) {
	rec := performGet(t, "/api/v1/analytics/timeline?from=01-02-2024", newRouterUnderTest(t, &stubAnalytics{}, &stubRecommend{}))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	errBody := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, "invalid_request", errBody["error"]["code"])
}

func TestRouter_TimelineForwardsParams(t *testing.T) {
	svc := &stubAnalytics{
		timelineFn: func(ctx context.Context, req analytics.TimelineRequest) (analytics.TimelineResponse, error) {
			require.Equal(t, analytics.GranularityDay, req.Granularity)
			require.Equal(t, 6, req.LastN)
			require.Equal(t, "2024-01-01", req.Window.From.Format("2006-01-02"))
			return analytics.TimelineResponse{Buckets: []analytics.PeriodBucket{{SortKey: "2024-01-01"}}}, nil
		},
	}

	rec := performGet(t, "/api/v1/analytics/timeline?granularity=day&last=6&from=2024-01-01", newRouterUnderTest(t, svc, &stubRecommend{}))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_ExportCSV(t *testing.T) {
	svc := &stubAnalytics{
		exportFn: func(ctx context.Context, tenant string, f analytics.Filters) ([]analytics.FlatRow, error) {
			return []analytics.FlatRow{{ID: "a1", Date: "2024-05-01", Scope: 2, EmissionsKg: 100}}, nil
		},
	}

	rec := performGet(t, "/api/v1/analytics/export", newRouterUnderTest(t, svc, &stubRecommend{}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	require.Contains(t, rec.Header().Get("Content-Disposition"), "emissions-export.csv")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], "id,date,activity_type"))
	require.True(t, strings.HasPrefix(lines[1], "a1,2024-05-01"))
}

func TestRouter_ExportRejectsUnknownFormat(t *testing.T) {
	rec := performGet(t, "/api/v1/analytics/export?format=xml", newRouterUnderTest(t, &stubAnalytics{}, &stubRecommend{}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_RecommendationsRefreshFlag(t *testing.T) {
	recSvc := &stubRecommend{
		recommendationsFn: func(ctx context.Context, req recommend.Request) (recommend.Response, error) {
			require.True(t, req.Refresh)
			require.Equal(t, "acme", req.Tenant)
			return recommend.Response{Source: "llm"}, nil
		},
	}

	rec := performGet(t, "/api/v1/recommendations?refresh=true", newRouterUnderTest(t, &stubAnalytics{}, recSvc))
	require.Equal(t, http.StatusOK, rec.Code)

	var got recommend.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "llm", got.Source)
}

func TestRouter_SaveRecommendation(t *testing.T) {
	recSvc := &stubRecommend{
		saveFn: func(ctx context.Context, tenant, id string) error {
			require.Equal(t, "acme", tenant)
			require.Equal(t, "r1", id)
			return nil
		},
	}

	server := newRouterUnderTest(t, &stubAnalytics{}, recSvc)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recommendations/r1/save", nil)
	req.Header.Set("X-Tenant-ID", "acme")
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRouter_SaveUnknownRecommendation(t *testing.T) {
	recSvc := &stubRecommend{
		saveFn: func(ctx context.Context, tenant, id string) error {
			return apperrors.Wrap("not_found", "unknown recommendation id", nil)
		},
	}

	server := newRouterUnderTest(t, &stubAnalytics{}, recSvc)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recommendations/missing/save", nil)
	req.Header.Set("X-Tenant-ID", "acme")
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_InvalidateRecommendations(t *testing.T) {
	var invalidated bool
	recSvc := &stubRecommend{
		invalidateFn: func(ctx context.Context, tenant string) error {
			invalidated = true
			return nil
		},
	}

	server := newRouterUnderTest(t, &stubAnalytics{}, recSvc)
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/recommendations", nil)
	req.Header.Set("X-Tenant-ID", "acme")
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.True(t, invalidated)
}

func TestRouter_JWTAuth(t *testing.T) {
	secret := "test-secret"
	svc := &stubAnalytics{
		dashboardFn: func(ctx context.Context, req analytics.DashboardRequest) (analytics.DashboardSnapshot, error) {
			require.Equal(t, "tenant-from-token", req.Tenant)
			return analytics.DashboardSnapshot{}, nil
		},
	}
	server := newAuthedRouterUnderTest(t, svc, secret)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"tenant_id": "tenant-from-token",
		"exp":       time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_JWTAuthRejectsBadToken(t *testing.T) {
	server := newAuthedRouterUnderTest(t, &stubAnalytics{}, "test-secret")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/dashboard", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouter_Healthz(t *testing.T) {
	server := newRouterUnderTest(t, &stubAnalytics{}, &stubRecommend{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func performGet(t *testing.T, path string, server *http.Server) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("X-Tenant-ID", "acme")
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func newRouterUnderTest(t *testing.T, analyticsSvc analytics.Service, recommendSvc recommend.Service) *http.Server {
	t.Helper()
	handler := NewHandler(analyticsSvc, recommendSvc, exportstore.NoopArchiver{}, newTestLogger())
	cfg := &config.Config{
		HTTP: config.HTTPConfig{
			Address:      ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
	}
	return NewRouter(cfg, handler)
}

func newAuthedRouterUnderTest(t *testing.T, analyticsSvc analytics.Service, secret string) *http.Server {
	t.Helper()
	handler := NewHandler(analyticsSvc, &stubRecommend{}, exportstore.NoopArchiver{}, newTestLogger())
	cfg := &config.Config{
		HTTP: config.HTTPConfig{
			Address:      ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
		Auth: config.AuthConfig{Enabled: true, JWTSecret: secret},
	}
	return NewRouter(cfg, handler)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeErrorBody(t *testing.T, raw []byte) map[string]map[string]string {
	t.Helper()
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

type stubAnalytics struct {
	dashboardFn  func(ctx context.Context, req analytics.DashboardRequest) (analytics.DashboardSnapshot, error)
	timelineFn   func(ctx context.Context, req analytics.TimelineRequest) (analytics.TimelineResponse, error)
	categoriesFn func(ctx context.Context, tenant string, f analytics.Filters, topN int) ([]analytics.CategoryAggregate, error)
	emittersFn   func(ctx context.Context, tenant string, f analytics.Filters, topN int) ([]analytics.EmitterAggregate, error)
	radarFn      func(ctx context.Context, tenant string, f analytics.Filters) (analytics.RadarResult, error)
	exportFn     func(ctx context.Context, tenant string, f analytics.Filters) ([]analytics.FlatRow, error)
	profileFn    func(ctx context.Context, tenant string) (analytics.EmissionsProfile, error)
}

func (s *stubAnalytics) Dashboard(ctx context.Context, req analytics.DashboardRequest) (analytics.DashboardSnapshot, error) {
	if s.dashboardFn != nil {
		return s.dashboardFn(ctx, req)
	}
	return analytics.DashboardSnapshot{}, nil
}

func (s *stubAnalytics) Timeline(ctx context.Context, req analytics.TimelineRequest) (analytics.TimelineResponse, error) {
	if s.timelineFn != nil {
		return s.timelineFn(ctx, req)
	}
	return analytics.TimelineResponse{}, nil
}

func (s *stubAnalytics) Categories(ctx context.Context, tenant string, f analytics.Filters, topN int) ([]analytics.CategoryAggregate, error) {
	if s.categoriesFn != nil {
		return s.categoriesFn(ctx, tenant, f, topN)
	}
	return nil, nil
}

func (s *stubAnalytics) Emitters(ctx context.Context, tenant string, f analytics.Filters, topN int) ([]analytics.EmitterAggregate, error) {
	if s.emittersFn != nil {
		return s.emittersFn(ctx, tenant, f, topN)
	}
	return nil, nil
}

func (s *stubAnalytics) Radar(ctx context.Context, tenant string, f analytics.Filters) (analytics.RadarResult, error) {
	if s.radarFn != nil {
		return s.radarFn(ctx, tenant, f)
	}
	return analytics.RadarResult{State: analytics.RadarNoData}, nil
}

func (s *stubAnalytics) Export(ctx context.Context, tenant string, f analytics.Filters) ([]analytics.FlatRow, error) {
	if s.exportFn != nil {
		return s.exportFn(ctx, tenant, f)
	}
	return nil, nil
}

func (s *stubAnalytics) Profile(ctx context.Context, tenant string) (analytics.EmissionsProfile, error) {
	if s.profileFn != nil {
		return s.profileFn(ctx, tenant)
	}
	return analytics.EmissionsProfile{}, nil
}

type stubRecommend struct {
	recommendationsFn func(ctx context.Context, req recommend.Request) (recommend.Response, error)
	saveFn            func(ctx context.Context, tenant, id string) error
	implementFn       func(ctx context.Context, tenant, id string) error
	invalidateFn      func(ctx context.Context, tenant string) error
}

func (s *stubRecommend) Recommendations(ctx context.Context, req recommend.Request) (recommend.Response, error) {
	if s.recommendationsFn != nil {
		return s.recommendationsFn(ctx, req)
	}
	return recommend.Response{}, nil
}

func (s *stubRecommend) Save(ctx context.Context, tenant, id string) error {
	if s.saveFn != nil {
		return s.saveFn(ctx, tenant, id)
	}
	return nil
}

func (s *stubRecommend) MarkImplemented(ctx context.Context, tenant, id string) error {
	if s.implementFn != nil {
		return s.implementFn(ctx, tenant, id)
	}
	return nil
}

func (s *stubRecommend) Invalidate(ctx context.Context, tenant string) error {
	if s.invalidateFn != nil {
		return s.invalidateFn(ctx, tenant)
	}
	return nil
}
