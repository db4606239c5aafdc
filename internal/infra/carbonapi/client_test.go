package carbonapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jlin-dev/carbonlens/internal/domain/analytics"
)

func TestActivitiesDecodesAndForwardsFilters(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"activities":[{"id":"a1","activity_type":"flight","co2e_kg":123.4,"scope":3,"activity_date":"2024-05-01"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret", time.Second)
	raws, err := client.Activities(context.Background(), "acme", analytics.Filters{
		Window: analytics.Window{
			From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		},
		Category: "Travel",
	})
	require.NoError(t, err)
	require.Len(t, raws, 1)
	require.Equal(t, "a1", raws[0].ID)
	require.Equal(t, 123.4, *raws[0].EmissionsKg)
	require.Equal(t, 3, *raws[0].ScopeNumber)

	require.Equal(t, "/v1/tenants/acme/activities", gotPath)
	require.Contains(t, gotQuery, "from=2024-01-01")
	require.Contains(t, gotQuery, "to=2024-12-31")
	require.Contains(t, gotQuery, "category=Travel")
	require.Equal(t, "Bearer secret", gotAuth)
}

func TestTimelineFillsMissingTotals(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"series":[{"period":"2024-01","scope1_tonnes":1,"scope2_tonnes":0.5,"count":3}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	buckets, err := client.Timeline(context.Background(), "acme", analytics.GranularityMonth, analytics.Window{})
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	require.Equal(t, "2024-01", buckets[0].SortKey)
	require.Equal(t, "2024-01", buckets[0].Label)
	require.InDelta(t, 1.5, buckets[0].TotalTonnes, 1e-9)
	require.Equal(t, 3, buckets[0].Count)
}

func TestScopeBreakdownSummaryNotMaterialized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	breakdown, err := client.ScopeBreakdownSummary(context.Background(), "acme", analytics.Window{})
	require.NoError(t, err)
	require.Nil(t, breakdown)
}

func TestScopeBreakdownSummaryComputesShares(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"scope1_kg":1000,"scope2_kg":2000}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	breakdown, err := client.ScopeBreakdownSummary(context.Background(), "acme", analytics.Window{})
	require.NoError(t, err)
	require.NotNil(t, breakdown)
	require.Equal(t, 3000.0, breakdown.TotalKg)
	require.InDelta(t, 1.0/3.0, breakdown.Scope1.Percentage, 1e-9)
	require.Zero(t, breakdown.Scope3.TotalKg)
}

func TestServerErrorSurfacesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	_, err := client.StatsSummary(context.Background(), "acme")
	require.Error(t, err)
	require.Contains(t, err.Error(), "status=502")
}

func TestTopEmittersNameFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"emitters":[{"activity_type":"flight","emissions_kg":900,"activity_count":3,"percentage":0.9}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	emitters, err := client.TopEmitters(context.Background(), "acme", 5)
	require.NoError(t, err)
	require.Len(t, emitters, 1)
	require.Equal(t, "flight", emitters[0].Name)
	require.Equal(t, 900.0, emitters[0].EmissionsKg)
}
