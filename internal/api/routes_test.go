package api

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lokdhaba/dataviz/internal/cache"
	"github.com/lokdhaba/dataviz/internal/dataset"
	"github.com/lokdhaba/dataviz/internal/service"
	"github.com/lokdhaba/dataviz/internal/viz"
	"github.com/lokdhaba/dataviz/pkg/palette"
)

const ge17JSON = `[
  {"Constituency_No": 1, "Party": "BJP", "N_Cand": 3, "Turnout_Percentage": 50, "Turnout_Change_pct": -10},
  {"Constituency_No": 2, "Party": "INC", "N_Cand": 7, "Turnout_Percentage": 61, "Turnout_Change_pct": 20},
  {"Constituency_No": 3, "Party": "BJP", "N_Cand": 20, "Turnout_Percentage": 70, "Turnout_Change_pct": 0}
]`

const upCSV = "Party,Year,Winners,Total_Seats_in_Assembly,Seat_Share\nSP,2012,224,403,55.58\nBJP,2017,312,403,77.42\n"

// setupRouter writes fixture datasets and wires the full stack.
func setupRouter(t *testing.T) http.Handler {
	t.Helper()
	return newRouter(t, writeFixtures(t))
}

func writeFixtures(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ge17.json"), []byte(ge17JSON), 0644); err != nil {
		t.Fatalf("failed to write dataset: %v", err)
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write([]byte(upCSV))
	zw.Close()
	if err := os.WriteFile(filepath.Join(dir, "up.csv.gz"), buf.Bytes(), 0644); err != nil {
		t.Fatalf("failed to write dataset: %v", err)
	}
	return dir
}

// newRouter wires the full stack over the datasets in dir with empty caches.
func newRouter(t *testing.T, dir string) http.Handler {
	t.Helper()

	cacheManager, err := cache.NewManager(cache.Config{
		RawCacheSizeMB: 8,
		RawTTL:         time.Minute,
		DatasetEntries: 4,
	})
	if err != nil {
		t.Fatalf("failed to initialize cache: %v", err)
	}
	t.Cleanup(func() { cacheManager.Close() })

	store := dataset.NewStore(dir, []dataset.Source{
		{ID: "ge17", Path: "ge17.json", ElectionType: "GE", StateName: "Lok_Sabha", AssemblyNo: 17},
		{ID: "up17", Path: "up.csv.gz", ElectionType: "AE", StateName: "Uttar_Pradesh", AssemblyNo: 17},
	}, cacheManager, nil)

	svc := service.NewBundleService(service.BundleServiceConfig{
		Store:    store,
		Selector: viz.NewSelector(palette.MustDefault(), viz.DefaultColors()),
	})

	return NewRouter(RouterConfig{
		Registry:    NewDatasetRegistry(svc, "ge17", ""),
		CORSOrigins: []string{"http://localhost:3000"},
		Cache:       cacheManager,
	})
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthEndpoint(t *testing.T) {
	rec := do(t, setupRouter(t), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestDatasetsEndpoint(t *testing.T) {
	rec := do(t, setupRouter(t), httptest.NewRequest(http.MethodGet, "/api/datasets", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decode[struct {
		Default  string        `json:"default"`
		Title    string        `json:"title"`
		Datasets []DatasetInfo `json:"datasets"`
	}](t, rec)

	assert.Equal(t, "ge17", payload.Default)
	assert.Equal(t, "Lokdhaba", payload.Title)
	require.Len(t, payload.Datasets, 2)
	assert.Equal(t, "Lok Sabha #17", payload.Datasets[0].Name)
	assert.Equal(t, "Uttar Pradesh Vidhan Sabha #17", payload.Datasets[1].Name)
}

func TestVisualizationsEndpoint(t *testing.T) {
	rec := do(t, setupRouter(t), httptest.NewRequest(http.MethodGet, "/api/visualizations", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decode[service.Visualizations](t, rec)
	assert.Len(t, payload.Maps, 10)
	assert.Len(t, payload.Charts, 7)
	assert.Equal(t, "winnerMap", payload.Maps[0].ID)
}

func TestStatsEndpoint(t *testing.T) {
	router := setupRouter(t)

	rec := do(t, router, httptest.NewRequest(http.MethodGet, "/d/ge17/maps/winnerMap", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	stats := decode[map[string]float64](t, rec)
	assert.Equal(t, 1.0, stats["raw_cache_len"])
	assert.Equal(t, 1.0, stats["dataset_cache_len"])
	assert.Contains(t, stats, "raw_cache_cap")
}

func TestStatsEndpointWithoutCache(t *testing.T) {
	svc := service.NewBundleService(service.BundleServiceConfig{
		Store:    dataset.NewStore(t.TempDir(), nil, nil, nil),
		Selector: viz.NewSelector(palette.MustDefault(), viz.DefaultColors()),
	})
	router := NewRouter(RouterConfig{Registry: NewDatasetRegistry(svc, "", "")})

	rec := do(t, router, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestETagFollowsDatasetContent(t *testing.T) {
	dir := writeFixtures(t)

	first := do(t, newRouter(t, dir), httptest.NewRequest(http.MethodGet, "/d/ge17/maps/winnerMap", nil))
	require.Equal(t, http.StatusOK, first.Code)
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/d/ge17/maps/winnerMap", nil)
	req.Header.Set("If-None-Match", etag)
	rec := do(t, newRouter(t, dir), req)
	assert.Equal(t, http.StatusNotModified, rec.Code)

	rewritten := strings.Replace(ge17JSON, `"Party": "INC"`, `"Party": "SP"`, 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ge17.json"), []byte(rewritten), 0644))

	req = httptest.NewRequest(http.MethodGet, "/d/ge17/maps/winnerMap", nil)
	req.Header.Set("If-None-Match", etag)
	rec = do(t, newRouter(t, dir), req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, etag, rec.Header().Get("ETag"))

	resp := decode[service.MapResponse](t, rec)
	require.Len(t, resp.Legend, 2)
	assert.Equal(t, "SP", resp.Legend[1].Key)
}

func TestUnknownVisualizationIgnoresIfNoneMatch(t *testing.T) {
	router := setupRouter(t)

	for _, path := range []string{"/d/ge17/maps/boothMap", "/d/ge17/charts/boothChart"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("If-None-Match", `"bundle:ge17/boothMap:change=false"`)
		rec := do(t, router, req)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestMapEndpoint(t *testing.T) {
	router := setupRouter(t)

	t.Run("bandsQueryFilter", func(t *testing.T) {
		rec := do(t, router, httptest.NewRequest(http.MethodGet, "/d/ge17/maps/numCandidatesMap?buckets=%3C5,%3E15", nil))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.NotEmpty(t, rec.Header().Get("ETag"))

		resp := decode[service.MapResponse](t, rec)
		assert.Equal(t, "N_Cand", resp.Field)
		assert.Equal(t, []string{"#deebf7", "#FFFFFF00", "#6baed6"}, hexStrings(resp))
		require.Len(t, resp.Legend, 2)
		assert.Equal(t, "<5", resp.Legend[0].Key)
		assert.Equal(t, ">15", resp.Legend[1].Key)
	})

	t.Run("postBody", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/d/ge17/maps/winnerMap", strings.NewReader(`{"buckets":["INC"]}`))
		req.Header.Set("Content-Type", "application/json")
		rec := do(t, router, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decode[service.MapResponse](t, rec)
		require.Len(t, resp.Legend, 1)
		assert.Equal(t, "INC", resp.Legend[0].Key)
		assert.Equal(t, []string{"1", "2", "3"}, resp.Keys)
	})

	t.Run("change", func(t *testing.T) {
		rec := do(t, router, httptest.NewRequest(http.MethodGet, "/d/ge17/maps/voterTurnoutMap?change=1", nil))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decode[service.MapResponse](t, rec)
		assert.True(t, resp.Change)
		assert.Equal(t, []string{"#ca0020", "#0571b0", "#ffffff"}, hexStrings(resp))
	})

	t.Run("compressedDataset", func(t *testing.T) {
		rec := do(t, router, httptest.NewRequest(http.MethodGet, "/d/up17/maps/winnerMap", nil))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decode[service.MapResponse](t, rec)
		assert.Equal(t, "Constituency wise winning parties for Vidhan Sabha in Assembly #17", resp.Title)
		assert.Len(t, resp.Colors, 2)
	})

	t.Run("notModified", func(t *testing.T) {
		first := do(t, router, httptest.NewRequest(http.MethodGet, "/d/ge17/maps/winnerMap", nil))
		require.Equal(t, http.StatusOK, first.Code)
		etag := first.Header().Get("ETag")
		require.NotEmpty(t, etag)

		req := httptest.NewRequest(http.MethodGet, "/d/ge17/maps/winnerMap", nil)
		req.Header.Set("If-None-Match", etag)
		rec := do(t, router, req)
		assert.Equal(t, http.StatusNotModified, rec.Code)
		assert.Empty(t, rec.Body.Bytes())

		other := do(t, router, httptest.NewRequest(http.MethodGet, "/d/ge17/maps/winnerMap?buckets=", nil))
		assert.NotEqual(t, etag, other.Header().Get("ETag"))
	})

	t.Run("errors", func(t *testing.T) {
		cases := map[string]int{
			"/d/ge99/maps/winnerMap":                http.StatusNotFound,
			"/d/ge17/maps/boothMap":                  http.StatusNotFound,
			"/d/ge17/maps/voterTurnoutMap?change=x": http.StatusBadRequest,
			"/d/ge17/maps/winnerMap?assembly=-1":    http.StatusBadRequest,
		}
		for path, code := range cases {
			rec := do(t, router, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, code, rec.Code, path)
		}
	})
}

func TestChartEndpoint(t *testing.T) {
	router := setupRouter(t)

	rec := do(t, router, httptest.NewRequest(http.MethodGet, "/d/up17/charts/seatShareChart?options=Total_Candidates", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[service.ChartResponse](t, rec)
	assert.Equal(t, viz.PartyScatterChart, resp.Kind)
	assert.Equal(t, "Party wise seat share across years in Uttar Pradesh Vidhan Sabha", resp.Layout.Title)
	assert.Equal(t, []string{"224/403 Seats"}, resp.AdditionalText["SP"])
	require.Len(t, resp.Overlays, 1)
	assert.Equal(t, "Total Candidates", resp.Overlays[0].Label)

	req := httptest.NewRequest(http.MethodPost, "/d/up17/charts/voterTurnoutChart",
		strings.NewReader(`{"options":["Total_Candidates","Deposit_Saved"],"buckets":["DepositSaved"]}`))
	rec = do(t, router, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp = decode[service.ChartResponse](t, rec)
	require.Len(t, resp.Overlays, 1)
	assert.Equal(t, "Deposit_Saved", resp.Overlays[0].Value)

	rec = do(t, router, httptest.NewRequest(http.MethodGet, "/d/up17/charts/winnerMap", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func hexStrings(resp service.MapResponse) []string {
	out := make([]string, len(resp.Colors))
	for i, c := range resp.Colors {
		out[i] = string(c)
	}
	return out
}
