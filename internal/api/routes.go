// Package api provides HTTP handlers for the dashboard bundle server.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/lokdhaba/dataviz/internal/cache"
	"github.com/lokdhaba/dataviz/internal/dataset"
	"github.com/lokdhaba/dataviz/internal/logging"
	"github.com/lokdhaba/dataviz/internal/service"
)

// RouterConfig contains router configuration.
type RouterConfig struct {
	Registry    *DatasetRegistry
	CORSOrigins []string
	Logger      *zap.Logger
	// Cache, when set, is reported on /api/stats.
	Cache       *cache.Manager
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(logging.Middleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "If-None-Match"},
		ExposedHeaders:   []string{"ETag"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Get("/api/datasets", datasetsHandler(cfg.Registry))
	r.Get("/api/visualizations", visualizationsHandler(cfg.Registry.Service()))
	if cfg.Cache != nil {
		r.Get("/api/stats", statsHandler(cfg.Cache))
	}

	// Dataset-scoped routes: /d/{dataset}/...
	r.Route("/d/{dataset}", func(r chi.Router) {
		r.Use(datasetMiddleware(cfg.Registry))

		maps := mapHandler(cfg.Registry.Service(), logger)
		r.Get("/maps/{viz}", maps)
		r.Post("/maps/{viz}", maps)

		charts := chartHandler(cfg.Registry.Service(), logger)
		r.Get("/charts/{viz}", charts)
		r.Post("/charts/{viz}", charts)
	})

	return r
}

// datasetMiddleware rejects unknown datasets before any handler runs.
func datasetMiddleware(registry *DatasetRegistry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			datasetID := chi.URLParam(r, "dataset")
			if !registry.Has(datasetID) {
				http.Error(w, "dataset not found: "+datasetID, http.StatusNotFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// datasetsHandler returns the list of available datasets.
func datasetsHandler(registry *DatasetRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"default":  registry.DefaultDatasetID(),
			"datasets": registry.Datasets(),
			"title":    registry.Title(),
		})
	}
}

func visualizationsHandler(svc *service.BundleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Visualizations())
	}
}

func statsHandler(m *cache.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, m.Stats())
	}
}

func mapHandler(svc *service.BundleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parseQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		resp, err := svc.Map(q)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		etag := bundleETag(q, resp.Version)
		if notModified(w, r, etag) {
			return
		}
		w.Header().Set("ETag", etag)
		writeJSON(w, resp)
	}
}

func chartHandler(svc *service.BundleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parseQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		q.Change = false

		resp, err := svc.Chart(q)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		etag := bundleETag(q, resp.Version)
		if notModified(w, r, etag) {
			return
		}
		w.Header().Set("ETag", etag)
		writeJSON(w, resp)
	}
}

// parseQuery reads the bundle query from the URL and, for POST, the body.
// Lists in the body take precedence over the query string.
func parseQuery(r *http.Request) (service.Query, error) {
	query := r.URL.Query()
	q := service.Query{
		Dataset:       chi.URLParam(r, "dataset"),
		Visualization: chi.URLParam(r, "viz"),
	}

	if raw := strings.TrimSpace(query.Get("change")); raw != "" {
		change, err := strconv.ParseBool(raw)
		if err != nil {
			return q, fmt.Errorf("invalid change flag %q", raw)
		}
		q.Change = change
	}
	if raw := strings.TrimSpace(query.Get("assembly")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return q, fmt.Errorf("invalid assembly number %q", raw)
		}
		q.AssemblyNo = n
	}

	q.Buckets, _ = parseListFilter(query, bucketsParam)
	q.Options, _ = parseListFilter(query, optionsParam)

	if r.Method == http.MethodPost {
		body, err := readFilterBody(r)
		if err != nil {
			return q, err
		}
		if buckets, ok := parseListFilterBody(body, bucketsParam); ok {
			q.Buckets = buckets
		}
		if options, ok := parseListFilterBody(body, optionsParam); ok {
			q.Options = options
		}
	}
	return q, nil
}

// bundleETag identifies a response by its query and the version of the
// dataset and palettes it was built from.
func bundleETag(q service.Query, version string) string {
	viz := q.Visualization
	if q.AssemblyNo != 0 {
		viz = fmt.Sprintf("%s@%d", viz, q.AssemblyNo)
	}
	key := cache.BundleKey(q.Dataset, viz, q.Buckets, q.Change)
	if q.Options != nil {
		key += ":" + cache.BundleKey("", "options", q.Options, false)
	}
	return strconv.Quote(key + ":v=" + version)
}

func notModified(w http.ResponseWriter, r *http.Request, etag string) bool {
	match := r.Header.Get("If-None-Match")
	if match == "" {
		return false
	}
	for _, candidate := range strings.Split(match, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == etag || strings.TrimPrefix(candidate, "W/") == etag {
			w.Header().Set("ETag", etag)
			w.WriteHeader(http.StatusNotModified)
			return true
		}
	}
	return false
}

func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, dataset.ErrNotFound), errors.Is(err, service.ErrUnknownVisualization):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		logger.Error("bundle failed", zap.Error(err))
		http.Error(w, "failed to build bundle", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

const (
	bucketsParam = "buckets"
	optionsParam = "options"
)

// parseListFilter reads a list parameter. It reports false when the
// parameter is absent; a present but empty value yields an empty list.
func parseListFilter(query url.Values, name string) ([]string, bool) {
	rawValues, present := query[name]
	if !present {
		return nil, false
	}

	// Support repeated query parameters:
	//   ?buckets=BJP&buckets=INC
	if len(rawValues) > 1 {
		out := make([]string, 0, len(rawValues))
		for _, v := range rawValues {
			v = strings.TrimSpace(v)
			if v != "" {
				out = append(out, v)
			}
		}
		return out, true
	}

	raw := strings.TrimSpace(rawValues[0])
	if raw == "" {
		// Explicit "enable none".
		return make([]string, 0), true
	}

	// JSON array, e.g. ["<5",">15"] (allows commas in values).
	if strings.HasPrefix(raw, "[") {
		var values []string
		if err := json.Unmarshal([]byte(raw), &values); err == nil {
			if values == nil {
				return make([]string, 0), true
			}
			return values, true
		}
		// Fall through to comma-separated parsing for tolerance.
	}

	// Comma-separated list, e.g. BJP,INC
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out, true
}

const maxFilterBodyBytes = 1 << 20 // 1 MiB

func readFilterBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxFilterBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxFilterBodyBytes {
		return nil, errors.New("filter body too large")
	}
	return bytes.TrimSpace(body), nil
}

// parseListFilterBody reads list name from a POST body. A bare JSON array
// or comma list is the bucket list.
func parseListFilterBody(raw []byte, name string) ([]string, bool) {
	if len(raw) == 0 {
		return nil, false
	}

	// Object payload: {"buckets":[...], "options":[...]}.
	if raw[0] == '{' {
		var payload map[string]json.RawMessage
		if err := json.Unmarshal(raw, &payload); err == nil {
			rawValues, ok := payload[name]
			if !ok {
				return nil, false
			}

			rawValues = bytes.TrimSpace(rawValues)
			if len(rawValues) == 0 || bytes.Equal(rawValues, []byte("null")) {
				return nil, false
			}

			var values []string
			if err := json.Unmarshal(rawValues, &values); err == nil {
				if values == nil {
					return make([]string, 0), true
				}
				return values, true
			}

			var valuesString string
			if err := json.Unmarshal(rawValues, &valuesString); err == nil {
				return parseListFilter(url.Values{name: {valuesString}}, name)
			}
		}
		return nil, false
	}

	// Form-encoded bodies:
	//   buckets=BJP&buckets=INC
	//   buckets=["BJP","INC"]
	if bytes.Contains(raw, []byte("=")) && raw[0] != '[' {
		if q, err := url.ParseQuery(string(raw)); err == nil {
			return parseListFilter(q, name)
		}
	}

	if name != bucketsParam {
		return nil, false
	}
	return parseListFilter(url.Values{name: {string(raw)}}, name)
}
