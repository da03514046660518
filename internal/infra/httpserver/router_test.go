package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appanalysis "github.com/sitewise/cog/internal/application/analysis"
	appgeocoding "github.com/sitewise/cog/internal/application/geocoding"
	analysisdomain "github.com/sitewise/cog/internal/domain/analysis"
	geodomain "github.com/sitewise/cog/internal/domain/geocoding"
)

type fixedClock struct{}

func (fixedClock) Now() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

type memRepo struct {
	analyses []*analysisdomain.AnalysisResult
	cache    []*analysisdomain.CacheItem
}

func (r *memRepo) SaveAnalysis(_ context.Context, a *analysisdomain.AnalysisResult) error {
	r.analyses = append(r.analyses, a)
	return nil
}

func (r *memRepo) Get(_ context.Context, userID string, id analysisdomain.AnalysisID) (*analysisdomain.AnalysisResult, error) {
	for _, a := range r.analyses {
		if a.UserID == userID && a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

func (r *memRepo) Latest(_ context.Context, userID string, _ int) ([]*analysisdomain.AnalysisResult, error) {
	var out []*analysisdomain.AnalysisResult
	for _, a := range r.analyses {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memRepo) SaveCacheItem(_ context.Context, item *analysisdomain.CacheItem) error {
	r.cache = append(r.cache, item)
	return nil
}

func (r *memRepo) CachedResult(_ context.Context, userID, key string) (*analysisdomain.CacheItem, error) {
	for i := len(r.cache) - 1; i >= 0; i-- {
		if r.cache[i].UserID == userID && r.cache[i].SourceFileKey == key {
			return r.cache[i], nil
		}
	}
	return nil, nil
}

type memRows struct{ rows map[string][]map[string]string }

func (m *memRows) Rows(_ context.Context, key string) ([]map[string]string, error) {
	return m.rows[key], nil
}

type memGeocoder struct{}

func (memGeocoder) Geocode(_ context.Context, address string) (geodomain.Geocoded, error) {
	return geodomain.Geocoded{Latitude: 1, Longitude: 2, FormattedAddress: address}, nil
}

type memCache struct{ batches []*geodomain.BatchRecord }

func (c *memCache) Lookup(context.Context, string, []string) ([]*geodomain.CacheItem, error) {
	return nil, nil
}
func (c *memCache) SaveItem(context.Context, *geodomain.CacheItem) error { return nil }
func (c *memCache) SaveBatch(_ context.Context, rec *geodomain.BatchRecord) error {
	c.batches = append(c.batches, rec)
	return nil
}

func newTestRouter() http.Handler {
	repo := &memRepo{}
	rows := &memRows{rows: map[string][]map[string]string{
		"data.csv": {
			{"latitude": "0", "longitude": "0", "weight": "1"},
			{"latitude": "0", "longitude": "2", "weight": "1"},
		},
	}}
	analysisSvc := &appanalysis.Service{
		Repo: repo, Rows: rows, Clock: fixedClock{},
		MaxLocations: 100, CacheEnabled: true,
	}
	geocodingSvc := &appgeocoding.Service{
		Geocoder: memGeocoder{}, Cache: &memCache{}, Clock: fixedClock{},
		MaxBatchSize: 25, CacheEnabled: true, CacheTTLDays: 30,
	}
	return NewRouter(analysisSvc, geocodingSvc)
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAnalysisEndpoint(t *testing.T) {
	h := newTestRouter()

	rec := postJSON(t, h, "/v1/analysis",
		`{"sourceFileKey":"data.csv","analysisName":"dc siting","userId":"u1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		AnalysisID      string `json:"analysisId"`
		CenterOfGravity struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"centerOfGravity"`
		FromCache bool `json:"fromCache"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.AnalysisID == "" || resp.FromCache {
		t.Errorf("response = %+v", resp)
	}
	if resp.CenterOfGravity.Latitude != 0 || resp.CenterOfGravity.Longitude != 1 {
		t.Errorf("centerOfGravity = %+v; want (0, 1)", resp.CenterOfGravity)
	}

	// Second run is a cache hit with the same center.
	rec = postJSON(t, h, "/v1/analysis",
		`{"sourceFileKey":"data.csv","analysisName":"dc siting 2","userId":"u1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("second run status = %d", rec.Code)
	}
	var second struct {
		FromCache       bool `json:"fromCache"`
		CenterOfGravity struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"centerOfGravity"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &second); err != nil {
		t.Fatalf("decoding second response: %v", err)
	}
	if !second.FromCache {
		t.Error("second identical run must report fromCache")
	}
	if second.CenterOfGravity != resp.CenterOfGravity {
		t.Errorf("cached centerOfGravity %+v differs from first run %+v", second.CenterOfGravity, resp.CenterOfGravity)
	}
}

func TestAnalysisEndpointValidation(t *testing.T) {
	h := newTestRouter()

	cases := []struct {
		name string
		body string
		want string
	}{
		{"missing everything", `{}`, "sourceFileKey"},
		{"missing userId", `{"sourceFileKey":"x","analysisName":"y"}`, "userId"},
		{"missing name", `{"sourceFileKey":"x","userId":"u"}`, "analysisName"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, h, "/v1/analysis", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d; want 400", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tc.want) {
				t.Errorf("error %q does not name %q", rec.Body.String(), tc.want)
			}
		})
	}
}

func TestAnalysisEndpointEmptyDataset(t *testing.T) {
	h := newTestRouter()
	rec := postJSON(t, h, "/v1/analysis",
		`{"sourceFileKey":"missing.csv","analysisName":"x","userId":"u1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d; want 400 for an empty dataset", rec.Code)
	}
}

func TestGeocodeEndpoint(t *testing.T) {
	h := newTestRouter()

	rec := postJSON(t, h, "/v1/geocode",
		`{"userId":"u1","addresses":[{"id":"a","address":"somewhere"},{"id":"b","address":"elsewhere"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		CacheID string `json:"cacheId"`
		Results []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"results"`
		Stats struct {
			Total       int    `json:"total"`
			Success     int    `json:"success"`
			SuccessRate string `json:"successRate"`
		} `json:"stats"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.CacheID == "" || len(resp.Results) != 2 {
		t.Errorf("response = %+v", resp)
	}
	if resp.Stats.Total != 2 || resp.Stats.Success != 2 || resp.Stats.SuccessRate != "100.0" {
		t.Errorf("stats = %+v", resp.Stats)
	}
}

func TestGeocodeEndpointValidation(t *testing.T) {
	h := newTestRouter()

	rec := postJSON(t, h, "/v1/geocode", `{"userId":"u1","addresses":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty addresses status = %d; want 400", rec.Code)
	}

	rec = postJSON(t, h, "/v1/geocode", `{"addresses":[{"id":"a","address":"x"}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing userId status = %d; want 400", rec.Code)
	}

	// 26 addresses against the configured max of 25.
	var sb strings.Builder
	sb.WriteString(`{"userId":"u1","addresses":[`)
	for i := 0; i < 26; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(`{"id":"x","address":"y"}`)
	}
	sb.WriteString(`]}`)
	rec = postJSON(t, h, "/v1/geocode", sb.String())
	if rec.Code != http.StatusBadRequest {
		t.Errorf("oversized batch status = %d; want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "25") {
		t.Errorf("limit error %q does not name the limit", rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	h := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
}
