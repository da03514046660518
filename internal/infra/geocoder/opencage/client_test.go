package opencage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "10 Downing St, London" {
			t.Errorf("q = %q", got)
		}
		if got := r.URL.Query().Get("key"); got != "test-key" {
			t.Errorf("key = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{{
				"geometry":   map[string]float64{"lat": 51.5034, "lng": -0.1276},
				"formatted":  "10 Downing Street, London, United Kingdom",
				"confidence": 10,
				"components": map[string]string{"country": "United Kingdom"},
			}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")
	got, err := c.Geocode(context.Background(), "10 Downing St, London")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if got.Latitude != 51.5034 || got.Longitude != -0.1276 {
		t.Errorf("coordinates = (%v, %v)", got.Latitude, got.Longitude)
	}
	if got.Confidence != 10 || got.Components["country"] != "United Kingdom" {
		t.Errorf("result = %+v", got)
	}
}

func TestGeocodeNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"results": []}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")
	if _, err := c.Geocode(context.Background(), "nowhere at all"); err == nil {
		t.Fatal("expected an error for an empty result set")
	}
}

func TestGeocodeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusPaymentRequired)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")
	if _, err := c.Geocode(context.Background(), "anywhere"); err == nil {
		t.Fatal("expected an error for a non-200 status")
	}
}
