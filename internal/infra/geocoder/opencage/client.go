// Package opencage is the external geocoding collaborator. Failures are
// opaque to the core, which isolates them per batch item.
package opencage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	domain "github.com/sitewise/cog/internal/domain/geocoding"
)

const defaultEndpoint = "https://api.opencagedata.com/geocode/v1/json"

type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// NewClient builds a geocoding client. An empty endpoint uses the public API.
// Constructed once per process and reused.
func NewClient(endpoint, apiKey string) *Client {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

// response is shaped for the OpenCage API payload.
type response struct {
	Results []struct {
		Geometry struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"geometry"`
		Formatted  string            `json:"formatted"`
		Confidence int               `json:"confidence"`
		Components map[string]string `json:"components"`
	} `json:"results"`
	Status struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"status"`
}

func (c *Client) Geocode(ctx context.Context, address string) (domain.Geocoded, error) {
	params := url.Values{}
	params.Set("q", address)
	params.Set("key", c.apiKey)
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return domain.Geocoded{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Geocoded{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Geocoded{}, fmt.Errorf("geocoder returned %s", resp.Status)
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.Geocoded{}, fmt.Errorf("decoding geocoder response: %w", err)
	}
	if len(body.Results) == 0 {
		return domain.Geocoded{}, fmt.Errorf("no geocoding results found for %q", address)
	}

	first := body.Results[0]
	return domain.Geocoded{
		Latitude:         first.Geometry.Lat,
		Longitude:        first.Geometry.Lng,
		FormattedAddress: first.Formatted,
		Confidence:       first.Confidence,
		Components:       first.Components,
	}, nil
}
