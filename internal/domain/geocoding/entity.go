package geocoding

import "time"

// Status enum for a single address in a batch
type Status string

const (
	StatusGeocoded Status = "geocoded"
	StatusExisting Status = "existing"
	StatusCached   Status = "cached"
	StatusError    Status = "error"
)

// AddressInput is one entry of a geocoding request. Latitude/Longitude are
// pointers so "not supplied" is distinguishable from zero.
type AddressInput struct {
	ID        string   `json:"id"`
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Geocoded is what the external collaborator returns for one address.
type Geocoded struct {
	Latitude         float64           `json:"latitude"`
	Longitude        float64           `json:"longitude"`
	FormattedAddress string            `json:"formattedAddress"`
	Confidence       int               `json:"confidence,omitempty"`
	Components       map[string]string `json:"components,omitempty"`
}

// Result is the per-address outcome. Identity is tracked by ID, not position.
type Result struct {
	ID               string            `json:"id"`
	Address          string            `json:"address"`
	Latitude         float64           `json:"latitude,omitempty"`
	Longitude        float64           `json:"longitude,omitempty"`
	FormattedAddress string            `json:"formattedAddress,omitempty"`
	Confidence       int               `json:"confidence,omitempty"`
	Components       map[string]string `json:"components,omitempty"`
	Status           Status            `json:"status"`
	Error            string            `json:"error,omitempty"`
}

// Succeeded reports whether the result counts toward the success rate.
func (r Result) Succeeded() bool {
	return r.Status == StatusGeocoded || r.Status == StatusExisting || r.Status == StatusCached
}

// CacheItem is one successfully geocoded address, keyed for lookup by
// (userId, normalizedAddress).
type CacheItem struct {
	ID                string            `json:"id"`
	UserID            string            `json:"userId"`
	CreatedAt         time.Time         `json:"createdAt"`
	Type              string            `json:"type"`
	NormalizedAddress string            `json:"normalizedAddress"`
	Address           string            `json:"address"`
	Latitude          float64           `json:"latitude"`
	Longitude         float64           `json:"longitude"`
	FormattedAddress  string            `json:"formattedAddress"`
	Confidence        int               `json:"confidence,omitempty"`
	Components        map[string]string `json:"components,omitempty"`
	TTL               int64             `json:"ttl"`
}

// CacheItemType is the stored type attribute for per-address cache records.
const CacheItemType = "geocoding-cache-item"

// BatchRecord is the aggregate record persisted for one geocoding run; its ID
// is the cacheId returned to the caller.
type BatchRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	Type      string    `json:"type"`
	Results   []Result  `json:"results"`
	TTL       int64     `json:"ttl"`
}

// BatchRecordType is the stored type attribute for batch records.
const BatchRecordType = "geocoding-cache"

// Stats aggregates a batch outcome. SuccessRate is a percentage with one
// decimal, kept as a string for wire stability.
type Stats struct {
	Total       int    `json:"total"`
	Success     int    `json:"success"`
	Error       int    `json:"error"`
	SuccessRate string `json:"successRate"`
	FromCache   int    `json:"fromCache"`
}
