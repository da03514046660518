package analysis

import (
	"time"
)

// ID tipe untuk Analysis
type AnalysisID string

// LocationType enum
type LocationType string

const (
	TypeCustomer           LocationType = "customer"
	TypeDistributionCenter LocationType = "distribution-center"
	TypeSupplier           LocationType = "supplier"
)

// Location is one weighted point in an analysis. It is built once by the
// tabular parser and never mutated afterwards.
type Location struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	Address            string            `json:"address,omitempty"`
	Latitude           float64           `json:"latitude"`
	Longitude          float64           `json:"longitude"`
	Weight             float64           `json:"weight"`
	Type               LocationType      `json:"type"`
	BusinessDimensions map[string]string `json:"businessDimensions,omitempty"`
}

// CenterOfGravity value object
type CenterOfGravity struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Metrics are service-level numbers measured against the center of gravity.
type Metrics struct {
	TotalDistance    float64 `json:"totalDistance"`
	AverageDistance  float64 `json:"averageDistance"`
	MaxDistance      float64 `json:"maxDistance"`
	WeightedDistance float64 `json:"weightedDistance"`
	TotalLeadTime    float64 `json:"totalLeadTime"`
	AverageLeadTime  float64 `json:"averageLeadTime"`
	MaxLeadTime      float64 `json:"maxLeadTime"`
}

// Results groups the computed outputs embedded in a stored analysis.
type Results struct {
	CenterOfGravity CenterOfGravity `json:"centerOfGravity"`
	Metrics         Metrics         `json:"metrics"`
}

// StoredLocationLimit caps how many locations are embedded in a persisted
// analysis record. LocationCount keeps the true total.
const StoredLocationLimit = 100

// Aggregate Root: AnalysisResult
type AnalysisResult struct {
	ID            AnalysisID `json:"id"`
	UserID        string     `json:"userId"`
	CreatedAt     time.Time  `json:"createdAt"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	SourceFileKey string     `json:"sourceFileKey"`
	Locations     []Location `json:"locations"`
	LocationCount int        `json:"locationCount"`
	Results       Results    `json:"results"`
	// TTL is a unix-epoch expiry; the store treats elapsed records as absent.
	TTL int64 `json:"ttl"`
}

// CacheItem is a previously computed Results keyed by (userId, sourceFileKey).
// It expires sooner than the analysis record itself.
type CacheItem struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	CreatedAt     time.Time `json:"createdAt"`
	Type          string    `json:"type"`
	SourceFileKey string    `json:"sourceFileKey"`
	Results       Results   `json:"results"`
	TTL           int64     `json:"ttl"`
}

// CacheItemType is the stored type attribute for analysis cache records.
const CacheItemType = "analysis-cache"
