// Package geomath holds the pure geographic math behind an analysis:
// weighted centroid, great-circle distance and lead-time estimation. No I/O.
package geomath

import (
	"errors"
	"log"
	"math"

	"github.com/sitewise/cog/internal/domain/analysis"
)

const (
	// earthRadiusKm for the haversine formula.
	earthRadiusKm = 6371.0

	// TransportRateKmPerDay is the assumed average transport speed.
	TransportRateKmPerDay = 800.0

	// processingOverheadDays is the fixed handling time added to every
	// shipment regardless of distance.
	processingOverheadDays = 0.5
)

// ErrEmptyInput indicates a computation over zero locations.
var ErrEmptyInput = errors.New("no locations provided")

// ErrZeroWeight indicates the valid locations' weights sum to zero.
var ErrZeroWeight = errors.New("total weight is zero, cannot compute center of gravity")

// Centroid returns the weight-normalized average coordinate of the given
// locations. Locations with non-finite coordinates or weight are skipped with
// a warning. This is a plain weighted mean, not a spherical centroid, which
// is fine at regional scale.
func Centroid(locations []analysis.Location) (analysis.CenterOfGravity, error) {
	if len(locations) == 0 {
		return analysis.CenterOfGravity{}, ErrEmptyInput
	}

	var totalWeight, latSum, lngSum float64
	for _, loc := range locations {
		if !finite(loc.Latitude) || !finite(loc.Longitude) || !finite(loc.Weight) {
			log.Printf("skipping location %s: non-finite coordinate or weight", loc.ID)
			continue
		}
		totalWeight += loc.Weight
		latSum += loc.Latitude * loc.Weight
		lngSum += loc.Longitude * loc.Weight
	}
	if totalWeight == 0 {
		return analysis.CenterOfGravity{}, ErrZeroWeight
	}

	return analysis.CenterOfGravity{
		Latitude:  latSum / totalWeight,
		Longitude: lngSum / totalWeight,
	}, nil
}

// Distance computes the great-circle distance in kilometers between two
// coordinates using the haversine formula.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// LeadTime estimates delivery days for a distance at the default transport
// rate.
func LeadTime(distanceKm float64) float64 {
	return LeadTimeAtRate(distanceKm, TransportRateKmPerDay)
}

// LeadTimeAtRate estimates delivery days at an explicit km/day rate.
func LeadTimeAtRate(distanceKm, rateKmPerDay float64) float64 {
	return processingOverheadDays + distanceKm/rateKmPerDay
}

// Metrics derives per-location distances and lead times against the center
// and aggregates them. Weighting follows the same rules as Centroid.
func Metrics(locations []analysis.Location, center analysis.CenterOfGravity) (analysis.Metrics, error) {
	if len(locations) == 0 {
		return analysis.Metrics{}, ErrEmptyInput
	}

	var (
		valid            int
		totalWeight      float64
		totalDistance    float64
		maxDistance      float64
		weightedDistance float64
		totalLeadTime    float64
		maxLeadTime      float64
	)
	for _, loc := range locations {
		if !finite(loc.Latitude) || !finite(loc.Longitude) || !finite(loc.Weight) {
			continue
		}
		d := Distance(loc.Latitude, loc.Longitude, center.Latitude, center.Longitude)
		lt := LeadTime(d)

		valid++
		totalDistance += d
		totalLeadTime += lt
		if d > maxDistance {
			maxDistance = d
		}
		if lt > maxLeadTime {
			maxLeadTime = lt
		}
		totalWeight += loc.Weight
		weightedDistance += d * loc.Weight
	}
	if totalWeight == 0 {
		return analysis.Metrics{}, ErrZeroWeight
	}

	n := float64(valid)
	return analysis.Metrics{
		TotalDistance:    totalDistance,
		AverageDistance:  totalDistance / n,
		MaxDistance:      maxDistance,
		WeightedDistance: weightedDistance / totalWeight,
		TotalLeadTime:    totalLeadTime,
		AverageLeadTime:  totalLeadTime / n,
		MaxLeadTime:      maxLeadTime,
	}, nil
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
