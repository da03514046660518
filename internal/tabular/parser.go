// Package tabular turns loosely-typed row records into Location entities.
// It is deliberately lenient: a malformed row is defaulted, never dropped.
package tabular

import (
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/sitewise/cog/internal/domain/analysis"
)

// Alias tables, consulted in priority order with case-sensitive exact
// matches. Extend here rather than probing keys dynamically.
var (
	latitudeAliases  = []string{"latitude", "Latitude", "lat", "Lat"}
	longitudeAliases = []string{"longitude", "Longitude", "lng", "Lng", "long", "Long"}
	weightAliases    = []string{"weight", "Weight", "volume", "Volume"}
	nameAliases      = []string{"name", "Name", "location", "Location"}
	addressAliases   = []string{"address", "Address"}
)

// reservedColumns are lowercase names claimed by the alias tables; anything
// else with a non-empty value lands in BusinessDimensions.
var reservedColumns = map[string]bool{
	"latitude": true, "longitude": true, "lat": true, "lng": true, "long": true,
	"weight": true, "volume": true, "name": true, "address": true, "location": true,
}

// ParseLocations converts rows into Locations, one per row, in order.
// Missing or unparseable coordinates default to (0,0) and missing weight
// to 1; rows are never dropped. The (0,0) fallback feeds a spurious point
// into the centroid for malformed input.
func ParseLocations(rows []map[string]string) []analysis.Location {
	locations := make([]analysis.Location, 0, len(rows))
	for i, row := range rows {
		locations = append(locations, parseRow(row, i))
	}
	return locations
}

func parseRow(row map[string]string, index int) analysis.Location {
	lat, latOK := lookupFloat(row, latitudeAliases)
	lng, lngOK := lookupFloat(row, longitudeAliases)
	if !latOK || !lngOK {
		log.Printf("row %d: missing coordinates, defaulting to (0,0)", index)
		lat, lng = 0, 0
	}

	weight, ok := lookupFloat(row, weightAliases)
	if !ok {
		weight = 1
	}

	name := lookupString(row, nameAliases)
	if name == "" {
		name = fmt.Sprintf("Location %d", index)
	}

	dimensions := map[string]string{}
	for key, value := range row {
		if reservedColumns[strings.ToLower(key)] || value == "" {
			continue
		}
		dimensions[key] = value
	}
	if len(dimensions) == 0 {
		dimensions = nil
	}

	return analysis.Location{
		ID:                 "loc-" + uuid.New().String(),
		Name:               name,
		Address:            lookupString(row, addressAliases),
		Latitude:           lat,
		Longitude:          lng,
		Weight:             weight,
		Type:               analysis.TypeCustomer,
		BusinessDimensions: dimensions,
	}
}

// lookupFloat returns the first alias whose value parses as a finite number.
func lookupFloat(row map[string]string, aliases []string) (float64, bool) {
	for _, alias := range aliases {
		raw, ok := row[alias]
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		return f, true
	}
	return 0, false
}

func lookupString(row map[string]string, aliases []string) string {
	for _, alias := range aliases {
		if v, ok := row[alias]; ok && v != "" {
			return v
		}
	}
	return ""
}
