package geocoding

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sitewise/cog/internal/application"
	domain "github.com/sitewise/cog/internal/domain/geocoding"
)

const batchRecordTTLDays = 7

// Service implements use-cases for geocoding batches.
// Safe for concurrent use; every batch item is an independent unit of work.
type Service struct {
	Geocoder domain.Geocoder
	Cache    domain.Cache
	Clock    application.Clock

	MaxBatchSize int
	CacheEnabled bool
	CacheTTLDays int
}

// BatchCommand is one geocoding request.
type BatchCommand struct {
	UserID    string
	Addresses []domain.AddressInput
}

// BatchOutcome aggregates a completed batch.
type BatchOutcome struct {
	CacheID string          `json:"cacheId"`
	Results []domain.Result `json:"results"`
	Stats   domain.Stats    `json:"stats"`
}

//
// ==== USE CASES ====
//

// GeocodeBatch resolves a batch of addresses: items already carrying finite
// coordinates are passed through, cached addresses are served from the store,
// and the rest fan out to the external geocoder concurrently with per-item
// failure isolation. The whole batch is joined before anything is returned.
func (s *Service) GeocodeBatch(ctx context.Context, cmd BatchCommand) (BatchOutcome, error) {
	if s.MaxBatchSize > 0 && len(cmd.Addresses) > s.MaxBatchSize {
		return BatchOutcome{}, &domain.BatchTooLargeError{Size: len(cmd.Addresses), Max: s.MaxBatchSize}
	}

	now := s.Clock.Now()
	results := make([]domain.Result, 0, len(cmd.Addresses))

	// Items that already have usable coordinates never hit cache or geocoder.
	var unresolved []domain.AddressInput
	for _, item := range cmd.Addresses {
		if hasFiniteCoordinates(item) {
			results = append(results, domain.Result{
				ID:               item.ID,
				Address:          item.Address,
				Latitude:         *item.Latitude,
				Longitude:        *item.Longitude,
				FormattedAddress: item.Address,
				Status:           domain.StatusExisting,
			})
			continue
		}
		unresolved = append(unresolved, item)
	}

	cached, toGeocode := s.resolveFromCache(ctx, cmd.UserID, unresolved)
	results = append(results, cached...)

	results = append(results, s.geocodeAll(ctx, cmd.UserID, toGeocode, now)...)

	stats := computeStats(results)
	log.Printf("geocoding complete for user %s: %d/%d ok (%s%%)",
		cmd.UserID, stats.Success, stats.Total, stats.SuccessRate)

	record := &domain.BatchRecord{
		ID:        "geocache-" + uuid.New().String(),
		UserID:    cmd.UserID,
		CreatedAt: now,
		Type:      domain.BatchRecordType,
		Results:   results,
		TTL:       now.AddDate(0, 0, batchRecordTTLDays).Unix(),
	}
	// Losing the batch record loses the primary result of the run, unlike the
	// per-item cache writes below.
	if err := s.Cache.SaveBatch(ctx, record); err != nil {
		return BatchOutcome{}, fmt.Errorf("saving geocoding batch: %w", err)
	}

	return BatchOutcome{CacheID: record.ID, Results: results, Stats: stats}, nil
}

// resolveFromCache partitions items into cache hits and the set still needing
// a geocoder call. A failed lookup degrades to "cache empty": geocode all.
func (s *Service) resolveFromCache(ctx context.Context, userID string, items []domain.AddressInput) (hits []domain.Result, misses []domain.AddressInput) {
	if !s.CacheEnabled || len(items) == 0 {
		return nil, items
	}

	byNormalized := make(map[string][]domain.AddressInput, len(items))
	keys := make([]string, 0, len(items))
	for _, item := range items {
		key := domain.Normalize(item.Address)
		if _, seen := byNormalized[key]; !seen {
			keys = append(keys, key)
		}
		byNormalized[key] = append(byNormalized[key], item)
	}

	found, err := s.Cache.Lookup(ctx, userID, keys)
	if err != nil {
		log.Printf("geocode cache lookup failed, geocoding everything: %v", err)
		return nil, items
	}

	for _, ci := range found {
		group, ok := byNormalized[ci.NormalizedAddress]
		if !ok {
			continue
		}
		for _, item := range group {
			hits = append(hits, domain.Result{
				ID:               item.ID,
				Address:          item.Address,
				Latitude:         ci.Latitude,
				Longitude:        ci.Longitude,
				FormattedAddress: ci.FormattedAddress,
				Confidence:       ci.Confidence,
				Components:       ci.Components,
				Status:           domain.StatusCached,
			})
		}
		delete(byNormalized, ci.NormalizedAddress)
	}

	for _, item := range items {
		if _, still := byNormalized[domain.Normalize(item.Address)]; still {
			misses = append(misses, item)
		}
	}
	return hits, misses
}

// geocodeAll fans out one goroutine per item and joins the whole set. A
// failed item yields a tagged error result and never cancels its siblings.
func (s *Service) geocodeAll(ctx context.Context, userID string, items []domain.AddressInput, now time.Time) []domain.Result {
	if len(items) == 0 {
		return nil
	}

	out := make(chan domain.Result, len(items))
	var wg sync.WaitGroup
	for _, item := range items {
		wg.Add(1)
		go func(item domain.AddressInput) {
			defer wg.Done()
			out <- s.geocodeOne(ctx, userID, item, now)
		}(item)
	}
	wg.Wait()
	close(out)

	results := make([]domain.Result, 0, len(items))
	for r := range out {
		results = append(results, r)
	}
	return results
}

func (s *Service) geocodeOne(ctx context.Context, userID string, item domain.AddressInput, now time.Time) domain.Result {
	geocoded, err := s.Geocoder.Geocode(ctx, item.Address)
	if err != nil {
		log.Printf("geocoding %q failed: %v", item.Address, err)
		return domain.Result{
			ID:      item.ID,
			Address: item.Address,
			Status:  domain.StatusError,
			Error:   err.Error(),
		}
	}

	if s.CacheEnabled {
		ttlDays := s.CacheTTLDays
		if ttlDays <= 0 {
			ttlDays = 30
		}
		ci := &domain.CacheItem{
			ID:                "geo-cache-" + uuid.New().String(),
			UserID:            userID,
			CreatedAt:         now,
			Type:              domain.CacheItemType,
			NormalizedAddress: domain.Normalize(item.Address),
			Address:           item.Address,
			Latitude:          geocoded.Latitude,
			Longitude:         geocoded.Longitude,
			FormattedAddress:  geocoded.FormattedAddress,
			Confidence:        geocoded.Confidence,
			Components:        geocoded.Components,
			TTL:               now.AddDate(0, 0, ttlDays).Unix(),
		}
		// Best-effort: a lost cache entry only costs a future API call.
		if err := s.Cache.SaveItem(ctx, ci); err != nil {
			log.Printf("caching geocode result for %q failed: %v", item.Address, err)
		}
	}

	return domain.Result{
		ID:               item.ID,
		Address:          item.Address,
		Latitude:         geocoded.Latitude,
		Longitude:        geocoded.Longitude,
		FormattedAddress: geocoded.FormattedAddress,
		Confidence:       geocoded.Confidence,
		Components:       geocoded.Components,
		Status:           domain.StatusGeocoded,
	}
}

func computeStats(results []domain.Result) domain.Stats {
	stats := domain.Stats{Total: len(results)}
	for _, r := range results {
		if r.Succeeded() {
			stats.Success++
		}
		if r.Status == domain.StatusCached {
			stats.FromCache++
		}
	}
	stats.Error = stats.Total - stats.Success
	rate := 0.0
	if stats.Total > 0 {
		rate = float64(stats.Success) / float64(stats.Total) * 100
	}
	stats.SuccessRate = fmt.Sprintf("%.1f", rate)
	return stats
}

func hasFiniteCoordinates(item domain.AddressInput) bool {
	if item.Latitude == nil || item.Longitude == nil {
		return false
	}
	return finite(*item.Latitude) && finite(*item.Longitude)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
