package geocoding

import "context"

// Geocoder port (interface untuk external geocoding collaborator)
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Geocoded, error)
}

// Cache port for per-address and per-batch records.
type Cache interface {
	// Lookup returns every non-expired item for the user whose
	// normalizedAddress is in the given set.
	Lookup(ctx context.Context, userID string, normalized []string) ([]*CacheItem, error)
	SaveItem(ctx context.Context, item *CacheItem) error
	SaveBatch(ctx context.Context, rec *BatchRecord) error
}
