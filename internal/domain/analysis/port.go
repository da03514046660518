package analysis

import "context"

// Repository port (interface untuk persistence)
type Repository interface {
	SaveAnalysis(ctx context.Context, a *AnalysisResult) error
	Get(ctx context.Context, userID string, id AnalysisID) (*AnalysisResult, error)
	Latest(ctx context.Context, userID string, limit int) ([]*AnalysisResult, error)

	// Cache lookups; CachedResult returns nil (no error) when nothing
	// non-expired matches (userID, sourceFileKey).
	SaveCacheItem(ctx context.Context, item *CacheItem) error
	CachedResult(ctx context.Context, userID, sourceFileKey string) (*CacheItem, error)
}

// RowSource port: supplies the ordered, string-keyed rows of a source file.
// The storage format behind a key is the source's concern, not the core's.
type RowSource interface {
	Rows(ctx context.Context, key string) ([]map[string]string, error)
}

// EventPublisher port for completed-analysis notifications. Publishing is
// best-effort; callers log and ignore failures.
type EventPublisher interface {
	AnalysisCompleted(ctx context.Context, a *AnalysisResult) error
}
