package analysis

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/sitewise/cog/internal/application"
	domain "github.com/sitewise/cog/internal/domain/analysis"
	"github.com/sitewise/cog/internal/geomath"
	"github.com/sitewise/cog/internal/tabular"
)

const (
	analysisTTLDays = 30
	cacheTTLDays    = 7
)

// Service implements use-cases for center-of-gravity analyses.
// Collaborators are injected once at process start and reused.
type Service struct {
	Repo   domain.Repository
	Rows   domain.RowSource
	Events domain.EventPublisher // optional
	Clock  application.Clock

	MaxLocations int
	CacheEnabled bool
}

// RunCommand asks for an analysis of one source file.
type RunCommand struct {
	SourceFileKey string
	Name          string
	Description   string
	UserID        string
}

// RunOutcome carries the persisted analysis and whether it was cloned from
// a cached computation.
type RunOutcome struct {
	Analysis  *domain.AnalysisResult
	FromCache bool
}

//
// ==== USE CASES ====
//

// Run computes (or clones from cache) the center of gravity for a source
// file, persists the analysis record and returns it.
//
// The cache is keyed purely on (userId, sourceFileKey): it is only correct
// while a file key's content never changes. Overwriting a key with new rows
// would serve stale results until the 7-day cache entry expires.
func (s *Service) Run(ctx context.Context, cmd RunCommand) (RunOutcome, error) {
	now := s.Clock.Now()

	if s.CacheEnabled {
		if outcome, ok := s.runFromCache(ctx, cmd); ok {
			return outcome, nil
		}
	}

	rows, err := s.Rows.Rows(ctx, cmd.SourceFileKey)
	if err != nil {
		return RunOutcome{}, fmt.Errorf("reading source file %s: %w", cmd.SourceFileKey, err)
	}
	if len(rows) == 0 {
		return RunOutcome{}, domain.ErrEmptyDataset
	}
	// Cost-control gate, checked before any geo computation.
	if s.MaxLocations > 0 && len(rows) > s.MaxLocations {
		return RunOutcome{}, &domain.DatasetTooLargeError{Count: len(rows), Max: s.MaxLocations}
	}

	locations := tabular.ParseLocations(rows)

	center, err := geomath.Centroid(locations)
	if err != nil {
		return RunOutcome{}, err
	}
	metrics, err := geomath.Metrics(locations, center)
	if err != nil {
		return RunOutcome{}, err
	}

	stored := locations
	if len(stored) > domain.StoredLocationLimit {
		stored = stored[:domain.StoredLocationLimit]
	}

	result := &domain.AnalysisResult{
		ID:            domain.AnalysisID("analysis-" + uuid.New().String()),
		UserID:        cmd.UserID,
		CreatedAt:     now,
		Name:          cmd.Name,
		Description:   cmd.Description,
		SourceFileKey: cmd.SourceFileKey,
		Locations:     stored,
		LocationCount: len(locations),
		Results: domain.Results{
			CenterOfGravity: center,
			Metrics:         metrics,
		},
		TTL: now.AddDate(0, 0, analysisTTLDays).Unix(),
	}

	// The analysis record is the primary result; losing it is a hard failure.
	if err := s.Repo.SaveAnalysis(ctx, result); err != nil {
		return RunOutcome{}, fmt.Errorf("saving analysis: %w", err)
	}
	log.Printf("saved analysis %s for user %s (%d locations)", result.ID, cmd.UserID, result.LocationCount)

	if s.CacheEnabled {
		item := &domain.CacheItem{
			ID:            "analysis-cache-" + uuid.New().String(),
			UserID:        cmd.UserID,
			CreatedAt:     now,
			Type:          domain.CacheItemType,
			SourceFileKey: cmd.SourceFileKey,
			Results:       result.Results,
			TTL:           now.AddDate(0, 0, cacheTTLDays).Unix(),
		}
		if err := s.Repo.SaveCacheItem(ctx, item); err != nil {
			log.Printf("caching analysis result failed: %v", err)
		}
	}

	s.publish(ctx, result)

	return RunOutcome{Analysis: result, FromCache: false}, nil
}

// runFromCache clones a cached computation into a freshly identified
// analysis. Any cache trouble falls through to a regular run.
func (s *Service) runFromCache(ctx context.Context, cmd RunCommand) (RunOutcome, bool) {
	now := s.Clock.Now()

	cached, err := s.Repo.CachedResult(ctx, cmd.UserID, cmd.SourceFileKey)
	if err != nil {
		log.Printf("analysis cache lookup failed: %v", err)
		return RunOutcome{}, false
	}
	if cached == nil {
		return RunOutcome{}, false
	}
	log.Printf("analysis cache hit for user %s, file %s", cmd.UserID, cmd.SourceFileKey)

	result := &domain.AnalysisResult{
		ID:            domain.AnalysisID("analysis-" + uuid.New().String()),
		UserID:        cmd.UserID,
		CreatedAt:     now,
		Name:          cmd.Name,
		Description:   cmd.Description,
		SourceFileKey: cmd.SourceFileKey,
		Results:       cached.Results,
		TTL:           now.AddDate(0, 0, analysisTTLDays).Unix(),
	}
	if err := s.Repo.SaveAnalysis(ctx, result); err != nil {
		log.Printf("saving cloned analysis failed, recomputing: %v", err)
		return RunOutcome{}, false
	}

	s.publish(ctx, result)

	return RunOutcome{Analysis: result, FromCache: true}, true
}

func (s *Service) publish(ctx context.Context, a *domain.AnalysisResult) {
	if s.Events == nil {
		return
	}
	if err := s.Events.AnalysisCompleted(ctx, a); err != nil {
		log.Printf("publishing analysis event failed: %v", err)
	}
}

// Get returns one analysis by id.
func (s *Service) Get(ctx context.Context, userID string, id domain.AnalysisID) (*domain.AnalysisResult, error) {
	return s.Repo.Get(ctx, userID, id)
}

// Latest returns the user's most recent analyses.
func (s *Service) Latest(ctx context.Context, userID string, limit int) ([]*domain.AnalysisResult, error) {
	return s.Repo.Latest(ctx, userID, limit)
}
