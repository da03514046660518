package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appanalysis "github.com/sitewise/cog/internal/application/analysis"
	appgeocoding "github.com/sitewise/cog/internal/application/geocoding"
	analysisdomain "github.com/sitewise/cog/internal/domain/analysis"
	geodomain "github.com/sitewise/cog/internal/domain/geocoding"
	"github.com/sitewise/cog/internal/middleware"
)

type Router struct {
	analysisSvc  *appanalysis.Service
	geocodingSvc *appgeocoding.Service
}

func NewRouter(analysisSvc *appanalysis.Service, geocodingSvc *appgeocoding.Service) http.Handler {
	r := &Router{analysisSvc: analysisSvc, geocodingSvc: geocodingSvc}
	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	mux.Route("/v1", func(rt chi.Router) {
		rt.Post("/analysis", r.wrap(r.handleRunAnalysis))
		rt.Post("/geocode", r.wrap(r.handleGeocode))
		rt.Get("/analyses", r.wrap(r.handleLatest))
		rt.Get("/analyses/{id}", r.wrap(r.handleGet))
	})

	return mux
}

// validationError marks missing/malformed request fields; never retried.
type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }

func missingFields(fields ...string) error {
	return &validationError{msg: "missing required parameters: " + strings.Join(fields, ", ")}
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		var (
			invalid       *validationError
			datasetLimit  *analysisdomain.DatasetTooLargeError
			batchLimit    *geodomain.BatchTooLargeError
		)
		switch {
		case errors.As(err, &invalid),
			errors.As(err, &datasetLimit),
			errors.As(err, &batchLimit),
			errors.Is(err, analysisdomain.ErrEmptyDataset):
			writeError(w, http.StatusBadRequest, err)
		case errors.Is(err, sql.ErrNoRows):
			writeError(w, http.StatusNotFound, errors.New("not found"))
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}

// POST /v1/analysis
func (r *Router) handleRunAnalysis(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		SourceFileKey string         `json:"sourceFileKey"`
		AnalysisName  string         `json:"analysisName"`
		Description   string         `json:"description"`
		UserID        string         `json:"userId"`
		Parameters    map[string]any `json:"parameters"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return &validationError{msg: "invalid request body: " + err.Error()}
	}

	var missing []string
	if body.SourceFileKey == "" {
		missing = append(missing, "sourceFileKey")
	}
	if body.AnalysisName == "" {
		missing = append(missing, "analysisName")
	}
	if body.UserID == "" {
		missing = append(missing, "userId")
	}
	if len(missing) > 0 {
		return missingFields(missing...)
	}
	if err := middleware.ValidateUserID(body.UserID); err != nil {
		return &validationError{msg: err.Error()}
	}
	if err := middleware.ValidateSourceFileKey(body.SourceFileKey); err != nil {
		return &validationError{msg: err.Error()}
	}

	middleware.IncrementAnalyses()
	out, err := r.analysisSvc.Run(req.Context(), appanalysis.RunCommand{
		SourceFileKey: body.SourceFileKey,
		Name:          middleware.SanitizeString(body.AnalysisName),
		Description:   middleware.SanitizeString(body.Description),
		UserID:        body.UserID,
	})
	if err != nil {
		middleware.IncrementAnalysesFailed()
		return err
	}
	if out.FromCache {
		middleware.IncrementAnalysesFromCache()
	}

	message := "Analysis completed successfully"
	if out.FromCache {
		message = "Analysis completed successfully (from cache)"
	}
	return writeJSON(w, map[string]any{
		"message":         message,
		"analysisId":      out.Analysis.ID,
		"centerOfGravity": out.Analysis.Results.CenterOfGravity,
		"metrics":         out.Analysis.Results.Metrics,
		"fromCache":       out.FromCache,
	})
}

// POST /v1/geocode
func (r *Router) handleGeocode(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Addresses []geodomain.AddressInput `json:"addresses"`
		UserID    string                   `json:"userId"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return &validationError{msg: "invalid request body: " + err.Error()}
	}
	if len(body.Addresses) == 0 {
		return &validationError{msg: "missing or empty addresses array"}
	}
	if body.UserID == "" {
		return missingFields("userId")
	}
	if err := middleware.ValidateUserID(body.UserID); err != nil {
		return &validationError{msg: err.Error()}
	}

	middleware.IncrementGeocodeBatches()
	out, err := r.geocodingSvc.GeocodeBatch(req.Context(), appgeocoding.BatchCommand{
		UserID:    body.UserID,
		Addresses: body.Addresses,
	})
	if err != nil {
		return err
	}
	middleware.AddAddressesGeocoded(uint64(out.Stats.Success))

	return writeJSON(w, map[string]any{
		"message": "Geocoding completed",
		"cacheId": out.CacheID,
		"results": out.Results,
		"stats":   out.Stats,
	})
}

// GET /v1/analyses?userId=&limit=
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	userID := req.URL.Query().Get("userId")
	if userID == "" {
		return missingFields("userId")
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	limit = middleware.ValidateLimit(limit)

	list, err := r.analysisSvc.Latest(req.Context(), userID, limit)
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// GET /v1/analyses/{id}?userId=
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	userID := req.URL.Query().Get("userId")
	if userID == "" {
		return missingFields("userId")
	}
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateAnalysisID(id); err != nil {
		return &validationError{msg: err.Error()}
	}

	a, err := r.analysisSvc.Get(req.Context(), userID, analysisdomain.AnalysisID(id))
	if err != nil {
		return err
	}
	if a == nil {
		return fmt.Errorf("analysis not found: %w", sql.ErrNoRows)
	}
	return writeJSON(w, a)
}
