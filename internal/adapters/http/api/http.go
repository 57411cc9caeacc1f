// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/okian/medalist/internal/adapters/repository"
	service "github.com/okian/medalist/internal/app"
	"github.com/okian/medalist/internal/domain/medals"
	"github.com/okian/medalist/internal/domain/model"
	"github.com/okian/medalist/internal/domain/ranking"
)

// Dependencies required by HTTP handlers. Using an interface bundle
// keeps the handler layer loosely coupled to the service package.
type Dependencies interface {
	RecordSeries(ctx context.Context, participantID string, seriesNumber int, shots []int) (model.SeriesScore, error)
	RecordShot(ctx context.Context, participantID string, seriesNumber, shotNumber, score int) error
	DeleteSeries(ctx context.Context, participantID string, seriesNumber int) error
	ListSeries(ctx context.Context, participantID string) ([]model.SeriesScore, error)

	ComputeRanking(ctx context.Context, f model.Filter, limit, offset int) ([]ranking.Entry, int, error)
	ComputeCategoryRankings(ctx context.Context, competitionID, sectionType string, topN int) (map[model.CategoryKey][]ranking.Entry, error)
	ComputeMedalTally(ctx context.Context, competitionID, sectionType, groupBy string) ([]medals.GroupStanding, error)

	QualifyManual(ctx context.Context, competitionID string, participantIDs []string) (int, error)
	QualifyAutoTop(ctx context.Context, competitionID string, f model.Filter, topN int) (int, error)
	PreviewQualifiers(ctx context.Context, competitionID string, f model.Filter, topN int) (service.QualifierPreview, error)

	ExportRankingCSV(ctx context.Context, f model.Filter) ([]byte, error)
	GetStats(ctx context.Context) map[string]any
}

// Server wires HTTP routes for the engine API.
type Server struct {
	deps      Dependencies
	validate  *validator.Validate
	pageLimit int
	maxLimit  int
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithPageLimits sets the default and maximum page size for ranking
// requests.
func WithPageLimits(defaultLimit, maxLimit int) Option {
	return func(s *Server) {
		if defaultLimit > 0 {
			s.pageLimit = defaultLimit
		}
		if maxLimit > 0 {
			s.maxLimit = maxLimit
		}
	}
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:      deps,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		pageLimit: 100,
		maxLimit:  500,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.handleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.handleStats, "stats"))

	mux.HandleFunc("GET /rankings/{competition}", MetricsMiddleware(s.handleGetRanking, "rankings"))
	mux.HandleFunc("GET /rankings/{competition}/categories", MetricsMiddleware(s.handleGetCategoryRankings, "category_rankings"))
	mux.HandleFunc("GET /rankings/{competition}/medals", MetricsMiddleware(s.handleGetMedalTally, "medal_tally"))
	mux.HandleFunc("GET /rankings/{competition}/qualifiers", MetricsMiddleware(s.handleGetQualifiers, "qualifiers"))
	mux.HandleFunc("POST /rankings/{competition}/qualify", MetricsMiddleware(s.handlePostQualify, "qualify"))
	mux.HandleFunc("GET /rankings/{competition}/export", MetricsMiddleware(s.handleExportCSV, "export"))

	mux.HandleFunc("GET /scores/{participant}", MetricsMiddleware(s.handleGetSeries, "scores_get"))
	mux.HandleFunc("POST /scores/{participant}/series/{series}", MetricsMiddleware(s.handlePostSeries, "scores_post"))
	mux.HandleFunc("PUT /scores/{participant}/series/{series}/shots/{shot}", MetricsMiddleware(s.handlePutShot, "shot_put"))
	mux.HandleFunc("DELETE /scores/{participant}/series/{series}", MetricsMiddleware(s.handleDeleteSeries, "scores_delete"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeEngineError translates engine error kinds to HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "invalid_argument", err)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, repository.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err)
	default:
		writeError(w, http.StatusInternalServerError, "storage_failure", err)
	}
}

// filterFromQuery builds a participant filter from shared query params.
func filterFromQuery(r *http.Request, competitionID string) model.Filter {
	q := r.URL.Query()
	return model.Filter{
		CompetitionID: competitionID,
		Event:         q.Get("event"),
		AgeCategory:   q.Get("age_category"),
		Gender:        q.Get("gender"),
		SectionType:   q.Get("section_type"),
		DetailID:      q.Get("detail_id"),
	}
}
