package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/okian/medalist/internal/domain/model"
)

// qualifyRequest marks finalists either manually by id list or
// automatically by top-N cutoff over an optional category filter.
// Exactly one of the two modes must be used.
type qualifyRequest struct {
	ParticipantIDs []string `json:"participant_ids" validate:"omitempty,min=1,dive,required"`
	AutoQualifyTop int      `json:"auto_qualify_top" validate:"omitempty,gte=1"`
	Event          string   `json:"event"`
	AgeCategory    string   `json:"age_category"`
	Gender         string   `json:"gender"`
}

type qualifyResponse struct {
	QualifiedCount int `json:"qualified_count"`
}

// handlePostQualify handles POST /rankings/{competition}/qualify.
func (s *Server) handlePostQualify(w http.ResponseWriter, r *http.Request) {
	competitionID := r.PathValue("competition")

	var req qualifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if (len(req.ParticipantIDs) == 0) == (req.AutoQualifyTop == 0) {
		writeError(w, http.StatusBadRequest, "bad_request", ErrQualifyMode)
		return
	}

	var count int
	var err error
	if req.AutoQualifyTop > 0 {
		f := model.Filter{Event: req.Event, AgeCategory: req.AgeCategory, Gender: req.Gender}
		count, err = s.deps.QualifyAutoTop(r.Context(), competitionID, f, req.AutoQualifyTop)
	} else {
		count, err = s.deps.QualifyManual(r.Context(), competitionID, req.ParticipantIDs)
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, qualifyResponse{QualifiedCount: count})
}

// handleGetQualifiers handles GET /rankings/{competition}/qualifiers.
// Read-only preview of who a top-N cutoff would admit.
func (s *Server) handleGetQualifiers(w http.ResponseWriter, r *http.Request) {
	competitionID := r.PathValue("competition")
	q := r.URL.Query()

	topN := 0
	if raw := q.Get("qualify_count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		topN = n
	}

	f := model.Filter{
		Event:       q.Get("event"),
		AgeCategory: q.Get("age_category"),
		Gender:      q.Get("gender"),
	}
	preview, err := s.deps.PreviewQualifiers(r.Context(), competitionID, f, topN)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}
