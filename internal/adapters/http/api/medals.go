package api

import (
	"net/http"

	"github.com/okian/medalist/internal/domain/medals"
	"github.com/okian/medalist/internal/domain/model"
)

// handleGetMedalTally handles GET /rankings/{competition}/medals.
// Query: group_by (school|zone|age_category|event, default school),
// section_type (default main).
func (s *Server) handleGetMedalTally(w http.ResponseWriter, r *http.Request) {
	competitionID := r.PathValue("competition")
	q := r.URL.Query()
	groupBy := q.Get("group_by")
	if groupBy == "" {
		groupBy = medals.GroupBySchool
	}
	sectionType := q.Get("section_type")
	if sectionType == "" {
		sectionType = model.SectionMain
	}

	tally, err := s.deps.ComputeMedalTally(r.Context(), competitionID, sectionType, groupBy)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"group_by":     groupBy,
		"section_type": sectionType,
		"medal_tally":  tally,
	})
}
