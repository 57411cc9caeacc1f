package api

import (
	"net/http"
	"strconv"

	"github.com/okian/medalist/internal/domain/model"
	"github.com/okian/medalist/internal/domain/ranking"
)

type categoryBlock struct {
	Category model.CategoryKey `json:"category"`
	Entries  []ranking.Entry   `json:"rankings"`
}

// handleGetCategoryRankings handles GET /rankings/{competition}/categories.
// Each (event, age_category, gender) group is ranked independently;
// the response is keyed event_ageCategory_gender.
func (s *Server) handleGetCategoryRankings(w http.ResponseWriter, r *http.Request) {
	competitionID := r.PathValue("competition")
	q := r.URL.Query()
	sectionType := q.Get("section_type")
	if sectionType == "" {
		sectionType = model.SectionMain
	}

	topN := 0
	if raw := q.Get("top_n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		topN = n
	}

	byCategory, err := s.deps.ComputeCategoryRankings(r.Context(), competitionID, sectionType, topN)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	out := make(map[string]categoryBlock, len(byCategory))
	for key, entries := range byCategory {
		out[key.Event+"_"+key.AgeCategory+"_"+key.Gender] = categoryBlock{
			Category: key,
			Entries:  entries,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"section_type":      sectionType,
		"category_rankings": out,
	})
}
