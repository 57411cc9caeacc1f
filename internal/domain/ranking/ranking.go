// Package ranking computes deterministic orderings over participant
// sets. All functions are pure: they never touch storage and never
// mutate their inputs.
package ranking

import (
	"sort"

	"github.com/okian/medalist/internal/domain/model"
)

// Medal positions.
const (
	goldRank   = 1
	silverRank = 2
	bronzeRank = 3
)

// Entry is one row of a computed ranking. Entries are produced fresh
// on every call and never persisted.
type Entry struct {
	Participant model.Participant `json:"participant"`
	Rank        int               `json:"rank_position"`
	Medal       string            `json:"medal,omitempty"`
}

// Less is the ranking order: total score, ten pointers, last series,
// first series, all descending, then student name ascending. Two
// participants that tie on all five keys are ordered by id so the
// order is total regardless of input permutation.
func Less(a, b model.Participant) bool {
	if a.TotalScore != b.TotalScore {
		return a.TotalScore > b.TotalScore
	}
	if a.TenPointers != b.TenPointers {
		return a.TenPointers > b.TenPointers
	}
	if a.LastSeriesScore != b.LastSeriesScore {
		return a.LastSeriesScore > b.LastSeriesScore
	}
	if a.FirstSeriesScore != b.FirstSeriesScore {
		return a.FirstSeriesScore > b.FirstSeriesScore
	}
	if a.StudentName != b.StudentName {
		return a.StudentName < b.StudentName
	}
	return a.ID < b.ID
}

// Rank orders participants and assigns 1-based rank positions and
// medals. The input slice is left untouched.
func Rank(participants []model.Participant) []Entry {
	sorted := make([]model.Participant, len(participants))
	copy(sorted, participants)
	sort.Slice(sorted, func(i, j int) bool { return Less(sorted[i], sorted[j]) })

	entries := make([]Entry, len(sorted))
	for i, p := range sorted {
		entries[i] = Entry{Participant: p, Rank: i + 1, Medal: medalFor(i + 1)}
	}
	return entries
}

func medalFor(rank int) string {
	switch rank {
	case goldRank:
		return model.MedalGold
	case silverRank:
		return model.MedalSilver
	case bronzeRank:
		return model.MedalBronze
	default:
		return model.MedalNone
	}
}

// Page slices an already ranked sequence. Ranks are assigned over the
// full set before slicing, so positions stay correct on every page.
// A limit <= 0 returns the whole tail from offset.
func Page(entries []Entry, limit, offset int) []Entry {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(entries) {
		return []Entry{}
	}
	end := len(entries)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]Entry, end-offset)
	copy(out, entries[offset:end])
	return out
}

// ByCategory groups participants by (event, age_category, gender) and
// ranks each group independently; every group's ranks start at 1.
func ByCategory(participants []model.Participant) map[model.CategoryKey][]Entry {
	groups := make(map[model.CategoryKey][]model.Participant)
	for _, p := range participants {
		key := p.Category()
		groups[key] = append(groups[key], p)
	}
	out := make(map[model.CategoryKey][]Entry, len(groups))
	for key, members := range groups {
		out[key] = Rank(members)
	}
	return out
}

// Top returns the first n entries of a ranked sequence, or all of them
// when fewer exist.
func Top(entries []Entry, n int) []Entry {
	if n < 0 {
		n = 0
	}
	if n > len(entries) {
		n = len(entries)
	}
	out := make([]Entry, n)
	copy(out, entries[:n])
	return out
}
