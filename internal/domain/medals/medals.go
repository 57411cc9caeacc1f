// Package medals aggregates per-category medal winners into grouped
// standings.
package medals

import (
	"sort"

	"github.com/okian/medalist/internal/domain/model"
	"github.com/okian/medalist/internal/domain/ranking"
)

// Medal point weights.
const (
	goldPoints   = 3
	silverPoints = 2
	bronzePoints = 1
	podiumSize   = 3
)

// GroupBy dimensions supported by the tally.
const (
	GroupBySchool      = "school"
	GroupByZone        = "zone"
	GroupByAgeCategory = "age_category"
	GroupByEvent       = "event"
)

// ValidGroupBy reports whether g is a supported grouping dimension.
func ValidGroupBy(g string) bool {
	switch g {
	case GroupBySchool, GroupByZone, GroupByAgeCategory, GroupByEvent:
		return true
	}
	return false
}

// GroupStanding is one row of the medal tally.
type GroupStanding struct {
	GroupName   string `json:"group_name"`
	GoldCount   int    `json:"gold_count"`
	SilverCount int    `json:"silver_count"`
	BronzeCount int    `json:"bronze_count"`
	MedalPoints int    `json:"medal_points"`
}

// Tally groups the podium entries of every category ranking by the
// chosen dimension and computes standings. Medals are read off each
// winner's own record, so a school collects medals across every
// category its students appear in. Standings sort by points, then
// gold, silver, bronze, all descending; name ascending settles exact
// ties deterministically.
func Tally(byCategory map[model.CategoryKey][]ranking.Entry, groupBy string) []GroupStanding {
	counts := make(map[string]*GroupStanding)
	for _, entries := range byCategory {
		for _, e := range entries {
			if e.Rank > podiumSize {
				break
			}
			name := groupName(e.Participant, groupBy)
			standing, ok := counts[name]
			if !ok {
				standing = &GroupStanding{GroupName: name}
				counts[name] = standing
			}
			switch e.Medal {
			case model.MedalGold:
				standing.GoldCount++
			case model.MedalSilver:
				standing.SilverCount++
			case model.MedalBronze:
				standing.BronzeCount++
			}
		}
	}

	standings := make([]GroupStanding, 0, len(counts))
	for _, s := range counts {
		s.MedalPoints = s.GoldCount*goldPoints + s.SilverCount*silverPoints + s.BronzeCount*bronzePoints
		standings = append(standings, *s)
	}
	sort.Slice(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.MedalPoints != b.MedalPoints {
			return a.MedalPoints > b.MedalPoints
		}
		if a.GoldCount != b.GoldCount {
			return a.GoldCount > b.GoldCount
		}
		if a.SilverCount != b.SilverCount {
			return a.SilverCount > b.SilverCount
		}
		if a.BronzeCount != b.BronzeCount {
			return a.BronzeCount > b.BronzeCount
		}
		return a.GroupName < b.GroupName
	})
	return standings
}

func groupName(p model.Participant, groupBy string) string {
	switch groupBy {
	case GroupByZone:
		return p.Zone
	case GroupByAgeCategory:
		return p.AgeCategory
	case GroupByEvent:
		return p.Event
	default:
		return p.SchoolName
	}
}
