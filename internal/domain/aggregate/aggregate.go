// Package aggregate holds the recomputation rules for derived score
// totals. The rules are pure; the app service applies them inside a
// storage transaction.
package aggregate

import (
	"github.com/okian/medalist/internal/domain/model"
)

// SeriesTotals computes a series' total score and ten-pointer count
// from its shots.
func SeriesTotals(shots []model.Shot) (total, tenPointers int) {
	for _, s := range shots {
		total += s.Score
		if s.IsTenPointer() {
			tenPointers++
		}
	}
	return total, tenPointers
}

// Totals is the derived participant projection.
type Totals struct {
	TotalScore       int
	TenPointers      int
	FirstSeriesScore int
	LastSeriesScore  int
}

// ParticipantTotals recomputes a participant's aggregate fields from
// its series. The last series is the one at the configured slot
// seriesCount, not the highest series number present; a trailing
// deleted series must zero the field rather than promote series
// seriesCount-1.
func ParticipantTotals(series []model.SeriesScore, seriesCount int) Totals {
	var t Totals
	for _, s := range series {
		t.TotalScore += s.TotalScore
		t.TenPointers += s.TenPointers
		if s.SeriesNumber == 1 {
			t.FirstSeriesScore = s.TotalScore
		}
		if s.SeriesNumber == seriesCount {
			t.LastSeriesScore = s.TotalScore
		}
	}
	return t
}

// Apply writes the recomputed totals onto the participant record.
func (t Totals) Apply(p *model.Participant) {
	p.TotalScore = t.TotalScore
	p.TenPointers = t.TenPointers
	p.FirstSeriesScore = t.FirstSeriesScore
	p.LastSeriesScore = t.LastSeriesScore
}
