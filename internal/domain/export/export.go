// Package export maps ranking entries to a flat CSV representation.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/okian/medalist/internal/domain/ranking"
)

// Header is the fixed CSV column order. Consumers parse exports by
// position, so it must never be reordered.
var Header = []string{
	"Rank", "Name", "Zone", "Event", "School", "Age", "Age_Category",
	"Gender", "Lane", "Total_Score", "Ten_Pointers", "First_Series",
	"Last_Series", "Detail",
}

// Rows flattens ranking entries into records matching Header.
func Rows(entries []ranking.Entry) [][]string {
	rows := make([][]string, len(entries))
	for i, e := range entries {
		p := e.Participant
		rows[i] = []string{
			strconv.Itoa(e.Rank),
			p.StudentName,
			p.Zone,
			p.Event,
			p.SchoolName,
			strconv.Itoa(p.Age),
			p.AgeCategory,
			p.Gender,
			strconv.Itoa(p.LaneNo),
			strconv.Itoa(p.TotalScore),
			strconv.Itoa(p.TenPointers),
			strconv.Itoa(p.FirstSeriesScore),
			strconv.Itoa(p.LastSeriesScore),
			p.DetailName,
		}
	}
	return rows
}

// CSV serializes entries with the header row. encoding/csv applies
// RFC 4180 quoting: fields containing commas, quotes or newlines are
// wrapped in double quotes with embedded quotes doubled.
func CSV(entries []ranking.Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	if err := w.WriteAll(Rows(entries)); err != nil {
		return nil, fmt.Errorf("write csv rows: %w", err)
	}
	return buf.Bytes(), nil
}
