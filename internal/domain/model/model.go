// Package model holds the shared competition vocabulary: participants,
// series, shots, and the enumerations every other layer agrees on.
package model

// Event codes.
const (
	EventAirPistol = "AP"
	EventPeepSight = "PS"
	EventOpenSight = "OS"
)

// Age categories. A participant's category is derived from their age
// at registration time and stored, not recomputed.
const (
	AgeUnder14 = "under_14"
	AgeUnder17 = "under_17"
	AgeUnder19 = "under_19"
)

// Genders.
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
	GenderOther  = "Other"
)

// Competition sections. Main-section results feed qualification; the
// final section is a separate partition with its own rankings.
const (
	SectionMain  = "main"
	SectionFinal = "final"
)

// Medal labels. MedalNone is deliberately empty so it drops out of
// JSON via omitempty.
const (
	MedalGold   = "Gold"
	MedalSilver = "Silver"
	MedalBronze = "Bronze"
	MedalNone   = ""
)

// Scoring dimensions.
const (
	ShotsPerSeries = 10
	MaxShotScore   = 10

	SeriesCountShort = 4
	SeriesCountLong  = 6
)

// Shot is a single scored shot within a series.
type Shot struct {
	SeriesID   string `json:"series_id"`
	ShotNumber int    `json:"shot_number"`
	Score      int    `json:"score"`
}

// IsTenPointer reports whether the shot scored the maximum.
func (s Shot) IsTenPointer() bool {
	return s.Score == MaxShotScore
}

// SeriesScore is one series of up to ten shots with its cached totals.
type SeriesScore struct {
	ID            string `json:"id"`
	ParticipantID string `json:"participant_id"`
	SeriesNumber  int    `json:"series_number"`
	TotalScore    int    `json:"total_score"`
	TenPointers   int    `json:"ten_pointers"`
}

// Participant is a registered shooter. The trailing score fields are
// derived from the participant's series rows and rewritten on every
// scoring change; they are never entered directly.
type Participant struct {
	ID            string `json:"id"`
	CompetitionID string `json:"competition_id"`
	StudentName   string `json:"student_name"`
	Zone          string `json:"zone"`
	SchoolName    string `json:"school_name"`
	Age           int    `json:"age"`
	AgeCategory   string `json:"age_category"`
	Gender        string `json:"gender"`
	Event         string `json:"event"`
	LaneNo        int    `json:"lane_no"`
	DetailID      string `json:"detail_id,omitempty"`
	DetailName    string `json:"detail_name,omitempty"`
	SectionType   string `json:"section_type"`
	SeriesCount   int    `json:"series_count"`

	QualifiedForFinal bool `json:"is_qualified_for_final"`

	TotalScore       int `json:"total_score"`
	TenPointers      int `json:"ten_pointers"`
	FirstSeriesScore int `json:"first_series_score"`
	LastSeriesScore  int `json:"last_series_score"`
}

// CategoryKey identifies one ranking partition. Participants compete
// only against others with the same key.
type CategoryKey struct {
	Event       string `json:"event"`
	AgeCategory string `json:"age_category"`
	Gender      string `json:"gender"`
}

// Category returns the participant's ranking partition.
func (p Participant) Category() CategoryKey {
	return CategoryKey{Event: p.Event, AgeCategory: p.AgeCategory, Gender: p.Gender}
}

// DeriveAgeCategory maps an age to its category. Brackets are
// inclusive: a 14-year-old is still under_14, a 17-year-old still
// under_17. Ages past the last bracket land in under_19; registration
// rejects them upstream.
func DeriveAgeCategory(age int) string {
	switch {
	case age <= 14:
		return AgeUnder14
	case age <= 17:
		return AgeUnder17
	default:
		return AgeUnder19
	}
}

// ValidEvent reports whether e is a known event code.
func ValidEvent(e string) bool {
	switch e {
	case EventAirPistol, EventPeepSight, EventOpenSight:
		return true
	}
	return false
}

// ValidAgeCategory reports whether a is a known age category.
func ValidAgeCategory(a string) bool {
	switch a {
	case AgeUnder14, AgeUnder17, AgeUnder19:
		return true
	}
	return false
}

// ValidGender reports whether g is a known gender value.
func ValidGender(g string) bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// ValidSectionType reports whether s is a known section.
func ValidSectionType(s string) bool {
	return s == SectionMain || s == SectionFinal
}

// ValidSeriesCount reports whether n is a supported series count.
func ValidSeriesCount(n int) bool {
	return n == SeriesCountShort || n == SeriesCountLong
}

// Filter selects participants. Empty fields match everything; the
// repository translates set fields into its WHERE clause.
type Filter struct {
	CompetitionID string
	Event         string
	AgeCategory   string
	Gender        string
	SectionType   string
	DetailID      string
}
