package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/medalist/internal/domain/model"
	"github.com/okian/medalist/pkg/metrics"
)

// Default SQLite configuration constants.
const defaultBusyTimeout = 5 * time.Second

const schema = `
CREATE TABLE IF NOT EXISTS competitions (
    id   TEXT PRIMARY KEY,
    name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS participants (
    id                     TEXT PRIMARY KEY,
    competition_id         TEXT NOT NULL REFERENCES competitions(id) ON DELETE CASCADE,
    student_name           TEXT NOT NULL,
    zone                   TEXT NOT NULL DEFAULT '',
    school_name            TEXT NOT NULL DEFAULT '',
    age                    INTEGER NOT NULL,
    age_category           TEXT NOT NULL CHECK (age_category IN ('under_14','under_17','under_19')),
    gender                 TEXT NOT NULL CHECK (gender IN ('Male','Female','Other')),
    event                  TEXT NOT NULL CHECK (event IN ('AP','PS','OS')),
    lane_no                INTEGER NOT NULL DEFAULT 0,
    detail_id              TEXT NOT NULL DEFAULT '',
    detail_name            TEXT NOT NULL DEFAULT '',
    section_type           TEXT NOT NULL DEFAULT 'main' CHECK (section_type IN ('main','final')),
    series_count           INTEGER NOT NULL DEFAULT 4 CHECK (series_count IN (4,6)),
    is_qualified_for_final INTEGER NOT NULL DEFAULT 0,
    total_score            INTEGER NOT NULL DEFAULT 0,
    ten_pointers           INTEGER NOT NULL DEFAULT 0,
    first_series_score     INTEGER NOT NULL DEFAULT 0,
    last_series_score      INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_participants_partition
    ON participants(competition_id, section_type, event, age_category, gender);

CREATE TABLE IF NOT EXISTS series_scores (
    id             TEXT PRIMARY KEY,
    participant_id TEXT NOT NULL REFERENCES participants(id) ON DELETE CASCADE,
    series_number  INTEGER NOT NULL CHECK (series_number BETWEEN 1 AND 6),
    total_score    INTEGER NOT NULL DEFAULT 0,
    ten_pointers   INTEGER NOT NULL DEFAULT 0,
    UNIQUE (participant_id, series_number)
);

CREATE TABLE IF NOT EXISTS shots (
    series_id   TEXT NOT NULL REFERENCES series_scores(id) ON DELETE CASCADE,
    shot_number INTEGER NOT NULL CHECK (shot_number BETWEEN 1 AND 10),
    score       INTEGER NOT NULL CHECK (score BETWEEN 0 AND 10),
    PRIMARY KEY (series_id, shot_number)
);
`

const participantColumns = `id, competition_id, student_name, zone, school_name, age,
    age_category, gender, event, lane_no, detail_id, detail_name, section_type,
    series_count, is_qualified_for_final, total_score, ten_pointers,
    first_series_score, last_series_score`

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Option applies a configuration option to the SQLite store.
type Option func(*SQLite)

// WithBusyTimeout sets how long a blocked connection waits on the
// database lock before failing.
func WithBusyTimeout(d time.Duration) Option {
	return func(s *SQLite) {
		if d > 0 {
			s.busyTimeout = d
		}
	}
}

// SQLite implements TxStore on an embedded SQLite database.
type SQLite struct {
	db          *sql.DB // nil when this instance wraps a transaction
	q           querier
	busyTimeout time.Duration
}

var _ TxStore = (*SQLite)(nil)

// Open opens (creating if needed) the database at path and applies the
// schema. Write transactions take the database lock immediately so a
// competing writer blocks at BEGIN instead of failing at COMMIT.
func Open(ctx context.Context, path string, opts ...Option) (*SQLite, error) {
	s := &SQLite{busyTimeout: defaultBusyTimeout}
	for _, opt := range opts {
		opt(s)
	}

	dsn := fmt.Sprintf(
		"%s?_txlock=immediate&_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		path, s.busyTimeout.Milliseconds(),
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite at %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s.db = db
	s.q = db
	return s, nil
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return nil
}

// WithTx runs fn inside one transaction. Calls on an instance already
// inside a transaction join it rather than nesting.
func (s *SQLite) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if s.db == nil {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	inner := &SQLite{q: tx, busyTimeout: s.busyTimeout}
	if err := fn(inner); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// PutCompetition upserts a competition record.
func (s *SQLite) PutCompetition(ctx context.Context, id, name string) error {
	defer observeQuery(time.Now())
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO competitions (id, name) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name`, id, name)
	if err != nil {
		return fmt.Errorf("put competition %s: %w", id, err)
	}
	return nil
}

// CompetitionExists reports whether the competition id is known.
func (s *SQLite) CompetitionExists(ctx context.Context, id string) (bool, error) {
	defer observeQuery(time.Now())
	var one int
	err := s.q.QueryRowContext(ctx, `SELECT 1 FROM competitions WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check competition %s: %w", id, err)
	}
	return true, nil
}

// GetParticipant returns a participant by id.
func (s *SQLite) GetParticipant(ctx context.Context, id string) (model.Participant, error) {
	defer observeQuery(time.Now())
	row := s.q.QueryRowContext(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE id = ?`, id)
	p, err := scanParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Participant{}, fmt.Errorf("participant %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Participant{}, fmt.Errorf("get participant %s: %w", id, err)
	}
	return p, nil
}

// PutParticipant upserts a participant row.
func (s *SQLite) PutParticipant(ctx context.Context, p model.Participant) error {
	defer observeQuery(time.Now())
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO participants (`+participantColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			competition_id = excluded.competition_id,
			student_name = excluded.student_name,
			zone = excluded.zone,
			school_name = excluded.school_name,
			age = excluded.age,
			age_category = excluded.age_category,
			gender = excluded.gender,
			event = excluded.event,
			lane_no = excluded.lane_no,
			detail_id = excluded.detail_id,
			detail_name = excluded.detail_name,
			section_type = excluded.section_type,
			series_count = excluded.series_count,
			is_qualified_for_final = excluded.is_qualified_for_final,
			total_score = excluded.total_score,
			ten_pointers = excluded.ten_pointers,
			first_series_score = excluded.first_series_score,
			last_series_score = excluded.last_series_score`,
		p.ID, p.CompetitionID, p.StudentName, p.Zone, p.SchoolName, p.Age,
		p.AgeCategory, p.Gender, p.Event, p.LaneNo, p.DetailID, p.DetailName,
		p.SectionType, p.SeriesCount, p.QualifiedForFinal, p.TotalScore,
		p.TenPointers, p.FirstSeriesScore, p.LastSeriesScore)
	if err != nil {
		return fmt.Errorf("put participant %s: %w", p.ID, err)
	}
	return nil
}

// ListParticipants returns every participant matching the filter.
func (s *SQLite) ListParticipants(ctx context.Context, f model.Filter) ([]model.Participant, error) {
	defer observeQuery(time.Now())
	where, args := filterClause(f)
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var out []model.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return out, nil
}

// CountParticipantsIn returns how many of ids belong to the competition.
func (s *SQLite) CountParticipantsIn(ctx context.Context, competitionID string, ids []string) (int, error) {
	defer observeQuery(time.Now())
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(ids)+1)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, competitionID)
	query := `SELECT COUNT(*) FROM participants WHERE id IN (` +
		placeholders(len(ids)) + `) AND competition_id = ?`
	var n int
	if err := s.q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count participants in %s: %w", competitionID, err)
	}
	return n, nil
}

// SetQualified flips the finals flag for the given participants.
func (s *SQLite) SetQualified(ctx context.Context, ids []string, qualified bool) error {
	defer observeQuery(time.Now())
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, qualified)
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := s.q.ExecContext(ctx,
		`UPDATE participants SET is_qualified_for_final = ? WHERE id IN (`+placeholders(len(ids))+`)`,
		args...)
	if err != nil {
		return fmt.Errorf("set qualified: %w", err)
	}
	return nil
}

// ResetQualified clears the finals flag for every matching participant.
func (s *SQLite) ResetQualified(ctx context.Context, f model.Filter) error {
	defer observeQuery(time.Now())
	where, args := filterClause(f)
	_, err := s.q.ExecContext(ctx,
		`UPDATE participants SET is_qualified_for_final = 0 WHERE `+where, args...)
	if err != nil {
		return fmt.Errorf("reset qualified: %w", err)
	}
	return nil
}

// GetSeries returns one series score.
func (s *SQLite) GetSeries(ctx context.Context, participantID string, seriesNumber int) (model.SeriesScore, error) {
	defer observeQuery(time.Now())
	var sc model.SeriesScore
	err := s.q.QueryRowContext(ctx,
		`SELECT id, participant_id, series_number, total_score, ten_pointers
		 FROM series_scores WHERE participant_id = ? AND series_number = ?`,
		participantID, seriesNumber).
		Scan(&sc.ID, &sc.ParticipantID, &sc.SeriesNumber, &sc.TotalScore, &sc.TenPointers)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SeriesScore{}, fmt.Errorf("series %d of %s: %w", seriesNumber, participantID, ErrNotFound)
	}
	if err != nil {
		return model.SeriesScore{}, fmt.Errorf("get series: %w", err)
	}
	return sc, nil
}

// ListSeries returns a participant's series ordered by series number.
func (s *SQLite) ListSeries(ctx context.Context, participantID string) ([]model.SeriesScore, error) {
	defer observeQuery(time.Now())
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, participant_id, series_number, total_score, ten_pointers
		 FROM series_scores WHERE participant_id = ? ORDER BY series_number`, participantID)
	if err != nil {
		return nil, fmt.Errorf("list series for %s: %w", participantID, err)
	}
	defer rows.Close()

	var out []model.SeriesScore
	for rows.Next() {
		var sc model.SeriesScore
		if err := rows.Scan(&sc.ID, &sc.ParticipantID, &sc.SeriesNumber, &sc.TotalScore, &sc.TenPointers); err != nil {
			return nil, fmt.Errorf("scan series: %w", err)
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list series for %s: %w", participantID, err)
	}
	return out, nil
}

// PutSeries upserts on (participant_id, series_number) and returns the
// stored row. A resubmitted series keeps its original id.
func (s *SQLite) PutSeries(ctx context.Context, sc model.SeriesScore) (model.SeriesScore, error) {
	defer observeQuery(time.Now())
	row := s.q.QueryRowContext(ctx, `
		INSERT INTO series_scores (id, participant_id, series_number, total_score, ten_pointers)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(participant_id, series_number) DO UPDATE SET
			total_score = excluded.total_score,
			ten_pointers = excluded.ten_pointers
		RETURNING id, participant_id, series_number, total_score, ten_pointers`,
		sc.ID, sc.ParticipantID, sc.SeriesNumber, sc.TotalScore, sc.TenPointers)
	var stored model.SeriesScore
	if err := row.Scan(&stored.ID, &stored.ParticipantID, &stored.SeriesNumber,
		&stored.TotalScore, &stored.TenPointers); err != nil {
		return model.SeriesScore{}, fmt.Errorf("put series %d of %s: %w", sc.SeriesNumber, sc.ParticipantID, err)
	}
	return stored, nil
}

// DeleteSeries removes a series; its shots go with it via cascade.
func (s *SQLite) DeleteSeries(ctx context.Context, participantID string, seriesNumber int) error {
	defer observeQuery(time.Now())
	res, err := s.q.ExecContext(ctx,
		`DELETE FROM series_scores WHERE participant_id = ? AND series_number = ?`,
		participantID, seriesNumber)
	if err != nil {
		return fmt.Errorf("delete series %d of %s: %w", seriesNumber, participantID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("series %d of %s: %w", seriesNumber, participantID, ErrNotFound)
	}
	return nil
}

// ListShots returns a series' shots ordered by shot number.
func (s *SQLite) ListShots(ctx context.Context, seriesID string) ([]model.Shot, error) {
	defer observeQuery(time.Now())
	rows, err := s.q.QueryContext(ctx,
		`SELECT series_id, shot_number, score FROM shots WHERE series_id = ? ORDER BY shot_number`,
		seriesID)
	if err != nil {
		return nil, fmt.Errorf("list shots for %s: %w", seriesID, err)
	}
	defer rows.Close()

	var out []model.Shot
	for rows.Next() {
		var sh model.Shot
		if err := rows.Scan(&sh.SeriesID, &sh.ShotNumber, &sh.Score); err != nil {
			return nil, fmt.Errorf("scan shot: %w", err)
		}
		out = append(out, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list shots for %s: %w", seriesID, err)
	}
	return out, nil
}

// ReplaceShots swaps the full shot card of a series.
func (s *SQLite) ReplaceShots(ctx context.Context, seriesID string, shots []model.Shot) error {
	defer observeQuery(time.Now())
	if _, err := s.q.ExecContext(ctx, `DELETE FROM shots WHERE series_id = ?`, seriesID); err != nil {
		return fmt.Errorf("clear shots for %s: %w", seriesID, err)
	}
	for _, sh := range shots {
		if _, err := s.q.ExecContext(ctx,
			`INSERT INTO shots (series_id, shot_number, score) VALUES (?, ?, ?)`,
			seriesID, sh.ShotNumber, sh.Score); err != nil {
			return fmt.Errorf("insert shot %d for %s: %w", sh.ShotNumber, seriesID, err)
		}
	}
	return nil
}

// PutShot upserts a single shot.
func (s *SQLite) PutShot(ctx context.Context, shot model.Shot) error {
	defer observeQuery(time.Now())
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO shots (series_id, shot_number, score) VALUES (?, ?, ?)
		ON CONFLICT(series_id, shot_number) DO UPDATE SET score = excluded.score`,
		shot.SeriesID, shot.ShotNumber, shot.Score)
	if err != nil {
		return fmt.Errorf("put shot %d of %s: %w", shot.ShotNumber, shot.SeriesID, err)
	}
	return nil
}

// Counts returns participant and series totals.
func (s *SQLite) Counts(ctx context.Context) (int, int, error) {
	defer observeQuery(time.Now())
	var participants, series int
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM participants`).Scan(&participants); err != nil {
		return 0, 0, fmt.Errorf("count participants: %w", err)
	}
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM series_scores`).Scan(&series); err != nil {
		return 0, 0, fmt.Errorf("count series: %w", err)
	}
	return participants, series, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParticipant(row rowScanner) (model.Participant, error) {
	var p model.Participant
	err := row.Scan(&p.ID, &p.CompetitionID, &p.StudentName, &p.Zone, &p.SchoolName,
		&p.Age, &p.AgeCategory, &p.Gender, &p.Event, &p.LaneNo, &p.DetailID,
		&p.DetailName, &p.SectionType, &p.SeriesCount, &p.QualifiedForFinal,
		&p.TotalScore, &p.TenPointers, &p.FirstSeriesScore, &p.LastSeriesScore)
	return p, err
}

// filterClause builds the WHERE clause for a participant filter.
func filterClause(f model.Filter) (string, []any) {
	clauses := []string{"1=1"}
	var args []any
	if f.CompetitionID != "" {
		clauses = append(clauses, "competition_id = ?")
		args = append(args, f.CompetitionID)
	}
	if f.Event != "" {
		clauses = append(clauses, "event = ?")
		args = append(args, f.Event)
	}
	if f.AgeCategory != "" {
		clauses = append(clauses, "age_category = ?")
		args = append(args, f.AgeCategory)
	}
	if f.Gender != "" {
		clauses = append(clauses, "gender = ?")
		args = append(args, f.Gender)
	}
	if f.SectionType != "" {
		clauses = append(clauses, "section_type = ?")
		args = append(args, f.SectionType)
	}
	if f.DetailID != "" {
		clauses = append(clauses, "detail_id = ?")
		args = append(args, f.DetailID)
	}
	return strings.Join(clauses, " AND "), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func observeQuery(start time.Time) {
	metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
}
