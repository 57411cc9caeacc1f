// Package service implements the ranking and qualification engine on
// top of the repository seam. Every operation is synchronous and
// recomputes from current storage; no state is cached between calls.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/medalist/internal/adapters/repository"
	"github.com/okian/medalist/internal/domain/aggregate"
	"github.com/okian/medalist/internal/domain/export"
	"github.com/okian/medalist/internal/domain/medals"
	"github.com/okian/medalist/internal/domain/model"
	"github.com/okian/medalist/internal/domain/ranking"
	"github.com/okian/medalist/pkg/logger"
	"github.com/okian/medalist/pkg/metrics"
)

// Default engine configuration constants.
const (
	defaultTopN     = 8
	defaultReserves = 5
)

// Service is the engine facade consumed by the HTTP adapter.
type Service struct {
	store repository.TxStore

	// participantLocks serializes aggregate recomputation per
	// participant; partitionLocks serializes auto-qualification per
	// category partition. Disjoint keys proceed in parallel.
	participantLocks *repository.LockRegistry
	partitionLocks   *repository.LockRegistry

	topN     int
	reserves int

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDefaultTopN sets the qualification cutoff used when a caller
// omits one.
func WithDefaultTopN(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topN = n
		}
	}
}

// WithReserveCount sets how many reserves the qualifier preview lists.
func WithReserveCount(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.reserves = n
		}
	}
}

// New constructs a Service over the given store.
func New(store repository.TxStore, opts ...Option) *Service {
	s := &Service{
		store:            store,
		participantLocks: repository.NewLockRegistry(),
		partitionLocks:   repository.NewLockRegistry(),
		topN:             defaultTopN,
		reserves:         defaultReserves,
		logger:           nil, // resolved lazily so tests can skip Init
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = noopLogger{}
	}
	return s
}

// RecordSeries validates and stores one complete series of ten shots,
// then recomputes the participant's aggregates. The series upsert and
// both recomputations commit atomically; submissions for the same
// participant are serialized.
func (s *Service) RecordSeries(ctx context.Context, participantID string, seriesNumber int, shots []int) (model.SeriesScore, error) {
	if len(shots) != model.ShotsPerSeries {
		return model.SeriesScore{}, fmt.Errorf("%w: expected %d shots, got %d",
			ErrInvalidArgument, model.ShotsPerSeries, len(shots))
	}
	for i, score := range shots {
		if score < 0 || score > model.MaxShotScore {
			return model.SeriesScore{}, fmt.Errorf("%w: shot %d score %d out of [0,%d]",
				ErrInvalidArgument, i+1, score, model.MaxShotScore)
		}
	}

	unlock := s.participantLocks.Lock(participantID)
	defer unlock()

	start := time.Now()
	var stored model.SeriesScore
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		p, err := tx.GetParticipant(ctx, participantID)
		if err != nil {
			return err
		}
		if seriesNumber < 1 || seriesNumber > p.SeriesCount {
			return fmt.Errorf("%w: series_number %d out of [1,%d]",
				ErrInvalidArgument, seriesNumber, p.SeriesCount)
		}

		card := make([]model.Shot, len(shots))
		for i, score := range shots {
			card[i] = model.Shot{ShotNumber: i + 1, Score: score}
		}
		total, tens := aggregate.SeriesTotals(card)

		stored, err = tx.PutSeries(ctx, model.SeriesScore{
			ID:            uuid.NewString(),
			ParticipantID: participantID,
			SeriesNumber:  seriesNumber,
			TotalScore:    total,
			TenPointers:   tens,
		})
		if err != nil {
			return err
		}
		for i := range card {
			card[i].SeriesID = stored.ID
		}
		if err := tx.ReplaceShots(ctx, stored.ID, card); err != nil {
			return err
		}
		return s.recomputeParticipant(ctx, tx, p)
	})
	if err != nil {
		return model.SeriesScore{}, err
	}

	metrics.RecordSeriesRecorded()
	metrics.RecordRecomputeLatency(float64(time.Since(start).Milliseconds()))
	s.logger.Debug(ctx, "series recorded",
		logger.String("participant", participantID),
		logger.Int("series", seriesNumber),
		logger.Int("total", stored.TotalScore),
	)
	return stored, nil
}

// RecordShot updates one shot of an existing series and recomputes the
// series totals and the participant aggregates in the same
// transaction, so no reader can observe the series updated while the
// participant still carries the old totals.
func (s *Service) RecordShot(ctx context.Context, participantID string, seriesNumber, shotNumber, score int) error {
	if shotNumber < 1 || shotNumber > model.ShotsPerSeries {
		return fmt.Errorf("%w: shot_number %d out of [1,%d]",
			ErrInvalidArgument, shotNumber, model.ShotsPerSeries)
	}
	if score < 0 || score > model.MaxShotScore {
		return fmt.Errorf("%w: score %d out of [0,%d]", ErrInvalidArgument, score, model.MaxShotScore)
	}

	unlock := s.participantLocks.Lock(participantID)
	defer unlock()

	start := time.Now()
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		p, err := tx.GetParticipant(ctx, participantID)
		if err != nil {
			return err
		}
		sc, err := tx.GetSeries(ctx, participantID, seriesNumber)
		if err != nil {
			return err
		}
		if err := tx.PutShot(ctx, model.Shot{SeriesID: sc.ID, ShotNumber: shotNumber, Score: score}); err != nil {
			return err
		}
		card, err := tx.ListShots(ctx, sc.ID)
		if err != nil {
			return err
		}
		sc.TotalScore, sc.TenPointers = aggregate.SeriesTotals(card)
		if _, err := tx.PutSeries(ctx, sc); err != nil {
			return err
		}
		return s.recomputeParticipant(ctx, tx, p)
	})
	if err != nil {
		return err
	}
	metrics.RecordRecomputeLatency(float64(time.Since(start).Milliseconds()))
	return nil
}

// DeleteSeries removes a series and recomputes the participant.
func (s *Service) DeleteSeries(ctx context.Context, participantID string, seriesNumber int) error {
	unlock := s.participantLocks.Lock(participantID)
	defer unlock()

	return s.store.WithTx(ctx, func(tx repository.Store) error {
		p, err := tx.GetParticipant(ctx, participantID)
		if err != nil {
			return err
		}
		if err := tx.DeleteSeries(ctx, participantID, seriesNumber); err != nil {
			return err
		}
		return s.recomputeParticipant(ctx, tx, p)
	})
}

// ListSeries returns a participant's recorded series.
func (s *Service) ListSeries(ctx context.Context, participantID string) ([]model.SeriesScore, error) {
	if _, err := s.store.GetParticipant(ctx, participantID); err != nil {
		return nil, err
	}
	return s.store.ListSeries(ctx, participantID)
}

// recomputeParticipant rebuilds the participant's derived fields from
// its series rows. Must run inside the caller's transaction with the
// participant lock held.
func (s *Service) recomputeParticipant(ctx context.Context, tx repository.Store, p model.Participant) error {
	series, err := tx.ListSeries(ctx, p.ID)
	if err != nil {
		return err
	}
	totals := aggregate.ParticipantTotals(series, p.SeriesCount)
	totals.Apply(&p)
	return tx.PutParticipant(ctx, p)
}

// ComputeRanking ranks the full filtered set, then slices the
// requested page. Returns the page and the total entry count.
func (s *Service) ComputeRanking(ctx context.Context, f model.Filter, limit, offset int) ([]ranking.Entry, int, error) {
	if err := s.checkFilter(ctx, f); err != nil {
		return nil, 0, err
	}

	start := time.Now()
	participants, err := s.store.ListParticipants(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	entries := ranking.Rank(participants)
	page := ranking.Page(entries, limit, offset)
	metrics.RecordRankingServed(float64(time.Since(start).Milliseconds()))
	return page, len(entries), nil
}

// ComputeCategoryRankings ranks each (event, age category, gender)
// group of the competition independently and returns the top n of
// every group.
func (s *Service) ComputeCategoryRankings(ctx context.Context, competitionID, sectionType string, topN int) (map[model.CategoryKey][]ranking.Entry, error) {
	if topN <= 0 {
		topN = s.topN
	}
	f := model.Filter{CompetitionID: competitionID, SectionType: sectionType}
	if err := s.checkFilter(ctx, f); err != nil {
		return nil, err
	}

	start := time.Now()
	participants, err := s.store.ListParticipants(ctx, f)
	if err != nil {
		return nil, err
	}
	out, err := s.rankCategories(ctx, participants, topN)
	if err != nil {
		return nil, err
	}
	metrics.RecordRankingServed(float64(time.Since(start).Milliseconds()))
	return out, nil
}

// rankCategories fans the independent per-category rankings out over a
// bounded errgroup. All groups work on the one snapshot already
// fetched, so concurrency cannot tear the view.
func (s *Service) rankCategories(ctx context.Context, participants []model.Participant, topN int) (map[model.CategoryKey][]ranking.Entry, error) {
	groups := make(map[model.CategoryKey][]model.Participant)
	for _, p := range participants {
		key := p.Category()
		groups[key] = append(groups[key], p)
	}

	var mu sync.Mutex
	out := make(map[model.CategoryKey][]ranking.Entry, len(groups))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for key, members := range groups {
		g.Go(func() error {
			entries := ranking.Rank(members)
			if topN > 0 {
				entries = ranking.Top(entries, topN)
			}
			mu.Lock()
			out[key] = entries
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ComputeMedalTally awards the podium of every category partition and
// groups the winners by the chosen dimension.
func (s *Service) ComputeMedalTally(ctx context.Context, competitionID, sectionType, groupBy string) ([]medals.GroupStanding, error) {
	if !medals.ValidGroupBy(groupBy) {
		return nil, fmt.Errorf("%w: unknown group_by %q", ErrInvalidArgument, groupBy)
	}
	f := model.Filter{CompetitionID: competitionID, SectionType: sectionType}
	if err := s.checkFilter(ctx, f); err != nil {
		return nil, err
	}

	participants, err := s.store.ListParticipants(ctx, f)
	if err != nil {
		return nil, err
	}
	byCategory, err := s.rankCategories(ctx, participants, 0)
	if err != nil {
		return nil, err
	}
	return medals.Tally(byCategory, groupBy), nil
}

// QualifyManual marks exactly the given participants as finalists.
// Every id must belong to the competition or the whole operation fails
// with no partial marking.
func (s *Service) QualifyManual(ctx context.Context, competitionID string, participantIDs []string) (int, error) {
	if len(participantIDs) == 0 {
		return 0, fmt.Errorf("%w: participant_ids must not be empty", ErrInvalidArgument)
	}
	if err := s.checkCompetition(ctx, competitionID); err != nil {
		return 0, err
	}

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		n, err := tx.CountParticipantsIn(ctx, competitionID, participantIDs)
		if err != nil {
			return err
		}
		if n != len(participantIDs) {
			metrics.RecordQualifyRejected()
			return fmt.Errorf("%w: %d of %d participants not in competition %s",
				ErrInvalidArgument, len(participantIDs)-n, len(participantIDs), competitionID)
		}
		return tx.SetQualified(ctx, participantIDs, true)
	})
	if err != nil {
		return 0, err
	}

	metrics.RecordQualifyTransaction()
	s.logger.Info(ctx, "participants qualified for finals",
		logger.String("competition", competitionID),
		logger.Int("count", len(participantIDs)),
	)
	return len(participantIDs), nil
}

// QualifyAutoTop resets all qualification flags in the filtered
// partition, ranks it, and marks the top n, all in one transaction.
// Only one auto-qualification per partition runs at a time.
func (s *Service) QualifyAutoTop(ctx context.Context, competitionID string, f model.Filter, topN int) (int, error) {
	if topN <= 0 {
		topN = s.topN
	}
	f.CompetitionID = competitionID
	f.SectionType = model.SectionMain
	if err := s.checkFilter(ctx, f); err != nil {
		return 0, err
	}

	unlock := s.partitionLocks.Lock(partitionKey(f))
	defer unlock()

	var qualified int
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.ResetQualified(ctx, f); err != nil {
			return err
		}
		participants, err := tx.ListParticipants(ctx, f)
		if err != nil {
			return err
		}
		entries := ranking.Top(ranking.Rank(participants), topN)
		ids := make([]string, len(entries))
		for i, e := range entries {
			ids[i] = e.Participant.ID
		}
		qualified = len(ids)
		return tx.SetQualified(ctx, ids, true)
	})
	if err != nil {
		return 0, err
	}

	metrics.RecordQualifyTransaction()
	s.logger.Info(ctx, "auto-qualification committed",
		logger.String("competition", competitionID),
		logger.Int("top_n", topN),
		logger.Int("qualified", qualified),
	)
	return qualified, nil
}

// QualifierPreview is the read-only split of a partition into would-be
// finalists and reserves.
type QualifierPreview struct {
	Qualified []ranking.Entry `json:"qualified_participants"`
	Reserves  []ranking.Entry `json:"reserve_participants"`
}

// PreviewQualifiers ranks the filtered main-section set and reports
// who the cutoff would admit, without mutating anything.
func (s *Service) PreviewQualifiers(ctx context.Context, competitionID string, f model.Filter, topN int) (QualifierPreview, error) {
	if topN <= 0 {
		topN = s.topN
	}
	f.CompetitionID = competitionID
	f.SectionType = model.SectionMain
	if err := s.checkFilter(ctx, f); err != nil {
		return QualifierPreview{}, err
	}

	participants, err := s.store.ListParticipants(ctx, f)
	if err != nil {
		return QualifierPreview{}, err
	}
	entries := ranking.Rank(participants)
	preview := QualifierPreview{Qualified: ranking.Top(entries, topN)}
	if len(entries) > topN {
		rest := entries[topN:]
		preview.Reserves = ranking.Top(rest, s.reserves)
	}
	return preview, nil
}

// ExportRankingCSV ranks the full filtered set and serializes it.
func (s *Service) ExportRankingCSV(ctx context.Context, f model.Filter) ([]byte, error) {
	entries, _, err := s.ComputeRanking(ctx, f, 0, 0)
	if err != nil {
		return nil, err
	}
	out, err := export.CSV(entries)
	if err != nil {
		return nil, err
	}
	metrics.RecordExportServed()
	return out, nil
}

// EnsureCompetition upserts a competition record.
func (s *Service) EnsureCompetition(ctx context.Context, id, name string) error {
	if id == "" {
		return fmt.Errorf("%w: competition id must not be empty", ErrInvalidArgument)
	}
	return s.store.PutCompetition(ctx, id, name)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	stats := map[string]any{
		"default_top_n": s.topN,
	}
	participants, series, err := s.store.Counts(ctx)
	if err != nil {
		s.logger.Warn(ctx, "stats query failed", logger.Error(err))
		return stats
	}
	stats["participants"] = participants
	stats["series_scores"] = series
	metrics.UpdateParticipantsTotal(participants)
	metrics.UpdateSeriesTotal(series)
	return stats
}

// checkCompetition rejects operations against unknown competitions.
func (s *Service) checkCompetition(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: competition id must not be empty", ErrInvalidArgument)
	}
	ok, err := s.store.CompetitionExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("competition %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

// checkFilter validates enum fields and the competition reference.
func (s *Service) checkFilter(ctx context.Context, f model.Filter) error {
	if f.Event != "" && !model.ValidEvent(f.Event) {
		return fmt.Errorf("%w: unknown event %q", ErrInvalidArgument, f.Event)
	}
	if f.AgeCategory != "" && !model.ValidAgeCategory(f.AgeCategory) {
		return fmt.Errorf("%w: unknown age_category %q", ErrInvalidArgument, f.AgeCategory)
	}
	if f.Gender != "" && !model.ValidGender(f.Gender) {
		return fmt.Errorf("%w: unknown gender %q", ErrInvalidArgument, f.Gender)
	}
	if f.SectionType != "" && !model.ValidSectionType(f.SectionType) {
		return fmt.Errorf("%w: unknown section_type %q", ErrInvalidArgument, f.SectionType)
	}
	return s.checkCompetition(ctx, f.CompetitionID)
}

func partitionKey(f model.Filter) string {
	return f.CompetitionID + "/" + f.Event + "/" + f.AgeCategory + "/" + f.Gender
}

// noopLogger keeps the service usable before logger.Init, e.g. in tests.
type noopLogger struct{}

func (noopLogger) Debug(context.Context, string, ...logger.Field) {}
func (noopLogger) Info(context.Context, string, ...logger.Field)  {}
func (noopLogger) Warn(context.Context, string, ...logger.Field)  {}
func (noopLogger) Error(context.Context, string, ...logger.Field) {}
func (n noopLogger) Named(string) logger.Logger                   { return n }
