// Package repository defines the storage seam for the ranking engine
// and its SQLite implementation.
package repository

import (
	"context"

	"github.com/okian/medalist/internal/domain/model"
)

// Store provides typed access to persisted competitions, participants,
// series scores and shots. It is the engine's only I/O seam.
type Store interface {
	// PutCompetition upserts a competition record.
	PutCompetition(ctx context.Context, id, name string) error
	// CompetitionExists reports whether the competition id is known.
	CompetitionExists(ctx context.Context, id string) (bool, error)

	// GetParticipant returns a participant by id.
	// Returns ErrNotFound when the id is unknown.
	GetParticipant(ctx context.Context, id string) (model.Participant, error)
	// PutParticipant upserts a participant record including its
	// derived aggregate fields.
	PutParticipant(ctx context.Context, p model.Participant) error
	// ListParticipants returns every participant matching the filter,
	// in a single consistent read.
	ListParticipants(ctx context.Context, f model.Filter) ([]model.Participant, error)
	// CountParticipantsIn returns how many of ids belong to the
	// competition. Used to validate manual qualification sets.
	CountParticipantsIn(ctx context.Context, competitionID string, ids []string) (int, error)
	// SetQualified flips the finals flag for the given participants.
	SetQualified(ctx context.Context, ids []string, qualified bool) error
	// ResetQualified clears the finals flag for every participant
	// matching the filter.
	ResetQualified(ctx context.Context, f model.Filter) error

	// GetSeries returns one series score.
	// Returns ErrNotFound when absent.
	GetSeries(ctx context.Context, participantID string, seriesNumber int) (model.SeriesScore, error)
	// ListSeries returns a participant's series ordered by series number.
	ListSeries(ctx context.Context, participantID string) ([]model.SeriesScore, error)
	// PutSeries upserts on (participant_id, series_number) and returns
	// the stored row; on conflict the existing id is kept.
	PutSeries(ctx context.Context, s model.SeriesScore) (model.SeriesScore, error)
	// DeleteSeries removes a series and its shots.
	DeleteSeries(ctx context.Context, participantID string, seriesNumber int) error

	// ListShots returns a series' shots ordered by shot number.
	ListShots(ctx context.Context, seriesID string) ([]model.Shot, error)
	// ReplaceShots swaps the full shot card of a series.
	ReplaceShots(ctx context.Context, seriesID string, shots []model.Shot) error
	// PutShot upserts a single shot.
	PutShot(ctx context.Context, shot model.Shot) error

	// Counts returns participant and series totals for stats.
	Counts(ctx context.Context) (participants, series int, err error)
}

// TxStore is a Store that can run a function inside one atomic
// transaction. The Store handed to fn sees a snapshot consistent
// across all reads and commits all writes together or not at all.
type TxStore interface {
	Store

	// WithTx runs fn in a transaction, committing on nil and rolling
	// back on error. The error from fn is returned unchanged.
	WithTx(ctx context.Context, fn func(tx Store) error) error
}
