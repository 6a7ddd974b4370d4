package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"

	"telegram-tap-game/internal/model"
	"telegram-tap-game/internal/pkg/daily"
	"telegram-tap-game/internal/pkg/metrics"
	"telegram-tap-game/internal/repository"
)

// Play errors.
var (
	// ErrNoPlaysRemaining is the expected "come back tomorrow" outcome.
	ErrNoPlaysRemaining = repository.ErrNoPlaysRemaining

	// ErrUnavailable means the store could not complete the operation.
	// Nothing was debited; the action is safe to retry.
	ErrUnavailable = errors.New("store unavailable, try again")

	ErrPlayNotFound = repository.ErrPlayNotFound
)

// PlayService is the ticket consumption path.
type PlayService struct {
	plays *repository.PlayRepository
}

// NewPlayService creates a new PlayService instance.
func NewPlayService(plays *repository.PlayRepository) *PlayService {
	return &PlayService{plays: plays}
}

// Consume debits one ticket and opens a play. The debit is atomic
// against the store; under concurrent calls the committed play count
// never exceeds the day's allowance. Exhausted allowance surfaces as
// ErrNoPlaysRemaining, persistent store conflicts as ErrUnavailable.
func (s *PlayService) Consume(ctx context.Context, telegramID int64) (*repository.ConsumeResult, error) {
	result, err := s.plays.ConsumePlay(ctx, telegramID, daily.Today(), time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNoPlaysRemaining):
			metrics.PlaysRejected.Inc()
			return nil, ErrNoPlaysRemaining
		case errors.Is(err, repository.ErrTxConflict):
			log.Warn().Err(err).Int64("user_id", telegramID).Msg("Consume gave up after conflict retries")
			return nil, ErrUnavailable
		case errors.Is(err, repository.ErrAccountNotFound):
			return nil, err
		case isConnectionError(err):
			log.Warn().Err(err).Int64("user_id", telegramID).Msg("Consume could not reach the store")
			return nil, ErrUnavailable
		}
		return nil, fmt.Errorf("failed to consume play: %w", err)
	}

	metrics.PlaysConsumed.Inc()
	log.Debug().
		Int64("user_id", telegramID).
		Int64("play_id", result.Play.ID).
		Int("remaining", result.Remaining).
		Msg("Ticket consumed")
	return result, nil
}

// isConnectionError reports whether the error came from failing to
// reach the database rather than from executing a statement. Nothing
// was debited in that case, so it maps to ErrUnavailable.
func isConnectionError(err error) bool {
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	return pgconn.SafeToRetry(err)
}

// SubmitScore records the final score of a play once.
func (s *PlayService) SubmitScore(ctx context.Context, playID, telegramID, score int64) error {
	if score < 0 {
		score = 0
	}
	return s.plays.SubmitScore(ctx, playID, telegramID, score, time.Now().UTC())
}

// History lists the user's recent plays.
func (s *PlayService) History(ctx context.Context, telegramID int64, limit int) ([]*model.Play, error) {
	return s.plays.History(ctx, telegramID, limit)
}
