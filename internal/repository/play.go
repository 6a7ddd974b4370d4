package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"telegram-tap-game/internal/model"
	"telegram-tap-game/internal/ticket"
)

// Play errors.
var (
	// ErrNoPlaysRemaining means the day's allowance is exhausted. This
	// is an expected outcome, not a failure.
	ErrNoPlaysRemaining = errors.New("no plays remaining today")

	// ErrPlayNotFound means the play does not exist, belongs to another
	// user, or already has a score recorded.
	ErrPlayNotFound = errors.New("play not found or already scored")
)

// PlayRepository handles ticket consumption and play history.
type PlayRepository struct {
	pool    *pgxpool.Pool
	retries int
}

// NewPlayRepository creates a new PlayRepository instance. retries
// bounds the attempts made when a consume transaction hits a transient
// conflict.
func NewPlayRepository(pool *pgxpool.Pool, retries int) *PlayRepository {
	if retries < 1 {
		retries = 1
	}
	return &PlayRepository{pool: pool, retries: retries}
}

// ConsumeResult reports the outcome of a successful ticket debit.
type ConsumeResult struct {
	Play          *model.Play
	MaxPlaysToday int
	Remaining     int
}

// ConsumePlay atomically debits one ticket for the given day. Inside a
// single transaction with the account row locked it rolls the ledger
// over if the day changed, recomputes the allowance from the account's
// current streak, referral and friend-count inputs, and either rejects
// with ErrNoPlaysRemaining or debits one play and opens a play record.
//
// The row lock makes the check-and-increment indivisible: concurrent
// calls for the same user serialize on the lock and can never commit
// more debits than the allowance. Transient conflicts are retried a
// bounded number of times, then surfaced as ErrTxConflict.
func (r *PlayRepository) ConsumePlay(ctx context.Context, telegramID int64, day string, now time.Time) (*ConsumeResult, error) {
	var result *ConsumeResult

	err := withConflictRetry(ctx, r.retries, func() error {
		res, err := r.consumeOnce(ctx, telegramID, day, now)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PlayRepository) consumeOnce(ctx context.Context, telegramID int64, day string, now time.Time) (*ConsumeResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	account, err := lockAccount(ctx, tx, telegramID)
	if err != nil {
		return nil, err
	}

	playsToday := account.PlaysToday
	if account.LedgerDay != day {
		playsToday = 0
	}

	friendCount, err := countFriends(ctx, tx, telegramID)
	if err != nil {
		return nil, err
	}
	maxPlays := ticket.Allowance(account.CurrentStreak, account.TicketsFromInvites, friendCount)

	if playsToday >= maxPlays {
		// Persist the rollover and recomputed allowance even when
		// rejecting, so the exactly-once daily reset holds.
		const persist = `
			UPDATE accounts
			SET ledger_day = $2, max_plays_today = $3, plays_today = $4, updated_at = NOW()
			WHERE telegram_id = $1
		`
		if _, err := tx.Exec(ctx, persist, telegramID, day, maxPlays, playsToday); err != nil {
			return nil, fmt.Errorf("failed to persist ledger state: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to commit: %w", err)
		}
		return nil, ErrNoPlaysRemaining
	}

	playsToday++

	const debit = `
		UPDATE accounts
		SET ledger_day = $2, max_plays_today = $3, plays_today = $4,
		    last_played_at = $5, updated_at = NOW()
		WHERE telegram_id = $1
	`
	if _, err := tx.Exec(ctx, debit, telegramID, day, maxPlays, playsToday, now); err != nil {
		return nil, fmt.Errorf("failed to debit play: %w", err)
	}

	const record = `
		INSERT INTO plays (user_id, started_at)
		VALUES ($1, $2)
		RETURNING id, user_id, score, started_at, finished_at
	`
	var play model.Play
	err = tx.QueryRow(ctx, record, telegramID, now).Scan(
		&play.ID, &play.UserID, &play.Score, &play.StartedAt, &play.FinishedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record play: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit play: %w", err)
	}

	return &ConsumeResult{
		Play:          &play,
		MaxPlaysToday: maxPlays,
		Remaining:     maxPlays - playsToday,
	}, nil
}

// SubmitScore records the final score of a finished play and adds it to
// the account's total, in one transaction. A play accepts exactly one
// score; repeat submissions return ErrPlayNotFound.
func (r *PlayRepository) SubmitScore(ctx context.Context, playID, telegramID, score int64, now time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const finish = `
		UPDATE plays
		SET score = $3, finished_at = $4
		WHERE id = $1 AND user_id = $2 AND score IS NULL
	`
	result, err := tx.Exec(ctx, finish, playID, telegramID, score, now)
	if err != nil {
		return fmt.Errorf("failed to finish play: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrPlayNotFound
	}

	const addScore = `
		UPDATE accounts
		SET total_score = total_score + $2, updated_at = NOW()
		WHERE telegram_id = $1
	`
	if _, err := tx.Exec(ctx, addScore, telegramID, score); err != nil {
		return fmt.Errorf("failed to add score: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit score: %w", err)
	}
	return nil
}

// History retrieves a user's plays, newest first.
func (r *PlayRepository) History(ctx context.Context, telegramID int64, limit int) ([]*model.Play, error) {
	const query = `
		SELECT id, user_id, score, started_at, finished_at
		FROM plays
		WHERE user_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, telegramID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get plays: %w", err)
	}
	defer rows.Close()

	var plays []*model.Play
	for rows.Next() {
		var play model.Play
		err := rows.Scan(&play.ID, &play.UserID, &play.Score, &play.StartedAt, &play.FinishedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan play: %w", err)
		}
		plays = append(plays, &play)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plays: %w", err)
	}
	return plays, nil
}

// DailyTop retrieves the best single-play scores finished on the given
// date, one entry per user.
func (r *PlayRepository) DailyTop(ctx context.Context, date time.Time, limit int) ([]*model.ScoreRank, error) {
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	endOfDay := startOfDay.Add(24 * time.Hour)

	const query = `
		SELECT p.user_id, a.display_name, MAX(p.score) AS best
		FROM plays p
		JOIN accounts a ON p.user_id = a.telegram_id
		WHERE p.score IS NOT NULL
		  AND p.finished_at >= $1
		  AND p.finished_at < $2
		GROUP BY p.user_id, a.display_name
		ORDER BY best DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, startOfDay, endOfDay, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily top: %w", err)
	}
	defer rows.Close()

	var ranks []*model.ScoreRank
	for rows.Next() {
		var rank model.ScoreRank
		if err := rows.Scan(&rank.UserID, &rank.DisplayName, &rank.Score); err != nil {
			return nil, fmt.Errorf("failed to scan daily rank: %w", err)
		}
		ranks = append(ranks, &rank)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily top: %w", err)
	}
	return ranks, nil
}
