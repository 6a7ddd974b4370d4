// Package repository provides data access layer implementations.
// The two contended operations - ticket consumption and referral
// crediting - run as single transactions with the account rows locked,
// never as separate read-then-write round trips.
package repository

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"telegram-tap-game/internal/model"
	"telegram-tap-game/internal/ticket"
)

// Common errors for repository operations.
var (
	ErrAccountNotFound = errors.New("account not found")
)

const accountColumns = `telegram_id, display_name, total_score, friend_code,
		last_visit_day, current_streak, highest_streak, total_visits, visits_per_day,
		ledger_day, max_plays_today, plays_today, last_played_at,
		invited_by, tickets_from_invites, has_received_invite_bonus,
		created_at, updated_at`

// row is satisfied by both pgx.Row and pgx.Rows.
type row interface {
	Scan(dest ...any) error
}

func scanAccount(r row) (*model.Account, error) {
	var a model.Account
	err := r.Scan(
		&a.TelegramID,
		&a.DisplayName,
		&a.TotalScore,
		&a.FriendCode,
		&a.LastVisitDay,
		&a.CurrentStreak,
		&a.HighestStreak,
		&a.TotalVisits,
		&a.VisitsPerDay,
		&a.LedgerDay,
		&a.MaxPlaysToday,
		&a.PlaysToday,
		&a.LastPlayedAt,
		&a.InvitedBy,
		&a.TicketsFromInvites,
		&a.HasReceivedInviteBonus,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// AccountRepository handles player account persistence.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository instance.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Create creates a new account with first-visit state: streak 1, one
// visit recorded for today and the base allowance. A unique friend code
// is generated, retrying on collision.
func (r *AccountRepository) Create(ctx context.Context, telegramID int64, displayName, today string) (*model.Account, error) {
	const query = `
		INSERT INTO accounts (
			telegram_id, display_name, friend_code,
			last_visit_day, current_streak, highest_streak, total_visits, visits_per_day,
			ledger_day, max_plays_today, plays_today,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, 1, 1, 1, $5, $4, $6, 0, NOW(), NOW())
		RETURNING ` + accountColumns

	visits := map[string]int{today: 1}
	allowance := ticket.Allowance(1, 0, 0)

	for attempt := 0; attempt < friendCodeAttempts; attempt++ {
		code, err := generateFriendCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate friend code: %w", err)
		}

		account, err := scanAccount(r.pool.QueryRow(ctx, query,
			telegramID, displayName, code, today, visits, allowance))
		if err == nil {
			return account, nil
		}
		if isFriendCodeCollision(err) {
			continue
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return nil, fmt.Errorf("failed to create account: friend code collisions after %d attempts", friendCodeAttempts)
}

// GetByID retrieves an account by Telegram ID.
// Returns ErrAccountNotFound if the account does not exist.
func (r *AccountRepository) GetByID(ctx context.Context, telegramID int64) (*model.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE telegram_id = $1`

	account, err := scanAccount(r.pool.QueryRow(ctx, query, telegramID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// GetByFriendCode retrieves an account by its friend code.
func (r *AccountRepository) GetByFriendCode(ctx context.Context, code string) (*model.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE friend_code = $1`

	account, err := scanAccount(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account by friend code: %w", err)
	}
	return account, nil
}

// GetOrCreate retrieves an account, creating one with first-visit state
// if it doesn't exist. Returns the account and whether it was created.
func (r *AccountRepository) GetOrCreate(ctx context.Context, telegramID int64, displayName, today string) (*model.Account, bool, error) {
	account, err := r.GetByID(ctx, telegramID)
	if err == nil {
		return account, false, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, false, err
	}

	account, err = r.Create(ctx, telegramID, displayName, today)
	if err != nil {
		// Another request might have created the account concurrently.
		account, err = r.GetByID(ctx, telegramID)
		if err != nil {
			return nil, false, err
		}
		return account, false, nil
	}

	return account, true, nil
}

// RecordVisit applies the streak rules for a visit on the given day and
// rolls the ticket ledger over on a new-day boundary. The whole update
// runs with the account row locked.
//
// Same day: only today's visit counter moves. Yesterday: the streak
// extends. A gap of two or more days restarts the streak at 1.
func (r *AccountRepository) RecordVisit(ctx context.Context, telegramID int64, today string) (*model.Account, error) {
	var account *model.Account

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		current, err := lockAccount(ctx, tx, telegramID)
		if err != nil {
			return err
		}

		streak := ticket.NextStreak(current.LastVisitDay, today, current.CurrentStreak)
		highest := current.HighestStreak
		if streak > highest {
			highest = streak
		}

		visits := current.VisitsPerDay
		if visits == nil {
			visits = make(map[string]int)
		}
		visits[today]++

		playsToday := current.PlaysToday
		if current.LedgerDay != today {
			playsToday = 0
		}

		friendCount, err := countFriends(ctx, tx, telegramID)
		if err != nil {
			return err
		}
		maxPlays := ticket.Allowance(streak, current.TicketsFromInvites, friendCount)

		const update = `
			UPDATE accounts
			SET last_visit_day = $2, current_streak = $3, highest_streak = $4,
			    total_visits = total_visits + 1, visits_per_day = $5,
			    ledger_day = $6, max_plays_today = $7, plays_today = $8,
			    updated_at = NOW()
			WHERE telegram_id = $1
			RETURNING ` + accountColumns

		account, err = scanAccount(tx.QueryRow(ctx, update,
			telegramID, today, streak, highest, visits, today, maxPlays, playsToday))
		if err != nil {
			return fmt.Errorf("failed to record visit: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// UpdateDisplayName updates an account's display name. Display names
// are non-contended, so this is a plain update.
func (r *AccountRepository) UpdateDisplayName(ctx context.Context, telegramID int64, displayName string) error {
	const query = `
		UPDATE accounts
		SET display_name = $2, updated_at = NOW()
		WHERE telegram_id = $1
	`

	result, err := r.pool.Exec(ctx, query, telegramID, displayName)
	if err != nil {
		return fmt.Errorf("failed to update display name: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// TopByScore retrieves the top N accounts by total score.
func (r *AccountRepository) TopByScore(ctx context.Context, limit int) ([]*model.ScoreRank, error) {
	const query = `
		SELECT telegram_id, display_name, total_score
		FROM accounts
		ORDER BY total_score DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top accounts: %w", err)
	}
	defer rows.Close()

	var ranks []*model.ScoreRank
	for rows.Next() {
		var rank model.ScoreRank
		if err := rows.Scan(&rank.UserID, &rank.DisplayName, &rank.Score); err != nil {
			return nil, fmt.Errorf("failed to scan rank: %w", err)
		}
		ranks = append(ranks, &rank)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ranks: %w", err)
	}
	return ranks, nil
}

// CountFriends returns the number of mutual friends for a user, derived
// from the relation table at read time.
func (r *AccountRepository) CountFriends(ctx context.Context, telegramID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM friend_relations WHERE user_id = $1`

	var count int
	if err := r.pool.QueryRow(ctx, query, telegramID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count friends: %w", err)
	}
	return count, nil
}

// inTx runs fn inside a transaction, committing on success.
func (r *AccountRepository) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// lockAccount reads an account row FOR UPDATE within tx.
func lockAccount(ctx context.Context, tx pgx.Tx, telegramID int64) (*model.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE telegram_id = $1 FOR UPDATE`

	account, err := scanAccount(tx.QueryRow(ctx, query, telegramID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}
	return account, nil
}

// countFriends counts friend relations within tx so the allowance seen
// by a ledger transaction is consistent with its own snapshot.
func countFriends(ctx context.Context, tx pgx.Tx, telegramID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM friend_relations WHERE user_id = $1`

	var count int
	if err := tx.QueryRow(ctx, query, telegramID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count friends: %w", err)
	}
	return count, nil
}

// Friend code generation. Codes are 6 uppercase alphanumeric characters;
// ambiguous characters are kept since codes are copy-pasted, not typed
// from memory.
const (
	friendCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	friendCodeLength   = 6
	friendCodeAttempts = 5
)

func generateFriendCode() (string, error) {
	buf := make([]byte, friendCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = friendCodeAlphabet[int(b)%len(friendCodeAlphabet)]
	}
	return string(buf), nil
}

func isFriendCodeCollision(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "accounts_friend_code_key"
	}
	return false
}
