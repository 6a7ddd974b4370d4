// Package service provides business logic implementations.
package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"telegram-tap-game/internal/model"
	"telegram-tap-game/internal/pkg/daily"
	"telegram-tap-game/internal/pkg/metrics"
	"telegram-tap-game/internal/repository"
	"telegram-tap-game/internal/ticket"
)

// ErrAccountNotFound means no account exists for the user. Callers
// should create one via first-visit initialization, never treat this
// as fatal.
var ErrAccountNotFound = repository.ErrAccountNotFound

// AccountService handles account lifecycle and visit recording.
type AccountService struct {
	accounts *repository.AccountRepository
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(accounts *repository.AccountRepository) *AccountService {
	return &AccountService{accounts: accounts}
}

// RecordVisit registers a session start for today. A first-ever visit
// creates the account with streak 1 and the base allowance; otherwise
// the streak rules apply and a new-day boundary resets the ledger.
// Returns the account and whether it was newly created.
func (s *AccountService) RecordVisit(ctx context.Context, telegramID int64, displayName string) (*model.Account, bool, error) {
	today := daily.Today()

	account, created, err := s.accounts.GetOrCreate(ctx, telegramID, displayName, today)
	if err != nil {
		return nil, false, fmt.Errorf("failed to ensure account: %w", err)
	}

	if !created {
		account, err = s.accounts.RecordVisit(ctx, telegramID, today)
		if err != nil {
			return nil, false, fmt.Errorf("failed to record visit: %w", err)
		}

		if displayName != "" && account.DisplayName != displayName {
			if err := s.accounts.UpdateDisplayName(ctx, telegramID, displayName); err != nil {
				// Non-fatal; the visit itself is recorded.
				log.Warn().Err(err).Int64("user_id", telegramID).Msg("Failed to update display name")
			} else {
				account.DisplayName = displayName
			}
		}
	}

	metrics.VisitsRecorded.Inc()
	log.Debug().
		Int64("user_id", telegramID).
		Int("streak", account.CurrentStreak).
		Int("max_plays", account.MaxPlaysToday).
		Bool("created", created).
		Msg("Visit recorded")

	return account, created, nil
}

// GetAccount retrieves an account by Telegram ID.
func (s *AccountService) GetAccount(ctx context.Context, telegramID int64) (*model.Account, error) {
	return s.accounts.GetByID(ctx, telegramID)
}

// Allowance is the day's ticket entitlement broken into its terms.
type Allowance struct {
	Base          int
	StreakBonus   int
	ReferralBonus int
	FriendBonus   int
	MaxPlaysToday int
	PlaysToday    int
	Remaining     int
}

// GetAllowance recomputes the current allowance from live inputs. The
// friend count is derived from the relation table, never from a cached
// counter, so invite and friendship changes show up immediately.
func (s *AccountService) GetAllowance(ctx context.Context, telegramID int64) (*Allowance, error) {
	account, err := s.accounts.GetByID(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	friendCount, err := s.accounts.CountFriends(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	playsToday := account.PlaysToday
	if account.LedgerDay != daily.Today() {
		playsToday = 0
	}

	maxPlays := ticket.Allowance(account.CurrentStreak, account.TicketsFromInvites, friendCount)
	remaining := maxPlays - playsToday
	if remaining < 0 {
		remaining = 0
	}

	return &Allowance{
		Base:          ticket.BaseAllowance,
		StreakBonus:   ticket.StreakBonus(account.CurrentStreak),
		ReferralBonus: account.TicketsFromInvites,
		FriendBonus:   ticket.FriendBonus(friendCount),
		MaxPlaysToday: maxPlays,
		PlaysToday:    playsToday,
		Remaining:     remaining,
	}, nil
}
