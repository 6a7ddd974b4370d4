package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"telegram-tap-game/internal/model"
)

// Referral errors.
var (
	// ErrAlreadyCredited means the invited user already received the
	// one-time invite bonus. Callers treat this as an idempotent no-op.
	ErrAlreadyCredited = errors.New("invite bonus already credited")
)

// ReferralRepository handles invite relationships. Both halves of a
// referral credit commit in one transaction: the latch on the invited
// account is checked and set with the rows locked, so concurrent
// duplicate invocations credit exactly once.
type ReferralRepository struct {
	pool *pgxpool.Pool
}

// NewReferralRepository creates a new ReferralRepository instance.
func NewReferralRepository(pool *pgxpool.Pool) *ReferralRepository {
	return &ReferralRepository{pool: pool}
}

// Apply credits a referral: the referrer gains the invited user in
// their invited set and one permanent ticket; the invited user gets
// their referrer recorded, one permanent ticket and the bonus latch
// set. Returns ErrAlreadyCredited if the invited user's latch was
// already set, ErrAccountNotFound if either account is missing.
//
// Self-referral is rejected by the service layer before reaching here.
func (r *ReferralRepository) Apply(ctx context.Context, invitedID, referrerID int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock both account rows in ascending ID order so two referrals
	// touching the same pair cannot deadlock.
	first, second := invitedID, referrerID
	if referrerID < invitedID {
		first, second = referrerID, invitedID
	}
	var invited *model.Account
	for _, id := range []int64{first, second} {
		account, err := lockAccount(ctx, tx, id)
		if err != nil {
			return err
		}
		if id == invitedID {
			invited = account
		}
	}

	if invited.HasReceivedInviteBonus {
		return ErrAlreadyCredited
	}

	// Additive: the invitee may already hold credits earned as a
	// referrer, and tickets_from_invites never decreases.
	const creditInvited = `
		UPDATE accounts
		SET invited_by = $2, tickets_from_invites = tickets_from_invites + 1,
		    has_received_invite_bonus = TRUE, updated_at = NOW()
		WHERE telegram_id = $1
	`
	if _, err := tx.Exec(ctx, creditInvited, invitedID, referrerID); err != nil {
		return fmt.Errorf("failed to credit invited account: %w", err)
	}

	const creditReferrer = `
		UPDATE accounts
		SET tickets_from_invites = tickets_from_invites + 1, updated_at = NOW()
		WHERE telegram_id = $1
	`
	if _, err := tx.Exec(ctx, creditReferrer, referrerID); err != nil {
		return fmt.Errorf("failed to credit referrer: %w", err)
	}

	const recordInvite = `
		INSERT INTO invited_users (referrer_id, invited_id, created_at)
		VALUES ($1, $2, NOW())
	`
	if _, err := tx.Exec(ctx, recordInvite, referrerID, invitedID); err != nil {
		return fmt.Errorf("failed to record invite: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit referral: %w", err)
	}
	return nil
}

// InviteCount returns how many users a referrer has invited.
func (r *ReferralRepository) InviteCount(ctx context.Context, referrerID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM invited_users WHERE referrer_id = $1`

	var count int
	if err := r.pool.QueryRow(ctx, query, referrerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count invites: %w", err)
	}
	return count, nil
}
