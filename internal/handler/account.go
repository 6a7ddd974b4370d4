// Package handler provides Telegram bot command handlers. Handlers are
// a thin shell: they parse commands, call services and format replies.
package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-tap-game/internal/pkg/lock"
	"telegram-tap-game/internal/service"
)

// AccountHandler handles account and session commands.
type AccountHandler struct {
	accountService  *service.AccountService
	referralService *service.ReferralService
	userLock        *lock.UserLock
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountService *service.AccountService, referralService *service.ReferralService, userLock *lock.UserLock) *AccountHandler {
	return &AccountHandler{
		accountService:  accountService,
		referralService: referralService,
		userLock:        userLock,
	}
}

func displayName(sender *tele.User) string {
	if sender.Username != "" {
		return sender.Username
	}
	return sender.FirstName
}

// HandleStart records a visit and, when the start payload carries an
// invite token, redeems it. Self-referrals and repeat redemptions are
// swallowed silently.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	h.userLock.Lock(sender.ID)
	defer h.userLock.Unlock(sender.ID)

	account, created, err := h.accountService.RecordVisit(ctx, sender.ID, displayName(sender))
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to record visit")
		return c.Reply("❌ Something went wrong, please try again later")
	}

	if payload := c.Message().Payload; payload != "" {
		if referrerID, err := service.ParseInviteToken(payload); err == nil {
			err := h.referralService.Apply(ctx, sender.ID, referrerID)
			switch {
			case err == nil:
				_ = c.Reply("🎁 Invite accepted! You and your friend each got a permanent bonus ticket.")
				// The redeemed invite raised today's allowance, refresh
				// the numbers the welcome message is about to show.
				if allowance, err := h.accountService.GetAllowance(ctx, sender.ID); err == nil {
					account.MaxPlaysToday = allowance.MaxPlaysToday
					account.PlaysToday = allowance.PlaysToday
				}
			case errors.Is(err, service.ErrSelfReferral), errors.Is(err, service.ErrAlreadyCredited):
				// Expected no-ops, nothing to tell the user.
			default:
				log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to apply referral")
			}
		}
	}

	if created {
		return c.Reply(fmt.Sprintf(
			"🎉 Welcome, @%s!\n\n"+
				"You have %d tickets today. Each ticket is one round of the game.\n\n"+
				"Commands:\n"+
				"/tickets - today's tickets\n"+
				"/invite - invite friends for bonus tickets\n"+
				"/friendcode - your friend code\n"+
				"/addfriend <code> - add a friend\n"+
				"/top - leaderboard",
			account.DisplayName, account.MaxPlaysToday,
		))
	}

	return c.Reply(fmt.Sprintf(
		"👋 Welcome back, @%s!\n\n"+
			"🔥 Streak: %d day(s)\n"+
			"🎟 Tickets today: %d of %d left",
		account.DisplayName, account.CurrentStreak,
		account.PlaysRemaining(), account.MaxPlaysToday,
	))
}

// HandleTickets shows the allowance breakdown for today.
func (h *AccountHandler) HandleTickets(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	allowance, err := h.accountService.GetAllowance(ctx, sender.ID)
	if err != nil {
		return h.replyOrCreate(c, err)
	}

	return c.Reply(fmt.Sprintf(
		"🎟 Your tickets today: %d of %d left\n\n"+
			"Base: %d\n"+
			"🔥 Streak bonus: +%d\n"+
			"🎁 Invite bonus: +%d\n"+
			"👥 Friend bonus: +%d",
		allowance.Remaining, allowance.MaxPlaysToday,
		allowance.Base, allowance.StreakBonus, allowance.ReferralBonus, allowance.FriendBonus,
	))
}

// HandleInvite shows the user's invite link and invite count.
func (h *AccountHandler) HandleInvite(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	count, err := h.referralService.InviteCount(ctx, sender.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to count invites")
		return c.Reply("❌ Something went wrong, please try again later")
	}

	link := service.InviteLink(c.Bot().Me.Username, sender.ID)
	return c.Reply(fmt.Sprintf(
		"🎁 Invite friends, earn tickets!\n\n"+
			"Every friend who joins through your link gives you both a permanent extra ticket per day.\n\n"+
			"Your link: %s\n"+
			"Friends invited so far: %d",
		link, count,
	))
}

// replyOrCreate handles the missing-account case on read-only commands
// by recording a first visit, never treating NotFound as fatal.
func (h *AccountHandler) replyOrCreate(c tele.Context, err error) error {
	sender := c.Sender()
	if !errors.Is(err, service.ErrAccountNotFound) {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Command failed")
		return c.Reply("❌ Something went wrong, please try again later")
	}

	h.userLock.Lock(sender.ID)
	defer h.userLock.Unlock(sender.ID)

	account, _, err := h.accountService.RecordVisit(context.Background(), sender.ID, displayName(sender))
	if err != nil {
		return c.Reply("❌ Something went wrong, please try again later")
	}
	return c.Reply(fmt.Sprintf(
		"🎟 Your tickets today: %d of %d left",
		account.PlaysRemaining(), account.MaxPlaysToday,
	))
}
