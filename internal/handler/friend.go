package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-tap-game/internal/pkg/lock"
	"telegram-tap-game/internal/service"
)

// FriendHandler handles friend codes, requests and the friend bonus.
type FriendHandler struct {
	accountService *service.AccountService
	friendService  *service.FriendService
	userLock       *lock.UserLock
}

// NewFriendHandler creates a new FriendHandler.
func NewFriendHandler(accountService *service.AccountService, friendService *service.FriendService, userLock *lock.UserLock) *FriendHandler {
	return &FriendHandler{
		accountService: accountService,
		friendService:  friendService,
		userLock:       userLock,
	}
}

// HandleFriendCode shows the user's own friend code.
func (h *FriendHandler) HandleFriendCode(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	account, err := h.accountService.GetAccount(ctx, sender.ID)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			return c.Reply("Use /start first to create your account.")
		}
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to get account")
		return c.Reply("❌ Something went wrong, please try again later")
	}

	return c.Reply(fmt.Sprintf(
		"👥 Your friend code: `%s`\n\n"+
			"Friends can add you with /addfriend %s",
		account.FriendCode, account.FriendCode,
	), tele.ModeMarkdown)
}

// HandleAddFriend sends a friend request to the owner of a code.
// Usage: /addfriend <code>
func (h *FriendHandler) HandleAddFriend(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	code := strings.TrimSpace(c.Message().Payload)
	if code == "" {
		return c.Reply("Usage: /addfriend <friend code>")
	}

	req, err := h.friendService.RequestByCode(ctx, sender.ID, displayName(sender), code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBadFriendCode):
			return c.Reply("🤔 That friend code doesn't match anyone.")
		case errors.Is(err, service.ErrSelfFriend):
			return c.Reply("You can't add yourself as a friend.")
		case errors.Is(err, service.ErrAlreadyFriends):
			return c.Reply("You're already friends! 👥")
		case errors.Is(err, service.ErrDuplicateRequest):
			return c.Reply("There's already a pending request between you two.")
		}
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to create friend request")
		return c.Reply("❌ Something went wrong, please try again later")
	}

	return c.Reply(fmt.Sprintf(
		"✅ Friend request sent! They can accept it with /requests (request #%d).",
		req.ID,
	))
}

// HandleRequests lists pending requests with accept/reject buttons.
func (h *FriendHandler) HandleRequests(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	requests, err := h.friendService.Pending(ctx, sender.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to list requests")
		return c.Reply("❌ Something went wrong, please try again later")
	}
	if len(requests) == 0 {
		return c.Reply("No pending friend requests.")
	}

	markup := &tele.ReplyMarkup{}
	var rows []tele.Row
	for _, req := range requests {
		accept := markup.Data(fmt.Sprintf("✅ %s", req.FromName), "friend_accept", strconv.FormatInt(req.ID, 10))
		reject := markup.Data("❌", "friend_reject", strconv.FormatInt(req.ID, 10))
		rows = append(rows, markup.Row(accept, reject))
	}
	markup.Inline(rows...)

	return c.Reply(fmt.Sprintf("👥 You have %d pending friend request(s):", len(requests)), markup)
}

// HandleFriendCallback settles a request from an inline button press.
// Callback data is "friend_accept|<id>" or "friend_reject|<id>".
func (h *FriendHandler) HandleFriendCallback(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	callback := c.Callback()
	if sender == nil || callback == nil {
		return nil
	}

	data := strings.TrimPrefix(callback.Data, "\f")
	parts := strings.SplitN(data, "|", 2)
	if len(parts) != 2 {
		return c.Respond(&tele.CallbackResponse{Text: "Unknown action"})
	}
	requestID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Unknown request"})
	}

	h.userLock.Lock(sender.ID)
	defer h.userLock.Unlock(sender.ID)

	switch parts[0] {
	case "friend_accept":
		err = h.friendService.Accept(ctx, requestID, sender.ID)
	case "friend_reject":
		err = h.friendService.Reject(ctx, requestID, sender.ID)
	default:
		return c.Respond(&tele.CallbackResponse{Text: "Unknown action"})
	}

	if err != nil {
		if errors.Is(err, service.ErrRequestNotPending) {
			return c.Respond(&tele.CallbackResponse{Text: "This request was already settled."})
		}
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to settle friend request")
		return c.Respond(&tele.CallbackResponse{Text: "Something went wrong, try again."})
	}

	if parts[0] == "friend_accept" {
		info, err := h.friendService.BonusInfo(ctx, sender.ID)
		if err == nil {
			_ = c.Edit(fmt.Sprintf(
				"✅ Friend added! You now have %d friend(s) and +%d bonus ticket(s) per day.",
				info.FriendCount, info.BonusTickets,
			))
		}
		return c.Respond(&tele.CallbackResponse{Text: "Friend added! 🎉"})
	}
	_ = c.Edit("Request dismissed.")
	return c.Respond(&tele.CallbackResponse{Text: "Request dismissed."})
}

// HandleFriends lists friends and the current bonus tier.
func (h *FriendHandler) HandleFriends(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	info, err := h.friendService.BonusInfo(ctx, sender.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to get bonus info")
		return c.Reply("❌ Something went wrong, please try again later")
	}

	friends, err := h.friendService.Friends(ctx, sender.ID, 20)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to list friends")
		return c.Reply("❌ Something went wrong, please try again later")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👥 Friends: %d | Bonus tickets: +%d/day\n", info.FriendCount, info.BonusTickets)
	fmt.Fprintf(&b, "Add %d more friend(s) for the next bonus ticket.\n", info.FriendsNeededForNext)
	if len(friends) > 0 {
		b.WriteString("\n")
		for i, f := range friends {
			fmt.Fprintf(&b, "%d. %s — %d pts\n", i+1, f.DisplayName, f.Score)
		}
	}
	return c.Reply(b.String())
}
