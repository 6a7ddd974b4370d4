package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

const userIDKey = "userID"

// requireSession resolves the bearer token into a user ID.
func (s *Server) requireSession(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing_token"})
	}

	userID, ok := s.sessions.resolve(token)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_token"})
	}

	c.Locals(userIDKey, userID)
	return c.Next()
}

type sessionRequest struct {
	InitData string `json:"init_data"`
}

type allowanceResponse struct {
	Base          int `json:"base"`
	StreakBonus   int `json:"streak_bonus"`
	ReferralBonus int `json:"referral_bonus"`
	FriendBonus   int `json:"friend_bonus"`
	MaxPlaysToday int `json:"max_plays_today"`
	PlaysToday    int `json:"plays_today"`
	Remaining     int `json:"remaining"`
}

// handleSession verifies the signed launch payload, records a visit
// for the player and issues an API token for the rest of the game
// session. The user identity comes from the payload signature, never
// from the request body directly.
func (s *Server) handleSession(c *fiber.Ctx) error {
	var req sessionRequest
	if err := c.BodyParser(&req); err != nil || req.InitData == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request"})
	}

	user, err := validateInitData(req.InitData, s.botToken, time.Now())
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "bad_init_data"})
	}

	account, created, err := s.accountService.RecordVisit(c.Context(), user.ID, user.displayName())
	if err != nil {
		return errorResponse(c, err)
	}

	token := s.sessions.issue(account.TelegramID)
	return c.JSON(fiber.Map{
		"token":          token,
		"created":        created,
		"display_name":   account.DisplayName,
		"current_streak": account.CurrentStreak,
		"highest_streak": account.HighestStreak,
		"total_score":    account.TotalScore,
		"friend_code":    account.FriendCode,
		"max_plays":      account.MaxPlaysToday,
		"remaining":      account.PlaysRemaining(),
	})
}

// handleAllowance returns the live allowance breakdown.
func (s *Server) handleAllowance(c *fiber.Ctx) error {
	userID := c.Locals(userIDKey).(int64)

	allowance, err := s.accountService.GetAllowance(c.Context(), userID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(allowanceResponse{
		Base:          allowance.Base,
		StreakBonus:   allowance.StreakBonus,
		ReferralBonus: allowance.ReferralBonus,
		FriendBonus:   allowance.FriendBonus,
		MaxPlaysToday: allowance.MaxPlaysToday,
		PlaysToday:    allowance.PlaysToday,
		Remaining:     allowance.Remaining,
	})
}

// handlePlay spends one ticket and opens a play.
func (s *Server) handlePlay(c *fiber.Ctx) error {
	userID := c.Locals(userIDKey).(int64)

	result, err := s.playService.Consume(c.Context(), userID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"play_id":   result.Play.ID,
		"max_plays": result.MaxPlaysToday,
		"remaining": result.Remaining,
	})
}

type scoreRequest struct {
	Score int64 `json:"score"`
}

// handleScore records the final score of a finished play.
func (s *Server) handleScore(c *fiber.Ctx) error {
	userID := c.Locals(userIDKey).(int64)

	playID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_play_id"})
	}

	var req scoreRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request"})
	}

	if err := s.playService.SubmitScore(c.Context(), playID, userID, req.Score); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// handlePlays returns the player's recent plays, newest first.
func (s *Server) handlePlays(c *fiber.Ctx) error {
	userID := c.Locals(userIDKey).(int64)

	plays, err := s.playService.History(c.Context(), userID, 20)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"plays": plays})
}

// handleFriendBonus returns the friend-bonus tier for display.
func (s *Server) handleFriendBonus(c *fiber.Ctx) error {
	userID := c.Locals(userIDKey).(int64)

	info, err := s.friendService.BonusInfo(c.Context(), userID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"friend_count":            info.FriendCount,
		"bonus_tickets":           info.BonusTickets,
		"friends_needed_for_next": info.FriendsNeededForNext,
	})
}

// handleLeaderboard returns the daily or all-time leaderboard.
func (s *Server) handleLeaderboard(c *fiber.Ctx) error {
	var (
		ranks any
		err   error
	)
	if c.Query("scope") == "daily" {
		ranks, err = s.rankingService.DailyTop(c.Context(), s.leaderboard)
	} else {
		ranks, err = s.rankingService.TopTotal(c.Context(), s.leaderboard)
	}
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"ranks": ranks})
}
