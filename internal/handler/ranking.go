package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-tap-game/internal/model"
	"telegram-tap-game/internal/service"
)

// RankingHandler handles leaderboard commands.
type RankingHandler struct {
	rankingService *service.RankingService
	size           int
}

// NewRankingHandler creates a new RankingHandler.
func NewRankingHandler(rankingService *service.RankingService, size int) *RankingHandler {
	if size < 1 {
		size = 10
	}
	return &RankingHandler{rankingService: rankingService, size: size}
}

// HandleTop shows the all-time leaderboard by total score.
func (h *RankingHandler) HandleTop(c tele.Context) error {
	ranks, err := h.rankingService.TopTotal(context.Background(), h.size)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get leaderboard")
		return c.Reply("❌ Something went wrong, please try again later")
	}
	return c.Reply(formatRanks("🏆 All-time leaderboard", ranks))
}

// HandleDailyTop shows today's best single-play scores.
func (h *RankingHandler) HandleDailyTop(c tele.Context) error {
	ranks, err := h.rankingService.DailyTop(context.Background(), h.size)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get daily leaderboard")
		return c.Reply("❌ Something went wrong, please try again later")
	}
	return c.Reply(formatRanks("📅 Today's best scores", ranks))
}

func formatRanks(title string, ranks []*model.ScoreRank) string {
	if len(ranks) == 0 {
		return title + "\n\nNo scores yet — be the first!"
	}

	medals := []string{"🥇", "🥈", "🥉"}
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n\n")
	for i, rank := range ranks {
		prefix := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			prefix = medals[i]
		}
		fmt.Fprintf(&b, "%s %s — %d pts\n", prefix, rank.DisplayName, rank.Score)
	}
	return b.String()
}
