package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-tap-game/internal/config"
	"telegram-tap-game/internal/service"
)

// announcer posts the daily leaderboard to the configured chat once a
// day at the configured UTC hour.
type announcer struct {
	scheduler gocron.Scheduler
}

func newAnnouncer(bot *tele.Bot, ranking *service.RankingService, cfg *config.Config) (*announcer, error) {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	chat := &tele.Chat{ID: cfg.Bot.AnnounceChat}
	size := cfg.Game.LeaderboardSize

	_, err = scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(
			gocron.NewAtTime(uint(cfg.Bot.AnnounceHour), 0, 0),
		)),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			ranks, err := ranking.DailyTop(ctx, size)
			if err != nil {
				log.Error().Err(err).Msg("Failed to load daily leaderboard for announcement")
				return
			}
			if len(ranks) == 0 {
				return
			}

			var b strings.Builder
			b.WriteString("📅 Today's best scores:\n\n")
			for i, rank := range ranks {
				fmt.Fprintf(&b, "%d. %s — %d pts\n", i+1, rank.DisplayName, rank.Score)
			}

			if _, err := bot.Send(chat, b.String()); err != nil {
				log.Error().Err(err).Msg("Failed to post daily leaderboard")
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule announcement: %w", err)
	}

	scheduler.Start()
	return &announcer{scheduler: scheduler}, nil
}

func (a *announcer) stop() {
	if err := a.scheduler.Shutdown(); err != nil {
		log.Error().Err(err).Msg("Failed to shut down announcement scheduler")
	}
}
