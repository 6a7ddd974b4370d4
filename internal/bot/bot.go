// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-tap-game/internal/config"
	"telegram-tap-game/internal/handler"
	"telegram-tap-game/internal/pkg/dedup"
	"telegram-tap-game/internal/pkg/lock"
	"telegram-tap-game/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot            *tele.Bot
	cfg            *config.Config
	rankingService *service.RankingService

	accountHandler *handler.AccountHandler
	friendHandler  *handler.FriendHandler
	rankingHandler *handler.RankingHandler

	announcer *announcer
}

// Dependencies holds everything the bot handlers need.
type Dependencies struct {
	Config          *config.Config
	AccountService  *service.AccountService
	ReferralService *service.ReferralService
	FriendService   *service.FriendService
	RankingService  *service.RankingService
	Dedup           *dedup.Cache
	UserLock        *lock.UserLock
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:            teleBot,
		cfg:            deps.Config,
		rankingService: deps.RankingService,
	}

	b.accountHandler = handler.NewAccountHandler(deps.AccountService, deps.ReferralService, deps.UserLock)
	b.friendHandler = handler.NewFriendHandler(deps.AccountService, deps.FriendService, deps.UserLock)
	b.rankingHandler = handler.NewRankingHandler(deps.RankingService, deps.Config.Game.LeaderboardSize)

	b.registerMiddleware(deps.Dedup)
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware. Order matters: recovery
// wraps everything, dedup runs before any handler mutates state.
func (b *Bot) registerMiddleware(cache *dedup.Cache) {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg))
	b.bot.Use(DedupMiddleware(cache))
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command and callback handlers.
func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.accountHandler.HandleStart)
	b.bot.Handle("/tickets", b.accountHandler.HandleTickets)
	b.bot.Handle("/invite", b.accountHandler.HandleInvite)

	b.bot.Handle("/friendcode", b.friendHandler.HandleFriendCode)
	b.bot.Handle("/addfriend", b.friendHandler.HandleAddFriend)
	b.bot.Handle("/requests", b.friendHandler.HandleRequests)
	b.bot.Handle("/friends", b.friendHandler.HandleFriends)

	b.bot.Handle("/top", b.rankingHandler.HandleTop)
	b.bot.Handle("/dailytop", b.rankingHandler.HandleDailyTop)

	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// handleCallback routes inline-button callbacks to their handlers.
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	// Telebot v3 may add a \f prefix to callback data.
	data := strings.TrimPrefix(callback.Data, "\f")

	if strings.HasPrefix(data, "friend_") {
		return b.friendHandler.HandleFriendCallback(c)
	}
	return c.Respond(&tele.CallbackResponse{})
}

// Start starts the bot polling and the daily announcement job.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")

	if b.cfg.Bot.AnnounceChat != 0 {
		announcer, err := newAnnouncer(b.bot, b.rankingService, b.cfg)
		if err != nil {
			log.Error().Err(err).Msg("Failed to start leaderboard announcer")
		} else {
			b.announcer = announcer
			log.Info().
				Int64("chat_id", b.cfg.Bot.AnnounceChat).
				Int("hour_utc", b.cfg.Bot.AnnounceHour).
				Msg("Leaderboard announcer started")
		}
	}

	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	if b.announcer != nil {
		b.announcer.stop()
	}
	b.bot.Stop()
}
