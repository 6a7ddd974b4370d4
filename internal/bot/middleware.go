package bot

import (
	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-tap-game/internal/config"
	"telegram-tap-game/internal/pkg/dedup"
)

// WhitelistMiddleware creates a middleware that drops updates from
// chats outside the configured whitelist. An empty whitelist allows
// everything; private chats are always allowed so players can manage
// their account one-on-one with the bot.
func WhitelistMiddleware(cfg *config.Config) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			if chat == nil {
				return nil
			}

			if chat.Type == tele.ChatPrivate || cfg.IsChatAllowed(chat.ID) {
				return next(c)
			}

			log.Debug().
				Int64("chat_id", chat.ID).
				Msg("Ignoring command from non-whitelisted chat")
			return nil
		}
	}
}

// DedupMiddleware drops redelivered messages using the bounded
// idempotency cache. The ledger operations are idempotent on their own;
// this just avoids double replies on network redelivery.
func DedupMiddleware(cache *dedup.Cache) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			msg := c.Message()
			chat := c.Chat()
			if msg == nil || chat == nil || c.Callback() != nil {
				return next(c)
			}

			if cache.Seen(chat.ID, msg.ID) {
				log.Debug().
					Int64("chat_id", chat.ID).
					Int("message_id", msg.ID).
					Msg("Dropping duplicate message")
				return nil
			}
			return next(c)
		}
	}
}

// LoggingMiddleware creates a middleware that logs all incoming messages.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			chat := c.Chat()

			logEvent := log.Debug()
			if sender != nil {
				logEvent = logEvent.
					Int64("user_id", sender.ID).
					Str("username", sender.Username)
			}
			if chat != nil {
				logEvent = logEvent.
					Int64("chat_id", chat.ID).
					Str("chat_type", string(chat.Type))
			}
			logEvent.
				Str("text", c.Text()).
				Msg("Received message")

			return next(c)
		}
	}
}

// RecoveryMiddleware creates a middleware that recovers from panics.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Msg("Recovered from panic in handler")
					_ = c.Reply("❌ Internal error, please try again later")
				}
			}()
			return next(c)
		}
	}
}
