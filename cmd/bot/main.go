// Package main is the entry point for the tap-game backend: the
// Telegram bot and the mini-app HTTP API share one process and one
// database pool.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"telegram-tap-game/internal/bot"
	"telegram-tap-game/internal/config"
	"telegram-tap-game/internal/pkg/db"
	"telegram-tap-game/internal/pkg/dedup"
	"telegram-tap-game/internal/pkg/lock"
	"telegram-tap-game/internal/repository"
	"telegram-tap-game/internal/server"
	"telegram-tap-game/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Repositories
	accountRepo := repository.NewAccountRepository(dbPool.Pool)
	referralRepo := repository.NewReferralRepository(dbPool.Pool)
	friendRepo := repository.NewFriendRepository(dbPool.Pool)
	playRepo := repository.NewPlayRepository(dbPool.Pool, cfg.Game.ConsumeRetries)

	// Services
	accountService := service.NewAccountService(accountRepo)
	referralService := service.NewReferralService(referralRepo)
	friendService := service.NewFriendService(accountRepo, friendRepo)
	playService := service.NewPlayService(playRepo)
	rankingService := service.NewRankingService(accountRepo, playRepo)

	userLock := lock.NewUserLock()

	dedupCache, err := dedup.New(cfg.Dedup.Size, cfg.Dedup.Window)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create dedup cache")
	}

	telegramBot, err := bot.New(&bot.Dependencies{
		Config:          cfg,
		AccountService:  accountService,
		ReferralService: referralService,
		FriendService:   friendService,
		RankingService:  rankingService,
		Dedup:           dedupCache,
		UserLock:        userLock,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	apiServer := server.New(&server.Dependencies{
		Config:         cfg,
		Pool:           dbPool,
		AccountService: accountService,
		PlayService:    playService,
		FriendService:  friendService,
		RankingService: rankingService,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	go func() {
		if err := apiServer.Listen(); err != nil {
			log.Error().Err(err).Msg("API server stopped")
		}
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	if err := apiServer.Shutdown(); err != nil {
		log.Error().Err(err).Msg("API server shutdown failed")
	}
	telegramBot.Stop()
	log.Info().Msg("Stopped gracefully")
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: accounts table
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			telegram_id BIGINT PRIMARY KEY,
			display_name VARCHAR(255) NOT NULL,
			total_score BIGINT NOT NULL DEFAULT 0,
			friend_code VARCHAR(6) NOT NULL UNIQUE,
			last_visit_day VARCHAR(10) NOT NULL DEFAULT '',
			current_streak INT NOT NULL DEFAULT 1,
			highest_streak INT NOT NULL DEFAULT 1,
			total_visits INT NOT NULL DEFAULT 0,
			visits_per_day JSONB NOT NULL DEFAULT '{}',
			ledger_day VARCHAR(10) NOT NULL DEFAULT '',
			max_plays_today INT NOT NULL DEFAULT 5,
			plays_today INT NOT NULL DEFAULT 0,
			last_played_at TIMESTAMPTZ,
			invited_by BIGINT,
			tickets_from_invites INT NOT NULL DEFAULT 0,
			has_received_invite_bonus BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT plays_within_allowance CHECK (plays_today >= 0 AND plays_today <= max_plays_today),
			CONSTRAINT streak_ordering CHECK (highest_streak >= current_streak)
		);
		CREATE INDEX IF NOT EXISTS idx_accounts_total_score ON accounts(total_score DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: accounts table created")

	// Migration 2: invited_users table (the referral set)
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS invited_users (
			referrer_id BIGINT NOT NULL REFERENCES accounts(telegram_id) ON DELETE CASCADE,
			invited_id BIGINT NOT NULL REFERENCES accounts(telegram_id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (referrer_id, invited_id)
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: invited_users table created")

	// Migration 3: friend requests and relations
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS friend_requests (
			id BIGSERIAL PRIMARY KEY,
			from_id BIGINT NOT NULL REFERENCES accounts(telegram_id) ON DELETE CASCADE,
			to_id BIGINT NOT NULL REFERENCES accounts(telegram_id) ON DELETE CASCADE,
			from_name VARCHAR(255) NOT NULL,
			status VARCHAR(10) NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_friend_requests_pending
			ON friend_requests(from_id, to_id) WHERE status = 'pending';
		CREATE INDEX IF NOT EXISTS idx_friend_requests_to
			ON friend_requests(to_id) WHERE status = 'pending';

		CREATE TABLE IF NOT EXISTS friend_relations (
			user_id BIGINT NOT NULL REFERENCES accounts(telegram_id) ON DELETE CASCADE,
			friend_id BIGINT NOT NULL REFERENCES accounts(telegram_id) ON DELETE CASCADE,
			added_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, friend_id)
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: friend tables created")

	// Migration 4: plays table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS plays (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES accounts(telegram_id) ON DELETE CASCADE,
			score BIGINT,
			started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			finished_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_plays_user_time ON plays(user_id, started_at DESC);
		CREATE INDEX IF NOT EXISTS idx_plays_finished ON plays(finished_at) WHERE score IS NOT NULL;
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 4: plays table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
