// Package server provides the HTTP API the embedded web view talks to.
// The tap game itself runs client-side; this API is how it starts
// sessions, spends tickets and reports scores.
package server

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"telegram-tap-game/internal/config"
	"telegram-tap-game/internal/pkg/db"
	"telegram-tap-game/internal/service"
)

// Server is the mini-app HTTP API.
type Server struct {
	app      *fiber.App
	cfg      *config.ServerConfig
	pool     *db.Pool
	sessions *sessionStore
	botToken string

	accountService *service.AccountService
	playService    *service.PlayService
	friendService  *service.FriendService
	rankingService *service.RankingService
	leaderboard    int
}

// Dependencies holds everything the API handlers need.
type Dependencies struct {
	Config         *config.Config
	Pool           *db.Pool
	AccountService *service.AccountService
	PlayService    *service.PlayService
	FriendService  *service.FriendService
	RankingService *service.RankingService
}

// New creates the API server and registers its routes.
func New(deps *Dependencies) *Server {
	app := fiber.New(fiber.Config{
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
	})
	app.Use(recover.New())

	s := &Server{
		app:            app,
		cfg:            &deps.Config.Server,
		pool:           deps.Pool,
		sessions:       newSessionStore(sessionTTL),
		botToken:       deps.Config.Bot.Token,
		accountService: deps.AccountService,
		playService:    deps.PlayService,
		friendService:  deps.FriendService,
		rankingService: deps.RankingService,
		leaderboard:    deps.Config.Game.LeaderboardSize,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.app.Get("/healthz", s.handleHealth)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := s.app.Group("/api")
	api.Post("/session", s.handleSession)

	authed := api.Group("", s.requireSession)
	authed.Get("/allowance", s.handleAllowance)
	authed.Post("/play", s.handlePlay)
	authed.Post("/play/:id/score", s.handleScore)
	authed.Get("/plays", s.handlePlays)
	authed.Get("/friends/bonus", s.handleFriendBonus)
	authed.Get("/leaderboard", s.handleLeaderboard)
}

// Listen starts serving. Blocks until Shutdown.
func (s *Server) Listen() error {
	log.Info().Str("addr", s.cfg.Listen).Msg("API server listening")
	return s.app.Listen(s.cfg.Listen)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(10 * time.Second)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	if err := s.pool.HealthCheck(c.Context()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// errorResponse maps service errors onto API status codes. Expected
// game outcomes get their own codes so the client can branch without
// string matching.
func errorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrNoPlaysRemaining):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "no_plays_remaining",
		})
	case errors.Is(err, service.ErrAccountNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "account_not_found",
		})
	case errors.Is(err, service.ErrPlayNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "play_not_found",
		})
	case errors.Is(err, service.ErrUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "unavailable",
		})
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("API request failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal",
	})
}
