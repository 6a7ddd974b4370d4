package service

import (
	"context"
	"time"

	"telegram-tap-game/internal/model"
	"telegram-tap-game/internal/repository"
)

// RankingService handles leaderboard reads. These are best-effort,
// eventually-consistent views with no ordering guarantee across users.
type RankingService struct {
	accounts *repository.AccountRepository
	plays    *repository.PlayRepository
}

// NewRankingService creates a new RankingService instance.
func NewRankingService(accounts *repository.AccountRepository, plays *repository.PlayRepository) *RankingService {
	return &RankingService{accounts: accounts, plays: plays}
}

// TopTotal retrieves the top accounts by cumulative score.
func (s *RankingService) TopTotal(ctx context.Context, limit int) ([]*model.ScoreRank, error) {
	return s.accounts.TopByScore(ctx, limit)
}

// DailyTop retrieves today's best single-play scores.
func (s *RankingService) DailyTop(ctx context.Context, limit int) ([]*model.ScoreRank, error) {
	return s.plays.DailyTop(ctx, time.Now().UTC(), limit)
}
