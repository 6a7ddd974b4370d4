package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"telegram-tap-game/internal/model"
	"telegram-tap-game/internal/repository"
	"telegram-tap-game/internal/ticket"
)

// Friend errors.
var (
	ErrSelfFriend        = errors.New("cannot befriend yourself")
	ErrBadFriendCode     = errors.New("friend code not recognized")
	ErrAlreadyFriends    = repository.ErrAlreadyFriends
	ErrDuplicateRequest  = repository.ErrDuplicateRequest
	ErrRequestNotPending = repository.ErrRequestNotPending
)

// FriendService handles friend requests, friend codes and the bonus
// tier derived from the mutual-friend count.
type FriendService struct {
	accounts *repository.AccountRepository
	friends  *repository.FriendRepository
}

// NewFriendService creates a new FriendService instance.
func NewFriendService(accounts *repository.AccountRepository, friends *repository.FriendRepository) *FriendService {
	return &FriendService{accounts: accounts, friends: friends}
}

// RequestByCode opens a friend request to the owner of a friend code.
func (s *FriendService) RequestByCode(ctx context.Context, fromID int64, fromName, code string) (*model.FriendRequest, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrBadFriendCode
	}

	target, err := s.accounts.GetByFriendCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrBadFriendCode
		}
		return nil, fmt.Errorf("failed to resolve friend code: %w", err)
	}
	if target.TelegramID == fromID {
		return nil, ErrSelfFriend
	}

	return s.friends.CreateRequest(ctx, fromID, target.TelegramID, fromName)
}

// Accept settles a pending request addressed to the user and creates
// the mutual relation. The friend bonus follows automatically on the
// next allowance computation since friend counts are derived live.
func (s *FriendService) Accept(ctx context.Context, requestID, userID int64) error {
	return s.friends.Accept(ctx, requestID, userID)
}

// Reject settles a pending request as rejected.
func (s *FriendService) Reject(ctx context.Context, requestID, userID int64) error {
	return s.friends.Reject(ctx, requestID, userID)
}

// Pending lists the friend requests waiting on the user.
func (s *FriendService) Pending(ctx context.Context, userID int64) ([]*model.FriendRequest, error) {
	return s.friends.PendingFor(ctx, userID)
}

// Friends lists the user's friends.
func (s *FriendService) Friends(ctx context.Context, userID int64, limit int) ([]*model.ScoreRank, error) {
	return s.friends.Friends(ctx, userID, limit)
}

// BonusInfo describes the user's friend-bonus standing for display.
type BonusInfo struct {
	FriendCount          int
	BonusTickets         int
	FriendsNeededForNext int
}

// BonusInfo returns the user's current friend-bonus tier and distance
// to the next one.
func (s *FriendService) BonusInfo(ctx context.Context, userID int64) (*BonusInfo, error) {
	count, err := s.accounts.CountFriends(ctx, userID)
	if err != nil {
		return nil, err
	}
	info := ticket.FriendBonusInfo(count)
	return &BonusInfo{
		FriendCount:          count,
		BonusTickets:         info.TicketsAtCurrentCount,
		FriendsNeededForNext: info.FriendsNeededForNext,
	}, nil
}
