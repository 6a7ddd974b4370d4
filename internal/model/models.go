// Package model defines the data models for the tap-game backend.
package model

import "time"

// Account represents a player account in the ticket economy.
// One row per Telegram user; the visit, ledger and referral fields are
// mutated only through the transactional repository operations.
type Account struct {
	TelegramID  int64  `db:"telegram_id"`
	DisplayName string `db:"display_name"`
	TotalScore  int64  `db:"total_score"`
	FriendCode  string `db:"friend_code"`

	// Visit record
	LastVisitDay  string         `db:"last_visit_day"` // YYYY-MM-DD, empty before first visit
	CurrentStreak int            `db:"current_streak"`
	HighestStreak int            `db:"highest_streak"`
	TotalVisits   int            `db:"total_visits"`
	VisitsPerDay  map[string]int `db:"visits_per_day"`

	// Ticket ledger
	LedgerDay     string     `db:"ledger_day"` // day playsToday counts for
	MaxPlaysToday int        `db:"max_plays_today"`
	PlaysToday    int        `db:"plays_today"`
	LastPlayedAt  *time.Time `db:"last_played_at"`

	// Referral record
	InvitedBy              *int64 `db:"invited_by"`
	TicketsFromInvites     int    `db:"tickets_from_invites"`
	HasReceivedInviteBonus bool   `db:"has_received_invite_bonus"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// PlaysRemaining returns the number of tickets left for the day.
func (a *Account) PlaysRemaining() int {
	remaining := a.MaxPlaysToday - a.PlaysToday
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Play represents one consumed ticket and, once the session finishes,
// the score it produced.
type Play struct {
	ID         int64      `db:"id" json:"id"`
	UserID     int64      `db:"user_id" json:"user_id"`
	Score      *int64     `db:"score" json:"score"`
	StartedAt  time.Time  `db:"started_at" json:"started_at"`
	FinishedAt *time.Time `db:"finished_at" json:"finished_at"`
}

// FriendRequest statuses. Requests are terminal once accepted or rejected.
const (
	FriendRequestPending  = "pending"
	FriendRequestAccepted = "accepted"
	FriendRequestRejected = "rejected"
)

// FriendRequest represents a pending or settled friendship request.
type FriendRequest struct {
	ID        int64     `db:"id"`
	FromID    int64     `db:"from_id"`
	ToID      int64     `db:"to_id"`
	FromName  string    `db:"from_name"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
}

// FriendRelation is one direction of a mutual friendship. Relations are
// always written as a symmetric pair inside a single transaction.
type FriendRelation struct {
	UserID   int64     `db:"user_id"`
	FriendID int64     `db:"friend_id"`
	AddedAt  time.Time `db:"added_at"`
}

// ScoreRank represents a leaderboard entry.
type ScoreRank struct {
	UserID      int64  `db:"user_id" json:"user_id"`
	DisplayName string `db:"display_name" json:"display_name"`
	Score       int64  `db:"score" json:"score"`
}
